// Package caldav implements the protocol-provider side of the sync engine:
// the three-step calendar discovery handshake, the ICS document builder and
// the PUT/DELETE event transport. iCloud is the usual server, but anything
// speaking the protocol works.
package caldav

import (
	"log/slog"
	"net/http"

	"github.com/GeloSwift/Life-Planner-Code/internal/models"
	"github.com/GeloSwift/Life-Planner-Code/internal/transport"
)

// DefaultServerURL is Apple's CalDAV endpoint.
const DefaultServerURL = "https://caldav.icloud.com/"

// Service performs CalDAV operations against one server. It carries no
// per-user state: every call takes the user's calendar link, so a single
// Service serves all users.
type Service struct {
	serverURL string
	logger    *slog.Logger
}

// NewService creates a CalDAV service for the given server URL,
// DefaultServerURL when empty.
func NewService(logger *slog.Logger, serverURL string) *Service {
	if serverURL == "" {
		serverURL = DefaultServerURL
	}
	return &Service{serverURL: serverURL, logger: logger}
}

func (s *Service) httpClient(link models.AppleCalendarLink) *http.Client {
	return transport.NewBasicAuthClient(link.AppleID, link.AppPassword, s.logger)
}
