// Package transport holds the HTTP plumbing shared by the calendar provider
// clients: the basic-auth round-tripper used by the CalDAV client and the
// error type carrying provider rejections.
package transport

import (
	"log/slog"
	"net/http"
	"time"
)

const (
	userAgent      = "lifeplanner/1.0"
	requestTimeout = 30 * time.Second
)

// BasicAuth adds basic-auth credentials and the client User-Agent to every
// request. The Google client authenticates with bearer tokens instead and
// never goes through here.
type BasicAuth struct {
	Username string
	Password string
	Logger   *slog.Logger
	Base     http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *BasicAuth) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", userAgent)

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.Logger != nil {
		t.Logger.Debug("caldav request", "method", req.Method, "url", req.URL.String())
	}
	resp, err := base.RoundTrip(req)
	if err == nil && t.Logger != nil {
		t.Logger.Debug("caldav response", "status", resp.StatusCode, "url", req.URL.String())
	}
	return resp, err
}

// NewBasicAuthClient builds an HTTP client wired with basic auth and a
// request timeout suitable for synchronous calendar calls.
func NewBasicAuthClient(username, password string, logger *slog.Logger) *http.Client {
	return &http.Client{
		Timeout:   requestTimeout,
		Transport: &BasicAuth{Username: username, Password: password, Logger: logger},
	}
}
