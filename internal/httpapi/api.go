// Package httpapi exposes the calendar engine over HTTP: the provider
// connect flows, the sync endpoints and the session views that run the
// reconciliation pre-step. Handlers stay thin; everything interesting
// happens in the injected collaborators.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"

	"github.com/GeloSwift/Life-Planner-Code/internal/caldav"
	"github.com/GeloSwift/Life-Planner-Code/internal/google"
	"github.com/GeloSwift/Life-Planner-Code/internal/models"
	"github.com/GeloSwift/Life-Planner-Code/internal/store"
	"github.com/GeloSwift/Life-Planner-Code/internal/syncer"
)

// Engine is the slice of the sync engine the handlers drive.
type Engine interface {
	SyncSession(ctx context.Context, user *models.User, sess *models.Session, provider models.Provider) (string, error)
	SyncAll(ctx context.Context, user *models.User, sessions []*models.Session, provider models.Provider) models.SyncReport
	ReconcileAll(ctx context.Context, user *models.User, sessions []*models.Session) []*models.Session
	DeleteRemote(ctx context.Context, user *models.User, sess *models.Session)
}

// TokenExchanger is the OAuth surface the Google connect flow needs.
type TokenExchanger interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
}

// Discoverer is the CalDAV surface the Apple connect flow needs.
type Discoverer interface {
	Discover(ctx context.Context, link models.AppleCalendarLink) (*caldav.Discovery, error)
}

// UserResolver extracts the authenticated user's id from a request.
// Identity is owned elsewhere in the system; the server wires in whatever
// its auth middleware provides.
type UserResolver func(r *http.Request) (int64, error)

// HeaderUserID resolves the user from the X-User-ID header. It stands in
// for the real auth middleware in development and tests.
func HeaderUserID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("missing or invalid X-User-ID header")
	}
	return id, nil
}

// Handler serves the workout calendar API.
type Handler struct {
	logger *slog.Logger
	store  store.Store
	engine Engine
	tokens TokenExchanger
	caldav Discoverer
	states *stateStore
	userID UserResolver
}

// NewHandler wires the API surface. A nil resolver falls back to
// HeaderUserID.
func NewHandler(logger *slog.Logger, st store.Store, engine Engine, tokens TokenExchanger, dav Discoverer, resolver UserResolver) *Handler {
	if resolver == nil {
		resolver = HeaderUserID
	}
	return &Handler{
		logger: logger,
		store:  st,
		engine: engine,
		tokens: tokens,
		caldav: dav,
		states: newStateStore(),
		userID: resolver,
	}
}

// Routes builds the request mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /workout/calendar/google/connect", h.googleConnect)
	mux.HandleFunc("GET /workout/calendar/google/callback", h.googleCallback)
	mux.HandleFunc("GET /workout/calendar/google/status", h.googleStatus)
	mux.HandleFunc("DELETE /workout/calendar/google/disconnect", h.googleDisconnect)
	mux.HandleFunc("POST /workout/calendar/google/sync", h.syncAll(models.ProviderGoogle))
	mux.HandleFunc("POST /workout/calendar/google/sync/{sessionID}", h.syncOne(models.ProviderGoogle))

	mux.HandleFunc("POST /workout/calendar/apple/connect", h.appleConnect)
	mux.HandleFunc("GET /workout/calendar/apple/calendars", h.appleCalendars)
	mux.HandleFunc("GET /workout/calendar/apple/status", h.appleStatus)
	mux.HandleFunc("DELETE /workout/calendar/apple/disconnect", h.appleDisconnect)
	mux.HandleFunc("POST /workout/calendar/apple/sync", h.syncAll(models.ProviderApple))
	mux.HandleFunc("POST /workout/calendar/apple/sync/{sessionID}", h.syncOne(models.ProviderApple))

	mux.HandleFunc("GET /workout/sessions", h.listSessions)
	mux.HandleFunc("GET /workout/sessions/{id}/occurrences", h.sessionOccurrences)
	mux.HandleFunc("POST /workout/sessions/{id}/exclude", h.excludeOccurrence)
	mux.HandleFunc("DELETE /workout/sessions/{id}", h.deleteSession)

	return mux
}

// currentUser resolves and loads the request's user.
func (h *Handler) currentUser(r *http.Request) (*models.User, error) {
	id, err := h.userID(r)
	if err != nil {
		return nil, &apiError{status: http.StatusUnauthorized, msg: err.Error()}
	}
	user, err := h.store.GetUser(r.Context(), id)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, &apiError{status: http.StatusUnauthorized, msg: "unknown user"}
	}
	return user, err
}

// userSession loads a session and checks it belongs to the user. Foreign
// sessions answer 404, never 403: ids must not leak across accounts.
func (h *Handler) userSession(r *http.Request, user *models.User, pathVar string) (*models.Session, error) {
	id, err := strconv.ParseInt(r.PathValue(pathVar), 10, 64)
	if err != nil {
		return nil, &apiError{status: http.StatusBadRequest, msg: "invalid session id"}
	}
	sess, err := h.store.GetSession(r.Context(), id)
	if errors.Is(err, store.ErrSessionNotFound) {
		return nil, &apiError{status: http.StatusNotFound, msg: "session not found"}
	}
	if err != nil {
		return nil, err
	}
	if sess.UserID != user.ID {
		return nil, &apiError{status: http.StatusNotFound, msg: "session not found"}
	}
	return sess, nil
}

// apiError is an error carrying the HTTP status it should answer with.
type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string { return e.msg }

// fail maps an error to its HTTP answer. Credential failures become 401 so
// the frontend can prompt a reconnect; everything unclassified is a 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ae       *apiError
		exchange *google.AuthExchangeError
		refresh  *google.AuthRefreshError
		disc     *caldav.DiscoveryError
	)
	status := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case errors.As(err, &ae):
		status = ae.status
	case errors.As(err, &exchange), errors.As(err, &refresh):
		status = http.StatusUnauthorized
		msg = "calendar authorization expired, please reconnect"
	case errors.As(err, &disc):
		status = http.StatusBadGateway
		msg = "calendar server unreachable or rejected the request"
	case errors.Is(err, syncer.ErrNotConnected):
		status = http.StatusBadRequest
	case errors.Is(err, syncer.ErrSessionDeleted):
		status = http.StatusGone
		msg = "session was deleted in the external calendar"
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"detail": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &apiError{status: http.StatusBadRequest, msg: fmt.Sprintf("invalid request body: %v", err)}
	}
	return nil
}
