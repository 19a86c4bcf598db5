package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// stateTTL bounds how long a started connect flow stays valid.
const stateTTL = 10 * time.Minute

// stateStore holds the outstanding OAuth state nonces. States are single
// use and expire: the callback arrives on a fresh browser redirect, so
// nothing but this set ties it back to the user who started the flow.
type stateStore struct {
	mu      sync.Mutex
	pending map[string]time.Time
	now     func() time.Time
}

func newStateStore() *stateStore {
	return &stateStore{pending: make(map[string]time.Time), now: time.Now}
}

// issue mints a state bound to the user: "{userID}:{nonce}".
func (s *stateStore) issue(userID int64) string {
	state := fmt.Sprintf("%d:%s", userID, uuid.NewString())
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for st, deadline := range s.pending {
		if deadline.Before(now) {
			delete(s.pending, st)
		}
	}
	s.pending[state] = now.Add(stateTTL)
	return state
}

// consume validates a returned state and yields the user it was issued
// for. A state works exactly once.
func (s *stateStore) consume(state string) (int64, bool) {
	s.mu.Lock()
	deadline, ok := s.pending[state]
	delete(s.pending, state)
	s.mu.Unlock()
	if !ok || deadline.Before(s.now()) {
		return 0, false
	}
	userID, err := strconv.ParseInt(state[:strings.IndexByte(state, ':')], 10, 64)
	if err != nil || userID <= 0 {
		return 0, false
	}
	return userID, true
}

// googleConnect starts the OAuth flow: the frontend sends the user to the
// returned consent URL.
func (h *Handler) googleConnect(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	state := h.states.issue(user.ID)
	writeJSON(w, http.StatusOK, map[string]string{
		"auth_url": h.tokens.AuthURL(state),
		"state":    state,
	})
}

// googleCallback finishes the flow: the authorization code is exchanged
// and the refresh token stored on the user. The provider only issues a
// refresh token on consent, so its absence is answered as a retryable 400.
func (h *Handler) googleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		h.fail(w, r, &apiError{status: http.StatusBadRequest, msg: "code and state are required"})
		return
	}
	userID, ok := h.states.consume(state)
	if !ok {
		h.fail(w, r, &apiError{status: http.StatusBadRequest, msg: "invalid or expired state"})
		return
	}
	user, err := h.store.GetUser(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	tok, err := h.tokens.ExchangeCode(r.Context(), code)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if tok.RefreshToken == "" {
		h.fail(w, r, &apiError{status: http.StatusBadRequest, msg: "no refresh token granted, please retry the connection"})
		return
	}

	user.Google.RefreshToken = tok.RefreshToken
	user.Google.Connected = true
	if err := h.store.SaveUser(r.Context(), user); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("google calendar connected", "userID", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Google Calendar connected"})
}

func (h *Handler) googleStatus(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"connected": user.Google.Ready()})
}

func (h *Handler) googleDisconnect(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	user.Google.RefreshToken = ""
	user.Google.Connected = false
	if err := h.store.SaveUser(r.Context(), user); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("google calendar disconnected", "userID", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Google Calendar disconnected"})
}
