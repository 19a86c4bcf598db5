package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/GeloSwift/Life-Planner-Code/internal/models"
	"github.com/GeloSwift/Life-Planner-Code/internal/recurrence"
)

const (
	defaultOccurrenceCount = 10
	maxOccurrenceCount     = 100
)

// syncAll pushes every syncable session to the provider. The batch never
// fails as a whole: the report carries per-session error strings.
func (h *Handler) syncAll(provider models.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.currentUser(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if !h.linkReady(user, provider) {
			h.fail(w, r, &apiError{status: http.StatusBadRequest, msg: "calendar is not connected"})
			return
		}
		sessions, err := h.store.ListSessions(r.Context(), user.ID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		report := h.engine.SyncAll(r.Context(), user, sessions, provider)
		writeJSON(w, http.StatusOK, report)
	}
}

// syncOne pushes a single session; unlike the batch, failures surface as
// the request's failure since there are no siblings to protect.
func (h *Handler) syncOne(provider models.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.currentUser(r)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if !h.linkReady(user, provider) {
			h.fail(w, r, &apiError{status: http.StatusBadRequest, msg: "calendar is not connected"})
			return
		}
		sess, err := h.userSession(r, user, "sessionID")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if sess.ScheduledAt == nil {
			h.fail(w, r, &apiError{status: http.StatusBadRequest, msg: "session has no scheduled time"})
			return
		}
		ref, err := h.engine.SyncSession(r.Context(), user, sess, provider)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "event_ref": ref})
	}
}

func (h *Handler) linkReady(user *models.User, provider models.Provider) bool {
	switch provider {
	case models.ProviderGoogle:
		return user.Google.Ready()
	case models.ProviderApple:
		return user.Apple.Ready()
	}
	return false
}

// listSessions returns the user's sessions after the reconciliation
// pre-step: externally cancelled occurrences land in the exception lists
// and externally deleted series disappear from the response.
func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sessions, err := h.store.ListSessions(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sessions = h.engine.ReconcileAll(r.Context(), user, sessions)
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// sessionOccurrences previews the session's upcoming occurrence times,
// exception dates excluded. Query: from (RFC 3339, default now) and count.
func (h *Handler) sessionOccurrences(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sess, err := h.userSession(r, user, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	from := time.Now()
	if v := r.URL.Query().Get("from"); v != "" {
		from, err = time.Parse(time.RFC3339, v)
		if err != nil {
			h.fail(w, r, &apiError{status: http.StatusBadRequest, msg: "from must be an RFC 3339 timestamp"})
			return
		}
	}
	count := defaultOccurrenceCount
	if v := r.URL.Query().Get("count"); v != "" {
		count, err = strconv.Atoi(v)
		if err != nil || count < 1 {
			h.fail(w, r, &apiError{status: http.StatusBadRequest, msg: "count must be a positive integer"})
			return
		}
		if count > maxOccurrenceCount {
			count = maxOccurrenceCount
		}
	}

	times, err := recurrence.Upcoming(sess, from, user.Location(), count)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = t.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, map[string]any{"occurrences": out})
}

// excludeOccurrence records a user-initiated exception date, the manual
// twin of what reconciliation does for cancellations made in the external
// calendar. The union is monotonic; excluding the same date twice is a
// no-op.
func (h *Handler) excludeOccurrence(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sess, err := h.userSession(r, user, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req struct {
		Date string `json:"date"`
	}
	if err := readJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if _, err := time.Parse(time.DateOnly, req.Date); err != nil {
		h.fail(w, r, &apiError{status: http.StatusBadRequest, msg: "date must be YYYY-MM-DD"})
		return
	}
	added, err := h.store.AddExceptions(r.Context(), sess.ID, []string{req.Date})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "added": added})
}

// deleteSession removes the session and, best effort, its events from
// every linked provider.
func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sess, err := h.userSession(r, user, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.engine.DeleteRemote(r.Context(), user, sess)
	if err := h.store.DeleteSession(r.Context(), sess.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("session deleted", "sessionID", sess.ID, "userID", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
