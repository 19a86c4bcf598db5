package httpapi

import (
	"net/http"

	"github.com/GeloSwift/Life-Planner-Code/internal/models"
)

type appleConnectRequest struct {
	AppleID     string `json:"apple_id"`
	AppPassword string `json:"app_password"`
	CalendarURL string `json:"calendar_url,omitempty"`
}

// appleConnect verifies the iCloud credentials by running discovery, picks
// the requested or first discovered calendar collection and stores the
// link. The password must be an app-specific one; discovery failing is the
// user's signal that it is not.
func (h *Handler) appleConnect(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req appleConnectRequest
	if err := readJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.AppleID == "" || req.AppPassword == "" {
		h.fail(w, r, &apiError{status: http.StatusBadRequest, msg: "apple_id and app_password are required"})
		return
	}

	link := models.AppleCalendarLink{AppleID: req.AppleID, AppPassword: req.AppPassword}
	disc, err := h.caldav.Discover(r.Context(), link)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	collectionURL := req.CalendarURL
	if collectionURL == "" && len(disc.Calendars) > 0 {
		collectionURL = disc.Calendars[0].Href
	}
	if collectionURL == "" {
		h.fail(w, r, &apiError{status: http.StatusBadRequest, msg: "no calendar found in the account"})
		return
	}

	user.Apple = models.AppleCalendarLink{
		Connected:     true,
		AppleID:       req.AppleID,
		AppPassword:   req.AppPassword,
		CollectionURL: collectionURL,
	}
	if err := h.store.SaveUser(r.Context(), user); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("apple calendar connected", "userID", user.ID, "calendars", len(disc.Calendars))
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Apple Calendar connected",
		"calendar_url": collectionURL,
		"calendars":    disc.Calendars,
	})
}

// appleCalendars re-runs discovery with the stored credentials and lists
// the account's calendar collections.
func (h *Handler) appleCalendars(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !user.Apple.Connected || user.Apple.AppleID == "" {
		h.fail(w, r, &apiError{status: http.StatusBadRequest, msg: "Apple Calendar is not connected"})
		return
	}
	disc, err := h.caldav.Discover(r.Context(), user.Apple)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"calendars": disc.Calendars})
}

func (h *Handler) appleStatus(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := map[string]any{"connected": user.Apple.Ready()}
	if user.Apple.Ready() {
		resp["apple_id"] = user.Apple.AppleID
		resp["calendar_url"] = user.Apple.CollectionURL
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) appleDisconnect(w http.ResponseWriter, r *http.Request) {
	user, err := h.currentUser(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	user.Apple = models.AppleCalendarLink{}
	if err := h.store.SaveUser(r.Context(), user); err != nil {
		h.fail(w, r, err)
		return
	}
	h.logger.Info("apple calendar disconnected", "userID", user.ID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Apple Calendar disconnected"})
}
