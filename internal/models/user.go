package models

import "time"

// DefaultTimezone is used when a user has no usable timezone configured.
const DefaultTimezone = "Europe/Paris"

// GoogleCalendarLink is the credential bundle for the Google calendar
// provider: a long-lived OAuth refresh token obtained by the connect flow.
type GoogleCalendarLink struct {
	Connected    bool   `json:"connected"`
	RefreshToken string `json:"-"`
}

// Ready reports whether the link can be used for API calls.
func (l GoogleCalendarLink) Ready() bool {
	return l.Connected && l.RefreshToken != ""
}

// AppleCalendarLink is the credential bundle for the CalDAV provider: the
// Apple ID, an app-specific password and the calendar collection URL chosen
// at connect time.
type AppleCalendarLink struct {
	Connected     bool   `json:"connected"`
	AppleID       string `json:"apple_id,omitempty"`
	AppPassword   string `json:"-"`
	CollectionURL string `json:"calendar_url,omitempty"`
}

// Ready reports whether the link can be used for API calls.
func (l AppleCalendarLink) Ready() bool {
	return l.Connected && l.AppleID != "" && l.AppPassword != "" && l.CollectionURL != ""
}

// User carries the fields the calendar engine needs from the user record.
// Identity and credential persistence are owned elsewhere; the typed links
// above are the engine's only view of stored calendar credentials.
type User struct {
	ID       int64              `json:"id"`
	Email    string             `json:"email"`
	Timezone string             `json:"timezone,omitempty"`
	Google   GoogleCalendarLink `json:"google_calendar"`
	Apple    AppleCalendarLink  `json:"apple_calendar"`
}

// Location resolves the user's configured timezone, falling back to the
// planner default when unset or unknown.
func (u *User) Location() *time.Location {
	if u != nil && u.Timezone != "" {
		if loc, err := time.LoadLocation(u.Timezone); err == nil {
			return loc
		}
	}
	if loc, err := time.LoadLocation(DefaultTimezone); err == nil {
		return loc
	}
	return time.UTC
}
