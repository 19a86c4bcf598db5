package models

import "time"

// Provider identifies one of the two supported calendar backends.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)

// DiscoveredCalendar is one calendar collection found during CalDAV
// discovery. Href is always absolute by the time it leaves the discovery
// client, even when the server answered with a relative path.
type DiscoveredCalendar struct {
	Href        string `json:"href"`
	DisplayName string `json:"display_name"`
}

// InstanceStatus mirrors the Google per-occurrence status values.
type InstanceStatus string

const (
	InstanceConfirmed InstanceStatus = "confirmed"
	InstanceCancelled InstanceStatus = "cancelled"
)

// EventInstance is one materialized occurrence of a recurring external
// event, decoded at the transport boundary. OriginalStart is the occurrence
// the instance was generated for; AllDay marks date-only representations.
type EventInstance struct {
	Status        InstanceStatus
	OriginalStart time.Time
	AllDay        bool
}

// OriginalDate resolves the civil date (YYYY-MM-DD) of the instance's
// original occurrence in the given zone. All-day dates pass through without
// zone conversion.
func (i EventInstance) OriginalDate(loc *time.Location) string {
	if i.OriginalStart.IsZero() {
		return ""
	}
	if i.AllDay {
		return i.OriginalStart.Format(time.DateOnly)
	}
	return i.OriginalStart.In(loc).Format(time.DateOnly)
}

// SyncReport is the outcome of a batch sync run, returned verbatim by the
// batch endpoints.
type SyncReport struct {
	Synced int      `json:"synced"`
	Total  int      `json:"total"`
	Errors []string `json:"errors,omitempty"`
}
