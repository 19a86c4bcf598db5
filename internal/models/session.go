package models

import "time"

// SessionStatus is the lifecycle state of a workout session. Only planned
// sessions are pushed to external calendars.
type SessionStatus string

const (
	SessionPlanned   SessionStatus = "planned"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// RecurrenceKind enumerates the repeat patterns a session can carry.
type RecurrenceKind string

const (
	RecurrenceDaily   RecurrenceKind = "daily"
	RecurrenceWeekly  RecurrenceKind = "weekly"
	RecurrenceMonthly RecurrenceKind = "monthly"
)

// Recurrence is the stored repeat rule of a session. Data holds weekday
// names for weekly rules or day-of-month numbers for monthly rules. It is
// decoded straight from user-supplied JSON and may contain garbage; the
// translator degrades gracefully instead of erroring.
type Recurrence struct {
	Kind RecurrenceKind `json:"kind"`
	Data []any          `json:"data,omitempty"`
}

// Exercise is one line of a session's workout plan, used when rendering
// event descriptions.
type Exercise struct {
	Name     string  `json:"name"`
	Sets     int     `json:"sets"`
	Reps     int     `json:"reps"`
	WeightKg float64 `json:"weight_kg,omitempty"`
}

// Session is the view of a workout session the calendar engine works with.
// GoogleEventID and AppleEventUID are the per-provider external event
// references joining the session to its pushed calendar events; together
// with RecurrenceExceptions they are the only fields the engine ever writes
// back to storage.
type Session struct {
	ID                   int64         `json:"id"`
	UserID               int64         `json:"user_id"`
	Title                string        `json:"title"`
	Status               SessionStatus `json:"status"`
	ActivityLabels       []string      `json:"activity_labels,omitempty"`
	Exercises            []Exercise    `json:"exercises,omitempty"`
	ScheduledAt          *time.Time    `json:"scheduled_at,omitempty"`
	Recurrence           *Recurrence   `json:"recurrence,omitempty"`
	RecurrenceExceptions []string      `json:"recurrence_exceptions,omitempty"`
	GoogleEventID        string        `json:"google_calendar_event_id,omitempty"`
	AppleEventUID        string        `json:"apple_calendar_event_uid,omitempty"`
}

// Recurring reports whether the session repeats.
func (s *Session) Recurring() bool {
	return s.Recurrence != nil && s.Recurrence.Kind != ""
}

// Syncable reports whether the session belongs in external calendars: only
// planned sessions with a scheduled time are pushed.
func (s *Session) Syncable() bool {
	return s.Status == SessionPlanned && s.ScheduledAt != nil
}

// EventRef returns the stored external event reference for a provider.
func (s *Session) EventRef(p Provider) string {
	switch p {
	case ProviderGoogle:
		return s.GoogleEventID
	case ProviderApple:
		return s.AppleEventUID
	}
	return ""
}

// SetEventRef stores an external event reference for a provider.
func (s *Session) SetEventRef(p Provider, ref string) {
	switch p {
	case ProviderGoogle:
		s.GoogleEventID = ref
	case ProviderApple:
		s.AppleEventUID = ref
	}
}

// HasException reports whether the given ISO date is already excluded.
func (s *Session) HasException(date string) bool {
	for _, d := range s.RecurrenceExceptions {
		if d == date {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so store reads never alias engine mutations.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.ScheduledAt != nil {
		t := *s.ScheduledAt
		out.ScheduledAt = &t
	}
	if s.Recurrence != nil {
		r := Recurrence{Kind: s.Recurrence.Kind, Data: append([]any(nil), s.Recurrence.Data...)}
		out.Recurrence = &r
	}
	out.ActivityLabels = append([]string(nil), s.ActivityLabels...)
	out.Exercises = append([]Exercise(nil), s.Exercises...)
	out.RecurrenceExceptions = append([]string(nil), s.RecurrenceExceptions...)
	return &out
}
