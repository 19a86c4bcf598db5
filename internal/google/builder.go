package google

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/GeloSwift/Life-Planner-Code/internal/models"
	"github.com/GeloSwift/Life-Planner-Code/internal/recurrence"
)

const (
	summaryPrefix = "🏋️ "
	// Sessions carry no end time; the calendar block defaults to 90 minutes.
	sessionDuration = 90 * time.Minute
	reminderMinutes = 30
)

// BuildEvent renders a session into the Google event body. Deterministic:
// the same session yields the same body.
func BuildEvent(sess *models.Session, loc *time.Location, frontendURL string) *calendar.Event {
	start := sess.ScheduledAt.In(loc)
	end := start.Add(sessionDuration)

	ev := &calendar.Event{
		Summary:     summaryPrefix + sess.Title,
		Description: description(sess, frontendURL),
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: loc.String(),
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
			TimeZone: loc.String(),
		},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "popup", Minutes: reminderMinutes},
			},
			// UseDefault must serialize even though it is false.
			ForceSendFields: []string{"UseDefault"},
		},
	}

	if rule := recurrence.Translate(sess.Recurrence); rule != "" {
		ev.Recurrence = []string{"RRULE:" + rule}
		if ex := exdateLine(sess, start, loc); ex != "" {
			ev.Recurrence = append(ev.Recurrence, ex)
		}
	}
	return ev
}

// exdateLine renders the stored exception dates at the session's start
// clock time, the form the provider expects for excluded occurrences.
func exdateLine(sess *models.Session, start time.Time, loc *time.Location) string {
	var stamps []string
	for _, date := range sess.RecurrenceExceptions {
		day, err := time.ParseInLocation(time.DateOnly, date, loc)
		if err != nil {
			continue
		}
		at := time.Date(day.Year(), day.Month(), day.Day(),
			start.Hour(), start.Minute(), start.Second(), 0, loc)
		stamps = append(stamps, at.Format("20060102T150405"))
	}
	if len(stamps) == 0 {
		return ""
	}
	return fmt.Sprintf("EXDATE;TZID=%s:%s", loc.String(), strings.Join(stamps, ","))
}

// description builds the human-readable body: the session's activity labels
// and a deep link back into the planner.
func description(sess *models.Session, frontendURL string) string {
	var b strings.Builder
	if len(sess.ActivityLabels) > 0 {
		b.WriteString("Activities: ")
		b.WriteString(strings.Join(sess.ActivityLabels, ", "))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Life Planner - Session #%d", sess.ID)
	if frontendURL != "" {
		fmt.Fprintf(&b, "\n%s/workout/sessions/%d", strings.TrimSuffix(frontendURL, "/"), sess.ID)
	}
	return b.String()
}
