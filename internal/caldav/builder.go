package caldav

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/GeloSwift/Life-Planner-Code/internal/models"
	"github.com/GeloSwift/Life-Planner-Code/internal/recurrence"
)

const (
	productID       = "-//Life Planner//Workout Sessions//EN"
	summaryPrefix   = "🏋️ "
	sessionDuration = 90 * time.Minute
	calendarColor   = "#FF3B30"

	// localStamp is the wall-clock layout used for date-times carrying a
	// TZID parameter.
	localStamp = "20060102T150405"

	maxListedExercises = 10
)

// BuildEvent renders a session into a single-VEVENT VCALENDAR document.
// stamp becomes DTSTAMP, so rendering is deterministic for a fixed clock.
func BuildEvent(sess *models.Session, uid string, loc *time.Location, frontendURL string, stamp time.Time) *ical.Calendar {
	start := sess.ScheduledAt.In(loc)
	end := start.Add(sessionDuration)

	event := ical.NewComponent(ical.CompEvent)
	event.Props.SetText(ical.PropUID, uid)
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	setLocalTime(event, ical.PropDateTimeStart, start, loc)
	setLocalTime(event, ical.PropDateTimeEnd, end, loc)
	event.Props.SetText(ical.PropSummary, summaryPrefix+sess.Title)
	event.Props.SetText(ical.PropDescription, description(sess, frontendURL))
	if len(sess.ActivityLabels) > 0 {
		setRaw(event, "CATEGORIES", strings.Join(sess.ActivityLabels, ","))
	}
	setRaw(event, "X-APPLE-CALENDAR-COLOR", calendarColor)

	if rule := recurrence.Translate(sess.Recurrence); rule != "" {
		setRaw(event, ical.PropRecurrenceRule, rule)
		if exdate := exdateProp(sess, start, loc); exdate != nil {
			event.Props.Add(exdate)
		}
	}

	event.Children = append(event.Children, alarm())

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText("CALSCALE", "GREGORIAN")
	cal.Children = append(cal.Children, event)
	return cal
}

// setRaw sets a property whose value is already in wire form (dates, recur
// rules, comma-separated lists), bypassing text escaping.
func setRaw(comp *ical.Component, name, value string) {
	prop := ical.NewProp(name)
	prop.Value = value
	comp.Props.Set(prop)
}

// setLocalTime writes a date-time property as local wall-clock time with a
// TZID parameter, the form calendar servers expect for zoned events.
func setLocalTime(comp *ical.Component, name string, t time.Time, loc *time.Location) {
	prop := ical.NewProp(name)
	prop.Params.Set("TZID", loc.String())
	prop.Value = t.Format(localStamp)
	comp.Props.Set(prop)
}

// exdateProp renders the stored exception dates at the session's start
// clock time so they line up with the occurrences the RRULE generates.
// Unparseable entries are skipped.
func exdateProp(sess *models.Session, start time.Time, loc *time.Location) *ical.Prop {
	var stamps []string
	for _, date := range sess.RecurrenceExceptions {
		day, err := time.ParseInLocation(time.DateOnly, date, loc)
		if err != nil {
			continue
		}
		at := time.Date(day.Year(), day.Month(), day.Day(), start.Hour(), start.Minute(), start.Second(), 0, loc)
		stamps = append(stamps, at.Format(localStamp))
	}
	if len(stamps) == 0 {
		return nil
	}
	prop := ical.NewProp("EXDATE")
	prop.Params.Set("TZID", loc.String())
	prop.Value = strings.Join(stamps, ",")
	return prop
}

// alarm is the fixed 30-minutes-before display reminder.
func alarm() *ical.Component {
	va := ical.NewComponent("VALARM")
	va.Props.SetText("ACTION", "DISPLAY")
	va.Props.SetText("DESCRIPTION", "Reminder")
	trigger := ical.NewProp("TRIGGER")
	trigger.Value = "-PT30M"
	va.Props.Set(trigger)
	return va
}

func description(sess *models.Session, frontendURL string) string {
	var b strings.Builder
	if len(sess.ActivityLabels) > 0 {
		b.WriteString("Activities: ")
		b.WriteString(strings.Join(sess.ActivityLabels, ", "))
		b.WriteString("\n")
	}
	if len(sess.Exercises) > 0 {
		b.WriteString("\nWorkout plan:\n")
		for i, ex := range sess.Exercises {
			if i == maxListedExercises {
				fmt.Fprintf(&b, "... and %d more\n", len(sess.Exercises)-maxListedExercises)
				break
			}
			fmt.Fprintf(&b, "%d. %s - %dx%d", i+1, ex.Name, ex.Sets, ex.Reps)
			if ex.WeightKg > 0 {
				fmt.Fprintf(&b, " @ %.1fkg", ex.WeightKg)
			}
			b.WriteString("\n")
		}
	}
	fmt.Fprintf(&b, "\nLife Planner - Session #%d", sess.ID)
	if frontendURL != "" {
		fmt.Fprintf(&b, "\n%s/workout/sessions/%d", strings.TrimSuffix(frontendURL, "/"), sess.ID)
	}
	return b.String()
}
