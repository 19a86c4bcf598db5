package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/GeloSwift/Life-Planner-Code/internal/models"
)

// expansion horizon; sessions repeating less often than this are not a thing.
const horizonYears = 2

// Upcoming materializes the next count occurrence times of a session from
// the given instant, honoring its stored exception dates. Non-recurring
// sessions yield their scheduled time alone while it is still ahead.
func Upcoming(sess *models.Session, from time.Time, loc *time.Location, count int) ([]time.Time, error) {
	if sess.ScheduledAt == nil || count <= 0 {
		return nil, nil
	}
	start := sess.ScheduledAt.In(loc)
	if !sess.Recurring() {
		if start.Before(from) {
			return nil, nil
		}
		return []time.Time{start}, nil
	}

	opt, err := rrule.StrToROption(Translate(sess.Recurrence))
	if err != nil {
		return nil, fmt.Errorf("parse recurrence rule: %w", err)
	}
	opt.Dtstart = start
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("build recurrence rule: %w", err)
	}

	set := rrule.Set{}
	set.RRule(rule)
	for _, date := range sess.RecurrenceExceptions {
		day, err := time.ParseInLocation(time.DateOnly, date, loc)
		if err != nil {
			continue
		}
		set.ExDate(time.Date(day.Year(), day.Month(), day.Day(),
			start.Hour(), start.Minute(), start.Second(), 0, loc))
	}

	if from.Before(start) {
		from = start
	}
	occurrences := set.Between(from, from.AddDate(horizonYears, 0, 0), true)
	if len(occurrences) > count {
		occurrences = occurrences[:count]
	}
	return occurrences, nil
}
