// Package recurrence translates the planner's stored repeat rules into
// RFC 5545 recurrence rules and expands them into concrete occurrence
// times.
package recurrence

import (
	"strconv"
	"strings"

	"github.com/GeloSwift/Life-Planner-Code/internal/models"
)

// weekdayCodes maps English and French day names (lowercased) to RFC 5545
// weekday codes. Both languages occur in stored data.
var weekdayCodes = map[string]string{
	"monday": "MO", "lundi": "MO",
	"tuesday": "TU", "mardi": "TU",
	"wednesday": "WE", "mercredi": "WE",
	"thursday": "TH", "jeudi": "TH",
	"friday": "FR", "vendredi": "FR",
	"saturday": "SA", "samedi": "SA",
	"sunday": "SU", "dimanche": "SU",
}

// Translate renders a stored recurrence into an RFC 5545 recur value such
// as "FREQ=WEEKLY;BYDAY=MO,WE". It is pure and total: malformed data
// entries are dropped silently and an empty remainder falls back to the
// unscoped rule for the kind. The empty string means "not recurring".
func Translate(r *models.Recurrence) string {
	if r == nil {
		return ""
	}
	switch r.Kind {
	case models.RecurrenceDaily:
		return "FREQ=DAILY"
	case models.RecurrenceWeekly:
		if days := weekdays(r.Data); len(days) > 0 {
			return "FREQ=WEEKLY;BYDAY=" + strings.Join(days, ",")
		}
		return "FREQ=WEEKLY"
	case models.RecurrenceMonthly:
		if days := monthDays(r.Data); len(days) > 0 {
			return "FREQ=MONTHLY;BYMONTHDAY=" + strings.Join(days, ",")
		}
		return "FREQ=MONTHLY"
	}
	return ""
}

// weekdays keeps the entries of data that name a weekday, preserving order
// and dropping duplicates.
func weekdays(data []any) []string {
	var out []string
	seen := make(map[string]bool)
	for _, entry := range data {
		name, ok := entry.(string)
		if !ok {
			continue
		}
		code, ok := weekdayCodes[strings.ToLower(strings.TrimSpace(name))]
		if !ok || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}

// monthDays keeps the entries of data that are days of month (1-31). JSON
// numbers arrive as float64; numeric strings are tolerated.
func monthDays(data []any) []string {
	var out []string
	seen := make(map[int]bool)
	for _, entry := range data {
		day, ok := dayOfMonth(entry)
		if !ok || day < 1 || day > 31 || seen[day] {
			continue
		}
		seen[day] = true
		out = append(out, strconv.Itoa(day))
	}
	return out
}

func dayOfMonth(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		day, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return day, true
	}
	return 0, false
}
