package recurrence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"

	"github.com/GeloSwift/Life-Planner-Code/internal/models"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		rec  *models.Recurrence
		want string
	}{
		{"nil rule", nil, ""},
		{"unknown kind", &models.Recurrence{Kind: "yearly"}, ""},
		{"daily", &models.Recurrence{Kind: models.RecurrenceDaily}, "FREQ=DAILY"},
		{
			"weekly monday wednesday",
			&models.Recurrence{Kind: models.RecurrenceWeekly, Data: []any{"monday", "wednesday"}},
			"FREQ=WEEKLY;BYDAY=MO,WE",
		},
		{
			"weekly french day names",
			&models.Recurrence{Kind: models.RecurrenceWeekly, Data: []any{"Lundi", "MERCREDI"}},
			"FREQ=WEEKLY;BYDAY=MO,WE",
		},
		{
			"weekly mixed case",
			&models.Recurrence{Kind: models.RecurrenceWeekly, Data: []any{"Friday", " sunday "}},
			"FREQ=WEEKLY;BYDAY=FR,SU",
		},
		{
			"weekly duplicates collapsed",
			&models.Recurrence{Kind: models.RecurrenceWeekly, Data: []any{"monday", "lundi"}},
			"FREQ=WEEKLY;BYDAY=MO",
		},
		{
			"weekly unparseable data falls back to unscoped",
			&models.Recurrence{Kind: models.RecurrenceWeekly, Data: []any{"noday", 3.0}},
			"FREQ=WEEKLY",
		},
		{
			"weekly no data",
			&models.Recurrence{Kind: models.RecurrenceWeekly},
			"FREQ=WEEKLY",
		},
		{
			"monthly",
			&models.Recurrence{Kind: models.RecurrenceMonthly, Data: []any{float64(5), float64(20)}},
			"FREQ=MONTHLY;BYMONTHDAY=5,20",
		},
		{
			"monthly drops invalid entries",
			&models.Recurrence{Kind: models.RecurrenceMonthly, Data: []any{float64(5), "abc", float64(40)}},
			"FREQ=MONTHLY;BYMONTHDAY=5",
		},
		{
			"monthly numeric strings tolerated",
			&models.Recurrence{Kind: models.RecurrenceMonthly, Data: []any{"12"}},
			"FREQ=MONTHLY;BYMONTHDAY=12",
		},
		{
			"monthly empty after filtering",
			&models.Recurrence{Kind: models.RecurrenceMonthly, Data: []any{"abc", float64(0), float64(32)}},
			"FREQ=MONTHLY",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Translate(tt.rec))
		})
	}
}

func TestTranslateTotalForValidKinds(t *testing.T) {
	garbage := []any{"", "xyz", -3.0, float64(99), 5.5, struct{}{}}
	kinds := []models.RecurrenceKind{
		models.RecurrenceDaily,
		models.RecurrenceWeekly,
		models.RecurrenceMonthly,
	}
	for _, kind := range kinds {
		got := Translate(&models.Recurrence{Kind: kind, Data: garbage})
		assert.NotEmpty(t, got, "kind %s must still produce a rule", kind)
	}
}

func TestTranslateOutputParsesAsRRule(t *testing.T) {
	rec := &models.Recurrence{Kind: models.RecurrenceWeekly, Data: []any{"monday", "wednesday"}}
	opt, err := rrule.StrToROption(Translate(rec))
	require.NoError(t, err)
	assert.Equal(t, rrule.WEEKLY, opt.Freq)
	assert.Equal(t, []rrule.Weekday{rrule.MO, rrule.WE}, opt.Byweekday)
}
