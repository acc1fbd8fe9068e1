package reminder_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/watertime/watertime/internal/reminder"
)

func TestShouldSendReminder(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-30 * time.Minute)
	old := now.Add(-time.Hour)

	tests := []struct {
		name string
		pct  float64
		last *time.Time
		want bool
	}{
		{"below first threshold", 24.9, nil, false},
		{"at threshold", 25, nil, true},
		{"inside band", 29.99, nil, true},
		{"band upper bound excluded", 30, nil, false},
		{"between bands", 40, nil, false},
		{"second threshold", 52, nil, true},
		{"third threshold", 77.5, nil, true},
		{"past third band", 80, nil, false},
		{"goal reached", 100, nil, false},
		{"over goal", 125, nil, false},
		{"within cooldown", 50, &recent, false},
		{"cooldown elapsed exactly", 50, &old, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reminder.ShouldSendReminder(tt.pct, tt.last, now))
		})
	}
}
