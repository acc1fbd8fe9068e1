// Package reminder decides when threshold reminders and goal achievements
// are sent for a user's daily intake.
package reminder

import "time"

// Thresholds are the percentages of the daily goal that trigger a reminder.
var Thresholds = [...]float64{25, 50, 75}

const (
	// BandWidth is how far past a threshold a percentage may be and still fire.
	BandWidth = 5.0

	// Cooldown is the minimum gap between two reminders for one user.
	Cooldown = time.Hour
)

// ShouldSendReminder reports whether a reminder fires for todayPercentage.
// It fires when the percentage lies in [t, t+BandWidth) for some threshold t,
// is below 100, and no reminder was sent within the last Cooldown.
func ShouldSendReminder(todayPercentage float64, lastReminderSentAt *time.Time, now time.Time) bool {
	if todayPercentage >= 100 {
		return false
	}
	if lastReminderSentAt != nil && now.Sub(*lastReminderSentAt) < Cooldown {
		return false
	}
	for _, t := range Thresholds {
		if todayPercentage >= t && todayPercentage < t+BandWidth {
			return true
		}
	}
	return false
}
