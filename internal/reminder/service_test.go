package reminder_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watertime/watertime/internal/intake"
	"github.com/watertime/watertime/internal/notification"
	"github.com/watertime/watertime/internal/reminder"
	"github.com/watertime/watertime/internal/user"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

type fixture struct {
	clock         *clock
	users         *user.InMemoryRepository
	intakes       *intake.Service
	notifications *notification.Service
	reminders     *reminder.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	c := &clock{t: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	users := user.NewInMemoryRepository()
	require.NoError(t, users.Create(context.Background(), &user.User{
		ID:       "usr_1",
		Email:    "a@example.com",
		Goal:     2000,
		IsActive: true,
	}))

	intakes := intake.NewService(intake.ServiceConfig{
		Repo:     intake.NewInMemoryRepository(),
		Logger:   zerolog.Nop(),
		Location: time.UTC,
		Now:      c.now,
	})
	notifications := notification.NewService(notification.ServiceConfig{
		Repo:   notification.NewInMemoryRepository(),
		Logger: zerolog.Nop(),
		Now:    c.now,
	})
	reminders := reminder.NewService(reminder.ServiceConfig{
		Users:         users,
		Intakes:       intakes,
		Notifications: notifications,
		Logger:        zerolog.Nop(),
		Location:      time.UTC,
		Now:           c.now,
	})

	return &fixture{clock: c, users: users, intakes: intakes, notifications: notifications, reminders: reminders}
}

func (f *fixture) drink(t *testing.T, amount int) reminder.Outcome {
	t.Helper()
	ctx := context.Background()
	_, err := f.intakes.Record(ctx, "usr_1", intake.NewInput{Amount: amount})
	require.NoError(t, err)
	out, err := f.reminders.Evaluate(ctx, "usr_1")
	require.NoError(t, err)
	return out
}

func (f *fixture) count(t *testing.T, typ notification.Type) int {
	t.Helper()
	list, err := f.notifications.List(context.Background(), "usr_1", notification.MaxListLimit)
	require.NoError(t, err)
	n := 0
	for _, item := range list.Notifications {
		if string(item.Type) == string(typ) {
			n++
		}
	}
	return n
}

func TestEvaluate_OneReminderPerBandPerHour(t *testing.T) {
	f := newFixture(t)

	out := f.drink(t, 480)
	assert.InDelta(t, 24.0, out.Percentage, 0.001)
	assert.False(t, out.ReminderSent)

	f.clock.t = f.clock.t.Add(10 * time.Minute)
	out = f.drink(t, 40)
	assert.InDelta(t, 26.0, out.Percentage, 0.001)
	assert.True(t, out.ReminderSent)

	f.clock.t = f.clock.t.Add(10 * time.Minute)
	out = f.drink(t, 20)
	assert.InDelta(t, 27.0, out.Percentage, 0.001)
	assert.False(t, out.ReminderSent)

	assert.Equal(t, 1, f.count(t, notification.TypeReminder))
}

func TestEvaluate_NextBandAfterCooldown(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.drink(t, 500).ReminderSent)

	f.clock.t = f.clock.t.Add(30 * time.Minute)
	assert.False(t, f.drink(t, 500).ReminderSent, "50% inside cooldown")

	f.clock.t = f.clock.t.Add(31 * time.Minute)
	assert.True(t, f.drink(t, 20).ReminderSent, "51% after cooldown")

	assert.Equal(t, 2, f.count(t, notification.TypeReminder))
}

func TestEvaluate_AchievementOncePerDay(t *testing.T) {
	f := newFixture(t)

	out := f.drink(t, 2000)
	assert.False(t, out.ReminderSent)
	assert.True(t, out.AchievementSent)

	f.clock.t = f.clock.t.Add(2 * time.Hour)
	out = f.drink(t, 250)
	assert.False(t, out.AchievementSent)

	assert.Equal(t, 1, f.count(t, notification.TypeAchievement))

	f.clock.t = f.clock.t.Add(24 * time.Hour)
	out = f.drink(t, 2000)
	assert.True(t, out.AchievementSent)
}

func TestEvaluate_SkipsUnknownAndInactiveUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.reminders.Evaluate(ctx, "usr_missing")
	require.NoError(t, err)
	assert.True(t, out.Skipped)

	u, err := f.users.Get(ctx, "usr_1")
	require.NoError(t, err)
	u.IsActive = false
	require.NoError(t, f.users.Update(ctx, u))

	_, err = f.intakes.Record(ctx, "usr_1", intake.NewInput{Amount: 500})
	require.NoError(t, err)
	out, err = f.reminders.Evaluate(ctx, "usr_1")
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Zero(t, f.count(t, notification.TypeReminder))
}

func TestIntakeRecorded_EvaluatesAsObserver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var observer intake.Observer = f.reminders
	_, err := f.intakes.Record(ctx, "usr_1", intake.NewInput{Amount: 1000})
	require.NoError(t, err)
	require.NoError(t, observer.IntakeRecorded(ctx, "usr_1"))

	assert.Equal(t, 1, f.count(t, notification.TypeReminder))
}
