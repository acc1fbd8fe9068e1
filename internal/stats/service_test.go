package stats_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watertime/watertime/internal/api/models"
	"github.com/watertime/watertime/internal/hydration"
	"github.com/watertime/watertime/internal/intake"
	"github.com/watertime/watertime/internal/stats"
	"github.com/watertime/watertime/internal/user"
)

var now = time.Date(2026, 5, 4, 15, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*stats.Service, *intake.Service) {
	t.Helper()

	users := user.NewInMemoryRepository()
	require.NoError(t, users.Create(context.Background(), &user.User{ID: "usr_1", Goal: 2000, IsActive: true}))

	clock := func() time.Time { return now }
	intakes := intake.NewService(intake.ServiceConfig{
		Repo:     intake.NewInMemoryRepository(),
		Logger:   zerolog.Nop(),
		Location: time.UTC,
		Now:      clock,
	})
	svc := stats.NewService(stats.ServiceConfig{
		Users:    users,
		Intakes:  intakes,
		Location: time.UTC,
		Now:      clock,
	})
	return svc, intakes
}

func record(t *testing.T, intakes *intake.Service, amount int, at time.Time) {
	t.Helper()
	_, err := intakes.Record(context.Background(), "usr_1", intake.NewInput{Amount: amount, Timestamp: &at})
	require.NoError(t, err)
}

func TestWeekly_TwoDayScenario(t *testing.T) {
	svc, intakes := setup(t)
	d0 := time.Date(2026, 5, 3, 9, 0, 0, 0, time.UTC)
	d1 := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	record(t, intakes, 500, d0)
	record(t, intakes, 1200, d0.Add(3*time.Hour))
	record(t, intakes, 800, d1)

	start := time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)
	got, err := svc.Weekly(context.Background(), "usr_1", &start)
	require.NoError(t, err)

	want := &models.PeriodStats{
		Period: models.StatsPeriod{StartDate: "2026-05-03", EndDate: "2026-05-04", Days: 2},
		Goal:   2000,
		ChartData: []models.ChartPoint{
			{Date: "2026-05-03", Amount: 1700, Count: 2, Goal: 2000, Percentage: 85},
			{Date: "2026-05-04", Amount: 800, Count: 1, Goal: 2000, Percentage: 40},
		},
		Summary: models.PeriodTotals{
			TotalAmount:    2500,
			AvgDailyAmount: 1250,
			MaxAmount:      1700,
			MinAmount:      800,
			TotalIntakes:   3,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Weekly() mismatch (-want +got):\n%s", diff)
	}
}

func TestWeeklyMonthly_DefaultRanges(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	weekly, err := svc.Weekly(ctx, "usr_1", nil)
	require.NoError(t, err)
	assert.Equal(t, "2026-04-27", weekly.Period.StartDate)
	assert.Equal(t, "2026-05-04", weekly.Period.EndDate)
	assert.Len(t, weekly.ChartData, 8)

	monthly, err := svc.Monthly(ctx, "usr_1", nil)
	require.NoError(t, err)
	assert.Equal(t, "2026-04-04", monthly.Period.StartDate)
	assert.Len(t, monthly.ChartData, 31)
	assert.Zero(t, monthly.Summary.MinAmount)
}

func TestWeekly_StartAfterToday(t *testing.T) {
	svc, _ := setup(t)

	future := now.AddDate(0, 0, 2)
	_, err := svc.Weekly(context.Background(), "usr_1", &future)
	assert.ErrorIs(t, err, hydration.ErrInvalidRange)
}

func TestDaily_ClampsPercentage(t *testing.T) {
	svc, intakes := setup(t)
	record(t, intakes, 2000, now.Add(-2*time.Hour))
	record(t, intakes, 1000, now.Add(-time.Hour))
	record(t, intakes, 300, now.AddDate(0, 0, -1))

	got, err := svc.Daily(context.Background(), "usr_1", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-05-04", got.Date)
	assert.Equal(t, 3000, got.TotalAmount)
	assert.Equal(t, 100, got.Percentage)
	assert.Zero(t, got.Remaining)
	assert.Equal(t, 2, got.IntakeCount)
	require.Len(t, got.Intakes, 2)
	assert.Equal(t, 1000, got.Intakes[0].Amount, "newest first")

	start := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	weekly, err := svc.Weekly(context.Background(), "usr_1", &start)
	require.NoError(t, err)
	assert.Equal(t, 150, weekly.ChartData[0].Percentage)
}

func TestDaily_UnknownUser(t *testing.T) {
	svc, _ := setup(t)

	_, err := svc.Daily(context.Background(), "usr_missing", now)
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestHistory(t *testing.T) {
	svc, intakes := setup(t)
	record(t, intakes, 250, now.Add(-time.Hour))
	record(t, intakes, 250, now.Add(-2*time.Hour))
	record(t, intakes, 400, now.AddDate(0, 0, -3))
	record(t, intakes, 900, now.AddDate(0, 0, -40))

	got, err := svc.History(context.Background(), "usr_1", 0)
	require.NoError(t, err)
	assert.Equal(t, stats.DefaultDays, got.Days)
	assert.Equal(t, []models.HistoryDay{
		{Date: "2026-05-04", TotalAmount: 500, IntakeCount: 2},
		{Date: "2026-05-01", TotalAmount: 400, IntakeCount: 1},
	}, got.History)

	got, err = svc.History(context.Background(), "usr_1", 90)
	require.NoError(t, err)
	assert.Equal(t, stats.MaxDays, got.Days)
	assert.Len(t, got.History, 2)
}

func TestOverview(t *testing.T) {
	svc, intakes := setup(t)
	record(t, intakes, 2100, now.AddDate(0, 0, -1))
	record(t, intakes, 700, now.Add(-time.Hour))

	got, err := svc.Overview(context.Background(), "usr_1", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Period.Days)
	assert.Equal(t, "2026-04-27", got.Period.StartDate)
	assert.Equal(t, 2800, got.Overview.TotalAmount)
	assert.Equal(t, 400, got.Overview.AvgDailyAmount)
	assert.Equal(t, 2, got.Overview.TotalIntakes)
	assert.Equal(t, 1, got.Overview.DaysMetGoal)
	assert.Equal(t, 14, got.Overview.GoalCompletionRate)
	assert.Equal(t, models.TodayStats{TotalAmount: 700, Goal: 2000, Percentage: 35, Remaining: 1300}, got.Today)
}

func TestClampDays(t *testing.T) {
	assert.Equal(t, 7, stats.ClampDays(-1))
	assert.Equal(t, 14, stats.ClampDays(14))
	assert.Equal(t, 30, stats.ClampDays(31))
}

func TestParseDate(t *testing.T) {
	svc, _ := setup(t)

	got, err := svc.ParseDate("2026-02-28")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), got)

	_, err = svc.ParseDate("28/02/2026")
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}
