// Package stats serves daily, history and period statistics by loading a
// user's intakes and goal and running them through the hydration engine.
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/watertime/watertime/internal/api/models"
	"github.com/watertime/watertime/internal/hydration"
	"github.com/watertime/watertime/internal/intake"
	"github.com/watertime/watertime/internal/user"
)

// Window limits for history and overview, in days.
const (
	DefaultDays = 7
	MaxDays     = 30
)

// Default lookback of the period endpoints when no start date is given.
const (
	WeeklyLookback  = 7
	MonthlyLookback = 30
)

// UserStore loads users.
type UserStore interface {
	Get(ctx context.Context, userID string) (*user.User, error)
}

// IntakeLister lists intakes in [from, to).
type IntakeLister interface {
	ListRange(ctx context.Context, userID string, from, to time.Time) ([]*intake.Intake, error)
}

// ServiceConfig holds configuration for the stats service.
type ServiceConfig struct {
	Users    UserStore
	Intakes  IntakeLister
	Location *time.Location
	Now      func() time.Time
}

// Service computes statistics.
type Service struct {
	users   UserStore
	intakes IntakeLister
	loc     *time.Location
	now     func() time.Time
}

// NewService creates a new stats service.
func NewService(cfg ServiceConfig) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{users: cfg.Users, intakes: cfg.Intakes, loc: loc, now: now}
}

// ClampDays applies the default and maximum window.
func ClampDays(days int) int {
	if days <= 0 {
		return DefaultDays
	}
	return min(days, MaxDays)
}

// ParseDate parses a YYYY-MM-DD date as local midnight.
func (s *Service) ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(hydration.DateLayout, value, s.loc)
	if err != nil {
		return time.Time{}, models.NewValidationError("date", "must be formatted as YYYY-MM-DD", models.CodeInvalid)
	}
	return t, nil
}

// Today returns local midnight of the current day.
func (s *Service) Today() time.Time {
	return hydration.StartOfDay(s.now().In(s.loc))
}

// Daily returns the summary and intakes of one calendar day.
func (s *Service) Daily(ctx context.Context, userID string, date time.Time) (*models.DailyIntake, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	day := hydration.StartOfDay(date.In(s.loc))
	items, err := s.intakes.ListRange(ctx, userID, day, hydration.NextDay(day))
	if err != nil {
		return nil, err
	}

	summary, err := hydration.ComputeDailySummary(intake.Records(items), u.Goal)
	if err != nil {
		return nil, fmt.Errorf("computing daily summary: %w", err)
	}

	out := &models.DailyIntake{
		Date:        day.Format(hydration.DateLayout),
		TotalAmount: summary.TotalAmount,
		Goal:        summary.Goal,
		Percentage:  summary.Percentage,
		Remaining:   summary.Remaining,
		IntakeCount: summary.IntakeCount,
		Intakes:     make([]models.Intake, 0, len(items)),
	}
	for _, in := range items {
		out.Intakes = append(out.Intakes, intake.ToAPI(in))
	}
	return out, nil
}

// History returns per-day totals for the trailing window, newest first.
// Days without intakes are omitted.
func (s *Service) History(ctx context.Context, userID string, days int) (*models.IntakeHistory, error) {
	days = ClampDays(days)
	today := s.Today()
	items, err := s.intakes.ListRange(ctx, userID, today.AddDate(0, 0, -days), hydration.NextDay(today))
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]*models.HistoryDay)
	for _, in := range items {
		key := in.Timestamp.In(s.loc).Format(hydration.DateLayout)
		d, ok := byDate[key]
		if !ok {
			d = &models.HistoryDay{Date: key}
			byDate[key] = d
		}
		d.TotalAmount += in.Amount
		d.IntakeCount++
	}

	history := make([]models.HistoryDay, 0, len(byDate))
	for _, d := range byDate {
		history = append(history, *d)
	}
	sort.Slice(history, func(i, j int) bool { return history[i].Date > history[j].Date })

	return &models.IntakeHistory{Days: days, History: history}, nil
}

// Overview summarises the trailing window and today's progress.
func (s *Service) Overview(ctx context.Context, userID string, days int) (*models.UserStats, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	days = ClampDays(days)
	today := s.Today()
	start := today.AddDate(0, 0, -days)
	items, err := s.intakes.ListRange(ctx, userID, start, hydration.NextDay(today))
	if err != nil {
		return nil, err
	}

	overview, err := hydration.ComputeOverview(intake.Records(items), u.Goal, days, s.loc)
	if err != nil {
		return nil, fmt.Errorf("computing overview: %w", err)
	}

	var todays []hydration.Record
	for _, in := range items {
		if !in.Timestamp.Before(today) {
			todays = append(todays, hydration.Record{Amount: in.Amount, At: in.Timestamp})
		}
	}
	daily, err := hydration.ComputeDailySummary(todays, u.Goal)
	if err != nil {
		return nil, fmt.Errorf("computing today: %w", err)
	}

	return &models.UserStats{
		Period: models.StatsPeriod{
			StartDate: start.Format(hydration.DateLayout),
			EndDate:   today.Format(hydration.DateLayout),
			Days:      days,
		},
		Goal: u.Goal,
		Overview: models.StatsOverview{
			TotalAmount:        overview.TotalAmount,
			AvgDailyAmount:     overview.AvgDailyAmount,
			TotalIntakes:       overview.TotalIntakes,
			DaysMetGoal:        overview.DaysMetGoal,
			GoalCompletionRate: overview.GoalCompletionRate,
		},
		Today: models.TodayStats{
			TotalAmount: daily.TotalAmount,
			Goal:        daily.Goal,
			Percentage:  daily.Percentage,
			Remaining:   daily.Remaining,
		},
	}, nil
}

// Weekly returns the period summary from startDate (default seven days
// ago) through today.
func (s *Service) Weekly(ctx context.Context, userID string, startDate *time.Time) (*models.PeriodStats, error) {
	return s.period(ctx, userID, startDate, WeeklyLookback)
}

// Monthly returns the period summary from startDate (default thirty days
// ago) through today.
func (s *Service) Monthly(ctx context.Context, userID string, startDate *time.Time) (*models.PeriodStats, error) {
	return s.period(ctx, userID, startDate, MonthlyLookback)
}

func (s *Service) period(ctx context.Context, userID string, startDate *time.Time, lookback int) (*models.PeriodStats, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	start := today.AddDate(0, 0, -lookback)
	if startDate != nil {
		start = hydration.StartOfDay(startDate.In(s.loc))
	}
	if start.After(today) {
		return nil, hydration.ErrInvalidRange
	}

	items, err := s.intakes.ListRange(ctx, userID, start, hydration.NextDay(today))
	if err != nil {
		return nil, err
	}

	summary, err := hydration.ComputePeriodSummary(intake.Records(items), u.Goal, start, today)
	if err != nil {
		return nil, fmt.Errorf("computing period summary: %w", err)
	}

	return toAPIPeriod(summary), nil
}

func toAPIPeriod(p *hydration.PeriodSummary) *models.PeriodStats {
	points := make([]models.ChartPoint, len(p.ChartData))
	for i, c := range p.ChartData {
		points[i] = models.ChartPoint{
			Date:         c.Date,
			Amount:       c.Amount,
			Count:        c.Count,
			Goal:         c.Goal,
			GoalAchieved: c.GoalAchieved,
			Percentage:   c.Percentage,
		}
	}
	return &models.PeriodStats{
		Period: models.StatsPeriod{
			StartDate: p.Period.StartDate,
			EndDate:   p.Period.EndDate,
			Days:      p.Period.Days,
		},
		Goal:      p.Goal,
		ChartData: points,
		Summary: models.PeriodTotals{
			TotalAmount:        p.Summary.TotalAmount,
			AvgDailyAmount:     p.Summary.AvgDailyAmount,
			MaxAmount:          p.Summary.MaxAmount,
			MinAmount:          p.Summary.MinAmount,
			DaysMetGoal:        p.Summary.DaysMetGoal,
			GoalCompletionRate: p.Summary.GoalCompletionRate,
			TotalIntakes:       p.Summary.TotalIntakes,
		},
	}
}
