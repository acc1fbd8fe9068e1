// Package hydration aggregates intake records into daily and period
// summaries measured against a daily goal.
//
// Daily summaries clamp the goal percentage to [0, 100]; chart points in a
// period summary do not. Both behaviours are relied on by clients.
package hydration

import (
	"errors"
	"math"
	"time"
)

// DateLayout is the calendar-day key format.
const DateLayout = "2006-01-02"

// Errors returned by the aggregation functions.
var (
	ErrInvalidRange = errors.New("start date is after end date")
	ErrInvalidGoal  = errors.New("goal must be positive")
)

// Record is the part of an intake the engine needs.
type Record struct {
	Amount int
	At     time.Time
}

// DailySummary is the progress for a single day.
type DailySummary struct {
	TotalAmount int
	Goal        int
	Percentage  int
	Remaining   int
	IntakeCount int
}

// ChartPoint is one calendar day within a period.
type ChartPoint struct {
	Date         string
	Amount       int
	Count        int
	Goal         int
	GoalAchieved bool
	Percentage   int
}

// Period identifies the inclusive day range of a PeriodSummary.
type Period struct {
	StartDate string
	EndDate   string
	Days      int
}

// Totals summarises a period.
type Totals struct {
	TotalAmount        int
	AvgDailyAmount     int
	MaxAmount          int
	MinAmount          int
	DaysMetGoal        int
	GoalCompletionRate int
	TotalIntakes       int
}

// PeriodSummary is the aggregate over a contiguous range of days.
type PeriodSummary struct {
	Period    Period
	Goal      int
	ChartData []ChartPoint
	Summary   Totals
}

// ComputeDailySummary sums one day's records. The percentage is clamped to [0, 100].
func ComputeDailySummary(records []Record, goal int) (*DailySummary, error) {
	if goal <= 0 {
		return nil, ErrInvalidGoal
	}

	total := 0
	for _, r := range records {
		total += r.Amount
	}

	return &DailySummary{
		TotalAmount: total,
		Goal:        goal,
		Percentage:  clamp(percentOf(total, goal), 0, 100),
		Remaining:   max(0, goal-total),
		IntakeCount: len(records),
	}, nil
}

// ComputePeriodSummary buckets records by calendar day over [start, end]
// inclusive. Days are taken in start's location. Every day in the range is
// present in ChartData even when it has no intake; records outside the range
// are ignored.
func ComputePeriodSummary(records []Record, goal int, start, end time.Time) (*PeriodSummary, error) {
	if goal <= 0 {
		return nil, ErrInvalidGoal
	}

	loc := start.Location()
	first := StartOfDay(start)
	last := StartOfDay(end.In(loc))
	if first.After(last) {
		return nil, ErrInvalidRange
	}

	var points []ChartPoint
	index := make(map[string]int)
	for d := first; !d.After(last); d = NextDay(d) {
		key := d.Format(DateLayout)
		index[key] = len(points)
		points = append(points, ChartPoint{Date: key, Goal: goal})
	}

	for _, r := range records {
		i, ok := index[r.At.In(loc).Format(DateLayout)]
		if !ok {
			continue
		}
		points[i].Amount += r.Amount
		points[i].Count++
	}

	days := len(points)
	totals := Totals{}
	for i := range points {
		p := &points[i]
		p.Percentage = percentOf(p.Amount, goal)
		p.GoalAchieved = p.Amount >= goal

		totals.TotalAmount += p.Amount
		totals.TotalIntakes += p.Count
		if p.Amount > totals.MaxAmount {
			totals.MaxAmount = p.Amount
		}
		if p.Amount > 0 && (totals.MinAmount == 0 || p.Amount < totals.MinAmount) {
			totals.MinAmount = p.Amount
		}
		if p.GoalAchieved {
			totals.DaysMetGoal++
		}
	}
	totals.AvgDailyAmount = roundHalfUp(float64(totals.TotalAmount) / float64(days))
	totals.GoalCompletionRate = roundHalfUp(float64(totals.DaysMetGoal) / float64(days) * 100)

	return &PeriodSummary{
		Period: Period{
			StartDate: first.Format(DateLayout),
			EndDate:   last.Format(DateLayout),
			Days:      days,
		},
		Goal:      goal,
		ChartData: points,
		Summary:   totals,
	}, nil
}

// Overview is a compact summary over the trailing days used on the stats screen.
type Overview struct {
	TotalAmount        int
	AvgDailyAmount     int
	TotalIntakes       int
	DaysMetGoal        int
	GoalCompletionRate int
}

// ComputeOverview summarises records over a trailing window of days. Averages
// and rates are taken over days rather than the number of calendar buckets,
// matching what the mobile client displays.
func ComputeOverview(records []Record, goal, days int, loc *time.Location) (*Overview, error) {
	if goal <= 0 {
		return nil, ErrInvalidGoal
	}
	if days <= 0 {
		return nil, ErrInvalidRange
	}

	perDay := make(map[string]int)
	total := 0
	for _, r := range records {
		total += r.Amount
		perDay[r.At.In(loc).Format(DateLayout)] += r.Amount
	}

	met := 0
	for _, amount := range perDay {
		if amount >= goal {
			met++
		}
	}

	return &Overview{
		TotalAmount:        total,
		AvgDailyAmount:     roundHalfUp(float64(total) / float64(days)),
		TotalIntakes:       len(records),
		DaysMetGoal:        met,
		GoalCompletionRate: roundHalfUp(float64(met) / float64(days) * 100),
	}, nil
}

// Percentage returns the unrounded share of goal reached by total.
func Percentage(total, goal int) float64 {
	if goal <= 0 {
		return 0
	}
	return float64(total) / float64(goal) * 100
}

// StartOfDay returns local midnight of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last millisecond of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return NextDay(StartOfDay(t)).Add(-time.Millisecond)
}

// NextDay returns midnight of the following calendar day. Safe across DST changes.
func NextDay(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, day.Location())
}

func percentOf(amount, goal int) int {
	return roundHalfUp(Percentage(amount, goal))
}

// roundHalfUp rounds x.5 upward; inputs here are never negative.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
