package models

// ChartPoint is one day of a weekly or monthly chart.
type ChartPoint struct {
	Date         string `json:"date"`
	Amount       int    `json:"amount"`
	Count        int    `json:"count"`
	Goal         int    `json:"goal"`
	GoalAchieved bool   `json:"goalAchieved"`
	Percentage   int    `json:"percentage"`
}

// StatsPeriod describes the inclusive range of a period summary.
type StatsPeriod struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Days      int    `json:"days"`
}

// PeriodTotals summarises a period.
type PeriodTotals struct {
	TotalAmount        int `json:"totalAmount"`
	AvgDailyAmount     int `json:"avgDailyAmount"`
	MaxAmount          int `json:"maxAmount"`
	MinAmount          int `json:"minAmount"`
	DaysMetGoal        int `json:"daysMetGoal"`
	GoalCompletionRate int `json:"goalCompletionRate"`
	TotalIntakes       int `json:"totalIntakes"`
}

// PeriodStats is the response of the weekly and monthly stats endpoints.
type PeriodStats struct {
	Period    StatsPeriod  `json:"period"`
	Goal      int          `json:"goal"`
	ChartData []ChartPoint `json:"chartData"`
	Summary   PeriodTotals `json:"summary"`
}

// StatsOverview is the trailing-window block of GET /v1/user/stats.
type StatsOverview struct {
	TotalAmount        int `json:"totalAmount"`
	AvgDailyAmount     int `json:"avgDailyAmount"`
	TotalIntakes       int `json:"totalIntakes"`
	DaysMetGoal        int `json:"daysMetGoal"`
	GoalCompletionRate int `json:"goalCompletionRate"`
}

// TodayStats is today's progress.
type TodayStats struct {
	TotalAmount int `json:"totalAmount"`
	Goal        int `json:"goal"`
	Percentage  int `json:"percentage"`
	Remaining   int `json:"remaining"`
}

// UserStats is the response of GET /v1/user/stats.
type UserStats struct {
	Period   StatsPeriod   `json:"period"`
	Goal     int           `json:"goal"`
	Overview StatsOverview `json:"overview"`
	Today    TodayStats    `json:"today"`
}
