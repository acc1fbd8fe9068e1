package models

// IntakeSource identifies where an intake was recorded from.
type IntakeSource string

const (
	IntakeSourceManual       IntakeSource = "manual"
	IntakeSourceNotification IntakeSource = "notification"
	IntakeSourceReminder     IntakeSource = "reminder"
)

// Intake is a single recorded drink.
type Intake struct {
	ID        string       `json:"id"`
	Amount    int          `json:"amount"`
	Timestamp Timestamp    `json:"timestamp"`
	Source    IntakeSource `json:"source"`
	Note      *string      `json:"note,omitempty"`
	CreatedAt Timestamp    `json:"createdAt"`
}

// IntakeCreateRequest is the request body for POST /v1/intake.
type IntakeCreateRequest struct {
	Amount    int          `json:"amount"`
	Source    IntakeSource `json:"source,omitempty"`
	Note      *string      `json:"note,omitempty"`
	Timestamp *Timestamp   `json:"timestamp,omitempty"`
}

// IntakeUpdateRequest is the request body for PUT /v1/intake/{id}.
type IntakeUpdateRequest struct {
	Amount int `json:"amount"`
}

// DailyIntake is the response of GET /v1/intake/daily.
type DailyIntake struct {
	Date        string   `json:"date"`
	TotalAmount int      `json:"totalAmount"`
	Goal        int      `json:"goal"`
	Percentage  int      `json:"percentage"`
	Remaining   int      `json:"remaining"`
	IntakeCount int      `json:"intakeCount"`
	Intakes     []Intake `json:"intakes"`
}

// HistoryDay is one day in the intake history.
type HistoryDay struct {
	Date        string `json:"date"`
	TotalAmount int    `json:"totalAmount"`
	IntakeCount int    `json:"intakeCount"`
}

// IntakeHistory is the response of GET /v1/intake/history.
type IntakeHistory struct {
	Days    int          `json:"days"`
	History []HistoryDay `json:"history"`
}
