// Package intake records and queries water intake.
package intake

import (
	"errors"
	"time"
)

// Amount limits in millilitres.
const (
	MinAmount = 1
	MaxAmount = 5000
)

// Repository errors.
var (
	ErrIntakeNotFound = errors.New("intake not found")
	ErrNotOwner       = errors.New("intake belongs to another user")
)

// Source identifies where an intake was recorded from.
type Source string

const (
	SourceManual       Source = "manual"
	SourceNotification Source = "notification"
	SourceReminder     Source = "reminder"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceNotification, SourceReminder:
		return true
	}
	return false
}

// Intake is a single recorded drink.
type Intake struct {
	ID        string
	UserID    string
	Amount    int
	Source    Source
	Note      *string
	Timestamp time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewInput carries the fields of a new intake.
type NewInput struct {
	Amount    int
	Source    Source
	Note      *string
	Timestamp *time.Time
}
