package intake

import (
	"context"
	"time"
)

// Repository defines the interface for intake persistence.
type Repository interface {
	// Create stores a new intake.
	Create(ctx context.Context, in *Intake) error

	// Get retrieves an intake by ID regardless of owner.
	Get(ctx context.Context, id string) (*Intake, error)

	// ListByRange returns the user's intakes with from <= timestamp < to,
	// newest first.
	ListByRange(ctx context.Context, userID string, from, to time.Time) ([]*Intake, error)

	// UpdateAmount changes the amount of an intake.
	UpdateAmount(ctx context.Context, id string, amount int, updatedAt time.Time) error

	// Delete removes an intake.
	Delete(ctx context.Context, id string) error
}
