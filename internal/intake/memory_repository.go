package intake

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu      sync.RWMutex
	intakes map[string]*Intake
}

// NewInMemoryRepository creates a new in-memory intake repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		intakes: make(map[string]*Intake),
	}
}

// Create stores a new intake.
func (r *InMemoryRepository) Create(_ context.Context, in *Intake) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.intakes[in.ID] = copyIntake(in)
	return nil
}

// Get retrieves an intake by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Intake, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	in, ok := r.intakes[id]
	if !ok {
		return nil, ErrIntakeNotFound
	}
	return copyIntake(in), nil
}

// ListByRange returns the user's intakes in [from, to), newest first.
func (r *InMemoryRepository) ListByRange(_ context.Context, userID string, from, to time.Time) ([]*Intake, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*Intake, 0)
	for _, in := range r.intakes {
		if in.UserID != userID || in.Timestamp.Before(from) || !in.Timestamp.Before(to) {
			continue
		}
		items = append(items, copyIntake(in))
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	return items, nil
}

// UpdateAmount changes the amount of an intake.
func (r *InMemoryRepository) UpdateAmount(_ context.Context, id string, amount int, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	in, ok := r.intakes[id]
	if !ok {
		return ErrIntakeNotFound
	}
	in.Amount = amount
	in.UpdatedAt = updatedAt
	return nil
}

// Delete removes an intake.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.intakes[id]; !ok {
		return ErrIntakeNotFound
	}
	delete(r.intakes, id)
	return nil
}

func copyIntake(in *Intake) *Intake {
	c := *in
	if in.Note != nil {
		note := *in.Note
		c.Note = &note
	}
	return &c
}
