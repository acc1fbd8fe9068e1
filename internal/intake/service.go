package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/watertime/watertime/internal/api/models"
	"github.com/watertime/watertime/internal/hydration"
)

// Observer is notified after an intake has been stored.
type Observer interface {
	IntakeRecorded(ctx context.Context, userID string) error
}

// ServiceConfig holds configuration for the intake service.
type ServiceConfig struct {
	Repo Repository

	// Observer is told about new intakes. Optional.
	Observer Observer

	Logger zerolog.Logger

	// Location defines calendar day boundaries (default: time.Local).
	Location *time.Location

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Service provides intake operations.
type Service struct {
	repo     Repository
	observer Observer
	logger   zerolog.Logger
	loc      *time.Location
	now      func() time.Time
}

// NewService creates a new intake service.
func NewService(cfg ServiceConfig) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo:     cfg.Repo,
		observer: cfg.Observer,
		logger:   cfg.Logger,
		loc:      loc,
		now:      now,
	}
}

// Location returns the time zone used for day boundaries.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Now returns the current time in the service's location.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// Record validates and stores a new intake, then notifies the observer.
// Observer failures are logged and never fail the call.
func (s *Service) Record(ctx context.Context, userID string, input NewInput) (*Intake, error) {
	if input.Amount < MinAmount || input.Amount > MaxAmount {
		return nil, models.NewValidationError("amount", "must be between 1 and 5000", models.CodeOutOfRange)
	}
	source := input.Source
	if source == "" {
		source = SourceManual
	}
	if !source.Valid() {
		return nil, models.NewValidationError("source", "must be manual, notification or reminder", models.CodeInvalid)
	}

	now := s.now()
	taken := now
	if input.Timestamp != nil {
		taken = *input.Timestamp
	}

	in := &Intake{
		ID:        "int_" + uuid.New().String()[:22],
		UserID:    userID,
		Amount:    input.Amount,
		Source:    source,
		Note:      input.Note,
		Timestamp: taken,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, in); err != nil {
		return nil, fmt.Errorf("creating intake: %w", err)
	}

	if s.observer != nil {
		if err := s.observer.IntakeRecorded(ctx, userID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Str("intake_id", in.ID).Msg("intake observer failed")
		}
	}

	return in, nil
}

// Get returns an intake owned by the user.
func (s *Service) Get(ctx context.Context, userID, id string) (*Intake, error) {
	in, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.UserID != userID {
		return nil, ErrNotOwner
	}
	return in, nil
}

// UpdateAmount changes the amount of an intake owned by the user.
func (s *Service) UpdateAmount(ctx context.Context, userID, id string, amount int) (*Intake, error) {
	if amount < MinAmount || amount > MaxAmount {
		return nil, models.NewValidationError("amount", "must be between 1 and 5000", models.CodeOutOfRange)
	}

	in, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	in.Amount = amount
	in.UpdatedAt = s.now()
	if err := s.repo.UpdateAmount(ctx, id, amount, in.UpdatedAt); err != nil {
		return nil, fmt.Errorf("updating intake: %w", err)
	}
	return in, nil
}

// Delete removes an intake owned by the user.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// ListDay returns the user's intakes on the calendar day of date, newest first.
func (s *Service) ListDay(ctx context.Context, userID string, date time.Time) ([]*Intake, error) {
	start := hydration.StartOfDay(date.In(s.loc))
	return s.ListRange(ctx, userID, start, hydration.NextDay(start))
}

// ListRange returns the user's intakes in [from, to), newest first.
func (s *Service) ListRange(ctx context.Context, userID string, from, to time.Time) ([]*Intake, error) {
	items, err := s.repo.ListByRange(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing intakes: %w", err)
	}
	return items, nil
}

// Records converts intakes for the aggregation engine.
func Records(items []*Intake) []hydration.Record {
	records := make([]hydration.Record, len(items))
	for i, in := range items {
		records[i] = hydration.Record{Amount: in.Amount, At: in.Timestamp}
	}
	return records
}

// ToAPI converts a domain Intake to an API Intake.
func ToAPI(in *Intake) models.Intake {
	return models.Intake{
		ID:        in.ID,
		Amount:    in.Amount,
		Timestamp: models.Timestamp(in.Timestamp),
		Source:    models.IntakeSource(in.Source),
		Note:      in.Note,
		CreatedAt: models.Timestamp(in.CreatedAt),
	}
}
