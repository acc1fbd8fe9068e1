package user

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/watertime/watertime/internal/api/models"
)

// Service provides user profile operations.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new user service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// CreateUser creates the profile for a newly registered account.
// A nil goal selects the default.
func (s *Service) CreateUser(ctx context.Context, id, email, name string, goal *int) (*User, error) {
	g := DefaultGoal
	if goal != nil {
		if err := ValidateGoal(*goal); err != nil {
			return nil, err
		}
		g = *goal
	}

	now := s.now()
	u := &User{
		ID:        id,
		Email:     email,
		Name:      name,
		Goal:      g,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("creating user profile: %w", err)
	}
	return u, nil
}

// Get retrieves a user by ID.
func (s *Service) Get(ctx context.Context, userID string) (*User, error) {
	return s.repo.Get(ctx, userID)
}

// GetProfile retrieves the user's profile.
func (s *Service) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ToAPIProfile(u), nil
}

// UpdateProfile applies the non-nil fields of update.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.UserProfile, error) {
	var errs []models.FieldError
	if update.Height != nil && (*update.Height < 0 || *update.Height > MaxHeightCM) {
		errs = append(errs, models.FieldError{Field: "height", Message: "must be between 0 and 300", Code: models.CodeOutOfRange})
	}
	if update.Weight != nil && (*update.Weight < 0 || *update.Weight > MaxWeightKG) {
		errs = append(errs, models.FieldError{Field: "weight", Message: "must be between 0 and 500", Code: models.CodeOutOfRange})
	}
	if len(errs) > 0 {
		return nil, &models.ValidationError{Errors: errs}
	}

	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Height != nil {
		u.Height = update.Height
	}
	if update.Weight != nil {
		u.Weight = update.Weight
	}
	u.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return ToAPIProfile(u), nil
}

// UpdateGoal sets the user's daily goal. Fractional goals are rejected.
func (s *Service) UpdateGoal(ctx context.Context, userID string, goal float64) (*models.UserProfile, error) {
	if goal != math.Trunc(goal) {
		return nil, models.NewValidationError("goal", "must be a whole number of millilitres", models.CodeInvalid)
	}
	if err := ValidateGoal(int(goal)); err != nil {
		return nil, err
	}

	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	u.Goal = int(goal)
	u.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("updating goal: %w", err)
	}
	return ToAPIProfile(u), nil
}

// ListActive pages through active users for background work.
func (s *Service) ListActive(ctx context.Context, afterID string, limit int) ([]*User, error) {
	return s.repo.ListActive(ctx, afterID, limit)
}

// ValidateGoal checks that goal is within the allowed range.
func ValidateGoal(goal int) error {
	if goal < MinGoal || goal > MaxGoal {
		return models.NewValidationError("goal", "must be between 500 and 10000", models.CodeOutOfRange)
	}
	return nil
}

// ToAPIProfile converts a domain User to an API profile.
func ToAPIProfile(u *User) *models.UserProfile {
	return &models.UserProfile{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Goal:      u.Goal,
		Height:    u.Height,
		Weight:    u.Weight,
		CreatedAt: models.Timestamp(u.CreatedAt),
		UpdatedAt: models.Timestamp(u.UpdatedAt),
	}
}
