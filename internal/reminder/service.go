package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/watertime/watertime/internal/hydration"
	"github.com/watertime/watertime/internal/intake"
	"github.com/watertime/watertime/internal/notification"
	"github.com/watertime/watertime/internal/user"
)

// UserStore loads users.
type UserStore interface {
	Get(ctx context.Context, userID string) (*user.User, error)
}

// IntakeLister lists a user's intakes for one calendar day.
type IntakeLister interface {
	ListDay(ctx context.Context, userID string, date time.Time) ([]*intake.Intake, error)
}

// Notifier records and dispatches notifications.
type Notifier interface {
	LatestOfType(ctx context.Context, userID string, typ notification.Type, since time.Time) (*notification.Notification, error)
	SendReminder(ctx context.Context, userID string, percentage float64, amount, goal int) (*notification.Notification, error)
	SendAchievement(ctx context.Context, userID, achievement string) (*notification.Notification, error)
}

// ServiceConfig holds configuration for the reminder service.
type ServiceConfig struct {
	Users         UserStore
	Intakes       IntakeLister
	Notifications Notifier
	Logger        zerolog.Logger

	// Location defines "today" (default: time.Local).
	Location *time.Location

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Outcome describes what an evaluation did.
type Outcome struct {
	Skipped         bool
	TotalAmount     int
	Goal            int
	Percentage      float64
	ReminderSent    bool
	AchievementSent bool
}

// Service evaluates reminder policy for users.
type Service struct {
	users         UserStore
	intakes       IntakeLister
	notifications Notifier
	logger        zerolog.Logger
	loc           *time.Location
	now           func() time.Time

	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewService creates a new reminder service.
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
		users:         cfg.Users,
		intakes:       cfg.Intakes,
		notifications: cfg.Notifications,
		logger:        cfg.Logger,
		loc:           loc,
		now:           now,
		locks:         make(map[string]*userLock),
	}
}

// IntakeRecorded evaluates the user after a new intake.
func (s *Service) IntakeRecorded(ctx context.Context, userID string) error {
	_, err := s.Evaluate(ctx, userID)
	return err
}

// Evaluate checks today's progress for a user and sends a threshold
// reminder or goal achievement when due. Evaluations for the same user
// run one at a time.
func (s *Service) Evaluate(ctx context.Context, userID string) (Outcome, error) {
	unlock := s.lock(userID)
	defer unlock()

	u, err := s.users.Get(ctx, userID)
	if errors.Is(err, user.ErrUserNotFound) {
		return Outcome{Skipped: true}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("loading user: %w", err)
	}
	if !u.IsActive || u.Goal <= 0 {
		return Outcome{Skipped: true}, nil
	}

	now := s.now().In(s.loc)
	today := hydration.StartOfDay(now)

	items, err := s.intakes.ListDay(ctx, userID, now)
	if err != nil {
		return Outcome{}, fmt.Errorf("loading today's intakes: %w", err)
	}
	total := 0
	for _, in := range items {
		total += in.Amount
	}

	out := Outcome{
		TotalAmount: total,
		Goal:        u.Goal,
		Percentage:  hydration.Percentage(total, u.Goal),
	}

	var lastSent *time.Time
	last, err := s.notifications.LatestOfType(ctx, userID, notification.TypeReminder, today)
	switch {
	case err == nil:
		lastSent = &last.SentAt
	case !errors.Is(err, notification.ErrNotificationNotFound):
		return out, fmt.Errorf("loading last reminder: %w", err)
	}

	if ShouldSendReminder(out.Percentage, lastSent, now) {
		if _, err := s.notifications.SendReminder(ctx, userID, out.Percentage, total, u.Goal); err != nil {
			return out, fmt.Errorf("sending reminder: %w", err)
		}
		out.ReminderSent = true
		s.logger.Info().
			Str("user_id", userID).
			Float64("percentage", out.Percentage).
			Msg("reminder sent")
	}

	if total >= u.Goal {
		_, err := s.notifications.LatestOfType(ctx, userID, notification.TypeAchievement, today)
		switch {
		case errors.Is(err, notification.ErrNotificationNotFound):
			achievement := fmt.Sprintf("You reached your daily goal of %dml!", u.Goal)
			if _, err := s.notifications.SendAchievement(ctx, userID, achievement); err != nil {
				return out, fmt.Errorf("sending achievement: %w", err)
			}
			out.AchievementSent = true
		case err != nil:
			return out, fmt.Errorf("loading last achievement: %w", err)
		}
	}

	return out, nil
}

func (s *Service) lock(userID string) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.mu.Unlock()
	}
}
