package notification

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/watertime/watertime/internal/api/models"
	"github.com/watertime/watertime/internal/messaging"
)

// TestTip is the message sent by POST /v1/notifications/test.
const TestTip = "Drinking water helps boost your metabolism and energy levels!"

// Pusher delivers a message to a user's devices.
type Pusher interface {
	SendPushNotification(ctx context.Context, userID string, msg messaging.Message) (messaging.Result, error)
}

// ServiceConfig holds configuration for the notification service.
type ServiceConfig struct {
	Repo   Repository
	Pusher Pusher
	Logger zerolog.Logger
	Now    func() time.Time
}

// Service records notifications and pushes them.
type Service struct {
	repo   Repository
	pusher Pusher
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a new notification service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:   cfg.Repo,
		pusher: cfg.Pusher,
		logger: cfg.Logger,
		now:    now,
	}
}

// Send stores the notification and then pushes it. The stored record is
// returned even when delivery fails; delivery errors are only logged.
func (s *Service) Send(ctx context.Context, userID string, typ Type, title, message string, data map[string]string) (*Notification, error) {
	n := &Notification{
		ID:      "ntf_" + uuid.New().String()[:22],
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
		SentAt:  s.now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("storing notification: %w", err)
	}

	if s.pusher == nil {
		return n, nil
	}

	payload := map[string]string{"type": string(typ), "notificationId": n.ID}
	for k, v := range data {
		payload[k] = v
	}

	result, err := s.pusher.SendPushNotification(ctx, userID, messaging.Message{Title: title, Body: message, Data: payload})
	if err != nil {
		s.logger.Warn().Err(err).
			Str("user_id", userID).
			Str("notification_id", n.ID).
			Msg("push dispatch failed")
		return n, nil
	}
	s.logger.Debug().
		Str("user_id", userID).
		Int("success", result.SuccessCount).
		Int("failure", result.FailureCount).
		Msg("push dispatched")

	return n, nil
}

// SendReminder records and pushes a progress reminder.
func (s *Service) SendReminder(ctx context.Context, userID string, percentage float64, amount, goal int) (*Notification, error) {
	message := fmt.Sprintf("You've reached %d%% of your daily goal! Keep going! (%d/%dml)",
		int(math.Floor(percentage)), amount, goal)
	return s.Send(ctx, userID, TypeReminder, "WaterTime Reminder", message, map[string]string{
		"percentage": strconv.FormatFloat(percentage, 'f', -1, 64),
	})
}

// SendAchievement records and pushes an achievement.
func (s *Service) SendAchievement(ctx context.Context, userID, achievement string) (*Notification, error) {
	return s.Send(ctx, userID, TypeAchievement, "WaterTime Achievement", "Congratulations! "+achievement, map[string]string{
		"achievement": achievement,
	})
}

// SendTip records and pushes a hydration tip.
func (s *Service) SendTip(ctx context.Context, userID, tip string) (*Notification, error) {
	return s.Send(ctx, userID, TypeTip, "WaterTime Tip", tip, nil)
}

// List returns the newest notifications and the unread count.
// Non-positive limits select the default; larger ones are capped.
func (s *Service) List(ctx context.Context, userID string, limit int) (*models.NotificationList, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	items, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("counting unread notifications: %w", err)
	}

	out := make([]models.Notification, 0, len(items))
	for _, n := range items {
		out = append(out, ToAPI(n))
	}
	return &models.NotificationList{Notifications: out, UnreadCount: unread}, nil
}

// UnreadCount counts the user's unread notifications.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead marks a notification owned by the user read.
func (s *Service) MarkRead(ctx context.Context, userID, id string) (*Notification, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, ErrNotOwner
	}
	if n.IsRead {
		return n, nil
	}

	at := s.now()
	if err := s.repo.MarkRead(ctx, id, at); err != nil {
		return nil, fmt.Errorf("marking notification read: %w", err)
	}
	n.IsRead = true
	n.ReadAt = &at
	return n, nil
}

// MarkAllRead marks every unread notification of the user read.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.repo.MarkAllRead(ctx, userID, s.now())
}

// LatestOfType returns the user's newest notification of typ sent at or
// after since, or ErrNotificationNotFound.
func (s *Service) LatestOfType(ctx context.Context, userID string, typ Type, since time.Time) (*Notification, error) {
	return s.repo.LatestOfType(ctx, userID, typ, since)
}

// ToAPI converts a domain Notification to an API Notification.
func ToAPI(n *Notification) models.Notification {
	return models.Notification{
		ID:      n.ID,
		Type:    models.NotificationType(n.Type),
		Title:   n.Title,
		Message: n.Message,
		SentAt:  models.Timestamp(n.SentAt),
		ReadAt:  models.TimestampPtr(n.ReadAt),
		IsRead:  n.IsRead,
	}
}
