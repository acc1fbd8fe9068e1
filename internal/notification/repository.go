package notification

import (
	"context"
	"time"
)

// Repository defines the interface for notification persistence.
type Repository interface {
	// Create stores a notification.
	Create(ctx context.Context, n *Notification) error

	// Get retrieves a notification by ID regardless of owner.
	Get(ctx context.Context, id string) (*Notification, error)

	// ListByUser returns the newest notifications first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*Notification, error)

	// CountUnread counts the user's unread notifications.
	CountUnread(ctx context.Context, userID string) (int, error)

	// MarkRead marks one notification read.
	MarkRead(ctx context.Context, id string, at time.Time) error

	// MarkAllRead marks every unread notification of the user read and
	// returns how many changed.
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error)

	// LatestOfType returns the newest notification of type sent at or after since.
	LatestOfType(ctx context.Context, userID string, typ Type, since time.Time) (*Notification, error)
}
