package notification

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*Notification
}

// NewInMemoryRepository creates a new in-memory notification repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		items: make(map[string]*Notification),
	}
}

// Create stores a notification.
func (r *InMemoryRepository) Create(_ context.Context, n *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[n.ID] = copyNotification(n)
	return nil
}

// Get retrieves a notification by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.items[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	return copyNotification(n), nil
}

// ListByUser returns the newest notifications first.
func (r *InMemoryRepository) ListByUser(_ context.Context, userID string, limit int) ([]*Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := r.byUser(userID)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// CountUnread counts the user's unread notifications.
func (r *InMemoryRepository) CountUnread(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, n := range r.items {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// MarkRead marks one notification read.
func (r *InMemoryRepository) MarkRead(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.items[id]
	if !ok {
		return ErrNotificationNotFound
	}
	n.IsRead = true
	n.ReadAt = &at
	return nil
}

// MarkAllRead marks every unread notification of the user read.
func (r *InMemoryRepository) MarkAllRead(_ context.Context, userID string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, n := range r.items {
		if n.UserID == userID && !n.IsRead {
			readAt := at
			n.IsRead = true
			n.ReadAt = &readAt
			count++
		}
	}
	return count, nil
}

// LatestOfType returns the newest notification of type sent at or after since.
func (r *InMemoryRepository) LatestOfType(_ context.Context, userID string, typ Type, since time.Time) (*Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, n := range r.byUser(userID) {
		if n.Type == typ && !n.SentAt.Before(since) {
			return n, nil
		}
	}
	return nil, ErrNotificationNotFound
}

// byUser returns copies sorted newest first. Callers hold the lock.
func (r *InMemoryRepository) byUser(userID string) []*Notification {
	items := make([]*Notification, 0)
	for _, n := range r.items {
		if n.UserID == userID {
			items = append(items, copyNotification(n))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].SentAt.After(items[j].SentAt)
	})
	return items
}

func copyNotification(n *Notification) *Notification {
	c := *n
	if n.ReadAt != nil {
		at := *n.ReadAt
		c.ReadAt = &at
	}
	return &c
}
