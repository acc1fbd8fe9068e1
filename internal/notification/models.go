// Package notification keeps the user's notification history and pushes new
// entries to their devices.
package notification

import (
	"errors"
	"time"
)

// List limits.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Repository errors.
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotOwner             = errors.New("notification belongs to another user")
)

// Type classifies a notification.
type Type string

const (
	TypeReminder    Type = "reminder"
	TypeAchievement Type = "achievement"
	TypeTip         Type = "tip"
)

// Notification is one entry in a user's notification history.
type Notification struct {
	ID      string
	UserID  string
	Type    Type
	Title   string
	Message string
	SentAt  time.Time
	ReadAt  *time.Time
	IsRead  bool
}
