package models

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationTypeReminder    NotificationType = "reminder"
	NotificationTypeAchievement NotificationType = "achievement"
	NotificationTypeTip         NotificationType = "tip"
)

// Notification is an entry in the user's notification history.
type Notification struct {
	ID      string           `json:"id"`
	Type    NotificationType `json:"type"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	SentAt  Timestamp        `json:"sentAt"`
	ReadAt  *Timestamp       `json:"readAt,omitempty"`
	IsRead  bool             `json:"isRead"`
}

// NotificationList is the response of GET /v1/notifications.
type NotificationList struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unreadCount"`
}

// UnreadCount is the response of GET /v1/notifications/unread-count.
type UnreadCount struct {
	Count int `json:"count"`
}

// MarkAllReadResult is the response of PUT /v1/notifications/read-all.
type MarkAllReadResult struct {
	Updated int `json:"updated"`
}
