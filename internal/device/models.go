// Package device provides device registration and management for push notifications.
package device

import (
	"errors"
	"time"
)

// Repository errors.
var (
	ErrDeviceNotFound = errors.New("device not found")
	ErrNotOwner       = errors.New("device belongs to another user")
)

// Platform represents the mobile OS of a device.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// Valid reports whether p is a supported platform.
func (p Platform) Valid() bool {
	return p == PlatformIOS || p == PlatformAndroid
}

// Device represents a registered push notification device.
type Device struct {
	ID         string
	UserID     string
	Platform   Platform
	FCMToken   *string
	APNSToken  *string
	DeviceInfo *string
	IsActive   bool
	LastUsedAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MaskToken hides the middle of a push token for display.
func MaskToken(token string) string {
	if len(token) <= 12 {
		return "****"
	}
	return token[:8] + "..." + token[len(token)-4:]
}
