package device

import "context"

// Repository defines the interface for device persistence.
type Repository interface {
	// GetByID retrieves a device by ID regardless of owner.
	GetByID(ctx context.Context, deviceID string) (*Device, error)

	// FindByUserToken finds a user's device holding either token.
	FindByUserToken(ctx context.Context, userID string, fcmToken, apnsToken *string) (*Device, error)

	// ListByUser retrieves a user's devices, most recently used first.
	ListByUser(ctx context.Context, userID string) ([]*Device, error)

	// ListActiveByUser retrieves a user's active devices.
	ListActiveByUser(ctx context.Context, userID string) ([]*Device, error)

	// Create creates a new device.
	Create(ctx context.Context, device *Device) error

	// Update updates an existing device.
	Update(ctx context.Context, device *Device) error

	// Delete deletes a device.
	Delete(ctx context.Context, deviceID string) error

	// DeleteByFCMToken deletes every device holding the FCM token.
	DeleteByFCMToken(ctx context.Context, token string) (int, error)
}
