package device

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use the PostgreSQL implementation.
type InMemoryRepository struct {
	mu      sync.RWMutex
	devices map[string]*Device
}

// NewInMemoryRepository creates a new in-memory device repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		devices: make(map[string]*Device),
	}
}

// GetByID retrieves a device by ID.
func (r *InMemoryRepository) GetByID(_ context.Context, deviceID string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, ok := r.devices[deviceID]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return copyDevice(device), nil
}

// FindByUserToken finds a user's device holding either token.
func (r *InMemoryRepository) FindByUserToken(_ context.Context, userID string, fcmToken, apnsToken *string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.devices {
		if d.UserID != userID {
			continue
		}
		if sameToken(d.FCMToken, fcmToken) || sameToken(d.APNSToken, apnsToken) {
			return copyDevice(d), nil
		}
	}
	return nil, ErrDeviceNotFound
}

// ListByUser retrieves a user's devices, most recently used first.
func (r *InMemoryRepository) ListByUser(_ context.Context, userID string) ([]*Device, error) {
	return r.list(userID, false), nil
}

// ListActiveByUser retrieves a user's active devices.
func (r *InMemoryRepository) ListActiveByUser(_ context.Context, userID string) ([]*Device, error) {
	return r.list(userID, true), nil
}

func (r *InMemoryRepository) list(userID string, activeOnly bool) []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*Device, 0)
	for _, d := range r.devices {
		if d.UserID != userID || (activeOnly && !d.IsActive) {
			continue
		}
		items = append(items, copyDevice(d))
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].LastUsedAt.After(items[j].LastUsedAt)
	})
	return items
}

// Create creates a new device.
func (r *InMemoryRepository) Create(_ context.Context, device *Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices[device.ID] = copyDevice(device)
	return nil
}

// Update updates an existing device.
func (r *InMemoryRepository) Update(_ context.Context, device *Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[device.ID]; !ok {
		return ErrDeviceNotFound
	}
	r.devices[device.ID] = copyDevice(device)
	return nil
}

// Delete deletes a device.
func (r *InMemoryRepository) Delete(_ context.Context, deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[deviceID]; !ok {
		return ErrDeviceNotFound
	}
	delete(r.devices, deviceID)
	return nil
}

// DeleteByFCMToken deletes every device holding the FCM token.
func (r *InMemoryRepository) DeleteByFCMToken(_ context.Context, token string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, d := range r.devices {
		if d.FCMToken != nil && *d.FCMToken == token {
			delete(r.devices, id)
			n++
		}
	}
	return n, nil
}

func sameToken(have, want *string) bool {
	return have != nil && want != nil && *want != "" && *have == *want
}

// copyDevice creates a deep copy of a device.
func copyDevice(d *Device) *Device {
	if d == nil {
		return nil
	}

	deviceCopy := *d
	deviceCopy.FCMToken = copyString(d.FCMToken)
	deviceCopy.APNSToken = copyString(d.APNSToken)
	deviceCopy.DeviceInfo = copyString(d.DeviceInfo)
	return &deviceCopy
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	val := *s
	return &val
}
