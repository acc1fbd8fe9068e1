package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/watertime/watertime/internal/api/models"
)

// Service provides device operations.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new device service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List retrieves all devices for a user with masked tokens.
func (s *Service) List(ctx context.Context, userID string) (*models.DeviceList, error) {
	devices, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	items := make([]models.Device, 0, len(devices))
	for _, d := range devices {
		items = append(items, toAPIDevice(d))
	}
	return &models.DeviceList{Devices: items}, nil
}

// Register registers a new device or refreshes the user's existing device
// holding the same token. Returns whether a device was created.
func (s *Service) Register(ctx context.Context, userID string, input *models.DeviceRegisterRequest) (*models.Device, bool, error) {
	if err := validateRegistration(input); err != nil {
		return nil, false, err
	}

	fcm := nonEmpty(input.FCMToken)
	apns := nonEmpty(input.APNSToken)
	now := s.now()

	existing, err := s.repo.FindByUserToken(ctx, userID, fcm, apns)
	switch {
	case err == nil:
		existing.Platform = Platform(input.Platform)
		existing.FCMToken = fcm
		existing.APNSToken = apns
		if input.DeviceInfo != nil {
			existing.DeviceInfo = input.DeviceInfo
		}
		existing.IsActive = true
		existing.LastUsedAt = now
		existing.UpdatedAt = now
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("updating device: %w", err)
		}
		result := toAPIDevice(existing)
		return &result, false, nil
	case !errors.Is(err, ErrDeviceNotFound):
		return nil, false, fmt.Errorf("finding device: %w", err)
	}

	device := &Device{
		ID:         "dev_" + uuid.New().String()[:22],
		UserID:     userID,
		Platform:   Platform(input.Platform),
		FCMToken:   fcm,
		APNSToken:  apns,
		DeviceInfo: input.DeviceInfo,
		IsActive:   true,
		LastUsedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, device); err != nil {
		return nil, false, fmt.Errorf("creating device: %w", err)
	}

	result := toAPIDevice(device)
	return &result, true, nil
}

// Remove deletes a device owned by the user.
func (s *Service) Remove(ctx context.Context, userID, deviceID string) error {
	device, err := s.repo.GetByID(ctx, deviceID)
	if err != nil {
		return err
	}
	if device.UserID != userID {
		return ErrNotOwner
	}
	return s.repo.Delete(ctx, deviceID)
}

// PushTokens returns the FCM tokens of the user's active devices.
func (s *Service) PushTokens(ctx context.Context, userID string) ([]string, error) {
	devices, err := s.repo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing active devices: %w", err)
	}

	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		if d.FCMToken != nil && *d.FCMToken != "" {
			tokens = append(tokens, *d.FCMToken)
		}
	}
	return tokens, nil
}

// DeleteByToken removes devices holding an FCM token the provider rejected.
func (s *Service) DeleteByToken(ctx context.Context, token string) error {
	if _, err := s.repo.DeleteByFCMToken(ctx, token); err != nil {
		return fmt.Errorf("deleting device by token: %w", err)
	}
	return nil
}

func validateRegistration(input *models.DeviceRegisterRequest) error {
	platform := Platform(input.Platform)
	if !platform.Valid() {
		return models.NewValidationError("platform", "must be ios or android", models.CodeInvalid)
	}
	if platform == PlatformAndroid && nonEmpty(input.FCMToken) == nil {
		return models.NewValidationError("fcmToken", "required for android devices", models.CodeRequired)
	}
	if platform == PlatformIOS && nonEmpty(input.APNSToken) == nil {
		return models.NewValidationError("apnsToken", "required for ios devices", models.CodeRequired)
	}
	return nil
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// toAPIDevice converts a domain Device to an API Device.
func toAPIDevice(d *Device) models.Device {
	return models.Device{
		ID:         d.ID,
		Platform:   models.DevicePlatform(d.Platform),
		FCMToken:   maskPtr(d.FCMToken),
		APNSToken:  maskPtr(d.APNSToken),
		DeviceInfo: d.DeviceInfo,
		IsActive:   d.IsActive,
		LastUsedAt: models.Timestamp(d.LastUsedAt),
		CreatedAt:  models.Timestamp(d.CreatedAt),
		UpdatedAt:  models.Timestamp(d.UpdatedAt),
	}
}

func maskPtr(token *string) *string {
	if token == nil {
		return nil
	}
	masked := MaskToken(*token)
	return &masked
}
