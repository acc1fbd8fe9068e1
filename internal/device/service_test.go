package device_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watertime/watertime/internal/api/models"
	"github.com/watertime/watertime/internal/device"
)

func strPtr(s string) *string { return &s }

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", device.MaskToken("short"))
	assert.Equal(t, "****", device.MaskToken("exactly12chr"))
	assert.Equal(t, "abcdefgh...wxyz", device.MaskToken("abcdefghijklmnopqrstuvwxyz"))
}

func TestService_Register_Validation(t *testing.T) {
	svc := device.NewService(device.NewInMemoryRepository())
	ctx := context.Background()

	tests := []struct {
		name  string
		req   models.DeviceRegisterRequest
		field string
	}{
		{"unknown platform", models.DeviceRegisterRequest{Platform: "web", FCMToken: strPtr("tok")}, "platform"},
		{"android without fcm", models.DeviceRegisterRequest{Platform: models.DevicePlatformAndroid}, "fcmToken"},
		{"ios without apns", models.DeviceRegisterRequest{Platform: models.DevicePlatformIOS, FCMToken: strPtr("tok")}, "apnsToken"},
		{"android with empty fcm", models.DeviceRegisterRequest{Platform: models.DevicePlatformAndroid, FCMToken: strPtr("")}, "fcmToken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Register(ctx, "usr_1", &tt.req)
			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Errors[0].Field)
		})
	}
}

func TestService_Register_CreateThenUpdate(t *testing.T) {
	svc := device.NewService(device.NewInMemoryRepository())
	ctx := context.Background()

	req := &models.DeviceRegisterRequest{
		Platform:   models.DevicePlatformAndroid,
		FCMToken:   strPtr("fcm-token-0123456789"),
		DeviceInfo: strPtr("Pixel 8"),
	}

	first, created, err := svc.Register(ctx, "usr_1", req)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "fcm-toke...6789", *first.FCMToken)

	req.DeviceInfo = strPtr("Pixel 8 Pro")
	second, created, err := svc.Register(ctx, "usr_1", req)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Pixel 8 Pro", *second.DeviceInfo)

	// Same token for another user is a separate device.
	_, created, err = svc.Register(ctx, "usr_2", req)
	require.NoError(t, err)
	assert.True(t, created)

	list, err := svc.List(ctx, "usr_1")
	require.NoError(t, err)
	assert.Len(t, list.Devices, 1)
}

func TestService_Remove(t *testing.T) {
	svc := device.NewService(device.NewInMemoryRepository())
	ctx := context.Background()

	d, _, err := svc.Register(ctx, "usr_1", &models.DeviceRegisterRequest{
		Platform:  models.DevicePlatformIOS,
		APNSToken: strPtr("apns-token-abcdefgh"),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Remove(ctx, "usr_1", "dev_missing"), device.ErrDeviceNotFound)
	assert.ErrorIs(t, svc.Remove(ctx, "usr_2", d.ID), device.ErrNotOwner)
	require.NoError(t, svc.Remove(ctx, "usr_1", d.ID))

	list, err := svc.List(ctx, "usr_1")
	require.NoError(t, err)
	assert.Empty(t, list.Devices)
}

func TestService_PushTokensAndDeleteByToken(t *testing.T) {
	svc := device.NewService(device.NewInMemoryRepository())
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "usr_1", &models.DeviceRegisterRequest{
		Platform: models.DevicePlatformAndroid,
		FCMToken: strPtr("fcm-aaaaaaaaaaaa"),
	})
	require.NoError(t, err)
	_, _, err = svc.Register(ctx, "usr_1", &models.DeviceRegisterRequest{
		Platform:  models.DevicePlatformIOS,
		APNSToken: strPtr("apns-only-token-1"),
	})
	require.NoError(t, err)

	tokens, err := svc.PushTokens(ctx, "usr_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"fcm-aaaaaaaaaaaa"}, tokens)

	require.NoError(t, svc.DeleteByToken(ctx, "fcm-aaaaaaaaaaaa"))
	tokens, err = svc.PushTokens(ctx, "usr_1")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
