package models

// DevicePlatform is the mobile OS a device runs.
type DevicePlatform string

const (
	DevicePlatformIOS     DevicePlatform = "ios"
	DevicePlatformAndroid DevicePlatform = "android"
)

// Device is a registered push device. Tokens are masked.
type Device struct {
	ID         string         `json:"id"`
	Platform   DevicePlatform `json:"platform"`
	FCMToken   *string        `json:"fcmToken"`
	APNSToken  *string        `json:"apnsToken"`
	DeviceInfo *string        `json:"deviceInfo,omitempty"`
	IsActive   bool           `json:"isActive"`
	LastUsedAt Timestamp      `json:"lastUsedAt"`
	CreatedAt  Timestamp      `json:"createdAt"`
	UpdatedAt  Timestamp      `json:"updatedAt"`
}

// DeviceRegisterRequest is the request body for POST /v1/devices.
type DeviceRegisterRequest struct {
	Platform   DevicePlatform `json:"platform"`
	FCMToken   *string        `json:"fcmToken,omitempty"`
	APNSToken  *string        `json:"apnsToken,omitempty"`
	DeviceInfo *string        `json:"deviceInfo,omitempty"`
}

// DeviceList is the response of GET /v1/devices.
type DeviceList struct {
	Devices []Device `json:"devices"`
}
