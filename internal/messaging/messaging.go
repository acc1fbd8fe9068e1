// Package messaging delivers push notifications to mobile devices.
package messaging

import (
	"context"
	"errors"
)

var (
	// ErrDisabled is returned when no push provider is configured.
	ErrDisabled = errors.New("push messaging is disabled")

	// ErrInvalidToken is returned when the provider no longer accepts a device token.
	ErrInvalidToken = errors.New("device token is invalid or unregistered")
)

// Message is a push notification payload.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Result summarises a multi-device send.
type Result struct {
	SuccessCount  int
	FailureCount  int
	InvalidTokens []string
}

// Transport sends a single message to a provider.
type Transport interface {
	// Name identifies the provider, e.g. "fcm".
	Name() string

	SendToToken(ctx context.Context, token string, msg Message) error
	SendToTopic(ctx context.Context, topic string, msg Message) error
}

// NoopTransport is used when messaging is not configured. Every send
// returns ErrDisabled.
type NoopTransport struct{}

// Name implements Transport.
func (NoopTransport) Name() string { return "noop" }

// SendToToken implements Transport.
func (NoopTransport) SendToToken(context.Context, string, Message) error { return ErrDisabled }

// SendToTopic implements Transport.
func (NoopTransport) SendToTopic(context.Context, string, Message) error { return ErrDisabled }
