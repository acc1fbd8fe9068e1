package messaging_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watertime/watertime/internal/messaging"
)

type fakeTransport struct {
	mu      sync.Mutex
	sent    []string
	invalid map[string]bool
	broken  map[string]bool
}

func (f *fakeTransport) Name() string { return "fake" }

func (f *fakeTransport) SendToToken(_ context.Context, token string, _ messaging.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.invalid[token]:
		return messaging.ErrInvalidToken
	case f.broken[token]:
		return errors.New("provider unavailable")
	}
	f.sent = append(f.sent, token)
	return nil
}

func (f *fakeTransport) SendToTopic(_ context.Context, topic string, _ messaging.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, "topic:"+topic)
	return nil
}

type fakeTokens struct {
	mu      sync.Mutex
	tokens  map[string][]string
	deleted []string
}

func (f *fakeTokens) PushTokens(_ context.Context, userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[userID], nil
}

func (f *fakeTokens) DeleteByToken(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, token)
	return nil
}

func TestDispatcher_SendPushNotification(t *testing.T) {
	transport := &fakeTransport{
		invalid: map[string]bool{"stale": true},
		broken:  map[string]bool{"flaky": true},
	}
	tokens := &fakeTokens{tokens: map[string][]string{"usr_1": {"good-1", "stale", "flaky", "good-2"}}}
	d := messaging.NewDispatcher(messaging.DispatcherConfig{
		Transport: transport,
		Tokens:    tokens,
		Logger:    zerolog.Nop(),
	})

	result, err := d.SendPushNotification(context.Background(), "usr_1", messaging.Message{Title: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 2, result.FailureCount)
	assert.Equal(t, []string{"stale"}, result.InvalidTokens)
	assert.Equal(t, []string{"stale"}, tokens.deleted)

	sort.Strings(transport.sent)
	assert.Equal(t, []string{"good-1", "good-2"}, transport.sent)
}

func TestDispatcher_NoDevices(t *testing.T) {
	d := messaging.NewDispatcher(messaging.DispatcherConfig{
		Transport: &fakeTransport{},
		Tokens:    &fakeTokens{},
		Logger:    zerolog.Nop(),
	})

	result, err := d.SendPushNotification(context.Background(), "usr_none", messaging.Message{})
	require.NoError(t, err)
	assert.Equal(t, messaging.Result{}, result)
}

func TestDispatcher_Disabled(t *testing.T) {
	d := messaging.NewDispatcher(messaging.DispatcherConfig{Tokens: &fakeTokens{}, Logger: zerolog.Nop()})

	assert.False(t, d.Enabled())
	_, err := d.SendPushNotification(context.Background(), "usr_1", messaging.Message{})
	assert.ErrorIs(t, err, messaging.ErrDisabled)
	assert.ErrorIs(t, d.SendToTopic(context.Background(), "tips", messaging.Message{}), messaging.ErrDisabled)
}

func TestDispatcher_SendToDeviceAndTopic(t *testing.T) {
	transport := &fakeTransport{invalid: map[string]bool{"stale": true}}
	d := messaging.NewDispatcher(messaging.DispatcherConfig{
		Transport: transport,
		Tokens:    &fakeTokens{},
		Logger:    zerolog.Nop(),
	})
	ctx := context.Background()

	require.NoError(t, d.SendToDevice(ctx, "fresh", messaging.Message{}))
	assert.ErrorIs(t, d.SendToDevice(ctx, "stale", messaging.Message{}), messaging.ErrInvalidToken)
	require.NoError(t, d.SendToTopic(ctx, "tips", messaging.Message{}))
	assert.Equal(t, []string{"fresh", "topic:tips"}, transport.sent)
}
