package messaging_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/watertime/watertime/internal/messaging"
	"github.com/watertime/watertime/internal/resilience"
)

func newFCM(t *testing.T, handler http.HandlerFunc) (*messaging.FCMTransport, *resilience.Registry) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	registry := resilience.NewRegistry()
	transport, err := messaging.NewFCMTransport(context.Background(), messaging.FCMConfig{
		ProjectID:   "watertime-test",
		BaseURL:     server.URL,
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-access-token"}),
		Registry:    registry,
	})
	require.NoError(t, err)
	return transport, registry
}

func TestFCMTransport_SendToToken(t *testing.T) {
	bodies := make(chan map[string]any, 1)
	transport, registry := newFCM(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/projects/watertime-test/messages:send", r.URL.Path)
		assert.Equal(t, "Bearer test-access-token", r.Header.Get("Authorization"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		_, _ = w.Write([]byte(`{"name":"projects/watertime-test/messages/1"}`))
	})

	err := transport.SendToToken(context.Background(), "device-token", messaging.Message{
		Title: "WaterTime Reminder",
		Body:  "Keep going!",
		Data:  map[string]string{"type": "reminder"},
	})
	require.NoError(t, err)

	got := <-bodies
	msg := got["message"].(map[string]any)
	assert.Equal(t, "device-token", msg["token"])
	assert.Equal(t, "WaterTime Reminder", msg["notification"].(map[string]any)["title"])
	assert.Equal(t, "reminder", msg["data"].(map[string]any)["type"])

	h, ok := registry.Health("fcm")
	require.True(t, ok)
	assert.NotNil(t, h.LastSuccessAt)
}

func TestFCMTransport_SendToTopic(t *testing.T) {
	bodies := make(chan map[string]map[string]any, 1)
	transport, _ := newFCM(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, transport.SendToTopic(context.Background(), "tips", messaging.Message{Title: "t", Body: "b"}))
	got := <-bodies
	assert.Equal(t, "tips", got["message"]["topic"])
	assert.Nil(t, got["message"]["token"])
}

func TestFCMTransport_InvalidToken(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, `{"error":{"code":404,"status":"NOT_FOUND"}}`},
		{"unregistered", http.StatusBadRequest, `{"error":{"code":400,"status":"INVALID_ARGUMENT","details":[{"@type":"type.googleapis.com/google.firebase.fcm.v1.FcmError","errorCode":"UNREGISTERED"}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport, _ := newFCM(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			err := transport.SendToToken(context.Background(), "stale", messaging.Message{})
			assert.ErrorIs(t, err, messaging.ErrInvalidToken)
		})
	}
}

func TestFCMTransport_OtherError(t *testing.T) {
	transport, _ := newFCM(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"status":"PERMISSION_DENIED","message":"sender id mismatch"}}`))
	})

	err := transport.SendToToken(context.Background(), "tok", messaging.Message{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, messaging.ErrInvalidToken)
	assert.Contains(t, err.Error(), "sender id mismatch")
}

func TestNewFCMTransport_RequiresProject(t *testing.T) {
	_, err := messaging.NewFCMTransport(context.Background(), messaging.FCMConfig{
		TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "x"}),
	})
	assert.Error(t, err)
}
