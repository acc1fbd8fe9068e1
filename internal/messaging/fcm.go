package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/watertime/watertime/internal/resilience"
)

// fcmScope is the OAuth2 scope required by the FCM HTTP v1 API.
const fcmScope = "https://www.googleapis.com/auth/firebase.messaging"

// DefaultFCMBaseURL is the production FCM endpoint.
const DefaultFCMBaseURL = "https://fcm.googleapis.com"

// FCMConfig holds configuration for the FCM transport.
type FCMConfig struct {
	ProjectID string

	// BaseURL overrides the FCM endpoint (default: DefaultFCMBaseURL).
	BaseURL string

	// CredentialsFile is a service account JSON file. Empty uses
	// Application Default Credentials.
	CredentialsFile string

	// TokenSource overrides credential discovery.
	TokenSource oauth2.TokenSource

	// Registry receives the health of the FCM client. Optional.
	Registry *resilience.Registry

	Timeout time.Duration
}

// FCMTransport sends messages through the Firebase Cloud Messaging HTTP v1 API.
type FCMTransport struct {
	client    *resilience.Client
	baseURL   string
	projectID string
}

// NewFCMTransport creates an FCM transport authenticated with OAuth2.
func NewFCMTransport(ctx context.Context, cfg FCMConfig) (*FCMTransport, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("fcm: project ID is required")
	}

	ts := cfg.TokenSource
	if ts == nil {
		creds, err := loadCredentials(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("fcm: loading credentials: %w", err)
		}
		ts = creds.TokenSource
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultFCMBaseURL
	}

	client := resilience.NewClient(resilience.ClientConfig{
		Name:      "fcm",
		Timeout:   cfg.Timeout,
		Registry:  cfg.Registry,
		Transport: &oauth2.Transport{Source: oauth2.ReuseTokenSource(nil, ts)},
	})

	return &FCMTransport{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		projectID: cfg.ProjectID,
	}, nil
}

func loadCredentials(ctx context.Context, file string) (*google.Credentials, error) {
	if file == "" {
		return google.FindDefaultCredentials(ctx, fcmScope)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return google.CredentialsFromJSON(ctx, data, fcmScope)
}

// Name implements Transport.
func (t *FCMTransport) Name() string { return "fcm" }

// SendToToken implements Transport.
func (t *FCMTransport) SendToToken(ctx context.Context, token string, msg Message) error {
	return t.send(ctx, fcmMessage{Token: token}, msg)
}

// SendToTopic implements Transport.
func (t *FCMTransport) SendToTopic(ctx context.Context, topic string, msg Message) error {
	return t.send(ctx, fcmMessage{Topic: topic}, msg)
}

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token,omitempty"`
	Topic        string            `json:"topic,omitempty"`
	Notification *fcmNotification  `json:"notification,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
	Android      *fcmAndroid       `json:"android,omitempty"`
	APNS         *fcmAPNS          `json:"apns,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmAndroid struct {
	Priority string `json:"priority"`
}

type fcmAPNS struct {
	Payload map[string]any `json:"payload"`
}

type fcmErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Type      string `json:"@type"`
			ErrorCode string `json:"errorCode"`
		} `json:"details"`
	} `json:"error"`
}

func (t *FCMTransport) send(ctx context.Context, target fcmMessage, msg Message) error {
	target.Notification = &fcmNotification{Title: msg.Title, Body: msg.Body}
	target.Data = msg.Data
	target.Android = &fcmAndroid{Priority: "high"}
	target.APNS = &fcmAPNS{Payload: map[string]any{"aps": map[string]any{"sound": "default"}}}

	body, err := json.Marshal(fcmRequest{Message: target})
	if err != nil {
		return fmt.Errorf("fcm: encoding message: %w", err)
	}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", t.baseURL, t.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("fcm: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("fcm: sending message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	var fe fcmErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&fe)

	if resp.StatusCode == http.StatusNotFound {
		return ErrInvalidToken
	}
	for _, d := range fe.Error.Details {
		if d.ErrorCode == "UNREGISTERED" {
			return ErrInvalidToken
		}
	}
	return fmt.Errorf("fcm: status %d %s: %s", resp.StatusCode, fe.Error.Status, fe.Error.Message)
}
