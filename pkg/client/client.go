// Package client is a Go client for the WaterTime HTTP API.
//
// It keeps the signed-in session's tokens and replays push-token
// registrations that were queued before login.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/watertime/watertime/internal/api/models"
	"github.com/watertime/watertime/internal/devicesync"
	"github.com/watertime/watertime/internal/resilience"
)

// DefaultTimeout bounds each API call.
const DefaultTimeout = 10 * time.Second

// Response types shared with the server.
type (
	AuthResponse     = models.AuthResponse
	UserProfile      = models.UserProfile
	Intake           = models.Intake
	DailyIntake      = models.DailyIntake
	IntakeHistory    = models.IntakeHistory
	PeriodStats      = models.PeriodStats
	UserStats        = models.UserStats
	Device           = models.Device
	DeviceList       = models.DeviceList
	Notification     = models.Notification
	NotificationList = models.NotificationList
	Problem          = models.Problem
)

// ErrNotAuthenticated is returned by calls that need a session before one exists.
var ErrNotAuthenticated = errors.New("client: not signed in")

// Error is a non-2xx API response.
type Error struct {
	StatusCode int
	Problem    *Problem
}

func (e *Error) Error() string {
	if e.Problem != nil && e.Problem.Detail != "" {
		return fmt.Sprintf("watertime: %d %s: %s", e.StatusCode, e.Problem.Title, e.Problem.Detail)
	}
	return fmt.Sprintf("watertime: unexpected status %d", e.StatusCode)
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds configuration for the client.
type Config struct {
	// BaseURL is the API root, e.g. https://api.watertime.app.
	BaseURL string

	// HTTPClient executes requests. If nil, a circuit-breaking client
	// without retries is created.
	HTTPClient HTTPDoer

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration
}

// Client is a WaterTime API client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient HTTPDoer

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
}

// New creates a new client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpClient = resilience.NewClient(resilience.ClientConfig{
			Name:       "watertime-api",
			Timeout:    timeout,
			MaxRetries: -1,
		})
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

// SetTokens restores a saved session.
func (c *Client) SetTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = access
	c.refreshToken = refresh
}

// Tokens returns the current session tokens.
func (c *Client) Tokens() (access, refresh string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken, c.refreshToken
}

// Register creates an account and signs in.
func (c *Client) Register(ctx context.Context, email, password, name string) (*AuthResponse, error) {
	var out AuthResponse
	req := models.RegisterRequest{Email: email, Password: password, Name: name}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/register", req, &out, false); err != nil {
		return nil, err
	}
	c.SetTokens(out.AccessToken, out.RefreshToken)
	return &out, nil
}

// Login signs in with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/login", req, &out, false); err != nil {
		return nil, err
	}
	c.SetTokens(out.AccessToken, out.RefreshToken)
	return &out, nil
}

// Refresh rotates the session tokens.
func (c *Client) Refresh(ctx context.Context) error {
	_, refresh := c.Tokens()
	if refresh == "" {
		return ErrNotAuthenticated
	}

	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/v1/auth/refresh", models.RefreshRequest{RefreshToken: refresh}, &out, false); err != nil {
		return err
	}
	c.SetTokens(out.AccessToken, out.RefreshToken)
	return nil
}

// Logout revokes the refresh token and forgets the session.
func (c *Client) Logout(ctx context.Context) error {
	_, refresh := c.Tokens()
	if refresh == "" {
		return nil
	}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/logout", models.RefreshRequest{RefreshToken: refresh}, nil, false); err != nil {
		return err
	}
	c.SetTokens("", "")
	return nil
}

// LoginAndSync signs in, then flushes the pending device-sync queue.
// A failed flush does not undo the login; the failures are in the result.
func (c *Client) LoginAndSync(ctx context.Context, email, password string, queue *devicesync.Queue) (*AuthResponse, devicesync.FlushResult, error) {
	auth, err := c.Login(ctx, email, password)
	if err != nil {
		return nil, devicesync.FlushResult{}, err
	}

	result, err := queue.Flush(ctx, c.RegisterPending)
	if err != nil {
		return auth, result, fmt.Errorf("flushing pending devices: %w", err)
	}
	return auth, result, nil
}

// RegisterPending registers a queued token. It satisfies devicesync.RegisterFunc.
func (c *Client) RegisterPending(ctx context.Context, token string, info devicesync.DeviceInfo) error {
	_, err := c.RegisterDevice(ctx, token, info)
	return err
}

// Me returns the signed-in user's profile.
func (c *Client) Me(ctx context.Context) (*UserProfile, error) {
	var out UserProfile
	if err := c.do(ctx, http.MethodGet, "/v1/auth/me", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// LogIntake records an intake of amount ml. source may be empty.
func (c *Client) LogIntake(ctx context.Context, amount int, source string, note *string) (*Intake, error) {
	var out Intake
	req := models.IntakeCreateRequest{Amount: amount, Source: models.IntakeSource(source), Note: note}
	if err := c.do(ctx, http.MethodPost, "/v1/intake", req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Today returns today's summary and intakes.
func (c *Client) Today(ctx context.Context) (*DailyIntake, error) {
	var out DailyIntake
	if err := c.do(ctx, http.MethodGet, "/v1/intake/today", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Daily returns the summary of one date.
func (c *Client) Daily(ctx context.Context, date time.Time) (*DailyIntake, error) {
	var out DailyIntake
	path := "/v1/intake/daily?date=" + date.Format("2006-01-02")
	if err := c.do(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns per-day totals of the last days.
func (c *Client) History(ctx context.Context, days int) (*IntakeHistory, error) {
	var out IntakeHistory
	path := "/v1/intake/history?days=" + strconv.Itoa(days)
	if err := c.do(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteIntake removes an intake.
func (c *Client) DeleteIntake(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/intake/"+url.PathEscape(id), nil, nil, true)
}

// UpdateGoal sets the daily goal in ml.
func (c *Client) UpdateGoal(ctx context.Context, goal int) (*UserProfile, error) {
	var out UserProfile
	g := float64(goal)
	if err := c.do(ctx, http.MethodPut, "/v1/user/goal", models.GoalUpdateRequest{Goal: &g}, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Weekly returns the weekly period summary. A nil start uses the server default.
func (c *Client) Weekly(ctx context.Context, start *time.Time) (*PeriodStats, error) {
	return c.period(ctx, "/v1/user/stats/weekly", start)
}

// Monthly returns the monthly period summary. A nil start uses the server default.
func (c *Client) Monthly(ctx context.Context, start *time.Time) (*PeriodStats, error) {
	return c.period(ctx, "/v1/user/stats/monthly", start)
}

func (c *Client) period(ctx context.Context, path string, start *time.Time) (*PeriodStats, error) {
	if start != nil {
		path += "?startDate=" + start.Format("2006-01-02")
	}
	var out PeriodStats
	if err := c.do(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisterDevice registers a push token. ios tokens are sent as APNs
// tokens, everything else as FCM tokens.
func (c *Client) RegisterDevice(ctx context.Context, token string, info devicesync.DeviceInfo) (*Device, error) {
	req := models.DeviceRegisterRequest{Platform: models.DevicePlatform(info.Platform)}
	if req.Platform == models.DevicePlatformIOS {
		req.APNSToken = &token
	} else {
		req.FCMToken = &token
	}
	if desc := describe(info); desc != "" {
		req.DeviceInfo = &desc
	}

	var out Device
	if err := c.do(ctx, http.MethodPost, "/v1/devices", req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Devices lists registered devices.
func (c *Client) Devices(ctx context.Context) (*DeviceList, error) {
	var out DeviceList
	if err := c.do(ctx, http.MethodGet, "/v1/devices", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Notifications lists recent notifications. limit <= 0 uses the server default.
func (c *Client) Notifications(ctx context.Context, limit int) (*NotificationList, error) {
	path := "/v1/notifications"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out NotificationList
	if err := c.do(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkAllRead marks every notification read and returns how many changed.
func (c *Client) MarkAllRead(ctx context.Context) (int, error) {
	var out models.MarkAllReadResult
	if err := c.do(ctx, http.MethodPut, "/v1/notifications/read-all", nil, &out, true); err != nil {
		return 0, err
	}
	return out.Updated, nil
}

// SendTestNotification asks the server to push a hydration tip.
func (c *Client) SendTestNotification(ctx context.Context) (*Notification, error) {
	var out Notification
	if err := c.do(ctx, http.MethodPost, "/v1/notifications/test", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func describe(info devicesync.DeviceInfo) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{info.Model, info.OSVersion, info.AppVersion} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "; ")
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, authed bool) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		access, _ := c.Tokens()
		if access == "" {
			return ErrNotAuthenticated
		}
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		var problem Problem
		if err := json.NewDecoder(resp.Body).Decode(&problem); err == nil && problem.Status != 0 {
			apiErr.Problem = &problem
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
