package client_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/watertime/watertime/internal/api"
	"github.com/watertime/watertime/internal/auth"
	"github.com/watertime/watertime/internal/device"
	"github.com/watertime/watertime/internal/devicesync"
	"github.com/watertime/watertime/internal/intake"
	"github.com/watertime/watertime/internal/notification"
	"github.com/watertime/watertime/internal/stats"
	"github.com/watertime/watertime/internal/user"
	"github.com/watertime/watertime/pkg/client"
)

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := zerolog.New(io.Discard)
	users := user.NewService(user.NewInMemoryRepository())
	intakes := intake.NewService(intake.ServiceConfig{Repo: intake.NewInMemoryRepository(), Logger: logger, Location: time.UTC})

	router := api.NewRouter(api.RouterConfig{
		Logger: logger,
		AuthService: auth.NewService(auth.ServiceConfig{
			JWTService: auth.NewJWTService(auth.JWTConfig{
				SigningKey: "client-test-key",
				Issuer:     "https://api.watertime.test",
				Audience:   "watertime-api",
			}),
			UserRepo:    auth.NewInMemoryUserRepository(),
			RefreshRepo: auth.NewInMemoryRefreshTokenRepository(),
			Profiles: auth.ProfileCreatorFunc(func(ctx context.Context, userID, email, name string, goal *int) error {
				_, err := users.CreateUser(ctx, userID, email, name, goal)
				return err
			}),
			HashCost: bcrypt.MinCost,
		}),
		UserService:         users,
		IntakeService:       intakes,
		StatsService:        stats.NewService(stats.ServiceConfig{Users: users, Intakes: intakes, Location: time.UTC}),
		DeviceService:       device.NewService(device.NewInMemoryRepository()),
		NotificationService: notification.NewService(notification.ServiceConfig{Repo: notification.NewInMemoryRepository(), Logger: logger}),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_IntakeFlow(t *testing.T) {
	srv := newAPIServer(t)
	c := client.New(client.Config{BaseURL: srv.URL})
	ctx := context.Background()

	auth, err := c.Register(ctx, "sdk@example.com", "hunter22", "SDK")
	require.NoError(t, err)
	require.NotNil(t, auth.User)
	assert.Equal(t, 2000, auth.User.Goal)

	_, err = c.LogIntake(ctx, 500, "", nil)
	require.NoError(t, err)
	_, err = c.LogIntake(ctx, 1500, "reminder", nil)
	require.NoError(t, err)

	today, err := c.Today(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2000, today.TotalAmount)
	assert.Equal(t, 100, today.Percentage)
	assert.Equal(t, 0, today.Remaining)

	weekly, err := c.Weekly(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2000, weekly.Summary.TotalAmount)
	assert.Equal(t, 1, weekly.Summary.DaysMetGoal)

	profile, err := c.UpdateGoal(ctx, 3000)
	require.NoError(t, err)
	assert.Equal(t, 3000, profile.Goal)
}

func TestClient_ErrorsCarryProblem(t *testing.T) {
	srv := newAPIServer(t)
	c := client.New(client.Config{BaseURL: srv.URL})
	ctx := context.Background()

	_, err := c.Today(ctx)
	assert.ErrorIs(t, err, client.ErrNotAuthenticated)

	_, err = c.Login(ctx, "nobody@example.com", "hunter22")
	var apiErr *client.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.NotNil(t, apiErr.Problem)

	_, err = c.Register(ctx, "val@example.com", "hunter22", "")
	require.NoError(t, err)

	_, err = c.LogIntake(ctx, 6000, "", nil)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	require.Len(t, apiErr.Problem.Errors, 1)
	assert.Equal(t, "amount", apiErr.Problem.Errors[0].Field)
}

func TestClient_LoginAndSyncFlushesQueue(t *testing.T) {
	srv := newAPIServer(t)
	ctx := context.Background()

	setup := client.New(client.Config{BaseURL: srv.URL})
	_, err := setup.Register(ctx, "sync@example.com", "hunter22", "")
	require.NoError(t, err)

	queue := devicesync.NewQueue(devicesync.NewMemoryStore(), zerolog.Nop())
	_, err = queue.Enqueue(ctx, "fcm-token-aaaaaaaaaaaaaaaa", devicesync.DeviceInfo{Platform: "android", Model: "Pixel 8"})
	require.NoError(t, err)
	_, err = queue.Enqueue(ctx, "web-token", devicesync.DeviceInfo{Platform: "web"})
	require.NoError(t, err)
	_, err = queue.Enqueue(ctx, "apns-token-bbbbbbbbbbbbbbbb", devicesync.DeviceInfo{Platform: "ios"})
	require.NoError(t, err)

	c := client.New(client.Config{BaseURL: srv.URL})
	_, result, err := c.LoginAndSync(ctx, "sync@example.com", "hunter22", queue)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Registered)
	assert.Equal(t, 1, result.Failed)

	pending, err := queue.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "web-token", pending[0].Token)

	devices, err := c.Devices(ctx)
	require.NoError(t, err)
	assert.Len(t, devices.Devices, 2)
}

func TestClient_RefreshAndLogout(t *testing.T) {
	srv := newAPIServer(t)
	c := client.New(client.Config{BaseURL: srv.URL})
	ctx := context.Background()

	_, err := c.Register(ctx, "tokens@example.com", "hunter22", "")
	require.NoError(t, err)
	_, oldRefresh := c.Tokens()

	require.NoError(t, c.Refresh(ctx))
	_, newRefresh := c.Tokens()
	assert.NotEqual(t, oldRefresh, newRefresh)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tokens@example.com", me.Email)

	require.NoError(t, c.Logout(ctx))
	access, refresh := c.Tokens()
	assert.Empty(t, access)
	assert.Empty(t, refresh)
	assert.ErrorIs(t, c.Refresh(ctx), client.ErrNotAuthenticated)
}

func TestClient_Notifications(t *testing.T) {
	srv := newAPIServer(t)
	c := client.New(client.Config{BaseURL: srv.URL})
	ctx := context.Background()

	_, err := c.Register(ctx, "tips@example.com", "hunter22", "")
	require.NoError(t, err)

	sent, err := c.SendTestNotification(ctx)
	require.NoError(t, err)
	assert.Equal(t, notification.TestTip, sent.Message)

	list, err := c.Notifications(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, list.UnreadCount)

	updated, err := c.MarkAllRead(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
}
