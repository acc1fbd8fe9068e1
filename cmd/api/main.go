// Package main provides the entrypoint for the WaterTime API server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/watertime/watertime/internal/api"
	"github.com/watertime/watertime/internal/api/handler"
	"github.com/watertime/watertime/internal/api/middleware"
	"github.com/watertime/watertime/internal/auth"
	"github.com/watertime/watertime/internal/config"
	"github.com/watertime/watertime/internal/database"
	"github.com/watertime/watertime/internal/device"
	"github.com/watertime/watertime/internal/intake"
	"github.com/watertime/watertime/internal/logging"
	"github.com/watertime/watertime/internal/messaging"
	"github.com/watertime/watertime/internal/notification"
	"github.com/watertime/watertime/internal/reminder"
	"github.com/watertime/watertime/internal/resilience"
	"github.com/watertime/watertime/internal/stats"
	"github.com/watertime/watertime/internal/telemetry"
	"github.com/watertime/watertime/internal/user"
	"github.com/watertime/watertime/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "watertime-api"

	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		// Logging is not configured yet.
		logging.New(logging.DefaultConfig(), serviceName, Version).Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.New(cfg.Log, serviceName, Version)
	defer logger.Close() //nolint:errcheck // best effort on exit
	log := logger.Logger

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.App.Env).
		Msg("starting WaterTime API")

	if cfg.UsesDefaultSigningKey() {
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}

	loc, err := cfg.App.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid timezone")
	}

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.App.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize http metrics")
	}
	pushMetrics, err := messaging.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize push metrics")
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("database", cfg.Database.Database).
		Msg("database connected")

	// Users and accounts
	userService := user.NewService(user.NewPostgresRepository(pool))
	authService := auth.NewService(auth.ServiceConfig{
		JWTService: auth.NewJWTService(auth.JWTConfig{
			SigningKey: cfg.Auth.SigningKey,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
		}),
		UserRepo:    auth.NewPostgresUserRepository(pool),
		RefreshRepo: auth.NewPostgresRefreshTokenRepository(pool),
		Profiles: auth.ProfileCreatorFunc(func(ctx context.Context, userID, email, name string, goal *int) error {
			_, err := userService.CreateUser(ctx, userID, email, name, goal)
			return err
		}),
	})

	// Push delivery
	registry := resilience.NewRegistry()
	deviceService := device.NewService(device.NewPostgresRepository(pool))

	var transport messaging.Transport = messaging.NoopTransport{}
	if cfg.Messaging.FCMProjectID != "" {
		fcm, err := messaging.NewFCMTransport(ctx, messaging.FCMConfig{
			ProjectID:       cfg.Messaging.FCMProjectID,
			BaseURL:         cfg.Messaging.FCMBaseURL,
			CredentialsFile: cfg.Messaging.CredentialsFile,
			Registry:        registry,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize FCM")
		}
		transport = fcm
		log.Info().Str("project_id", cfg.Messaging.FCMProjectID).Msg("FCM push enabled")
	} else {
		log.Warn().Msg("FCM not configured - push notifications are recorded but not delivered")
	}

	dispatcher := messaging.NewDispatcher(messaging.DispatcherConfig{
		Transport: transport,
		Tokens:    deviceService,
		Logger:    log,
		Metrics:   pushMetrics,
	})
	notificationService := notification.NewService(notification.ServiceConfig{
		Repo:   notification.NewPostgresRepository(pool),
		Pusher: dispatcher,
		Logger: log,
	})

	// Intakes and reminders. Reminders read intakes through a service
	// without an observer so evaluation never re-triggers itself.
	intakeRepo := intake.NewPostgresRepository(pool)
	intakeReader := intake.NewService(intake.ServiceConfig{Repo: intakeRepo, Logger: log, Location: loc})

	var observer intake.Observer
	if cfg.PubSub.Topic != "" {
		publisher, err := worker.NewPublisher(ctx, worker.PublisherConfig{
			ProjectID: cfg.PubSub.ProjectID,
			Topic:     cfg.PubSub.Topic,
			Logger:    log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize reminder publisher")
		}
		defer publisher.Close() //nolint:errcheck // best effort on exit
		observer = publisher
		log.Info().Str("topic", cfg.PubSub.Topic).Msg("reminder checks published to worker")
	} else {
		observer = reminder.NewService(reminder.ServiceConfig{
			Users:         userService,
			Intakes:       intakeReader,
			Notifications: notificationService,
			Logger:        log,
			Location:      loc,
		})
		log.Info().Msg("reminder checks evaluated in-process")
	}

	intakeService := intake.NewService(intake.ServiceConfig{
		Repo:     intakeRepo,
		Observer: observer,
		Logger:   log,
		Location: loc,
	})
	statsService := stats.NewService(stats.ServiceConfig{
		Users:    userService,
		Intakes:  intakeReader,
		Location: loc,
	})

	router := api.NewRouter(api.RouterConfig{
		Version:             Version,
		BuildTime:           BuildTime,
		Logger:              log,
		ServiceName:         serviceName,
		Metrics:             httpMetrics,
		RequireTLS:          cfg.App.RequireTLS,
		AuthService:         authService,
		UserService:         userService,
		IntakeService:       intakeService,
		StatsService:        statsService,
		DeviceService:       deviceService,
		NotificationService: notificationService,
		Dependencies:        map[string]handler.Pinger{"postgres": pool},
		Providers:           registry,
	})

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
