// Package main provides the entrypoint for the WaterTime reminder worker.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/watertime/watertime/internal/config"
	"github.com/watertime/watertime/internal/database"
	"github.com/watertime/watertime/internal/device"
	"github.com/watertime/watertime/internal/intake"
	"github.com/watertime/watertime/internal/logging"
	"github.com/watertime/watertime/internal/messaging"
	"github.com/watertime/watertime/internal/notification"
	"github.com/watertime/watertime/internal/reminder"
	"github.com/watertime/watertime/internal/resilience"
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
	const serviceName = "watertime-worker"

	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.New(logging.DefaultConfig(), serviceName, Version).Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.New(cfg.Log, serviceName, Version)
	defer logger.Close() //nolint:errcheck // best effort on exit
	log := logger.Logger

	log.Info().Str("build_time", BuildTime).Msg("starting WaterTime worker")

	loc, err := cfg.App.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid timezone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	pushMetrics, err := messaging.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize push metrics")
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	registry := resilience.NewRegistry()
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
	}

	userService := user.NewService(user.NewPostgresRepository(pool))
	notificationService := notification.NewService(notification.ServiceConfig{
		Repo: notification.NewPostgresRepository(pool),
		Pusher: messaging.NewDispatcher(messaging.DispatcherConfig{
			Transport: transport,
			Tokens:    device.NewService(device.NewPostgresRepository(pool)),
			Logger:    log,
			Metrics:   pushMetrics,
		}),
		Logger: log,
	})
	reminders := reminder.NewService(reminder.ServiceConfig{
		Users: userService,
		Intakes: intake.NewService(intake.ServiceConfig{
			Repo:     intake.NewPostgresRepository(pool),
			Logger:   log,
			Location: loc,
		}),
		Notifications: notificationService,
		Logger:        log,
		Location:      loc,
	})

	sweep := worker.NewSweepJob(worker.SweepJobConfig{
		Config: worker.SweepConfig{
			Concurrency: cfg.Reminder.Concurrency,
			Timeout:     cfg.Reminder.Timeout,
		},
		Users:     userService,
		Evaluator: reminders,
		Logger:    log,
	})
	runner := worker.NewRunner(reminders, sweep, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck // client went away
			"status":  "healthy",
			"version": Version,
			"sweep":   sweep.MetricsSnapshot(),
		})
	})
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Reminder.SweepInterval > 0 {
		g.Go(func() error {
			log.Info().Dur("interval", cfg.Reminder.SweepInterval).Msg("reminder sweep scheduled")
			return sweep.Schedule(gctx, cfg.Reminder.SweepInterval)
		})
	}

	if cfg.PubSub.ProjectID != "" && cfg.PubSub.Subscription != "" {
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSub.ProjectID,
			SubscriptionName: cfg.PubSub.Subscription,
			Runner:           runner,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize pubsub handler")
		}
		defer handler.Close() //nolint:errcheck // best effort on exit

		g.Go(func() error {
			return handler.Start(gctx)
		})
	} else {
		log.Warn().Msg("pubsub not configured - only the periodic sweep will run")
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("worker stopped with error")
		return
	}
	log.Info().Msg("worker stopped")
}
