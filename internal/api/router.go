// Package api provides the HTTP API for WaterTime.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/watertime/watertime/internal/api/handler"
	"github.com/watertime/watertime/internal/api/middleware"
	"github.com/watertime/watertime/internal/auth"
	"github.com/watertime/watertime/internal/device"
	"github.com/watertime/watertime/internal/intake"
	"github.com/watertime/watertime/internal/notification"
	"github.com/watertime/watertime/internal/resilience"
	"github.com/watertime/watertime/internal/stats"
	"github.com/watertime/watertime/internal/user"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	AuthService         *auth.Service
	UserService         *user.Service
	IntakeService       *intake.Service
	StatsService        *stats.Service
	DeviceService       *device.Service
	NotificationService *notification.Service

	// Dependencies are reported by /v1/ops/ready and /v1/ops/status.
	Dependencies map[string]handler.Pinger
	Providers    *resilience.Registry
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "watertime-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.RequireJSON)

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:      cfg.Version,
		BuildTime:    cfg.BuildTime,
		Dependencies: cfg.Dependencies,
		Providers:    cfg.Providers,
		Logger:       cfg.Logger,
	})
	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.UserService, cfg.Logger)
	intakeHandler := handler.NewIntakeHandler(cfg.IntakeService, cfg.StatsService, cfg.Logger)
	userHandler := handler.NewUserHandler(cfg.UserService, cfg.StatsService, cfg.Logger)
	deviceHandler := handler.NewDeviceHandler(cfg.DeviceService, cfg.Logger)
	notificationHandler := handler.NewNotificationHandler(cfg.NotificationService, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.AuthService)

	authRateLimit := middleware.RateLimitByIP(middleware.AuthRateLimit)         // 10 req/min
	userRateLimit := middleware.RateLimitByUser(middleware.StandardRateLimit)   // 100 req/min
	pushRateLimit := middleware.RateLimitByUser(middleware.PushRateLimit)       // 5 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		// Auth endpoints (public) - strict rate limiting
		r.Route("/auth", func(r chi.Router) {
			r.Use(authRateLimit)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
			r.Post("/logout", authHandler.Logout)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware)
				r.Post("/logout-all", authHandler.LogoutAll)
				r.Get("/me", authHandler.Me)
			})
		})

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Everything below acts on the authenticated user's data
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(userRateLimit)

			r.Route("/intake", func(r chi.Router) {
				r.Post("/", intakeHandler.Create)
				r.Get("/daily", intakeHandler.Daily)
				r.Get("/today", intakeHandler.Today)
				r.Get("/history", intakeHandler.History)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", intakeHandler.Get)
					r.Put("/", intakeHandler.Update)
					r.Delete("/", intakeHandler.Delete)
				})
			})

			r.Route("/user", func(r chi.Router) {
				r.Get("/profile", userHandler.GetProfile)
				r.Put("/profile", userHandler.UpdateProfile)
				r.Put("/goal", userHandler.UpdateGoal)
				r.Get("/stats", userHandler.Stats)
				r.Get("/stats/weekly", userHandler.Weekly)
				r.Get("/stats/monthly", userHandler.Monthly)
			})

			r.Route("/devices", func(r chi.Router) {
				r.Get("/", deviceHandler.ListDevices)
				r.Post("/", deviceHandler.RegisterDevice)
				r.Delete("/{id}", deviceHandler.DeleteDevice)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", notificationHandler.List)
				r.Get("/unread-count", notificationHandler.UnreadCount)
				r.Put("/read-all", notificationHandler.MarkAllRead)
				r.Put("/{id}/read", notificationHandler.MarkRead)
				r.With(pushRateLimit).Post("/test", notificationHandler.SendTest)
			})
		})
	})

	return r
}
