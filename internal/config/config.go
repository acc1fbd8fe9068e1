// Package config loads WaterTime configuration.
//
// Values are resolved in three layers: built-in defaults, an optional YAML
// file, then environment variables. Environment always wins so container
// deployments can override a baked-in file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/watertime/watertime/internal/database"
	"github.com/watertime/watertime/internal/logging"
)

// DefaultSigningKey is used when JWT_SIGNING_KEY is unset. Never use it outside development.
const DefaultSigningKey = "local-dev-signing-key-change-in-production"

// Config is the complete service configuration.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Log       logging.Config  `yaml:"log"`
	Database  database.Config `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Messaging MessagingConfig `yaml:"messaging"`
	PubSub    PubSubConfig    `yaml:"pubsub"`
	Reminder  ReminderConfig  `yaml:"reminder"`
}

// AppConfig holds HTTP server settings.
type AppConfig struct {
	Port       string `yaml:"port"`
	Env        string `yaml:"env"`
	Timezone   string `yaml:"timezone"`
	RequireTLS bool   `yaml:"require_tls"`
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	SigningKey string `yaml:"signing_key"`
	Issuer     string `yaml:"issuer"`
	Audience   string `yaml:"audience"`
}

// TelemetryConfig holds OpenTelemetry exporter settings.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

// MessagingConfig holds push delivery settings. Push is disabled when
// FCMProjectID is empty.
type MessagingConfig struct {
	FCMProjectID    string `yaml:"fcm_project_id"`
	FCMBaseURL      string `yaml:"fcm_base_url"`
	CredentialsFile string `yaml:"credentials_file"`
}

// PubSubConfig holds reminder job queue settings. When Topic is empty the
// API evaluates reminders in-process.
type PubSubConfig struct {
	ProjectID    string `yaml:"project_id"`
	Topic        string `yaml:"topic"`
	Subscription string `yaml:"subscription"`
}

// ReminderConfig holds the periodic reminder sweep settings.
type ReminderConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
	Concurrency   int           `yaml:"concurrency"`
	Timeout       time.Duration `yaml:"timeout"`
}

// Default returns the development defaults.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Port:     "8080",
			Env:      "development",
			Timezone: "Local",
		},
		Log:      logging.DefaultConfig(),
		Database: database.DefaultConfig(),
		Auth: AuthConfig{
			SigningKey: DefaultSigningKey,
			Issuer:     "https://api.watertime.app",
			Audience:   "watertime-api",
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
		},
		Messaging: MessagingConfig{
			FCMBaseURL: "https://fcm.googleapis.com",
		},
		PubSub: PubSubConfig{
			Subscription: "watertime-reminders",
		},
		Reminder: ReminderConfig{
			SweepInterval: 15 * time.Minute,
			Concurrency:   4,
			Timeout:       10 * time.Second,
		},
	}
}

// Load resolves configuration. path may be empty, in which case CONFIG_FILE
// and then ./config.yaml are tried; a missing default file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_FILE")
		explicit = path != ""
	}
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// Location returns the time zone used for calendar-day boundaries.
func (c AppConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// UsesDefaultSigningKey reports whether the insecure development key is active.
func (c *Config) UsesDefaultSigningKey() bool {
	return c.Auth.SigningKey == DefaultSigningKey
}

func (c *Config) applyEnv() {
	envString(&c.App.Port, "APP_PORT")
	envString(&c.App.Env, "APP_ENV")
	envString(&c.App.Timezone, "APP_TIMEZONE")
	envBool(&c.App.RequireTLS, "REQUIRE_TLS")

	envString(&c.Log.Level, "LOG_LEVEL")
	envString(&c.Log.File, "LOG_FILE")

	c.Database.ApplyEnv()

	envString(&c.Auth.SigningKey, "JWT_SIGNING_KEY")
	envString(&c.Auth.Issuer, "JWT_ISSUER")
	envString(&c.Auth.Audience, "JWT_AUDIENCE")

	envBool(&c.Telemetry.Enabled, "OTEL_ENABLED")
	envString(&c.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	envFloat(&c.Telemetry.SampleRatio, "OTEL_TRACES_SAMPLER_ARG")

	envString(&c.Messaging.FCMProjectID, "FCM_PROJECT_ID")
	envString(&c.Messaging.FCMBaseURL, "FCM_BASE_URL")
	envString(&c.Messaging.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS")

	envString(&c.PubSub.ProjectID, "PUBSUB_PROJECT_ID")
	envString(&c.PubSub.Topic, "PUBSUB_REMINDER_TOPIC")
	envString(&c.PubSub.Subscription, "PUBSUB_REMINDER_SUBSCRIPTION")

	envDuration(&c.Reminder.SweepInterval, "REMINDER_SWEEP_INTERVAL")
	envInt(&c.Reminder.Concurrency, "REMINDER_CONCURRENCY")
	envDuration(&c.Reminder.Timeout, "REMINDER_TIMEOUT")
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true"
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
