package logging_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watertime/watertime/internal/logging"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, logging.ParseLevel(tt.in))
		})
	}
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.log")

	cfg := logging.DefaultConfig()
	cfg.Console = false
	cfg.File = path

	log := logging.New(cfg, "watertime-test", "v0")
	log.Info().Str("k", "v").Msg("hello")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"service":"watertime-test"`)
	assert.Contains(t, string(data), `"message":"hello"`)
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.log")

	log := logging.New(logging.Config{Level: "warn", File: path, MaxSizeMB: 1}, "svc", "v0")
	log.Info().Msg("dropped")
	log.Warn().Msg("kept")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}
