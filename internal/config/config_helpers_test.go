package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVar = "MOBILESYNC_TEST_VAR"

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"unset falls back", "", 42},
		{"valid integer", "100", 100},
		{"negative", "-10", -10},
		{"zero is a real value", "0", 0},
		{"not a number", "not-a-number", 42},
		{"float rejected", "42.5", 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(testVar, tt.value)
			assert.Equal(t, tt.want, getEnvAsInt(testVar, 42))
		})
	}
}

func TestGetEnvAsInt64(t *testing.T) {
	t.Setenv(testVar, "8589934592")
	assert.Equal(t, int64(8<<30), getEnvAsInt64(testVar, 1))

	t.Setenv(testVar, "8MB")
	assert.Equal(t, int64(1), getEnvAsInt64(testVar, 1))
}

func TestGetEnvAsFloat(t *testing.T) {
	t.Setenv(testVar, "0.35")
	assert.InDelta(t, 0.35, getEnvAsFloat(testVar, 0.2), 1e-9)

	t.Setenv(testVar, "high")
	assert.InDelta(t, 0.2, getEnvAsFloat(testVar, 0.2), 1e-9)
}

func TestGetEnvAsList(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "10.0.0.1", []string{"10.0.0.1"}},
		{"trims and drops blanks", " 10.0.0.1 , ,10.0.0.2,", []string{"10.0.0.1", "10.0.0.2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(testVar, tt.value)
			assert.Equal(t, tt.want, getEnvAsList(testVar))
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"unset falls back", "", 5 * time.Minute},
		{"minutes", "10m", 10 * time.Minute},
		{"compound", "1h30m45s", time.Hour + 30*time.Minute + 45*time.Second},
		{"milliseconds", "500ms", 500 * time.Millisecond},
		{"missing unit", "100", 5 * time.Minute},
		{"garbage", "not-a-duration", 5 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(testVar, tt.value)
			assert.Equal(t, tt.want, getEnvAsDuration(testVar, 5*time.Minute))
		})
	}
}

func TestLoad_DatabasePoolConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnvVars(t)
		t.Setenv("API_KEY", "test-key")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, 20, cfg.DBMaxConns)
		assert.Equal(t, 5*time.Minute, cfg.DBMaxConnIdleTime)
		assert.Equal(t, 30*time.Minute, cfg.DBMaxConnLifetime)
	})

	t.Run("custom values", func(t *testing.T) {
		clearEnvVars(t)
		t.Setenv("API_KEY", "test-key")
		t.Setenv("DB_MAX_CONNS", "50")
		t.Setenv("DB_MAX_CONN_IDLE_TIME", "10m")
		t.Setenv("DB_MAX_CONN_LIFETIME", "1h")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, 50, cfg.DBMaxConns)
		assert.Equal(t, 10*time.Minute, cfg.DBMaxConnIdleTime)
		assert.Equal(t, time.Hour, cfg.DBMaxConnLifetime)
	})

	t.Run("invalid values fall back", func(t *testing.T) {
		clearEnvVars(t)
		t.Setenv("API_KEY", "test-key")
		t.Setenv("DB_MAX_CONNS", "lots")
		t.Setenv("DB_MAX_CONN_LIFETIME", "forever")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, 20, cfg.DBMaxConns)
		assert.Equal(t, 30*time.Minute, cfg.DBMaxConnLifetime)
	})
}
