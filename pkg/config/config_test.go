package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/attendance-analyzer/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, models.Thresholds{0.60, 0.75}, cfg.Attendance.Thresholds)
	assert.Equal(t, 500, cfg.Attendance.MaxRows)
	assert.False(t, cfg.History.Enabled)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENV", EnvProduction)
	t.Setenv("PORT", "9090")
	t.Setenv("ATTENDANCE_THRESHOLDS", "0.85, 0.5,0.85")
	t.Setenv("ENABLE_HISTORY", "true")
	t.Setenv("HISTORY_WORKERS", "4")
	t.Setenv("HISTORY_RETRY_DELAY", "250ms")
	t.Setenv("ENABLE_CACHE", "true")
	t.Setenv("CACHE_TTL", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, models.Thresholds{0.5, 0.85}, cfg.Attendance.Thresholds)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, 4, cfg.History.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.History.RetryDelay)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRejectsInvalidThresholds(t *testing.T) {
	t.Setenv("ATTENDANCE_THRESHOLDS", "0.6,1.2")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ATTENDANCE_THRESHOLDS")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:       8080,
			Attendance: AttendanceConfig{Thresholds: models.DefaultThresholds(), MaxRows: 10},
			Log:        LogConfig{Format: "json"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "port", mutate: func(c *Config) { c.Port = 70000 }, wantErr: "PORT"},
		{name: "thresholds", mutate: func(c *Config) { c.Attendance.Thresholds = nil }, wantErr: "ATTENDANCE_THRESHOLDS"},
		{name: "max rows", mutate: func(c *Config) { c.Attendance.MaxRows = 0 }, wantErr: "ATTENDANCE_MAX_ROWS"},
		{name: "workers", mutate: func(c *Config) { c.History = HistoryConfig{Enabled: true} }, wantErr: "HISTORY_WORKERS"},
		{name: "cache without history", mutate: func(c *Config) { c.Cache.Enabled = true }, wantErr: "ENABLE_HISTORY"},
		{name: "log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "LOG_FORMAT"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
