package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoadConfigFrom_FileValues(t *testing.T) {
	dir := writeConfig(t, `
backend:
  base_url: http://api.internal
  timeout: 5s
dashboard:
  recent_orders_limit: 10
`)

	cfg, err := LoadConfigFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://api.internal", cfg.Backend.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 10, cfg.Dashboard.RecentOrdersLimit)
	assert.Equal(t, 30, cfg.Dashboard.ExpiryWindowDays)
	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, "reseller_dashboard", cfg.MongoDB.Database)
}

func TestLoadConfigFrom_EnvOverridesWithoutFile(t *testing.T) {
	t.Setenv("DASHBOARD_BACKEND_BASE_URL", "http://from-env")
	t.Setenv("DASHBOARD_AUTH_JWT_SECRET", "s3cret")

	cfg, err := LoadConfigFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "http://from-env", cfg.Backend.BaseURL)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 15*time.Second, cfg.Backend.Timeout)
}

func TestLoadConfigFrom_MissingBaseURL(t *testing.T) {
	_, err := LoadConfigFrom(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func TestLoadConfigFrom_MalformedFile(t *testing.T) {
	dir := writeConfig(t, "backend: [unterminated")

	_, err := LoadConfigFrom(dir)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Backend:   BackendConfig{BaseURL: "http://x", Timeout: time.Second},
			Dashboard: DashboardConfig{Timezone: "Asia/Ho_Chi_Minh", ExpiryWindowDays: 30, RecentOrdersLimit: 5},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(*Config) {}, false},
		{"zero timeout", func(c *Config) { c.Backend.Timeout = 0 }, true},
		{"bad timezone", func(c *Config) { c.Dashboard.Timezone = "Mars/Olympus" }, true},
		{"zero window", func(c *Config) { c.Dashboard.ExpiryWindowDays = 0 }, true},
		{"negative recent limit", func(c *Config) { c.Dashboard.RecentOrdersLimit = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDashboardConfig_Location(t *testing.T) {
	loc := DashboardConfig{Timezone: "Asia/Ho_Chi_Minh"}.Location()
	assert.Equal(t, "Asia/Ho_Chi_Minh", loc.String())
}
