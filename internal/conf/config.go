package conf

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const envPrefix = "DASHBOARD"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	MongoDB   MongoConfig     `mapstructure:"mongodb"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Auth      AuthConfig      `mapstructure:"auth"`
}

type ServerConfig struct {
	Port    string `mapstructure:"port"`
	GinMode string `mapstructure:"gin_mode"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// BackendConfig points at the reseller REST API that owns the records.
type BackendConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIToken string        `mapstructure:"api_token"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type DashboardConfig struct {
	Timezone          string `mapstructure:"timezone"`
	ExpiryWindowDays  int    `mapstructure:"expiry_window_days"`
	RecentOrdersLimit int    `mapstructure:"recent_orders_limit"`
}

// AuthConfig: an empty JWTSecret leaves the API open.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.gin_mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "reseller_dashboard")
	v.SetDefault("backend.base_url", "")
	v.SetDefault("backend.api_token", "")
	v.SetDefault("backend.timeout", "15s")
	v.SetDefault("dashboard.timezone", "Asia/Ho_Chi_Minh")
	v.SetDefault("dashboard.expiry_window_days", 30)
	v.SetDefault("dashboard.recent_orders_limit", 5)
	v.SetDefault("auth.jwt_secret", "")
}

// LoadConfig reads ./config/config.yaml (optional) and DASHBOARD_* environment overrides.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom("./config", ".")
}

func LoadConfigFrom(paths ...string) (*Config, error) {
	v := viper.New()
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		logrus.Info("[Config] no config file found, using defaults and environment")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logrus.Info("[Config] configuration loaded")
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("backend.base_url is required")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive, got %s", c.Backend.Timeout)
	}
	if _, err := time.LoadLocation(c.Dashboard.Timezone); err != nil {
		return fmt.Errorf("dashboard.timezone: %w", err)
	}
	if c.Dashboard.ExpiryWindowDays <= 0 {
		return fmt.Errorf("dashboard.expiry_window_days must be positive, got %d", c.Dashboard.ExpiryWindowDays)
	}
	if c.Dashboard.RecentOrdersLimit < 0 {
		return fmt.Errorf("dashboard.recent_orders_limit must not be negative, got %d", c.Dashboard.RecentOrdersLimit)
	}
	return nil
}

// Location returns the zone month boundaries are computed in. Call after Validate.
func (d DashboardConfig) Location() *time.Location {
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// SetupLogger applies level and format to the global logrus logger.
func SetupLogger(cfg LogConfig) {
	if strings.EqualFold(cfg.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.Warnf("[Config] unknown log level %q, falling back to info", cfg.Level)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
