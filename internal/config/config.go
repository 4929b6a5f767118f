package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const QR_IMAGE_SIZE = 512

const (
	SessionStoreMemory = "memory"
	SessionStoreSQL    = "sql"
)

const (
	BackendLive = "live"
	BackendDemo = "demo"
)

const (
	ScannerCamera = "camera"
	ScannerManual = "manual"
)

const (
	EventsStatic = "static"
	EventsRemote = "remote"
)

const (
	PipelineLive       = "live"
	PipelineFulfilment = "fulfilment"
)

type RBACConfig struct {
	PolicyFile string `mapstructure:"policy_file"` // Empty means the built-in policy
}

// Backend describes how the Shollu API is reached.
type Backend struct {
	// "live" talks to BaseURL, "demo" starts an in-process fake backend.
	Mode          string `mapstructure:"mode"`
	BaseURL       string `mapstructure:"base_url"`
	AttendanceURL string `mapstructure:"attendance_url"`
	// Static key sent as X-API-Key to the attendance endpoint.
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds uint   `mapstructure:"timeout_seconds"`
}

func (b Backend) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

type Scanner struct {
	Backend       string `mapstructure:"backend"`
	MaxImageBytes int64  `mapstructure:"max_image_bytes"`
}

type Events struct {
	CatalogFile string `mapstructure:"catalog_file"`
	// "static" uses the catalog only, "remote" refreshes it from the backend.
	Source string `mapstructure:"source"`
}

type Cards struct {
	Pipeline string `mapstructure:"pipeline"`
}

type Attendance struct {
	// How long result dialogs stay open, in milliseconds.
	DismissMS uint `mapstructure:"dismiss_ms"`
}

func (a Attendance) DismissAfter() time.Duration {
	return time.Duration(a.DismissMS) * time.Millisecond
}

type Email struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	// Recipient of generated card PDFs. Empty disables mailing.
	PrintOffice string `mapstructure:"print_office"`
}

type Config struct {
	// Secret key for signing cookies and sealing tokens. Must be set in production.
	Secret   string `mapstructure:"secret"`
	LogLevel string `mapstructure:"log_level"`
	Listen   string `mapstructure:"listen"`

	BaseURL string `mapstructure:"base_url"` // May be relative, e.g. /partner/, or absolute.

	// Comma separated CIDRs allowed to reach the server. Empty allows everyone.
	AllowedNetworks string `mapstructure:"allowed_networks"`

	SessionStore string `mapstructure:"session_store"`
	// Session lifetime in hours.
	SessionTTLHours uint `mapstructure:"session_ttl_hours"`

	Backend    Backend    `mapstructure:"backend"`
	Scanner    Scanner    `mapstructure:"scanner"`
	Events     Events     `mapstructure:"events"`
	Cards      Cards      `mapstructure:"cards"`
	Attendance Attendance `mapstructure:"attendance"`
	RBAC       RBACConfig `mapstructure:"rbac"`
	Storage    Storage    `mapstructure:"storage"`
	Email      Email      `mapstructure:"email"`
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// Check if running in Docker container by checking for the presence of /.dockerenv file
func runningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

func getConfigPath() string {
	if runningInDocker() {
		return "/app/instance"
	}
	return "./instance"
}

// LoadConfig reads configuration from config.yaml, .env and the environment.
func LoadConfig(configFile ...string) (*Config, error) {
	var cfg Config

	// .env is optional
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(getConfigPath())
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, path := range configFile {
		if path != "" {
			v.SetConfigFile(path)
		}
	}

	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if len(configFile) > 0 || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("unable to read config: %w", err)
		}
	}

	v.AutomaticEnv()

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %v", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Convert relative sqlite path to absolute instance folder
	if cfg.Storage.SQLite != nil {
		if cfg.Storage.SQLite.Path == ":memory:" {
			// In-memory database, do nothing
		} else if cfg.Storage.SQLite.Path != "" && !os.IsPathSeparator(cfg.Storage.SQLite.Path[0]) {
			cfg.Storage.SQLite.Path = fmt.Sprintf("%s/%s", getConfigPath(), cfg.Storage.SQLite.Path)
		}
	}

	// Warn if secret is missing - this is a critical security setting for production
	if cfg.Secret == "" {
		if os.Getenv("GIN_MODE") == "release" {
			return nil, fmt.Errorf("SECRET configuration variable is required in production")
		}
		slog.Warn("Secret is not set. Do not use in production.")
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.SessionStore {
	case SessionStoreMemory, SessionStoreSQL:
	default:
		return fmt.Errorf("unknown session_store %q", c.SessionStore)
	}
	switch c.Backend.Mode {
	case BackendLive, BackendDemo:
	default:
		return fmt.Errorf("unknown backend.mode %q", c.Backend.Mode)
	}
	switch c.Scanner.Backend {
	case ScannerCamera, ScannerManual:
	default:
		return fmt.Errorf("unknown scanner.backend %q", c.Scanner.Backend)
	}
	switch c.Events.Source {
	case EventsStatic, EventsRemote:
	default:
		return fmt.Errorf("unknown events.source %q", c.Events.Source)
	}
	switch c.Cards.Pipeline {
	case PipelineLive, PipelineFulfilment:
	default:
		return fmt.Errorf("unknown cards.pipeline %q", c.Cards.Pipeline)
	}
	if c.SessionTTLHours == 0 {
		slog.Warn("session_ttl_hours must be positive, using default", "default", defaults["session_ttl_hours"])
		c.SessionTTLHours = defaults["session_ttl_hours"].(uint)
	}
	return nil
}
