package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Profiles    ProfilesConfig  `toml:"profiles"`
	Sessions    SessionsConfig  `toml:"sessions"`
	Engine      EngineConfig    `toml:"engine"`
	WebSocket   WebSocketConfig `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

// ProfilesConfig controls profile loading and session/profile sync
type ProfilesConfig struct {
	Dir  string `toml:"dir"`  // Directory containing profile files (TOML/YAML)
	Sync bool   `toml:"sync"` // Assign a rotated profile to each new session
}

// SessionsConfig controls session persistence and ledger eviction
type SessionsConfig struct {
	Persist       bool          `toml:"persist"`        // Persist session snapshots to Badger
	SweepSchedule string        `toml:"sweep_schedule"` // Cron schedule for idle-assignment eviction (empty = disabled)
	MaxIdle       time.Duration `toml:"max_idle"`       // Assignments idle longer than this are evicted
}

// EngineConfig controls the built-in HTTP download engine
type EngineConfig struct {
	RequestTimeout time.Duration `toml:"request_timeout"` // HTTP request timeout
	RequestDelay   time.Duration `toml:"request_delay"`   // Minimum delay between requests to the same host
	UserAgent      string        `toml:"user_agent"`      // Fallback user agent when no profile supplies one
	MaxBodySize    int           `toml:"max_body_size"`   // Maximum response body size in bytes
}

// WebSocketConfig contains configuration for the event stream
type WebSocketConfig struct {
	AllowedEvents    []string `toml:"allowed_events"`    // Whitelist of event types to broadcast (empty = all)
	ThrottleInterval string   `toml:"throttle_interval"` // Minimum interval between broadcasts per event type (empty = unthrottled)
}

// NewDefaultConfig returns the configuration defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8190,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/sessiond",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Profiles: ProfilesConfig{
			Dir:  "./profiles",
			Sync: true,
		},
		Sessions: SessionsConfig{
			Persist:       true,
			SweepSchedule: "@every 10m",
			MaxIdle:       2 * time.Hour,
		},
		Engine: EngineConfig{
			RequestTimeout: 30 * time.Second,
			RequestDelay:   500 * time.Millisecond,
			UserAgent:      "sessiond/" + GetVersion(),
			MaxBodySize:    10 * 1024 * 1024,
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SESSIOND_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("SESSIOND_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SESSIOND_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("SESSIOND_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("SESSIOND_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("SESSIOND_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Profiles configuration
	if dir := os.Getenv("SESSIOND_PROFILES_DIR"); dir != "" {
		config.Profiles.Dir = dir
	}
	if sync := os.Getenv("SESSIOND_PROFILES_SYNC"); sync != "" {
		if b, err := strconv.ParseBool(sync); err == nil {
			config.Profiles.Sync = b
		}
	}

	// Sessions configuration
	if persist := os.Getenv("SESSIOND_SESSIONS_PERSIST"); persist != "" {
		if b, err := strconv.ParseBool(persist); err == nil {
			config.Sessions.Persist = b
		}
	}
	if schedule := os.Getenv("SESSIOND_SESSIONS_SWEEP_SCHEDULE"); schedule != "" {
		config.Sessions.SweepSchedule = schedule
	}
	if maxIdle := os.Getenv("SESSIOND_SESSIONS_MAX_IDLE"); maxIdle != "" {
		if d, err := time.ParseDuration(maxIdle); err == nil {
			config.Sessions.MaxIdle = d
		}
	}

	// Engine configuration
	if timeout := os.Getenv("SESSIOND_ENGINE_REQUEST_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Engine.RequestTimeout = d
		}
	}
	if delay := os.Getenv("SESSIOND_ENGINE_REQUEST_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			config.Engine.RequestDelay = d
		}
	}
	if userAgent := os.Getenv("SESSIOND_ENGINE_USER_AGENT"); userAgent != "" {
		config.Engine.UserAgent = userAgent
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
