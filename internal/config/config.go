package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the system-wide settings coordinator, kept separate from
// business logic.
type Config struct {
	HTTP      *HTTPConfig      `json:"http"`
	WebSocket *WebSocketConfig `json:"websocket"`
	Poll      *PollConfig      `json:"poll"`
	History   *HistoryConfig   `json:"history"`
}

// HTTPConfig holds server listen settings.
type HTTPConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// WebSocketConfig holds heartbeat settings.
type WebSocketConfig struct {
	PingInterval time.Duration `json:"ping_interval"`
	ReadTimeout  time.Duration `json:"read_timeout"`
}

// PollConfig holds coordinator settings.
type PollConfig struct {
	DefaultDurationSeconds int           `json:"default_duration_seconds"`
	KickGrace              time.Duration `json:"kick_grace"`
}

// HistoryConfig selects the history store. An empty DatabasePath keeps poll
// history in memory for the process lifetime; a path (or ":memory:") enables
// the SQLite store.
type HistoryConfig struct {
	DatabasePath string `json:"database_path"`
}

// DefaultConfig returns classroom-scale defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTP: &HTTPConfig{
			Host:         "0.0.0.0",
			Port:         3001,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		WebSocket: &WebSocketConfig{
			PingInterval: 30 * time.Second,
			ReadTimeout:  60 * time.Second,
		},
		Poll: &PollConfig{
			DefaultDurationSeconds: 60,
			KickGrace:              100 * time.Millisecond,
		},
		History: &HistoryConfig{
			DatabasePath: "",
		},
	}
}

// Validate rejects configurations that would fail at runtime.
func (c *Config) Validate() error {
	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP timeouts must be positive")
	}

	if c.WebSocket == nil {
		return fmt.Errorf("WebSocket configuration is required")
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("WebSocket ping interval must be positive")
	}
	if c.WebSocket.ReadTimeout <= c.WebSocket.PingInterval {
		return fmt.Errorf("WebSocket read timeout must exceed the ping interval")
	}

	if c.Poll == nil {
		return fmt.Errorf("poll configuration is required")
	}
	if c.Poll.DefaultDurationSeconds <= 0 {
		return fmt.Errorf("default poll duration must be positive")
	}
	if c.Poll.KickGrace < 0 {
		return fmt.Errorf("kick grace cannot be negative")
	}

	if c.History == nil {
		return fmt.Errorf("history configuration is required")
	}

	return nil
}

// LoadFromEnv returns the defaults overridden by LIVEPOLL_* environment
// variables. A .env file in the working directory is loaded first if
// present.
func LoadFromEnv() *Config {
	_ = godotenv.Load()

	config := DefaultConfig()

	if port := os.Getenv("LIVEPOLL_HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.HTTP.Port = p
		}
	}
	if host := os.Getenv("LIVEPOLL_HTTP_HOST"); host != "" {
		config.HTTP.Host = host
	}
	if readTimeout := os.Getenv("LIVEPOLL_HTTP_READ_TIMEOUT"); readTimeout != "" {
		if timeout, err := time.ParseDuration(readTimeout); err == nil {
			config.HTTP.ReadTimeout = timeout
		}
	}
	if writeTimeout := os.Getenv("LIVEPOLL_HTTP_WRITE_TIMEOUT"); writeTimeout != "" {
		if timeout, err := time.ParseDuration(writeTimeout); err == nil {
			config.HTTP.WriteTimeout = timeout
		}
	}
	if pingInterval := os.Getenv("LIVEPOLL_WEBSOCKET_PING_INTERVAL"); pingInterval != "" {
		if interval, err := time.ParseDuration(pingInterval); err == nil {
			config.WebSocket.PingInterval = interval
		}
	}
	if wsReadTimeout := os.Getenv("LIVEPOLL_WEBSOCKET_READ_TIMEOUT"); wsReadTimeout != "" {
		if timeout, err := time.ParseDuration(wsReadTimeout); err == nil {
			config.WebSocket.ReadTimeout = timeout
		}
	}
	if duration := os.Getenv("LIVEPOLL_POLL_DEFAULT_DURATION"); duration != "" {
		if d, err := strconv.Atoi(duration); err == nil {
			config.Poll.DefaultDurationSeconds = d
		}
	}
	if grace := os.Getenv("LIVEPOLL_POLL_KICK_GRACE"); grace != "" {
		if d, err := time.ParseDuration(grace); err == nil {
			config.Poll.KickGrace = d
		}
	}
	if dbPath := os.Getenv("LIVEPOLL_HISTORY_DATABASE_PATH"); dbPath != "" {
		config.History.DatabasePath = dbPath
	}

	return config
}

// configFile mirrors Config with string durations for JSON parsing.
type configFile struct {
	HTTP *struct {
		Host         string `json:"host"`
		Port         int    `json:"port"`
		ReadTimeout  string `json:"read_timeout"`
		WriteTimeout string `json:"write_timeout"`
	} `json:"http"`
	WebSocket *struct {
		PingInterval string `json:"ping_interval"`
		ReadTimeout  string `json:"read_timeout"`
	} `json:"websocket"`
	Poll *struct {
		DefaultDurationSeconds int    `json:"default_duration_seconds"`
		KickGrace              string `json:"kick_grace"`
	} `json:"poll"`
	History *struct {
		DatabasePath string `json:"database_path"`
	} `json:"history"`
}

// LoadFromFile reads a JSON configuration file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file configFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config := DefaultConfig()

	if file.HTTP != nil {
		if file.HTTP.Host != "" {
			config.HTTP.Host = file.HTTP.Host
		}
		if file.HTTP.Port > 0 {
			config.HTTP.Port = file.HTTP.Port
		}
		applyDuration(&config.HTTP.ReadTimeout, file.HTTP.ReadTimeout)
		applyDuration(&config.HTTP.WriteTimeout, file.HTTP.WriteTimeout)
	}
	if file.WebSocket != nil {
		applyDuration(&config.WebSocket.PingInterval, file.WebSocket.PingInterval)
		applyDuration(&config.WebSocket.ReadTimeout, file.WebSocket.ReadTimeout)
	}
	if file.Poll != nil {
		if file.Poll.DefaultDurationSeconds > 0 {
			config.Poll.DefaultDurationSeconds = file.Poll.DefaultDurationSeconds
		}
		applyDuration(&config.Poll.KickGrace, file.Poll.KickGrace)
	}
	if file.History != nil {
		config.History.DatabasePath = file.History.DatabasePath
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}

	return config, nil
}

// LoadWithPrecedence resolves configuration as file > environment >
// defaults. File errors fall back silently to the environment layer.
func LoadWithPrecedence(path string) *Config {
	config := LoadFromEnv()

	if path != "" {
		if fileConfig, err := LoadFromFile(path); err == nil {
			config = fileConfig
		}
	}

	return config
}

func applyDuration(dst *time.Duration, value string) {
	if value == "" {
		return
	}
	if d, err := time.ParseDuration(value); err == nil {
		*dst = d
	}
}
