package config

import (
	"fmt"
	"net"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Isolation IsolationConfig
	Process   ProcessConfig
	Breaker   BreakerConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	// CORSOrigins lists embedder origins allowed to call the API
	CORSOrigins     []string      `envconfig:"CORS_ORIGINS" default:"*"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration for the embedder API.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// IsolationConfig controls how documents are assigned to site groups.
type IsolationConfig struct {
	SitePerProcess  bool     `envconfig:"SITE_PER_PROCESS" default:"true"`
	IsolatedOrigins []string `envconfig:"ISOLATED_ORIGINS"`
	PolicyFile      string   `envconfig:"POLICY_FILE"`
}

// ProcessConfig controls content process lifecycle.
type ProcessConfig struct {
	RendererMode  string        `envconfig:"RENDERER_MODE" default:"local"`
	RendererPath  string        `envconfig:"RENDERER_PATH" default:"renderer"`
	LaunchTimeout time.Duration `envconfig:"LAUNCH_TIMEOUT" default:"10s"`
	UnloadTimeout time.Duration `envconfig:"UNLOAD_TIMEOUT" default:"1s"`
	MaxProcesses  int           `envconfig:"MAX_PROCESSES" default:"64"`
	// CoordinatorURL is what remote renderers dial; empty derives ws://HOST:PORT/ipc
	CoordinatorURL string `envconfig:"COORDINATOR_URL"`
}

// BreakerConfig guards process launches per site key.
type BreakerConfig struct {
	FailureThreshold uint32        `envconfig:"LAUNCH_FAILURE_THRESHOLD" default:"3"`
	Cooldown         time.Duration `envconfig:"LAUNCH_COOLDOWN" default:"30s"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	switch c.Process.RendererMode {
	case "local", "remote":
	default:
		return fmt.Errorf("invalid RENDERER_MODE %q: want local or remote", c.Process.RendererMode)
	}
	if c.Process.MaxProcesses < 1 {
		return fmt.Errorf("invalid MAX_PROCESSES %d: must be positive", c.Process.MaxProcesses)
	}
	if c.Process.RendererMode == "remote" && c.Process.RendererPath == "" {
		return fmt.Errorf("RENDERER_PATH is required in remote mode")
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

// IPCURL returns the WebSocket URL remote renderers attach to. A wildcard
// listen host is replaced by loopback.
func (c *Config) IPCURL() string {
	if c.Process.CoordinatorURL != "" {
		return c.Process.CoordinatorURL
	}
	host := c.Server.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "ws://" + net.JoinHostPort(host, c.Server.Port) + "/ipc"
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "0.0.0.0",
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 5 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Isolation: IsolationConfig{
			SitePerProcess: true,
		},
		Process: ProcessConfig{
			RendererMode:  "local",
			RendererPath:  "renderer",
			LaunchTimeout: 10 * time.Second,
			UnloadTimeout: time.Second,
			MaxProcesses:  64,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 3,
			Cooldown:         30 * time.Second,
		},
	}
}
