// Package config provides configuration management for the Abyss agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultPort                = 8788
	DefaultLogLevel            = "info"
	DefaultDataDir             = ".abyss"
	DefaultReplicateBaseURL    = "https://api.replicate.com"
	DefaultReplicateModel      = "black-forest-labs/flux-pro"
	DefaultPortraitConcurrency = 4
	DefaultPortraitTimeout     = 60 * time.Second
	DefaultMaxScriptBytes      = 1 << 20
	DefaultBatchTTL            = 30 * time.Minute

	// Environment variable names
	EnvPort                = "ABYSS_PORT"
	EnvLogLevel            = "ABYSS_LOG_LEVEL"
	EnvDataDir             = "ABYSS_DATA_DIR"
	EnvHeadless            = "ABYSS_HEADLESS"
	EnvAllowedOrigins      = "ABYSS_ALLOWED_ORIGINS"
	EnvReplicateAPIKey     = "REPLICATE_API_KEY"
	EnvReplicateBaseURL    = "ABYSS_REPLICATE_BASE_URL"
	EnvReplicateModel      = "ABYSS_REPLICATE_MODEL"
	EnvPortraitConcurrency = "ABYSS_PORTRAIT_CONCURRENCY"
	EnvPortraitInterval    = "ABYSS_PORTRAIT_INTERVAL"
	EnvPortraitTimeout     = "ABYSS_PORTRAIT_TIMEOUT"
	EnvMaxScriptBytes      = "ABYSS_MAX_SCRIPT_BYTES"
	EnvBatchTTL            = "ABYSS_BATCH_TTL"

	// Database filename
	DBFilename = "abyss.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	Headless() bool
	AllowedOrigins() []string
	ReplicateAPIKey() string
	ReplicateBaseURL() string
	ReplicateModel() string
	PortraitConcurrency() int
	PortraitInterval() time.Duration
	PortraitTimeout() time.Duration
	MaxScriptBytes() int
	BatchTTL() time.Duration
}

// rawEnv holds the environment values before validation.
type rawEnv struct {
	Port                int           `env:"ABYSS_PORT"                 envDefault:"8788"`
	LogLevel            string        `env:"ABYSS_LOG_LEVEL"            envDefault:"info"`
	DataDir             string        `env:"ABYSS_DATA_DIR"`
	Headless            bool          `env:"ABYSS_HEADLESS"`
	AllowedOrigins      []string      `env:"ABYSS_ALLOWED_ORIGINS"      envSeparator:","`
	ReplicateAPIKey     string        `env:"REPLICATE_API_KEY"`
	ReplicateBaseURL    string        `env:"ABYSS_REPLICATE_BASE_URL"   envDefault:"https://api.replicate.com"`
	ReplicateModel      string        `env:"ABYSS_REPLICATE_MODEL"      envDefault:"black-forest-labs/flux-pro"`
	PortraitConcurrency int           `env:"ABYSS_PORTRAIT_CONCURRENCY" envDefault:"4"`
	PortraitInterval    time.Duration `env:"ABYSS_PORTRAIT_INTERVAL"    envDefault:"0s"`
	PortraitTimeout     time.Duration `env:"ABYSS_PORTRAIT_TIMEOUT"     envDefault:"60s"`
	MaxScriptBytes      int           `env:"ABYSS_MAX_SCRIPT_BYTES"     envDefault:"1048576"`
	BatchTTL            time.Duration `env:"ABYSS_BATCH_TTL"            envDefault:"30m"`
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	raw rawEnv
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	var raw rawEnv
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if raw.Port < 1 || raw.Port > 65535 {
		return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
	}
	if raw.PortraitConcurrency < 1 {
		return nil, fmt.Errorf("invalid %s: must be at least 1", EnvPortraitConcurrency)
	}
	if raw.PortraitInterval < 0 {
		return nil, fmt.Errorf("invalid %s: must not be negative", EnvPortraitInterval)
	}
	if raw.PortraitTimeout <= 0 {
		return nil, fmt.Errorf("invalid %s: must be positive", EnvPortraitTimeout)
	}
	if raw.MaxScriptBytes < 1 {
		return nil, fmt.Errorf("invalid %s: must be at least 1", EnvMaxScriptBytes)
	}
	if raw.BatchTTL <= 0 {
		return nil, fmt.Errorf("invalid %s: must be positive", EnvBatchTTL)
	}

	if raw.DataDir == "" {
		raw.DataDir = defaultDataDir()
	}
	raw.AllowedOrigins = trimCSV(raw.AllowedOrigins)

	return &EnvConfig{raw: raw}, nil
}

// LoadDotEnv loads variables from the given .env files (default ".env")
// without overriding ones already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.raw.Port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.raw.LogLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.raw.DataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.raw.DataDir, DBFilename)
}

// Headless disables the system tray.
func (c *EnvConfig) Headless() bool {
	return c.raw.Headless
}

// AllowedOrigins returns extra CORS origins beyond the local defaults.
func (c *EnvConfig) AllowedOrigins() []string {
	return append([]string(nil), c.raw.AllowedOrigins...)
}

func (c *EnvConfig) ReplicateAPIKey() string {
	return c.raw.ReplicateAPIKey
}

func (c *EnvConfig) ReplicateBaseURL() string {
	return c.raw.ReplicateBaseURL
}

func (c *EnvConfig) ReplicateModel() string {
	return c.raw.ReplicateModel
}

func (c *EnvConfig) PortraitConcurrency() int {
	return c.raw.PortraitConcurrency
}

// PortraitInterval is the minimum spacing between provider requests.
// Zero means unlimited.
func (c *EnvConfig) PortraitInterval() time.Duration {
	return c.raw.PortraitInterval
}

func (c *EnvConfig) PortraitTimeout() time.Duration {
	return c.raw.PortraitTimeout
}

func (c *EnvConfig) MaxScriptBytes() int {
	return c.raw.MaxScriptBytes
}

func (c *EnvConfig) BatchTTL() time.Duration {
	return c.raw.BatchTTL
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

func trimCSV(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
