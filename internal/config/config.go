// Package config provides configuration management for the clip bot.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
)

const (
	// Default values
	DefaultPort     = 8788
	DefaultLogLevel = "info"
	DefaultDataDir  = ".clipbot"

	// Environment variable names
	EnvToken    = "CLIPBOT_TOKEN"
	EnvPort     = "CLIPBOT_PORT"
	EnvLogLevel = "CLIPBOT_LOG_LEVEL"
	EnvDataDir  = "CLIPBOT_DATA_DIR"
	EnvWorkers  = "CLIPBOT_WORKERS"
	EnvFFmpeg   = "CLIPBOT_FFMPEG"
	EnvYTDLP    = "CLIPBOT_YTDLP"
	EnvAPIBase  = "CLIPBOT_API_BASE"

	// Database filename
	DBFilename = "clipbot.db"
)

// ErrMissingToken is returned when the bot token is not configured.
// The daemon cannot poll without it, so startup fails immediately.
var ErrMissingToken = errors.New(EnvToken + " is required")

// Config defines the application configuration interface
type Config interface {
	Token() string
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	WorkDir() string
	Workers() int
	FFmpegPath() string
	YTDLPPath() string
	APIBase() string
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	token    string
	port     int
	logLevel string
	dataDir  string
	workers  int

	ffmpegPath string
	ytdlpPath  string
	apiBase    string
}

// New creates a new EnvConfig with defaults and environment variable overrides.
// The bot token has no default; a missing token is a startup error.
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		token:    os.Getenv(EnvToken),
		port:     DefaultPort,
		logLevel: DefaultLogLevel,
		dataDir:  defaultDataDir(),
		workers:  defaultWorkers(),
	}

	if cfg.token == "" {
		return nil, ErrMissingToken
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	// Override worker count from environment
	if ws := os.Getenv(EnvWorkers); ws != "" {
		workers, err := strconv.Atoi(ws)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvWorkers, err)
		}
		if workers < 1 {
			return nil, fmt.Errorf("invalid %s: must be at least 1", EnvWorkers)
		}
		cfg.workers = workers
	}

	// Override log level from environment
	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	// Override data directory from environment
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	cfg.ffmpegPath = os.Getenv(EnvFFmpeg)
	cfg.ytdlpPath = os.Getenv(EnvYTDLP)
	cfg.apiBase = os.Getenv(EnvAPIBase)

	return cfg, nil
}

// Token returns the Telegram bot token
func (c *EnvConfig) Token() string {
	return c.token
}

// Port returns the local HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// WorkDir returns the scratch directory for in-flight clips
func (c *EnvConfig) WorkDir() string {
	return filepath.Join(c.dataDir, "work")
}

// Workers returns the clip worker pool size
func (c *EnvConfig) Workers() int {
	return c.workers
}

// FFmpegPath returns an explicit ffmpeg binary path, or "" for PATH lookup
func (c *EnvConfig) FFmpegPath() string {
	return c.ffmpegPath
}

// YTDLPPath returns an explicit yt-dlp binary path, or "" for PATH lookup
func (c *EnvConfig) YTDLPPath() string {
	return c.ytdlpPath
}

// APIBase returns an alternate Bot API base URL, or "" for the default
func (c *EnvConfig) APIBase() string {
	return c.apiBase
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

// defaultWorkers sizes the pool to the machine, matching how many
// ffmpeg processes can usefully run at once.
func defaultWorkers() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 2
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
