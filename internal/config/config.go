// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Client holds the chat client configuration.
type Client struct {
	BackendURL     string
	LogLevel       slog.Level
	LogFile        string
	DialTimeout    time.Duration
	WriteTimeout   time.Duration
	TranscriptHTML string
	FrameLog       FrameLogConfig
}

// FrameLogConfig controls NDJSON recording of websocket frames.
type FrameLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Server holds the development backend configuration.
type Server struct {
	Port               string
	FrontendURL        string
	DBPath             string
	SeedCatalogue      bool
	SelectionRetention time.Duration
	RetentionInterval  time.Duration
}

// LoadClient reads client configuration from environment variables.
func LoadClient() (*Client, error) {
	queueSize := getEnvInt("FRAME_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Client{
		BackendURL:     getEnv("BACKEND_URL", "ws://localhost:8000/ws"),
		LogLevel:       getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		LogFile:        getEnv("LOG_FILE", DefaultClientLogFile()),
		DialTimeout:    getEnvDuration("DIAL_TIMEOUT", 10*time.Second),
		WriteTimeout:   getEnvDuration("WRITE_TIMEOUT", 5*time.Second),
		TranscriptHTML: getEnv("TRANSCRIPT_HTML", ""),
		FrameLog: FrameLogConfig{
			Enabled:   getEnvBool("FRAME_LOG_ENABLED", false),
			Dir:       getEnv("FRAME_LOG_DIR", "./data/logs/frames"),
			QueueSize: queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultClientLogFile is where the client logs when LOG_FILE is unset. The
// terminal belongs to the UI, so logs never go to stdout or stderr.
func DefaultClientLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "audience-chat", "client.log")
}

// Validate checks that all required client fields are set.
func (c *Client) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL cannot be empty")
	}
	if !strings.HasPrefix(c.BackendURL, "ws://") && !strings.HasPrefix(c.BackendURL, "wss://") {
		return fmt.Errorf("BACKEND_URL must use ws:// or wss://, got %q", c.BackendURL)
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("DIAL_TIMEOUT must be > 0")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("WRITE_TIMEOUT must be > 0")
	}
	if c.FrameLog.Enabled && c.FrameLog.Dir == "" {
		return fmt.Errorf("FRAME_LOG_DIR cannot be empty when frame logging is enabled")
	}
	if c.FrameLog.QueueSize <= 0 {
		return fmt.Errorf("FRAME_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// LoadServer reads backend configuration from environment variables.
func LoadServer() (*Server, error) {
	cfg := &Server{
		Port:               getEnv("PORT", "8000"),
		FrontendURL:        getEnv("FRONTEND_URL", ""),
		DBPath:             getEnv("DB_PATH", "./data/catalogue.db"),
		SeedCatalogue:      getEnvBool("SEED_CATALOGUE", true),
		SelectionRetention: getEnvDuration("SELECTION_RETENTION", 7*24*time.Hour),
		RetentionInterval:  getEnvDuration("RETENTION_INTERVAL", time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required server fields are set.
func (c *Server) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SelectionRetention <= 0 {
		return fmt.Errorf("SELECTION_RETENTION must be > 0")
	}
	if c.RetentionInterval <= 0 {
		return fmt.Errorf("RETENTION_INTERVAL must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Server) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return level
}
