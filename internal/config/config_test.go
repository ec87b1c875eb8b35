package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadClientFallbacks(t *testing.T) {
	t.Setenv("BACKEND_URL", "ws://localhost:8000/ws")
	t.Setenv("DIAL_TIMEOUT", "bogus")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FRAME_LOG_ENABLED", "yes")
	t.Setenv("FRAME_LOG_QUEUE_SIZE", "-3")

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("LoadClient: %v", err)
	}
	if cfg.DialTimeout != 10*time.Second {
		t.Fatalf("expected fallback dial timeout, got %s", cfg.DialTimeout)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("expected debug level, got %s", cfg.LogLevel)
	}
	if !cfg.FrameLog.Enabled {
		t.Fatal("expected frame log enabled")
	}
	if cfg.FrameLog.QueueSize != 1000 {
		t.Fatalf("expected queue size fallback, got %d", cfg.FrameLog.QueueSize)
	}
}

func TestLoadClientRejectsHTTPURL(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://localhost:8000/ws")
	if _, err := LoadClient(); err == nil {
		t.Fatal("expected error for non-websocket URL")
	}
}

func TestLoadServer(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SELECTION_RETENTION", "2h")
	t.Setenv("SEED_CATALOGUE", "off")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if cfg.Port != "9000" || cfg.SelectionRetention != 2*time.Hour || cfg.SeedCatalogue {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestServerValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Server
	}{
		{"empty port", Server{DBPath: "x", SelectionRetention: time.Hour, RetentionInterval: time.Hour}},
		{"empty db", Server{Port: "1", SelectionRetention: time.Hour, RetentionInterval: time.Hour}},
		{"zero retention", Server{Port: "1", DBPath: "x", RetentionInterval: time.Hour}},
		{"zero interval", Server{Port: "1", DBPath: "x", SelectionRetention: time.Hour}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := tt.cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	t.Parallel()

	if !(&Server{}).IsDevelopment() {
		t.Fatal("empty frontend URL should be development")
	}
	if (&Server{FrontendURL: "https://audience.example.com"}).IsDevelopment() {
		t.Fatal("public frontend URL should not be development")
	}
}

func TestLoadClientLogsToCacheFileByDefault(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("LOG_FILE", "")
	if err := os.Unsetenv("LOG_FILE"); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("LoadClient: %v", err)
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	want := filepath.Join(cacheDir, "audience-chat", "client.log")
	if cfg.LogFile != want {
		t.Fatalf("LogFile = %q, want %q", cfg.LogFile, want)
	}
}
