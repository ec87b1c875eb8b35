// Audience chat terminal client.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ashureev/audience-chat/internal/config"
	"github.com/ashureev/audience-chat/internal/framelog"
	"github.com/ashureev/audience-chat/internal/render"
	"github.com/ashureev/audience-chat/internal/session"
	"github.com/ashureev/audience-chat/internal/socket"
	"github.com/ashureev/audience-chat/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "audience-chat",
		Short:         "Chat with the audience builder from your terminal",
		Long:          "Connects to the audience builder backend over a websocket, shows the conversation and lets you pick product categories from result tables.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	root.Flags().String("url", "", "backend websocket URL (overrides BACKEND_URL)")
	root.Flags().String("transcript", "", "write an HTML transcript to this path on exit (overrides TRANSCRIPT_HTML)")
	root.Flags().String("log-file", "", "write JSON logs to this file (overrides LOG_FILE, default in the user cache dir)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("url"); v != "" {
		cfg.BackendURL = v
	}
	if v, _ := cmd.Flags().GetString("transcript"); v != "" {
		cfg.TranscriptHTML = v
	}
	if v, _ := cmd.Flags().GetString("log-file"); v != "" {
		cfg.LogFile = v
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	sessionKey := uuid.NewString()
	logger = logger.With("session_key", sessionKey)

	recorder := framelog.Noop()
	if cfg.FrameLog.Enabled {
		recorder, err = framelog.New(framelog.Config{
			Enabled:   true,
			Dir:       cfg.FrameLog.Dir,
			QueueSize: cfg.FrameLog.QueueSize,
		}, sessionKey, logger)
		if err != nil {
			return fmt.Errorf("frame log: %w", err)
		}
	}

	conn := socket.New(cfg.BackendURL, socket.Options{
		DialTimeout:  cfg.DialTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Logger:       logger,
	})
	ctrl := session.New(conn, session.Options{
		SessionKey: sessionKey,
		Recorder:   recorder,
		Logger:     logger,
	})

	var renderer render.Renderer = render.Plain{}
	if term, err := render.NewTerminal(80, ""); err != nil {
		logger.Warn("Markdown rendering disabled", "error", err)
	} else {
		renderer = term
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := make(chan error, 1)
	go func() { runErr <- ctrl.Run(ctx) }()

	logger.Info("Client started", "backend_url", cfg.BackendURL)
	program := tea.NewProgram(tui.New(ctx, ctrl, renderer), tea.WithAltScreen(), tea.WithContext(ctx))
	_, uiErr := program.Run()

	if err := ctrl.Close(); err != nil {
		logger.Debug("Close after UI exit", "error", err)
	}
	stop()
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Session ended with error", "error", err)
	}

	if cfg.TranscriptHTML != "" {
		if err := writeTranscript(cfg.TranscriptHTML, ctrl.Snapshot()); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Transcript written to", cfg.TranscriptHTML)
	}

	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal ui: %w", uiErr)
	}
	return nil
}

// newLogger writes JSON logs to cfg.LogFile. An empty path discards logs;
// the terminal is owned by the UI.
func newLogger(cfg *config.Client) (*slog.Logger, func(), error) {
	var w io.Writer = io.Discard
	closeFn := func() {}
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel}))
	return logger, closeFn, nil
}

func writeTranscript(path string, snap session.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create transcript directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create transcript: %w", err)
	}
	title := "Audience Builder"
	if snap.SessionID != "" {
		title += " - Thread " + snap.SessionID
	}
	if err := render.WriteTranscript(f, title, snap.Entries, snap.Selections, render.NewHTML()); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close transcript: %w", err)
	}
	return nil
}
