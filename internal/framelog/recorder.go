// Package framelog records raw websocket frames as NDJSON for debugging.
package framelog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Direction of a recorded frame.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Event is one recorded frame.
type Event struct {
	Timestamp  string         `json:"ts"`
	SessionKey string         `json:"session_key"`
	ThreadID   string         `json:"thread_id,omitempty"`
	Direction  string         `json:"direction"`
	Kind       string         `json:"kind"`
	Raw        string         `json:"raw"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// Recorder accepts frame events. Record never blocks the caller.
type Recorder interface {
	Record(Event)
	Close() error
}

// Config controls frame recording.
type Config struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

type noopRecorder struct{}

func (noopRecorder) Record(Event) {}
func (noopRecorder) Close() error { return nil }

// Noop returns a recorder that discards everything.
func Noop() Recorder {
	return noopRecorder{}
}

type fileRecorder struct {
	file   *os.File
	enc    *json.Encoder
	queue  chan Event
	wg     sync.WaitGroup
	once   sync.Once
	logger *slog.Logger
}

// New creates a recorder writing to <Dir>/<sessionKey>.ndjson. A disabled
// config yields a no-op recorder.
func New(cfg Config, sessionKey string, logger *slog.Logger) (Recorder, error) {
	if !cfg.Enabled {
		return Noop(), nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create frame log directory: %w", err)
	}
	path := filepath.Join(cfg.Dir, sessionKey+".ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open frame log: %w", err)
	}

	r := &fileRecorder{
		file:   f,
		enc:    json.NewEncoder(f),
		queue:  make(chan Event, cfg.QueueSize),
		logger: logger,
	}
	r.wg.Add(1)
	go r.loop()
	logger.Debug("Frame log opened", "path", path)
	return r, nil
}

func (r *fileRecorder) Record(ev Event) {
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	select {
	case r.queue <- ev:
	default:
		r.logger.Warn("Frame log queue full, dropping event", "direction", ev.Direction, "kind", ev.Kind)
	}
}

func (r *fileRecorder) loop() {
	defer r.wg.Done()
	for ev := range r.queue {
		if err := r.enc.Encode(ev); err != nil {
			r.logger.Warn("Failed to write frame log", "error", err)
		}
	}
}

// Close flushes queued events and closes the file. Record must not be called
// after Close.
func (r *fileRecorder) Close() error {
	var err error
	r.once.Do(func() {
		close(r.queue)
		r.wg.Wait()
		if closeErr := r.file.Close(); closeErr != nil {
			err = fmt.Errorf("close frame log: %w", closeErr)
		}
	})
	return err
}
