// Package socket manages the single websocket connection of a chat session.
package socket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// ErrNotConnected is returned by Send when the connection is not open.
var ErrNotConnected = errors.New("not connected")

// ErrAlreadyStarted is returned when Run is called twice on the same Conn.
var ErrAlreadyStarted = errors.New("connection already started")

// State is the lifecycle state of a connection.
type State int

const (
	// StateConnecting is the state from creation until the handshake completes.
	StateConnecting State = iota
	// StateOpen means frames can be sent and received.
	StateOpen
	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Handler receives connection lifecycle events. Calls are made from the
// goroutine running Run, in order: OnOpen, OnMessage..., OnClose.
type Handler interface {
	OnOpen()
	OnMessage(raw string)
	// OnClose is called exactly once. err is nil for a normal closure.
	OnClose(err error)
}

// Options tunes the connection.
type Options struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	ReadLimit    int64
	Header       http.Header
	Logger       *slog.Logger
}

// DefaultOptions returns the defaults used when a field is zero.
func DefaultOptions() Options {
	return Options{
		DialTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ReadLimit:    1 << 20, // 1MB
	}
}

// Conn is a client websocket connection. A Conn is used for exactly one
// connection; reconnecting means creating a new Conn.
type Conn struct {
	url  string
	opts Options
	log  *slog.Logger

	// deliverMu is held while a frame is handed to the handler, so Close
	// can wait out an in-flight delivery.
	deliverMu sync.Mutex

	mu      sync.Mutex
	state   State
	ws      *websocket.Conn
	started bool
	closing bool
}

// New creates a connection to url. Nothing is dialled until Run.
func New(url string, opts Options) *Conn {
	def := DefaultOptions()
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = def.DialTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = def.WriteTimeout
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = def.ReadLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{url: url, opts: opts, log: logger}
}

// URL returns the backend address.
func (c *Conn) URL() string {
	return c.url
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run dials the backend and pumps inbound frames into h until the connection
// closes or ctx is cancelled. It returns the reason the connection ended;
// a normal closure (either side) returns nil.
func (c *Conn) Run(ctx context.Context, h Handler) (err error) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	if c.closing {
		// Closed before it was ever dialled.
		c.state = StateClosed
		c.mu.Unlock()
		h.OnClose(nil)
		return nil
	}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state = StateClosed
		c.ws = nil
		c.mu.Unlock()
		h.OnClose(err)
	}()

	dialCtx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	ws, _, err := websocket.Dial(dialCtx, c.url, &websocket.DialOptions{HTTPHeader: c.opts.Header})
	cancel()
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	ws.SetReadLimit(c.opts.ReadLimit)
	defer ws.CloseNow()

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		_ = ws.Close(websocket.StatusNormalClosure, "client closed")
		return nil
	}
	c.ws = ws
	c.state = StateOpen
	c.mu.Unlock()

	c.log.Info("WebSocket connected", "url", c.url)
	h.OnOpen()

	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			return c.readError(ctx, err)
		}
		if !c.deliver(h, string(data)) {
			return nil
		}
	}
}

// deliver hands raw to h unless the connection is no longer open. It
// reports whether the read loop should continue.
func (c *Conn) deliver(h Handler, raw string) bool {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	open := c.state == StateOpen && !c.closing
	c.mu.Unlock()
	if !open {
		return false
	}
	h.OnMessage(raw)
	return true
}

func (c *Conn) readError(ctx context.Context, err error) error {
	c.mu.Lock()
	closing := c.closing
	c.mu.Unlock()

	switch status := websocket.CloseStatus(err); {
	case closing:
		c.log.Debug("WebSocket closed by client", "url", c.url)
		return nil
	case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
		c.log.Info("WebSocket closed by server", "url", c.url, "status", status)
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		c.log.Warn("WebSocket read error", "error", err, "url", c.url)
		return fmt.Errorf("read: %w", err)
	}
}

// Send writes one text frame. It fails with ErrNotConnected unless the
// connection is open and never changes the connection state.
func (c *Conn) Send(ctx context.Context, payload string) error {
	c.mu.Lock()
	ws := c.ws
	open := c.state == StateOpen && !c.closing
	c.mu.Unlock()
	if !open || ws == nil {
		return ErrNotConnected
	}

	writeCtx, cancel := context.WithTimeout(ctx, c.opts.WriteTimeout)
	defer cancel()
	if err := ws.Write(writeCtx, websocket.MessageText, []byte(payload)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Close performs a normal closure. After Close returns no further frames are
// delivered to the handler. Close is idempotent.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	ws := c.ws
	if c.state == StateOpen {
		c.state = StateClosed
	}
	c.mu.Unlock()

	// Wait for a frame already being delivered; none start after this.
	// Close must not be called from inside OnMessage.
	c.deliverMu.Lock()
	//nolint:staticcheck // empty critical section is the barrier.
	c.deliverMu.Unlock()

	if ws == nil {
		return nil
	}
	if err := ws.Close(websocket.StatusNormalClosure, "client closed"); err != nil && websocket.CloseStatus(err) == -1 {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}
