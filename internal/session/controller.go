// Package session orchestrates one chat session: it feeds inbound frames
// through the classifier into the transcript and sends user actions over the
// connection. All session state is owned by a single actor goroutine.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ashureev/audience-chat/internal/domain"
	"github.com/ashureev/audience-chat/internal/framelog"
	"github.com/ashureev/audience-chat/internal/protocol"
	"github.com/ashureev/audience-chat/internal/selection"
	"github.com/ashureev/audience-chat/internal/socket"
	"github.com/ashureev/audience-chat/internal/transcript"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrEmptyMessage is returned when the user submits blank text.
	ErrEmptyMessage = errors.New("empty message")
	// ErrEmptySelection is returned when committing a selection with no rows.
	ErrEmptySelection = errors.New("empty selection")
	// ErrNoTable is returned for selection actions on entries without a table.
	ErrNoTable = errors.New("entry has no table")
	// ErrUnknownRow is returned when a row key is not part of the table.
	ErrUnknownRow = errors.New("unknown row")
	// ErrStopped is returned once the session actor has exited.
	ErrStopped = errors.New("session stopped")
	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("session already running")
)

// State is the session lifecycle state. Closed is terminal.
type State int

const (
	// StateConnecting lasts until the transport reports the handshake.
	StateConnecting State = iota
	// StateOpen enables sending.
	StateOpen
	// StateClosed stops inbound processing and disables sending.
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

// Transport is the connection the controller drives. *socket.Conn implements it.
type Transport interface {
	Run(ctx context.Context, h socket.Handler) error
	Send(ctx context.Context, payload string) error
	Close() error
}

var _ Transport = (*socket.Conn)(nil)

// Options configures a Controller.
type Options struct {
	// SessionKey identifies the session locally before the backend assigns a
	// thread id. A random UUID is used when empty.
	SessionKey string
	Recorder   framelog.Recorder
	Logger     *slog.Logger
}

// Controller is the session state machine.
type Controller struct {
	transport Transport
	recorder  framelog.Recorder
	logger    *slog.Logger
	key       string

	inbox   chan func()
	quit    chan struct{}
	updates chan Snapshot
	started atomic.Bool

	snapMu sync.RWMutex
	snap   Snapshot

	// Owned by the actor goroutine.
	state      State
	sessionID  string
	// threadSet is true once a control frame was accepted, even one
	// carrying an empty id.
	threadSet  bool
	log        *transcript.Log
	selections map[int64]*selection.Accumulator
	notice     string
	version    uint64
}

// New creates a controller for transport. Nothing happens until Run.
func New(transport Transport, opts Options) *Controller {
	key := opts.SessionKey
	if key == "" {
		key = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := opts.Recorder
	if rec == nil {
		rec = framelog.Noop()
	}
	c := &Controller{
		transport:  transport,
		recorder:   rec,
		logger:     logger.With("session_key", key),
		key:        key,
		inbox:      make(chan func(), 64),
		quit:       make(chan struct{}),
		updates:    make(chan Snapshot, 1),
		state:      StateConnecting,
		log:        transcript.New(),
		selections: make(map[int64]*selection.Accumulator),
	}
	c.snap = c.buildSnapshot()
	return c
}

// SessionKey returns the local session identifier.
func (c *Controller) SessionKey() string {
	return c.key
}

// Run connects the transport and processes events until ctx is cancelled.
// Losing the connection does not end Run; the session stays readable in the
// Closed state.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	logger := c.logger
	logger.Info("Session starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.loop(gctx)
		return nil
	})
	g.Go(func() error {
		if err := c.transport.Run(gctx, events{c}); err != nil && !errors.Is(err, context.Canceled) {
			logger.Debug("Transport stopped", "error", err)
		}
		return nil
	})
	err := g.Wait()

	if closeErr := c.recorder.Close(); closeErr != nil {
		logger.Warn("Failed to close frame log", "error", closeErr)
	}
	logger.Info("Session stopped")
	return err
}

func (c *Controller) loop(ctx context.Context) {
	defer close(c.quit)
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-c.inbox:
			fn()
		}
	}
}

// post enqueues fn for the actor. It gives up when ctx ends or the actor has
// exited.
func (c *Controller) post(ctx context.Context, fn func()) error {
	select {
	case c.inbox <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.quit:
		return ErrStopped
	}
}

// call runs fn on the actor and waits for its result.
func call[T any](ctx context.Context, c *Controller, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	reply := make(chan result, 1)
	var zero T
	if err := c.post(ctx, func() {
		v, err := fn()
		reply <- result{v, err}
	}); err != nil {
		return zero, err
	}
	select {
	case r := <-reply:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-c.quit:
		select {
		case r := <-reply:
			return r.v, r.err
		default:
			return zero, ErrStopped
		}
	}
}

// Submit appends the user's text to the transcript and sends it. A failed
// send keeps the entry and sets a notice.
func (c *Controller) Submit(ctx context.Context, text string) error {
	_, err := call(ctx, c, func() (struct{}, error) {
		return struct{}{}, c.submit(ctx, text)
	})
	return err
}

// Toggle flips the selection of one row of the table owned by entryID and
// reports whether the row is selected afterwards.
func (c *Controller) Toggle(ctx context.Context, entryID int64, rowKey string) (bool, error) {
	return call(ctx, c, func() (bool, error) {
		return c.toggle(entryID, rowKey)
	})
}

// Remove deselects one row and reports whether it was selected.
func (c *Controller) Remove(ctx context.Context, entryID int64, rowKey string) (bool, error) {
	return call(ctx, c, func() (bool, error) {
		return c.remove(entryID, rowKey)
	})
}

// Commit sends the selection of the table owned by entryID. Empty selections
// are not sent. The selection is kept after a commit.
func (c *Controller) Commit(ctx context.Context, entryID int64) (domain.OutboundSelection, error) {
	return call(ctx, c, func() (domain.OutboundSelection, error) {
		return c.commit(ctx, entryID)
	})
}

// Close closes the connection. The session moves to Closed once the
// transport reports it.
func (c *Controller) Close() error {
	return c.transport.Close()
}

// Snapshot returns the latest published view of the session.
func (c *Controller) Snapshot() Snapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap
}

// Updates delivers snapshots after every change. Only the latest undelivered
// snapshot is kept.
func (c *Controller) Updates() <-chan Snapshot {
	return c.updates
}

// Done is closed when the actor exits.
func (c *Controller) Done() <-chan struct{} {
	return c.quit
}

// events adapts the controller to socket.Handler. Every callback is handed
// to the actor.
type events struct{ c *Controller }

func (e events) OnOpen() {
	e.c.enqueue(e.c.handleOpen)
}

func (e events) OnMessage(raw string) {
	e.c.enqueue(func() { e.c.handleMessage(raw) })
}

func (e events) OnClose(err error) {
	e.c.enqueue(func() { e.c.handleClose(err) })
}

func (c *Controller) enqueue(fn func()) {
	select {
	case c.inbox <- fn:
	case <-c.quit:
	}
}

func (c *Controller) handleOpen() {
	if c.state != StateConnecting {
		return
	}
	c.state = StateOpen
	c.logger.Info("Session open")
	c.publish()
}

func (c *Controller) handleMessage(raw string) {
	if c.state == StateClosed {
		c.logger.Debug("Dropping frame after close", "length", len(raw))
		return
	}

	frame := protocol.Classify(raw)
	c.record(framelog.DirectionInbound, frame.Kind.String(), raw, nil)

	switch frame.Kind {
	case protocol.KindControl:
		if c.threadSet {
			if frame.SessionID != c.sessionID {
				c.logger.Debug("Ignoring repeated thread id", "thread_id", c.sessionID, "ignored", frame.SessionID)
			}
			return
		}
		c.threadSet = true
		c.sessionID = frame.SessionID
		c.logger = c.logger.With("thread_id", c.sessionID)
		c.logger.Info("Thread assigned")
	default:
		if frame.Issue != nil {
			c.logger.Warn("Degraded inbound frame", "error", frame.Issue)
		}
		e := c.log.Append(domain.RoleAssistant, frame.Content)
		if e.HasTable() {
			c.selections[e.ID] = selection.New(e.ID)
		}
	}
	c.publish()
}

func (c *Controller) handleClose(err error) {
	if c.state == StateClosed {
		return
	}
	c.state = StateClosed
	if err != nil {
		c.notice = "Connection lost: " + err.Error()
		c.logger.Warn("Session closed", "error", err)
	} else {
		c.logger.Info("Session closed")
	}
	c.publish()
}

func (c *Controller) submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	c.notice = ""
	c.log.Append(domain.RoleUser, domain.PlainText{Text: text})
	err := c.send(ctx, "text", text)
	c.publish()
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (c *Controller) accumulator(entryID int64) (*selection.Accumulator, *domain.ProductTable, error) {
	e, ok := c.log.Entry(entryID)
	if !ok {
		return nil, nil, fmt.Errorf("entry %d: %w", entryID, transcript.ErrUnknownEntry)
	}
	table := e.Table()
	if table == nil {
		return nil, nil, fmt.Errorf("entry %d: %w", entryID, ErrNoTable)
	}
	acc, ok := c.selections[entryID]
	if !ok {
		acc = selection.New(entryID)
		c.selections[entryID] = acc
	}
	return acc, table, nil
}

func (c *Controller) toggle(entryID int64, rowKey string) (bool, error) {
	acc, table, err := c.accumulator(entryID)
	if err != nil {
		return false, err
	}
	row, ok := table.Row(rowKey)
	if !ok {
		return false, fmt.Errorf("row %q: %w", rowKey, ErrUnknownRow)
	}
	c.notice = ""
	selected := acc.Toggle(row)
	c.publish()
	return selected, nil
}

func (c *Controller) remove(entryID int64, rowKey string) (bool, error) {
	acc, _, err := c.accumulator(entryID)
	if err != nil {
		return false, err
	}
	removed := acc.Remove(rowKey)
	if removed {
		c.publish()
	}
	return removed, nil
}

func (c *Controller) commit(ctx context.Context, entryID int64) (domain.OutboundSelection, error) {
	acc, _, err := c.accumulator(entryID)
	if err != nil {
		return domain.OutboundSelection{}, err
	}
	msg := acc.Commit()
	if len(msg.Categories) == 0 {
		c.notice = "Select at least one category first"
		c.publish()
		return msg, ErrEmptySelection
	}
	payload, err := protocol.EncodeSelection(msg)
	if err != nil {
		return msg, err
	}
	c.notice = ""
	err = c.send(ctx, domain.MessageTypeSelection, payload)
	c.publish()
	if err != nil {
		return msg, fmt.Errorf("send selection: %w", err)
	}
	c.logger.Info("Selection committed", "entry_id", entryID, "categories", len(msg.Categories))
	return msg, nil
}

// send writes payload if the session is open. Failures become a notice and
// are never retried.
func (c *Controller) send(ctx context.Context, kind, payload string) error {
	var err error
	if c.state != StateOpen {
		err = socket.ErrNotConnected
	} else {
		err = c.transport.Send(ctx, payload)
	}
	var meta map[string]any
	if err != nil {
		meta = map[string]any{"error": err.Error()}
		c.notice = noticeFor(err)
		c.logger.Warn("Send failed", "kind", kind, "error", err)
	}
	c.record(framelog.DirectionOutbound, kind, payload, meta)
	return err
}

func noticeFor(err error) string {
	if errors.Is(err, socket.ErrNotConnected) {
		return "Not connected: message was not sent"
	}
	return "Send failed: " + err.Error()
}

func (c *Controller) record(direction, kind, raw string, meta map[string]any) {
	c.recorder.Record(framelog.Event{
		SessionKey: c.key,
		ThreadID:   c.sessionID,
		Direction:  direction,
		Kind:       kind,
		Raw:        raw,
		Meta:       meta,
	})
}
