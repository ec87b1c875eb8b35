// Package tui is the terminal view of a chat session.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashureev/audience-chat/internal/domain"
	"github.com/ashureev/audience-chat/internal/render"
	"github.com/ashureev/audience-chat/internal/session"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Session is the part of the session controller the view drives.
type Session interface {
	Submit(ctx context.Context, text string) error
	Toggle(ctx context.Context, entryID int64, rowKey string) (bool, error)
	Remove(ctx context.Context, entryID int64, rowKey string) (bool, error)
	Commit(ctx context.Context, entryID int64) (domain.OutboundSelection, error)
	Close() error
	Snapshot() session.Snapshot
	Updates() <-chan session.Snapshot
	Done() <-chan struct{}
}

var _ Session = (*session.Controller)(nil)

type mode int

const (
	modeChat mode = iota
	modeTable
)

type snapshotMsg session.Snapshot

type actionMsg struct {
	action string
	err    error
}

type stoppedMsg struct{}

// Model is the bubbletea model of the chat view.
type Model struct {
	ctx      context.Context
	sess     Session
	renderer render.Renderer
	theme    theme

	snap     session.Snapshot
	input    textinput.Model
	viewport viewport.Model
	width    int
	height   int
	ready    bool

	mode       mode
	tableEntry int64
	cursor     int
	localNote  string
}

// New creates the view for sess. renderer formats markdown; nil falls back
// to plain text.
func New(ctx context.Context, sess Session, renderer render.Renderer) Model {
	if renderer == nil {
		renderer = render.Plain{}
	}
	input := textinput.New()
	input.Prompt = "❯ "
	input.Placeholder = "Type your message here..."
	input.CharLimit = 4000
	input.Focus()

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	return Model{
		ctx:      ctx,
		sess:     sess,
		renderer: renderer,
		theme:    newTheme(),
		snap:     sess.Snapshot(),
		input:    input,
		viewport: vp,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForUpdate())
}

func (m Model) waitForUpdate() tea.Cmd {
	updates, done := m.sess.Updates(), m.sess.Done()
	return func() tea.Msg {
		select {
		case s := <-updates:
			return snapshotMsg(s)
		case <-done:
			return stoppedMsg{}
		}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh(false)
		return m, nil

	case snapshotMsg:
		m.snap = session.Snapshot(msg)
		if !m.snap.Interactive() && m.mode == modeChat {
			m.input.Blur()
		} else if m.mode == modeChat {
			m.input.Focus()
		}
		m.refresh(true)
		return m, m.waitForUpdate()

	case stoppedMsg:
		return m, tea.Quit

	case actionMsg:
		m.localNote = noteFor(msg)
		m.refresh(false)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		m.localNote = ""
		if m.mode == modeTable {
			return m.updateTable(msg)
		}
		return m.updateChat(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, m.quit()
	case "enter":
		if !m.snap.Interactive() {
			return m, nil
		}
		text := m.input.Value()
		m.input.SetValue("")
		return m, m.submit(text)
	case "tab":
		if id, ok := m.lastTable(); ok {
			m.enterTable(id)
			m.refresh(false)
		} else {
			m.localNote = "No table to select from yet"
		}
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateTable(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	table := m.currentTable()
	if table == nil {
		m.leaveTable()
		return m, nil
	}

	var cmd tea.Cmd
	switch msg.String() {
	case "esc", "tab":
		m.leaveTable()
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(table.Rows)-1 {
			m.cursor++
		}
	case " ", "enter":
		if len(table.Rows) > 0 {
			cmd = m.toggle(m.tableEntry, table.Rows[m.cursor].RowKey)
		}
	case "x", "backspace":
		if len(table.Rows) > 0 {
			cmd = m.remove(m.tableEntry, table.Rows[m.cursor].RowKey)
		}
	case "a":
		cmd = m.commit(m.tableEntry)
	case "[":
		if id, ok := m.adjacentTable(-1); ok {
			m.enterTable(id)
		}
	case "]":
		if id, ok := m.adjacentTable(1); ok {
			m.enterTable(id)
		}
	}
	m.refresh(false)
	return m, cmd
}

func (m *Model) enterTable(id int64) {
	m.mode = modeTable
	m.tableEntry = id
	m.cursor = 0
	m.input.Blur()
}

func (m *Model) leaveTable() {
	m.mode = modeChat
	if m.snap.Interactive() {
		m.input.Focus()
	}
}

func (m Model) currentTable() *domain.ProductTable {
	for _, e := range m.snap.Entries {
		if e.ID == m.tableEntry {
			return e.Table()
		}
	}
	return nil
}

func (m Model) tableIDs() []int64 {
	var ids []int64
	for _, e := range m.snap.Entries {
		if e.HasTable() {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

func (m Model) lastTable() (int64, bool) {
	ids := m.tableIDs()
	if len(ids) == 0 {
		return 0, false
	}
	return ids[len(ids)-1], true
}

func (m Model) adjacentTable(step int) (int64, bool) {
	ids := m.tableIDs()
	for i, id := range ids {
		if id == m.tableEntry {
			j := i + step
			if j < 0 || j >= len(ids) {
				return 0, false
			}
			return ids[j], true
		}
	}
	return 0, false
}

func (m Model) submit(text string) tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		return actionMsg{action: "submit", err: sess.Submit(ctx, text)}
	}
}

func (m Model) toggle(entryID int64, rowKey string) tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		_, err := sess.Toggle(ctx, entryID, rowKey)
		return actionMsg{action: "toggle", err: err}
	}
}

func (m Model) remove(entryID int64, rowKey string) tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		_, err := sess.Remove(ctx, entryID, rowKey)
		return actionMsg{action: "remove", err: err}
	}
}

func (m Model) commit(entryID int64) tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		msg, err := sess.Commit(ctx, entryID)
		if err == nil {
			return actionMsg{action: fmt.Sprintf("applied %d categories", len(msg.Categories))}
		}
		return actionMsg{action: "commit", err: err}
	}
}

func (m Model) quit() tea.Cmd {
	sess := m.sess
	return tea.Sequence(func() tea.Msg {
		_ = sess.Close()
		return nil
	}, tea.Quit)
}

// noteFor turns an action result into a local status line. Send failures
// are reported by the session notice instead.
func noteFor(msg actionMsg) string {
	switch {
	case msg.err == nil:
		if msg.action == "submit" || msg.action == "toggle" || msg.action == "remove" {
			return ""
		}
		return msg.action
	case errors.Is(msg.err, session.ErrEmptyMessage):
		return ""
	case errors.Is(msg.err, session.ErrEmptySelection):
		return ""
	case errors.Is(msg.err, session.ErrStopped), errors.Is(msg.err, context.Canceled):
		return "Session stopped"
	default:
		return msg.err.Error()
	}
}
