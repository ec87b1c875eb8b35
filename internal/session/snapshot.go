package session

import (
	"github.com/ashureev/audience-chat/internal/domain"
)

// Snapshot is a copy of session state for the view. Entries are deep
// copies, so changes made through a snapshot never reach the controller.
type Snapshot struct {
	Version   uint64
	State     State
	SessionID string
	Entries   []domain.Entry
	// Selections maps a table's entry id to its selected rows.
	Selections map[int64][]domain.Selected
	// Notice is a transient message for the user, empty when there is none.
	Notice string
}

// Interactive reports whether the user may send.
func (s Snapshot) Interactive() bool {
	return s.State == StateOpen
}

// IsSelected reports whether rowKey is selected in the table of entryID.
func (s Snapshot) IsSelected(entryID int64, rowKey string) bool {
	for _, sel := range s.Selections[entryID] {
		if sel.RowKey == rowKey {
			return true
		}
	}
	return false
}

func (c *Controller) buildSnapshot() Snapshot {
	sel := make(map[int64][]domain.Selected, len(c.selections))
	for id, acc := range c.selections {
		sel[id] = acc.Current()
	}
	entries := c.log.Entries()
	for i := range entries {
		entries[i] = entries[i].Clone()
	}
	return Snapshot{
		Version:    c.version,
		State:      c.state,
		SessionID:  c.sessionID,
		Entries:    entries,
		Selections: sel,
		Notice:     c.notice,
	}
}

// publish stores a fresh snapshot and offers it on the updates channel,
// replacing any snapshot the view has not picked up yet.
func (c *Controller) publish() {
	c.version++
	snap := c.buildSnapshot()

	c.snapMu.Lock()
	c.snap = snap
	c.snapMu.Unlock()

	select {
	case <-c.updates:
	default:
	}
	select {
	case c.updates <- snap:
	default:
	}
}
