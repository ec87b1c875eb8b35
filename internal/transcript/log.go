// Package transcript holds the ordered message log of a chat session.
package transcript

import (
	"errors"
	"fmt"

	"github.com/ashureev/audience-chat/internal/domain"
)

// ErrUnknownEntry is returned for ids that were never appended.
var ErrUnknownEntry = errors.New("unknown entry")

// Log is an append-only sequence of chat entries. Ids start at 1 and grow by
// one per append. A Log is not safe for concurrent use; the session actor
// owns it.
type Log struct {
	entries []domain.Entry
	nextID  int64
}

// New creates an empty log.
func New() *Log {
	return &Log{nextID: 1}
}

// Append adds a resolved entry and returns it.
func (l *Log) Append(role domain.Role, content domain.Content) domain.Entry {
	return l.append(role, content, false)
}

// AppendPending adds an entry still waiting to be resolved.
func (l *Log) AppendPending(role domain.Role, content domain.Content) domain.Entry {
	return l.append(role, content, true)
}

func (l *Log) append(role domain.Role, content domain.Content, pending bool) domain.Entry {
	e := domain.Entry{
		ID:      l.nextID,
		Role:    role,
		Content: content,
		Pending: pending,
	}
	l.nextID++
	l.entries = append(l.entries, e)
	return e
}

// MarkResolved clears the pending flag of an entry. Resolving an already
// resolved entry is a no-op.
func (l *Log) MarkResolved(id int64) error {
	i, ok := l.index(id)
	if !ok {
		return fmt.Errorf("mark resolved %d: %w", id, ErrUnknownEntry)
	}
	l.entries[i].Pending = false
	return nil
}

// Entry returns the entry with the given id.
func (l *Log) Entry(id int64) (domain.Entry, bool) {
	i, ok := l.index(id)
	if !ok {
		return domain.Entry{}, false
	}
	return l.entries[i], true
}

// Entries returns a copy of the log in append order.
func (l *Log) Entries() []domain.Entry {
	out := make([]domain.Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// index relies on ids being dense and starting at 1.
func (l *Log) index(id int64) (int, bool) {
	i := int(id - 1)
	if id < 1 || i >= len(l.entries) {
		return 0, false
	}
	return i, true
}
