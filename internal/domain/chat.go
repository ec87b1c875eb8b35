// Package domain contains core domain types for the audience chat client.
package domain

import (
	"encoding/json"
)

// Role identifies who authored a chat entry.
type Role string

const (
	// RoleUser marks entries typed by the local user.
	RoleUser Role = "user"
	// RoleAssistant marks entries received from the backend.
	RoleAssistant Role = "assistant"
)

// Content is the payload of a chat entry. It is a closed union:
// PlainText, Structured or Opaque.
type Content interface {
	isContent()
}

// PlainText is free text, rendered as markdown by the view.
type PlainText struct {
	Text string
}

// Structured combines text with a product table. Table is nil when the
// backend sent a complex frame without a usable table.
type Structured struct {
	Text  string
	Table *ProductTable
}

// Opaque preserves a JSON object the client does not understand.
type Opaque struct {
	Raw    json.RawMessage
	Fields map[string]any
}

func (PlainText) isContent()  {}
func (Structured) isContent() {}
func (Opaque) isContent()     {}

// Entry is a single message in the session transcript.
type Entry struct {
	ID      int64
	Role    Role
	Content Content
	Pending bool
}

// HasTable reports whether the entry carries a selectable product table.
func (e Entry) HasTable() bool {
	s, ok := e.Content.(Structured)
	return ok && s.Table != nil
}

// Table returns the entry's product table, or nil.
func (e Entry) Table() *ProductTable {
	if s, ok := e.Content.(Structured); ok {
		return s.Table
	}
	return nil
}

// Clone returns a copy of the entry that shares no mutable state with e.
func (e Entry) Clone() Entry {
	switch c := e.Content.(type) {
	case Structured:
		c.Table = c.Table.Clone()
		e.Content = c
	case Opaque:
		if c.Raw != nil {
			c.Raw = append(json.RawMessage(nil), c.Raw...)
		}
		if c.Fields != nil {
			c.Fields = cloneValue(c.Fields).(map[string]any)
		}
		e.Content = c
	}
	return e
}

// cloneValue deep-copies the maps and slices produced by encoding/json.
func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
