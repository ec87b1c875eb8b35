// Package protocol classifies inbound websocket frames and encodes outbound ones.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ashureev/audience-chat/internal/domain"
)

// ThreadIDPrefix marks the textual control frame that carries the session id.
const ThreadIDPrefix = "THREAD_ID:"

// Known discriminators of inbound JSON frames.
const (
	TypeComplex           = "complex"
	TypeSelectionReceived = "selection_received"
)

// ErrMalformedFrame is attached to frames that were decoded in a degraded form.
var ErrMalformedFrame = errors.New("malformed frame")

// Kind tags a classified frame.
type Kind int

const (
	// KindControl carries a session id.
	KindControl Kind = iota
	// KindPlainText is free text for the transcript.
	KindPlainText
	// KindStructured is text plus a product table.
	KindStructured
	// KindOpaque is an unrecognised JSON object.
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindControl:
		return "control"
	case KindPlainText:
		return "plain_text"
	case KindStructured:
		return "structured"
	case KindOpaque:
		return "opaque"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Frame is the result of classifying one inbound frame.
type Frame struct {
	Kind      Kind
	SessionID string
	// Content is set for every kind except KindControl.
	Content domain.Content
	// Issue is non-nil when the frame was accepted in a degraded form.
	Issue error
}

// envelope is decoded first so the discriminator is inspected in one place.
type envelope struct {
	Type    string          `json:"type"`
	Text    json.RawMessage `json:"text"`
	Table   json.RawMessage `json:"table"`
	Message json.RawMessage `json:"message"`
}

// Classify tags a raw inbound frame. It never fails: anything that cannot be
// understood degrades to plain text or an opaque object.
func Classify(raw string) Frame {
	if id, ok := strings.CutPrefix(raw, ThreadIDPrefix); ok {
		return Frame{Kind: KindControl, SessionID: id}
	}

	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return plainText(raw)
	}

	var fields map[string]any
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return plainText(raw)
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		// Known keys with unexpected shapes, e.g. "type": 3.
		return opaque(trimmed, fields)
	}

	switch env.Type {
	case TypeComplex:
		return structured(env)
	case TypeSelectionReceived:
		var msg string
		if len(env.Message) == 0 || json.Unmarshal(env.Message, &msg) != nil {
			return opaque(trimmed, fields)
		}
		return plainText(msg)
	default:
		return opaque(trimmed, fields)
	}
}

func plainText(text string) Frame {
	return Frame{Kind: KindPlainText, Content: domain.PlainText{Text: text}}
}

func opaque(raw []byte, fields map[string]any) Frame {
	return Frame{
		Kind:    KindOpaque,
		Content: domain.Opaque{Raw: json.RawMessage(raw), Fields: fields},
	}
}

func structured(env envelope) Frame {
	var missing []string

	var text string
	if len(env.Text) == 0 || json.Unmarshal(env.Text, &text) != nil {
		missing = append(missing, "text")
		text = ""
	}

	var table *domain.ProductTable
	if isPresent(env.Table) {
		var t domain.ProductTable
		if err := json.Unmarshal(env.Table, &t); err == nil {
			t.AssignRowKeys()
			table = &t
		}
	}
	if table == nil {
		missing = append(missing, "table")
	}

	f := Frame{
		Kind:    KindStructured,
		Content: domain.Structured{Text: text, Table: table},
	}
	if len(missing) > 0 {
		f.Issue = fmt.Errorf("%w: complex frame missing %s", ErrMalformedFrame, strings.Join(missing, ", "))
	}
	return f
}

func isPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}
