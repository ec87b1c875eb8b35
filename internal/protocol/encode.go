package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/ashureev/audience-chat/internal/domain"
)

// EncodeSelection renders an outbound selection as a text frame.
func EncodeSelection(msg domain.OutboundSelection) (string, error) {
	if msg.Type == "" {
		msg.Type = domain.MessageTypeSelection
	}
	if msg.Categories == nil {
		msg.Categories = []domain.Category{}
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encode selection: %w", err)
	}
	return string(data), nil
}

// EncodeSelectionReceived builds the backend's acknowledgement frame.
func EncodeSelectionReceived(message string) (string, error) {
	data, err := json.Marshal(struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}{Type: TypeSelectionReceived, Message: message})
	if err != nil {
		return "", fmt.Errorf("encode selection ack: %w", err)
	}
	return string(data), nil
}

// EncodeComplex builds a complex frame carrying text and a product table.
func EncodeComplex(text string, table domain.ProductTable) (string, error) {
	if table.Rows == nil {
		table.Rows = []domain.TableRow{}
	}
	data, err := json.Marshal(struct {
		Type  string              `json:"type"`
		Text  string              `json:"text"`
		Table domain.ProductTable `json:"table"`
	}{Type: TypeComplex, Text: text, Table: table})
	if err != nil {
		return "", fmt.Errorf("encode complex frame: %w", err)
	}
	return string(data), nil
}

// DecodeSelection parses an inbound selection command. ok is false when
// raw is not a selection frame.
func DecodeSelection(raw string) (msg domain.OutboundSelection, ok bool, err error) {
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return domain.OutboundSelection{}, false, nil
	}
	if msg.Type != domain.MessageTypeSelection {
		return domain.OutboundSelection{}, false, nil
	}
	for i, c := range msg.Categories {
		if c.BuyerCategory == "" || c.ProductCategory == "" {
			return msg, true, fmt.Errorf("%w: category %d incomplete", ErrMalformedFrame, i)
		}
	}
	return msg, true, nil
}
