// Package render turns markdown chat text into displayable output.
package render

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts markdown text into output for a particular surface.
type Renderer interface {
	Render(text string) (string, error)
}

// HTML renders markdown to sanitised HTML that is safe to embed in a page.
type HTML struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewHTML creates an HTML renderer. Line breaks inside paragraphs are kept
// as <br>, matching how chat text is written.
func NewHTML() *HTML {
	return &HTML{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithUnsafe()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render implements Renderer.
func (h *HTML) Render(text string) (string, error) {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return h.policy.Sanitize(buf.String()), nil
}

// Terminal renders markdown with ANSI styling for the TUI.
type Terminal struct {
	mu    sync.Mutex
	width int
	style string
	tr    *glamour.TermRenderer
}

// NewTerminal creates a terminal renderer wrapping at width columns. style
// is a glamour style name; empty picks dark or light from the terminal
// background, detected once here so later resizes never query the terminal.
func NewTerminal(width int, style string) (*Terminal, error) {
	if style == "" {
		style = "light"
		if lipgloss.HasDarkBackground() {
			style = "dark"
		}
	}
	t := &Terminal{style: style}
	if err := t.SetWidth(width); err != nil {
		return nil, err
	}
	return t, nil
}

// SetWidth rebuilds the renderer for a new wrap width.
func (t *Terminal) SetWidth(width int) error {
	if width < 20 {
		width = 20
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tr != nil && width == t.width {
		return nil
	}
	tr, err := glamour.NewTermRenderer(glamour.WithStandardStyle(t.style), glamour.WithWordWrap(width))
	if err != nil {
		return fmt.Errorf("create terminal renderer: %w", err)
	}
	t.tr = tr
	t.width = width
	return nil
}

// Render implements Renderer.
func (t *Terminal) Render(text string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out, err := t.tr.Render(text)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.Trim(out, "\n"), nil
}

// Plain returns text unchanged. It is the fallback when no styled renderer
// is available.
type Plain struct{}

// Render implements Renderer.
func (Plain) Render(text string) (string, error) {
	return text, nil
}
