package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashureev/audience-chat/internal/domain"
	"github.com/ashureev/audience-chat/internal/session"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const chromeLines = 4

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.viewport.Width = width
	m.viewport.Height = max(height-chromeLines, 1)
	m.input.Width = max(width-4, 10)
	if r, ok := m.renderer.(interface{ SetWidth(int) error }); ok {
		_ = r.SetWidth(width - 4)
	}
	m.ready = true
}

// refresh re-renders the conversation. follow scrolls to the newest entry.
func (m *Model) refresh(follow bool) {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderEntries())
	if follow && (atBottom || m.mode == modeChat) {
		m.viewport.GotoBottom()
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.statusLine())
	b.WriteByte('\n')
	b.WriteString(m.viewport.View())
	b.WriteByte('\n')

	notice := m.snap.Notice
	if notice == "" {
		notice = m.localNote
	}
	b.WriteString(m.theme.notice.Render(notice))
	b.WriteByte('\n')

	if m.mode == modeTable {
		b.WriteString(m.selectionSummary())
	} else {
		b.WriteString(m.input.View())
	}
	b.WriteByte('\n')
	b.WriteString(m.theme.help.Render(m.helpLine()))
	return b.String()
}

func (m Model) statusLine() string {
	t := m.theme
	title := t.header.Render("Audience Builder")
	var status string
	switch m.snap.State {
	case session.StateOpen:
		status = t.connected.Render("● Connected")
		if m.snap.SessionID != "" {
			status += t.muted.Render(" Thread ID: " + m.snap.SessionID)
		}
	case session.StateConnecting:
		status = t.waiting.Render("○ Connecting...")
	default:
		status = t.closed.Render("○ Disconnected")
	}
	return title + "  " + status
}

func (m Model) helpLine() string {
	if m.mode == modeTable {
		return "↑/↓ move • space toggle • x remove • a apply • [/] other tables • esc back"
	}
	return "enter send • tab select categories • pgup/pgdown scroll • esc quit"
}

func (m Model) selectionSummary() string {
	sel := m.snap.Selections[m.tableEntry]
	if len(sel) == 0 {
		return m.theme.muted.Render("No categories selected")
	}
	tags := make([]string, 0, len(sel))
	for _, s := range sel {
		tags = append(tags, m.theme.tag.Render(s.BuyerCategory+" > "+s.ProductCategory))
	}
	label := fmt.Sprintf("Apply Selection (%d): ", len(sel))
	return label + lipgloss.JoinHorizontal(lipgloss.Top, tags...)
}

func (m Model) renderEntries() string {
	if len(m.snap.Entries) == 0 {
		return m.theme.muted.Render("Start a conversation...")
	}
	var b strings.Builder
	for i, e := range m.snap.Entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderEntry(e))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderEntry(e domain.Entry) string {
	var b strings.Builder
	if e.Role == domain.RoleUser {
		b.WriteString(m.theme.user.Render("You"))
	} else {
		b.WriteString(m.theme.assistant.Render("Assistant"))
	}
	b.WriteByte('\n')

	switch c := e.Content.(type) {
	case domain.PlainText:
		b.WriteString(m.markdown(c.Text))
	case domain.Structured:
		b.WriteString(m.markdown(c.Text))
		if c.Table != nil {
			b.WriteByte('\n')
			b.WriteString(m.renderTable(e.ID, c.Table))
		}
	case domain.Opaque:
		b.WriteString(m.theme.muted.Render(opaqueText(c)))
	}
	return b.String()
}

func (m Model) markdown(text string) string {
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func (m Model) renderTable(entryID int64, pt *domain.ProductTable) string {
	active := m.mode == modeTable && m.tableEntry == entryID
	rows := make([][]string, 0, len(pt.Rows))
	for _, r := range pt.Rows {
		mark := "[ ]"
		if m.snap.IsSelected(entryID, r.RowKey) {
			mark = "[x]"
		}
		rows = append(rows, []string{mark, r.BuyerCategory, r.ProductCategory, skuText(r), fmt.Sprint(r.SampleCount)})
	}

	t := m.theme
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(t.muted).
		Headers("", "Buyer Category", "Product Category", "Sample SKUs", "Count").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return t.headerRow
			}
			if row < 0 || row >= len(pt.Rows) {
				return t.cell
			}
			if active && row == m.cursor {
				return t.cursor
			}
			if m.snap.IsSelected(entryID, pt.Rows[row].RowKey) {
				return t.selected
			}
			return t.cell
		})

	caption := fmt.Sprintf("%d results for %q", pt.TotalResults, pt.Query)
	return t.muted.Render(caption) + "\n" + tbl.Render()
}

func skuText(r domain.TableRow) string {
	parts := make([]string, 0, len(r.SKUs))
	for _, s := range r.SKUs {
		parts = append(parts, fmt.Sprintf("%s (%s)", s.Name, s.SKU))
	}
	return strings.Join(parts, ", ")
}

func opaqueText(c domain.Opaque) string {
	var v any
	if err := json.Unmarshal(c.Raw, &v); err != nil {
		return string(c.Raw)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(c.Raw)
	}
	return string(out)
}
