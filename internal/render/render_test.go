package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ashureev/audience-chat/internal/domain"
)

func TestHTMLRendersMarkdown(t *testing.T) {
	t.Parallel()

	out, err := NewHTML().Render("**Top** categories:\n- Tea")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(out, "<strong>Top</strong>") {
		t.Fatalf("expected bold markup, got %s", out)
	}
	if !strings.Contains(out, "<li>Tea</li>") {
		t.Fatalf("expected list item, got %s", out)
	}
}

func TestHTMLSanitises(t *testing.T) {
	t.Parallel()

	out, err := NewHTML().Render(`hello <script>alert(1)</script><a href="javascript:alert(1)">x</a>`)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if strings.Contains(out, "<script>") || strings.Contains(out, "javascript:") {
		t.Fatalf("unsafe markup survived: %s", out)
	}
}

func TestWriteTranscript(t *testing.T) {
	t.Parallel()

	table := &domain.ProductTable{Query: "tea", TotalResults: 2, Rows: []domain.TableRow{
		{BuyerCategory: "Drinks", ProductCategory: "Tea", SKUs: []domain.SKU{{Name: "Green", SKU: "G1"}}, SampleCount: 2, RowKey: "Drinks-Tea-0"},
		{BuyerCategory: "Drinks", ProductCategory: "Herbal", SampleCount: 1, RowKey: "Drinks-Herbal-1"},
	}}
	entries := []domain.Entry{
		{ID: 1, Role: domain.RoleUser, Content: domain.PlainText{Text: "tea"}},
		{ID: 2, Role: domain.RoleAssistant, Content: domain.Structured{Text: "Found:", Table: table}},
		{ID: 3, Role: domain.RoleAssistant, Content: domain.Opaque{Raw: []byte(`{"foo":"<b>"}`)}},
	}
	selections := map[int64][]domain.Selected{2: {{BuyerCategory: "Drinks", ProductCategory: "Tea", RowKey: "Drinks-Tea-0"}}}

	var buf bytes.Buffer
	if err := WriteTranscript(&buf, "Session 1", entries, selections, NewHTML()); err != nil {
		t.Fatalf("WriteTranscript failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"<title>Session 1</title>", `class="entry user"`, "Green (SKU: G1)", `<tr class="selected"><td>Drinks</td><td>Tea</td>`, "&lt;b&gt;"} {
		if !strings.Contains(out, want) {
			t.Fatalf("transcript missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, `class="selected"`) != 1 {
		t.Fatalf("expected exactly one selected row:\n%s", out)
	}
}

func TestPlainRenderer(t *testing.T) {
	t.Parallel()

	out, err := Plain{}.Render("*as is*")
	if err != nil || out != "*as is*" {
		t.Fatalf("unexpected plain output %q err=%v", out, err)
	}
}

func TestTerminalRendersAndResizes(t *testing.T) {
	t.Parallel()

	r, err := NewTerminal(60, "notty")
	if err != nil {
		t.Fatalf("NewTerminal: %v", err)
	}
	out, err := r.Render("Found **3** products")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "products") {
		t.Fatalf("unexpected output %q", out)
	}
	if err := r.SetWidth(5); err != nil {
		t.Fatalf("SetWidth: %v", err)
	}
	if _, err := r.Render("still works"); err != nil {
		t.Fatalf("Render after resize: %v", err)
	}
}
