package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/ashureev/audience-chat/internal/domain"
)

var transcriptTmpl = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; }
.entry { margin: 12px 0; padding: 8px 12px; border-radius: 8px; }
.user { background: #e6f7e6; margin-left: 20%; }
.assistant { background: #fdf3ea; margin-right: 20%; }
table { border-collapse: collapse; margin: 8px 0; }
td, th { border: 1px solid #ddd; padding: 4px 8px; text-align: left; }
tr.selected { background: #e6f0ff; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Entries}}<div class="entry {{.Role}}">
{{.Body}}
{{with .Table}}<p><em>{{.Query}}</em> &middot; {{.TotalResults}} results</p>
<table>
<tr><th>Buyer Category</th><th>Product Category</th><th>Sample SKUs</th><th>Total SKUs</th></tr>
{{range .Rows}}<tr{{if .Selected}} class="selected"{{end}}><td>{{.BuyerCategory}}</td><td>{{.ProductCategory}}</td><td>{{range .SKUs}}{{.Name}} (SKU: {{.SKU}})<br>{{end}}</td><td>{{.SampleCount}}</td></tr>
{{end}}</table>
{{end}}</div>
{{end}}</body>
</html>
`))

type transcriptRow struct {
	domain.TableRow
	Selected bool
}

type transcriptTable struct {
	Query        string
	TotalResults int
	Rows         []transcriptRow
}

type transcriptEntry struct {
	Role  domain.Role
	Body  template.HTML
	Table *transcriptTable
}

// WriteTranscript writes entries as a standalone HTML page. Markdown goes
// through r, which must return HTML that is safe to embed.
func WriteTranscript(w io.Writer, title string, entries []domain.Entry, selections map[int64][]domain.Selected, r Renderer) error {
	data := struct {
		Title   string
		Entries []transcriptEntry
	}{Title: title}

	for _, e := range entries {
		te, err := transcriptEntryFor(e, selections[e.ID], r)
		if err != nil {
			return fmt.Errorf("entry %d: %w", e.ID, err)
		}
		data.Entries = append(data.Entries, te)
	}

	if err := transcriptTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

func transcriptEntryFor(e domain.Entry, selected []domain.Selected, r Renderer) (transcriptEntry, error) {
	te := transcriptEntry{Role: e.Role}
	switch c := e.Content.(type) {
	case domain.PlainText:
		body, err := r.Render(c.Text)
		if err != nil {
			return te, err
		}
		te.Body = template.HTML(body) //nolint:gosec // sanitised by the renderer
	case domain.Structured:
		body, err := r.Render(c.Text)
		if err != nil {
			return te, err
		}
		te.Body = template.HTML(body) //nolint:gosec // sanitised by the renderer
		if c.Table != nil {
			te.Table = tableFor(c.Table, selected)
		}
	case domain.Opaque:
		var buf bytes.Buffer
		if err := json.Indent(&buf, c.Raw, "", "  "); err != nil {
			buf.Reset()
			buf.Write(c.Raw)
		}
		te.Body = template.HTML("<pre>" + template.HTMLEscapeString(buf.String()) + "</pre>") //nolint:gosec // escaped above
	}
	return te, nil
}

func tableFor(t *domain.ProductTable, selected []domain.Selected) *transcriptTable {
	picked := make(map[string]bool, len(selected))
	for _, s := range selected {
		picked[s.RowKey] = true
	}
	out := &transcriptTable{Query: t.Query, TotalResults: t.TotalResults}
	for _, row := range t.Rows {
		out.Rows = append(out.Rows, transcriptRow{TableRow: row, Selected: picked[row.RowKey]})
	}
	return out
}
