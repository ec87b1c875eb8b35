// Package web embeds the browser test page served by the development
// backend.
package web

import (
	_ "embed"
	"log/slog"
	"net/http"
)

//go:embed dist/index.html
var testPage []byte

// TestPage serves the embedded chat test page. Methods other than GET and
// HEAD are rejected.
func TestPage() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		if r.Method == http.MethodHead {
			return
		}
		if _, err := w.Write(testPage); err != nil {
			slog.Debug("web: failed to write test page", "error", err)
		}
	})
}
