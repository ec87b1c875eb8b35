package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOriginPolicyAllows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		policy OriginPolicy
		origin string
		want   bool
	}{
		{"dev admits all", NewOriginPolicy(true, "https://app.example.com"), "https://evil.example.com", true},
		{"no origin header", NewOriginPolicy(false, "https://app.example.com"), "", true},
		{"empty list", NewOriginPolicy(false, ""), "https://any.example.com", true},
		{"listed", NewOriginPolicy(false, "https://app.example.com"), "https://app.example.com", true},
		{"unlisted", NewOriginPolicy(false, "https://app.example.com"), "https://evil.example.com", false},
		{"wildcard", NewOriginPolicy(false, "*"), "https://any.example.com", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.policy.Allows(tt.origin); got != tt.want {
				t.Fatalf("Allows(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestCORSHeaders(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := CORS(NewOriginPolicy(false, "https://app.example.com", "*"))(next)

	req := httptest.NewRequest(http.MethodGet, "/api/threads/1/selections", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusTeapot {
		t.Fatalf("expected handler to run, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("unexpected allow origin %q", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("expected credentials for explicit origin")
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/threads/1/selections", nil)
	req.Header.Set("Origin", "https://other.example.com")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected preflight 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Fatal("wildcard match must not allow credentials")
	}
}
