// Package middleware provides HTTP middleware for the development backend.
package middleware

import (
	"log/slog"
	"net/http"
)

// OriginPolicy decides which browser origins may call the backend. An
// empty allow list or development mode admits every origin.
type OriginPolicy struct {
	allowed []string
	dev     bool
}

// NewOriginPolicy creates a policy for the given origins.
func NewOriginPolicy(dev bool, origins ...string) OriginPolicy {
	var allowed []string
	for _, o := range origins {
		if o != "" {
			allowed = append(allowed, o)
		}
	}
	return OriginPolicy{allowed: allowed, dev: dev}
}

// Allows reports whether origin may connect. Requests without an Origin
// header come from non-browser clients and are always allowed.
func (p OriginPolicy) Allows(origin string) bool {
	if p.dev || origin == "" || len(p.allowed) == 0 {
		return true
	}
	for _, o := range p.allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// explicit reports whether origin is named in the allow list, not just
// matched by a wildcard.
func (p OriginPolicy) explicit(origin string) bool {
	for _, o := range p.allowed {
		if o != "*" && o == origin {
			return true
		}
	}
	return false
}

// CheckRequest applies the policy to r and logs rejections.
func (p OriginPolicy) CheckRequest(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if p.Allows(origin) {
		return true
	}
	slog.Warn("Origin rejected", "origin", origin, "path", r.URL.Path)
	return false
}

// CORS returns middleware that sets CORS headers for allowed origins.
func CORS(p OriginPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" && p.Allows(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Add("Vary", "Origin")
				// Credentials only for explicitly listed origins.
				if p.explicit(origin) {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
