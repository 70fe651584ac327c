package ratelimit

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/render"
)

// Middleware throttles requests per client IP with a Limiter. It is mounted in
// front of the endpoints that accept raw secrets.
type Middleware struct {
	limiter Limiter
	scope   string
}

// NewMiddleware creates a middleware; scope namespaces the keys
func NewMiddleware(limiter Limiter, scope string) *Middleware {
	return &Middleware{limiter: limiter, scope: scope}
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler returns the rate limiting middleware handler
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getClientIP(r)
		err := m.limiter.Allow(r.Context(), m.scope+":"+ip)
		switch {
		case errors.Is(err, ErrRateLimited):
			slog.Warn("Rate limit exceeded", "scope", m.scope, "ip", ip, "path", r.URL.Path, "method", r.Method)
			w.Header().Set("Retry-After", "60")
			render.Status(r, http.StatusTooManyRequests)
			render.JSON(w, r, errorResponse{Error: "Too many requests, please try again later"})
			return
		case err != nil:
			// Limiter backend down: log and let the request through.
			slog.Error("Rate limiter failed", "scope", m.scope, "error", err)
		}
		next.ServeHTTP(w, r)
	})
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs, take the first one
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// RemoteAddr is in format "IP:port", we only want the IP
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
