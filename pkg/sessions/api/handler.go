package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	apperrors "github.com/tendant/simple-tokens/pkg/errors"
	"github.com/tendant/simple-tokens/pkg/sessions"
)

// Handler handles HTTP requests for session management
type Handler struct {
	service    *sessions.Service
	cookies    CookieSetter
	cookiePath string
}

// HandlerOption configures a Handler
type HandlerOption func(*Handler)

// WithCookies also returns credentials as HttpOnly cookies. The refresh
// cookie is scoped to refreshPath.
func WithCookies(setter CookieSetter, refreshPath string) HandlerOption {
	return func(h *Handler) {
		h.cookies = setter
		h.cookiePath = refreshPath
	}
}

// NewHandler creates a new session handler
func NewHandler(service *sessions.Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		service: service,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// PublicRoutes registers the routes that authenticate with a password or a
// refresh credential.
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
	r.Post("/logout", h.Logout)
}

// SessionRoutes registers the routes that require a live access credential.
// Mount them behind sessions.Verifier and sessions.RequireLiveSession.
func (h *Handler) SessionRoutes(r chi.Router) {
	r.Get("/", h.ListSessions)
	r.Post("/revoke-all", h.RevokeAllSessions)
}

// Login handles POST /login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Email and password are required"})
		return
	}

	pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.writeTokens(w, r, pair)
}

// Refresh handles POST /refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken := h.refreshToken(r)
	if refreshToken == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Refresh token is required"})
		return
	}

	pair, err := h.service.RotateSession(r.Context(), refreshToken)
	if err != nil {
		h.clearCookies(w)
		writeError(w, r, err)
		return
	}

	h.writeTokens(w, r, pair)
}

// Logout handles POST /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	refreshToken := h.refreshToken(r)
	h.clearCookies(w)
	if refreshToken == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.service.Logout(r.Context(), refreshToken); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSessions handles GET / - List active sessions for current user
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessions.UserIDFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}
	currentJTI, _ := sessions.JTIFromContext(r.Context())

	response, err := h.service.ListActiveSessions(r.Context(), userID, currentJTI)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response)
}

// RevokeAllSessions handles POST /revoke-all
func (h *Handler) RevokeAllSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessions.UserIDFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	count, err := h.service.RevokeAllSessions(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.clearCookies(w)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, RevokeAllResponse{
		Message: "All sessions revoked",
		Revoked: count,
	})
}

// refreshToken reads the refresh credential from the cookie, then the body
func (h *Handler) refreshToken(r *http.Request) string {
	if cookie, err := r.Cookie(RefreshTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	var req RefreshRequest
	if r.Body == nil {
		return ""
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ""
	}
	return strings.TrimSpace(req.RefreshToken)
}

func (h *Handler) writeTokens(w http.ResponseWriter, r *http.Request, pair *sessions.TokenPair) {
	if h.cookies != nil {
		h.cookies.SetCookie(w, AccessTokenCookieName, pair.AccessToken, "/", pair.AccessTokenExpiresAt)
		h.cookies.SetCookie(w, RefreshTokenCookieName, pair.RefreshToken, h.cookiePath, pair.RefreshTokenExpiresAt)
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, TokenResponse{
		AccessToken:           pair.AccessToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshToken:          pair.RefreshToken,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             "Bearer",
	})
}

func (h *Handler) clearCookies(w http.ResponseWriter) {
	if h.cookies == nil {
		return
	}
	h.cookies.ClearCookie(w, AccessTokenCookieName, "/")
	h.cookies.ClearCookie(w, RefreshTokenCookieName, h.cookiePath)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.GetCode(err)
	status := apperrors.MapErrorCodeToHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		slog.Error("Session request failed", "path", r.URL.Path, "error", err)
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: apperrors.PublicMessage(code)})
}
