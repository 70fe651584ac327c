package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-tokens/pkg/emailverification"
	apperrors "github.com/tendant/simple-tokens/pkg/errors"
	"github.com/tendant/simple-tokens/pkg/sessions"
)

// Handler serves the email verification API
type Handler struct {
	service *emailverification.EmailVerificationService
	now     func() time.Time
}

// NewHandler creates a new email verification API handler
func NewHandler(service *emailverification.EmailVerificationService) *Handler {
	return &Handler{
		service: service,
		now:     time.Now,
	}
}

// PublicRoutes mounts the endpoints that need no session
func (h *Handler) PublicRoutes(r chi.Router) {
	r.Post("/verify", h.VerifyEmail)
}

// SessionRoutes mounts the endpoints that act on the signed-in user.
// The router must already run sessions.RequireLiveSession.
func (h *Handler) SessionRoutes(r chi.Router) {
	r.Post("/resend", h.ResendVerification)
	r.Get("/status", h.GetVerificationStatus)
}

// VerifyEmail handles POST /verify
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode request body", "error", err)
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}

	if req.Token == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Token is required"})
		return
	}

	if _, err := h.service.ConsumeEmailVerification(r.Context(), req.Token); err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, VerifyEmailResponse{
		Message:    "Email verified successfully",
		VerifiedAt: h.now().UTC().Format(time.RFC3339),
	})
}

// ResendVerification handles POST /resend
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessions.UserIDFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	if err := h.service.ResendVerification(r.Context(), userID); err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ResendVerificationResponse{
		Message: "Verification email sent successfully",
	})
}

// GetVerificationStatus handles GET /status
func (h *Handler) GetVerificationStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := sessions.UserIDFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, ErrorResponse{Error: "Unauthorized"})
		return
	}

	status, err := h.service.GetVerificationStatus(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	response := VerificationStatusResponse{EmailVerified: status.Verified}
	if status.VerifiedAt != nil {
		verifiedAt := status.VerifiedAt.UTC().Format(time.RFC3339)
		response.VerifiedAt = &verifiedAt
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response)
}

// writeError renders err with a generic public message. Invalid and expired
// tokens share the same message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.GetCode(err)
	status := apperrors.MapErrorCodeToHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		slog.Error("Email verification request failed", "path", r.URL.Path, "error", err)
	}

	message := apperrors.PublicMessage(code)
	if code == apperrors.ErrCodeNotFound {
		message = "User not found"
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}
