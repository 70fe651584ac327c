package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	apperrors "github.com/tendant/simple-tokens/pkg/errors"
	"github.com/tendant/simple-tokens/pkg/passwordreset"
)

// requestAccepted is returned whether or not the address has an account
const requestAccepted = "If an account exists for that address, a reset link has been sent"

// Handler serves the password reset API
type Handler struct {
	service *passwordreset.Service
}

// NewHandler creates a new password reset API handler
func NewHandler(service *passwordreset.Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the password reset endpoints. None of them need a session.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/request", h.RequestReset)
	r.Post("/confirm", h.ConfirmReset)
	r.Get("/validate", h.ValidateToken)
}

// RequestReset handles POST /request
func (h *Handler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req RequestResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Email == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Email is required"})
		return
	}

	if err := h.service.IssuePasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, MessageResponse{Message: requestAccepted})
}

// ConfirmReset handles POST /confirm
func (h *Handler) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	var req ConfirmResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Token == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Token is required"})
		return
	}

	if _, err := h.service.ConsumePasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MessageResponse{Message: "Password has been reset"})
}

// ValidateToken handles GET /validate?token=
func (h *Handler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Error: "Token is required"})
		return
	}

	expiresAt, err := h.service.ValidateResetToken(r.Context(), token)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ValidateResponse{Valid: true, ExpiresAt: expiresAt})
}

// writeError renders err with a generic public message. Password policy
// failures keep their own message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.GetCode(err)
	status := apperrors.MapErrorCodeToHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		slog.Error("Password reset request failed", "path", r.URL.Path, "error", err)
	}

	message := apperrors.PublicMessage(code)
	var appErr *apperrors.Error
	if code == apperrors.ErrCodeInvalidInput && errors.As(err, &appErr) {
		message = appErr.Message
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: message})
}
