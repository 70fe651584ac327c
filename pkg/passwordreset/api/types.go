package api

import "time"

// RequestResetRequest is the body of POST /request
type RequestResetRequest struct {
	Email string `json:"email"`
}

// ConfirmResetRequest is the body of POST /confirm
type ConfirmResetRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// MessageResponse carries a human readable result
type MessageResponse struct {
	Message string `json:"message"`
}

// ValidateResponse is returned by GET /validate
type ValidateResponse struct {
	Valid     bool      `json:"valid"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}
