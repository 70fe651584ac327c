package emailverification

import (
	apperrors "github.com/tendant/simple-tokens/pkg/errors"
)

var (
	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = apperrors.New(apperrors.ErrCodeNotFound, "user not found")

	// ErrAlreadyVerified is returned when resending to an already verified address
	ErrAlreadyVerified = apperrors.ErrAlreadyVerified

	// ErrInvalidToken covers unknown, consumed and superseded tokens
	ErrInvalidToken = apperrors.ErrInvalidToken

	// ErrTokenExpired is returned the first time an expired token is presented
	ErrTokenExpired = apperrors.ErrTokenExpired

	// ErrRateLimitExceeded is returned when too many verification emails were requested
	ErrRateLimitExceeded = apperrors.ErrRateLimited
)
