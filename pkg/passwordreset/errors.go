package passwordreset

import (
	apperrors "github.com/tendant/simple-tokens/pkg/errors"
)

var (
	// ErrInvalidToken covers unknown, consumed and superseded reset tokens
	ErrInvalidToken = apperrors.ErrInvalidToken

	// ErrTokenExpired is returned the first time an expired reset token is presented
	ErrTokenExpired = apperrors.ErrTokenExpired

	// ErrSendFailed means the reset email was not delivered. The token was kept,
	// so the request can be retried.
	ErrSendFailed = apperrors.ErrSendFailed

	// ErrRateLimitExceeded is returned when too many resets were requested for an address
	ErrRateLimitExceeded = apperrors.ErrRateLimited
)
