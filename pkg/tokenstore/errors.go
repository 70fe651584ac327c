package tokenstore

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique constraint (token hash, jti, email) is violated
	ErrDuplicate = errors.New("duplicate record")

	// ErrUnknownKind is returned for a TokenKind without a backing table
	ErrUnknownKind = errors.New("unknown token kind")
)
