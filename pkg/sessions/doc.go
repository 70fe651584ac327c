// Package sessions manages login sessions built from a short-lived access
// credential and a rotating refresh credential.
//
// Every session is one refresh token row keyed by jti. RotateSession retires
// the row and creates its successor in the same transaction. Presenting a
// retired refresh credential again is treated as theft: all of the user's
// sessions are revoked and ErrSessionReplay is returned.
//
// HTTP routes live in the api subpackage. Verifier and RequireLiveSession
// protect routes that need a live access credential.
package sessions
