// Package errors provides the typed error taxonomy for the token subsystem.
//
// Every failure a caller can observe is one of a small set of codes:
//
//   - TOKEN_INVALID: the presented secret matches no live token (consumed, forged, never issued)
//   - TOKEN_EXPIRED: the token existed but was past its expiry; it is deleted on discovery
//   - SESSION_INVALID: the refresh credential is unknown, expired, revoked or malformed
//   - SESSION_REPLAY: a retired refresh credential was presented again (wraps SESSION_INVALID)
//   - SEND_FAILED: a required outbound email could not be delivered (password reset only)
//   - DUPLICATE_ISSUANCE: issuance collided on the unique hash twice in a row
//   - RATE_LIMIT_EXCEEDED: issuance was throttled
//
// # Basic Usage
//
// Services return the package sentinels, optionally wrapped:
//
//	if errors.Is(err, idmerrors.ErrSessionReplay) {
//		// revoke, alert
//	}
//
// The boundary layer maps codes to transport status with MapErrorCodeToHTTPStatus and
// renders PublicMessage, which deliberately gives TOKEN_INVALID and TOKEN_EXPIRED the
// same text so a link cannot be probed for which case applies.
package errors
