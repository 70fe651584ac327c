// Package emailverification proves that a user controls their email address.
//
// A verification token is a single-use secret. Only its SHA-256 digest is
// stored; the raw value travels in the emailed link and nowhere else.
//
// # Overview
//
// The emailverification package provides:
//   - Token issuance with one live token per user
//   - Atomic consumption that marks the address verified
//   - Resending to unverified users
//   - Verification status checking
//   - Expired token cleanup
//
// # Basic Usage
//
//	import "github.com/tendant/simple-tokens/pkg/emailverification"
//
//	renderer, err := notice.NewRenderer(notice.Config{FrontendBaseURL: "https://app.example.com"})
//	if err != nil {
//		return err
//	}
//	service := emailverification.NewEmailVerificationService(
//		store,
//		renderer,
//		notifier,
//		emailverification.WithTokenExpiry(24*time.Hour), // Default: 24 hours
//		emailverification.WithLimiter(limiter),
//	)
//
//	// After registration
//	_, err = service.IssueEmailVerification(ctx, user.ID)
//
//	// When the user follows https://app.example.com/verify-email?token=<raw>
//	userID, err := service.ConsumeEmailVerification(ctx, raw)
//
// # Delivery
//
// A failed send does not fail IssueEmailVerification. The token is already
// stored and the user can ask for a resend, which replaces it.
//
// # Errors
//
// ConsumeEmailVerification returns ErrInvalidToken for tokens that were
// consumed, superseded or never issued, and ErrTokenExpired the first time an
// expired token is presented. The expired row is deleted at that point, so a
// second attempt gets ErrInvalidToken. The api subpackage renders both with
// the same message.
//
// # HTTP API
//
//	h := api.NewHandler(service)
//	r.Route("/api/v1/email", func(r chi.Router) {
//		h.PublicRoutes(r) // POST /verify
//		r.Group(func(r chi.Router) {
//			r.Use(sessions.Verifier(tokenAuth))
//			r.Use(sessions.RequireLiveSession(sessionService))
//			h.SessionRoutes(r) // POST /resend, GET /status
//		})
//	})
package emailverification
