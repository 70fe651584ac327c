package sessions

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	apperrors "github.com/tendant/simple-tokens/pkg/errors"
	"github.com/tendant/simple-tokens/pkg/tokengenerator"
)

// AccessTokenCookieName is the cookie the verifier reads when no bearer header is sent
const AccessTokenCookieName = "access_token"

// contextKey is a value for use with context.WithValue
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "sessions context value " + k.name
}

var (
	userIDKey = &contextKey{"UserID"}
	jtiKey    = &contextKey{"JTI"}
)

// WithSession returns a copy of ctx carrying the session owner and jti
func WithSession(ctx context.Context, userID uuid.UUID, jti string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, jtiKey, jti)
}

// UserIDFromContext returns the user of the live session on the request
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// JTIFromContext returns the jti of the live session on the request
func JTIFromContext(ctx context.Context) (string, bool) {
	jti, ok := ctx.Value(jtiKey).(string)
	return jti, ok && jti != ""
}

// Verifier checks the signature and expiry of the access credential from the
// Authorization header or the access token cookie.
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return jwtauth.Verify(ja, jwtauth.TokenFromHeader, TokenFromCookie)(next)
	}
}

// TokenFromCookie reads the access credential cookie
func TokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(AccessTokenCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// RequireLiveSession must run after Verifier. It rejects refresh credentials
// and sessions that were revoked after the access credential was signed.
func RequireLiveSession(service *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, claims, err := jwtauth.FromContext(r.Context())
			if err != nil {
				slog.Debug("Missing or invalid access credential", "error", err)
				unauthorized(w, r)
				return
			}

			if use, _ := claims["token_use"].(string); use != tokengenerator.AccessTokenUse {
				slog.Warn("Credential with wrong use presented as access", "token_use", use)
				unauthorized(w, r)
				return
			}
			jti, _ := claims["jti"].(string)
			sub, _ := claims["sub"].(string)
			userID, err := uuid.Parse(sub)
			if err != nil || jti == "" {
				unauthorized(w, r)
				return
			}

			if err := service.CheckSession(r.Context(), jti, userID); err != nil {
				if !apperrors.IsCode(err, apperrors.ErrCodeSessionInvalid) {
					slog.Error("Failed to check session", "jti", jti, "error", err)
					render.Status(r, http.StatusInternalServerError)
					render.JSON(w, r, map[string]string{"error": apperrors.PublicMessage(apperrors.ErrCodeInternal)})
					return
				}
				slog.Info("Access credential for dead session", "jti", jti, "user_id", userID)
				unauthorized(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), userID, jti)))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]string{"error": apperrors.PublicMessage(apperrors.ErrCodeSessionInvalid)})
}
