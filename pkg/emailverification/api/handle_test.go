package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-tokens/pkg/emailverification"
	"github.com/tendant/simple-tokens/pkg/notice"
	"github.com/tendant/simple-tokens/pkg/sessions"
	"github.com/tendant/simple-tokens/pkg/tokenstore"
)

func newTestRouter(t *testing.T) (http.Handler, *emailverification.EmailVerificationService, *tokenstore.User) {
	t.Helper()
	store := tokenstore.NewInMemoryStore()
	user, err := store.CreateUser(context.Background(), "user@example.com", "hash")
	require.NoError(t, err)

	renderer, err := notice.NewRenderer(notice.Config{FrontendBaseURL: "https://app.example.com"})
	require.NoError(t, err)
	service := emailverification.NewEmailVerificationService(store, renderer, nil)
	h := NewHandler(service)

	r := chi.NewRouter()
	r.Route("/email", func(r chi.Router) {
		h.PublicRoutes(r)
		r.Group(func(r chi.Router) {
			// stands in for sessions.RequireLiveSession
			r.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					if r.Header.Get("X-Test-User") == "" {
						next.ServeHTTP(w, r)
						return
					}
					ctx := sessions.WithSession(r.Context(), user.ID, "test-jti")
					next.ServeHTTP(w, r.WithContext(ctx))
				})
			})
			h.SessionRoutes(r)
		})
	})
	return r, service, user
}

func TestVerifyEmail(t *testing.T) {
	router, service, user := newTestRouter(t)

	raw, err := service.IssueEmailVerification(context.Background(), user.ID)
	require.NoError(t, err)

	body, _ := json.Marshal(VerifyEmailRequest{Token: raw})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/email/verify", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/email/verify", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errResp))
	assert.Equal(t, "Invalid or expired link", errResp.Error)
}

func TestVerifyEmail_MissingToken(t *testing.T) {
	router, _, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/email/verify", bytes.NewReader([]byte(`{}`))))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStatusAndResend(t *testing.T) {
	router, _, _ := newTestRouter(t)

	t.Run("Unauthenticated", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/email/status", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/email/status", nil)
		req.Header.Set("X-Test-User", "1")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp VerificationStatusResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.False(t, resp.EmailVerified)
		assert.Nil(t, resp.VerifiedAt)
	})

	t.Run("Resend", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/email/resend", nil)
		req.Header.Set("X-Test-User", "1")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
