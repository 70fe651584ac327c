package emailverification

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-tokens/pkg/notice"
	"github.com/tendant/simple-tokens/pkg/notification"
	"github.com/tendant/simple-tokens/pkg/ratelimit"
	"github.com/tendant/simple-tokens/pkg/secret"
	"github.com/tendant/simple-tokens/pkg/tokenstore"
)

var tokenPattern = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)

type testEnv struct {
	service  *EmailVerificationService
	store    *tokenstore.InMemoryStore
	notifier *notification.MockNotifier
	now      time.Time
	user     *tokenstore.User
}

func newTestEnv(t *testing.T, opts ...EmailVerificationServiceOption) *testEnv {
	t.Helper()
	env := &testEnv{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	env.store = tokenstore.NewInMemoryStore()

	user, err := env.store.CreateUser(context.Background(), "user@example.com", "hash")
	require.NoError(t, err)
	env.user = user

	renderer, err := notice.NewRenderer(notice.Config{FrontendBaseURL: "https://app.example.com"})
	require.NoError(t, err)
	env.notifier = notification.NewMockNotifier()

	opts = append([]EmailVerificationServiceOption{WithClock(func() time.Time { return env.now })}, opts...)
	env.service = NewEmailVerificationService(env.store, renderer, env.notifier, opts...)
	return env
}

func (env *testEnv) sentToken(t *testing.T) string {
	t.Helper()
	msg, ok := env.notifier.Last()
	require.True(t, ok, "no email sent")
	match := tokenPattern.FindStringSubmatch(msg.HTML)
	require.Len(t, match, 2)
	return match[1]
}

func TestIssueEmailVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	raw, err := env.service.IssueEmailVerification(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, raw, env.sentToken(t))

	msg, _ := env.notifier.Last()
	assert.Equal(t, "user@example.com", msg.To)
	assert.Contains(t, msg.HTML, "https://app.example.com/verify-email?token=")

	token, err := env.store.FindOneTimeTokenByHash(ctx, tokenstore.KindEmailVerification, secret.Hash(raw))
	require.NoError(t, err)
	assert.Equal(t, env.now.Add(24*time.Hour), token.ExpiresAt)
}

func TestIssueEmailVerification_UnknownUser(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.service.IssueEmailVerification(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestIssueEmailVerification_SendFailureStillIssues(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.FailWith(errors.New("smtp down"))

	raw, err := env.service.IssueEmailVerification(context.Background(), env.user.ID)
	require.NoError(t, err)

	_, err = env.service.ConsumeEmailVerification(context.Background(), raw)
	require.NoError(t, err)
}

func TestIssueEmailVerification_RateLimited(t *testing.T) {
	env := newTestEnv(t, WithLimiter(ratelimit.NewMemoryLimiter(2, time.Hour)))
	ctx := context.Background()

	_, err := env.service.IssueEmailVerification(ctx, env.user.ID)
	require.NoError(t, err)
	_, err = env.service.IssueEmailVerification(ctx, env.user.ID)
	require.NoError(t, err)
	_, err = env.service.IssueEmailVerification(ctx, env.user.ID)
	assert.ErrorIs(t, err, ErrRateLimitExceeded)
}

func TestConsumeEmailVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	raw, err := env.service.IssueEmailVerification(ctx, env.user.ID)
	require.NoError(t, err)

	userID, err := env.service.ConsumeEmailVerification(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, env.user.ID, userID)

	status, err := env.service.GetVerificationStatus(ctx, env.user.ID)
	require.NoError(t, err)
	assert.True(t, status.Verified)
	require.NotNil(t, status.VerifiedAt)

	t.Run("SecondUseIsInvalid", func(t *testing.T) {
		_, err := env.service.ConsumeEmailVerification(ctx, raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("ResendRefused", func(t *testing.T) {
		err := env.service.ResendVerification(ctx, env.user.ID)
		assert.ErrorIs(t, err, ErrAlreadyVerified)
	})
}

func TestConsumeEmailVerification_Expired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	raw, err := env.service.IssueEmailVerification(ctx, env.user.ID)
	require.NoError(t, err)

	env.now = env.now.Add(24*time.Hour + time.Second)

	_, err = env.service.ConsumeEmailVerification(ctx, raw)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = env.service.ConsumeEmailVerification(ctx, raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	status, err := env.service.GetVerificationStatus(ctx, env.user.ID)
	require.NoError(t, err)
	assert.False(t, status.Verified)
}

func TestResendVerification_SupersedesPrevious(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.service.IssueEmailVerification(ctx, env.user.ID)
	require.NoError(t, err)
	require.NoError(t, env.service.ResendVerification(ctx, env.user.ID))
	second := env.sentToken(t)
	require.NotEqual(t, first, second)

	_, err = env.service.ConsumeEmailVerification(ctx, first)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = env.service.ConsumeEmailVerification(ctx, second)
	require.NoError(t, err)
}

func TestCleanupExpiredTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.service.IssueEmailVerification(ctx, env.user.ID)
	require.NoError(t, err)

	expired := env.now.Add(time.Hour)
	_, err = env.store.CreateOneTimeToken(ctx, tokenstore.KindPasswordReset, env.user.ID, "reset-hash", expired)
	require.NoError(t, err)
	_, err = env.store.CreateRefreshToken(ctx, env.user.ID, "jti-1", expired)
	require.NoError(t, err)

	n, err := env.service.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.now = env.now.Add(25 * time.Hour)
	n, err = env.service.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	t.Run("OtherKindsKeptForSweeper", func(t *testing.T) {
		_, err := env.store.FindOneTimeTokenByHash(ctx, tokenstore.KindPasswordReset, "reset-hash")
		assert.NoError(t, err)
		_, err = env.store.FindRefreshTokenByJTI(ctx, "jti-1")
		assert.NoError(t, err)
	})
}
