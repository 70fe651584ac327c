package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises behavior every Store implementation must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("Users", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		u, err := store.CreateUser(ctx, "Alice@Example.com", "hash-1")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, u.ID)
		assert.False(t, u.EmailVerified)

		t.Run("EmailLookupIgnoresCase", func(t *testing.T) {
			found, err := store.GetUserByEmail(ctx, "alice@example.com")
			require.NoError(t, err)
			assert.Equal(t, u.ID, found.ID)
		})

		t.Run("DuplicateEmail", func(t *testing.T) {
			_, err := store.CreateUser(ctx, "alice@example.com", "hash-2")
			assert.ErrorIs(t, err, ErrDuplicate)
		})

		t.Run("UnknownUser", func(t *testing.T) {
			_, err := store.GetUserByID(ctx, uuid.New())
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = store.GetUserByEmail(ctx, "nobody@example.com")
			assert.ErrorIs(t, err, ErrNotFound)
		})

		t.Run("MarkEmailVerified", func(t *testing.T) {
			require.NoError(t, store.MarkEmailVerified(ctx, u.ID))
			found, err := store.GetUserByID(ctx, u.ID)
			require.NoError(t, err)
			assert.True(t, found.EmailVerified)
			require.NotNil(t, found.EmailVerifiedAt)

			assert.ErrorIs(t, store.MarkEmailVerified(ctx, uuid.New()), ErrNotFound)
		})

		t.Run("UpdatePasswordHash", func(t *testing.T) {
			require.NoError(t, store.UpdatePasswordHash(ctx, u.ID, "hash-3"))
			found, err := store.GetUserByID(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, "hash-3", found.PasswordHash)
		})
	})

	t.Run("OneTimeTokens", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		u, err := store.CreateUser(ctx, "bob@example.com", "")
		require.NoError(t, err)
		expiresAt := time.Now().UTC().Add(time.Hour)

		for _, kind := range []TokenKind{KindEmailVerification, KindPasswordReset} {
			kind := kind
			t.Run(string(kind), func(t *testing.T) {
				tok, err := store.CreateOneTimeToken(ctx, kind, u.ID, "hash-a-"+string(kind), expiresAt)
				require.NoError(t, err)
				assert.Equal(t, kind, tok.Kind)
				assert.Equal(t, u.ID, tok.UserID)

				found, err := store.FindOneTimeTokenByHash(ctx, kind, tok.TokenHash)
				require.NoError(t, err)
				assert.Equal(t, tok.ID, found.ID)
				assert.WithinDuration(t, expiresAt, found.ExpiresAt, time.Millisecond)

				_, err = store.CreateOneTimeToken(ctx, kind, u.ID, tok.TokenHash, expiresAt)
				assert.ErrorIs(t, err, ErrDuplicate)

				deleted, err := store.DeleteOneTimeToken(ctx, kind, tok.ID)
				require.NoError(t, err)
				assert.True(t, deleted)

				deleted, err = store.DeleteOneTimeToken(ctx, kind, tok.ID)
				require.NoError(t, err)
				assert.False(t, deleted)

				_, err = store.FindOneTimeTokenByHash(ctx, kind, tok.TokenHash)
				assert.ErrorIs(t, err, ErrNotFound)
			})
		}

		t.Run("KindsAreSeparate", func(t *testing.T) {
			_, err := store.CreateOneTimeToken(ctx, KindEmailVerification, u.ID, "shared-hash", expiresAt)
			require.NoError(t, err)
			_, err = store.FindOneTimeTokenByHash(ctx, KindPasswordReset, "shared-hash")
			assert.ErrorIs(t, err, ErrNotFound)
		})

		t.Run("DeleteAllForUser", func(t *testing.T) {
			other, err := store.CreateUser(ctx, "carol@example.com", "")
			require.NoError(t, err)
			_, err = store.CreateOneTimeToken(ctx, KindPasswordReset, u.ID, "r1", expiresAt)
			require.NoError(t, err)
			_, err = store.CreateOneTimeToken(ctx, KindPasswordReset, u.ID, "r2", expiresAt)
			require.NoError(t, err)
			_, err = store.CreateOneTimeToken(ctx, KindPasswordReset, other.ID, "r3", expiresAt)
			require.NoError(t, err)

			n, err := store.DeleteOneTimeTokensForUser(ctx, KindPasswordReset, u.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)

			_, err = store.FindOneTimeTokenByHash(ctx, KindPasswordReset, "r3")
			assert.NoError(t, err)
		})

		t.Run("UnknownKind", func(t *testing.T) {
			_, err := store.CreateOneTimeToken(ctx, TokenKind("bogus"), u.ID, "x", expiresAt)
			assert.ErrorIs(t, err, ErrUnknownKind)
			err = store.LockOneTimeTokensForUser(ctx, TokenKind("bogus"), u.ID)
			assert.ErrorIs(t, err, ErrUnknownKind)
		})

		t.Run("ConcurrentIssueSingleLiveRow", func(t *testing.T) {
			owner, err := store.CreateUser(ctx, "dave@example.com", "")
			require.NoError(t, err)
			_, err = store.CreateOneTimeToken(ctx, KindPasswordReset, owner.ID, "issue-old", expiresAt)
			require.NoError(t, err)

			const n = 8
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					err := store.WithinTx(ctx, func(ctx context.Context, tx Repository) error {
						if err := tx.LockOneTimeTokensForUser(ctx, KindPasswordReset, owner.ID); err != nil {
							return err
						}
						if _, err := tx.DeleteOneTimeTokensForUser(ctx, KindPasswordReset, owner.ID); err != nil {
							return err
						}
						_, err := tx.CreateOneTimeToken(ctx, KindPasswordReset, owner.ID, fmt.Sprintf("issue-%d", i), expiresAt)
						return err
					})
					assert.NoError(t, err)
				}(i)
			}
			wg.Wait()

			live := 0
			for i := 0; i < n; i++ {
				_, err := store.FindOneTimeTokenByHash(ctx, KindPasswordReset, fmt.Sprintf("issue-%d", i))
				if err == nil {
					live++
				} else {
					assert.ErrorIs(t, err, ErrNotFound)
				}
			}
			assert.Equal(t, 1, live)

			_, err = store.FindOneTimeTokenByHash(ctx, KindPasswordReset, "issue-old")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	})

	t.Run("RefreshTokens", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		u, err := store.CreateUser(ctx, "dave@example.com", "")
		require.NoError(t, err)
		now := time.Now().UTC()

		rt, err := store.CreateRefreshToken(ctx, u.ID, "jti-1", now.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, rt.Revoked)

		_, err = store.CreateRefreshToken(ctx, u.ID, "jti-1", now.Add(time.Hour))
		assert.ErrorIs(t, err, ErrDuplicate)

		_, err = store.CreateRefreshToken(ctx, u.ID, "jti-2", now.Add(time.Hour))
		require.NoError(t, err)
		_, err = store.CreateRefreshToken(ctx, u.ID, "jti-expired", now.Add(-time.Hour))
		require.NoError(t, err)

		active, err := store.ListActiveRefreshTokens(ctx, u.ID, now)
		require.NoError(t, err)
		assert.Len(t, active, 2)

		flipped, err := store.RevokeRefreshToken(ctx, rt.ID)
		require.NoError(t, err)
		assert.True(t, flipped)

		flipped, err = store.RevokeRefreshToken(ctx, rt.ID)
		require.NoError(t, err)
		assert.False(t, flipped, "revoking twice must not report a flip")

		found, err := store.FindRefreshTokenByJTI(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, found.Revoked)
		assert.False(t, found.Live(now))

		n, err := store.RevokeAllRefreshTokensForUser(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		active, err = store.ListActiveRefreshTokens(ctx, u.ID, now)
		require.NoError(t, err)
		assert.Empty(t, active)

		_, err = store.FindRefreshTokenByJTI(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("WithinTxRollsBack", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		u, err := store.CreateUser(ctx, "erin@example.com", "")
		require.NoError(t, err)
		tok, err := store.CreateOneTimeToken(ctx, KindEmailVerification, u.ID, "tx-hash", time.Now().Add(time.Hour))
		require.NoError(t, err)

		boom := errors.New("boom")
		err = store.WithinTx(ctx, func(ctx context.Context, tx Repository) error {
			if _, err := tx.DeleteOneTimeToken(ctx, KindEmailVerification, tok.ID); err != nil {
				return err
			}
			if err := tx.MarkEmailVerified(ctx, u.ID); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = store.FindOneTimeTokenByHash(ctx, KindEmailVerification, "tx-hash")
		assert.NoError(t, err, "token delete must be rolled back")
		found, err := store.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, found.EmailVerified, "user update must be rolled back")
	})

	t.Run("WithinTxCommits", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		u, err := store.CreateUser(ctx, "frank@example.com", "")
		require.NoError(t, err)
		tok, err := store.CreateOneTimeToken(ctx, KindEmailVerification, u.ID, "tx-commit", time.Now().Add(time.Hour))
		require.NoError(t, err)

		err = store.WithinTx(ctx, func(ctx context.Context, tx Repository) error {
			found, err := tx.FindOneTimeTokenByHash(ctx, KindEmailVerification, "tx-commit")
			if err != nil {
				return err
			}
			if _, err := tx.DeleteOneTimeToken(ctx, KindEmailVerification, found.ID); err != nil {
				return err
			}
			return tx.MarkEmailVerified(ctx, tok.UserID)
		})
		require.NoError(t, err)

		_, err = store.FindOneTimeTokenByHash(ctx, KindEmailVerification, "tx-commit")
		assert.ErrorIs(t, err, ErrNotFound)
		found, err := store.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, found.EmailVerified)
	})

	t.Run("DeleteExpired", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		u, err := store.CreateUser(ctx, "grace@example.com", "")
		require.NoError(t, err)
		now := time.Now().UTC()

		_, err = store.CreateOneTimeToken(ctx, KindEmailVerification, u.ID, "old-v", now.Add(-48*time.Hour))
		require.NoError(t, err)
		_, err = store.CreateOneTimeToken(ctx, KindPasswordReset, u.ID, "old-r", now.Add(-48*time.Hour))
		require.NoError(t, err)
		_, err = store.CreateOneTimeToken(ctx, KindPasswordReset, u.ID, "fresh-r", now.Add(time.Hour))
		require.NoError(t, err)
		_, err = store.CreateRefreshToken(ctx, u.ID, "old-jti", now.Add(-48*time.Hour))
		require.NoError(t, err)
		revoked, err := store.CreateRefreshToken(ctx, u.ID, "revoked-jti", now.Add(time.Hour))
		require.NoError(t, err)
		_, err = store.RevokeRefreshToken(ctx, revoked.ID)
		require.NoError(t, err)

		result, err := store.DeleteExpired(ctx, now.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.EmailVerificationTokens)
		assert.Equal(t, int64(1), result.PasswordResetTokens)
		assert.Equal(t, int64(1), result.RefreshTokens)
		assert.Equal(t, int64(3), result.Total())

		_, err = store.FindRefreshTokenByJTI(ctx, "revoked-jti")
		assert.NoError(t, err, "unexpired revoked sessions are kept for replay detection")
	})
}
