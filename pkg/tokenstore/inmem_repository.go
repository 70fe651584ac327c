package tokenstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memData is the full state of an InMemoryStore. Maps hold values, not
// pointers, so clone is a cheap copy and callers never alias stored rows.
type memData struct {
	users         map[uuid.UUID]User
	oneTimeTokens map[TokenKind]map[uuid.UUID]OneTimeToken
	refreshTokens map[uuid.UUID]RefreshToken
}

func newMemData() *memData {
	return &memData{
		users: make(map[uuid.UUID]User),
		oneTimeTokens: map[TokenKind]map[uuid.UUID]OneTimeToken{
			KindEmailVerification: make(map[uuid.UUID]OneTimeToken),
			KindPasswordReset:     make(map[uuid.UUID]OneTimeToken),
		},
		refreshTokens: make(map[uuid.UUID]RefreshToken),
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		users:         make(map[uuid.UUID]User, len(d.users)),
		oneTimeTokens: make(map[TokenKind]map[uuid.UUID]OneTimeToken, len(d.oneTimeTokens)),
		refreshTokens: make(map[uuid.UUID]RefreshToken, len(d.refreshTokens)),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for kind, tokens := range d.oneTimeTokens {
		m := make(map[uuid.UUID]OneTimeToken, len(tokens))
		for k, v := range tokens {
			m[k] = v
		}
		c.oneTimeTokens[kind] = m
	}
	for k, v := range d.refreshTokens {
		c.refreshTokens[k] = v
	}
	return c
}

// InMemoryStore implements Store in process memory. A single mutex serializes
// every operation and every transaction, which gives it the same
// one-winner semantics as row locks in PostgresStore.
type InMemoryStore struct {
	mu   sync.Mutex
	data *memData
	now  func() time.Time
}

// InMemoryOption configures an InMemoryStore
type InMemoryOption func(*InMemoryStore)

// WithInMemoryClock sets the clock used for created_at/updated_at stamps
func WithInMemoryClock(now func() time.Time) InMemoryOption {
	return func(s *InMemoryStore) {
		s.now = now
	}
}

// NewInMemoryStore creates a new in-memory token store
func NewInMemoryStore(opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		data: newMemData(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithinTx runs fn against a private copy of the data and publishes the copy
// only if fn succeeds.
func (s *InMemoryStore) WithinTx(ctx context.Context, fn TxFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.data.clone()
	if err := fn(ctx, &memRepository{data: working, now: s.now}); err != nil {
		return err
	}
	s.data = working
	return nil
}

func (s *InMemoryStore) repo() *memRepository {
	return &memRepository{data: s.data, now: s.now}
}

// CreateUser creates a new user
func (s *InMemoryStore) CreateUser(ctx context.Context, email, passwordHash string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().CreateUser(ctx, email, passwordHash)
}

// GetUserByID retrieves a user by ID
func (s *InMemoryStore) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().GetUserByID(ctx, id)
}

// GetUserByEmail retrieves a user by email
func (s *InMemoryStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().GetUserByEmail(ctx, email)
}

// MarkEmailVerified sets email_verified
func (s *InMemoryStore) MarkEmailVerified(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().MarkEmailVerified(ctx, userID)
}

// UpdatePasswordHash replaces the user's password hash
func (s *InMemoryStore) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().UpdatePasswordHash(ctx, userID, passwordHash)
}

// CreateOneTimeToken stores the hash of a new single-use token
func (s *InMemoryStore) CreateOneTimeToken(ctx context.Context, kind TokenKind, userID uuid.UUID, tokenHash string, expiresAt time.Time) (*OneTimeToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().CreateOneTimeToken(ctx, kind, userID, tokenHash, expiresAt)
}

// FindOneTimeTokenByHash looks up a token by its at-rest hash
func (s *InMemoryStore) FindOneTimeTokenByHash(ctx context.Context, kind TokenKind, tokenHash string) (*OneTimeToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().FindOneTimeTokenByHash(ctx, kind, tokenHash)
}

// DeleteOneTimeToken hard deletes a token by ID
func (s *InMemoryStore) DeleteOneTimeToken(ctx context.Context, kind TokenKind, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().DeleteOneTimeToken(ctx, kind, id)
}

// DeleteOneTimeTokensForUser removes every token of a kind owned by the user
func (s *InMemoryStore) DeleteOneTimeTokensForUser(ctx context.Context, kind TokenKind, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().DeleteOneTimeTokensForUser(ctx, kind, userID)
}

// LockOneTimeTokensForUser only checks the kind; the store mutex already
// serializes transactions.
func (s *InMemoryStore) LockOneTimeTokensForUser(ctx context.Context, kind TokenKind, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().LockOneTimeTokensForUser(ctx, kind, userID)
}

// CreateRefreshToken creates a live session row
func (s *InMemoryStore) CreateRefreshToken(ctx context.Context, userID uuid.UUID, jti string, expiresAt time.Time) (*RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().CreateRefreshToken(ctx, userID, jti, expiresAt)
}

// FindRefreshTokenByJTI retrieves a session by JTI
func (s *InMemoryStore) FindRefreshTokenByJTI(ctx context.Context, jti string) (*RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().FindRefreshTokenByJTI(ctx, jti)
}

// RevokeRefreshToken revokes a live session
func (s *InMemoryStore) RevokeRefreshToken(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().RevokeRefreshToken(ctx, id)
}

// RevokeAllRefreshTokensForUser revokes every unrevoked session of the user
func (s *InMemoryStore) RevokeAllRefreshTokensForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().RevokeAllRefreshTokensForUser(ctx, userID)
}

// ListActiveRefreshTokens lists live sessions, newest first
func (s *InMemoryStore) ListActiveRefreshTokens(ctx context.Context, userID uuid.UUID, now time.Time) ([]RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().ListActiveRefreshTokens(ctx, userID, now)
}

// DeleteExpiredOneTimeTokens removes tokens of one kind that expired before the cutoff
func (s *InMemoryStore) DeleteExpiredOneTimeTokens(ctx context.Context, kind TokenKind, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().DeleteExpiredOneTimeTokens(ctx, kind, before)
}

// DeleteExpired removes rows that expired before the cutoff
func (s *InMemoryStore) DeleteExpired(ctx context.Context, before time.Time) (CleanupResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo().DeleteExpired(ctx, before)
}

// memRepository operates on memData without locking; the caller holds the lock.
type memRepository struct {
	data *memData
	now  func() time.Time
}

func (r *memRepository) CreateUser(_ context.Context, email, passwordHash string) (*User, error) {
	for _, u := range r.data.users {
		if strings.EqualFold(u.Email, email) {
			return nil, ErrDuplicate
		}
	}
	now := r.now().UTC()
	u := User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.data.users[u.ID] = u
	return &u, nil
}

func (r *memRepository) GetUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := r.data.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *memRepository) GetUserByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range r.data.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepository) MarkEmailVerified(_ context.Context, userID uuid.UUID) error {
	u, ok := r.data.users[userID]
	if !ok {
		return ErrNotFound
	}
	now := r.now().UTC()
	u.EmailVerified = true
	if u.EmailVerifiedAt == nil {
		u.EmailVerifiedAt = &now
	}
	u.UpdatedAt = now
	r.data.users[userID] = u
	return nil
}

func (r *memRepository) UpdatePasswordHash(_ context.Context, userID uuid.UUID, passwordHash string) error {
	u, ok := r.data.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = r.now().UTC()
	r.data.users[userID] = u
	return nil
}

func (r *memRepository) tokens(kind TokenKind) (map[uuid.UUID]OneTimeToken, error) {
	tokens, ok := r.data.oneTimeTokens[kind]
	if !ok {
		return nil, ErrUnknownKind
	}
	return tokens, nil
}

func (r *memRepository) CreateOneTimeToken(_ context.Context, kind TokenKind, userID uuid.UUID, tokenHash string, expiresAt time.Time) (*OneTimeToken, error) {
	tokens, err := r.tokens(kind)
	if err != nil {
		return nil, err
	}
	if _, ok := r.data.users[userID]; !ok {
		return nil, ErrNotFound
	}
	for _, t := range tokens {
		if t.TokenHash == tokenHash {
			return nil, ErrDuplicate
		}
	}
	t := OneTimeToken{
		ID:        uuid.New(),
		Kind:      kind,
		TokenHash: tokenHash,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: r.now().UTC(),
	}
	tokens[t.ID] = t
	return &t, nil
}

func (r *memRepository) FindOneTimeTokenByHash(_ context.Context, kind TokenKind, tokenHash string) (*OneTimeToken, error) {
	tokens, err := r.tokens(kind)
	if err != nil {
		return nil, err
	}
	for _, t := range tokens {
		if t.TokenHash == tokenHash {
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepository) DeleteOneTimeToken(_ context.Context, kind TokenKind, id uuid.UUID) (bool, error) {
	tokens, err := r.tokens(kind)
	if err != nil {
		return false, err
	}
	if _, ok := tokens[id]; !ok {
		return false, nil
	}
	delete(tokens, id)
	return true, nil
}

func (r *memRepository) DeleteOneTimeTokensForUser(_ context.Context, kind TokenKind, userID uuid.UUID) (int64, error) {
	tokens, err := r.tokens(kind)
	if err != nil {
		return 0, err
	}
	var n int64
	for id, t := range tokens {
		if t.UserID == userID {
			delete(tokens, id)
			n++
		}
	}
	return n, nil
}

func (r *memRepository) LockOneTimeTokensForUser(_ context.Context, kind TokenKind, _ uuid.UUID) error {
	_, err := r.tokens(kind)
	return err
}

func (r *memRepository) CreateRefreshToken(_ context.Context, userID uuid.UUID, jti string, expiresAt time.Time) (*RefreshToken, error) {
	if _, ok := r.data.users[userID]; !ok {
		return nil, ErrNotFound
	}
	for _, t := range r.data.refreshTokens {
		if t.JTI == jti {
			return nil, ErrDuplicate
		}
	}
	now := r.now().UTC()
	t := RefreshToken{
		ID:        uuid.New(),
		JTI:       jti,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.data.refreshTokens[t.ID] = t
	return &t, nil
}

func (r *memRepository) FindRefreshTokenByJTI(_ context.Context, jti string) (*RefreshToken, error) {
	for _, t := range r.data.refreshTokens {
		if t.JTI == jti {
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepository) RevokeRefreshToken(_ context.Context, id uuid.UUID) (bool, error) {
	t, ok := r.data.refreshTokens[id]
	if !ok || t.Revoked {
		return false, nil
	}
	t.Revoked = true
	t.UpdatedAt = r.now().UTC()
	r.data.refreshTokens[id] = t
	return true, nil
}

func (r *memRepository) RevokeAllRefreshTokensForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	now := r.now().UTC()
	for id, t := range r.data.refreshTokens {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			t.UpdatedAt = now
			r.data.refreshTokens[id] = t
			n++
		}
	}
	return n, nil
}

func (r *memRepository) ListActiveRefreshTokens(_ context.Context, userID uuid.UUID, now time.Time) ([]RefreshToken, error) {
	var sessions []RefreshToken
	for _, t := range r.data.refreshTokens {
		if t.UserID == userID && t.Live(now) {
			sessions = append(sessions, t)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions, nil
}

func (r *memRepository) DeleteExpiredOneTimeTokens(_ context.Context, kind TokenKind, before time.Time) (int64, error) {
	tokens, err := r.tokens(kind)
	if err != nil {
		return 0, err
	}
	var n int64
	for id, t := range tokens {
		if t.ExpiresAt.Before(before) {
			delete(tokens, id)
			n++
		}
	}
	return n, nil
}

func (r *memRepository) DeleteExpired(ctx context.Context, before time.Time) (CleanupResult, error) {
	var result CleanupResult
	result.EmailVerificationTokens, _ = r.DeleteExpiredOneTimeTokens(ctx, KindEmailVerification, before)
	result.PasswordResetTokens, _ = r.DeleteExpiredOneTimeTokens(ctx, KindPasswordReset, before)
	for id, t := range r.data.refreshTokens {
		if t.ExpiresAt.Before(before) {
			delete(r.data.refreshTokens, id)
			result.RefreshTokens++
		}
	}
	return result, nil
}
