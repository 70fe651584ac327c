package tokenstore

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically deletes long-expired rows. It is housekeeping only:
// expiry is always enforced when a token is presented, never by the sweep.
type Sweeper struct {
	repo      Repository
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

// SweeperOption configures a Sweeper
type SweeperOption func(*Sweeper)

// WithSweepInterval sets how often the sweep runs
func WithSweepInterval(interval time.Duration) SweeperOption {
	return func(s *Sweeper) {
		s.interval = interval
	}
}

// WithRetention sets how long expired rows are kept before deletion
func WithRetention(retention time.Duration) SweeperOption {
	return func(s *Sweeper) {
		s.retention = retention
	}
}

// WithSweeperClock sets the clock used to compute the cutoff
func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		s.now = now
	}
}

// NewSweeper creates a new Sweeper
func NewSweeper(repo Repository, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		repo:      repo,
		interval:  1 * time.Hour,  // Default hourly
		retention: 24 * time.Hour, // Default keep expired rows for a day
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SweepOnce deletes rows that expired before now - retention
func (s *Sweeper) SweepOnce(ctx context.Context) (CleanupResult, error) {
	cutoff := s.now().UTC().Add(-s.retention)
	result, err := s.repo.DeleteExpired(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to sweep expired tokens", "cutoff", cutoff, "error", err)
		return result, err
	}
	if result.Total() > 0 {
		slog.Info("Swept expired tokens",
			"email_verification", result.EmailVerificationTokens,
			"password_reset", result.PasswordResetTokens,
			"refresh", result.RefreshTokens,
		)
	}
	return result, nil
}

// Run sweeps on every tick until ctx is cancelled
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Token sweeper started", "interval", s.interval, "retention", s.retention)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Token sweeper stopped")
			return
		case <-ticker.C:
			_, _ = s.SweepOnce(ctx)
		}
	}
}
