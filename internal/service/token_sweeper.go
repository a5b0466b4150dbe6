package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"taskflow/internal/repository"
)

// TokenSweeper purges secondary tokens whose expiry has passed. Expired tokens
// are already unusable; sweeping only reclaims storage.
type TokenSweeper struct {
	tokens   repository.TokenRepository
	interval time.Duration
	now      func() time.Time
	log      logrus.FieldLogger
}

// NewTokenSweeper creates a sweeper running every interval.
func NewTokenSweeper(tokens repository.TokenRepository, interval time.Duration, log logrus.FieldLogger) *TokenSweeper {
	return &TokenSweeper{tokens: tokens, interval: interval, now: time.Now, log: log}
}

// Sweep deletes expired tokens once and returns how many were removed.
func (s *TokenSweeper) Sweep(ctx context.Context) (int64, error) {
	return s.tokens.DeleteExpired(ctx, s.now())
}

// Run sweeps immediately and then every interval until ctx is cancelled.
func (s *TokenSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		n, err := s.Sweep(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			s.log.WithError(err).Warn("sweep expired tokens")
		case n > 0:
			s.log.WithField("count", n).Info("expired tokens swept")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
