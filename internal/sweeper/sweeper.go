// Package sweeper deactivates listings whose pickup window has elapsed.
// Expiration is lazy everywhere else: queries and the purchase path already
// exclude elapsed listings, so the sweep only reconciles the stored flag.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/asbolsyn/asbolsyn-bot/internal/clock"
	"github.com/asbolsyn/asbolsyn-bot/internal/repository"
	"github.com/asbolsyn/asbolsyn-bot/pkg/metrics"
)

// Sweeper flips expired listings to inactive.
type Sweeper struct {
	listings repository.ListingRepository
	clock    clock.Clock
	log      *slog.Logger
}

// New constructs a Sweeper.
func New(listings repository.ListingRepository, clk clock.Clock, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}

	return &Sweeper{listings: listings, clock: clk, log: log}
}

// Run performs one sweep at the clock's current instant.
func (s *Sweeper) Run(ctx context.Context) (int64, error) {
	return s.SweepAt(ctx, s.clock.Now())
}

// SweepAt deactivates every listing whose window elapsed before now. Running
// it twice at the same instant is a no-op the second time.
func (s *Sweeper) SweepAt(ctx context.Context, now time.Time) (int64, error) {
	swept, err := s.listings.DeactivateExpired(ctx, now)
	if err != nil {
		s.log.Error("expiration sweep failed", slog.Any("error", err))
		return 0, fmt.Errorf("sweep listings: %w", err)
	}

	metrics.RecordSweptListings(swept)

	if swept > 0 {
		s.log.Info("expired listings deactivated", slog.Int64("count", swept))
	}

	return swept, nil
}
