// Package catalog answers what is buyable right now, and where.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
	apperrors "github.com/asbolsyn/asbolsyn-bot/internal/errors"
	"github.com/asbolsyn/asbolsyn-bot/internal/geo"
	"github.com/asbolsyn/asbolsyn-bot/internal/repository"
)

// NearbyListing pairs a purchasable listing with its distance from the
// consumer's shared location.
type NearbyListing struct {
	Listing    *domain.Listing
	DistanceKm float64
}

// Service provides the browse and detail views over active listings.
type Service struct {
	listings        repository.ListingRepository
	defaultRadiusKm float64
	log             *slog.Logger
}

// NewService constructs a catalog Service.
func NewService(listings repository.ListingRepository, defaultRadiusKm float64, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		listings:        listings,
		defaultRadiusKm: defaultRadiusKm,
		log:             log,
	}
}

// ListAvailable returns every listing purchasable at the given instant,
// newest first.
func (s *Service) ListAvailable(ctx context.Context, now time.Time) ([]*domain.Listing, error) {
	listings, err := s.listings.ListAvailable(ctx, now)
	if err != nil {
		s.log.Error("failed to list available listings", slog.Any("error", err))
		return nil, fmt.Errorf("list available: %w", err)
	}

	return listings, nil
}

// Get returns a single listing by id. The listing is returned even when it is
// no longer purchasable so callers can render a meaningful detail view.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Listing, error) {
	listing, err := s.listings.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NewNotFound("listing")
		}

		s.log.Error("failed to load listing", slog.Int64("listing_id", id), slog.Any("error", err))
		return nil, fmt.Errorf("get listing: %w", err)
	}

	return listing, nil
}

// ListNearby returns purchasable listings within radiusKm of the origin,
// closest first. Listings without coordinates never appear in the result.
// A non-positive radius falls back to the configured default.
func (s *Service) ListNearby(ctx context.Context, now time.Time, origin geo.Point, radiusKm float64) ([]NearbyListing, error) {
	if radiusKm <= 0 {
		radiusKm = s.defaultRadiusKm
	}

	listings, err := s.listings.ListAvailable(ctx, now)
	if err != nil {
		s.log.Error("failed to list listings for nearby search", slog.Any("error", err))
		return nil, fmt.Errorf("list nearby: %w", err)
	}

	nearby := make([]NearbyListing, 0, len(listings))
	for _, listing := range listings {
		if !listing.HasCoordinates() {
			continue
		}

		distance := geo.DistanceKm(origin, geo.Point{
			Latitude:  *listing.Latitude,
			Longitude: *listing.Longitude,
		})
		if distance > radiusKm {
			continue
		}

		nearby = append(nearby, NearbyListing{Listing: listing, DistanceKm: distance})
	}

	sort.Slice(nearby, func(i, j int) bool {
		if nearby[i].DistanceKm != nearby[j].DistanceKm {
			return nearby[i].DistanceKm < nearby[j].DistanceKm
		}
		if !nearby[i].Listing.CreatedAt.Equal(nearby[j].Listing.CreatedAt) {
			return nearby[i].Listing.CreatedAt.After(nearby[j].Listing.CreatedAt)
		}
		return nearby[i].Listing.ID > nearby[j].Listing.ID
	})

	return nearby, nil
}
