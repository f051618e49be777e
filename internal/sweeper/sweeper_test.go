package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/asbolsyn/asbolsyn-bot/internal/clock"
	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
)

type mockListingRepo struct {
	mock.Mock
}

func (m *mockListingRepo) Create(ctx context.Context, listing *domain.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}

func (m *mockListingRepo) FindByID(ctx context.Context, id int64) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	listing, _ := args.Get(0).(*domain.Listing)
	return listing, args.Error(1)
}

func (m *mockListingRepo) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	listing, _ := args.Get(0).(*domain.Listing)
	return listing, args.Error(1)
}

func (m *mockListingRepo) ListAvailable(ctx context.Context, now time.Time) ([]*domain.Listing, error) {
	args := m.Called(ctx, now)
	listings, _ := args.Get(0).([]*domain.Listing)
	return listings, args.Error(1)
}

func (m *mockListingRepo) ListByVendor(ctx context.Context, vendorID int64) ([]*domain.Listing, error) {
	args := m.Called(ctx, vendorID)
	listings, _ := args.Get(0).([]*domain.Listing)
	return listings, args.Error(1)
}

func (m *mockListingRepo) DecrementQuantity(ctx context.Context, id int64, by int) error {
	args := m.Called(ctx, id, by)
	return args.Error(0)
}

func (m *mockListingRepo) RestockQuantity(ctx context.Context, id int64, by int) error {
	args := m.Called(ctx, id, by)
	return args.Error(0)
}

func (m *mockListingRepo) Deactivate(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockListingRepo) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func TestSweeper_Run(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 22, 0, 0, 0, time.UTC)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("sweeps at the clock instant", func(t *testing.T) {
		repo := &mockListingRepo{}
		repo.On("DeactivateExpired", mock.Anything, now).Return(int64(3), nil).Once()

		swept, err := New(repo, clock.Fixed{Time: now}, log).Run(ctx)

		require.NoError(t, err)
		assert.Equal(t, int64(3), swept)
		repo.AssertExpectations(t)
	})

	t.Run("second sweep at the same instant is a no-op", func(t *testing.T) {
		repo := &mockListingRepo{}
		repo.On("DeactivateExpired", mock.Anything, now).Return(int64(3), nil).Once()
		repo.On("DeactivateExpired", mock.Anything, now).Return(int64(0), nil).Once()

		s := New(repo, clock.Fixed{Time: now}, log)

		first, err := s.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), first)

		second, err := s.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), second)
	})

	t.Run("propagates storage failures", func(t *testing.T) {
		repo := &mockListingRepo{}
		repo.On("DeactivateExpired", mock.Anything, now).Return(int64(0), errors.New("connection reset")).Once()

		_, err := New(repo, clock.Fixed{Time: now}, log).Run(ctx)
		assert.Error(t, err)
	})
}
