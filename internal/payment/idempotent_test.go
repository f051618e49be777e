package payment

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
	"github.com/asbolsyn/asbolsyn-bot/internal/idempotency"
)

func newIdempotentConfirmer(t *testing.T, next OrderConfirmer) *IdempotentConfirmer {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	manager := idempotency.NewManager(idempotency.NewRedisStore(client, testLogger()), testLogger())

	return NewIdempotentConfirmer(next, manager)
}

func TestIdempotentConfirmer_ConfirmsOnce(t *testing.T) {
	ctx := context.Background()
	order := &domain.Order{ID: 101, Status: domain.OrderPaid, PaymentRef: "pay-1"}

	next := &mockConfirmer{}
	next.On("ConfirmPayment", mock.Anything, int64(101), "pay-1").Return(order, nil).Once()
	next.On("Get", mock.Anything, int64(101)).Return(order, nil)

	confirmer := newIdempotentConfirmer(t, next)

	first, err := confirmer.ConfirmPayment(ctx, 101, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, int64(101), first.ID)

	// Replayed delivery: the confirmation must not run again.
	second, err := confirmer.ConfirmPayment(ctx, 101, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, int64(101), second.ID)

	next.AssertNumberOfCalls(t, "ConfirmPayment", 1)
}

func TestIdempotentConfirmer_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	order := &domain.Order{ID: 102, Status: domain.OrderPaid, PaymentRef: "pay-2"}

	next := &mockConfirmer{}
	next.On("ConfirmPayment", mock.Anything, int64(102), "pay-2").
		Return(nil, assert.AnError).Once()
	next.On("ConfirmPayment", mock.Anything, int64(102), "pay-2").
		Return(order, nil).Once()

	confirmer := newIdempotentConfirmer(t, next)

	_, err := confirmer.ConfirmPayment(ctx, 102, "pay-2")
	require.Error(t, err)

	// A failed attempt leaves no record, so the retry goes through.
	confirmed, err := confirmer.ConfirmPayment(ctx, 102, "pay-2")
	require.NoError(t, err)
	assert.Equal(t, int64(102), confirmed.ID)

	next.AssertExpectations(t)
}

func TestIdempotentConfirmer_DistinctPaymentsAreIndependent(t *testing.T) {
	ctx := context.Background()

	next := &mockConfirmer{}
	next.On("ConfirmPayment", mock.Anything, int64(103), "pay-a").
		Return(&domain.Order{ID: 103}, nil).Once()
	next.On("ConfirmPayment", mock.Anything, int64(104), "pay-b").
		Return(&domain.Order{ID: 104}, nil).Once()

	confirmer := newIdempotentConfirmer(t, next)

	_, err := confirmer.ConfirmPayment(ctx, 103, "pay-a")
	require.NoError(t, err)
	_, err = confirmer.ConfirmPayment(ctx, 104, "pay-b")
	require.NoError(t, err)

	next.AssertExpectations(t)
}

func TestIdempotentConfirmer_NilManagerPassesThrough(t *testing.T) {
	ctx := context.Background()
	order := &domain.Order{ID: 105}

	next := &mockConfirmer{}
	next.On("ConfirmPayment", mock.Anything, int64(105), "pay-c").Return(order, nil).Twice()

	confirmer := NewIdempotentConfirmer(next, nil)

	for i := 0; i < 2; i++ {
		confirmed, err := confirmer.ConfirmPayment(ctx, 105, "pay-c")
		require.NoError(t, err)
		assert.Equal(t, int64(105), confirmed.ID)
	}

	next.AssertExpectations(t)
}
