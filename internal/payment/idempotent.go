package payment

import (
	"context"
	"time"

	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
	"github.com/asbolsyn/asbolsyn-bot/internal/idempotency"
)

// confirmationTTL bounds how long a processed notification is remembered.
// Providers retry for at most a day, so replays past that window fall back
// to the order-state guard.
const confirmationTTL = 24 * time.Hour

// IdempotentConfirmer runs payment confirmations through the redis
// execute-once manager, so a notification delivered twice (or raced by two
// provider workers) confirms the order once and short-circuits afterwards.
type IdempotentConfirmer struct {
	next    OrderConfirmer
	manager idempotency.Manager
}

// NewIdempotentConfirmer decorates next with execute-once semantics.
func NewIdempotentConfirmer(next OrderConfirmer, manager idempotency.Manager) *IdempotentConfirmer {
	return &IdempotentConfirmer{next: next, manager: manager}
}

func (c *IdempotentConfirmer) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	return c.next.Get(ctx, orderID)
}

func (c *IdempotentConfirmer) ConfirmPayment(ctx context.Context, orderID int64, paymentRef string) (*domain.Order, error) {
	if c.manager == nil {
		return c.next.ConfirmPayment(ctx, orderID, paymentRef)
	}

	key := idempotency.GenerateKey("payment_confirm", orderID, paymentRef)

	result, err := c.manager.Execute(ctx, key, confirmationTTL, func(ctx context.Context) (interface{}, error) {
		return c.next.ConfirmPayment(ctx, orderID, paymentRef)
	})
	if err != nil {
		return nil, err
	}

	if order, ok := result.Response.(*domain.Order); ok {
		return order, nil
	}

	// Cached replay: the stored response lost its concrete type in JSON, so
	// re-read the order instead of re-confirming it.
	return c.next.Get(ctx, orderID)
}
