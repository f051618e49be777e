package payment

import (
	"context"

	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
)

// NotifyingConfirmer decorates an OrderConfirmer with an after-confirm hook,
// used to push a sale notification to the vendor regardless of whether the
// payment arrived via webhook or a Telegram invoice.
type NotifyingConfirmer struct {
	next   OrderConfirmer
	onPaid func(ctx context.Context, order *domain.Order)
}

// NewNotifyingConfirmer wraps next. onPaid may be nil.
func NewNotifyingConfirmer(next OrderConfirmer, onPaid func(ctx context.Context, order *domain.Order)) *NotifyingConfirmer {
	return &NotifyingConfirmer{next: next, onPaid: onPaid}
}

func (n *NotifyingConfirmer) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	return n.next.Get(ctx, orderID)
}

func (n *NotifyingConfirmer) ConfirmPayment(ctx context.Context, orderID int64, paymentRef string) (*domain.Order, error) {
	order, err := n.next.ConfirmPayment(ctx, orderID, paymentRef)
	if err != nil {
		return nil, err
	}

	if n.onPaid != nil {
		n.onPaid(ctx, order)
	}

	return order, nil
}
