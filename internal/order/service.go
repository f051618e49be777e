// Package order drives the purchase lifecycle: pending on creation, paid
// after a confirmed payment, then completed or cancelled. Stock is only
// decremented when payment is confirmed, inside one transaction with the
// status change and the earnings ledger row.
package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/asbolsyn/asbolsyn-bot/internal/analytics"
	"github.com/asbolsyn/asbolsyn-bot/internal/clock"
	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
	"github.com/asbolsyn/asbolsyn-bot/internal/earnings"
	apperrors "github.com/asbolsyn/asbolsyn-bot/internal/errors"
	"github.com/asbolsyn/asbolsyn-bot/internal/repository"
	"github.com/asbolsyn/asbolsyn-bot/pkg/metrics"
)

// txDeps are the transaction-scoped collaborators of a payment confirmation
// or cancellation critical section.
type txDeps struct {
	orders   repository.OrderRepository
	listings repository.ListingRepository
	earnings *earnings.Service
}

// Service provides business operations over orders.
type Service struct {
	orders          repository.OrderRepository
	listings        repository.ListingRepository
	earnings        *earnings.Service
	clock           clock.Clock
	tracker         *analytics.Tracker
	restockOnCancel bool
	log             *slog.Logger

	runTx func(ctx context.Context, fn func(deps txDeps) error) error
}

// NewService constructs an order Service. The db handle is used to open the
// transactions that guard stock decrements.
func NewService(
	db *sql.DB,
	orders repository.OrderRepository,
	listings repository.ListingRepository,
	earningsSvc *earnings.Service,
	clk clock.Clock,
	tracker *analytics.Tracker,
	restockOnCancel bool,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		orders:          orders,
		listings:        listings,
		earnings:        earningsSvc,
		clock:           clk,
		tracker:         tracker,
		restockOnCancel: restockOnCancel,
		log:             log,
	}

	s.runTx = func(ctx context.Context, fn func(deps txDeps) error) error {
		return repository.WithinTx(ctx, db, func(tx *sql.Tx) error {
			return fn(txDeps{
				orders:   repository.NewOrderRepository(tx, log),
				listings: repository.NewListingRepository(tx, log),
				earnings: earningsSvc.WithTx(tx),
			})
		})
	}

	return s
}

// Create places a pending order for a purchasable listing. The unit price is
// captured now; stock is not touched until payment confirmation.
func (s *Service) Create(ctx context.Context, consumerID, listingID int64, quantity int) (*domain.Order, error) {
	if quantity < 1 {
		return nil, apperrors.NewValidationError("quantity must be at least 1")
	}

	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("listing")
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	now := s.clock.Now()
	if !listing.Purchasable(now) {
		if listing.Expired(now) {
			return nil, apperrors.NewExpired("pickup window has ended")
		}
		return nil, apperrors.NewUnavailable("listing is not available")
	}

	if quantity > listing.RemainingQuantity {
		return nil, apperrors.NewInsufficientQuantity(quantity, listing.RemainingQuantity)
	}

	order := &domain.Order{
		ListingID:  listingID,
		ConsumerID: consumerID,
		Quantity:   quantity,
		UnitPrice:  listing.Price,
		Status:     domain.OrderPending,
		PaymentRef: uuid.NewString(),
		CreatedAt:  now,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.track(ctx, analytics.EventOrderCreated, order.ID, consumerID)
	metrics.RecordOrderStatus(string(domain.OrderPending))

	s.log.Info("order created",
		slog.Int64("order_id", order.ID),
		slog.Int64("listing_id", listingID),
		slog.Int("quantity", quantity),
	)

	return order, nil
}

// ConfirmPayment moves a pending order to paid. In one transaction it locks
// the order and its listing, re-validates availability, decrements stock,
// stamps the order paid and writes the earnings ledger row. Confirming an
// already-paid order reports AlreadyProcessed without touching anything.
func (s *Service) ConfirmPayment(ctx context.Context, orderID int64, paymentRef string) (*domain.Order, error) {
	var confirmed *domain.Order

	err := s.runTx(ctx, func(deps txDeps) error {
		order, err := deps.orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NewNotFound("order")
			}
			return fmt.Errorf("confirm payment: %w", err)
		}

		switch order.Status {
		case domain.OrderPaid, domain.OrderCompleted:
			return apperrors.NewAlreadyProcessed("payment already confirmed")
		case domain.OrderCancelled:
			return apperrors.NewInvalidState("order is cancelled")
		}

		listing, err := deps.listings.FindByIDForUpdate(ctx, order.ListingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NewNotFound("listing")
			}
			return fmt.Errorf("confirm payment: %w", err)
		}

		now := s.clock.Now()
		if listing.Expired(now) {
			return apperrors.NewExpired("pickup window ended before payment")
		}
		if !listing.Active {
			return apperrors.NewUnavailable("listing was deactivated")
		}
		if order.Quantity > listing.RemainingQuantity {
			return apperrors.NewInsufficientQuantity(order.Quantity, listing.RemainingQuantity)
		}

		if err := deps.listings.DecrementQuantity(ctx, listing.ID, order.Quantity); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NewInsufficientQuantity(order.Quantity, listing.RemainingQuantity)
			}
			return fmt.Errorf("confirm payment: %w", err)
		}

		if paymentRef == "" {
			paymentRef = order.PaymentRef
		}

		if err := deps.orders.MarkPaid(ctx, orderID, paymentRef, now); err != nil {
			return fmt.Errorf("confirm payment: %w", err)
		}

		order.Status = domain.OrderPaid
		order.PaymentRef = paymentRef
		order.PaidAt = &now

		if _, err := deps.earnings.RecordEarning(ctx, order, listing.VendorID); err != nil {
			return err
		}

		confirmed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.track(ctx, analytics.EventOrderPaid, confirmed.ID, confirmed.ConsumerID)
	metrics.RecordOrderStatus(string(domain.OrderPaid))

	s.log.Info("payment confirmed",
		slog.Int64("order_id", confirmed.ID),
		slog.String("payment_ref", confirmed.PaymentRef),
	)

	return confirmed, nil
}

// Complete marks a paid order as handed over. Only the vendor owning the
// order's listing may complete it.
func (s *Service) Complete(ctx context.Context, orderID, vendorID int64) (*domain.Order, error) {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	listing, err := s.listings.FindByID(ctx, order.ListingID)
	if err != nil {
		return nil, fmt.Errorf("complete order: %w", err)
	}
	if listing.VendorID != vendorID {
		return nil, apperrors.NewForbidden("order belongs to another vendor")
	}

	if order.Status != domain.OrderPaid {
		return nil, apperrors.NewInvalidState(fmt.Sprintf("cannot complete order in status %s", order.Status))
	}

	now := s.clock.Now()
	if err := s.orders.MarkCompleted(ctx, orderID, now); err != nil {
		return nil, fmt.Errorf("complete order: %w", err)
	}

	order.Status = domain.OrderCompleted
	order.CompletedAt = &now

	s.track(ctx, analytics.EventOrderCompleted, order.ID, vendorID)
	metrics.RecordOrderStatus(string(domain.OrderCompleted))

	return order, nil
}

// Cancel aborts a pending or paid order owned by the consumer. Cancelling a
// paid order returns stock only when the restock policy is enabled.
func (s *Service) Cancel(ctx context.Context, orderID, consumerID int64) (*domain.Order, error) {
	return s.cancel(ctx, orderID, &consumerID)
}

// AdminCancel aborts any non-terminal order on the operator's behalf,
// bypassing the ownership check. The same restock policy applies.
func (s *Service) AdminCancel(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.cancel(ctx, orderID, nil)
}

func (s *Service) cancel(ctx context.Context, orderID int64, ownerID *int64) (*domain.Order, error) {
	var cancelled *domain.Order

	err := s.runTx(ctx, func(deps txDeps) error {
		order, err := deps.orders.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperrors.NewNotFound("order")
			}
			return fmt.Errorf("cancel order: %w", err)
		}

		if ownerID != nil && order.ConsumerID != *ownerID {
			return apperrors.NewForbidden("order belongs to another consumer")
		}

		if order.Status.Terminal() {
			return apperrors.NewInvalidState(fmt.Sprintf("cannot cancel order in status %s", order.Status))
		}

		if order.Status == domain.OrderPaid && s.restockOnCancel {
			if err := deps.listings.RestockQuantity(ctx, order.ListingID, order.Quantity); err != nil {
				return fmt.Errorf("cancel order: %w", err)
			}
		}

		if err := deps.orders.MarkCancelled(ctx, orderID); err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}

		order.Status = domain.OrderCancelled
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	actorID := cancelled.ConsumerID
	if ownerID != nil {
		actorID = *ownerID
	}
	s.track(ctx, analytics.EventOrderCancelled, cancelled.ID, actorID)
	metrics.RecordOrderStatus(string(domain.OrderCancelled))

	return cancelled, nil
}

// Get returns one order by id.
func (s *Service) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.findOrder(ctx, orderID)
}

// GetByPaymentRef resolves an order from a payment provider reference.
func (s *Service) GetByPaymentRef(ctx context.Context, ref string) (*domain.Order, error) {
	order, err := s.orders.FindByPaymentRef(ctx, ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("order")
		}
		return nil, fmt.Errorf("get order by payment ref: %w", err)
	}

	return order, nil
}

// ListByConsumer returns the consumer's order history, newest first.
func (s *Service) ListByConsumer(ctx context.Context, consumerID int64) ([]*domain.Order, error) {
	orders, err := s.orders.ListByConsumer(ctx, consumerID)
	if err != nil {
		return nil, fmt.Errorf("list consumer orders: %w", err)
	}

	return orders, nil
}

// ListPaidByVendor returns the vendor's paid orders awaiting pickup, oldest
// first.
func (s *Service) ListPaidByVendor(ctx context.Context, vendorID int64) ([]*domain.Order, error) {
	orders, err := s.orders.ListPaidByVendor(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("list vendor orders: %w", err)
	}

	return orders, nil
}

func (s *Service) findOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFound("order")
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return order, nil
}

func (s *Service) track(ctx context.Context, eventType string, entityID, userID int64) {
	if s.tracker != nil {
		s.tracker.Count(ctx, eventType, entityID, userID)
	}
}
