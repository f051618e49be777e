package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
)

// OrderRepository defines persistence operations for orders. Orders are
// append-only history: rows are never deleted, only their status advances.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	// FindByIDForUpdate locks the order row inside the enclosing transaction.
	FindByIDForUpdate(ctx context.Context, id int64) (*domain.Order, error)
	FindByPaymentRef(ctx context.Context, ref string) (*domain.Order, error)
	ListByConsumer(ctx context.Context, consumerID int64) ([]*domain.Order, error)
	ListPaidByVendor(ctx context.Context, vendorID int64) ([]*domain.Order, error)
	MarkPaid(ctx context.Context, id int64, paymentRef string, paidAt time.Time) error
	MarkCompleted(ctx context.Context, id int64, completedAt time.Time) error
	MarkCancelled(ctx context.Context, id int64) error
}

type orderRepository struct {
	db  DBTX
	log *slog.Logger
}

func NewOrderRepository(db DBTX, log *slog.Logger) OrderRepository {
	return &orderRepository{db: db, log: log}
}

const orderColumns = `id, listing_id, consumer_id, quantity, unit_price, status,
		payment_ref, created_at, paid_at, completed_at`

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	const query = `
		INSERT INTO orders (listing_id, consumer_id, quantity, unit_price, status, payment_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		order.ListingID,
		order.ConsumerID,
		order.Quantity,
		order.UnitPrice,
		order.Status,
		order.PaymentRef,
		order.CreatedAt,
	).Scan(&order.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to create order", slog.Int64("listing_id", order.ListingID), slog.Any("error", err))
		}
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	return scanOrder(r.db.QueryRowContext(ctx, query, id))
}

func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	return scanOrder(r.db.QueryRowContext(ctx, query, id))
}

func (r *orderRepository) FindByPaymentRef(ctx context.Context, ref string) (*domain.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE payment_ref = $1`

	return scanOrder(r.db.QueryRowContext(ctx, query, ref))
}

func (r *orderRepository) ListByConsumer(ctx context.Context, consumerID int64) ([]*domain.Order, error) {
	const query = `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE consumer_id = $1
		ORDER BY created_at DESC, id DESC
	`

	return r.queryOrders(ctx, query, consumerID)
}

// ListPaidByVendor returns paid orders on the vendor's listings, oldest
// first, for the fulfillment view.
func (r *orderRepository) ListPaidByVendor(ctx context.Context, vendorID int64) ([]*domain.Order, error) {
	const query = `
		SELECT o.id, o.listing_id, o.consumer_id, o.quantity, o.unit_price, o.status,
			o.payment_ref, o.created_at, o.paid_at, o.completed_at
		FROM orders o
		JOIN listings l ON l.id = o.listing_id
		WHERE l.vendor_id = $1 AND o.status = $2
		ORDER BY o.paid_at, o.id
	`

	return r.queryOrders(ctx, query, vendorID, domain.OrderPaid)
}

func (r *orderRepository) MarkPaid(ctx context.Context, id int64, paymentRef string, paidAt time.Time) error {
	const query = `UPDATE orders SET status = $2, payment_ref = $3, paid_at = $4 WHERE id = $1`

	return r.exec(ctx, query, id, domain.OrderPaid, paymentRef, paidAt)
}

func (r *orderRepository) MarkCompleted(ctx context.Context, id int64, completedAt time.Time) error {
	const query = `UPDATE orders SET status = $2, completed_at = $3 WHERE id = $1`

	return r.exec(ctx, query, id, domain.OrderCompleted, completedAt)
}

func (r *orderRepository) MarkCancelled(ctx context.Context, id int64) error {
	const query = `UPDATE orders SET status = $2 WHERE id = $1`

	return r.exec(ctx, query, id, domain.OrderCancelled)
}

func (r *orderRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(
			&o.ID,
			&o.ListingID,
			&o.ConsumerID,
			&o.Quantity,
			&o.UnitPrice,
			&o.Status,
			&o.PaymentRef,
			&o.CreatedAt,
			&o.PaidAt,
			&o.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, &o)
	}

	return orders, rows.Err()
}

func scanOrder(row *sql.Row) (*domain.Order, error) {
	var o domain.Order
	if err := row.Scan(
		&o.ID,
		&o.ListingID,
		&o.ConsumerID,
		&o.Quantity,
		&o.UnitPrice,
		&o.Status,
		&o.PaymentRef,
		&o.CreatedAt,
		&o.PaidAt,
		&o.CompletedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	return &o, nil
}
