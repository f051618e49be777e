package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
)

// PayoutRepository defines persistence operations for payout requests.
type PayoutRepository interface {
	// Upsert creates the request for (vendor, year, month) or refreshes its
	// amount while it is still pending. Unique on vendor+period.
	Upsert(ctx context.Context, vendorID int64, year, month int, amount decimal.Decimal, createdAt time.Time) (*domain.PayoutRequest, error)
	FindByVendorPeriod(ctx context.Context, vendorID int64, year, month int) (*domain.PayoutRequest, error)
	ListPending(ctx context.Context) ([]*domain.PayoutRequest, error)
	Complete(ctx context.Context, id int64, externalTxRef string, at time.Time) error
}

type payoutRepository struct {
	db  DBTX
	log *slog.Logger
}

func NewPayoutRepository(db DBTX, log *slog.Logger) PayoutRepository {
	return &payoutRepository{db: db, log: log}
}

const payoutColumns = `id, vendor_id, period_year, period_month, amount, status,
		external_tx_ref, created_at, completed_at`

func (r *payoutRepository) Upsert(ctx context.Context, vendorID int64, year, month int, amount decimal.Decimal, createdAt time.Time) (*domain.PayoutRequest, error) {
	const query = `
		INSERT INTO payout_requests (vendor_id, period_year, period_month, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (vendor_id, period_year, period_month)
		DO UPDATE SET amount = EXCLUDED.amount
		WHERE payout_requests.status = 'pending'
		RETURNING ` + payoutColumns + `
	`

	row := r.db.QueryRowContext(ctx, query, vendorID, year, month, amount, domain.PayoutPending, createdAt)

	request, err := scanPayout(row)
	if err == sql.ErrNoRows {
		// Conflict on a non-pending request: return the existing row untouched.
		return r.FindByVendorPeriod(ctx, vendorID, year, month)
	}
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to upsert payout request", slog.Int64("vendor_id", vendorID), slog.Any("error", err))
		}
		return nil, err
	}

	return request, nil
}

func (r *payoutRepository) FindByVendorPeriod(ctx context.Context, vendorID int64, year, month int) (*domain.PayoutRequest, error) {
	const query = `
		SELECT ` + payoutColumns + `
		FROM payout_requests
		WHERE vendor_id = $1 AND period_year = $2 AND period_month = $3
	`

	return scanPayout(r.db.QueryRowContext(ctx, query, vendorID, year, month))
}

func (r *payoutRepository) ListPending(ctx context.Context) ([]*domain.PayoutRequest, error) {
	const query = `
		SELECT ` + payoutColumns + `
		FROM payout_requests
		WHERE status = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, domain.PayoutPending)
	if err != nil {
		return nil, fmt.Errorf("select pending payouts: %w", err)
	}
	defer rows.Close()

	var requests []*domain.PayoutRequest
	for rows.Next() {
		var p domain.PayoutRequest
		var txRef sql.NullString
		if err := rows.Scan(
			&p.ID,
			&p.VendorID,
			&p.PeriodYear,
			&p.PeriodMonth,
			&p.Amount,
			&p.Status,
			&txRef,
			&p.CreatedAt,
			&p.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan payout request: %w", err)
		}
		p.ExternalTxRef = txRef.String
		requests = append(requests, &p)
	}

	return requests, rows.Err()
}

func (r *payoutRepository) Complete(ctx context.Context, id int64, externalTxRef string, at time.Time) error {
	const query = `
		UPDATE payout_requests
		SET status = $2, external_tx_ref = $3, completed_at = $4
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query, id, domain.PayoutCompleted, externalTxRef, at)
	if err != nil {
		return fmt.Errorf("complete payout request: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete payout request: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func scanPayout(row *sql.Row) (*domain.PayoutRequest, error) {
	var p domain.PayoutRequest
	// external_tx_ref stays NULL until the payout completes.
	var txRef sql.NullString
	if err := row.Scan(
		&p.ID,
		&p.VendorID,
		&p.PeriodYear,
		&p.PeriodMonth,
		&p.Amount,
		&p.Status,
		&txRef,
		&p.CreatedAt,
		&p.CompletedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("select payout request: %w", err)
	}
	p.ExternalTxRef = txRef.String

	return &p, nil
}
