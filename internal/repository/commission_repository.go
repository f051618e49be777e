package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
)

// CommissionRepository defines persistence operations for time-versioned
// commission rates.
type CommissionRepository interface {
	Create(ctx context.Context, rate *domain.CommissionRate) error
	// FindAt returns the rate whose interval contains ts, or sql.ErrNoRows.
	FindAt(ctx context.Context, ts time.Time) (*domain.CommissionRate, error)
	// CloseCurrent sets effective_to on the open-ended rate, if any, so a
	// new rate can take over from ts.
	CloseCurrent(ctx context.Context, ts time.Time) error
	Count(ctx context.Context) (int, error)
}

type commissionRepository struct {
	db  DBTX
	log *slog.Logger
}

func NewCommissionRepository(db DBTX, log *slog.Logger) CommissionRepository {
	return &commissionRepository{db: db, log: log}
}

func (r *commissionRepository) Create(ctx context.Context, rate *domain.CommissionRate) error {
	const query = `
		INSERT INTO commission_rates (rate, effective_from, effective_to, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		rate.Rate,
		rate.EffectiveFrom,
		rate.EffectiveTo,
		rate.Description,
	).Scan(&rate.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to create commission rate", slog.Any("error", err))
		}
		return fmt.Errorf("insert commission rate: %w", err)
	}

	return nil
}

func (r *commissionRepository) FindAt(ctx context.Context, ts time.Time) (*domain.CommissionRate, error) {
	const query = `
		SELECT id, rate, effective_from, effective_to, description
		FROM commission_rates
		WHERE effective_from <= $1 AND (effective_to IS NULL OR effective_to > $1)
		ORDER BY effective_from DESC
		LIMIT 1
	`

	var c domain.CommissionRate
	if err := r.db.QueryRowContext(ctx, query, ts).Scan(
		&c.ID,
		&c.Rate,
		&c.EffectiveFrom,
		&c.EffectiveTo,
		&c.Description,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("select commission rate: %w", err)
	}

	return &c, nil
}

func (r *commissionRepository) CloseCurrent(ctx context.Context, ts time.Time) error {
	const query = `UPDATE commission_rates SET effective_to = $1 WHERE effective_to IS NULL`

	if _, err := r.db.ExecContext(ctx, query, ts); err != nil {
		return fmt.Errorf("close current commission rate: %w", err)
	}

	return nil
}

func (r *commissionRepository) Count(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM commission_rates`

	var count int
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count commission rates: %w", err)
	}

	return count, nil
}
