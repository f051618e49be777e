package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
)

// EarningRepository defines persistence operations for the vendor earnings
// ledger. Rows are append-only apart from the paid-out flag.
type EarningRepository interface {
	Create(ctx context.Context, earning *domain.VendorEarning) error
	ExistsForOrder(ctx context.Context, orderID int64) (bool, error)
	// SumUnpaid totals net amounts of unpaid rows for one vendor period.
	SumUnpaid(ctx context.Context, vendorID int64, year, month int) (decimal.Decimal, error)
	MonthlySummary(ctx context.Context, vendorID int64, year, month int) (*domain.MonthlyEarnings, error)
	// UnpaidByPeriod groups a vendor's unpaid rows by period, oldest first.
	UnpaidByPeriod(ctx context.Context, vendorID int64) ([]*domain.UnpaidPeriod, error)
	// MarkPaidOut flips unpaid rows of the period to paid, returning how
	// many rows were touched.
	MarkPaidOut(ctx context.Context, vendorID int64, year, month int, at time.Time) (int64, error)
	PlatformRevenue(ctx context.Context, year, month int) (*domain.PlatformRevenue, error)
}

type earningRepository struct {
	db  DBTX
	log *slog.Logger
}

func NewEarningRepository(db DBTX, log *slog.Logger) EarningRepository {
	return &earningRepository{db: db, log: log}
}

func (r *earningRepository) Create(ctx context.Context, earning *domain.VendorEarning) error {
	const query = `
		INSERT INTO vendor_earnings (vendor_id, order_id, gross_amount, commission_rate,
			commission_amount, net_amount, period_year, period_month, paid_out, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		earning.VendorID,
		earning.OrderID,
		earning.GrossAmount,
		earning.CommissionRate,
		earning.CommissionAmount,
		earning.NetAmount,
		earning.PeriodYear,
		earning.PeriodMonth,
		earning.PaidOut,
		earning.CreatedAt,
	).Scan(&earning.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to create vendor earning", slog.Int64("order_id", earning.OrderID), slog.Any("error", err))
		}
		return fmt.Errorf("insert vendor earning: %w", err)
	}

	return nil
}

func (r *earningRepository) ExistsForOrder(ctx context.Context, orderID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM vendor_earnings WHERE order_id = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, orderID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check earning existence: %w", err)
	}

	return exists, nil
}

func (r *earningRepository) SumUnpaid(ctx context.Context, vendorID int64, year, month int) (decimal.Decimal, error) {
	const query = `
		SELECT COALESCE(SUM(net_amount), 0)
		FROM vendor_earnings
		WHERE vendor_id = $1 AND period_year = $2 AND period_month = $3 AND paid_out = FALSE
	`

	var sum decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, vendorID, year, month).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum unpaid earnings: %w", err)
	}

	return sum, nil
}

func (r *earningRepository) MonthlySummary(ctx context.Context, vendorID int64, year, month int) (*domain.MonthlyEarnings, error) {
	const query = `
		SELECT COUNT(*),
			COALESCE(SUM(gross_amount), 0),
			COALESCE(SUM(commission_amount), 0),
			COALESCE(SUM(net_amount), 0),
			COALESCE(BOOL_AND(paid_out), FALSE)
		FROM vendor_earnings
		WHERE vendor_id = $1 AND period_year = $2 AND period_month = $3
	`

	summary := &domain.MonthlyEarnings{
		VendorID:    vendorID,
		PeriodYear:  year,
		PeriodMonth: month,
	}

	if err := r.db.QueryRowContext(ctx, query, vendorID, year, month).Scan(
		&summary.Orders,
		&summary.TotalGross,
		&summary.TotalCommission,
		&summary.TotalNet,
		&summary.PaidOut,
	); err != nil {
		return nil, fmt.Errorf("select monthly earnings: %w", err)
	}

	return summary, nil
}

func (r *earningRepository) UnpaidByPeriod(ctx context.Context, vendorID int64) ([]*domain.UnpaidPeriod, error) {
	const query = `
		SELECT period_year, period_month, COUNT(*), COALESCE(SUM(net_amount), 0)
		FROM vendor_earnings
		WHERE vendor_id = $1 AND paid_out = FALSE
		GROUP BY period_year, period_month
		ORDER BY period_year, period_month
	`

	rows, err := r.db.QueryContext(ctx, query, vendorID)
	if err != nil {
		return nil, fmt.Errorf("select unpaid periods: %w", err)
	}
	defer rows.Close()

	var periods []*domain.UnpaidPeriod
	for rows.Next() {
		period := &domain.UnpaidPeriod{}
		if err := rows.Scan(&period.Year, &period.Month, &period.Orders, &period.TotalNet); err != nil {
			return nil, fmt.Errorf("scan unpaid period: %w", err)
		}
		periods = append(periods, period)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unpaid periods: %w", err)
	}

	return periods, nil
}

func (r *earningRepository) MarkPaidOut(ctx context.Context, vendorID int64, year, month int, at time.Time) (int64, error) {
	const query = `
		UPDATE vendor_earnings
		SET paid_out = TRUE, paid_out_at = $4
		WHERE vendor_id = $1 AND period_year = $2 AND period_month = $3 AND paid_out = FALSE
	`

	res, err := r.db.ExecContext(ctx, query, vendorID, year, month, at)
	if err != nil {
		return 0, fmt.Errorf("mark earnings paid out: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark earnings paid out: %w", err)
	}

	return affected, nil
}

func (r *earningRepository) PlatformRevenue(ctx context.Context, year, month int) (*domain.PlatformRevenue, error) {
	const query = `
		SELECT COUNT(*),
			COALESCE(SUM(gross_amount), 0),
			COALESCE(SUM(commission_amount), 0),
			COALESCE(SUM(net_amount), 0),
			COUNT(DISTINCT vendor_id)
		FROM vendor_earnings
		WHERE period_year = $1 AND period_month = $2
	`

	revenue := &domain.PlatformRevenue{
		PeriodYear:  year,
		PeriodMonth: month,
	}

	if err := r.db.QueryRowContext(ctx, query, year, month).Scan(
		&revenue.Orders,
		&revenue.TotalGross,
		&revenue.TotalCommission,
		&revenue.TotalNet,
		&revenue.UniqueVendors,
	); err != nil {
		return nil, fmt.Errorf("select platform revenue: %w", err)
	}

	return revenue, nil
}
