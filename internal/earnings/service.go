// Package earnings maintains the vendor earnings ledger: commission
// calculation, payout requests and period summaries. Every monetary value is
// a decimal rounded half-up to two places.
package earnings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/asbolsyn/asbolsyn-bot/internal/analytics"
	"github.com/asbolsyn/asbolsyn-bot/internal/clock"
	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
	apperrors "github.com/asbolsyn/asbolsyn-bot/internal/errors"
	"github.com/asbolsyn/asbolsyn-bot/internal/repository"
)

// Service provides business operations over the earnings ledger.
type Service struct {
	ledger      repository.EarningRepository
	commissions repository.CommissionRepository
	payouts     repository.PayoutRepository
	clock       clock.Clock
	tracker     *analytics.Tracker
	defaultRate decimal.Decimal
	log         *slog.Logger
}

// NewService constructs an earnings Service.
func NewService(
	ledger repository.EarningRepository,
	commissions repository.CommissionRepository,
	payouts repository.PayoutRepository,
	clk clock.Clock,
	tracker *analytics.Tracker,
	defaultRate decimal.Decimal,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		ledger:      ledger,
		commissions: commissions,
		payouts:     payouts,
		clock:       clk,
		tracker:     tracker,
		defaultRate: defaultRate,
		log:         log,
	}
}

// WithTx returns a copy of the service whose ledger and commission lookups
// run inside the given transaction. Payout operations keep their own
// connection and must not be called on the copy.
func (s *Service) WithTx(tx repository.DBTX) *Service {
	clone := *s
	clone.ledger = repository.NewEarningRepository(tx, s.log)
	clone.commissions = repository.NewCommissionRepository(tx, s.log)
	return &clone
}

// RecordEarning derives the ledger row for an order that reached paid. The
// operation is idempotent per order: recording twice leaves a single row.
// The applicable commission rate is the one in effect at the paid timestamp.
func (s *Service) RecordEarning(ctx context.Context, order *domain.Order, vendorID int64) (*domain.VendorEarning, error) {
	if order == nil || order.PaidAt == nil {
		return nil, apperrors.NewInvalidState("order has not been paid")
	}

	exists, err := s.ledger.ExistsForOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("record earning: %w", err)
	}
	if exists {
		s.log.Info("earning already recorded", slog.Int64("order_id", order.ID))
		return nil, nil
	}

	rate, err := s.commissions.FindAt(ctx, *order.PaidAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNoActiveRate("no commission rate in effect")
		}
		return nil, fmt.Errorf("record earning: %w", err)
	}

	gross := order.Total()
	commission := gross.Mul(rate.Rate).Round(2)
	net := gross.Sub(commission)

	// Payout periods follow the marketplace zone, not UTC.
	paidLocal := order.PaidAt.In(s.clock.Location())

	earning := &domain.VendorEarning{
		VendorID:         vendorID,
		OrderID:          order.ID,
		GrossAmount:      gross,
		CommissionRate:   rate.Rate,
		CommissionAmount: commission,
		NetAmount:        net,
		PeriodYear:       paidLocal.Year(),
		PeriodMonth:      int(paidLocal.Month()),
		CreatedAt:        s.clock.Now(),
	}

	if err := s.ledger.Create(ctx, earning); err != nil {
		return nil, fmt.Errorf("record earning: %w", err)
	}

	s.track(ctx, analytics.Event{
		Type:     analytics.EventEarningsCalculated,
		Value:    net.InexactFloat64(),
		EntityID: &earning.ID,
		UserID:   &vendorID,
		Metadata: map[string]any{
			"order_id":          order.ID,
			"gross_amount":      gross.String(),
			"commission_amount": commission.String(),
			"commission_rate":   rate.Rate.String(),
		},
	})

	s.log.Info("earning recorded",
		slog.Int64("order_id", order.ID),
		slog.Int64("vendor_id", vendorID),
		slog.String("net_amount", net.String()),
	)

	return earning, nil
}

// RequestPayout aggregates the vendor's unpaid earnings for the period into
// a payout request. Repeating the call refreshes the pending request's amount
// instead of duplicating it.
func (s *Service) RequestPayout(ctx context.Context, vendorID int64, year, month int) (*domain.PayoutRequest, error) {
	sum, err := s.ledger.SumUnpaid(ctx, vendorID, year, month)
	if err != nil {
		return nil, fmt.Errorf("request payout: %w", err)
	}

	if !sum.IsPositive() {
		return nil, apperrors.NewNothingToPayout("no unpaid earnings for the period")
	}

	payout, err := s.payouts.Upsert(ctx, vendorID, year, month, sum, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("request payout: %w", err)
	}

	s.track(ctx, analytics.Event{
		Type:     analytics.EventPayoutRequested,
		Value:    sum.InexactFloat64(),
		EntityID: &payout.ID,
		UserID:   &vendorID,
		Metadata: map[string]any{"period_year": year, "period_month": month},
	})

	return payout, nil
}

// MarkEarningsPaid flips the period's unpaid rows to paid and completes the
// matching payout request when one exists.
func (s *Service) MarkEarningsPaid(ctx context.Context, vendorID int64, year, month int, externalTxRef string) error {
	now := s.clock.Now()

	affected, err := s.ledger.MarkPaidOut(ctx, vendorID, year, month, now)
	if err != nil {
		return fmt.Errorf("mark earnings paid: %w", err)
	}
	if affected == 0 {
		return apperrors.NewNothingToPayout("no unpaid earnings for the period")
	}

	payout, err := s.payouts.FindByVendorPeriod(ctx, vendorID, year, month)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.log.Warn("earnings paid without a payout request",
				slog.Int64("vendor_id", vendorID),
				slog.Int("year", year),
				slog.Int("month", month),
			)
			return nil
		}
		return fmt.Errorf("mark earnings paid: %w", err)
	}

	if err := s.payouts.Complete(ctx, payout.ID, externalTxRef, now); err != nil {
		return fmt.Errorf("mark earnings paid: %w", err)
	}

	s.track(ctx, analytics.Event{
		Type:     analytics.EventPayoutCompleted,
		Value:    payout.Amount.InexactFloat64(),
		EntityID: &payout.ID,
		UserID:   &vendorID,
		Metadata: map[string]any{"external_tx_ref": externalTxRef},
	})

	return nil
}

// MonthlySummary returns the vendor's ledger totals for one period.
func (s *Service) MonthlySummary(ctx context.Context, vendorID int64, year, month int) (*domain.MonthlyEarnings, error) {
	summary, err := s.ledger.MonthlySummary(ctx, vendorID, year, month)
	if err != nil {
		return nil, fmt.Errorf("monthly summary: %w", err)
	}

	return summary, nil
}

// UnpaidEarnings groups the vendor's unpaid ledger rows by period and returns
// them alongside the overall total.
func (s *Service) UnpaidEarnings(ctx context.Context, vendorID int64) ([]*domain.UnpaidPeriod, decimal.Decimal, error) {
	periods, err := s.ledger.UnpaidByPeriod(ctx, vendorID)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("unpaid earnings: %w", err)
	}

	total := decimal.Zero
	for _, period := range periods {
		total = total.Add(period.TotalNet)
	}

	return periods, total, nil
}

// PlatformRevenue returns commission totals across all vendors for a period.
func (s *Service) PlatformRevenue(ctx context.Context, year, month int) (*domain.PlatformRevenue, error) {
	revenue, err := s.ledger.PlatformRevenue(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("platform revenue: %w", err)
	}

	return revenue, nil
}

// PendingPayouts lists every payout request still awaiting processing.
func (s *Service) PendingPayouts(ctx context.Context) ([]*domain.PayoutRequest, error) {
	payouts, err := s.payouts.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending payouts: %w", err)
	}

	return payouts, nil
}

// SeedDefaultRate inserts the configured commission rate when the table is
// empty. Called once at startup so RecordEarning always finds a covering
// rate.
func (s *Service) SeedDefaultRate(ctx context.Context) error {
	count, err := s.commissions.Count(ctx)
	if err != nil {
		return fmt.Errorf("seed commission rate: %w", err)
	}
	if count > 0 {
		return nil
	}

	rate := &domain.CommissionRate{
		Rate: s.defaultRate,
		// Backdate so orders paid during a deploy race are still covered.
		EffectiveFrom: s.clock.Now().Add(-24 * time.Hour),
		Description:   "initial platform commission",
	}

	if err := s.commissions.Create(ctx, rate); err != nil {
		return fmt.Errorf("seed commission rate: %w", err)
	}

	s.log.Info("seeded default commission rate", slog.String("rate", s.defaultRate.String()))

	return nil
}

// ChangeRate closes the currently open commission interval and opens a new
// one effective immediately. Existing paid orders keep the rate that covered
// them.
func (s *Service) ChangeRate(ctx context.Context, newRate decimal.Decimal, description string) error {
	if !newRate.IsPositive() || newRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return apperrors.NewValidationError("commission rate must be between 0 and 1")
	}

	now := s.clock.Now()

	if err := s.commissions.CloseCurrent(ctx, now); err != nil {
		return fmt.Errorf("change commission rate: %w", err)
	}

	rate := &domain.CommissionRate{
		Rate:          newRate,
		EffectiveFrom: now,
		Description:   description,
	}

	if err := s.commissions.Create(ctx, rate); err != nil {
		return fmt.Errorf("change commission rate: %w", err)
	}

	return nil
}

func (s *Service) track(ctx context.Context, event analytics.Event) {
	if s.tracker != nil {
		s.tracker.Track(ctx, event)
	}
}
