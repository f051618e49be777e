package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionRate is a time-versioned platform commission. At most one row has
// a nil EffectiveTo at any time; the rate applicable to an order is the one
// whose [EffectiveFrom, EffectiveTo) interval contains its paid timestamp.
type CommissionRate struct {
	ID            int64
	Rate          decimal.Decimal
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	Description   string
}

// Covers reports whether the rate interval contains ts.
func (c *CommissionRate) Covers(ts time.Time) bool {
	if c == nil || ts.Before(c.EffectiveFrom) {
		return false
	}

	return c.EffectiveTo == nil || ts.Before(*c.EffectiveTo)
}

// VendorEarning is the ledger row derived once from an order reaching paid.
// Immutable except for the paid-out flag set by a payout process.
type VendorEarning struct {
	ID               int64
	VendorID         int64
	OrderID          int64
	GrossAmount      decimal.Decimal
	CommissionRate   decimal.Decimal
	CommissionAmount decimal.Decimal
	NetAmount        decimal.Decimal
	PeriodYear       int
	PeriodMonth      int
	PaidOut          bool
	PaidOutAt        *time.Time
	CreatedAt        time.Time
}

// PayoutStatus tracks the ops-driven progress of a payout request.
type PayoutStatus string

const (
	PayoutPending    PayoutStatus = "pending"
	PayoutProcessing PayoutStatus = "processing"
	PayoutCompleted  PayoutStatus = "completed"
	PayoutFailed     PayoutStatus = "failed"
)

// PayoutRequest aggregates a vendor's unpaid earnings for one (year, month)
// period. Unique on vendor+period.
type PayoutRequest struct {
	ID            int64
	VendorID      int64
	PeriodYear    int
	PeriodMonth   int
	Amount        decimal.Decimal
	Status        PayoutStatus
	ExternalTxRef string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// UnpaidPeriod is one month of a vendor's not-yet-paid-out earnings.
type UnpaidPeriod struct {
	Year     int
	Month    int
	Orders   int
	TotalNet decimal.Decimal
}

// MonthlyEarnings summarizes a vendor's ledger rows for one period.
type MonthlyEarnings struct {
	VendorID        int64
	PeriodYear      int
	PeriodMonth     int
	Orders          int
	TotalGross      decimal.Decimal
	TotalCommission decimal.Decimal
	TotalNet        decimal.Decimal
	PaidOut         bool
}

// PlatformRevenue summarizes commission income across all vendors for one
// period.
type PlatformRevenue struct {
	PeriodYear      int
	PeriodMonth     int
	Orders          int
	TotalGross      decimal.Decimal
	TotalCommission decimal.Decimal
	TotalNet        decimal.Decimal
	UniqueVendors   int
}
