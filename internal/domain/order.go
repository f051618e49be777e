package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a purchase.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Terminal reports whether no further transition is legal from the status.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// Order records a consumer's purchase of a listing. UnitPrice is captured at
// creation time; later price changes on the listing do not affect it.
type Order struct {
	ID          int64
	ListingID   int64
	ConsumerID  int64
	Quantity    int
	UnitPrice   decimal.Decimal
	Status      OrderStatus
	PaymentRef  string
	CreatedAt   time.Time
	PaidAt      *time.Time
	CompletedAt *time.Time
}

// Total returns quantity times the captured unit price.
func (o *Order) Total() decimal.Decimal {
	return o.UnitPrice.Mul(decimal.NewFromInt(int64(o.Quantity)))
}
