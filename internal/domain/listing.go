package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing is a vendor's sellable meal batch with a finite quantity and a
// pickup window.
type Listing struct {
	ID                int64
	VendorID          int64
	Name              string
	Description       string
	Price             decimal.Decimal
	RemainingQuantity int
	PickupStart       time.Time
	PickupEnd         time.Time
	Address           string
	Latitude          *float64
	Longitude         *float64
	Active            bool
	CreatedAt         time.Time
}

// Purchasable is the single availability predicate used by browsing, detail
// views and order creation alike: active, stock left, window not elapsed.
func (l *Listing) Purchasable(now time.Time) bool {
	if l == nil {
		return false
	}

	return l.Active && l.RemainingQuantity > 0 && now.Before(l.PickupEnd)
}

// Expired reports whether the pickup window has elapsed.
func (l *Listing) Expired(now time.Time) bool {
	return l != nil && !now.Before(l.PickupEnd)
}

// HasCoordinates reports whether the listing carries a pickup point usable
// for distance filtering.
func (l *Listing) HasCoordinates() bool {
	return l != nil && l.Latitude != nil && l.Longitude != nil
}
