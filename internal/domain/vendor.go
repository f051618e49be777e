// Package domain defines the marketplace entities persisted by the bot.
package domain

import "time"

// VendorStatus is the approval state of a vendor account.
type VendorStatus string

const (
	VendorPending  VendorStatus = "pending"
	VendorApproved VendorStatus = "approved"
	VendorRejected VendorStatus = "rejected"
)

// Vendor represents a food business selling leftover meals.
type Vendor struct {
	ID           int64
	TelegramID   int64
	Name         string
	ContactPhone string
	Status       VendorStatus
	CreatedAt    time.Time
}

// IsApproved reports whether the vendor may create listings.
func (v *Vendor) IsApproved() bool {
	return v != nil && v.Status == VendorApproved
}

// Consumer represents a buyer. Consumers are created lazily on first
// interaction and carry no approval state.
type Consumer struct {
	ID         int64
	TelegramID int64
	CreatedAt  time.Time
}
