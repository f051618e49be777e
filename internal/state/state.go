package state

import "time"

// State represents a finite-state machine state.
type State string

const (
	// StateIdle indicates that the bot is waiting for the next user command.
	StateIdle State = "idle"

	// StateVendorName indicates that a registering vendor is entering the business name.
	StateVendorName State = "vendor_name"
	// StateVendorPhone indicates that a registering vendor is entering the contact phone.
	StateVendorPhone State = "vendor_phone"

	// StateMealName indicates that a vendor is entering the meal name.
	StateMealName State = "meal_name"
	// StateMealDescription indicates that a vendor is entering the meal description.
	StateMealDescription State = "meal_description"
	// StateMealPrice indicates that a vendor is entering the discounted price.
	StateMealPrice State = "meal_price"
	// StateMealQuantity indicates that a vendor is entering the portion count.
	StateMealQuantity State = "meal_quantity"
	// StateMealPickupStart indicates that a vendor is entering the pickup window start.
	StateMealPickupStart State = "meal_pickup_start"
	// StateMealPickupEnd indicates that a vendor is entering the pickup window end.
	StateMealPickupEnd State = "meal_pickup_end"
	// StateMealAddress indicates that a vendor is entering the pickup address.
	StateMealAddress State = "meal_address"
	// StateMealCoords indicates that a vendor may share the pickup location pin.
	StateMealCoords State = "meal_coords"

	// StateBuyQuantity indicates that a consumer is entering the number of portions to buy.
	StateBuyQuantity State = "buy_quantity"
	// StateBuyConfirm indicates that a consumer is confirming the order before payment.
	StateBuyConfirm State = "buy_confirm"

	// StateNearbyLocation indicates that a consumer is sharing a location for a nearby search.
	StateNearbyLocation State = "nearby_location"

	// StateError indicates that the bot is in an error state and requires recovery.
	StateError State = "error"
)

// UserState captures the current FSM state for a Telegram user.
type UserState struct {
	UserID       int64                  `json:"user_id"`
	CurrentState State                  `json:"current_state"`
	Context      map[string]interface{} `json:"context"`
	UpdatedAt    time.Time              `json:"updated_at"`
}
