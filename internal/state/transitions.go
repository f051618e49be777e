package state

// validTransitions contains the permitted non-emergency transitions in the FSM.
var validTransitions = map[State][]State{
	StateIdle: {
		StateVendorName,
		StateMealName,
		StateBuyQuantity,
		StateNearbyLocation,
	},
	StateVendorName: {
		StateVendorPhone,
	},
	StateVendorPhone: {
		StateIdle,
	},
	StateMealName: {
		StateMealDescription,
	},
	StateMealDescription: {
		StateMealPrice,
	},
	StateMealPrice: {
		StateMealQuantity,
	},
	StateMealQuantity: {
		StateMealPickupStart,
	},
	StateMealPickupStart: {
		StateMealPickupEnd,
	},
	StateMealPickupEnd: {
		StateMealAddress,
	},
	StateMealAddress: {
		StateMealCoords,
		StateIdle,
	},
	StateMealCoords: {
		StateIdle,
	},
	StateBuyQuantity: {
		StateBuyConfirm,
	},
	StateBuyConfirm: {
		StateIdle,
	},
	StateNearbyLocation: {
		StateIdle,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
func IsTransitionAllowed(from, to State) bool {
	if to == StateError || to == StateIdle {
		return true
	}

	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}

	for _, state := range allowed {
		if state == to {
			return true
		}
	}

	return false
}
