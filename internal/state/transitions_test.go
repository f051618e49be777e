package state

import "testing"

func TestIsTransitionAllowed(t *testing.T) {
	testCases := []struct {
		name     string
		from     State
		to       State
		expected bool
	}{
		{name: "idle to vendor name", from: StateIdle, to: StateVendorName, expected: true},
		{name: "vendor name to vendor phone", from: StateVendorName, to: StateVendorPhone, expected: true},
		{name: "vendor phone to idle", from: StateVendorPhone, to: StateIdle, expected: true},
		{name: "idle to meal name", from: StateIdle, to: StateMealName, expected: true},
		{name: "meal name to description", from: StateMealName, to: StateMealDescription, expected: true},
		{name: "meal price to quantity", from: StateMealPrice, to: StateMealQuantity, expected: true},
		{name: "meal pickup start to end", from: StateMealPickupStart, to: StateMealPickupEnd, expected: true},
		{name: "meal address skips coords", from: StateMealAddress, to: StateIdle, expected: true},
		{name: "meal address to coords", from: StateMealAddress, to: StateMealCoords, expected: true},
		{name: "idle to buy quantity", from: StateIdle, to: StateBuyQuantity, expected: true},
		{name: "buy quantity to buy confirm", from: StateBuyQuantity, to: StateBuyConfirm, expected: true},
		{name: "buy confirm to idle", from: StateBuyConfirm, to: StateIdle, expected: true},
		{name: "idle to nearby location", from: StateIdle, to: StateNearbyLocation, expected: true},
		{name: "idle straight to buy confirm invalid", from: StateIdle, to: StateBuyConfirm, expected: false},
		{name: "meal name straight to price invalid", from: StateMealName, to: StateMealPrice, expected: false},
		{name: "vendor phone to meal name invalid", from: StateVendorPhone, to: StateMealName, expected: false},
		{name: "unknown state to buy quantity invalid", from: State("unknown"), to: StateBuyQuantity, expected: false},
		{name: "any state to idle emergency", from: State("whatever"), to: StateIdle, expected: true},
		{name: "any state to error emergency", from: StateBuyConfirm, to: StateError, expected: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if actual := IsTransitionAllowed(tc.from, tc.to); actual != tc.expected {
				t.Errorf("IsTransitionAllowed(%s -> %s) = %t, expected %t", tc.from, tc.to, actual, tc.expected)
			}
		})
	}
}
