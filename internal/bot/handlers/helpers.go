package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
	"github.com/asbolsyn/asbolsyn-bot/internal/state"
)

// ctxString reads a string value from the FSM context. Values survive a JSON
// round-trip through Redis, so everything is stored as strings.
func ctxString(us *state.UserState, key string) string {
	if us == nil || us.Context == nil {
		return ""
	}

	value, ok := us.Context[key].(string)
	if !ok {
		return ""
	}

	return value
}

func ctxInt64(us *state.UserState, key string) int64 {
	value, err := strconv.ParseInt(ctxString(us, key), 10, 64)
	if err != nil {
		return 0
	}
	return value
}

// callbackID extracts the numeric suffix of callback data like "meal_view:42".
func callbackID(data, prefix string) (int64, bool) {
	suffix, ok := strings.CutPrefix(strings.TrimSpace(data), prefix)
	if !ok {
		return 0, false
	}

	id, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}

	return id, true
}

// formatMoney renders a decimal amount with the tenge sign.
func formatMoney(amount decimal.Decimal) string {
	return amount.StringFixed(2) + " ₸"
}

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

func formatPickupWindow(l *domain.Listing, loc *time.Location) string {
	return fmt.Sprintf("%s – %s",
		l.PickupStart.In(loc).Format("02 Jan 15:04"),
		l.PickupEnd.In(loc).Format("15:04"),
	)
}

// formatListingLine is the one-line browse row: name, price, portions left.
func formatListingLine(l *domain.Listing) string {
	return fmt.Sprintf("%s — %s (%d left)", l.Name, formatMoney(l.Price), l.RemainingQuantity)
}

func formatListingDetail(l *domain.Listing, loc *time.Location) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🍱 %s\n", l.Name)
	if l.Description != "" {
		fmt.Fprintf(&b, "%s\n", l.Description)
	}
	fmt.Fprintf(&b, "\nPrice: %s\n", formatMoney(l.Price))
	fmt.Fprintf(&b, "Portions left: %d\n", l.RemainingQuantity)
	fmt.Fprintf(&b, "Pickup: %s\n", formatPickupWindow(l, loc))
	fmt.Fprintf(&b, "Address: %s", l.Address)

	return b.String()
}

func orderStatusLabel(status domain.OrderStatus) string {
	switch status {
	case domain.OrderPending:
		return "⏳ awaiting payment"
	case domain.OrderPaid:
		return "✅ paid"
	case domain.OrderCompleted:
		return "🏁 completed"
	case domain.OrderCancelled:
		return "❌ cancelled"
	default:
		return string(status)
	}
}

func monthLabel(year, month int) string {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
}
