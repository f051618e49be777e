package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	telebot "gopkg.in/telebot.v3"

	"github.com/asbolsyn/asbolsyn-bot/internal/clock"
	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
	"github.com/asbolsyn/asbolsyn-bot/internal/earnings"
	"github.com/asbolsyn/asbolsyn-bot/internal/order"
	"github.com/asbolsyn/asbolsyn-bot/internal/vendor"
)

// NewPendingVendorsHandler lists vendors awaiting a decision.
func NewPendingVendorsHandler(vendors *vendor.Service, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil {
			return nil
		}

		ctx := context.Background()

		pending, err := vendors.ListPending(ctx)
		if err != nil {
			return err
		}

		if len(pending) == 0 {
			return c.Send("No vendors waiting for review.")
		}

		for _, v := range pending {
			text := fmt.Sprintf("Vendor #%d\n%s\n%s\nApplied: %s",
				v.ID, v.Name, v.ContactPhone, v.CreatedAt.Format("02 Jan 2006"))

			markup := &telebot.ReplyMarkup{InlineKeyboard: [][]telebot.InlineButton{{
				{Text: "Approve ✅", Data: fmt.Sprintf("vendor_approve:%d", v.ID)},
				{Text: "Reject ❌", Data: fmt.Sprintf("vendor_reject:%d", v.ID)},
			}}}

			if err := c.Send(text, markup); err != nil {
				return err
			}
		}

		return nil
	}
}

// HandleVendorApprove approves a pending vendor and notifies them.
func HandleVendorApprove(vendors *vendor.Service, notifier *Notifier, log *slog.Logger) CallbackHandler {
	return decideVendor(vendors, notifier, true, log)
}

// HandleVendorReject rejects a pending vendor and notifies them.
func HandleVendorReject(vendors *vendor.Service, notifier *Notifier, log *slog.Logger) CallbackHandler {
	return decideVendor(vendors, notifier, false, log)
}

func decideVendor(vendors *vendor.Service, notifier *Notifier, approve bool, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	prefix := "vendor_reject:"
	if approve {
		prefix = "vendor_approve:"
	}

	return func(c telebot.Context) error {
		if c == nil || c.Callback() == nil {
			return nil
		}

		vendorID, ok := callbackID(c.Callback().Data, prefix)
		if !ok {
			return nil
		}

		ctx := context.Background()

		var (
			decided *vendorDecision
			err     error
		)
		if approve {
			v, aerr := vendors.Approve(ctx, vendorID)
			decided, err = &vendorDecision{v, "approved ✅"}, aerr
		} else {
			v, rerr := vendors.Reject(ctx, vendorID)
			decided, err = &vendorDecision{v, "rejected ❌"}, rerr
		}
		if err != nil {
			return err
		}

		notifier.VendorDecision(decided.vendor)

		return c.Send(fmt.Sprintf("%s %s.", decided.vendor.Name, decided.label))
	}
}

// NewPayoutsHandler lists pending payout requests with mark-paid buttons.
func NewPayoutsHandler(ledger *earnings.Service, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil {
			return nil
		}

		ctx := context.Background()

		payouts, err := ledger.PendingPayouts(ctx)
		if err != nil {
			return err
		}

		if len(payouts) == 0 {
			return c.Send("No pending payouts.")
		}

		for _, p := range payouts {
			text := fmt.Sprintf("Payout #%d\nVendor #%d — %s for %s",
				p.ID, p.VendorID, formatMoney(p.Amount), monthLabel(p.PeriodYear, p.PeriodMonth))

			markup := &telebot.ReplyMarkup{InlineKeyboard: [][]telebot.InlineButton{{
				{
					Text: "Mark paid 💸",
					Data: fmt.Sprintf("payout_paid:%d:%d:%d", p.VendorID, p.PeriodYear, p.PeriodMonth),
				},
			}}}

			if err := c.Send(text, markup); err != nil {
				return err
			}
		}

		return nil
	}
}

// HandlePayoutPaid marks a vendor's period as transferred. The external bank
// reference is recorded as the payout id for traceability.
func HandlePayoutPaid(ledger *earnings.Service, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Callback() == nil {
			return nil
		}

		suffix, ok := strings.CutPrefix(strings.TrimSpace(c.Callback().Data), "payout_paid:")
		if !ok {
			return nil
		}

		parts := strings.Split(suffix, ":")
		if len(parts) != 3 {
			return nil
		}

		vendorID, err1 := strconv.ParseInt(parts[0], 10, 64)
		year, err2 := strconv.Atoi(parts[1])
		month, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return nil
		}

		ctx := context.Background()

		ref := fmt.Sprintf("manual:%d:%d-%02d", vendorID, year, month)
		if err := ledger.MarkEarningsPaid(ctx, vendorID, year, month, ref); err != nil {
			return err
		}

		return c.Send(fmt.Sprintf("Payout for vendor #%d, %s marked as paid.",
			vendorID, monthLabel(year, month)))
	}
}

// NewRevenueHandler shows platform commission income for the current month.
func NewRevenueHandler(ledger *earnings.Service, clk clock.Clock, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil {
			return nil
		}

		ctx := context.Background()
		now := clk.Now().In(clk.Location())

		revenue, err := ledger.PlatformRevenue(ctx, now.Year(), int(now.Month()))
		if err != nil {
			return err
		}

		var b strings.Builder
		fmt.Fprintf(&b, "🏦 Platform revenue — %s\n", monthLabel(revenue.PeriodYear, revenue.PeriodMonth))
		fmt.Fprintf(&b, "Orders: %d\n", revenue.Orders)
		fmt.Fprintf(&b, "Vendors: %d\n", revenue.UniqueVendors)
		fmt.Fprintf(&b, "Gross volume: %s\n", formatMoney(revenue.TotalGross))
		fmt.Fprintf(&b, "Commission income: %s", formatMoney(revenue.TotalCommission))

		return c.Send(b.String())
	}
}

// NewSetRateHandler changes the platform commission rate going forward.
// Usage: /setrate 0.20 optional description.
func NewSetRateHandler(ledger *earnings.Service, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil {
			return nil
		}

		fields := strings.Fields(c.Text())
		if len(fields) < 2 {
			return c.Send("Usage: /setrate 0.20 optional description")
		}

		rate, err := decimal.NewFromString(fields[1])
		if err != nil {
			return c.Send("The rate must be a decimal fraction, for example 0.20.")
		}

		description := strings.Join(fields[2:], " ")
		if description == "" {
			description = "rate change via bot"
		}

		if err := ledger.ChangeRate(context.Background(), rate, description); err != nil {
			return err
		}

		return c.Send(fmt.Sprintf("Commission rate is now %s%% for future orders.",
			rate.Mul(decimal.NewFromInt(100)).String()))
	}
}

// NewCancelOrderHandler cancels any non-terminal order on the operator's
// behalf. Usage: /cancelorder 42.
func NewCancelOrderHandler(orders *order.Service, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil {
			return nil
		}

		fields := strings.Fields(c.Text())
		if len(fields) != 2 {
			return c.Send("Usage: /cancelorder 42")
		}

		orderID, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return c.Send("The order id must be a number.")
		}

		cancelled, err := orders.AdminCancel(context.Background(), orderID)
		if err != nil {
			return err
		}

		log.Info("order cancelled by admin", slog.Int64("order_id", cancelled.ID))

		return c.Send(fmt.Sprintf("Order #%d cancelled.", cancelled.ID))
	}
}

type vendorDecision struct {
	vendor *domain.Vendor
	label  string
}
