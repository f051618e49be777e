package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/asbolsyn/asbolsyn-bot/internal/clock"
	"github.com/asbolsyn/asbolsyn-bot/internal/earnings"
	apperrors "github.com/asbolsyn/asbolsyn-bot/internal/errors"
	"github.com/asbolsyn/asbolsyn-bot/internal/vendor"
)

// NewEarningsHandler shows the vendor's current-month summary and any unpaid
// periods.
func NewEarningsHandler(ledger *earnings.Service, vendors *vendor.Service, clk clock.Clock, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()

		v, err := vendors.GetByTelegramID(ctx, c.Sender().ID)
		if err != nil {
			return err
		}

		now := clk.Now().In(clk.Location())

		summary, err := ledger.MonthlySummary(ctx, v.ID, now.Year(), int(now.Month()))
		if err != nil {
			return err
		}

		var b strings.Builder
		fmt.Fprintf(&b, "📊 %s\n", monthLabel(summary.PeriodYear, summary.PeriodMonth))
		fmt.Fprintf(&b, "Orders: %d\n", summary.Orders)
		fmt.Fprintf(&b, "Gross: %s\n", formatMoney(summary.TotalGross))
		fmt.Fprintf(&b, "Commission: %s\n", formatMoney(summary.TotalCommission))
		fmt.Fprintf(&b, "Net: %s\n", formatMoney(summary.TotalNet))

		periods, total, err := ledger.UnpaidEarnings(ctx, v.ID)
		if err != nil {
			return err
		}

		if len(periods) > 0 {
			fmt.Fprintf(&b, "\nAwaiting payout (%s total):\n", formatMoney(total))
			for _, p := range periods {
				fmt.Fprintf(&b, "• %s — %s (%d orders)\n",
					monthLabel(p.Year, p.Month), formatMoney(p.TotalNet), p.Orders)
			}
			b.WriteString("\nRequest a payout with /payout.")
		}

		return c.Send(b.String())
	}
}

// NewPayoutHandler files payout requests for every unpaid period.
func NewPayoutHandler(ledger *earnings.Service, vendors *vendor.Service, notifier *Notifier, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()

		v, err := vendors.GetByTelegramID(ctx, c.Sender().ID)
		if err != nil {
			return err
		}

		periods, _, err := ledger.UnpaidEarnings(ctx, v.ID)
		if err != nil {
			return err
		}

		if len(periods) == 0 {
			return c.Send("Nothing to pay out yet. Earnings appear once orders are paid.")
		}

		var requested []string
		for _, p := range periods {
			payout, err := ledger.RequestPayout(ctx, v.ID, p.Year, p.Month)
			if err != nil {
				if apperrors.HasCode(err, apperrors.CodeNothingToPayout) {
					continue
				}
				return err
			}

			notifier.PayoutRequested(v.Name, payout)
			requested = append(requested, fmt.Sprintf("%s — %s",
				monthLabel(payout.PeriodYear, payout.PeriodMonth), formatMoney(payout.Amount)))
		}

		if len(requested) == 0 {
			return c.Send("Nothing to pay out yet.")
		}

		return c.Send("💸 Payout requested:\n" + strings.Join(requested, "\n") +
			"\n\nWe will notify you once it is transferred.")
	}
}
