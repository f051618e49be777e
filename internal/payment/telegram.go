package payment

import (
	"context"
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
	apperrors "github.com/asbolsyn/asbolsyn-bot/internal/errors"
	"github.com/asbolsyn/asbolsyn-bot/pkg/metrics"
)

// TelegramAdapter wires Telegram's native payments (pre-checkout queries and
// successful-payment updates) into the order confirmation path. The invoice
// payload carries the order id.
type TelegramAdapter struct {
	orders OrderConfirmer
	log    *slog.Logger
}

// NewTelegramAdapter constructs a TelegramAdapter.
func NewTelegramAdapter(orders OrderConfirmer, log *slog.Logger) *TelegramAdapter {
	if log == nil {
		log = slog.Default()
	}

	return &TelegramAdapter{orders: orders, log: log}
}

// HandlePreCheckout answers Telegram's last-moment payability check. Telegram
// requires an answer within ten seconds or the payment fails.
func (a *TelegramAdapter) HandlePreCheckout(c telebot.Context) error {
	query := c.PreCheckoutQuery()
	if query == nil {
		return nil
	}

	orderID, err := strconv.ParseInt(query.Payload, 10, 64)
	if err != nil {
		return c.Accept("order reference is invalid")
	}

	order, err := a.orders.Get(context.Background(), orderID)
	if err != nil {
		a.log.Warn("pre-checkout for unknown order",
			slog.String("payload", query.Payload),
			slog.Any("error", err),
		)
		return c.Accept("order not found")
	}

	if order.Status != domain.OrderPending {
		return c.Accept("order is no longer payable")
	}

	return c.Accept()
}

// HandlePayment confirms the order referenced by a successful payment update.
func (a *TelegramAdapter) HandlePayment(c telebot.Context) error {
	message := c.Message()
	if message == nil || message.Payment == nil {
		return nil
	}

	pay := message.Payment

	orderID, err := strconv.ParseInt(pay.Payload, 10, 64)
	if err != nil {
		a.log.Error("successful payment with unparsable payload",
			slog.String("payload", pay.Payload),
		)
		metrics.RecordPayment("telegram", "bad_payload")
		return nil
	}

	_, err = a.orders.ConfirmPayment(context.Background(), orderID, pay.TelegramChargeID)
	switch {
	case err == nil:
		metrics.RecordPayment("telegram", "confirmed")
		return nil
	case apperrors.HasCode(err, apperrors.CodeAlreadyProcessed):
		metrics.RecordPayment("telegram", "duplicate")
		return nil
	default:
		// The charge already went through on Telegram's side; surface the
		// failure loudly so support can reconcile it.
		a.log.Error("failed to confirm telegram payment",
			slog.Int64("order_id", orderID),
			slog.String("charge_id", pay.TelegramChargeID),
			slog.Any("error", err),
		)
		metrics.RecordPayment("telegram", "error")
		return err
	}
}
