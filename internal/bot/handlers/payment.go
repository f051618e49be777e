package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"
	telebot "gopkg.in/telebot.v3"

	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
	apperrors "github.com/asbolsyn/asbolsyn-bot/internal/errors"
	"github.com/asbolsyn/asbolsyn-bot/internal/order"
	"github.com/asbolsyn/asbolsyn-bot/internal/payment"
)

// PaymentStarter picks the checkout channel for a freshly placed order:
// native Telegram invoices when a provider token is configured, a hosted
// payment link when the gateway is enabled, and immediate pay-on-pickup
// confirmation otherwise (local development).
type PaymentStarter struct {
	gateway       *payment.Gateway
	orders        *order.Service
	providerToken string
	currency      string
	log           *slog.Logger
}

// NewPaymentStarter builds a PaymentStarter.
func NewPaymentStarter(gateway *payment.Gateway, orders *order.Service, providerToken, currency string, log *slog.Logger) *PaymentStarter {
	if log == nil {
		log = slog.Default()
	}
	if currency == "" {
		currency = "KZT"
	}

	return &PaymentStarter{
		gateway:       gateway,
		orders:        orders,
		providerToken: providerToken,
		currency:      currency,
		log:           log,
	}
}

// Start initiates payment for the order and tells the buyer what to do next.
func (p *PaymentStarter) Start(c telebot.Context, o *domain.Order) error {
	switch {
	case p.providerToken != "":
		return p.sendInvoice(c, o)
	case p.gateway != nil && p.gateway.Enabled():
		return p.sendPaymentLink(c, o)
	default:
		return p.confirmDirectly(c, o)
	}
}

func (p *PaymentStarter) sendInvoice(c telebot.Context, o *domain.Order) error {
	// Telegram expects amounts in the currency's minor units.
	total := int(o.Total().Mul(decimal.NewFromInt(100)).IntPart())

	invoice := &telebot.Invoice{
		Title:       fmt.Sprintf("Order #%d", o.ID),
		Description: fmt.Sprintf("%d portion(s), pickup required", o.Quantity),
		Payload:     strconv.FormatInt(o.ID, 10),
		Currency:    p.currency,
		Token:       p.providerToken,
		Prices: []telebot.Price{
			{Label: "Meal", Amount: total},
		},
	}

	return c.Send(invoice)
}

func (p *PaymentStarter) sendPaymentLink(c telebot.Context, o *domain.Order) error {
	ctx := context.Background()

	var paymentURL string
	err := apperrors.WithRetry(ctx, func() error {
		var err error
		_, paymentURL, err = p.gateway.CreatePayment(ctx, o.ID, o.Total(),
			fmt.Sprintf("Order #%d", o.ID))
		return err
	})
	if err != nil {
		return err
	}

	markup := &telebot.ReplyMarkup{InlineKeyboard: [][]telebot.InlineButton{{
		{Text: fmt.Sprintf("Pay %s 💳", formatMoney(o.Total())), URL: paymentURL},
	}}}

	return c.Send(fmt.Sprintf(
		"Order #%d placed. Pay %s to reserve your portions — they are only held once payment completes.",
		o.ID, formatMoney(o.Total()),
	), markup)
}

func (p *PaymentStarter) confirmDirectly(c telebot.Context, o *domain.Order) error {
	p.log.Warn("no payment channel configured, confirming order directly",
		slog.Int64("order_id", o.ID))

	ctx := context.Background()

	confirmed, err := p.orders.ConfirmPayment(ctx, o.ID, o.PaymentRef)
	if err != nil {
		return err
	}

	return c.Send(fmt.Sprintf(
		"Order #%d confirmed — pay %s at pickup. See /myorders.",
		confirmed.ID, formatMoney(confirmed.Total()),
	))
}
