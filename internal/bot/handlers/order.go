package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/asbolsyn/asbolsyn-bot/internal/bot/keyboard"
	"github.com/asbolsyn/asbolsyn-bot/internal/catalog"
	"github.com/asbolsyn/asbolsyn-bot/internal/clock"
	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
	apperrors "github.com/asbolsyn/asbolsyn-bot/internal/errors"
	"github.com/asbolsyn/asbolsyn-bot/internal/order"
	"github.com/asbolsyn/asbolsyn-bot/internal/state"
	"github.com/asbolsyn/asbolsyn-bot/internal/vendor"
)

// HandleMealBuy starts the purchase flow for a listing.
func HandleMealBuy(meals *catalog.Service, fsm state.StateMachine, kb *keyboard.Builder, clk clock.Clock, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil || c.Callback() == nil {
			return nil
		}

		listingID, ok := callbackID(c.Callback().Data, "meal_buy:")
		if !ok {
			return nil
		}

		ctx := context.Background()

		listing, err := meals.Get(ctx, listingID)
		if err != nil {
			return err
		}
		if !listing.Purchasable(clk.Now()) {
			return c.Send("This meal is no longer available.")
		}

		data := map[string]interface{}{"listing_id": strconv.FormatInt(listingID, 10)}
		if err := fsm.SetState(ctx, c.Sender().ID, state.StateBuyQuantity, data); err != nil {
			return err
		}

		prompt := fmt.Sprintf("How many portions of %s? (%d left)", listing.Name, listing.RemainingQuantity)
		if kb != nil {
			return c.Send(prompt, kb.QuantityButtons(listing.RemainingQuantity))
		}

		return c.Send(prompt)
	}
}

// NewBuyQuantityHandler reads the portion count typed as text.
func NewBuyQuantityHandler(meals *catalog.Service, fsm state.StateMachine, kb *keyboard.Builder, clk clock.Clock, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		qty, err := strconv.Atoi(strings.TrimSpace(c.Text()))
		if err != nil || qty < 1 {
			return c.Send("Send the number of portions as a whole number, at least 1.")
		}

		return confirmQuantity(c, meals, fsm, kb, clk, qty, log)
	}
}

// HandleBuyQuantity reads the portion count from a quick quantity button.
func HandleBuyQuantity(meals *catalog.Service, fsm state.StateMachine, kb *keyboard.Builder, clk clock.Clock, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil || c.Callback() == nil {
			return nil
		}

		suffix, ok := strings.CutPrefix(strings.TrimSpace(c.Callback().Data), "qty_")
		if !ok {
			return nil
		}

		qty, err := strconv.Atoi(suffix)
		if err != nil || qty < 1 {
			return nil
		}

		return confirmQuantity(c, meals, fsm, kb, clk, qty, log)
	}
}

func confirmQuantity(c telebot.Context, meals *catalog.Service, fsm state.StateMachine, kb *keyboard.Builder, clk clock.Clock, qty int, log *slog.Logger) error {
	ctx := context.Background()
	telegramID := c.Sender().ID

	us, err := fsm.GetState(ctx, telegramID)
	if err != nil {
		return err
	}
	if us == nil || us.CurrentState != state.StateBuyQuantity {
		return nil
	}

	listingID := ctxInt64(us, "listing_id")
	if listingID == 0 {
		_ = fsm.ClearState(ctx, telegramID)
		return c.Send("Something went wrong, please pick the meal again.")
	}

	listing, err := meals.Get(ctx, listingID)
	if err != nil {
		return err
	}
	if !listing.Purchasable(clk.Now()) {
		_ = fsm.ClearState(ctx, telegramID)
		return c.Send("This meal is no longer available.")
	}
	if qty > listing.RemainingQuantity {
		return c.Send(fmt.Sprintf("Only %d portions left. Pick a smaller amount.", listing.RemainingQuantity))
	}

	data := map[string]interface{}{
		"listing_id": strconv.FormatInt(listingID, 10),
		"quantity":   strconv.Itoa(qty),
	}
	if err := fsm.SetState(ctx, telegramID, state.StateBuyConfirm, data); err != nil {
		return err
	}

	total := listing.Price.Mul(decimalFromInt(qty))
	summary := fmt.Sprintf("%d× %s for %s.\nPickup: %s, %s\n\nConfirm the order?",
		qty, listing.Name, formatMoney(total),
		formatPickupWindow(listing, clk.Location()), listing.Address,
	)

	if kb != nil {
		return c.Send(summary, kb.ConfirmButtons())
	}

	return c.Send(summary)
}

// HandleBuyConfirm places the order and starts payment.
func HandleBuyConfirm(orders *order.Service, vendors *vendor.Service, fsm state.StateMachine, payments *PaymentStarter, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil || c.Callback() == nil {
			return nil
		}

		ctx := context.Background()
		telegramID := c.Sender().ID

		us, err := fsm.GetState(ctx, telegramID)
		if err != nil {
			return err
		}
		if us == nil || us.CurrentState != state.StateBuyConfirm {
			return nil
		}

		listingID := ctxInt64(us, "listing_id")
		qty64 := ctxInt64(us, "quantity")
		if listingID == 0 || qty64 == 0 {
			_ = fsm.ClearState(ctx, telegramID)
			return c.Send("Something went wrong, please pick the meal again.")
		}

		consumer, err := vendors.GetOrCreateConsumer(ctx, telegramID)
		if err != nil {
			return err
		}

		placed, err := orders.Create(ctx, consumer.ID, listingID, int(qty64))
		if err != nil {
			return err
		}

		if err := fsm.ClearState(ctx, telegramID); err != nil {
			log.Warn("failed to clear state after order", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		}

		return payments.Start(c, placed)
	}
}

// HandleBuyCancel abandons the purchase flow.
func HandleBuyCancel(fsm state.StateMachine, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		if err := fsm.ClearState(ctx, c.Sender().ID); err != nil {
			log.Warn("failed to clear state on buy cancel", slog.Any("error", err))
		}

		return c.Send("Order cancelled. Browse more meals with /browse.")
	}
}

// NewMyOrdersHandler lists the consumer's orders with pay and cancel buttons.
func NewMyOrdersHandler(orders *order.Service, vendors *vendor.Service, meals *catalog.Service, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()

		consumer, err := vendors.GetOrCreateConsumer(ctx, c.Sender().ID)
		if err != nil {
			return err
		}

		list, err := orders.ListByConsumer(ctx, consumer.ID)
		if err != nil {
			return err
		}

		if len(list) == 0 {
			return c.Send("You have no orders yet. Find a meal with /browse.")
		}

		for _, o := range list {
			name := fmt.Sprintf("listing #%d", o.ListingID)
			if listing, lerr := meals.Get(ctx, o.ListingID); lerr == nil {
				name = listing.Name
			}

			text := fmt.Sprintf("Order #%d — %d× %s, %s\n%s",
				o.ID, o.Quantity, name, formatMoney(o.Total()), orderStatusLabel(o.Status))

			var rows [][]telebot.InlineButton
			if o.Status == domain.OrderPending {
				rows = append(rows, []telebot.InlineButton{
					{Text: "Pay 💳", Data: fmt.Sprintf("order_pay:%d", o.ID)},
				})
			}
			if !o.Status.Terminal() {
				rows = append(rows, []telebot.InlineButton{
					{Text: "Cancel ❌", Data: fmt.Sprintf("order_cancel:%d", o.ID)},
				})
			}

			if len(rows) > 0 {
				if err := c.Send(text, &telebot.ReplyMarkup{InlineKeyboard: rows}); err != nil {
					return err
				}
				continue
			}
			if err := c.Send(text); err != nil {
				return err
			}
		}

		return nil
	}
}

// HandleOrderPay restarts payment for a pending order.
func HandleOrderPay(orders *order.Service, vendors *vendor.Service, payments *PaymentStarter, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil || c.Callback() == nil {
			return nil
		}

		orderID, ok := callbackID(c.Callback().Data, "order_pay:")
		if !ok {
			return nil
		}

		ctx := context.Background()

		consumer, err := vendors.GetOrCreateConsumer(ctx, c.Sender().ID)
		if err != nil {
			return err
		}

		o, err := orders.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if o.ConsumerID != consumer.ID {
			return apperrors.NewForbidden("order belongs to another account")
		}
		if o.Status != domain.OrderPending {
			return c.Send("This order is not awaiting payment.")
		}

		return payments.Start(c, o)
	}
}

// HandleOrderCancel cancels the consumer's own order.
func HandleOrderCancel(orders *order.Service, vendors *vendor.Service, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil || c.Callback() == nil {
			return nil
		}

		orderID, ok := callbackID(c.Callback().Data, "order_cancel:")
		if !ok {
			return nil
		}

		ctx := context.Background()

		consumer, err := vendors.GetOrCreateConsumer(ctx, c.Sender().ID)
		if err != nil {
			return err
		}

		if _, err := orders.Cancel(ctx, orderID, consumer.ID); err != nil {
			return err
		}

		return c.Send(fmt.Sprintf("Order #%d cancelled.", orderID))
	}
}

// NewSalesHandler shows the vendor's paid orders awaiting handover.
func NewSalesHandler(orders *order.Service, vendors *vendor.Service, meals *catalog.Service, log *slog.Logger) Handler {
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

		list, err := orders.ListPaidByVendor(ctx, v.ID)
		if err != nil {
			return err
		}

		if len(list) == 0 {
			return c.Send("No paid orders waiting for pickup.")
		}

		for _, o := range list {
			name := fmt.Sprintf("listing #%d", o.ListingID)
			if listing, lerr := meals.Get(ctx, o.ListingID); lerr == nil {
				name = listing.Name
			}

			text := fmt.Sprintf("Order #%d — %d× %s, %s", o.ID, o.Quantity, name, formatMoney(o.Total()))
			markup := &telebot.ReplyMarkup{InlineKeyboard: [][]telebot.InlineButton{{
				{Text: "Handed over ✅", Data: fmt.Sprintf("order_complete:%d", o.ID)},
			}}}

			if err := c.Send(text, markup); err != nil {
				return err
			}
		}

		return nil
	}
}

// HandleOrderComplete marks a paid order as handed over to the buyer.
func HandleOrderComplete(orders *order.Service, vendors *vendor.Service, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil || c.Callback() == nil {
			return nil
		}

		orderID, ok := callbackID(c.Callback().Data, "order_complete:")
		if !ok {
			return nil
		}

		ctx := context.Background()

		v, err := vendors.GetByTelegramID(ctx, c.Sender().ID)
		if err != nil {
			return err
		}

		if _, err := orders.Complete(ctx, orderID, v.ID); err != nil {
			return err
		}

		return c.Send(fmt.Sprintf("Order #%d completed.", orderID))
	}
}
