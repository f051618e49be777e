package handlers

import (
	"context"
	"errors"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/asbolsyn/asbolsyn-bot/internal/bot/keyboard"
	"github.com/asbolsyn/asbolsyn-bot/internal/state"
)

const helpText = `🍽 Asbolsyn — leftover meals at a discount

Buying:
/browse — see available meals
/nearby — meals close to you
/myorders — your orders

Selling:
/register — become a vendor
/addmeal — post a meal
/mymeals — your listings
/sales — paid orders to hand out
/earnings — monthly earnings
/payout — request a payout

/cancel — abort the current flow`

// NewStartHandler greets the user and resets them to the idle state.
func NewStartHandler(fsm state.StateMachine, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			log.Warn("start handler invoked without sender")
			return nil
		}

		ctx := context.Background()
		userID := c.Sender().ID

		greeting := "Welcome to Asbolsyn! Surplus meals from local spots, at a discount."

		_, err := fsm.GetState(ctx, userID)
		switch {
		case err == nil:
			greeting = "Welcome back!"
		case errors.Is(err, state.ErrStateNotFound):
			if setErr := fsm.SetState(ctx, userID, state.StateIdle, nil); setErr != nil {
				log.Error("failed to set initial user state", slog.Int64("telegram_id", userID), slog.Any("error", setErr))
				return setErr
			}
		default:
			log.Error("failed to fetch user state", slog.Int64("telegram_id", userID), slog.Any("error", err))
			return err
		}

		if kb != nil {
			return c.Send(greeting, kb.MainMenu())
		}

		return c.Send(greeting)
	}
}

// NewHelpHandler lists the available commands.
func NewHelpHandler() Handler {
	return func(c telebot.Context) error {
		if c == nil {
			return nil
		}
		return c.Send(helpText)
	}
}
