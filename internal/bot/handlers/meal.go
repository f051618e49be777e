package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	telebot "gopkg.in/telebot.v3"

	"github.com/asbolsyn/asbolsyn-bot/internal/clock"
	"github.com/asbolsyn/asbolsyn-bot/internal/state"
	"github.com/asbolsyn/asbolsyn-bot/internal/vendor"
)

// NewAddMealHandler starts the meal posting flow for approved vendors.
func NewAddMealHandler(vendors *vendor.Service, fsm state.StateMachine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		telegramID := c.Sender().ID

		v, err := vendors.GetByTelegramID(ctx, telegramID)
		if err != nil {
			return err
		}
		if !v.IsApproved() {
			return c.Send("Your vendor account is not approved yet, so you cannot post meals.")
		}

		if err := fsm.SetState(ctx, telegramID, state.StateMealName, nil); err != nil {
			return err
		}

		return c.Send("What is the meal called?")
	}
}

// NewMealNameHandler captures the meal name.
func NewMealNameHandler(fsm state.StateMachine, log *slog.Logger) Handler {
	return textStepHandler(fsm, "meal_name", state.StateMealDescription,
		"Please send the meal name as text.",
		"Add a short description.", log)
}

// NewMealDescriptionHandler captures the description.
func NewMealDescriptionHandler(fsm state.StateMachine, log *slog.Logger) Handler {
	return textStepHandler(fsm, "meal_desc", state.StateMealPrice,
		"Please send a description as text.",
		"What is the price per portion, in tenge?", log)
}

// NewMealPriceHandler captures and validates the price.
func NewMealPriceHandler(fsm state.StateMachine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		price, err := decimal.NewFromString(normalizeNumber(c.Text()))
		if err != nil || !price.IsPositive() {
			return c.Send("Send the price as a positive number, for example 1500.")
		}

		return advance(c, fsm, "meal_price", price.StringFixed(2), state.StateMealQuantity,
			"How many portions are available?")
	}
}

// NewMealQuantityHandler captures the portion count.
func NewMealQuantityHandler(fsm state.StateMachine, log *slog.Logger) Handler {
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

		return advance(c, fsm, "meal_qty", strconv.Itoa(qty), state.StateMealPickupStart,
			"When does pickup start? Send a time like 18:00.")
	}
}

// NewMealPickupStartHandler captures the pickup window start.
func NewMealPickupStartHandler(fsm state.StateMachine, clk clock.Clock, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		start, err := parsePickupTime(c.Text(), clk)
		if err != nil {
			return c.Send("Send the start time like 18:00.")
		}

		return advance(c, fsm, "meal_start", start.Format(time.RFC3339), state.StateMealPickupEnd,
			"And when does pickup end?")
	}
}

// NewMealPickupEndHandler captures the pickup window end.
func NewMealPickupEndHandler(fsm state.StateMachine, clk clock.Clock, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		end, err := parsePickupTime(c.Text(), clk)
		if err != nil {
			return c.Send("Send the end time like 21:00.")
		}

		return advance(c, fsm, "meal_end", end.Format(time.RFC3339), state.StateMealAddress,
			"What is the pickup address?")
	}
}

// NewMealAddressHandler captures the address and asks for coordinates.
func NewMealAddressHandler(fsm state.StateMachine, log *slog.Logger) Handler {
	return textStepHandler(fsm, "meal_addr", state.StateMealCoords,
		"Please send the pickup address as text.",
		"Share the pickup location, or send \"skip\".", log)
}

// NewMealCoordsHandler finishes the flow with optional coordinates.
func NewMealCoordsHandler(vendors *vendor.Service, fsm state.StateMachine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		var lat, lon *float64
		if msg := c.Message(); msg != nil && msg.Location != nil {
			la := float64(msg.Location.Lat)
			lo := float64(msg.Location.Lng)
			lat, lon = &la, &lo
		} else if !strings.EqualFold(strings.TrimSpace(c.Text()), "skip") {
			return c.Send("Share a location, or send \"skip\" to post without coordinates.")
		}

		ctx := context.Background()
		telegramID := c.Sender().ID

		us, err := fsm.GetState(ctx, telegramID)
		if err != nil {
			return err
		}

		input, err := listingInputFromState(us, lat, lon)
		if err != nil {
			_ = fsm.ClearState(ctx, telegramID)
			return c.Send("Something went wrong, please start again with /addmeal.")
		}

		listing, err := vendors.CreateListing(ctx, telegramID, input)
		if err != nil {
			return err
		}

		if err := fsm.ClearState(ctx, telegramID); err != nil {
			log.Warn("failed to clear state after posting meal", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		}

		return c.Send(fmt.Sprintf(
			"🍱 %s is live: %d portions at %s each. Buyers will find it in /browse.",
			listing.Name, listing.RemainingQuantity, formatMoney(listing.Price),
		))
	}
}

// NewMyMealsHandler lists the vendor's listings with deactivate buttons.
func NewMyMealsHandler(vendors *vendor.Service, loc *time.Location, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		telegramID := c.Sender().ID

		v, err := vendors.GetByTelegramID(ctx, telegramID)
		if err != nil {
			return err
		}

		listings, err := vendors.ListListings(ctx, v.ID)
		if err != nil {
			return err
		}

		if len(listings) == 0 {
			return c.Send("You have no listings yet. Post one with /addmeal.")
		}

		for _, l := range listings {
			text := formatListingDetail(l, loc)
			if !l.Active {
				text += "\n\n(inactive)"
				if err := c.Send(text); err != nil {
					return err
				}
				continue
			}

			markup := &telebot.ReplyMarkup{InlineKeyboard: [][]telebot.InlineButton{{
				{Text: "Take down ❌", Data: fmt.Sprintf("meal_off:%d", l.ID)},
			}}}
			if err := c.Send(text, markup); err != nil {
				return err
			}
		}

		return nil
	}
}

// HandleMealOff deactivates one of the vendor's own listings.
func HandleMealOff(vendors *vendor.Service, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil || c.Callback() == nil {
			return nil
		}

		listingID, ok := callbackID(c.Callback().Data, "meal_off:")
		if !ok {
			return nil
		}

		ctx := context.Background()
		if err := vendors.DeactivateListing(ctx, c.Sender().ID, listingID); err != nil {
			return err
		}

		if err := c.Respond(&telebot.CallbackResponse{Text: "Listing taken down"}); err != nil {
			log.Warn("callback respond failed", slog.Any("error", err))
		}

		return c.Send("The listing is no longer visible to buyers.")
	}
}

func textStepHandler(fsm state.StateMachine, key string, next state.State, retry, prompt string, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		value := strings.TrimSpace(c.Text())
		if value == "" {
			return c.Send(retry)
		}

		return advance(c, fsm, key, value, next, prompt)
	}
}

// advance merges one collected value into the FSM context and moves to the
// next step.
func advance(c telebot.Context, fsm state.StateMachine, key, value string, next state.State, prompt string) error {
	ctx := context.Background()
	telegramID := c.Sender().ID

	data := map[string]interface{}{}
	if us, err := fsm.GetState(ctx, telegramID); err == nil && us != nil {
		for k, v := range us.Context {
			data[k] = v
		}
	}
	data[key] = value

	if err := fsm.SetState(ctx, telegramID, next, data); err != nil {
		return err
	}

	return c.Send(prompt)
}

func listingInputFromState(us *state.UserState, lat, lon *float64) (vendor.ListingInput, error) {
	price, err := decimal.NewFromString(ctxString(us, "meal_price"))
	if err != nil {
		return vendor.ListingInput{}, fmt.Errorf("parse price: %w", err)
	}

	qty, err := strconv.Atoi(ctxString(us, "meal_qty"))
	if err != nil {
		return vendor.ListingInput{}, fmt.Errorf("parse quantity: %w", err)
	}

	start, err := time.Parse(time.RFC3339, ctxString(us, "meal_start"))
	if err != nil {
		return vendor.ListingInput{}, fmt.Errorf("parse pickup start: %w", err)
	}

	end, err := time.Parse(time.RFC3339, ctxString(us, "meal_end"))
	if err != nil {
		return vendor.ListingInput{}, fmt.Errorf("parse pickup end: %w", err)
	}

	return vendor.ListingInput{
		Name:        ctxString(us, "meal_name"),
		Description: ctxString(us, "meal_desc"),
		Price:       price,
		Quantity:    qty,
		PickupStart: start,
		PickupEnd:   end,
		Address:     ctxString(us, "meal_addr"),
		Latitude:    lat,
		Longitude:   lon,
	}, nil
}

// parsePickupTime reads an HH:MM entry as the next occurrence of that wall
// time in the marketplace zone.
func parsePickupTime(text string, clk clock.Clock) (time.Time, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(text))
	if err != nil {
		return time.Time{}, err
	}

	now := clk.Now().In(clk.Location())
	candidate := time.Date(now.Year(), now.Month(), now.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, clk.Location())
	if candidate.Before(now) {
		candidate = candidate.Add(24 * time.Hour)
	}

	return candidate, nil
}

func normalizeNumber(text string) string {
	return strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
}
