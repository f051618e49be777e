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
	"github.com/asbolsyn/asbolsyn-bot/internal/geo"
	"github.com/asbolsyn/asbolsyn-bot/internal/i18n"
	"github.com/asbolsyn/asbolsyn-bot/internal/state"
)

const browsePageSize = 5

// NewBrowseHandler lists available meals, newest first, one page at a time.
func NewBrowseHandler(meals *catalog.Service, clk clock.Clock, t i18n.Translator, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil {
			return nil
		}

		page := 1
		if cb := c.Callback(); cb != nil {
			if _, after, found := strings.Cut(cb.Data, "browse_page:"); found {
				if parsed, err := strconv.Atoi(strings.TrimSpace(after)); err == nil && parsed > 0 {
					page = parsed
				}
			}
		}

		ctx := context.Background()

		listings, err := meals.ListAvailable(ctx, clk.Now())
		if err != nil {
			return err
		}

		if len(listings) == 0 {
			return c.Send("No meals available right now. Check back later!")
		}

		totalPages := (len(listings) + browsePageSize - 1) / browsePageSize
		if page > totalPages {
			page = totalPages
		}

		start := (page - 1) * browsePageSize
		end := start + browsePageSize
		if end > len(listings) {
			end = len(listings)
		}

		kb := keyboard.NewInlineKeyboard()
		var b strings.Builder
		b.WriteString("Available meals:\n\n")

		for i, l := range listings[start:end] {
			fmt.Fprintf(&b, "%d. %s\n", start+i+1, formatListingLine(l))
			kb.AddRow(keyboard.InlineButton{
				Text: fmt.Sprintf("%d. %s", start+i+1, l.Name),
				Data: fmt.Sprintf("meal_view:%d", l.ID),
			})
		}

		if totalPages > 1 {
			kb.AddRow(keyboard.PaginationButtons(t, "browse_page", page, totalPages)...)
		}

		markup := kb.Build(func(unique, data string) string {
			if unique == "" {
				return data
			}
			encoded, err := keyboard.EncodeCallback(unique, data)
			if err != nil {
				log.Warn("callback data too long", slog.Any("error", err))
				return unique
			}
			return encoded
		})

		return c.Send(b.String(), markup)
	}
}

// HandleMealView renders a listing detail with a buy button.
func HandleMealView(meals *catalog.Service, clk clock.Clock, log *slog.Logger) CallbackHandler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Callback() == nil {
			return nil
		}

		listingID, ok := callbackID(c.Callback().Data, "meal_view:")
		if !ok {
			return nil
		}

		ctx := context.Background()

		listing, err := meals.Get(ctx, listingID)
		if err != nil {
			return err
		}

		text := formatListingDetail(listing, clk.Location())
		if !listing.Purchasable(clk.Now()) {
			return c.Send(text + "\n\n⚠️ This meal is no longer available.")
		}

		markup := &telebot.ReplyMarkup{InlineKeyboard: [][]telebot.InlineButton{{
			{Text: "Buy 🛒", Data: fmt.Sprintf("meal_buy:%d", listing.ID)},
		}}}

		return c.Send(text, markup)
	}
}

// NewNearbyHandler asks the user to share a location.
func NewNearbyHandler(fsm state.StateMachine, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		if err := fsm.SetState(ctx, c.Sender().ID, state.StateNearbyLocation, nil); err != nil {
			return err
		}

		if kb != nil {
			return c.Send("Share your location and I will find meals close to you.", kb.LocationRequest())
		}

		return c.Send("Share your location and I will find meals close to you.")
	}
}

// NewNearbyLocationHandler resolves the shared location into a distance-sorted
// meal list.
func NewNearbyLocationHandler(meals *catalog.Service, fsm state.StateMachine, clk clock.Clock, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		msg := c.Message()
		if msg == nil || msg.Location == nil {
			return c.Send("Please use the button to share your location, or /cancel.")
		}

		ctx := context.Background()
		telegramID := c.Sender().ID

		origin := geo.Point{
			Latitude:  float64(msg.Location.Lat),
			Longitude: float64(msg.Location.Lng),
		}

		nearby, err := meals.ListNearby(ctx, clk.Now(), origin, 0)
		if err != nil {
			return err
		}

		if err := fsm.ClearState(ctx, telegramID); err != nil {
			log.Warn("failed to clear state after nearby search", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		}

		if len(nearby) == 0 {
			return c.Send("No meals near you right now. Try /browse for the full list.", &telebot.ReplyMarkup{RemoveKeyboard: true})
		}

		kb := keyboard.NewInlineKeyboard()
		var b strings.Builder
		b.WriteString("Meals near you:\n\n")

		for i, n := range nearby {
			fmt.Fprintf(&b, "%d. %s — %.1f km\n", i+1, formatListingLine(n.Listing), n.DistanceKm)
			kb.AddRow(keyboard.InlineButton{
				Text: fmt.Sprintf("%d. %s", i+1, n.Listing.Name),
				Data: fmt.Sprintf("meal_view:%d", n.Listing.ID),
			})
		}

		markup := kb.Build(nil)
		return c.Send(b.String(), markup)
	}
}
