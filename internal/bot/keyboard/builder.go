package keyboard

import (
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"
)

// Builder creates inline keyboards for the marketplace flows.
type Builder struct {
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(log *slog.Logger) *Builder {
	return &Builder{log: log}
}

// MainMenu builds the idle state menu.
func (b *Builder) MainMenu() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	markup.InlineKeyboard = [][]telebot.InlineButton{
		{
			{
				Text: "Browse meals 🍱",
				Data: "browse_page:1",
			},
			{
				Text: "Nearby 📍",
				Data: "nearby",
			},
		},
		{
			{
				Text: "My orders 🧾",
				Data: "myorders",
			},
		},
	}
	return markup
}

// QuantityButtons builds quick quantity selection buttons for the buy flow.
func (b *Builder) QuantityButtons(max int) *telebot.ReplyMarkup {
	if max > 5 {
		max = 5
	}
	if max < 1 {
		max = 1
	}

	row := make([]telebot.InlineButton, 0, max)
	for qty := 1; qty <= max; qty++ {
		value := strconv.Itoa(qty)
		row = append(row, telebot.InlineButton{
			Text: value,
			Data: "qty_" + value,
		})
	}

	markup := &telebot.ReplyMarkup{}
	markup.InlineKeyboard = [][]telebot.InlineButton{row}
	return markup
}

// ConfirmButtons builds confirmation buttons for the buy flow.
func (b *Builder) ConfirmButtons() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	markup.InlineKeyboard = [][]telebot.InlineButton{
		{
			{
				Text: "Confirm ✅",
				Data: "buy_confirm",
			},
			{
				Text: "Cancel ❌",
				Data: "buy_cancel",
			},
		},
	}
	return markup
}

// CancelButton builds a single cancel button.
func (b *Builder) CancelButton() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	markup.InlineKeyboard = [][]telebot.InlineButton{
		{
			{
				Text: "Cancel ❌",
				Data: "cancel",
			},
		},
	}
	return markup
}

// LocationRequest builds a reply keyboard asking the user to share a location.
func (b *Builder) LocationRequest() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
	markup.Reply(markup.Row(markup.Location("Share location 📍")))
	return markup
}
