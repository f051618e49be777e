package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
	apperrors "github.com/asbolsyn/asbolsyn-bot/internal/errors"
	"github.com/asbolsyn/asbolsyn-bot/internal/state"
	"github.com/asbolsyn/asbolsyn-bot/internal/vendor"
)

// NewRegisterHandler starts the vendor registration flow.
func NewRegisterHandler(vendors *vendor.Service, fsm state.StateMachine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		ctx := context.Background()
		telegramID := c.Sender().ID

		existing, err := vendors.GetByTelegramID(ctx, telegramID)
		if err == nil {
			switch existing.Status {
			case domain.VendorApproved:
				return c.Send("You are already an approved vendor. Post a meal with /addmeal.")
			case domain.VendorRejected:
				return c.Send("Your previous application was rejected. Contact support to appeal.")
			default:
				return c.Send("Your application is still under review. We will notify you.")
			}
		}
		if !apperrors.HasCode(err, apperrors.CodeNotFound) {
			return err
		}

		if err := fsm.SetState(ctx, telegramID, state.StateVendorName, nil); err != nil {
			return err
		}

		return c.Send("Let's set up your vendor profile. What is your business name?")
	}
}

// NewVendorNameHandler captures the business name and asks for a phone.
func NewVendorNameHandler(fsm state.StateMachine, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		name := strings.TrimSpace(c.Text())
		if name == "" {
			return c.Send("Please send your business name as text.")
		}

		ctx := context.Background()
		telegramID := c.Sender().ID

		data := map[string]interface{}{"vendor_name": name}
		if err := fsm.SetState(ctx, telegramID, state.StateVendorPhone, data); err != nil {
			return err
		}

		return c.Send("Got it. Now send a contact phone number.")
	}
}

// NewVendorPhoneHandler finishes registration with the contact phone.
func NewVendorPhoneHandler(vendors *vendor.Service, fsm state.StateMachine, notifier *Notifier, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		phone := strings.TrimSpace(c.Text())
		if msg := c.Message(); msg != nil && msg.Contact != nil {
			phone = msg.Contact.PhoneNumber
		}
		if phone == "" {
			return c.Send("Please send a phone number.")
		}

		ctx := context.Background()
		telegramID := c.Sender().ID

		us, err := fsm.GetState(ctx, telegramID)
		if err != nil {
			return err
		}

		name := ctxString(us, "vendor_name")
		if name == "" {
			_ = fsm.ClearState(ctx, telegramID)
			return c.Send("Something went wrong, please start again with /register.")
		}

		registered, err := vendors.Register(ctx, telegramID, name, phone)
		if err != nil {
			return err
		}

		if err := fsm.ClearState(ctx, telegramID); err != nil {
			log.Warn("failed to clear state after registration", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		}

		notifier.VendorRegistered(registered)

		return c.Send(fmt.Sprintf(
			"Thanks, %s! Your application is submitted and awaiting review. We will notify you once it is approved.",
			registered.Name,
		))
	}
}
