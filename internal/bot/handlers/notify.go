package handlers

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
)

// Notifier pushes out-of-band messages: admin alerts for events that need a
// decision, and decision outcomes back to the affected vendor.
type Notifier struct {
	bot         *telebot.Bot
	adminChatID int64
	log         *slog.Logger
}

// NewNotifier builds a Notifier. A zero adminChatID disables admin alerts.
func NewNotifier(bot *telebot.Bot, adminChatID int64, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}

	return &Notifier{bot: bot, adminChatID: adminChatID, log: log}
}

// VendorRegistered alerts the admin chat about a new pending vendor.
func (n *Notifier) VendorRegistered(vendor *domain.Vendor) {
	n.toAdmin(fmt.Sprintf(
		"🆕 Vendor registration\n%s (%s)\nApprove with /pending",
		vendor.Name, vendor.ContactPhone,
	))
}

// PayoutRequested alerts the admin chat about a new payout request.
func (n *Notifier) PayoutRequested(vendorName string, payout *domain.PayoutRequest) {
	n.toAdmin(fmt.Sprintf(
		"💸 Payout requested\n%s — %s for %s\nReview with /payouts",
		vendorName, formatMoney(payout.Amount), monthLabel(payout.PeriodYear, payout.PeriodMonth),
	))
}

// VendorDecision tells a vendor the outcome of the approval review.
func (n *Notifier) VendorDecision(vendor *domain.Vendor) {
	text := "🎉 Your vendor account was approved! Post your first meal with /addmeal."
	if vendor.Status == domain.VendorRejected {
		text = "Unfortunately your vendor application was not approved."
	}

	n.toUser(vendor.TelegramID, text)
}

// OrderPaid tells the vendor a portion of their listing was sold.
func (n *Notifier) OrderPaid(vendorTelegramID int64, listingName string, order *domain.Order) {
	n.toUser(vendorTelegramID, fmt.Sprintf(
		"💰 New sale: %d× %s for %s. See /sales.",
		order.Quantity, listingName, formatMoney(order.Total()),
	))
}

func (n *Notifier) toAdmin(text string) {
	if n == nil || n.bot == nil || n.adminChatID == 0 {
		return
	}

	if _, err := n.bot.Send(&telebot.Chat{ID: n.adminChatID}, text); err != nil {
		n.log.Warn("admin notification failed", slog.Any("error", err))
	}
}

func (n *Notifier) toUser(telegramID int64, text string) {
	if n == nil || n.bot == nil || telegramID == 0 {
		return
	}

	if _, err := n.bot.Send(&telebot.User{ID: telegramID}, text); err != nil {
		n.log.Warn("user notification failed", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
	}
}
