package bot

import (
	"context"
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/asbolsyn/asbolsyn-bot/internal/bot/handlers"
	"github.com/asbolsyn/asbolsyn-bot/internal/bot/keyboard"
	"github.com/asbolsyn/asbolsyn-bot/internal/catalog"
	"github.com/asbolsyn/asbolsyn-bot/internal/clock"
	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
	"github.com/asbolsyn/asbolsyn-bot/internal/earnings"
	errors "github.com/asbolsyn/asbolsyn-bot/internal/errors"
	"github.com/asbolsyn/asbolsyn-bot/internal/i18n"
	"github.com/asbolsyn/asbolsyn-bot/internal/idempotency"
	"github.com/asbolsyn/asbolsyn-bot/internal/middleware"
	"github.com/asbolsyn/asbolsyn-bot/internal/order"
	"github.com/asbolsyn/asbolsyn-bot/internal/payment"
	"github.com/asbolsyn/asbolsyn-bot/internal/state"
	"github.com/asbolsyn/asbolsyn-bot/internal/vendor"
	"github.com/asbolsyn/asbolsyn-bot/pkg/config"
)

// Deps bundles everything the transport layer needs.
type Deps struct {
	FSM                state.StateMachine
	Vendors            *vendor.Service
	Catalog            *catalog.Service
	Orders             *order.Service
	Earnings           *earnings.Service
	PaymentGateway     *payment.Gateway
	Clock              clock.Clock
	Translator         i18n.Translator
	IdempotencyManager idempotency.Manager
	RateLimitMw        *middleware.RateLimitMiddleware
}

// Bot wraps telebot.Bot with application dependencies required for handling updates.
type Bot struct {
	telebot    *telebot.Bot
	log        *slog.Logger
	cfg        config.Config
	deps       Deps
	router     *Router
	dispatcher *Dispatcher
	keyboard   *keyboard.Builder
	notifier   *handlers.Notifier
	errHandler *errors.Handler
}

// New builds a telegram bot instance configured according to the application settings.
func New(cfg config.Config, log *slog.Logger, deps Deps) (*Bot, error) {
	settings := telebot.Settings{
		Token: cfg.Bot.Token,
	}

	if cfg.Bot.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{
			Listen: cfg.Server.Port,
		}
	} else {
		settings.Poller = &telebot.LongPoller{
			Timeout: cfg.Bot.Timeout,
		}
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	kb := keyboard.NewBuilder(log)
	dispatcher := NewDispatcher(deps.FSM, log)
	router := NewRouter(dispatcher, log)
	errHandler := errors.NewHandler(log, cfg.Sentry.Enabled)
	notifier := handlers.NewNotifier(tb, cfg.Bot.AdminChatID, log)

	b := &Bot{
		telebot:    tb,
		log:        log,
		cfg:        cfg,
		deps:       deps,
		router:     router,
		dispatcher: dispatcher,
		keyboard:   kb,
		notifier:   notifier,
		errHandler: errHandler,
	}

	b.setupRouter()
	b.setupStateHandlers()

	if deps.RateLimitMw != nil {
		b.telebot.Use(deps.RateLimitMw.Handle)
	}

	b.registerTelebotHandlers()

	return b, nil
}

// Start runs the telegram bot event loop.
func (b *Bot) Start() {
	if b.telebot != nil {
		b.telebot.Start()
	}
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	if b.telebot == nil {
		return
	}

	if b.log != nil {
		b.log.Info("stopping telegram bot...")
	}

	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

// Notifier exposes out-of-band messaging for non-bot entry points such as the
// payment webhook.
func (b *Bot) Notifier() *handlers.Notifier {
	return b.notifier
}

func (b *Bot) setupRouter() {
	b.router.Use(RecoveryMiddleware(b.log, b.errHandler, b.deps.Translator))
	b.router.Use(middleware.Idempotency(b.deps.IdempotencyManager, b.log))
	b.router.Use(ErrorHandlingMiddleware(b.errHandler, b.deps.Translator))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(ConsumerMiddleware(b.deps.Vendors, b.log))
	b.router.Use(middleware.Metrics)

	payments := handlers.NewPaymentStarter(
		b.deps.PaymentGateway,
		b.deps.Orders,
		b.cfg.Bot.ProviderToken,
		b.cfg.Marketplace.Currency,
		b.log,
	)

	// General commands.
	b.router.RegisterCommand(CommandStart, handlers.NewStartHandler(b.deps.FSM, b.keyboard, b.log))
	b.router.RegisterCommand(CommandHelp, handlers.NewHelpHandler())
	b.router.RegisterCommand(CommandCancel, handlers.NewCancelHandler(b.deps.FSM, b.keyboard, b.log))

	// Buying.
	b.router.RegisterCommand(CommandBrowse, handlers.NewBrowseHandler(b.deps.Catalog, b.deps.Clock, b.deps.Translator, b.log))
	b.router.RegisterCommand(CommandNearby, handlers.NewNearbyHandler(b.deps.FSM, b.keyboard, b.log))
	b.router.RegisterCommand(CommandMyOrders, handlers.NewMyOrdersHandler(b.deps.Orders, b.deps.Vendors, b.deps.Catalog, b.log))

	// Selling.
	b.router.RegisterCommand(CommandRegister, handlers.NewRegisterHandler(b.deps.Vendors, b.deps.FSM, b.log))
	b.router.RegisterCommand(CommandAddMeal, handlers.NewAddMealHandler(b.deps.Vendors, b.deps.FSM, b.log))
	b.router.RegisterCommand(CommandMyMeals, handlers.NewMyMealsHandler(b.deps.Vendors, b.deps.Clock.Location(), b.log))
	b.router.RegisterCommand(CommandSales, handlers.NewSalesHandler(b.deps.Orders, b.deps.Vendors, b.deps.Catalog, b.log))
	b.router.RegisterCommand(CommandEarnings, handlers.NewEarningsHandler(b.deps.Earnings, b.deps.Vendors, b.deps.Clock, b.log))
	b.router.RegisterCommand(CommandPayout, handlers.NewPayoutHandler(b.deps.Earnings, b.deps.Vendors, b.notifier, b.log))

	// Admin.
	admin := AdminOnly(b.cfg.Bot.AdminChatID)
	b.router.RegisterCommand(CommandPending, admin(handlers.NewPendingVendorsHandler(b.deps.Vendors, b.log)))
	b.router.RegisterCommand(CommandPayouts, admin(handlers.NewPayoutsHandler(b.deps.Earnings, b.log)))
	b.router.RegisterCommand(CommandRevenue, admin(handlers.NewRevenueHandler(b.deps.Earnings, b.deps.Clock, b.log)))
	b.router.RegisterCommand(CommandSetRate, admin(handlers.NewSetRateHandler(b.deps.Earnings, b.log)))
	b.router.RegisterCommand(CommandCancelOrder, admin(handlers.NewCancelOrderHandler(b.deps.Orders, b.log)))

	// Callbacks. The main menu buttons reuse the command handlers.
	b.router.RegisterCallback("cancel", handlers.CallbackHandler(handlers.NewCancelHandler(b.deps.FSM, b.keyboard, b.log)))
	b.router.RegisterCallback("nearby", handlers.CallbackHandler(handlers.NewNearbyHandler(b.deps.FSM, b.keyboard, b.log)))
	b.router.RegisterCallback("myorders", handlers.CallbackHandler(handlers.NewMyOrdersHandler(b.deps.Orders, b.deps.Vendors, b.deps.Catalog, b.log)))
	b.router.RegisterCallback(CallbackBrowsePage, handlers.CallbackHandler(handlers.NewBrowseHandler(b.deps.Catalog, b.deps.Clock, b.deps.Translator, b.log)))
	b.router.RegisterCallback(CallbackMealView, handlers.HandleMealView(b.deps.Catalog, b.deps.Clock, b.log))
	b.router.RegisterCallback(CallbackMealBuy, handlers.HandleMealBuy(b.deps.Catalog, b.deps.FSM, b.keyboard, b.deps.Clock, b.log))
	b.router.RegisterCallback(CallbackMealOff, handlers.HandleMealOff(b.deps.Vendors, b.log))
	b.router.RegisterCallback("qty_", handlers.HandleBuyQuantity(b.deps.Catalog, b.deps.FSM, b.keyboard, b.deps.Clock, b.log))
	b.router.RegisterCallback(CallbackBuyConfirm, handlers.HandleBuyConfirm(b.deps.Orders, b.deps.Vendors, b.deps.FSM, payments, b.log))
	b.router.RegisterCallback(CallbackBuyCancel, handlers.HandleBuyCancel(b.deps.FSM, b.log))
	b.router.RegisterCallback(CallbackOrderPay, handlers.HandleOrderPay(b.deps.Orders, b.deps.Vendors, payments, b.log))
	b.router.RegisterCallback(CallbackOrderCancel, handlers.HandleOrderCancel(b.deps.Orders, b.deps.Vendors, b.log))
	b.router.RegisterCallback(CallbackOrderComplete, handlers.HandleOrderComplete(b.deps.Orders, b.deps.Vendors, b.log))
	b.router.RegisterCallback(CallbackVendorApprove, adminCallback(b.cfg.Bot.AdminChatID, handlers.HandleVendorApprove(b.deps.Vendors, b.notifier, b.log)))
	b.router.RegisterCallback(CallbackVendorReject, adminCallback(b.cfg.Bot.AdminChatID, handlers.HandleVendorReject(b.deps.Vendors, b.notifier, b.log)))
	b.router.RegisterCallback(CallbackPayoutPaid, adminCallback(b.cfg.Bot.AdminChatID, handlers.HandlePayoutPaid(b.deps.Earnings, b.log)))
}

func (b *Bot) setupStateHandlers() {
	// Vendor registration.
	b.dispatcher.RegisterStateHandler(state.StateVendorName, handlers.NewVendorNameHandler(b.deps.FSM, b.log))
	b.dispatcher.RegisterStateHandler(state.StateVendorPhone, handlers.NewVendorPhoneHandler(b.deps.Vendors, b.deps.FSM, b.notifier, b.log))

	// Meal creation.
	b.dispatcher.RegisterStateHandler(state.StateMealName, handlers.NewMealNameHandler(b.deps.FSM, b.log))
	b.dispatcher.RegisterStateHandler(state.StateMealDescription, handlers.NewMealDescriptionHandler(b.deps.FSM, b.log))
	b.dispatcher.RegisterStateHandler(state.StateMealPrice, handlers.NewMealPriceHandler(b.deps.FSM, b.log))
	b.dispatcher.RegisterStateHandler(state.StateMealQuantity, handlers.NewMealQuantityHandler(b.deps.FSM, b.log))
	b.dispatcher.RegisterStateHandler(state.StateMealPickupStart, handlers.NewMealPickupStartHandler(b.deps.FSM, b.deps.Clock, b.log))
	b.dispatcher.RegisterStateHandler(state.StateMealPickupEnd, handlers.NewMealPickupEndHandler(b.deps.FSM, b.deps.Clock, b.log))
	b.dispatcher.RegisterStateHandler(state.StateMealAddress, handlers.NewMealAddressHandler(b.deps.FSM, b.log))
	b.dispatcher.RegisterStateHandler(state.StateMealCoords, handlers.NewMealCoordsHandler(b.deps.Vendors, b.deps.FSM, b.log))

	// Purchase.
	b.dispatcher.RegisterStateHandler(state.StateBuyQuantity, handlers.NewBuyQuantityHandler(b.deps.Catalog, b.deps.FSM, b.keyboard, b.deps.Clock, b.log))
	b.dispatcher.RegisterStateHandler(state.StateBuyConfirm, func(c telebot.Context) error {
		return c.Send("Use the buttons above to confirm or cancel, or send /cancel.")
	})

	// Nearby search.
	b.dispatcher.RegisterStateHandler(state.StateNearbyLocation, handlers.NewNearbyLocationHandler(b.deps.Catalog, b.deps.FSM, b.deps.Clock, b.log))
}

func (b *Bot) registerTelebotHandlers() {
	if b.telebot == nil || b.router == nil {
		return
	}

	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
	b.telebot.Handle(telebot.OnLocation, b.router.Route)
	b.telebot.Handle(telebot.OnContact, b.router.Route)

	adapter := payment.NewTelegramAdapter(
		payment.NewNotifyingConfirmer(b.deps.Orders, b.notifyVendorOnPaid()),
		b.log,
	)
	b.telebot.Handle(telebot.OnCheckout, adapter.HandlePreCheckout)
	b.telebot.Handle(telebot.OnPayment, adapter.HandlePayment)
}

// PaidOrderConfirmer wraps the order service so any payment entry point also
// notifies the vendor about the sale.
func (b *Bot) PaidOrderConfirmer() payment.OrderConfirmer {
	return payment.NewNotifyingConfirmer(b.deps.Orders, b.notifyVendorOnPaid())
}

func (b *Bot) notifyVendorOnPaid() func(ctx context.Context, o *domain.Order) {
	return func(ctx context.Context, o *domain.Order) {
		listing, err := b.deps.Catalog.Get(ctx, o.ListingID)
		if err != nil {
			b.log.Warn("paid order references unknown listing", slog.Int64("order_id", o.ID), slog.Any("error", err))
			return
		}

		v, err := b.deps.Vendors.GetByID(ctx, listing.VendorID)
		if err != nil {
			b.log.Warn("paid order references unknown vendor", slog.Int64("order_id", o.ID), slog.Any("error", err))
			return
		}

		b.notifier.OrderPaid(v.TelegramID, listing.Name, o)
	}
}

func adminCallback(adminChatID int64, h handlers.CallbackHandler) handlers.CallbackHandler {
	return func(c telebot.Context) error {
		if c == nil || c.Sender() == nil {
			return nil
		}

		if adminChatID == 0 || c.Sender().ID != adminChatID {
			return c.Send("This action is for administrators only.")
		}

		return h(c)
	}
}
