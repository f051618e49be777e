package bot

// Command constants for Telegram bot commands.
const (
	CommandStart    = "/start"
	CommandHelp     = "/help"
	CommandCancel   = "/cancel"
	CommandRegister = "/register"
	CommandAddMeal  = "/addmeal"
	CommandMyMeals  = "/mymeals"
	CommandBrowse   = "/browse"
	CommandNearby   = "/nearby"
	CommandMyOrders = "/myorders"
	CommandSales    = "/sales"
	CommandEarnings = "/earnings"
	CommandPayout   = "/payout"
)

// Admin-only commands, rejected for non-admin chats.
const (
	CommandPending = "/pending"
	CommandPayouts = "/payouts"
	CommandRevenue = "/revenue"
	CommandSetRate = "/setrate"

	CommandCancelOrder = "/cancelorder"
)

// Callback prefix constants for inline button interactions.
const (
	CallbackMealView      = "meal_view:"
	CallbackMealBuy       = "meal_buy:"
	CallbackMealOff       = "meal_off:"
	CallbackBrowsePage    = "browse_page:"
	CallbackBuyConfirm    = "buy_confirm"
	CallbackBuyCancel     = "buy_cancel"
	CallbackOrderPay      = "order_pay:"
	CallbackOrderCancel   = "order_cancel:"
	CallbackOrderComplete = "order_complete:"
	CallbackVendorApprove = "vendor_approve:"
	CallbackVendorReject  = "vendor_reject:"
	CallbackPayoutPaid    = "payout_paid:"
)
