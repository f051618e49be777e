package payment

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	apperrors "github.com/asbolsyn/asbolsyn-bot/internal/errors"
	"github.com/asbolsyn/asbolsyn-bot/pkg/metrics"
)

// signatureHeader carries the webhook HMAC computed over the raw body.
const signatureHeader = "X-Payment-Signature"

// Notification is the payload the payment provider posts after a payment
// attempt settles.
type Notification struct {
	PaymentID string `json:"payment_id"`
	OrderID   int64  `json:"order_id"`
	Status    string `json:"status"`
}

// WebhookHandler receives provider callbacks and funnels completed payments
// into the order confirmation path.
type WebhookHandler struct {
	gateway *Gateway
	orders  OrderConfirmer
	log     *slog.Logger
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(gateway *Gateway, orders OrderConfirmer, log *slog.Logger) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}

	return &WebhookHandler{gateway: gateway, orders: orders, log: log}
}

// ServeHTTP implements http.Handler. Replayed notifications respond 200 so
// the provider stops retrying.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "unable to read body", http.StatusBadRequest)
		return
	}

	if !h.gateway.VerifySignature(body, r.Header.Get(signatureHeader)) {
		h.log.Warn("webhook signature mismatch")
		metrics.RecordPayment("webhook", "bad_signature")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var notification Notification
	if err := json.Unmarshal(body, &notification); err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	if notification.PaymentID == "" || notification.OrderID == 0 || notification.Status == "" {
		http.Error(w, "missing required fields", http.StatusBadRequest)
		return
	}

	if notification.Status != "completed" {
		h.log.Info("ignoring non-completed payment notification",
			slog.String("payment_id", notification.PaymentID),
			slog.String("status", notification.Status),
		)
		metrics.RecordPayment("webhook", "ignored")
		w.WriteHeader(http.StatusOK)
		return
	}

	_, err = h.orders.ConfirmPayment(r.Context(), notification.OrderID, notification.PaymentID)
	switch {
	case err == nil:
		metrics.RecordPayment("webhook", "confirmed")
		w.WriteHeader(http.StatusOK)
	case apperrors.HasCode(err, apperrors.CodeAlreadyProcessed):
		// Retried delivery of a notification we already handled.
		metrics.RecordPayment("webhook", "duplicate")
		w.WriteHeader(http.StatusOK)
	case apperrors.HasCode(err, apperrors.CodeNotFound):
		metrics.RecordPayment("webhook", "unknown_order")
		http.Error(w, "unknown order", http.StatusNotFound)
	case apperrors.HasCode(err, apperrors.CodeExpired),
		apperrors.HasCode(err, apperrors.CodeInsufficientQuantity),
		apperrors.HasCode(err, apperrors.CodeInvalidState),
		apperrors.HasCode(err, apperrors.CodeUnavailable):
		h.log.Warn("payment confirmation rejected",
			slog.Int64("order_id", notification.OrderID),
			slog.Any("error", err),
		)
		metrics.RecordPayment("webhook", "rejected")
		http.Error(w, "order not payable", http.StatusConflict)
	default:
		h.log.Error("payment confirmation failed",
			slog.Int64("order_id", notification.OrderID),
			slog.Any("error", err),
		)
		metrics.RecordPayment("webhook", "error")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
