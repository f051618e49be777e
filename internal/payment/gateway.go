// Package payment bridges the two payment entry points, the hosted payment
// page webhook and Telegram's native invoices, into the single order
// confirmation path.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
	apperrors "github.com/asbolsyn/asbolsyn-bot/internal/errors"
	"github.com/asbolsyn/asbolsyn-bot/pkg/config"
)

// OrderConfirmer is the slice of the order service the payment layer needs.
type OrderConfirmer interface {
	Get(ctx context.Context, orderID int64) (*domain.Order, error)
	ConfirmPayment(ctx context.Context, orderID int64, paymentRef string) (*domain.Order, error)
}

// Gateway creates hosted payment page links and validates webhook calls
// coming back from the provider.
type Gateway struct {
	cfg     config.PaymentConfig
	breaker *apperrors.CircuitBreaker
	log     *slog.Logger
}

// NewGateway constructs a Gateway.
func NewGateway(cfg config.PaymentConfig, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}

	return &Gateway{
		cfg:     cfg,
		breaker: apperrors.NewCircuitBreaker("payment_gateway"),
		log:     log,
	}
}

// Enabled reports whether the hosted payment page is configured.
func (g *Gateway) Enabled() bool {
	return g.cfg.Enabled && g.cfg.BaseURL != ""
}

// CreatePayment registers a payment with the provider and returns its id and
// the page URL the consumer should open.
func (g *Gateway) CreatePayment(ctx context.Context, orderID int64, amount decimal.Decimal, description string) (string, string, error) {
	paymentID := uuid.NewString()

	var paymentURL string
	err := g.breaker.Call(func() error {
		var callErr error
		paymentURL, callErr = g.buildPaymentURL(orderID, amount, paymentID)
		return callErr
	})
	if err != nil {
		g.log.Error("failed to create payment",
			slog.Int64("order_id", orderID),
			slog.Any("error", err),
		)
		return "", "", apperrors.NewExternalAPIError("payment_gateway", err)
	}

	g.log.Info("payment created",
		slog.Int64("order_id", orderID),
		slog.String("payment_id", paymentID),
		slog.String("amount", amount.String()),
	)

	return paymentID, paymentURL, nil
}

func (g *Gateway) buildPaymentURL(orderID int64, amount decimal.Decimal, paymentID string) (string, error) {
	base, err := url.Parse(g.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse gateway base url: %w", err)
	}
	base = base.JoinPath("pay")

	q := base.Query()
	q.Set("order_id", fmt.Sprintf("%d", orderID))
	q.Set("payment_id", paymentID)
	q.Set("amount", amount.StringFixed(2))
	q.Set("success_url", g.redirectURL(g.cfg.SuccessURL, orderID, paymentID))
	q.Set("failure_url", g.redirectURL(g.cfg.FailureURL, orderID, paymentID))
	base.RawQuery = q.Encode()

	return base.String(), nil
}

func (g *Gateway) redirectURL(raw string, orderID int64, paymentID string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	q := u.Query()
	q.Set("order_id", fmt.Sprintf("%d", orderID))
	q.Set("payment_id", paymentID)
	u.RawQuery = q.Encode()

	return u.String()
}

// VerifySignature checks the webhook HMAC. With the gateway disabled the
// check always passes so local development does not need a shared secret.
func (g *Gateway) VerifySignature(payload []byte, signature string) bool {
	if !g.cfg.Enabled || g.cfg.WebhookSecret == "" {
		return true
	}

	mac := hmac.New(sha256.New, []byte(g.cfg.WebhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expected))
}
