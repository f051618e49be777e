package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
	apperrors "github.com/asbolsyn/asbolsyn-bot/internal/errors"
	"github.com/asbolsyn/asbolsyn-bot/pkg/config"
)

type mockConfirmer struct {
	mock.Mock
}

func (m *mockConfirmer) Get(ctx context.Context, orderID int64) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (m *mockConfirmer) ConfirmPayment(ctx context.Context, orderID int64, paymentRef string) (*domain.Order, error) {
	args := m.Called(ctx, orderID, paymentRef)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const webhookSecret = "test-webhook-secret"

func signedRequest(t *testing.T, body string) *http.Request {
	t.Helper()

	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(body))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewBufferString(body))
	req.Header.Set(signatureHeader, hex.EncodeToString(mac.Sum(nil)))
	return req
}

func newHandler(confirmer *mockConfirmer) *WebhookHandler {
	gateway := NewGateway(config.PaymentConfig{
		Enabled:       true,
		BaseURL:       "https://pay.example.kz",
		WebhookSecret: webhookSecret,
	}, testLogger())

	return NewWebhookHandler(gateway, confirmer, testLogger())
}

func TestWebhookHandler(t *testing.T) {
	t.Run("completed payment confirms the order", func(t *testing.T) {
		confirmer := &mockConfirmer{}
		confirmer.On("ConfirmPayment", mock.Anything, int64(101), "pay-1").
			Return(&domain.Order{ID: 101, Status: domain.OrderPaid}, nil).Once()

		rec := httptest.NewRecorder()
		newHandler(confirmer).ServeHTTP(rec, signedRequest(t, `{"payment_id":"pay-1","order_id":101,"status":"completed"}`))

		assert.Equal(t, http.StatusOK, rec.Code)
		confirmer.AssertExpectations(t)
	})

	t.Run("replayed notification still responds 200", func(t *testing.T) {
		confirmer := &mockConfirmer{}
		confirmer.On("ConfirmPayment", mock.Anything, int64(101), "pay-1").
			Return((*domain.Order)(nil), apperrors.NewAlreadyProcessed("payment already confirmed")).Once()

		rec := httptest.NewRecorder()
		newHandler(confirmer).ServeHTTP(rec, signedRequest(t, `{"payment_id":"pay-1","order_id":101,"status":"completed"}`))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("non-completed status is ignored", func(t *testing.T) {
		confirmer := &mockConfirmer{}

		rec := httptest.NewRecorder()
		newHandler(confirmer).ServeHTTP(rec, signedRequest(t, `{"payment_id":"pay-1","order_id":101,"status":"failed"}`))

		assert.Equal(t, http.StatusOK, rec.Code)
		confirmer.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("bad signature is rejected", func(t *testing.T) {
		confirmer := &mockConfirmer{}

		req := httptest.NewRequest(http.MethodPost, "/webhooks/payment",
			bytes.NewBufferString(`{"payment_id":"pay-1","order_id":101,"status":"completed"}`))
		req.Header.Set(signatureHeader, "forged")

		rec := httptest.NewRecorder()
		newHandler(confirmer).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		confirmer.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newHandler(&mockConfirmer{}).ServeHTTP(rec, signedRequest(t, `{"payment_id":"pay-1"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown order", func(t *testing.T) {
		confirmer := &mockConfirmer{}
		confirmer.On("ConfirmPayment", mock.Anything, int64(404), "pay-1").
			Return((*domain.Order)(nil), apperrors.NewNotFound("order")).Once()

		rec := httptest.NewRecorder()
		newHandler(confirmer).ServeHTTP(rec, signedRequest(t, `{"payment_id":"pay-1","order_id":404,"status":"completed"}`))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("no longer payable order conflicts", func(t *testing.T) {
		confirmer := &mockConfirmer{}
		confirmer.On("ConfirmPayment", mock.Anything, int64(101), "pay-1").
			Return((*domain.Order)(nil), apperrors.NewExpired("pickup window ended before payment")).Once()

		rec := httptest.NewRecorder()
		newHandler(confirmer).ServeHTTP(rec, signedRequest(t, `{"payment_id":"pay-1","order_id":101,"status":"completed"}`))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("rejects non-POST", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/webhooks/payment", nil)
		newHandler(&mockConfirmer{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestGateway_CreatePayment(t *testing.T) {
	gateway := NewGateway(config.PaymentConfig{
		Enabled:    true,
		BaseURL:    "https://pay.example.kz",
		SuccessURL: "https://t.me/asbolsyn_bot?start=paid",
		FailureURL: "https://t.me/asbolsyn_bot?start=failed",
	}, testLogger())

	paymentID, paymentURL, err := gateway.CreatePayment(context.Background(), 101, decimal.RequireFromString("1500.00"), "2x lagman")

	require.NoError(t, err)
	assert.NotEmpty(t, paymentID)
	assert.Contains(t, paymentURL, "https://pay.example.kz/pay")
	assert.Contains(t, paymentURL, "order_id=101")
	assert.Contains(t, paymentURL, "amount=1500.00")
	assert.Contains(t, paymentURL, paymentID)
}

func TestGateway_VerifySignature(t *testing.T) {
	t.Run("disabled gateway accepts anything", func(t *testing.T) {
		gateway := NewGateway(config.PaymentConfig{Enabled: false}, testLogger())
		assert.True(t, gateway.VerifySignature([]byte("body"), "whatever"))
	})

	t.Run("enabled gateway enforces the hmac", func(t *testing.T) {
		gateway := NewGateway(config.PaymentConfig{Enabled: true, WebhookSecret: webhookSecret}, testLogger())

		mac := hmac.New(sha256.New, []byte(webhookSecret))
		mac.Write([]byte("body"))

		assert.True(t, gateway.VerifySignature([]byte("body"), hex.EncodeToString(mac.Sum(nil))))
		assert.False(t, gateway.VerifySignature([]byte("body"), "forged"))
	})
}
