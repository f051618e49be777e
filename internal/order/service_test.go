package order

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/asbolsyn/asbolsyn-bot/internal/clock"
	"github.com/asbolsyn/asbolsyn-bot/internal/domain"
	"github.com/asbolsyn/asbolsyn-bot/internal/earnings"
	apperrors "github.com/asbolsyn/asbolsyn-bot/internal/errors"
	"github.com/asbolsyn/asbolsyn-bot/internal/repository"
)

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	if args.Error(0) == nil {
		order.ID = 101
	}
	return args.Error(0)
}

func (m *mockOrderRepo) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (m *mockOrderRepo) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (m *mockOrderRepo) FindByPaymentRef(ctx context.Context, ref string) (*domain.Order, error) {
	args := m.Called(ctx, ref)
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (m *mockOrderRepo) ListByConsumer(ctx context.Context, consumerID int64) ([]*domain.Order, error) {
	args := m.Called(ctx, consumerID)
	orders, _ := args.Get(0).([]*domain.Order)
	return orders, args.Error(1)
}

func (m *mockOrderRepo) ListPaidByVendor(ctx context.Context, vendorID int64) ([]*domain.Order, error) {
	args := m.Called(ctx, vendorID)
	orders, _ := args.Get(0).([]*domain.Order)
	return orders, args.Error(1)
}

func (m *mockOrderRepo) MarkPaid(ctx context.Context, id int64, paymentRef string, paidAt time.Time) error {
	args := m.Called(ctx, id, paymentRef, paidAt)
	return args.Error(0)
}

func (m *mockOrderRepo) MarkCompleted(ctx context.Context, id int64, completedAt time.Time) error {
	args := m.Called(ctx, id, completedAt)
	return args.Error(0)
}

func (m *mockOrderRepo) MarkCancelled(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockListingRepo struct {
	mock.Mock
}

func (m *mockListingRepo) Create(ctx context.Context, listing *domain.Listing) error {
	args := m.Called(ctx, listing)
	return args.Error(0)
}

func (m *mockListingRepo) FindByID(ctx context.Context, id int64) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	listing, _ := args.Get(0).(*domain.Listing)
	return listing, args.Error(1)
}

func (m *mockListingRepo) FindByIDForUpdate(ctx context.Context, id int64) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	listing, _ := args.Get(0).(*domain.Listing)
	return listing, args.Error(1)
}

func (m *mockListingRepo) ListAvailable(ctx context.Context, now time.Time) ([]*domain.Listing, error) {
	args := m.Called(ctx, now)
	listings, _ := args.Get(0).([]*domain.Listing)
	return listings, args.Error(1)
}

func (m *mockListingRepo) ListByVendor(ctx context.Context, vendorID int64) ([]*domain.Listing, error) {
	args := m.Called(ctx, vendorID)
	listings, _ := args.Get(0).([]*domain.Listing)
	return listings, args.Error(1)
}

func (m *mockListingRepo) DecrementQuantity(ctx context.Context, id int64, by int) error {
	args := m.Called(ctx, id, by)
	return args.Error(0)
}

func (m *mockListingRepo) RestockQuantity(ctx context.Context, id int64, by int) error {
	args := m.Called(ctx, id, by)
	return args.Error(0)
}

func (m *mockListingRepo) Deactivate(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockListingRepo) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type mockEarningRepo struct {
	mock.Mock
}

func (m *mockEarningRepo) Create(ctx context.Context, earning *domain.VendorEarning) error {
	args := m.Called(ctx, earning)
	return args.Error(0)
}

func (m *mockEarningRepo) ExistsForOrder(ctx context.Context, orderID int64) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *mockEarningRepo) SumUnpaid(ctx context.Context, vendorID int64, year, month int) (decimal.Decimal, error) {
	args := m.Called(ctx, vendorID, year, month)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockEarningRepo) MonthlySummary(ctx context.Context, vendorID int64, year, month int) (*domain.MonthlyEarnings, error) {
	args := m.Called(ctx, vendorID, year, month)
	summary, _ := args.Get(0).(*domain.MonthlyEarnings)
	return summary, args.Error(1)
}

func (m *mockEarningRepo) UnpaidByPeriod(ctx context.Context, vendorID int64) ([]*domain.UnpaidPeriod, error) {
	args := m.Called(ctx, vendorID)
	periods, _ := args.Get(0).([]*domain.UnpaidPeriod)
	return periods, args.Error(1)
}

func (m *mockEarningRepo) MarkPaidOut(ctx context.Context, vendorID int64, year, month int, at time.Time) (int64, error) {
	args := m.Called(ctx, vendorID, year, month, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockEarningRepo) PlatformRevenue(ctx context.Context, year, month int) (*domain.PlatformRevenue, error) {
	args := m.Called(ctx, year, month)
	revenue, _ := args.Get(0).(*domain.PlatformRevenue)
	return revenue, args.Error(1)
}

type mockCommissionRepo struct {
	mock.Mock
}

func (m *mockCommissionRepo) Create(ctx context.Context, rate *domain.CommissionRate) error {
	args := m.Called(ctx, rate)
	return args.Error(0)
}

func (m *mockCommissionRepo) FindAt(ctx context.Context, ts time.Time) (*domain.CommissionRate, error) {
	args := m.Called(ctx, ts)
	rate, _ := args.Get(0).(*domain.CommissionRate)
	return rate, args.Error(1)
}

func (m *mockCommissionRepo) CloseCurrent(ctx context.Context, ts time.Time) error {
	args := m.Called(ctx, ts)
	return args.Error(0)
}

func (m *mockCommissionRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	orders      *mockOrderRepo
	listings    *mockListingRepo
	ledger      *mockEarningRepo
	commissions *mockCommissionRepo
	svc         *Service
	now         time.Time
}

func newFixture(t *testing.T, restockOnCancel bool) *fixture {
	t.Helper()

	f := &fixture{
		orders:      &mockOrderRepo{},
		listings:    &mockListingRepo{},
		ledger:      &mockEarningRepo{},
		commissions: &mockCommissionRepo{},
		now:         time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}

	clk := clock.Fixed{Time: f.now}
	earningsSvc := earnings.NewService(f.ledger, f.commissions, nil, clk, nil, decimal.RequireFromString("0.15"), testLogger())

	f.svc = NewService(nil, f.orders, f.listings, earningsSvc, clk, nil, restockOnCancel, testLogger())

	// Run critical sections against the same mocks instead of a real
	// transaction.
	f.svc.runTx = func(ctx context.Context, fn func(deps txDeps) error) error {
		return fn(txDeps{orders: f.orders, listings: f.listings, earnings: earningsSvc})
	}

	return f
}

func (f *fixture) listing(id int64, qty int, active bool, pickupEnd time.Time) *domain.Listing {
	return &domain.Listing{
		ID:                id,
		VendorID:          3,
		Name:              "lagman",
		Price:             decimal.RequireFromString("750.00"),
		RemainingQuantity: qty,
		PickupStart:       f.now.Add(-time.Hour),
		PickupEnd:         pickupEnd,
		Active:            active,
		CreatedAt:         f.now.Add(-2 * time.Hour),
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("places pending order without touching stock", func(t *testing.T) {
		f := newFixture(t, false)
		listing := f.listing(5, 4, true, f.now.Add(2*time.Hour))

		f.listings.On("FindByID", mock.Anything, int64(5)).Return(listing, nil).Once()
		f.orders.On("Create", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
			return o.Status == domain.OrderPending &&
				o.Quantity == 2 &&
				o.UnitPrice.Equal(listing.Price) &&
				o.PaymentRef != ""
		})).Return(nil).Once()

		order, err := f.svc.Create(ctx, 9, 5, 2)

		require.NoError(t, err)
		assert.Equal(t, domain.OrderPending, order.Status)
		assert.Nil(t, order.PaidAt)
		f.listings.AssertNotCalled(t, "DecrementQuantity", mock.Anything, mock.Anything, mock.Anything)
		f.orders.AssertExpectations(t)
	})

	t.Run("captured price survives listing changes", func(t *testing.T) {
		f := newFixture(t, false)
		listing := f.listing(5, 4, true, f.now.Add(2*time.Hour))

		f.listings.On("FindByID", mock.Anything, int64(5)).Return(listing, nil).Once()
		f.orders.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

		order, err := f.svc.Create(ctx, 9, 5, 1)
		require.NoError(t, err)

		listing.Price = decimal.RequireFromString("999.00")
		assert.True(t, order.UnitPrice.Equal(decimal.RequireFromString("750.00")))
	})

	t.Run("expired listing", func(t *testing.T) {
		f := newFixture(t, false)
		listing := f.listing(5, 4, true, f.now.Add(-time.Minute))

		f.listings.On("FindByID", mock.Anything, int64(5)).Return(listing, nil).Once()

		_, err := f.svc.Create(ctx, 9, 5, 1)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeExpired))
	})

	t.Run("deactivated listing", func(t *testing.T) {
		f := newFixture(t, false)
		listing := f.listing(5, 4, false, f.now.Add(time.Hour))

		f.listings.On("FindByID", mock.Anything, int64(5)).Return(listing, nil).Once()

		_, err := f.svc.Create(ctx, 9, 5, 1)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUnavailable))
	})

	t.Run("insufficient quantity", func(t *testing.T) {
		f := newFixture(t, false)
		listing := f.listing(5, 2, true, f.now.Add(time.Hour))

		f.listings.On("FindByID", mock.Anything, int64(5)).Return(listing, nil).Once()

		_, err := f.svc.Create(ctx, 9, 5, 3)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientQuantity))
		f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("invalid quantity", func(t *testing.T) {
		f := newFixture(t, false)

		_, err := f.svc.Create(ctx, 9, 5, 0)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	})

	t.Run("missing listing", func(t *testing.T) {
		f := newFixture(t, false)
		f.listings.On("FindByID", mock.Anything, int64(44)).Return((*domain.Listing)(nil), sql.ErrNoRows).Once()

		_, err := f.svc.Create(ctx, 9, 44, 1)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	})
}

func TestService_ConfirmPayment(t *testing.T) {
	ctx := context.Background()

	pendingOrder := func(f *fixture) *domain.Order {
		return &domain.Order{
			ID:         101,
			ListingID:  5,
			ConsumerID: 9,
			Quantity:   2,
			UnitPrice:  decimal.RequireFromString("750.00"),
			Status:     domain.OrderPending,
			PaymentRef: "ref-101",
			CreatedAt:  f.now.Add(-10 * time.Minute),
		}
	}

	t.Run("decrements stock and records earning in one pass", func(t *testing.T) {
		f := newFixture(t, false)
		listing := f.listing(5, 3, true, f.now.Add(time.Hour))

		f.orders.On("FindByIDForUpdate", mock.Anything, int64(101)).Return(pendingOrder(f), nil).Once()
		f.listings.On("FindByIDForUpdate", mock.Anything, int64(5)).Return(listing, nil).Once()
		f.listings.On("DecrementQuantity", mock.Anything, int64(5), 2).Return(nil).Once()
		f.orders.On("MarkPaid", mock.Anything, int64(101), "provider-tx-9", f.now).Return(nil).Once()
		f.ledger.On("ExistsForOrder", mock.Anything, int64(101)).Return(false, nil).Once()
		f.commissions.On("FindAt", mock.Anything, f.now).
			Return(&domain.CommissionRate{ID: 1, Rate: decimal.RequireFromString("0.15")}, nil).Once()
		f.ledger.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.VendorEarning) bool {
			// 2 x 750.00 at 15%
			return e.VendorID == 3 &&
				e.GrossAmount.Equal(decimal.RequireFromString("1500.00")) &&
				e.NetAmount.Equal(decimal.RequireFromString("1275.00"))
		})).Return(nil).Once()

		order, err := f.svc.ConfirmPayment(ctx, 101, "provider-tx-9")

		require.NoError(t, err)
		assert.Equal(t, domain.OrderPaid, order.Status)
		require.NotNil(t, order.PaidAt)
		assert.Equal(t, f.now, *order.PaidAt)
		f.orders.AssertExpectations(t)
		f.listings.AssertExpectations(t)
		f.ledger.AssertExpectations(t)
	})

	t.Run("second confirmation reports already processed", func(t *testing.T) {
		f := newFixture(t, false)
		paid := pendingOrder(f)
		paid.Status = domain.OrderPaid

		f.orders.On("FindByIDForUpdate", mock.Anything, int64(101)).Return(paid, nil).Once()

		_, err := f.svc.ConfirmPayment(ctx, 101, "provider-tx-9")

		assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyProcessed))
		f.listings.AssertNotCalled(t, "DecrementQuantity", mock.Anything, mock.Anything, mock.Anything)
		f.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cancelled order cannot be paid", func(t *testing.T) {
		f := newFixture(t, false)
		cancelled := pendingOrder(f)
		cancelled.Status = domain.OrderCancelled

		f.orders.On("FindByIDForUpdate", mock.Anything, int64(101)).Return(cancelled, nil).Once()

		_, err := f.svc.ConfirmPayment(ctx, 101, "")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))
	})

	t.Run("window elapsed between create and pay", func(t *testing.T) {
		f := newFixture(t, false)
		listing := f.listing(5, 3, true, f.now.Add(-time.Minute))

		f.orders.On("FindByIDForUpdate", mock.Anything, int64(101)).Return(pendingOrder(f), nil).Once()
		f.listings.On("FindByIDForUpdate", mock.Anything, int64(5)).Return(listing, nil).Once()

		_, err := f.svc.ConfirmPayment(ctx, 101, "")

		assert.True(t, apperrors.HasCode(err, apperrors.CodeExpired))
		f.listings.AssertNotCalled(t, "DecrementQuantity", mock.Anything, mock.Anything, mock.Anything)
		f.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stock sold out between create and pay", func(t *testing.T) {
		f := newFixture(t, false)
		listing := f.listing(5, 1, true, f.now.Add(time.Hour))

		f.orders.On("FindByIDForUpdate", mock.Anything, int64(101)).Return(pendingOrder(f), nil).Once()
		f.listings.On("FindByIDForUpdate", mock.Anything, int64(5)).Return(listing, nil).Once()

		_, err := f.svc.ConfirmPayment(ctx, 101, "")

		assert.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientQuantity))
	})

	t.Run("guarded decrement losing a race maps to insufficient quantity", func(t *testing.T) {
		f := newFixture(t, false)
		listing := f.listing(5, 2, true, f.now.Add(time.Hour))

		f.orders.On("FindByIDForUpdate", mock.Anything, int64(101)).Return(pendingOrder(f), nil).Once()
		f.listings.On("FindByIDForUpdate", mock.Anything, int64(5)).Return(listing, nil).Once()
		f.listings.On("DecrementQuantity", mock.Anything, int64(5), 2).Return(sql.ErrNoRows).Once()

		_, err := f.svc.ConfirmPayment(ctx, 101, "")

		assert.True(t, apperrors.HasCode(err, apperrors.CodeInsufficientQuantity))
		f.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing order", func(t *testing.T) {
		f := newFixture(t, false)
		f.orders.On("FindByIDForUpdate", mock.Anything, int64(404)).Return((*domain.Order)(nil), sql.ErrNoRows).Once()

		_, err := f.svc.ConfirmPayment(ctx, 404, "")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	})
}

func TestService_Complete(t *testing.T) {
	ctx := context.Background()

	paidOrder := func(f *fixture) *domain.Order {
		paidAt := f.now.Add(-5 * time.Minute)
		return &domain.Order{
			ID:         101,
			ListingID:  5,
			ConsumerID: 9,
			Quantity:   1,
			UnitPrice:  decimal.RequireFromString("750.00"),
			Status:     domain.OrderPaid,
			PaidAt:     &paidAt,
		}
	}

	t.Run("vendor completes a paid order", func(t *testing.T) {
		f := newFixture(t, false)

		f.orders.On("FindByID", mock.Anything, int64(101)).Return(paidOrder(f), nil).Once()
		f.listings.On("FindByID", mock.Anything, int64(5)).Return(f.listing(5, 2, true, f.now.Add(time.Hour)), nil).Once()
		f.orders.On("MarkCompleted", mock.Anything, int64(101), f.now).Return(nil).Once()

		order, err := f.svc.Complete(ctx, 101, 3)

		require.NoError(t, err)
		assert.Equal(t, domain.OrderCompleted, order.Status)
		require.NotNil(t, order.CompletedAt)
	})

	t.Run("other vendors are rejected", func(t *testing.T) {
		f := newFixture(t, false)

		f.orders.On("FindByID", mock.Anything, int64(101)).Return(paidOrder(f), nil).Once()
		f.listings.On("FindByID", mock.Anything, int64(5)).Return(f.listing(5, 2, true, f.now.Add(time.Hour)), nil).Once()

		_, err := f.svc.Complete(ctx, 101, 777)

		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
		f.orders.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("only paid orders can complete", func(t *testing.T) {
		f := newFixture(t, false)
		pending := paidOrder(f)
		pending.Status = domain.OrderPending
		pending.PaidAt = nil

		f.orders.On("FindByID", mock.Anything, int64(101)).Return(pending, nil).Once()
		f.listings.On("FindByID", mock.Anything, int64(5)).Return(f.listing(5, 2, true, f.now.Add(time.Hour)), nil).Once()

		_, err := f.svc.Complete(ctx, 101, 3)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))
	})
}

func TestService_Cancel(t *testing.T) {
	ctx := context.Background()

	orderIn := func(f *fixture, status domain.OrderStatus) *domain.Order {
		return &domain.Order{
			ID:         101,
			ListingID:  5,
			ConsumerID: 9,
			Quantity:   2,
			UnitPrice:  decimal.RequireFromString("750.00"),
			Status:     status,
		}
	}

	t.Run("pending order cancels without restock", func(t *testing.T) {
		f := newFixture(t, true)

		f.orders.On("FindByIDForUpdate", mock.Anything, int64(101)).Return(orderIn(f, domain.OrderPending), nil).Once()
		f.orders.On("MarkCancelled", mock.Anything, int64(101)).Return(nil).Once()

		order, err := f.svc.Cancel(ctx, 101, 9)

		require.NoError(t, err)
		assert.Equal(t, domain.OrderCancelled, order.Status)
		f.listings.AssertNotCalled(t, "RestockQuantity", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("paid order restocks when the policy allows", func(t *testing.T) {
		f := newFixture(t, true)

		f.orders.On("FindByIDForUpdate", mock.Anything, int64(101)).Return(orderIn(f, domain.OrderPaid), nil).Once()
		f.listings.On("RestockQuantity", mock.Anything, int64(5), 2).Return(nil).Once()
		f.orders.On("MarkCancelled", mock.Anything, int64(101)).Return(nil).Once()

		_, err := f.svc.Cancel(ctx, 101, 9)

		require.NoError(t, err)
		f.listings.AssertExpectations(t)
	})

	t.Run("paid order keeps stock under the default policy", func(t *testing.T) {
		f := newFixture(t, false)

		f.orders.On("FindByIDForUpdate", mock.Anything, int64(101)).Return(orderIn(f, domain.OrderPaid), nil).Once()
		f.orders.On("MarkCancelled", mock.Anything, int64(101)).Return(nil).Once()

		_, err := f.svc.Cancel(ctx, 101, 9)

		require.NoError(t, err)
		f.listings.AssertNotCalled(t, "RestockQuantity", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("terminal orders cannot cancel", func(t *testing.T) {
		f := newFixture(t, false)

		f.orders.On("FindByIDForUpdate", mock.Anything, int64(101)).Return(orderIn(f, domain.OrderCompleted), nil).Once()

		_, err := f.svc.Cancel(ctx, 101, 9)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))
	})

	t.Run("other consumers are rejected", func(t *testing.T) {
		f := newFixture(t, false)

		f.orders.On("FindByIDForUpdate", mock.Anything, int64(101)).Return(orderIn(f, domain.OrderPending), nil).Once()

		_, err := f.svc.Cancel(ctx, 101, 555)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	})

	t.Run("admin cancels regardless of owner", func(t *testing.T) {
		f := newFixture(t, false)

		f.orders.On("FindByIDForUpdate", mock.Anything, int64(101)).Return(orderIn(f, domain.OrderPending), nil).Once()
		f.orders.On("MarkCancelled", mock.Anything, int64(101)).Return(nil).Once()

		order, err := f.svc.AdminCancel(ctx, 101)

		require.NoError(t, err)
		assert.Equal(t, domain.OrderCancelled, order.Status)
		f.orders.AssertExpectations(t)
	})

	t.Run("admin cancel restocks a paid order when the policy allows", func(t *testing.T) {
		f := newFixture(t, true)

		f.orders.On("FindByIDForUpdate", mock.Anything, int64(101)).Return(orderIn(f, domain.OrderPaid), nil).Once()
		f.listings.On("RestockQuantity", mock.Anything, int64(5), 2).Return(nil).Once()
		f.orders.On("MarkCancelled", mock.Anything, int64(101)).Return(nil).Once()

		_, err := f.svc.AdminCancel(ctx, 101)

		require.NoError(t, err)
		f.listings.AssertExpectations(t)
	})

	t.Run("admin cancel still refuses terminal orders", func(t *testing.T) {
		f := newFixture(t, false)

		f.orders.On("FindByIDForUpdate", mock.Anything, int64(101)).Return(orderIn(f, domain.OrderCancelled), nil).Once()

		_, err := f.svc.AdminCancel(ctx, 101)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))
	})
}

// Interface conformance for the tx-scoped dependencies.
var (
	_ repository.OrderRepository   = (*mockOrderRepo)(nil)
	_ repository.ListingRepository = (*mockListingRepo)(nil)
)
