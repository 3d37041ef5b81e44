package tests

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"realty/internal/domain"
	"realty/internal/service"
)

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ledgerFixture bundles a PaymentService with the mocks behind it.
type ledgerFixture struct {
	svc       *service.PaymentService
	repo      *MockPaymentRepository
	rates     *MockRateProvider
	locks     *MockLockStore
	publisher *MockPublisher
	clock     *FakeClock
}

func newLedgerFixture(t *testing.T, rate float64) *ledgerFixture {
	t.Helper()

	f := &ledgerFixture{
		repo:      NewMockPaymentRepository(),
		rates:     NewMockRateProvider(rate),
		locks:     NewMockLockStore(),
		publisher: NewMockPublisher(),
		clock:     NewFakeClock(testEpoch),
	}
	f.svc = service.NewPaymentService(service.PaymentServiceDeps{
		PaymentRepo:  f.repo,
		Rates:        f.rates,
		LockStore:    f.locks,
		Publisher:    f.publisher,
		Clock:        f.clock,
		BaseCurrency: "USD",
		Logger:       discardLogger(),
	})
	return f
}

// createPayment creates a 100 EUR payment for user-1.
func (f *ledgerFixture) createPayment(t *testing.T) *domain.Payment {
	t.Helper()

	payment, err := f.svc.CreatePayment(context.Background(), service.CreatePaymentRequest{
		UserID:               "user-1",
		OrderID:              "order-1",
		Amount:               100,
		Currency:             "EUR",
		PaymentGateway:       "stripe",
		GatewayTransactionID: "txn-1",
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	return payment
}

func (f *ledgerFixture) completePayment(t *testing.T, id string) *domain.Payment {
	t.Helper()

	payment, err := f.svc.CompletePayment(context.Background(), id, "gateway", map[string]any{"captureId": "cap-1"})
	if err != nil {
		t.Fatalf("complete payment: %v", err)
	}
	return payment
}
