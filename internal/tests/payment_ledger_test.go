package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"realty/internal/domain"
	"realty/internal/repository"
	"realty/internal/service"
)

// ──────────────────────────────────────────────
// 2. PAYMENT CREATION
// ──────────────────────────────────────────────

func TestPayment_CreateSnapshotsRate(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture(t, 1.1)
	payment := f.createPayment(t)

	if payment.Status != domain.PaymentStatusPending {
		t.Errorf("expected status pending, got %s", payment.Status)
	}
	if payment.FXRate != 1.1 {
		t.Errorf("expected fxRate 1.1, got %v", payment.FXRate)
	}
	if payment.BaseAmount != 110 {
		t.Errorf("expected baseAmount 110, got %v", payment.BaseAmount)
	}
	if payment.BaseCurrency != "USD" {
		t.Errorf("expected base currency USD, got %s", payment.BaseCurrency)
	}
	if len(payment.AuditLog) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(payment.AuditLog))
	}
	entry := payment.AuditLog[0]
	if entry.Action != domain.AuditActionCreated {
		t.Errorf("expected created audit action, got %s", entry.Action)
	}
	if entry.PerformedBy != "user-1" {
		t.Errorf("expected performedBy user-1, got %s", entry.PerformedBy)
	}
	if !entry.Timestamp.Equal(testEpoch) {
		t.Errorf("expected audit timestamp %v, got %v", testEpoch, entry.Timestamp)
	}

	stored := f.repo.GetPayment(payment.ID)
	if stored == nil {
		t.Fatal("payment not persisted")
	}
	if stored.BaseAmount != 110 {
		t.Errorf("expected stored baseAmount 110, got %v", stored.BaseAmount)
	}
}

func TestPayment_CreateNormalizesCurrency(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture(t, 1.1)

	payment, err := f.svc.CreatePayment(context.Background(), service.CreatePaymentRequest{
		UserID:   "user-1",
		OrderID:  "order-1",
		Amount:   10,
		Currency: " eur ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.Currency != "EUR" {
		t.Errorf("expected EUR, got %q", payment.Currency)
	}
}

func TestPayment_CreateValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     service.CreatePaymentRequest
		wantErr error
	}{
		{
			name:    "missing user",
			req:     service.CreatePaymentRequest{OrderID: "o", Amount: 1, Currency: "EUR"},
			wantErr: service.ErrInvalidUserID,
		},
		{
			name:    "missing order",
			req:     service.CreatePaymentRequest{UserID: "u", Amount: 1, Currency: "EUR"},
			wantErr: service.ErrInvalidOrderID,
		},
		{
			name:    "zero amount",
			req:     service.CreatePaymentRequest{UserID: "u", OrderID: "o", Amount: 0, Currency: "EUR"},
			wantErr: service.ErrInvalidPaymentAmount,
		},
		{
			name:    "negative amount",
			req:     service.CreatePaymentRequest{UserID: "u", OrderID: "o", Amount: -5, Currency: "EUR"},
			wantErr: service.ErrInvalidPaymentAmount,
		},
		{
			name:    "bad currency",
			req:     service.CreatePaymentRequest{UserID: "u", OrderID: "o", Amount: 1, Currency: "EURO"},
			wantErr: service.ErrInvalidCurrency,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture(t, 1.1)
			_, err := f.svc.CreatePayment(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if f.repo.CountPayments() != 0 {
				t.Error("nothing should be persisted on validation failure")
			}
		})
	}
}

func TestPayment_CreateConversionFailurePersistsNothing(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture(t, 1.1)
	f.rates.Err = service.ErrUpstreamUnavailable

	_, err := f.svc.CreatePayment(context.Background(), service.CreatePaymentRequest{
		UserID:   "user-1",
		OrderID:  "order-1",
		Amount:   100,
		Currency: "EUR",
	})
	if !errors.Is(err, service.ErrConversion) {
		t.Errorf("expected ErrConversion, got %v", err)
	}
	if !errors.Is(err, service.ErrUpstreamUnavailable) {
		t.Errorf("expected the upstream cause to be kept, got %v", err)
	}
	if f.repo.CountPayments() != 0 {
		t.Errorf("expected no payments, got %d", f.repo.CountPayments())
	}
	if len(f.publisher.Events()) != 0 {
		t.Error("no event should be published for a failed create")
	}
}

// ──────────────────────────────────────────────
// 3. STATE MACHINE
// ──────────────────────────────────────────────

func TestPayment_CompleteAppendsAudit(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture(t, 1.1)
	created := f.createPayment(t)

	f.clock.Advance(time.Minute)
	completed := f.completePayment(t, created.ID)

	if completed.Status != domain.PaymentStatusCompleted {
		t.Errorf("expected completed, got %s", completed.Status)
	}
	if len(completed.AuditLog) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(completed.AuditLog))
	}
	last := completed.AuditLog[1]
	if last.Action != domain.AuditActionCompleted || last.PerformedBy != "gateway" {
		t.Errorf("unexpected audit entry: %+v", last)
	}
	if last.Details["captureId"] != "cap-1" {
		t.Errorf("expected details to be kept, got %v", last.Details)
	}
	if !completed.UpdatedAt.Equal(testEpoch.Add(time.Minute)) {
		t.Errorf("expected updatedAt to advance, got %v", completed.UpdatedAt)
	}
}

func TestPayment_CompleteTwiceIsRejected(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture(t, 1.1)
	created := f.createPayment(t)
	f.completePayment(t, created.ID)

	_, err := f.svc.CompletePayment(context.Background(), created.ID, "gateway", nil)
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	stored := f.repo.GetPayment(created.ID)
	if stored.Status != domain.PaymentStatusCompleted {
		t.Errorf("expected status to stay completed, got %s", stored.Status)
	}
	if len(stored.AuditLog) != 2 {
		t.Errorf("expected audit log untouched at 2 entries, got %d", len(stored.AuditLog))
	}
}

func TestPayment_FailRecordsReason(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture(t, 1.1)
	created := f.createPayment(t)

	failed, err := f.svc.FailPayment(context.Background(), created.ID, "gateway", "card declined")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if failed.Status != domain.PaymentStatusFailed {
		t.Errorf("expected failed, got %s", failed.Status)
	}
	last := failed.AuditLog[len(failed.AuditLog)-1]
	if last.Action != domain.AuditActionFailed || last.Details["reason"] != "card declined" {
		t.Errorf("unexpected audit entry: %+v", last)
	}

	// Failed is terminal.
	if _, err := f.svc.CompletePayment(context.Background(), created.ID, "gateway", nil); !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition completing a failed payment, got %v", err)
	}
}

func TestPayment_FailAfterCompleteIsRejected(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture(t, 1.1)
	created := f.createPayment(t)
	f.completePayment(t, created.ID)

	_, err := f.svc.FailPayment(context.Background(), created.ID, "gateway", "late decline")
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestPayment_TransitionOnMissingPayment(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture(t, 1.1)

	_, err := f.svc.CompletePayment(context.Background(), "missing", "gateway", nil)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if f.locks.IsLocked("missing") {
		t.Error("lock must be released after a failed transition")
	}
}

// ──────────────────────────────────────────────
// 4. REFUNDS
// ──────────────────────────────────────────────

func TestPayment_RefundPendingIsRejected(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture(t, 1.1)
	created := f.createPayment(t)

	_, err := f.svc.RefundPayment(context.Background(), service.RefundPaymentRequest{
		PaymentID:   created.ID,
		Amount:      50,
		Reason:      "customer request",
		PerformedBy: "admin",
	})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	stored := f.repo.GetPayment(created.ID)
	if stored.Refund != nil {
		t.Error("refund must not be recorded on a pending payment")
	}
	if stored.Status != domain.PaymentStatusPending {
		t.Errorf("expected pending, got %s", stored.Status)
	}
}

func TestPayment_RefundUsesCreationRate(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture(t, 1.1)
	created := f.createPayment(t)
	f.completePayment(t, created.ID)

	// The market moved after creation.
	f.rates.SetRate(1.3)

	refunded, err := f.svc.RefundPayment(context.Background(), service.RefundPaymentRequest{
		PaymentID:   created.ID,
		Amount:      50,
		Reason:      "customer request",
		PerformedBy: "admin",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if refunded.Status != domain.PaymentStatusRefunded {
		t.Errorf("expected refunded, got %s", refunded.Status)
	}
	if refunded.Refund == nil {
		t.Fatal("expected refund record")
	}
	if refunded.Refund.BaseAmount != 55 {
		t.Errorf("expected refund baseAmount 55, got %v", refunded.Refund.BaseAmount)
	}
	if refunded.Refund.FXRate != 1.1 {
		t.Errorf("expected refund fxRate 1.1, got %v", refunded.Refund.FXRate)
	}
	if refunded.Refund.Currency != "EUR" || refunded.Refund.Reason != "customer request" {
		t.Errorf("unexpected refund record: %+v", refunded.Refund)
	}
	if len(refunded.AuditLog) != 3 {
		t.Errorf("expected 3 audit entries, got %d", len(refunded.AuditLog))
	}
	if calls := f.rates.GetRateCallCount; calls != 1 {
		t.Errorf("refund must not look up a current rate, got %d lookups", calls)
	}
}

func TestPayment_RefundAmountValidation(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture(t, 1.1)
	created := f.createPayment(t)
	f.completePayment(t, created.ID)

	tests := []struct {
		amount  float64
		wantErr error
	}{
		{0, service.ErrInvalidRefundAmount},
		{-1, service.ErrInvalidRefundAmount},
		{100.01, service.ErrRefundExceedsPayment},
	}

	for _, tt := range tests {
		_, err := f.svc.RefundPayment(context.Background(), service.RefundPaymentRequest{
			PaymentID: created.ID,
			Amount:    tt.amount,
			Reason:    "r",
		})
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("refund %v: expected %v, got %v", tt.amount, tt.wantErr, err)
		}
	}

	stored := f.repo.GetPayment(created.ID)
	if stored.Status != domain.PaymentStatusCompleted || stored.Refund != nil {
		t.Errorf("payment must be unchanged, got status %s refund %+v", stored.Status, stored.Refund)
	}
}

func TestPayment_FullRefundAllowedOnce(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture(t, 1.1)
	created := f.createPayment(t)
	f.completePayment(t, created.ID)

	req := service.RefundPaymentRequest{PaymentID: created.ID, Amount: 100, Reason: "r", PerformedBy: "admin"}
	refunded, err := f.svc.RefundPayment(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refunded.Refund.BaseAmount != 110 {
		t.Errorf("expected refund baseAmount 110, got %v", refunded.Refund.BaseAmount)
	}

	if _, err := f.svc.RefundPayment(context.Background(), req); !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected second refund to be rejected, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 5. QUERIES AND EVENTS
// ──────────────────────────────────────────────

func TestPayment_ListByUserNewestFirst(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture(t, 1.1)
	first := f.createPayment(t)
	f.clock.Advance(time.Minute)
	second := f.createPayment(t)

	payments, err := f.svc.ListPaymentsByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(payments))
	}
	if payments[0].ID != second.ID || payments[1].ID != first.ID {
		t.Error("expected newest payment first")
	}

	if _, err := f.svc.ListPaymentsByUser(context.Background(), " "); !errors.Is(err, service.ErrInvalidUserID) {
		t.Errorf("expected ErrInvalidUserID, got %v", err)
	}
}

func TestPayment_EventsPublishedPerTransition(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture(t, 1.1)
	created := f.createPayment(t)
	f.completePayment(t, created.ID)

	published := f.publisher.Events()
	if len(published) != 2 {
		t.Fatalf("expected 2 events, got %d", len(published))
	}
	if published[0].Action != string(domain.AuditActionCreated) || published[1].Action != string(domain.AuditActionCompleted) {
		t.Errorf("unexpected event actions: %s, %s", published[0].Action, published[1].Action)
	}
	if published[1].Status != string(domain.PaymentStatusCompleted) {
		t.Errorf("expected completed status in event, got %s", published[1].Status)
	}
}

func TestPayment_PublishFailureDoesNotFailOperation(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture(t, 1.1)
	f.publisher.Err = errors.New("broker down")

	payment := f.createPayment(t)
	if f.repo.GetPayment(payment.ID) == nil {
		t.Error("payment must be persisted even if publishing fails")
	}
}
