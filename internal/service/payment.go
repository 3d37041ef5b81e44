package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"realty/internal/domain"
	"realty/internal/events"
	"realty/internal/metrics"
	"realty/internal/redis"
	"realty/internal/repository"
)

const (
	defaultBaseCurrency   = "USD"
	defaultPaymentLockTTL = 10 * time.Second
)

// PaymentService is the payment ledger: it enforces the payment lifecycle
// and keeps the audit trail.
//
//	pending -> completed -> refunded
//	pending -> failed
//
// Every mutation is a read-modify-write of the whole record. The write is a
// compare-and-swap on the record version, and when a lock store is
// configured the whole sequence also runs under a per-payment lock.
type PaymentService struct {
	paymentRepo  repository.PaymentRepository
	rates        RateProvider
	lockStore    redis.LockStoreInterface
	publisher    events.Publisher
	clock        Clock
	baseCurrency string
	lockTTL      time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// PaymentServiceDeps contains the collaborators of PaymentService.
// LockStore, Publisher and Metrics are optional.
type PaymentServiceDeps struct {
	PaymentRepo  repository.PaymentRepository
	Rates        RateProvider
	LockStore    redis.LockStoreInterface
	Publisher    events.Publisher
	Clock        Clock
	BaseCurrency string
	LockTTL      time.Duration
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(deps PaymentServiceDeps) *PaymentService {
	s := &PaymentService{
		paymentRepo:  deps.PaymentRepo,
		rates:        deps.Rates,
		lockStore:    deps.LockStore,
		publisher:    deps.Publisher,
		clock:        deps.Clock,
		baseCurrency: strings.ToUpper(deps.BaseCurrency),
		lockTTL:      deps.LockTTL,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.clock == nil {
		s.clock = SystemClock{}
	}
	if s.baseCurrency == "" {
		s.baseCurrency = defaultBaseCurrency
	}
	if s.lockTTL <= 0 {
		s.lockTTL = defaultPaymentLockTTL
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// BaseCurrency returns the currency all base amounts are expressed in.
func (s *PaymentService) BaseCurrency() string {
	return s.baseCurrency
}

// CreatePaymentRequest contains the parameters for creating a payment.
type CreatePaymentRequest struct {
	UserID               string
	OrderID              string
	Amount               float64
	Currency             string
	PaymentGateway       string
	GatewayTransactionID string
}

// CreatePayment snapshots the FX rate and persists a new pending payment.
// Nothing is persisted when the rate lookup fails.
func (s *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*domain.Payment, error) {
	payment, err := s.createPayment(ctx, req)
	if err != nil {
		s.metrics.RecordError("create", errorKind(err))
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) createPayment(ctx context.Context, req CreatePaymentRequest) (*domain.Payment, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, ErrInvalidUserID
	}

	if strings.TrimSpace(req.OrderID) == "" {
		return nil, ErrInvalidOrderID
	}

	if !isPositiveAmount(req.Amount) {
		return nil, ErrInvalidPaymentAmount
	}

	currency, err := normalizeCurrency(req.Currency)
	if err != nil {
		return nil, err
	}

	fxRate, err := s.rates.GetRate(ctx, currency, s.baseCurrency)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversion, err)
	}
	baseAmount := multiply(req.Amount, fxRate)

	now := s.clock.Now()
	payment := &domain.Payment{
		ID:                   uuid.New().String(),
		UserID:               req.UserID,
		OrderID:              req.OrderID,
		Amount:               req.Amount,
		Currency:             currency,
		BaseCurrency:         s.baseCurrency,
		FXRate:               fxRate,
		BaseAmount:           baseAmount,
		PaymentGateway:       req.PaymentGateway,
		GatewayTransactionID: req.GatewayTransactionID,
		Status:               domain.PaymentStatusPending,
		CreatedAt:            now,
	}
	payment.AppendAudit(domain.AuditActionCreated, req.UserID, map[string]any{
		"amount":     req.Amount,
		"currency":   currency,
		"baseAmount": baseAmount,
		"fxRate":     fxRate,
	}, now)

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	s.afterWrite(ctx, payment)
	return payment, nil
}

// CompletePayment moves a pending payment to completed.
func (s *PaymentService) CompletePayment(ctx context.Context, paymentID, performedBy string, details map[string]any) (*domain.Payment, error) {
	return s.transition(ctx, "complete", paymentID, func(p *domain.Payment, now time.Time) error {
		if err := checkTransition(p, domain.PaymentStatusCompleted); err != nil {
			return err
		}
		p.Status = domain.PaymentStatusCompleted
		p.AppendAudit(domain.AuditActionCompleted, performedBy, details, now)
		return nil
	})
}

// FailPayment moves a pending payment to failed, recording the reason.
func (s *PaymentService) FailPayment(ctx context.Context, paymentID, performedBy, reason string) (*domain.Payment, error) {
	return s.transition(ctx, "fail", paymentID, func(p *domain.Payment, now time.Time) error {
		if err := checkTransition(p, domain.PaymentStatusFailed); err != nil {
			return err
		}
		p.Status = domain.PaymentStatusFailed
		p.AppendAudit(domain.AuditActionFailed, performedBy, map[string]any{"reason": reason}, now)
		return nil
	})
}

// RefundPaymentRequest contains the parameters for refunding a payment.
type RefundPaymentRequest struct {
	PaymentID   string
	Amount      float64
	Reason      string
	PerformedBy string
}

// RefundPayment refunds a completed payment.
//
// The refund is converted with the payment's creation-time FX rate, not a
// current one.
func (s *PaymentService) RefundPayment(ctx context.Context, req RefundPaymentRequest) (*domain.Payment, error) {
	if !isPositiveAmount(req.Amount) {
		s.metrics.RecordError("refund", errorKind(ErrInvalidRefundAmount))
		return nil, ErrInvalidRefundAmount
	}

	return s.transition(ctx, "refund", req.PaymentID, func(p *domain.Payment, now time.Time) error {
		if err := checkTransition(p, domain.PaymentStatusRefunded); err != nil {
			return err
		}
		if req.Amount > p.Amount {
			return fmt.Errorf("%w: %v > %v", ErrRefundExceedsPayment, req.Amount, p.Amount)
		}

		baseAmount := multiply(req.Amount, p.FXRate)
		p.Refund = &domain.Refund{
			Amount:     req.Amount,
			Currency:   p.Currency,
			BaseAmount: baseAmount,
			FXRate:     p.FXRate,
			RefundedAt: now,
			Reason:     req.Reason,
		}
		p.Status = domain.PaymentStatusRefunded
		p.AppendAudit(domain.AuditActionRefunded, req.PerformedBy, map[string]any{
			"amount":     req.Amount,
			"currency":   p.Currency,
			"baseAmount": baseAmount,
			"fxRate":     p.FXRate,
			"reason":     req.Reason,
		}, now)
		return nil
	})
}

// GetPayment retrieves a payment by ID.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}

	return s.paymentRepo.GetByID(ctx, paymentID)
}

// ListPaymentsByUser retrieves all payments of a user, newest first.
func (s *PaymentService) ListPaymentsByUser(ctx context.Context, userID string) ([]*domain.Payment, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUserID
	}

	return s.paymentRepo.ListByUserID(ctx, userID)
}

// transition runs a read-modify-write on one payment. mutate works on a copy,
// so a rejected transition leaves both the stored and the returned state
// untouched.
func (s *PaymentService) transition(ctx context.Context, op, paymentID string, mutate func(p *domain.Payment, now time.Time) error) (*domain.Payment, error) {
	payment, err := s.applyTransition(ctx, paymentID, mutate)
	if err != nil {
		s.metrics.RecordError(op, errorKind(err))
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) applyTransition(ctx context.Context, paymentID string, mutate func(p *domain.Payment, now time.Time) error) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}

	unlock, err := s.lock(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	if err := mutate(next, s.clock.Now()); err != nil {
		return nil, err
	}

	if err := s.paymentRepo.Update(ctx, next); err != nil {
		return nil, err
	}

	s.afterWrite(ctx, next)
	return next, nil
}

// lock takes the per-payment lock when a lock store is configured.
func (s *PaymentService) lock(ctx context.Context, paymentID string) (func(), error) {
	if s.lockStore == nil {
		return func() {}, nil
	}

	token, locked, err := s.lockStore.AcquirePaymentLock(ctx, paymentID, s.lockTTL)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrPaymentLocked
	}

	return func() {
		// Release even if the request context is already cancelled.
		if err := s.lockStore.ReleasePaymentLock(context.WithoutCancel(ctx), paymentID, token); err != nil {
			s.logger.WarnContext(ctx, "payment lock release failed", "payment_id", paymentID, "error", err)
		}
	}, nil
}

// afterWrite records metrics and publishes the event for a persisted change.
// Publishing failures are logged and never fail the operation.
func (s *PaymentService) afterWrite(ctx context.Context, payment *domain.Payment) {
	event := events.NewPaymentEvent(payment)
	s.metrics.RecordTransition(event.Action, event.BaseAmount)

	s.logger.InfoContext(ctx, "payment updated",
		"payment_id", payment.ID,
		"action", event.Action,
		"status", payment.Status,
		"performed_by", event.PerformedBy,
	)

	if err := s.publisher.PublishPayment(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "payment event publish failed", "payment_id", payment.ID, "error", err)
	}
}

func checkTransition(p *domain.Payment, next domain.PaymentStatus) error {
	if !p.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, next)
	}
	return nil
}

func isPositiveAmount(amount float64) bool {
	return amount > 0 && !math.IsInf(amount, 0) && !math.IsNaN(amount)
}

// errorKind classifies an error for metrics labels.
func errorKind(err error) string {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, repository.ErrVersionConflict), errors.Is(err, ErrPaymentLocked):
		return "conflict"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrUnsupportedCurrency), errors.Is(err, ErrConversion):
		return "conversion"
	case IsValidationError(err):
		return "validation"
	default:
		return "internal"
	}
}

// IsValidationError reports whether err was caused by bad caller input.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidUserID,
		ErrInvalidOrderID,
		ErrInvalidPaymentID,
		ErrInvalidPaymentAmount,
		ErrInvalidRefundAmount,
		ErrRefundExceedsPayment,
		ErrInvalidCurrency,
		ErrInvalidWebhookDetails,
		ErrUnknownWebhookStatus,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
