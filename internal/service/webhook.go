package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"realty/internal/domain"
)

// WebhookEvent is a gateway callback reporting the outcome of a payment.
type WebhookEvent struct {
	PaymentID   string
	Status      string
	PerformedBy string
	Details     map[string]any
}

// WebhookAction is a transition a webhook may request. The set is closed:
// only this package can implement it, and every variant carries its own
// apply, so a new status cannot be added without its handler.
type WebhookAction interface {
	apply(ctx context.Context, s *PaymentService, event WebhookEvent) (*domain.Payment, error)
}

type (
	completeAction struct{}
	failAction     struct{}
	refundAction   struct{}
)

var webhookActions = map[domain.PaymentStatus]WebhookAction{
	domain.PaymentStatusCompleted: completeAction{},
	domain.PaymentStatusFailed:    failAction{},
	domain.PaymentStatusRefunded:  refundAction{},
}

// ParseWebhookAction maps a webhook status to its transition.
func ParseWebhookAction(status string) (WebhookAction, error) {
	action, ok := webhookActions[domain.PaymentStatus(status)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownWebhookStatus, status)
	}
	return action, nil
}

// HandleWebhook dispatches a webhook to the matching transition.
// An unknown status is rejected before the payment is read.
func (s *PaymentService) HandleWebhook(ctx context.Context, event WebhookEvent) (*domain.Payment, error) {
	if event.PaymentID == "" {
		return nil, ErrInvalidPaymentID
	}

	action, err := ParseWebhookAction(event.Status)
	if err != nil {
		s.metrics.RecordError("webhook", errorKind(err))
		s.logger.WarnContext(ctx, "webhook rejected", "payment_id", event.PaymentID, "status", event.Status)
		return nil, err
	}

	return action.apply(ctx, s, event)
}

func (completeAction) apply(ctx context.Context, s *PaymentService, event WebhookEvent) (*domain.Payment, error) {
	return s.CompletePayment(ctx, event.PaymentID, event.PerformedBy, event.Details)
}

func (failAction) apply(ctx context.Context, s *PaymentService, event WebhookEvent) (*domain.Payment, error) {
	reason, _ := detailString(event.Details, "reason")
	return s.FailPayment(ctx, event.PaymentID, event.PerformedBy, reason)
}

func (refundAction) apply(ctx context.Context, s *PaymentService, event WebhookEvent) (*domain.Payment, error) {
	amount, ok := detailFloat(event.Details, "amount")
	if !ok {
		return nil, fmt.Errorf("%w: refund requires a numeric amount", ErrInvalidWebhookDetails)
	}
	reason, ok := detailString(event.Details, "reason")
	if !ok {
		return nil, fmt.Errorf("%w: refund requires a reason", ErrInvalidWebhookDetails)
	}

	return s.RefundPayment(ctx, RefundPaymentRequest{
		PaymentID:   event.PaymentID,
		Amount:      amount,
		Reason:      reason,
		PerformedBy: event.PerformedBy,
	})
}

func detailString(details map[string]any, key string) (string, bool) {
	v, ok := details[key].(string)
	return v, ok
}

// detailFloat accepts the numeric shapes a decoded JSON body can carry.
func detailFloat(details map[string]any, key string) (float64, bool) {
	switch v := details[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
