package events

import (
	"context"
	"time"

	"realty/internal/domain"
)

// PaymentEvent is emitted after every persisted payment state change.
type PaymentEvent struct {
	PaymentID   string    `json:"paymentId"`
	OrderID     string    `json:"orderId"`
	UserID      string    `json:"userId"`
	Action      string    `json:"action"`
	Status      string    `json:"status"`
	PerformedBy string    `json:"performedBy"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	BaseAmount  float64   `json:"baseAmount"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// NewPaymentEvent builds the event for the latest audit entry of p.
func NewPaymentEvent(p *domain.Payment) PaymentEvent {
	event := PaymentEvent{
		PaymentID:  p.ID,
		OrderID:    p.OrderID,
		UserID:     p.UserID,
		Status:     string(p.Status),
		Amount:     p.Amount,
		Currency:   p.Currency,
		BaseAmount: p.BaseAmount,
		OccurredAt: p.UpdatedAt,
	}
	if n := len(p.AuditLog); n > 0 {
		last := p.AuditLog[n-1]
		event.Action = string(last.Action)
		event.PerformedBy = last.PerformedBy
		event.OccurredAt = last.Timestamp
	}
	if p.Status == domain.PaymentStatusRefunded && p.Refund != nil {
		event.Amount = p.Refund.Amount
		event.BaseAmount = p.Refund.BaseAmount
	}
	return event
}

// Publisher delivers payment events to downstream consumers.
type Publisher interface {
	PublishPayment(ctx context.Context, event PaymentEvent) error
}

// NopPublisher drops every event. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishPayment(ctx context.Context, event PaymentEvent) error {
	return nil
}
