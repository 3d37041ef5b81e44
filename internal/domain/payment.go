package domain

import "time"

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// paymentTransitions lists the allowed next states for each status.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted: {PaymentStatusRefunded},
}

// CanTransitionTo reports whether a payment in status s may move to next.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s PaymentStatus) IsTerminal() bool {
	return len(paymentTransitions[s]) == 0
}

// AuditAction names a state-changing action recorded on a payment.
type AuditAction string

const (
	AuditActionCreated   AuditAction = "created"
	AuditActionCompleted AuditAction = "completed"
	AuditActionFailed    AuditAction = "failed"
	AuditActionRefunded  AuditAction = "refunded"
)

// AuditEntry is one append-only record in a payment's audit log.
type AuditEntry struct {
	Action      AuditAction    `json:"action"`
	PerformedBy string         `json:"performedBy"`
	Timestamp   time.Time      `json:"timestamp"`
	Details     map[string]any `json:"details,omitempty"`
}

// Refund records a refund applied to a completed payment.
// FXRate is always copied from the payment's creation-time snapshot.
type Refund struct {
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	BaseAmount float64   `json:"baseAmount"`
	FXRate     float64   `json:"fxRate"`
	RefundedAt time.Time `json:"refundedAt"`
	Reason     string    `json:"reason"`
}

// Payment represents a single payment attempt for an order.
type Payment struct {
	ID                   string
	UserID               string
	OrderID              string
	Amount               float64
	Currency             string
	BaseCurrency         string
	FXRate               float64
	BaseAmount           float64
	PaymentGateway       string
	GatewayTransactionID string
	Status               PaymentStatus
	Refund               *Refund
	AuditLog             []AuditEntry
	Version              int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// AppendAudit adds an entry to the audit log and bumps UpdatedAt.
func (p *Payment) AppendAudit(action AuditAction, performedBy string, details map[string]any, at time.Time) {
	p.AuditLog = append(p.AuditLog, AuditEntry{
		Action:      action,
		PerformedBy: performedBy,
		Timestamp:   at,
		Details:     details,
	})
	p.UpdatedAt = at
}

// Clone returns a deep copy so callers can mutate without touching the original.
func (p *Payment) Clone() *Payment {
	c := *p
	if p.Refund != nil {
		r := *p.Refund
		c.Refund = &r
	}
	if p.AuditLog != nil {
		c.AuditLog = make([]AuditEntry, len(p.AuditLog))
		copy(c.AuditLog, p.AuditLog)
	}
	return &c
}
