package repository

import (
	"context"

	"realty/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// ListByUserID retrieves a user's payments, newest first.
	ListByUserID(ctx context.Context, userID string) ([]*domain.Payment, error)

	// Update writes the full record only if the stored version still equals
	// payment.Version, then increments payment.Version.
	// Returns ErrVersionConflict when the stored record has moved on.
	Update(ctx context.Context, payment *domain.Payment) error
}
