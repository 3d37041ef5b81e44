package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"realty/internal/domain"
	"realty/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
// The refund sub-record and the audit log are embedded as JSONB columns.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

const paymentColumns = `id, user_id, order_id, amount, currency, base_currency, fx_rate, base_amount,
		payment_gateway, gateway_transaction_id, status, refund, audit_log, version, created_at, updated_at`

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	refund, auditLog, err := encodeEmbedded(payment)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err = r.q.ExecContext(ctx, query,
		payment.ID,
		payment.UserID,
		payment.OrderID,
		payment.Amount,
		payment.Currency,
		payment.BaseCurrency,
		payment.FXRate,
		payment.BaseAmount,
		payment.PaymentGateway,
		payment.GatewayTransactionID,
		payment.Status,
		refund,
		auditLog,
		payment.Version,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	return err
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isMalformedID(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return payment, nil
}

// ListByUserID retrieves a user's payments, newest first.
func (r *PaymentRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

// Update writes the full record guarded by the version the caller read.
func (r *PaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	refund, auditLog, err := encodeEmbedded(payment)
	if err != nil {
		return err
	}

	query := `
		UPDATE payments
		SET status = $1, refund = $2, audit_log = $3, updated_at = $4, version = version + 1
		WHERE id = $5 AND version = $6
	`

	result, err := r.q.ExecContext(ctx, query,
		payment.Status,
		refund,
		auditLog,
		payment.UpdatedAt,
		payment.ID,
		payment.Version,
	)
	if err != nil {
		if isMalformedID(err) {
			return repository.ErrNotFound
		}
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		var exists bool
		if err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM payments WHERE id = $1)`, payment.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrVersionConflict
	}

	payment.Version++
	return nil
}

// pgInvalidTextRepresentation is raised when an id is not a valid UUID.
const pgInvalidTextRepresentation = "22P02"

// isMalformedID reports whether err means the id cannot name any row.
func isMalformedID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pgInvalidTextRepresentation
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var (
		payment  domain.Payment
		refund   []byte
		auditLog []byte
	)

	err := row.Scan(
		&payment.ID,
		&payment.UserID,
		&payment.OrderID,
		&payment.Amount,
		&payment.Currency,
		&payment.BaseCurrency,
		&payment.FXRate,
		&payment.BaseAmount,
		&payment.PaymentGateway,
		&payment.GatewayTransactionID,
		&payment.Status,
		&refund,
		&auditLog,
		&payment.Version,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(refund) > 0 {
		payment.Refund = &domain.Refund{}
		if err := json.Unmarshal(refund, payment.Refund); err != nil {
			return nil, fmt.Errorf("decode refund: %w", err)
		}
	}
	if len(auditLog) > 0 {
		if err := json.Unmarshal(auditLog, &payment.AuditLog); err != nil {
			return nil, fmt.Errorf("decode audit log: %w", err)
		}
	}

	return &payment, nil
}

// encodeEmbedded serializes the JSONB columns. A missing refund is stored as NULL.
// Values are passed as strings: lib/pq sends []byte parameters as bytea.
func encodeEmbedded(payment *domain.Payment) (refund any, auditLog string, err error) {
	if payment.Refund != nil {
		data, err := json.Marshal(payment.Refund)
		if err != nil {
			return nil, "", fmt.Errorf("encode refund: %w", err)
		}
		refund = string(data)
	}

	entries := payment.AuditLog
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, "", fmt.Errorf("encode audit log: %w", err)
	}

	return refund, string(data), nil
}
