package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/sunio/internal/models"
)

// ListPayments returns the payments of an event, oldest first.
func (s *SQLiteStore) ListPayments(ctx context.Context, eventID string) ([]models.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_id, from_participant, to_participant, amount, created_at
		 FROM payments WHERE event_id = ? ORDER BY created_at, rowid`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.EventID, &p.From, &p.To, &p.Amount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}

// CreatePayment persists a new payment.
func (s *SQLiteStore) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	if payment.CreatedAt == 0 {
		payment.CreatedAt = s.timestamp()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (id, event_id, from_participant, to_participant, amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		payment.ID, payment.EventID, payment.From, payment.To, payment.Amount, payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// DeletePayment removes a payment.
func (s *SQLiteStore) DeletePayment(ctx context.Context, eventID, paymentID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM payments WHERE event_id = ? AND id = ?",
		eventID, paymentID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	return requireAffected(res, "payment", paymentID)
}
