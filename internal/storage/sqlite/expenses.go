package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/sunio/internal/models"
)

// ListExpenses returns the expenses of an event, oldest first, with their
// consumers in the order they were given.
func (s *SQLiteStore) ListExpenses(ctx context.Context, eventID string) ([]models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_id, payer_id, amount, description, created_at
		 FROM expenses WHERE event_id = ? ORDER BY created_at, rowid`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	expenses := []models.Expense{}
	index := make(map[string]int)
	for rows.Next() {
		e := models.Expense{Consumers: []string{}}
		if err := rows.Scan(&e.ID, &e.EventID, &e.PayerID, &e.Amount, &e.Description, &e.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		index[e.ID] = len(expenses)
		expenses = append(expenses, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	// One query for every consumer of the event; the pool has one connection
	// so the expense rows must be closed first.
	consumerRows, err := s.db.QueryContext(ctx,
		`SELECT c.expense_id, c.participant_id
		 FROM expense_consumers c JOIN expenses e ON e.id = c.expense_id
		 WHERE e.event_id = ? ORDER BY c.expense_id, c.position`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list consumers: %w", err)
	}
	defer consumerRows.Close()

	for consumerRows.Next() {
		var expenseID, participantID string
		if err := consumerRows.Scan(&expenseID, &participantID); err != nil {
			return nil, fmt.Errorf("failed to scan consumer: %w", err)
		}
		if i, ok := index[expenseID]; ok {
			expenses[i].Consumers = append(expenses[i].Consumers, participantID)
		}
	}
	if err := consumerRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate consumers: %w", err)
	}
	return expenses, nil
}

// CreateExpense persists a new expense and its consumers.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = s.timestamp()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, event_id, payer_id, amount, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.EventID, expense.PayerID, expense.Amount, expense.Description, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}
	if err := insertConsumers(ctx, tx, expense); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateExpense replaces the fields and consumers of an expense.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE expenses SET payer_id = ?, amount = ?, description = ?
		 WHERE event_id = ? AND id = ?`,
		expense.PayerID, expense.Amount, expense.Description, expense.EventID, expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if err := requireAffected(res, "expense", expense.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM expense_consumers WHERE expense_id = ?", expense.ID); err != nil {
		return fmt.Errorf("failed to clear consumers: %w", err)
	}
	if err := insertConsumers(ctx, tx, expense); err != nil {
		return err
	}

	err = tx.QueryRowContext(ctx, "SELECT created_at FROM expenses WHERE id = ?", expense.ID).Scan(&expense.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to read expense: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertConsumers(ctx context.Context, tx *sql.Tx, expense *models.Expense) error {
	for i, c := range expense.Consumers {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO expense_consumers (expense_id, participant_id, position) VALUES (?, ?, ?)",
			expense.ID, c, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert consumer: %w", err)
		}
	}
	return nil
}

// DeleteExpense removes an expense.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, eventID, expenseID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM expenses WHERE event_id = ? AND id = ?",
		eventID, expenseID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return requireAffected(res, "expense", expenseID)
}
