package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/sunio/internal/models"
	"github.com/mmynk/sunio/internal/storage"
)

const participantColumns = "id, event_id, name, pin_hash != '', is_admin, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row rowScanner) (models.Participant, error) {
	var p models.Participant
	err := row.Scan(&p.ID, &p.EventID, &p.Name, &p.HasPin, &p.IsAdmin, &p.CreatedAt)
	return p, err
}

// ListParticipants returns the participants of an event in join order.
func (s *SQLiteStore) ListParticipants(ctx context.Context, eventID string) ([]models.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+participantColumns+" FROM participants WHERE event_id = ? ORDER BY created_at, rowid",
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	participants := []models.Participant{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return participants, nil
}

// GetParticipant retrieves a participant of an event.
func (s *SQLiteStore) GetParticipant(ctx context.Context, eventID, participantID string) (*models.Participant, error) {
	p, err := scanParticipant(s.db.QueryRowContext(ctx,
		"SELECT "+participantColumns+" FROM participants WHERE event_id = ? AND id = ?",
		eventID, participantID,
	))
	if err == sql.ErrNoRows {
		return nil, notFound("participant", participantID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return &p, nil
}

// CreateParticipant adds a participant to an existing event.
func (s *SQLiteStore) CreateParticipant(ctx context.Context, eventID, name, pinHash string) (*models.Participant, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO participants (id, event_id, name, pin_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		id, eventID, name, pinHash, s.timestamp(),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("participant %q: %w", name, storage.ErrNameTaken)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create participant: %w", err)
	}
	return s.GetParticipant(ctx, eventID, id)
}

// RenameParticipant changes a participant's display name.
func (s *SQLiteStore) RenameParticipant(ctx context.Context, eventID, participantID, name string) (*models.Participant, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE participants SET name = ? WHERE event_id = ? AND id = ?",
		name, eventID, participantID,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("participant %q: %w", name, storage.ErrNameTaken)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to rename participant: %w", err)
	}
	if err := requireAffected(res, "participant", participantID); err != nil {
		return nil, err
	}
	return s.GetParticipant(ctx, eventID, participantID)
}

// PinHash returns the participant's PIN hash.
func (s *SQLiteStore) PinHash(ctx context.Context, eventID, participantID string) (string, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		"SELECT pin_hash FROM participants WHERE event_id = ? AND id = ?",
		eventID, participantID,
	).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", notFound("participant", participantID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get pin: %w", err)
	}
	return hash, nil
}

// SetPinHash stores a new PIN hash.
func (s *SQLiteStore) SetPinHash(ctx context.Context, eventID, participantID, pinHash string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE participants SET pin_hash = ? WHERE event_id = ? AND id = ?",
		pinHash, eventID, participantID,
	)
	if err != nil {
		return fmt.Errorf("failed to set pin: %w", err)
	}
	return requireAffected(res, "participant", participantID)
}

// DeleteParticipant removes a participant. Foreign keys cascade to the
// expenses they paid, their consumer rows and their payments; expenses no
// one consumes any more are removed in the same transaction.
func (s *SQLiteStore) DeleteParticipant(ctx context.Context, eventID, participantID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"DELETE FROM participants WHERE event_id = ? AND id = ?",
		eventID, participantID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	if err := requireAffected(res, "participant", participantID); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM expenses WHERE event_id = ?
		 AND id NOT IN (SELECT expense_id FROM expense_consumers)`,
		eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete orphaned expenses: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
