// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	moderncsqlite "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mmynk/sunio/internal/models"
	"github.com/mmynk/sunio/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// eventCodeLength is the length of generated event codes.
const eventCodeLength = 10

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas go in the DSN so every pooled connection enforces foreign keys.
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) timestamp() int64 {
	return s.now().Unix()
}

// newEventCode returns a short code that is easy to type and share.
func newEventCode() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:eventCodeLength]
}

func isUniqueViolation(err error) bool {
	var se *moderncsqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return strings.Contains(se.Error(), "UNIQUE constraint failed")
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
}

// requireAffected maps an update that touched no row to ErrNotFound.
func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound(kind, id)
	}
	return nil
}

// CreateEvent persists a new event and its participants in one transaction.
func (s *SQLiteStore) CreateEvent(ctx context.Context, name string, participants []string) (*models.Event, error) {
	event := &models.Event{
		ID:        newEventCode(),
		Name:      name,
		CreatedAt: s.timestamp(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO events (id, name, created_at) VALUES (?, ?, ?)",
		event.ID, event.Name, event.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}

	for i, p := range participants {
		// The creator, listed first, administers the event.
		_, err = tx.ExecContext(ctx,
			"INSERT INTO participants (id, event_id, name, is_admin, created_at) VALUES (?, ?, ?, ?, ?)",
			uuid.New().String(), event.ID, p, i == 0, event.CreatedAt,
		)
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("participant %q: %w", p, storage.ErrNameTaken)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return event, nil
}

// GetEvent retrieves an event by its code.
func (s *SQLiteStore) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	event := &models.Event{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM events WHERE id = ?",
		eventID,
	).Scan(&event.ID, &event.Name, &event.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, notFound("event", eventID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

// RenameEvent changes the event name.
func (s *SQLiteStore) RenameEvent(ctx context.Context, eventID, name string) (*models.Event, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE events SET name = ? WHERE id = ?", name, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to rename event: %w", err)
	}
	if err := requireAffected(res, "event", eventID); err != nil {
		return nil, err
	}
	return s.GetEvent(ctx, eventID)
}

// TouchRecentEvent records a visit, moving the event to the top of the
// visitor's recent list.
func (s *SQLiteStore) TouchRecentEvent(ctx context.Context, visitorID, eventID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO visits (visitor_id, event_id, visited_at) VALUES (?, ?, ?)
		 ON CONFLICT (visitor_id, event_id) DO UPDATE SET visited_at = excluded.visited_at`,
		visitorID, eventID, s.timestamp(),
	)
	if err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}
	return nil
}

// ListRecentEvents returns the visitor's events, most recent first.
func (s *SQLiteStore) ListRecentEvents(ctx context.Context, visitorID string) ([]models.RecentEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.name, v.visited_at
		 FROM visits v JOIN events e ON e.id = v.event_id
		 WHERE v.visitor_id = ?
		 ORDER BY v.visited_at DESC, e.id`,
		visitorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent events: %w", err)
	}
	defer rows.Close()

	recent := []models.RecentEvent{}
	for rows.Next() {
		var r models.RecentEvent
		if err := rows.Scan(&r.ID, &r.Name, &r.VisitedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recent event: %w", err)
		}
		recent = append(recent, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recent events: %w", err)
	}
	return recent, nil
}

// ForgetRecentEvent removes an event from the visitor's list. Forgetting an
// event that is not listed is not an error.
func (s *SQLiteStore) ForgetRecentEvent(ctx context.Context, visitorID, eventID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM visits WHERE visitor_id = ? AND event_id = ?",
		visitorID, eventID,
	)
	if err != nil {
		return fmt.Errorf("failed to forget recent event: %w", err)
	}
	return nil
}
