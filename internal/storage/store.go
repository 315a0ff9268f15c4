// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/sunio/internal/models"
)

var (
	// ErrNotFound is returned when the addressed row does not exist in the event.
	ErrNotFound = errors.New("not found")
	// ErrNameTaken is returned when a participant name is already used in the event.
	ErrNameTaken = errors.New("name already taken")
)

// Store defines the persistence operations of the reference server.
// Every participant, expense and payment operation is scoped to an event:
// addressing a row of another event behaves as if it did not exist.
type Store interface {
	// CreateEvent persists a new event with its first participants and
	// returns it with a generated short code as ID.
	CreateEvent(ctx context.Context, name string, participants []string) (*models.Event, error)
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	RenameEvent(ctx context.Context, eventID, name string) (*models.Event, error)

	ListParticipants(ctx context.Context, eventID string) ([]models.Participant, error)
	GetParticipant(ctx context.Context, eventID, participantID string) (*models.Participant, error)
	// CreateParticipant adds a participant. pinHash may be empty.
	CreateParticipant(ctx context.Context, eventID, name, pinHash string) (*models.Participant, error)
	RenameParticipant(ctx context.Context, eventID, participantID, name string) (*models.Participant, error)
	// PinHash returns the stored hash, or "" if the participant has no PIN.
	PinHash(ctx context.Context, eventID, participantID string) (string, error)
	SetPinHash(ctx context.Context, eventID, participantID, pinHash string) error
	// DeleteParticipant removes the participant together with the expenses
	// they paid, the payments they took part in and any expense left without
	// consumers.
	DeleteParticipant(ctx context.Context, eventID, participantID string) error

	ListExpenses(ctx context.Context, eventID string) ([]models.Expense, error)
	// CreateExpense fills in ID and CreatedAt.
	CreateExpense(ctx context.Context, expense *models.Expense) error
	// UpdateExpense replaces payer, amount, consumers and description.
	UpdateExpense(ctx context.Context, expense *models.Expense) error
	DeleteExpense(ctx context.Context, eventID, expenseID string) error

	ListPayments(ctx context.Context, eventID string) ([]models.Payment, error)
	// CreatePayment fills in ID and CreatedAt.
	CreatePayment(ctx context.Context, payment *models.Payment) error
	DeletePayment(ctx context.Context, eventID, paymentID string) error

	// TouchRecentEvent records that visitorID opened eventID.
	TouchRecentEvent(ctx context.Context, visitorID, eventID string) error
	// ListRecentEvents returns the visitor's events, most recent first.
	ListRecentEvents(ctx context.Context, visitorID string) ([]models.RecentEvent, error)
	ForgetRecentEvent(ctx context.Context, visitorID, eventID string) error

	// Close releases any resources held by the store.
	Close() error
}
