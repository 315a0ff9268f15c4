package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmynk/sunio/internal/models"
	"github.com/mmynk/sunio/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// participantByName finds a participant created with the event.
func participantByName(t *testing.T, store *SQLiteStore, eventID, name string) models.Participant {
	t.Helper()
	participants, err := store.ListParticipants(context.Background(), eventID)
	if err != nil {
		t.Fatalf("ListParticipants failed: %v", err)
	}
	for _, p := range participants {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("participant %q not found", name)
	return models.Participant{}
}

func TestEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateEvent generates a code and admin", func(t *testing.T) {
		event, err := store.CreateEvent(ctx, "Trip", []string{"Ana", "Luis"})
		if err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
		if len(event.ID) != eventCodeLength {
			t.Errorf("Expected a %d character code, got %q", eventCodeLength, event.ID)
		}

		participants, err := store.ListParticipants(ctx, event.ID)
		if err != nil {
			t.Fatalf("ListParticipants failed: %v", err)
		}
		if len(participants) != 2 {
			t.Fatalf("Expected 2 participants, got %d", len(participants))
		}
		if !participants[0].IsAdmin || participants[1].IsAdmin {
			t.Errorf("Expected only the first participant to be admin: %+v", participants)
		}
		if participants[0].HasPin {
			t.Error("Expected no PIN on a new participant")
		}
	})

	t.Run("CreateEvent rejects duplicate names", func(t *testing.T) {
		_, err := store.CreateEvent(ctx, "Trip", []string{"Ana", "ana"})
		if !errors.Is(err, storage.ErrNameTaken) {
			t.Errorf("Expected ErrNameTaken, got %v", err)
		}
	})

	t.Run("RenameEvent persists the name", func(t *testing.T) {
		event, _ := store.CreateEvent(ctx, "Old", nil)
		if _, err := store.RenameEvent(ctx, event.ID, "New"); err != nil {
			t.Fatalf("RenameEvent failed: %v", err)
		}
		got, err := store.GetEvent(ctx, event.ID)
		if err != nil {
			t.Fatalf("GetEvent failed: %v", err)
		}
		if got.Name != "New" {
			t.Errorf("Name mismatch: got %s, want New", got.Name)
		}
	})

	t.Run("Unknown events are not found", func(t *testing.T) {
		if _, err := store.GetEvent(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("GetEvent: expected ErrNotFound, got %v", err)
		}
		if _, err := store.RenameEvent(ctx, "missing", "x"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("RenameEvent: expected ErrNotFound, got %v", err)
		}
		if _, err := store.CreateParticipant(ctx, "missing", "x", ""); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("CreateParticipant: expected ErrNotFound, got %v", err)
		}
	})
}

func TestParticipants(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	event, err := store.CreateEvent(ctx, "Flat", []string{"Ana"})
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	t.Run("CreateParticipant stores the PIN hash", func(t *testing.T) {
		p, err := store.CreateParticipant(ctx, event.ID, "Luis", "hash")
		if err != nil {
			t.Fatalf("CreateParticipant failed: %v", err)
		}
		if !p.HasPin {
			t.Error("Expected HasPin")
		}
		hash, err := store.PinHash(ctx, event.ID, p.ID)
		if err != nil {
			t.Fatalf("PinHash failed: %v", err)
		}
		if hash != "hash" {
			t.Errorf("Hash mismatch: got %q", hash)
		}
	})

	t.Run("SetPinHash sets HasPin", func(t *testing.T) {
		ana := participantByName(t, store, event.ID, "Ana")
		if err := store.SetPinHash(ctx, event.ID, ana.ID, "other"); err != nil {
			t.Fatalf("SetPinHash failed: %v", err)
		}
		got, err := store.GetParticipant(ctx, event.ID, ana.ID)
		if err != nil {
			t.Fatalf("GetParticipant failed: %v", err)
		}
		if !got.HasPin {
			t.Error("Expected HasPin after SetPinHash")
		}
	})

	t.Run("RenameParticipant rejects a taken name", func(t *testing.T) {
		luis := participantByName(t, store, event.ID, "Luis")
		if _, err := store.RenameParticipant(ctx, event.ID, luis.ID, "ANA"); !errors.Is(err, storage.ErrNameTaken) {
			t.Errorf("Expected ErrNameTaken, got %v", err)
		}
		p, err := store.RenameParticipant(ctx, event.ID, luis.ID, "Lucho")
		if err != nil {
			t.Fatalf("RenameParticipant failed: %v", err)
		}
		if p.Name != "Lucho" {
			t.Errorf("Name mismatch: got %s", p.Name)
		}
	})

	t.Run("Participants are scoped to their event", func(t *testing.T) {
		other, _ := store.CreateEvent(ctx, "Other", nil)
		ana := participantByName(t, store, event.ID, "Ana")
		if _, err := store.GetParticipant(ctx, other.ID, ana.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		if err := store.DeleteParticipant(ctx, other.ID, ana.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestExpenses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	event, _ := store.CreateEvent(ctx, "Dinner", []string{"Ana", "Luis", "Marta"})
	ana := participantByName(t, store, event.ID, "Ana")
	luis := participantByName(t, store, event.ID, "Luis")
	marta := participantByName(t, store, event.ID, "Marta")

	expense := &models.Expense{
		EventID:     event.ID,
		PayerID:     ana.ID,
		Amount:      30,
		Consumers:   []string{marta.ID, ana.ID, luis.ID},
		Description: "Pizza",
	}

	t.Run("CreateExpense keeps consumer order", func(t *testing.T) {
		if err := store.CreateExpense(ctx, expense); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if expense.ID == "" || expense.CreatedAt == 0 {
			t.Fatalf("Expected ID and CreatedAt to be set: %+v", expense)
		}

		expenses, err := store.ListExpenses(ctx, event.ID)
		if err != nil {
			t.Fatalf("ListExpenses failed: %v", err)
		}
		if len(expenses) != 1 {
			t.Fatalf("Expected 1 expense, got %d", len(expenses))
		}
		got := expenses[0]
		if got.Amount != 30 || got.Description != "Pizza" || got.PayerID != ana.ID {
			t.Errorf("Expense mismatch: %+v", got)
		}
		want := []string{marta.ID, ana.ID, luis.ID}
		for i := range want {
			if got.Consumers[i] != want[i] {
				t.Fatalf("Consumers mismatch: got %v, want %v", got.Consumers, want)
			}
		}
	})

	t.Run("UpdateExpense replaces consumers", func(t *testing.T) {
		update := *expense
		update.Amount = 12.5
		update.Consumers = []string{luis.ID}
		update.CreatedAt = 0
		if err := store.UpdateExpense(ctx, &update); err != nil {
			t.Fatalf("UpdateExpense failed: %v", err)
		}
		if update.CreatedAt != expense.CreatedAt {
			t.Errorf("Expected CreatedAt to be read back, got %d", update.CreatedAt)
		}

		expenses, _ := store.ListExpenses(ctx, event.ID)
		if len(expenses[0].Consumers) != 1 || expenses[0].Consumers[0] != luis.ID {
			t.Errorf("Consumers mismatch: %v", expenses[0].Consumers)
		}
		if expenses[0].Amount != 12.5 {
			t.Errorf("Amount mismatch: got %f", expenses[0].Amount)
		}
	})

	t.Run("UpdateExpense of another event is not found", func(t *testing.T) {
		update := *expense
		update.EventID = "other"
		if err := store.UpdateExpense(ctx, &update); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("DeleteExpense removes it", func(t *testing.T) {
		if err := store.DeleteExpense(ctx, event.ID, expense.ID); err != nil {
			t.Fatalf("DeleteExpense failed: %v", err)
		}
		if err := store.DeleteExpense(ctx, event.ID, expense.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound on second delete, got %v", err)
		}
		expenses, _ := store.ListExpenses(ctx, event.ID)
		if len(expenses) != 0 {
			t.Errorf("Expected no expenses, got %d", len(expenses))
		}
	})
}

func TestDeleteParticipantCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	event, _ := store.CreateEvent(ctx, "Trip", []string{"Ana", "Luis", "Marta"})
	ana := participantByName(t, store, event.ID, "Ana")
	luis := participantByName(t, store, event.ID, "Luis")
	marta := participantByName(t, store, event.ID, "Marta")

	paidByLuis := &models.Expense{EventID: event.ID, PayerID: luis.ID, Amount: 10, Consumers: []string{ana.ID}}
	onlyLuis := &models.Expense{EventID: event.ID, PayerID: ana.ID, Amount: 20, Consumers: []string{luis.ID}}
	shared := &models.Expense{EventID: event.ID, PayerID: ana.ID, Amount: 30, Consumers: []string{luis.ID, marta.ID}}
	for _, e := range []*models.Expense{paidByLuis, onlyLuis, shared} {
		if err := store.CreateExpense(ctx, e); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
	}
	payment := &models.Payment{EventID: event.ID, From: luis.ID, To: ana.ID, Amount: 5}
	if err := store.CreatePayment(ctx, payment); err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	if err := store.DeleteParticipant(ctx, event.ID, luis.ID); err != nil {
		t.Fatalf("DeleteParticipant failed: %v", err)
	}

	expenses, err := store.ListExpenses(ctx, event.ID)
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(expenses) != 1 || expenses[0].ID != shared.ID {
		t.Fatalf("Expected only the shared expense to remain, got %+v", expenses)
	}
	if len(expenses[0].Consumers) != 1 || expenses[0].Consumers[0] != marta.ID {
		t.Errorf("Consumers mismatch: %v", expenses[0].Consumers)
	}

	payments, _ := store.ListPayments(ctx, event.ID)
	if len(payments) != 0 {
		t.Errorf("Expected payments to be removed, got %d", len(payments))
	}
}

func TestPayments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	event, _ := store.CreateEvent(ctx, "Trip", []string{"Ana", "Luis"})
	ana := participantByName(t, store, event.ID, "Ana")
	luis := participantByName(t, store, event.ID, "Luis")

	payment := &models.Payment{EventID: event.ID, From: luis.ID, To: ana.ID, Amount: 12.35}
	if err := store.CreatePayment(ctx, payment); err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	payments, err := store.ListPayments(ctx, event.ID)
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if len(payments) != 1 || payments[0] != *payment {
		t.Fatalf("Payment mismatch: got %+v, want %+v", payments, *payment)
	}

	if err := store.DeletePayment(ctx, "other", payment.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for another event, got %v", err)
	}
	if err := store.DeletePayment(ctx, event.ID, payment.ID); err != nil {
		t.Fatalf("DeletePayment failed: %v", err)
	}
}

func TestRecentEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	clock := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return clock }

	first, _ := store.CreateEvent(ctx, "First", nil)
	second, _ := store.CreateEvent(ctx, "Second", nil)

	visit := func(eventID string) {
		t.Helper()
		clock = clock.Add(time.Minute)
		if err := store.TouchRecentEvent(ctx, "visitor", eventID); err != nil {
			t.Fatalf("TouchRecentEvent failed: %v", err)
		}
	}

	recent, err := store.ListRecentEvents(ctx, "visitor")
	if err != nil {
		t.Fatalf("ListRecentEvents failed: %v", err)
	}
	if recent == nil || len(recent) != 0 {
		t.Fatalf("Expected an empty list, got %v", recent)
	}

	visit(first.ID)
	visit(second.ID)
	visit(first.ID)

	recent, _ = store.ListRecentEvents(ctx, "visitor")
	if len(recent) != 2 || recent[0].ID != first.ID || recent[1].ID != second.ID {
		t.Fatalf("Order mismatch: %+v", recent)
	}
	if recent[0].Name != "First" {
		t.Errorf("Name mismatch: got %s", recent[0].Name)
	}

	if others, _ := store.ListRecentEvents(ctx, "someone-else"); len(others) != 0 {
		t.Errorf("Expected visits to be per visitor, got %v", others)
	}

	if err := store.ForgetRecentEvent(ctx, "visitor", first.ID); err != nil {
		t.Fatalf("ForgetRecentEvent failed: %v", err)
	}
	if err := store.ForgetRecentEvent(ctx, "visitor", first.ID); err != nil {
		t.Fatalf("Forgetting twice should not fail: %v", err)
	}
	recent, _ = store.ListRecentEvents(ctx, "visitor")
	if len(recent) != 1 || recent[0].ID != second.ID {
		t.Errorf("Expected only the second event, got %+v", recent)
	}
}
