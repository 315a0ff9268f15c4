package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mmynk/sunio/internal/api"
	"github.com/mmynk/sunio/internal/models"
)

var (
	ErrNoSession   = errors.New("no active event")
	ErrNotLoggedIn = errors.New("no participant signed in")
	ErrNotSettled  = errors.New("settlement has no recorded payment")
)

// ErrSessionChanged is returned when the event changed while a sign-in call
// was in flight. The result is dropped.
var ErrSessionChanged = errors.New("event changed during the call")

// Mutations calls the API on behalf of the session and invalidates the
// resources each successful call affects. Failed calls invalidate nothing;
// their errors are returned unchanged.
type Mutations struct {
	reg    *Registry
	client api.Client
	logger *slog.Logger
}

// NewMutations returns the mutation coordinator of r.
func NewMutations(r *Registry) *Mutations {
	return &Mutations{
		reg:    r,
		client: r.client,
		logger: r.logger.With("component", "mutations"),
	}
}

func (m *Mutations) settle(op string, err error) error {
	if err != nil {
		m.logger.Warn("mutation failed", "op", op, "error", err)
	} else {
		m.logger.Debug("mutation done", "op", op)
	}
	if m.reg.recorder != nil {
		m.reg.recorder.MutationSettled(op, err)
	}
	return err
}

func (m *Mutations) eventID() (string, error) {
	id, ok := m.reg.SessionKey()
	if !ok {
		return "", ErrNoSession
	}
	return id, nil
}

// signedIn returns the event id and a context carrying the participant token.
func (m *Mutations) signedIn(ctx context.Context) (context.Context, string, error) {
	eventID, err := m.eventID()
	if err != nil {
		return ctx, "", err
	}
	id, ok := m.reg.Identity()
	if !ok {
		return ctx, "", ErrNotLoggedIn
	}
	return api.WithToken(ctx, id.Token), eventID, nil
}

// CreateEvent creates an event and makes it the session.
func (m *Mutations) CreateEvent(ctx context.Context, name string, participants []string) (string, error) {
	eventID, err := m.client.CreateEvent(ctx, name, participants)
	if err := m.settle("create_event", err); err != nil {
		return "", err
	}
	m.reg.SetSessionKey(eventID)
	return eventID, nil
}

// RenameEvent renames the active event.
func (m *Mutations) RenameEvent(ctx context.Context, name string) error {
	eventID, err := m.eventID()
	if err != nil {
		return err
	}
	_, err = m.client.RenameEvent(ctx, eventID, name)
	if err := m.settle("rename_event", err); err != nil {
		return err
	}
	m.reg.sched.Batch(func() {
		m.reg.ReloadEvent()
		m.reg.drawer.Close()
	})
	return nil
}

// AddParticipant joins the active event as a new participant and signs in
// as them.
func (m *Mutations) AddParticipant(ctx context.Context, name, pin string) (Identity, error) {
	eventID, err := m.eventID()
	if err != nil {
		return Identity{}, err
	}
	creds, err := m.client.CreateParticipant(ctx, eventID, name, pin)
	if err := m.settle("add_participant", err); err != nil {
		return Identity{}, err
	}
	id := Identity{Participant: creds.Participant, Token: creds.Token}
	if !m.reg.applyFor(eventID, func() {
		m.reg.SetIdentity(&id)
		m.reg.ReloadParticipants()
		m.reg.drawer.Close()
	}) {
		m.logger.Warn("dropping sign-in for previous event", "op", "add_participant", "event_id", eventID)
		return Identity{}, ErrSessionChanged
	}
	return id, nil
}

// RenameParticipant renames a participant. The signed-in identity follows
// the new name.
func (m *Mutations) RenameParticipant(ctx context.Context, participantID, name string) error {
	eventID, err := m.eventID()
	if err != nil {
		return err
	}
	p, err := m.client.RenameParticipant(ctx, eventID, participantID, name)
	if err := m.settle("rename_participant", err); err != nil {
		return err
	}
	m.reg.sched.Batch(func() {
		if id, ok := m.reg.Identity(); ok && id.Participant.ID == p.ID {
			id.Participant = p
			m.reg.SetIdentity(&id)
		}
		m.reg.ReloadParticipants()
	})
	return nil
}

// DeleteParticipant removes a participant. Their expenses go with them, so
// the financial resources are reloaded too.
func (m *Mutations) DeleteParticipant(ctx context.Context, participantID string) error {
	eventID, err := m.eventID()
	if err != nil {
		return err
	}
	err = m.client.DeleteParticipant(ctx, eventID, participantID)
	if err := m.settle("delete_participant", err); err != nil {
		return err
	}
	m.reg.sched.Batch(func() {
		if id, ok := m.reg.Identity(); ok && id.Participant.ID == participantID {
			m.reg.SetIdentity(nil)
		}
		m.reg.ReloadParticipants()
		m.reg.ReloadAll()
	})
	return nil
}

// Login signs in as participantID. A participant without a PIN sets pin as
// their PIN instead.
func (m *Mutations) Login(ctx context.Context, participantID, pin string) (Identity, error) {
	eventID, err := m.eventID()
	if err != nil {
		return Identity{}, err
	}

	firstPin := false
	participants, _ := m.reg.participants.Value()
	for _, p := range participants {
		if p.ID == participantID {
			firstPin = !p.HasPin
			break
		}
	}

	var creds api.Credentials
	if firstPin {
		creds, err = m.client.SetParticipantPin(ctx, eventID, participantID, pin)
	} else {
		creds, err = m.client.Login(ctx, eventID, participantID, pin)
	}
	if err := m.settle("login", err); err != nil {
		return Identity{}, err
	}

	id := Identity{Participant: creds.Participant, Token: creds.Token}
	if !m.reg.applyFor(eventID, func() {
		m.reg.SetIdentity(&id)
		if firstPin {
			m.reg.ReloadParticipants()
		}
	}) {
		m.logger.Warn("dropping sign-in for previous event", "op", "login", "event_id", eventID)
		return Identity{}, ErrSessionChanged
	}
	return id, nil
}

// CreateExpense records a new expense.
func (m *Mutations) CreateExpense(ctx context.Context, in api.ExpenseInput) (models.Expense, error) {
	ctx, eventID, err := m.signedIn(ctx)
	if err != nil {
		return models.Expense{}, err
	}
	exp, err := m.client.CreateExpense(ctx, eventID, in)
	if err := m.settle("create_expense", err); err != nil {
		return models.Expense{}, err
	}
	m.reg.sched.Batch(func() {
		m.reg.ReloadAll()
		m.reg.drawer.Close()
	})
	return exp, nil
}

// UpdateExpense replaces the fields of an expense and clears the edit target.
func (m *Mutations) UpdateExpense(ctx context.Context, expenseID string, in api.ExpenseInput) (models.Expense, error) {
	ctx, eventID, err := m.signedIn(ctx)
	if err != nil {
		return models.Expense{}, err
	}
	exp, err := m.client.UpdateExpense(ctx, eventID, expenseID, in)
	if err := m.settle("update_expense", err); err != nil {
		return models.Expense{}, err
	}
	m.reg.sched.Batch(func() {
		m.reg.SetExpenseToEdit("")
		m.reg.ReloadAll()
		m.reg.drawer.Close()
	})
	return exp, nil
}

// DeleteExpense removes an expense. It stops being the edit target.
func (m *Mutations) DeleteExpense(ctx context.Context, expenseID string) error {
	ctx, eventID, err := m.signedIn(ctx)
	if err != nil {
		return err
	}
	err = m.client.DeleteExpense(ctx, eventID, expenseID)
	if err := m.settle("delete_expense", err); err != nil {
		return err
	}
	m.reg.sched.Batch(func() {
		if e, ok := m.reg.ExpenseToEdit(); ok && e.ID == expenseID {
			m.reg.SetExpenseToEdit("")
		}
		m.reg.ReloadAll()
	})
	return nil
}

// SaveDraft creates or updates the expense described by d.
func (m *Mutations) SaveDraft(ctx context.Context, d *ExpenseDraft) (models.Expense, error) {
	in, err := d.Input()
	if err != nil {
		return models.Expense{}, err
	}
	if target, ok := m.reg.ExpenseToEdit(); ok {
		exp, err := m.UpdateExpense(ctx, target.ID, in)
		if err == nil {
			d.Reset()
		}
		return exp, err
	}
	exp, err := m.CreateExpense(ctx, in)
	if err == nil {
		d.Reset()
	}
	return exp, err
}

// RegisterPayment records the payment that settles s.
func (m *Mutations) RegisterPayment(ctx context.Context, s models.Settlement) (models.Payment, error) {
	ctx, eventID, err := m.signedIn(ctx)
	if err != nil {
		return models.Payment{}, err
	}
	p, err := m.client.CreatePayment(ctx, eventID, api.PaymentInput{From: s.From, To: s.To, Amount: s.Amount})
	if err := m.settle("register_payment", err); err != nil {
		return models.Payment{}, err
	}
	m.reloadPayments()
	return p, nil
}

// RemovePayment deletes the payment recorded for s.
func (m *Mutations) RemovePayment(ctx context.Context, s models.Settlement) error {
	if !s.Settled() {
		return ErrNotSettled
	}
	ctx, eventID, err := m.signedIn(ctx)
	if err != nil {
		return err
	}
	err = m.client.DeletePayment(ctx, eventID, s.PaymentID)
	if err := m.settle("remove_payment", err); err != nil {
		return err
	}
	m.reloadPayments()
	return nil
}

func (m *Mutations) reloadPayments() {
	m.reg.sched.Batch(func() {
		m.reg.ReloadSettlements()
		m.reg.ReloadBalances()
		m.reg.ReloadPayments()
	})
}

// ForgetRecentEvent drops an event from the visitor's recent list.
func (m *Mutations) ForgetRecentEvent(ctx context.Context, eventID string) error {
	_, err := m.client.ForgetRecentEvent(ctx, eventID)
	if err := m.settle("forget_recent_event", err); err != nil {
		return err
	}
	m.reg.ReloadRecentEvents()
	return nil
}

// RefreshAll reloads the financial resources and closes the drawer.
func (m *Mutations) RefreshAll() {
	m.reg.sched.Batch(func() {
		m.reg.ReloadAll()
		m.reg.drawer.Close()
	})
}
