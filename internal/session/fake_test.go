package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mmynk/sunio/internal/api"
	"github.com/mmynk/sunio/internal/models"
	"github.com/mmynk/sunio/internal/reactive"
)

// fakeClient serves in-memory event data. Fetches for an event can be held
// until the test releases them, and any operation can be made to fail.
type fakeClient struct {
	mu sync.Mutex

	events       map[string]models.Event
	participants map[string][]models.Participant
	expenses     map[string][]models.Expense
	balances     map[string]map[string]float64
	settlements  map[string][]models.Settlement
	payments     map[string][]models.Payment
	recent       []models.RecentEvent

	calls  map[string]int
	tokens map[string]string
	fail   map[string]error
	hold   map[string]chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		events:       make(map[string]models.Event),
		participants: make(map[string][]models.Participant),
		expenses:     make(map[string][]models.Expense),
		balances:     make(map[string]map[string]float64),
		settlements:  make(map[string][]models.Settlement),
		payments:     make(map[string][]models.Payment),
		calls:        make(map[string]int),
		tokens:       make(map[string]string),
		fail:         make(map[string]error),
		hold:         make(map[string]chan struct{}),
	}
}

// seed installs a two-participant event.
func (f *fakeClient) seed(eventID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[eventID] = models.Event{ID: eventID, Name: "Trip " + eventID}
	f.participants[eventID] = []models.Participant{
		{ID: "p1", EventID: eventID, Name: "Ana", HasPin: true},
		{ID: "p2", EventID: eventID, Name: "Luis"},
	}
	f.expenses[eventID] = []models.Expense{
		{ID: "e1", EventID: eventID, PayerID: "p1", Amount: 24.69, Consumers: []string{"p1", "p2"}, Description: "Dinner " + eventID},
	}
	f.balances[eventID] = map[string]float64{"p1": 12.345, "p2": -12.345}
	f.settlements[eventID] = []models.Settlement{{From: "p2", To: "p1", Amount: 12.35}}
}

func (f *fakeClient) holdEvent(eventID string) {
	f.mu.Lock()
	f.hold[eventID] = make(chan struct{})
	f.mu.Unlock()
}

func (f *fakeClient) release(eventID string) {
	f.mu.Lock()
	ch := f.hold[eventID]
	delete(f.hold, eventID)
	f.mu.Unlock()
	if ch != nil {
		close(ch)
	}
}

func (f *fakeClient) failNext(op string, err error) {
	f.mu.Lock()
	f.fail[op] = err
	f.mu.Unlock()
}

func (f *fakeClient) count(op, eventID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op+":"+eventID]
}

func (f *fakeClient) token(op string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokens[op]
}

// enter records a call, waits while the event is held and returns the
// injected failure, if any.
func (f *fakeClient) enter(ctx context.Context, op, eventID string) error {
	f.mu.Lock()
	f.calls[op+":"+eventID]++
	f.tokens[op] = api.TokenFromContext(ctx)
	ch := f.hold[eventID]
	err := f.fail[op]
	delete(f.fail, op)
	f.mu.Unlock()

	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeClient) ListRecentEvents(ctx context.Context) ([]models.RecentEvent, error) {
	if err := f.enter(ctx, "recent", ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.RecentEvent(nil), f.recent...), nil
}

func (f *fakeClient) ForgetRecentEvent(ctx context.Context, eventID string) ([]models.RecentEvent, error) {
	if err := f.enter(ctx, "forget", eventID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.recent[:0]
	for _, r := range f.recent {
		if r.ID != eventID {
			kept = append(kept, r)
		}
	}
	f.recent = kept
	return append([]models.RecentEvent(nil), kept...), nil
}

func (f *fakeClient) CreateEvent(ctx context.Context, name string, participants []string) (string, error) {
	if err := f.enter(ctx, "create_event", ""); err != nil {
		return "", err
	}
	id := "evt-new"
	f.seed(id)
	return id, nil
}

func (f *fakeClient) GetEvent(ctx context.Context, eventID string) (models.Event, error) {
	if err := f.enter(ctx, "event", eventID); err != nil {
		return models.Event{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[eventID]
	if !ok {
		return models.Event{}, api.ErrNotFound
	}
	return e, nil
}

func (f *fakeClient) RenameEvent(ctx context.Context, eventID, name string) (models.Event, error) {
	if err := f.enter(ctx, "rename_event", eventID); err != nil {
		return models.Event{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.events[eventID]
	e.Name = name
	f.events[eventID] = e
	return e, nil
}

func (f *fakeClient) ListParticipants(ctx context.Context, eventID string) ([]models.Participant, error) {
	if err := f.enter(ctx, "participants", eventID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Participant(nil), f.participants[eventID]...), nil
}

func (f *fakeClient) CreateParticipant(ctx context.Context, eventID, name, pin string) (api.Credentials, error) {
	if err := f.enter(ctx, "create_participant", eventID); err != nil {
		return api.Credentials{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := models.Participant{ID: fmt.Sprintf("p%d", len(f.participants[eventID])+1), EventID: eventID, Name: name, HasPin: true}
	f.participants[eventID] = append(f.participants[eventID], p)
	return api.Credentials{Participant: p, Token: "token-" + p.ID}, nil
}

func (f *fakeClient) RenameParticipant(ctx context.Context, eventID, participantID, name string) (models.Participant, error) {
	if err := f.enter(ctx, "rename_participant", eventID); err != nil {
		return models.Participant{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.participants[eventID] {
		if p.ID == participantID {
			f.participants[eventID][i].Name = name
			return f.participants[eventID][i], nil
		}
	}
	return models.Participant{}, api.ErrNotFound
}

func (f *fakeClient) SetParticipantPin(ctx context.Context, eventID, participantID, pin string) (api.Credentials, error) {
	if err := f.enter(ctx, "set_pin", eventID); err != nil {
		return api.Credentials{}, err
	}
	return f.credentials(eventID, participantID, true)
}

func (f *fakeClient) Login(ctx context.Context, eventID, participantID, pin string) (api.Credentials, error) {
	if err := f.enter(ctx, "login", eventID); err != nil {
		return api.Credentials{}, err
	}
	return f.credentials(eventID, participantID, false)
}

func (f *fakeClient) credentials(eventID, participantID string, setPin bool) (api.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.participants[eventID] {
		if p.ID == participantID {
			if setPin {
				f.participants[eventID][i].HasPin = true
			}
			return api.Credentials{Participant: f.participants[eventID][i], Token: "token-" + p.ID}, nil
		}
	}
	return api.Credentials{}, api.ErrNotFound
}

func (f *fakeClient) DeleteParticipant(ctx context.Context, eventID, participantID string) error {
	if err := f.enter(ctx, "delete_participant", eventID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.Participant
	for _, p := range f.participants[eventID] {
		if p.ID != participantID {
			kept = append(kept, p)
		}
	}
	f.participants[eventID] = kept
	return nil
}

func (f *fakeClient) ListExpenses(ctx context.Context, eventID string) ([]models.Expense, error) {
	if err := f.enter(ctx, "expenses", eventID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Expense(nil), f.expenses[eventID]...), nil
}

func (f *fakeClient) CreateExpense(ctx context.Context, eventID string, in api.ExpenseInput) (models.Expense, error) {
	if err := f.enter(ctx, "create_expense", eventID); err != nil {
		return models.Expense{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	e := models.Expense{
		ID: fmt.Sprintf("e%d", len(f.expenses[eventID])+1), EventID: eventID,
		PayerID: in.PayerID, Amount: in.Amount, Consumers: in.Consumers, Description: in.Description,
	}
	f.expenses[eventID] = append(f.expenses[eventID], e)
	return e, nil
}

func (f *fakeClient) UpdateExpense(ctx context.Context, eventID, expenseID string, in api.ExpenseInput) (models.Expense, error) {
	if err := f.enter(ctx, "update_expense", eventID); err != nil {
		return models.Expense{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.expenses[eventID] {
		if e.ID == expenseID {
			e.PayerID, e.Amount, e.Consumers, e.Description = in.PayerID, in.Amount, in.Consumers, in.Description
			f.expenses[eventID][i] = e
			return e, nil
		}
	}
	return models.Expense{}, api.ErrNotFound
}

func (f *fakeClient) DeleteExpense(ctx context.Context, eventID, expenseID string) error {
	if err := f.enter(ctx, "delete_expense", eventID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.Expense
	for _, e := range f.expenses[eventID] {
		if e.ID != expenseID {
			kept = append(kept, e)
		}
	}
	f.expenses[eventID] = kept
	return nil
}

func (f *fakeClient) GetBalances(ctx context.Context, eventID string) (map[string]float64, error) {
	if err := f.enter(ctx, "balances", eventID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]float64, len(f.balances[eventID]))
	for k, v := range f.balances[eventID] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeClient) ListSettlements(ctx context.Context, eventID string) ([]models.Settlement, error) {
	if err := f.enter(ctx, "settlements", eventID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Settlement(nil), f.settlements[eventID]...), nil
}

func (f *fakeClient) ListPayments(ctx context.Context, eventID string) ([]models.Payment, error) {
	if err := f.enter(ctx, "payments", eventID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Payment(nil), f.payments[eventID]...), nil
}

func (f *fakeClient) CreatePayment(ctx context.Context, eventID string, in api.PaymentInput) (models.Payment, error) {
	if err := f.enter(ctx, "create_payment", eventID); err != nil {
		return models.Payment{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := models.Payment{ID: "pay1", EventID: eventID, From: in.From, To: in.To, Amount: in.Amount}
	f.payments[eventID] = append(f.payments[eventID], p)
	for i, s := range f.settlements[eventID] {
		if s.From == in.From && s.To == in.To {
			f.settlements[eventID][i].PaymentID = p.ID
		}
	}
	return p, nil
}

func (f *fakeClient) DeletePayment(ctx context.Context, eventID, paymentID string) error {
	if err := f.enter(ctx, "delete_payment", eventID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[eventID] = nil
	for i := range f.settlements[eventID] {
		if f.settlements[eventID][i].PaymentID == paymentID {
			f.settlements[eventID][i].PaymentID = ""
		}
	}
	return nil
}

// recorder counts every outcome the registry reports.
type recorder struct {
	mu        sync.Mutex
	settled   map[string]int
	stale     map[string]int
	drawer    []string
	mutations map[string]error
}

func newRecorder() *recorder {
	return &recorder{
		settled:   make(map[string]int),
		stale:     make(map[string]int),
		mutations: make(map[string]error),
	}
}

func (r *recorder) FetchSettled(resource string, _ error) {
	r.mu.Lock()
	r.settled[resource]++
	r.mu.Unlock()
}

func (r *recorder) StaleDiscarded(resource string) {
	r.mu.Lock()
	r.stale[resource]++
	r.mu.Unlock()
}

func (r *recorder) Transition(kind string) {
	r.mu.Lock()
	r.drawer = append(r.drawer, kind)
	r.mu.Unlock()
}

func (r *recorder) MutationSettled(op string, err error) {
	r.mu.Lock()
	r.mutations[op] = err
	r.mu.Unlock()
}

func (r *recorder) staleCount(resource string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stale[resource]
}

const (
	waitTimeout = time.Second
	waitTick    = time.Millisecond
)

func newTestRegistry(t *testing.T, client api.Client, opts ...Option) *Registry {
	t.Helper()
	r := New(client, append([]Option{WithDrawerDelay(0)}, opts...)...)
	t.Cleanup(r.Close)
	return r
}

func waitLoaded[K comparable, T any](t *testing.T, res *reactive.Resource[K, T]) {
	t.Helper()
	require.Eventually(t, func() bool { return res.Status() == reactive.StatusLoaded }, waitTimeout, waitTick,
		"%s did not load", res.Name())
}

// openSession sets the session key and waits for every keyed resource.
func openSession(t *testing.T, r *Registry, eventID string) {
	t.Helper()
	r.SetSessionKey(eventID)
	waitLoaded(t, r.Event())
	waitLoaded(t, r.Participants())
	waitLoaded(t, r.Expenses())
	waitLoaded(t, r.Balances())
	waitLoaded(t, r.Settlements())
	waitLoaded(t, r.Payments())
}

func signIn(r *Registry, participantID string) {
	r.SetIdentity(&Identity{
		Participant: models.Participant{ID: participantID},
		Token:       "token-" + participantID,
	})
}
