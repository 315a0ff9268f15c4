// Package session holds the client-side state of one expense-sharing session:
// the active event code, the signed-in participant, one async resource per
// entity collection, derived values computed from them and the shared drawer.
//
// A Registry is constructed explicitly at session start and closed at session
// end. It is the single writer of its resources; everything else reads them
// or calls the registry's reload and setter methods.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/sunio/internal/api"
	"github.com/mmynk/sunio/internal/drawer"
	"github.com/mmynk/sunio/internal/models"
	"github.com/mmynk/sunio/internal/reactive"
)

// DefaultFetchTimeout bounds a single resource fetch.
const DefaultFetchTimeout = 10 * time.Second

// Tab is the section of the event page on display.
type Tab string

const (
	TabExpenses    Tab = "expenses"
	TabBalances    Tab = "balances"
	TabSettlements Tab = "settlements"
)

// Identity is the signed-in participant and the bearer token issued at login.
type Identity struct {
	Participant models.Participant
	Token       string
}

// BalanceMap maps participant ids to their net balance, rounded to cents.
// Positive means the participant is owed money.
type BalanceMap map[string]decimal.Decimal

// NormalizeBalances rounds every amount to two decimals, half away from zero.
func NormalizeBalances(raw map[string]float64) BalanceMap {
	out := make(BalanceMap, len(raw))
	for id, amount := range raw {
		out[id] = decimal.NewFromFloat(amount).Round(2)
	}
	return out
}

// Recorder receives fetch, drawer and mutation outcomes.
// internal/metrics implements it.
type Recorder interface {
	reactive.Recorder
	drawer.Recorder
	MutationSettled(op string, err error)
}

type options struct {
	ctx          context.Context
	sched        *reactive.Scheduler
	logger       *slog.Logger
	recorder     Recorder
	fetchTimeout time.Duration
	drawerDelay  time.Duration
	drawerOpts   []drawer.Option
}

// Option configures a Registry.
type Option func(*options)

// WithContext sets the parent context of every fetch.
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// WithScheduler shares an existing scheduler with the registry graph.
func WithScheduler(s *reactive.Scheduler) Option {
	return func(o *options) { o.sched = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithFetchTimeout bounds each resource fetch. Zero disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *options) { o.fetchTimeout = d }
}

// WithDrawerDelay sets the drawer close delay.
func WithDrawerDelay(d time.Duration) Option {
	return func(o *options) { o.drawerDelay = d }
}

// WithDrawerOptions passes options through to the drawer controller.
func WithDrawerOptions(opts ...drawer.Option) Option {
	return func(o *options) { o.drawerOpts = append(o.drawerOpts, opts...) }
}

// keyed is the part of a resource the registry drives on key changes.
type keyed interface {
	Resync()
	Close()
}

// Registry is the session state aggregate.
type Registry struct {
	client   api.Client
	sched    *reactive.Scheduler
	logger   *slog.Logger
	recorder Recorder
	cancel   context.CancelFunc

	// keyMu serializes session key changes so every resource re-derives its
	// key from the same value.
	keyMu sync.Mutex

	sessionKey    *reactive.Var[string]
	identity      *reactive.Var[*Identity]
	activeTab     *reactive.Var[Tab]
	expenseToEdit *reactive.Var[*models.Expense]
	drawer        *drawer.Controller[drawer.Handle]

	event        *reactive.Resource[string, models.Event]
	participants *reactive.Resource[string, []models.Participant]
	expenses     *reactive.Resource[string, []models.Expense]
	balances     *reactive.Resource[string, BalanceMap]
	settlements  *reactive.Resource[string, []models.Settlement]
	payments     *reactive.Resource[string, []models.Payment]
	recentEvents *reactive.Resource[struct{}, []models.RecentEvent]
	keyed        []keyed

	derived *derived
}

// New builds the registry for one session. Recent events start loading
// immediately; every other resource waits for SetSessionKey.
func New(client api.Client, opts ...Option) *Registry {
	o := options{
		ctx:          context.Background(),
		logger:       slog.Default(),
		fetchTimeout: DefaultFetchTimeout,
		drawerDelay:  drawer.DefaultDelay,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sched == nil {
		o.sched = reactive.NewScheduler()
	}

	ctx, cancel := context.WithCancel(o.ctx)
	r := &Registry{
		client:        client,
		sched:         o.sched,
		logger:        o.logger.With("component", "session"),
		recorder:      o.recorder,
		cancel:        cancel,
		sessionKey:    reactive.NewVar(o.sched, "").WithEqual(reactive.Equal[string]),
		identity:      reactive.NewVar[*Identity](o.sched, nil).WithEqual(bothSignedOut),
		activeTab:     reactive.NewVar(o.sched, TabExpenses).WithEqual(reactive.Equal[Tab]),
		expenseToEdit: reactive.NewVar[*models.Expense](o.sched, nil),
	}

	drawerOpts := []drawer.Option{drawer.WithLogger(o.logger)}
	if o.recorder != nil {
		drawerOpts = append(drawerOpts, drawer.WithRecorder(o.recorder))
	}
	r.drawer = drawer.New[drawer.Handle](o.sched, o.drawerDelay, append(drawerOpts, o.drawerOpts...)...)

	ropts := []reactive.ResourceOption{reactive.WithContext(ctx), reactive.WithLogger(o.logger)}
	if o.recorder != nil {
		ropts = append(ropts, reactive.WithRecorder(o.recorder))
	}
	sessionKey := func() (string, bool) {
		id := r.sessionKey.Get()
		return id, id != ""
	}

	r.event = reactive.NewResource(o.sched, "event", sessionKey,
		withTimeout(o.fetchTimeout, client.GetEvent), nil, ropts...)
	r.participants = reactive.NewResource(o.sched, "participants", sessionKey,
		withTimeout(o.fetchTimeout, client.ListParticipants), nil, ropts...)
	r.expenses = reactive.NewResource(o.sched, "expenses", sessionKey,
		withTimeout(o.fetchTimeout, client.ListExpenses), nil, ropts...)
	r.balances = reactive.NewResource(o.sched, "balances", sessionKey,
		withTimeout(o.fetchTimeout, func(ctx context.Context, eventID string) (BalanceMap, error) {
			raw, err := client.GetBalances(ctx, eventID)
			if err != nil {
				return nil, err
			}
			return NormalizeBalances(raw), nil
		}), nil, ropts...)
	r.settlements = reactive.NewResource(o.sched, "settlements", sessionKey,
		withTimeout(o.fetchTimeout, client.ListSettlements), nil, ropts...)
	r.payments = reactive.NewResource(o.sched, "payments", sessionKey,
		withTimeout(o.fetchTimeout, client.ListPayments), nil, ropts...)
	r.recentEvents = reactive.NewResource(o.sched, "recent-events", reactive.Static,
		withTimeout(o.fetchTimeout, func(ctx context.Context, _ struct{}) ([]models.RecentEvent, error) {
			return client.ListRecentEvents(ctx)
		}), nil, ropts...)
	r.keyed = []keyed{r.event, r.participants, r.expenses, r.balances, r.settlements, r.payments}

	r.derived = newDerived(r)
	return r
}

func withTimeout[K comparable, T any](d time.Duration, load reactive.Loader[K, T]) reactive.Loader[K, T] {
	if d <= 0 {
		return load
	}
	return func(ctx context.Context, key K) (T, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return load(ctx, key)
	}
}

// Close stops every resource and the drawer. In-flight fetches are ignored.
func (r *Registry) Close() {
	for _, k := range r.keyed {
		k.Close()
	}
	r.recentEvents.Close()
	r.drawer.Stop()
	r.cancel()
}

// Scheduler returns the scheduler of the registry graph.
func (r *Registry) Scheduler() *reactive.Scheduler {
	return r.sched
}

// SetSessionKey switches the active event. An empty id means no event. All
// keyed resources re-derive their key in one batch, so observers never see
// resources keyed by different events. Changing the event signs out the
// participant, clears the edit target and closes the drawer.
func (r *Registry) SetSessionKey(id string) {
	r.sched.Batch(func() {
		r.keyMu.Lock()
		defer r.keyMu.Unlock()

		if r.sessionKey.Get() == id {
			return
		}
		r.sessionKey.Set(id)
		r.identity.Set(nil)
		r.expenseToEdit.Set(nil)
		r.drawer.Close()
		for _, k := range r.keyed {
			k.Resync()
		}
		r.logger.Info("session key changed", "event_id", id)
	})
}

// applyFor runs fn in a batch only while eventID is still the session key.
// It reports whether fn ran.
func (r *Registry) applyFor(eventID string, fn func()) bool {
	applied := false
	r.sched.Batch(func() {
		r.keyMu.Lock()
		defer r.keyMu.Unlock()
		if r.sessionKey.Get() != eventID {
			return
		}
		applied = true
		fn()
	})
	return applied
}

// SessionKey returns the active event code.
func (r *Registry) SessionKey() (string, bool) {
	id := r.sessionKey.Get()
	return id, id != ""
}

// SessionKeyNode exposes the session key to the graph.
func (r *Registry) SessionKeyNode() reactive.Node {
	return r.sessionKey
}

func (r *Registry) Event() *reactive.Resource[string, models.Event] { return r.event }

func (r *Registry) Participants() *reactive.Resource[string, []models.Participant] {
	return r.participants
}

func (r *Registry) Expenses() *reactive.Resource[string, []models.Expense] { return r.expenses }

func (r *Registry) Balances() *reactive.Resource[string, BalanceMap] { return r.balances }

func (r *Registry) Settlements() *reactive.Resource[string, []models.Settlement] {
	return r.settlements
}

func (r *Registry) Payments() *reactive.Resource[string, []models.Payment] { return r.payments }

func (r *Registry) RecentEvents() *reactive.Resource[struct{}, []models.RecentEvent] {
	return r.recentEvents
}

// Drawer returns the shared drawer controller.
func (r *Registry) Drawer() *drawer.Controller[drawer.Handle] {
	return r.drawer
}

func (r *Registry) ReloadEvent()        { r.event.Reload() }
func (r *Registry) ReloadParticipants() { r.participants.Reload() }
func (r *Registry) ReloadExpenses()     { r.expenses.Reload() }
func (r *Registry) ReloadBalances()     { r.balances.Reload() }
func (r *Registry) ReloadSettlements()  { r.settlements.Reload() }
func (r *Registry) ReloadPayments()     { r.payments.Reload() }
func (r *Registry) ReloadRecentEvents() { r.recentEvents.Reload() }

// ReloadAll refetches the entities a financial mutation can change:
// expenses, balances and settlements. Event and participants only change
// through their own flows and are left alone.
func (r *Registry) ReloadAll() {
	r.sched.Batch(func() {
		r.expenses.Reload()
		r.balances.Reload()
		r.settlements.Reload()
	})
}

// SetExpenseToEdit looks id up in the loaded expenses and makes it the edit
// target. An empty or unknown id clears the target and returns false.
func (r *Registry) SetExpenseToEdit(id string) bool {
	if id == "" {
		r.expenseToEdit.Set(nil)
		return false
	}
	expenses, _ := r.expenses.Value()
	for i := range expenses {
		if expenses[i].ID == id {
			e := expenses[i]
			e.Consumers = append([]string(nil), e.Consumers...)
			r.expenseToEdit.Set(&e)
			return true
		}
	}
	r.expenseToEdit.Set(nil)
	return false
}

// ExpenseToEdit returns the current edit target.
func (r *Registry) ExpenseToEdit() (models.Expense, bool) {
	e := r.expenseToEdit.Get()
	if e == nil {
		return models.Expense{}, false
	}
	cp := *e
	cp.Consumers = append([]string(nil), e.Consumers...)
	return cp, true
}

// SetIdentity signs a participant in. nil signs out.
func (r *Registry) SetIdentity(id *Identity) {
	if id != nil {
		cp := *id
		id = &cp
	}
	r.identity.Set(id)
}

// bothSignedOut lets repeated sign-outs pass without notifying. Every sign-in
// stores a fresh copy, so two identities are never equal.
func bothSignedOut(a, b *Identity) bool {
	return a == nil && b == nil
}

// Identity returns the signed-in participant.
func (r *Registry) Identity() (Identity, bool) {
	id := r.identity.Get()
	if id == nil {
		return Identity{}, false
	}
	return *id, true
}

// Logout signs the participant out and closes the drawer.
func (r *Registry) Logout() {
	r.sched.Batch(func() {
		r.identity.Set(nil)
		r.drawer.Close()
	})
}

// ActiveTab returns the section on display.
func (r *Registry) ActiveTab() Tab {
	return r.activeTab.Get()
}

func (r *Registry) SetActiveTab(t Tab) {
	r.activeTab.Set(t)
}

// Nodes returns every source node of the registry, for watchers that want to
// react to any change in the session.
func (r *Registry) Nodes() []reactive.Node {
	return []reactive.Node{
		r.sessionKey, r.identity, r.activeTab, r.expenseToEdit, r.drawer.Node(),
		r.event, r.participants, r.expenses, r.balances, r.settlements, r.payments, r.recentEvents,
	}
}
