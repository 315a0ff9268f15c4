package reactive

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Status is the lifecycle state of a Resource.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusErrored:
		return "errored"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// FetchError is the error surfaced by a resource whose loader failed.
type FetchError struct {
	Resource string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Resource, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Recorder receives fetch outcomes. internal/metrics implements it.
type Recorder interface {
	FetchSettled(resource string, err error)
	StaleDiscarded(resource string)
}

// KeyFunc derives a resource key from graph state. ok=false means the key is
// absent and the resource should sit idle.
type KeyFunc[K comparable] func() (key K, ok bool)

// Loader fetches the value for key.
type Loader[K comparable, T any] func(ctx context.Context, key K) (T, error)

// Snapshot is a consistent view of a resource.
type Snapshot[K comparable, T any] struct {
	Key      K
	HasKey   bool
	Status   Status
	Value    T
	HasValue bool
	Err      error
	// Version counts successful loads.
	Version uint64
}

type resourceOptions struct {
	ctx      context.Context
	logger   *slog.Logger
	recorder Recorder
}

// ResourceOption configures a Resource.
type ResourceOption func(*resourceOptions)

// WithContext sets the parent of the context passed to loaders. Cancelling it
// has the same effect as Close.
func WithContext(ctx context.Context) ResourceOption {
	return func(o *resourceOptions) { o.ctx = ctx }
}

// WithLogger sets the resource logger.
func WithLogger(l *slog.Logger) ResourceOption {
	return func(o *resourceOptions) { o.logger = l }
}

// WithRecorder reports fetch outcomes to r.
func WithRecorder(r Recorder) ResourceOption {
	return func(o *resourceOptions) { o.recorder = r }
}

// Resource is a keyed, cached, re-fetchable unit of asynchronously loaded
// state. It refetches whenever its key changes and keeps serving the last
// good value while a refetch is in flight. In-flight fetches are never
// aborted; a fetch that settles after a newer request started is discarded.
type Resource[K comparable, T any] struct {
	name     string
	sched    *Scheduler
	keyFn    KeyFunc[K]
	loader   Loader[K, T]
	logger   *slog.Logger
	recorder Recorder

	ctx     context.Context
	cancel  context.CancelFunc
	stopKey func()

	mu      sync.Mutex
	snap    Snapshot[K, T]
	request uint64
	rev     uint64
	closed  bool
	subs    subscribers
}

// NewResource creates a resource named name. keyFn is re-evaluated whenever
// one of deps changes. The first fetch starts immediately when the key is
// present.
func NewResource[K comparable, T any](s *Scheduler, name string, keyFn KeyFunc[K], loader Loader[K, T], deps []Node, opts ...ResourceOption) *Resource[K, T] {
	o := resourceOptions{
		ctx:    context.Background(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(o.ctx)
	r := &Resource[K, T]{
		name:     name,
		sched:    s,
		keyFn:    keyFn,
		loader:   loader,
		logger:   o.logger.With("resource", name),
		recorder: o.recorder,
		ctx:      ctx,
		cancel:   cancel,
	}
	if len(deps) > 0 {
		r.stopKey = Watch(r.Resync, deps...)
	}
	r.Resync()
	return r
}

// Static is a KeyFunc for resources that are not keyed by graph state.
func Static() (struct{}, bool) {
	return struct{}{}, true
}

// Name returns the resource name.
func (r *Resource[K, T]) Name() string {
	return r.name
}

// Resync re-evaluates the key. A new key starts a fetch; an absent key resets
// the resource to idle and clears its value. An unchanged key is a no-op.
func (r *Resource[K, T]) Resync() {
	key, ok := r.keyFn()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if !ok {
		if !r.snap.HasKey && r.snap.Status == StatusIdle {
			r.mu.Unlock()
			return
		}
		r.request++
		r.snap = Snapshot[K, T]{Version: r.snap.Version}
		r.rev++
		r.mu.Unlock()
		r.logger.Debug("resource reset")
		r.notify()
		return
	}
	if r.snap.HasKey && r.snap.Key == key {
		r.mu.Unlock()
		return
	}
	r.snap.Key = key
	r.snap.HasKey = true
	r.snap.Err = nil
	req := r.beginLocked(true)
	r.mu.Unlock()

	r.notify()
	go r.fetch(req, key)
}

// Reload forces a new fetch for the current key. It is a no-op while the key
// is absent. Overlapping reloads resolve to the latest request.
func (r *Resource[K, T]) Reload() {
	r.mu.Lock()
	if r.closed || !r.snap.HasKey {
		r.mu.Unlock()
		return
	}
	key := r.snap.Key
	wasLoading := r.snap.Status == StatusLoading
	req := r.beginLocked(false)
	r.mu.Unlock()

	if !wasLoading {
		r.notify()
	}
	go r.fetch(req, key)
}

// beginLocked starts a new request. The revision only moves when the
// transition is visible.
func (r *Resource[K, T]) beginLocked(keyChanged bool) uint64 {
	r.request++
	if keyChanged || r.snap.Status != StatusLoading {
		r.snap.Status = StatusLoading
		r.rev++
	}
	return r.request
}

func (r *Resource[K, T]) fetch(req uint64, key K) {
	r.logger.Debug("resource fetch started", "key", key, "request", req)
	value, err := r.loader(r.ctx, key)
	r.settle(req, key, value, err)
}

func (r *Resource[K, T]) settle(req uint64, key K, value T, err error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if req != r.request {
		r.mu.Unlock()
		r.logger.Debug("resource discarded stale response", "key", key, "request", req)
		if r.recorder != nil {
			r.recorder.StaleDiscarded(r.name)
		}
		return
	}
	if err != nil {
		r.snap.Status = StatusErrored
		r.snap.Err = &FetchError{Resource: r.name, Err: err}
	} else {
		r.snap.Status = StatusLoaded
		r.snap.Value = value
		r.snap.HasValue = true
		r.snap.Err = nil
		r.snap.Version++
	}
	r.rev++
	r.mu.Unlock()

	if err != nil {
		r.logger.Warn("resource fetch failed", "key", key, "error", err)
	} else {
		r.logger.Debug("resource loaded", "key", key, "request", req)
	}
	if r.recorder != nil {
		r.recorder.FetchSettled(r.name, err)
	}
	r.notify()
}

func (r *Resource[K, T]) notify() {
	r.sched.enqueue(r.subs.snapshot())
}

// Snapshot returns a consistent copy of the resource state.
func (r *Resource[K, T]) Snapshot() Snapshot[K, T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// Value returns the last successfully loaded value.
func (r *Resource[K, T]) Value() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap.Value, r.snap.HasValue
}

// HasValue reports whether a value has been loaded for the current key
// lifetime.
func (r *Resource[K, T]) HasValue() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap.HasValue
}

// IsLoading reports whether a fetch for the current key is outstanding.
func (r *Resource[K, T]) IsLoading() bool {
	return r.Status() == StatusLoading
}

// Err returns the error of the last settled fetch, if it failed.
func (r *Resource[K, T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap.Err
}

// Status returns the lifecycle state.
func (r *Resource[K, T]) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap.Status
}

// Key returns the current key.
func (r *Resource[K, T]) Key() (K, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap.Key, r.snap.HasKey
}

// Version implements Node. It is the revision of the resource state, not the
// load count reported by Snapshot.
func (r *Resource[K, T]) Version() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rev
}

func (r *Resource[K, T]) attach(o *observer) func() {
	return r.subs.attach(o)
}

// Close stops key tracking and ignores every fetch still in flight.
func (r *Resource[K, T]) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.request++
	r.mu.Unlock()

	if r.stopKey != nil {
		r.stopKey()
	}
	r.cancel()
}
