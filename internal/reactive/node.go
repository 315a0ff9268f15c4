package reactive

import "sync"

// Node is a value in the graph that can be depended on.
type Node interface {
	// Version increases whenever the node's observable value may have changed.
	Version() uint64
	attach(o *observer) (detach func())
}

// Equal reports whether two comparable values are equal. Pass it to
// Var.WithEqual to suppress writes that do not change the value.
func Equal[T comparable](a, b T) bool {
	return a == b
}

// Var is a writable source value.
type Var[T any] struct {
	sched *Scheduler
	equal func(a, b T) bool

	mu      sync.RWMutex
	value   T
	version uint64
	subs    subscribers
}

// NewVar returns a var holding initial.
func NewVar[T any](s *Scheduler, initial T) *Var[T] {
	return &Var[T]{sched: s, value: initial}
}

// WithEqual installs an equality check used to skip no-op writes.
// It must be called before the var is shared.
func (v *Var[T]) WithEqual(eq func(a, b T) bool) *Var[T] {
	v.equal = eq
	return v
}

// Get returns the current value.
func (v *Var[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Set replaces the value and notifies observers.
func (v *Var[T]) Set(value T) {
	v.Update(func(T) T { return value })
}

// Update replaces the value with fn(current) and notifies observers.
func (v *Var[T]) Update(fn func(T) T) {
	v.mu.Lock()
	next := fn(v.value)
	if v.equal != nil && v.equal(v.value, next) {
		v.mu.Unlock()
		return
	}
	v.value = next
	v.version++
	v.mu.Unlock()

	v.sched.enqueue(v.subs.snapshot())
}

// Version implements Node.
func (v *Var[T]) Version() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

func (v *Var[T]) attach(o *observer) func() {
	return v.subs.attach(o)
}

// Memo is a lazily recomputed value over explicit dependencies.
type Memo[T any] struct {
	fn   func() T
	deps []Node

	mu    sync.Mutex
	seen  []uint64
	value T
	valid bool
}

// NewMemo returns a memo computing fn. fn must only read state reachable
// from deps and must not write to the graph.
func NewMemo[T any](fn func() T, deps ...Node) *Memo[T] {
	return &Memo[T]{
		fn:   fn,
		deps: deps,
		seen: make([]uint64, len(deps)),
	}
}

// Get returns the cached value, recomputing it if a dependency changed.
func (m *Memo[T]) Get() T {
	m.mu.Lock()
	defer m.mu.Unlock()

	stale := !m.valid
	for i, d := range m.deps {
		if v := d.Version(); v != m.seen[i] {
			m.seen[i] = v
			stale = true
		}
	}
	if stale {
		m.value = m.fn()
		m.valid = true
	}
	return m.value
}

// Version is the sum of the dependency versions, so an upstream change is
// visible downstream before the memo recomputes.
func (m *Memo[T]) Version() uint64 {
	var sum uint64
	for _, d := range m.deps {
		sum += d.Version()
	}
	return sum
}

func (m *Memo[T]) attach(o *observer) func() {
	detach := make([]func(), 0, len(m.deps))
	for _, d := range m.deps {
		detach = append(detach, d.attach(o))
	}
	return func() {
		for _, fn := range detach {
			fn()
		}
	}
}

// Watch calls fn after any of nodes changes. Changes raised in one batch
// produce a single call. The returned stop function detaches fn.
func Watch(fn func(), nodes ...Node) (stop func()) {
	o := &observer{fn: fn}
	detach := make([]func(), 0, len(nodes))
	for _, n := range nodes {
		detach = append(detach, n.attach(o))
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			o.stopped.Store(true)
			for _, d := range detach {
				d()
			}
		})
	}
}

// Effect runs fn once immediately and then again after every change to nodes.
func Effect(fn func(), nodes ...Node) (stop func()) {
	fn()
	return Watch(fn, nodes...)
}
