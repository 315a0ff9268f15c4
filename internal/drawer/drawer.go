// Package drawer owns the content of the single shared bottom drawer.
//
// Swapping content never shows an empty drawer: the drawer closes first, the
// old content stays rendered until the close animation has finished, and only
// then is the new content installed and the drawer reopened. The delay is an
// explicit setting of the controller and should match the drawer animation.
package drawer

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/sunio/internal/reactive"
)

// DefaultDelay matches the drawer's open/close animation.
const DefaultDelay = 300 * time.Millisecond

// Handle names an externally rendered fragment. The controller never looks
// inside it.
type Handle string

// Phase is the controller state.
type Phase int

const (
	Closed Phase = iota
	Open
	Closing
	ClosingThenReopen
)

func (p Phase) String() string {
	switch p {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case ClosingThenReopen:
		return "closing-then-reopen"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is what the renderer needs. Content may be set while IsOpen is false
// only during a close delay.
type State[C comparable] struct {
	Phase      Phase
	IsOpen     bool
	Content    C
	HasContent bool
	// Next is the content that replaces Content when the drawer reopens.
	Next C
}

// Timer is a pending delayed callback.
type Timer interface {
	Stop() bool
}

// Clock schedules delayed callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Recorder receives transition kinds. internal/metrics implements it.
type Recorder interface {
	Transition(kind string)
}

type options struct {
	clock    Clock
	logger   *slog.Logger
	recorder Recorder
}

// Option configures a Controller.
type Option func(*options)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the controller logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRecorder reports transitions to r.
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// Controller is the drawer state machine. It is safe for concurrent use.
type Controller[C comparable] struct {
	sched    *reactive.Scheduler
	delay    time.Duration
	clock    Clock
	logger   *slog.Logger
	recorder Recorder

	mu    sync.Mutex
	state State[C]
	timer Timer
	gen   uint64

	view *reactive.Var[State[C]]
}

// New returns a closed controller that waits delay between closing and
// swapping content.
func New[C comparable](s *reactive.Scheduler, delay time.Duration, opts ...Option) *Controller[C] {
	o := options{
		clock:  systemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if delay < 0 {
		delay = 0
	}
	return &Controller[C]{
		sched:    s,
		delay:    delay,
		clock:    o.clock,
		logger:   o.logger.With("component", "drawer"),
		recorder: o.recorder,
		view:     reactive.NewVar(s, State[C]{}).WithEqual(reactive.Equal[State[C]]),
	}
}

// Delay returns the configured close delay.
func (d *Controller[C]) Delay() time.Duration {
	return d.delay
}

// OpenWith shows c. Opening the content already shown is a no-op; opening
// different content closes the drawer and swaps content after the delay.
func (d *Controller[C]) OpenWith(c C) {
	d.apply(func() string {
		switch d.state.Phase {
		case Closed:
			d.cancelLocked()
			d.state = State[C]{Phase: Open, IsOpen: true, Content: c, HasContent: true}
			return "open"
		case Open:
			if d.state.Content == c {
				return ""
			}
			d.state.Phase = ClosingThenReopen
			d.state.IsOpen = false
			d.state.Next = c
			d.scheduleLocked(d.reopenLocked)
			return "swap"
		case ClosingThenReopen:
			if d.state.Next == c {
				return ""
			}
			d.state.Next = c
			d.scheduleLocked(d.reopenLocked)
			return "swap"
		case Closing:
			if d.state.HasContent && d.state.Content == c {
				d.cancelLocked()
				d.state.Phase = Open
				d.state.IsOpen = true
				return "reopen"
			}
			d.state.Phase = ClosingThenReopen
			d.state.Next = c
			d.scheduleLocked(d.reopenLocked)
			return "swap"
		}
		return ""
	})
}

// Close hides the drawer and clears its content after the delay. Closing
// again during the delay restarts it.
func (d *Controller[C]) Close() {
	d.apply(func() string {
		if d.state.Phase == Closed {
			return ""
		}
		var zero C
		d.state.Phase = Closing
		d.state.IsOpen = false
		d.state.Next = zero
		d.scheduleLocked(d.clearLocked)
		return "close"
	})
}

// State returns the current state.
func (d *Controller[C]) State() State[C] {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// IsOpen reports whether the drawer is open.
func (d *Controller[C]) IsOpen() bool {
	return d.State().IsOpen
}

// Content returns the content currently rendered in the drawer.
func (d *Controller[C]) Content() (C, bool) {
	s := d.State()
	return s.Content, s.HasContent
}

// Node exposes the drawer state to the reactive graph.
func (d *Controller[C]) Node() reactive.Node {
	return d.view
}

// Stop cancels any pending transition without changing the state.
func (d *Controller[C]) Stop() {
	d.mu.Lock()
	d.cancelLocked()
	d.mu.Unlock()
}

func (d *Controller[C]) reopenLocked() string {
	var zero C
	d.state = State[C]{Phase: Open, IsOpen: true, Content: d.state.Next, HasContent: true, Next: zero}
	return "reopen"
}

func (d *Controller[C]) clearLocked() string {
	d.state = State[C]{}
	return "cleared"
}

// scheduleLocked replaces any pending callback with fn after the delay.
func (d *Controller[C]) scheduleLocked(fn func() string) {
	d.cancelLocked()
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen, fn) })
}

// cancelLocked stops the pending timer and invalidates its callback in case
// it already fired and is waiting for the lock.
func (d *Controller[C]) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

func (d *Controller[C]) fire(gen uint64, fn func() string) {
	d.apply(func() string {
		if gen != d.gen {
			return ""
		}
		d.timer = nil
		return fn()
	})
}

// apply runs step under the lock and publishes the resulting state inside a
// batch, so observers run after the lock is released and always see states
// in the order they were produced. step returns "" when nothing changed.
func (d *Controller[C]) apply(step func() string) {
	var (
		kind string
		snap State[C]
	)
	d.sched.Batch(func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		kind = step()
		if kind == "" {
			return
		}
		snap = d.state
		d.view.Set(snap)
	})
	if kind == "" {
		return
	}
	d.logger.Debug("drawer transition", "kind", kind, "phase", snap.Phase.String(), "open", snap.IsOpen)
	if d.recorder != nil {
		d.recorder.Transition(kind)
	}
}
