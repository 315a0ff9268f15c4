// Package reactive implements the observer graph behind client session state:
// writable vars, lazily recomputed memos, watchers and keyed async resources.
//
// Every node reports a monotonically increasing Version. Memos compare the
// versions of their dependencies to decide whether to recompute, so reads are
// pull-based and never observe a half-applied update. Push notifications go
// through a Scheduler, which runs observers one at a time and defers any
// notification raised by a running observer until that observer returns.
package reactive

import (
	"sync"
	"sync/atomic"
)

// Scheduler serializes observer notifications for one graph.
type Scheduler struct {
	mu       sync.Mutex
	depth    int
	flushing bool
	queue    []*observer
}

// NewScheduler returns an idle scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Batch runs fn and delivers the notifications it raises only after the
// outermost batch returns. An observer notified several times within a batch
// runs once.
func (s *Scheduler) Batch(fn func()) {
	s.mu.Lock()
	s.depth++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.depth--
		s.mu.Unlock()
		s.flush()
	}()

	fn()
}

func (s *Scheduler) enqueue(obs []*observer) {
	if len(obs) == 0 {
		return
	}
	s.mu.Lock()
	for _, o := range obs {
		if o.queued || o.stopped.Load() {
			continue
		}
		o.queued = true
		s.queue = append(s.queue, o)
	}
	s.mu.Unlock()
	s.flush()
}

// flush drains the queue on the calling goroutine. A flush already in
// progress, or an open batch, owns the queue and will drain it.
func (s *Scheduler) flush() {
	s.mu.Lock()
	if s.depth > 0 || s.flushing {
		s.mu.Unlock()
		return
	}
	s.flushing = true
	s.mu.Unlock()

	drained := false
	defer func() {
		if !drained {
			s.mu.Lock()
			s.flushing = false
			s.mu.Unlock()
		}
	}()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.depth > 0 {
			s.flushing = false
			drained = true
			s.mu.Unlock()
			return
		}
		o := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		o.queued = false
		s.mu.Unlock()

		if !o.stopped.Load() {
			o.fn()
		}
	}
}

type observer struct {
	fn      func()
	queued  bool // guarded by Scheduler.mu
	stopped atomic.Bool
}

// subscribers is the observer list owned by a source node.
type subscribers struct {
	mu   sync.Mutex
	list []*observer
}

func (s *subscribers) attach(o *observer) func() {
	s.mu.Lock()
	s.list = append(s.list, o)
	s.mu.Unlock()
	return func() { s.detach(o) }
}

func (s *subscribers) detach(o *observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.list {
		if cur == o {
			s.list = append(s.list[:i], s.list[i+1:]...)
			return
		}
	}
}

func (s *subscribers) snapshot() []*observer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*observer, len(s.list))
	copy(out, s.list)
	return out
}
