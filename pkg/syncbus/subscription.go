package syncbus

import (
	"context"
	"sync"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/raykavin/chartsync/pkg/view"
)

const rejectionBuffer = 16

// Subscription is a panel's mailbox on the bus. It holds at most one
// undelivered snapshot, the newest, and never yields a version lower than
// one it already yielded.
type Subscription struct {
	id string

	mu      sync.Mutex
	pending *view.State
	floor   uint64

	notify     chan struct{}
	rejections chan error
	done       chan struct{}
	closeOnce  sync.Once
}

func newSubscription(id string, initial view.State) *Subscription {
	return &Subscription{
		id:         id,
		pending:    &initial,
		notify:     make(chan struct{}, 1),
		rejections: make(chan error, rejectionBuffer),
		done:       make(chan struct{}),
	}
}

func (s *Subscription) ID() string { return s.id }

// Updates signals that a snapshot may be waiting. Use TryNext to take it.
func (s *Subscription) Updates() <-chan struct{} { return s.notify }

// Rejections receives the errors of events this subscriber published with
// Bus.Publish.
func (s *Subscription) Rejections() <-chan error { return s.rejections }

// Done is closed when the bus stops or the subscriber is removed.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Next blocks until a snapshot newer than the last one yielded is
// available.
func (s *Subscription) Next(ctx context.Context) (view.State, error) {
	for {
		if state, ok := s.TryNext(); ok {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return view.State{}, ctx.Err()
		case <-s.done:
			if state, ok := s.TryNext(); ok {
				return state, nil
			}
			return view.State{}, core.ErrBusStopped
		case <-s.notify:
		}
	}
}

// TryNext takes the pending snapshot without blocking.
func (s *Subscription) TryNext() (view.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return view.State{}, false
	}
	state := *s.pending
	s.pending = nil
	s.floor = state.Version
	return state, true
}

// offer replaces the pending snapshot if state is newer than both it and
// everything already yielded.
func (s *Subscription) offer(state view.State) bool {
	s.mu.Lock()
	if state.Version <= s.floor || (s.pending != nil && state.Version <= s.pending.Version) {
		s.mu.Unlock()
		return false
	}
	s.pending = &state
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return true
}

// ack records state, which the subscriber produced itself. If an older
// snapshot from another panel is still waiting, state replaces it so that
// change is not lost; otherwise state is not echoed back.
func (s *Subscription) ack(state view.State) {
	s.mu.Lock()
	if state.Version <= s.floor {
		s.mu.Unlock()
		return
	}
	if s.pending == nil {
		s.floor = state.Version
		s.mu.Unlock()
		return
	}
	if state.Version > s.pending.Version {
		s.pending = &state
	}
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription) reject(err error) bool {
	select {
	case s.rejections <- err:
		return true
	default:
		return false
	}
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() { close(s.done) })
}
