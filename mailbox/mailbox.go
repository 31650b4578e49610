package mailbox

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrEmpty is returned by TryRecv when no message is queued but senders remain.
	ErrEmpty = errors.New("mailbox empty")

	// ErrDisconnected is returned when the other side of the mailbox is gone.
	ErrDisconnected = errors.New("mailbox disconnected")
)

type queue[T any] struct {
	items   []T
	head    int
	senders int
	closed  bool
	mu      sync.Mutex
}

// Sender is the producing half of a mailbox. Safe for concurrent use.
type Sender[T any] struct {
	q      *queue[T]
	closed atomic.Bool
}

// Receiver is the consuming half of a mailbox.
// It must be used by a single goroutine.
type Receiver[T any] struct {
	q *queue[T]
}

// New creates a mailbox with one sender.
func New[T any]() (*Sender[T], *Receiver[T]) {
	q := &queue[T]{
		items:   make([]T, 0, 16),
		senders: 1,
	}
	return &Sender[T]{q: q}, &Receiver[T]{q: q}
}

// Send enqueues v. It never blocks.
func (s *Sender[T]) Send(v T) error {
	if s.closed.Load() {
		return ErrDisconnected
	}

	s.q.mu.Lock()
	defer s.q.mu.Unlock()

	if s.q.closed {
		return ErrDisconnected
	}
	s.q.items = append(s.q.items, v)
	return nil
}

// Clone returns a new sender for the same mailbox.
// The clone must be closed independently.
func (s *Sender[T]) Clone() *Sender[T] {
	s.q.mu.Lock()
	s.q.senders++
	s.q.mu.Unlock()
	return &Sender[T]{q: s.q}
}

// Close retires this sender. Calling Close more than once is a no-op.
func (s *Sender[T]) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.q.mu.Lock()
	s.q.senders--
	s.q.mu.Unlock()
}

// Connected reports whether the receiver is still accepting messages.
func (s *Sender[T]) Connected() bool {
	s.q.mu.Lock()
	defer s.q.mu.Unlock()
	return !s.q.closed && !s.closed.Load()
}

// TryRecv dequeues the oldest message without blocking.
func (r *Receiver[T]) TryRecv() (T, error) {
	var zero T

	r.q.mu.Lock()
	defer r.q.mu.Unlock()

	if r.q.closed {
		return zero, ErrDisconnected
	}

	if r.q.head == len(r.q.items) {
		if r.q.senders <= 0 {
			return zero, ErrDisconnected
		}
		return zero, ErrEmpty
	}

	v := r.q.items[r.q.head]
	r.q.items[r.q.head] = zero
	r.q.head++
	if r.q.head == len(r.q.items) {
		// Fully drained: rewind so the backing array is reused.
		r.q.items = r.q.items[:0]
		r.q.head = 0
	}
	return v, nil
}

// Len returns the number of queued messages.
func (r *Receiver[T]) Len() int {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	return len(r.q.items) - r.q.head
}

// Senders returns the number of open senders.
func (r *Receiver[T]) Senders() int {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	return r.q.senders
}

// Close stops accepting messages and discards anything queued.
func (r *Receiver[T]) Close() {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	r.q.closed = true
	r.q.items = nil
	r.q.head = 0
}
