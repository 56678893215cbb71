package stream

import (
	"context"
	"sync"
)

// Mailbox is a thread-safe, unbounded FIFO queue.
//
// The state channel keeps one mailbox per reader. Enqueue never blocks, so
// a slow reader never holds up the writer.
//
// Thread-safety: Enqueue may be called from any goroutine. Receive and
// TryDequeue are normally called from the one goroutine that owns the
// reading side.
type Mailbox[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	signal chan struct{} // buffered, size 1; closed on Close
}

// NewMailbox creates an empty mailbox.
func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{
		items:  make([]T, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an item to the back of the mailbox.
// Returns false if the mailbox is closed.
func (m *Mailbox[T]) Enqueue(v T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}

	m.items = append(m.items, v)

	// Buffer of 1 coalesces wakeups.
	select {
	case m.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front item without blocking.
func (m *Mailbox[T]) TryDequeue() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if len(m.items) == 0 {
		return zero, false
	}

	v := m.items[0]
	// Clear the slot so the backing array does not pin the value.
	m.items[0] = zero

	if len(m.items) == 1 {
		m.items = m.items[:0]
	} else {
		m.items = m.items[1:]
	}

	return v, true
}

// Receive blocks until an item is available, the mailbox is closed and
// drained, or ctx is done. The boolean is false in the last two cases.
func (m *Mailbox[T]) Receive(ctx context.Context) (T, bool) {
	for {
		if v, ok := m.TryDequeue(); ok {
			return v, true
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, false
		case <-m.signal:
			// The signal channel is closed by Close, so this case keeps
			// firing once closed; stop when nothing is left.
			if m.isClosed() && m.Len() == 0 {
				var zero T
				return zero, false
			}
		}
	}
}

// Len returns the number of queued items.
func (m *Mailbox[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Close stops the mailbox from accepting items and wakes any waiting
// receiver. Items already queued can still be received.
func (m *Mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}

	m.closed = true
	close(m.signal)
}

func (m *Mailbox[T]) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
