package routeclient

import "sync"

// ProgressFunc receives progress messages in the order they were received.
type ProgressFunc func(msg string)

// mailbox hands progress messages to a sink without ever blocking the
// producer. Queued mailboxes deliver every message. Coalescing mailboxes
// hold a single pending slot: while the sink is busy, newer messages replace
// the pending one, and consecutive duplicates are dropped.
type mailbox struct {
	sink     ProgressFunc
	coalesce bool
	notify   chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	pending []string
	last    string
	posted  int
}

func newMailbox(sink ProgressFunc, coalesce bool) *mailbox {
	m := &mailbox{
		sink:     sink,
		coalesce: coalesce,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go m.run()
	return m
}

// post queues msg and reports whether it was accepted.
// Must not be called after close.
func (m *mailbox) post(msg string) bool {
	m.mu.Lock()
	if m.coalesce {
		if m.posted > 0 && msg == m.last {
			m.mu.Unlock()
			return false
		}
		m.pending = append(m.pending[:0], msg)
	} else {
		m.pending = append(m.pending, msg)
	}
	m.last = msg
	m.posted++
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
	return true
}

// close stops accepting messages and waits until every pending one has
// been delivered.
func (m *mailbox) close() {
	close(m.notify)
	<-m.done
}

func (m *mailbox) run() {
	defer close(m.done)
	for range m.notify {
		m.flush()
	}
	m.flush()
}

func (m *mailbox) flush() {
	m.mu.Lock()
	msgs := m.pending
	m.pending = nil
	m.mu.Unlock()

	if m.sink == nil {
		return
	}
	for _, msg := range msgs {
		m.sink(msg)
	}
}
