package overlay

import (
	"sync"
	"sync/atomic"

	"github.com/biomech-visualizer/backend/internal/models"
)

// MailboxStats is a snapshot of mailbox counters.
type MailboxStats struct {
	Published uint64 `json:"published" msgpack:"published"`
	Rendered  uint64 `json:"rendered" msgpack:"rendered"`
	Dropped   uint64 `json:"dropped" msgpack:"dropped"`
}

// Mailbox is a single-slot buffer between a frame producer and the render
// loop. Publishing over an unconsumed frame replaces it and counts a drop,
// so the consumer always sees the latest frame.
type Mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frame  *models.FrameResults
	closed bool

	published uint64
	rendered  uint64
	dropped   uint64
}

// NewMailbox returns an empty mailbox.
func NewMailbox() *Mailbox {
	m := &Mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Publish stores f, overwriting any unconsumed frame. It never blocks and
// is a no-op after Close.
func (m *Mailbox) Publish(f models.FrameResults) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if m.frame != nil {
		atomic.AddUint64(&m.dropped, 1)
	}
	m.frame = &f
	atomic.AddUint64(&m.published, 1)
	m.cond.Signal()
}

// Next blocks until a frame is available and takes it. It returns false
// once the mailbox is closed.
func (m *Mailbox) Next() (models.FrameResults, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.frame == nil {
		if m.closed {
			return models.FrameResults{}, false
		}
		m.cond.Wait()
	}
	if m.closed {
		return models.FrameResults{}, false
	}
	f := *m.frame
	m.frame = nil
	atomic.AddUint64(&m.rendered, 1)
	return f, true
}

// Close wakes any waiting consumer. Pending frames are discarded.
func (m *Mailbox) Close() {
	m.mu.Lock()
	m.closed = true
	m.frame = nil
	m.mu.Unlock()
	m.cond.Broadcast()
}

// Stats returns the current counters.
func (m *Mailbox) Stats() MailboxStats {
	return MailboxStats{
		Published: atomic.LoadUint64(&m.published),
		Rendered:  atomic.LoadUint64(&m.rendered),
		Dropped:   atomic.LoadUint64(&m.dropped),
	}
}
