package audiocore

import "sync"

// queueEntry is either a Buffer or the EndOfStream sentinel, modeled as a
// tagged variant per spec note (§9: "an implementation may represent this
// as a tagged variant {Buffer(b), End} enqueued in the queue instead of a
// pointer sentinel; semantics are identical").
type queueEntry struct {
	buf      *Buffer
	endOfQ   bool
}

// QueueHooks are the three observer callbacks a Sink installs on its Queue
// to keep queue_bytes accounting and backpressure signalling in sync
// (§3 Queue, §4.B).
type QueueHooks struct {
	OnPut    func(buf *Buffer)
	OnGet    func(buf *Buffer)
	OnRemove func(buf *Buffer)
}

// Queue is a bounded, reference-counted-Buffer FIFO with blocking get,
// predicate-based purge, and abort/reset semantics (component A).
//
// Queue is multi-producer / single-consumer: Put, Flush, Abort, Reset, and
// Purge may be called from any goroutine; Get and Peek are meant for a
// single consumer goroutine at a time, though they remain internally safe
// to call from elsewhere.
type Queue struct {
	mu       sync.Mutex
	notEmpty sync.Cond
	items    []queueEntry
	aborted  bool
	hooks    QueueHooks
}

// NewQueue constructs an empty, non-aborted Queue with the given hooks.
func NewQueue(hooks QueueHooks) *Queue {
	q := &Queue{hooks: hooks}
	q.notEmpty.L = &q.mu
	return q
}

// Put appends a Buffer. If the queue is aborted, the item is dropped (its
// ref is released rather than leaked). Put cannot otherwise fail.
func (q *Queue) Put(buf *Buffer) {
	q.mu.Lock()
	if q.aborted {
		q.mu.Unlock()
		buf.Release()
		return
	}
	q.items = append(q.items, queueEntry{buf: buf})
	q.mu.Unlock()

	if q.hooks.OnPut != nil {
		q.hooks.OnPut(buf)
	}
	q.notEmpty.Signal()
}

// PutEndOfStream appends the EndOfStream sentinel.
func (q *Queue) PutEndOfStream() {
	q.mu.Lock()
	if q.aborted {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, queueEntry{endOfQ: true})
	q.mu.Unlock()
	q.notEmpty.Signal()
}

// Get returns the head item. If empty and block is true, it waits for a
// Put, PutEndOfStream, or Abort; if empty and block is false, it returns
// (StatusNo, nil) immediately. Aborted queues always return StatusNo.
func (q *Queue) Get(block bool) (GetStatus, *Buffer) {
	return q.take(block, true)
}

// Peek is like Get but does not consume the head item.
func (q *Queue) Peek(block bool) (GetStatus, *Buffer) {
	return q.take(block, false)
}

func (q *Queue) take(block, consume bool) (GetStatus, *Buffer) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if q.aborted {
			return StatusNo, nil
		}
		if len(q.items) > 0 {
			entry := q.items[0]
			if consume {
				q.items = q.items[1:]
			}
			if entry.endOfQ {
				return StatusEnd, nil
			}
			if consume && q.hooks.OnGet != nil {
				buf := entry.buf
				q.mu.Unlock()
				q.hooks.OnGet(buf)
				q.mu.Lock()
			}
			return StatusYes, entry.buf
		}
		if !block {
			return StatusNo, nil
		}
		q.notEmpty.Wait()
	}
}

// Flush removes every item, invoking the remove hook (and releasing each
// Buffer's ref) for every Buffer entry. The sentinel, if present, is
// dropped silently.
func (q *Queue) Flush() {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()

	for _, entry := range items {
		if entry.endOfQ {
			continue
		}
		if q.hooks.OnRemove != nil {
			q.hooks.OnRemove(entry.buf)
		}
		entry.buf.Release()
	}
}

// Abort marks the queue aborted, wakes every waiter, and makes subsequent
// Put calls no-ops and Get calls return StatusNo. Items already queued are
// left in place; call Flush separately to drain them (Sink.Detach does
// both, per §4.B).
func (q *Queue) Abort() {
	q.mu.Lock()
	q.aborted = true
	q.mu.Unlock()
	q.notEmpty.Broadcast()
}

// Reset clears the aborted flag, making the queue usable again.
func (q *Queue) Reset() {
	q.mu.Lock()
	q.aborted = false
	q.mu.Unlock()
}

// SizeBytes returns the sum of queued Buffers' SizeBytes, excluding the
// sentinel. Sink keeps its own running total via the OnPut/OnGet/OnRemove
// hooks (§3); this method recomputes from scratch and is intended for
// tests and diagnostics rather than the hot path.
func (q *Queue) SizeBytes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	total := 0
	for _, entry := range q.items {
		if !entry.endOfQ {
			total += entry.buf.SizeBytes()
		}
	}
	return total
}

// Len returns the number of queued entries, including any pending sentinel.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Purge removes every Buffer entry for which pred returns true, in order,
// invoking the remove hook and releasing each removed Buffer's ref. The
// sentinel is never matched.
func (q *Queue) Purge(pred func(buf *Buffer) bool) {
	q.mu.Lock()
	kept := q.items[:0:0]
	var removed []*Buffer
	for _, entry := range q.items {
		if !entry.endOfQ && pred(entry.buf) {
			removed = append(removed, entry.buf)
			continue
		}
		kept = append(kept, entry)
	}
	q.items = kept
	q.mu.Unlock()

	for _, buf := range removed {
		if q.hooks.OnRemove != nil {
			q.hooks.OnRemove(buf)
		}
		buf.Release()
	}
}
