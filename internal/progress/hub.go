// Package progress fans out pipeline progress events to subscribers.
//
// Events for each run are kept in a bounded in-memory buffer addressed by a
// monotonic sequence cursor, so a subscriber can disconnect and resume from
// where it left off. Old events may be dropped under pressure; the terminal
// event for a run is always the newest buffered event and is never evicted.
package progress

import (
	"context"
	"sync"
	"time"
)

// Event is one progress update for a run.
type Event struct {
	Sequence  uint64    `json:"seq"`
	RunID     string    `json:"run_id"`
	Stage     string    `json:"stage"`
	Percent   int       `json:"percent"`
	Message   string    `json:"message"`
	Terminal  bool      `json:"terminal"`
	Partial   bool      `json:"partial,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Timestamp time.Time `json:"ts"`
}

// Hub stores recent progress events per run and wakes waiters on publish.
type Hub struct {
	mu       sync.Mutex
	capacity int
	streams  map[string]*stream
}

type stream struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buffer []Event
	next   uint64
	closed bool
}

// NewHub constructs a hub whose per-run buffers hold capacity events.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 256
	}
	return &Hub{capacity: capacity, streams: make(map[string]*stream)}
}

func (h *Hub) streamFor(runID string) *stream {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.streams[runID]
	if !ok {
		st = &stream{}
		st.cond = sync.NewCond(&st.mu)
		h.streams[runID] = st
	}
	return st
}

// Publish appends an event for a run. Events after the run's terminal event
// are discarded.
func (h *Hub) Publish(evt Event) {
	if h == nil || evt.RunID == "" {
		return
	}
	st := h.streamFor(evt.RunID)

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return
	}
	st.next++
	evt.Sequence = st.next
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(st.buffer) == h.capacity {
		copy(st.buffer, st.buffer[1:])
		st.buffer = st.buffer[:h.capacity-1]
	}
	st.buffer = append(st.buffer, evt)
	if evt.Terminal {
		st.closed = true
	}
	st.cond.Broadcast()
}

// Fetch returns events for a run with sequence greater than since, along with
// the cursor to resume from. When wait is true and no events are pending,
// Fetch blocks until an event arrives, the run reaches a terminal event, or
// the context ends. Fetching an unknown run creates an empty stream so a
// subscriber can wait for a run that is still being launched.
func (h *Hub) Fetch(ctx context.Context, runID string, since uint64, limit int, wait bool) ([]Event, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}
	st := h.streamFor(runID)

	cancelWait := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				st.cond.Broadcast()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	st.mu.Lock()
	defer st.mu.Unlock()

	for {
		events, next := st.snapshotLocked(since, limit)
		if len(events) > 0 || !wait || st.closed {
			return events, next, contextError(ctx)
		}
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
		st.cond.Wait()
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
	}
}

// Terminal reports whether the run's terminal event has been published.
func (h *Hub) Terminal(runID string) bool {
	h.mu.Lock()
	st, ok := h.streams[runID]
	h.mu.Unlock()
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.closed
}

// Release drops the buffered events for a run and wakes any waiters.
func (h *Hub) Release(runID string) {
	h.mu.Lock()
	st, ok := h.streams[runID]
	if ok {
		delete(h.streams, runID)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	st.mu.Lock()
	st.closed = true
	st.cond.Broadcast()
	st.mu.Unlock()
}

func (st *stream) snapshotLocked(since uint64, limit int) ([]Event, uint64) {
	if len(st.buffer) == 0 {
		return nil, st.next
	}
	startIdx := -1
	for i, evt := range st.buffer {
		if evt.Sequence > since {
			startIdx = i
			break
		}
	}
	if startIdx < 0 {
		return nil, st.next
	}
	end := startIdx + limit
	if end > len(st.buffer) {
		end = len(st.buffer)
	}
	out := make([]Event, end-startIdx)
	copy(out, st.buffer[startIdx:end])
	return out, out[len(out)-1].Sequence
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
