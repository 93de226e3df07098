package pipeline

import "sync"

// EventStatus is the per-step status carried by a progress event.
type EventStatus string

const (
	StatusInProgress EventStatus = "in-progress"
	StatusCompleted  EventStatus = "completed"
	StatusError      EventStatus = "error"
	StatusSkipped    EventStatus = "skipped"
)

// Event is one progress update from the pipeline.
type Event struct {
	Step     string      `json:"step"`
	Status   EventStatus `json:"status"`
	Progress int         `json:"progress"` // 0-100 across the whole pipeline
	Message  string      `json:"message,omitempty"`
}

// Terminal reports whether the event must survive queue backpressure.
func (e Event) Terminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusError
}

// Emitter delivers progress events to at most one consumer, in emission
// order, over a bounded queue. A slow or absent consumer never blocks the
// pipeline: when the queue is full the oldest in-progress or skipped event is
// dropped first, and completed/error events are kept. A nil Emitter discards
// everything.
type Emitter struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	size   int
	closed bool
}

// NewEmitter creates an emitter queueing up to size events.
func NewEmitter(size int) *Emitter {
	if size < 1 {
		size = 16
	}
	e := &Emitter{size: size}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// Next blocks until an event is available and returns it. It reports false
// once the emitter is closed and the queue drained.
func (e *Emitter) Next() (Event, bool) {
	if e == nil {
		return Event{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for len(e.queue) == 0 && !e.closed {
		e.cond.Wait()
	}
	if len(e.queue) == 0 {
		return Event{}, false
	}
	ev := e.queue[0]
	e.queue = e.queue[1:]
	return ev, true
}

// Emit queues an event without blocking. Events emitted after Close are
// discarded.
func (e *Emitter) Emit(ev Event) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	if len(e.queue) < e.size {
		e.queue = append(e.queue, ev)
		e.cond.Signal()
		return
	}

	// Queue is full. Drop the oldest droppable event to make room.
	dropped := false
	kept := e.queue[:0]
	for _, old := range e.queue {
		if !dropped && !old.Terminal() {
			dropped = true
			continue
		}
		kept = append(kept, old)
	}
	if !dropped {
		// Every queued event is terminal. A terminal newcomer displaces the
		// oldest one; a progress tick is discarded instead.
		if !ev.Terminal() {
			e.queue = kept
			return
		}
		if len(kept) > 0 {
			kept = kept[1:]
		}
	}
	e.queue = append(kept, ev)
	e.cond.Signal()
}

// Close ends the stream. Queued events stay readable; Next reports false
// once they are drained.
func (e *Emitter) Close() {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.cond.Broadcast()
}
