package bridge

import (
	"log/slog"
	"sync"
)

// emitter is the per-bridge listener registry. It outlives individual
// sessions so a host can register callbacks once and reuse the bridge.
type emitter struct {
	mu        sync.Mutex
	next      Handle
	listeners map[Event][]listenerEntry
	log       *slog.Logger
}

type listenerEntry struct {
	handle Handle
	fn     Listener
}

func newEmitter(log *slog.Logger) *emitter {
	return &emitter{
		listeners: make(map[Event][]listenerEntry),
		log:       log,
	}
}

func (e *emitter) on(ev Event, fn Listener) Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.next++
	e.listeners[ev] = append(e.listeners[ev], listenerEntry{handle: e.next, fn: fn})
	return e.next
}

func (e *emitter) off(ev Event, h Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entries := e.listeners[ev]
	for i, ent := range entries {
		if ent.handle == h {
			e.listeners[ev] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// removeAll clears the given events, or every event when called with none.
func (e *emitter) removeAll(events ...Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(events) == 0 {
		e.listeners = make(map[Event][]listenerEntry)
		return
	}
	for _, ev := range events {
		delete(e.listeners, ev)
	}
}

// emit invokes listeners in registration order. The listener set is
// snapshotted before iterating, so a callback registered during dispatch of
// the same event is not invoked in that pass. Each invocation runs inside
// its own recover boundary.
func (e *emitter) emit(ev Event, p Payload) {
	e.mu.Lock()
	snapshot := make([]listenerEntry, len(e.listeners[ev]))
	copy(snapshot, e.listeners[ev])
	e.mu.Unlock()

	for _, ent := range snapshot {
		e.safeInvoke(ev, ent, p)
	}
}

func (e *emitter) safeInvoke(ev Event, ent listenerEntry, p Payload) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("bridge listener panicked",
				"event", string(ev),
				"handle", uint64(ent.handle),
				"panic", r,
			)
		}
	}()
	ent.fn(p)
}
