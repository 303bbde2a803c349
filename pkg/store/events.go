package store

import (
	"sync"

	"github.com/airset-dev/airset/pkg/tree"
)

// EventType names a lifecycle event.
type EventType string

const (
	// EventCreated fires once, when the store is mounted.
	EventCreated EventType = "created"

	// EventRendered fires after created and after every committed change.
	EventRendered EventType = "rendered"

	// EventUpdateBefore fires before a change is committed. Data is the
	// incoming value and PrevData the value about to be replaced.
	EventUpdateBefore EventType = "updateBefore"

	// EventUpdated fires after a change is committed and subscribers were
	// notified.
	EventUpdated EventType = "updated"

	// EventDestroyBefore fires when Destroy is called, before the data is
	// reset.
	EventDestroyBefore EventType = "destroyBefore"
)

// Event is passed to lifecycle handlers.
type Event struct {
	Type        EventType
	Store       *Store
	Data        tree.Value
	PrevData    tree.Value
	UpdateCount uint64
}

// Handler receives lifecycle events. Handlers run synchronously on the
// goroutine that caused the event.
type Handler func(Event)

type handlerEntry struct {
	id uint64
	fn Handler
}

// emitter dispatches events to per-type handlers and catch-all watchers.
type emitter struct {
	mu       sync.RWMutex
	handlers map[EventType][]handlerEntry
	watchers []handlerEntry
}

func (e *emitter) on(typ EventType, fn Handler) func() {
	if fn == nil {
		return func() {}
	}
	id := nextID()
	e.mu.Lock()
	if e.handlers == nil {
		e.handlers = make(map[EventType][]handlerEntry)
	}
	e.handlers[typ] = append(e.handlers[typ], handlerEntry{id: id, fn: fn})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		e.handlers[typ] = removeHandler(e.handlers[typ], id)
		e.mu.Unlock()
	}
}

func (e *emitter) watch(fn Handler) func() {
	if fn == nil {
		return func() {}
	}
	id := nextID()
	e.mu.Lock()
	e.watchers = append(e.watchers, handlerEntry{id: id, fn: fn})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		e.watchers = removeHandler(e.watchers, id)
		e.mu.Unlock()
	}
}

func (e *emitter) emit(ev Event) {
	e.mu.RLock()
	fns := make([]Handler, 0, len(e.handlers[ev.Type])+len(e.watchers))
	for _, h := range e.handlers[ev.Type] {
		fns = append(fns, h.fn)
	}
	for _, h := range e.watchers {
		fns = append(fns, h.fn)
	}
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (e *emitter) clear() {
	e.mu.Lock()
	e.handlers = nil
	e.watchers = nil
	e.mu.Unlock()
}

func removeHandler(list []handlerEntry, id uint64) []handlerEntry {
	for i, h := range list {
		if h.id == id {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
