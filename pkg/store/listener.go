package store

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Listener is told when a store commits new data. Subscriptions are keyed
// by ID, so subscribing the same listener twice has no effect.
type Listener interface {
	MarkDirty()
	ID() uint64
}

// ListenerFunc adapts a function to Listener. Each call to NewListenerFunc
// gets its own ID.
type ListenerFunc struct {
	id uint64
	fn func()
}

// NewListenerFunc wraps fn as a Listener.
func NewListenerFunc(fn func()) *ListenerFunc {
	return &ListenerFunc{id: nextID(), fn: fn}
}

// MarkDirty calls the wrapped function.
func (l *ListenerFunc) MarkDirty() {
	if l.fn != nil {
		l.fn()
	}
}

// ID implements Listener.
func (l *ListenerFunc) ID() uint64 { return l.id }

var lastID atomic.Uint64

func nextID() uint64 { return lastID.Add(1) }

// subscribers holds the listeners of one store in subscription order.
type subscribers struct {
	mu   sync.RWMutex
	subs []Listener
}

func (s *subscribers) indexOf(id uint64) int {
	return slices.IndexFunc(s.subs, func(l Listener) bool { return l.ID() == id })
}

// add ignores a listener whose ID is already subscribed.
func (s *subscribers) add(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	if s.indexOf(l.ID()) < 0 {
		s.subs = append(s.subs, l)
	}
	s.mu.Unlock()
}

func (s *subscribers) remove(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	if i := s.indexOf(l.ID()); i >= 0 {
		s.subs = slices.Delete(s.subs, i, i+1)
	}
	s.mu.Unlock()
}

func (s *subscribers) clear() {
	s.mu.Lock()
	s.subs = nil
	s.mu.Unlock()
}

func (s *subscribers) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// notify calls MarkDirty on a snapshot of the list, so listeners may
// subscribe or unsubscribe while being notified.
func (s *subscribers) notify() {
	s.mu.RLock()
	subs := slices.Clone(s.subs)
	s.mu.RUnlock()

	for _, sub := range subs {
		sub.MarkDirty()
	}
}
