package store

import (
	"fmt"
	"log/slog"
	"sync"

	airerrors "github.com/airset-dev/airset/internal/errors"
	"github.com/airset-dev/airset/pkg/tree"
)

// Store owns a tree value and commits changes to it.
//
// Every committed change swaps the current data for a new value, remembers
// the previous one, notifies subscribers and emits lifecycle events. Update
// merges incoming data onto the current data with tree.DeepUpdate first, so
// subtrees that did not change keep their old references and subscribers can
// compare branches with tree.IdentityEqual.
//
// A Store is safe for concurrent use. Writes are serialized. Handlers for
// EventUpdateBefore and EventDestroyBefore run while the write lock is held
// and must not write to the store; all other handlers may.
type Store struct {
	id         uint64
	name       string
	debug      bool
	logger     *slog.Logger
	compare    tree.Comparator
	mergeRules tree.ComparatorMatcher
	middleware []Middleware

	// writeMu serializes writers, including their updateBefore handlers.
	writeMu sync.Mutex

	// mu guards the fields below for readers.
	mu          sync.RWMutex
	data        tree.Value
	prevData    tree.Value
	defaultData tree.Value
	updateCount uint64
	mounted     bool
	destroyed   bool

	subs   subscribers
	events emitter
	queue  runQueue
}

// New creates a store whose initial and default data is defaultData.
func New(defaultData tree.Value, opts ...Option) *Store {
	if defaultData == nil {
		defaultData = tree.Null
	}
	id := nextID()
	s := &Store{
		id:          id,
		name:        fmt.Sprintf("store-%d", id),
		compare:     CompareShallow.Comparator(),
		data:        defaultData,
		defaultData: defaultData,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default().With("component", "store")
	}
	s.logger = s.logger.With("store", s.name)
	return s
}

// Name returns the store name.
func (s *Store) Name() string { return s.name }

// Logger returns the store's logger.
func (s *Store) Logger() *slog.Logger { return s.logger }

// Data returns the current data.
func (s *Store) Data() tree.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// PrevData returns the data replaced by the last commit, or nil before the
// first commit.
func (s *Store) PrevData() tree.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prevData
}

// DefaultData returns the data the store starts from and returns to on
// Destroy. Reset replaces it.
func (s *Store) DefaultData() tree.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultData
}

// UpdateCount returns the number of commits since creation or the last
// Destroy.
func (s *Store) UpdateCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updateCount
}

// Mounted reports whether the store has an owner.
func (s *Store) Mounted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mounted
}

// Destroyed reports whether Destroy was called.
func (s *Store) Destroyed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.destroyed
}

// Subscribers returns the number of subscribed listeners.
func (s *Store) Subscribers() int { return s.subs.len() }

// Pending returns the number of runs waiting for the run slot.
func (s *Store) Pending() int { return s.queue.pending() }

// Mount attaches the store to its single owner and emits EventCreated and
// EventRendered.
func (s *Store) Mount() error {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return destroyedError(s.name)
	}
	if s.mounted {
		s.mu.Unlock()
		return airerrors.New("E002").
			WithDetail(fmt.Sprintf("Store %q is already mounted.", s.name)).
			WithSuggestion("Create one store per owner, or share the owner's store")
	}
	s.mounted = true
	ev := Event{Data: s.data, PrevData: s.prevData, UpdateCount: s.updateCount}
	s.mu.Unlock()

	s.logger.Debug("store mounted")
	ev.Type = EventCreated
	s.emit(ev)
	ev.Type = EventRendered
	s.emit(ev)
	return nil
}

// Destroy emits EventDestroyBefore, resets the store to its default data and
// detaches every subscriber and handler. A destroyed store rejects writes
// and runs. Destroy is idempotent.
func (s *Store) Destroy() {
	s.writeMu.Lock()
	s.mu.RLock()
	if s.destroyed {
		s.mu.RUnlock()
		s.writeMu.Unlock()
		return
	}
	ev := Event{Type: EventDestroyBefore, Data: s.data, PrevData: s.prevData, UpdateCount: s.updateCount}
	s.mu.RUnlock()

	func() {
		defer s.writeMu.Unlock()
		defer func() {
			s.mu.Lock()
			s.destroyed = true
			s.mounted = false
			s.data = s.defaultData
			s.prevData = nil
			s.updateCount = 0
			s.mu.Unlock()
		}()
		s.emit(ev)
	}()

	s.subs.clear()
	s.events.clear()
	s.logger.Debug("store destroyed")
}

// Subscribe registers l to be marked dirty after every commit.
func (s *Store) Subscribe(l Listener) { s.subs.add(l) }

// Unsubscribe removes l.
func (s *Store) Unsubscribe(l Listener) { s.subs.remove(l) }

// On registers fn for one event type. The returned function removes it.
func (s *Store) On(typ EventType, fn Handler) (off func()) { return s.events.on(typ, fn) }

// Watch registers fn for every event type. The returned function removes it.
func (s *Store) Watch(fn Handler) (off func()) { return s.events.watch(fn) }

// Set commits data unless the store's comparison (or the one chosen by
// opts) reports it equal to the current data. It reports whether data was
// committed.
func (s *Store) Set(data tree.Value, opts ...SetOption) bool {
	if data == nil {
		data = tree.Null
	}
	cmp := s.setCompare(opts)
	updated, _ := s.write(func(cur tree.Value) (tree.Value, bool, error) {
		if cmp != nil && cmp(data, cur) {
			return nil, false, nil
		}
		return data, true, nil
	}, nil)
	return updated
}

// Reset commits the default data overlaid with part's entries, compared as
// in Set. When committed, the result becomes the new default data.
func (s *Store) Reset(part *tree.Mapping, opts ...SetOption) (bool, error) {
	cmp := s.setCompare(opts)
	var merged *tree.Mapping
	return s.write(func(cur tree.Value) (tree.Value, bool, error) {
		base, ok := s.DefaultData().(*tree.Mapping)
		if !ok {
			return nil, false, notMappingError("default")
		}
		merged = overlay(base, part)
		if cmp != nil && cmp(merged, cur) {
			return nil, false, nil
		}
		return merged, true, nil
	}, func() {
		s.mu.Lock()
		s.defaultData = merged
		s.mu.Unlock()
	})
}

// SetPart commits the current data overlaid with part's entries, compared
// as in Set.
func (s *Store) SetPart(part *tree.Mapping, opts ...SetOption) (bool, error) {
	cmp := s.setCompare(opts)
	return s.write(func(cur tree.Value) (tree.Value, bool, error) {
		base, ok := cur.(*tree.Mapping)
		if !ok {
			return nil, false, notMappingError("current")
		}
		merged := overlay(base, part)
		if cmp != nil && cmp(merged, cur) {
			return nil, false, nil
		}
		return merged, true, nil
	}, nil)
}

// Update merges next onto the current data with tree.DeepUpdate and commits
// the result unless the two were deeply equal. Unchanged subtrees of next
// are replaced by the current references. next is consumed.
func (s *Store) Update(next tree.Value) bool {
	if next == nil {
		next = tree.Null
	}
	updated, _ := s.write(func(cur tree.Value) (tree.Value, bool, error) {
		unchanged, result := tree.DeepUpdate(cur, next, s.mergeRules)
		if unchanged {
			return nil, false, nil
		}
		return result, true, nil
	}, nil)
	return updated
}

// UpdatePart overlays part onto the current data and merges the result as
// in Update.
func (s *Store) UpdatePart(part *tree.Mapping) (bool, error) {
	return s.write(func(cur tree.Value) (tree.Value, bool, error) {
		base, ok := cur.(*tree.Mapping)
		if !ok {
			return nil, false, notMappingError("current")
		}
		unchanged, result := tree.DeepUpdate(cur, overlay(base, part), s.mergeRules)
		if unchanged {
			return nil, false, nil
		}
		return result, true, nil
	}, nil)
}

// Clone returns a deep clone of data, or of the current data when none is
// given.
func (s *Store) Clone(data ...tree.Value) tree.Value {
	if len(data) > 0 {
		return tree.DeepClone(data[0], nil)
	}
	return tree.DeepClone(s.Data(), nil)
}

func (s *Store) setCompare(opts []SetOption) tree.Comparator {
	cfg := setConfig{compare: s.compare}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg.compare
}

// write decides and commits one change under the write lock. committed, if
// set, runs under the same lock right after the swap.
func (s *Store) write(decide func(cur tree.Value) (tree.Value, bool, error), committed func()) (bool, error) {
	ev, err := s.writeLocked(decide, committed)
	if ev == nil {
		return false, err
	}

	s.subs.notify()
	ev.Type = EventUpdated
	s.emit(*ev)
	if s.Mounted() {
		ev.Type = EventRendered
		s.emit(*ev)
	}
	return true, nil
}

func (s *Store) writeLocked(decide func(cur tree.Value) (tree.Value, bool, error), committed func()) (*Event, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	destroyed, cur, count := s.destroyed, s.data, s.updateCount
	s.mu.RUnlock()
	if destroyed {
		return nil, destroyedError(s.name)
	}

	next, ok, err := decide(cur)
	if err != nil || !ok {
		return nil, err
	}

	s.emit(Event{Type: EventUpdateBefore, Data: next, PrevData: cur, UpdateCount: count})

	s.mu.Lock()
	s.prevData = cur
	s.data = next
	s.updateCount++
	count = s.updateCount
	s.mu.Unlock()

	if committed != nil {
		committed()
	}
	return &Event{Data: next, PrevData: cur, UpdateCount: count}, nil
}

func (s *Store) emit(ev Event) {
	ev.Store = s
	if s.debug {
		s.logger.Debug("store event",
			"event", string(ev.Type),
			"update_count", ev.UpdateCount,
			"data", ev.Data,
		)
	}
	s.events.emit(ev)
}

// overlay returns a new mapping of base's type holding base's enumerable
// entries followed by part's, later entries winning. Accessors are resolved
// and entry flags are not carried over.
func overlay(base, part *tree.Mapping) *tree.Mapping {
	out := tree.NewTypedMapping(base.Type())
	for _, k := range base.Keys() {
		v, _ := base.Get(k)
		out.Set(k, v)
	}
	if part != nil {
		for _, k := range part.Keys() {
			v, _ := part.Get(k)
			out.Set(k, v)
		}
	}
	return out
}
