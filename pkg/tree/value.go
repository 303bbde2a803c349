package tree

import "fmt"

// Kind identifies which variant a Value holds.
type Kind int

const (
	// KindLeaf is any non-container value (nil, scalars, funcs, foreign Go values).
	KindLeaf Kind = iota

	// KindSequence is an ordered, index-addressed container.
	KindSequence

	// KindMapping is a container of named entries in insertion order.
	KindMapping
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Value is a node of a tree: a Leaf, a *Sequence or a *Mapping.
//
// The set of variants is closed. Containers are always handled by pointer,
// and the pointer is the container's identity: two containers with the same
// content are still distinct references.
type Value interface {
	// Kind reports which variant the value is.
	Kind() Kind

	isValue()
}

// Leaf wraps a non-container value. Leaves are compared by identity and are
// never replicated.
type Leaf struct {
	data any
}

// Null is the leaf holding nil.
var Null = Leaf{}

// NewLeaf wraps v in a Leaf. Go maps and slices wrapped this way are opaque
// foreign values, not containers; use FromAny to convert them.
func NewLeaf(v any) Leaf { return Leaf{data: v} }

// Primitive constructors for convenience.
func Str(s string) Leaf  { return Leaf{data: s} }
func Int(n int64) Leaf   { return Leaf{data: n} }
func Num(f float64) Leaf { return Leaf{data: f} }
func Bool(b bool) Leaf   { return Leaf{data: b} }
func Func(fn any) Leaf   { return Leaf{data: fn} }

func (Leaf) Kind() Kind     { return KindLeaf }
func (Leaf) isValue()       {}
func (l Leaf) Data() any    { return l.data }
func (l Leaf) IsNull() bool { return l.data == nil }

// String renders the wrapped value for debugging.
func (l Leaf) String() string {
	if l.data == nil {
		return "null"
	}
	if s, ok := l.data.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", l.data)
}

// Sequence is an ordered, index-addressed container.
type Sequence struct {
	typ   string
	items []Value
}

// NewSequence creates an untyped sequence holding items.
func NewSequence(items ...Value) *Sequence {
	return NewTypedSequence("", items...)
}

// NewTypedSequence creates a sequence whose Type is typ. Sequences with
// different types are never equal.
func NewTypedSequence(typ string, items ...Value) *Sequence {
	s := &Sequence{typ: typ, items: make([]Value, len(items))}
	for i, item := range items {
		s.items[i] = orNull(item)
	}
	return s
}

func (*Sequence) Kind() Kind { return KindSequence }
func (*Sequence) isValue()   {}

// Type returns the sequence's constructor tag.
func (s *Sequence) Type() string { return s.typ }

// Len returns the number of items.
func (s *Sequence) Len() int { return len(s.items) }

// At returns the item at index i. It panics if i is out of range.
func (s *Sequence) At(i int) Value { return s.items[i] }

// SetAt replaces the item at index i. It panics if i is out of range.
func (s *Sequence) SetAt(i int, v Value) { s.items[i] = orNull(v) }

// Append adds items to the end of the sequence.
func (s *Sequence) Append(items ...Value) {
	for _, item := range items {
		s.items = append(s.items, orNull(item))
	}
}

// Truncate shortens the sequence to n items.
func (s *Sequence) Truncate(n int) {
	if n < len(s.items) {
		clear(s.items[n:])
		s.items = s.items[:n]
	}
}

// Items returns a copy of the item list.
func (s *Sequence) Items() []Value {
	out := make([]Value, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Sequence) String() string {
	return fmt.Sprintf("<sequence%s len=%d>", typeSuffix(s.typ), len(s.items))
}

// EntryKind distinguishes plain data entries from computed ones.
type EntryKind int

const (
	// EntryValue holds plain data in Entry.Value.
	EntryValue EntryKind = iota

	// EntryAccessor is computed by Entry.Get and, when writable, stored via
	// Entry.Set.
	EntryAccessor
)

// Entry is a named slot of a Mapping together with its metadata.
type Entry struct {
	Kind EntryKind

	// Value is the payload of an EntryValue entry.
	Value Value

	// Get and Set implement an EntryAccessor entry. Set may be nil.
	Get func() Value
	Set func(Value)

	// ReadOnly entries reject Mapping.Set.
	ReadOnly bool

	// Hidden entries are not enumerable: equality and merge ignore them,
	// cloning preserves them.
	Hidden bool
}

// Accessor builds an EntryAccessor entry.
func Accessor(get func() Value, set func(Value)) Entry {
	return Entry{Kind: EntryAccessor, Get: get, Set: set}
}

// resolve returns the entry's current value.
func (e Entry) resolve() Value {
	if e.Kind == EntryAccessor {
		if e.Get == nil {
			return Null
		}
		return orNull(e.Get())
	}
	return orNull(e.Value)
}

// Pair is a key and value used to build mappings.
type Pair struct {
	Key   string
	Value Value
}

// P is shorthand for Pair{Key: key, Value: v}.
func P(key string, v Value) Pair { return Pair{Key: key, Value: v} }

// Mapping is a container of named entries. Iteration follows insertion
// order.
type Mapping struct {
	typ     string
	keys    []string
	entries map[string]Entry
}

// NewMapping creates an untyped mapping from pairs. Later pairs overwrite
// earlier pairs with the same key.
func NewMapping(pairs ...Pair) *Mapping {
	return NewTypedMapping("", pairs...)
}

// NewTypedMapping creates a mapping whose Type is typ.
func NewTypedMapping(typ string, pairs ...Pair) *Mapping {
	m := &Mapping{typ: typ, entries: make(map[string]Entry, len(pairs))}
	for _, p := range pairs {
		m.Define(p.Key, Entry{Value: p.Value})
	}
	return m
}

func (*Mapping) Kind() Kind { return KindMapping }
func (*Mapping) isValue()   {}

// Type returns the mapping's constructor tag.
func (m *Mapping) Type() string { return m.typ }

// Define creates or replaces the entry for key, metadata included.
func (m *Mapping) Define(key string, e Entry) {
	if e.Kind == EntryValue {
		e.Value = orNull(e.Value)
	}
	if m.entries == nil {
		m.entries = make(map[string]Entry)
	}
	if _, ok := m.entries[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.entries[key] = e
}

// Set assigns v to key. New keys become plain visible entries. Assignment to
// a read-only entry or to an accessor without a setter is refused and
// reported as false.
func (m *Mapping) Set(key string, v Value) bool {
	e, ok := m.entries[key]
	if !ok {
		m.Define(key, Entry{Value: v})
		return true
	}
	if e.ReadOnly {
		return false
	}
	if e.Kind == EntryAccessor {
		if e.Set == nil {
			return false
		}
		e.Set(orNull(v))
		return true
	}
	e.Value = orNull(v)
	m.entries[key] = e
	return true
}

// assign stores v into a plain entry, bypassing ReadOnly. Accessor entries
// are left untouched.
func (m *Mapping) assign(key string, v Value) {
	e, ok := m.entries[key]
	if !ok || e.Kind == EntryAccessor {
		return
	}
	e.Value = v
	m.entries[key] = e
}

// Get returns the value for key, invoking the getter of accessor entries.
func (m *Mapping) Get(key string) (Value, bool) {
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	return e.resolve(), true
}

// Entry returns the raw entry for key.
func (m *Mapping) Entry(key string) (Entry, bool) {
	e, ok := m.entries[key]
	return e, ok
}

// Has reports whether key is an own entry, hidden or not.
func (m *Mapping) Has(key string) bool {
	_, ok := m.entries[key]
	return ok
}

// visible reports whether key is an own enumerable entry.
func (m *Mapping) visible(key string) bool {
	e, ok := m.entries[key]
	return ok && !e.Hidden
}

// Delete removes key. It reports whether the key existed.
func (m *Mapping) Delete(key string) bool {
	if _, ok := m.entries[key]; !ok {
		return false
	}
	delete(m.entries, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the enumerable keys in insertion order.
func (m *Mapping) Keys() []string {
	keys := make([]string, 0, len(m.keys))
	for _, k := range m.keys {
		if !m.entries[k].Hidden {
			keys = append(keys, k)
		}
	}
	return keys
}

// AllKeys returns every own key, hidden ones included, in insertion order.
func (m *Mapping) AllKeys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Len returns the number of enumerable entries.
func (m *Mapping) Len() int {
	n := 0
	for _, k := range m.keys {
		if !m.entries[k].Hidden {
			n++
		}
	}
	return n
}

func (m *Mapping) String() string {
	return fmt.Sprintf("<mapping%s len=%d>", typeSuffix(m.typ), m.Len())
}

// emptyLike returns an empty mapping with the same type as m.
func emptyLike(m *Mapping) *Mapping {
	return &Mapping{
		typ:     m.typ,
		keys:    make([]string, 0, len(m.keys)),
		entries: make(map[string]Entry, len(m.entries)),
	}
}

func typeSuffix(typ string) string {
	if typ == "" {
		return ""
	}
	return " " + typ
}

func orNull(v Value) Value {
	if v == nil {
		return Null
	}
	return v
}

// isContainer reports whether v is a *Sequence or *Mapping. Only containers
// may be used as cache keys: leaves can wrap unhashable Go values.
func isContainer(v Value) bool {
	switch v.(type) {
	case *Sequence, *Mapping:
		return true
	}
	return false
}

// sameShape reports whether two containers have the same kind and type.
func sameShape(a, b Value) bool {
	switch av := a.(type) {
	case *Sequence:
		bv, ok := b.(*Sequence)
		return ok && av.typ == bv.typ
	case *Mapping:
		bv, ok := b.(*Mapping)
		return ok && av.typ == bv.typ
	}
	return false
}
