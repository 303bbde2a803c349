package tree

// Comparator decides equality of the two values found at one path. It
// replaces the default comparison for that node and its whole subtree.
type Comparator func(a, b Value) bool

// Replicator produces the copy of v found under parent at key. It replaces
// the default replication for that node and its whole subtree.
type Replicator func(v Value, key Key, parent Value, path Path) Value

// Matcher resolves the override, if any, that applies at a path. It is
// consulted once per visited node before the default behavior runs.
//
// A nil Matcher means no overrides.
type Matcher[O any] interface {
	Match(path Path) (O, bool)
}

// ComparatorMatcher supplies Comparator overrides to the equality and merge
// engines.
type ComparatorMatcher = Matcher[Comparator]

// ReplicatorMatcher supplies Replicator overrides to the clone engine.
type ReplicatorMatcher = Matcher[Replicator]

// MatcherFunc adapts an ordinary function to Matcher.
type MatcherFunc[O any] func(path Path) (O, bool)

// Match calls f(path). A nil f matches nothing.
func (f MatcherFunc[O]) Match(path Path) (O, bool) {
	if f == nil {
		var zero O
		return zero, false
	}
	return f(path)
}

// At returns a Matcher that applies o at exactly path and nowhere else.
func At[O any](path Path, o O) Matcher[O] {
	return MatcherFunc[O](func(p Path) (O, bool) {
		if p == path {
			return o, true
		}
		var zero O
		return zero, false
	})
}

func match[O any](m Matcher[O], path Path) (O, bool) {
	if m == nil {
		var zero O
		return zero, false
	}
	return m.Match(path)
}
