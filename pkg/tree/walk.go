package tree

import "math"

// noDep marks a verdict that does not rely on any pending pair.
const noDep = math.MaxInt

// pairKey identifies a (container, container) comparison. Both halves are
// pointers, so the key is hashable.
type pairKey struct {
	a, b Value
}

// visit is the VisitCache slot of one pair: pending while the pair is on
// the stack at depth, final afterwards.
type visit struct {
	pending bool
	depth   int
	equal   bool
}

// frame holds merge substitutions that may only be applied once the pair at
// this stack depth resolves as equal.
type frame struct {
	deferred []func()
}

// walker is the pairwise traversal shared by DeepEqual and DeepUpdate. One
// walker serves exactly one top-level call.
//
// A pending pair met again is assumed equal. Assuming equality can only turn
// false verdicts into true ones, so a false verdict is always final. A true
// verdict that relied on a pending ancestor is provisional: it is not cached,
// and in merge mode its substitutions wait in that ancestor's frame until the
// ancestor resolves.
type walker struct {
	matcher ComparatorMatcher
	merge   bool
	visits  map[pairKey]*visit
	frames  []*frame
}

func newWalker(m ComparatorMatcher, merge bool) *walker {
	return &walker{
		matcher: m,
		merge:   merge,
		visits:  make(map[pairKey]*visit),
	}
}

// walk compares a and b found at path. Besides the verdict it returns the
// depth of the outermost pending pair a true verdict relies on, or noDep.
func (w *walker) walk(a, b Value, path Path) (bool, int) {
	if cmp, ok := match(w.matcher, path); ok {
		return cmp(a, b), noDep
	}
	if IdentityEqual(a, b) {
		return true, noDep
	}
	if !isContainer(a) || !isContainer(b) || !sameShape(a, b) {
		return false, noDep
	}

	key := pairKey{a, b}
	if v, ok := w.visits[key]; ok {
		if v.pending {
			return true, v.depth
		}
		return v.equal, noDep
	}

	depth := len(w.frames) + 1
	v := &visit{pending: true, depth: depth}
	w.visits[key] = v
	f := &frame{}
	w.frames = append(w.frames, f)

	var eq bool
	var dep int
	switch av := a.(type) {
	case *Sequence:
		eq, dep = w.sequences(av, b.(*Sequence), path)
	case *Mapping:
		eq, dep = w.mappings(av, b.(*Mapping), path)
	}
	w.frames = w.frames[:depth-1]

	switch {
	case !eq:
		v.pending, v.equal = false, false
		return false, noDep
	case dep >= depth:
		v.pending, v.equal = false, true
		for _, fn := range f.deferred {
			fn()
		}
		return true, noDep
	default:
		delete(w.visits, key)
		outer := w.frames[dep-1]
		outer.deferred = append(outer.deferred, f.deferred...)
		return true, dep
	}
}

func (w *walker) sequences(a, b *Sequence, path Path) (bool, int) {
	eq := len(a.items) == len(b.items)
	if !eq && !w.merge {
		return false, noDep
	}
	dep := noDep
	for i, av := range a.items {
		if i >= len(b.items) {
			eq = false
			break
		}
		childEq, childDep := w.walk(av, b.items[i], path.Child(Index(i)))
		if !childEq {
			if !w.merge {
				return false, noDep
			}
			eq = false
			continue
		}
		dep = min(dep, childDep)
		if w.merge {
			w.reuse(childDep, func() { b.items[i] = av })
		}
	}
	return eq, dep
}

func (w *walker) mappings(a, b *Mapping, path Path) (bool, int) {
	keys := a.Keys()
	eq := len(keys) == b.Len()
	if !eq && !w.merge {
		return false, noDep
	}
	dep := noDep
	for _, k := range keys {
		if !b.visible(k) {
			if !w.merge {
				return false, noDep
			}
			eq = false
			continue
		}
		av, _ := a.Get(k)
		bv, _ := b.Get(k)
		childEq, childDep := w.walk(av, bv, path.Child(Field(k)))
		if !childEq {
			if !w.merge {
				return false, noDep
			}
			eq = false
			continue
		}
		dep = min(dep, childDep)
		if w.merge {
			w.reuse(childDep, func() { b.assign(k, av) })
		}
	}
	return eq, dep
}

// reuse applies a merge substitution now, or parks it in the frame of the
// pending pair it depends on.
func (w *walker) reuse(dep int, fn func()) {
	if dep == noDep {
		fn()
		return
	}
	f := w.frames[dep-1]
	f.deferred = append(f.deferred, fn)
}
