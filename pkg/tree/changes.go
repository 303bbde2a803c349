package tree

// Changes lists the paths at which a and b differ, in encounter order: a
// kind or type mismatch, differing leaves, a key present on one side only,
// or a Comparator from m that rejects a node. It returns nil when the trees
// are deeply equal.
//
// Changes visits each container pair once, so it terminates on cyclic
// input; a pair met again contributes nothing further.
func Changes(a, b Value, m ComparatorMatcher) []Path {
	d := &differ{matcher: m, seen: make(map[pairKey]bool)}
	d.walk(orNull(a), orNull(b), Root)
	return d.paths
}

type differ struct {
	matcher ComparatorMatcher
	seen    map[pairKey]bool
	paths   []Path
}

func (d *differ) walk(a, b Value, path Path) {
	if cmp, ok := match(d.matcher, path); ok {
		if !cmp(a, b) {
			d.paths = append(d.paths, path)
		}
		return
	}
	if IdentityEqual(a, b) {
		return
	}
	if !isContainer(a) || !isContainer(b) || !sameShape(a, b) {
		d.paths = append(d.paths, path)
		return
	}
	key := pairKey{a, b}
	if d.seen[key] {
		return
	}
	d.seen[key] = true

	switch av := a.(type) {
	case *Sequence:
		bv := b.(*Sequence)
		n := max(len(av.items), len(bv.items))
		for i := 0; i < n; i++ {
			child := path.Child(Index(i))
			if i >= len(av.items) || i >= len(bv.items) {
				d.paths = append(d.paths, child)
				continue
			}
			d.walk(av.items[i], bv.items[i], child)
		}
	case *Mapping:
		bv := b.(*Mapping)
		for _, k := range av.Keys() {
			child := path.Child(Field(k))
			if !bv.visible(k) {
				d.paths = append(d.paths, child)
				continue
			}
			x, _ := av.Get(k)
			y, _ := bv.Get(k)
			d.walk(x, y, child)
		}
		for _, k := range bv.Keys() {
			if !av.visible(k) {
				d.paths = append(d.paths, path.Child(Field(k)))
			}
		}
	}
}
