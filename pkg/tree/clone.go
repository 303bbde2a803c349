package tree

// ShallowClone returns a new container of the same kind and type as v whose
// children are the original child references. Leaves are returned as is.
//
// When m supplies a Replicator for a child's path (rooted at "$"), its
// result is used for that child instead. A child that is v itself becomes
// the new container. Accessor entries are copied unchanged; plain entries
// keep their ReadOnly and Hidden flags.
func ShallowClone(v Value, m ReplicatorMatcher) Value {
	v = orNull(v)
	if rep, ok := match(m, Root); ok {
		return rep(v, Key{}, nil, Root)
	}
	child := func(parent, replica, item Value, key Key) Value {
		if item == parent {
			return replica
		}
		path := Resolve(Root, key)
		if rep, ok := match(m, path); ok {
			return rep(item, key, parent, path)
		}
		return item
	}

	switch src := v.(type) {
	case *Sequence:
		dst := &Sequence{typ: src.typ, items: make([]Value, len(src.items))}
		for i, item := range src.items {
			dst.items[i] = child(src, dst, item, Index(i))
		}
		return dst
	case *Mapping:
		dst := emptyLike(src)
		for _, k := range src.keys {
			e := src.entries[k]
			if e.Kind == EntryValue {
				e.Value = child(src, dst, e.Value, Field(k))
			}
			dst.Define(k, e)
		}
		return dst
	}
	return v
}

// DeepClone returns a recursive replica of v. Leaves are returned as is;
// every container reachable from v is replaced by a fresh container of the
// same kind and type.
//
// A container reached again during the walk, through a cycle or a shared
// subtree, maps to the replica already created for it, so the clone has the
// same reference shape as the source. When m supplies a Replicator for a
// path, its result is used for that node and its subtree.
func DeepClone(v Value, m ReplicatorMatcher) Value {
	v = orNull(v)
	c := &cloner{matcher: m, replicas: make(map[Value]Value)}
	if rep, ok := match(m, Root); ok {
		return rep(v, Key{}, nil, Root)
	}
	return c.clone(v, Root)
}

type cloner struct {
	matcher  ReplicatorMatcher
	replicas map[Value]Value
}

func (c *cloner) clone(v Value, path Path) Value {
	switch src := v.(type) {
	case *Sequence:
		dst := &Sequence{typ: src.typ, items: make([]Value, len(src.items))}
		c.replicas[src] = dst
		for i, item := range src.items {
			dst.items[i] = c.child(src, item, Index(i), path)
		}
		return dst
	case *Mapping:
		dst := emptyLike(src)
		c.replicas[src] = dst
		for _, k := range src.keys {
			e := src.entries[k]
			if e.Kind == EntryValue {
				e.Value = c.child(src, e.Value, Field(k), path)
			}
			dst.Define(k, e)
		}
		return dst
	}
	return v
}

func (c *cloner) child(parent, item Value, key Key, parentPath Path) Value {
	if isContainer(item) {
		if replica, ok := c.replicas[item]; ok {
			return replica
		}
	}
	path := Resolve(parentPath, key)
	if rep, ok := match(c.matcher, path); ok {
		return rep(item, key, parent, path)
	}
	return c.clone(item, path)
}
