package tree

// DeepUpdate merges next onto old so that every subtree of next that is
// deeply equal to the corresponding subtree of old is replaced by old's
// reference. Downstream consumers can then detect "nothing changed under
// this branch" with IdentityEqual alone.
//
// It reports unchanged when the two trees are deeply equal; result is then
// old itself. Otherwise result is next, rewritten in place. Entries missing
// from next, extra entries in next, or any changed child mark the enclosing
// container as changed; unchanged siblings are still swapped for old's
// references. Accessor entries of next are never overwritten.
//
// DeepUpdate consumes next: callers must not keep using a reference to next
// taken before the call. Containers that next shares with old are rewritten
// in place as well, so old can change where next reuses one of its
// containers at a different path; old stays deeply equal to what it was. It is cycle-safe in the same way as DeepEqual.
func DeepUpdate(old, next Value, m ComparatorMatcher) (unchanged bool, result Value) {
	old, next = orNull(old), orNull(next)
	w := newWalker(m, true)
	if eq, _ := w.walk(old, next, Root); eq {
		return true, old
	}
	return false, next
}
