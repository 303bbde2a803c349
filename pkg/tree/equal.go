package tree

import (
	"math"
	"reflect"
)

// IdentityEqual reports whether a and b are the same value.
//
// Containers are identical only when they are the same pointer. Leaves use
// total-order identity rather than float equality: +0 and -0 differ, while
// NaN is identical to NaN. Reference-like Go values (funcs, maps, slices,
// pointers, channels) are identical when they share the same underlying
// pointer.
func IdentityEqual(a, b Value) bool {
	a, b = orNull(a), orNull(b)
	switch av := a.(type) {
	case Leaf:
		bv, ok := b.(Leaf)
		return ok && sameLeaf(av.data, bv.data)
	case *Sequence:
		bv, ok := b.(*Sequence)
		return ok && av == bv
	case *Mapping:
		bv, ok := b.(*Mapping)
		return ok && av == bv
	}
	return false
}

func sameLeaf(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		return ok && sameFloat(av, bv)
	case float32:
		bv, ok := b.(float32)
		return ok && sameFloat(float64(av), float64(bv))
	case complex128:
		bv, ok := b.(complex128)
		return ok && sameFloat(real(av), real(bv)) && sameFloat(imag(av), imag(bv))
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	}

	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Func, reflect.Map, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return ra.Pointer() == rb.Pointer()
	case reflect.Slice:
		return ra.Pointer() == rb.Pointer() && ra.Len() == rb.Len()
	}
	if ra.Comparable() {
		return ra.Equal(rb)
	}
	// Plain values holding slices or maps have no identity of their own.
	return reflect.DeepEqual(a, b)
}

func sameFloat(a, b float64) bool {
	if math.IsNaN(a) {
		return math.IsNaN(b)
	}
	return a == b && math.Signbit(a) == math.Signbit(b)
}

// ShallowEqual reports whether a and b are identical, or are containers of
// the same kind and type whose immediate children are pairwise identical.
//
// When m supplies a Comparator for a child's path it decides that child
// instead of IdentityEqual. Paths are rooted at "$". Grandchildren are never
// inspected.
func ShallowEqual(a, b Value, m ComparatorMatcher) bool {
	a, b = orNull(a), orNull(b)
	if cmp, ok := match(m, Root); ok {
		return cmp(a, b)
	}
	if IdentityEqual(a, b) {
		return true
	}
	if !isContainer(a) || !isContainer(b) || !sameShape(a, b) {
		return false
	}
	child := func(av, bv Value, key Key) bool {
		if cmp, ok := match(m, Resolve(Root, key)); ok {
			return cmp(av, bv)
		}
		return IdentityEqual(av, bv)
	}
	switch av := a.(type) {
	case *Sequence:
		bv := b.(*Sequence)
		if len(av.items) != len(bv.items) {
			return false
		}
		for i := range av.items {
			if !child(av.items[i], bv.items[i], Index(i)) {
				return false
			}
		}
	case *Mapping:
		bv := b.(*Mapping)
		keys := av.Keys()
		if len(keys) != bv.Len() {
			return false
		}
		for _, k := range keys {
			if !bv.visible(k) {
				return false
			}
			x, _ := av.Get(k)
			y, _ := bv.Get(k)
			if !child(x, y, Field(k)) {
				return false
			}
		}
	}
	return true
}

// DeepEqual reports whether a and b are structurally equal: identical, or
// containers of the same kind and type with the same keys whose children are
// deeply equal. An extra or missing key on either side is a difference.
//
// DeepEqual is cycle-safe. A pair of containers met again while it is still
// being compared higher up counts as a provisional match, so self-referential
// trees compare equal to themselves and to isomorphic copies.
//
// When m supplies a Comparator for a path, it decides that node and its
// subtree. Recursion depth is bounded only by the depth of the input.
func DeepEqual(a, b Value, m ComparatorMatcher) bool {
	w := newWalker(m, false)
	eq, _ := w.walk(orNull(a), orNull(b), Root)
	return eq
}
