package tree

import (
	"encoding/json"
	"maps"
	"math"
	"reflect"
	"slices"
)

// FromAny converts decoded Go data into a tree. map[string]any becomes a
// *Mapping, []any a *Sequence, and anything else a Leaf. Signed integers,
// and unsigned integers that fit, are widened to int64 and float32 to
// float64 so that values decoded by different codecs compare alike. A json.Number becomes Int when it is an
// integer and Num otherwise. A Value passed in is returned unchanged.
//
// Go map iteration has no stable order, so mapping keys are inserted in
// sorted order. Maps and slices that appear more than once, including
// through cycles, become a single shared container.
func FromAny(x any) Value {
	c := &importer{
		maps:   make(map[uintptr]*Mapping),
		slices: make(map[sliceKey]*Sequence),
	}
	return c.from(x)
}

type sliceKey struct {
	ptr uintptr
	n   int
}

type importer struct {
	maps   map[uintptr]*Mapping
	slices map[sliceKey]*Sequence
}

func (c *importer) from(x any) Value {
	switch v := x.(type) {
	case nil:
		return Null
	case Value:
		return orNull(v)
	case map[string]any:
		if v == nil {
			return Null
		}
		ptr := reflect.ValueOf(v).Pointer()
		if m, ok := c.maps[ptr]; ok {
			return m
		}
		m := NewMapping()
		c.maps[ptr] = m
		for _, k := range slices.Sorted(maps.Keys(v)) {
			m.Define(k, Entry{Value: c.from(v[k])})
		}
		return m
	case []any:
		if len(v) == 0 {
			return NewSequence()
		}
		key := sliceKey{ptr: reflect.ValueOf(v).Pointer(), n: len(v)}
		if s, ok := c.slices[key]; ok {
			return s
		}
		s := &Sequence{items: make([]Value, len(v))}
		c.slices[key] = s
		for i, item := range v {
			s.items[i] = c.from(item)
		}
		return s
	case int:
		return Int(int64(v))
	case int8:
		return Int(int64(v))
	case int16:
		return Int(int64(v))
	case int32:
		return Int(int64(v))
	case uint8:
		return Int(int64(v))
	case uint16:
		return Int(int64(v))
	case uint32:
		return Int(int64(v))
	case uint:
		if uint64(v) <= math.MaxInt64 {
			return Int(int64(v))
		}
	case uint64:
		if v <= math.MaxInt64 {
			return Int(int64(v))
		}
	case float32:
		return Num(float64(v))
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return Int(n)
		}
		if f, err := v.Float64(); err == nil {
			return Num(f)
		}
		return Str(string(v))
	}
	return NewLeaf(x)
}

// ToAny converts a tree back into plain Go data: *Mapping becomes
// map[string]any with its enumerable entries (accessors resolved), *Sequence
// becomes []any and a Leaf yields its wrapped value. Shared containers and
// cycles are preserved as shared Go maps and slices.
func ToAny(v Value) any {
	c := &exporter{seen: make(map[Value]any)}
	return c.to(orNull(v))
}

type exporter struct {
	seen map[Value]any
}

func (c *exporter) to(v Value) any {
	switch src := v.(type) {
	case Leaf:
		return src.data
	case *Sequence:
		if out, ok := c.seen[src]; ok {
			return out
		}
		out := make([]any, len(src.items))
		c.seen[src] = out
		for i, item := range src.items {
			out[i] = c.to(item)
		}
		return out
	case *Mapping:
		if out, ok := c.seen[src]; ok {
			return out
		}
		out := make(map[string]any, src.Len())
		c.seen[src] = out
		for _, k := range src.Keys() {
			item, _ := src.Get(k)
			out[k] = c.to(item)
		}
		return out
	}
	return nil
}
