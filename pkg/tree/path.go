package tree

import "strconv"

// Path addresses a node relative to a traversal root. The root renders as
// "$", field steps as ".name" and index steps as "[i]".
type Path string

// Root is the path of the traversal root.
const Root Path = "$"

// Key is one access step: an index into a Sequence or a field of a Mapping.
// The zero Key addresses the root itself.
type Key struct {
	name    string
	index   int
	indexed bool
}

// Index returns the key for position i of a sequence.
func Index(i int) Key { return Key{index: i, indexed: true} }

// Field returns the key for the named entry of a mapping.
func Field(name string) Key { return Key{name: name} }

// IsIndex reports whether k is a sequence step.
func (k Key) IsIndex() bool { return k.indexed }

// Index returns the sequence position; meaningful only when IsIndex is true.
func (k Key) Index() int { return k.index }

// Name returns the field name; meaningful only when IsIndex is false.
func (k Key) Name() string { return k.name }

// String renders the step the way Resolve appends it.
func (k Key) String() string {
	if k.indexed {
		return "[" + strconv.Itoa(k.index) + "]"
	}
	return "." + k.name
}

// Resolve returns the path of key beneath parent. An empty parent is the
// root. The rendering depends only on the key's own kind, so two trees
// walked in lock-step always produce the same path for the same step.
func Resolve(parent Path, key Key) Path {
	if parent == "" {
		parent = Root
	}
	return parent + Path(key.String())
}

// Child is Resolve(p, key).
func (p Path) Child(key Key) Path { return Resolve(p, key) }

func (p Path) String() string {
	if p == "" {
		return string(Root)
	}
	return string(p)
}
