// Package tree compares, replicates and merges tree-shaped data.
//
// A tree is built from three kinds of Value: Leaf (any non-container value),
// *Sequence (index-addressed) and *Mapping (named entries in insertion
// order). Containers are compared by pointer for identity and by content for
// structural equality, and may reference each other freely, cycles included.
//
// # Engines
//
// Equality:
//
//	IdentityEqual(a, b)       // same reference, total-order identity for leaves
//	ShallowEqual(a, b, m)     // immediate children identical
//	DeepEqual(a, b, m)        // structurally equal, cycle-safe
//
// Replication:
//
//	ShallowClone(v, m)        // one new container, same children
//	DeepClone(v, m)           // fresh containers everywhere, cycles preserved
//
// Merging:
//
//	unchanged, result := DeepUpdate(old, next, m)
//
// DeepUpdate rewrites next so that every subtree deeply equal to its
// counterpart in old is replaced by old's reference. A consumer holding the
// previous value can then skip work for any branch whose reference did not
// change.
//
// # Paths and Matchers
//
// Every node reached during a traversal has a Path such as "$.users[2].name".
// The optional Matcher argument maps paths to overrides: a Comparator for the
// equality and merge engines, a Replicator for the clone engine. Use
// MatcherFunc for a closure, At for a single path, or Rules for a table of
// wildcard patterns:
//
//	rules := tree.NewRules[tree.Comparator]().
//	    MustAdd("$.items[*].updatedAt", func(a, b tree.Value) bool { return true })
//	tree.DeepEqual(a, b, rules)
//
// # Concurrency
//
// The engines keep no state between calls; each call allocates its own visit
// cache and drops it on return. Calls may run concurrently as long as no one
// mutates their inputs meanwhile. DeepUpdate mutates next.
//
// Recursion follows the input: very deep acyclic trees can exhaust the
// goroutine stack. Callers that accept untrusted input should bound depth.
package tree
