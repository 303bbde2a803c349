// Package store holds application state as a tree.Value and commits changes
// to it with reference-preserving merges.
//
// # Writes
//
// A Store offers two families of writes. Set, Reset and SetPart replace the
// data and use a comparison to skip no-op writes:
//
//	s := store.New(tree.NewMapping(tree.P("count", tree.Int(0))))
//	s.Set(next)                      // skipped when shallow-equal
//	s.Set(next, store.NoCompare())   // always committed
//	s.Set(next, store.CompareBy(store.CompareDeep))
//
// Update and UpdatePart merge the incoming data onto the current data with
// tree.DeepUpdate. Subtrees that did not change keep their current
// references, so a subscriber can tell which branches changed with
// tree.IdentityEqual:
//
//	before := s.Data()
//	s.Update(next)
//	after := s.Data()
//	a, _ := after.(*tree.Mapping).Get("user")
//	b, _ := before.(*tree.Mapping).Get("user")
//	userChanged := !tree.IdentityEqual(a, b)
//
// # Runs
//
// Run executes tasks against a deep clone of the data and merges the clone
// back when all tasks succeed. Runs of one store are queued and execute one
// at a time in call order:
//
//	tc, err := s.Run(ctx, func(tc *store.TaskContext) error {
//	    m := tc.Data.(*tree.Mapping)
//	    m.Set("loading", tree.Bool(true))
//	    tc.Update()
//	    // ... fetch ...
//	    m.Set("loading", tree.Bool(false))
//	    return nil
//	})
//
// Middleware wraps every run; see package middleware for Prometheus metrics
// and OpenTelemetry tracing.
//
// # Lifecycle
//
// A store emits EventCreated and EventRendered when mounted,
// EventUpdateBefore, EventUpdated and EventRendered around every commit, and
// EventDestroyBefore when destroyed. Subscribe registers a Listener marked
// dirty after every commit.
package store
