package store

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/airset-dev/airset/pkg/tree"
)

// CompareMode selects one of the built-in comparisons used by Set.
type CompareMode int

const (
	// CompareShallow treats data as unchanged when its immediate children
	// are identical. It is the default.
	CompareShallow CompareMode = iota

	// CompareIdentity treats data as unchanged only when it is the same
	// reference.
	CompareIdentity

	// CompareDeep treats data as unchanged when it is structurally equal.
	CompareDeep
)

// String returns the mode's configuration name.
func (m CompareMode) String() string {
	switch m {
	case CompareShallow:
		return "shallow"
	case CompareIdentity:
		return "identity"
	case CompareDeep:
		return "deep"
	default:
		return fmt.Sprintf("CompareMode(%d)", int(m))
	}
}

// ParseCompareMode parses "identity", "shallow" or "deep".
func ParseCompareMode(s string) (CompareMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shallow", "":
		return CompareShallow, nil
	case "identity":
		return CompareIdentity, nil
	case "deep":
		return CompareDeep, nil
	}
	return 0, fmt.Errorf("store: unknown compare mode %q", s)
}

// Comparator returns the tree comparison implementing m.
func (m CompareMode) Comparator() tree.Comparator {
	switch m {
	case CompareIdentity:
		return tree.IdentityEqual
	case CompareDeep:
		return func(a, b tree.Value) bool { return tree.DeepEqual(a, b, nil) }
	default:
		return func(a, b tree.Value) bool { return tree.ShallowEqual(a, b, nil) }
	}
}

// Option configures a Store.
type Option func(*Store)

// WithName sets the store name used in logs, metrics and the inspector.
func WithName(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.name = name
		}
	}
}

// WithDebug logs every lifecycle event at debug level.
func WithDebug(debug bool) Option {
	return func(s *Store) {
		s.debug = debug
	}
}

// WithLogger sets the logger. The store adds its own name attribute.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCompare sets the default comparison used by Set.
func WithCompare(cmp tree.Comparator) Option {
	return func(s *Store) {
		if cmp != nil {
			s.compare = cmp
		}
	}
}

// WithCompareMode sets the default comparison used by Set to a built-in mode.
func WithCompareMode(mode CompareMode) Option {
	return func(s *Store) {
		s.compare = mode.Comparator()
	}
}

// WithMergeRules sets the path overrides used when Update merges new data
// onto the current data.
func WithMergeRules(m tree.ComparatorMatcher) Option {
	return func(s *Store) {
		s.mergeRules = m
	}
}

// WithMiddleware appends middleware wrapping every Run. The first
// middleware given is the outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(s *Store) {
		for _, m := range mw {
			if m != nil {
				s.middleware = append(s.middleware, m)
			}
		}
	}
}

// OnCreated registers a handler for EventCreated.
func OnCreated(fn Handler) Option { return onEvent(EventCreated, fn) }

// OnRendered registers a handler for EventRendered.
func OnRendered(fn Handler) Option { return onEvent(EventRendered, fn) }

// OnUpdateBefore registers a handler for EventUpdateBefore.
func OnUpdateBefore(fn Handler) Option { return onEvent(EventUpdateBefore, fn) }

// OnUpdated registers a handler for EventUpdated.
func OnUpdated(fn Handler) Option { return onEvent(EventUpdated, fn) }

// OnDestroyBefore registers a handler for EventDestroyBefore.
func OnDestroyBefore(fn Handler) Option { return onEvent(EventDestroyBefore, fn) }

func onEvent(typ EventType, fn Handler) Option {
	return func(s *Store) {
		s.events.on(typ, fn)
	}
}

// SetOption adjusts a single write.
type SetOption func(*setConfig)

type setConfig struct {
	compare tree.Comparator
}

// NoCompare commits the write without comparing it to the current data.
func NoCompare() SetOption {
	return func(c *setConfig) {
		c.compare = nil
	}
}

// CompareWith uses cmp instead of the store default for this write.
func CompareWith(cmp tree.Comparator) SetOption {
	return func(c *setConfig) {
		c.compare = cmp
	}
}

// CompareBy uses a built-in mode instead of the store default for this write.
func CompareBy(mode CompareMode) SetOption {
	return func(c *setConfig) {
		c.compare = mode.Comparator()
	}
}
