package tree

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Rules is a Matcher backed by a table of path patterns. The first pattern
// added that matches a path wins.
//
// Patterns use the Path syntax plus two wildcards:
//
//	$.items[*].id   any index
//	$.users.*.name  any field name
//
// A pattern without wildcards matches by string equality, so it can target
// field names that contain '.' or '['.
//
// Rules is safe for concurrent use; it is typically built once and shared.
type Rules[O any] struct {
	mu    sync.RWMutex
	rules []rule[O]
}

type rule[O any] struct {
	pattern  string
	re       *regexp.Regexp
	override O
}

// NewRules returns an empty rule table.
func NewRules[O any]() *Rules[O] {
	return &Rules[O]{}
}

// Add compiles pattern and appends it to the table.
func (r *Rules[O]) Add(pattern string, override O) error {
	re, err := compilePattern(pattern)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.rules = append(r.rules, rule[O]{pattern: pattern, re: re, override: override})
	r.mu.Unlock()
	return nil
}

// MustAdd is Add that panics on an invalid pattern. It returns r for chaining.
func (r *Rules[O]) MustAdd(pattern string, override O) *Rules[O] {
	if err := r.Add(pattern, override); err != nil {
		panic(err)
	}
	return r
}

// Len returns the number of rules.
func (r *Rules[O]) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// Match implements Matcher.
func (r *Rules[O]) Match(path Path) (O, bool) {
	var zero O
	if r == nil {
		return zero, false
	}
	p := path.String()
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rl := range r.rules {
		if rl.re == nil {
			if rl.pattern == p {
				return rl.override, true
			}
			continue
		}
		if rl.re.MatchString(p) {
			return rl.override, true
		}
	}
	return zero, false
}

// compilePattern returns nil for literal patterns.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if !strings.HasPrefix(pattern, string(Root)) {
		return nil, fmt.Errorf("tree: pattern %q must start with %q", pattern, Root)
	}
	if !strings.Contains(pattern, "*") {
		return nil, nil
	}

	var b strings.Builder
	b.WriteString(`^\$`)
	rest := pattern[1:]
	for len(rest) > 0 {
		switch rest[0] {
		case '.':
			end := strings.IndexAny(rest[1:], ".[")
			if end < 0 {
				end = len(rest) - 1
			}
			name := rest[1 : 1+end]
			switch {
			case name == "":
				return nil, fmt.Errorf("tree: empty field step in pattern %q", pattern)
			case name == "*":
				b.WriteString(`\.[^.\[]+`)
			case strings.Contains(name, "*"):
				return nil, fmt.Errorf("tree: partial wildcard %q in pattern %q", name, pattern)
			default:
				b.WriteString(`\.` + regexp.QuoteMeta(name))
			}
			rest = rest[1+end:]
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, fmt.Errorf("tree: unterminated index in pattern %q", pattern)
			}
			idx := rest[1:end]
			if idx == "*" {
				b.WriteString(`\[[0-9]+\]`)
			} else if idx == "" || strings.Trim(idx, "0123456789") != "" {
				return nil, fmt.Errorf("tree: invalid index %q in pattern %q", idx, pattern)
			} else {
				b.WriteString(`\[` + idx + `\]`)
			}
			rest = rest[end+1:]
		default:
			return nil, fmt.Errorf("tree: unexpected %q in pattern %q", rest[0], pattern)
		}
	}
	b.WriteString(`$`)
	return regexp.Compile(b.String())
}
