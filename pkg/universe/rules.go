package universe

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Rules decide which classes of application documents belong to the
// application. A rule is one of:
//
//	pkg.*    classes of package pkg
//	pkg.**   classes of pkg and every package below it
//	**       classes of the default package
//	a.b.C    exactly that class
//
// Matching ignores case. Class names are matched as slash-separated paths so
// a single * never crosses a package boundary.
type Rules struct {
	raw      []string
	patterns []string
}

// NewRules compiles the rules.
func NewRules(rules []string) (*Rules, error) {
	r := &Rules{raw: rules}
	for _, rule := range rules {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		p := toPattern(rule)
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid application rule %q", rule)
		}
		r.patterns = append(r.patterns, p)
	}
	return r, nil
}

func toPattern(rule string) string {
	rule = strings.ToLower(rule)
	switch {
	case rule == "**":
		return "*"
	case strings.HasSuffix(rule, ".**"):
		return classPath(strings.TrimSuffix(rule, ".**")) + "/**"
	case strings.HasSuffix(rule, ".*"):
		return classPath(strings.TrimSuffix(rule, ".*")) + "/*"
	}
	return classPath(rule)
}

func classPath(name string) string {
	return strings.ReplaceAll(name, ".", "/")
}

// Empty reports whether no rule was given.
func (r *Rules) Empty() bool {
	return r == nil || len(r.patterns) == 0
}

// Match reports whether class name is application code. Without rules every
// class matches.
func (r *Rules) Match(name string) bool {
	if r.Empty() {
		return true
	}
	path := classPath(strings.ToLower(name))
	for _, p := range r.patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

func (r *Rules) String() string {
	if r == nil {
		return ""
	}
	return strings.Join(r.raw, ",")
}
