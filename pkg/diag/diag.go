// Package diag collects the items a run skipped or failed on.
package diag

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Category classifies a diagnostic.
type Category int

const (
	// InputInconsistency is recovered locally: the item is skipped.
	InputInconsistency Category = iota
	// ContractViolation is fatal to the member's emission; the run is degraded.
	ContractViolation
	// ValidationFailure is a synthesized body that failed structural validation.
	ValidationFailure
)

func (c Category) String() string {
	switch c {
	case ContractViolation:
		return "contract-violation"
	case ValidationFailure:
		return "validation-failure"
	default:
		return "input-inconsistency"
	}
}

// MarshalText renders the category by name in JSON, YAML and TOON output.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Diagnostic is one skipped or failed item.
type Diagnostic struct {
	Category Category `json:"category" yaml:"category"`
	Type     string   `json:"type" yaml:"type"`
	Member   string   `json:"member,omitempty" yaml:"member,omitempty"`
	Reason   string   `json:"reason" yaml:"reason"`
}

func (d Diagnostic) String() string {
	if d.Member == "" {
		return fmt.Sprintf("[%s] %s: %s", d.Category, d.Type, d.Reason)
	}
	return fmt.Sprintf("[%s] %s.%s: %s", d.Category, d.Type, d.Member, d.Reason)
}

// Collector accumulates diagnostics. It is safe for concurrent use and a nil
// Collector discards everything.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add records a diagnostic and logs it.
func (c *Collector) Add(cat Category, typ, member, reason string) {
	if c == nil {
		return
	}
	entry := log.WithFields(log.Fields{
		"category": cat.String(),
		"type":     typ,
	})
	if member != "" {
		entry = entry.WithField("member", member)
	}
	if cat == InputInconsistency {
		entry.Debug(reason)
	} else {
		entry.Warn(reason)
	}

	c.mu.Lock()
	c.items = append(c.items, Diagnostic{Category: cat, Type: typ, Member: member, Reason: reason})
	c.mu.Unlock()
}

// Addf is Add with a formatted reason.
func (c *Collector) Addf(cat Category, typ, member, format string, args ...any) {
	c.Add(cat, typ, member, fmt.Sprintf(format, args...))
}

// All returns the diagnostics sorted by category, type, member and reason.
func (c *Collector) All() []Diagnostic {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	out := slices.Clone(c.items)
	c.mu.Unlock()

	slices.SortStableFunc(out, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Category, b.Category),
			cmp.Compare(a.Type, b.Type),
			cmp.Compare(a.Member, b.Member),
			cmp.Compare(a.Reason, b.Reason),
		)
	})
	return out
}

// Len returns the number of recorded diagnostics.
func (c *Collector) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Count returns how many diagnostics of cat were recorded.
func (c *Collector) Count(cat Category) int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.items {
		if d.Category == cat {
			n++
		}
	}
	return n
}

// Degraded reports whether any member failed synthesis or emission.
func (c *Collector) Degraded() bool {
	return c.Count(ContractViolation) > 0 || c.Count(ValidationFailure) > 0
}

// Reset drops every recorded diagnostic.
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}
