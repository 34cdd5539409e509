package jvm

import (
	"fmt"
	"strings"
)

// Modifiers is a bit set of declaration modifiers.
type Modifiers uint32

const (
	Public Modifiers = 1 << iota
	Private
	Protected
	Static
	Final
	Synchronized
	Native
	Abstract
	Transient
	Volatile
)

var modifierNames = []struct {
	flag Modifiers
	name string
}{
	{Public, "public"},
	{Private, "private"},
	{Protected, "protected"},
	{Static, "static"},
	{Final, "final"},
	{Synchronized, "synchronized"},
	{Native, "native"},
	{Abstract, "abstract"},
	{Transient, "transient"},
	{Volatile, "volatile"},
}

// Has reports whether every flag in f is set.
func (m Modifiers) Has(f Modifiers) bool {
	return m&f == f
}

// Strings lists the set modifiers in canonical order.
func (m Modifiers) Strings() []string {
	var out []string
	for _, mn := range modifierNames {
		if m&mn.flag != 0 {
			out = append(out, mn.name)
		}
	}
	return out
}

func (m Modifiers) String() string {
	return strings.Join(m.Strings(), " ")
}

// ParseModifiers converts modifier keywords into a Modifiers set. Keywords
// that carry no meaning for the model ("default", "strictfp", "sealed", ...)
// are ignored.
func ParseModifiers(words []string) (Modifiers, error) {
	var m Modifiers
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		found := false
		for _, mn := range modifierNames {
			if mn.name == w {
				m |= mn.flag
				found = true
				break
			}
		}
		if found {
			continue
		}
		switch w {
		case "default", "strictfp", "sealed", "non-sealed", "interface", "concrete", "":
		default:
			return 0, fmt.Errorf("unknown modifier %q", w)
		}
	}
	return m, nil
}
