package entrypoint

import (
	"slices"

	"github.com/panbanda/libmodel/pkg/diag"
	"github.com/panbanda/libmodel/pkg/hierarchy"
	"github.com/panbanda/libmodel/pkg/jvm"
)

// Step is one driver instruction: construct Class with every constructor and
// publish each instance under Class and Contract.
type Step struct {
	Class        *jvm.Type
	Contract     *jvm.Type
	Constructors []*jvm.Method
	// Outer is the enclosing entry-point class whose instance is passed to
	// constructor parameters of its type. It is always planned earlier.
	Outer *jvm.Type
	Tag   Tag
}

// Plan orders the entries of m into driver steps, enclosing types before the
// types nested in them. Entries whose contract the hierarchy does not know,
// abstract classes and classes without constructors are skipped; all but
// abstract classes are recorded in diags.
func Plan(m *Map, h *hierarchy.Hierarchy, diags *diag.Collector) []Step {
	if m == nil {
		return nil
	}
	entries := slices.Clone(m.Entries)
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return jvm.CompareNames(a.Class.Name, b.Class.Name)
	})
	planned := make(map[string]*jvm.Type, len(entries))
	var steps []Step
	for _, e := range entries {
		if e.Contract == nil || h.Type(e.Contract.Name) != e.Contract {
			name := "<nil>"
			if e.Contract != nil {
				name = e.Contract.Name
			}
			diags.Add(diag.InputInconsistency, e.Class.Name, "", "entry-point contract "+name+" not in hierarchy")
			continue
		}
		if e.Class.IsAbstract() {
			continue
		}
		ctors := e.Class.Constructors()
		if len(ctors) == 0 {
			diags.Add(diag.InputInconsistency, e.Class.Name, "", "entry-point class declares no constructor")
			continue
		}
		step := Step{Class: e.Class, Contract: e.Contract, Constructors: ctors, Tag: e.Tag}
		if outer := e.Class.Outer(); outer != "" {
			step.Outer = planned[outer]
		}
		planned[e.Class.Name] = e.Class
		steps = append(steps, step)
	}
	return steps
}

// OuterArgIndex returns the index of the first parameter of ctor typed as
// outer, or -1.
func (s Step) OuterArgIndex(ctor *jvm.Method) int {
	if s.Outer == nil {
		return -1
	}
	for i, p := range ctor.Params {
		if p == s.Outer.Ref() {
			return i
		}
	}
	return -1
}
