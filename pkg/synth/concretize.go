package synth

import (
	"slices"

	log "github.com/sirupsen/logrus"

	"github.com/panbanda/libmodel/pkg/jvm"
)

// Concretize creates one concrete library class for every library interface
// without a concrete library implementer and every abstract library class
// without a concrete library subclass. Each crafted class overrides every
// inherited abstract method with a stub and declares a public no-argument
// constructor. Bodies are filled in by MemberBodies.
func (s *Synthesizer) Concretize() ([]*jvm.Type, Stats, error) {
	targets := append(s.h.LibraryInterfacesNotImplementedInLibrary(),
		s.h.AbstractLibraryClassesNotImplementedInLibrary()...)
	jvm.SortTypes(targets)

	var (
		out []*jvm.Type
		st  Stats
	)
	for _, abs := range targets {
		c := s.craft(abs)
		if err := s.h.AddType(c); err != nil {
			return nil, st, err
		}
		out = append(out, c)
		st.CraftedClasses++
		st.Classes++
		st.Methods += len(c.Methods)
		log.WithFields(log.Fields{"type": abs.Name, "crafted": c.Name}).Debug("crafted concrete implementation")
	}
	return out, st, nil
}

func (s *Synthesizer) craft(abs *jvm.Type) *jvm.Type {
	name := freeName(s.h, s.crafted, abs.Name, s.opts.CraftedSuffix)
	s.crafted[name] = true

	var c *jvm.Type
	if abs.IsInterface() {
		c = jvm.NewType(name, jvm.KindClass, jvm.Public, jvm.ObjectClass, jvm.Library)
		c.Interfaces = []string{abs.Name}
	} else {
		c = jvm.NewType(name, jvm.KindClass, jvm.Public, abs.Name, jvm.Library)
	}
	c.Generated = true
	c.AddMethod(jvm.NewMethod(jvm.ConstructorName, nil, jvm.Void, jvm.Public))
	for _, m := range s.abstractMethods(abs) {
		stub := jvm.NewMethod(m.Name, slices.Clone(m.Params), m.Return, jvm.Public)
		c.AddMethod(stub)
	}
	return c
}

// abstractMethods returns the abstract instance methods a concrete subtype of
// t must implement, one per subsignature. The class chain is searched before
// the superinterfaces and the first declaration of a subsignature wins, so a
// concrete method in a superclass satisfies an interface method.
func (s *Synthesizer) abstractMethods(t *jvm.Type) []*jvm.Method {
	seen := make(map[string]bool)
	var out []*jvm.Method
	visit := func(owner *jvm.Type) {
		for _, m := range owner.Methods {
			if m.IsConstructor() || m.IsStatic() || m.IsPrivate() {
				continue
			}
			subsig := m.SubSignature()
			if seen[subsig] {
				continue
			}
			seen[subsig] = true
			if m.IsAbstract() {
				out = append(out, m)
			}
		}
	}

	if !t.IsInterface() {
		visit(t)
		for _, sc := range s.h.SuperclassesOf(t) {
			visit(sc)
		}
		for _, i := range s.h.SuperinterfacesOf(t) {
			visit(i)
		}
		return out
	}
	for _, i := range s.h.SuperinterfacesOfIncluding(t) {
		visit(i)
	}
	// java.lang.Object methods are inherited by the crafted class.
	if obj := s.h.Type(jvm.ObjectClass); obj != nil {
		out = slices.DeleteFunc(out, func(m *jvm.Method) bool {
			return obj.Method(m.SubSignature()) != nil
		})
	}
	return out
}
