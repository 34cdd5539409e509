package hierarchy

import (
	"slices"

	"github.com/panbanda/libmodel/pkg/jvm"
)

// SuperclassesOf returns the superclass chain of t, nearest first, ending at
// java.lang.Object.
func (h *Hierarchy) SuperclassesOf(t *jvm.Type) []*jvm.Type {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.superclassesOf(t)
}

func (h *Hierarchy) superclassesOf(t *jvm.Type) []*jvm.Type {
	var out []*jvm.Type
	seen := map[*jvm.Type]bool{t: true}
	for s := h.types[t.Super]; s != nil && !seen[s]; s = h.types[s.Super] {
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// SuperinterfacesOf returns every interface t and its superclasses implement,
// transitively, breadth first and without duplicates. t itself is excluded.
func (h *Hierarchy) SuperinterfacesOf(t *jvm.Type) []*jvm.Type {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.superinterfacesOf(t)
}

// SuperinterfacesOfIncluding is SuperinterfacesOf with t prepended when t is an
// interface.
func (h *Hierarchy) SuperinterfacesOfIncluding(t *jvm.Type) []*jvm.Type {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := h.superinterfacesOf(t)
	if t.IsInterface() {
		out = append([]*jvm.Type{t}, out...)
	}
	return out
}

func (h *Hierarchy) superinterfacesOf(t *jvm.Type) []*jvm.Type {
	seen := map[*jvm.Type]bool{t: true}
	var out []*jvm.Type
	queue := []*jvm.Type{t}
	queue = append(queue, h.superclassesOf(t)...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, name := range cur.Interfaces {
			i := h.types[name]
			if i == nil || seen[i] {
				continue
			}
			seen[i] = true
			out = append(out, i)
			queue = append(queue, i)
		}
	}
	return out
}

// SupertypesOf returns the superclasses of t followed by its superinterfaces.
func (h *Hierarchy) SupertypesOf(t *jvm.Type) []*jvm.Type {
	h.cacheMu.Lock()
	cached, ok := h.supertypes[t.Name]
	h.cacheMu.Unlock()
	if ok {
		return slices.Clone(cached)
	}

	h.mu.RLock()
	out := append(h.superclassesOf(t), h.superinterfacesOf(t)...)
	h.mu.RUnlock()

	h.cacheMu.Lock()
	h.supertypes[t.Name] = out
	h.cacheMu.Unlock()
	return slices.Clone(out)
}

// SubtypesOf returns every transitive subclass and implementer of t, breadth
// first and without duplicates. t itself is excluded.
func (h *Hierarchy) SubtypesOf(t *jvm.Type) []*jvm.Type {
	h.cacheMu.Lock()
	cached, ok := h.subtypes[t.Name]
	h.cacheMu.Unlock()
	if ok {
		return slices.Clone(cached)
	}

	h.mu.RLock()
	seen := map[*jvm.Type]bool{t: true}
	var out []*jvm.Type
	queue := []*jvm.Type{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		direct := append(slices.Clone(h.subclasses[cur.Name]), h.implementers[cur.Name]...)
		for _, s := range direct {
			if seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
			queue = append(queue, s)
		}
	}
	h.mu.RUnlock()

	h.cacheMu.Lock()
	h.subtypes[t.Name] = out
	h.cacheMu.Unlock()
	return slices.Clone(out)
}

// ConcreteSubtypesOf returns the subtypes of t that are neither abstract nor
// interfaces.
func (h *Hierarchy) ConcreteSubtypesOf(t *jvm.Type) []*jvm.Type {
	var out []*jvm.Type
	for _, s := range h.SubtypesOf(t) {
		if s.IsConcrete() {
			out = append(out, s)
		}
	}
	return out
}

// IsSubtype reports whether sub is super or one of its subtypes.
func (h *Hierarchy) IsSubtype(sub, super *jvm.Type) bool {
	if sub == super {
		return true
	}
	return slices.Contains(h.SupertypesOf(sub), super)
}

// CompatibleConcreteTypes returns the concrete types a value of type ref may
// have at run time: the type itself when it is concrete, else its concrete
// subtypes, sorted so enclosing types precede nested ones. Arrays, primitives
// and unknown types have none.
func (h *Hierarchy) CompatibleConcreteTypes(ref jvm.TypeRef) []*jvm.Type {
	if !ref.IsClass() {
		return nil
	}
	t := h.Type(ref.Name)
	if t == nil {
		return nil
	}
	if t.IsConcrete() {
		return []*jvm.Type{t}
	}
	out := h.ConcreteSubtypesOf(t)
	jvm.SortTypes(out)
	return out
}

// IsLibraryMethod reports whether sig names a declared library method.
func (h *Hierarchy) IsLibraryMethod(sig string) bool {
	m := h.lookupMethod(sig)
	return m != nil && m.Provenance() == jvm.Library
}

// IsApplicationMethod reports whether sig names a declared application method.
func (h *Hierarchy) IsApplicationMethod(sig string) bool {
	m := h.lookupMethod(sig)
	return m != nil && m.Provenance() == jvm.Application
}

// IsLibraryField reports whether sig names a declared library field.
func (h *Hierarchy) IsLibraryField(sig string) bool {
	fs, err := jvm.ParseFieldSignature(sig)
	if err != nil {
		return false
	}
	t := h.Type(fs.Owner)
	if t == nil {
		return false
	}
	f := t.Field(fs.Name)
	return f != nil && f.Type == fs.Type && t.IsLibrary()
}

// IsApplicationClass reports whether name is a declared application type.
func (h *Hierarchy) IsApplicationClass(name string) bool {
	t := h.Type(name)
	return t != nil && t.IsApplication()
}

// LookupMethod resolves a "<owner: ret name(params)>" signature to the method
// declared on owner.
func (h *Hierarchy) LookupMethod(sig string) *jvm.Method {
	return h.lookupMethod(sig)
}

func (h *Hierarchy) lookupMethod(sig string) *jvm.Method {
	ms, err := jvm.ParseMethodSignature(sig)
	if err != nil {
		return nil
	}
	t := h.Type(ms.Owner)
	if t == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return t.Method(ms.SubSignature())
}

// LibraryInterfacesNotImplementedInLibrary returns the library interfaces that
// no concrete library class implements. Generated interfaces are skipped.
func (h *Hierarchy) LibraryInterfacesNotImplementedInLibrary() []*jvm.Type {
	return h.withoutLibraryImplementation(func(t *jvm.Type) bool {
		return t.IsInterface()
	})
}

// AbstractLibraryClassesNotImplementedInLibrary returns the abstract library
// classes that have no concrete library subclass.
func (h *Hierarchy) AbstractLibraryClassesNotImplementedInLibrary() []*jvm.Type {
	return h.withoutLibraryImplementation(func(t *jvm.Type) bool {
		return !t.IsInterface() && t.IsAbstract()
	})
}

func (h *Hierarchy) withoutLibraryImplementation(kind func(*jvm.Type) bool) []*jvm.Type {
	var out []*jvm.Type
	for _, t := range h.LibraryTypes() {
		if t.Generated || !kind(t) {
			continue
		}
		implemented := false
		for _, s := range h.ConcreteSubtypesOf(t) {
			if s.IsLibrary() {
				implemented = true
				break
			}
		}
		if !implemented {
			out = append(out, t)
		}
	}
	return out
}

// Override pairs an application method with a library method it overrides.
type Override struct {
	Application *jvm.Method
	Library     *jvm.Method
}

// LibrarySuperMethodsOfApplicationMethods returns every library method that an
// application method overrides, ordered by application type and declaration.
func (h *Hierarchy) LibrarySuperMethodsOfApplicationMethods() []Override {
	var out []Override
	for _, t := range h.ApplicationTypes() {
		supers := h.SupertypesOf(t)
		for _, m := range t.Methods {
			if !overridable(m) {
				continue
			}
			subsig := m.SubSignature()
			for _, s := range supers {
				if !s.IsLibrary() {
					continue
				}
				if lm := s.Method(subsig); lm != nil && overridable(lm) {
					out = append(out, Override{Application: m, Library: lm})
				}
			}
		}
	}
	return out
}

func overridable(m *jvm.Method) bool {
	return !m.IsConstructor() && !m.IsStatic() && !m.IsPrivate()
}
