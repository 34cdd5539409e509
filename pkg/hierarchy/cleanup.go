package hierarchy

import (
	"github.com/panbanda/libmodel/pkg/jvm"
)

// Reachable answers membership in the reachability sets.
type Reachable interface {
	ContainsMethod(m *jvm.Method) bool
	ContainsField(f *jvm.Field) bool
}

// finalizerRegister is the hook every cleaned universe declares.
const finalizerRegister = "void register(java.lang.Object)"

// CleanupLibraryClasses drops library members that application code cannot
// reach and that no structural rule needs. Any doubt keeps the member.
// Kept regardless of reachability:
//   - library methods overridden by application methods
//   - overrides, in library subtypes, of kept methods
//   - static initializers and one constructor per class (the no-argument one
//     if declared, else the first)
//   - every member of generated or phantom types
//
// Afterwards the universe declares java.lang.ref.Finalizer.register(Object)
// exactly once.
func (h *Hierarchy) CleanupLibraryClasses(r Reachable) Stats {
	finalizer, added := h.ensureFinalizerHook()

	keep := make(map[*jvm.Method]bool)
	for _, o := range h.LibrarySuperMethodsOfApplicationMethods() {
		keep[o.Library] = true
	}
	keep[finalizer] = true

	libs := h.LibraryTypes()
	for _, t := range libs {
		for _, m := range t.Methods {
			if r.ContainsMethod(m) {
				keep[m] = true
			}
		}
	}

	// Virtual dispatch on a kept method may land on any library override.
	for _, t := range libs {
		supers := h.SupertypesOf(t)
		for _, m := range t.Methods {
			if keep[m] || !overridable(m) {
				continue
			}
			subsig := m.SubSignature()
			for _, s := range supers {
				if sm := s.Method(subsig); sm != nil && keep[sm] {
					keep[m] = true
					break
				}
			}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats.AddedLibraryMethods += added
	for _, t := range libs {
		if t.Generated || t.Phantom {
			continue
		}
		ctor := t.DefaultConstructor()
		if ctor == nil {
			if cs := t.Constructors(); len(cs) > 0 {
				ctor = cs[0]
			}
		}

		methods := t.Methods[:0]
		for _, m := range t.Methods {
			if keep[m] || m == ctor || m.IsStaticInitializer() {
				methods = append(methods, m)
				continue
			}
			h.stats.RemovedLibraryMethods++
		}
		clear(t.Methods[len(methods):])
		t.Methods = methods

		fields := t.Fields[:0]
		for _, f := range t.Fields {
			if r.ContainsField(f) {
				fields = append(fields, f)
				continue
			}
			h.stats.RemovedLibraryFields++
		}
		clear(t.Fields[len(fields):])
		t.Fields = fields
	}
	return h.statsLocked()
}

// ensureFinalizerHook returns the Finalizer.register method, declaring the
// class and the method when the universe lacks them, and the number of
// methods it declared.
func (h *Hierarchy) ensureFinalizerHook() (*jvm.Method, int) {
	added := 0
	t := h.Type(jvm.FinalizerClass)
	if t == nil {
		t = jvm.NewType(jvm.FinalizerClass, jvm.KindClass, jvm.Final, jvm.ObjectClass, jvm.Library)
		t.Phantom = true
		t.AddMethod(jvm.NewMethod(jvm.ConstructorName, nil, jvm.Void, jvm.Private))
		// Object is always present, so this cannot fail.
		_ = h.AddType(t)
		added++
	}
	if m := t.Method(finalizerRegister); m != nil {
		return m, added
	}
	return h.AddMethod(t, jvm.NewMethod("register", []jvm.TypeRef{jvm.Object}, jvm.Void, jvm.Static)), added + 1
}
