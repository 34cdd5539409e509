// Package reachability resolves application cross-references against the
// hierarchy and derives the sets of library members the application reaches.
package reachability

import (
	"sync"

	"github.com/panbanda/libmodel/pkg/diag"
	"github.com/panbanda/libmodel/pkg/hierarchy"
	"github.com/panbanda/libmodel/pkg/jvm"
)

// Resolver maps cross-reference triples to declared members. Results are
// memoized for the lifetime of the resolver, so resolving a triple twice
// returns the same members.
type Resolver struct {
	h     *hierarchy.Hierarchy
	diags *diag.Collector

	mu      sync.Mutex
	methods map[jvm.SymbolRef][]*jvm.Method
	fields  map[jvm.SymbolRef][]*jvm.Field
}

// NewResolver creates a resolver over h. Unresolvable triples are reported
// to diags.
func NewResolver(h *hierarchy.Hierarchy, diags *diag.Collector) *Resolver {
	return &Resolver{
		h:       h,
		diags:   diags,
		methods: make(map[jvm.SymbolRef][]*jvm.Method),
		fields:  make(map[jvm.SymbolRef][]*jvm.Field),
	}
}

// ResolveMethod returns the methods ref denotes. An empty descriptor matches
// every overload found at the first level of the lookup that has one.
func (r *Resolver) ResolveMethod(ref jvm.SymbolRef) []*jvm.Method {
	ref.Kind = jvm.MethodMember
	r.mu.Lock()
	cached, ok := r.methods[ref]
	r.mu.Unlock()
	if ok {
		return cached
	}

	var out []*jvm.Method
	if ref.Owner == jvm.AnyOwner {
		out = r.methodsAnywhere(ref)
	} else if t := r.h.Type(ref.Owner); t != nil {
		out = r.lookupMethod(t, ref, map[*jvm.Type]bool{})
	}
	if len(out) == 0 {
		r.diags.Add(diag.InputInconsistency, ref.Owner, ref.Name+ref.Descriptor, "unresolved method reference")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// another goroutine may have won the race; keep its identities
	if prior, ok := r.methods[ref]; ok {
		return prior
	}
	r.methods[ref] = out
	return out
}

// ResolveField returns the fields ref denotes.
func (r *Resolver) ResolveField(ref jvm.SymbolRef) []*jvm.Field {
	ref.Kind = jvm.FieldMember
	r.mu.Lock()
	cached, ok := r.fields[ref]
	r.mu.Unlock()
	if ok {
		return cached
	}

	var out []*jvm.Field
	if ref.Owner == jvm.AnyOwner {
		out = r.fieldsAnywhere(ref)
	} else if t := r.h.Type(ref.Owner); t != nil {
		out = r.lookupField(t, ref, map[*jvm.Type]bool{})
	}
	if len(out) == 0 {
		r.diags.Add(diag.InputInconsistency, ref.Owner, ref.Name, "unresolved field reference")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if prior, ok := r.fields[ref]; ok {
		return prior
	}
	r.fields[ref] = out
	return out
}

// lookupMethod walks t, its superclasses, its superinterfaces and finally
// its enclosing type.
func (r *Resolver) lookupMethod(t *jvm.Type, ref jvm.SymbolRef, visited map[*jvm.Type]bool) []*jvm.Method {
	if visited[t] {
		return nil
	}
	visited[t] = true

	if found := declaredMethods(t, ref); len(found) > 0 {
		return found
	}
	if ref.Name == jvm.ConstructorName || ref.Name == jvm.StaticInitName {
		return nil
	}
	for _, s := range r.h.SuperclassesOf(t) {
		if found := declaredMethods(s, ref); len(found) > 0 {
			return found
		}
	}
	for _, i := range r.h.SuperinterfacesOf(t) {
		if found := declaredMethods(i, ref); len(found) > 0 {
			return found
		}
	}
	if outer := r.h.Type(t.Outer()); outer != nil {
		return r.lookupMethod(outer, ref, visited)
	}
	return nil
}

func (r *Resolver) lookupField(t *jvm.Type, ref jvm.SymbolRef, visited map[*jvm.Type]bool) []*jvm.Field {
	if visited[t] {
		return nil
	}
	visited[t] = true

	if f := declaredField(t, ref); f != nil {
		return []*jvm.Field{f}
	}
	for _, s := range r.h.SuperclassesOf(t) {
		if f := declaredField(s, ref); f != nil {
			return []*jvm.Field{f}
		}
	}
	for _, i := range r.h.SuperinterfacesOf(t) {
		if f := declaredField(i, ref); f != nil {
			return []*jvm.Field{f}
		}
	}
	if outer := r.h.Type(t.Outer()); outer != nil {
		return r.lookupField(outer, ref, visited)
	}
	return nil
}

func (r *Resolver) methodsAnywhere(ref jvm.SymbolRef) []*jvm.Method {
	var out []*jvm.Method
	for _, t := range r.sortedTypes() {
		out = append(out, declaredMethods(t, ref)...)
	}
	return out
}

func (r *Resolver) fieldsAnywhere(ref jvm.SymbolRef) []*jvm.Field {
	var out []*jvm.Field
	for _, t := range r.sortedTypes() {
		if f := declaredField(t, ref); f != nil {
			out = append(out, f)
		}
	}
	return out
}

func (r *Resolver) sortedTypes() []*jvm.Type {
	types := r.h.Types()
	jvm.SortTypes(types)
	return types
}

func declaredMethods(t *jvm.Type, ref jvm.SymbolRef) []*jvm.Method {
	if ref.Descriptor != "" {
		if m := t.MethodByDescriptor(ref.Name, ref.Descriptor); m != nil {
			return []*jvm.Method{m}
		}
		return nil
	}
	return t.MethodsNamed(ref.Name)
}

func declaredField(t *jvm.Type, ref jvm.SymbolRef) *jvm.Field {
	f := t.Field(ref.Name)
	if f == nil {
		return nil
	}
	if ref.Descriptor != "" && f.Type.Descriptor() != ref.Descriptor {
		return nil
	}
	return f
}
