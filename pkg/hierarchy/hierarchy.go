// Package hierarchy indexes the merged application/library type universe and
// answers classification and subtype queries over it.
package hierarchy

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/panbanda/libmodel/pkg/diag"
	"github.com/panbanda/libmodel/pkg/jvm"
)

var (
	// ErrCycle is returned when the supertype graph contains a cycle.
	ErrCycle = errors.New("supertype cycle")
	// ErrMissingRoot is returned when java.lang.Object is not in the universe.
	ErrMissingRoot = errors.New("root type " + jvm.ObjectClass + " not found")
)

// Option configures a Hierarchy.
type Option func(*Hierarchy)

// WithDiagnostics records skipped inputs (duplicates, phantom supertypes) in c.
func WithDiagnostics(c *diag.Collector) Option {
	return func(h *Hierarchy) {
		h.diags = c
	}
}

// Hierarchy is the class hierarchy index for one run. Queries are safe for
// concurrent use; registration takes the write lock.
type Hierarchy struct {
	mu    sync.RWMutex
	types map[string]*jvm.Type
	order []*jvm.Type

	// direct edges: supertype name -> declared subclasses / implementers
	subclasses   map[string][]*jvm.Type
	implementers map[string][]*jvm.Type

	methods []*jvm.Method
	fields  []*jvm.Field

	cacheMu    sync.Mutex
	subtypes   map[string][]*jvm.Type
	supertypes map[string][]*jvm.Type

	diags *diag.Collector
	stats Stats
}

// New indexes types. Supertypes that are referenced but not declared become
// library phantoms. A supertype cycle or a missing java.lang.Object is fatal.
func New(types []*jvm.Type, opts ...Option) (*Hierarchy, error) {
	h := &Hierarchy{
		types:        make(map[string]*jvm.Type, len(types)),
		subclasses:   make(map[string][]*jvm.Type),
		implementers: make(map[string][]*jvm.Type),
		subtypes:     make(map[string][]*jvm.Type),
		supertypes:   make(map[string][]*jvm.Type),
	}
	for _, opt := range opts {
		opt(h)
	}

	for _, t := range types {
		if _, dup := h.types[t.Name]; dup {
			h.diags.Add(diag.InputInconsistency, t.Name, "", "duplicate type declaration ignored")
			continue
		}
		h.types[t.Name] = t
		h.order = append(h.order, t)
	}

	root, ok := h.types[jvm.ObjectClass]
	if !ok {
		return nil, ErrMissingRoot
	}
	root.Super = ""

	for _, t := range slices.Clone(h.order) {
		if t != root && t.Super == "" {
			t.Super = jvm.ObjectClass
		}
		if _, ok := h.types[t.Super]; !ok && t.Super != "" {
			h.addPhantom(t.Super, jvm.KindClass, t.Name)
		}
		for _, i := range t.Interfaces {
			if _, ok := h.types[i]; !ok {
				h.addPhantom(i, jvm.KindInterface, t.Name)
			}
		}
	}

	if err := checkCycles(h.order); err != nil {
		return nil, err
	}

	for _, t := range h.order {
		h.index(t)
		for _, m := range t.Methods {
			m.Owner = t
			h.registerMethod(m)
		}
		for _, f := range t.Fields {
			f.Owner = t
			h.registerField(f)
		}
	}

	h.stats.InitialLibraryMethods = h.countLibraryMethods()
	h.stats.InitialLibraryFields = h.countLibraryFields()
	return h, nil
}

func (h *Hierarchy) addPhantom(name string, kind jvm.Kind, referrer string) {
	mods := jvm.Public
	if kind == jvm.KindInterface {
		mods |= jvm.Abstract
	}
	p := jvm.NewType(name, kind, mods, jvm.ObjectClass, jvm.Library)
	p.Phantom = true
	if kind == jvm.KindClass {
		p.AddMethod(jvm.NewMethod(jvm.ConstructorName, nil, jvm.Void, jvm.Public))
	}
	h.types[name] = p
	h.order = append(h.order, p)
	h.diags.Addf(diag.InputInconsistency, name, "", "supertype of %s not declared; using library phantom", referrer)
}

func (h *Hierarchy) index(t *jvm.Type) {
	if t.Super != "" {
		h.subclasses[t.Super] = append(h.subclasses[t.Super], t)
	}
	for _, i := range t.Interfaces {
		h.implementers[i] = append(h.implementers[i], t)
	}
}

func (h *Hierarchy) registerMethod(m *jvm.Method) {
	m.ID = uint32(len(h.methods))
	h.methods = append(h.methods, m)
}

func (h *Hierarchy) registerField(f *jvm.Field) {
	f.ID = uint32(len(h.fields))
	h.fields = append(h.fields, f)
}

func (h *Hierarchy) invalidate() {
	h.cacheMu.Lock()
	clear(h.subtypes)
	clear(h.supertypes)
	h.cacheMu.Unlock()
}

// Type returns the named type, or nil when the universe does not declare it.
func (h *Hierarchy) Type(name string) *jvm.Type {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.types[name]
}

// Types returns every type in ingestion order.
func (h *Hierarchy) Types() []*jvm.Type {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.order)
}

// ApplicationTypes returns the application types, sorted by name.
func (h *Hierarchy) ApplicationTypes() []*jvm.Type {
	return h.filterSorted(func(t *jvm.Type) bool { return t.IsApplication() })
}

// LibraryTypes returns the library types, sorted by name.
func (h *Hierarchy) LibraryTypes() []*jvm.Type {
	return h.filterSorted(func(t *jvm.Type) bool { return t.IsLibrary() })
}

func (h *Hierarchy) filterSorted(keep func(*jvm.Type) bool) []*jvm.Type {
	h.mu.RLock()
	var out []*jvm.Type
	for _, t := range h.order {
		if keep(t) {
			out = append(out, t)
		}
	}
	h.mu.RUnlock()
	jvm.SortTypes(out)
	return out
}

// MethodByID returns the method registered under id.
func (h *Hierarchy) MethodByID(id uint32) *jvm.Method {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if int(id) >= len(h.methods) {
		return nil
	}
	return h.methods[id]
}

// FieldByID returns the field registered under id.
func (h *Hierarchy) FieldByID(id uint32) *jvm.Field {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if int(id) >= len(h.fields) {
		return nil
	}
	return h.fields[id]
}

// Classify returns the ingestion-time provenance of t.
func (h *Hierarchy) Classify(t *jvm.Type) jvm.Provenance {
	return t.Provenance
}

// ClassifyName classifies a type by name. ok is false when it is unknown.
func (h *Hierarchy) ClassifyName(name string) (p jvm.Provenance, ok bool) {
	t := h.Type(name)
	if t == nil {
		return jvm.Library, false
	}
	return t.Provenance, true
}

// AddType registers a synthesized type. Its supertypes must already be known.
func (h *Hierarchy) AddType(t *jvm.Type) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, dup := h.types[t.Name]; dup {
		return fmt.Errorf("add type %s: already declared", t.Name)
	}
	if t.Name != jvm.ObjectClass && t.Super == "" {
		t.Super = jvm.ObjectClass
	}
	for _, s := range append([]string{t.Super}, t.Interfaces...) {
		if _, ok := h.types[s]; !ok {
			return fmt.Errorf("add type %s: unknown supertype %s", t.Name, s)
		}
	}
	h.types[t.Name] = t
	h.order = append(h.order, t)
	h.index(t)
	for _, m := range t.Methods {
		m.Owner = t
		h.registerMethod(m)
	}
	for _, f := range t.Fields {
		f.Owner = t
		h.registerField(f)
	}
	h.invalidate()
	return nil
}

// AddMethod declares m on t and registers it.
func (h *Hierarchy) AddMethod(t *jvm.Type, m *jvm.Method) *jvm.Method {
	h.mu.Lock()
	defer h.mu.Unlock()
	t.AddMethod(m)
	h.registerMethod(m)
	return m
}

// AddField declares f on t and registers it.
func (h *Hierarchy) AddField(t *jvm.Type, f *jvm.Field) *jvm.Field {
	h.mu.Lock()
	defer h.mu.Unlock()
	t.AddField(f)
	h.registerField(f)
	return f
}

// AddGeneratedInterface registers iface and makes implementer implement it.
func (h *Hierarchy) AddGeneratedInterface(iface, implementer *jvm.Type) error {
	if !iface.IsInterface() {
		return fmt.Errorf("add interface %s: not an interface", iface.Name)
	}
	iface.Generated = true
	if err := h.AddType(iface); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !slices.Contains(implementer.Interfaces, iface.Name) {
		implementer.Interfaces = append(implementer.Interfaces, iface.Name)
		h.implementers[iface.Name] = append(h.implementers[iface.Name], implementer)
	}
	h.invalidate()
	return nil
}
