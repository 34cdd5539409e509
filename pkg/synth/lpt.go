package synth

import (
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/panbanda/libmodel/pkg/hierarchy"
	"github.com/panbanda/libmodel/pkg/ir"
	"github.com/panbanda/libmodel/pkg/jvm"
)

// LPTStore hands out the typed library-points-to fields declared on the
// abstract library root. Fields are created on first request and never
// removed; the same type always yields the same field. It is safe for
// concurrent use.
type LPTStore struct {
	h    *hierarchy.Hierarchy
	root *jvm.Type

	mu     sync.Mutex
	fields map[string]*jvm.Field
	names  map[string]bool
	order  []*jvm.Field

	generic *jvm.Field
}

// NewLPTStore declares the generic lpt field on root and returns a store
// adding typed fields next to it.
func NewLPTStore(h *hierarchy.Hierarchy, root *jvm.Type) *LPTStore {
	s := &LPTStore{
		h:      h,
		root:   root,
		fields: make(map[string]*jvm.Field),
		names:  make(map[string]bool),
	}
	if f := root.Field(LPTField); f != nil {
		s.generic = f
	} else {
		s.generic = h.AddField(root, jvm.NewField(LPTField, jvm.Object, jvm.Public))
	}
	s.fields[jvm.ObjectClass] = s.generic
	s.names[LPTField] = true
	for _, f := range root.Fields {
		s.names[f.Name] = true
	}
	return s
}

// Generic returns the untyped java.lang.Object field.
func (s *LPTStore) Generic() *jvm.Field {
	return s.generic
}

// Field returns the field for t, creating it when absent. Primitive types
// have none.
func (s *LPTStore) Field(t jvm.TypeRef) *jvm.Field {
	if !t.IsReference() {
		return nil
	}
	key := t.String()

	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.fields[key]; ok {
		return f
	}
	name := LPTFieldPrefix + mangle(t)
	for i := 2; s.names[name]; i++ {
		name = LPTFieldPrefix + mangle(t) + "_" + strconv.Itoa(i)
	}
	s.names[name] = true
	f := s.h.AddField(s.root, jvm.NewField(name, t, jvm.Public))
	s.fields[key] = f
	s.order = append(s.order, f)
	return f
}

// Fields returns the typed fields in creation order.
func (s *LPTStore) Fields() []*jvm.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*jvm.Field, len(s.order))
	copy(out, s.order)
	return out
}

// Len counts the typed fields.
func (s *LPTStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Store emits "base.lpt_T = v" and "base.lpt = v". Primitive values are
// ignored.
func (s *LPTStore) Store(b *ir.Builder, base *ir.Local, t jvm.TypeRef, v ir.Value) {
	f := s.Field(t)
	if f == nil {
		return
	}
	b.Store(&ir.InstanceFieldRef{Base: base, Field: f}, v)
	if f != s.generic {
		b.Store(&ir.InstanceFieldRef{Base: base, Field: s.generic}, v)
	}
}

// Read emits a load of a value of type t from the store. With guards the
// typed field is read and, behind a guard, replaced by a cast of the generic
// field, so values stored under a supertype are seen too. Without guards only
// the cast of the generic field is emitted. Primitive types yield their
// default constant.
func (s *LPTStore) Read(b *ir.Builder, base *ir.Local, t jvm.TypeRef, g *guards) ir.Value {
	f := s.Field(t)
	if f == nil {
		return ir.DefaultValue(t)
	}
	if f == s.generic {
		return b.Load(&ir.InstanceFieldRef{Base: base, Field: f})
	}
	if !g.enabled {
		obj := b.Load(&ir.InstanceFieldRef{Base: base, Field: s.generic})
		return b.Load(&ir.CastExpr{To: t, Value: obj})
	}
	v := b.Load(&ir.InstanceFieldRef{Base: base, Field: f})
	skip := g.open(b, "lpt")
	obj := b.Load(&ir.InstanceFieldRef{Base: base, Field: s.generic})
	b.Assign(v, &ir.CastExpr{To: t, Value: obj})
	g.close(b, skip)
	return v
}

// sortByName orders the typed fields by name, on the store and on the root.
// Parallel body synthesis creates them in arbitrary order.
func (s *LPTStore) sortByName() {
	s.mu.Lock()
	defer s.mu.Unlock()
	slices.SortFunc(s.order, func(a, b *jvm.Field) int {
		return strings.Compare(a.Name, b.Name)
	})
	typed := make(map[*jvm.Field]bool, len(s.order))
	for _, f := range s.order {
		typed[f] = true
	}
	fixed := slices.DeleteFunc(slices.Clone(s.root.Fields), func(f *jvm.Field) bool { return typed[f] })
	s.root.Fields = append(fixed, s.order...)
}
