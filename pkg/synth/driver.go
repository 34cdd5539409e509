package synth

import (
	"github.com/panbanda/libmodel/pkg/entrypoint"
	"github.com/panbanda/libmodel/pkg/ir"
	"github.com/panbanda/libmodel/pkg/jvm"
)

// Main builds the static driver Library.main(String[]). It constructs every
// planned entry-point class with each of its constructors, calls the object
// providers, fills the create-object fields, instantiates every concrete
// application class that has a supertype other than java.lang.Object,
// calls the application main method when one is configured and finally
// runs doItAll. Every object is published in the store under its class and
// the types it is reached through.
func (s *Synthesizer) Main() error {
	b := ir.NewBuilder(s.root.main)
	argv := b.Params()[0]
	ins := s.loadInstance(b)
	ep := s.in.EntryPoints

	latest := make(map[*jvm.Type]*ir.Local)
	for _, st := range entrypoint.Plan(ep, s.h, s.in.Diagnostics) {
		for _, ctor := range st.Constructors {
			outer := st.OuterArgIndex(ctor)
			args := make([]ir.Value, len(ctor.Params))
			for i, p := range ctor.Params {
				if i == outer && latest[st.Outer] != nil {
					args[i] = latest[st.Outer]
					continue
				}
				args[i] = s.lpt.Read(b, ins, p, s.guards)
			}
			obj := b.New(st.Class.Ref(), ctor, args...)
			latest[st.Class] = obj
			s.lpt.Store(b, ins, st.Class.Ref(), obj)
			s.lpt.Store(b, ins, st.Contract.Ref(), obj)
			if mk := s.markers[st.Class]; mk != nil {
				s.lpt.Store(b, ins, mk.Ref(), obj)
			}
		}
	}

	for _, p := range ep.Providers {
		for _, pm := range p.Methods {
			kind := ir.KindFor(pm)
			var recv *ir.Local
			if kind != ir.Static {
				recv = b.Load(s.lpt.Read(b, ins, pm.Owner.Ref(), s.guards))
			}
			obj := b.InvokeResult(kind, recv, pm, s.args(b, ins, pm.Params)...)
			s.lpt.Store(b, ins, p.Type.Ref(), obj)
		}
	}

	for _, co := range ep.CreateObjects {
		for _, f := range co.Fields {
			v := s.lpt.Read(b, ins, f.Type, s.guards)
			if f.IsStatic() {
				b.Store(&ir.StaticFieldRef{Field: f}, v)
				continue
			}
			base := b.Load(s.lpt.Read(b, ins, co.Class.Ref(), s.guards))
			b.Store(&ir.InstanceFieldRef{Base: base, Field: f}, v)
		}
	}

	for _, t := range s.h.ApplicationTypes() {
		if !t.IsConcrete() || ep.IsEntryClass(t) {
			continue
		}
		supers := s.visibleSupertypes(t)
		ctor := publicConstructor(t)
		if len(supers) == 0 || ctor == nil {
			continue
		}
		obj := b.New(t.Ref(), ctor, s.args(b, ins, ctor.Params)...)
		s.lpt.Store(b, ins, t.Ref(), obj)
		for _, sup := range supers {
			s.lpt.Store(b, ins, sup.Ref(), obj)
		}
	}

	if mc := ep.MainClass; mc != nil {
		if m := mc.Method(jvm.SubSignature(MainName, mainParams, jvm.Void)); m != nil && m.IsStatic() {
			b.Invoke(ir.Static, nil, m, argv)
		}
	}

	s.callDoItAll(b, ins)
	b.Return(nil)
	return s.attach(b)
}

// visibleSupertypes returns the supertypes of t other than java.lang.Object.
func (s *Synthesizer) visibleSupertypes(t *jvm.Type) []*jvm.Type {
	var out []*jvm.Type
	for _, sup := range s.h.SupertypesOf(t) {
		if sup.Name != jvm.ObjectClass {
			out = append(out, sup)
		}
	}
	return out
}
