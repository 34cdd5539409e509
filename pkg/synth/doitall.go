package synth

import (
	"slices"

	"github.com/panbanda/libmodel/pkg/ir"
	"github.com/panbanda/libmodel/pkg/jvm"
)

// callbackClass is an application class with the methods the library may
// call back.
type callbackClass struct {
	class   *jvm.Type
	methods []*jvm.Method
}

// callbacks collects the application methods doItAll calls: overrides of
// library methods, annotated methods and, with TamiFlex enabled,
// reflectively invoked methods. Classes are ordered with jvm.CompareNames,
// methods by declaration.
func (s *Synthesizer) callbacks() []callbackClass {
	seen := make(map[*jvm.Method]bool)
	byClass := make(map[*jvm.Type][]*jvm.Method)
	add := func(ms []*jvm.Method) {
		for _, m := range ms {
			if seen[m] || m.Owner == nil || m.IsConstructor() || m.IsStaticInitializer() {
				continue
			}
			seen[m] = true
			byClass[m.Owner] = append(byClass[m.Owner], m)
		}
	}
	if sets := s.in.Sets; sets != nil {
		add(sets.Methods(sets.OverriddenApplicationMethods))
		add(sets.Methods(sets.AnnotatedApplicationMethods))
	}
	if s.opts.TamiflexEnabled {
		add(s.in.Reflection.Methods)
	}

	out := make([]callbackClass, 0, len(byClass))
	for c, ms := range byClass {
		slices.SortFunc(ms, func(a, b *jvm.Method) int { return int(a.ID) - int(b.ID) })
		out = append(out, callbackClass{class: c, methods: ms})
	}
	slices.SortFunc(out, func(a, b callbackClass) int {
		return jvm.CompareNames(a.class.Name, b.class.Name)
	})
	return out
}

type capture struct {
	local *ir.Local
	typ   jvm.TypeRef
}

// DoItAll builds Library.doItAll: the singleton is loaded, then a loop
// guarded by a non-foldable branch calls every callback with arguments from
// the store, finalizes finalizePointsTo and optionally throws. After the
// loop, captured return values are stored, reflective and dynamic
// construction runs when enabled, and the method throws the Throwable
// representative or returns.
func (s *Synthesizer) DoItAll() error {
	b := ir.NewBuilder(s.root.doItAll)
	ins := s.loadInstance(b)
	classes := s.callbacks()

	// Return values are captured in locals declared before the loop.
	captures := make(map[*jvm.Method]*ir.Local)
	var merged []capture
	for _, cc := range classes {
		for _, m := range cc.methods {
			if m.Return.IsReference() {
				l := b.NewLocal(m.Return)
				b.Assign(l, ir.Null(m.Return))
				captures[m] = l
				merged = append(merged, capture{local: l, typ: m.Return})
			}
		}
	}

	head := b.Label("loop")
	b.Place(head)
	for _, cc := range classes {
		s.callbackBlock(b, ins, cc, captures)
	}
	if fin := s.objectFinalize(); fin != nil {
		fpt := b.Load(&ir.InstanceFieldRef{Base: ins, Field: s.root.finalize})
		b.Invoke(ir.Virtual, fpt, fin)
	}
	if s.opts.ThrowEnabled && s.opts.ThrowPlacement == ThrowInterleaved {
		end := s.guards.always(b, "throw")
		s.throw(b, ins)
		b.Place(end)
	}
	s.guards.branch(b, head)

	for _, c := range merged {
		s.lpt.Store(b, ins, c.typ, c.local)
	}
	if s.opts.TamiflexEnabled {
		s.reflectiveConstruction(b, ins)
	}
	if s.opts.DynamicClassesEnabled {
		for _, t := range s.in.Reflection.DynamicInstances {
			s.guardedConstruct(b, ins, t)
		}
	}

	if s.opts.ThrowEnabled && s.opts.ThrowPlacement == ThrowAfter {
		s.throw(b, ins)
	} else {
		b.Return(nil)
	}
	return s.attach(b)
}

func (s *Synthesizer) callbackBlock(b *ir.Builder, ins *ir.Local, cc callbackClass, captures map[*jvm.Method]*ir.Local) {
	var skip *ir.NopStmt
	if s.in.EntryPoints.IsEntryClass(cc.class) {
		skip = s.guards.open(b, "entry")
	}

	var base *ir.Local
	for _, m := range cc.methods {
		if !m.IsStatic() {
			base = b.Load(s.lpt.Read(b, ins, cc.class.Ref(), s.guards))
			break
		}
	}
	for _, m := range cc.methods {
		end := s.guards.open(b, "call")
		kind := ir.KindFor(m)
		recv := base
		if kind == ir.Static {
			recv = nil
		}
		call := b.Call(kind, recv, m, s.args(b, ins, m.Params)...)
		if l, ok := captures[m]; ok {
			b.Assign(l, call)
		} else {
			b.Add(&ir.InvokeStmt{Expr: call})
		}
		s.guards.close(b, end)
	}
	s.guards.close(b, skip)
}

// reflectiveConstruction models Class.forName, Class.newInstance,
// Constructor.newInstance and Array.newInstance on the resolved facts.
func (s *Synthesizer) reflectiveConstruction(b *ir.Builder, ins *ir.Local) {
	r := s.in.Reflection
	if forName := s.classForName(); forName != nil {
		for _, t := range r.ForName {
			end := s.guards.open(b, "forName")
			c := b.InvokeResult(ir.Static, nil, forName, ir.StringConst(t.Name))
			s.lpt.Store(b, ins, forName.Return, c)
			s.guards.close(b, end)
		}
	}

	classes := slices.Concat(r.NewInstance, r.ForName)
	jvm.SortTypes(classes)
	for _, t := range slices.Compact(classes) {
		s.guardedConstruct(b, ins, t)
	}
	for _, ctor := range r.Constructors {
		if ctor.Owner == nil || !ctor.Owner.IsConcrete() {
			continue
		}
		end := s.guards.open(b, "ctor")
		obj := b.New(ctor.Owner.Ref(), ctor, s.args(b, ins, ctor.Params)...)
		s.lpt.Store(b, ins, ctor.Owner.Ref(), obj)
		s.guards.close(b, end)
	}
	for _, a := range r.Arrays {
		end := s.guards.open(b, "array")
		arr := b.Load(&ir.NewArrayExpr{Elem: a.Element(), Size: ir.IntConst(1)})
		s.lpt.Store(b, ins, a, arr)
		s.guards.close(b, end)
	}
}

func (s *Synthesizer) guardedConstruct(b *ir.Builder, ins *ir.Local, t *jvm.Type) {
	if !t.IsConcrete() {
		return
	}
	end := s.guards.open(b, "new")
	obj := s.construct(b, ins, t)
	s.lpt.Store(b, ins, t.Ref(), obj)
	s.guards.close(b, end)
}

// throw emits "throw (Throwable) <store>".
func (s *Synthesizer) throw(b *ir.Builder, ins *ir.Local) {
	b.Throw(s.lpt.Read(b, ins, jvm.Ref(jvm.ThrowableClass), s.guards))
}

func (s *Synthesizer) objectFinalize() *jvm.Method {
	if obj := s.h.Type(jvm.ObjectClass); obj != nil {
		return obj.Method("void finalize()")
	}
	return nil
}

func (s *Synthesizer) classForName() *jvm.Method {
	if c := s.h.Type(jvm.ClassClass); c != nil {
		if m := c.Method("java.lang.Class forName(java.lang.String)"); m != nil && m.IsStatic() {
			return m
		}
	}
	return nil
}
