package synth

import (
	"github.com/panbanda/libmodel/pkg/ir"
	"github.com/panbanda/libmodel/pkg/jvm"
)

// rootTypes are the abstract library root, its concrete subclass and their
// well-known members.
type rootTypes struct {
	abstract *jvm.Type
	library  *jvm.Type

	instance *jvm.Field
	guard    *jvm.Field
	finalize *jvm.Field

	abstractInit    *jvm.Method
	abstractDoItAll *jvm.Method

	init    *jvm.Method
	clinit  *jvm.Method
	doItAll *jvm.Method
	main    *jvm.Method
}

// owns reports whether m belongs to one of the root types.
func (r *rootTypes) owns(m *jvm.Method) bool {
	return r != nil && m.Owner != nil && (m.Owner == r.abstract || m.Owner == r.library)
}

// Root declares libmodel.AbstractLibrary and libmodel.Library and builds the
// bodies of their constructors and of the static initializer. doItAll and
// main are declared here and built by DoItAll and Main.
func (s *Synthesizer) Root() (Stats, error) {
	r := &rootTypes{}

	abs := jvm.NewType(AbstractLibraryClass, jvm.KindClass, jvm.Public|jvm.Abstract, jvm.ObjectClass, jvm.Library)
	abs.Generated = true
	r.abstractInit = abs.AddMethod(jvm.NewMethod(jvm.ConstructorName, nil, jvm.Void, jvm.Public))
	r.abstractDoItAll = abs.AddMethod(jvm.NewMethod(DoItAllName, nil, jvm.Void, jvm.Public|jvm.Abstract))
	r.finalize = abs.AddField(jvm.NewField(FinalizeField, jvm.Object, jvm.Public))
	r.instance = abs.AddField(jvm.NewField(InstanceField, abs.Ref(), jvm.Public|jvm.Static))
	r.guard = abs.AddField(jvm.NewField(GuardField, jvm.Boolean, jvm.Public|jvm.Static))
	if err := s.h.AddType(abs); err != nil {
		return Stats{}, err
	}

	lib := jvm.NewType(LibraryClass, jvm.KindClass, jvm.Public, abs.Name, jvm.Library)
	lib.Generated = true
	r.init = lib.AddMethod(jvm.NewMethod(jvm.ConstructorName, nil, jvm.Void, jvm.Public))
	r.clinit = lib.AddMethod(jvm.NewMethod(jvm.StaticInitName, nil, jvm.Void, jvm.Static))
	r.main = lib.AddMethod(jvm.NewMethod(MainName, mainParams, jvm.Void, jvm.Public|jvm.Static))
	r.doItAll = lib.AddMethod(jvm.NewMethod(DoItAllName, nil, jvm.Void, jvm.Public))
	if err := s.h.AddType(lib); err != nil {
		return Stats{}, err
	}

	s.root = r
	s.guards = &guards{enabled: s.opts.GuardsEnabled, field: r.guard}
	s.lpt = NewLPTStore(s.h, abs)

	// AbstractLibrary.<init> calls Object.<init>.
	b := ir.NewBuilder(r.abstractInit)
	if ctor := s.objectInit(); ctor != nil {
		b.Invoke(ir.Special, b.This(), ctor)
	}
	b.Return(nil)
	if err := s.attach(b); err != nil {
		return Stats{}, err
	}

	b = ir.NewBuilder(r.init)
	b.Invoke(ir.Special, b.This(), r.abstractInit)
	b.Return(nil)
	if err := s.attach(b); err != nil {
		return Stats{}, err
	}

	// Library.<clinit> publishes the singleton.
	b = ir.NewBuilder(r.clinit)
	self := b.New(lib.Ref(), r.init)
	b.Store(&ir.StaticFieldRef{Field: r.instance}, self)
	b.Return(nil)
	if err := s.attach(b); err != nil {
		return Stats{}, err
	}

	return Stats{Classes: 2, Methods: 6, Bodies: 3}, nil
}

func (s *Synthesizer) objectInit() *jvm.Method {
	if obj := s.h.Type(jvm.ObjectClass); obj != nil {
		return obj.DefaultConstructor()
	}
	return nil
}

// attach finishes the body and sets it on its method.
func (s *Synthesizer) attach(b *ir.Builder) error {
	body := b.Body()
	if err := ir.Finish(body); err != nil {
		return err
	}
	body.Method.Body = body
	return nil
}

// loadInstance emits "r = <AbstractLibrary: instance>".
func (s *Synthesizer) loadInstance(b *ir.Builder) *ir.Local {
	return b.Load(&ir.StaticFieldRef{Field: s.root.instance})
}

// callDoItAll emits "virtualinvoke base.<AbstractLibrary: void doItAll()>()".
func (s *Synthesizer) callDoItAll(b *ir.Builder, base *ir.Local) {
	b.Invoke(ir.Virtual, base, s.root.abstractDoItAll)
}
