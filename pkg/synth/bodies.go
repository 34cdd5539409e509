package synth

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/panbanda/libmodel/pkg/diag"
	"github.com/panbanda/libmodel/pkg/ir"
	"github.com/panbanda/libmodel/pkg/jvm"
)

var (
	// ErrRootMember is returned when a body is requested for a member of the
	// library root types, whose bodies are built by Root, DoItAll and Main.
	ErrRootMember = errors.New("library root members are not synthesized individually")
	// ErrAbstractMember is returned when a body is requested for an abstract
	// method.
	ErrAbstractMember = errors.New("abstract method cannot receive a body")
)

// MemberBodies builds a body for every concrete library method without one.
// Native methods are modeled like any other method and lose the native
// flag. A member whose body fails validation is left without a body and
// returned; the other members are unaffected.
func (s *Synthesizer) MemberBodies() ([]*jvm.Method, Stats) {
	var jobs [][]*jvm.Method
	for _, t := range s.h.LibraryTypes() {
		if t == s.root.abstract || t == s.root.library {
			continue
		}
		var ms []*jvm.Method
		for _, m := range t.Methods {
			if m.Body != nil || m.IsAbstract() {
				continue
			}
			m.Modifiers &^= jvm.Native
			ms = append(ms, m)
		}
		if len(ms) > 0 {
			jobs = append(jobs, ms)
		}
	}

	var (
		mu     sync.Mutex
		failed []*jvm.Method
		st     Stats
	)
	run := func(ms []*jvm.Method) {
		for _, m := range ms {
			err := s.MethodBody(m)
			mu.Lock()
			if err != nil {
				failed = append(failed, m)
				st.FailedBodies++
			} else {
				st.Bodies++
			}
			mu.Unlock()
			if s.opts.OnBody != nil {
				s.opts.OnBody()
			}
		}
	}

	if s.opts.Workers == 1 {
		for _, ms := range jobs {
			run(ms)
		}
	} else {
		p := pool.New().WithMaxGoroutines(s.opts.Workers)
		for _, ms := range jobs {
			p.Go(func() { run(ms) })
		}
		p.Wait()
		s.lpt.sortByName()
	}

	slices.SortFunc(failed, func(a, b *jvm.Method) int {
		return strings.Compare(a.Signature(), b.Signature())
	})
	return failed, st
}

// MethodBody builds and attaches the body of a single concrete library
// method. Requests for root members or abstract methods are contract
// violations; a body failing validation is a validation failure. Both are
// recorded in the diagnostics and leave m without a body.
func (s *Synthesizer) MethodBody(m *jvm.Method) error {
	owner := "<none>"
	if m.Owner != nil {
		owner = m.Owner.Name
	}
	switch {
	case s.root.owns(m):
		s.in.Diagnostics.Add(diag.ContractViolation, owner, m.SubSignature(), ErrRootMember.Error())
		return ErrRootMember
	case !m.IsConcrete():
		s.in.Diagnostics.Add(diag.ContractViolation, owner, m.SubSignature(), ErrAbstractMember.Error())
		return ErrAbstractMember
	}

	b := ir.NewBuilder(m)
	switch {
	case m.IsConstructor():
		s.constructorBody(b, m)
	case m.IsStaticInitializer():
		s.staticInitBody(b, m)
	default:
		s.methodBody(b, m)
	}
	if err := s.attach(b); err != nil {
		s.in.Diagnostics.Add(diag.ValidationFailure, owner, m.SubSignature(), err.Error())
		return err
	}
	return nil
}

// constructorBody chains to the superclass constructor, stashes the
// reference parameters and fills every reference instance field with one
// guarded construct-and-store block per compatible concrete type.
func (s *Synthesizer) constructorBody(b *ir.Builder, m *jvm.Method) {
	ins := s.loadInstance(b)
	if super := s.superConstructor(m.Owner); super != nil {
		b.Invoke(ir.Special, b.This(), super, s.args(b, ins, super.Params)...)
	}
	s.stashParams(b, ins, m)
	for _, f := range m.Owner.Fields {
		if f.IsStatic() || !f.Type.IsReference() {
			continue
		}
		s.fill(b, ins, &ir.InstanceFieldRef{Base: b.This(), Field: f}, f.Type)
	}
	s.callDoItAll(b, ins)
	b.Return(nil)
}

// staticInitBody fills every reference static field like constructorBody
// fills instance fields.
func (s *Synthesizer) staticInitBody(b *ir.Builder, m *jvm.Method) {
	ins := s.loadInstance(b)
	for _, f := range m.Owner.Fields {
		if !f.IsStatic() || !f.Type.IsReference() {
			continue
		}
		s.fill(b, ins, &ir.StaticFieldRef{Field: f}, f.Type)
	}
	b.Return(nil)
}

// methodBody is the uniform summary: stash the receiver and the reference
// parameters, run doItAll, and hand back any stored value of the return
// type.
func (s *Synthesizer) methodBody(b *ir.Builder, m *jvm.Method) {
	ins := s.loadInstance(b)
	if this := b.This(); this != nil {
		s.lpt.Store(b, ins, m.Owner.Ref(), this)
	}
	s.stashParams(b, ins, m)
	if isFinalizerRegister(m) {
		b.Store(&ir.InstanceFieldRef{Base: ins, Field: s.root.finalize}, b.Params()[0])
	}
	s.callDoItAll(b, ins)

	switch {
	case m.Return.IsVoid():
		b.Return(nil)
	case m.Return.IsReference():
		b.Return(s.lpt.Read(b, ins, m.Return, s.guards))
	default:
		b.Return(ir.DefaultValue(m.Return))
	}
}

func isFinalizerRegister(m *jvm.Method) bool {
	return m.Owner != nil && m.Owner.Name == jvm.FinalizerClass && m.Name == "register" &&
		len(m.Params) == 1 && m.Params[0].IsReference()
}

func (s *Synthesizer) stashParams(b *ir.Builder, ins *ir.Local, m *jvm.Method) {
	for i, p := range m.Params {
		if p.IsReference() {
			s.lpt.Store(b, ins, p, b.Params()[i])
		}
	}
}

// fill stores into ref one freshly constructed object per concrete type
// compatible with typ, each behind its own guard. Types without a concrete
// candidate, such as arrays, get a value from the store instead.
func (s *Synthesizer) fill(b *ir.Builder, ins *ir.Local, ref ir.Value, typ jvm.TypeRef) {
	candidates := s.h.CompatibleConcreteTypes(typ)
	if len(candidates) == 0 {
		b.Store(ref, s.lpt.Read(b, ins, typ, s.guards))
		return
	}
	for _, c := range candidates {
		end := s.guards.open(b, "fill")
		b.Store(ref, s.construct(b, ins, c))
		s.guards.close(b, end)
	}
}

// construct allocates c through its preferred constructor with arguments
// from the store.
func (s *Synthesizer) construct(b *ir.Builder, ins *ir.Local, c *jvm.Type) *ir.Local {
	ctor := preferredConstructor(c)
	if ctor == nil {
		return b.Load(&ir.NewExpr{Class: c.Ref()})
	}
	return b.New(c.Ref(), ctor, s.args(b, ins, ctor.Params)...)
}

// args draws one argument per parameter: a stored value for references, the
// default constant for primitives.
func (s *Synthesizer) args(b *ir.Builder, ins *ir.Local, params []jvm.TypeRef) []ir.Value {
	out := make([]ir.Value, len(params))
	for i, p := range params {
		out[i] = s.lpt.Read(b, ins, p, s.guards)
	}
	return out
}

func (s *Synthesizer) superConstructor(t *jvm.Type) *jvm.Method {
	if t == nil || t.IsInterface() || t.Super == "" {
		return nil
	}
	if sup := s.h.Type(t.Super); sup != nil {
		return preferredConstructor(sup)
	}
	return nil
}

// preferredConstructor picks the no-argument constructor, else the first
// public one, else the first declared.
func preferredConstructor(t *jvm.Type) *jvm.Method {
	if c := t.DefaultConstructor(); c != nil {
		return c
	}
	ctors := t.Constructors()
	for _, c := range ctors {
		if c.Modifiers.Has(jvm.Public) {
			return c
		}
	}
	if len(ctors) > 0 {
		return ctors[0]
	}
	return nil
}

// publicConstructor picks the no-argument constructor when public, else the
// first public one.
func publicConstructor(t *jvm.Type) *jvm.Method {
	if c := t.DefaultConstructor(); c != nil && c.Modifiers.Has(jvm.Public) {
		return c
	}
	for _, c := range t.Constructors() {
		if c.Modifiers.Has(jvm.Public) {
			return c
		}
	}
	return nil
}
