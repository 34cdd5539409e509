package ir

import (
	"strconv"

	"github.com/panbanda/libmodel/pkg/jvm"
)

// Builder appends statements to a body in three-address form. NewBuilder
// emits the identity statements, so every body starts with them.
type Builder struct {
	body   *Body
	this   *Local
	params []*Local
	counts map[string]int
}

// NewBuilder starts a body for m, binding this (for instance methods) and
// every parameter to locals.
func NewBuilder(m *jvm.Method) *Builder {
	b := &Builder{
		body:   &Body{Method: m},
		counts: make(map[string]int),
	}
	if !m.IsStatic() {
		owner := jvm.Object
		if m.Owner != nil {
			owner = m.Owner.Ref()
		}
		b.this = b.NewLocal(owner)
		b.add(&IdentityStmt{Local: b.this, Value: ThisRef{Typ: owner}})
	}
	for i, p := range m.Params {
		l := b.NewLocal(p)
		b.params = append(b.params, l)
		b.add(&IdentityStmt{Local: l, Value: ParamRef{Index: i, Typ: p}})
	}
	return b
}

// This returns the receiver local, nil for static methods.
func (b *Builder) This() *Local { return b.this }

// Params returns the parameter locals in declaration order.
func (b *Builder) Params() []*Local { return b.params }

// Body returns the body built so far.
func (b *Builder) Body() *Body { return b.body }

// NewLocal declares a fresh local of type t. Names follow the
// r0/i0/z0 convention of the printed form.
func (b *Builder) NewLocal(t jvm.TypeRef) *Local {
	prefix := localPrefix(t)
	n := b.counts[prefix]
	b.counts[prefix] = n + 1
	l := &Local{Name: prefix + strconv.Itoa(n), Typ: t}
	b.body.Locals = append(b.body.Locals, l)
	return l
}

func localPrefix(t jvm.TypeRef) string {
	if t.IsReference() {
		return "r"
	}
	switch t.Name {
	case "boolean":
		return "z"
	case "byte":
		return "b"
	case "char":
		return "c"
	case "short":
		return "s"
	case "long":
		return "l"
	case "float":
		return "f"
	case "double":
		return "d"
	default:
		return "i"
	}
}

func (b *Builder) add(s Stmt) {
	b.body.Stmts = append(b.body.Stmts, s)
}

// Add appends s.
func (b *Builder) Add(s Stmt) Stmt {
	b.add(s)
	return s
}

// Label creates a jump label that is not yet placed.
func (b *Builder) Label(name string) *NopStmt {
	return &NopStmt{Name: name}
}

// Place appends a label created with Label.
func (b *Builder) Place(l *NopStmt) {
	b.add(l)
}

// Assign appends lhs = rhs.
func (b *Builder) Assign(lhs, rhs Value) *AssignStmt {
	s := &AssignStmt{LHS: lhs, RHS: rhs}
	b.add(s)
	return s
}

// Load evaluates v into a fresh local. Locals are returned as is.
func (b *Builder) Load(v Value) *Local {
	if l, ok := v.(*Local); ok {
		return l
	}
	l := b.NewLocal(v.Type())
	b.Assign(l, v)
	return l
}

// Operand returns v when it is a valid call or store operand and loads it
// into a local otherwise.
func (b *Builder) Operand(v Value) Value {
	switch v.(type) {
	case *Local, Constant:
		return v
	}
	return b.Load(v)
}

// Store appends lhs = v, loading v first when it is not an operand.
func (b *Builder) Store(lhs, v Value) {
	b.Assign(lhs, b.Operand(v))
}

// Call builds an invoke expression, loading non-operand arguments first.
func (b *Builder) Call(kind InvokeKind, base *Local, m *jvm.Method, args ...Value) *InvokeExpr {
	ops := make([]Value, len(args))
	for i, a := range args {
		ops[i] = b.Operand(a)
	}
	return &InvokeExpr{Kind: kind, Base: base, Method: m, Args: ops}
}

// Invoke appends a call statement.
func (b *Builder) Invoke(kind InvokeKind, base *Local, m *jvm.Method, args ...Value) *InvokeStmt {
	s := &InvokeStmt{Expr: b.Call(kind, base, m, args...)}
	b.add(s)
	return s
}

// InvokeResult appends a call and returns a local holding its result.
func (b *Builder) InvokeResult(kind InvokeKind, base *Local, m *jvm.Method, args ...Value) *Local {
	return b.Load(b.Call(kind, base, m, args...))
}

// New allocates an instance of class and calls ctor on it.
func (b *Builder) New(class jvm.TypeRef, ctor *jvm.Method, args ...Value) *Local {
	obj := b.Load(&NewExpr{Class: class})
	b.Invoke(Special, obj, ctor, args...)
	return obj
}

// If appends "if cond goto target".
func (b *Builder) If(cond Value, target Stmt) *IfStmt {
	s := &IfStmt{Cond: b.Operand(cond), Target: target}
	b.add(s)
	return s
}

// Goto appends "goto target".
func (b *Builder) Goto(target Stmt) *GotoStmt {
	s := &GotoStmt{Target: target}
	b.add(s)
	return s
}

// Return appends a return of v, or a void return when v is nil.
func (b *Builder) Return(v Value) {
	if v == nil {
		b.add(&ReturnStmt{})
		return
	}
	b.add(&ReturnStmt{Value: b.Operand(v)})
}

// Throw appends "throw v".
func (b *Builder) Throw(v Value) {
	b.add(&ThrowStmt{Value: b.Operand(v)})
}
