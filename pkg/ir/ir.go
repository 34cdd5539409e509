// Package ir is the three-address statement representation used for
// synthesized method bodies.
//
// A Body is a flat list of statements. Control flow is expressed with
// IfStmt and GotoStmt pointing at other statements of the same body;
// NopStmt serves as a jump label until EliminateNops removes it.
package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/panbanda/libmodel/pkg/jvm"
)

// Value is an operand or expression.
type Value interface {
	Type() jvm.TypeRef
	String() string
}

// Local is a method-local variable.
type Local struct {
	Name string
	Typ  jvm.TypeRef
}

func (l *Local) Type() jvm.TypeRef { return l.Typ }
func (l *Local) String() string    { return l.Name }

// Constant is a literal. Text is its printed form.
type Constant struct {
	Typ  jvm.TypeRef
	Text string
}

func (c Constant) Type() jvm.TypeRef { return c.Typ }
func (c Constant) String() string    { return c.Text }

// IntConst returns an int literal.
func IntConst(v int) Constant {
	return Constant{Typ: jvm.Int, Text: strconv.Itoa(v)}
}

// StringConst returns a string literal.
func StringConst(s string) Constant {
	return Constant{Typ: jvm.String, Text: strconv.Quote(s)}
}

// Null returns the null literal typed as t.
func Null(t jvm.TypeRef) Constant {
	return Constant{Typ: t, Text: "null"}
}

// DefaultValue returns the zero value of t.
func DefaultValue(t jvm.TypeRef) Constant {
	if t.IsReference() {
		return Null(t)
	}
	switch t.Name {
	case "long":
		return Constant{Typ: t, Text: "0L"}
	case "float":
		return Constant{Typ: t, Text: "0.0F"}
	case "double":
		return Constant{Typ: t, Text: "0.0"}
	default:
		return Constant{Typ: t, Text: "0"}
	}
}

// NewExpr allocates an uninitialized instance of Class.
type NewExpr struct {
	Class jvm.TypeRef
}

func (e *NewExpr) Type() jvm.TypeRef { return e.Class }
func (e *NewExpr) String() string    { return "new " + e.Class.String() }

// NewArrayExpr allocates a one-dimensional array of Elem.
type NewArrayExpr struct {
	Elem jvm.TypeRef
	Size Value
}

func (e *NewArrayExpr) Type() jvm.TypeRef { return jvm.ArrayOf(e.Elem, 1) }
func (e *NewArrayExpr) String() string {
	return fmt.Sprintf("newarray (%s)[%s]", e.Elem, e.Size)
}

// InvokeKind is the dispatch form of a call.
type InvokeKind int

const (
	Special InvokeKind = iota
	Virtual
	Interface
	Static
)

func (k InvokeKind) String() string {
	switch k {
	case Virtual:
		return "virtualinvoke"
	case Interface:
		return "interfaceinvoke"
	case Static:
		return "staticinvoke"
	default:
		return "specialinvoke"
	}
}

// InvokeExpr calls Method. Base is nil for static calls.
type InvokeExpr struct {
	Kind   InvokeKind
	Base   *Local
	Method *jvm.Method
	Args   []Value
}

func (e *InvokeExpr) Type() jvm.TypeRef {
	if e.Method == nil {
		return jvm.Void
	}
	return e.Method.Return
}

func (e *InvokeExpr) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	recv := ""
	if e.Base != nil {
		recv = e.Base.Name + "."
	}
	sig := "<nil>"
	if e.Method != nil {
		sig = e.Method.Signature()
	}
	return fmt.Sprintf("%s %s%s(%s)", e.Kind, recv, sig, strings.Join(args, ", "))
}

// KindFor picks the call form for invoking m on a receiver.
func KindFor(m *jvm.Method) InvokeKind {
	switch {
	case m.IsStatic():
		return Static
	case m.IsConstructor() || m.IsPrivate():
		return Special
	case m.Owner != nil && m.Owner.IsInterface():
		return Interface
	default:
		return Virtual
	}
}

// StaticFieldRef denotes a static field.
type StaticFieldRef struct {
	Field *jvm.Field
}

func (r *StaticFieldRef) Type() jvm.TypeRef { return r.Field.Type }
func (r *StaticFieldRef) String() string    { return r.Field.Signature() }

// InstanceFieldRef denotes a field of Base.
type InstanceFieldRef struct {
	Base  *Local
	Field *jvm.Field
}

func (r *InstanceFieldRef) Type() jvm.TypeRef { return r.Field.Type }
func (r *InstanceFieldRef) String() string    { return r.Base.Name + "." + r.Field.Signature() }

// FieldRefOf returns the static or instance reference to f.
func FieldRefOf(base *Local, f *jvm.Field) Value {
	if f.IsStatic() {
		return &StaticFieldRef{Field: f}
	}
	return &InstanceFieldRef{Base: base, Field: f}
}

// CastExpr converts Value to To.
type CastExpr struct {
	To    jvm.TypeRef
	Value Value
}

func (e *CastExpr) Type() jvm.TypeRef { return e.To }
func (e *CastExpr) String() string    { return "(" + e.To.String() + ") " + e.Value.String() }

// ThisRef is the receiver, only valid on the right of an IdentityStmt.
type ThisRef struct {
	Typ jvm.TypeRef
}

func (r ThisRef) Type() jvm.TypeRef { return r.Typ }
func (r ThisRef) String() string    { return "@this: " + r.Typ.String() }

// ParamRef is a parameter, only valid on the right of an IdentityStmt.
type ParamRef struct {
	Index int
	Typ   jvm.TypeRef
}

func (r ParamRef) Type() jvm.TypeRef { return r.Typ }
func (r ParamRef) String() string {
	return "@parameter" + strconv.Itoa(r.Index) + ": " + r.Typ.String()
}

// Stmt is a statement. Statements are compared by identity.
type Stmt interface {
	String() string
	stmt()
}

// IdentityStmt binds this or a parameter to a local.
type IdentityStmt struct {
	Local *Local
	Value Value
}

// AssignStmt stores RHS into LHS.
type AssignStmt struct {
	LHS Value
	RHS Value
}

// InvokeStmt is a call whose result is discarded.
type InvokeStmt struct {
	Expr *InvokeExpr
}

// IfStmt jumps to Target when Cond is non-zero.
type IfStmt struct {
	Cond   Value
	Target Stmt
}

// GotoStmt jumps to Target unconditionally.
type GotoStmt struct {
	Target Stmt
}

// NopStmt does nothing. It is used as a jump label; Name is a hint for
// readers of printed bodies and never affects identity.
type NopStmt struct {
	Name string
}

// ReturnStmt returns Value, or nothing when Value is nil.
type ReturnStmt struct {
	Value Value
}

// ThrowStmt throws Value.
type ThrowStmt struct {
	Value Value
}

func (*IdentityStmt) stmt() {}
func (*AssignStmt) stmt()   {}
func (*InvokeStmt) stmt()   {}
func (*IfStmt) stmt()       {}
func (*GotoStmt) stmt()     {}
func (*NopStmt) stmt()      {}
func (*ReturnStmt) stmt()   {}
func (*ThrowStmt) stmt()    {}

func (s *IdentityStmt) String() string { return s.Local.Name + " := " + s.Value.String() }
func (s *AssignStmt) String() string   { return s.LHS.String() + " = " + s.RHS.String() }
func (s *InvokeStmt) String() string   { return s.Expr.String() }
func (s *IfStmt) String() string       { return "if " + s.Cond.String() + " != 0 goto [?= " + brief(s.Target) + "]" }
func (s *GotoStmt) String() string     { return "goto [?= " + brief(s.Target) + "]" }
func (s *NopStmt) String() string      { return "nop" }
func (s *ThrowStmt) String() string    { return "throw " + s.Value.String() }

func (s *ReturnStmt) String() string {
	if s.Value == nil {
		return "return"
	}
	return "return " + s.Value.String()
}

// brief renders a jump target without following its own target.
func brief(s Stmt) string {
	switch j := s.(type) {
	case nil:
		return "<nil>"
	case *IfStmt:
		return "if " + j.Cond.String() + " != 0 goto"
	case *GotoStmt:
		return "goto"
	}
	return s.String()
}

// target returns the jump target of s, if any.
func target(s Stmt) Stmt {
	switch j := s.(type) {
	case *IfStmt:
		return j.Target
	case *GotoStmt:
		return j.Target
	}
	return nil
}

func setTarget(s, t Stmt) {
	switch j := s.(type) {
	case *IfStmt:
		j.Target = t
	case *GotoStmt:
		j.Target = t
	}
}

// falls reports whether control may continue to the next statement.
func falls(s Stmt) bool {
	switch s.(type) {
	case *GotoStmt, *ReturnStmt, *ThrowStmt:
		return false
	}
	return true
}
