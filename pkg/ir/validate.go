package ir

import (
	"errors"
	"fmt"

	"github.com/panbanda/libmodel/pkg/jvm"
)

// ValidationError lists every structural problem found in a body.
type ValidationError struct {
	Method   string
	Problems []string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid body for %s", e.Method)
	for _, p := range e.Problems {
		msg += "\n  - " + p
	}
	return msg
}

// ErrEmptyBody is returned for a body without statements.
var ErrEmptyBody = errors.New("empty body")

// Validate checks the structural rules every emitted body must satisfy:
//   - identity statements come first and match the method's receiver and
//     parameters
//   - every local is declared and every jump target is in the body
//   - the last statement does not fall through and every statement is
//     reachable
//   - returns, calls and field accesses agree with their declarations
//   - field stores, call operands, conditions, returns and throws use only
//     locals and constants
func (b *Body) Validate() error {
	if len(b.Stmts) == 0 {
		return ErrEmptyBody
	}
	v := &validator{body: b, declared: make(map[*Local]bool, len(b.Locals))}
	for _, l := range b.Locals {
		v.declared[l] = true
	}
	v.identities()
	for i, s := range b.Stmts {
		v.stmt(i, s)
	}
	v.flow()

	if len(v.problems) == 0 {
		return nil
	}
	name := "<unknown>"
	if b.Method != nil {
		name = b.Method.Signature()
	}
	return &ValidationError{Method: name, Problems: v.problems}
}

type validator struct {
	body     *Body
	declared map[*Local]bool
	problems []string
}

func (v *validator) fail(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) identities() {
	m := v.body.Method
	if m == nil {
		return
	}
	want := len(m.Params)
	if !m.IsStatic() {
		want++
	}
	if len(v.body.Stmts) < want {
		v.fail("expected %d identity statements", want)
		return
	}
	i := 0
	if !m.IsStatic() {
		id, ok := v.body.Stmts[0].(*IdentityStmt)
		if _, isThis := idValue(id, ok).(ThisRef); !isThis {
			v.fail("statement 0 must bind @this")
		}
		i++
	}
	for p, typ := range m.Params {
		id, ok := v.body.Stmts[i].(*IdentityStmt)
		ref, isParam := idValue(id, ok).(ParamRef)
		if !isParam || ref.Index != p || ref.Typ != typ {
			v.fail("statement %d must bind @parameter%d: %s", i, p, typ)
		}
		i++
	}
	for j := i; j < len(v.body.Stmts); j++ {
		if _, ok := v.body.Stmts[j].(*IdentityStmt); ok {
			v.fail("identity statement %d after body start", j)
		}
	}
}

func idValue(id *IdentityStmt, ok bool) Value {
	if !ok {
		return nil
	}
	return id.Value
}

func (v *validator) local(l *Local, where string) {
	if l == nil {
		v.fail("%s: nil local", where)
		return
	}
	if !v.declared[l] {
		v.fail("%s: undeclared local %s", where, l.Name)
	}
}

// operand checks a value that must be a local or a constant.
func (v *validator) operand(val Value, where string) {
	switch o := val.(type) {
	case *Local:
		v.local(o, where)
	case Constant:
	default:
		v.fail("%s: %v is not a local or constant", where, val)
	}
}

func (v *validator) stmt(i int, s Stmt) {
	where := fmt.Sprintf("statement %d (%s)", i, s)
	switch st := s.(type) {
	case *IdentityStmt:
		v.local(st.Local, where)
	case *AssignStmt:
		v.assign(st, where)
	case *InvokeStmt:
		v.invoke(st.Expr, where)
	case *IfStmt:
		v.operand(st.Cond, where)
		v.jump(st.Target, where)
	case *GotoStmt:
		v.jump(st.Target, where)
	case *NopStmt:
	case *ReturnStmt:
		v.ret(st, where)
	case *ThrowStmt:
		v.operand(st.Value, where)
		if st.Value != nil && !st.Value.Type().IsReference() {
			v.fail("%s: throw of non-reference", where)
		}
	default:
		v.fail("%s: unknown statement", where)
	}
}

func (v *validator) jump(t Stmt, where string) {
	if t == nil || v.body.IndexOf(t) < 0 {
		v.fail("%s: jump target not in body", where)
	}
}

func (v *validator) assign(st *AssignStmt, where string) {
	switch lhs := st.LHS.(type) {
	case *Local:
		v.local(lhs, where)
		v.expr(st.RHS, where)
	case *StaticFieldRef, *InstanceFieldRef:
		v.field(lhs, where)
		v.operand(st.RHS, where)
	default:
		v.fail("%s: cannot assign to %v", where, st.LHS)
	}
	if st.LHS != nil && st.RHS != nil && !compatible(st.LHS.Type(), st.RHS.Type()) {
		v.fail("%s: cannot assign %s to %s", where, st.RHS.Type(), st.LHS.Type())
	}
}

func (v *validator) expr(val Value, where string) {
	switch e := val.(type) {
	case *Local, Constant:
		v.operand(e, where)
	case *NewExpr:
		if !e.Class.IsClass() {
			v.fail("%s: new of non-class %s", where, e.Class)
		}
	case *NewArrayExpr:
		v.operand(e.Size, where)
	case *InvokeExpr:
		v.invoke(e, where)
		if e.Method != nil && e.Method.Return.IsVoid() {
			v.fail("%s: void call used as value", where)
		}
	case *StaticFieldRef, *InstanceFieldRef:
		v.field(e, where)
	case *CastExpr:
		v.operand(e.Value, where)
	case ThisRef, ParamRef:
		v.fail("%s: %v outside identity statement", where, e)
	default:
		v.fail("%s: unknown expression %v", where, val)
	}
}

func (v *validator) field(ref Value, where string) {
	switch r := ref.(type) {
	case *StaticFieldRef:
		if r.Field == nil || !r.Field.IsStatic() {
			v.fail("%s: static access to instance field", where)
		}
	case *InstanceFieldRef:
		if r.Field == nil || r.Field.IsStatic() {
			v.fail("%s: instance access to static field", where)
		}
		v.local(r.Base, where)
	}
}

func (v *validator) invoke(e *InvokeExpr, where string) {
	if e == nil || e.Method == nil {
		v.fail("%s: call without target", where)
		return
	}
	if len(e.Args) != len(e.Method.Params) {
		v.fail("%s: %d arguments for %d parameters", where, len(e.Args), len(e.Method.Params))
	}
	for _, a := range e.Args {
		v.operand(a, where)
	}
	static := e.Kind == Static
	if static != e.Method.IsStatic() {
		v.fail("%s: %s of %s method", where, e.Kind, staticWord(e.Method.IsStatic()))
	}
	if static && e.Base != nil {
		v.fail("%s: static call with receiver", where)
	}
	if !static {
		v.local(e.Base, where)
	}
}

func staticWord(static bool) string {
	if static {
		return "static"
	}
	return "instance"
}

func (v *validator) ret(st *ReturnStmt, where string) {
	m := v.body.Method
	if m == nil {
		return
	}
	if m.Return.IsVoid() {
		if st.Value != nil {
			v.fail("%s: value returned from void method", where)
		}
		return
	}
	if st.Value == nil {
		v.fail("%s: missing return value", where)
		return
	}
	v.operand(st.Value, where)
	if !compatible(m.Return, st.Value.Type()) {
		v.fail("%s: returns %s from %s method", where, st.Value.Type(), m.Return)
	}
}

// compatible is the kind-level assignability check: references to
// references, primitives to the same primitive.
func compatible(to, from jvm.TypeRef) bool {
	if to.IsReference() || from.IsReference() {
		return to.IsReference() && from.IsReference()
	}
	return to == from
}

// flow checks that the body ends in a terminator and every statement can be
// reached from the first.
func (v *validator) flow() {
	stmts := v.body.Stmts
	if falls(stmts[len(stmts)-1]) {
		v.fail("control falls off the end of the body")
	}

	reached := make([]bool, len(stmts))
	work := []int{0}
	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]
		if i < 0 || i >= len(stmts) || reached[i] {
			continue
		}
		reached[i] = true
		s := stmts[i]
		if t := target(s); t != nil {
			work = append(work, v.body.IndexOf(t))
		}
		if falls(s) {
			work = append(work, i+1)
		}
	}
	for i, ok := range reached {
		if !ok {
			v.fail("statement %d (%s) is unreachable", i, stmts[i])
		}
	}
}
