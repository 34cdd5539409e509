package ir

import (
	"fmt"
	"strings"

	"github.com/panbanda/libmodel/pkg/jvm"
)

// Body is the statement list of one method.
type Body struct {
	Method *jvm.Method
	Locals []*Local
	Stmts  []Stmt
}

var _ jvm.Body = (*Body)(nil)

// Invokes returns every call expression in the body, in statement order.
func (b *Body) Invokes() []*InvokeExpr {
	var out []*InvokeExpr
	for _, s := range b.Stmts {
		switch st := s.(type) {
		case *InvokeStmt:
			out = append(out, st.Expr)
		case *AssignStmt:
			if ie, ok := st.RHS.(*InvokeExpr); ok {
				out = append(out, ie)
			}
		}
	}
	return out
}

// CallsTo returns the calls whose target is m.
func (b *Body) CallsTo(m *jvm.Method) []*InvokeExpr {
	var out []*InvokeExpr
	for _, ie := range b.Invokes() {
		if ie.Method == m {
			out = append(out, ie)
		}
	}
	return out
}

// IndexOf returns the position of s in the body, or -1.
func (b *Body) IndexOf(s Stmt) int {
	for i, st := range b.Stmts {
		if st == s {
			return i
		}
	}
	return -1
}

// String prints the body with labels for jump targets.
func (b *Body) String() string {
	labels := make(map[Stmt]string)
	for _, s := range b.Stmts {
		if t := target(s); t != nil {
			if _, ok := labels[t]; !ok {
				labels[t] = ""
			}
		}
	}
	n := 0
	for _, s := range b.Stmts {
		if _, ok := labels[s]; ok {
			n++
			labels[s] = fmt.Sprintf("label%d", n)
		}
	}

	var sb strings.Builder
	if b.Method != nil {
		mods := b.Method.Modifiers.String()
		if mods != "" {
			mods += " "
		}
		params := make([]string, len(b.Method.Params))
		for i, p := range b.Method.Params {
			params[i] = p.String()
		}
		fmt.Fprintf(&sb, "    %s%s %s(%s)\n", mods, b.Method.Return, b.Method.Name, strings.Join(params, ", "))
	}
	sb.WriteString("    {\n")
	for _, l := range b.Locals {
		fmt.Fprintf(&sb, "        %s %s;\n", l.Typ, l.Name)
	}
	if len(b.Locals) > 0 {
		sb.WriteString("\n")
	}
	for _, s := range b.Stmts {
		if l, ok := labels[s]; ok {
			fmt.Fprintf(&sb, "     %s:\n", l)
		}
		text := s.String()
		switch st := s.(type) {
		case *IfStmt:
			text = fmt.Sprintf("if %s != 0 goto %s", st.Cond, labelOf(labels, st.Target))
		case *GotoStmt:
			text = "goto " + labelOf(labels, st.Target)
		}
		fmt.Fprintf(&sb, "        %s;\n", text)
	}
	sb.WriteString("    }\n")
	return sb.String()
}

func labelOf(labels map[Stmt]string, s Stmt) string {
	if l, ok := labels[s]; ok && l != "" {
		return l
	}
	return "<missing>"
}
