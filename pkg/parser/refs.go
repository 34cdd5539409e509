package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/libmodel/pkg/jvm"
	"github.com/panbanda/libmodel/pkg/universe"
)

// refSet collects references in first-seen order.
type refSet struct {
	list []universe.RefDoc
	seen map[universe.RefDoc]bool
}

func (s *refSet) add(r universe.RefDoc) {
	if s.seen == nil {
		s.seen = make(map[universe.RefDoc]bool)
	}
	if s.seen[r] {
		return
	}
	s.seen[r] = true
	s.list = append(s.list, r)
}

func (s *refSet) addAll(rs []universe.RefDoc) {
	for _, r := range rs {
		s.add(r)
	}
}

func (s *refSet) method(owner, name string) {
	s.add(universe.RefDoc{Kind: "method", Owner: owner, Name: name})
}

func (s *refSet) field(owner, name string) {
	s.add(universe.RefDoc{Kind: "field", Owner: owner, Name: name})
}

// body walks one method body. Locals map names to their declared type; an
// empty type means unknown, as for lambda parameters.
type body struct {
	x       *extractor
	cls     *classScope
	tparams map[string]string
	locals  map[string]string
	refs    refSet
}

func (x *extractor) newBody(c *classScope, params []param, tparams map[string]string) *body {
	b := &body{x: x, cls: c, tparams: tparams, locals: make(map[string]string)}
	for _, p := range params {
		b.locals[p.name] = p.typ
	}
	return b
}

func (b *body) typeOf(n *sitter.Node) string {
	return b.x.typeOf(n, b.cls, b.tparams)
}

func (b *body) text(n *sitter.Node) string {
	return b.x.text(n)
}

func (b *body) walk(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "local_variable_declaration":
		t := b.typeOf(n.ChildByFieldName("type"))
		for _, d := range namedChildren(n) {
			if d.Type() == "variable_declarator" {
				b.locals[b.text(d.ChildByFieldName("name"))] = t + b.x.dims(d.ChildByFieldName("dimensions"))
				b.walk(d.ChildByFieldName("value"))
			}
		}
		return
	case "enhanced_for_statement":
		b.locals[b.text(n.ChildByFieldName("name"))] = b.typeOf(n.ChildByFieldName("type")) + b.x.dims(n.ChildByFieldName("dimensions"))
		b.walk(n.ChildByFieldName("value"))
		b.walk(n.ChildByFieldName("body"))
		return
	case "catch_formal_parameter":
		t := jvm.ObjectClass
		if ct := childOfType(n, "catch_type"); ct != nil {
			if alts := namedChildren(ct); len(alts) == 1 {
				t = b.typeOf(alts[0])
			} else {
				t = jvm.ThrowableClass
			}
		}
		b.locals[b.text(n.ChildByFieldName("name"))] = t
		return
	case "resource":
		if tn := n.ChildByFieldName("type"); tn != nil {
			b.locals[b.text(n.ChildByFieldName("name"))] = b.typeOf(tn)
			b.walk(n.ChildByFieldName("value"))
			return
		}
	case "lambda_expression":
		ps := n.ChildByFieldName("parameters")
		if ps != nil && ps.Type() == "identifier" {
			b.locals[b.text(ps)] = ""
		}
		for _, p := range namedChildren(ps) {
			switch p.Type() {
			case "identifier":
				b.locals[b.text(p)] = ""
			case "formal_parameter":
				b.locals[b.text(p.ChildByFieldName("name"))] = b.typeOf(p.ChildByFieldName("type"))
			}
		}
		b.walk(n.ChildByFieldName("body"))
		return
	case "method_invocation":
		b.invocation(n)
		return
	case "object_creation_expression":
		b.refs.method(ownerOf(b.typeOf(n.ChildByFieldName("type"))), jvm.ConstructorName)
		b.walk(n.ChildByFieldName("arguments"))
		b.walk(childOfType(n, "class_body"))
		return
	case "explicit_constructor_invocation":
		owner := b.cls.name
		if b.text(n.ChildByFieldName("constructor")) == "super" {
			owner = b.cls.super
		}
		b.refs.method(owner, jvm.ConstructorName)
		b.walk(n.ChildByFieldName("arguments"))
		return
	case "field_access":
		owner, isType := b.receiver(n.ChildByFieldName("object"))
		b.refs.field(owner, b.text(n.ChildByFieldName("field")))
		if !isType {
			b.walk(n.ChildByFieldName("object"))
		}
		return
	case "method_reference":
		b.methodReference(n)
		return
	case "identifier":
		name := b.text(n)
		if _, local := b.locals[name]; !local {
			if owner, _ := b.field(name); owner != "" {
				b.refs.field(owner, name)
			}
		}
		return
	case "class_literal", "type_identifier", "scoped_type_identifier", "generic_type":
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		b.walk(n.NamedChild(i))
	}
}

func (b *body) invocation(n *sitter.Node) {
	name := b.text(n.ChildByFieldName("name"))
	obj := n.ChildByFieldName("object")
	if obj == nil {
		b.refs.method(b.implicitOwner(name), name)
	} else {
		owner, isType := b.receiver(obj)
		b.refs.method(owner, name)
		if !isType {
			b.walk(obj)
		}
	}
	b.walk(n.ChildByFieldName("arguments"))
}

func (b *body) methodReference(n *sitter.Node) {
	named := namedChildren(n)
	if len(named) == 0 {
		return
	}
	target := n.Child(int(n.ChildCount()) - 1)
	if b.text(target) == "new" {
		b.refs.method(ownerOf(b.typeOf(named[0])), jvm.ConstructorName)
		return
	}
	var owner string
	var isType bool
	switch named[0].Type() {
	case "type_identifier", "scoped_type_identifier", "generic_type", "array_type":
		owner, isType = ownerOf(b.typeOf(named[0])), true
	default:
		owner, isType = b.receiver(named[0])
	}
	b.refs.method(owner, b.text(target))
	if !isType {
		b.walk(named[0])
	}
}

// enumConstant records the construction of an enum constant.
func (b *body) enumConstant(n *sitter.Node) {
	b.refs.method(b.cls.name, jvm.ConstructorName)
	b.walk(n.ChildByFieldName("arguments"))
	b.walk(n.ChildByFieldName("body"))
}

// implicitOwner picks the innermost enclosing class declaring a method
// called name, or the current class when none does.
func (b *body) implicitOwner(name string) string {
	for c := b.cls; c != nil; c = c.outer {
		if c.methods[name] {
			return c.name
		}
	}
	return b.cls.name
}

// field finds a field visible by simple name in the enclosing classes.
func (b *body) field(name string) (owner, typ string) {
	for c := b.cls; c != nil; c = c.outer {
		if t, ok := c.fields[name]; ok {
			return c.name, t
		}
	}
	return "", ""
}

// receiver returns the class a member access on obj is looked up in, and
// whether obj names a type rather than a value.
func (b *body) receiver(obj *sitter.Node) (string, bool) {
	switch obj.Type() {
	case "this":
		return b.cls.name, false
	case "super":
		return b.cls.super, false
	case "identifier":
		name := b.text(obj)
		if t, ok := b.locals[name]; ok {
			return ownerOf(t), false
		}
		if _, t := b.field(name); t != "" {
			return ownerOf(t), false
		}
		if c := b.x.file.lookup(name, b.cls); c != "" {
			return c, true
		}
		if startsUpper(name) {
			return b.x.file.qualify(name), true
		}
	case "field_access":
		if q, ok := b.qualifiedName(obj); ok {
			return b.x.file.resolve(q, b.cls, b.tparams), true
		}
		if o := obj.ChildByFieldName("object"); o != nil && o.Type() == "this" {
			if _, t := b.field(b.text(obj.ChildByFieldName("field"))); t != "" {
				return ownerOf(t), false
			}
		}
	case "object_creation_expression":
		return ownerOf(b.typeOf(obj.ChildByFieldName("type"))), false
	case "cast_expression":
		return ownerOf(b.typeOf(obj.ChildByFieldName("type"))), false
	case "parenthesized_expression":
		if inner := namedChildren(obj); len(inner) == 1 {
			return b.receiver(inner[0])
		}
	case "string_literal":
		return jvm.StringClass, false
	}
	return jvm.AnyOwner, false
}

// qualifiedName reports whether a field access chain spells a type name,
// such as java.util.Collections or Outer.Inner. The chain must start with a
// name that is not a variable and end in a capitalized segment.
func (b *body) qualifiedName(n *sitter.Node) (string, bool) {
	var parts []string
	for cur := n; ; {
		switch cur.Type() {
		case "identifier":
			head := b.text(cur)
			if _, local := b.locals[head]; local {
				return "", false
			}
			if owner, _ := b.field(head); owner != "" {
				return "", false
			}
			parts = append(parts, head)
			for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
				parts[i], parts[j] = parts[j], parts[i]
			}
			last := parts[len(parts)-1]
			if !startsUpper(last) || strings.ToUpper(last) == last {
				return "", false
			}
			return strings.Join(parts, "."), true
		case "field_access":
			parts = append(parts, b.text(cur.ChildByFieldName("field")))
			cur = cur.ChildByFieldName("object")
			if cur == nil {
				return "", false
			}
		default:
			return "", false
		}
	}
}
