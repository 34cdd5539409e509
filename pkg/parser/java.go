package parser

import (
	"errors"
	"slices"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	log "github.com/sirupsen/logrus"

	"github.com/panbanda/libmodel/pkg/jvm"
	"github.com/panbanda/libmodel/pkg/universe"
)

// ErrNoTypes is returned for sources that fail to parse and declare nothing.
var ErrNoTypes = errors.New("no type declarations")

var declarationTypes = map[string]bool{
	"class_declaration":           true,
	"interface_declaration":       true,
	"enum_declaration":            true,
	"record_declaration":          true,
	"annotation_type_declaration": true,
}

var documentModifiers = map[string]bool{
	"public": true, "private": true, "protected": true, "static": true,
	"final": true, "synchronized": true, "native": true, "abstract": true,
	"transient": true, "volatile": true,
}

// classScope is a declared type and what its bodies can see.
type classScope struct {
	name   string
	simple string
	kind   string
	outer  *classScope
	node   *sitter.Node
	// static types cannot see the type variables of enclosing classes.
	static bool

	super      string
	typeParams map[string]string
	fields     map[string]string
	methods    map[string]bool

	doc         *universe.TypeDoc
	bodies      []pendingBody
	staticInit  []*sitter.Node
	instInit    []*sitter.Node
	hasClinit   bool
	declaresCtr bool
}

func (c *classScope) typeParam(name string) (string, bool) {
	for s := c; s != nil; s = s.outer {
		if e, ok := s.typeParams[name]; ok {
			return e, true
		}
		if s.static {
			break
		}
	}
	return "", false
}

func (c *classScope) isInterface() bool {
	return c.kind == "interface_declaration" || c.kind == "annotation_type_declaration"
}

type param struct {
	name string
	typ  string
}

type pendingBody struct {
	method  int
	params  []param
	tparams map[string]string
	node    *sitter.Node
}

type extractor struct {
	src     []byte
	file    *fileScope
	classes []*classScope
}

// Extract builds the application document for a parsed Java file. Nested
// types get binary names (Outer$Inner). Anonymous and local classes are not
// declared; their references count toward the enclosing member.
func Extract(res *ParseResult) (*universe.Document, error) {
	root := res.Tree.RootNode()
	x := &extractor{src: res.Source, file: newFileScope()}
	x.header(root)
	for _, n := range namedChildren(root) {
		x.declare(n, nil)
	}
	if root.HasError() {
		if len(x.classes) == 0 {
			return nil, ErrNoTypes
		}
		log.WithField("path", res.Path).Warn("java source has syntax errors")
	}

	doc := &universe.Document{
		Provenance: jvm.Application.String(),
		Types:      make([]universe.TypeDoc, len(x.classes)),
	}
	for i, c := range x.classes {
		c.doc = &doc.Types[i]
	}
	for _, c := range x.classes {
		x.members(c)
	}
	for _, c := range x.classes {
		x.bodies(c)
	}
	return doc, nil
}

func (x *extractor) text(n *sitter.Node) string {
	return GetNodeText(n, x.src)
}

func (x *extractor) header(root *sitter.Node) {
	for _, n := range namedChildren(root) {
		switch n.Type() {
		case "package_declaration":
			for _, c := range namedChildren(n) {
				if c.Type() == "scoped_identifier" || c.Type() == "identifier" {
					x.file.pkg = x.text(c)
				}
			}
		case "import_declaration":
			static, wildcard := false, false
			name := ""
			for i := 0; i < int(n.ChildCount()); i++ {
				c := n.Child(i)
				switch c.Type() {
				case "static":
					static = true
				case "asterisk":
					wildcard = true
				case "scoped_identifier", "identifier":
					name = x.text(c)
				}
			}
			if static || wildcard || name == "" {
				continue
			}
			simple := name[strings.LastIndexByte(name, '.')+1:]
			x.file.imports[simple] = binaryName(name)
		}
	}
}

func (x *extractor) declare(n *sitter.Node, outer *classScope) {
	if !declarationTypes[n.Type()] {
		return
	}
	simple := x.text(n.ChildByFieldName("name"))
	if simple == "" {
		return
	}
	c := &classScope{
		simple:     simple,
		kind:       n.Type(),
		outer:      outer,
		node:       n,
		typeParams: make(map[string]string),
		fields:     make(map[string]string),
		methods:    make(map[string]bool),
	}
	if outer == nil {
		c.name = x.file.qualify(simple)
		x.file.top[simple] = c.name
	} else {
		c.name = outer.name + "$" + simple
	}
	c.static = outer == nil || n.Type() != "class_declaration" || outer.isInterface() ||
		slices.Contains(x.modifierWords(n), "static")
	x.file.declared[c.name] = true
	x.classes = append(x.classes, c)

	for _, m := range x.classMembers(n) {
		x.declare(m, c)
	}
}

// classMembers returns the member declarations of a type, including those
// after the constant list of an enum.
func (x *extractor) classMembers(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, m := range namedChildren(n.ChildByFieldName("body")) {
		if m.Type() == "enum_body_declarations" {
			out = append(out, namedChildren(m)...)
			continue
		}
		out = append(out, m)
	}
	return out
}

func (x *extractor) modifierWords(decl *sitter.Node) []string {
	mods := childOfType(decl, "modifiers")
	if mods == nil {
		return nil
	}
	var words []string
	for i := 0; i < int(mods.ChildCount()); i++ {
		c := mods.Child(i)
		if !c.IsNamed() {
			words = append(words, x.text(c))
		}
	}
	return words
}

// modifiers returns the document modifiers and resolved annotations of a
// declaration, and whether it is an interface default method.
func (x *extractor) modifiers(decl *sitter.Node, cls *classScope) (mods, annotations []string, isDefault bool) {
	if m := childOfType(decl, "modifiers"); m != nil {
		for _, a := range namedChildren(m) {
			if a.Type() == "marker_annotation" || a.Type() == "annotation" {
				annotations = append(annotations, x.file.resolve(x.text(a.ChildByFieldName("name")), cls, nil))
			}
		}
	}
	for _, w := range x.modifierWords(decl) {
		switch {
		case w == "default":
			isDefault = true
		case documentModifiers[w]:
			mods = addModifier(mods, w)
		}
	}
	return mods, annotations, isDefault
}

func addModifier(mods []string, m string) []string {
	if slices.Contains(mods, m) {
		return mods
	}
	return append(mods, m)
}

// typeOf renders a type node as a type reference string.
func (x *extractor) typeOf(n *sitter.Node, cls *classScope, tparams map[string]string) string {
	if n == nil {
		return jvm.ObjectClass
	}
	switch n.Type() {
	case "integral_type", "floating_point_type", "boolean_type", "void_type":
		return x.text(n)
	case "array_type":
		return x.typeOf(n.ChildByFieldName("element"), cls, tparams) + x.dims(n.ChildByFieldName("dimensions"))
	case "generic_type", "annotated_type":
		named := namedChildren(n)
		for i := len(named) - 1; i >= 0; i-- {
			switch named[i].Type() {
			case "type_arguments", "marker_annotation", "annotation":
				continue
			}
			return x.typeOf(named[i], cls, tparams)
		}
	case "type_identifier", "scoped_type_identifier", "identifier", "scoped_identifier":
		return x.file.resolve(x.text(n), cls, tparams)
	}
	return jvm.ObjectClass
}

func (x *extractor) dims(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return strings.Repeat("[]", strings.Count(x.text(n), "["))
}

func (x *extractor) typeList(n *sitter.Node, cls *classScope) []string {
	if n == nil {
		return nil
	}
	list := n
	if n.Type() != "type_list" {
		list = childOfType(n, "type_list")
	}
	var out []string
	for _, t := range namedChildren(list) {
		out = append(out, x.typeOf(t, cls, nil))
	}
	return out
}

// typeParams maps each declared type variable to its erasure.
func (x *extractor) typeParams(n *sitter.Node, cls *classScope, outer map[string]string) map[string]string {
	out := make(map[string]string)
	for k, v := range outer {
		out[k] = v
	}
	for _, tp := range namedChildren(n) {
		if tp.Type() != "type_parameter" {
			continue
		}
		var name string
		erasure := jvm.ObjectClass
		for _, c := range namedChildren(tp) {
			switch c.Type() {
			case "type_identifier", "identifier":
				if name == "" {
					name = x.text(c)
				}
			case "type_bound":
				if b := namedChildren(c); len(b) > 0 {
					erasure = x.typeOf(b[0], cls, out)
				}
			}
		}
		if name != "" {
			out[name] = erasure
		}
	}
	return out
}

func (x *extractor) params(n *sitter.Node, cls *classScope, tparams map[string]string) []param {
	var out []param
	for _, p := range namedChildren(n) {
		switch p.Type() {
		case "formal_parameter":
			out = append(out, param{
				name: x.text(p.ChildByFieldName("name")),
				typ:  x.typeOf(p.ChildByFieldName("type"), cls, tparams) + x.dims(p.ChildByFieldName("dimensions")),
			})
		case "spread_parameter":
			var pr param
			for _, c := range namedChildren(p) {
				switch c.Type() {
				case "modifiers":
				case "variable_declarator":
					pr.name = x.text(c.ChildByFieldName("name"))
				default:
					if pr.typ == "" {
						pr.typ = x.typeOf(c, cls, tparams) + "[]"
					}
				}
			}
			out = append(out, pr)
		}
	}
	return out
}

func (x *extractor) members(c *classScope) {
	td := c.doc
	td.Name = c.name
	c.typeParams = x.typeParams(c.node.ChildByFieldName("type_parameters"), c, nil)
	mods, annotations, _ := x.modifiers(c.node, c)
	td.Annotations = annotations

	switch c.kind {
	case "interface_declaration":
		td.Kind = "interface"
		td.Interfaces = x.typeList(childOfType(c.node, "extends_interfaces"), c)
	case "annotation_type_declaration":
		td.Kind = "interface"
		td.Interfaces = []string{"java.lang.annotation.Annotation"}
	case "enum_declaration":
		td.Super = jvm.EnumClass
		mods = addModifier(mods, "final")
		td.Interfaces = x.typeList(c.node.ChildByFieldName("interfaces"), c)
	case "record_declaration":
		td.Super = "java.lang.Record"
		mods = addModifier(mods, "final")
		td.Interfaces = x.typeList(c.node.ChildByFieldName("interfaces"), c)
	default:
		if sc := c.node.ChildByFieldName("superclass"); sc != nil {
			if t := namedChildren(sc); len(t) > 0 {
				td.Super = x.typeOf(t[0], c, nil)
			}
		}
		td.Interfaces = x.typeList(c.node.ChildByFieldName("interfaces"), c)
	}
	if c.outer != nil && c.static {
		mods = addModifier(mods, "static")
	}
	td.Modifiers = mods
	c.super = td.Super
	if c.super == "" {
		c.super = jvm.ObjectClass
	}

	if c.kind == "record_declaration" {
		x.recordComponents(c)
	}
	if c.kind == "enum_declaration" {
		for _, m := range namedChildren(c.node.ChildByFieldName("body")) {
			if m.Type() == "enum_constant" {
				name := x.text(m.ChildByFieldName("name"))
				x.addField(c, name, c.name, []string{"public", "static", "final"}, nil)
				c.staticInit = append(c.staticInit, m)
			}
		}
	}

	for _, m := range x.classMembers(c.node) {
		switch m.Type() {
		case "field_declaration", "constant_declaration":
			x.field(c, m)
		case "method_declaration", "constructor_declaration", "compact_constructor_declaration":
			x.method(c, m)
		case "annotation_type_element_declaration":
			ret := x.typeOf(m.ChildByFieldName("type"), c, nil) + x.dims(m.ChildByFieldName("dimensions"))
			name := x.text(m.ChildByFieldName("name"))
			td.Methods = append(td.Methods, universe.MethodDoc{Name: name, Returns: ret, Modifiers: []string{"public", "abstract"}})
			c.methods[name] = true
		case "static_initializer":
			c.hasClinit = true
			c.staticInit = append(c.staticInit, m)
		case "block":
			c.instInit = append(c.instInit, m)
		}
	}
	x.implicitMembers(c)
}

func (x *extractor) addField(c *classScope, name, typ string, mods, annotations []string) {
	c.doc.Fields = append(c.doc.Fields, universe.FieldDoc{Name: name, Type: typ, Modifiers: mods, Annotations: annotations})
	c.fields[name] = typ
}

func (x *extractor) field(c *classScope, n *sitter.Node) {
	mods, annotations, _ := x.modifiers(n, c)
	if c.isInterface() {
		for _, m := range []string{"public", "static", "final"} {
			mods = addModifier(mods, m)
		}
	}
	base := x.typeOf(n.ChildByFieldName("type"), c, nil)
	static := slices.Contains(mods, "static")
	for _, d := range namedChildren(n) {
		if d.Type() != "variable_declarator" {
			continue
		}
		x.addField(c, x.text(d.ChildByFieldName("name")), base+x.dims(d.ChildByFieldName("dimensions")), mods, annotations)
		if v := d.ChildByFieldName("value"); v != nil {
			if static {
				c.staticInit = append(c.staticInit, v)
			} else {
				c.instInit = append(c.instInit, v)
			}
		}
	}
}

func (x *extractor) method(c *classScope, n *sitter.Node) {
	mods, annotations, isDefault := x.modifiers(n, c)
	tparams := x.typeParams(n.ChildByFieldName("type_parameters"), c, nil)

	md := universe.MethodDoc{Annotations: annotations}
	var params []param
	switch n.Type() {
	case "method_declaration":
		md.Name = x.text(n.ChildByFieldName("name"))
		ret := x.typeOf(n.ChildByFieldName("type"), c, tparams) + x.dims(n.ChildByFieldName("dimensions"))
		if ret != "void" {
			md.Returns = ret
		}
		params = x.params(n.ChildByFieldName("parameters"), c, tparams)
	case "compact_constructor_declaration":
		md.Name = jvm.ConstructorName
		params = x.recordParams(c)
	default:
		md.Name = jvm.ConstructorName
		params = x.params(n.ChildByFieldName("parameters"), c, tparams)
	}
	for _, p := range params {
		md.Params = append(md.Params, p.typ)
	}

	body := n.ChildByFieldName("body")
	if c.isInterface() {
		if !slices.Contains(mods, "private") {
			mods = addModifier(mods, "public")
		}
		if body == nil && !isDefault && !slices.Contains(mods, "static") {
			mods = addModifier(mods, "abstract")
		}
	}
	md.Modifiers = mods

	if md.Name == jvm.ConstructorName {
		c.declaresCtr = true
		if x.hasMethod(c, md) {
			return
		}
	}
	c.methods[md.Name] = true
	c.doc.Methods = append(c.doc.Methods, md)
	if body != nil || md.Name == jvm.ConstructorName {
		c.bodies = append(c.bodies, pendingBody{method: len(c.doc.Methods) - 1, params: params, tparams: tparams, node: body})
	}
}

func (x *extractor) hasMethod(c *classScope, md universe.MethodDoc) bool {
	return slices.ContainsFunc(c.doc.Methods, func(m universe.MethodDoc) bool {
		return m.Name == md.Name && slices.Equal(m.Params, md.Params)
	})
}

func (x *extractor) recordParams(c *classScope) []param {
	return x.params(c.node.ChildByFieldName("parameters"), c, nil)
}

// recordComponents declares the private fields and accessors of a record.
func (x *extractor) recordComponents(c *classScope) {
	for _, p := range x.recordParams(c) {
		x.addField(c, p.name, p.typ, []string{"private", "final"}, nil)
		c.doc.Methods = append(c.doc.Methods, universe.MethodDoc{Name: p.name, Returns: p.typ, Modifiers: []string{"public"}})
		c.methods[p.name] = true
	}
}

// implicitMembers adds what the compiler would: default and canonical
// constructors, and the static members of enums.
func (x *extractor) implicitMembers(c *classScope) {
	switch c.kind {
	case "enum_declaration":
		c.doc.Methods = append(c.doc.Methods,
			universe.MethodDoc{Name: "values", Returns: c.name + "[]", Modifiers: []string{"public", "static"}},
			universe.MethodDoc{Name: "valueOf", Params: []string{jvm.StringClass}, Returns: c.name, Modifiers: []string{"public", "static"}},
		)
		c.methods["values"], c.methods["valueOf"] = true, true
	case "interface_declaration", "annotation_type_declaration":
		return
	}

	var ctor universe.MethodDoc
	ctor.Name = jvm.ConstructorName
	switch c.kind {
	case "enum_declaration":
		ctor.Modifiers = []string{"private"}
	case "record_declaration":
		ctor.Modifiers = []string{"public"}
		for _, p := range x.recordParams(c) {
			ctor.Params = append(ctor.Params, p.typ)
		}
		if x.hasMethod(c, ctor) {
			return
		}
	default:
		if c.declaresCtr {
			return
		}
		for _, m := range []string{"public", "protected", "private"} {
			if slices.Contains(c.doc.Modifiers, m) {
				ctor.Modifiers = []string{m}
			}
		}
	}
	if c.kind == "enum_declaration" && c.declaresCtr {
		return
	}
	c.methods[ctor.Name] = true
	c.doc.Methods = append(c.doc.Methods, ctor)
	c.bodies = append(c.bodies, pendingBody{method: len(c.doc.Methods) - 1})
}

// delegates reports whether a constructor body starts with this(...) or
// super(...).
func delegates(body *sitter.Node) bool {
	stmts := namedChildren(body)
	return len(stmts) > 0 && stmts[0].Type() == "explicit_constructor_invocation"
}

// bodies records the references of every method body. Instance initializers
// count toward each constructor, static ones toward <clinit>.
func (x *extractor) bodies(c *classScope) {
	init := x.newBody(c, nil, nil)
	for _, n := range c.instInit {
		init.walk(n)
	}
	for _, pb := range c.bodies {
		md := &c.doc.Methods[pb.method]
		b := x.newBody(c, pb.params, pb.tparams)
		if md.Name == jvm.ConstructorName {
			if !delegates(pb.node) {
				b.refs.method(c.super, jvm.ConstructorName)
			}
			b.refs.addAll(init.refs.list)
		}
		b.walk(pb.node)
		md.Refs = b.refs.list
	}

	if !c.hasClinit && len(c.staticInit) == 0 {
		return
	}
	clinit := x.newBody(c, nil, nil)
	for _, n := range c.staticInit {
		if n.Type() == "enum_constant" {
			clinit.enumConstant(n)
			continue
		}
		clinit.walk(n)
	}
	c.doc.Methods = append(c.doc.Methods, universe.MethodDoc{
		Name:      jvm.StaticInitName,
		Modifiers: []string{"static"},
		Refs:      clinit.refs.list,
	})
}
