package universe

import (
	"fmt"

	"github.com/panbanda/libmodel/pkg/jvm"
)

// Convert converts the document into jvm types. A type's provenance is its own
// when set; otherwise library documents yield library types, and application
// documents yield application types for classes matching rules and library
// types for the rest.
func (d *Document) Convert(rules *Rules) ([]*jvm.Type, error) {
	docProv := jvm.Library
	if d.Provenance != "" {
		p, ok := jvm.ParseProvenance(d.Provenance)
		if !ok {
			return nil, fmt.Errorf("unknown provenance %q", d.Provenance)
		}
		docProv = p
	}

	out := make([]*jvm.Type, 0, len(d.Types))
	for i := range d.Types {
		t, err := d.Types[i].toType(docProv, rules)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", d.Types[i].Name, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (td *TypeDoc) toType(docProv jvm.Provenance, rules *Rules) (*jvm.Type, error) {
	name := jvm.ClassName(td.Name)
	prov := docProv
	switch {
	case td.Provenance != "":
		p, ok := jvm.ParseProvenance(td.Provenance)
		if !ok {
			return nil, fmt.Errorf("unknown provenance %q", td.Provenance)
		}
		prov = p
	case docProv == jvm.Application && !rules.Match(name):
		prov = jvm.Library
	}

	kind := jvm.KindClass
	switch td.Kind {
	case "", "class":
	case "interface":
		kind = jvm.KindInterface
	default:
		return nil, fmt.Errorf("unknown kind %q", td.Kind)
	}
	mods, err := jvm.ParseModifiers(td.Modifiers)
	if err != nil {
		return nil, err
	}
	if kind == jvm.KindInterface {
		mods |= jvm.Abstract
	}

	t := jvm.NewType(name, kind, mods, jvm.ClassName(td.Super), prov)
	for _, i := range td.Interfaces {
		t.Interfaces = append(t.Interfaces, jvm.ClassName(i))
	}
	t.Annotations = classNames(td.Annotations)

	for _, fd := range td.Fields {
		f, err := fd.toField()
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fd.Name, err)
		}
		t.AddField(f)
	}
	for _, md := range td.Methods {
		m, err := md.toMethod()
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", md.Name, err)
		}
		if kind == jvm.KindInterface && !m.IsStatic() && !m.IsPrivate() && len(md.Modifiers) == 0 {
			m.Modifiers |= jvm.Public | jvm.Abstract
		}
		t.AddMethod(m)
	}
	return t, nil
}

func (fd *FieldDoc) toField() (*jvm.Field, error) {
	typ, err := jvm.ParseType(fd.Type)
	if err != nil {
		return nil, err
	}
	mods, err := jvm.ParseModifiers(fd.Modifiers)
	if err != nil {
		return nil, err
	}
	f := jvm.NewField(fd.Name, typ, mods)
	f.Annotations = classNames(fd.Annotations)
	return f, nil
}

func (md *MethodDoc) toMethod() (*jvm.Method, error) {
	params := make([]jvm.TypeRef, 0, len(md.Params))
	for _, p := range md.Params {
		typ, err := jvm.ParseType(p)
		if err != nil {
			return nil, err
		}
		params = append(params, typ)
	}
	ret := jvm.Void
	if md.Returns != "" {
		r, err := jvm.ParseType(md.Returns)
		if err != nil {
			return nil, err
		}
		ret = r
	}
	mods, err := jvm.ParseModifiers(md.Modifiers)
	if err != nil {
		return nil, err
	}

	m := jvm.NewMethod(md.Name, params, ret, mods)
	m.Annotations = classNames(md.Annotations)
	for _, r := range md.Refs {
		switch r.Kind {
		case "method":
			m.Refs = append(m.Refs, jvm.MethodRef(r.Owner, r.Name, r.Descriptor))
		case "field":
			m.Refs = append(m.Refs, jvm.FieldRef(r.Owner, r.Name, r.Descriptor))
		default:
			return nil, fmt.Errorf("unknown ref kind %q", r.Kind)
		}
	}
	return m, nil
}

func classNames(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = jvm.ClassName(n)
	}
	return out
}

// FromTypes builds a document describing types, the inverse of Types for
// everything a document can express.
func FromTypes(types []*jvm.Type) *Document {
	doc := &Document{Types: make([]TypeDoc, 0, len(types))}
	for _, t := range types {
		td := TypeDoc{
			Name:        t.Name,
			Modifiers:   t.Modifiers.Strings(),
			Super:       t.Super,
			Interfaces:  t.Interfaces,
			Annotations: t.Annotations,
			Provenance:  t.Provenance.String(),
		}
		if t.IsInterface() {
			td.Kind = "interface"
		}
		for _, f := range t.Fields {
			td.Fields = append(td.Fields, FieldDoc{
				Name:        f.Name,
				Type:        f.Type.String(),
				Modifiers:   f.Modifiers.Strings(),
				Annotations: f.Annotations,
			})
		}
		for _, m := range t.Methods {
			md := MethodDoc{
				Name:        m.Name,
				Modifiers:   m.Modifiers.Strings(),
				Annotations: m.Annotations,
			}
			for _, p := range m.Params {
				md.Params = append(md.Params, p.String())
			}
			if !m.Return.IsVoid() {
				md.Returns = m.Return.String()
			}
			for _, r := range m.Refs {
				kind := "method"
				if r.Kind == jvm.FieldMember {
					kind = "field"
				}
				md.Refs = append(md.Refs, RefDoc{Kind: kind, Owner: r.Owner, Name: r.Name, Descriptor: r.Descriptor})
			}
			td.Methods = append(td.Methods, md)
		}
		doc.Types = append(doc.Types, td)
	}
	return doc
}
