package jvm

import (
	"slices"
	"strings"
)

// Provenance tells whether a declaration comes from the application or from
// a library or platform archive.
type Provenance int

const (
	Library Provenance = iota
	Application
)

func (p Provenance) String() string {
	if p == Application {
		return "application"
	}
	return "library"
}

// ParseProvenance accepts "application"/"app" and "library"/"lib".
func ParseProvenance(s string) (Provenance, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "application", "app":
		return Application, true
	case "library", "lib":
		return Library, true
	}
	return Library, false
}

// Kind distinguishes classes from interfaces.
type Kind int

const (
	KindClass Kind = iota
	KindInterface
)

func (k Kind) String() string {
	if k == KindInterface {
		return "interface"
	}
	return "class"
}

// Body is a synthesized method body. It is implemented by the statement IR.
type Body interface {
	Validate() error
	String() string
}

// Type is a class or interface declaration.
type Type struct {
	Name        string
	Kind        Kind
	Modifiers   Modifiers
	Super       string
	Interfaces  []string
	Methods     []*Method
	Fields      []*Field
	Annotations []string
	Provenance  Provenance

	// Generated marks types fabricated by the synthesizer.
	Generated bool
	// Phantom marks types referenced as supertypes but missing from the input.
	Phantom bool
}

// NewType creates an empty type.
func NewType(name string, kind Kind, mods Modifiers, super string, prov Provenance) *Type {
	return &Type{Name: name, Kind: kind, Modifiers: mods, Super: super, Provenance: prov}
}

func (t *Type) IsInterface() bool   { return t.Kind == KindInterface }
func (t *Type) IsApplication() bool { return t.Provenance == Application }
func (t *Type) IsLibrary() bool     { return t.Provenance == Library }

// IsAbstract reports whether t cannot be instantiated directly.
func (t *Type) IsAbstract() bool {
	return t.IsInterface() || t.Modifiers.Has(Abstract)
}

// IsConcrete reports whether t is a non-abstract class.
func (t *Type) IsConcrete() bool {
	return !t.IsAbstract()
}

// Ref returns the reference type naming t.
func (t *Type) Ref() TypeRef {
	return Ref(t.Name)
}

// Outer returns the name of the lexically enclosing type, if any.
func (t *Type) Outer() string {
	return OuterName(t.Name)
}

// HasAnnotation reports whether t carries the given annotation type.
func (t *Type) HasAnnotation(name string) bool {
	return slices.Contains(t.Annotations, name)
}

// AddMethod appends m and sets its owner.
func (t *Type) AddMethod(m *Method) *Method {
	m.Owner = t
	t.Methods = append(t.Methods, m)
	return m
}

// AddField appends f and sets its owner.
func (t *Type) AddField(f *Field) *Field {
	f.Owner = t
	t.Fields = append(t.Fields, f)
	return f
}

// Method returns the declared method with the given subsignature.
func (t *Type) Method(subsig string) *Method {
	for _, m := range t.Methods {
		if m.SubSignature() == subsig {
			return m
		}
	}
	return nil
}

// MethodByDescriptor returns the declared method matching name and JVM
// method descriptor.
func (t *Type) MethodByDescriptor(name, desc string) *Method {
	for _, m := range t.Methods {
		if m.Name == name && m.Descriptor() == desc {
			return m
		}
	}
	return nil
}

// MethodsNamed returns every declared overload called name.
func (t *Type) MethodsNamed(name string) []*Method {
	var out []*Method
	for _, m := range t.Methods {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// Field returns the declared field called name.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Constructors returns the declared constructors in declaration order.
func (t *Type) Constructors() []*Method {
	return t.MethodsNamed(ConstructorName)
}

// DefaultConstructor returns the no-argument constructor, if declared.
func (t *Type) DefaultConstructor() *Method {
	for _, m := range t.Constructors() {
		if len(m.Params) == 0 {
			return m
		}
	}
	return nil
}

// StaticInitializer returns <clinit>, if declared.
func (t *Type) StaticInitializer() *Method {
	for _, m := range t.Methods {
		if m.Name == StaticInitName {
			return m
		}
	}
	return nil
}

// Method is a declared method.
type Method struct {
	Name        string
	Params      []TypeRef
	Return      TypeRef
	Modifiers   Modifiers
	Annotations []string
	// Refs are the raw cross-references of the method's instruction stream.
	Refs  []SymbolRef
	Owner *Type
	Body  Body
	// ChainTo replaces the superclass constructor call of a constructor.
	ChainTo *Method
	ID      uint32
}

// NewMethod creates a method without owner.
func NewMethod(name string, params []TypeRef, ret TypeRef, mods Modifiers) *Method {
	return &Method{Name: name, Params: params, Return: ret, Modifiers: mods}
}

func (m *Method) IsConstructor() bool       { return m.Name == ConstructorName }
func (m *Method) IsStaticInitializer() bool { return m.Name == StaticInitName }
func (m *Method) IsStatic() bool            { return m.Modifiers.Has(Static) || m.IsStaticInitializer() }
func (m *Method) IsAbstract() bool          { return m.Modifiers.Has(Abstract) }
func (m *Method) IsNative() bool            { return m.Modifiers.Has(Native) }
func (m *Method) IsPrivate() bool           { return m.Modifiers.Has(Private) }

// IsConcrete reports whether m is expected to carry a body.
func (m *Method) IsConcrete() bool {
	return !m.IsAbstract() && !m.IsNative()
}

// HasAnnotation reports whether m carries the given annotation type.
func (m *Method) HasAnnotation(name string) bool {
	return slices.Contains(m.Annotations, name)
}

// Provenance is inherited from the owner.
func (m *Method) Provenance() Provenance {
	if m.Owner == nil {
		return Library
	}
	return m.Owner.Provenance
}

// SubSignature renders "ret name(p1,p2)".
func (m *Method) SubSignature() string {
	return SubSignature(m.Name, m.Params, m.Return)
}

// Signature renders "<owner: ret name(p1,p2)>".
func (m *Method) Signature() string {
	owner := ""
	if m.Owner != nil {
		owner = m.Owner.Name
	}
	return "<" + owner + ": " + m.SubSignature() + ">"
}

// Descriptor renders the JVM method descriptor.
func (m *Method) Descriptor() string {
	return MethodDescriptor(m.Params, m.Return)
}

// Field is a declared field.
type Field struct {
	Name        string
	Type        TypeRef
	Modifiers   Modifiers
	Annotations []string
	Owner       *Type
	ID          uint32
}

// NewField creates a field without owner.
func NewField(name string, t TypeRef, mods Modifiers) *Field {
	return &Field{Name: name, Type: t, Modifiers: mods}
}

func (f *Field) IsStatic() bool { return f.Modifiers.Has(Static) }

// HasAnnotation reports whether f carries the given annotation type.
func (f *Field) HasAnnotation(name string) bool {
	return slices.Contains(f.Annotations, name)
}

// Provenance is inherited from the owner.
func (f *Field) Provenance() Provenance {
	if f.Owner == nil {
		return Library
	}
	return f.Owner.Provenance
}

// Signature renders "<owner: type name>".
func (f *Field) Signature() string {
	owner := ""
	if f.Owner != nil {
		owner = f.Owner.Name
	}
	return "<" + owner + ": " + f.Type.String() + " " + f.Name + ">"
}
