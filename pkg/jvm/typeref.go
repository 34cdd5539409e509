// Package jvm models the merged application/library type universe: types,
// methods, fields, value types and cross-reference triples.
package jvm

import (
	"fmt"
	"strings"
)

// Well-known names.
const (
	ObjectClass    = "java.lang.Object"
	StringClass    = "java.lang.String"
	ClassClass     = "java.lang.Class"
	ThrowableClass = "java.lang.Throwable"
	EnumClass      = "java.lang.Enum"
	FinalizerClass = "java.lang.ref.Finalizer"

	ConstructorName = "<init>"
	StaticInitName  = "<clinit>"
)

var descriptorCodes = map[string]byte{
	"boolean": 'Z',
	"byte":    'B',
	"char":    'C',
	"short":   'S',
	"int":     'I',
	"long":    'J',
	"float":   'F',
	"double":  'D',
	"void":    'V',
}

var descriptorNames = map[byte]string{
	'Z': "boolean",
	'B': "byte",
	'C': "char",
	'S': "short",
	'I': "int",
	'J': "long",
	'F': "float",
	'D': "double",
	'V': "void",
}

// TypeRef is a value type: a primitive, void, a class reference or an array
// of any of those.
type TypeRef struct {
	Name string
	Dims int
}

// Common value types.
var (
	Void    = TypeRef{Name: "void"}
	Boolean = TypeRef{Name: "boolean"}
	Int     = TypeRef{Name: "int"}
	Object  = TypeRef{Name: ObjectClass}
	String  = TypeRef{Name: StringClass}
)

// Ref returns the class reference type for name.
func Ref(name string) TypeRef {
	return TypeRef{Name: name}
}

// ArrayOf returns t with dims extra array dimensions.
func ArrayOf(t TypeRef, dims int) TypeRef {
	return TypeRef{Name: t.Name, Dims: t.Dims + dims}
}

func isPrimitiveName(name string) bool {
	_, ok := descriptorCodes[name]
	return ok
}

// IsVoid reports whether t is the void type.
func (t TypeRef) IsVoid() bool {
	return t.Dims == 0 && t.Name == "void"
}

// IsPrimitive reports whether t is a non-void primitive.
func (t TypeRef) IsPrimitive() bool {
	return t.Dims == 0 && t.Name != "void" && isPrimitiveName(t.Name)
}

// IsReference reports whether t is a class reference or an array.
func (t TypeRef) IsReference() bool {
	if t.Name == "" {
		return false
	}
	return t.Dims > 0 || !isPrimitiveName(t.Name)
}

// IsArray reports whether t is an array type.
func (t TypeRef) IsArray() bool {
	return t.Dims > 0
}

// IsClass reports whether t names a class or interface (not an array).
func (t TypeRef) IsClass() bool {
	return t.Dims == 0 && t.IsReference()
}

// Element strips one array dimension.
func (t TypeRef) Element() TypeRef {
	if t.Dims == 0 {
		return t
	}
	return TypeRef{Name: t.Name, Dims: t.Dims - 1}
}

// String renders t in source form, e.g. "java.lang.String[]".
func (t TypeRef) String() string {
	return t.Name + strings.Repeat("[]", t.Dims)
}

// Descriptor renders t as a JVM field descriptor, e.g. "[Ljava/lang/String;".
func (t TypeRef) Descriptor() string {
	var sb strings.Builder
	for range t.Dims {
		sb.WriteByte('[')
	}
	if code, ok := descriptorCodes[t.Name]; ok {
		sb.WriteByte(code)
	} else {
		sb.WriteByte('L')
		sb.WriteString(strings.ReplaceAll(t.Name, ".", "/"))
		sb.WriteByte(';')
	}
	return sb.String()
}

// ParseType parses a type in source form ("int", "a.b.C[][]").
func ParseType(s string) (TypeRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TypeRef{}, fmt.Errorf("empty type")
	}
	dims := 0
	for strings.HasSuffix(s, "[]") {
		dims++
		s = strings.TrimSpace(strings.TrimSuffix(s, "[]"))
	}
	if s == "" || strings.ContainsAny(s, "[]();<> ") {
		return TypeRef{}, fmt.Errorf("malformed type %q", s)
	}
	if s == "void" && dims > 0 {
		return TypeRef{}, fmt.Errorf("array of void")
	}
	return TypeRef{Name: ClassName(s), Dims: dims}, nil
}

// MustParseType is ParseType for literals known to be valid.
func MustParseType(s string) TypeRef {
	t, err := ParseType(s)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseDescriptor parses a single JVM field descriptor.
func ParseDescriptor(s string) (TypeRef, error) {
	t, rest, err := parseDescriptorPrefix(s)
	if err != nil {
		return TypeRef{}, err
	}
	if rest != "" {
		return TypeRef{}, fmt.Errorf("trailing data in descriptor %q", s)
	}
	return t, nil
}

func parseDescriptorPrefix(s string) (TypeRef, string, error) {
	dims := 0
	for strings.HasPrefix(s, "[") {
		dims++
		s = s[1:]
	}
	if s == "" {
		return TypeRef{}, "", fmt.Errorf("truncated descriptor")
	}
	if s[0] == 'L' {
		end := strings.IndexByte(s, ';')
		if end < 2 {
			return TypeRef{}, "", fmt.Errorf("unterminated class descriptor %q", s)
		}
		return TypeRef{Name: ClassName(s[1:end]), Dims: dims}, s[end+1:], nil
	}
	name, ok := descriptorNames[s[0]]
	if !ok {
		return TypeRef{}, "", fmt.Errorf("unknown descriptor code %q", s[0])
	}
	if name == "void" && dims > 0 {
		return TypeRef{}, "", fmt.Errorf("array of void")
	}
	return TypeRef{Name: name, Dims: dims}, s[1:], nil
}

// ParseMethodDescriptor parses "(ILjava/lang/String;)V".
func ParseMethodDescriptor(s string) ([]TypeRef, TypeRef, error) {
	if !strings.HasPrefix(s, "(") {
		return nil, TypeRef{}, fmt.Errorf("method descriptor %q must start with '('", s)
	}
	end := strings.IndexByte(s, ')')
	if end < 0 {
		return nil, TypeRef{}, fmt.Errorf("method descriptor %q missing ')'", s)
	}
	var params []TypeRef
	rest := s[1:end]
	for rest != "" {
		t, tail, err := parseDescriptorPrefix(rest)
		if err != nil {
			return nil, TypeRef{}, fmt.Errorf("method descriptor %q: %w", s, err)
		}
		if t.IsVoid() {
			return nil, TypeRef{}, fmt.Errorf("method descriptor %q: void parameter", s)
		}
		params = append(params, t)
		rest = tail
	}
	ret, err := ParseDescriptor(s[end+1:])
	if err != nil {
		return nil, TypeRef{}, fmt.Errorf("method descriptor %q: %w", s, err)
	}
	return params, ret, nil
}

// MethodDescriptor renders params and ret as a JVM method descriptor.
func MethodDescriptor(params []TypeRef, ret TypeRef) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, p := range params {
		sb.WriteString(p.Descriptor())
	}
	sb.WriteByte(')')
	sb.WriteString(ret.Descriptor())
	return sb.String()
}

// ClassName converts an internal name ("java/util/List") to a binary name
// ("java.util.List"). Binary names pass through unchanged.
func ClassName(s string) string {
	return strings.ReplaceAll(s, "/", ".")
}

// PackageOf returns the package part of a binary class name.
func PackageOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return ""
}

// OuterName returns the lexically enclosing class of a nested class name,
// or "" for top-level classes.
func OuterName(name string) string {
	i := strings.LastIndexByte(name, '$')
	if i <= 0 || i <= strings.LastIndexByte(name, '.') {
		return ""
	}
	return name[:i]
}
