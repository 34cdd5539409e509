package jvm

import (
	"fmt"
	"slices"
	"strings"
)

// SubSignature renders "ret name(p1,p2)".
func SubSignature(name string, params []TypeRef, ret TypeRef) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}
	return ret.String() + " " + name + "(" + strings.Join(parts, ",") + ")"
}

// MethodSig is a parsed "<owner: ret name(params)>" signature.
type MethodSig struct {
	Owner  string
	Name   string
	Params []TypeRef
	Return TypeRef
}

// SubSignature renders the parsed signature without its owner.
func (s MethodSig) SubSignature() string {
	return SubSignature(s.Name, s.Params, s.Return)
}

func (s MethodSig) String() string {
	return "<" + s.Owner + ": " + s.SubSignature() + ">"
}

// FieldSig is a parsed "<owner: type name>" signature.
type FieldSig struct {
	Owner string
	Type  TypeRef
	Name  string
}

func (s FieldSig) String() string {
	return "<" + s.Owner + ": " + s.Type.String() + " " + s.Name + ">"
}

func splitSignature(sig string) (owner, rest string, err error) {
	sig = strings.TrimSpace(sig)
	if !strings.HasPrefix(sig, "<") || !strings.HasSuffix(sig, ">") {
		return "", "", fmt.Errorf("signature %q must be enclosed in <>", sig)
	}
	inner := sig[1 : len(sig)-1]
	owner, rest, ok := strings.Cut(inner, ":")
	if !ok {
		return "", "", fmt.Errorf("signature %q missing ':'", sig)
	}
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", "", fmt.Errorf("signature %q missing owner", sig)
	}
	return ClassName(owner), strings.TrimSpace(rest), nil
}

// ParseMethodSignature parses "<a.B: void foo(int,java.lang.String)>".
func ParseMethodSignature(sig string) (MethodSig, error) {
	owner, rest, err := splitSignature(sig)
	if err != nil {
		return MethodSig{}, err
	}
	open := strings.IndexByte(rest, '(')
	if open < 0 || !strings.HasSuffix(rest, ")") {
		return MethodSig{}, fmt.Errorf("method signature %q missing parameter list", sig)
	}
	head := strings.Fields(rest[:open])
	if len(head) != 2 {
		return MethodSig{}, fmt.Errorf("method signature %q: expected '<ret> <name>'", sig)
	}
	ret, err := ParseType(head[0])
	if err != nil {
		return MethodSig{}, fmt.Errorf("method signature %q: %w", sig, err)
	}
	out := MethodSig{Owner: owner, Name: head[1], Return: ret}
	if list := strings.TrimSpace(rest[open+1 : len(rest)-1]); list != "" {
		for p := range strings.SplitSeq(list, ",") {
			t, err := ParseType(p)
			if err != nil {
				return MethodSig{}, fmt.Errorf("method signature %q: %w", sig, err)
			}
			out.Params = append(out.Params, t)
		}
	}
	return out, nil
}

// ParseFieldSignature parses "<a.B: java.lang.String name>".
func ParseFieldSignature(sig string) (FieldSig, error) {
	owner, rest, err := splitSignature(sig)
	if err != nil {
		return FieldSig{}, err
	}
	parts := strings.Fields(rest)
	if len(parts) != 2 {
		return FieldSig{}, fmt.Errorf("field signature %q: expected '<type> <name>'", sig)
	}
	t, err := ParseType(parts[0])
	if err != nil {
		return FieldSig{}, fmt.Errorf("field signature %q: %w", sig, err)
	}
	return FieldSig{Owner: owner, Type: t, Name: parts[1]}, nil
}

// MemberKind tells what a cross-reference points at.
type MemberKind int

const (
	MethodMember MemberKind = iota
	FieldMember
)

func (k MemberKind) String() string {
	if k == FieldMember {
		return "field"
	}
	return "method"
}

// AnyOwner is the owner of a cross-reference whose receiver type is unknown.
const AnyOwner = "*"

// SymbolRef is a cross-reference triple taken from an application method's
// instruction stream. An empty Descriptor matches every overload (methods) or
// every field type (fields).
type SymbolRef struct {
	Kind       MemberKind
	Owner      string
	Name       string
	Descriptor string
}

// MethodRef builds a method cross-reference.
func MethodRef(owner, name, desc string) SymbolRef {
	return SymbolRef{Kind: MethodMember, Owner: ClassName(owner), Name: name, Descriptor: desc}
}

// FieldRef builds a field cross-reference.
func FieldRef(owner, name, desc string) SymbolRef {
	return SymbolRef{Kind: FieldMember, Owner: ClassName(owner), Name: name, Descriptor: desc}
}

func (r SymbolRef) String() string {
	return r.Kind.String() + " " + r.Owner + "." + r.Name + r.Descriptor
}

// CompareNames orders names so that a name which is a prefix of another
// (an enclosing type before its nested types) comes first, and otherwise
// lexicographically.
func CompareNames(a, b string) int {
	if a == b {
		return 0
	}
	if strings.HasPrefix(a, b) {
		return 1
	}
	if strings.HasPrefix(b, a) {
		return -1
	}
	return strings.Compare(a, b)
}

// SortTypes orders types with CompareNames.
func SortTypes(types []*Type) {
	slices.SortStableFunc(types, func(a, b *Type) int {
		return CompareNames(a.Name, b.Name)
	})
}

// SortNames orders names with CompareNames.
func SortNames(names []string) {
	slices.SortStableFunc(names, CompareNames)
}
