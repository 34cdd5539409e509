package parser

import (
	"strings"
	"unicode"

	"github.com/panbanda/libmodel/pkg/jvm"
)

// javaLang lists the java.lang types that source code names without an import.
var javaLang = map[string]bool{
	"Object": true, "String": true, "Class": true, "Enum": true, "Record": true,
	"Throwable": true, "Exception": true, "RuntimeException": true, "Error": true,
	"Runnable": true, "Thread": true, "ThreadLocal": true, "ClassLoader": true,
	"Boolean": true, "Byte": true, "Character": true, "Short": true, "Integer": true,
	"Long": true, "Float": true, "Double": true, "Number": true, "Void": true,
	"Math": true, "System": true, "Runtime": true, "Process": true,
	"StringBuilder": true, "StringBuffer": true, "CharSequence": true,
	"Iterable": true, "Comparable": true, "Cloneable": true, "AutoCloseable": true,
	"Override": true, "Deprecated": true, "SuppressWarnings": true,
	"FunctionalInterface": true, "SafeVarargs": true,
	"IllegalArgumentException": true, "IllegalStateException": true,
	"NullPointerException": true, "UnsupportedOperationException": true,
	"IndexOutOfBoundsException": true, "ArithmeticException": true,
	"ClassCastException": true, "ClassNotFoundException": true,
	"CloneNotSupportedException": true, "InterruptedException": true,
	"ReflectiveOperationException": true, "SecurityException": true,
}

// fileScope resolves source type names of one compilation unit.
type fileScope struct {
	pkg      string
	imports  map[string]string // simple name -> binary name
	top      map[string]string // top-level types of this file
	declared map[string]bool   // every binary name declared in this file
}

func newFileScope() *fileScope {
	return &fileScope{
		imports:  make(map[string]string),
		top:      make(map[string]string),
		declared: make(map[string]bool),
	}
}

func (f *fileScope) qualify(simple string) string {
	if f.pkg == "" {
		return simple
	}
	return f.pkg + "." + simple
}

// lookup resolves a simple type name against member types of the enclosing
// classes, the file's own top-level types, single-type imports and java.lang,
// in that order. It returns "" when none applies.
func (f *fileScope) lookup(simple string, cls *classScope) string {
	for c := cls; c != nil; c = c.outer {
		if c.simple == simple {
			return c.name
		}
		if n := c.name + "$" + simple; f.declared[n] {
			return n
		}
	}
	if b, ok := f.top[simple]; ok {
		return b
	}
	if b, ok := f.imports[simple]; ok {
		return b
	}
	if javaLang[simple] {
		return "java.lang." + simple
	}
	return ""
}

// resolve maps a source type name, simple or qualified, to a binary class
// name as seen from cls. Type variables erase to their bound. Unknown simple
// names are taken to live in the file's package.
func (f *fileScope) resolve(name string, cls *classScope, tparams map[string]string) string {
	name = stripTypeArgs(name)
	head, rest, dotted := strings.Cut(name, ".")
	if !dotted {
		if e, ok := tparams[name]; ok {
			return e
		}
		if e, ok := cls.typeParam(name); ok {
			return e
		}
	}
	if b := f.lookup(head, cls); b != "" {
		if dotted {
			return b + "$" + strings.ReplaceAll(rest, ".", "$")
		}
		return b
	}
	if dotted {
		if startsUpper(head) {
			return f.qualify(head) + "$" + strings.ReplaceAll(rest, ".", "$")
		}
		return binaryName(name)
	}
	return f.qualify(name)
}

// binaryName turns a canonical name such as a.b.Outer.Inner into the binary
// name a.b.Outer$Inner, taking the first capitalized segment as the top-level
// class.
func binaryName(qualified string) string {
	parts := strings.Split(qualified, ".")
	for i, p := range parts {
		if startsUpper(p) {
			return strings.Join(parts[:i+1], ".") + joinNested(parts[i+1:])
		}
	}
	return qualified
}

func joinNested(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return "$" + strings.Join(parts, "$")
}

func startsUpper(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

// stripTypeArgs removes type arguments and whitespace from a type name.
func stripTypeArgs(s string) string {
	var sb strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>':
			depth--
		case depth == 0 && !unicode.IsSpace(r):
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// ownerOf returns the class to look members up in for a value of type t.
func ownerOf(t string) string {
	if t == "" || strings.HasSuffix(t, "[]") {
		return jvm.AnyOwner
	}
	if ref, err := jvm.ParseType(t); err != nil || ref.IsPrimitive() {
		return jvm.AnyOwner
	}
	return t
}
