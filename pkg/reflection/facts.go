// Package reflection reads reflection facts (TamiFlex refl.log) and dynamic
// class lists, and resolves them against the hierarchy.
package reflection

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/panbanda/libmodel/pkg/diag"
	"github.com/panbanda/libmodel/pkg/hierarchy"
	"github.com/panbanda/libmodel/pkg/jvm"
)

// TamiFlex entry kinds.
const (
	KindMethodInvoke           = "Method.invoke"
	KindClassNewInstance       = "Class.newInstance"
	KindConstructorNewInstance = "Constructor.newInstance"
	KindArrayNewInstance       = "Array.newInstance"
	KindClassForName           = "Class.forName"
)

// Facts are the raw reflection facts: signatures and names as logged.
type Facts struct {
	MethodInvoke           []string `json:"method_invoke,omitempty"`
	ClassNewInstance       []string `json:"class_new_instance,omitempty"`
	ConstructorNewInstance []string `json:"constructor_new_instance,omitempty"`
	ArrayNewInstance       []string `json:"array_new_instance,omitempty"`
	ClassForName           []string `json:"class_for_name,omitempty"`
}

// Empty reports whether no fact is recorded.
func (f Facts) Empty() bool {
	return len(f.MethodInvoke) == 0 && len(f.ClassNewInstance) == 0 &&
		len(f.ConstructorNewInstance) == 0 && len(f.ArrayNewInstance) == 0 &&
		len(f.ClassForName) == 0
}

// ParseTamiFlex reads "Kind;Target;Caller;Line;..." entries. Kinds other than
// the five modeled ones are ignored. Every list is deduplicated and sorted.
func ParseTamiFlex(r io.Reader) (Facts, error) {
	var f Facts
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		kind, rest, ok := strings.Cut(text, ";")
		if !ok {
			return Facts{}, fmt.Errorf("refl.log line %d: missing ';'", line)
		}
		target, _, _ := strings.Cut(rest, ";")
		target = strings.TrimSpace(target)
		if target == "" {
			return Facts{}, fmt.Errorf("refl.log line %d: empty target", line)
		}
		switch kind {
		case KindMethodInvoke:
			f.MethodInvoke = append(f.MethodInvoke, target)
		case KindClassNewInstance:
			f.ClassNewInstance = append(f.ClassNewInstance, target)
		case KindConstructorNewInstance:
			f.ConstructorNewInstance = append(f.ConstructorNewInstance, target)
		case KindArrayNewInstance:
			f.ArrayNewInstance = append(f.ArrayNewInstance, target)
		case KindClassForName:
			f.ClassForName = append(f.ClassForName, target)
		}
	}
	if err := sc.Err(); err != nil {
		return Facts{}, fmt.Errorf("reading refl.log: %w", err)
	}
	for _, l := range []*[]string{&f.MethodInvoke, &f.ClassNewInstance, &f.ConstructorNewInstance, &f.ArrayNewInstance, &f.ClassForName} {
		slices.Sort(*l)
		*l = slices.Compact(*l)
	}
	return f, nil
}

// LoadTamiFlex parses the refl.log at path.
func LoadTamiFlex(path string) (Facts, error) {
	file, err := os.Open(path)
	if err != nil {
		return Facts{}, err
	}
	defer file.Close()
	return ParseTamiFlex(file)
}

// ParseDynamicClasses reads one class name per line. Blank lines and lines
// starting with '#' are skipped.
func ParseDynamicClasses(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		name := strings.TrimSpace(sc.Text())
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		out = append(out, jvm.ClassName(name))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading dynamic classes: %w", err)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// LoadDynamicClasses parses the dynamic classes file at path.
func LoadDynamicClasses(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ParseDynamicClasses(file)
}

// Resolved are the facts that name application members of the universe.
type Resolved struct {
	Methods          []*jvm.Method
	NewInstance      []*jvm.Type
	Constructors     []*jvm.Method
	Arrays           []jvm.TypeRef
	ForName          []*jvm.Type
	DynamicInstances []*jvm.Type
}

// Resolve keeps the facts that name application methods, classes and array
// types. Facts about library members are dropped; unknown names are recorded
// in diags.
func Resolve(f Facts, dynamic []string, h *hierarchy.Hierarchy, diags *diag.Collector) Resolved {
	var r Resolved
	for _, sig := range f.MethodInvoke {
		if m := applicationMethod(sig, h, diags); m != nil {
			r.Methods = append(r.Methods, m)
		}
	}
	for _, sig := range f.ConstructorNewInstance {
		if m := applicationMethod(sig, h, diags); m != nil && m.IsConstructor() {
			r.Constructors = append(r.Constructors, m)
		}
	}
	r.NewInstance = applicationClasses(f.ClassNewInstance, h, diags)
	r.ForName = applicationClasses(f.ClassForName, h, diags)
	r.DynamicInstances = applicationClasses(dynamic, h, diags)

	for _, s := range f.ArrayNewInstance {
		t, err := jvm.ParseType(s)
		if err != nil || !t.IsArray() {
			diags.Addf(diag.InputInconsistency, s, "", "malformed array type in reflection facts")
			continue
		}
		if h.IsApplicationClass(t.Name) {
			r.Arrays = append(r.Arrays, t)
		}
	}
	return r
}

func applicationMethod(sig string, h *hierarchy.Hierarchy, diags *diag.Collector) *jvm.Method {
	m := h.LookupMethod(sig)
	if m == nil {
		diags.Add(diag.InputInconsistency, sig, "", "reflectively used method not in universe")
		return nil
	}
	if m.Provenance() != jvm.Application {
		return nil
	}
	return m
}

func applicationClasses(names []string, h *hierarchy.Hierarchy, diags *diag.Collector) []*jvm.Type {
	var out []*jvm.Type
	for _, name := range names {
		t := h.Type(jvm.ClassName(name))
		switch {
		case t == nil:
			diags.Add(diag.InputInconsistency, name, "", "reflectively used class not in universe")
		case t.IsApplication():
			out = append(out, t)
		}
	}
	jvm.SortTypes(out)
	return slices.Compact(out)
}
