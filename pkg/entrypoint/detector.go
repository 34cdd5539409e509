package entrypoint

import (
	"cmp"
	"slices"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/panbanda/libmodel/pkg/diag"
	"github.com/panbanda/libmodel/pkg/hierarchy"
	"github.com/panbanda/libmodel/pkg/jvm"
)

// Tag records how an entry point was detected.
type Tag int

const (
	TagNone Tag = iota
	TagSubtyping
	TagAnnotation
)

func (t Tag) String() string {
	switch t {
	case TagSubtyping:
		return "subtyping"
	case TagAnnotation:
		return "annotation"
	default:
		return "none"
	}
}

// MarshalText renders the tag by name.
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Entry is one application entry-point class and the library contract
// through which the platform invokes it.
type Entry struct {
	Class    *jvm.Type
	Contract *jvm.Type
	Tag      Tag
	// Methods are the externally invoked methods of an annotated entry point.
	Methods []*jvm.Method
}

// Provider is a set of application methods producing objects of Type.
type Provider struct {
	Type     *jvm.Type
	Methods  []*jvm.Method
	Priority int
}

// CreateObject lists the fields of Class the framework fills in.
type CreateObject struct {
	Class  *jvm.Type
	Fields []*jvm.Field
}

// Map is the Entry-Point Map. Entries are ordered with jvm.CompareNames,
// providers by descending priority.
type Map struct {
	Entries          []Entry
	AnnotatedMethods []*jvm.Method
	Providers        []Provider
	CreateObjects    []CreateObject
	MainClass        *jvm.Type
}

// Entry returns the entry for class, or nil.
func (m *Map) Entry(class *jvm.Type) *Entry {
	for i := range m.Entries {
		if m.Entries[i].Class == class {
			return &m.Entries[i]
		}
	}
	return nil
}

// IsEntryClass reports whether class is a detected entry-point class.
func (m *Map) IsEntryClass(class *jvm.Type) bool {
	return m != nil && m.Entry(class) != nil
}

// Annotated returns the entries detected through annotations.
func (m *Map) Annotated() []Entry {
	var out []Entry
	for _, e := range m.Entries {
		if e.Tag == TagAnnotation {
			out = append(out, e)
		}
	}
	return out
}

// Detector is selected once per run. Its Kind decides which detection
// strategy runs; all strategies produce the same Map shape.
type Detector struct {
	Kind      Framework
	Settings  Selection
	MainClass string
}

// NewDetector selects the settings for kind.
func NewDetector(kind Framework, s Settings, mainClass string) Detector {
	return Detector{Kind: kind, Settings: s.For(kind), MainClass: jvm.ClassName(mainClass)}
}

// Detect builds the Entry-Point Map. Configured types missing from the
// hierarchy are recorded in diags and skipped.
func (d Detector) Detect(h *hierarchy.Hierarchy, diags *diag.Collector) *Map {
	m := &Map{}
	switch d.Kind {
	case Android:
		m.Entries = d.subtyping(h, diags, "android.support.")
	case Spring:
		d.annotations(h, diags, m)
	default:
		m.Entries = d.subtyping(h, diags, "")
	}
	if d.MainClass != "" {
		if t := h.Type(d.MainClass); t != nil && t.IsApplication() {
			m.MainClass = t
		} else {
			diags.Add(diag.InputInconsistency, d.MainClass, "", "main class is not an application class")
		}
	}

	slices.SortStableFunc(m.Entries, func(a, b Entry) int {
		return jvm.CompareNames(a.Class.Name, b.Class.Name)
	})
	for _, e := range m.Entries {
		log.WithFields(log.Fields{"class": e.Class.Name, "contract": e.Contract.Name, "tag": e.Tag}).
			Debug("detected entry point class")
	}
	return m
}

// subtyping makes every application subtype of a configured class an entry
// point with that class as contract. The first configured contract wins.
func (d Detector) subtyping(h *hierarchy.Hierarchy, diags *diag.Collector, skipPrefix string) []Entry {
	var out []Entry
	seen := make(map[*jvm.Type]bool)
	for _, name := range d.Settings.Classes {
		contract := h.Type(name)
		if contract == nil {
			diags.Add(diag.InputInconsistency, name, "", "configured entry-point contract not in universe")
			continue
		}
		for _, c := range h.SubtypesOf(contract) {
			if !c.IsApplication() || seen[c] {
				continue
			}
			if skipPrefix != "" && strings.HasPrefix(jvm.PackageOf(c.Name)+".", skipPrefix) {
				continue
			}
			seen[c] = true
			out = append(out, Entry{Class: c, Contract: contract, Tag: TagSubtyping})
		}
	}
	return out
}

// annotations scans application types for configured class, method, provider
// and create-object annotations.
func (d Detector) annotations(h *hierarchy.Hierarchy, diags *diag.Collector, m *Map) {
	providers := make(map[*jvm.Type][]*jvm.Method)
	priorities := make(map[string]int)

	for _, c := range h.ApplicationTypes() {
		if ann, ok := firstConfigured(c.Annotations, d.Settings.Classes); ok {
			if contract := h.Type(ann); contract != nil {
				m.Entries = append(m.Entries, Entry{
					Class:    c,
					Contract: contract,
					Tag:      TagAnnotation,
					Methods:  annotatedMethods(c, d.Settings.Methods),
				})
			} else {
				diags.Add(diag.InputInconsistency, c.Name, "", "entry-point annotation "+ann+" not in universe")
			}
		}

		for _, meth := range c.Methods {
			if _, ok := firstConfigured(meth.Annotations, d.Settings.Methods); ok {
				m.AnnotatedMethods = append(m.AnnotatedMethods, meth)
			}
			if _, ok := firstConfigured(meth.Annotations, d.Settings.Providers); !ok {
				continue
			}
			ret := h.Type(meth.Return.Name)
			if !meth.Return.IsClass() || ret == nil {
				diags.Add(diag.InputInconsistency, c.Name, meth.SubSignature(), "object provider returns an unknown type")
				continue
			}
			providers[ret] = append(providers[ret], meth)
			p := priorities[ret.Name]
			for _, param := range meth.Params {
				priorities[param.Name] = p + 1
			}
		}

		var fields []*jvm.Field
		for _, f := range c.Fields {
			if _, ok := firstConfigured(f.Annotations, d.Settings.CreateObjects); ok {
				fields = append(fields, f)
			}
		}
		if len(fields) > 0 {
			m.CreateObjects = append(m.CreateObjects, CreateObject{Class: c, Fields: fields})
		}
	}

	for t, ms := range providers {
		m.Providers = append(m.Providers, Provider{Type: t, Methods: ms, Priority: priorities[t.Name]})
	}
	slices.SortFunc(m.Providers, func(a, b Provider) int {
		return cmp.Or(cmp.Compare(b.Priority, a.Priority), jvm.CompareNames(a.Type.Name, b.Type.Name))
	})
}

func annotatedMethods(c *jvm.Type, annotations []string) []*jvm.Method {
	var out []*jvm.Method
	for _, m := range c.Methods {
		if _, ok := firstConfigured(m.Annotations, annotations); ok {
			out = append(out, m)
		}
	}
	return out
}

func firstConfigured(present, configured []string) (string, bool) {
	for _, a := range present {
		if slices.Contains(configured, a) {
			return a, true
		}
	}
	return "", false
}
