package reachability

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/panbanda/libmodel/pkg/hierarchy"
	"github.com/panbanda/libmodel/pkg/jvm"
)

// Sets are the reachability sets of one run, as bitmaps of member IDs.
// They are computed once and not mutated afterwards.
type Sets struct {
	ReferencedLibraryMethods     *roaring.Bitmap
	ReferencedLibraryFields      *roaring.Bitmap
	AnnotatedApplicationMethods  *roaring.Bitmap
	OverriddenApplicationMethods *roaring.Bitmap

	h *hierarchy.Hierarchy
}

// Compute scans every application method's cross-references and records the
// library members they resolve to. annotated lists application methods
// designated library-callable by configuration.
func Compute(h *hierarchy.Hierarchy, r *Resolver, annotated []*jvm.Method) *Sets {
	s := &Sets{
		ReferencedLibraryMethods:     roaring.New(),
		ReferencedLibraryFields:      roaring.New(),
		AnnotatedApplicationMethods:  roaring.New(),
		OverriddenApplicationMethods: roaring.New(),
		h:                            h,
	}

	for _, t := range h.ApplicationTypes() {
		for _, m := range t.Methods {
			for _, ref := range m.Refs {
				if ref.Kind == jvm.FieldMember {
					for _, f := range r.ResolveField(ref) {
						if f.Provenance() == jvm.Library {
							s.ReferencedLibraryFields.Add(f.ID)
						}
					}
					continue
				}
				for _, target := range r.ResolveMethod(ref) {
					if target.Provenance() == jvm.Library {
						s.ReferencedLibraryMethods.Add(target.ID)
					}
				}
			}
		}
	}

	for _, m := range annotated {
		if m.Provenance() == jvm.Application {
			s.AnnotatedApplicationMethods.Add(m.ID)
		}
	}
	for _, o := range h.LibrarySuperMethodsOfApplicationMethods() {
		s.OverriddenApplicationMethods.Add(o.Application.ID)
	}
	return s
}

// ContainsMethod reports whether m is a referenced library method.
func (s *Sets) ContainsMethod(m *jvm.Method) bool {
	return s.ReferencedLibraryMethods.Contains(m.ID)
}

// ContainsField reports whether f is a referenced library field.
func (s *Sets) ContainsField(f *jvm.Field) bool {
	return s.ReferencedLibraryFields.Contains(f.ID)
}

// IsAnnotated reports whether m was designated library-callable.
func (s *Sets) IsAnnotated(m *jvm.Method) bool {
	return s.AnnotatedApplicationMethods.Contains(m.ID)
}

// IsOverridden reports whether m overrides a library method.
func (s *Sets) IsOverridden(m *jvm.Method) bool {
	return s.OverriddenApplicationMethods.Contains(m.ID)
}

// Methods returns the methods whose IDs are in b, in ID order.
func (s *Sets) Methods(b *roaring.Bitmap) []*jvm.Method {
	out := make([]*jvm.Method, 0, b.GetCardinality())
	it := b.Iterator()
	for it.HasNext() {
		if m := s.h.MethodByID(it.Next()); m != nil {
			out = append(out, m)
		}
	}
	return out
}

// Fields returns the fields whose IDs are in b, in ID order.
func (s *Sets) Fields(b *roaring.Bitmap) []*jvm.Field {
	out := make([]*jvm.Field, 0, b.GetCardinality())
	it := b.Iterator()
	for it.HasNext() {
		if f := s.h.FieldByID(it.Next()); f != nil {
			out = append(out, f)
		}
	}
	return out
}

// Summary counts the sets for reporting.
type Summary struct {
	ReferencedLibraryMethods     uint64 `json:"referenced_library_methods"`
	ReferencedLibraryFields      uint64 `json:"referenced_library_fields"`
	AnnotatedApplicationMethods  uint64 `json:"annotated_application_methods"`
	OverriddenApplicationMethods uint64 `json:"overridden_application_methods"`
}

// Summary returns the set cardinalities.
func (s *Sets) Summary() Summary {
	return Summary{
		ReferencedLibraryMethods:     s.ReferencedLibraryMethods.GetCardinality(),
		ReferencedLibraryFields:      s.ReferencedLibraryFields.GetCardinality(),
		AnnotatedApplicationMethods:  s.AnnotatedApplicationMethods.GetCardinality(),
		OverriddenApplicationMethods: s.OverriddenApplicationMethods.GetCardinality(),
	}
}
