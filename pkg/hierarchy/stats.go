package hierarchy

// Stats counts the universe before and after cleanup. The numbers are for
// reporting only. Taken right after cleanup, Initial + Added - Removed equals
// Final; later calls also count synthesized members.
type Stats struct {
	ApplicationTypes int `json:"application_types"`
	LibraryTypes     int `json:"library_types"`

	InitialLibraryMethods int `json:"initial_library_methods"`
	AddedLibraryMethods   int `json:"added_library_methods"`
	RemovedLibraryMethods int `json:"removed_library_methods"`
	FinalLibraryMethods   int `json:"final_library_methods"`

	InitialLibraryFields int `json:"initial_library_fields"`
	RemovedLibraryFields int `json:"removed_library_fields"`
	FinalLibraryFields   int `json:"final_library_fields"`
}

// Stats returns the current counts.
func (h *Hierarchy) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.statsLocked()
}

func (h *Hierarchy) statsLocked() Stats {
	s := h.stats
	for _, t := range h.order {
		if t.IsApplication() {
			s.ApplicationTypes++
		} else {
			s.LibraryTypes++
		}
	}
	s.FinalLibraryMethods = h.countLibraryMethods()
	s.FinalLibraryFields = h.countLibraryFields()
	return s
}

func (h *Hierarchy) countLibraryMethods() int {
	n := 0
	for _, t := range h.order {
		if t.IsLibrary() {
			n += len(t.Methods)
		}
	}
	return n
}

func (h *Hierarchy) countLibraryFields() int {
	n := 0
	for _, t := range h.order {
		if t.IsLibrary() {
			n += len(t.Fields)
		}
	}
	return n
}
