package synth

import (
	"slices"

	log "github.com/sirupsen/logrus"

	"github.com/panbanda/libmodel/pkg/jvm"
)

// Markers creates one marker interface per annotated entry point. The marker
// declares an abstract constructor and abstract copies of the entry
// point's externally invoked instance methods. The entry-point class
// implements it, and its constructors chain to the marker constructor
// instead of the superclass one.
func (s *Synthesizer) Markers() ([]*jvm.Type, Stats, error) {
	var (
		out []*jvm.Type
		st  Stats
	)
	for _, e := range s.in.EntryPoints.Annotated() {
		if s.markers[e.Class] != nil {
			continue
		}
		name := freeName(s.h, s.crafted, e.Class.Name, MarkerSuffix)
		s.crafted[name] = true

		mk := jvm.NewType(name, jvm.KindInterface, jvm.Public|jvm.Abstract, jvm.ObjectClass, jvm.Library)
		init := mk.AddMethod(jvm.NewMethod(jvm.ConstructorName, nil, jvm.Void, jvm.Public|jvm.Abstract))
		for _, m := range e.Methods {
			if m.IsStatic() || m.IsConstructor() || mk.Method(m.SubSignature()) != nil {
				continue
			}
			mk.AddMethod(jvm.NewMethod(m.Name, slices.Clone(m.Params), m.Return, jvm.Public|jvm.Abstract))
		}
		if err := s.h.AddGeneratedInterface(mk, e.Class); err != nil {
			return nil, st, err
		}
		for _, ctor := range e.Class.Constructors() {
			ctor.ChainTo = init
		}

		s.markers[e.Class] = mk
		out = append(out, mk)
		st.MarkerInterfaces++
		st.Classes++
		st.Methods += len(mk.Methods)
		log.WithFields(log.Fields{"class": e.Class.Name, "marker": mk.Name}).Debug("created entry-point marker")
	}
	return out, st, nil
}
