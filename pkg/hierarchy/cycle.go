package hierarchy

import (
	"fmt"
	"strings"

	"github.com/panbanda/libmodel/pkg/jvm"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// checkCycles rejects a supertype graph that is not acyclic. Every supertype
// referenced by types must already be present in types.
func checkCycles(types []*jvm.Type) error {
	ids := make(map[string]int64, len(types))
	names := make([]string, len(types))
	g := simple.NewDirectedGraph()
	for i, t := range types {
		ids[t.Name] = int64(i)
		names[i] = t.Name
		g.AddNode(simple.Node(i))
	}

	for _, t := range types {
		from := ids[t.Name]
		for _, s := range supertypeNames(t) {
			to, ok := ids[s]
			if !ok {
				continue
			}
			// simple graphs panic on self edges
			if to == from {
				return fmt.Errorf("%w: %s extends itself", ErrCycle, t.Name)
			}
			g.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
		}
	}

	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		members := make([]string, 0, len(scc))
		for _, n := range scc {
			members = append(members, names[n.ID()])
		}
		jvm.SortNames(members)
		return fmt.Errorf("%w: %s", ErrCycle, strings.Join(members, " -> "))
	}
	return nil
}

func supertypeNames(t *jvm.Type) []string {
	out := make([]string, 0, len(t.Interfaces)+1)
	if t.Super != "" {
		out = append(out, t.Super)
	}
	return append(out, t.Interfaces...)
}
