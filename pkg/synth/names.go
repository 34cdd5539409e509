package synth

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/panbanda/libmodel/pkg/hierarchy"
	"github.com/panbanda/libmodel/pkg/jvm"
)

// Names of the synthesized library root.
const (
	AbstractLibraryClass = "libmodel.AbstractLibrary"
	LibraryClass         = "libmodel.Library"

	DoItAllName    = "doItAll"
	InstanceField  = "instance"
	GuardField     = "guard"
	FinalizeField  = "finalizePointsTo"
	LPTField       = "lpt"
	LPTFieldPrefix = "lpt_"
	MainName       = "main"

	// DefaultCraftedSuffix names concrete stand-ins for abstract library types.
	DefaultCraftedSuffix = "__Model"
	// MarkerSuffix names the marker interfaces of annotated entry points.
	MarkerSuffix = "__Entry"
)

var mainParams = []jvm.TypeRef{jvm.ArrayOf(jvm.String, 1)}

// freeName returns base+suffix, or a hashed variant when that name is taken
// in h or already handed out in taken.
func freeName(h *hierarchy.Hierarchy, taken map[string]bool, base, suffix string) string {
	free := func(n string) bool { return h.Type(n) == nil && !taken[n] }
	name := base + suffix
	if free(name) {
		return name
	}
	hash := strconv.FormatUint(xxhash.Sum64String(base), 16)
	name = base + suffix + "_" + hash[:min(8, len(hash))]
	for i := 2; !free(name); i++ {
		name = base + suffix + "_" + hash[:min(8, len(hash))] + "_" + strconv.Itoa(i)
	}
	return name
}

// mangle turns a type into a field name fragment that depends on the type
// alone. Dotted names of letter-led segments map exactly ("java.util.List[]"
// becomes "java_util_List_1d"); any other name could meet an exact one or
// another escaped one, so it carries the xxhash of its own text.
func mangle(t jvm.TypeRef) string {
	var sb strings.Builder
	exact := true
	segStart := true
	for _, r := range t.Name {
		switch {
		case r == '.':
			sb.WriteByte('_')
			if segStart {
				exact = false
			}
			segStart = true
			continue
		case r == '$' || r == '_':
			sb.WriteByte('_')
			exact = false
		case segStart && !unicode.IsLetter(r):
			sb.WriteRune(r)
			exact = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
			exact = false
		}
		segStart = false
	}
	if segStart {
		exact = false
	}
	if t.Dims > 0 {
		sb.WriteString("_" + strconv.Itoa(t.Dims) + "d")
	}
	if !exact {
		hash := strconv.FormatUint(xxhash.Sum64String(t.String()), 16)
		sb.WriteString("_" + hash[:min(8, len(hash))])
	}
	return sb.String()
}
