package reachability

import (
	"testing"

	"github.com/panbanda/libmodel/pkg/diag"
	"github.com/panbanda/libmodel/pkg/hierarchy"
	"github.com/panbanda/libmodel/pkg/jvm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	h       *hierarchy.Hierarchy
	diags   *diag.Collector
	base    *jvm.Type
	sub     *jvm.Type
	iface   *jvm.Type
	outer   *jvm.Type
	inner   *jvm.Type
	app     *jvm.Type
	get     *jvm.Method
	getInt  *jvm.Method
	size    *jvm.Method
	deflt   *jvm.Method
	count   *jvm.Field
	outerFn *jvm.Method
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{diags: diag.NewCollector()}

	obj := jvm.NewType(jvm.ObjectClass, jvm.KindClass, jvm.Public, "", jvm.Library)
	obj.AddMethod(jvm.NewMethod(jvm.ConstructorName, nil, jvm.Void, jvm.Public))

	f.iface = jvm.NewType("l.Sized", jvm.KindInterface, jvm.Public|jvm.Abstract, "", jvm.Library)
	f.deflt = f.iface.AddMethod(jvm.NewMethod("isEmpty", nil, jvm.Boolean, jvm.Public))

	f.base = jvm.NewType("l.Base", jvm.KindClass, jvm.Public, "", jvm.Library)
	f.base.Interfaces = []string{"l.Sized"}
	f.base.AddMethod(jvm.NewMethod(jvm.ConstructorName, nil, jvm.Void, jvm.Public))
	f.get = f.base.AddMethod(jvm.NewMethod("get", nil, jvm.Object, jvm.Public))
	f.getInt = f.base.AddMethod(jvm.NewMethod("get", []jvm.TypeRef{jvm.Int}, jvm.Object, jvm.Public))
	f.size = f.base.AddMethod(jvm.NewMethod("size", nil, jvm.Int, jvm.Public))
	f.count = f.base.AddField(jvm.NewField("count", jvm.Int, jvm.Public))

	f.sub = jvm.NewType("l.Sub", jvm.KindClass, jvm.Public, "l.Base", jvm.Library)
	f.sub.AddMethod(jvm.NewMethod(jvm.ConstructorName, nil, jvm.Void, jvm.Public))

	f.outer = jvm.NewType("a.Outer", jvm.KindClass, jvm.Public, "", jvm.Application)
	f.outerFn = f.outer.AddMethod(jvm.NewMethod("helper", nil, jvm.Void, jvm.Public))
	f.inner = jvm.NewType("a.Outer$Inner", jvm.KindClass, jvm.Public, "l.Sub", jvm.Application)

	f.app = jvm.NewType("a.Main", jvm.KindClass, jvm.Public, "", jvm.Application)
	main := f.app.AddMethod(jvm.NewMethod("main", []jvm.TypeRef{jvm.ArrayOf(jvm.String, 1)}, jvm.Void, jvm.Public|jvm.Static))
	main.Refs = []jvm.SymbolRef{
		jvm.MethodRef("l.Sub", "get", "()Ljava/lang/Object;"),
		jvm.MethodRef("l/Sub", "isEmpty", ""),
		jvm.FieldRef("l.Sub", "count", "I"),
		jvm.MethodRef("a.Outer", "helper", "()V"),
		jvm.MethodRef("l.Missing", "nothing", "()V"),
	}

	h, err := hierarchy.New([]*jvm.Type{obj, f.iface, f.base, f.sub, f.outer, f.inner, f.app}, hierarchy.WithDiagnostics(f.diags))
	require.NoError(t, err)
	f.h = h
	return f
}

func TestResolveWalksSuperclassThenInterfaces(t *testing.T) {
	f := newFixture(t)
	r := NewResolver(f.h, f.diags)

	assert.Equal(t, []*jvm.Method{f.get}, r.ResolveMethod(jvm.MethodRef("l.Sub", "get", "()Ljava/lang/Object;")))
	assert.Equal(t, []*jvm.Method{f.deflt}, r.ResolveMethod(jvm.MethodRef("l.Sub", "isEmpty", "()Z")))
	assert.Equal(t, []*jvm.Field{f.count}, r.ResolveField(jvm.FieldRef("l.Sub", "count", "I")))
	assert.Empty(t, r.ResolveField(jvm.FieldRef("l.Sub", "count", "J")))
}

func TestResolveEmptyDescriptorMatchesOverloads(t *testing.T) {
	f := newFixture(t)
	r := NewResolver(f.h, f.diags)

	assert.Equal(t, []*jvm.Method{f.get, f.getInt}, r.ResolveMethod(jvm.MethodRef("l.Sub", "get", "")))
	assert.Equal(t, []*jvm.Method{f.get, f.getInt}, r.ResolveMethod(jvm.MethodRef(jvm.AnyOwner, "get", "")))
}

func TestResolveFallsBackToEnclosingType(t *testing.T) {
	f := newFixture(t)
	r := NewResolver(f.h, f.diags)

	// inherited members win over the enclosing type
	assert.Equal(t, []*jvm.Method{f.size}, r.ResolveMethod(jvm.MethodRef("a.Outer$Inner", "size", "()I")))
	assert.Equal(t, []*jvm.Method{f.outerFn}, r.ResolveMethod(jvm.MethodRef("a.Outer$Inner", "helper", "()V")))
}

func TestResolveConstructorsAreNotInherited(t *testing.T) {
	f := newFixture(t)
	r := NewResolver(f.h, f.diags)

	assert.Empty(t, r.ResolveMethod(jvm.MethodRef("a.Outer$Inner", jvm.ConstructorName, "()V")))
	assert.Len(t, r.ResolveMethod(jvm.MethodRef("l.Sub", jvm.ConstructorName, "()V")), 1)
}

func TestResolveIsIdempotent(t *testing.T) {
	f := newFixture(t)
	r := NewResolver(f.h, f.diags)
	ref := jvm.MethodRef("l.Sub", "get", "()Ljava/lang/Object;")

	first := r.ResolveMethod(ref)
	second := r.ResolveMethod(ref)
	require.Len(t, second, 1)
	assert.Same(t, first[0], second[0])

	fr := jvm.FieldRef("l.Base", "count", "")
	assert.Same(t, r.ResolveField(fr)[0], r.ResolveField(fr)[0])
}

func TestUnresolvedIsRecordedOnce(t *testing.T) {
	f := newFixture(t)
	r := NewResolver(f.h, f.diags)
	ref := jvm.MethodRef("l.Missing", "nothing", "()V")

	assert.Empty(t, r.ResolveMethod(ref))
	assert.Empty(t, r.ResolveMethod(ref))
	assert.Equal(t, 1, f.diags.Count(diag.InputInconsistency))
}

func TestCompute(t *testing.T) {
	f := newFixture(t)
	r := NewResolver(f.h, f.diags)
	s := Compute(f.h, r, []*jvm.Method{f.outerFn, f.get})

	assert.True(t, s.ContainsMethod(f.get))
	assert.True(t, s.ContainsMethod(f.deflt))
	assert.False(t, s.ContainsMethod(f.getInt))
	assert.False(t, s.ContainsMethod(f.outerFn), "application methods are not library references")
	assert.True(t, s.ContainsField(f.count))

	assert.True(t, s.IsAnnotated(f.outerFn))
	assert.False(t, s.IsAnnotated(f.get), "library methods cannot be annotated entry points")

	assert.Equal(t, []*jvm.Method{f.deflt, f.get}, s.Methods(s.ReferencedLibraryMethods))
	assert.Equal(t, []*jvm.Field{f.count}, s.Fields(s.ReferencedLibraryFields))
	assert.Equal(t, uint64(2), s.Summary().ReferencedLibraryMethods)
}

func TestComputeMarksOverrides(t *testing.T) {
	f := newFixture(t)
	over := jvm.NewMethod("size", nil, jvm.Int, jvm.Public)
	f.h.AddMethod(f.inner, over)

	s := Compute(f.h, NewResolver(f.h, f.diags), nil)
	assert.True(t, s.IsOverridden(over))
}
