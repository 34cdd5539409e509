package reflection

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/panbanda/libmodel/pkg/diag"
	"github.com/panbanda/libmodel/pkg/hierarchy"
	"github.com/panbanda/libmodel/pkg/jvm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reflLog = `Class.forName;app.Plugin;app.Main.load;12;;
Class.forName;app.Plugin;app.Main.load;40;;
Method.invoke;<app.Plugin: void start()>;app.Main.load;13;;
Method.invoke;<java.lang.Object: java.lang.String toString()>;app.Main.load;14;;
Constructor.newInstance;<app.Plugin: void <init>(int)>;app.Main.load;15;;
Class.newInstance;app.Plugin;app.Main.load;16;;
Array.newInstance;app.Plugin[];app.Main.load;17;;
Field.get;<app.Plugin: int x>;app.Main.load;18;;

# comment
`

func TestParseTamiFlex(t *testing.T) {
	f, err := ParseTamiFlex(strings.NewReader(reflLog))
	require.NoError(t, err)

	assert.Equal(t, []string{"app.Plugin"}, f.ClassForName)
	assert.Equal(t, []string{"<app.Plugin: void start()>", "<java.lang.Object: java.lang.String toString()>"}, f.MethodInvoke)
	assert.Equal(t, []string{"<app.Plugin: void <init>(int)>"}, f.ConstructorNewInstance)
	assert.Equal(t, []string{"app.Plugin"}, f.ClassNewInstance)
	assert.Equal(t, []string{"app.Plugin[]"}, f.ArrayNewInstance)
	assert.False(t, f.Empty())
	assert.True(t, Facts{}.Empty())
}

func TestParseTamiFlexRejectsMalformed(t *testing.T) {
	_, err := ParseTamiFlex(strings.NewReader("Class.forName app.Plugin\n"))
	assert.Error(t, err)
	_, err = ParseTamiFlex(strings.NewReader("Class.forName;;x\n"))
	assert.Error(t, err)
}

func TestLoadDynamicClasses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dynamic.txt")
	require.NoError(t, os.WriteFile(path, []byte("app/Plugin\n\n# skip\napp.Other\napp.Plugin\n"), 0o644))

	got, err := LoadDynamicClasses(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"app.Other", "app.Plugin"}, got)

	_, err = LoadDynamicClasses(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	obj := jvm.NewType(jvm.ObjectClass, jvm.KindClass, jvm.Public, "", jvm.Library)
	obj.AddMethod(jvm.NewMethod("toString", nil, jvm.String, jvm.Public))
	plugin := jvm.NewType("app.Plugin", jvm.KindClass, jvm.Public, "", jvm.Application)
	start := plugin.AddMethod(jvm.NewMethod("start", nil, jvm.Void, jvm.Public))
	ctor := plugin.AddMethod(jvm.NewMethod(jvm.ConstructorName, []jvm.TypeRef{jvm.Int}, jvm.Void, jvm.Public))

	diags := diag.NewCollector()
	h, err := hierarchy.New([]*jvm.Type{obj, plugin})
	require.NoError(t, err)

	f, err := ParseTamiFlex(strings.NewReader(reflLog))
	require.NoError(t, err)
	f.ClassForName = append(f.ClassForName, "app.Gone")

	r := Resolve(f, []string{"app.Plugin", "app.Missing"}, h, diags)
	assert.Equal(t, []*jvm.Method{start}, r.Methods)
	assert.Equal(t, []*jvm.Method{ctor}, r.Constructors)
	assert.Equal(t, []*jvm.Type{plugin}, r.NewInstance)
	assert.Equal(t, []*jvm.Type{plugin}, r.ForName)
	assert.Equal(t, []*jvm.Type{plugin}, r.DynamicInstances)
	assert.Equal(t, []jvm.TypeRef{jvm.ArrayOf(plugin.Ref(), 1)}, r.Arrays)
	assert.Equal(t, 2, diags.Count(diag.InputInconsistency))
}
