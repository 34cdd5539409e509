package emit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/panbanda/libmodel/pkg/diag"
	"github.com/panbanda/libmodel/pkg/hierarchy"
	"github.com/panbanda/libmodel/pkg/reachability"
	"github.com/panbanda/libmodel/pkg/synth"
	"github.com/panbanda/libmodel/pkg/universe"
)

const appDoc = `
provenance: application
types:
  - name: app.Task
    modifiers: [public]
    interfaces: [java.lang.Runnable]
    methods:
      - name: "<init>"
        modifiers: [public]
        refs:
          - { kind: method, owner: java.lang.Object, name: "<init>" }
      - name: run
        modifiers: [public]
        refs:
          - { kind: method, owner: java.lang.Thread, name: start }
  - name: app.Listener
    kind: interface
    methods:
      - { name: onEvent, modifiers: [public, abstract] }
`

func isJava(name string) bool { return strings.HasPrefix(name, "java.") }

func generate(t *testing.T) (*hierarchy.Hierarchy, *synth.Result) {
	t.Helper()
	platform, err := universe.Platform().Convert(nil)
	require.NoError(t, err)
	doc, err := universe.Decode([]byte(appDoc), universe.YAML)
	require.NoError(t, err)
	app, err := doc.Convert(nil)
	require.NoError(t, err)

	diags := diag.NewCollector()
	h, err := hierarchy.New(append(platform, app...), hierarchy.WithDiagnostics(diags))
	require.NoError(t, err)
	sets := reachability.Compute(h, reachability.NewResolver(h, diags), nil)
	h.CleanupLibraryClasses(sets)

	res, err := synth.New(synth.Input{Hierarchy: h, Sets: sets, Diagnostics: diags}, synth.DefaultOptions()).Generate()
	require.NoError(t, err)
	return h, res
}

func TestBuildFiltersPlatformClasses(t *testing.T) {
	h, res := generate(t)

	m, err := Build(h, res, Options{IsPlatform: isJava})
	require.NoError(t, err)
	assert.Equal(t, synth.AbstractLibraryClass, m.Root)
	assert.Equal(t, synth.LibraryClass, m.Library)
	assert.Contains(t, m.DoItAll, "doItAll")
	assert.Empty(t, m.Failed)
	assert.Len(t, m.Fingerprint, 64)

	var names []string
	for _, te := range m.Types {
		if !te.Generated {
			assert.False(t, isJava(te.Name), te.Name)
		}
		names = append(names, te.Name)
	}
	assert.Contains(t, names, synth.AbstractLibraryClass)
	assert.Contains(t, names, synth.LibraryClass)

	all, err := Build(h, res, Options{IsPlatform: isJava, IncludePlatform: true})
	require.NoError(t, err)
	assert.Greater(t, len(all.Types), len(m.Types))
	assert.NotEqual(t, m.Fingerprint, all.Fingerprint)
}

func TestBuildIncludesBodies(t *testing.T) {
	h, res := generate(t)
	m, err := Build(h, res, Options{})
	require.NoError(t, err)

	var root *TypeEntry
	for i := range m.Types {
		if m.Types[i].Name == synth.AbstractLibraryClass {
			root = &m.Types[i]
		}
	}
	require.NotNil(t, root)
	assert.True(t, root.Generated)

	bodies := 0
	for _, me := range root.Methods {
		if me.Body != "" {
			bodies++
			assert.Contains(t, me.Body, "{")
		}
	}
	assert.Positive(t, bodies)
}

func TestFingerprintIsDeterministic(t *testing.T) {
	h1, r1 := generate(t)
	h2, r2 := generate(t)
	m1, err := Build(h1, r1, Options{IsPlatform: isJava})
	require.NoError(t, err)
	m2, err := Build(h2, r2, Options{IsPlatform: isJava})
	require.NoError(t, err)
	assert.Equal(t, m1.Fingerprint, m2.Fingerprint)
}

func TestWrite(t *testing.T) {
	h, res := generate(t)
	dir := filepath.Join(t.TempDir(), "out")

	sum, err := Write(dir, h, res, Options{IsPlatform: isJava})
	require.NoError(t, err)
	assert.Equal(t, dir, sum.Dir)
	assert.Positive(t, sum.Classes)
	assert.Len(t, sum.Files, sum.Classes+2)

	data, err := os.ReadFile(filepath.Join(dir, ModelYAML))
	require.NoError(t, err)
	var m Model
	require.NoError(t, yaml.Unmarshal(data, &m))
	assert.Equal(t, sum.Fingerprint, m.Fingerprint)
	assert.Equal(t, res.Stats, m.Stats)

	lib, err := os.ReadFile(filepath.Join(dir, LibraryFile))
	require.NoError(t, err)
	doc, err := universe.Decode(lib, universe.YAML)
	require.NoError(t, err, "the library document is a valid universe document")
	assert.Equal(t, "library", doc.Provenance)

	ir, err := os.ReadFile(filepath.Join(dir, ClassesDir, FileName(synth.LibraryClass)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(ir), "public class "+synth.LibraryClass), string(ir))
	assert.Contains(t, string(ir), "extends "+synth.AbstractLibraryClass)
}

func TestWriteJSON(t *testing.T) {
	h, res := generate(t)
	dir := t.TempDir()

	sum, err := Write(dir, h, res, Options{IsPlatform: isJava, Format: universe.JSON})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, ModelJSON))
	require.NoError(t, err)
	var m Model
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, sum.Fingerprint, m.Fingerprint)
	_, err = os.Stat(filepath.Join(dir, ModelYAML))
	assert.True(t, os.IsNotExist(err))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "a.b.C$D.ir", FileName("a.b.C$D"))
	assert.Equal(t, "a_b.ir", FileName("a/b"))
}

func TestWriteDiagnosticsListsEveryItem(t *testing.T) {
	var ds []diag.Diagnostic
	for i := range 60 {
		ds = append(ds, diag.Diagnostic{Category: diag.ContractViolation, Type: "a.B", Member: fmt.Sprintf("void m%d()", i), Reason: "no body"})
	}
	dir := t.TempDir()
	path, err := WriteDiagnostics(dir, ds)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DiagnosticsFile), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got struct {
		Diagnostics []struct {
			Category string `yaml:"category"`
			Member   string `yaml:"member"`
		} `yaml:"diagnostics"`
	}
	require.NoError(t, yaml.Unmarshal(data, &got))
	require.Len(t, got.Diagnostics, 60)
	assert.Equal(t, "contract-violation", got.Diagnostics[0].Category)
	assert.Equal(t, "void m59()", got.Diagnostics[59].Member)

	path, err = WriteDiagnostics(t.TempDir(), nil)
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "diagnostics: []")
}
