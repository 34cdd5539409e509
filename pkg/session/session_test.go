package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/libmodel/pkg/config"
	"github.com/panbanda/libmodel/pkg/emit"
	"github.com/panbanda/libmodel/pkg/jvm"
	"github.com/panbanda/libmodel/pkg/synth"
	"github.com/panbanda/libmodel/pkg/universe"
)

const workerSource = `package app;

public class Worker implements Runnable {
    public void run() {
        Thread t = new Thread(this);
        t.start();
        new ext.Bus().register(new Handler());
    }
}
`

const handlerSource = `package app;

import ext.Callback;

public class Handler implements Callback {
    public void call() {}
}
`

const extLibrary = `
provenance: library
types:
  - name: ext.Callback
    kind: interface
    modifiers: [public]
    methods:
      - { name: call, modifiers: [public, abstract] }
  - name: ext.Bus
    modifiers: [public]
    methods:
      - { name: "<init>", modifiers: [public] }
      - { name: register, params: [ext.Callback], modifiers: [public] }
      - { name: unused, modifiers: [public] }
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

type project struct {
	src, lib, epDir string
}

func newProject(t *testing.T) project {
	t.Helper()
	dir := t.TempDir()
	p := project{
		src:   filepath.Join(dir, "src"),
		lib:   writeFile(t, dir, "lib/ext.yaml", extLibrary),
		epDir: filepath.Join(dir, "ep"),
	}
	writeFile(t, p.src, "app/Worker.java", workerSource)
	writeFile(t, p.src, "app/Handler.java", handlerSource)
	writeFile(t, p.epDir, "EntryPointClasses.txt", "java.lang.Runnable_DEFAULT\n")
	return p
}

func testConfig(p project) *config.Config {
	cfg := config.DefaultConfig()
	cfg.EntryPoints.ConfigDir = p.epDir
	cfg.Synthesis.Workers = 1
	return cfg
}

func TestRunEndToEnd(t *testing.T) {
	p := newProject(t)
	out := filepath.Join(t.TempDir(), "model")

	s := New(testConfig(p))
	rep, err := s.Run(context.Background(), []string{p.lib, p.src}, out)
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Files)
	assert.Empty(t, rep.LoadErrors)
	assert.Equal(t, 2, rep.Hierarchy.ApplicationTypes)
	assert.Equal(t, 1, rep.EntryPoints)
	assert.False(t, rep.Degraded, "%v", rep.Diagnostics)
	assert.Positive(t, rep.Sets.ReferencedLibraryMethods)

	hs := rep.Hierarchy
	assert.Equal(t, hs.InitialLibraryMethods+hs.AddedLibraryMethods-hs.RemovedLibraryMethods, hs.FinalLibraryMethods)
	assert.Equal(t, hs.InitialLibraryFields-hs.RemovedLibraryFields, hs.FinalLibraryFields)
	after := s.Hierarchy().Stats()
	assert.Greater(t, after.FinalLibraryFields, hs.FinalLibraryFields, "synthesized fields are not cleanup results")

	var crafted []string
	for _, c := range s.Result().Crafted {
		crafted = append(crafted, c.Name)
	}
	assert.Contains(t, crafted, "ext.Callback__Model")

	bus := s.Hierarchy().Type("ext.Bus")
	require.NotNil(t, bus)
	assert.NotNil(t, bus.Method("void register(ext.Callback)"))
	assert.Nil(t, bus.Method("void unused()"), "unreferenced library methods are cleaned up")

	require.NotNil(t, rep.Output)
	assert.FileExists(t, filepath.Join(out, emit.ModelYAML))
	assert.Contains(t, rep.Output.Files, filepath.Join(out, emit.DiagnosticsFile))
	assert.FileExists(t, filepath.Join(out, emit.ClassesDir, emit.FileName("ext.Bus")))
	assert.NoFileExists(t, filepath.Join(out, emit.ClassesDir, emit.FileName(jvm.ObjectClass)))
}

func TestRunWithoutOutputDir(t *testing.T) {
	p := newProject(t)
	rep, err := New(testConfig(p)).Run(context.Background(), []string{p.lib, p.src}, "")
	require.NoError(t, err)
	assert.Nil(t, rep.Output)
}

func TestLoadRecordsFailedFiles(t *testing.T) {
	p := newProject(t)
	bad := writeFile(t, t.TempDir(), "bad.yaml", "types: [{}]")

	s := New(testConfig(p))
	rep, err := s.Run(context.Background(), []string{p.lib, p.src, bad}, "")
	require.NoError(t, err)
	require.Len(t, rep.LoadErrors, 1)
	assert.Equal(t, bad, rep.LoadErrors[0].Path)
	assert.Positive(t, s.Diagnostics().Len())
}

func TestLoadWithoutApplication(t *testing.T) {
	p := newProject(t)
	err := New(testConfig(p)).Load(context.Background(), []string{p.lib})
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestStepsOutOfOrder(t *testing.T) {
	s := New(nil)

	_, err := s.DetectEntryPoints()
	assert.ErrorIs(t, err, ErrOutOfOrder)
	assert.ErrorIs(t, s.ResolveReflection(), ErrOutOfOrder)
	_, err = s.ComputeSets()
	assert.ErrorIs(t, err, ErrOutOfOrder)
	_, err = s.Cleanup()
	assert.ErrorIs(t, err, ErrOutOfOrder)
	_, err = s.Synthesize()
	assert.ErrorIs(t, err, ErrOutOfOrder)
	_, err = s.Emit(t.TempDir())
	assert.ErrorIs(t, err, ErrOutOfOrder)
}

func TestMissingReflectionLog(t *testing.T) {
	p := newProject(t)
	cfg := testConfig(p)
	cfg.Reflection.TamiflexEnabled = true
	cfg.Reflection.ReflLog = filepath.Join(t.TempDir(), "missing.log")

	_, err := New(cfg).Run(context.Background(), []string{p.lib, p.src}, "")
	assert.Error(t, err)
}

func TestReflectionFactsReachSynthesis(t *testing.T) {
	p := newProject(t)
	log := writeFile(t, t.TempDir(), "refl.log", "Class.newInstance;app.Handler;app.Worker.run;12;;\n")
	cfg := testConfig(p)
	cfg.Reflection.TamiflexEnabled = true
	cfg.Reflection.ReflLog = log

	s := New(cfg)
	rep, err := s.Run(context.Background(), []string{p.lib, p.src}, "")
	require.NoError(t, err)
	assert.False(t, rep.Degraded, "%v", rep.Diagnostics)
	assert.Equal(t, []string{"app.Handler"}, names(s.refl.NewInstance))
}

func names(types []*jvm.Type) []string {
	var out []string
	for _, t := range types {
		out = append(out, t.Name)
	}
	return out
}

func TestSynthOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Synthesis.GuardsEnabled = false
	cfg.Synthesis.ThrowPlacement = "interleaved"
	cfg.Synthesis.CraftedSuffix = ""
	cfg.Reflection.DynamicClassesEnabled = true

	opts, err := New(cfg).SynthOptions()
	require.NoError(t, err)
	assert.False(t, opts.GuardsEnabled)
	assert.Equal(t, synth.ThrowInterleaved, opts.ThrowPlacement)
	assert.Equal(t, synth.DefaultCraftedSuffix, opts.CraftedSuffix)
	assert.True(t, opts.DynamicClassesEnabled)

	cfg.Synthesis.ThrowPlacement = "sideways"
	_, err = New(cfg).SynthOptions()
	assert.Error(t, err)
}

func TestEmitOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.Format = "json"
	opts := New(cfg).EmitOptions()
	assert.Equal(t, universe.JSON, opts.Format)
	assert.False(t, opts.IncludePlatform)
	assert.True(t, opts.IsPlatform("java.lang.Object"))
	assert.False(t, opts.IsPlatform("app.Worker"))
}
