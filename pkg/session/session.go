// Package session runs one library-model generation end to end.
//
// A Session owns everything a run produces: the loaded universe, the class
// hierarchy, the entry-point map, reflection facts, reachability sets and the
// synthesized model. Steps run in pipeline order and each one checks that its
// predecessors have run. A Session is used for a single run; watch mode
// creates a fresh one per change.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/panbanda/libmodel/internal/cache"
	"github.com/panbanda/libmodel/internal/fileproc"
	"github.com/panbanda/libmodel/pkg/config"
	"github.com/panbanda/libmodel/pkg/diag"
	"github.com/panbanda/libmodel/pkg/emit"
	"github.com/panbanda/libmodel/pkg/entrypoint"
	"github.com/panbanda/libmodel/pkg/hierarchy"
	"github.com/panbanda/libmodel/pkg/jvm"
	"github.com/panbanda/libmodel/pkg/parser"
	"github.com/panbanda/libmodel/pkg/reachability"
	"github.com/panbanda/libmodel/pkg/reflection"
	"github.com/panbanda/libmodel/pkg/synth"
	"github.com/panbanda/libmodel/pkg/universe"
)

var (
	// ErrNoInput is returned when no file yields a type.
	ErrNoInput = errors.New("no types loaded")
	// ErrOutOfOrder is returned when a step runs before its predecessors.
	ErrOutOfOrder = errors.New("pipeline step out of order")
)

// Session is one generation run.
type Session struct {
	cfg   *config.Config
	diags *diag.Collector
	cache *cache.Cache

	onLoad fileproc.ProgressFunc
	onBody func()

	files      []string
	loadErrors []fileproc.LoadError
	h          *hierarchy.Hierarchy
	entries    *entrypoint.Map
	refl       reflection.Resolved
	sets       *reachability.Sets
	cleanup    hierarchy.Stats
	result     *synth.Result
}

// Option configures a Session.
type Option func(*Session)

// WithCache caches decoded input files.
func WithCache(c *cache.Cache) Option {
	return func(s *Session) { s.cache = c }
}

// WithLoadProgress reports each decoded input file.
func WithLoadProgress(fn fileproc.ProgressFunc) Option {
	return func(s *Session) { s.onLoad = fn }
}

// WithBodyProgress reports each synthesized member body.
func WithBodyProgress(fn func()) Option {
	return func(s *Session) { s.onBody = fn }
}

// New creates a session for cfg. A nil cfg uses the defaults.
func New(cfg *config.Config, opts ...Option) *Session {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Session{cfg: cfg, diags: diag.NewCollector()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the session's configuration.
func (s *Session) Config() *config.Config { return s.cfg }

// Diagnostics returns the collector of this run.
func (s *Session) Diagnostics() *diag.Collector { return s.diags }

// Hierarchy returns the class hierarchy, or nil before Load.
func (s *Session) Hierarchy() *hierarchy.Hierarchy { return s.h }

// EntryPoints returns the entry-point map, or nil before DetectEntryPoints.
func (s *Session) EntryPoints() *entrypoint.Map { return s.entries }

// Result returns the synthesized model, or nil before Synthesize.
func (s *Session) Result() *synth.Result { return s.result }

// Loader returns the universe loader configured for this session. Java
// sources are decoded by the tree-sitter front end.
func (s *Session) Loader() (*universe.Loader, error) {
	rules, err := universe.NewRules(s.cfg.Input.ApplicationPatterns)
	if err != nil {
		return nil, err
	}
	l := universe.NewLoader(rules)
	l.Register(parser.Extension, parser.Decode)
	l.Cache = s.cache
	l.Platform = true
	l.Workers = s.cfg.Synthesis.Workers
	l.OnProgress = s.onLoad
	return l, nil
}

// Load reads the universe from paths, files or directories, and builds the
// class hierarchy. Files that fail to load are reported and skipped.
func (s *Session) Load(ctx context.Context, paths []string) error {
	l, err := s.Loader()
	if err != nil {
		return err
	}
	files, err := l.Expand(paths)
	if err != nil {
		return fmt.Errorf("expand inputs: %w", err)
	}
	s.files = files

	types, errs := l.Load(ctx, files)
	if err := ctx.Err(); err != nil {
		return err
	}
	if errs.HasErrors() {
		s.loadErrors = errs.Sorted()
		for _, e := range s.loadErrors {
			s.diags.Add(diag.InputInconsistency, e.Path, "", "load failed: "+e.Err.Error())
		}
	}
	if !hasApplication(types) {
		return fmt.Errorf("%w from %d files", ErrNoInput, len(files))
	}

	h, err := hierarchy.New(types, hierarchy.WithDiagnostics(s.diags))
	if err != nil {
		return fmt.Errorf("build hierarchy: %w", err)
	}
	s.h = h
	st := h.Stats()
	log.WithFields(log.Fields{
		"files":       len(files),
		"application": st.ApplicationTypes,
		"library":     st.LibraryTypes,
	}).Info("universe loaded")
	return nil
}

func hasApplication(types []*jvm.Type) bool {
	for _, t := range types {
		if t.IsApplication() {
			return true
		}
	}
	return false
}

// DetectEntryPoints runs the configured detector.
func (s *Session) DetectEntryPoints() (*entrypoint.Map, error) {
	if s.h == nil {
		return nil, fmt.Errorf("%w: entry points need a loaded universe", ErrOutOfOrder)
	}
	kind, err := entrypoint.ParseFramework(s.cfg.EntryPoints.Framework)
	if err != nil {
		return nil, err
	}
	var settings entrypoint.Settings
	if dir := s.cfg.EntryPoints.ConfigDir; dir != "" {
		if settings, err = entrypoint.LoadSettings(dir); err != nil {
			return nil, fmt.Errorf("entry-point configuration: %w", err)
		}
	}
	s.entries = entrypoint.NewDetector(kind, settings, s.cfg.EntryPoints.MainClass).Detect(s.h, s.diags)
	log.WithFields(log.Fields{
		"framework": kind,
		"entries":   len(s.entries.Entries),
		"annotated": len(s.entries.AnnotatedMethods),
	}).Debug("entry points detected")
	return s.entries, nil
}

// ResolveReflection reads the enabled reflection inputs and keeps the facts
// naming application members.
func (s *Session) ResolveReflection() error {
	if s.h == nil {
		return fmt.Errorf("%w: reflection needs a loaded universe", ErrOutOfOrder)
	}
	var facts reflection.Facts
	var dynamic []string
	var err error
	if s.cfg.Reflection.TamiflexEnabled {
		if facts, err = reflection.LoadTamiFlex(s.cfg.Reflection.ReflLog); err != nil {
			return fmt.Errorf("reflection log: %w", err)
		}
	}
	if s.cfg.Reflection.DynamicClassesEnabled {
		if dynamic, err = reflection.LoadDynamicClasses(s.cfg.Reflection.DynamicClassesFile); err != nil {
			return fmt.Errorf("dynamic classes: %w", err)
		}
	}
	s.refl = reflection.Resolve(facts, dynamic, s.h, s.diags)
	return nil
}

// ComputeSets resolves the cross-references of application code.
func (s *Session) ComputeSets() (*reachability.Sets, error) {
	if s.h == nil || s.entries == nil {
		return nil, fmt.Errorf("%w: reachability needs entry points", ErrOutOfOrder)
	}
	s.sets = reachability.Compute(s.h, reachability.NewResolver(s.h, s.diags), s.entries.AnnotatedMethods)
	return s.sets, nil
}

// Cleanup drops unreachable library members.
func (s *Session) Cleanup() (hierarchy.Stats, error) {
	if s.sets == nil {
		return hierarchy.Stats{}, fmt.Errorf("%w: cleanup needs reachability sets", ErrOutOfOrder)
	}
	s.cleanup = s.h.CleanupLibraryClasses(s.sets)
	return s.cleanup, nil
}

// SynthOptions maps the configuration onto synthesizer options.
func (s *Session) SynthOptions() (synth.Options, error) {
	placement, err := synth.ParseThrowPlacement(s.cfg.Synthesis.ThrowPlacement)
	if err != nil {
		return synth.Options{}, err
	}
	opts := synth.DefaultOptions()
	opts.GuardsEnabled = s.cfg.Synthesis.GuardsEnabled
	opts.ThrowEnabled = s.cfg.Synthesis.ThrowEnabled
	opts.ThrowPlacement = placement
	opts.Workers = s.cfg.Synthesis.Workers
	opts.TamiflexEnabled = s.cfg.Reflection.TamiflexEnabled
	opts.DynamicClassesEnabled = s.cfg.Reflection.DynamicClassesEnabled
	if s.cfg.Synthesis.CraftedSuffix != "" {
		opts.CraftedSuffix = s.cfg.Synthesis.CraftedSuffix
	}
	opts.OnBody = s.onBody
	return opts, nil
}

// Synthesize generates the library model.
func (s *Session) Synthesize() (*synth.Result, error) {
	if s.sets == nil {
		return nil, fmt.Errorf("%w: synthesis needs reachability sets", ErrOutOfOrder)
	}
	opts, err := s.SynthOptions()
	if err != nil {
		return nil, err
	}
	in := synth.Input{
		Hierarchy:   s.h,
		Sets:        s.sets,
		EntryPoints: s.entries,
		Reflection:  s.refl,
		Diagnostics: s.diags,
	}
	res, err := synth.New(in, opts).Generate()
	if err != nil {
		return nil, err
	}
	s.result = res
	return res, nil
}

// EmitOptions maps the configuration onto emitter options.
func (s *Session) EmitOptions() emit.Options {
	opts := emit.Options{
		IncludePlatform: s.cfg.Output.IncludeLibraryClassesFromPlatformRuntime,
		IsPlatform:      s.cfg.IsPlatformClass,
	}
	if s.cfg.Output.Format == "json" {
		opts.Format = universe.JSON
	}
	return opts
}

// Emit writes the model into dir.
func (s *Session) Emit(dir string) (*emit.Summary, error) {
	if s.result == nil {
		return nil, fmt.Errorf("%w: nothing synthesized", ErrOutOfOrder)
	}
	return emit.Write(dir, s.h, s.result, s.EmitOptions())
}

// Report summarizes a run.
type Report struct {
	Files       int                  `json:"files"`
	LoadErrors  []fileproc.LoadError `json:"-"`
	Hierarchy   hierarchy.Stats      `json:"hierarchy"`
	Sets        reachability.Summary `json:"reachability"`
	EntryPoints int                  `json:"entry_points"`
	Synth       synth.Stats          `json:"synthesis"`
	Output      *emit.Summary        `json:"output,omitempty"`
	Diagnostics []diag.Diagnostic    `json:"diagnostics"`
	Degraded    bool                 `json:"degraded"`
	Elapsed     time.Duration        `json:"elapsed"`
}

// Run executes the whole pipeline over paths. The model is written to dir
// unless dir is empty.
func (s *Session) Run(ctx context.Context, paths []string, dir string) (*Report, error) {
	start := time.Now()
	if err := s.Load(ctx, paths); err != nil {
		return nil, err
	}
	if _, err := s.DetectEntryPoints(); err != nil {
		return nil, err
	}
	if err := s.ResolveReflection(); err != nil {
		return nil, err
	}
	if _, err := s.ComputeSets(); err != nil {
		return nil, err
	}
	if _, err := s.Cleanup(); err != nil {
		return nil, err
	}
	if _, err := s.Synthesize(); err != nil {
		return nil, err
	}

	rep := &Report{
		Files:       len(s.files),
		LoadErrors:  s.loadErrors,
		Hierarchy:   s.cleanup,
		Sets:        s.sets.Summary(),
		EntryPoints: len(s.entries.Entries),
		Synth:       s.result.Stats,
	}
	if dir != "" {
		sum, err := s.Emit(dir)
		if err != nil {
			return nil, err
		}
		rep.Output = sum
	}
	rep.Diagnostics = s.diags.All()
	if rep.Output != nil {
		path, err := emit.WriteDiagnostics(dir, rep.Diagnostics)
		if err != nil {
			return nil, err
		}
		rep.Output.Files = append(rep.Output.Files, path)
	}
	rep.Degraded = s.diags.Degraded()
	rep.Elapsed = time.Since(start)
	return rep, nil
}
