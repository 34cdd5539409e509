// Package synth generates the library model: concrete stand-ins for abstract
// library types, the library root with its do-everything method and driver,
// uniform bodies for every concrete library method, and marker interfaces for
// annotated entry points.
package synth

import (
	"errors"
	"fmt"
	"runtime"

	log "github.com/sirupsen/logrus"

	"github.com/panbanda/libmodel/pkg/diag"
	"github.com/panbanda/libmodel/pkg/entrypoint"
	"github.com/panbanda/libmodel/pkg/hierarchy"
	"github.com/panbanda/libmodel/pkg/ir"
	"github.com/panbanda/libmodel/pkg/jvm"
	"github.com/panbanda/libmodel/pkg/reachability"
	"github.com/panbanda/libmodel/pkg/reflection"
)

// ThrowPlacement decides where doItAll throws the Throwable representative.
type ThrowPlacement int

const (
	// ThrowAfter throws once, after the callback loop.
	ThrowAfter ThrowPlacement = iota
	// ThrowInterleaved throws behind a guard inside the callback loop.
	ThrowInterleaved
)

func (p ThrowPlacement) String() string {
	if p == ThrowInterleaved {
		return "interleaved"
	}
	return "after"
}

// ParseThrowPlacement accepts "after" and "interleaved".
func ParseThrowPlacement(s string) (ThrowPlacement, error) {
	switch s {
	case "", "after":
		return ThrowAfter, nil
	case "interleaved":
		return ThrowInterleaved, nil
	}
	return ThrowAfter, fmt.Errorf("unknown throw placement %q (want after or interleaved)", s)
}

// Options control what the model contains.
type Options struct {
	GuardsEnabled         bool
	TamiflexEnabled       bool
	DynamicClassesEnabled bool
	ThrowEnabled          bool
	ThrowPlacement        ThrowPlacement
	CraftedSuffix         string
	// Workers bounds parallel body synthesis. 1 is sequential, <= 0 uses
	// NumCPU.
	Workers int
	// OnBody is called after each member body is attempted.
	OnBody func()
}

// DefaultOptions enables guards and the trailing throw.
func DefaultOptions() Options {
	return Options{
		GuardsEnabled:  true,
		ThrowEnabled:   true,
		ThrowPlacement: ThrowAfter,
		CraftedSuffix:  DefaultCraftedSuffix,
		Workers:        1,
	}
}

// Input is everything the synthesizer reads. Sets must be computed and the
// hierarchy cleaned up before Generate runs.
type Input struct {
	Hierarchy   *hierarchy.Hierarchy
	Sets        *reachability.Sets
	EntryPoints *entrypoint.Map
	Reflection  reflection.Resolved
	Diagnostics *diag.Collector
}

// Result is the generated model.
type Result struct {
	Stats     Stats
	Root      *jvm.Type
	Library   *jvm.Type
	DoItAll   *jvm.Method
	Main      *jvm.Method
	Crafted   []*jvm.Type
	Markers   []*jvm.Type
	LPTFields []*jvm.Field
	// Failed are the members left without a body.
	Failed []*jvm.Method
}

// ErrRootExists is returned when the universe already declares the library
// root classes.
var ErrRootExists = errors.New("library root already declared")

// Synthesizer generates the model for one run.
type Synthesizer struct {
	in   Input
	opts Options
	h    *hierarchy.Hierarchy

	root    *rootTypes
	lpt     *LPTStore
	guards  *guards
	crafted map[string]bool
	markers map[*jvm.Type]*jvm.Type
}

// New prepares a synthesizer. Zero-valued option strings fall back to their
// defaults.
func New(in Input, opts Options) *Synthesizer {
	if opts.CraftedSuffix == "" {
		opts.CraftedSuffix = DefaultCraftedSuffix
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if in.EntryPoints == nil {
		in.EntryPoints = &entrypoint.Map{}
	}
	return &Synthesizer{
		in:      in,
		opts:    opts,
		h:       in.Hierarchy,
		crafted: make(map[string]bool),
		markers: make(map[*jvm.Type]*jvm.Type),
	}
}

// Generate runs every step in order: entry-point markers, concretization,
// the library root, member bodies, doItAll and the driver. Per-member
// failures are recorded as diagnostics; only a malformed root is an error.
func (s *Synthesizer) Generate() (*Result, error) {
	if s.h.Type(AbstractLibraryClass) != nil || s.h.Type(LibraryClass) != nil {
		return nil, ErrRootExists
	}
	res := &Result{}

	markers, st, err := s.Markers()
	if err != nil {
		return nil, fmt.Errorf("marker interfaces: %w", err)
	}
	res.Markers = markers
	res.Stats = res.Stats.Add(st)

	crafted, st, err := s.Concretize()
	if err != nil {
		return nil, fmt.Errorf("concretize: %w", err)
	}
	res.Crafted = crafted
	res.Stats = res.Stats.Add(st)

	st, err = s.Root()
	if err != nil {
		return nil, fmt.Errorf("library root: %w", err)
	}
	res.Stats = res.Stats.Add(st)
	res.Root = s.root.abstract
	res.Library = s.root.library

	failed, st := s.MemberBodies()
	res.Failed = failed
	res.Stats = res.Stats.Add(st)

	for _, step := range []struct {
		m     *jvm.Method
		build func() error
	}{
		{s.root.doItAll, s.DoItAll},
		{s.root.main, s.Main},
	} {
		if err := step.build(); err != nil {
			s.in.Diagnostics.Add(diag.ValidationFailure, LibraryClass, step.m.SubSignature(), err.Error())
			res.Failed = append(res.Failed, step.m)
			res.Stats.FailedBodies++
			continue
		}
		res.Stats.Bodies++
	}
	res.DoItAll = s.root.doItAll
	res.Main = s.root.main

	res.Stats = res.Stats.Add(s.checkBodies(res.Failed))
	res.LPTFields = s.lpt.Fields()
	res.Stats.LPTFields = len(res.LPTFields)

	log.WithFields(log.Fields{
		"crafted":  res.Stats.CraftedClasses,
		"markers":  res.Stats.MarkerInterfaces,
		"bodies":   res.Stats.Bodies,
		"failed":   res.Stats.FailedBodies,
		"lpt":      res.Stats.LPTFields,
		"guards":   s.opts.GuardsEnabled,
		"tamiflex": s.opts.TamiflexEnabled,
	}).Info("library model generated")
	return res, nil
}

// checkBodies records a contract violation for every concrete library
// method still without a body, except the ones already reported as failed.
func (s *Synthesizer) checkBodies(failed []*jvm.Method) Stats {
	reported := make(map[*jvm.Method]bool, len(failed))
	for _, m := range failed {
		reported[m] = true
	}
	var st Stats
	for _, t := range s.h.LibraryTypes() {
		for _, m := range t.Methods {
			if m.IsConcrete() && m.Body == nil && !reported[m] {
				s.in.Diagnostics.Add(diag.ContractViolation, t.Name, m.SubSignature(), "non-abstract method left without a body")
				st.MissingBodies++
			}
		}
	}
	return st
}

// guards emits the non-foldable branches that keep alternatives alive.
type guards struct {
	enabled bool
	field   *jvm.Field
}

// open emits "z = guard; if z goto end" when guards are enabled and returns
// the end label, or nil.
func (g *guards) open(b *ir.Builder, name string) *ir.NopStmt {
	if !g.enabled {
		return nil
	}
	return g.always(b, name)
}

// always emits the guard even when guards are disabled. It is used where an
// unconditional effect would make the rest of the body unreachable.
func (g *guards) always(b *ir.Builder, name string) *ir.NopStmt {
	end := b.Label(name)
	z := b.Load(&ir.StaticFieldRef{Field: g.field})
	b.If(z, end)
	return end
}

// close places the label returned by open.
func (g *guards) close(b *ir.Builder, end *ir.NopStmt) {
	if end != nil {
		b.Place(end)
	}
}

// branch emits "z = guard; if z goto target".
func (g *guards) branch(b *ir.Builder, target ir.Stmt) {
	z := b.Load(&ir.StaticFieldRef{Field: g.field})
	b.If(z, target)
}
