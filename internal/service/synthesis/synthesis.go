// Package synthesis is the service layer shared by the CLI, the MCP server
// and watch mode. It opens sessions with the configured cache and answers
// hierarchy and entry-point queries over a loaded universe.
package synthesis

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/panbanda/libmodel/internal/cache"
	"github.com/panbanda/libmodel/pkg/config"
	"github.com/panbanda/libmodel/pkg/entrypoint"
	"github.com/panbanda/libmodel/pkg/jvm"
	"github.com/panbanda/libmodel/pkg/session"
)

// ErrUnknownType is returned when a queried type is not in the universe.
var ErrUnknownType = errors.New("unknown type")

// Service runs generations and queries.
type Service struct {
	config *config.Config
	cache  *cache.Cache
}

// Option configures a Service.
type Option func(*Service)

// WithConfig sets the configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		s.config = cfg
	}
}

// WithCache sets the decoded-file cache.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// New creates a service. Without WithCache the cache described by the
// configuration is opened; failing to open it only disables caching.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	if s.config == nil {
		s.config = config.LoadOrDefault()
	}
	if s.cache == nil && s.config.Cache.Enabled {
		c, err := cache.New(s.config.Cache.Dir, s.config.Cache.TTL, true)
		if err != nil {
			log.WithError(err).Warn("cache disabled")
		} else {
			s.cache = c
		}
	}
	return s
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config {
	return s.config
}

// GenerateOptions configures a generation run.
type GenerateOptions struct {
	// OutputDir receives the model; empty skips emission.
	OutputDir string
	// OnLoad is called after each input file is decoded.
	OnLoad func()
	// OnBody is called after each synthesized member body.
	OnBody func()
}

// NewSession opens a session with the service's configuration and cache.
func (s *Service) NewSession(onLoad, onBody func()) *session.Session {
	opts := []session.Option{session.WithCache(s.cache)}
	if onLoad != nil {
		opts = append(opts, session.WithLoadProgress(onLoad))
	}
	if onBody != nil {
		opts = append(opts, session.WithBodyProgress(onBody))
	}
	return session.New(s.config, opts...)
}

// Generate runs the whole pipeline over paths.
func (s *Service) Generate(ctx context.Context, paths []string, opts GenerateOptions) (*session.Report, error) {
	return s.NewSession(opts.OnLoad, opts.OnBody).Run(ctx, paths, opts.OutputDir)
}

// Load reads the universe and builds the hierarchy without synthesizing.
func (s *Service) Load(ctx context.Context, paths []string) (*session.Session, error) {
	sess := s.NewSession(nil, nil)
	if err := sess.Load(ctx, paths); err != nil {
		return nil, err
	}
	return sess, nil
}

// TypeInfo describes one type in a query result.
type TypeInfo struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Provenance string `json:"provenance"`
	Abstract   bool   `json:"abstract,omitempty"`
	Phantom    bool   `json:"phantom,omitempty"`
}

func typeInfo(t *jvm.Type) TypeInfo {
	return TypeInfo{
		Name:       t.Name,
		Kind:       t.Kind.String(),
		Provenance: t.Provenance.String(),
		Abstract:   t.IsAbstract(),
		Phantom:    t.Phantom,
	}
}

func typeInfos(ts []*jvm.Type) []TypeInfo {
	out := make([]TypeInfo, len(ts))
	for i, t := range ts {
		out[i] = typeInfo(t)
	}
	return out
}

// Subtypes returns the strict subtypes of class.
func (s *Service) Subtypes(ctx context.Context, paths []string, class string) ([]TypeInfo, error) {
	return s.related(ctx, paths, class, func(sess *session.Session, t *jvm.Type) []*jvm.Type {
		return sess.Hierarchy().SubtypesOf(t)
	})
}

// Supertypes returns the strict supertypes of class, superclasses first.
func (s *Service) Supertypes(ctx context.Context, paths []string, class string) ([]TypeInfo, error) {
	return s.related(ctx, paths, class, func(sess *session.Session, t *jvm.Type) []*jvm.Type {
		return sess.Hierarchy().SupertypesOf(t)
	})
}

func (s *Service) related(ctx context.Context, paths []string, class string, query func(*session.Session, *jvm.Type) []*jvm.Type) ([]TypeInfo, error) {
	sess, err := s.Load(ctx, paths)
	if err != nil {
		return nil, err
	}
	t := sess.Hierarchy().Type(jvm.ClassName(class))
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, class)
	}
	return typeInfos(query(sess, t)), nil
}

// Classification is the provenance of one named type.
type Classification struct {
	Name       string `json:"name"`
	Known      bool   `json:"known"`
	Provenance string `json:"provenance,omitempty"`
	Kind       string `json:"kind,omitempty"`
}

// Classify reports the provenance of each name. Unknown names are listed with
// Known false.
func (s *Service) Classify(ctx context.Context, paths, names []string) ([]Classification, error) {
	sess, err := s.Load(ctx, paths)
	if err != nil {
		return nil, err
	}
	h := sess.Hierarchy()
	out := make([]Classification, 0, len(names))
	for _, name := range names {
		name = jvm.ClassName(name)
		c := Classification{Name: name}
		if t := h.Type(name); t != nil {
			c.Known = true
			c.Provenance = h.Classify(t).String()
			c.Kind = t.Kind.String()
		}
		out = append(out, c)
	}
	return out, nil
}

// EntryPoint describes one detected entry point.
type EntryPoint struct {
	Class    string   `json:"class"`
	Contract string   `json:"contract,omitempty"`
	Tag      string   `json:"tag"`
	Methods  []string `json:"methods,omitempty"`
}

// EntryPoints runs entry-point detection over paths.
func (s *Service) EntryPoints(ctx context.Context, paths []string) ([]EntryPoint, error) {
	sess, err := s.Load(ctx, paths)
	if err != nil {
		return nil, err
	}
	m, err := sess.DetectEntryPoints()
	if err != nil {
		return nil, err
	}
	out := make([]EntryPoint, 0, len(m.Entries))
	for _, e := range m.Entries {
		out = append(out, entryPoint(e))
	}
	return out, nil
}

func entryPoint(e entrypoint.Entry) EntryPoint {
	ep := EntryPoint{Class: e.Class.Name, Tag: e.Tag.String()}
	if e.Contract != nil {
		ep.Contract = e.Contract.Name
	}
	for _, meth := range e.Methods {
		ep.Methods = append(ep.Methods, meth.Signature())
	}
	return ep
}

// ClassReport is what a loaded universe says about one class.
type ClassReport struct {
	Type       TypeInfo    `json:"type"`
	Supertypes []TypeInfo  `json:"supertypes"`
	EntryPoint *EntryPoint `json:"entry_point,omitempty"`
}

// Describe loads paths once and reports the provenance, supertypes and
// entry-point detection of class.
func (s *Service) Describe(ctx context.Context, paths []string, class string) (*ClassReport, error) {
	sess, err := s.Load(ctx, paths)
	if err != nil {
		return nil, err
	}
	h := sess.Hierarchy()
	t := h.Type(jvm.ClassName(class))
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, class)
	}
	rep := &ClassReport{Type: typeInfo(t), Supertypes: typeInfos(h.SupertypesOf(t))}
	rep.Type.Provenance = h.Classify(t).String()

	m, err := sess.DetectEntryPoints()
	if err != nil {
		return nil, err
	}
	if e := m.Entry(t); e != nil {
		ep := entryPoint(*e)
		rep.EntryPoint = &ep
	}
	return rep, nil
}
