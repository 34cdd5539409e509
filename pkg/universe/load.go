package universe

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/panbanda/libmodel/internal/cache"
	"github.com/panbanda/libmodel/internal/fileproc"
	"github.com/panbanda/libmodel/pkg/jvm"
)

//go:embed platform.yaml
var platformYAML []byte

// Platform returns the built-in minimal platform runtime document.
func Platform() *Document {
	doc, err := Decode(platformYAML, YAML)
	if err != nil {
		panic(fmt.Sprintf("embedded platform document: %v", err))
	}
	return doc
}

// DecodeFunc turns file contents into a document.
type DecodeFunc func(path string, data []byte) (*Document, error)

// Loader reads universe files concurrently. YAML and JSON documents are
// built in; other extensions need a registered decoder.
type Loader struct {
	Rules *Rules
	Cache *cache.Cache
	// Platform prepends the types of the built-in platform document that no
	// loaded file declares.
	Platform   bool
	Workers    int
	OnProgress fileproc.ProgressFunc

	decoders map[string]DecodeFunc
}

// NewLoader returns a loader for YAML and JSON documents.
func NewLoader(rules *Rules) *Loader {
	l := &Loader{Rules: rules, decoders: make(map[string]DecodeFunc)}
	structured := func(path string, data []byte) (*Document, error) {
		return Decode(data, FormatOf(path))
	}
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		l.decoders[ext] = structured
	}
	return l
}

// Register installs a decoder for a file extension such as ".java".
func (l *Loader) Register(ext string, fn DecodeFunc) {
	l.decoders[strings.ToLower(ext)] = fn
}

// Supports reports whether path has a registered decoder.
func (l *Loader) Supports(path string) bool {
	_, ok := l.decoders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Expand replaces directories in paths by the supported files below them,
// sorted. Files are kept in argument order.
func (l *Loader) Expand(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && path != p && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if !d.IsDir() && l.Supports(path) {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Load decodes every file and returns the types in argument order, the
// built-in platform types first. The hierarchy keeps the first declaration of a
// duplicated name. Files that fail to load are reported in the returned
// LoadErrors and contribute nothing.
func (l *Loader) Load(ctx context.Context, files []string) ([]*jvm.Type, *fileproc.LoadErrors) {
	docs, errs := fileproc.Map(ctx, files, fileproc.Options{Workers: l.Workers, OnProgress: l.OnProgress},
		func(_ context.Context, path string) ([]*jvm.Type, error) {
			doc, err := l.decode(path)
			if err != nil {
				return nil, err
			}
			return doc.Convert(l.Rules)
		})

	var loaded []*jvm.Type
	declared := make(map[string]bool)
	for _, ts := range docs {
		for _, t := range ts {
			declared[t.Name] = true
		}
		loaded = append(loaded, ts...)
	}

	var types []*jvm.Type
	if l.Platform {
		pt, err := Platform().Convert(nil)
		if err != nil {
			panic(fmt.Sprintf("embedded platform document: %v", err))
		}
		for _, t := range pt {
			if !declared[t.Name] {
				types = append(types, t)
			}
		}
	}
	types = append(types, loaded...)
	log.WithFields(log.Fields{"files": len(files), "types": len(types), "failed": len(errsOf(errs))}).Debug("universe loaded")
	return types, errs
}

func errsOf(e *fileproc.LoadErrors) []fileproc.LoadError {
	if !e.HasErrors() {
		return nil
	}
	return e.Sorted()
}

// decode reads path and decodes it, going through the cache when one is set.
// Cached payloads are JSON documents.
func (l *Loader) decode(path string) (*Document, error) {
	fn, ok := l.decoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("no decoder for %s files", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if raw, hit := l.Cache.Get(path, data); hit {
		var doc Document
		if err := json.Unmarshal(raw, &doc); err == nil {
			return &doc, nil
		}
	}
	doc, err := fn(path, data)
	if err != nil {
		return nil, err
	}
	if l.Cache.Enabled() {
		if raw, err := json.Marshal(doc); err == nil {
			if err := l.Cache.Put(path, data, raw); err != nil {
				log.WithError(err).WithField("path", path).Debug("cache write failed")
			}
		}
	}
	return doc, nil
}
