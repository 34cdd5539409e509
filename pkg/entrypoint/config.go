// Package entrypoint turns framework configuration and annotations into the
// Entry-Point Map, and the map into ordered driver steps.
package entrypoint

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/panbanda/libmodel/pkg/jvm"
)

// Framework selects the entry-point detector.
type Framework int

const (
	Default Framework = iota
	Android
	Spring
)

func (f Framework) String() string {
	switch f {
	case Android:
		return "ANDROID"
	case Spring:
		return "SPRING"
	default:
		return "DEFAULT"
	}
}

// ParseFramework accepts the framework names case-insensitively. The empty
// string selects Default.
func ParseFramework(s string) (Framework, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "DEFAULT":
		return Default, nil
	case "ANDROID":
		return Android, nil
	case "SPRING":
		return Spring, nil
	}
	return Default, fmt.Errorf("unknown framework %q (want default, android or spring)", s)
}

// Configuration file names inside the entry-point config directory.
const (
	ClassesFile       = "EntryPointClasses.txt"
	MethodsFile       = "EntryPointMethods.txt"
	CreateObjectsFile = "CreateObjects.txt"
	ProvidersFile     = "ObjectProviders.txt"
)

// Grouped holds the signatures of one configuration file by framework.
type Grouped map[Framework][]string

// Settings are the four configuration files.
type Settings struct {
	Classes       Grouped
	Methods       Grouped
	CreateObjects Grouped
	Providers     Grouped
}

// Selection is the part of Settings that applies to one framework.
type Selection struct {
	Classes       []string
	Methods       []string
	CreateObjects []string
	Providers     []string
}

// For returns the signatures configured for f.
func (s Settings) For(f Framework) Selection {
	return Selection{
		Classes:       s.Classes[f],
		Methods:       s.Methods[f],
		CreateObjects: s.CreateObjects[f],
		Providers:     s.Providers[f],
	}
}

// ParseGrouped reads "signature_KIND" lines. The kind is the text after the
// last underscore. Lines without a known kind are skipped, blank lines and
// '#' comments are ignored. Signatures are deduplicated and sorted per kind.
func ParseGrouped(r io.Reader) (Grouped, error) {
	out := make(Grouped)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i := strings.LastIndexByte(line, '_')
		if i <= 0 {
			continue
		}
		kind, err := ParseFramework(line[i+1:])
		if err != nil {
			continue
		}
		sig := jvm.ClassName(strings.TrimSpace(line[:i]))
		out[kind] = append(out[kind], sig)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	for k, sigs := range out {
		slices.Sort(sigs)
		out[k] = slices.Compact(sigs)
	}
	return out, nil
}

// LoadSettings reads the configuration files from dir. Missing files count
// as empty.
func LoadSettings(dir string) (Settings, error) {
	var s Settings
	targets := []struct {
		name string
		dst  *Grouped
	}{
		{ClassesFile, &s.Classes},
		{MethodsFile, &s.Methods},
		{CreateObjectsFile, &s.CreateObjects},
		{ProvidersFile, &s.Providers},
	}
	for _, t := range targets {
		g, err := loadGrouped(filepath.Join(dir, t.name))
		if err != nil {
			return Settings{}, fmt.Errorf("reading %s: %w", t.name, err)
		}
		*t.dst = g
	}
	return s, nil
}

func loadGrouped(path string) (Grouped, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Grouped{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseGrouped(f)
}
