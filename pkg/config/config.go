package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for libmodel.
type Config struct {
	// Synthesis controls the shape of the generated model.
	Synthesis SynthesisConfig `koanf:"synthesis" toml:"synthesis"`

	// Reflection facts and dynamic classes.
	Reflection ReflectionConfig `koanf:"reflection" toml:"reflection"`

	// EntryPoints selects the entry-point detector.
	EntryPoints EntryPointConfig `koanf:"entry_points" toml:"entry_points"`

	// Input partitions the universe into application and library.
	Input InputConfig `koanf:"input" toml:"input"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`
}

// SynthesisConfig controls the synthesizer.
type SynthesisConfig struct {
	GuardsEnabled  bool   `koanf:"guards_enabled" toml:"guards_enabled"`
	ThrowEnabled   bool   `koanf:"throw_enabled" toml:"throw_enabled"`
	ThrowPlacement string `koanf:"throw_placement" toml:"throw_placement"` // after, interleaved
	Workers        int    `koanf:"workers" toml:"workers"`                 // 0 = NumCPU
	CraftedSuffix  string `koanf:"crafted_suffix" toml:"crafted_suffix"`
}

// ReflectionConfig points at the reflection facts.
type ReflectionConfig struct {
	TamiflexEnabled       bool   `koanf:"tamiflex_enabled" toml:"tamiflex_enabled"`
	ReflLog               string `koanf:"refl_log" toml:"refl_log"`
	DynamicClassesEnabled bool   `koanf:"dynamic_classes_enabled" toml:"dynamic_classes_enabled"`
	DynamicClassesFile    string `koanf:"dynamic_classes_file" toml:"dynamic_classes_file"`
}

// EntryPointConfig selects the detector and its configuration files.
type EntryPointConfig struct {
	Framework string `koanf:"framework" toml:"framework"` // default, android, spring
	ConfigDir string `koanf:"config_dir" toml:"config_dir"`
	MainClass string `koanf:"main_class" toml:"main_class"`
}

// InputConfig decides which types are application code.
type InputConfig struct {
	// ApplicationPatterns are class rules: pkg.*, pkg.**, ** or exact names.
	ApplicationPatterns []string `koanf:"application_patterns" toml:"application_patterns"`
	// PlatformPrefixes name the packages of the platform runtime.
	PlatformPrefixes []string `koanf:"platform_prefixes" toml:"platform_prefixes"`
}

// OutputConfig controls emission.
type OutputConfig struct {
	Dir    string `koanf:"dir" toml:"dir"`
	Format string `koanf:"format" toml:"format"` // text, json, markdown, toon

	IncludeLibraryClassesFromPlatformRuntime bool `koanf:"include_library_classes_from_platform_runtime" toml:"include_library_classes_from_platform_runtime"`
}

// CacheConfig controls caching of decoded source files.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Synthesis: SynthesisConfig{
			GuardsEnabled:  true,
			ThrowEnabled:   true,
			ThrowPlacement: "after",
			CraftedSuffix:  "__Model",
		},
		Reflection: ReflectionConfig{
			ReflLog:            "refl.log",
			DynamicClassesFile: "dynamic-classes.txt",
		},
		EntryPoints: EntryPointConfig{
			Framework: "default",
		},
		Input: InputConfig{
			PlatformPrefixes: []string{"java.", "javax.", "jdk.", "sun.", "com.sun."},
		},
		Output: OutputConfig{
			Dir:    "libmodel-out",
			Format: "text",
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".libmodel/cache",
			TTL:     24,
		},
	}
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	var problems []string
	switch c.Synthesis.ThrowPlacement {
	case "", "after", "interleaved":
	default:
		problems = append(problems, fmt.Sprintf("synthesis.throw_placement %q must be after or interleaved", c.Synthesis.ThrowPlacement))
	}
	if c.Synthesis.Workers < 0 {
		problems = append(problems, "synthesis.workers must not be negative")
	}
	if strings.ContainsAny(c.Synthesis.CraftedSuffix, ". /") {
		problems = append(problems, fmt.Sprintf("synthesis.crafted_suffix %q must be a valid identifier part", c.Synthesis.CraftedSuffix))
	}
	switch strings.ToLower(c.EntryPoints.Framework) {
	case "", "default", "android", "spring":
	default:
		problems = append(problems, fmt.Sprintf("entry_points.framework %q must be default, android or spring", c.EntryPoints.Framework))
	}
	switch c.Output.Format {
	case "", "text", "json", "markdown", "toon":
	default:
		problems = append(problems, fmt.Sprintf("output.format %q is not supported", c.Output.Format))
	}
	if c.Cache.TTL < 0 {
		problems = append(problems, "cache.ttl must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Load loads configuration from a file over the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

// configNames are searched in order in each search directory.
var configNames = []string{
	"libmodel.toml",
	"libmodel.yaml",
	"libmodel.yml",
	"libmodel.json",
	".libmodel.toml",
	".libmodel.yaml",
	".libmodel.yml",
	".libmodel.json",
}

var searchDirs = []string{".", ".libmodel"}

// LoadResult is a loaded configuration and the file it came from. Source is
// empty when the defaults were used.
type LoadResult struct {
	Config *Config
	Source string
}

type loadOptions struct {
	path string
	dirs []string
}

// LoadOption customizes LoadConfig.
type LoadOption func(*loadOptions)

// WithPath loads exactly this file instead of searching.
func WithPath(path string) LoadOption {
	return func(o *loadOptions) { o.path = path }
}

// WithSearchDirs replaces the directories searched for a config file.
func WithSearchDirs(dirs ...string) LoadOption {
	return func(o *loadOptions) { o.dirs = dirs }
}

// LoadConfig loads and validates the configuration. Without WithPath the
// first config file found in the search directories is used; when none
// exists the defaults are returned.
func LoadConfig(opts ...LoadOption) (*LoadResult, error) {
	o := loadOptions{dirs: searchDirs}
	for _, opt := range opts {
		opt(&o)
	}

	path := o.path
	if path == "" {
		path = find(o.dirs)
	}
	if path == "" {
		return &LoadResult{Config: DefaultConfig()}, nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &LoadResult{Config: cfg, Source: path}, nil
}

func find(dirs []string) string {
	for _, dir := range dirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault tries to load config from standard locations or returns defaults.
func LoadOrDefault() *Config {
	res, err := LoadConfig()
	if err != nil {
		return DefaultConfig()
	}
	return res.Config
}

// IsPlatformClass reports whether name belongs to one of the platform
// runtime packages.
func (c *Config) IsPlatformClass(name string) bool {
	for _, p := range c.Input.PlatformPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
