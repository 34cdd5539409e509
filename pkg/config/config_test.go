package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig() returned nil")
	}

	if !cfg.Synthesis.GuardsEnabled {
		t.Error("Synthesis.GuardsEnabled should be true by default")
	}
	if !cfg.Synthesis.ThrowEnabled {
		t.Error("Synthesis.ThrowEnabled should be true by default")
	}
	if cfg.Synthesis.ThrowPlacement != "after" {
		t.Errorf("Synthesis.ThrowPlacement = %q, want after", cfg.Synthesis.ThrowPlacement)
	}
	if cfg.Synthesis.CraftedSuffix != "__Model" {
		t.Errorf("Synthesis.CraftedSuffix = %q, want __Model", cfg.Synthesis.CraftedSuffix)
	}
	if cfg.Reflection.TamiflexEnabled || cfg.Reflection.DynamicClassesEnabled {
		t.Error("reflection support should be disabled by default")
	}
	if cfg.EntryPoints.Framework != "default" {
		t.Errorf("EntryPoints.Framework = %q, want default", cfg.EntryPoints.Framework)
	}
	if cfg.Output.IncludeLibraryClassesFromPlatformRuntime {
		t.Error("platform classes should be filtered by default")
	}
	if cfg.Cache.TTL != 24 {
		t.Errorf("Cache.TTL = %d, want 24", cfg.Cache.TTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "libmodel.toml")

	content := `
[synthesis]
guards_enabled = false
throw_placement = "interleaved"
workers = 4

[reflection]
tamiflex_enabled = true
refl_log = "out/refl.log"

[entry_points]
framework = "android"

[input]
application_patterns = ["com.example.**"]

[cache]
enabled = false
`

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Synthesis.GuardsEnabled {
		t.Error("Synthesis.GuardsEnabled should be false")
	}
	if cfg.Synthesis.ThrowPlacement != "interleaved" {
		t.Errorf("Synthesis.ThrowPlacement = %q, want interleaved", cfg.Synthesis.ThrowPlacement)
	}
	if cfg.Synthesis.Workers != 4 {
		t.Errorf("Synthesis.Workers = %d, want 4", cfg.Synthesis.Workers)
	}
	if !cfg.Synthesis.ThrowEnabled {
		t.Error("unset keys should keep their defaults")
	}
	if !cfg.Reflection.TamiflexEnabled || cfg.Reflection.ReflLog != "out/refl.log" {
		t.Errorf("Reflection = %+v", cfg.Reflection)
	}
	if cfg.EntryPoints.Framework != "android" {
		t.Errorf("EntryPoints.Framework = %q, want android", cfg.EntryPoints.Framework)
	}
	if len(cfg.Input.ApplicationPatterns) != 1 || cfg.Input.ApplicationPatterns[0] != "com.example.**" {
		t.Errorf("Input.ApplicationPatterns = %v", cfg.Input.ApplicationPatterns)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled should be false")
	}
}

func TestLoadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "libmodel.yaml")

	content := `
synthesis:
  throw_enabled: false
entry_points:
  framework: spring
  main_class: com.example.Main
output:
  format: markdown
  include_library_classes_from_platform_runtime: true
`

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Synthesis.ThrowEnabled {
		t.Error("Synthesis.ThrowEnabled should be false")
	}
	if cfg.EntryPoints.MainClass != "com.example.Main" {
		t.Errorf("EntryPoints.MainClass = %q", cfg.EntryPoints.MainClass)
	}
	if cfg.Output.Format != "markdown" {
		t.Errorf("Output.Format = %s, want markdown", cfg.Output.Format)
	}
	if !cfg.Output.IncludeLibraryClassesFromPlatformRuntime {
		t.Error("Output.IncludeLibraryClassesFromPlatformRuntime should be true")
	}
}

func TestLoadJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "libmodel.json")

	content := `{
  "reflection": {
    "dynamic_classes_enabled": true,
    "dynamic_classes_file": "dyn.txt"
  },
  "output": {
    "format": "json"
  }
}`

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if !cfg.Reflection.DynamicClassesEnabled || cfg.Reflection.DynamicClassesFile != "dyn.txt" {
		t.Errorf("Reflection = %+v", cfg.Reflection)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Output.Format = %s, want json", cfg.Output.Format)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/libmodel.toml")
	if err == nil {
		t.Error("Load() should return error for non-existent file")
	}
}

func TestLoadInvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "libmodel.toml")

	content := `[synthesis
invalid toml`

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() should return error for invalid config")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"defaults", func(*Config) {}, true},
		{"interleaved", func(c *Config) { c.Synthesis.ThrowPlacement = "interleaved" }, true},
		{"bad placement", func(c *Config) { c.Synthesis.ThrowPlacement = "before" }, false},
		{"negative workers", func(c *Config) { c.Synthesis.Workers = -1 }, false},
		{"dotted suffix", func(c *Config) { c.Synthesis.CraftedSuffix = ".Model" }, false},
		{"framework case", func(c *Config) { c.EntryPoints.Framework = "SPRING" }, true},
		{"unknown framework", func(c *Config) { c.EntryPoints.Framework = "guice" }, false},
		{"toon output", func(c *Config) { c.Output.Format = "toon" }, true},
		{"unknown output", func(c *Config) { c.Output.Format = "xml" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() error: %v", err)
			}
			if !tt.valid {
				if err == nil {
					t.Fatal("Validate() should fail")
				}
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("Validate() error %v should wrap ErrInvalid", err)
				}
			}
		})
	}
}

func TestLoadConfigWithPathValidates(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "custom.toml")
	if err := os.WriteFile(configPath, []byte("[synthesis]\nthrow_placement = \"sideways\"\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := LoadConfig(WithPath(configPath)); !errors.Is(err, ErrInvalid) {
		t.Errorf("LoadConfig() error = %v, want ErrInvalid", err)
	}
}

func TestLoadConfigSearchesDirs(t *testing.T) {
	tmpDir := t.TempDir()
	hidden := filepath.Join(tmpDir, ".libmodel")
	if err := os.MkdirAll(hidden, 0755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(hidden, "libmodel.yml")
	if err := os.WriteFile(path, []byte("synthesis:\n  workers: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := LoadConfig(WithSearchDirs(tmpDir, hidden))
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if res.Source != path {
		t.Errorf("Source = %q, want %q", res.Source, path)
	}
	if res.Config.Synthesis.Workers != 2 {
		t.Errorf("Synthesis.Workers = %d, want 2", res.Config.Synthesis.Workers)
	}

	res, err = LoadConfig(WithSearchDirs(filepath.Join(tmpDir, "missing")))
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if res.Source != "" {
		t.Errorf("Source = %q, want empty", res.Source)
	}
}

func TestLoadOrDefault(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := LoadOrDefault()
	if cfg == nil {
		t.Fatal("LoadOrDefault() returned nil")
	}
	if cfg.Synthesis.Workers != 0 {
		t.Errorf("LoadOrDefault() returned non-default Workers: %d", cfg.Synthesis.Workers)
	}
}

func TestLoadOrDefaultWithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[synthesis]
workers = 7
`
	if err := os.WriteFile(filepath.Join(tmpDir, "libmodel.toml"), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Chdir(tmpDir)

	cfg := LoadOrDefault()
	if cfg.Synthesis.Workers != 7 {
		t.Errorf("LoadOrDefault() should load from file, got Workers=%d", cfg.Synthesis.Workers)
	}
}

func TestIsPlatformClass(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		want bool
	}{
		{"java.lang.Object", true},
		{"javax.swing.JFrame", true},
		{"sun.misc.Unsafe", true},
		{"com.sun.net.httpserver.HttpServer", true},
		{"com.example.App", false},
		{"javafoo.Bar", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.IsPlatformClass(tt.name); got != tt.want {
				t.Errorf("IsPlatformClass(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
