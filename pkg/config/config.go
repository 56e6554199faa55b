package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Errors returned while loading or validating configuration.
var (
	ErrInvalidPercentage = errors.New("invalid percentage")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// Formats accepted by output.format.
var Formats = []string{"text", "json", "yaml", "markdown", "toon"}

//go:embed schema.json
var schemaJSON []byte

// Config holds all configuration options for cohesion.
type Config struct {
	Analysis AnalysisConfig `koanf:"analysis" toml:"analysis" json:"analysis" yaml:"analysis"`
	Lint     LintConfig     `koanf:"lint" toml:"lint" json:"lint" yaml:"lint"`
	Exclude  ExcludeConfig  `koanf:"exclude" toml:"exclude" json:"exclude" yaml:"exclude"`
	Cache    CacheConfig    `koanf:"cache" toml:"cache" json:"cache" yaml:"cache"`
	Output   OutputConfig   `koanf:"output" toml:"output" json:"output" yaml:"output"`
}

// AnalysisConfig controls how classes are extracted.
type AnalysisConfig struct {
	// BoundName is the receiver parameter that marks instance methods.
	BoundName   string `koanf:"bound_name" toml:"bound_name" json:"bound_name" yaml:"bound_name"`
	Jobs        int    `koanf:"jobs" toml:"jobs" json:"jobs" yaml:"jobs"`                            // 0 = 2x NumCPU
	MaxFileSize int64  `koanf:"max_file_size" toml:"max_file_size" json:"max_file_size" yaml:"max_file_size"` // bytes, 0 = no limit
}

// LintConfig controls lint findings.
type LintConfig struct {
	Threshold float64 `koanf:"threshold" toml:"threshold" json:"threshold" yaml:"threshold"`
	Code      string  `koanf:"code" toml:"code" json:"code" yaml:"code"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns" json:"patterns" yaml:"patterns"`
	Dirs      []string `koanf:"dirs" toml:"dirs" json:"dirs" yaml:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore" json:"gitignore" yaml:"gitignore"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled" json:"enabled" yaml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir" json:"dir" yaml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl" json:"ttl" yaml:"ttl"` // TTL in hours, 0 = never expire
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format" toml:"format" json:"format" yaml:"format"`
	Color   bool   `koanf:"color" toml:"color" json:"color" yaml:"color"`
	Verbose bool   `koanf:"verbose" toml:"verbose" json:"verbose" yaml:"verbose"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			BoundName: "self",
		},
		Lint: LintConfig{
			Threshold: 50.0,
			Code:      "C501",
		},
		Exclude: ExcludeConfig{
			Patterns: []string{},
			Dirs: []string{
				".git",
				".cohesion",
				"__pycache__",
				".venv",
				".tox",
			},
			Gitignore: false,
		},
		Cache: CacheConfig{
			Enabled: false,
			Dir:     ".cohesion/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// Load loads configuration from a file, layered over the defaults, and
// validates it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = kjson.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	if err := validateSchema(k.Raw()); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// configNames are searched, in order, in each of searchDirs.
var (
	configNames = []string{
		"cohesion.toml",
		"cohesion.yaml",
		"cohesion.yml",
		"cohesion.json",
		".cohesion.toml",
		".cohesion.yaml",
		".cohesion.yml",
		".cohesion.json",
	}
	searchDirs = []string{".", ".cohesion"}
)

// Find returns the first config file found in the standard locations under
// root, or "" if there is none.
func Find(root string) string {
	for _, dir := range searchDirs {
		for _, name := range configNames {
			path := filepath.Join(root, dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault loads path if given, otherwise the first config found in the
// current directory, otherwise the defaults. The returned path is the file
// that was loaded, or "".
func LoadOrDefault(path string) (*Config, string, error) {
	if path == "" {
		path = Find(".")
	}
	if path == "" {
		return DefaultConfig(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// ParsePercentage parses a threshold given on the command line.
func ParsePercentage(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !inPercentRange(v) {
		return 0, fmt.Errorf("%w %q please specify a number between 0 and 100", ErrInvalidPercentage, s)
	}
	return v, nil
}

// Validate checks values the schema cannot express, and those set after
// loading.
func (c *Config) Validate() error {
	if !inPercentRange(c.Lint.Threshold) {
		return fmt.Errorf("lint.threshold: %w %q please specify a number between 0 and 100",
			ErrInvalidPercentage, strconv.FormatFloat(c.Lint.Threshold, 'f', -1, 64))
	}
	if !isFormat(c.Output.Format) {
		return fmt.Errorf("%w: output.format %q is not one of %s",
			ErrInvalidConfig, c.Output.Format, strings.Join(Formats, ", "))
	}
	if c.Analysis.Jobs < 0 {
		return fmt.Errorf("%w: analysis.jobs must not be negative", ErrInvalidConfig)
	}
	return nil
}

// inPercentRange is false for NaN.
func inPercentRange(v float64) bool {
	return v >= 0 && v <= 100
}

func isFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

func validateSchema(raw map[string]any) error {
	compiler := jsonschema.NewCompiler()
	schemaDoc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return fmt.Errorf("failed to read config schema: %w", err)
	}
	if err := compiler.AddResource("cohesion.schema.json", schemaDoc); err != nil {
		return fmt.Errorf("failed to add config schema: %w", err)
	}
	schema, err := compiler.Compile("cohesion.schema.json")
	if err != nil {
		return fmt.Errorf("failed to compile config schema: %w", err)
	}

	if lint, ok := raw["lint"].(map[string]any); ok {
		if v, ok := lint["threshold"].(float64); ok && !inPercentRange(v) {
			return fmt.Errorf("lint.threshold: %w %q please specify a number between 0 and 100",
				ErrInvalidPercentage, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}

	// Round-trip through JSON so every parser's value types look alike.
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := schema.Validate(inst); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) && isPercentageViolation(verr) {
			return fmt.Errorf("lint.threshold: %w: %v", ErrInvalidPercentage, err)
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// isPercentageViolation reports whether the failure is at lint.threshold.
func isPercentageViolation(verr *jsonschema.ValidationError) bool {
	loc := strings.Join(verr.InstanceLocation, "/")
	if loc == "lint/threshold" {
		return true
	}
	for _, cause := range verr.Causes {
		if isPercentageViolation(cause) {
			return true
		}
	}
	return false
}

// ShouldExclude checks if a path should be excluded from analysis.
func (c *Config) ShouldExclude(path string) bool {
	sep := string(filepath.Separator)
	for _, dir := range c.Exclude.Dirs {
		if strings.Contains(path, sep+dir+sep) || strings.HasPrefix(path, dir+sep) {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, filepath.ToSlash(path)); matched {
			return true
		}
	}
	return false
}
