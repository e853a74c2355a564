package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-yaml"

	"github.com/JuanMarchetto/truss/pkg/constants"
	"github.com/JuanMarchetto/truss/pkg/fileutil"
	"github.com/JuanMarchetto/truss/pkg/logger"
	"github.com/JuanMarchetto/truss/pkg/validation"
	"github.com/JuanMarchetto/truss/pkg/workflow"
)

var loadLog = logger.New("config:load")

// Options selects how Resolve finds the configuration.
type Options struct {
	// Path is an explicit configuration file. It disables discovery.
	Path string
	// Disabled skips configuration entirely.
	Disabled bool
	// StartDir is where discovery begins. Defaults to the working directory.
	StartDir string
}

// Resolve returns the configuration selected by opts: the explicit file,
// the first file found walking up from StartDir, or Default.
func Resolve(opts Options) (*Config, error) {
	if opts.Disabled {
		loadLog.Print("Configuration disabled")
		return Default(), nil
	}
	if opts.Path != "" {
		return Load(opts.Path)
	}

	start := opts.StartDir
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		start = wd
	}
	path, found := Discover(start)
	if !found {
		loadLog.Printf("No configuration found from %s", start)
		return Default(), nil
	}
	return Load(path)
}

// Discover walks up from startDir to the filesystem root and returns the
// first configuration file found.
func Discover(startDir string) (string, bool) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false
	}
	for {
		for _, name := range constants.ConfigFileNames {
			candidate := filepath.Join(dir, name)
			if fileutil.FileExists(candidate) {
				loadLog.Printf("Discovered configuration %s", candidate)
				return candidate, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config '%s': %w", path, err)
	}
	cfg, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("invalid config '%s': %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Format is the syntax of a configuration file.
type Format int

const (
	FormatYAML Format = iota
	FormatTOML
)

func formatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// Parse decodes data, validates it against the configuration schema and
// checks rule names, severities and ignore patterns. All problems are
// reported together.
func Parse(data []byte, format Format) (*Config, error) {
	raw, err := decode(data, format)
	if err != nil {
		return nil, err
	}

	// Round-trip through JSON so the schema sees plain JSON values whatever
	// the source syntax produced.
	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to convert config to JSON: %w", err)
	}
	var instance any
	if err := json.Unmarshal(normalized, &instance); err != nil {
		return nil, fmt.Errorf("failed to convert config to JSON: %w", err)
	}

	collector := NewErrorCollector(false)
	if err := validateSchema(instance, collector); err != nil {
		return nil, err
	}
	if collector.HasErrors() {
		return nil, collector.FormattedError("configuration")
	}

	var cfg Config
	if err := json.Unmarshal(normalized, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.check(collector); err != nil {
		return nil, err
	}
	if collector.HasErrors() {
		return nil, collector.FormattedError("configuration")
	}
	loadLog.Printf("Parsed configuration: %d rules, %d ignore patterns", len(cfg.Rules), len(cfg.Ignore))
	return &cfg, nil
}

func decode(data []byte, format Format) (map[string]any, error) {
	raw := map[string]any{}
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	default:
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		switch v := doc.(type) {
		case nil:
		case map[string]any:
			raw = v
		default:
			return nil, &ValidationError{Reason: fmt.Sprintf("configuration must be a mapping, got %T", doc)}
		}
	}
	return raw, nil
}

// KnownRuleNames lists every rule id a configuration may name.
func KnownRuleNames() []string {
	return append(workflow.RuleNames(), workflow.ActionlintRuleName)
}

// check validates rule names, severities and ignore globs, and resolves the
// severity overrides.
func (c *Config) check(collector *ErrorCollector) error {
	known := KnownRuleNames()
	names := make([]string, 0, len(c.Rules))
	for name := range c.Rules {
		names = append(names, name)
	}
	slices.Sort(names)

	c.severities = make(map[string]validation.Severity)
	for _, name := range names {
		if !slices.Contains(known, name) {
			err := collector.Add(&ValidationError{
				Field:      "rules." + name,
				Value:      name,
				Reason:     "unknown rule",
				Suggestion: "known rules: " + strings.Join(known, ", "),
			})
			if err != nil {
				return err
			}
			continue
		}
		text := c.Rules[name].Severity
		if text == "" {
			continue
		}
		severity, err := validation.ParseSeverity(text)
		if err != nil {
			if err := collector.Add(&ValidationError{
				Field:      "rules." + name + ".severity",
				Value:      text,
				Reason:     "invalid severity",
				Suggestion: "must be one of error, warning, info",
			}); err != nil {
				return err
			}
			continue
		}
		c.severities[name] = severity
	}

	for i, pattern := range c.Ignore {
		if doublestar.ValidatePattern(pattern) {
			continue
		}
		if err := collector.Add(&ValidationError{
			Field:  fmt.Sprintf("ignore.%d", i),
			Value:  pattern,
			Reason: "invalid glob pattern",
		}); err != nil {
			return err
		}
	}
	return nil
}
