// Package config loads the optional .truss.yml configuration that enables,
// disables and re-grades rules and lists files to skip.
//
//	rules:
//	  runner_label:
//	    enabled: false
//	  step_name:
//	    severity: info
//	ignore:
//	  - "vendor/**"
//	  - "**/generated-*.yml"
//
// The same shape may be written in TOML as .truss.toml. A Config never
// changes how a rule computes its findings: it implements
// validation.Overrides and is applied to the finished result.
package config

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/JuanMarchetto/truss/pkg/logger"
	"github.com/JuanMarchetto/truss/pkg/validation"
)

var configLog = logger.New("config:config")

// RuleConfig is the per-rule section of the configuration.
type RuleConfig struct {
	// Enabled defaults to true when omitted.
	Enabled  *bool  `json:"enabled,omitempty"`
	Severity string `json:"severity,omitempty"`
}

// Config is a loaded configuration. The zero value and a nil *Config both
// enable every rule and ignore nothing.
type Config struct {
	Rules  map[string]RuleConfig `json:"rules,omitempty"`
	Ignore []string              `json:"ignore,omitempty"`

	// Path is the file the configuration was read from, empty when none was.
	Path string `json:"-"`

	severities map[string]validation.Severity
}

var _ validation.Overrides = (*Config)(nil)

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{}
}

// RuleEnabled implements validation.Overrides.
func (c *Config) RuleEnabled(name string) bool {
	if c == nil {
		return true
	}
	rule, ok := c.Rules[name]
	if !ok || rule.Enabled == nil {
		return true
	}
	return *rule.Enabled
}

// RuleSeverity implements validation.Overrides.
func (c *Config) RuleSeverity(name string) (validation.Severity, bool) {
	if c == nil {
		return validation.Error, false
	}
	s, ok := c.severities[name]
	return s, ok
}

// Dir returns the directory holding the configuration file, or "" for a
// configuration that was not read from a file.
func (c *Config) Dir() string {
	if c == nil || c.Path == "" {
		return ""
	}
	return filepath.Dir(c.Path)
}

// IsIgnored reports whether path matches one of the ignore globs. Patterns
// are matched against the slash-separated path relative to the
// configuration's directory and against path as given.
func (c *Config) IsIgnored(path string) bool {
	if c == nil || len(c.Ignore) == 0 {
		return false
	}
	candidates := []string{filepath.ToSlash(path)}
	if rel, ok := c.relative(path); ok {
		candidates = append(candidates, rel)
	}

	for _, pattern := range c.Ignore {
		for _, candidate := range candidates {
			if matched, err := doublestar.Match(pattern, candidate); err == nil && matched {
				configLog.Printf("Path %s ignored by pattern %s", path, pattern)
				return true
			}
		}
	}
	return false
}

// relative returns path relative to the configuration's directory when
// path lies inside it.
func (c *Config) relative(path string) (string, bool) {
	dir := c.Dir()
	if dir == "" {
		return "", false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
