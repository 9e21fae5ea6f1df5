// Package config loads the analyzer's effective configuration from a YAML
// document. The resulting Config is an immutable value threaded explicitly
// through the core; there is no ambient singleton.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tanzil7890/schemarefly/internal/types"
)

// WarehouseConfig configures the optional Drift Detector connector. The
// `drift` command uses it for the connector, and `check` reads its type,
// database and schema for the template target; the core treats it as
// opaque dial/connection parameters.
type WarehouseConfig struct {
	Type     string `yaml:"type"`
	Database string `yaml:"database"`
	Schema   string `yaml:"schema"`
	Account  string `yaml:"account"`
	TTL      string `yaml:"ttl"`
}

// Config is the effective, immutable configuration threaded into the core.
type Config struct {
	Dialect           string            `yaml:"dialect"`
	Severities        map[string]string `yaml:"severities"`
	AllowWidening     []string          `yaml:"allow_widening"`
	AllowExtraColumns []string          `yaml:"allow_extra_columns"`
	SkipModels        []string          `yaml:"skip_models"`
	Vars              map[string]string `yaml:"vars"`
	Warehouse         *WarehouseConfig  `yaml:"warehouse"`
	Redact            bool              `yaml:"redact"`
}

// DefaultConfig returns the configuration used when no file is supplied.
func DefaultConfig() *Config {
	return &Config{
		Dialect:           "ansi",
		Severities:        map[string]string{},
		AllowWidening:     nil,
		AllowExtraColumns: nil,
		SkipModels:        nil,
		Warehouse:         nil,
		Redact:            false,
	}
}

// Load reads and parses a YAML config file at path. A missing file is not
// an error: it returns DefaultConfig(), matching the CLI's "no config file
// means defaults" contract.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// SeverityOverride resolves the configured severity override for code, if
// any. Overrides are applied at report-assembly time, never at diagnostic
// creation.
func (c *Config) SeverityOverride(code types.Code) (types.Severity, bool) {
	raw, ok := c.Severities[string(code)]
	if !ok {
		return 0, false
	}
	switch raw {
	case "error":
		return types.SeverityError, true
	case "warn", "warning":
		return types.SeverityWarning, true
	case "info":
		return types.SeverityInfo, true
	default:
		return 0, false
	}
}

// MatchesAny reports whether name matches any of the shell-glob patterns
// in globs. One matcher serves allow_widening, allow_extra_columns, and
// skip_models alike; all three are selector syntax and behave uniformly.
func MatchesAny(globs []string, name string) bool {
	for _, g := range globs {
		if ok, _ := filepath.Match(g, name); ok {
			return true
		}
	}
	return false
}

// AllowWideningFor reports whether node (by fully-qualified or short name)
// is covered by an allow_widening glob.
func (c *Config) AllowWideningFor(name string) bool { return MatchesAny(c.AllowWidening, name) }

// AllowExtraColumnsFor reports whether node is covered by an
// allow_extra_columns glob.
func (c *Config) AllowExtraColumnsFor(name string) bool {
	return MatchesAny(c.AllowExtraColumns, name)
}

// SkipModel reports whether node is covered by a skip_models glob and
// should be excluded from checking entirely.
func (c *Config) SkipModel(name string) bool { return MatchesAny(c.SkipModels, name) }
