package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanzil7890/schemarefly/internal/types"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "ansi", cfg.Dialect)
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemarefly.yaml")
	contents := `
dialect: bigquery
severities:
  ContractExtraColumn: error
allow_widening:
  - "stg_*"
allow_extra_columns:
  - "*"
skip_models:
  - "legacy.*"
redact: true
warehouse:
  type: bigquery
  database: analytics
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bigquery", cfg.Dialect)
	assert.True(t, cfg.Redact)
	require.NotNil(t, cfg.Warehouse)
	assert.Equal(t, "analytics", cfg.Warehouse.Database)
}

func TestSeverityOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Severities["ContractExtraColumn"] = "error"

	sev, ok := cfg.SeverityOverride(types.CodeContractExtraColumn)
	require.True(t, ok)
	assert.Equal(t, types.SeverityError, sev)

	_, ok = cfg.SeverityOverride(types.CodeContractMissingColumn)
	assert.False(t, ok)
}

func TestGlobAllowlistsShareOneMatcher(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowWidening = []string{"stg_*"}
	cfg.AllowExtraColumns = []string{"*"}
	cfg.SkipModels = []string{"legacy.*"}

	assert.True(t, cfg.AllowWideningFor("stg_orders"))
	assert.False(t, cfg.AllowWideningFor("fct_orders"))
	assert.True(t, cfg.AllowExtraColumnsFor("anything"))
	assert.True(t, cfg.SkipModel("legacy.old_model"))
	assert.False(t, cfg.SkipModel("fct_orders"))
}
