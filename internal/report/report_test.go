package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanzil7890/schemarefly/internal/config"
	"github.com/tanzil7890/schemarefly/internal/types"
)

func TestAssembleIsDeterministic(t *testing.T) {
	diags := []types.Diagnostic{
		{Code: types.CodeContractExtraColumn, Message: "column b is produced but not declared", Location: types.Location{File: "b.sql"}},
		{Code: types.CodeContractMissingColumn, Message: "declared column a is not produced", Location: types.Location{File: "a.sql"}, Expected: "int"},
	}
	cfg := config.DefaultConfig()

	r1 := Assemble(diags, cfg, 2, 1, nil, "2026-07-29T00:00:00Z")
	r2 := Assemble(diags, cfg, 2, 1, nil, "2026-07-29T01:00:00Z")

	assert.Equal(t, r1.ContentHash, r2.ContentHash, "hash excludes timestamp")
	require.Len(t, r1.Diagnostics, 2)
	assert.Equal(t, types.CodeContractMissingColumn, r1.Diagnostics[0].Code, "Error outranks Warning in canonical order")
	assert.Equal(t, 1, r1.Summary.Errors)
	assert.Equal(t, 1, r1.Summary.Warnings)
}

func TestAssembleAppliesSeverityOverride(t *testing.T) {
	diags := []types.Diagnostic{{Code: types.CodeContractExtraColumn, Message: "extra"}}
	cfg := config.DefaultConfig()
	cfg.Severities["ContractExtraColumn"] = "error"

	r := Assemble(diags, cfg, 1, 1, nil, "2026-07-29T00:00:00Z")
	assert.Equal(t, types.SeverityError, r.Diagnostics[0].Severity)
	assert.Equal(t, 1, ExitCode(r))
}

func TestExitCodeZeroWithoutErrors(t *testing.T) {
	diags := []types.Diagnostic{{Code: types.CodeContractExtraColumn, Message: "extra"}}
	r := Assemble(diags, config.DefaultConfig(), 1, 1, nil, "2026-07-29T00:00:00Z")
	assert.Equal(t, 0, ExitCode(r))
}

func TestRedactPreservesStructureButMasksMessage(t *testing.T) {
	msg := `column "email" is declared but not produced by model orders`
	redacted := Redact(msg)
	assert.NotContains(t, redacted, "email")
	assert.Contains(t, redacted, "<redacted>")
}
