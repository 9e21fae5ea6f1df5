package drift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanzil7890/schemarefly/internal/types"
)

func col(name string, t types.LogicalType) types.Column {
	return types.Column{Name: name, Type: t}
}

func TestDetectColumnDropped(t *testing.T) {
	declared := types.Contract{Columns: types.Schema{Columns: []types.Column{col("id", types.Int())}}}
	warehouse := types.Schema{}

	diags := Detect("models/x.sql", declared, warehouse)
	require.Len(t, diags, 1)
	assert.Equal(t, types.CodeDriftColumnDropped, diags[0].Code)
}

func TestDetectTypeChangeIsStrict(t *testing.T) {
	declared := types.Contract{Columns: types.Schema{Columns: []types.Column{col("amount", types.Int())}}}
	warehouse := types.Schema{Columns: []types.Column{col("amount", types.Float())}}

	diags := Detect("models/x.sql", declared, warehouse)
	require.Len(t, diags, 1)
	assert.Equal(t, types.CodeDriftTypeChange, diags[0].Code)
}

func TestDetectUnknownNeverMatchesConcrete(t *testing.T) {
	declared := types.Contract{Columns: types.Schema{Columns: []types.Column{col("payload", types.Unknown())}}}
	warehouse := types.Schema{Columns: []types.Column{col("payload", types.JSON())}}

	diags := Detect("models/x.sql", declared, warehouse)
	require.Len(t, diags, 1)
	assert.Equal(t, types.CodeDriftTypeChange, diags[0].Code)
}

func TestDetectColumnAdded(t *testing.T) {
	declared := types.Contract{Columns: types.Schema{Columns: []types.Column{col("id", types.Int())}}}
	warehouse := types.Schema{Columns: []types.Column{
		col("id", types.Int()),
		col("new_col", types.String()),
	}}

	diags := Detect("models/x.sql", declared, warehouse)
	require.Len(t, diags, 1)
	assert.Equal(t, types.CodeDriftColumnAdded, diags[0].Code)
}

func TestDetectNoDivergence(t *testing.T) {
	declared := types.Contract{Columns: types.Schema{Columns: []types.Column{col("id", types.Int())}}}
	warehouse := types.Schema{Columns: []types.Column{col("id", types.Int())}}

	assert.Empty(t, Detect("models/x.sql", declared, warehouse))
}
