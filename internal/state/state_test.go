package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanzil7890/schemarefly/internal/types"
)

func TestCompareNewAndDeleted(t *testing.T) {
	baseline := types.NewDependencyGraph([]types.Node{
		{ID: "model.a", RawSQL: "select 1"},
		{ID: "model.gone", RawSQL: "select 1"},
	})
	current := types.NewDependencyGraph([]types.Node{
		{ID: "model.a", RawSQL: "select 1"},
		{ID: "model.b", RawSQL: "select 2"},
	})

	d := Compare(current, baseline)
	assert.Equal(t, []Reason{ReasonNew}, d.Reasons["model.b"])
	assert.Equal(t, []string{"model.gone"}, d.Deleted)
	_, ok := d.Reasons["model.a"]
	assert.False(t, ok)
}

func TestCompareClassifiesEachReasonIndependently(t *testing.T) {
	baseline := types.NewDependencyGraph([]types.Node{
		{ID: "model.a", RawSQL: "select 1", Materialization: types.MaterializationView, DependsOn: []string{"model.src"}},
	})
	current := types.NewDependencyGraph([]types.Node{
		{ID: "model.a", RawSQL: "select 2", Materialization: types.MaterializationTable, DependsOn: []string{"model.src2"}, ContractEnforced: true},
	})

	d := Compare(current, baseline)
	reasons := d.Reasons["model.a"]
	assert.Contains(t, reasons, ReasonSqlChanged)
	assert.Contains(t, reasons, ReasonDependenciesChanged)
	assert.Contains(t, reasons, ReasonMaterializationChanged)
	assert.Contains(t, reasons, ReasonContractChanged)
}

func TestModifiedClosureIncludesDownstream(t *testing.T) {
	current := types.NewDependencyGraph([]types.Node{
		{ID: "model.base", RawSQL: "select 1"},
		{ID: "model.mid", RawSQL: "select 1", DependsOn: []string{"model.base"}},
		{ID: "model.top", RawSQL: "select 1", DependsOn: []string{"model.mid"}},
		{ID: "model.unrelated", RawSQL: "select 1"},
	})
	baseline := types.NewDependencyGraph([]types.Node{
		{ID: "model.base", RawSQL: "select 0"},
		{ID: "model.mid", RawSQL: "select 1", DependsOn: []string{"model.base"}},
		{ID: "model.top", RawSQL: "select 1", DependsOn: []string{"model.mid"}},
		{ID: "model.unrelated", RawSQL: "select 1"},
	})

	d := Compare(current, baseline)
	require.Equal(t, []Reason{ReasonSqlChanged}, d.Reasons["model.base"])

	closure := ModifiedClosure(current, d)
	assert.ElementsMatch(t, []string{"model.base", "model.mid", "model.top"}, closure)
	assert.NotContains(t, closure, "model.unrelated")
}
