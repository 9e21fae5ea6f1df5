package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diamondGraph() *DependencyGraph {
	return NewDependencyGraph([]Node{
		{ID: "base"},
		{ID: "left", DependsOn: []string{"base"}},
		{ID: "right", DependsOn: []string{"base"}},
		{ID: "top", DependsOn: []string{"left", "right"}},
	})
}

func TestDownstreamTransitiveClosure(t *testing.T) {
	g := diamondGraph()
	down := g.Downstream("base")
	assert.ElementsMatch(t, []string{"left", "right", "top"}, down)
	assert.NotContains(t, down, "base", "a node is never in its own closure")
}

func TestUpstreamTransitiveClosure(t *testing.T) {
	g := diamondGraph()
	assert.ElementsMatch(t, []string{"left", "right", "base"}, g.Upstream("top"))
	assert.Empty(t, g.Upstream("base"))
}

func TestDiamondVisitedOnce(t *testing.T) {
	g := diamondGraph()
	down := g.Downstream("base")
	require.Len(t, down, 3, "diamond dependents are not double-counted")
}

// Dependent order follows node-slice order, not map iteration order, so
// Downstream (and everything hashed from it) is identical across runs.
func TestDownstreamOrderIsDeterministic(t *testing.T) {
	build := func() *DependencyGraph {
		return NewDependencyGraph([]Node{
			{ID: "base"},
			{ID: "dep_a", DependsOn: []string{"base"}},
			{ID: "dep_b", DependsOn: []string{"base"}},
			{ID: "dep_c", DependsOn: []string{"base"}},
		})
	}
	want := build().Downstream("base")
	require.Equal(t, []string{"dep_a", "dep_b", "dep_c"}, want)
	for i := 0; i < 20; i++ {
		assert.Equal(t, want, build().Downstream("base"))
	}
}

func TestAcyclic(t *testing.T) {
	assert.True(t, diamondGraph().Acyclic())
	cyclic := NewDependencyGraph([]Node{
		{ID: "a", DependsOn: []string{"b"}},
		{ID: "b", DependsOn: []string{"a"}},
	})
	assert.False(t, cyclic.Acyclic())
}
