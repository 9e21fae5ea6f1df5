// Package differ compares an inferred model schema against its declared
// contract and produces classified diagnostics.
package differ

import (
	"strings"

	"github.com/tanzil7890/schemarefly/internal/types"
)

// Diff compares inferred against declared, applying the contract rules in
// order: missing columns, type mismatches, extra columns. Ordering of
// declared columns is never checked. Each emitted diagnostic's Impact is
// the dependency graph's downstream closure of nodeID.
func Diff(nodeID, file string, inferred types.Schema, declared types.Contract, graph *types.DependencyGraph) []types.Diagnostic {
	var diags []types.Diagnostic
	impact := downstreamOf(graph, nodeID)

	seen := map[string]bool{}
	for _, dc := range declared.Columns.Columns {
		seen[strings.ToLower(dc.Name)] = true
		ic, ok := inferred.Find(dc.Name)
		if !ok {
			diags = append(diags, types.Diagnostic{
				Code:     types.CodeContractMissingColumn,
				Message:  "declared column " + dc.Name + " is not produced by the model",
				Location: types.Location{File: file},
				Expected: dc.Type.String(),
				Impact:   impact,
			})
			continue
		}
		if !dc.Type.Compatible(ic.Type) {
			diags = append(diags, types.Diagnostic{
				Code:     types.CodeContractTypeMismatch,
				Message:  "column " + dc.Name + " type diverges from its declared contract",
				Location: types.Location{File: file},
				Expected: dc.Type.String(),
				Actual:   ic.Type.String(),
				Impact:   impact,
			})
		}
	}

	if !declared.AllowExtra {
		for _, ic := range inferred.Columns {
			if seen[strings.ToLower(ic.Name)] {
				continue
			}
			diags = append(diags, types.Diagnostic{
				Code:     types.CodeContractExtraColumn,
				Message:  "column " + ic.Name + " is produced but not declared in the contract",
				Location: types.Location{File: file},
				Actual:   ic.Type.String(),
				Impact:   impact,
			})
		}
	}

	return diags
}

func downstreamOf(graph *types.DependencyGraph, nodeID string) []string {
	if graph == nil {
		return nil
	}
	return graph.Downstream(nodeID)
}

// The compatibility relation already treats every numeric/numeric pairing
// as compatible unconditionally, decimal parameters included, so there is
// no narrowing case left for allow_widening to additionally gate.
// Contract.AllowWidening is threaded through from configuration but not
// consulted here; see DESIGN.md.
