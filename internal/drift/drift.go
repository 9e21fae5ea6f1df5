// Package drift compares a declared contract against a fetched warehouse
// schema snapshot using strict equality, since the warehouse is ground
// truth and even benign divergences must surface.
package drift

import (
	"strings"

	"github.com/tanzil7890/schemarefly/internal/types"
)

// Detect classifies column-by-column divergence between declared and the
// live warehouse schema.
func Detect(file string, declared types.Contract, warehouse types.Schema) []types.Diagnostic {
	var diags []types.Diagnostic
	seen := map[string]bool{}

	for _, dc := range declared.Columns.Columns {
		seen[strings.ToLower(dc.Name)] = true
		wc, ok := warehouse.Find(dc.Name)
		if !ok {
			diags = append(diags, types.Diagnostic{
				Code:     types.CodeDriftColumnDropped,
				Message:  "column " + dc.Name + " is declared but absent from the warehouse",
				Location: types.Location{File: file},
				Expected: dc.Type.String(),
			})
			continue
		}
		if !dc.Type.Equal(wc.Type) {
			diags = append(diags, types.Diagnostic{
				Code:     types.CodeDriftTypeChange,
				Message:  "column " + dc.Name + " type diverges from the warehouse",
				Location: types.Location{File: file},
				Expected: dc.Type.String(),
				Actual:   wc.Type.String(),
			})
		}
	}

	for _, wc := range warehouse.Columns {
		if seen[strings.ToLower(wc.Name)] {
			continue
		}
		diags = append(diags, types.Diagnostic{
			Code:     types.CodeDriftColumnAdded,
			Message:  "column " + wc.Name + " exists in the warehouse but is not declared",
			Location: types.Location{File: file},
			Actual:   wc.Type.String(),
		})
	}

	return diags
}
