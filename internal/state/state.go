// Package state compares a current manifest against a baseline one,
// classifying per-node modifications and computing the set of nodes a
// "modified only" run needs to check.
package state

import (
	"sort"

	"github.com/tanzil7890/schemarefly/internal/types"
)

// Reason is one entry in the closed set of modification classifications.
type Reason string

const (
	ReasonNew                  Reason = "New"
	ReasonSqlChanged           Reason = "SqlChanged"
	ReasonColumnsChanged       Reason = "ColumnsChanged"
	ReasonDependenciesChanged  Reason = "DependenciesChanged"
	ReasonContractChanged      Reason = "ContractChanged"
	ReasonMaterializationChanged Reason = "MaterializationChanged"
	ReasonDeleted              Reason = "Deleted"
)

// Diff holds per-node modification reasons for a current-vs-baseline
// comparison, plus the node ids only present in baseline.
type Diff struct {
	Reasons map[string][]Reason
	Deleted []string
}

// Modified returns the set of current node ids carrying at least one
// non-Deleted reason.
func (d Diff) Modified() []string {
	ids := make([]string, 0, len(d.Reasons))
	for id := range d.Reasons {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Compare classifies every node in current against its counterpart (by id)
// in baseline. A node with no baseline counterpart is New. A baseline node
// absent from current is reported via Diff.Deleted, not Diff.Reasons.
func Compare(current, baseline *types.DependencyGraph) Diff {
	d := Diff{Reasons: map[string][]Reason{}}

	for id, cur := range current.Nodes {
		base, ok := baseline.Nodes[id]
		if !ok {
			d.Reasons[id] = []Reason{ReasonNew}
			continue
		}
		var reasons []Reason
		if cur.RawSQL != base.RawSQL {
			reasons = append(reasons, ReasonSqlChanged)
		}
		if !sameColumns(cur.DeclaredColumns, base.DeclaredColumns) {
			reasons = append(reasons, ReasonColumnsChanged)
		}
		if !sameStringSet(cur.DependsOn, base.DependsOn) {
			reasons = append(reasons, ReasonDependenciesChanged)
		}
		if cur.ContractEnforced != base.ContractEnforced {
			reasons = append(reasons, ReasonContractChanged)
		}
		if cur.Materialization != base.Materialization {
			reasons = append(reasons, ReasonMaterializationChanged)
		}
		if len(reasons) > 0 {
			d.Reasons[id] = reasons
		}
	}

	for id := range baseline.Nodes {
		if _, ok := current.Nodes[id]; !ok {
			d.Deleted = append(d.Deleted, id)
		}
	}
	sort.Strings(d.Deleted)

	return d
}

// ModifiedClosure returns the modified set unioned with the transitive
// downstream closure of every modified node, computed against current.
func ModifiedClosure(current *types.DependencyGraph, d Diff) []string {
	seen := map[string]bool{}
	var out []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range d.Modified() {
		add(id)
		for _, down := range current.Downstream(id) {
			add(down)
		}
	}
	sort.Strings(out)
	return out
}

func sameColumns(a, b []types.DeclaredColumn) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Description != b[i].Description || !a[i].Type.Equal(b[i].Type) {
			return false
		}
	}
	return true
}

func sameStringSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
