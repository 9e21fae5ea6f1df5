package types

import "strings"

// ColumnRef names the source that produced a column plus a column name.
// ModelID is a node id for columns the Artifact Loader declares, and the
// FROM/JOIN qualifier (alias, else table name as written) for columns
// Inference derives; it is empty when no source holds the column.
type ColumnRef struct {
	ModelID string
	Column  string
}

// Column is one entry in an ordered Schema.
type Column struct {
	Name       string
	Type       LogicalType
	Nullable   Nullability
	Provenance []ColumnRef
}

// Schema is an ordered, name-unique (case-insensitively) column sequence.
type Schema struct {
	Columns []Column
}

// Find looks up a column by case-insensitive name. Returns (col, true) or
// the zero Column and false.
func (s Schema) Find(name string) (Column, bool) {
	lower := strings.ToLower(name)
	for _, c := range s.Columns {
		if strings.ToLower(c.Name) == lower {
			return c, true
		}
	}
	return Column{}, false
}

func (s Schema) Names() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

// Contract is a declared, enforced output schema for a model.
type Contract struct {
	Columns       Schema
	AllowExtra    bool
	AllowWidening bool
}
