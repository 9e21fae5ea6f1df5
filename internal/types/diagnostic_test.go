package types

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestSortCanonicalOrder(t *testing.T) {
	diags := []Diagnostic{
		{Code: CodeDriftColumnAdded, Severity: SeverityInfo, Message: "c added", Location: Location{File: "m.sql"}},
		{Code: CodeContractExtraColumn, Severity: SeverityWarning, Message: "extra", Location: Location{File: "b.sql"}},
		{Code: CodeContractTypeMismatch, Severity: SeverityError, Message: "mismatch", Location: Location{File: "z.sql"}},
		{Code: CodeContractMissingColumn, Severity: SeverityError, Message: "missing", Location: Location{File: "a.sql"}},
		{Code: CodeContractMissingColumn, Severity: SeverityError, Message: "also missing", Location: Location{File: "a.sql"}},
	}
	SortCanonical(diags)

	var got []Code
	for _, d := range diags {
		got = append(got, d.Code)
	}
	want := []Code{
		CodeContractMissingColumn, // a.sql, "also missing"
		CodeContractMissingColumn, // a.sql, "missing"
		CodeContractTypeMismatch,  // errors before warnings, code asc within severity
		CodeContractExtraColumn,
		CodeDriftColumnAdded,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("canonical order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "also missing", diags[0].Message, "message breaks location ties ascending")
}

func TestSortCanonicalLocationOrder(t *testing.T) {
	diags := []Diagnostic{
		{Code: CodeSqlParseError, Severity: SeverityError, Location: Location{File: "a.sql", Line: 9, HasPos: true}},
		{Code: CodeSqlParseError, Severity: SeverityError, Location: Location{File: "a.sql", Line: 2, HasPos: true}},
	}
	SortCanonical(diags)
	assert.Equal(t, 2, diags[0].Location.Line)
}

func TestCodesMatchRegistryStrings(t *testing.T) {
	// The registry's string forms are a wire contract; a rename is a
	// breaking change, never a refactor.
	assert.Equal(t, Code("ContractMissingColumn"), CodeContractMissingColumn)
	assert.Equal(t, Code("DriftTypeChange"), CodeDriftTypeChange)
	assert.Equal(t, Code("SqlSelectStarUnexpandable"), CodeSqlSelectStarUnexpandable)
	assert.Equal(t, Code("JinjaUndefinedVariable"), CodeJinjaUndefinedVariable)
	assert.Equal(t, Code("InternalError"), CodeInternalError)
}
