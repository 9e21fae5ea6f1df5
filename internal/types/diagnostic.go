package types

import "sort"

// Severity ranks a Diagnostic for the canonical ordering.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// Code is a stable, immutable diagnostic code. Codes are drawn from the
// closed registry below; none is ever renamed once shipped.
type Code string

const (
	CodeContractMissingColumn Code = "ContractMissingColumn"
	CodeContractTypeMismatch  Code = "ContractTypeMismatch"
	CodeContractExtraColumn   Code = "ContractExtraColumn"
	CodeContractMissing       Code = "ContractMissing"

	CodeDriftColumnDropped Code = "DriftColumnDropped"
	CodeDriftTypeChange    Code = "DriftTypeChange"
	CodeDriftColumnAdded   Code = "DriftColumnAdded"

	CodeSqlParseError               Code = "SqlParseError"
	CodeSqlUnsupportedSyntax        Code = "SqlUnsupportedSyntax"
	CodeSqlSelectStarUnexpandable   Code = "SqlSelectStarUnexpandable"
	CodeSqlInferenceError           Code = "SqlInferenceError"
	CodeSqlGroupByAggregateUnaliased Code = "SqlGroupByAggregateUnaliased"

	CodeJinjaRenderError        Code = "JinjaRenderError"
	CodeJinjaUndefinedVariable  Code = "JinjaUndefinedVariable"
	CodeJinjaSyntaxError        Code = "JinjaSyntaxError"

	CodeInternalError Code = "InternalError"
	CodeInfo          Code = "Info"
	CodeWarning       Code = "Warning"
)

// DefaultSeverity is the registry's built-in severity for each code, before
// any configuration override is applied at report-assembly time.
var DefaultSeverity = map[Code]Severity{
	CodeContractMissingColumn: SeverityError,
	CodeContractTypeMismatch:  SeverityError,
	CodeContractExtraColumn:   SeverityWarning,
	CodeContractMissing:       SeverityError,

	CodeDriftColumnDropped: SeverityError,
	CodeDriftTypeChange:    SeverityError,
	CodeDriftColumnAdded:   SeverityInfo,

	CodeSqlParseError:                SeverityError,
	CodeSqlUnsupportedSyntax:         SeverityWarning,
	CodeSqlSelectStarUnexpandable:    SeverityWarning,
	CodeSqlInferenceError:            SeverityWarning,
	CodeSqlGroupByAggregateUnaliased: SeverityError,

	CodeJinjaRenderError:       SeverityWarning,
	CodeJinjaUndefinedVariable: SeverityWarning,
	CodeJinjaSyntaxError:       SeverityWarning,

	CodeInternalError: SeverityError,
	CodeInfo:          SeverityInfo,
	CodeWarning:       SeverityWarning,
}

// Location pinpoints a diagnostic to a file and, optionally, a position.
type Location struct {
	File   string
	Line   int
	Column int
	HasPos bool
}

// Diagnostic is one reportable finding.
type Diagnostic struct {
	Code     Code
	Severity Severity
	Message  string
	Location Location
	Expected string
	Actual   string
	Impact   []string
}

// less implements the canonical total order: severity desc, code asc,
// location asc, message asc.
func less(a, b Diagnostic) bool {
	if a.Severity != b.Severity {
		return a.Severity > b.Severity
	}
	if a.Code != b.Code {
		return a.Code < b.Code
	}
	if a.Location.File != b.Location.File {
		return a.Location.File < b.Location.File
	}
	if a.Location.Line != b.Location.Line {
		return a.Location.Line < b.Location.Line
	}
	if a.Location.Column != b.Location.Column {
		return a.Location.Column < b.Location.Column
	}
	return a.Message < b.Message
}

// SortCanonical orders diagnostics canonically, in place. Stable so that
// equal-order diagnostics keep their relative input order, which keeps
// reports byte-stable when parallel derivations complete in
// nondeterministic order.
func SortCanonical(diags []Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool { return less(diags[i], diags[j]) })
}
