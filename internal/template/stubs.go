package template

import "strings"

// stub describes one no-body package-macro substitution: the fragment it
// produces never attempts to model the macro's true semantics, only to be
// parse-safe in its documented position.
type stub struct {
	// fragment receives the raw argument list (already comma-split, still
	// quoted) and returns a syntactically valid SQL fragment.
	fragment func(args []string) string
}

// stubRegistry is an extensible table, not individually hard-coded code
// paths per macro.
var stubRegistry = map[string]stub{
	"dbt_utils.surrogate_key": {fragment: func(args []string) string {
		return "CAST(NULL AS STRING)"
	}},
	"dbt_utils.generate_surrogate_key": {fragment: func(args []string) string {
		return "CAST(NULL AS STRING)"
	}},
	"dbt_utils.star": {fragment: func(args []string) string {
		return "1 AS placeholder_column"
	}},
	"dbt_utils.date_spine": {fragment: func(args []string) string {
		return "SELECT CAST(NULL AS DATE) AS date_day"
	}},
	"dbt_date.now": {fragment: func(args []string) string {
		return "CURRENT_TIMESTAMP"
	}},
	"dbt_date.today": {fragment: func(args []string) string {
		return "CURRENT_DATE"
	}},
	"metrics.cents_to_dollars": {fragment: func(args []string) string {
		if len(args) == 0 {
			return "NULL"
		}
		return "(" + args[0] + " / 100.0)"
	}},
}

// callStub resolves a namespaced package-macro call by exact name, falling
// back to a generic scalar-expression stub for any other dotted call so an
// unmodeled macro still parses as NULL rather than failing the statement.
func callStub(name string, args []string) (string, bool) {
	if s, ok := stubRegistry[name]; ok {
		return s.fragment(args), true
	}
	if strings.Contains(name, ".") {
		return "NULL", true
	}
	return "", false
}
