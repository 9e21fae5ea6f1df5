// Package typeparse maps warehouse/dialect type-name strings (as they
// appear in manifest/catalog documents and in SQL CAST target grammars)
// to the core LogicalType. It is shared by the Artifact Loader, the SQL
// parser's cast handling, and the Drift Detector's warehouse decoding so
// the same grammar is used for all three.
package typeparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tanzil7890/schemarefly/internal/types"
)

var decimalRe = regexp.MustCompile(`^(NUMERIC|DECIMAL|BIGNUMERIC|BIGDECIMAL|NUMBER)\s*(\(\s*(\d+)\s*(,\s*(\d+)\s*)?\))?$`)

// Parse maps a raw type string (case-insensitive, whitespace-tolerant) to a
// LogicalType. Unrecognized strings map to Unknown.
func Parse(raw string) types.LogicalType {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return types.Unknown()
	}

	if m := decimalRe.FindStringSubmatch(s); m != nil {
		if m[3] == "" {
			return types.DecimalUnknown()
		}
		p, _ := strconv.Atoi(m[3])
		if m[5] == "" {
			return types.Decimal(p, 0, true, false)
		}
		sc, _ := strconv.Atoi(m[5])
		return types.Decimal(p, sc, true, true)
	}

	switch {
	case strings.HasPrefix(s, "ARRAY"), strings.HasSuffix(s, "[]"):
		return types.Array(types.Unknown())
	case s == "BOOL" || s == "BOOLEAN":
		return types.Bool()
	case matchesAny(s, "INT64", "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "INT2", "INT4", "INT8", "NUMBER" /* no scale */):
		return types.Int()
	case matchesAny(s, "FLOAT64", "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "DOUBLE PRECISION", "REAL"):
		return types.Float()
	case matchesAny(s, "STRING", "VARCHAR", "TEXT", "CHAR", "CHARACTER VARYING", "CHARACTER"):
		return types.String()
	case matchesAny(s, "DATE"):
		return types.Date()
	case matchesAny(s, "TIMESTAMP", "TIMESTAMP_NTZ", "TIMESTAMP_TZ", "TIMESTAMP_LTZ", "TIMESTAMPTZ", "DATETIME"):
		return types.Timestamp()
	case matchesAny(s, "JSON", "JSONB", "VARIANT", "OBJECT", "STRUCT", "RECORD"):
		if s == "STRUCT" || s == "RECORD" {
			return types.Struct(nil)
		}
		return types.JSON()
	default:
		// Strip a leading word like VARCHAR(255) that the decimal regex
		// above doesn't own.
		if strings.HasPrefix(s, "VARCHAR") || strings.HasPrefix(s, "CHAR") {
			return types.String()
		}
		return types.Unknown()
	}
}

func matchesAny(s string, candidates ...string) bool {
	for _, c := range candidates {
		if s == c {
			return true
		}
	}
	return false
}
