// Package types holds the platform-neutral data model shared by every
// subsystem: logical types, schemas, contracts, manifest nodes, the
// dependency graph, and diagnostics.
package types

import "fmt"

// TypeKind is the closed sum of platform-neutral logical type categories.
type TypeKind int

const (
	KindUnknown TypeKind = iota
	KindBool
	KindInt
	KindFloat
	KindDecimal
	KindString
	KindDate
	KindTimestamp
	KindJSON
	KindStruct
	KindArray
)

func (k TypeKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindTimestamp:
		return "timestamp"
	case KindJSON:
		return "json"
	case KindStruct:
		return "struct"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// StructField is one ordered (name, type) pair inside a Struct type.
type StructField struct {
	Name string
	Type LogicalType
}

// LogicalType is a closed-variant type descriptor. Only the fields relevant
// to Kind are meaningful; callers must not read Precision/Scale/Element/Fields
// for a Kind that does not define them.
type LogicalType struct {
	Kind TypeKind

	// Decimal only. Zero value means "unspecified" (nil-like): a bare
	// Decimal{} with Precision==0 and Scale==0 but HasPrecision==false
	// represents "decimal of unknown parameters".
	Precision, Scale       int
	HasPrecision, HasScale bool

	// Struct only.
	Fields []StructField

	// Array only.
	Element *LogicalType
}

func Unknown() LogicalType { return LogicalType{Kind: KindUnknown} }
func Bool() LogicalType    { return LogicalType{Kind: KindBool} }
func Int() LogicalType     { return LogicalType{Kind: KindInt} }
func Float() LogicalType   { return LogicalType{Kind: KindFloat} }
func String() LogicalType  { return LogicalType{Kind: KindString} }
func Date() LogicalType    { return LogicalType{Kind: KindDate} }
func Timestamp() LogicalType { return LogicalType{Kind: KindTimestamp} }
func JSON() LogicalType    { return LogicalType{Kind: KindJSON} }

// Decimal builds a Decimal type. Pass hasP=false/hasS=false when the
// precision or scale is syntactically absent.
func Decimal(precision, scale int, hasP, hasS bool) LogicalType {
	return LogicalType{Kind: KindDecimal, Precision: precision, Scale: scale, HasPrecision: hasP, HasScale: hasS}
}

func DecimalUnknown() LogicalType { return LogicalType{Kind: KindDecimal} }

func Struct(fields []StructField) LogicalType {
	return LogicalType{Kind: KindStruct, Fields: fields}
}

func Array(element LogicalType) LogicalType {
	return LogicalType{Kind: KindArray, Element: &element}
}

// String renders a human/report-facing type string, e.g. "decimal(10,2)".
func (t LogicalType) String() string {
	switch t.Kind {
	case KindDecimal:
		if t.HasPrecision && t.HasScale {
			return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
		}
		if t.HasPrecision {
			return fmt.Sprintf("decimal(%d)", t.Precision)
		}
		return "decimal"
	case KindArray:
		if t.Element != nil {
			return fmt.Sprintf("array<%s>", t.Element.String())
		}
		return "array"
	case KindStruct:
		return "struct"
	default:
		return t.Kind.String()
	}
}

func isNumeric(k TypeKind) bool {
	return k == KindInt || k == KindFloat || k == KindDecimal
}

// Equal reports exact equality: same variant, same parameters.
func (t LogicalType) Equal(other LogicalType) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case KindDecimal:
		return t.HasPrecision == other.HasPrecision && t.HasScale == other.HasScale &&
			(!t.HasPrecision || t.Precision == other.Precision) &&
			(!t.HasScale || t.Scale == other.Scale)
	case KindArray:
		if t.Element == nil || other.Element == nil {
			return t.Element == other.Element
		}
		return t.Element.Equal(*other.Element)
	case KindStruct:
		if len(t.Fields) != len(other.Fields) {
			return false
		}
		for i, f := range t.Fields {
			if f.Name != other.Fields[i].Name || !f.Type.Equal(other.Fields[i].Type) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Compatible reports type compatibility: exactly equal, or both numeric
// (any decimal parameters), or either side Unknown.
func (t LogicalType) Compatible(other LogicalType) bool {
	if t.Kind == KindUnknown || other.Kind == KindUnknown {
		return true
	}
	if t.Equal(other) {
		return true
	}
	return isNumeric(t.Kind) && isNumeric(other.Kind)
}

// Nullability is three-valued.
type Nullability int

const (
	NullUnknown Nullability = iota
	NullYes
	NullNo
)

func (n Nullability) String() string {
	switch n {
	case NullYes:
		return "yes"
	case NullNo:
		return "no"
	default:
		return "unknown"
	}
}
