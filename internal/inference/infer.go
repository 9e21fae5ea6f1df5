// Package inference walks a parsed SQL AST and derives an ordered output
// Schema with logical types, handling CTEs, joins, aliases, casts,
// aggregates, and SELECT * expansion against a model/source catalog.
package inference

import (
	"fmt"
	"strings"

	"github.com/tanzil7890/schemarefly/internal/sqlparse"
	"github.com/tanzil7890/schemarefly/internal/typeparse"
	"github.com/tanzil7890/schemarefly/internal/types"
)

// Context carries the resolver's external inputs: the catalog of known
// schemas keyed by every name form a source might be referenced under
// (internal id, short name, fully-qualified name), and the AllowStar flag.
// Infer does not read AllowStar: SELECT * expands whenever every targeted
// source schema is known, whatever its value.
type Context struct {
	Catalog   map[string]types.Schema
	AllowStar bool
	File      string
}

// Result is Infer's output.
type Result struct {
	Schema      types.Schema
	Diagnostics []types.Diagnostic
}

// source is one resolved FROM/JOIN table with its schema and effective
// qualifier for column-name merge disambiguation.
type source struct {
	alias    string // explicit AS alias, "" if none
	name     string // dotted table name
	schema   types.Schema
	resolved bool
}

func (s source) qualifier() string {
	if s.alias != "" {
		return s.alias
	}
	return s.name
}

// Infer derives the schema for stmt.Query, resolving CTEs in order and
// threading each one into scope for subsequent CTEs and the outer query.
// Like the parser, it never panics: an internal failure yields a
// SqlInferenceError diagnostic and an empty schema.
func Infer(stmt *sqlparse.Statement, ctx Context) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Diagnostics: []types.Diagnostic{{
				Code:     types.CodeSqlInferenceError,
				Message:  fmt.Sprintf("internal inference failure: %v", r),
				Location: types.Location{File: ctx.File},
			}}}
		}
	}()

	scope := map[string]types.Schema{}
	var diags []types.Diagnostic

	for _, cte := range stmt.CTEs {
		// Duplicate CTE names are already rejected as SqlUnsupportedSyntax
		// at parse time (sqlparse.parseStatement), so every cte.Name here
		// is unique.
		r := inferQuery(cte.Query, scope, ctx)
		diags = append(diags, r.Diagnostics...)
		scope[strings.ToLower(cte.Name)] = r.Schema
	}

	r := inferQuery(stmt.Query, scope, ctx)
	diags = append(diags, r.Diagnostics...)
	return Result{Schema: r.Schema, Diagnostics: diags}
}

func inferQuery(q *sqlparse.SelectQuery, scope map[string]types.Schema, ctx Context) Result {
	var diags []types.Diagnostic
	var sources []source

	resolve := func(ref sqlparse.TableRef) source {
		name := ref.Name()
		s := source{alias: ref.Alias, name: name}
		if sch, ok := scope[strings.ToLower(name)]; ok {
			s.schema, s.resolved = sch, true
			return s
		}
		if sch, ok := ctx.Catalog[name]; ok {
			s.schema, s.resolved = sch, true
			return s
		}
		return s
	}

	if q.From != nil {
		sources = append(sources, resolve(*q.From))
	}
	for _, j := range q.Joins {
		sources = append(sources, resolve(j.Table))
	}

	var cols []types.Column
	for _, item := range q.Items {
		if item.Star {
			expanded, d := expandStar(item, sources, ctx)
			diags = append(diags, d...)
			cols = append(cols, expanded...)
			continue
		}
		c, d := inferSelectItem(item, sources, scope, ctx)
		diags = append(diags, d...)
		cols = append(cols, c)
	}

	cols, dupDiags := resolveDuplicateNames(cols, ctx.File)
	diags = append(diags, dupDiags...)

	if len(q.GroupBy) > 0 {
		diags = append(diags, validateGroupBy(q, ctx.File)...)
	}

	return Result{Schema: types.Schema{Columns: cols}, Diagnostics: diags}
}

// resolveDuplicateNames implements the JOIN merge rule: when two
// projected columns share a case-insensitive name, both are renamed under
// their qualified alias if every member of the collision carries a
// provenance qualifier (written in the SQL, or taken from the first source
// whose schema has the column); otherwise the duplicate is left in place
// and flagged.
func resolveDuplicateNames(cols []types.Column, file string) ([]types.Column, []types.Diagnostic) {
	groups := map[string][]int{}
	for i, c := range cols {
		key := strings.ToLower(c.Name)
		groups[key] = append(groups[key], i)
	}

	var diags []types.Diagnostic
	out := append([]types.Column(nil), cols...)
	for name, idxs := range groups {
		if len(idxs) < 2 {
			continue
		}
		allQualified := true
		for _, i := range idxs {
			if len(cols[i].Provenance) == 0 || cols[i].Provenance[0].ModelID == "" {
				allQualified = false
				break
			}
		}
		if allQualified {
			for _, i := range idxs {
				out[i].Name = cols[i].Provenance[0].ModelID + "." + cols[i].Name
			}
			continue
		}
		diags = append(diags, types.Diagnostic{
			Code:     types.CodeSqlUnsupportedSyntax,
			Message:  fmt.Sprintf("duplicate projected column name %q from joined sources", name),
			Location: types.Location{File: file},
		})
	}
	return out, diags
}

func validateGroupBy(q *sqlparse.SelectQuery, file string) []types.Diagnostic {
	var diags []types.Diagnostic
	for _, item := range q.Items {
		if item.Star {
			continue
		}
		if isAggregateCall(item.Expr) {
			continue
		}
		if matchesAnyGroupKey(item.Expr, q.GroupBy) {
			continue
		}
		if _, isLit := item.Expr.(sqlparse.Literal); isLit {
			continue
		}
		diags = append(diags, types.Diagnostic{
			Code:     types.CodeSqlGroupByAggregateUnaliased,
			Message:  fmt.Sprintf("projected expression %q is neither a group key nor an aggregate", describeExpr(item.Expr)),
			Location: types.Location{File: file},
		})
	}
	return diags
}

var aggregateFuncs = map[string]bool{"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true}

func isAggregateCall(e sqlparse.Expr) bool {
	fc, ok := e.(sqlparse.FuncCall)
	if !ok {
		return false
	}
	return aggregateFuncs[strings.ToUpper(fc.Name)]
}

func matchesAnyGroupKey(e sqlparse.Expr, keys []sqlparse.Expr) bool {
	for _, k := range keys {
		if exprEqual(e, k) {
			return true
		}
	}
	return false
}

func exprEqual(a, b sqlparse.Expr) bool {
	ac, aok := a.(sqlparse.ColumnRefExpr)
	bc, bok := b.(sqlparse.ColumnRefExpr)
	if aok && bok {
		return strings.EqualFold(ac.Qualifier, bc.Qualifier) && strings.EqualFold(ac.Column, bc.Column)
	}
	return false
}

func expandStar(item sqlparse.SelectItem, sources []source, ctx Context) ([]types.Column, []types.Diagnostic) {
	var targets []source
	if item.StarQualifier != "" {
		for _, s := range sources {
			if strings.EqualFold(s.qualifier(), item.StarQualifier) {
				targets = append(targets, s)
			}
		}
	} else {
		targets = sources
	}

	allResolved := len(targets) > 0
	for _, s := range targets {
		if !s.resolved {
			allResolved = false
		}
	}

	if !allResolved {
		return []types.Column{{Name: "_unexpandable", Type: types.Unknown(), Nullable: types.NullUnknown}},
			[]types.Diagnostic{{Code: types.CodeSqlSelectStarUnexpandable, Message: "SELECT * could not be expanded: source schema unavailable", Location: types.Location{File: ctx.File}}}
	}

	var cols []types.Column
	for _, s := range targets {
		for _, c := range s.schema.Columns {
			cols = append(cols, types.Column{
				Name: c.Name, Type: c.Type, Nullable: c.Nullable,
				Provenance: []types.ColumnRef{{ModelID: s.qualifier(), Column: c.Name}},
			})
		}
	}
	return cols, nil
}

func inferSelectItem(item sqlparse.SelectItem, sources []source, scope map[string]types.Schema, ctx Context) (types.Column, []types.Diagnostic) {
	typ, nullable, diags := inferExprType(item.Expr, sources, ctx)
	name := item.Alias
	if name == "" {
		name = projectedName(item.Expr)
	}
	var prov []types.ColumnRef
	if cr, ok := item.Expr.(sqlparse.ColumnRefExpr); ok {
		qualifier := cr.Qualifier
		if qualifier == "" {
			for _, s := range sources {
				if _, ok := s.schema.Find(cr.Column); ok {
					qualifier = s.qualifier()
					break
				}
			}
		}
		prov = []types.ColumnRef{{ModelID: qualifier, Column: cr.Column}}
	}
	return types.Column{Name: name, Type: typ, Nullable: nullable, Provenance: prov}, diags
}

// projectedName synthesizes a deterministic name from an expression's
// shape, never from source position.
func projectedName(e sqlparse.Expr) string {
	switch v := e.(type) {
	case sqlparse.ColumnRefExpr:
		return v.Column
	case sqlparse.FuncCall:
		return strings.ToLower(v.Name)
	case sqlparse.CastExpr:
		return "cast_" + strings.ToLower(strings.Split(v.TargetType, "(")[0])
	case sqlparse.CaseExpr:
		return "case"
	case sqlparse.BinaryExpr:
		return "expr"
	case sqlparse.UnaryExpr:
		return "expr"
	case sqlparse.Literal:
		return "literal"
	default:
		return "expr"
	}
}

func describeExpr(e sqlparse.Expr) string {
	switch v := e.(type) {
	case sqlparse.ColumnRefExpr:
		if v.Qualifier != "" {
			return v.Qualifier + "." + v.Column
		}
		return v.Column
	default:
		return projectedName(e)
	}
}

func lookupColumn(qualifier, col string, sources []source) (types.Column, bool) {
	if qualifier != "" {
		for _, s := range sources {
			if strings.EqualFold(s.qualifier(), qualifier) {
				return s.schema.Find(col)
			}
		}
		return types.Column{}, false
	}
	for _, s := range sources {
		if c, ok := s.schema.Find(col); ok {
			return c, true
		}
	}
	return types.Column{}, false
}

func inferExprType(e sqlparse.Expr, sources []source, ctx Context) (types.LogicalType, types.Nullability, []types.Diagnostic) {
	switch v := e.(type) {
	case sqlparse.Literal:
		return literalType(v), literalNullability(v), nil

	case sqlparse.ColumnRefExpr:
		if c, ok := lookupColumn(v.Qualifier, v.Column, sources); ok {
			return c.Type, c.Nullable, nil
		}
		return types.Unknown(), types.NullUnknown, nil

	case sqlparse.CastExpr:
		return typeparse.Parse(v.TargetType), types.NullUnknown, nil

	case sqlparse.BinaryExpr:
		return inferBinary(v, sources, ctx)

	case sqlparse.UnaryExpr:
		if v.Op == "NOT" {
			return types.Bool(), types.NullUnknown, nil
		}
		t, _, d := inferExprType(v.Expr, sources, ctx)
		return t, types.NullUnknown, d

	case sqlparse.FuncCall:
		return inferFuncCall(v, sources, ctx)

	case sqlparse.CaseExpr:
		if len(v.Whens) > 0 {
			return inferExprType(v.Whens[0].Then, sources, ctx)
		}
		if v.Else != nil {
			return inferExprType(v.Else, sources, ctx)
		}
		return types.Unknown(), types.NullUnknown, nil

	default:
		return types.Unknown(), types.NullUnknown, nil
	}
}

func literalType(l sqlparse.Literal) types.LogicalType {
	switch l.Kind {
	case sqlparse.LitInt:
		return types.Int()
	case sqlparse.LitDecimal:
		return types.DecimalUnknown()
	case sqlparse.LitFloat:
		return types.Float()
	case sqlparse.LitString:
		return types.String()
	case sqlparse.LitBool:
		return types.Bool()
	case sqlparse.LitDate:
		return types.Date()
	case sqlparse.LitTimestamp:
		return types.Timestamp()
	default:
		return types.Unknown()
	}
}

func literalNullability(l sqlparse.Literal) types.Nullability {
	if l.Kind == sqlparse.LitNull {
		return types.NullYes
	}
	return types.NullNo
}

func numericRank(t types.LogicalType) int {
	switch t.Kind {
	case types.KindDecimal:
		return 3
	case types.KindFloat:
		return 2
	case types.KindInt:
		return 1
	default:
		return 0
	}
}

func inferBinary(v sqlparse.BinaryExpr, sources []source, ctx Context) (types.LogicalType, types.Nullability, []types.Diagnostic) {
	switch v.Op {
	case "AND", "OR", "=", "<", ">", "<=", ">=", "<>", "!=", "IS":
		return types.Bool(), types.NullUnknown, nil
	case "||":
		return types.String(), types.NullUnknown, nil
	default: // + - * /
		lt, _, ld := inferExprType(v.Left, sources, ctx)
		rt, _, rd := inferExprType(v.Right, sources, ctx)
		diags := append(ld, rd...)
		if lt.Kind == types.KindDecimal || rt.Kind == types.KindDecimal {
			return types.DecimalUnknown(), types.NullUnknown, diags
		}
		if lt.Kind == types.KindFloat || rt.Kind == types.KindFloat {
			return types.Float(), types.NullUnknown, diags
		}
		return types.Int(), types.NullUnknown, diags
	}
}

func inferFuncCall(v sqlparse.FuncCall, sources []source, ctx Context) (types.LogicalType, types.Nullability, []types.Diagnostic) {
	name := strings.ToUpper(v.Name)
	switch name {
	case "COUNT":
		return types.Int(), types.NullNo, nil
	case "SUM":
		if len(v.Args) == 0 {
			return types.Unknown(), types.NullUnknown, nil
		}
		t, _, d := inferExprType(v.Args[0], sources, ctx)
		if t.Kind == types.KindDecimal || t.Kind == types.KindFloat {
			return t, types.NullUnknown, d
		}
		return types.Int(), types.NullUnknown, d
	case "AVG":
		if len(v.Args) == 0 {
			return types.Float(), types.NullUnknown, nil
		}
		t, _, d := inferExprType(v.Args[0], sources, ctx)
		if t.Kind == types.KindDecimal {
			return t, types.NullUnknown, d
		}
		return types.Float(), types.NullUnknown, d
	case "MIN", "MAX":
		if len(v.Args) == 0 {
			return types.Unknown(), types.NullUnknown, nil
		}
		t, n, d := inferExprType(v.Args[0], sources, ctx)
		return t, n, d
	case "COALESCE", "NULLIF", "GREATEST", "LEAST":
		if len(v.Args) == 0 {
			return types.Unknown(), types.NullUnknown, nil
		}
		t, _, d := inferExprType(v.Args[0], sources, ctx)
		return t, types.NullUnknown, d
	default:
		return types.Unknown(), types.NullUnknown, nil
	}
}
