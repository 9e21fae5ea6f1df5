package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanzil7890/schemarefly/internal/sqlparse"
	"github.com/tanzil7890/schemarefly/internal/types"
)

func mustParse(t *testing.T, sql string) *sqlparse.Statement {
	t.Helper()
	r := sqlparse.Parse(sqlparse.DialectAnsi, sql, "a.sql")
	require.True(t, r.Inferable, "parse diagnostics: %v", r.Diagnostics)
	return r.AST
}

func ordersCatalog() map[string]types.Schema {
	return map[string]types.Schema{
		"orders": {Columns: []types.Column{
			{Name: "id", Type: types.Int(), Nullable: types.NullNo},
			{Name: "amount", Type: types.Decimal(10, 2, true, true)},
			{Name: "created_at", Type: types.Timestamp()},
		}},
		"customers": {Columns: []types.Column{
			{Name: "id", Type: types.Int()},
			{Name: "name", Type: types.String()},
		}},
	}
}

func TestInferPlainColumns(t *testing.T) {
	stmt := mustParse(t, "select id, amount from orders")
	r := Infer(stmt, Context{Catalog: ordersCatalog(), File: "a.sql"})
	require.Len(t, r.Schema.Columns, 2)
	assert.Equal(t, "id", r.Schema.Columns[0].Name)
	assert.Equal(t, types.KindInt, r.Schema.Columns[0].Type.Kind)
	assert.Equal(t, types.KindDecimal, r.Schema.Columns[1].Type.Kind)
}

func TestInferAliasWins(t *testing.T) {
	stmt := mustParse(t, "select amount as total from orders")
	r := Infer(stmt, Context{Catalog: ordersCatalog()})
	require.Len(t, r.Schema.Columns, 1)
	assert.Equal(t, "total", r.Schema.Columns[0].Name)
}

func TestInferLiterals(t *testing.T) {
	stmt := mustParse(t, "select 1 as i, 1.5 as d, 'x' as s, true as b from orders")
	r := Infer(stmt, Context{Catalog: ordersCatalog()})
	require.Len(t, r.Schema.Columns, 4)
	assert.Equal(t, types.KindInt, r.Schema.Columns[0].Type.Kind)
	assert.Equal(t, types.KindDecimal, r.Schema.Columns[1].Type.Kind)
	assert.Equal(t, types.KindString, r.Schema.Columns[2].Type.Kind)
	assert.Equal(t, types.KindBool, r.Schema.Columns[3].Type.Kind)
}

func TestInferCastPreservesDecimalParameters(t *testing.T) {
	stmt := mustParse(t, "select cast(amount as decimal(18,4)) as amount from orders")
	r := Infer(stmt, Context{Catalog: ordersCatalog()})
	require.Len(t, r.Schema.Columns, 1)
	got := r.Schema.Columns[0].Type
	assert.Equal(t, types.KindDecimal, got.Kind)
	assert.Equal(t, 18, got.Precision)
	assert.Equal(t, 4, got.Scale)
}

func TestInferArithmeticPromotion(t *testing.T) {
	stmt := mustParse(t, "select id + 1 as next_id, amount * 2 as doubled from orders")
	r := Infer(stmt, Context{Catalog: ordersCatalog()})
	require.Len(t, r.Schema.Columns, 2)
	assert.Equal(t, types.KindInt, r.Schema.Columns[0].Type.Kind)
	assert.Equal(t, types.KindDecimal, r.Schema.Columns[1].Type.Kind, "decimal operand promotes the result")
}

func TestInferAggregates(t *testing.T) {
	stmt := mustParse(t, "select count(*) as n, sum(amount) as total, avg(amount) as mean, max(created_at) as latest from orders group by id")
	r := Infer(stmt, Context{Catalog: ordersCatalog()})
	require.Len(t, r.Schema.Columns, 4)
	assert.Equal(t, types.KindInt, r.Schema.Columns[0].Type.Kind)
	assert.Equal(t, types.KindDecimal, r.Schema.Columns[1].Type.Kind, "sum matches the argument's numeric type")
	assert.Equal(t, types.KindDecimal, r.Schema.Columns[2].Type.Kind, "avg of decimal stays decimal")
	assert.Equal(t, types.KindTimestamp, r.Schema.Columns[3].Type.Kind)
}

func TestInferCoalesceTakesFirstArgType(t *testing.T) {
	stmt := mustParse(t, "select coalesce(amount, 0) as amount from orders")
	r := Infer(stmt, Context{Catalog: ordersCatalog()})
	assert.Equal(t, types.KindDecimal, r.Schema.Columns[0].Type.Kind)
}

func TestInferUnknownFunction(t *testing.T) {
	stmt := mustParse(t, "select regexp_extract(name, 'x') as m from customers")
	r := Infer(stmt, Context{Catalog: ordersCatalog()})
	assert.Equal(t, types.KindUnknown, r.Schema.Columns[0].Type.Kind)
}

func TestInferStarExpansion(t *testing.T) {
	stmt := mustParse(t, "select * from orders")
	r := Infer(stmt, Context{Catalog: ordersCatalog()})
	require.Len(t, r.Schema.Columns, 3)
	assert.Equal(t, []string{"id", "amount", "created_at"}, r.Schema.Names())
	require.NotEmpty(t, r.Schema.Columns[0].Provenance)
	assert.Equal(t, "orders", r.Schema.Columns[0].Provenance[0].ModelID)
	assert.Empty(t, r.Diagnostics)
}

func TestInferStarWithoutCatalogEmitsOneDiagnostic(t *testing.T) {
	stmt := mustParse(t, "select * from mystery_table")
	r := Infer(stmt, Context{Catalog: map[string]types.Schema{}, File: "a.sql"})
	require.Len(t, r.Diagnostics, 1)
	assert.Equal(t, types.CodeSqlSelectStarUnexpandable, r.Diagnostics[0].Code)
	require.Len(t, r.Schema.Columns, 1)
	assert.Equal(t, types.KindUnknown, r.Schema.Columns[0].Type.Kind)
}

func TestInferCTEsChainInOrder(t *testing.T) {
	sql := `with base as (select id, amount from orders),
	doubled as (select id, amount * 2 as amount from base)
	select id, amount from doubled`
	stmt := mustParse(t, sql)
	r := Infer(stmt, Context{Catalog: ordersCatalog()})
	require.Len(t, r.Schema.Columns, 2)
	assert.Equal(t, types.KindInt, r.Schema.Columns[0].Type.Kind)
	assert.Equal(t, types.KindDecimal, r.Schema.Columns[1].Type.Kind)
}

func TestInferJoinMergesSchemasInOrder(t *testing.T) {
	sql := "select o.amount, c.name from orders o join customers c on o.id = c.id"
	stmt := mustParse(t, sql)
	r := Infer(stmt, Context{Catalog: ordersCatalog()})
	require.Len(t, r.Schema.Columns, 2)
	assert.Equal(t, types.KindDecimal, r.Schema.Columns[0].Type.Kind)
	assert.Equal(t, types.KindString, r.Schema.Columns[1].Type.Kind)
}

func TestInferJoinDuplicateQualifiedColumnsRenamed(t *testing.T) {
	sql := "select o.id, c.id from orders o join customers c on o.id = c.id"
	stmt := mustParse(t, sql)
	r := Infer(stmt, Context{Catalog: ordersCatalog()})
	require.Len(t, r.Schema.Columns, 2)
	assert.Equal(t, "o.id", r.Schema.Columns[0].Name)
	assert.Equal(t, "c.id", r.Schema.Columns[1].Name)
	assert.Empty(t, r.Diagnostics)
}

func TestInferGroupByViolation(t *testing.T) {
	sql := "select name, count(*) as n, created_at from orders o join customers c on o.id = c.id group by name"
	stmt := mustParse(t, sql)
	r := Infer(stmt, Context{Catalog: ordersCatalog()})
	var codes []types.Code
	for _, d := range r.Diagnostics {
		codes = append(codes, d.Code)
	}
	assert.Contains(t, codes, types.CodeSqlGroupByAggregateUnaliased)
}

func TestInferGroupByCleanProjection(t *testing.T) {
	sql := "select name, count(*) as n from customers group by name"
	stmt := mustParse(t, sql)
	r := Infer(stmt, Context{Catalog: ordersCatalog()})
	assert.Empty(t, r.Diagnostics)
}

func TestInferSynthesizedNamesAreShapeDerived(t *testing.T) {
	stmt := mustParse(t, "select sum(amount), cast(id as string) from orders group by id")
	r := Infer(stmt, Context{Catalog: ordersCatalog()})
	require.Len(t, r.Schema.Columns, 2)
	assert.Equal(t, "sum", r.Schema.Columns[0].Name)
	assert.Equal(t, "cast_string", r.Schema.Columns[1].Name)
}
