package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanzil7890/schemarefly/internal/types"
)

func TestRenderPlainSQLReturnsVerbatim(t *testing.T) {
	raw := "select id, amount from orders -- no templating here"
	r := Render(raw, Context{}, "models/a.sql")
	assert.Equal(t, raw, r.Rendered)
	assert.Empty(t, r.Diagnostics)
}

func TestRenderRef(t *testing.T) {
	r := Render("select * from {{ ref('stg_orders') }}", Context{}, "a.sql")
	assert.Equal(t, "select * from stg_orders", r.Rendered)
	assert.Empty(t, r.Diagnostics)
}

func TestRenderRefWithPackageIgnoresPackage(t *testing.T) {
	r := Render("select * from {{ ref('other_pkg', 'stg_orders') }}", Context{}, "a.sql")
	assert.Equal(t, "select * from stg_orders", r.Rendered)
}

func TestRenderSource(t *testing.T) {
	r := Render("select * from {{ source('raw', 'orders') }}", Context{}, "a.sql")
	assert.Equal(t, "select * from raw.orders", r.Rendered)
}

func TestRenderVarWithContextValue(t *testing.T) {
	ctx := Context{Vars: map[string]string{"start_date": "'2020-01-01'"}}
	r := Render("select * from orders where created_at > {{ var('start_date') }}", ctx, "a.sql")
	assert.Contains(t, r.Rendered, "'2020-01-01'")
	assert.Empty(t, r.Diagnostics)
}

func TestRenderVarDefault(t *testing.T) {
	r := Render("select {{ var('batch_size', '1000') }} as batch_size", Context{}, "a.sql")
	assert.Equal(t, "select 1000 as batch_size", r.Rendered)
}

func TestRenderVarUndefinedWithoutDefault(t *testing.T) {
	r := Render("select {{ var('missing') }} as x", Context{}, "a.sql")
	require.Len(t, r.Diagnostics, 1)
	assert.Equal(t, types.CodeJinjaUndefinedVariable, r.Diagnostics[0].Code)
	assert.Equal(t, "a.sql", r.Diagnostics[0].Location.File)
	assert.Equal(t, "select NULL as x", r.Rendered)
}

func TestRenderConfigErased(t *testing.T) {
	r := Render("{{ config(materialized='table') }}\nselect 1 as one", Context{}, "a.sql")
	assert.Equal(t, "\nselect 1 as one", r.Rendered)
}

func TestRenderCommentStripped(t *testing.T) {
	r := Render("select 1 as one {# explain #}", Context{}, "a.sql")
	assert.Equal(t, "select 1 as one ", r.Rendered)
}

func TestRenderTargetFields(t *testing.T) {
	ctx := Context{Target: Target{Schema: "analytics", Database: "prod"}}
	r := Render("select '{{ target.schema }}' as s", ctx, "a.sql")
	assert.Equal(t, "select 'analytics' as s", r.Rendered)
}

func TestRenderKnownStubMacro(t *testing.T) {
	r := Render("select {{ dbt_utils.generate_surrogate_key(['a','b']) }} as sk", Context{}, "a.sql")
	assert.Equal(t, "select CAST(NULL AS STRING) as sk", r.Rendered)
	assert.Empty(t, r.Diagnostics)
}

func TestRenderUnknownNamespacedMacroStillParses(t *testing.T) {
	r := Render("select {{ some_pkg.mystery(1, 2) }} as x", Context{}, "a.sql")
	assert.Equal(t, "select NULL as x", r.Rendered)
	assert.Empty(t, r.Diagnostics, "namespaced calls fall back to a parse-safe NULL without complaint")
}

func TestRenderUnknownBareFunctionDiagnosed(t *testing.T) {
	r := Render("select {{ run_query('x') }} as x", Context{}, "a.sql")
	require.Len(t, r.Diagnostics, 1)
	assert.Equal(t, types.CodeJinjaRenderError, r.Diagnostics[0].Code)
	assert.Contains(t, r.Rendered, "NULL")
}

func TestRenderDictItemsLoopUnrolled(t *testing.T) {
	ctx := Context{Vars: map[string]string{
		"total_amount": "amount",
		"total_tax":    "tax",
	}}
	sql := "select {% for name, col in dict_items(vars) %}sum({{ col }}) as {{ name }},{% endfor %} from orders"
	r := Render(sql, ctx, "a.sql")
	assert.Contains(t, r.Rendered, "sum(amount) as total_amount")
	assert.Contains(t, r.Rendered, "sum(tax) as total_tax")
	assert.NotContains(t, r.Rendered, "endfor")
}

func TestRenderUnbalancedDelimiters(t *testing.T) {
	r := Render("select {{ ref('a') from b", Context{}, "a.sql")
	require.NotEmpty(t, r.Diagnostics)
	assert.Equal(t, types.CodeJinjaSyntaxError, r.Diagnostics[0].Code)
}

func TestRenderIsIdempotentOnPlainOutput(t *testing.T) {
	r1 := Render("select * from {{ ref('m') }}", Context{}, "a.sql")
	r2 := Render(r1.Rendered, Context{}, "a.sql")
	assert.Equal(t, r1.Rendered, r2.Rendered)
}
