// Package template renders dbt's Jinja-flavored SQL down to pure SQL,
// resolving a small fixed vocabulary of project-aware functions (ref,
// source, var, config) and a closed registry of no-body package-macro
// stubs. Render never fails outright: errors come back as diagnostics
// alongside a best-effort rendered string.
package template

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/tanzil7890/schemarefly/internal/types"
)

// Target mirrors dbt's `target` Jinja object.
type Target struct {
	Name, Schema, Database, Type string
}

// Context is the explicit rendering context threaded through Render; there
// is no ambient per-process template environment.
type Context struct {
	Vars        map[string]string
	Target      Target
	ModelConfig map[string]string
}

// Result is the preprocessor's output.
type Result struct {
	Rendered    string
	Diagnostics []types.Diagnostic
}

var markerRe = regexp.MustCompile(`\{\{|\{%|\{#`)

// exprRe captures the contents of a {{ ... }} expression block.
var exprRe = regexp.MustCompile(`\{\{\s*(.*?)\s*\}\}`)

// blockRe captures {% ... %} statement blocks (for/if/set — rendered away
// or left inert; see renderBlocks).
var blockRe = regexp.MustCompile(`\{%-?\s*(.*?)\s*-?%\}`)

var commentRe = regexp.MustCompile(`(?s)\{#.*?#\}`)

// forRe matches a `{% for key, value in dict_items(mapping) %} ... {% endfor %}`
// block, the one loop form the preprocessor unrolls (dynamic column
// emission over a mapping).
var forRe = regexp.MustCompile(`(?s)\{%-?\s*for\s+([a-zA-Z_]\w*)\s*,\s*([a-zA-Z_]\w*)\s+in\s+dict_items\s*\(\s*([a-zA-Z_][\w.]*)\s*\)\s*-?%\}(.*?)\{%-?\s*endfor\s*-?%\}`)

// Render reduces raw (possibly templated) SQL to pure SQL. If the input
// contains none of the three template markers it is returned verbatim.
func Render(raw string, ctx Context, file string) Result {
	if !markerRe.MatchString(raw) {
		return Result{Rendered: raw}
	}

	var diags []types.Diagnostic
	out := commentRe.ReplaceAllString(raw, "")

	if d := checkBalance(out, file); d != nil {
		diags = append(diags, *d)
	}

	out = unrollDictLoops(out, ctx)
	out = renderBlocks(out)

	out = exprRe.ReplaceAllStringFunc(out, func(m string) string {
		sub := exprRe.FindStringSubmatch(m)
		val, d := evalExpr(sub[1], ctx, file)
		if d != nil {
			diags = append(diags, *d)
		}
		return val
	})

	return Result{Rendered: out, Diagnostics: diags}
}

// checkBalance flags unbalanced template delimiters. The render still
// proceeds best-effort; the diagnostic just tells the user why the
// downstream SQL parse is likely to complain.
func checkBalance(sql, file string) *types.Diagnostic {
	if strings.Count(sql, "{{") != strings.Count(sql, "}}") ||
		strings.Count(sql, "{%") != strings.Count(sql, "%}") {
		return &types.Diagnostic{
			Code:     types.CodeJinjaSyntaxError,
			Message:  "unbalanced template delimiters",
			Location: types.Location{File: file},
		}
	}
	return nil
}

// unrollDictLoops expands `for key, value in dict_items(mapping)` blocks
// by repeating the body once per mapping entry, substituting the loop
// variables textually. The only mappings visible to the preprocessor are
// the context's vars and model config; entries iterate in sorted key
// order so renders are deterministic.
func unrollDictLoops(sql string, ctx Context) string {
	return forRe.ReplaceAllStringFunc(sql, func(m string) string {
		sub := forRe.FindStringSubmatch(m)
		keyVar, valVar, mappingName, body := sub[1], sub[2], sub[3], sub[4]

		var mapping map[string]string
		switch mappingName {
		case "model_config", "config":
			mapping = ctx.ModelConfig
		case "vars", "var":
			mapping = ctx.Vars
		}
		if len(mapping) == 0 {
			return ""
		}

		keys := make([]string, 0, len(mapping))
		for k := range mapping {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		keyRe := regexp.MustCompile(`\{\{\s*` + regexp.QuoteMeta(keyVar) + `\s*\}\}`)
		valRe := regexp.MustCompile(`\{\{\s*` + regexp.QuoteMeta(valVar) + `\s*\}\}`)

		entries := make([]string, 0, len(keys))
		for _, k := range keys {
			entry := keyRe.ReplaceAllString(body, k)
			entry = valRe.ReplaceAllString(entry, mapping[k])
			// Bodies conventionally end each iteration with a comma;
			// normalize so the join below owns the separators.
			entries = append(entries, strings.TrimSuffix(strings.TrimSpace(entry), ","))
		}
		return strings.Join(entries, ", ")
	})
}

// renderBlocks drops the remaining {% ... %} statements (if/set/
// materialization blocks and any loop form unrollDictLoops didn't own).
// The preprocessor only needs the rendered text to parse, not to execute
// control flow faithfully, so block bodies are left in place and only the
// statement delimiters themselves are elided.
func renderBlocks(sql string) string {
	return blockRe.ReplaceAllStringFunc(sql, func(string) string { return "" })
}

var funcCallRe = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_.]*)\s*\((.*)\)$`)

func evalExpr(expr string, ctx Context, file string) (string, *types.Diagnostic) {
	expr = strings.TrimSpace(expr)
	m := funcCallRe.FindStringSubmatch(expr)
	if m == nil {
		// Bare variable reference, e.g. {{ target.schema }}.
		if v, ok := resolveBareVar(expr, ctx); ok {
			return v, nil
		}
		return "", nil
	}
	name := m[1]
	args := splitArgs(m[2])

	if v, ok, d := callBuiltin(name, args, ctx, file); ok {
		return v, d
	}
	if v, ok := callStub(name, args); ok {
		return v, nil
	}

	return "NULL", &types.Diagnostic{
		Code:     types.CodeJinjaRenderError,
		Message:  fmt.Sprintf("unresolved template function %q", name),
		Location: types.Location{File: file},
	}
}

func resolveBareVar(expr string, ctx Context) (string, bool) {
	switch expr {
	case "target.schema":
		return ctx.Target.Schema, true
	case "target.name":
		return ctx.Target.Name, true
	case "target.database":
		return ctx.Target.Database, true
	case "target.type":
		return ctx.Target.Type, true
	}
	return "", false
}

func callBuiltin(name string, args []string, ctx Context, file string) (string, bool, *types.Diagnostic) {
	switch name {
	case "ref":
		if len(args) == 0 {
			return "", true, nil
		}
		return unquote(args[len(args)-1]), true, nil
	case "source":
		if len(args) < 2 {
			return "", true, nil
		}
		return unquote(args[0]) + "." + unquote(args[1]), true, nil
	case "var":
		if len(args) == 0 {
			return "", true, nil
		}
		key := unquote(args[0])
		if v, ok := ctx.Vars[key]; ok {
			return v, true, nil
		}
		if len(args) >= 2 {
			return unquote(args[1]), true, nil
		}
		return "NULL", true, &types.Diagnostic{
			Code:     types.CodeJinjaUndefinedVariable,
			Message:  fmt.Sprintf("undefined variable %q with no default", key),
			Location: types.Location{File: file},
		}
	case "config":
		return "", true, nil
	default:
		return "", false, nil
	}
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// splitArgs splits a comma-separated argument list, respecting quotes so
// commas inside string literals don't split incorrectly.
func splitArgs(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var args []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			args = append(args, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	args = append(args, strings.TrimSpace(s[start:]))
	return args
}
