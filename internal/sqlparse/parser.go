package sqlparse

import (
	"fmt"

	"github.com/tanzil7890/schemarefly/internal/types"
)

// ParseResult is parse's output.
type ParseResult struct {
	AST         *Statement
	Diagnostics []types.Diagnostic
	Inferable   bool
}

// parseError is a recoverable condition signalling the statement could not
// be parsed or contains unsupported syntax. It is never allowed to panic
// past Parse; see the recover() in Parse.
type parseError struct {
	code types.Code
	msg  string
	tok  token
}

func (e *parseError) Error() string { return e.msg }

type parser struct {
	dialect Dialect
	toks    []token
	idx     int
	file    string
}

// Parse tokenizes and parses preprocessed SQL for the given dialect. It
// never panics: any internal failure is recovered and converted into a
// SqlParseError diagnostic with the node flagged not-inferable.
func Parse(dialect Dialect, sql string, file string) (result ParseResult) {
	defer func() {
		if r := recover(); r != nil {
			result = ParseResult{
				Inferable: false,
				Diagnostics: []types.Diagnostic{{
					Code:     types.CodeSqlParseError,
					Message:  fmt.Sprintf("internal parser failure: %v", r),
					Location: types.Location{File: file},
				}},
			}
		}
	}()

	toks := tokenize(sql)
	p := &parser{dialect: dialect, toks: toks, file: file}

	stmt, err := p.parseStatement()
	if err != nil {
		pe, _ := err.(*parseError)
		code := types.CodeSqlParseError
		loc := types.Location{File: file}
		if pe != nil {
			if pe.code != "" {
				code = pe.code
			}
			loc.Line = pe.tok.line
			loc.Column = pe.tok.col
			loc.HasPos = true
		}
		return ParseResult{
			Inferable: false,
			Diagnostics: []types.Diagnostic{{Code: code, Message: err.Error(), Location: loc}},
		}
	}

	return ParseResult{AST: stmt, Inferable: true}
}

func tokenize(sql string) []token {
	l := newLexer(sql)
	var toks []token
	for {
		t := l.next()
		toks = append(toks, t)
		if t.kind == tokEOF {
			break
		}
	}
	return toks
}

func (p *parser) cur() token  { return p.toks[p.idx] }
func (p *parser) at(kw string) bool {
	t := p.cur()
	return (t.kind == tokKeyword || t.kind == tokIdent) && t.upper == kw
}
func (p *parser) atPunct(s string) bool {
	t := p.cur()
	return t.kind == tokPunct && t.text == s
}
func (p *parser) atOp(s string) bool {
	t := p.cur()
	return t.kind == tokOp && t.text == s
}
func (p *parser) advance() token {
	t := p.cur()
	if t.kind != tokEOF {
		p.idx++
	}
	return t
}

func (p *parser) expectKeyword(kw string) (token, error) {
	if !p.at(kw) {
		return p.cur(), &parseError{msg: fmt.Sprintf("expected %s, got %q", kw, p.cur().text), tok: p.cur()}
	}
	return p.advance(), nil
}

func (p *parser) expectPunct(s string) (token, error) {
	if !p.atPunct(s) {
		return p.cur(), &parseError{msg: fmt.Sprintf("expected %q, got %q", s, p.cur().text), tok: p.cur()}
	}
	return p.advance(), nil
}

func (p *parser) parseStatement() (*Statement, error) {
	stmt := &Statement{}
	if p.at("WITH") {
		p.advance()
		seen := map[string]bool{}
		for {
			nameTok := p.advance()
			if nameTok.kind != tokIdent && nameTok.kind != tokKeyword {
				return nil, &parseError{msg: "expected CTE name", tok: nameTok}
			}
			if seen[nameTok.upper] {
				return nil, &parseError{code: types.CodeSqlUnsupportedSyntax, msg: fmt.Sprintf("duplicate CTE name %q", nameTok.text), tok: nameTok}
			}
			seen[nameTok.upper] = true
			if _, err := p.expectKeyword("AS"); err != nil {
				return nil, err
			}
			if _, err := p.expectPunct("("); err != nil {
				return nil, err
			}
			sub, err := p.parseSelect()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			stmt.CTEs = append(stmt.CTEs, CTE{Name: nameTok.text, Query: sub})
			if p.atPunct(",") {
				p.advance()
				continue
			}
			break
		}
	}

	q, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	stmt.Query = q

	if p.atPunct(";") {
		p.advance()
	}
	if p.cur().kind != tokEOF {
		return nil, &parseError{msg: fmt.Sprintf("unexpected trailing input %q", p.cur().text), tok: p.cur()}
	}
	return stmt, nil
}

func (p *parser) parseSelect() (*SelectQuery, error) {
	startTok := p.cur()
	if _, err := p.expectKeyword("SELECT"); err != nil {
		return nil, err
	}
	q := &SelectQuery{pos: startTok.pos, line: startTok.line}
	if p.at("DISTINCT") {
		p.advance()
		q.Distinct = true
	} else if p.at("ALL") {
		p.advance()
	}

	items, err := p.parseSelectItems()
	if err != nil {
		return nil, err
	}
	q.Items = items

	if p.at("FROM") {
		p.advance()
		from, err := p.parseTableRef()
		if err != nil {
			return nil, err
		}
		q.From = &from

		for p.atJoinStart() {
			j, err := p.parseJoin()
			if err != nil {
				return nil, err
			}
			q.Joins = append(q.Joins, j)
		}
		for p.atPunct(",") {
			p.advance()
			t, err := p.parseTableRef()
			if err != nil {
				return nil, err
			}
			q.Joins = append(q.Joins, Join{Kind: JoinInner, Table: t})
		}
	}

	if p.at("WHERE") {
		p.advance()
		w, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		q.Where = w
	}

	if p.at("GROUP") {
		p.advance()
		if _, err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			q.GroupBy = append(q.GroupBy, e)
			if p.atPunct(",") {
				p.advance()
				continue
			}
			break
		}
	}

	// HAVING/ORDER BY/LIMIT don't affect output schema; skip tokens up to
	// the statement's end (closing paren, comma, EOF).
	p.skipTrailingClauses()

	return q, nil
}

// skipTrailingClauses consumes HAVING/ORDER BY/LIMIT (none of which alter
// the projected schema) without building AST for them.
func (p *parser) skipTrailingClauses() {
	for {
		switch {
		case p.at("HAVING"), p.at("ORDER"), p.at("LIMIT"):
			p.advance()
			for !(p.atPunct(")") || p.atPunct(",") || p.cur().kind == tokEOF || p.at("HAVING") || p.at("ORDER") || p.at("LIMIT")) {
				p.advance()
			}
		default:
			return
		}
	}
}

func (p *parser) parseSelectItems() ([]SelectItem, error) {
	var items []SelectItem
	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.atPunct(",") {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}

func (p *parser) parseSelectItem() (SelectItem, error) {
	if p.atOp("*") {
		p.advance()
		return SelectItem{Star: true}, nil
	}
	// qualifier.* lookahead
	if p.cur().kind == tokIdent && p.peekIsDotStar() {
		q := p.advance().text
		p.advance() // '.'
		p.advance() // '*'
		return SelectItem{Star: true, StarQualifier: q}, nil
	}

	e, err := p.parseExpr()
	if err != nil {
		return SelectItem{}, err
	}
	item := SelectItem{Expr: e}
	if p.at("AS") {
		p.advance()
		item.Alias = p.advance().text
	} else if p.cur().kind == tokIdent && !p.atClauseBoundary() {
		item.Alias = p.advance().text
	}
	return item, nil
}

func (p *parser) peekIsDotStar() bool {
	if p.idx+2 >= len(p.toks) {
		return false
	}
	return p.toks[p.idx+1].kind == tokPunct && p.toks[p.idx+1].text == "." &&
		p.toks[p.idx+2].kind == tokOp && p.toks[p.idx+2].text == "*"
}

// atClauseBoundary reports whether the current identifier token is
// actually a clause keyword acting as a boundary (FROM, WHERE, ...) rather
// than an implicit alias.
func (p *parser) atClauseBoundary() bool {
	switch p.cur().upper {
	case "FROM", "WHERE", "GROUP", "ORDER", "HAVING", "LIMIT", "UNION", "JOIN", "INNER", "LEFT", "RIGHT", "FULL", "ON":
		return true
	}
	return false
}

func (p *parser) atJoinStart() bool {
	return p.at("JOIN") || p.at("INNER") || p.at("LEFT") || p.at("RIGHT") || p.at("FULL")
}

func (p *parser) parseJoin() (Join, error) {
	kind := JoinInner
	switch {
	case p.at("INNER"):
		p.advance()
	case p.at("LEFT"):
		p.advance()
		kind = JoinLeft
		if p.at("OUTER") {
			p.advance()
		}
	case p.at("RIGHT"):
		p.advance()
		kind = JoinRight
		if p.at("OUTER") {
			p.advance()
		}
	case p.at("FULL"):
		p.advance()
		kind = JoinFull
		if p.at("OUTER") {
			p.advance()
		}
	}
	if _, err := p.expectKeyword("JOIN"); err != nil {
		return Join{}, err
	}
	t, err := p.parseTableRef()
	if err != nil {
		return Join{}, err
	}
	j := Join{Kind: kind, Table: t}
	if p.at("ON") {
		p.advance()
		on, err := p.parseExpr()
		if err != nil {
			return Join{}, err
		}
		j.On = on
	}
	return j, nil
}

func (p *parser) parseTableRef() (TableRef, error) {
	var parts []string
	tok := p.advance()
	if tok.kind != tokIdent && tok.kind != tokKeyword {
		return TableRef{}, &parseError{msg: fmt.Sprintf("expected table name, got %q", tok.text), tok: tok}
	}
	parts = append(parts, tok.text)
	for p.atPunct(".") {
		p.advance()
		t := p.advance()
		parts = append(parts, t.text)
	}
	ref := TableRef{Qualifier: parts}
	if p.at("AS") {
		p.advance()
		ref.Alias = p.advance().text
	} else if p.cur().kind == tokIdent && !p.atClauseBoundary() {
		ref.Alias = p.advance().text
	}
	return ref, nil
}
