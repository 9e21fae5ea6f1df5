package sqlparse

// Statement is the top-level parsed unit: zero or more CTEs plus a query.
type Statement struct {
	CTEs  []CTE
	Query *SelectQuery
}

// CTE is one WITH-clause entry.
type CTE struct {
	Name  string
	Query *SelectQuery
}

// SelectItem is one projected expression, with its explicit alias if any.
type SelectItem struct {
	Expr  Expr
	Alias string // "" if no explicit alias
	Star  bool
	// StarQualifier is non-empty for "qualifier.*" star expansion.
	StarQualifier string
}

// TableRef names a FROM/JOIN source: by the time SQL reaches the parser,
// ref()/source() have already been rendered to plain identifiers, so every
// table source is an identifier chain (optionally dotted) plus an alias.
type TableRef struct {
	Qualifier []string
	Alias     string
}

// Name returns the dotted identifier form, e.g. "schema.table".
func (t TableRef) Name() string {
	out := ""
	for i, p := range t.Qualifier {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}

type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinFull
)

// Join chains one additional table source onto the FROM clause.
type Join struct {
	Kind  JoinKind
	Table TableRef
	On    Expr // nil for a bare comma-join
}

// SelectQuery is one SELECT statement (no UNION/set-operator support — see
// DESIGN.md for the scope boundary).
type SelectQuery struct {
	Distinct bool
	Items    []SelectItem
	From     *TableRef
	Joins    []Join
	Where    Expr
	GroupBy  []Expr
	pos      int
	line     int
}

// Expr is the sum type for scalar expressions.
type Expr interface{ exprNode() }

type LiteralKind int

const (
	LitInt LiteralKind = iota
	LitDecimal
	LitFloat
	LitString
	LitBool
	LitNull
	LitDate
	LitTimestamp
)

type Literal struct {
	Kind LiteralKind
	Text string
}

func (Literal) exprNode() {}

// ColumnRefExpr is a (possibly qualified) column reference.
type ColumnRefExpr struct {
	Qualifier string // "" if unqualified
	Column    string
	pos       int
	line, col int
}

func (ColumnRefExpr) exprNode() {}

type BinaryExpr struct {
	Op          string
	Left, Right Expr
}

func (BinaryExpr) exprNode() {}

type UnaryExpr struct {
	Op   string
	Expr Expr
}

func (UnaryExpr) exprNode() {}

type CastExpr struct {
	Expr       Expr
	TargetType string
}

func (CastExpr) exprNode() {}

type FuncCall struct {
	Name     string
	Args     []Expr
	Distinct bool
	Star     bool // COUNT(*)
}

func (FuncCall) exprNode() {}

type CaseExpr struct {
	Whens []CaseWhen
	Else  Expr
}

func (CaseExpr) exprNode() {}

type CaseWhen struct {
	Cond Expr
	Then Expr
}
