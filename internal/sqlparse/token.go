package sqlparse

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokPunct  // ( ) , . ; etc
	tokOp     // = < > <= >= <> != + - * / ||
	tokKeyword
)

type token struct {
	kind tokenKind
	text string
	// upper is the upper-cased form of text, used for keyword/function
	// matching without allocating repeatedly.
	upper string
	pos   int
	line  int
	col   int
}

var keywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "AS": true, "WITH": true,
	"JOIN": true, "INNER": true, "LEFT": true, "RIGHT": true, "FULL": true,
	"OUTER": true, "ON": true, "GROUP": true, "BY": true, "ORDER": true,
	"DISTINCT": true, "AND": true, "OR": true, "NOT": true, "NULL": true,
	"TRUE": true, "FALSE": true, "CAST": true, "CASE": true, "WHEN": true,
	"THEN": true, "ELSE": true, "END": true, "IN": true, "IS": true,
	"LIMIT": true, "HAVING": true, "UNION": true, "ALL": true, "DATE": true,
	"TIMESTAMP": true, "INTERVAL": true,
}
