package search

import (
	"fmt"
	"strings"
)

// CompileSQL renders the expression as a WHERE clause over the cards table
// aliased as "c". The clause uses ? placeholders; args are returned in order.
func CompileSQL(expr Expr) (string, []interface{}, error) {
	var args []interface{}
	clause, err := compile(expr, &args)
	if err != nil {
		return "", nil, err
	}
	return clause, args, nil
}

func compile(expr Expr, args *[]interface{}) (string, error) {
	switch e := expr.(type) {
	case nil, MatchAll:
		return "1 = 1", nil
	case And:
		return compileGroup([]Expr(e), " AND ", "1 = 1", args)
	case Or:
		return compileGroup([]Expr(e), " OR ", "1 = 0", args)
	case HasColor:
		*args = append(*args, string(e))
		return "EXISTS (SELECT 1 FROM card_colors cc WHERE cc.card_id = c.id AND cc.color = ?)", nil
	case CostRange:
		parts := make([]string, 0, 2)
		if e.Min != nil {
			parts = append(parts, "c.cost >= ?")
			*args = append(*args, *e.Min)
		}
		if e.Max != nil {
			parts = append(parts, "c.cost <= ?")
			*args = append(*args, *e.Max)
		}
		if len(parts) == 0 {
			return "1 = 1", nil
		}
		return strings.Join(parts, " AND "), nil
	case InkableIs:
		// NULL (unknown) never compares equal, matching the in-memory semantics.
		*args = append(*args, bool(e))
		return "c.inkable = ?", nil
	default:
		return "", fmt.Errorf("unsupported filter expression %T", expr)
	}
}

func compileGroup(exprs []Expr, sep, empty string, args *[]interface{}) (string, error) {
	if len(exprs) == 0 {
		return empty, nil
	}
	parts := make([]string, len(exprs))
	for i, child := range exprs {
		clause, err := compile(child, args)
		if err != nil {
			return "", err
		}
		parts[i] = "(" + clause + ")"
	}
	return strings.Join(parts, sep), nil
}
