// Package search builds retrieval filters and issues the similarity query
// that produces the candidate pool.
package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ramonehamilton/InkForge/internal/lorcana/cards"
)

// ErrInvalidFilter is returned when filter constraints contradict each other
// or reference unknown values.
var ErrInvalidFilter = errors.New("invalid search filters")

// Filters are the declarative constraints for one retrieval.
// Nil and empty fields are unconstrained.
type Filters struct {
	Colors  []cards.Ink  `json:"colors,omitempty"`
	MinCost *int         `json:"minCost,omitempty"`
	MaxCost *int         `json:"maxCost,omitempty"`
	Inkable *bool        `json:"inkable,omitempty"`
	Format  cards.Format `json:"format,omitempty"`
}

// IsEmpty reports whether no constraint participating in the filter is set.
// Format is carried along but never filtered on here.
func (f Filters) IsEmpty() bool {
	return len(f.Colors) == 0 && f.MinCost == nil && f.MaxCost == nil && f.Inkable == nil
}

// Expr is a filter expression both shipped engines understand: it evaluates
// in memory and compiles to SQL.
type Expr interface {
	Match(card *cards.CardRecord) bool
	String() string
}

// MatchAll matches every card.
type MatchAll struct{}

// And matches when every child matches.
type And []Expr

// Or matches when at least one child matches.
type Or []Expr

// HasColor matches cards carrying the ink.
type HasColor cards.Ink

// CostRange matches cards whose cost lies within the inclusive bounds.
type CostRange struct {
	Min *int
	Max *int
}

// InkableIs matches cards whose inkable status is exactly the given value.
// Cards with unknown status never match.
type InkableIs bool

func (MatchAll) Match(*cards.CardRecord) bool { return true }
func (MatchAll) String() string               { return "*" }

func (a And) Match(card *cards.CardRecord) bool {
	for _, e := range a {
		if !e.Match(card) {
			return false
		}
	}
	return true
}

func (a And) String() string { return join(a, " AND ") }

func (o Or) Match(card *cards.CardRecord) bool {
	for _, e := range o {
		if e.Match(card) {
			return true
		}
	}
	return false
}

func (o Or) String() string { return join(o, " OR ") }

func (h HasColor) Match(card *cards.CardRecord) bool { return card.HasColor(cards.Ink(h)) }
func (h HasColor) String() string                    { return "color = " + string(h) }

func (r CostRange) Match(card *cards.CardRecord) bool {
	if r.Min != nil && card.Cost < *r.Min {
		return false
	}
	if r.Max != nil && card.Cost > *r.Max {
		return false
	}
	return true
}

func (r CostRange) String() string {
	parts := make([]string, 0, 2)
	if r.Min != nil {
		parts = append(parts, fmt.Sprintf("cost >= %d", *r.Min))
	}
	if r.Max != nil {
		parts = append(parts, fmt.Sprintf("cost <= %d", *r.Max))
	}
	return strings.Join(parts, " AND ")
}

func (i InkableIs) Match(card *cards.CardRecord) bool {
	return card.Inkable == cards.FromBool(bool(i))
}

func (i InkableIs) String() string { return fmt.Sprintf("inkable = %t", bool(i)) }

func join(exprs []Expr, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = "(" + e.String() + ")"
	}
	return strings.Join(parts, sep)
}

// BuildFilter turns the constraints into an expression: categories are
// combined with AND, colors with OR. Empty constraints yield MatchAll.
// Format legality is deliberately left out; it is applied after retrieval.
func BuildFilter(f Filters) (Expr, error) {
	var clauses And

	if len(f.Colors) > 0 {
		colors := make(Or, 0, len(f.Colors))
		seen := make(map[cards.Ink]bool, len(f.Colors))
		for _, ink := range f.Colors {
			if !ink.Valid() {
				return nil, fmt.Errorf("%w: unknown ink %q", ErrInvalidFilter, ink)
			}
			if seen[ink] {
				continue
			}
			seen[ink] = true
			colors = append(colors, HasColor(ink))
		}
		clauses = append(clauses, colors)
	}

	if f.MinCost != nil || f.MaxCost != nil {
		if f.MinCost != nil && *f.MinCost < 0 {
			return nil, fmt.Errorf("%w: min cost %d is negative", ErrInvalidFilter, *f.MinCost)
		}
		if f.MaxCost != nil && *f.MaxCost < 0 {
			return nil, fmt.Errorf("%w: max cost %d is negative", ErrInvalidFilter, *f.MaxCost)
		}
		if f.MinCost != nil && f.MaxCost != nil && *f.MinCost > *f.MaxCost {
			return nil, fmt.Errorf("%w: min cost %d exceeds max cost %d", ErrInvalidFilter, *f.MinCost, *f.MaxCost)
		}
		clauses = append(clauses, CostRange{Min: f.MinCost, Max: f.MaxCost})
	}

	if f.Inkable != nil {
		clauses = append(clauses, InkableIs(*f.Inkable))
	}

	switch len(clauses) {
	case 0:
		return MatchAll{}, nil
	case 1:
		return clauses[0], nil
	default:
		return clauses, nil
	}
}
