package assembler

import "github.com/ramonehamilton/InkForge/internal/lorcana/cards"

// Entry is one unique card in a deck plan.
type Entry struct {
	CardID  string         `json:"cardId"`
	Copies  int            `json:"copies"`
	Inkable cards.TriState `json:"inkable"`
	Cost    int            `json:"cost"`
	Rank    int            `json:"rank"`
}

// DeckPlan is the assembled deck: copy counts per card in similarity-rank
// order plus running totals.
type DeckPlan struct {
	Entries    []Entry `json:"entries"`
	Size       int     `json:"size"`
	Inkable    int     `json:"inkable"`
	NonInkable int     `json:"nonInkable"`
	Unknown    int     `json:"unknown"`
}

// InkRatio returns the share of inkable copies among copies with a known
// status. ok is false when no copy has a known status.
func (p *DeckPlan) InkRatio() (ratio float64, ok bool) {
	return ratioOf(p.Inkable, p.NonInkable)
}

// CostCurve returns copies per ink cost.
func (p *DeckPlan) CostCurve() map[int]int {
	curve := make(map[int]int)
	for _, e := range p.Entries {
		curve[e.Cost] += e.Copies
	}
	return curve
}

func ratioOf(inkable, nonInkable int) (float64, bool) {
	known := inkable + nonInkable
	if known == 0 {
		return 0, false
	}
	return float64(inkable) / float64(known), true
}
