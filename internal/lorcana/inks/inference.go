// Package inks infers a deck's ink identity from the candidate pool.
package inks

import (
	"sort"

	"github.com/ramonehamilton/InkForge/internal/lorcana/cards"
	"github.com/ramonehamilton/InkForge/internal/lorcana/search"
)

// View is the only card data inference may look at: identity, inks and
// similarity rank. It has no access to names, text or any other field.
type View struct {
	ID     string
	Colors []cards.Ink
	Rank   int
}

// Views projects candidates onto the restricted view.
func Views(pool []search.Candidate) []View {
	views := make([]View, 0, len(pool))
	for _, c := range pool {
		if c.Card == nil {
			continue
		}
		colors := make([]cards.Ink, len(c.Card.Colors))
		copy(colors, c.Card.Colors)
		views = append(views, View{ID: c.Card.ID, Colors: colors, Rank: c.Rank})
	}
	return views
}

// Policy tunes inference.
type Policy struct {
	// MonoColorShare keeps the deck single-ink when the share of pool cards
	// carrying the primary ink reaches this value. Values above 1 disable it.
	MonoColorShare float64
}

// DefaultPolicy returns the default inference policy.
func DefaultPolicy() Policy {
	return Policy{MonoColorShare: 0.6}
}

// Choice is the ink identity picked for a deck.
type Choice struct {
	Primary   cards.Ink  `json:"primary"`
	Secondary *cards.Ink `json:"secondary,omitempty"`
}

// Inks returns the chosen inks, primary first.
func (c Choice) Inks() []cards.Ink {
	if c.Secondary == nil {
		return []cards.Ink{c.Primary}
	}
	return []cards.Ink{c.Primary, *c.Secondary}
}

// IsMono reports whether only a primary ink was chosen.
func (c Choice) IsMono() bool { return c.Secondary == nil }

// ChoiceOf builds a choice from one or two explicit inks.
func ChoiceOf(inks []cards.Ink) (Choice, bool) {
	switch len(inks) {
	case 1:
		return Choice{Primary: inks[0]}, true
	case 2:
		if inks[0] == inks[1] {
			return Choice{Primary: inks[0]}, true
		}
		secondary := inks[1]
		return Choice{Primary: inks[0], Secondary: &secondary}, true
	default:
		return Choice{}, false
	}
}

// Tally is the per-ink frequency of a pool.
type Tally struct {
	Ink     cards.Ink `json:"ink"`
	Count   int       `json:"count"`
	AvgRank float64   `json:"avgRank"`
}

// CountInks tallies ink frequency. A multi-ink card counts once for each ink
// it carries. The result is sorted most frequent first; ties go to the ink
// whose cards rank better on average, then to canonical ink order.
func CountInks(views []View) []Tally {
	counts := make(map[cards.Ink]int)
	rankSums := make(map[cards.Ink]int)

	for _, v := range views {
		seen := make(map[cards.Ink]bool, len(v.Colors))
		for _, ink := range v.Colors {
			if !ink.Valid() || seen[ink] {
				continue
			}
			seen[ink] = true
			counts[ink]++
			rankSums[ink] += v.Rank
		}
	}

	tallies := make([]Tally, 0, len(counts))
	for _, ink := range cards.AllInks {
		n := counts[ink]
		if n == 0 {
			continue
		}
		tallies = append(tallies, Tally{
			Ink:     ink,
			Count:   n,
			AvgRank: float64(rankSums[ink]) / float64(n),
		})
	}

	sort.SliceStable(tallies, func(i, j int) bool {
		a, b := tallies[i], tallies[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.AvgRank != b.AvgRank {
			return a.AvgRank < b.AvgRank
		}
		return a.Ink.Index() < b.Ink.Index()
	})

	return tallies
}

// Infer picks one or two inks from the pool. ok is false when no card in the
// pool carries a known ink.
func Infer(views []View, policy Policy) (Choice, bool) {
	tallies := CountInks(views)
	if len(tallies) == 0 {
		return Choice{}, false
	}

	choice := Choice{Primary: tallies[0].Ink}
	if len(tallies) == 1 {
		return choice, true
	}

	share := float64(tallies[0].Count) / float64(len(views))
	if share >= policy.MonoColorShare {
		return choice, true
	}

	secondary := tallies[1].Ink
	choice.Secondary = &secondary
	return choice, true
}

// Restrict keeps the candidates carrying at least one of the chosen inks, in
// their original order.
func Restrict(pool []search.Candidate, choice Choice) []search.Candidate {
	inks := choice.Inks()
	kept := make([]search.Candidate, 0, len(pool))
	for _, c := range pool {
		if c.Card != nil && c.Card.HasAnyColor(inks) {
			kept = append(kept, c)
		}
	}
	return kept
}
