// Package legality decides whether cards may be played in a format.
//
// The policy is default-deny: a card is legal only when its legality entry for
// the format says Allowed == True and the reference time lies inside the
// entry's validity window, if one is set. A missing entry, or an Allowed value
// of Unknown, is illegal.
package legality

import (
	"time"

	"github.com/ramonehamilton/InkForge/internal/lorcana/cards"
	"github.com/ramonehamilton/InkForge/internal/lorcana/search"
)

// Reason explains a legality verdict.
type Reason string

const (
	ReasonLegal         Reason = "legal"
	ReasonNoEntry       Reason = "no_entry"
	ReasonAllowUnknown  Reason = "allow_unknown"
	ReasonNotAllowed    Reason = "not_allowed"
	ReasonNotYetValid   Reason = "not_yet_valid"
	ReasonNoLongerValid Reason = "no_longer_valid"
)

// Verdict is the result of checking one card against one format.
type Verdict struct {
	Format cards.Format `json:"format"`
	Legal  bool         `json:"legal"`
	Reason Reason       `json:"reason"`
}

// Explain checks a card against a format at the given time.
func Explain(card *cards.CardRecord, format cards.Format, at time.Time) Verdict {
	v := Verdict{Format: format}

	entry, ok := card.Legality[format]
	if !ok {
		v.Reason = ReasonNoEntry
		return v
	}

	switch entry.Allowed {
	case cards.True:
	case cards.False:
		v.Reason = ReasonNotAllowed
		return v
	default:
		v.Reason = ReasonAllowUnknown
		return v
	}

	if entry.HasWindow() {
		if entry.ValidFrom != nil && at.Before(*entry.ValidFrom) {
			v.Reason = ReasonNotYetValid
			return v
		}
		if entry.ValidUntil != nil && at.After(*entry.ValidUntil) {
			v.Reason = ReasonNoLongerValid
			return v
		}
	}

	v.Legal = true
	v.Reason = ReasonLegal
	return v
}

// IsLegal reports whether the card may be played in the format at the given time.
func IsLegal(card *cards.CardRecord, format cards.Format, at time.Time) bool {
	if card == nil {
		return false
	}
	return Explain(card, format, at).Legal
}

// ExplainAll checks a card against every supported format.
func ExplainAll(card *cards.CardRecord, at time.Time) []Verdict {
	verdicts := make([]Verdict, 0, len(cards.SupportedFormats))
	for _, f := range cards.SupportedFormats {
		verdicts = append(verdicts, Explain(card, f, at))
	}
	return verdicts
}

// Filter returns the legal candidates in their original order. The input is
// not modified.
func Filter(pool []search.Candidate, format cards.Format, at time.Time) []search.Candidate {
	legal := make([]search.Candidate, 0, len(pool))
	for _, c := range pool {
		if IsLegal(c.Card, format, at) {
			legal = append(legal, c)
		}
	}
	return legal
}
