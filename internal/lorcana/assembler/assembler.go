// Package assembler builds an exact-size deck from a ranked candidate pool in
// a single greedy pass followed by at most one ink-ratio adjustment pass.
package assembler

import (
	"fmt"
	"math"
	"sort"

	"github.com/ramonehamilton/InkForge/internal/lorcana/cards"
	"github.com/ramonehamilton/InkForge/internal/lorcana/search"
)

const ratioEpsilon = 1e-9

// Band is an inclusive ratio range.
type Band struct {
	Min float64 `json:"min" toml:"min"`
	Max float64 `json:"max" toml:"max"`
}

// Contains reports whether r lies within the band.
func (b Band) Contains(r float64) bool {
	return r+ratioEpsilon >= b.Min && r-ratioEpsilon <= b.Max
}

// Options configure assembly.
type Options struct {
	DeckSize int
	CopyCap  int
	InkRatio Band
}

// DefaultOptions returns a 60-card deck, 4 copies per card, 70-80% inkable.
func DefaultOptions() Options {
	return Options{
		DeckSize: 60,
		CopyCap:  4,
		InkRatio: Band{Min: 0.70, Max: 0.80},
	}
}

// Validate checks the options are usable.
func (o Options) Validate() error {
	if o.DeckSize <= 0 {
		return fmt.Errorf("%w: deck size must be positive, got %d", ErrInvalidOptions, o.DeckSize)
	}
	if o.CopyCap <= 0 {
		return fmt.Errorf("%w: copy cap must be positive, got %d", ErrInvalidOptions, o.CopyCap)
	}
	if o.InkRatio.Min < 0 || o.InkRatio.Max > 1 || o.InkRatio.Min > o.InkRatio.Max {
		return fmt.Errorf("%w: ink ratio band [%.2f, %.2f]", ErrInvalidOptions, o.InkRatio.Min, o.InkRatio.Max)
	}
	return nil
}

type slot struct {
	card   *cards.CardRecord
	rank   int
	copies int
}

type tally struct {
	size, inkable, nonInkable, unknown int
}

func (t *tally) add(status cards.TriState, n int) {
	t.size += n
	switch status {
	case cards.True:
		t.inkable += n
	case cards.False:
		t.nonInkable += n
	default:
		t.unknown += n
	}
}

// Assemble builds a deck of exactly opts.DeckSize copies from the pool, which
// is expected to be legal and ink-matched already. Candidates are consumed in
// rank order; duplicate card ids after the first are ignored.
func Assemble(pool []search.Candidate, opts Options) (*DeckPlan, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	slots := uniqueSlots(pool)

	capacity := len(slots) * opts.CopyCap
	if capacity < opts.DeckSize {
		return nil, &InsufficientCandidatesError{
			Reason:    ReasonCapacity,
			Need:      opts.DeckSize,
			Capacity:  capacity,
			Shortfall: opts.DeckSize - capacity,
		}
	}

	var t tally
	for i := range slots {
		if t.size == opts.DeckSize {
			break
		}
		n := min(opts.CopyCap, opts.DeckSize-t.size)
		slots[i].copies = n
		t.add(slots[i].card.Inkable, n)
	}

	balance(slots, &t, opts)

	if ratio, ok := ratioOf(t.inkable, t.nonInkable); ok && !opts.InkRatio.Contains(ratio) {
		return nil, &InsufficientCandidatesError{
			Reason:    ReasonInkRatio,
			Need:      opts.DeckSize,
			Capacity:  capacity,
			Shortfall: inkShortfall(t, opts.InkRatio),
			Ratio:     ratio,
		}
	}

	plan := &DeckPlan{
		Size:       t.size,
		Inkable:    t.inkable,
		NonInkable: t.nonInkable,
		Unknown:    t.unknown,
	}
	for _, s := range slots {
		if s.copies == 0 {
			continue
		}
		plan.Entries = append(plan.Entries, Entry{
			CardID:  s.card.ID,
			Copies:  s.copies,
			Inkable: s.card.Inkable,
			Cost:    s.card.Cost,
			Rank:    s.rank,
		})
	}

	return plan, nil
}

func uniqueSlots(pool []search.Candidate) []slot {
	ordered := make([]search.Candidate, 0, len(pool))
	for _, c := range pool {
		if c.Card != nil {
			ordered = append(ordered, c)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Rank < ordered[j].Rank })

	seen := make(map[string]bool, len(ordered))
	slots := make([]slot, 0, len(ordered))
	for _, c := range ordered {
		if seen[c.Card.ID] {
			continue
		}
		seen[c.Card.ID] = true
		slots = append(slots, slot{card: c.Card, rank: c.Rank})
	}
	return slots
}

// balance swaps single copies of the over-represented ink class, taken from
// the lowest-ranked cards, for copies of the under-represented class from the
// highest-ranked cards with room left. It stops once the ratio is in band, no
// swap is possible, or the next swap would jump past the band.
func balance(slots []slot, t *tally, opts Options) {
	known := t.inkable + t.nonInkable
	if known == 0 {
		return
	}

	for {
		ratio := float64(t.inkable) / float64(known)
		if opts.InkRatio.Contains(ratio) {
			return
		}

		from, to := cards.True, cards.False
		next := float64(t.inkable-1) / float64(known)
		overshoot := !opts.InkRatio.Contains(next) && next < opts.InkRatio.Min
		if ratio < opts.InkRatio.Min {
			from, to = cards.False, cards.True
			next = float64(t.inkable+1) / float64(known)
			overshoot = !opts.InkRatio.Contains(next) && next > opts.InkRatio.Max
		}
		if overshoot {
			return
		}

		donor := -1
		for i := len(slots) - 1; i >= 0; i-- {
			if slots[i].copies > 0 && slots[i].card.Inkable == from {
				donor = i
				break
			}
		}
		recipient := -1
		for i := range slots {
			if slots[i].copies < opts.CopyCap && slots[i].card.Inkable == to {
				recipient = i
				break
			}
		}
		if donor < 0 || recipient < 0 {
			return
		}

		slots[donor].copies--
		t.add(from, -1)
		slots[recipient].copies++
		t.add(to, 1)
	}
}

// inkShortfall is the number of under-represented copies still missing to
// reach the nearest band edge.
func inkShortfall(t tally, band Band) int {
	known := float64(t.inkable + t.nonInkable)
	target := band.Min * known
	if float64(t.inkable) < target {
		return int(math.Ceil(target-ratioEpsilon)) - t.inkable
	}
	return t.inkable - int(math.Floor(band.Max*known+ratioEpsilon))
}
