// Package vectorindex is an in-process similarity search engine over a
// snapshot of the card corpus. It scans every card, which is fast enough for a
// corpus of a few thousand cards.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	"github.com/ramonehamilton/InkForge/internal/lorcana/cards"
	"github.com/ramonehamilton/InkForge/internal/lorcana/search"
)

// ErrNotLoaded is returned when searching before a snapshot was stored.
var ErrNotLoaded = errors.New("search index not loaded")

// checkEvery is how many cards are scanned between context checks.
const checkEvery = 256

// Entry pairs a card with its embedding.
type Entry struct {
	Card   *cards.CardRecord
	Vector []float32
}

type indexed struct {
	card   *cards.CardRecord
	vector []float32
	norm   float64
}

// Index is an immutable set of embedded cards.
type Index struct {
	entries    []indexed
	byID       map[string]*cards.CardRecord
	dimensions int
}

// New builds an index. Every vector must have the same length. Cards without
// a vector are kept for lookups but never returned by Search.
func New(entries []Entry) (*Index, error) {
	ix := &Index{byID: make(map[string]*cards.CardRecord, len(entries))}

	for _, e := range entries {
		if e.Card == nil {
			continue
		}
		if _, dup := ix.byID[e.Card.ID]; dup {
			return nil, fmt.Errorf("duplicate card id %q", e.Card.ID)
		}
		ix.byID[e.Card.ID] = e.Card

		if len(e.Vector) == 0 {
			continue
		}
		if ix.dimensions == 0 {
			ix.dimensions = len(e.Vector)
		} else if len(e.Vector) != ix.dimensions {
			return nil, fmt.Errorf("card %q has %d dimensions, expected %d", e.Card.ID, len(e.Vector), ix.dimensions)
		}
		ix.entries = append(ix.entries, indexed{card: e.Card, vector: e.Vector, norm: norm(e.Vector)})
	}

	sort.Slice(ix.entries, func(i, j int) bool { return ix.entries[i].card.ID < ix.entries[j].card.ID })

	return ix, nil
}

// Len returns the number of searchable cards.
func (ix *Index) Len() int { return len(ix.entries) }

// Dimensions returns the vector length, 0 for an empty index.
func (ix *Index) Dimensions() int { return ix.dimensions }

// Card returns a card by id.
func (ix *Index) Card(id string) (*cards.CardRecord, bool) {
	c, ok := ix.byID[id]
	return c, ok
}

// Search returns up to limit cards matching the filter, most similar first.
// Equal scores are ordered by card id.
func (ix *Index) Search(ctx context.Context, vector []float32, filter search.Expr, limit int) ([]search.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}
	if len(ix.entries) > 0 && len(vector) != ix.dimensions {
		return nil, fmt.Errorf("query has %d dimensions, index has %d", len(vector), ix.dimensions)
	}
	if filter == nil {
		filter = search.MatchAll{}
	}

	queryNorm := norm(vector)
	results := make([]search.Candidate, 0, min(limit*2, len(ix.entries)))

	for i, e := range ix.entries {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !filter.Match(e.card) {
			continue
		}
		results = append(results, search.Candidate{
			Card:  e.card,
			Score: cosine(vector, queryNorm, e.vector, e.norm),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Card.ID < results[j].Card.ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		results[i].Rank = i
	}

	return results, nil
}

// cosine returns the cosine of the angle between a and b given their norms,
// 0 when either is a zero vector.
func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Holder serves searches from the current snapshot and lets a reloader swap
// in a new one without locking readers.
type Holder struct {
	current atomic.Pointer[Index]
}

// NewHolder creates a holder, optionally with an initial index.
func NewHolder(ix *Index) *Holder {
	h := &Holder{}
	if ix != nil {
		h.current.Store(ix)
	}
	return h
}

// Store replaces the current index.
func (h *Holder) Store(ix *Index) { h.current.Store(ix) }

// Load returns the current index, nil before the first Store.
func (h *Holder) Load() *Index { return h.current.Load() }

// Search implements search.Engine against the current snapshot.
func (h *Holder) Search(ctx context.Context, vector []float32, filter search.Expr, limit int) ([]search.Candidate, error) {
	ix := h.current.Load()
	if ix == nil {
		return nil, ErrNotLoaded
	}
	return ix.Search(ctx, vector, filter, limit)
}
