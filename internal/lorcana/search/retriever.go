package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/ramonehamilton/InkForge/internal/lorcana/cards"
)

// ErrRetrievalFailure marks an embedding or search call that failed, timed out
// or was cancelled.
var ErrRetrievalFailure = errors.New("retrieval failed")

// Retrieval stages.
const (
	StageEmbed  = "embed"
	StageSearch = "search"
)

// RetrievalError reports which external call failed.
type RetrievalError struct {
	Stage string
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrRetrievalFailure, e.Stage, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrRetrievalFailure.
func (e *RetrievalError) Is(target error) bool { return target == ErrRetrievalFailure }

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Engine runs a filtered approximate similarity query. Results are ordered by
// descending similarity.
type Engine interface {
	Search(ctx context.Context, vector []float32, filter Expr, limit int) ([]Candidate, error)
}

// Candidate is one entry of the similarity-ranked pool. Rank 0 is the most
// relevant card.
type Candidate struct {
	Card  *cards.CardRecord
	Score float64
	Rank  int
}

// Retriever issues the single similarity query of a deck build.
type Retriever struct {
	embedder Embedder
	engine   Engine
}

// NewRetriever creates a retriever over the given collaborators.
func NewRetriever(embedder Embedder, engine Engine) *Retriever {
	return &Retriever{embedder: embedder, engine: engine}
}

// Retrieve embeds the text and returns at most limit candidates matching the
// filter, ranked 0..n-1 in the engine's order. No retries are attempted.
func (r *Retriever) Retrieve(ctx context.Context, text string, filter Expr, limit int) ([]Candidate, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidFilter, limit)
	}
	if filter == nil {
		filter = MatchAll{}
	}

	vector, err := r.embedder.Embed(ctx, text)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, &RetrievalError{Stage: StageEmbed, Err: err}
	}
	if len(vector) == 0 {
		return nil, &RetrievalError{Stage: StageEmbed, Err: errors.New("empty embedding vector")}
	}

	results, err := r.engine.Search(ctx, vector, filter, limit)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, &RetrievalError{Stage: StageSearch, Err: err}
	}

	if len(results) > limit {
		results = results[:limit]
	}

	pool := make([]Candidate, 0, len(results))
	for _, res := range results {
		if res.Card == nil {
			continue
		}
		res.Rank = len(pool)
		pool = append(pool, res)
	}

	return pool, nil
}
