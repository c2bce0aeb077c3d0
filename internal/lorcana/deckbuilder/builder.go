// Package deckbuilder runs the deck build pipeline: filter, retrieve, legality,
// ink inference, ink re-filter, assembly and hydration.
package deckbuilder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ramonehamilton/InkForge/internal/lorcana/assembler"
	"github.com/ramonehamilton/InkForge/internal/lorcana/cards"
	"github.com/ramonehamilton/InkForge/internal/lorcana/inks"
	"github.com/ramonehamilton/InkForge/internal/lorcana/legality"
	"github.com/ramonehamilton/InkForge/internal/lorcana/search"
)

// CardLookup reads corpus records by id. It is only used to hydrate display
// fields of the finished deck.
type CardLookup interface {
	GetCards(ctx context.Context, ids []string) (map[string]*cards.CardRecord, error)
}

// Policy holds the tunable constants of a build.
type Policy struct {
	CopyCap          int
	InkRatio         assembler.Band
	MonoColorShare   float64
	CandidateLimit   int
	RetrievalTimeout time.Duration
}

// DefaultPolicy returns the default build policy.
func DefaultPolicy() Policy {
	opts := assembler.DefaultOptions()
	return Policy{
		CopyCap:          opts.CopyCap,
		InkRatio:         opts.InkRatio,
		MonoColorShare:   inks.DefaultPolicy().MonoColorShare,
		CandidateLimit:   150,
		RetrievalTimeout: 5 * time.Second,
	}
}

// Validate checks the policy values.
func (p Policy) Validate() error {
	if err := (assembler.Options{DeckSize: 1, CopyCap: p.CopyCap, InkRatio: p.InkRatio}).Validate(); err != nil {
		return err
	}
	if p.MonoColorShare <= 0 {
		return fmt.Errorf("mono color share must be positive, got %.2f", p.MonoColorShare)
	}
	if p.CandidateLimit <= 0 {
		return fmt.Errorf("candidate limit must be positive, got %d", p.CandidateLimit)
	}
	return nil
}

// Builder builds decks. It holds only read-only collaborators and policy, so
// one Builder serves concurrent requests.
type Builder struct {
	retriever *search.Retriever
	lookup    CardLookup
	policy    Policy
	validate  *validator.Validate
	now       func() time.Time
	logger    *zap.Logger
}

// Option customises a Builder.
type Option func(*Builder)

// WithClock sets the time source used as the legality reference time.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// WithLookup sets the corpus lookup used for hydration. Without one, the
// records returned by the search engine are used as they are.
func WithLookup(lookup CardLookup) Option {
	return func(b *Builder) { b.lookup = lookup }
}

// New creates a Builder.
func New(embedder search.Embedder, engine search.Engine, policy Policy, opts ...Option) (*Builder, error) {
	if embedder == nil || engine == nil {
		return nil, errors.New("embedder and search engine are required")
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}

	b := &Builder{
		retriever: search.NewRetriever(embedder, engine),
		policy:    policy,
		validate:  newValidator(),
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Policy returns the builder's policy.
func (b *Builder) Policy() Policy { return b.policy }

// buildState is the request-scoped value threaded through the stages. Stages
// receive it by value and never modify it.
type buildState struct {
	requestID string
	req       normalized
	at        time.Time
}

// BuildDeck runs the pipeline for one request. It returns a deck of exactly
// req.DeckSize cards or an error matching ErrInvalidRequest,
// ErrRetrievalFailure or ErrInsufficientCandidates. No partial deck is ever
// returned.
func (b *Builder) BuildDeck(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	norm, err := normalize(b.validate, req)
	if err != nil {
		return nil, err
	}

	st := buildState{
		requestID: uuid.NewString(),
		req:       norm,
		at:        b.now().UTC(),
	}
	log := b.logger.With(zap.String("request_id", st.requestID))

	pool, err := b.retrieve(ctx, st)
	if err != nil {
		log.Warn("Candidate retrieval failed", zap.Error(err))
		return nil, err
	}

	legal := legality.Filter(pool, st.req.format, st.at)

	choice, inferred, ok := b.chooseInks(st, legal)
	if !ok {
		err := &assembler.InsufficientCandidatesError{
			Reason:    assembler.ReasonCapacity,
			Need:      st.req.deckSize,
			Shortfall: st.req.deckSize,
		}
		log.Info("No legal candidates to infer inks from",
			zap.Int("retrieved", len(pool)),
			zap.Int("legal", len(legal)))
		return nil, err
	}

	matched := inks.Restrict(legal, choice)

	plan, err := assembler.Assemble(matched, assembler.Options{
		DeckSize: st.req.deckSize,
		CopyCap:  b.policy.CopyCap,
		InkRatio: b.policy.InkRatio,
	})
	if err != nil {
		log.Info("Deck assembly failed",
			zap.Int("retrieved", len(pool)),
			zap.Int("legal", len(legal)),
			zap.Int("matched", len(matched)),
			zap.Error(err))
		return nil, err
	}

	result := b.hydrate(ctx, st, plan, matched, choice, inferred)
	result.Stats = PoolStats{Retrieved: len(pool), Legal: len(legal), Matched: len(matched)}

	log.Info("Deck built",
		zap.String("format", string(st.req.format)),
		zap.Strings("inks", inkNames(choice.Inks())),
		zap.Bool("inferred", inferred),
		zap.Bool("mono", choice.IsMono()),
		zap.Int("unique_cards", len(plan.Entries)),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

func (b *Builder) retrieve(ctx context.Context, st buildState) ([]search.Candidate, error) {
	if b.policy.RetrievalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.policy.RetrievalTimeout)
		defer cancel()
	}
	return b.retriever.Retrieve(ctx, st.req.text, st.req.filter, b.policy.CandidateLimit)
}

// chooseInks returns the explicit inks when given, otherwise infers them from
// the legal pool.
func (b *Builder) chooseInks(st buildState, legal []search.Candidate) (choice inks.Choice, inferred bool, ok bool) {
	if len(st.req.colors) > 0 {
		choice, ok = inks.ChoiceOf(st.req.colors)
		return choice, false, ok
	}
	choice, ok = inks.Infer(inks.Views(legal), inks.Policy{MonoColorShare: b.policy.MonoColorShare})
	return choice, true, ok
}

func inkNames(list []cards.Ink) []string {
	names := make([]string, len(list))
	for i, ink := range list {
		names[i] = string(ink)
	}
	return names
}
