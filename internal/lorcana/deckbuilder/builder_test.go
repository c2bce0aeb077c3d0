package deckbuilder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ramonehamilton/InkForge/internal/lorcana/assembler"
	"github.com/ramonehamilton/InkForge/internal/lorcana/cards"
	"github.com/ramonehamilton/InkForge/internal/lorcana/inks"
	"github.com/ramonehamilton/InkForge/internal/lorcana/legality"
	"github.com/ramonehamilton/InkForge/internal/lorcana/search"
	"github.com/ramonehamilton/InkForge/internal/lorcana/vectorindex"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var buildTime = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

type fakeEmbedder struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

type blockingEngine struct{}

func (blockingEngine) Search(ctx context.Context, _ []float32, _ search.Expr, _ int) ([]search.Candidate, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type fakeLookup struct {
	err error
}

func (f fakeLookup) GetCards(_ context.Context, ids []string) (map[string]*cards.CardRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]*cards.CardRecord, len(ids))
	for _, id := range ids {
		out[id] = &cards.CardRecord{ID: id, Name: "Fresh " + id, ExternalURL: "https://cards.example/" + id}
	}
	return out, nil
}

type inkGroup struct {
	ink   cards.Ink
	count int
	legal bool
}

// corpus builds one card per slot, ids in group order. Three of every four
// cards are inkable.
func corpus(groups ...inkGroup) []vectorindex.Entry {
	var entries []vectorindex.Entry
	for _, g := range groups {
		for i := 0; i < g.count; i++ {
			n := len(entries)
			allowed := cards.True
			if !g.legal {
				allowed = cards.False
			}
			inkable := cards.True
			if n%4 == 3 {
				inkable = cards.False
			}
			entries = append(entries, vectorindex.Entry{
				Card: &cards.CardRecord{
					ID:      fmt.Sprintf("c%03d", n),
					Name:    fmt.Sprintf("%s %d", g.ink, i),
					Colors:  []cards.Ink{g.ink},
					Cost:    n%7 + 1,
					Inkable: inkable,
					Legality: map[cards.Format]cards.FormatLegality{
						cards.FormatCore: {Allowed: allowed},
					},
				},
				Vector: []float32{1, 0},
			})
		}
	}
	return entries
}

// scenarioCorpus is 120 Core-legal cards (Amethyst 40, Steel 25, the other
// inks fewer) plus 10 banned Ruby cards.
func scenarioCorpus() []vectorindex.Entry {
	return corpus(
		inkGroup{cards.InkAmethyst, 40, true},
		inkGroup{cards.InkSteel, 25, true},
		inkGroup{cards.InkRuby, 20, true},
		inkGroup{cards.InkAmber, 15, true},
		inkGroup{cards.InkEmerald, 12, true},
		inkGroup{cards.InkSapphire, 8, true},
		inkGroup{cards.InkRuby, 10, false},
	)
}

func newTestBuilder(t *testing.T, entries []vectorindex.Entry, policy Policy, opts ...Option) (*Builder, *fakeEmbedder) {
	t.Helper()
	ix, err := vectorindex.New(entries)
	require.NoError(t, err)

	embedder := &fakeEmbedder{}
	opts = append([]Option{WithClock(func() time.Time { return buildTime })}, opts...)
	b, err := New(embedder, vectorindex.NewHolder(ix), policy, opts...)
	require.NoError(t, err)
	return b, embedder
}

func request(text string) Request {
	return Request{FreeText: text, DeckSize: 60, Format: "core"}
}

func assertDeck(t *testing.T, r *Result, size int, allowed []cards.Ink, byID map[string]*cards.CardRecord) {
	t.Helper()

	total := 0
	for _, c := range r.Cards {
		total += c.Copies
		assert.LessOrEqual(t, c.Copies, 4, c.ID)

		card := byID[c.ID]
		require.NotNil(t, card, c.ID)
		assert.True(t, card.HasAnyColor(allowed), "%s has inks %v", c.ID, card.Colors)
		assert.True(t, legality.IsLegal(card, cards.FormatCore, buildTime), c.ID)
	}
	assert.Equal(t, size, total)
	assert.Equal(t, size, r.TotalCards)

	require.NotNil(t, r.InkRatio)
	assert.True(t, assembler.DefaultOptions().InkRatio.Contains(*r.InkRatio), "ratio %.3f", *r.InkRatio)
}

func cardsByID(entries []vectorindex.Entry) map[string]*cards.CardRecord {
	m := make(map[string]*cards.CardRecord, len(entries))
	for _, e := range entries {
		m[e.Card.ID] = e.Card
	}
	return m
}

func TestBuildDeck_InfersDualInk(t *testing.T) {
	entries := scenarioCorpus()
	b, _ := newTestBuilder(t, entries, DefaultPolicy())

	result, err := b.BuildDeck(context.Background(), request("ramp into big amethyst and steel threats"))
	require.NoError(t, err)

	assert.True(t, result.InksInferred)
	assert.Equal(t, []cards.Ink{cards.InkAmethyst, cards.InkSteel}, result.Inks.Inks())
	assert.Equal(t, cards.FormatCore, result.Format)
	assert.Equal(t, PoolStats{Retrieved: 130, Legal: 120, Matched: 65}, result.Stats)
	assert.NotEmpty(t, result.RequestID)
	assertDeck(t, result, 60, []cards.Ink{cards.InkAmethyst, cards.InkSteel}, cardsByID(entries))
}

// The mono threshold is policy: the same pool gives one or two inks.
func TestBuildDeck_MonoColorShare(t *testing.T) {
	tests := []struct {
		share    float64
		wantInks []cards.Ink
	}{
		{share: 0.30, wantInks: []cards.Ink{cards.InkAmethyst}},
		{share: 0.34, wantInks: []cards.Ink{cards.InkAmethyst, cards.InkSteel}},
		{share: 0.60, wantInks: []cards.Ink{cards.InkAmethyst, cards.InkSteel}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("share=%.2f", tt.share), func(t *testing.T) {
			policy := DefaultPolicy()
			policy.MonoColorShare = tt.share
			entries := scenarioCorpus()
			b, _ := newTestBuilder(t, entries, policy)

			result, err := b.BuildDeck(context.Background(), request("anything"))
			require.NoError(t, err)

			assert.Equal(t, tt.wantInks, result.Inks.Inks())
			assertDeck(t, result, 60, tt.wantInks, cardsByID(entries))
		})
	}
}

func TestBuildDeck_ExplicitColors(t *testing.T) {
	entries := scenarioCorpus()
	b, _ := newTestBuilder(t, entries, DefaultPolicy())

	req := request("aggressive ruby")
	req.Colors = []string{"ruby"}
	result, err := b.BuildDeck(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, result.InksInferred)
	assert.True(t, result.Inks.IsMono())
	assert.Equal(t, cards.InkRuby, result.Inks.Primary)
	assert.Equal(t, 20, result.Stats.Matched)
	assertDeck(t, result, 60, []cards.Ink{cards.InkRuby}, cardsByID(entries))
}

func TestBuildDeck_InsufficientCandidates(t *testing.T) {
	tests := []struct {
		name       string
		entries    []vectorindex.Entry
		colors     []string
		wantReason string
	}{
		{
			name:       "twelve unique cards",
			entries:    corpus(inkGroup{cards.InkSteel, 12, true}, inkGroup{cards.InkRuby, 30, true}),
			colors:     []string{"steel"},
			wantReason: assembler.ReasonCapacity,
		},
		{
			name:       "banned cards don't count",
			entries:    corpus(inkGroup{cards.InkSteel, 12, true}, inkGroup{cards.InkSteel, 30, false}),
			colors:     []string{"steel"},
			wantReason: assembler.ReasonCapacity,
		},
		{
			name:       "nothing legal to infer from",
			entries:    corpus(inkGroup{cards.InkAmber, 40, false}),
			wantReason: assembler.ReasonCapacity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := newTestBuilder(t, tt.entries, DefaultPolicy())

			req := request("anything")
			req.Colors = tt.colors
			result, err := b.BuildDeck(context.Background(), req)

			assert.Nil(t, result)
			require.True(t, errors.Is(err, ErrInsufficientCandidates), "got %v", err)

			var ierr *assembler.InsufficientCandidatesError
			require.True(t, errors.As(err, &ierr))
			assert.Equal(t, tt.wantReason, ierr.Reason)
			assert.Equal(t, 60, ierr.Need)
		})
	}
}

func TestBuildDeck_InvalidRequest(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Request)
		wantField string
	}{
		{"empty text", func(r *Request) { r.FreeText = "" }, "freeText"},
		{"blank text", func(r *Request) { r.FreeText = "  \n\t" }, "freeText"},
		{"zero deck size", func(r *Request) { r.DeckSize = 0 }, "deckSize"},
		{"negative deck size", func(r *Request) { r.DeckSize = -60 }, "deckSize"},
		{"three colors", func(r *Request) { r.Colors = []string{"ruby", "amber", "steel"} }, "colors"},
		{"unknown color", func(r *Request) { r.Colors = []string{"teal"} }, "colors"},
		{"missing format", func(r *Request) { r.Format = "" }, "format"},
		{"unsupported format", func(r *Request) { r.Format = "standard" }, "format"},
		{"negative cost", func(r *Request) { n := -1; r.MinCost = &n }, "minCost"},
		{"min cost above max", func(r *Request) { lo, hi := 5, 2; r.MinCost, r.MaxCost = &lo, &hi }, "filters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, embedder := newTestBuilder(t, scenarioCorpus(), DefaultPolicy())

			req := request("songs and singers")
			tt.mutate(&req)
			result, err := b.BuildDeck(context.Background(), req)

			assert.Nil(t, result)
			require.True(t, errors.Is(err, ErrInvalidRequest), "got %v", err)

			var ierr *InvalidRequestError
			require.True(t, errors.As(err, &ierr))
			assert.Equal(t, tt.wantField, ierr.Field)
			assert.Equal(t, 0, embedder.calls, "rejected before retrieval")
		})
	}
}

func TestBuildDeck_RetrievalFailure(t *testing.T) {
	b, embedder := newTestBuilder(t, scenarioCorpus(), DefaultPolicy())
	embedder.err = errors.New("connection refused")

	result, err := b.BuildDeck(context.Background(), request("anything"))

	assert.Nil(t, result)
	assert.True(t, errors.Is(err, ErrRetrievalFailure))
	assert.False(t, errors.Is(err, ErrInsufficientCandidates))
	assert.Equal(t, 1, embedder.calls)
}

func TestBuildDeck_RetrievalTimeout(t *testing.T) {
	policy := DefaultPolicy()
	policy.RetrievalTimeout = 20 * time.Millisecond
	b, err := New(&fakeEmbedder{}, blockingEngine{}, policy)
	require.NoError(t, err)

	start := time.Now()
	result, err := b.BuildDeck(context.Background(), request("anything"))

	assert.Nil(t, result)
	assert.True(t, errors.Is(err, ErrRetrievalFailure))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestBuildDeck_CallerCancellation(t *testing.T) {
	b, err := New(&fakeEmbedder{}, blockingEngine{}, DefaultPolicy())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = b.BuildDeck(ctx, request("anything"))
	assert.True(t, errors.Is(err, ErrRetrievalFailure))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBuildDeck_Hydration(t *testing.T) {
	t.Run("from lookup", func(t *testing.T) {
		b, _ := newTestBuilder(t, scenarioCorpus(), DefaultPolicy(), WithLookup(fakeLookup{}))

		result, err := b.BuildDeck(context.Background(), request("anything"))
		require.NoError(t, err)

		for _, c := range result.Cards {
			assert.Equal(t, "Fresh "+c.ID, c.Name)
			assert.Equal(t, "https://cards.example/"+c.ID, c.Link)
		}
	})

	t.Run("lookup failure falls back to search records", func(t *testing.T) {
		b, _ := newTestBuilder(t, scenarioCorpus(), DefaultPolicy(), WithLookup(fakeLookup{err: errors.New("db closed")}))

		result, err := b.BuildDeck(context.Background(), request("anything"))
		require.NoError(t, err)

		for _, c := range result.Cards {
			assert.Contains(t, c.Name, string(cards.InkAmethyst))
			assert.Equal(t, []cards.Ink{cards.InkAmethyst}, c.Colors)
		}
	})
}

func TestBuildDeck_DeterministicAndConcurrent(t *testing.T) {
	b, _ := newTestBuilder(t, scenarioCorpus(), DefaultPolicy())

	first, err := b.BuildDeck(context.Background(), request("anything"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*Result, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = b.BuildDeck(context.Background(), request("anything"))
		}(i)
	}
	wg.Wait()

	for i, r := range results {
		require.NoError(t, errs[i])
		diff := cmp.Diff(first, r, cmpopts.IgnoreFields(Result{}, "RequestID"))
		assert.Empty(t, diff)
		assert.NotEqual(t, first.RequestID, r.RequestID)
	}
}

func TestResult_JSON(t *testing.T) {
	b, _ := newTestBuilder(t, scenarioCorpus(), DefaultPolicy())

	result, err := b.BuildDeck(context.Background(), request("anything"))
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "requestId")
	assert.Contains(t, decoded, "inkRatio")
	assert.NotContains(t, decoded, "Plan")

	list, ok := decoded["cards"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, list)
	line := list[0].(map[string]interface{})
	for _, key := range []string{"id", "name", "copies", "inkable"} {
		assert.Contains(t, line, key)
	}
}

func TestBuildDeck_LogsInkChoice(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	b, _ := newTestBuilder(t, scenarioCorpus(), DefaultPolicy(), WithLogger(zap.New(core)))

	result, err := b.BuildDeck(context.Background(), request("anything"))
	require.NoError(t, err)

	entries := logs.FilterMessage("Deck built").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, result.Inks.IsMono(), fields["mono"])
	assert.Equal(t, result.InksInferred, fields["inferred"])
	assert.Equal(t, result.RequestID, fields["request_id"])
}

func TestResult_JSONRoundTrip(t *testing.T) {
	ratio := 0.75
	steel := cards.InkSteel
	tests := []struct {
		name   string
		result Result
	}{
		{
			name:   "zero value",
			result: Result{RequestID: "r0"},
		},
		{
			name: "mono ink",
			result: Result{
				RequestID: "r1",
				Format:    cards.FormatCore,
				Inks:      inks.Choice{Primary: cards.InkRuby},
				Cards: []ResultCard{
					{ID: "c1", Name: "Mickey", Copies: 4, Inkable: cards.True, Cost: 2, Colors: []cards.Ink{cards.InkRuby}},
					{ID: "c2", Name: "Goofy", Copies: 2, Inkable: cards.Unknown, Cost: 5, Colors: []cards.Ink{cards.InkRuby}},
				},
				TotalCards:     6,
				InkableCount:   4,
				UnknownInkable: 2,
				InkRatio:       &ratio,
				CostCurve:      map[int]int{2: 4, 5: 2},
				Stats:          PoolStats{Retrieved: 10, Legal: 8, Matched: 2},
			},
		},
		{
			name: "dual ink inferred",
			result: Result{
				RequestID:    "r2",
				Format:       cards.FormatInfinity,
				Inks:         inks.Choice{Primary: cards.InkAmber, Secondary: &steel},
				InksInferred: true,
				Cards: []ResultCard{
					{ID: "c3", Name: "Stitch", Copies: 1, Inkable: cards.False, Cost: 7, Colors: []cards.Ink{cards.InkAmber, cards.InkSteel}, Link: "https://example.com/c3"},
				},
				TotalCards: 1,
				NonInkable: 1,
				CostCurve:  map[int]int{7: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.result
			in.Plan = &assembler.DeckPlan{}

			data, err := json.Marshal(in)
			require.NoError(t, err)

			var out Result
			require.NoError(t, json.Unmarshal(data, &out))
			assert.Nil(t, out.Plan)
			if diff := cmp.Diff(tt.result, out, cmpopts.IgnoreFields(Result{}, "Plan")); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResult_JSONRoundTrip_BuiltDeck(t *testing.T) {
	b, _ := newTestBuilder(t, scenarioCorpus(), DefaultPolicy())

	result, err := b.BuildDeck(context.Background(), request("anything"))
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var out Result
	require.NoError(t, json.Unmarshal(data, &out))
	if diff := cmp.Diff(*result, out, cmpopts.IgnoreFields(Result{}, "Plan"), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_Errors(t *testing.T) {
	engine := vectorindex.NewHolder(nil)

	_, err := New(nil, engine, DefaultPolicy())
	assert.Error(t, err)

	bad := DefaultPolicy()
	bad.InkRatio = assembler.Band{Min: 0.9, Max: 0.1}
	_, err = New(&fakeEmbedder{}, engine, bad)
	assert.Error(t, err)

	bad = DefaultPolicy()
	bad.CandidateLimit = 0
	_, err = New(&fakeEmbedder{}, engine, bad)
	assert.Error(t, err)
}
