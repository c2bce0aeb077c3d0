package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/InkForge/internal/lorcana/cards"
	"github.com/ramonehamilton/InkForge/internal/lorcana/search"
	"github.com/ramonehamilton/InkForge/internal/lorcana/vectorindex"
	"github.com/ramonehamilton/InkForge/internal/storage/models"
)

func seedCard(t *testing.T, s *Snapshot, id string, ink cards.Ink, vector []float32) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Cards().UpsertCard(ctx, &cards.CardRecord{
		ID:      id,
		Name:    "Card " + id,
		Colors:  []cards.Ink{ink},
		Cost:    2,
		Inkable: cards.True,
		Legality: map[cards.Format]cards.FormatLegality{
			cards.FormatCore: {Allowed: cards.True},
		},
	}))
	if vector != nil {
		require.NoError(t, s.Embeddings().UpsertEmbedding(ctx, &models.CardEmbedding{
			CardID: id,
			Model:  "test",
			Vector: vector,
		}))
	}
}

func TestSnapshot_Load(t *testing.T) {
	s := NewSnapshot(setupTestDB(t))
	seedCard(t, s, "a", cards.InkRuby, []float32{1, 0})
	seedCard(t, s, "b", cards.InkSteel, []float32{0, 1})
	seedCard(t, s, "c", cards.InkRuby, nil)

	ix, err := s.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, ix.Len(), "only embedded cards are searchable")
	assert.Equal(t, 2, ix.Dimensions())

	card, ok := ix.Card("c")
	require.True(t, ok, "unembedded cards stay available for lookup")
	assert.Equal(t, []cards.Ink{cards.InkRuby}, card.Colors)

	got, err := ix.Search(context.Background(), []float32{1, 0.1}, search.MatchAll{}, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Card.ID)
	assert.Equal(t, cards.FormatLegality{Allowed: cards.True}, got[0].Card.Legality[cards.FormatCore])
}

func TestSnapshot_LoadDimensionMismatch(t *testing.T) {
	s := NewSnapshot(setupTestDB(t))
	seedCard(t, s, "a", cards.InkRuby, []float32{1, 0})
	seedCard(t, s, "b", cards.InkRuby, []float32{1, 0, 0})

	_, err := s.Load(context.Background())
	assert.Error(t, err)
}

func TestSnapshot_Reload(t *testing.T) {
	db := setupTestDB(t)
	s := NewSnapshot(db)
	seedCard(t, s, "a", cards.InkAmber, []float32{1, 0})

	holder := vectorindex.NewHolder(nil)
	require.NoError(t, s.Reload(context.Background(), holder))
	require.NotNil(t, holder.Load())
	assert.Equal(t, 1, holder.Load().Len())

	seedCard(t, s, "b", cards.InkAmber, []float32{0, 1})
	require.NoError(t, s.Reload(context.Background(), holder))
	assert.Equal(t, 2, holder.Load().Len())

	// A failed reload keeps the previous snapshot.
	previous := holder.Load()
	require.NoError(t, db.Close())
	assert.Error(t, s.Reload(context.Background(), holder))
	assert.Same(t, previous, holder.Load())
}
