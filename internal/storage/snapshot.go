package storage

import (
	"context"
	"fmt"

	"github.com/ramonehamilton/InkForge/internal/lorcana/vectorindex"
	"github.com/ramonehamilton/InkForge/internal/storage/repository"
)

// LoadIndex reads the corpus and its embeddings into a new search index.
// Cards without an embedding stay available for lookups but are never
// returned by a search.
func LoadIndex(ctx context.Context, cardRepo repository.CardRepository, embRepo repository.EmbeddingRepository) (*vectorindex.Index, error) {
	all, err := cardRepo.GetAllCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}

	embeddings, err := embRepo.GetAllEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load embeddings: %w", err)
	}

	vectors := make(map[string][]float32, len(embeddings))
	for _, e := range embeddings {
		vectors[e.CardID] = e.Vector
	}

	entries := make([]vectorindex.Entry, 0, len(all))
	for _, c := range all {
		entries = append(entries, vectorindex.Entry{Card: c, Vector: vectors[c.ID]})
	}

	ix, err := vectorindex.New(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to build search index: %w", err)
	}
	return ix, nil
}

// Snapshot loads search index snapshots from a database.
type Snapshot struct {
	cards      repository.CardRepository
	embeddings repository.EmbeddingRepository
}

// NewSnapshot creates a Snapshot over the database.
func NewSnapshot(db *DB) *Snapshot {
	return &Snapshot{
		cards:      repository.NewCardRepository(db.Conn()),
		embeddings: repository.NewEmbeddingRepository(db.Conn()),
	}
}

// Cards returns the card repository.
func (s *Snapshot) Cards() repository.CardRepository { return s.cards }

// Embeddings returns the embedding repository.
func (s *Snapshot) Embeddings() repository.EmbeddingRepository { return s.embeddings }

// Load builds a fresh index from the current database contents.
func (s *Snapshot) Load(ctx context.Context) (*vectorindex.Index, error) {
	return LoadIndex(ctx, s.cards, s.embeddings)
}

// Reload loads a fresh index and stores it in the holder. On error the holder
// keeps serving the previous index.
func (s *Snapshot) Reload(ctx context.Context, holder *vectorindex.Holder) error {
	ix, err := s.Load(ctx)
	if err != nil {
		return err
	}
	holder.Store(ix)
	return nil
}
