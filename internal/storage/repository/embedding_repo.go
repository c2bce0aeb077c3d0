package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ramonehamilton/InkForge/internal/storage/models"
)

// EmbeddingRepository handles card embedding storage.
type EmbeddingRepository interface {
	UpsertEmbedding(ctx context.Context, embedding *models.CardEmbedding) error
	GetEmbedding(ctx context.Context, cardID string) (*models.CardEmbedding, error)
	GetAllEmbeddings(ctx context.Context) ([]*models.CardEmbedding, error)
	DeleteEmbedding(ctx context.Context, cardID string) error
	GetEmbeddingCount(ctx context.Context) (int, error)
}

type embeddingRepo struct {
	db *sql.DB
}

// NewEmbeddingRepository creates a new embedding repository.
func NewEmbeddingRepository(db *sql.DB) EmbeddingRepository {
	return &embeddingRepo{db: db}
}

// UpsertEmbedding inserts or updates a card embedding.
func (r *embeddingRepo) UpsertEmbedding(ctx context.Context, embedding *models.CardEmbedding) error {
	if len(embedding.Vector) == 0 {
		return fmt.Errorf("embedding for %s is empty", embedding.CardID)
	}

	vectorJSON, err := json.Marshal(embedding.Vector)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	query := `
		INSERT INTO card_embeddings (card_id, model, dimensions, embedding, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(card_id) DO UPDATE SET
			model = excluded.model,
			dimensions = excluded.dimensions,
			embedding = excluded.embedding,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err = r.db.ExecContext(ctx, query,
		embedding.CardID, embedding.Model, len(embedding.Vector), string(vectorJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}

	return nil
}

// GetEmbedding retrieves an embedding by card id. Returns nil if not found.
func (r *embeddingRepo) GetEmbedding(ctx context.Context, cardID string) (*models.CardEmbedding, error) {
	query := `
		SELECT card_id, model, dimensions, embedding, updated_at
		FROM card_embeddings
		WHERE card_id = ?
	`

	e, err := scanEmbedding(r.db.QueryRowContext(ctx, query, cardID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding: %w", err)
	}
	return e, nil
}

// GetAllEmbeddings retrieves all embeddings ordered by card id.
func (r *embeddingRepo) GetAllEmbeddings(ctx context.Context) ([]*models.CardEmbedding, error) {
	query := `
		SELECT card_id, model, dimensions, embedding, updated_at
		FROM card_embeddings
		ORDER BY card_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var embeddings []*models.CardEmbedding
	for rows.Next() {
		e, err := scanEmbedding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		embeddings = append(embeddings, e)
	}

	return embeddings, rows.Err()
}

// DeleteEmbedding deletes an embedding by card id.
func (r *embeddingRepo) DeleteEmbedding(ctx context.Context, cardID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM card_embeddings WHERE card_id = ?", cardID); err != nil {
		return fmt.Errorf("failed to delete embedding: %w", err)
	}
	return nil
}

// GetEmbeddingCount returns the total number of embeddings.
func (r *embeddingRepo) GetEmbeddingCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM card_embeddings").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count embeddings: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEmbedding(row rowScanner) (*models.CardEmbedding, error) {
	var e models.CardEmbedding
	var vectorJSON string

	if err := row.Scan(&e.CardID, &e.Model, &e.Dimensions, &vectorJSON, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(vectorJSON), &e.Vector); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}
	return &e, nil
}
