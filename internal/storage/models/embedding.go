package models

import "time"

// CardEmbedding is the stored embedding of one card's document text.
type CardEmbedding struct {
	CardID     string    `json:"cardId" db:"card_id"`
	Model      string    `json:"model" db:"model"`
	Dimensions int       `json:"dimensions" db:"dimensions"`
	Vector     []float32 `json:"vector" db:"-"` // Stored as JSON
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}
