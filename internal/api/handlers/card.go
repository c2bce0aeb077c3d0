package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/InkForge/internal/api/response"
	"github.com/ramonehamilton/InkForge/internal/lorcana/cards"
	"github.com/ramonehamilton/InkForge/internal/lorcana/legality"
	"github.com/ramonehamilton/InkForge/internal/lorcana/search"
)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 500
)

// CardStore reads cards from the corpus.
type CardStore interface {
	GetCard(ctx context.Context, id string) (*cards.CardRecord, error)
	QueryCards(ctx context.Context, filter search.Expr, limit int) ([]*cards.CardRecord, error)
}

// CardHandler handles card-related API requests.
type CardHandler struct {
	store CardStore
	now   func() time.Time
}

// NewCardHandler creates a new CardHandler.
func NewCardHandler(store CardStore) *CardHandler {
	return &CardHandler{store: store, now: time.Now}
}

// CardDetail is a card with its legality in every supported format.
type CardDetail struct {
	*cards.CardRecord
	Verdicts []legality.Verdict `json:"verdicts"`
}

// GetCard returns a card by ID.
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardID")
	if cardID == "" {
		response.BadRequest(w, errors.New("card ID is required"))
		return
	}

	card, err := h.store.GetCard(r.Context(), cardID)
	if err != nil {
		response.InternalError(w, err)
		return
	}

	if card == nil {
		response.NotFound(w, errors.New("card not found"))
		return
	}

	response.Success(w, CardDetail{
		CardRecord: card,
		Verdicts:   legality.ExplainAll(card, h.now().UTC()),
	})
}

// SearchCardsRequest is the request body for searching cards.
type SearchCardsRequest struct {
	search.Filters
	Limit int `json:"limit,omitempty"`
}

// SearchCards lists corpus cards matching structured filters. When a format is
// given, only cards legal in it right now are returned.
func (h *CardHandler) SearchCards(w http.ResponseWriter, r *http.Request) {
	var req SearchCardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, errors.New("invalid request body"))
		return
	}

	filter, err := search.BuildFilter(req.Filters)
	if err != nil {
		response.BadRequest(w, err)
		return
	}

	var format cards.Format
	if req.Format != "" {
		format, err = cards.ParseFormat(string(req.Format))
		if err != nil {
			response.BadRequest(w, err)
			return
		}
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	// Legality is evaluated after the query, so the store can't apply the limit.
	queryLimit := limit
	if format != "" {
		queryLimit = 0
	}

	found, err := h.store.QueryCards(r.Context(), filter, queryLimit)
	if err != nil {
		response.InternalError(w, err)
		return
	}

	if format != "" {
		found = legalOnly(found, format, h.now().UTC(), limit)
	}
	if found == nil {
		found = []*cards.CardRecord{}
	}
	response.Success(w, found)
}

func legalOnly(found []*cards.CardRecord, format cards.Format, at time.Time, limit int) []*cards.CardRecord {
	legal := make([]*cards.CardRecord, 0, len(found))
	for _, card := range found {
		if !legality.IsLegal(card, format, at) {
			continue
		}
		legal = append(legal, card)
		if len(legal) == limit {
			break
		}
	}
	return legal
}
