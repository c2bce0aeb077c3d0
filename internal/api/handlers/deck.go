package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ramonehamilton/InkForge/internal/api/response"
	"github.com/ramonehamilton/InkForge/internal/lorcana/deckbuilder"
	"github.com/ramonehamilton/InkForge/internal/metrics"
)

// DeckBuilder builds decks from a request.
type DeckBuilder interface {
	BuildDeck(ctx context.Context, req deckbuilder.Request) (*deckbuilder.Result, error)
}

// DeckDefaults fill in request fields the client left out.
type DeckDefaults struct {
	Size   int
	Format string
}

// DeckHandler handles deck building requests.
type DeckHandler struct {
	builder  DeckBuilder
	defaults DeckDefaults
	metrics  *metrics.BuildMetrics
	logger   *zap.Logger
}

// NewDeckHandler creates a new DeckHandler. m may be nil.
func NewDeckHandler(builder DeckBuilder, defaults DeckDefaults, m *metrics.BuildMetrics, logger *zap.Logger) *DeckHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeckHandler{builder: builder, defaults: defaults, metrics: m, logger: logger}
}

// BuildDeckRequest is the request body for building a deck.
type BuildDeckRequest struct {
	Text     string   `json:"text"`
	DeckSize *int     `json:"deckSize,omitempty"`
	Colors   []string `json:"colors,omitempty"`
	Format   string   `json:"format,omitempty"`
	MinCost  *int     `json:"minCost,omitempty"`
	MaxCost  *int     `json:"maxCost,omitempty"`
}

// toRequest applies the defaults. An explicit deck size, even zero, is kept
// so the builder can reject it.
func (r BuildDeckRequest) toRequest(defaults DeckDefaults) deckbuilder.Request {
	req := deckbuilder.Request{
		FreeText: r.Text,
		DeckSize: defaults.Size,
		Colors:   r.Colors,
		Format:   r.Format,
		MinCost:  r.MinCost,
		MaxCost:  r.MaxCost,
	}
	if r.DeckSize != nil {
		req.DeckSize = *r.DeckSize
	}
	if req.Format == "" {
		req.Format = defaults.Format
	}
	return req
}

// BuildDeck builds a deck from a free-text description.
func (h *DeckHandler) BuildDeck(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body BuildDeckRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.record(metrics.OutcomeInvalid, start)
		response.BadRequest(w, errors.New("invalid request body"))
		return
	}

	result, err := h.builder.BuildDeck(r.Context(), body.toRequest(h.defaults))
	if err != nil {
		h.record(h.writeBuildError(w, err), start)
		return
	}

	h.record(metrics.OutcomeBuilt, start)
	response.Success(w, result)
}

func (h *DeckHandler) writeBuildError(w http.ResponseWriter, err error) metrics.Outcome {
	switch {
	case errors.Is(err, deckbuilder.ErrInvalidRequest):
		response.BadRequest(w, err)
		return metrics.OutcomeInvalid
	case errors.Is(err, deckbuilder.ErrRetrievalFailure):
		response.ServiceUnavailable(w, err)
		return metrics.OutcomeRetrievalFailure
	case errors.Is(err, deckbuilder.ErrInsufficientCandidates):
		response.UnprocessableEntity(w, err)
		return metrics.OutcomeInsufficient
	default:
		h.logger.Error("Deck build failed", zap.Error(err))
		response.InternalError(w, err)
		return metrics.OutcomeError
	}
}

func (h *DeckHandler) record(outcome metrics.Outcome, start time.Time) {
	if h.metrics != nil {
		h.metrics.Record(outcome, time.Since(start))
	}
}
