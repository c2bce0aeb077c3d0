package deckbuilder

import (
	"context"

	"go.uber.org/zap"

	"github.com/ramonehamilton/InkForge/internal/lorcana/assembler"
	"github.com/ramonehamilton/InkForge/internal/lorcana/cards"
	"github.com/ramonehamilton/InkForge/internal/lorcana/inks"
	"github.com/ramonehamilton/InkForge/internal/lorcana/search"
)

// Result is the serialized deck.
type Result struct {
	RequestID      string              `json:"requestId"`
	Format         cards.Format        `json:"format"`
	Inks           inks.Choice         `json:"inks"`
	InksInferred   bool                `json:"inksInferred"`
	Cards          []ResultCard        `json:"cards"`
	TotalCards     int                 `json:"totalCards"`
	InkableCount   int                 `json:"inkableCount"`
	NonInkable     int                 `json:"nonInkableCount"`
	UnknownInkable int                 `json:"unknownInkableCount"`
	InkRatio       *float64            `json:"inkRatio,omitempty"`
	CostCurve      map[int]int         `json:"costCurve"`
	Stats          PoolStats           `json:"stats"`
	Plan           *assembler.DeckPlan `json:"-"`
}

// ResultCard is one line of the deck list.
type ResultCard struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Copies  int            `json:"copies"`
	Inkable cards.TriState `json:"inkable"`
	Cost    int            `json:"cost"`
	Colors  []cards.Ink    `json:"colors"`
	Link    string         `json:"link,omitempty"`
}

// PoolStats reports how the pool narrowed through the stages.
type PoolStats struct {
	Retrieved int `json:"retrieved"`
	Legal     int `json:"legal"`
	Matched   int `json:"matched"`
}

// hydrate fills display fields from the corpus lookup, falling back to the
// records the search engine returned.
func (b *Builder) hydrate(
	ctx context.Context,
	st buildState,
	plan *assembler.DeckPlan,
	pool []search.Candidate,
	choice inks.Choice,
	inferred bool,
) *Result {
	records := make(map[string]*cards.CardRecord, len(pool))
	for _, c := range pool {
		records[c.Card.ID] = c.Card
	}

	if b.lookup != nil {
		ids := make([]string, len(plan.Entries))
		for i, e := range plan.Entries {
			ids[i] = e.CardID
		}
		fresh, err := b.lookup.GetCards(ctx, ids)
		if err != nil {
			b.logger.Warn("Card hydration failed, using search records",
				zap.String("request_id", st.requestID), zap.Error(err))
		}
		for id, rec := range fresh {
			if rec != nil {
				records[id] = rec
			}
		}
	}

	result := &Result{
		RequestID:      st.requestID,
		Format:         st.req.format,
		Inks:           choice,
		InksInferred:   inferred,
		Cards:          make([]ResultCard, 0, len(plan.Entries)),
		TotalCards:     plan.Size,
		InkableCount:   plan.Inkable,
		NonInkable:     plan.NonInkable,
		UnknownInkable: plan.Unknown,
		CostCurve:      plan.CostCurve(),
		Plan:           plan,
	}
	if ratio, ok := plan.InkRatio(); ok {
		result.InkRatio = &ratio
	}

	for _, e := range plan.Entries {
		line := ResultCard{
			ID:      e.CardID,
			Name:    e.CardID,
			Copies:  e.Copies,
			Inkable: e.Inkable,
			Cost:    e.Cost,
		}
		if rec := records[e.CardID]; rec != nil {
			line.Name = rec.DisplayName()
			line.Colors = rec.Colors
			line.Link = rec.ExternalURL
		}
		result.Cards = append(result.Cards, line)
	}

	return result
}
