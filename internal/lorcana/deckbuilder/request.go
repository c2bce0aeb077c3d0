package deckbuilder

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ramonehamilton/InkForge/internal/lorcana/cards"
	"github.com/ramonehamilton/InkForge/internal/lorcana/search"
)

// Request asks for one deck.
type Request struct {
	FreeText string   `json:"freeText" validate:"required,max=2000"`
	DeckSize int      `json:"deckSize" validate:"gt=0"`
	Colors   []string `json:"colors,omitempty" validate:"max=2,dive,required"`
	Format   string   `json:"format" validate:"required"`
	MinCost  *int     `json:"minCost,omitempty" validate:"omitempty,gte=0"`
	MaxCost  *int     `json:"maxCost,omitempty" validate:"omitempty,gte=0"`
}

// normalized is the parsed, validated form of a Request.
type normalized struct {
	text     string
	deckSize int
	format   cards.Format
	colors   []cards.Ink
	filters  search.Filters
	filter   search.Expr
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func normalize(v *validator.Validate, req Request) (normalized, error) {
	req.FreeText = strings.TrimSpace(req.FreeText)

	if err := v.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return normalized{}, invalid(fieldName(fe), "failed %q validation", fe.Tag())
		}
		return normalized{}, invalid("request", "%v", err)
	}

	format, err := cards.ParseFormat(req.Format)
	if err != nil {
		return normalized{}, invalid("format", "%v", err)
	}

	colors, err := cards.ParseInks(req.Colors)
	if err != nil {
		return normalized{}, invalid("colors", "%v", err)
	}

	filters := search.Filters{
		Colors:  colors,
		MinCost: req.MinCost,
		MaxCost: req.MaxCost,
		Format:  format,
	}
	filter, err := search.BuildFilter(filters)
	if err != nil {
		return normalized{}, invalid("filters", "%v", err)
	}

	return normalized{
		text:     req.FreeText,
		deckSize: req.DeckSize,
		format:   format,
		colors:   colors,
		filters:  filters,
		filter:   filter,
	}, nil
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}
