package deckbuilder

import (
	"errors"
	"fmt"

	"github.com/ramonehamilton/InkForge/internal/lorcana/assembler"
	"github.com/ramonehamilton/InkForge/internal/lorcana/search"
)

var (
	// ErrInvalidRequest marks requests rejected before retrieval.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrRetrievalFailure marks embedding or search failures, including timeouts.
	ErrRetrievalFailure = search.ErrRetrievalFailure

	// ErrInsufficientCandidates marks pools that can't fill the deck.
	ErrInsufficientCandidates = assembler.ErrInsufficientCandidates
)

// InvalidRequestError names the offending request field.
type InvalidRequestError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalidRequest, e.Field, e.Reason)
}

// Is lets errors.Is match ErrInvalidRequest.
func (e *InvalidRequestError) Is(target error) bool { return target == ErrInvalidRequest }

func invalid(field, format string, args ...interface{}) error {
	return &InvalidRequestError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
