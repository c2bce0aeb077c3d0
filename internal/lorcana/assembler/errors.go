package assembler

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientCandidates means the pool can't produce a full deck that
	// satisfies the constraints.
	ErrInsufficientCandidates = errors.New("insufficient candidates")

	// ErrInvalidOptions means the assembly options are out of range.
	ErrInvalidOptions = errors.New("invalid assembly options")
)

// Shortfall reasons.
const (
	ReasonCapacity = "capacity"
	ReasonInkRatio = "ink_ratio"
)

// InsufficientCandidatesError describes why no deck could be assembled.
type InsufficientCandidatesError struct {
	Reason string `json:"reason"`

	// Need is the requested deck size.
	Need int `json:"need"`

	// Capacity is unique cards times the copy cap.
	Capacity int `json:"capacity"`

	// Shortfall is the number of missing copies: deck slots for ReasonCapacity,
	// copies of the under-represented ink class for ReasonInkRatio.
	Shortfall int `json:"shortfall"`

	// Ratio is the inkable ratio reached, set for ReasonInkRatio.
	Ratio float64 `json:"ratio,omitempty"`
}

func (e *InsufficientCandidatesError) Error() string {
	switch e.Reason {
	case ReasonInkRatio:
		return fmt.Sprintf("%s: inkable ratio %.2f out of band, short %d copies", ErrInsufficientCandidates, e.Ratio, e.Shortfall)
	default:
		return fmt.Sprintf("%s: need %d cards, pool capacity is %d (short %d)", ErrInsufficientCandidates, e.Need, e.Capacity, e.Shortfall)
	}
}

// Is lets errors.Is match ErrInsufficientCandidates.
func (e *InsufficientCandidatesError) Is(target error) bool {
	return target == ErrInsufficientCandidates
}
