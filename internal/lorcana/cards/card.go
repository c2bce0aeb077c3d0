// Package cards defines the read-only card records the deck builder works from.
package cards

import "time"

// CardRecord is one card of the corpus. Records are loaded from the corpus
// snapshot and never mutated afterwards.
type CardRecord struct {
	// Stable identity, unique within the corpus
	ID   string `json:"id"`
	Name string `json:"name"`

	// Ink identity (one or more)
	Colors []Ink `json:"colors"`

	// Ink cost to play the card
	Cost int `json:"cost"`

	// Whether the card may be put into the inkwell
	Inkable TriState `json:"inkable"`

	// Per-format legality
	Legality map[Format]FormatLegality `json:"legality,omitempty"`

	// Display only
	Version     string `json:"version,omitempty"`
	BodyText    string `json:"bodyText,omitempty"`
	FlavorText  string `json:"flavorText,omitempty"`
	Rarity      string `json:"rarity,omitempty"`
	SetCode     string `json:"setCode,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	ExternalURL string `json:"externalUrl,omitempty"`
}

// FormatLegality describes whether a card is allowed in one format.
// A nil bound means the window is open on that side.
type FormatLegality struct {
	Allowed    TriState   `json:"allowed"`
	ValidFrom  *time.Time `json:"validFrom,omitempty"`
	ValidUntil *time.Time `json:"validUntil,omitempty"`
}

// HasWindow reports whether either side of the validity window is set.
func (l FormatLegality) HasWindow() bool {
	return l.ValidFrom != nil || l.ValidUntil != nil
}

// HasColor reports whether the card carries the given ink.
func (c *CardRecord) HasColor(ink Ink) bool {
	for _, color := range c.Colors {
		if color == ink {
			return true
		}
	}
	return false
}

// HasAnyColor reports whether the card carries at least one of the given inks.
func (c *CardRecord) HasAnyColor(inks []Ink) bool {
	for _, ink := range inks {
		if c.HasColor(ink) {
			return true
		}
	}
	return false
}

// DisplayName returns "Name - Version" for character cards with a version subtitle.
func (c *CardRecord) DisplayName() string {
	if c.Version == "" {
		return c.Name
	}
	return c.Name + " - " + c.Version
}
