package cards

import (
	"fmt"
	"strings"
)

// Ink is a card color.
type Ink string

// The six inks, in canonical order.
const (
	InkAmber    Ink = "Amber"
	InkAmethyst Ink = "Amethyst"
	InkEmerald  Ink = "Emerald"
	InkRuby     Ink = "Ruby"
	InkSapphire Ink = "Sapphire"
	InkSteel    Ink = "Steel"
)

// AllInks lists every ink in canonical order.
var AllInks = []Ink{InkAmber, InkAmethyst, InkEmerald, InkRuby, InkSapphire, InkSteel}

// ParseInk parses an ink name case-insensitively.
func ParseInk(s string) (Ink, error) {
	name := strings.TrimSpace(s)
	for _, ink := range AllInks {
		if strings.EqualFold(name, string(ink)) {
			return ink, nil
		}
	}
	return "", fmt.Errorf("unknown ink %q", s)
}

// ParseInks parses a list of ink names, dropping duplicates while keeping order.
func ParseInks(names []string) ([]Ink, error) {
	inks := make([]Ink, 0, len(names))
	seen := make(map[Ink]bool, len(names))
	for _, name := range names {
		ink, err := ParseInk(name)
		if err != nil {
			return nil, err
		}
		if seen[ink] {
			continue
		}
		seen[ink] = true
		inks = append(inks, ink)
	}
	return inks, nil
}

// Index returns the canonical position of the ink, or -1 for an unknown value.
func (i Ink) Index() int {
	for idx, ink := range AllInks {
		if ink == i {
			return idx
		}
	}
	return -1
}

// Valid reports whether the ink is one of the six known inks.
func (i Ink) Valid() bool {
	return i.Index() >= 0
}

// UnmarshalText accepts ink names in any case. Empty text decodes to the
// zero Ink so an unset ink survives a JSON round trip.
func (i *Ink) UnmarshalText(text []byte) error {
	if strings.TrimSpace(string(text)) == "" {
		*i = ""
		return nil
	}
	ink, err := ParseInk(string(text))
	if err != nil {
		return err
	}
	*i = ink
	return nil
}
