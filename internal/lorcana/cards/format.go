package cards

import (
	"fmt"
	"strings"
)

// Format is a constructed play format.
type Format string

const (
	FormatCore     Format = "core"
	FormatInfinity Format = "infinity"
)

// SupportedFormats lists the formats decks can be built for.
var SupportedFormats = []Format{FormatCore, FormatInfinity}

// ParseFormat parses a format tag case-insensitively.
func ParseFormat(s string) (Format, error) {
	tag := strings.ToLower(strings.TrimSpace(s))
	for _, f := range SupportedFormats {
		if string(f) == tag {
			return f, nil
		}
	}
	if tag == "" {
		return "", fmt.Errorf("format is required")
	}
	return "", fmt.Errorf("unsupported format %q", s)
}
