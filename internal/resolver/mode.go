package resolver

import (
	"fmt"
	"strings"
)

// Mode selects how many sources contribute root branches for a part.
type Mode int

const (
	// ModeAllSources creates one root branch per source listing the part
	// as a product.
	ModeAllSources Mode = iota
	// ModeFirstMatch stops at the first source, in priority order, that
	// lists the part as a product.
	ModeFirstMatch
)

func (m Mode) String() string {
	if m == ModeFirstMatch {
		return "first"
	}
	return "all"
}

// ParseMode accepts "all" / "all_sources" and "first" / "first_match",
// case-insensitively. An empty string selects ModeAllSources.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "all_sources", "all-sources":
		return ModeAllSources, nil
	case "first", "first_match", "first-match":
		return ModeFirstMatch, nil
	default:
		return ModeAllSources, fmt.Errorf("unknown search mode %q (supported: all, first)", s)
	}
}
