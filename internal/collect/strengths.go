package collect

import (
	"strings"
	"unicode/utf8"
)

// Traits are the strengths and weaknesses a player page renders as text.
type Traits struct {
	Strengths  []string
	Weaknesses []string
}

var positionCodes = map[string]struct{}{
	"GK": {}, "CB": {}, "LB": {}, "RB": {}, "LWB": {}, "RWB": {},
	"DM": {}, "MC": {}, "ML": {}, "MR": {}, "AM": {},
	"LW": {}, "RW": {}, "CF": {}, "ST": {}, "F": {}, "M": {}, "D": {},
}

var sectionEnds = map[string]struct{}{
	"Player positions":   {},
	"Player value":       {},
	"Attribute Overview": {},
	"Transfer history":   {},
	"National team":      {},
}

// ParseTraits scans the visible text of a player page. Lines after a
// "Strengths" or "Weaknesses" header belong to that list until the next known
// section heading or a position code.
func ParseTraits(text string) Traits {
	t := Traits{Strengths: []string{}, Weaknesses: []string{}}
	var section *[]string

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		switch line {
		case "Strengths":
			section = &t.Strengths
			continue
		case "Weaknesses":
			section = &t.Weaknesses
			continue
		}
		if section == nil {
			continue
		}
		if endsSection(line) {
			section = nil
			continue
		}
		if isTrait(line) {
			*section = append(*section, line)
		}
	}
	return t
}

func endsSection(line string) bool {
	if _, ok := sectionEnds[line]; ok {
		return true
	}
	if _, ok := positionCodes[line]; ok {
		return true
	}
	return strings.HasPrefix(line, "Search to compare")
}

func isTrait(line string) bool {
	if utf8.RuneCountInString(line) < 4 {
		return false
	}
	return line != "No outstanding strengths" && line != "No outstanding weaknesses"
}
