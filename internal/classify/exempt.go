package classify

import "strings"

// ExemptList holds administrative path patterns that always allow, checked
// before any other evaluation step. Matching is case-insensitive substring,
// same tolerance as classification.
type ExemptList struct {
	patterns []string
}

// NewExemptList compiles the configured patterns, dropping blanks.
func NewExemptList(patterns []string) *ExemptList {
	kept := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			kept = append(kept, p)
		}
	}
	return &ExemptList{patterns: kept}
}

// Matches reports whether the address is administratively exempt.
func (l *ExemptList) Matches(address string) bool {
	if l == nil {
		return false
	}
	addr := normalizeAddress(address)
	for _, p := range l.patterns {
		if strings.Contains(addr, p) {
			return true
		}
	}
	return false
}
