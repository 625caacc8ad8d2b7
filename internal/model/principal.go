package model

import "strings"

// Principal is the identity being evaluated. Supplied by the host context,
// treated as read-only input.
type Principal struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Group is the owning group of a sensitive resource. Members and owners are
// fetched per evaluation, never cached across evaluations.
type Group struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Visibility Visibility  `json:"visibility"`
	Owners     []Principal `json:"owners,omitempty"`
	Members    []Principal `json:"members,omitempty"`
}

// NormalizeEmail lower-cases and trims an email for comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SamePrincipal reports whether two principals refer to the same identity.
// Normalized email wins when both sides have one; opaque ID equality is the
// fallback. Two principals with neither field never match.
func SamePrincipal(a, b Principal) bool {
	ae, be := NormalizeEmail(a.Email), NormalizeEmail(b.Email)
	if ae != "" && be != "" {
		return ae == be
	}
	if a.ID != "" && b.ID != "" {
		return a.ID == b.ID
	}
	return false
}

// ContainsPrincipal reports whether p matches any entry of set.
func ContainsPrincipal(set []Principal, p Principal) bool {
	for _, candidate := range set {
		if SamePrincipal(candidate, p) {
			return true
		}
	}
	return false
}

// LooseNameMatch compares display names when no structured identifier is
// available. Both sides are trimmed and case-folded; a match is substring
// containment in either direction, so "Adi Makkar" matches a rendered
// "Adi Makkar (PSP)". Empty strings never match anything.
func LooseNameMatch(a, b string) bool {
	na := strings.ToLower(strings.TrimSpace(a))
	nb := strings.ToLower(strings.TrimSpace(b))
	if na == "" || nb == "" {
		return false
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}
