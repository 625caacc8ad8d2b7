// Package classify determines whether a resource address points at a
// protected site. Pure string matching: no network access, no failure mode.
package classify

import (
	"regexp"
	"strings"

	"github.com/probaccess/sitegate/internal/model"
)

// slugPattern extracts the site slug from a collaboration URL, e.g.
// "b10001638" out of "https://tenant.example.com/teams/b10001638/pages/home".
var slugPattern = regexp.MustCompile(`/(sites|teams)/([^/?#]+)`)

// Classifier matches addresses and metadata against the protected namespace.
type Classifier struct {
	pathSegments []string
	marker       string
}

// New creates a Classifier. pathSegments are case-insensitive substrings of
// the address path that mark a site as sensitive (e.g. "/teams/b"); marker is
// a case-insensitive metadata token (e.g. "protected b") that does the same
// when present in a resource's declared description.
func New(pathSegments []string, marker string) *Classifier {
	segs := make([]string, 0, len(pathSegments))
	for _, s := range pathSegments {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			segs = append(segs, s)
		}
	}
	return &Classifier{
		pathSegments: segs,
		marker:       strings.ToLower(strings.TrimSpace(marker)),
	}
}

// Classify returns Sensitive when the address contains a protected path
// segment or the metadata contains the sensitivity marker. Classification
// requires a positive match: missing or ambiguous signals yield Unclassified.
func (c *Classifier) Classify(address, metadata string) model.Classification {
	addr := normalizeAddress(address)
	for _, seg := range c.pathSegments {
		if strings.Contains(addr, seg) {
			return model.Sensitive
		}
	}
	if c.marker != "" && metadata != "" {
		if strings.Contains(strings.ToLower(metadata), c.marker) {
			return model.Sensitive
		}
	}
	return model.Unclassified
}

// SiteSlug extracts the owning site identifier from an address. Returns ""
// when the address has no /sites/ or /teams/ component; callers treat that
// as an evaluation failure on sensitive addresses (fail closed).
func SiteSlug(address string) string {
	m := slugPattern.FindStringSubmatch(strings.ToLower(address))
	if len(m) < 3 {
		return ""
	}
	return strings.TrimSpace(m[2])
}

// normalizeAddress lower-cases the address and strips the query string and
// fragment so "?web=1" suffixes cannot dodge a segment match.
func normalizeAddress(address string) string {
	addr := strings.ToLower(strings.TrimSpace(address))
	if i := strings.IndexAny(addr, "?#"); i >= 0 {
		addr = addr[:i]
	}
	return strings.TrimRight(addr, "/") + "/"
}
