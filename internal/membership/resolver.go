// Package membership resolves the set of principals authorized to view a
// protected site, trying heterogeneous backends in a fixed fallback order.
// The chain always degrades toward denial: exhausting every backend without
// proof of authorization yields false.
package membership

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/probaccess/sitegate/internal/model"
)

// ErrNoResult is returned by a backend that is reachable but produced no
// usable authorized set (group missing, list empty). The resolver advances
// to the next backend.
var ErrNoResult = errors.New("membership: backend produced no result")

// MemberSet is an authorized set produced by one backend. Structured
// backends compare principals by email/ID; the rendered-names fallback
// compares loose display names.
type MemberSet interface {
	Contains(p model.Principal) bool
	Size() int
}

// Backend is one membership data source in the fallback chain.
type Backend interface {
	Name() string
	// Budget bounds a single AuthorizedSet call. The resolver derives a
	// context deadline from it before each attempt.
	Budget() time.Duration
	AuthorizedSet(ctx context.Context, site model.Site) (MemberSet, error)
}

// Resolver walks an ordered backend chain until one yields a non-empty
// authorized set, then tests the principal against that set alone.
type Resolver struct {
	backends []Backend
	log      *zap.Logger
}

// NewResolver creates a Resolver with the given backend order. A nil logger
// is replaced by a no-op logger.
func NewResolver(log *zap.Logger, backends ...Backend) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{backends: backends, log: log}
}

// IsAuthorized reports whether principal belongs to the site's authorized
// set. Each backend gets one bounded attempt; errors and empty results
// advance the chain. Total exhaustion returns false (fail closed).
func (r *Resolver) IsAuthorized(ctx context.Context, site model.Site, principal model.Principal) bool {
	for _, backend := range r.backends {
		set, err := r.attempt(ctx, backend, site)
		if err != nil {
			r.log.Warn("membership backend skipped",
				zap.String("backend", backend.Name()),
				zap.String("site", site.Slug),
				zap.Error(err))
			continue
		}
		if set == nil || set.Size() == 0 {
			r.log.Debug("membership backend returned empty set",
				zap.String("backend", backend.Name()),
				zap.String("site", site.Slug))
			continue
		}
		ok := set.Contains(principal)
		r.log.Info("membership resolved",
			zap.String("backend", backend.Name()),
			zap.String("site", site.Slug),
			zap.Int("set_size", set.Size()),
			zap.Bool("authorized", ok))
		return ok
	}
	r.log.Warn("all membership backends exhausted, failing closed",
		zap.String("site", site.Slug))
	return false
}

func (r *Resolver) attempt(ctx context.Context, backend Backend, site model.Site) (MemberSet, error) {
	budget := backend.Budget()
	if budget <= 0 {
		budget = 5 * time.Second
	}
	bctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	return backend.AuthorizedSet(bctx, site)
}

// principalSet is a MemberSet matched on normalized email with opaque-ID
// fallback.
type principalSet struct {
	principals []model.Principal
}

// PrincipalSet builds a MemberSet from structured principal records.
func PrincipalSet(principals []model.Principal) MemberSet {
	return &principalSet{principals: principals}
}

func (s *principalSet) Contains(p model.Principal) bool {
	return model.ContainsPrincipal(s.principals, p)
}

func (s *principalSet) Size() int { return len(s.principals) }

// nameSet is a MemberSet of scraped display names, matched loosely because
// rendered names are unreliable identifiers.
type nameSet struct {
	names []string
}

// NameSet builds a MemberSet from rendered display names, dropping blanks.
func NameSet(names []string) MemberSet {
	kept := make([]string, 0, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) != "" {
			kept = append(kept, n)
		}
	}
	return &nameSet{names: kept}
}

func (s *nameSet) Contains(p model.Principal) bool {
	for _, n := range s.names {
		if model.LooseNameMatch(n, p.DisplayName) {
			return true
		}
	}
	return false
}

func (s *nameSet) Size() int { return len(s.names) }
