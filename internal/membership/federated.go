package membership

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/probaccess/sitegate/internal/model"
)

// GraphClient is the federated group service holding unified groups.
type GraphClient interface {
	// GroupBySlug resolves the unified group whose identifier exactly
	// matches the site slug.
	GroupBySlug(ctx context.Context, slug string) (model.Group, error)
	// SearchGroups lists candidate groups for a prefix query.
	SearchGroups(ctx context.Context, prefix string) ([]model.Group, error)
	GroupOwners(ctx context.Context, groupID string) ([]model.Principal, error)
	// GroupTransitiveMembers expands nested group membership, not just
	// direct members.
	GroupTransitiveMembers(ctx context.Context, groupID string) ([]model.Principal, error)
}

// FederatedBackend resolves membership through the unified group that owns
// the site. The authorized set is owners plus transitive members.
type FederatedBackend struct {
	client GraphClient
	budget time.Duration
	log    *zap.Logger
}

func NewFederatedBackend(client GraphClient, budget time.Duration, log *zap.Logger) *FederatedBackend {
	if log == nil {
		log = zap.NewNop()
	}
	return &FederatedBackend{client: client, budget: budget, log: log}
}

func (b *FederatedBackend) Name() string { return "federated" }

func (b *FederatedBackend) Budget() time.Duration { return b.budget }

func (b *FederatedBackend) AuthorizedSet(ctx context.Context, site model.Site) (MemberSet, error) {
	group, err := b.resolveGroup(ctx, site)
	if err != nil {
		return nil, err
	}

	// Owners and transitive members are independent fetches; issue both
	// and join.
	type fetch struct {
		principals []model.Principal
		err        error
	}
	ownerCh := make(chan fetch, 1)
	memberCh := make(chan fetch, 1)

	go func() {
		p, err := b.client.GroupOwners(ctx, group.ID)
		ownerCh <- fetch{principals: p, err: err}
	}()
	go func() {
		p, err := b.client.GroupTransitiveMembers(ctx, group.ID)
		memberCh <- fetch{principals: p, err: err}
	}()

	owners, members := <-ownerCh, <-memberCh

	// One failed leg still yields a usable set; both failing does not.
	if owners.err != nil && members.err != nil {
		return nil, fmt.Errorf("federated group %s: owners: %v; members: %w",
			group.ID, owners.err, members.err)
	}
	if owners.err != nil {
		b.log.Debug("federated owners fetch failed", zap.String("group", group.ID), zap.Error(owners.err))
	}
	if members.err != nil {
		b.log.Debug("federated members fetch failed", zap.String("group", group.ID), zap.Error(members.err))
	}

	return PrincipalSet(append(owners.principals, members.principals...)), nil
}

// resolveGroup finds the owning unified group: exact slug match first, then
// a prefix search picking the best candidate.
func (b *FederatedBackend) resolveGroup(ctx context.Context, site model.Site) (model.Group, error) {
	group, err := b.client.GroupBySlug(ctx, site.Slug)
	if err == nil && group.ID != "" {
		return group, nil
	}
	if err != nil {
		b.log.Debug("exact group lookup failed, trying prefix search",
			zap.String("slug", site.Slug), zap.Error(err))
	}

	candidates, err := b.client.SearchGroups(ctx, site.Slug)
	if err != nil {
		return model.Group{}, fmt.Errorf("group search for %q: %w", site.Slug, err)
	}
	if best, ok := bestMatch(site.Slug, candidates); ok {
		return best, nil
	}
	return model.Group{}, fmt.Errorf("%w: no unified group matches %q", ErrNoResult, site.Slug)
}

// bestMatch picks the candidate whose identifier or title starts with the
// slug, preferring the shortest (tightest) identifier.
func bestMatch(slug string, candidates []model.Group) (model.Group, bool) {
	slug = strings.ToLower(slug)
	var best model.Group
	found := false
	for _, g := range candidates {
		id := strings.ToLower(g.ID)
		title := strings.ToLower(g.Title)
		if !strings.HasPrefix(id, slug) && !strings.HasPrefix(title, slug) {
			continue
		}
		if !found || len(g.ID) < len(best.ID) {
			best = g
			found = true
		}
	}
	return best, found
}
