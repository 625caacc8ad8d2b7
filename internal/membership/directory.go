package membership

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/probaccess/sitegate/internal/model"
)

// DefaultRoles are the site-local role groups whose union forms the
// authorized set.
var DefaultRoles = []string{"Owners", "Members", "Visitors"}

// DirectoryClient is the site-local group directory.
type DirectoryClient interface {
	GroupByName(ctx context.Context, name string) (model.Group, error)
	GroupMembers(ctx context.Context, groupID string) ([]model.Principal, error)
}

// DirectoryBackend resolves membership from the owning system's role groups.
// The authorized set is the union of the principal lists of every role group
// that resolves; roles that fail to resolve are skipped individually.
type DirectoryBackend struct {
	client DirectoryClient
	roles  []string
	budget time.Duration
	log    *zap.Logger
}

// NewDirectoryBackend creates the role-group backend. Empty roles fall back
// to DefaultRoles.
func NewDirectoryBackend(client DirectoryClient, roles []string, budget time.Duration, log *zap.Logger) *DirectoryBackend {
	if len(roles) == 0 {
		roles = DefaultRoles
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DirectoryBackend{client: client, roles: roles, budget: budget, log: log}
}

func (b *DirectoryBackend) Name() string { return "directory" }

func (b *DirectoryBackend) Budget() time.Duration { return b.budget }

// AuthorizedSet unions the members of every resolvable role group. Role
// group names are tried both bare ("Owners") and prefixed with the site
// title ("Finance Owners"), matching how owning systems name them.
func (b *DirectoryBackend) AuthorizedSet(ctx context.Context, site model.Site) (MemberSet, error) {
	var authorized []model.Principal
	resolvedAny := false

	for _, role := range b.roles {
		principals, err := b.roleMembers(ctx, site, role)
		if err != nil {
			b.log.Debug("role group unresolved",
				zap.String("role", role),
				zap.String("site", site.Slug),
				zap.Error(err))
			continue
		}
		resolvedAny = true
		authorized = append(authorized, principals...)
	}

	if !resolvedAny {
		return nil, fmt.Errorf("%w: no role group resolved for %q", ErrNoResult, site.Slug)
	}
	return PrincipalSet(authorized), nil
}

func (b *DirectoryBackend) roleMembers(ctx context.Context, site model.Site, role string) ([]model.Principal, error) {
	names := []string{role}
	if site.Title != "" {
		names = append([]string{site.Title + " " + role}, names...)
	}

	var lastErr error
	for _, name := range names {
		group, err := b.client.GroupByName(ctx, name)
		if err != nil {
			lastErr = err
			continue
		}
		members, err := b.client.GroupMembers(ctx, group.ID)
		if err != nil {
			lastErr = err
			continue
		}
		return members, nil
	}
	return nil, lastErr
}
