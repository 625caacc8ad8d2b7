package backends

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/probaccess/sitegate/internal/membership"
	"github.com/probaccess/sitegate/internal/model"
	"github.com/probaccess/sitegate/internal/visibility"
)

// Graph is the HTTP client for the federated group service. It implements
// membership.GraphClient and the visibility group-attribute signal.
type Graph struct {
	rest *restClient
}

func NewGraph(base string, timeout time.Duration, retries uint, log *zap.Logger) *Graph {
	return &Graph{rest: newRestClient("graph", base, timeout, retries, log)}
}

type wireUnifiedGroup struct {
	ID                  string `json:"id"`
	Slug                string `json:"slug"`
	DisplayName         string `json:"display_name"`
	Visibility          string `json:"visibility"`
	AllowMembershipEdit bool   `json:"allow_membership_edit"`
	AllowRequestToJoin  bool   `json:"allow_request_to_join"`
}

func (w wireUnifiedGroup) toModel() model.Group {
	return model.Group{
		ID:         w.ID,
		Title:      w.DisplayName,
		Visibility: w.visibility(),
	}
}

// visibility derives the group's openness: an explicit label wins, join
// flags decide otherwise.
func (w wireUnifiedGroup) visibility() model.Visibility {
	if v := visibility.ParseLabel(w.Visibility); v != model.VisibilityUnknown {
		return v
	}
	return visibility.FromJoinFlags(w.AllowMembershipEdit, w.AllowRequestToJoin)
}

func (g *Graph) GroupBySlug(ctx context.Context, slug string) (model.Group, error) {
	var w wireUnifiedGroup
	if err := g.rest.getJSON(ctx, "/groups/"+escape(slug), &w); err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return model.Group{}, fmt.Errorf("%w: unified group %q", membership.ErrNoResult, slug)
		}
		return model.Group{}, err
	}
	return w.toModel(), nil
}

func (g *Graph) SearchGroups(ctx context.Context, prefix string) ([]model.Group, error) {
	var wires []wireUnifiedGroup
	if err := g.rest.getJSON(ctx, "/groups?prefix="+url.QueryEscape(prefix), &wires); err != nil {
		return nil, err
	}
	groups := make([]model.Group, 0, len(wires))
	for _, w := range wires {
		groups = append(groups, w.toModel())
	}
	return groups, nil
}

func (g *Graph) GroupOwners(ctx context.Context, groupID string) ([]model.Principal, error) {
	var principals []model.Principal
	if err := g.rest.getJSON(ctx, "/groups/"+escape(groupID)+"/owners", &principals); err != nil {
		return nil, err
	}
	return principals, nil
}

func (g *Graph) GroupTransitiveMembers(ctx context.Context, groupID string) ([]model.Principal, error) {
	var principals []model.Principal
	if err := g.rest.getJSON(ctx, "/groups/"+escape(groupID)+"/transitive-members", &principals); err != nil {
		return nil, err
	}
	return principals, nil
}

// GroupVisibility implements the visibility group-attribute signal.
func (g *Graph) GroupVisibility(ctx context.Context, site model.Site) (model.Visibility, error) {
	group, err := g.GroupBySlug(ctx, site.Slug)
	if err != nil {
		return model.VisibilityUnknown, err
	}
	return group.Visibility, nil
}
