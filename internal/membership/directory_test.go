package membership

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/probaccess/sitegate/internal/model"
)

type fakeDirectory struct {
	groups  map[string]model.Group
	members map[string][]model.Principal
}

func (f *fakeDirectory) GroupByName(ctx context.Context, name string) (model.Group, error) {
	g, ok := f.groups[name]
	if !ok {
		return model.Group{}, errors.New("group not found: " + name)
	}
	return g, nil
}

func (f *fakeDirectory) GroupMembers(ctx context.Context, groupID string) ([]model.Principal, error) {
	return f.members[groupID], nil
}

func TestDirectoryUnionsRoleGroups(t *testing.T) {
	dir := &fakeDirectory{
		groups: map[string]model.Group{
			"Owners":  {ID: "g-owners"},
			"Members": {ID: "g-members"},
		},
		members: map[string][]model.Principal{
			"g-owners":  {{Email: "alice@example.org"}},
			"g-members": {{Email: "bob@example.org"}},
		},
	}
	b := NewDirectoryBackend(dir, nil, time.Second, nil)

	set, err := b.AuthorizedSet(context.Background(), testSite)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Size() != 2 {
		t.Errorf("expected union of 2 principals, got %d", set.Size())
	}
	if !set.Contains(model.Principal{Email: "bob@example.org"}) {
		t.Error("expected bob from Members role group")
	}
}

func TestDirectoryTriesTitlePrefixedGroups(t *testing.T) {
	dir := &fakeDirectory{
		groups: map[string]model.Group{
			"Finance Owners": {ID: "g-fin"},
		},
		members: map[string][]model.Principal{
			"g-fin": {{Email: "alice@example.org"}},
		},
	}
	b := NewDirectoryBackend(dir, []string{"Owners"}, time.Second, nil)

	site := model.Site{Slug: "finance", Title: "Finance"}
	set, err := b.AuthorizedSet(context.Background(), site)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !set.Contains(model.Principal{Email: "alice@example.org"}) {
		t.Error("expected alice via title-prefixed role group")
	}
}

func TestDirectoryNoRoleGroupsResolvable(t *testing.T) {
	b := NewDirectoryBackend(&fakeDirectory{groups: map[string]model.Group{}}, nil, time.Second, nil)

	_, err := b.AuthorizedSet(context.Background(), testSite)
	if !errors.Is(err, ErrNoResult) {
		t.Errorf("expected ErrNoResult when no role group resolves, got %v", err)
	}
}

func TestDirectoryPartialResolutionStillYieldsSet(t *testing.T) {
	dir := &fakeDirectory{
		groups: map[string]model.Group{
			"Visitors": {ID: "g-vis"},
		},
		members: map[string][]model.Principal{
			"g-vis": {{Email: "carol@example.org"}},
		},
	}
	b := NewDirectoryBackend(dir, nil, time.Second, nil)

	set, err := b.AuthorizedSet(context.Background(), testSite)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Size() != 1 {
		t.Errorf("expected 1 principal from the single resolvable role, got %d", set.Size())
	}
}
