package backends

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/probaccess/sitegate/internal/membership"
	"github.com/probaccess/sitegate/internal/model"
)

// Directory is the HTTP client for the site-local group directory. It
// implements membership.DirectoryClient and the visibility record signal.
type Directory struct {
	rest *restClient
}

func NewDirectory(base string, timeout time.Duration, retries uint, log *zap.Logger) *Directory {
	return &Directory{rest: newRestClient("directory", base, timeout, retries, log)}
}

type wireGroup struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Visibility string `json:"visibility"`
}

func (d *Directory) GroupByName(ctx context.Context, name string) (model.Group, error) {
	var g wireGroup
	if err := d.rest.getJSON(ctx, "/groups/by-name/"+escape(name), &g); err != nil {
		var nf *NotFoundError
		if errors.As(err, &nf) {
			return model.Group{}, fmt.Errorf("%w: group %q", membership.ErrNoResult, name)
		}
		return model.Group{}, err
	}
	return model.Group{ID: g.ID, Title: g.Title}, nil
}

func (d *Directory) GroupMembers(ctx context.Context, groupID string) ([]model.Principal, error) {
	var principals []model.Principal
	if err := d.rest.getJSON(ctx, "/groups/"+escape(groupID)+"/members", &principals); err != nil {
		return nil, err
	}
	return principals, nil
}

type wireSiteRecord struct {
	Privacy string `json:"privacy"`
}

// ResourcePrivacy reads the declared privacy property from the site record.
// Implements the visibility record signal.
func (d *Directory) ResourcePrivacy(ctx context.Context, site model.Site) (string, error) {
	var rec wireSiteRecord
	if err := d.rest.getJSON(ctx, "/sites/"+escape(site.Slug)+"/record", &rec); err != nil {
		return "", err
	}
	return rec.Privacy, nil
}
