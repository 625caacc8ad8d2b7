// Package visibility resolves whether a protected site is openly joinable
// (public) or restricted (private). Signals are consulted in a fixed
// precedence order; a broken signal is skipped, never fatal. Only total
// exhaustion yields Unknown, which decision logic treats as Public — the
// branch that still requires proof of membership.
package visibility

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/probaccess/sitegate/internal/model"
)

// Signal is one visibility data source.
type Signal interface {
	Name() string
	// Resolve returns the visibility this signal can see. Unknown means the
	// signal had no answer; an error means the signal itself failed. Both
	// advance the chain.
	Resolve(ctx context.Context, site model.Site) (model.Visibility, error)
}

// Resolver walks the signal chain first-available-wins.
type Resolver struct {
	signals []Signal
	timeout time.Duration
	log     *zap.Logger
}

func NewResolver(log *zap.Logger, timeout time.Duration, signals ...Signal) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{signals: signals, timeout: timeout, log: log}
}

// Resolve returns the first definite visibility in precedence order.
func (r *Resolver) Resolve(ctx context.Context, site model.Site) model.Visibility {
	for _, sig := range r.signals {
		sctx, cancel := context.WithTimeout(ctx, r.timeout)
		v, err := sig.Resolve(sctx, site)
		cancel()
		if err != nil {
			r.log.Warn("visibility signal failed",
				zap.String("signal", sig.Name()),
				zap.String("site", site.Slug),
				zap.Error(err))
			continue
		}
		if v == model.VisibilityUnknown {
			continue
		}
		r.log.Debug("visibility resolved",
			zap.String("signal", sig.Name()),
			zap.String("site", site.Slug),
			zap.String("visibility", string(v)))
		return v
	}
	r.log.Info("no visibility signal resolved", zap.String("site", site.Slug))
	return model.VisibilityUnknown
}

// RecordClient reads the declared privacy property off the resource record.
type RecordClient interface {
	ResourcePrivacy(ctx context.Context, site model.Site) (string, error)
}

// RecordSignal resolves from the resource record's privacy property:
// "private" means Private, any other non-empty value means Public.
type RecordSignal struct {
	Client RecordClient
}

func (s *RecordSignal) Name() string { return "record" }

func (s *RecordSignal) Resolve(ctx context.Context, site model.Site) (model.Visibility, error) {
	prop, err := s.Client.ResourcePrivacy(ctx, site)
	if err != nil {
		return model.VisibilityUnknown, err
	}
	return ParseLabel(prop), nil
}

// AttributeClient reads the owning group's declared visibility.
type AttributeClient interface {
	GroupVisibility(ctx context.Context, site model.Site) (model.Visibility, error)
}

// AttributeSignal resolves from the owning group's visibility attribute.
type AttributeSignal struct {
	Client AttributeClient
}

func (s *AttributeSignal) Name() string { return "group_attribute" }

func (s *AttributeSignal) Resolve(ctx context.Context, site model.Site) (model.Visibility, error) {
	return s.Client.GroupVisibility(ctx, site)
}

// BannerReader snapshots the visibility label rendered on the page, when no
// programmatic signal is reachable from the calling context.
type BannerReader interface {
	RenderedBanner() string
}

// BannerSignal resolves from the rendered UI label.
type BannerSignal struct {
	Reader BannerReader
}

func (s *BannerSignal) Name() string { return "banner" }

func (s *BannerSignal) Resolve(ctx context.Context, site model.Site) (model.Visibility, error) {
	return ParseLabel(s.Reader.RenderedBanner()), nil
}

// ParseLabel maps a free-text visibility label to a Visibility. Labels
// containing "private" are Private, any other non-blank label is Public,
// blank is Unknown.
func ParseLabel(label string) model.Visibility {
	label = strings.ToLower(strings.TrimSpace(label))
	switch {
	case label == "":
		return model.VisibilityUnknown
	case strings.Contains(label, "private"):
		return model.VisibilityPrivate
	default:
		return model.VisibilityPublic
	}
}

// FromJoinFlags derives visibility from a group's membership-edit and
// request-to-join flags: a group anyone can join is public.
func FromJoinFlags(allowMembershipEdit, allowRequestToJoin bool) model.Visibility {
	if allowMembershipEdit || allowRequestToJoin {
		return model.VisibilityPublic
	}
	return model.VisibilityPrivate
}
