// Package gate assembles the decision pipeline from configuration: the
// classifier, the exemption list, the visibility signal chain, and the
// membership backend chain, in their fixed precedence order.
package gate

import (
	"go.uber.org/zap"

	"github.com/probaccess/sitegate/internal/backends"
	"github.com/probaccess/sitegate/internal/classify"
	"github.com/probaccess/sitegate/internal/config"
	"github.com/probaccess/sitegate/internal/engine"
	"github.com/probaccess/sitegate/internal/membership"
	"github.com/probaccess/sitegate/internal/visibility"
)

// Options carries the host-supplied collaborators that only exist in a live
// page context. Both are optional; without them the corresponding fallback
// stages are simply absent from the chains.
type Options struct {
	// Names snapshots rendered principal display names for the last-resort
	// membership backend.
	Names membership.NameReader
	// Banner snapshots the rendered visibility label.
	Banner visibility.BannerReader
	Logger *zap.Logger
}

// Gate is the assembled decision pipeline.
type Gate struct {
	Engine  *engine.Engine
	Exempt  *classify.ExemptList
	SafeURL string
}

// New builds a Gate from configuration. Backend stages whose endpoints are
// not configured are left out of their chains; the resolvers' fail-closed
// behavior covers the rest.
func New(cfg *config.Config, opts Options) *Gate {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	classifier := classify.New(cfg.SensitiveSegments, cfg.MetadataMarker)
	exempt := classify.NewExemptList(cfg.ExemptPaths)

	timeout := cfg.Backends.Timeout.Std()
	retries := cfg.Backends.Retries

	var signals []visibility.Signal
	var members []membership.Backend

	if cfg.Backends.DirectoryURL != "" {
		dir := backends.NewDirectory(cfg.Backends.DirectoryURL, timeout, retries, log)
		signals = append(signals, &visibility.RecordSignal{Client: dir})
		members = append(members, membership.NewDirectoryBackend(dir, cfg.Roles, timeout, log))
	}
	if cfg.Backends.GraphURL != "" {
		graph := backends.NewGraph(cfg.Backends.GraphURL, timeout, retries, log)
		signals = append(signals, &visibility.AttributeSignal{Client: graph})
		members = append(members, membership.NewFederatedBackend(graph, timeout, log))
	}
	if opts.Banner != nil {
		signals = append(signals, &visibility.BannerSignal{Reader: opts.Banner})
	}
	if opts.Names != nil {
		members = append(members, membership.NewRenderedBackend(
			opts.Names, cfg.Poll.Attempts, cfg.Poll.Interval.Std(), log))
	}

	eng := engine.New(
		classifier,
		exempt,
		visibility.NewResolver(log, timeout, signals...),
		membership.NewResolver(log, members...),
		log,
	)

	return &Gate{Engine: eng, Exempt: exempt, SafeURL: cfg.SafeURL}
}
