package membership

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"go.uber.org/zap"

	"github.com/probaccess/sitegate/internal/model"
)

// NameReader takes a synchronous snapshot of principal display names
// rendered in a known UI region. The backend owns the polling; the reader
// only reports what is on screen right now.
type NameReader interface {
	RenderedNames() []string
}

// RenderedBackend is the last-resort membership source: scraped display
// names, matched loosely. The member list may render asynchronously after
// page load, so the backend polls the reader for a bounded window
// (attempts × interval) and stops as soon as any names appear.
type RenderedBackend struct {
	reader   NameReader
	attempts uint
	interval time.Duration
	log      *zap.Logger
}

func NewRenderedBackend(reader NameReader, attempts uint, interval time.Duration, log *zap.Logger) *RenderedBackend {
	if attempts == 0 {
		attempts = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RenderedBackend{reader: reader, attempts: attempts, interval: interval, log: log}
}

func (b *RenderedBackend) Name() string { return "rendered" }

// Budget bounds the whole polling window, with slack for the final snapshot.
func (b *RenderedBackend) Budget() time.Duration {
	return time.Duration(b.attempts)*b.interval + time.Second
}

func (b *RenderedBackend) AuthorizedSet(ctx context.Context, site model.Site) (MemberSet, error) {
	var set MemberSet

	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(b.attempts),
		retry.Delay(b.interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)

	err := r.Do(func() error {
		names := b.reader.RenderedNames()
		candidate := NameSet(names)
		if candidate.Size() == 0 {
			return fmt.Errorf("%w: no names rendered yet", ErrNoResult)
		}
		set = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.log.Debug("rendered names captured",
		zap.String("site", site.Slug),
		zap.Int("count", set.Size()))
	return set, nil
}
