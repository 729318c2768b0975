// Package audit implements the periodic dead-link sweep. It is the only
// writer allowed to flip an entry's dead flag.
package audit

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/openclaw/forager/internal/metrics"
	"github.com/openclaw/forager/internal/store"
)

const (
	batchSize        = 200
	progressInterval = 50
)

// Prober issues a single existence probe. Probes are never retried: a
// transient failure must read as inconclusive, not be retried into a verdict.
type Prober interface {
	Head(ctx context.Context, url string, timeout time.Duration) (int, error)
}

// Marker flips the dead flag without touching any curated field.
type Marker interface {
	MarkDeadLink(ctx context.Context, id string, dead bool) error
}

// Summary counts one sweep.
type Summary struct {
	Probed       int
	MarkedDead   int
	Revived      int
	Inconclusive int
}

// Auditor sweeps every stored entry and probes its source URL. Only a
// definitive 404/410 marks an entry dead; 403, 405, 5xx, timeouts, and
// transport errors commonly reflect bot defenses or transient trouble and
// leave the entry alive.
type Auditor struct {
	entries store.CatalogStore
	marker  Marker
	probe   Prober
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

// New builds an auditor probing at most probesPerSecond.
func New(entries store.CatalogStore, marker Marker, probe Prober, probesPerSecond float64, timeout time.Duration, logger *zap.Logger) *Auditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auditor{
		entries: entries,
		marker:  marker,
		probe:   probe,
		limiter: rate.NewLimiter(rate.Limit(probesPerSecond), 1),
		timeout: timeout,
		logger:  logger,
	}
}

// Run probes every entry, dead and opaque rows included, and returns sweep
// counts. It stops early only on context cancellation.
func (a *Auditor) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	filter := store.EntryFilter{IncludeDead: true, IncludeOpaque: true}

	for offset := 0; ; offset += batchSize {
		batch, err := a.entries.List(ctx, filter, store.OrderByRecency, store.Page{Limit: batchSize, Offset: offset})
		if err != nil {
			return sum, err
		}
		if len(batch) == 0 {
			break
		}
		for _, e := range batch {
			if err := a.limiter.Wait(ctx); err != nil {
				return sum, err
			}
			a.probeOne(ctx, e.ID, e.SourceURL, e.DeadLink, &sum)
			if sum.Probed%progressInterval == 0 {
				a.logger.Info("audit sweep progress",
					zap.Int("probed", sum.Probed),
					zap.Int("dead", sum.MarkedDead),
					zap.Int("inconclusive", sum.Inconclusive))
			}
		}
		if len(batch) < batchSize {
			break
		}
	}

	a.logger.Info("audit sweep finished",
		zap.Int("probed", sum.Probed),
		zap.Int("dead", sum.MarkedDead),
		zap.Int("revived", sum.Revived),
		zap.Int("inconclusive", sum.Inconclusive))
	return sum, ctx.Err()
}

func (a *Auditor) probeOne(ctx context.Context, id, url string, wasDead bool, sum *Summary) {
	sum.Probed++
	status, err := a.probe.Head(ctx, url, a.timeout)
	if err != nil {
		metrics.ObserveAuditProbe("inconclusive")
		sum.Inconclusive++
		a.logger.Debug("probe inconclusive", zap.String("url", url), zap.Error(err))
		return
	}

	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		metrics.ObserveAuditProbe("dead")
		if !wasDead {
			if err := a.marker.MarkDeadLink(ctx, id, true); err != nil {
				a.logger.Warn("mark dead failed", zap.String("id", id), zap.Error(err))
				return
			}
			metrics.ObserveDeadLink()
		}
		sum.MarkedDead++
	case status >= 200 && status < 400:
		metrics.ObserveAuditProbe("alive")
		if wasDead {
			if err := a.marker.MarkDeadLink(ctx, id, false); err != nil {
				a.logger.Warn("mark alive failed", zap.String("id", id), zap.Error(err))
				return
			}
			sum.Revived++
		}
	default:
		// 403, 405, 429, 5xx: bot defenses and transient trouble, not proof
		// of removal.
		metrics.ObserveAuditProbe("inconclusive")
		sum.Inconclusive++
	}
}
