package ingest

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Orchestrator runs every adapter concurrently, one goroutine per source.
// Each adapter is internally sequential; a slow or failing source never
// blocks the others.
type Orchestrator struct {
	adapters []Adapter
	logger   *zap.Logger
}

// NewOrchestrator builds an orchestrator over the given adapters.
func NewOrchestrator(logger *zap.Logger, adapters ...Adapter) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{adapters: adapters, logger: logger}
}

// Run executes all adapters and aggregates per-source results. Adapter
// failures are logged and reported as zero-result runs; Run itself fails
// only on context cancellation.
func (o *Orchestrator) Run(ctx context.Context) (map[string]Result, error) {
	results := make(map[string]Result, len(o.adapters))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, adapter := range o.adapters {
		g.Go(func() error {
			started := time.Now()
			res, err := adapter.Run(gctx)
			if err != nil {
				o.logger.Error("adapter run failed",
					zap.String("source", adapter.Name()),
					zap.Duration("elapsed", time.Since(started)),
					zap.Error(err))
				res = Result{}
			} else {
				o.logger.Info("adapter run finished",
					zap.String("source", adapter.Name()),
					zap.Int("processed", res.Processed),
					zap.Int("errors", res.Errors),
					zap.Duration("elapsed", time.Since(started)))
			}
			mu.Lock()
			results[adapter.Name()] = res
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
