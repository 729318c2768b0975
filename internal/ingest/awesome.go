package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/openclaw/forager/internal/archive"
	"github.com/openclaw/forager/internal/config"
	"github.com/openclaw/forager/internal/httpx"
	"github.com/openclaw/forager/internal/metrics"
	"github.com/openclaw/forager/internal/normalize"
)

// defaultAwesomeLists are the curated markdown lists walked when none are
// configured explicitly.
var defaultAwesomeLists = []string{
	"https://raw.githubusercontent.com/punkpeye/awesome-mcp-servers/main/README.md",
	"https://raw.githubusercontent.com/e2b-dev/awesome-ai-agents/main/README.md",
}

// AwesomeAdapter ingests curated awesome-list markdown files. Entries that
// survive a human-curated list start out verified.
type AwesomeAdapter struct {
	client *httpx.Client
	sink   EntrySink
	norm   *normalize.Normalizer
	cfg    config.SourceConfig
	lists  []string
	arc    archiver
	logger *zap.Logger
}

// NewAwesomeAdapter builds the awesome-list adapter. Empty lists falls back
// to the curated defaults.
func NewAwesomeAdapter(client *httpx.Client, sink EntrySink, cfg config.SourceConfig, lists []string, blob archive.BlobStore, prefix string, logger *zap.Logger) *AwesomeAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(lists) == 0 {
		lists = defaultAwesomeLists
	}
	return &AwesomeAdapter{
		client: client,
		sink:   sink,
		norm:   normalize.New(),
		cfg:    cfg,
		lists:  lists,
		arc:    archiver{blob: blob, prefix: prefix, logger: logger},
		logger: logger,
	}
}

// Name implements Adapter.
func (a *AwesomeAdapter) Name() string { return "awesome" }

// Run fetches each list, parses its link items, and upserts them.
func (a *AwesomeAdapter) Run(ctx context.Context) (Result, error) {
	var res Result
	started := time.Now()
	defer func() { metrics.ObserveIngestRun(a.Name(), time.Since(started)) }()

	for i, list := range a.lists {
		if res.Processed >= a.cfg.MaxResults {
			break
		}
		if err := a.runList(ctx, list, &res); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			a.logger.Warn("awesome list failed",
				zap.String("list", list),
				zap.Error(err))
			res.Errors++
		}
		if i < len(a.lists)-1 && !pause(ctx, time.Duration(a.cfg.DelayMs)*time.Millisecond) {
			return res, ctx.Err()
		}
	}
	return res, nil
}

func (a *AwesomeAdapter) runList(ctx context.Context, list string, res *Result) error {
	resp, err := a.client.Get(ctx, list, nil)
	if err != nil {
		return fmt.Errorf("fetch list: %w", err)
	}
	a.arc.save(ctx, a.Name(), resp.Body)

	items := normalize.ParseAwesomeMarkdown(string(resp.Body))
	for _, item := range items {
		if res.Processed >= a.cfg.MaxResults {
			return nil
		}
		in, err := a.norm.Awesome(item)
		if err != nil {
			a.logger.Warn("awesome item rejected",
				zap.String("name", item.Name),
				zap.Error(err))
			metrics.ObserveIngestError(a.Name())
			res.Errors++
			continue
		}
		if _, _, err := a.sink.UpsertBySourceURL(ctx, in); err != nil {
			a.logger.Warn("awesome upsert failed",
				zap.String("name", item.Name),
				zap.Error(err))
			metrics.ObserveIngestError(a.Name())
			res.Errors++
			continue
		}
		metrics.ObserveIngestRecord(a.Name(), "stored")
		res.Processed++
	}
	return nil
}
