package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/openclaw/forager/internal/archive"
	"github.com/openclaw/forager/internal/config"
	"github.com/openclaw/forager/internal/httpx"
	"github.com/openclaw/forager/internal/metrics"
	"github.com/openclaw/forager/internal/normalize"
)

type skillFeedPage struct {
	Skills []normalize.SkillRecord `json:"skills"`
	Total  int                     `json:"total"`
}

// SkillsAdapter ingests the OpenClaw skills feed into the skills catalog.
type SkillsAdapter struct {
	client *httpx.Client
	sink   SkillSink
	norm   *normalize.Normalizer
	cfg    config.SourceConfig
	arc    archiver
	logger *zap.Logger
}

// NewSkillsAdapter builds the skills-feed adapter.
func NewSkillsAdapter(client *httpx.Client, sink SkillSink, cfg config.SourceConfig, blob archive.BlobStore, prefix string, logger *zap.Logger) *SkillsAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SkillsAdapter{
		client: client,
		sink:   sink,
		norm:   normalize.New(),
		cfg:    cfg,
		arc:    archiver{blob: blob, prefix: prefix, logger: logger},
		logger: logger,
	}
}

// Name implements Adapter.
func (a *SkillsAdapter) Name() string { return "skills" }

// Run pages through the feed with page-number pagination.
func (a *SkillsAdapter) Run(ctx context.Context) (Result, error) {
	var res Result
	started := time.Now()
	defer func() { metrics.ObserveIngestRun(a.Name(), time.Since(started)) }()

	for page := 1; res.Processed < a.cfg.MaxResults; page++ {
		u := fmt.Sprintf("%s/api/skills?page=%d&per_page=%d", a.cfg.BaseURL, page, a.cfg.PageSize)

		resp, err := a.client.Get(ctx, u, nil)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			a.logger.Warn("skills page failed",
				zap.Int("page", page),
				zap.Error(err))
			res.Errors++
			return res, nil
		}
		a.arc.save(ctx, a.Name(), resp.Body)

		var body skillFeedPage
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			a.logger.Warn("skills page decode failed",
				zap.Int("page", page),
				zap.Error(err))
			res.Errors++
			return res, nil
		}
		if len(body.Skills) == 0 {
			return res, nil
		}

		for _, rec := range body.Skills {
			if res.Processed >= a.cfg.MaxResults {
				return res, nil
			}
			a.upsert(ctx, rec, &res)
		}
		if len(body.Skills) < a.cfg.PageSize {
			return res, nil
		}
		if !pause(ctx, time.Duration(a.cfg.DelayMs)*time.Millisecond) {
			return res, ctx.Err()
		}
	}
	return res, nil
}

func (a *SkillsAdapter) upsert(ctx context.Context, rec normalize.SkillRecord, res *Result) {
	in, err := a.norm.Skill(rec)
	if err != nil {
		a.logger.Warn("skill record rejected",
			zap.String("name", rec.Name),
			zap.Error(err))
		metrics.ObserveIngestError(a.Name())
		res.Errors++
		return
	}
	if _, _, err := a.sink.UpsertBySourceURL(ctx, in); err != nil {
		a.logger.Warn("skill upsert failed",
			zap.String("name", rec.Name),
			zap.Error(err))
		metrics.ObserveIngestError(a.Name())
		res.Errors++
		return
	}
	metrics.ObserveIngestRecord(a.Name(), "stored")
	res.Processed++
}
