package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/openclaw/forager/internal/archive"
	"github.com/openclaw/forager/internal/config"
	"github.com/openclaw/forager/internal/httpx"
	"github.com/openclaw/forager/internal/metrics"
	"github.com/openclaw/forager/internal/normalize"
)

// modelHubSearches are the curated model-hub search terms.
var modelHubSearches = []string{
	"agent tool",
	"mcp",
	"function calling",
}

// ModelHubAdapter ingests models from a model-hub listing API. Records whose
// identifier is an opaque internal hash are rejected by the normalizer and
// counted as errors; the enrichment job re-resolves previously stored ones.
type ModelHubAdapter struct {
	client *httpx.Client
	sink   EntrySink
	norm   *normalize.Normalizer
	cfg    config.SourceConfig
	token  string
	arc    archiver
	logger *zap.Logger
}

// NewModelHubAdapter builds the model-hub adapter.
func NewModelHubAdapter(client *httpx.Client, sink EntrySink, cfg config.SourceConfig, token string, blob archive.BlobStore, prefix string, logger *zap.Logger) *ModelHubAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelHubAdapter{
		client: client,
		sink:   sink,
		norm:   normalize.New(),
		cfg:    cfg,
		token:  token,
		arc:    archiver{blob: blob, prefix: prefix, logger: logger},
		logger: logger,
	}
}

// Name implements Adapter.
func (a *ModelHubAdapter) Name() string { return "modelhub" }

// Run walks each curated search with skip/limit pagination.
func (a *ModelHubAdapter) Run(ctx context.Context) (Result, error) {
	var res Result
	started := time.Now()
	defer func() { metrics.ObserveIngestRun(a.Name(), time.Since(started)) }()

	for _, search := range modelHubSearches {
		if res.Processed >= a.cfg.MaxResults {
			break
		}
		if err := a.runSearch(ctx, search, &res); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			a.logger.Warn("modelhub search failed",
				zap.String("search", search),
				zap.Error(err))
			res.Errors++
		}
	}
	return res, nil
}

func (a *ModelHubAdapter) runSearch(ctx context.Context, search string, res *Result) error {
	for skip := 0; res.Processed < a.cfg.MaxResults; skip += a.cfg.PageSize {
		u := fmt.Sprintf("%s/api/models?search=%s&limit=%d&skip=%d",
			a.cfg.BaseURL, url.QueryEscape(search), a.cfg.PageSize, skip)

		resp, err := a.client.Get(ctx, u, a.header())
		if err != nil {
			return fmt.Errorf("fetch skip %d: %w", skip, err)
		}
		a.arc.save(ctx, a.Name(), resp.Body)

		var records []normalize.ModelHubRecord
		if err := json.Unmarshal(resp.Body, &records); err != nil {
			return fmt.Errorf("decode skip %d: %w", skip, err)
		}
		if len(records) == 0 {
			return nil
		}

		for _, rec := range records {
			if res.Processed >= a.cfg.MaxResults {
				return nil
			}
			a.upsert(ctx, rec, res)
		}
		if len(records) < a.cfg.PageSize {
			return nil
		}
		if !pause(ctx, time.Duration(a.cfg.DelayMs)*time.Millisecond) {
			return ctx.Err()
		}
	}
	return nil
}

func (a *ModelHubAdapter) upsert(ctx context.Context, rec normalize.ModelHubRecord, res *Result) {
	in, err := a.norm.ModelHub(rec)
	if err != nil {
		if errors.Is(err, normalize.ErrOpaqueIdentifier) {
			a.logger.Info("modelhub record has opaque id, skipping",
				zap.String("id", rec.ID))
		} else {
			a.logger.Warn("modelhub record rejected",
				zap.String("id", rec.ID),
				zap.Error(err))
		}
		metrics.ObserveIngestError(a.Name())
		res.Errors++
		return
	}
	if _, _, err := a.sink.UpsertBySourceURL(ctx, in); err != nil {
		a.logger.Warn("modelhub upsert failed",
			zap.String("id", rec.ID),
			zap.Error(err))
		metrics.ObserveIngestError(a.Name())
		res.Errors++
		return
	}
	metrics.ObserveIngestRecord(a.Name(), "stored")
	res.Processed++
}

func (a *ModelHubAdapter) header() http.Header {
	if a.token == "" {
		return nil
	}
	return http.Header{"Authorization": []string{"Bearer " + a.token}}
}
