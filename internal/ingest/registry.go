package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/openclaw/forager/internal/archive"
	"github.com/openclaw/forager/internal/config"
	"github.com/openclaw/forager/internal/httpx"
	"github.com/openclaw/forager/internal/metrics"
	"github.com/openclaw/forager/internal/normalize"
)

// registrySearches are the curated package-registry search terms.
var registrySearches = []string{
	"mcp server",
	"model context protocol",
	"ai agent tools",
	"web3 sdk",
}

type registrySearchPage struct {
	Objects []normalize.RegistryResult `json:"objects"`
	Total   int                        `json:"total"`
}

// RegistryAdapter ingests packages from an npm-style registry search API.
type RegistryAdapter struct {
	client *httpx.Client
	sink   EntrySink
	norm   *normalize.Normalizer
	cfg    config.SourceConfig
	arc    archiver
	logger *zap.Logger
}

// NewRegistryAdapter builds the package-registry adapter.
func NewRegistryAdapter(client *httpx.Client, sink EntrySink, cfg config.SourceConfig, blob archive.BlobStore, prefix string, logger *zap.Logger) *RegistryAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistryAdapter{
		client: client,
		sink:   sink,
		norm:   normalize.New(),
		cfg:    cfg,
		arc:    archiver{blob: blob, prefix: prefix, logger: logger},
		logger: logger,
	}
}

// Name implements Adapter.
func (a *RegistryAdapter) Name() string { return "registry" }

// Run pages through each curated search with offset pagination.
func (a *RegistryAdapter) Run(ctx context.Context) (Result, error) {
	var res Result
	started := time.Now()
	defer func() { metrics.ObserveIngestRun(a.Name(), time.Since(started)) }()

	for _, text := range registrySearches {
		if res.Processed >= a.cfg.MaxResults {
			break
		}
		if err := a.runSearch(ctx, text, &res); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			a.logger.Warn("registry search failed",
				zap.String("text", text),
				zap.Error(err))
			res.Errors++
		}
	}
	return res, nil
}

func (a *RegistryAdapter) runSearch(ctx context.Context, text string, res *Result) error {
	for from := 0; res.Processed < a.cfg.MaxResults; from += a.cfg.PageSize {
		u := fmt.Sprintf("%s/-/v1/search?text=%s&size=%d&from=%d",
			a.cfg.BaseURL, url.QueryEscape(text), a.cfg.PageSize, from)

		resp, err := a.client.Get(ctx, u, nil)
		if err != nil {
			return fmt.Errorf("fetch offset %d: %w", from, err)
		}
		a.arc.save(ctx, a.Name(), resp.Body)

		var body registrySearchPage
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			return fmt.Errorf("decode offset %d: %w", from, err)
		}
		if len(body.Objects) == 0 {
			return nil
		}

		for _, obj := range body.Objects {
			if res.Processed >= a.cfg.MaxResults {
				return nil
			}
			a.upsert(ctx, obj, res)
		}
		if len(body.Objects) < a.cfg.PageSize {
			return nil
		}
		if !pause(ctx, time.Duration(a.cfg.DelayMs)*time.Millisecond) {
			return ctx.Err()
		}
	}
	return nil
}

func (a *RegistryAdapter) upsert(ctx context.Context, obj normalize.RegistryResult, res *Result) {
	in, err := a.norm.Registry(obj)
	if err != nil {
		a.logger.Warn("registry record rejected",
			zap.String("package", obj.Package.Name),
			zap.Error(err))
		metrics.ObserveIngestError(a.Name())
		res.Errors++
		return
	}
	if _, _, err := a.sink.UpsertBySourceURL(ctx, in); err != nil {
		a.logger.Warn("registry upsert failed",
			zap.String("package", obj.Package.Name),
			zap.Error(err))
		metrics.ObserveIngestError(a.Name())
		res.Errors++
		return
	}
	metrics.ObserveIngestRecord(a.Name(), "stored")
	res.Processed++
}
