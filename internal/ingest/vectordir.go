package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/openclaw/forager/internal/archive"
	"github.com/openclaw/forager/internal/config"
	"github.com/openclaw/forager/internal/httpx"
	"github.com/openclaw/forager/internal/metrics"
	"github.com/openclaw/forager/internal/normalize"
)

// vectorDirQueries drive the vector-search directory: it returns nothing
// without a query term, so a curated topic list is run sequentially.
var vectorDirQueries = []string{
	"mcp server",
	"ai agent framework",
	"defi analytics",
	"web3 wallet tooling",
	"developer productivity",
}

type vectorDirPage struct {
	Results []normalize.VectorDirResult `json:"results"`
}

// VectorDirAdapter ingests a vector-search-backed directory. The same item
// can surface under several queries, so results are de-duplicated by the
// provider-assigned id across the whole run.
type VectorDirAdapter struct {
	client *httpx.Client
	sink   EntrySink
	norm   *normalize.Normalizer
	cfg    config.SourceConfig
	token  string
	arc    archiver
	logger *zap.Logger
}

// NewVectorDirAdapter builds the vector-directory adapter.
func NewVectorDirAdapter(client *httpx.Client, sink EntrySink, cfg config.SourceConfig, token string, blob archive.BlobStore, prefix string, logger *zap.Logger) *VectorDirAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VectorDirAdapter{
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
func (a *VectorDirAdapter) Name() string { return "vectordir" }

// Run issues each curated query and upserts previously unseen results.
func (a *VectorDirAdapter) Run(ctx context.Context) (Result, error) {
	var res Result
	started := time.Now()
	defer func() { metrics.ObserveIngestRun(a.Name(), time.Since(started)) }()

	seen := make(map[string]struct{})
	for i, query := range vectorDirQueries {
		if res.Processed >= a.cfg.MaxResults {
			break
		}
		if err := a.runQuery(ctx, query, seen, &res); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			a.logger.Warn("vectordir query failed",
				zap.String("query", query),
				zap.Error(err))
			res.Errors++
		}
		if i < len(vectorDirQueries)-1 && !pause(ctx, time.Duration(a.cfg.DelayMs)*time.Millisecond) {
			return res, ctx.Err()
		}
	}
	return res, nil
}

func (a *VectorDirAdapter) runQuery(ctx context.Context, query string, seen map[string]struct{}, res *Result) error {
	payload, err := json.Marshal(map[string]any{
		"query": query,
		"limit": a.cfg.PageSize,
	})
	if err != nil {
		return fmt.Errorf("marshal query: %w", err)
	}
	header := http.Header{"Content-Type": []string{"application/json"}}
	if a.token != "" {
		header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(ctx, http.MethodPost, a.cfg.BaseURL+"/query", header, payload)
	if err != nil {
		return fmt.Errorf("query %q: %w", query, err)
	}
	a.arc.save(ctx, a.Name(), resp.Body)

	var body vectorDirPage
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return fmt.Errorf("decode query %q: %w", query, err)
	}

	for _, r := range body.Results {
		if res.Processed >= a.cfg.MaxResults {
			return nil
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		a.upsert(ctx, r, res)
	}
	return nil
}

func (a *VectorDirAdapter) upsert(ctx context.Context, r normalize.VectorDirResult, res *Result) {
	in, err := a.norm.VectorDir(r)
	if err != nil {
		a.logger.Warn("vectordir record rejected",
			zap.String("id", r.ID),
			zap.Error(err))
		metrics.ObserveIngestError(a.Name())
		res.Errors++
		return
	}
	if _, _, err := a.sink.UpsertBySourceURL(ctx, in); err != nil {
		a.logger.Warn("vectordir upsert failed",
			zap.String("id", r.ID),
			zap.Error(err))
		metrics.ObserveIngestError(a.Name())
		res.Errors++
		return
	}
	metrics.ObserveIngestRecord(a.Name(), "stored")
	res.Processed++
}
