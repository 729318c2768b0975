package ingest

import (
	"context"
	"encoding/json"
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

// githubQueries are the curated repository searches one run walks through.
var githubQueries = []string{
	"topic:mcp-server",
	"topic:model-context-protocol",
	"topic:ai-agent topic:tools",
	"topic:web3 topic:ai",
	"topic:defi topic:tooling",
}

type githubSearchPage struct {
	TotalCount int                    `json:"total_count"`
	Items      []normalize.GitHubRepo `json:"items"`
}

// GitHubAdapter ingests repositories from the GitHub search API.
type GitHubAdapter struct {
	client *httpx.Client
	sink   EntrySink
	norm   *normalize.Normalizer
	cfg    config.SourceConfig
	token  string
	arc    archiver
	logger *zap.Logger
}

// NewGitHubAdapter builds the GitHub search adapter.
func NewGitHubAdapter(client *httpx.Client, sink EntrySink, cfg config.SourceConfig, token string, blob archive.BlobStore, prefix string, logger *zap.Logger) *GitHubAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitHubAdapter{
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
func (a *GitHubAdapter) Name() string { return "github" }

// Run walks each curated query page by page until the per-run cap.
func (a *GitHubAdapter) Run(ctx context.Context) (Result, error) {
	var res Result
	started := time.Now()
	defer func() { metrics.ObserveIngestRun(a.Name(), time.Since(started)) }()

	for _, query := range githubQueries {
		if res.Processed >= a.cfg.MaxResults {
			break
		}
		if err := a.runQuery(ctx, query, &res); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			// One failing query is an operational event, not a batch failure.
			a.logger.Warn("github query failed",
				zap.String("query", query),
				zap.Error(err))
			res.Errors++
		}
	}
	return res, nil
}

func (a *GitHubAdapter) runQuery(ctx context.Context, query string, res *Result) error {
	for page := 1; res.Processed < a.cfg.MaxResults; page++ {
		u := fmt.Sprintf("%s/search/repositories?q=%s&sort=stars&per_page=%d&page=%d",
			a.cfg.BaseURL, url.QueryEscape(query), a.cfg.PageSize, page)

		resp, err := a.client.Get(ctx, u, a.header())
		if err != nil {
			return fmt.Errorf("fetch page %d: %w", page, err)
		}
		a.arc.save(ctx, a.Name(), resp.Body)

		var body githubSearchPage
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			return fmt.Errorf("decode page %d: %w", page, err)
		}
		if len(body.Items) == 0 {
			return nil
		}

		for _, repo := range body.Items {
			if res.Processed >= a.cfg.MaxResults {
				return nil
			}
			a.upsert(ctx, repo, res)
		}
		if len(body.Items) < a.cfg.PageSize {
			return nil
		}
		if !pause(ctx, time.Duration(a.cfg.DelayMs)*time.Millisecond) {
			return ctx.Err()
		}
	}
	return nil
}

func (a *GitHubAdapter) upsert(ctx context.Context, repo normalize.GitHubRepo, res *Result) {
	in, err := a.norm.GitHub(repo)
	if err != nil {
		a.logger.Warn("github record rejected",
			zap.String("repo", repo.FullName),
			zap.Error(err))
		metrics.ObserveIngestError(a.Name())
		res.Errors++
		return
	}
	if _, _, err := a.sink.UpsertBySourceURL(ctx, in); err != nil {
		a.logger.Warn("github upsert failed",
			zap.String("repo", repo.FullName),
			zap.Error(err))
		metrics.ObserveIngestError(a.Name())
		res.Errors++
		return
	}
	metrics.ObserveIngestRecord(a.Name(), "stored")
	res.Processed++
}

func (a *GitHubAdapter) header() http.Header {
	h := http.Header{"Accept": []string{"application/vnd.github+json"}}
	if a.token != "" {
		h.Set("Authorization", "Bearer "+a.token)
	}
	return h
}
