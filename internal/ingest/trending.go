package ingest

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/openclaw/forager/internal/archive"
	"github.com/openclaw/forager/internal/config"
	"github.com/openclaw/forager/internal/metrics"
	"github.com/openclaw/forager/internal/normalize"
)

// TrendingAdapter scrapes an HTML trending page. Markup drifts, so extraction
// locates repeating block boundaries first and applies independent field
// extractors inside each block: a missing description or star count degrades
// to a zero value, and only a missing item link drops the block.
type TrendingAdapter struct {
	sink      EntrySink
	norm      *normalize.Normalizer
	cfg       config.SourceConfig
	userAgent string
	arc       archiver
	logger    *zap.Logger
}

// NewTrendingAdapter builds the trending-page scraper.
func NewTrendingAdapter(sink EntrySink, cfg config.SourceConfig, userAgent string, blob archive.BlobStore, prefix string, logger *zap.Logger) *TrendingAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrendingAdapter{
		sink:      sink,
		norm:      normalize.New(),
		cfg:       cfg,
		userAgent: userAgent,
		arc:       archiver{blob: blob, prefix: prefix, logger: logger},
		logger:    logger,
	}
}

// Name implements Adapter.
func (a *TrendingAdapter) Name() string { return "trending" }

// Run scrapes the configured page, retrying with a secondary selector set
// when the primary one matches nothing.
func (a *TrendingAdapter) Run(ctx context.Context) (Result, error) {
	var res Result
	started := time.Now()
	defer func() { metrics.ObserveIngestRun(a.Name(), time.Since(started)) }()

	records, rawBody, err := a.scrape(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		a.logger.Warn("trending scrape failed", zap.Error(err))
		// Structural drift or a dead page: the orchestrator proceeds with
		// the other sources.
		return Result{}, nil
	}
	a.arc.save(ctx, a.Name(), rawBody)

	if len(records) == 0 && len(rawBody) > 0 {
		records = a.secondaryExtract(rawBody)
		if len(records) > 0 {
			a.logger.Info("trending primary selectors matched nothing, secondary extraction used",
				zap.Int("records", len(records)))
		}
	}

	for _, rec := range records {
		if res.Processed >= a.cfg.MaxResults {
			break
		}
		a.upsert(ctx, rec, &res)
	}
	return res, nil
}

func (a *TrendingAdapter) scrape(ctx context.Context) ([]normalize.TrendingRepo, []byte, error) {
	var (
		records  []normalize.TrendingRepo
		rawBody  []byte
		fetchErr error
	)

	c := colly.NewCollector(colly.UserAgent(a.userAgent))
	c.Context = ctx

	c.OnResponse(func(r *colly.Response) {
		rawBody = r.Body
	})
	c.OnHTML("article.Box-row", func(e *colly.HTMLElement) {
		link := ""
		if href := e.ChildAttr("h2 a", "href"); href != "" {
			link = e.Request.AbsoluteURL(href)
		}
		rec := normalize.TrendingRepo{
			FullName:    squashSpace(e.ChildText("h2 a")),
			Link:        link,
			Description: strings.TrimSpace(e.ChildText("p")),
			Language:    strings.TrimSpace(e.ChildText(`span[itemprop="programmingLanguage"]`)),
			Stars:       parseStarCount(e.ChildText(`a[href$="/stargazers"]`)),
		}
		records = append(records, rec)
	})
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(a.cfg.BaseURL); err != nil {
		return nil, nil, fmt.Errorf("visit trending page: %w", err)
	}
	c.Wait()
	if fetchErr != nil {
		return nil, rawBody, fmt.Errorf("fetch trending page: %w", fetchErr)
	}
	return records, rawBody, nil
}

// secondaryExtract is the drift fallback: a looser goquery pass over generic
// list markup.
func (a *TrendingAdapter) secondaryExtract(rawBody []byte) []normalize.TrendingRepo {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawBody))
	if err != nil {
		a.logger.Warn("trending secondary parse failed", zap.Error(err))
		return nil
	}

	var records []normalize.TrendingRepo
	doc.Find("li.repo-item, .repo-list li, article").Each(func(_ int, s *goquery.Selection) {
		link := s.Find("a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		if strings.HasPrefix(href, "/") {
			href = strings.TrimSuffix(a.cfg.BaseURL, "/trending") + href
		}
		records = append(records, normalize.TrendingRepo{
			FullName:    squashSpace(link.Text()),
			Link:        href,
			Description: strings.TrimSpace(s.Find("p").First().Text()),
			Language:    strings.TrimSpace(s.Find(`[itemprop="programmingLanguage"]`).First().Text()),
			Stars:       parseStarCount(s.Find(`a[href$="/stargazers"]`).First().Text()),
		})
	})
	return records
}

func (a *TrendingAdapter) upsert(ctx context.Context, rec normalize.TrendingRepo, res *Result) {
	in, err := a.norm.Trending(rec)
	if err != nil {
		a.logger.Warn("trending block rejected", zap.Error(err))
		metrics.ObserveIngestError(a.Name())
		res.Errors++
		return
	}
	if _, _, err := a.sink.UpsertBySourceURL(ctx, in); err != nil {
		a.logger.Warn("trending upsert failed",
			zap.String("name", rec.FullName),
			zap.Error(err))
		metrics.ObserveIngestError(a.Name())
		res.Errors++
		return
	}
	metrics.ObserveIngestRecord(a.Name(), "stored")
	res.Processed++
}

// squashSpace collapses the whitespace runs trending markup puts inside
// "owner / name" headings.
func squashSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseStarCount reads counts like "12,345" from star links; anything
// unparseable degrades to zero.
func parseStarCount(text string) int {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	if text == "" {
		return 0
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0
	}
	return n
}
