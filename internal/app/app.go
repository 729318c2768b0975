// Package app wires configuration into the services every command uses.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/openclaw/forager/internal/archive"
	archivegcs "github.com/openclaw/forager/internal/archive/gcs"
	archivelocal "github.com/openclaw/forager/internal/archive/local"
	archivememory "github.com/openclaw/forager/internal/archive/memory"
	"github.com/openclaw/forager/internal/clicks"
	"github.com/openclaw/forager/internal/config"
	"github.com/openclaw/forager/internal/events"
	eventspubsub "github.com/openclaw/forager/internal/events/pubsub"
	"github.com/openclaw/forager/internal/httpx"
	"github.com/openclaw/forager/internal/ingest"
	"github.com/openclaw/forager/internal/logging"
	"github.com/openclaw/forager/internal/metrics"
	"github.com/openclaw/forager/internal/service"
	"github.com/openclaw/forager/internal/store"
	storememory "github.com/openclaw/forager/internal/store/memory"
	storepostgres "github.com/openclaw/forager/internal/store/postgres"
	"github.com/openclaw/forager/internal/vector"
	vectormemory "github.com/openclaw/forager/internal/vector/memory"
)

// App holds the wired application services. Build it once per command with
// New and release resources with Close.
type App struct {
	Cfg       config.Config
	Logger    *zap.Logger
	Client    *httpx.Client
	Entries   store.CatalogStore
	Skills    store.SkillStore
	Catalog   *service.CatalogService
	SkillSvc  *service.SkillService
	Retrieval *service.RetrievalService
	Tracker   *clicks.Tracker
	Publisher events.Publisher
	Blob      archive.BlobStore

	pool      closer
	rdb       *redis.Client
	pubsubPub *eventspubsub.Publisher
}

type closer interface{ Close() }

// New loads configuration and wires every service.
func New(ctx context.Context, cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	metrics.Init()

	a := &App{Cfg: cfg, Logger: logger}
	a.Client = httpx.New(httpx.RetryPolicy{
		MaxAttempts: cfg.HTTP.MaxAttempts,
		BaseDelay:   clampMs(cfg.HTTP.BaseDelayMs),
		MaxDelay:    clampMs(cfg.HTTP.MaxDelayMs),
		Timeout:     cfg.HTTP.ClientTimeout(),
	}, logger, httpx.WithUserAgent(cfg.HTTP.UserAgent))

	if err := a.wireStores(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.wirePublisher(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.wireArchive(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.wireClicks()
	a.wireServices()
	return a, nil
}

// Close releases pooled resources. Safe on a partially built App.
func (a *App) Close() {
	if a.pubsubPub != nil {
		a.pubsubPub.Stop()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}

func (a *App) wireStores(ctx context.Context) error {
	if a.Cfg.DB.DSN == "" {
		a.Logger.Warn("db.dsn not set, using in-memory stores")
		a.Entries = storememory.NewCatalogStore()
		a.Skills = storememory.NewSkillStore()
		return nil
	}

	pool, err := storepostgres.NewPool(ctx, storepostgres.Config{
		DSN:      a.Cfg.DB.DSN,
		MaxConns: a.Cfg.DB.MaxConns,
		MinConns: a.Cfg.DB.MinConns,
	})
	if err != nil {
		return err
	}
	a.pool = pool

	entries, err := storepostgres.NewCatalogStore(pool, a.Cfg.DB.CatalogTable)
	if err != nil {
		return err
	}
	skills, err := storepostgres.NewSkillStore(pool, a.Cfg.DB.SkillsTable)
	if err != nil {
		return err
	}
	if err := entries.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure catalog schema: %w", err)
	}
	if err := skills.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure skills schema: %w", err)
	}
	a.Entries = entries
	a.Skills = skills
	return nil
}

func (a *App) wirePublisher(ctx context.Context) error {
	if !a.Cfg.PubSub.Enabled {
		a.Publisher = events.Noop{}
		return nil
	}
	pub, err := eventspubsub.New(ctx, a.Cfg.PubSub.ProjectID, a.Cfg.PubSub.TopicName)
	if err != nil {
		return fmt.Errorf("build pubsub publisher: %w", err)
	}
	a.pubsubPub = pub
	a.Publisher = pub
	return nil
}

func (a *App) wireArchive(ctx context.Context) error {
	switch a.Cfg.Archive.Backend {
	case "", "none":
		a.Blob = nil
	case "memory":
		a.Blob = archivememory.NewBlobStore()
	case "local":
		blob, err := archivelocal.NewBlobStore(a.Cfg.Archive.LocalPath)
		if err != nil {
			return err
		}
		a.Blob = blob
	case "gcs":
		blob, err := archivegcs.NewBlobStore(ctx, a.Cfg.Archive.GCSBucket)
		if err != nil {
			return err
		}
		a.Blob = blob
	default:
		return fmt.Errorf("unknown archive backend %q", a.Cfg.Archive.Backend)
	}
	return nil
}

func (a *App) wireClicks() {
	if !a.Cfg.Redis.Enabled {
		a.Tracker = clicks.New(nil, a.Logger)
		return
	}
	a.rdb = redis.NewClient(&redis.Options{
		Addr:     a.Cfg.Redis.Addr,
		Password: a.Cfg.Redis.Password,
		DB:       a.Cfg.Redis.DB,
	})
	a.Tracker = clicks.New(a.rdb, a.Logger)
}

func (a *App) wireServices() {
	catalogOpts := []service.CatalogOption{service.WithPublisher(a.Publisher)}
	retrievalOpts := []service.RetrievalOption{}

	if a.Cfg.Search.VectorEnabled {
		var idx vector.Index = vectormemory.NewIndex()
		emb := vector.NewHTTPEmbedder(a.Client, a.Cfg.Search.EmbedURL, a.Cfg.Search.EmbedModel, a.Cfg.Search.EmbedAPIKey)
		catalogOpts = append(catalogOpts, service.WithVector(idx, emb))
		retrievalOpts = append(retrievalOpts, service.WithSemantic(idx, emb))
	}
	if a.Cfg.Search.IntentURL != "" {
		extractor := service.NewHTTPIntentExtractor(a.Client, a.Cfg.Search.IntentURL, a.Cfg.Search.IntentAPIKey)
		retrievalOpts = append(retrievalOpts, service.WithIntentExtractor(extractor))
	}

	a.Catalog = service.NewCatalogService(a.Entries, a.Logger, catalogOpts...)
	a.SkillSvc = service.NewSkillService(a.Skills, a.Publisher, a.Logger)
	a.Retrieval = service.NewRetrievalService(a.Entries, a.Skills, a.Logger, retrievalOpts...)
}

// Adapters builds the ingest adapters for the requested source names; an
// empty list selects every enabled source.
func (a *App) Adapters(names []string) []ingest.Adapter {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	selected := func(name string, enabled bool) bool {
		if len(want) > 0 {
			return want[name]
		}
		return enabled
	}

	prefix := a.Cfg.Archive.Prefix
	var adapters []ingest.Adapter
	if selected("github", a.Cfg.Sources.GitHub.Enabled) {
		adapters = append(adapters, ingest.NewGitHubAdapter(
			a.Client, a.Catalog, a.Cfg.Sources.GitHub, a.Cfg.HTTP.GitHubToken, a.Blob, prefix, a.Logger))
	}
	if selected("registry", a.Cfg.Sources.Registry.Enabled) {
		adapters = append(adapters, ingest.NewRegistryAdapter(
			a.Client, a.Catalog, a.Cfg.Sources.Registry, a.Blob, prefix, a.Logger))
	}
	if selected("modelhub", a.Cfg.Sources.ModelHub.Enabled) {
		adapters = append(adapters, ingest.NewModelHubAdapter(
			a.Client, a.Catalog, a.Cfg.Sources.ModelHub, a.Cfg.HTTP.ModelHubToken, a.Blob, prefix, a.Logger))
	}
	if selected("awesome", a.Cfg.Sources.Awesome.Enabled) {
		adapters = append(adapters, ingest.NewAwesomeAdapter(
			a.Client, a.Catalog, a.Cfg.Sources.Awesome, nil, a.Blob, prefix, a.Logger))
	}
	if selected("trending", a.Cfg.Sources.Trending.Enabled) {
		adapters = append(adapters, ingest.NewTrendingAdapter(
			a.Catalog, a.Cfg.Sources.Trending, a.Cfg.HTTP.UserAgent, a.Blob, prefix, a.Logger))
	}
	if selected("vectordir", a.Cfg.Sources.VectorDir.Enabled) {
		adapters = append(adapters, ingest.NewVectorDirAdapter(
			a.Client, a.Catalog, a.Cfg.Sources.VectorDir, a.Cfg.HTTP.VectorDirToken, a.Blob, prefix, a.Logger))
	}
	if selected("skills", a.Cfg.Sources.Skills.Enabled) {
		adapters = append(adapters, ingest.NewSkillsAdapter(
			a.Client, a.SkillSvc, a.Cfg.Sources.Skills, a.Blob, prefix, a.Logger))
	}
	return adapters
}

func clampMs(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
