// Package enrich re-resolves stored entries whose name is still an opaque
// provider hash. The model hub exposes the same identifier space across
// three endpoint families, so each hash is retried as a model, a space, and
// a dataset in that order.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/openclaw/forager/internal/catalog"
	"github.com/openclaw/forager/internal/httpx"
	"github.com/openclaw/forager/internal/normalize"
	"github.com/openclaw/forager/internal/store"
)

const scanLimit = 500

// endpointKinds are tried in order for each opaque hash.
var endpointKinds = []string{"models", "spaces", "datasets"}

// Updater is the slice of the catalog service the resolver writes through.
type Updater interface {
	Update(ctx context.Context, id string, in catalog.EntryInput) (catalog.Entry, error)
	MarkDeadLink(ctx context.Context, id string, dead bool) error
}

// Summary counts one resolver run.
type Summary struct {
	Scanned    int
	Resolved   int
	MarkedDead int
	Ambiguous  int
}

// Resolver re-queries the hub for every opaque-named entry. A first hit on
// any endpoint replaces the record; three definitive 404s mark it dead; any
// other outcome leaves the row untouched for a later run.
type Resolver struct {
	entries store.CatalogStore
	updater Updater
	client  *httpx.Client
	norm    *normalize.Normalizer
	baseURL string
	token   string
	delay   time.Duration
	logger  *zap.Logger
}

// New builds a resolver against the given hub base URL.
func New(entries store.CatalogStore, updater Updater, client *httpx.Client, baseURL, token string, delay time.Duration, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		entries: entries,
		updater: updater,
		client:  client,
		norm:    normalize.New(),
		baseURL: baseURL,
		token:   token,
		delay:   delay,
		logger:  logger,
	}
}

// Run resolves every stored opaque-named entry.
func (r *Resolver) Run(ctx context.Context) (Summary, error) {
	var sum Summary
	batch, err := r.entries.ListOpaqueNamed(ctx, scanLimit)
	if err != nil {
		return sum, err
	}

	for i, e := range batch {
		sum.Scanned++
		r.resolveOne(ctx, e, &sum)
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		if i < len(batch)-1 && r.delay > 0 {
			t := time.NewTimer(r.delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return sum, ctx.Err()
			case <-t.C:
			}
		}
	}

	r.logger.Info("enrichment run finished",
		zap.Int("scanned", sum.Scanned),
		zap.Int("resolved", sum.Resolved),
		zap.Int("dead", sum.MarkedDead),
		zap.Int("ambiguous", sum.Ambiguous))
	return sum, nil
}

func (r *Resolver) resolveOne(ctx context.Context, e catalog.Entry, sum *Summary) {
	notFound := 0
	for _, kind := range endpointKinds {
		rec, err := r.fetch(ctx, kind, e.Name)
		switch {
		case err == nil:
			if uerr := r.replace(ctx, e, rec); uerr != nil {
				r.logger.Warn("resolved record update failed",
					zap.String("id", e.ID),
					zap.Error(uerr))
				sum.Ambiguous++
				return
			}
			r.logger.Info("opaque entry resolved",
				zap.String("id", e.ID),
				zap.String("kind", kind),
				zap.String("resolved", rec.ID))
			sum.Resolved++
			return
		case httpx.IsNotFound(err):
			notFound++
		default:
			// Transient or defensive failure: no verdict this run.
			r.logger.Debug("resolution probe inconclusive",
				zap.String("id", e.ID),
				zap.String("kind", kind),
				zap.Error(err))
			sum.Ambiguous++
			return
		}
	}

	if notFound == len(endpointKinds) {
		if err := r.updater.MarkDeadLink(ctx, e.ID, true); err != nil {
			r.logger.Warn("mark dead failed", zap.String("id", e.ID), zap.Error(err))
			return
		}
		sum.MarkedDead++
	}
}

func (r *Resolver) fetch(ctx context.Context, kind, hash string) (normalize.ModelHubRecord, error) {
	u := fmt.Sprintf("%s/api/%s/%s", r.baseURL, kind, hash)
	var header http.Header
	if r.token != "" {
		header = http.Header{"Authorization": []string{"Bearer " + r.token}}
	}
	resp, err := r.client.Get(ctx, u, header)
	if err != nil {
		return normalize.ModelHubRecord{}, err
	}
	var rec normalize.ModelHubRecord
	if err := json.Unmarshal(resp.Body, &rec); err != nil {
		return normalize.ModelHubRecord{}, fmt.Errorf("decode %s record: %w", kind, err)
	}
	return rec, nil
}

// replace applies the resolved metadata over the stored row, keeping its id.
func (r *Resolver) replace(ctx context.Context, e catalog.Entry, rec normalize.ModelHubRecord) error {
	in, err := r.norm.ModelHub(rec)
	if err != nil {
		// The "resolved" identifier is itself still a hash.
		return err
	}
	_, err = r.updater.Update(ctx, e.ID, in)
	return err
}
