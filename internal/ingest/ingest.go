// Package ingest holds the per-source adapters and the batch orchestrator.
// An adapter paginates one external source, normalizes each record, and
// upserts through the catalog service; one bad record never aborts a batch.
package ingest

import (
	"bytes"
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/openclaw/forager/internal/archive"
	"github.com/openclaw/forager/internal/catalog"
)

// Result counts one adapter run.
type Result struct {
	Processed int
	Errors    int
}

// Adapter ingests one external source. Run is safely re-runnable: upserts
// key on the normalized source URL, so repeats refresh rather than multiply.
type Adapter interface {
	Name() string
	Run(ctx context.Context) (Result, error)
}

// EntrySink is the slice of the catalog service adapters write through.
type EntrySink interface {
	UpsertBySourceURL(ctx context.Context, in catalog.EntryInput) (catalog.Entry, bool, error)
}

// SkillSink is the slice of the skill service the skills adapter writes
// through.
type SkillSink interface {
	UpsertBySourceURL(ctx context.Context, in catalog.SkillInput) (catalog.Skill, bool, error)
}

// pause sleeps the politeness delay, returning false if the context died.
func pause(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// archiver saves raw payloads best-effort; a nil blob store disables it.
type archiver struct {
	blob   archive.BlobStore
	prefix string
	logger *zap.Logger
}

func (a *archiver) save(ctx context.Context, source string, payload []byte) {
	if a == nil || a.blob == nil || len(payload) == 0 {
		return
	}
	key := archive.Key(a.prefix, source, time.Now(), payload)
	if _, err := a.blob.PutObject(ctx, key, "application/json", bytes.NewReader(payload)); err != nil {
		a.logger.Warn("payload archive failed",
			zap.String("source", source),
			zap.String("key", key),
			zap.Error(err))
	}
}
