// Package clicks records click/upvote counters in Redis. Recording is a
// detached best-effort side effect: failures are logged and swallowed, and
// no caller's success path depends on it.
package clicks

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const recordTimeout = 2 * time.Second

// Tracker increments per-entry counters. A nil Tracker or nil client is a
// usable no-op, so callers never need to branch on configuration.
type Tracker struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// New builds a Tracker. rdb may be nil to disable tracking.
func New(rdb *redis.Client, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{rdb: rdb, logger: logger}
}

// Record fires a detached increment for the entry and returns immediately.
func (t *Tracker) Record(entryID string) {
	if t == nil || t.rdb == nil || entryID == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := t.rdb.Incr(ctx, "clicks:"+entryID).Err(); err != nil {
			t.logger.Warn("click increment failed",
				zap.String("entry_id", entryID),
				zap.Error(err))
		}
	}()
}

// Count returns the stored click counter for an entry.
func (t *Tracker) Count(ctx context.Context, entryID string) (int64, error) {
	if t == nil || t.rdb == nil {
		return 0, nil
	}
	n, err := t.rdb.Get(ctx, "clicks:"+entryID).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}
