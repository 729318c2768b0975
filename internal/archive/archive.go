// Package archive persists raw provider payloads so ingestion bugs can be
// replayed against the original data. Archival is optional and best-effort.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"
)

// BlobStore persists one payload under a path and returns its URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Key builds a deterministic archive path: source/date/hash. The content
// hash keeps re-runs of identical pages from multiplying objects.
func Key(prefix, source string, fetchedAt time.Time, payload []byte) string {
	sum := sha256.Sum256(payload)
	hash := hex.EncodeToString(sum[:])
	return fmt.Sprintf("%s/%s/%s/%s.json", prefix, source, fetchedAt.UTC().Format("2006-01-02"), hash)
}
