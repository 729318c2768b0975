package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Reset collectors for testing purposes.
	ingestRecordsTotal = nil
	searchRequestsTotal = nil
	httpRequestsTotal = nil
	auditProbesTotal = nil

	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if ingestRecordsTotal == nil || searchRequestsTotal == nil ||
		httpRequestsTotal == nil || auditProbesTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	// A simple check to see if a metric can be used.
	ingestRecordsTotal.WithLabelValues("github", "stored").Inc()
	if val := testutil.ToFloat64(ingestRecordsTotal); val != 1 {
		t.Errorf("Expected ingestRecordsTotal to be 1, got %f", val)
	}
}
