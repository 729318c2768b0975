package audit

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/forager/internal/catalog"
	"github.com/openclaw/forager/internal/metrics"
	storememory "github.com/openclaw/forager/internal/store/memory"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type fakeProber struct {
	statuses map[string]int
	errs     map[string]error
	calls    int
}

func (p *fakeProber) Head(_ context.Context, url string, _ time.Duration) (int, error) {
	p.calls++
	if err, ok := p.errs[url]; ok {
		return 0, err
	}
	return p.statuses[url], nil
}

type markerStore struct {
	*storememory.CatalogStore
}

func (m markerStore) MarkDeadLink(ctx context.Context, id string, dead bool) error {
	return m.SetDeadLink(ctx, id, dead, time.Now().UTC())
}

func seed(t *testing.T, st *storememory.CatalogStore, id, url string, dead bool) {
	t.Helper()
	require.NoError(t, st.Insert(context.Background(), catalog.Entry{
		ID: id, Name: "tool " + id, Category: catalog.CategoryDevTools,
		SourceURL: url, DeadLink: dead,
	}))
}

func TestOnlyDefinitiveNotFoundMarksDead(t *testing.T) {
	st := storememory.NewCatalogStore()
	seed(t, st, "gone", "https://example.com/gone", false)
	seed(t, st, "missing", "https://example.com/missing", false)
	seed(t, st, "forbidden", "https://example.com/forbidden", false)
	seed(t, st, "broken", "https://example.com/broken", false)
	seed(t, st, "timeout", "https://example.com/timeout", false)

	probe := &fakeProber{
		statuses: map[string]int{
			"https://example.com/gone":      410,
			"https://example.com/missing":   404,
			"https://example.com/forbidden": 403,
			"https://example.com/broken":    500,
		},
		errs: map[string]error{
			"https://example.com/timeout": errors.New("context deadline exceeded"),
		},
	}

	a := New(st, markerStore{st}, probe, 1000, time.Second, nil)
	sum, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, sum.Probed)
	assert.Equal(t, 2, sum.MarkedDead)
	assert.Equal(t, 3, sum.Inconclusive)

	for id, wantDead := range map[string]bool{
		"gone": true, "missing": true,
		"forbidden": false, "broken": false, "timeout": false,
	} {
		e, err := st.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, wantDead, e.DeadLink, "entry %s", id)
	}
}

func TestDeadEntryRevivesOnSuccessfulProbe(t *testing.T) {
	st := storememory.NewCatalogStore()
	seed(t, st, "back", "https://example.com/back", true)

	probe := &fakeProber{statuses: map[string]int{"https://example.com/back": 200}}

	a := New(st, markerStore{st}, probe, 1000, time.Second, nil)
	sum, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Revived)
	e, err := st.GetByID(context.Background(), "back")
	require.NoError(t, err)
	assert.False(t, e.DeadLink)
}

func TestSweepIncludesDeadAndOpaqueRows(t *testing.T) {
	st := storememory.NewCatalogStore()
	seed(t, st, "alive", "https://example.com/alive", false)
	seed(t, st, "already-dead", "https://example.com/already-dead", true)
	require.NoError(t, st.Insert(context.Background(), catalog.Entry{
		ID: "opaque", Name: "6508e2b4a1c5f2d3e4b5a697",
		Category: catalog.CategoryOther, SourceURL: "https://example.com/opaque",
	}))

	probe := &fakeProber{statuses: map[string]int{
		"https://example.com/alive":        200,
		"https://example.com/already-dead": 404,
		"https://example.com/opaque":       200,
	}}

	a := New(st, markerStore{st}, probe, 1000, time.Second, nil)
	sum, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Probed)
	assert.Equal(t, 3, probe.calls)
}

func TestSweepStopsOnCancellation(t *testing.T) {
	st := storememory.NewCatalogStore()
	for _, id := range []string{"a", "b", "c"} {
		seed(t, st, id, "https://example.com/"+id, false)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	probe := &fakeProber{statuses: map[string]int{}}
	a := New(st, markerStore{st}, probe, 1, time.Second, nil)
	_, err := a.Run(ctx)
	assert.Error(t, err)
	assert.Zero(t, probe.calls)
}
