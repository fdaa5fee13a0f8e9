package scrape

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"prospect/internal/config"
)

// fakeSource is a canned adapter for orchestration tests.
type fakeSource struct {
	tag Tag
	fn  func(ctx context.Context, q Query) []Item
}

func (f fakeSource) Tag() Tag { return f.tag }

func (f fakeSource) Search(ctx context.Context, q Query) []Item { return f.fn(ctx, q) }

func newTestOrchestrator(t *testing.T, deadline time.Duration, sources ...Source) *Orchestrator {
	t.Helper()
	deps := newTestDeps(t, nil)
	return &Orchestrator{
		session:   deps.session,
		corporate: newTestCorporate(t, deps),
		sources:   sources,
		deadline:  deadline,
		log:       zap.NewNop().Sugar(),
	}
}

func TestSearchAllMergesAllSources(t *testing.T) {
	o := newTestOrchestrator(t, time.Second,
		fakeSource{TagGeneral, func(context.Context, Query) []Item {
			return []Item{{URL: "https://a.cl/1", Snippet: "uno", Source: TagGeneral}}
		}},
		fakeSource{TagNews, func(context.Context, Query) []Item {
			return []Item{
				{URL: "https://b.cl/2", Snippet: "dos", Source: TagNews},
				{URL: "https://b.cl/3", Snippet: "tres", Source: TagNews},
			}
		}},
	)

	items := o.SearchAll(context.Background(), Query{Name: "X", Company: "Y"})
	assert.Len(t, items, 3)
}

func TestSearchAllDeadlineKeepsPartialResults(t *testing.T) {
	o := newTestOrchestrator(t, 50*time.Millisecond,
		fakeSource{TagGeneral, func(context.Context, Query) []Item {
			return []Item{{URL: "https://a.cl/1", Snippet: "rapido", Source: TagGeneral}}
		}},
		fakeSource{TagNews, func(ctx context.Context, _ Query) []Item {
			// Ignores cancellation on purpose: a stuck adapter must not
			// stall the run.
			time.Sleep(2 * time.Second)
			return []Item{{URL: "https://b.cl/2", Snippet: "lento", Source: TagNews}}
		}},
	)

	start := time.Now()
	items := o.SearchAll(context.Background(), Query{Name: "X", Company: "Y"})
	elapsed := time.Since(start)

	require.Len(t, items, 1)
	assert.Equal(t, "https://a.cl/1", items[0].URL)
	assert.Less(t, elapsed, time.Second)
}

func TestSearchAllContainsPanics(t *testing.T) {
	o := newTestOrchestrator(t, time.Second,
		fakeSource{TagGeneral, func(context.Context, Query) []Item {
			panic("selector drift")
		}},
		fakeSource{TagNews, func(context.Context, Query) []Item {
			return []Item{{URL: "https://b.cl/2", Snippet: "sobrevive", Source: TagNews}}
		}},
	)

	items := o.SearchAll(context.Background(), Query{Name: "X", Company: "Y"})
	require.Len(t, items, 1)
	assert.Equal(t, "https://b.cl/2", items[0].URL)
}

func TestSearchAllAllEmpty(t *testing.T) {
	o := newTestOrchestrator(t, time.Second,
		fakeSource{TagGeneral, func(context.Context, Query) []Item { return nil }},
	)
	assert.Empty(t, o.SearchAll(context.Background(), Query{Name: "X", Company: "Y"}))
}

func TestSearchAllPropagatesDeadlineToAdapters(t *testing.T) {
	var sawDeadline bool
	o := newTestOrchestrator(t, 100*time.Millisecond,
		fakeSource{TagGeneral, func(ctx context.Context, _ Query) []Item {
			_, sawDeadline = ctx.Deadline()
			return nil
		}},
	)

	o.SearchAll(context.Background(), Query{Name: "X", Company: "Y"})
	assert.True(t, sawDeadline)
}

func TestNewOrchestratorWiresSources(t *testing.T) {
	cfg := config.Defaults()
	o := NewOrchestrator(cfg, zap.NewNop())
	require.NotNil(t, o)
	// Knowledge is keyless here and must be absent.
	assert.Len(t, o.sources, 4)

	cfg.PerplexityAPIKey = "pplx-test"
	o = NewOrchestrator(cfg, zap.NewNop())
	assert.Len(t, o.sources, 5)

	assert.Empty(t, o.DiscoveredDomain())
}
