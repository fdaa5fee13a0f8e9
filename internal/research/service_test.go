package research

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"prospect/internal/config"
	"prospect/internal/scrape"
	"prospect/internal/verify"
)

// fakeRun is a canned acquisition run.
type fakeRun struct {
	items  []scrape.Item
	domain string
}

func (f fakeRun) SearchAll(context.Context, scrape.Query) []scrape.Item { return f.items }
func (f fakeRun) DiscoveredDomain() string                              { return f.domain }

func newTestService(run fakeRun) *Service {
	s := NewService(config.Defaults(), zap.NewNop())
	s.newRun = func() acquirer { return run }
	return s
}

func TestInvestigateNoData(t *testing.T) {
	s := newTestService(fakeRun{})

	report, err := s.Investigate(context.Background(), scrape.Query{Name: "X Y", Company: "Z"})
	assert.ErrorIs(t, err, ErrNoData)
	assert.Nil(t, report)
}

func TestInvestigateAssemblesReport(t *testing.T) {
	run := fakeRun{
		domain: "https://www.acme.cl",
		items: []scrape.Item{
			{
				URL:     "https://cl.linkedin.com/in/roberto-garcia",
				Title:   "Roberto Garcia - Gerente de Mantenimiento | LinkedIn",
				Snippet: "Cargo: Gerente de Mantenimiento | Ubicacion: Antofagasta, Chile",
				Source:  scrape.TagProfile,
			},
			{
				URL:     "https://diario.cl/economia/acme-expande",
				Snippet: "Acme anuncia expansion de su planta en el norte del pais",
				Source:  scrape.TagNews,
			},
		},
	}
	s := newTestService(run)

	report, err := s.Investigate(context.Background(), scrape.Query{Name: "Roberto Garcia", Company: "Acme"})
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, run.items, report.Items)
	assert.Equal(t, "https://www.acme.cl", report.Domain)
	assert.NotEmpty(t, report.Facts)
	for _, f := range report.Facts {
		assert.Contains(t, []string{verify.Verified, verify.Partial, verify.Discarded}, f.Confidence)
	}

	assert.Contains(t, report.Hints.Headline, "Gerente de Mantenimiento")
	assert.Contains(t, report.Hints.Location, "Antofagasta")

	assert.Contains(t, report.ProfileSearchURL, "linkedin.com/search/results/people")
	assert.Contains(t, report.ProfileSearchURL, "Roberto")
}

func TestInvestigateFactsRespectMinSnippetLen(t *testing.T) {
	cfg := config.Defaults()
	cfg.MinSnippetLen = 10
	s := NewService(cfg, zap.NewNop())
	s.newRun = func() acquirer {
		return fakeRun{items: []scrape.Item{
			{URL: "https://a.cl/x", Snippet: "corto", Source: scrape.TagGeneral},
		}}
	}

	report, err := s.Investigate(context.Background(), scrape.Query{Name: "X Y", Company: "Z"})
	require.NoError(t, err)
	// Raw items always survive into the report; only the fact set filters.
	assert.Len(t, report.Items, 1)
	assert.Empty(t, report.Facts)
}
