// Package research is the outward surface of the acquisition core: one call
// runs the full scrape -> verify pipeline and hands back everything a
// downstream consumer (LLM analysis, email generation, UI) needs.
package research

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"prospect/internal/config"
	"prospect/internal/scrape"
	"prospect/internal/verify"
)

// ErrNoData is the one user-visible failure: every channel came back empty.
// Anything short of that is silent degradation.
var ErrNoData = errors.New("no data found for prospect")

// Report is the evidence set for one prospect.
type Report struct {
	// Items are the raw fragments, for consumers that want the full trail.
	Items []scrape.Item
	// Facts are clustered and confidence-tiered, verified first.
	Facts []verify.Fact
	// Domain is the corporate site root resolved during the run, or "".
	Domain string
	// Hints are person details mined from profile snippets; useful for
	// backfilling fields when the network authwalled the profile itself.
	Hints Hints
	// ProfileSearchURL is a people-search deep link for manual follow-up.
	ProfileSearchURL string
}

// acquirer is one acquisition run: fan out, collect, expose the domain
// side artifact. Satisfied by *scrape.Orchestrator.
type acquirer interface {
	SearchAll(ctx context.Context, q scrape.Query) []scrape.Item
	DiscoveredDomain() string
}

type Service struct {
	cfg config.Settings
	log *zap.Logger

	// newRun builds a fresh acquirer per call; each run owns its own
	// session and gate
	newRun func() acquirer
}

func NewService(cfg config.Settings, log *zap.Logger) *Service {
	return &Service{
		cfg: cfg,
		log: log,
		newRun: func() acquirer {
			return scrape.NewOrchestrator(cfg, log)
		},
	}
}

// Investigate runs one full acquisition for the prospect. The orchestrator
// (and with it the HTTP session and engine gate) lives exactly as long as
// this call.
func (s *Service) Investigate(ctx context.Context, q scrape.Query) (*Report, error) {
	log := s.log.Sugar().Named("research")
	log.Infow("investigating", "name", q.Name, "company", q.Company)

	orch := s.newRun()
	items := orch.SearchAll(ctx, q)
	if len(items) == 0 {
		return nil, ErrNoData
	}

	facts := verify.New(s.cfg.MinSnippetLen).Verify(items)
	log.Infow("verified", "items", len(items), "facts", len(facts))

	return &Report{
		Items:            items,
		Facts:            facts,
		Domain:           orch.DiscoveredDomain(),
		Hints:            ExtractHints(items),
		ProfileSearchURL: scrape.SearchURL(q.Name, q.Company),
	}, nil
}
