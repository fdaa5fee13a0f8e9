package scrape

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"prospect/internal/config"
	"prospect/internal/fetch"
)

// Orchestrator runs every source adapter concurrently against one query
// under a single global deadline. One orchestrator = one investigation run:
// it owns the session, the engine gate and the discovered-domain artifact,
// and tears the session down when collection finishes.
//
// Sources here are independently flaky and some are outright blocked from
// server IP ranges; the fixed deadline bounds worst-case latency while
// still returning whatever did succeed.
type Orchestrator struct {
	session   *fetch.Session
	corporate *Corporate
	sources   []Source
	deadline  time.Duration
	log       *zap.SugaredLogger
}

func NewOrchestrator(cfg config.Settings, log *zap.Logger) *Orchestrator {
	session := fetch.NewSession(cfg, log)
	gate := fetch.NewEngineGate(session, cfg, log)

	sel, err := LoadSelectors(cfg.SelectorsPath)
	if err != nil {
		log.Sugar().Warnw("selector config unreadable, using defaults", "err", err)
	}

	corporate := NewCorporate(session, gate, sel, cfg, log)
	sources := []Source{
		NewProfile(session, gate, sel, cfg, log),
		corporate,
		NewWebSearch(session, gate, sel, cfg, log),
		NewNews(session, gate, sel, cfg, log),
	}
	if knowledge := NewKnowledge(cfg, log); knowledge != nil {
		sources = append(sources, knowledge)
	}

	return &Orchestrator{
		session:   session,
		corporate: corporate,
		sources:   sources,
		deadline:  cfg.GlobalDeadline,
		log:       log.Sugar().Named("orchestrator"),
	}
}

// SearchAll fans out to every adapter and collects what finished before the
// deadline. Cancellation is silent: a task still pending at the deadline
// contributes nothing and nobody sees an error for it.
func (o *Orchestrator) SearchAll(ctx context.Context, q Query) []Item {
	ctx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()
	defer o.session.Close()

	var mu sync.Mutex
	var all []Item

	var wg sync.WaitGroup
	for _, src := range o.sources {
		wg.Add(1)
		go func(s Source) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					o.log.Errorw("adapter panicked", "source", s.Tag(), "panic", r)
				}
			}()

			items := s.Search(ctx, q)
			o.log.Infow("adapter done", "source", s.Tag(), "count", len(items))

			mu.Lock()
			all = append(all, items...)
			mu.Unlock()
		}(src)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		o.log.Infow("deadline reached, collecting partial results")
	}

	mu.Lock()
	collected := make([]Item, len(all))
	copy(collected, all)
	mu.Unlock()

	o.log.Infow("run complete", "total", len(collected))
	return collected
}

// DiscoveredDomain exposes the corporate site root resolved during this
// run, if any. Scoped to this orchestrator instance; never persisted.
func (o *Orchestrator) DiscoveredDomain() string {
	return o.corporate.Domain()
}
