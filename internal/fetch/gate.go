package fetch

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"prospect/internal/config"
)

// DefaultEngineURL is the HTML endpoint of the rate-limit-sensitive engine.
const DefaultEngineURL = "https://html.duckduckgo.com/html/"

const busyRetryDelay = 2 * time.Second

// EngineGate serializes every POST to the rate-limited engine across all
// adapters in a run. DuckDuckGo tolerates sequential queries from one
// session but answers 429 quickly when hit concurrently, so the lock is
// held for the whole POST plus the one allowed retry.
type EngineGate struct {
	session    *Session
	endpoint   string
	retryDelay time.Duration
	log        *zap.SugaredLogger

	// held for one POST + possible single retry; never acquired recursively
	tokens chan struct{}
}

func NewEngineGate(session *Session, cfg config.Settings, log *zap.Logger) *EngineGate {
	endpoint := cfg.EngineURL
	if endpoint == "" {
		endpoint = DefaultEngineURL
	}
	g := &EngineGate{
		session:    session,
		endpoint:   endpoint,
		retryDelay: busyRetryDelay,
		log:        log.Sugar().Named("engine-gate"),
		tokens:     make(chan struct{}, 1),
	}
	g.tokens <- struct{}{}
	return g
}

// Search POSTs one query through the gate. On a "too many requests" answer
// it waits a fixed short delay and retries exactly once; a second busy
// answer yields Empty immediately. Lock acquisition respects ctx so a
// cancelled adapter never blocks on a busy gate.
func (g *EngineGate) Search(ctx context.Context, query string) Result {
	return g.search(ctx, url.Values{"q": {query}, "b": {""}})
}

// SearchRecent is Search with the engine's last-month recency filter.
func (g *EngineGate) SearchRecent(ctx context.Context, query string) Result {
	return g.search(ctx, url.Values{"q": {query}, "b": {""}, "df": {"m"}})
}

func (g *EngineGate) search(ctx context.Context, form url.Values) Result {
	select {
	case <-g.tokens:
	case <-ctx.Done():
		return Result{Kind: Timeout}
	}
	defer func() { g.tokens <- struct{}{} }()

	res := g.session.PostForm(ctx, g.endpoint, form)
	if !isBusy(res) {
		return res
	}

	g.log.Debugw("engine busy, retrying once", "query", form.Get("q"))
	if !WaitOrCancel(ctx, g.retryDelay) {
		return Result{Kind: Timeout}
	}

	res = g.session.PostForm(ctx, g.endpoint, form)
	if isBusy(res) {
		g.log.Debugw("engine busy after retry, giving up", "query", form.Get("q"))
		return Result{Kind: Empty}
	}
	return res
}

func isBusy(r Result) bool {
	return r.Kind == HTTPStatus && r.Status == http.StatusTooManyRequests
}
