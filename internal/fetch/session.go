// Package fetch owns the shared HTTP machinery used by every source adapter:
// one cookie-keeping session per investigation run, and one serialized gate
// in front of the rate-limit-sensitive search engine.
package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"prospect/internal/config"
)

// Kind classifies the outcome of one fetch. Failure is data here: adapters
// branch on the kind instead of unwinding through errors.
type Kind int

const (
	OK Kind = iota
	Empty
	Timeout
	NetworkError
	HTTPStatus
)

// Result is the outcome of one GET or POST. Body is only set when Kind == OK.
type Result struct {
	Kind   Kind
	Status int
	Body   string
}

func (r Result) IsOK() bool { return r.Kind == OK }

// Paced engines get a shared token bucket so concurrently-started adapters
// don't burst the same host the moment a run begins.
const pacedHostSuffix = "google.com"

// Session is the per-run browsing session: cookies persist across calls so
// multi-step flows (probe, then enrich) look like one visitor. It is created
// by the orchestrator at run start and closed when the run completes; it is
// never package-level state.
type Session struct {
	client  *http.Client
	headers map[string]string
	pacer   *rate.Limiter
	log     *zap.SugaredLogger
}

func NewSession(cfg config.Settings, log *zap.Logger) *Session {
	jar, _ := cookiejar.New(nil)
	return &Session{
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
			Jar:     jar,
		},
		headers: map[string]string{
			"User-Agent":      cfg.UserAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": cfg.AcceptLang,
		},
		// ~1 request/sec against the paced engine, small burst for the
		// initial fan-out.
		pacer: rate.NewLimiter(rate.Limit(1), 2),
		log:   log.Sugar().Named("fetch"),
	}
}

// Get issues a GET and returns the body only on HTTP 200. Everything else
// becomes a non-OK Result with a logged reason; it never returns an error.
func (s *Session) Get(ctx context.Context, rawURL string, params url.Values) Result {
	u := rawURL
	if len(params) > 0 {
		u = rawURL + "?" + params.Encode()
	}

	if host := hostOf(u); strings.HasSuffix(host, pacedHostSuffix) {
		if err := s.pacer.Wait(ctx); err != nil {
			return Result{Kind: Timeout}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		s.log.Debugw("bad request url", "url", rawURL, "err", err)
		return Result{Kind: NetworkError}
	}
	s.applyHeaders(req)

	return s.do(req)
}

// PostForm issues a form POST with the session headers. Used by the engine
// gate; adapters never call it directly.
func (s *Session) PostForm(ctx context.Context, rawURL string, form url.Values) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		s.log.Debugw("bad request url", "url", rawURL, "err", err)
		return Result{Kind: NetworkError}
	}
	s.applyHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return s.do(req)
}

func (s *Session) do(req *http.Request) Result {
	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			s.log.Debugw("timeout", "url", req.URL.String())
			return Result{Kind: Timeout}
		}
		s.log.Debugw("network error", "url", req.URL.String(), "err", err)
		return Result{Kind: NetworkError}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.Debugw("non-200 response", "url", req.URL.String(), "status", resp.StatusCode)
		return Result{Kind: HTTPStatus, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		s.log.Debugw("body read failed", "url", req.URL.String(), "err", err)
		return Result{Kind: NetworkError}
	}
	if len(body) == 0 {
		return Result{Kind: Empty, Status: resp.StatusCode}
	}

	return Result{Kind: OK, Status: resp.StatusCode, Body: string(body)}
}

// Close tears the session down at the end of a run.
func (s *Session) Close() {
	s.client.CloseIdleConnections()
}

func (s *Session) applyHeaders(req *http.Request) {
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// WaitOrCancel sleeps for d unless ctx ends first. Returns false on cancel.
func WaitOrCancel(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
