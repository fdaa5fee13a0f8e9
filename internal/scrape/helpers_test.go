package scrape

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"prospect/internal/config"
	"prospect/internal/fetch"
)

// testDeps wires a session and an engine gate against in-process servers so
// adapter tests never touch the network.
type testDeps struct {
	cfg     config.Settings
	session *fetch.Session
	gate    *fetch.EngineGate
	sel     Selectors
}

// newTestDeps points the gated engine at gateHandler (a server answering 404
// when nil, so ungated tiers can be exercised in isolation).
func newTestDeps(t *testing.T, gateHandler http.HandlerFunc) testDeps {
	t.Helper()

	if gateHandler == nil {
		gateHandler = func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}
	}
	gateSrv := httptest.NewServer(gateHandler)
	t.Cleanup(gateSrv.Close)

	cfg := config.Defaults()
	cfg.EngineURL = gateSrv.URL

	session := fetch.NewSession(cfg, zap.NewNop())
	return testDeps{
		cfg:     cfg,
		session: session,
		gate:    fetch.NewEngineGate(session, cfg, zap.NewNop()),
		sel:     DefaultSelectors(),
	}
}

// serve returns the URL of a server that answers every request with body.
func serve(t *testing.T, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

// serveFunc returns the URL of a server backed by fn.
func serveFunc(t *testing.T, fn http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(fn)
	t.Cleanup(srv.Close)
	return srv.URL
}
