package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"prospect/internal/config"
	"prospect/internal/fetch"
)

const defaultGoogleURL = "https://www.google.com/search"

var _ Source = (*WebSearch)(nil)

// WebSearch is the general-search adapter: a quoted name+company query on
// the primary engine, with the rate-limited engine as fallback when the
// primary is blocked or returns nothing (frequent from datacenter IPs).
type WebSearch struct {
	session   *fetch.Session
	gate      *fetch.EngineGate
	sel       Selectors
	searchURL string
	lang      string
	max       int
	log       *zap.SugaredLogger
}

func NewWebSearch(session *fetch.Session, gate *fetch.EngineGate, sel Selectors, cfg config.Settings, log *zap.Logger) *WebSearch {
	return &WebSearch{
		session:   session,
		gate:      gate,
		sel:       sel,
		searchURL: defaultGoogleURL,
		lang:      cfg.SearchLang,
		max:       cfg.MaxPerSource,
		log:       log.Sugar().Named("websearch"),
	}
}

func (w *WebSearch) Tag() Tag { return TagGeneral }

func (w *WebSearch) Search(ctx context.Context, q Query) []Item {
	query := fmt.Sprintf("%q %q", q.Name, q.Company)
	if q.Role != "" {
		query += " " + q.Role
	}

	params := url.Values{
		"q":   {query},
		"num": {strconv.Itoa(w.max)},
		"hl":  {w.lang},
	}
	res := w.session.Get(ctx, w.searchURL, params)
	if res.IsOK() {
		items := parseEngineResults(res.Body, w.sel.Google, TagGeneral, w.max, nil)
		if len(items) > 0 {
			w.log.Debugw("primary engine hit", "count", len(items))
			return items
		}
	}

	// Primary blocked or parse-empty: fall back to the gated engine.
	// DDG's text index does worse with quoted phrases, so the fallback
	// query is unquoted.
	loose := strings.TrimSpace(fmt.Sprintf("%s %s %s", q.Name, q.Company, q.Role))
	w.log.Debugw("primary engine empty, falling back", "query", loose)
	res = w.gate.Search(ctx, loose)
	if !res.IsOK() {
		return nil
	}
	return parseDDGResults(res.Body, w.sel.DuckDuckGo, TagGeneral, w.max, nil)
}
