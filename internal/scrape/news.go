package scrape

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"prospect/internal/config"
	"prospect/internal/fetch"
)

const defaultNewsRSSURL = "https://news.google.com/rss/search"

// Matches href="..." or href='...' inside RSS description HTML.
var reHrefAny = regexp.MustCompile(`(?i)\bhref\s*=\s*(?:"([^"]+)"|'([^']+)')`)

var _ Source = (*News)(nil)

// News is the news adapter. Three tiers, cheapest-and-most-specific first:
//
//  1. primary engine's news vertical, bounded to the last six months
//  2. Google News RSS keyed on the company alone (better recall for short
//     or non-English names)
//  3. a generic last-month text search through the gated engine
//
// The first tier yielding anything wins. Bare homepage URLs are dropped
// everywhere: a link to a publisher's front page is not a news item.
type News struct {
	session   *fetch.Session
	gate      *fetch.EngineGate
	sel       Selectors
	searchURL string
	rssURL    string
	lang      string
	max       int
	log       *zap.SugaredLogger
}

func NewNews(session *fetch.Session, gate *fetch.EngineGate, sel Selectors, cfg config.Settings, log *zap.Logger) *News {
	return &News{
		session:   session,
		gate:      gate,
		sel:       sel,
		searchURL: defaultGoogleURL,
		rssURL:    defaultNewsRSSURL,
		lang:      cfg.SearchLang,
		max:       cfg.MaxPerSource,
		log:       log.Sugar().Named("news"),
	}
}

func (n *News) Tag() Tag { return TagNews }

func (n *News) Search(ctx context.Context, q Query) []Item {
	if items := n.searchNewsVertical(ctx, q); len(items) > 0 {
		n.log.Debugw("news vertical hit", "count", len(items))
		return items
	}
	if items := n.searchRSS(ctx, q); len(items) > 0 {
		n.log.Debugw("rss tier hit", "count", len(items))
		return items
	}
	items := n.searchRecentText(ctx, q)
	if len(items) > 0 {
		n.log.Debugw("recent-text tier hit", "count", len(items))
	}
	return items
}

func (n *News) searchNewsVertical(ctx context.Context, q Query) []Item {
	params := url.Values{
		"q":   {fmt.Sprintf("%q %s", q.Company, q.Name)},
		"tbm": {"nws"},
		"tbs": {"qdr:m6"}, // last six months
		"num": {strconv.Itoa(n.max)},
		"hl":  {n.lang},
	}
	res := n.session.Get(ctx, n.searchURL, params)
	if !res.IsOK() {
		return nil
	}
	items := parseEngineResults(res.Body, n.sel.GoogleNews, TagNews, n.max, notHomepage)
	return items
}

// searchRSS pulls the Google News search feed for the company alone. The
// feed wraps article links in news.google.com redirect URLs; the real
// publisher link usually hides in the description HTML, and entries that
// cannot be unwrapped are skipped rather than emitted as wrappers.
func (n *News) searchRSS(ctx context.Context, q Query) []Item {
	params := url.Values{
		"q":  {q.Company},
		"hl": {n.lang},
	}
	res := n.session.Get(ctx, n.rssURL, params)
	if !res.IsOK() {
		return nil
	}

	feed, err := gofeed.NewParser().ParseString(res.Body)
	if err != nil {
		n.log.Debugw("rss parse failed", "err", err)
		return nil
	}

	var items []Item
	skipped := 0
	for _, entry := range feed.Items {
		if len(items) >= n.max {
			break
		}
		link := publisherLink(entry)
		if link == "" {
			skipped++
			continue
		}
		if !notHomepage(link) {
			continue
		}
		item := Item{
			URL:     link,
			Title:   strings.TrimSpace(entry.Title),
			Snippet: strings.TrimSpace(stripMarkup(entry.Description)),
			Source:  TagNews,
		}
		if entry.Published != "" {
			item.Timestamp = entry.Published
		}
		if item.Title == "" && item.Snippet == "" {
			continue
		}
		items = append(items, item)
	}
	if skipped > 0 {
		n.log.Debugw("skipped unresolvable wrappers", "count", skipped)
	}
	return items
}

func (n *News) searchRecentText(ctx context.Context, q Query) []Item {
	query := fmt.Sprintf("%s %s noticias", q.Company, q.Name)
	res := n.gate.SearchRecent(ctx, query)
	if !res.IsOK() {
		return nil
	}
	return parseDDGResults(res.Body, n.sel.DuckDuckGo, TagNews, n.max, notHomepage)
}

// publisherLink digs the real article URL out of a Google News RSS entry.
// The <link> is a news.google.com wrapper; the description HTML holds the
// publisher href.
func publisherLink(entry *gofeed.Item) string {
	link := strings.TrimSpace(entry.Link)
	if link != "" && !strings.Contains(link, "news.google.com") {
		return link
	}
	for _, m := range reHrefAny.FindAllStringSubmatch(entry.Description, -1) {
		href := m[1]
		if href == "" {
			href = m[2]
		}
		if strings.HasPrefix(href, "http") && !strings.Contains(href, "news.google.com") {
			return href
		}
	}
	return ""
}

// notHomepage rejects bare front-page URLs ("/", "/es"): those mention the
// company without being news about it.
func notHomepage(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.Trim(u.Path, "/")
	return len(path) > 3
}

func stripMarkup(s string) string {
	inTag := false
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteByte(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
