package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"prospect/internal/config"
	"prospect/internal/fetch"
)

const (
	// minimum body size for a TLD probe to count as a live site
	minProbeBody = 500
	// cap on extra same-domain pages fetched after the homepage
	maxInternalPages = 4
	// combined item text cap
	maxPageText = 500
)

// Hosts that rank for "<company> sitio oficial" without being the company.
var excludedDomains = []string{
	"linkedin.com", "facebook.com", "twitter.com", "instagram.com",
	"youtube.com", "wikipedia.org", "bloomberg.com", "crunchbase.com",
}

var reLegalSuffix = regexp.MustCompile(`(?i)\b(s\.?a\.?|spa|ltda\.?|limitada|inc\.?|llc|s\.?l\.?|s\.?a\.?c\.?|corp\.?|gmbh|e\.?i\.?r\.?l\.?)\b`)
var reNonAlnum = regexp.MustCompile(`[^a-z0-9]`)

var binaryExtensions = map[string]struct{}{
	".pdf": {}, ".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".svg": {},
	".zip": {}, ".rar": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {},
	".mp4": {}, ".mp3": {}, ".webp": {}, ".ico": {},
}

var _ Source = (*Corporate)(nil)

// Corporate resolves the company's own website and mines it. Domain
// resolution tries cheap guesses first (slug + a fixed TLD spread, probed
// concurrently), then falls back to search-engine discovery. The resolved
// domain doubles as a side artifact other consumers read after the run.
type Corporate struct {
	session   *fetch.Session
	gate      *fetch.EngineGate
	sel       Selectors
	searchURL string
	// candidate URL patterns, %s is the company slug, priority order
	tldPatterns []string
	max         int
	log         *zap.SugaredLogger

	mu     sync.Mutex
	domain string // scheme+host, set once per run
}

func NewCorporate(session *fetch.Session, gate *fetch.EngineGate, sel Selectors, cfg config.Settings, log *zap.Logger) *Corporate {
	return &Corporate{
		session:   session,
		gate:      gate,
		sel:       sel,
		searchURL: defaultGoogleURL,
		tldPatterns: []string{
			"https://www.%s.cl",
			"https://%s.cl",
			"https://www.%s.com",
			"https://%s.com",
			"https://www.%s.net",
			"https://%s.net",
		},
		max: cfg.MaxPerSource,
		log: log.Sugar().Named("corporate"),
	}
}

func (c *Corporate) Tag() Tag { return TagCorporate }

// Domain returns the corporate site root (scheme+host) discovered during
// this run, or "" when none was resolved.
func (c *Corporate) Domain() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.domain
}

func (c *Corporate) Search(ctx context.Context, q Query) []Item {
	domain := c.probeTLDs(ctx, q.Company)
	if domain == "" {
		domain = c.discoverDomain(ctx, q.Company)
	}
	if domain == "" {
		c.log.Debugw("no corporate domain resolved", "company", q.Company)
		return nil
	}

	c.mu.Lock()
	c.domain = domain
	c.mu.Unlock()
	c.log.Debugw("corporate domain resolved", "domain", domain)

	items, links := c.scrapeHomepage(ctx, domain)
	items = append(items, c.scrapeInternal(ctx, links)...)

	if len(items) > c.max {
		items = items[:c.max]
	}
	return items
}

// probeTLDs guesses "www.<slug>.cl"-style URLs and probes them all at once.
// The winner is the first candidate in priority order whose body clears the
// size threshold, so the outcome doesn't depend on response timing.
func (c *Corporate) probeTLDs(ctx context.Context, company string) string {
	slug := companySlug(company)
	if slug == "" {
		return ""
	}

	winners := make([]bool, len(c.tldPatterns))
	var g errgroup.Group
	for i, pattern := range c.tldPatterns {
		i := i
		candidate := fmt.Sprintf(pattern, slug)
		g.Go(func() error {
			res := c.session.Get(ctx, candidate, nil)
			if res.IsOK() && len(res.Body) >= minProbeBody {
				winners[i] = true
			}
			return nil
		})
	}
	g.Wait()

	for i, won := range winners {
		if won {
			return fmt.Sprintf(c.tldPatterns[i], slug)
		}
	}
	return ""
}

// discoverDomain falls back to search results, skipping social networks and
// directories that outrank small corporate sites.
func (c *Corporate) discoverDomain(ctx context.Context, company string) string {
	params := url.Values{
		"q":   {fmt.Sprintf("%q sitio oficial", company)},
		"num": {"3"},
		"hl":  {"es"},
	}
	res := c.session.Get(ctx, c.searchURL, params)
	var candidates []Item
	if res.IsOK() {
		candidates = parseEngineResults(res.Body, c.sel.Google, TagCorporate, 5, nil)
	}
	if len(candidates) == 0 {
		res = c.gate.Search(ctx, company+" sitio oficial")
		if !res.IsOK() {
			return ""
		}
		candidates = parseDDGResults(res.Body, c.sel.DuckDuckGo, TagCorporate, 5, nil)
	}

	for _, cand := range candidates {
		u, err := url.Parse(cand.URL)
		if err != nil || u.Host == "" {
			continue
		}
		if isExcludedHost(u.Host) {
			continue
		}
		return u.Scheme + "://" + u.Host
	}
	return ""
}

// scrapeHomepage fetches the site root and returns one combined item plus
// the same-domain links worth visiting next. Meta description, Open Graph
// tags and structured company data are captured BEFORE scripts and chrome
// are stripped: on script-rendered pages they are all the content there is.
func (c *Corporate) scrapeHomepage(ctx context.Context, domain string) ([]Item, []string) {
	res := c.session.Get(ctx, domain, nil)
	if !res.IsOK() {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.Body))
	if err != nil {
		return nil, nil
	}

	links := internalLinks(doc, domain)

	item, ok := pageItem(doc, domain)
	if !ok {
		return nil, links
	}
	return []Item{item}, links
}

// scrapeInternal fetches a bounded number of homepage-linked pages in
// parallel, one combined item each.
func (c *Corporate) scrapeInternal(ctx context.Context, links []string) []Item {
	if len(links) > maxInternalPages {
		links = links[:maxInternalPages]
	}

	items := make([]Item, len(links))
	found := make([]bool, len(links))
	var g errgroup.Group
	for i, link := range links {
		i, link := i, link
		g.Go(func() error {
			res := c.session.Get(ctx, link, nil)
			if !res.IsOK() {
				return nil
			}
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.Body))
			if err != nil {
				return nil
			}
			if item, ok := pageItem(doc, link); ok {
				items[i], found[i] = item, true
			}
			return nil
		})
	}
	g.Wait()

	out := make([]Item, 0, len(links))
	for i, ok := range found {
		if ok {
			out = append(out, items[i])
		}
	}
	return out
}

// pageItem builds the single combined item for one corporate page:
// meta/structured-data text first, then the de-chromed body text, capped.
func pageItem(doc *goquery.Document, pageURL string) (Item, bool) {
	var parts []string
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok && strings.TrimSpace(desc) != "" {
		parts = append(parts, strings.TrimSpace(desc))
	}
	for _, prop := range []string{"og:title", "og:description", "og:site_name"} {
		if v, ok := doc.Find(fmt.Sprintf(`meta[property=%q]`, prop)).Attr("content"); ok && strings.TrimSpace(v) != "" {
			parts = append(parts, strings.TrimSpace(v))
		}
	}
	if org := structuredOrgData(doc); org != "" {
		parts = append(parts, org)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	// Strip chrome only after the metadata grab.
	doc.Find("script, style, nav, footer, header").Remove()
	body := strings.Join(strings.Fields(doc.Find("body").Text()), " ")
	body = truncateRunes(body, maxPageText)
	if utf8.RuneCountInString(body) > 50 {
		parts = append(parts, body)
	}

	text := strings.Join(parts, " | ")
	if utf8.RuneCountInString(text) < 50 {
		return Item{}, false
	}
	text = truncateRunes(text, maxPageText*2)
	if title == "" {
		title = pageURL
	}

	return Item{URL: pageURL, Title: title, Snippet: text, Source: TagCorporate}, true
}

// structuredOrgData flattens JSON-LD organization fields (industry, size,
// founding date, address) into readable text.
func structuredOrgData(doc *goquery.Document) string {
	raw := doc.Find(`script[type="application/ld+json"]`).First().Text()
	if raw == "" {
		return ""
	}
	var ld map[string]any
	if err := json.Unmarshal([]byte(raw), &ld); err != nil {
		return ""
	}

	var parts []string
	for _, key := range []string{"name", "industry", "numberOfEmployees", "foundingDate", "description"} {
		switch v := ld[key].(type) {
		case string:
			if v != "" {
				parts = append(parts, fmt.Sprintf("%s: %s", key, v))
			}
		case float64:
			parts = append(parts, fmt.Sprintf("%s: %.0f", key, v))
		}
	}
	if addr, ok := ld["address"].(map[string]any); ok {
		loc, _ := addr["addressLocality"].(string)
		country, _ := addr["addressCountry"].(string)
		if loc != "" || country != "" {
			parts = append(parts, strings.Trim("address: "+loc+", "+country, ", "))
		}
	}
	return strings.Join(parts, " | ")
}

// internalLinks collects same-domain links from the homepage, skipping
// anchors, mail/tel links and binary files.
func internalLinks(doc *goquery.Document, domain string) []string {
	base, err := url.Parse(domain)
	if err != nil {
		return nil
	}

	seen := map[string]struct{}{}
	var links []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "javascript:") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Host != base.Host {
			return
		}
		if _, bad := binaryExtensions[strings.ToLower(path.Ext(resolved.Path))]; bad {
			return
		}
		resolved.Fragment = ""

		link := resolved.String()
		if link == domain || link == domain+"/" {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})
	return links
}

// companySlug strips legal-entity suffixes and everything non-alphanumeric:
// "Minera Escondida Ltda." -> "mineraescondida".
func companySlug(company string) string {
	s := strings.ToLower(company)
	s = reLegalSuffix.ReplaceAllString(s, " ")
	s = reNonAlnum.ReplaceAllString(s, "")
	return s
}

// truncateRunes caps s at n runes; text here is Spanish and byte slicing
// would split accented characters.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func isExcludedHost(host string) bool {
	host = strings.ToLower(host)
	for _, d := range excludedDomains {
		if strings.Contains(host, d) {
			return true
		}
	}
	return false
}
