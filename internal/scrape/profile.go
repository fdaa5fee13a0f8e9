package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"prospect/internal/config"
	"prospect/internal/fetch"
)

const (
	profileDomain = "linkedin.com/in"
	// stop probing a chain after this many login walls
	maxAuthwalls = 2
	maxProfiles  = 3
	maxSlugs     = 6
)

var reNonLetter = regexp.MustCompile(`[^a-z\s]`)

var _ Source = (*Profile)(nil)

// Profile is the professional-network adapter. The network itself blocks
// anonymous crawling, so profiles are discovered through search engines and,
// as a last resort, by probing guessed profile URLs. The primary engine gets
// one exact-match attempt, then the gated engine takes over with two looser
// queries before probing starts.
type Profile struct {
	session   *fetch.Session
	gate      *fetch.EngineGate
	sel       Selectors
	searchURL string
	hosts     []string // profile hosts to probe directly
	lang      string
	log       *zap.SugaredLogger
}

func NewProfile(session *fetch.Session, gate *fetch.EngineGate, sel Selectors, cfg config.Settings, log *zap.Logger) *Profile {
	return &Profile{
		session:   session,
		gate:      gate,
		sel:       sel,
		searchURL: defaultGoogleURL,
		hosts:     cfg.CountryHosts,
		lang:      cfg.SearchLang,
		log:       log.Sugar().Named("profile"),
	}
}

func (p *Profile) Tag() Tag { return TagProfile }

func (p *Profile) Search(ctx context.Context, q Query) []Item {
	name := stripDiacritics(q.Name)

	attempts := []struct {
		engine string
		query  string
	}{
		{"primary", fmt.Sprintf(`site:%s/ %q %q %s`, profileDomain, name, q.Company, q.Role)},
		{"gated", fmt.Sprintf("%s %s site:%s/", shortName(name), q.Company, profileDomain)},
		{"gated", fmt.Sprintf("%s %s linkedin perfil", name, q.Company)},
	}

	var items []Item
	for _, a := range attempts {
		if ctx.Err() != nil {
			return nil
		}
		if a.engine == "primary" {
			items = p.searchPrimary(ctx, a.query)
		} else {
			items = p.searchGated(ctx, a.query)
		}
		if len(items) > 0 {
			p.log.Debugw("profile found", "engine", a.engine, "query", a.query)
			break
		}
	}

	// Last resort: guess profile URLs from the name and probe them.
	if len(items) == 0 {
		p.log.Debug("engines empty, probing direct profile urls")
		items = p.probeDirect(ctx, name)
	}

	items = preferCompanyMentions(items, q.Company)

	if len(items) > 0 {
		p.enrich(ctx, items)
	}
	return items
}

func (p *Profile) searchPrimary(ctx context.Context, query string) []Item {
	params := url.Values{"q": {query}, "num": {"5"}, "hl": {p.lang}}
	res := p.session.Get(ctx, p.searchURL, params)
	if !res.IsOK() {
		return nil
	}
	return parseEngineResults(res.Body, p.sel.Google, TagProfile, maxProfiles, isProfileURL)
}

func (p *Profile) searchGated(ctx context.Context, query string) []Item {
	res := p.gate.Search(ctx, query)
	if !res.IsOK() {
		return nil
	}
	return parseDDGResults(res.Body, p.sel.DuckDuckGo, TagProfile, maxProfiles, isProfileURL)
}

// probeDirect fetches guessed profile URLs one by one. Two login walls in a
// row mean the network is walling this session off; keeping on guessing
// would only burn the remaining deadline.
func (p *Profile) probeDirect(ctx context.Context, name string) []Item {
	slugs := nameToSlugs(name)
	if len(slugs) > maxSlugs {
		slugs = slugs[:maxSlugs]
	}

	authwalls := 0
	for _, slug := range slugs {
		for _, host := range p.hosts {
			if ctx.Err() != nil {
				return nil
			}
			probeURL := fmt.Sprintf("https://%s/in/%s", host, slug)
			if strings.Contains(host, "://") {
				// host entries may carry a full base URL
				probeURL = fmt.Sprintf("%s/in/%s", host, slug)
			}
			res := p.session.Get(ctx, probeURL, nil)
			if !res.IsOK() || len(res.Body) < 500 {
				continue
			}
			if isAuthwall(res.Body) {
				authwalls++
				p.log.Debugw("authwall on direct probe", "url", probeURL)
				if authwalls >= maxAuthwalls {
					p.log.Debug("multiple authwalls, aborting direct probes")
					return nil
				}
				continue
			}

			title, snippet := profileMeta(res.Body)
			if title == "" && snippet == "" {
				continue
			}
			p.log.Debugw("direct profile found", "url", probeURL)
			return []Item{{URL: probeURL, Title: title, Snippet: snippet, Source: TagProfile}}
		}
	}
	return nil
}

// enrich fetches each chosen profile page and upgrades title/snippet with
// richer on-page data. Existing fields are only replaced by strictly longer
// values; an authwall means the search-result data stands.
func (p *Profile) enrich(ctx context.Context, items []Item) {
	for i := range items {
		if !strings.Contains(items[i].URL, "/in/") {
			continue
		}
		res := p.session.Get(ctx, items[i].URL, nil)
		if !res.IsOK() || len(res.Body) < 500 {
			continue
		}
		if isAuthwall(res.Body) {
			p.log.Debug("authwall on enrichment, keeping search data")
			return
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.Body))
		if err != nil {
			continue
		}

		var parts []string
		if ld := structuredPersonData(doc); ld != "" {
			parts = append(parts, ld)
		}
		if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok && desc != "" {
			parts = append(parts, desc)
		}
		if og, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok && og != "" {
			parts = append(parts, og)
		}

		if combined := strings.Join(parts, " | "); len(combined) > len(items[i].Snippet) {
			items[i].Snippet = combined
		}
		if title := strings.TrimSpace(doc.Find("title").First().Text()); len(title) > len(items[i].Title) {
			items[i].Title = title
		}
	}
}

// structuredPersonData flattens the page's JSON-LD person record into
// readable text. It is the richest field source when present.
func structuredPersonData(doc *goquery.Document) string {
	raw := doc.Find(`script[type="application/ld+json"]`).First().Text()
	if raw == "" {
		return ""
	}

	var ld map[string]any
	if err := json.Unmarshal([]byte(raw), &ld); err != nil {
		return ""
	}

	var parts []string
	if v, ok := ld["name"].(string); ok && v != "" {
		parts = append(parts, v)
	}
	if v, ok := ld["jobTitle"].(string); ok && v != "" {
		parts = append(parts, v)
	}
	switch wf := ld["worksFor"].(type) {
	case map[string]any:
		if v, ok := wf["name"].(string); ok && v != "" {
			parts = append(parts, v)
		}
	case []any:
		for i, entry := range wf {
			if i >= 2 {
				break
			}
			if m, ok := entry.(map[string]any); ok {
				if v, ok := m["name"].(string); ok && v != "" {
					parts = append(parts, v)
				}
			}
		}
	}
	if addr, ok := ld["address"].(map[string]any); ok {
		loc, _ := addr["addressLocality"].(string)
		region, _ := addr["addressRegion"].(string)
		if loc != "" || region != "" {
			parts = append(parts, strings.Trim(fmt.Sprintf("Ubicacion: %s, %s", loc, region), ", "))
		}
	}
	if alumni, ok := ld["alumniOf"].([]any); ok {
		for i, entry := range alumni {
			if i >= 2 {
				break
			}
			if m, ok := entry.(map[string]any); ok {
				if v, ok := m["name"].(string); ok && v != "" {
					parts = append(parts, "Educacion: "+v)
				}
			}
		}
	}

	return strings.Join(parts, " | ")
}

// profileMeta pulls title and meta/OG descriptions from a public profile page.
func profileMeta(html string) (title, snippet string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", ""
	}
	title = strings.TrimSpace(doc.Find("title").First().Text())

	var parts []string
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok && desc != "" {
		parts = append(parts, desc)
	}
	if og, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok && og != "" {
		parts = append(parts, og)
	}
	return title, strings.Join(parts, " | ")
}

// preferCompanyMentions keeps only the results whose text mentions the
// company, falling back to the full list when none do. This is the
// anti-homonym filter: "Juan Perez" at the wrong employer is worse than no
// narrowing at all.
func preferCompanyMentions(items []Item, company string) []Item {
	if company == "" || len(items) == 0 {
		return items
	}
	needle := strings.ToLower(company)
	var matching []Item
	for _, it := range items {
		text := strings.ToLower(it.Title + " " + it.Snippet)
		if strings.Contains(text, needle) {
			matching = append(matching, it)
		}
	}
	if len(matching) > 0 {
		return matching
	}
	return items
}

// isAuthwall detects the network's login wall by indicator text near the top
// of the body. A walled page must count as "no access", never as content.
func isAuthwall(html string) bool {
	head := html
	if len(head) > 2000 {
		head = head[:2000]
	}
	lower := strings.ToLower(head)
	return strings.Contains(strings.ToLower(html), "authwall") || strings.Contains(lower, "sign-in")
}

func isProfileURL(rawURL string) bool {
	return hostContains(rawURL, "linkedin.com")
}

// nameToSlugs turns "José Miguel Juliá" into ordered profile-slug guesses:
// all tokens joined, first+second, first+third, each with the suffix
// variants real profiles commonly carry.
func nameToSlugs(name string) []string {
	normalized := stripDiacritics(strings.ToLower(strings.TrimSpace(name)))
	normalized = reNonLetter.ReplaceAllString(normalized, "")
	parts := strings.Fields(normalized)
	if len(parts) < 2 {
		return nil
	}

	slugs := []string{strings.Join(parts, "-")}
	if len(parts) >= 3 {
		slugs = append(slugs, parts[0]+"-"+parts[1], parts[0]+"-"+parts[2])
	}
	base := append([]string(nil), slugs...)
	for _, slug := range base {
		for _, suffix := range []string{"1", "2", "a", "b"} {
			slugs = append(slugs, slug+"-"+suffix)
		}
	}

	seen := make(map[string]struct{}, len(slugs))
	out := slugs[:0]
	for _, s := range slugs {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// shortName abbreviates "Maria Jose Fuentes Rojas" to "Maria Rojas" for the
// looser second-attempt query.
func shortName(name string) string {
	parts := strings.Fields(name)
	if len(parts) <= 2 {
		return name
	}
	return parts[0] + " " + parts[len(parts)-1]
}

// stripDiacritics removes combining marks: "Juliá" -> "Julia".
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// SearchURL builds the network's people-search deep link for a prospect.
// Exposed for downstream consumers that render a "search manually" link.
func SearchURL(name, company string) string {
	keywords := url.QueryEscape(strings.TrimSpace(name + " " + company))
	return "https://www.linkedin.com/search/results/people/?keywords=" + keywords
}
