package scrape

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Shared result-block mining for the two engines. Selectors come from the
// versioned config; these functions only know the abstract shape
// "repeating block with a link, a heading and a snippet".

func parseEngineResults(html string, sel EngineSelectors, tag Tag, max int, keep func(url string) bool) []Item {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var items []Item
	doc.Find(sel.Result).EachWithBreak(func(_ int, block *goquery.Selection) bool {
		link := block.Find(sel.Link).First()
		href, _ := link.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || !strings.HasPrefix(href, "http") {
			return true
		}
		if keep != nil && !keep(href) {
			return true
		}

		title := strings.TrimSpace(block.Find(sel.Title).First().Text())
		snippet := strings.TrimSpace(block.Find(sel.Snippet).First().Text())
		if title == "" && snippet == "" {
			return true
		}

		item := Item{URL: href, Title: title, Snippet: snippet, Source: tag}
		if sel.Time != "" {
			item.Timestamp = strings.TrimSpace(block.Find(sel.Time).First().Text())
		}

		items = append(items, item)
		return len(items) < max
	})

	return items
}

// parseDDGResults handles DuckDuckGo's HTML endpoint. Its anchors sometimes
// point through a redirect (uddg=) and sometimes are ad beacons (y.js);
// both are unwrapped or dropped here.
func parseDDGResults(html string, sel EngineSelectors, tag Tag, max int, keep func(url string) bool) []Item {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var items []Item
	doc.Find(sel.Result).EachWithBreak(func(_ int, block *goquery.Selection) bool {
		link := block.Find(sel.Link).First()
		href, _ := link.Attr("href")
		href = unwrapDDGRedirect(strings.TrimSpace(href))
		if href == "" || strings.Contains(href, "duckduckgo.com/y.js") {
			return true
		}
		if keep != nil && !keep(href) {
			return true
		}

		title := strings.TrimSpace(link.Text())
		snippet := strings.TrimSpace(block.Find(sel.Snippet).First().Text())
		if title == "" && snippet == "" {
			return true
		}

		items = append(items, Item{URL: href, Title: title, Snippet: snippet, Source: tag})
		return len(items) < max
	})

	return items
}

// unwrapDDGRedirect resolves //duckduckgo.com/l/?uddg=<encoded> links to the
// real destination.
func unwrapDDGRedirect(href string) string {
	const marker = "duckduckgo.com/l/?uddg="
	idx := strings.Index(href, marker)
	if idx < 0 {
		return href
	}
	encoded := href[idx+len(marker):]
	if amp := strings.Index(encoded, "&"); amp > 0 {
		encoded = encoded[:amp]
	}
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		return ""
	}
	if !strings.HasPrefix(decoded, "http") {
		return ""
	}
	return decoded
}

func hostContains(rawURL, domain string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(u.Host+u.Path), domain)
}
