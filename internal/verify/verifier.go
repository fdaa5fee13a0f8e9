// Package verify cross-checks raw items from one acquisition run: items
// with similar text are clustered into candidate facts, and each fact gets
// a confidence tier from how many independent channels support it.
package verify

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"prospect/internal/scrape"
)

// Confidence tiers, in output order.
const (
	Verified  = "verified"
	Partial   = "partial"
	Discarded = "discarded"
)

const (
	// two token sets agreeing at this Jaccard level count as the same fact
	similarityThreshold = 0.25
	minTokenLen         = 3
)

// Fact is one cross-checked statement with its supporting evidence.
// Confidence depends only on source diversity and URL presence, never on
// the content itself.
type Fact struct {
	Content    string
	SourceURLs []string
	SourceTags []string
	Confidence string
}

// Common function words in the two working languages. Anything this short
// or this frequent carries no verification signal.
var stopwords = map[string]struct{}{
	"de": {}, "la": {}, "el": {}, "en": {}, "y": {}, "a": {}, "los": {}, "las": {},
	"del": {}, "un": {}, "una": {}, "que": {}, "es": {}, "por": {}, "con": {},
	"para": {}, "su": {}, "se": {}, "al": {}, "lo": {}, "como": {}, "más": {},
	"o": {}, "pero": {}, "sus": {}, "le": {}, "ha": {}, "me": {}, "si": {},
	"sin": {}, "sobre": {}, "este": {}, "ya": {}, "entre": {}, "cuando": {},
	"todo": {}, "esta": {}, "ser": {}, "son": {}, "dos": {},
	"the": {}, "and": {}, "is": {}, "in": {}, "of": {}, "to": {}, "for": {},
	"with": {}, "on": {}, "at": {}, "from": {}, "by": {}, "an": {}, "be": {},
	"has": {}, "was": {}, "are": {}, "or": {}, "as": {}, "it": {},
}

type cluster struct {
	tokens map[string]struct{}
	items  []scrape.Item
}

// Verifier groups similar snippets and grades them by source diversity.
type Verifier struct {
	// minimum usable text length; shorter items never enter the working set
	MinTextLen int
}

func New(minTextLen int) *Verifier {
	return &Verifier{MinTextLen: minTextLen}
}

// Verify runs the single-pass greedy clustering over items in input order.
//
// Cluster token sets grow by union as members join, so the join criterion
// loosens as a cluster accumulates vocabulary; a late unrelated item can
// ride in on that accumulated breadth. Known order-dependent drift, kept
// as is: downstream consumers rank by tier, and the tiers are unaffected.
func (v *Verifier) Verify(items []scrape.Item) []Fact {
	if len(items) == 0 {
		return nil
	}

	var clusters []*cluster
	for _, item := range items {
		text := usableText(item, v.MinTextLen)
		if text == "" {
			continue
		}
		tokens := tokenize(text)
		if len(tokens) == 0 {
			continue
		}

		matched := false
		for _, c := range clusters {
			if jaccard(tokens, c.tokens) >= similarityThreshold {
				c.items = append(c.items, item)
				for t := range tokens {
					c.tokens[t] = struct{}{}
				}
				matched = true
				break
			}
		}
		if !matched {
			clusters = append(clusters, &cluster{tokens: tokens, items: []scrape.Item{item}})
		}
	}

	facts := make([]Fact, 0, len(clusters))
	for _, c := range clusters {
		facts = append(facts, c.toFact())
	}

	// verified < partial < discarded, stable within tier
	order := map[string]int{Verified: 0, Partial: 1, Discarded: 2}
	sort.SliceStable(facts, func(i, j int) bool {
		return order[facts[i].Confidence] < order[facts[j].Confidence]
	})
	return facts
}

func (c *cluster) toFact() Fact {
	best := c.items[0]
	for _, it := range c.items[1:] {
		if len(it.Snippet) > len(best.Snippet) {
			best = it
		}
	}
	content := best.Snippet
	if content == "" {
		content = best.Title
	}

	// Prepend the best title when it contributes tokens the snippet lacks.
	bestTitle := ""
	for _, it := range c.items {
		if len(it.Title) > len(bestTitle) {
			bestTitle = it.Title
		}
	}
	if bestTitle != "" && bestTitle != content {
		titleTokens := tokenize(bestTitle)
		contentTokens := tokenize(content)
		extra := false
		for t := range titleTokens {
			if _, ok := contentTokens[t]; !ok {
				extra = true
				break
			}
		}
		if extra {
			content = bestTitle + ". " + content
		}
	}

	var urls, tags []string
	seenURL := map[string]struct{}{}
	seenTag := map[string]struct{}{}
	for _, it := range c.items {
		if it.URL != "" {
			if _, ok := seenURL[it.URL]; !ok {
				seenURL[it.URL] = struct{}{}
				urls = append(urls, it.URL)
			}
		}
		tag := string(it.Source)
		if _, ok := seenTag[tag]; !ok {
			seenTag[tag] = struct{}{}
			tags = append(tags, tag)
		}
	}

	confidence := Discarded
	switch {
	case len(tags) >= 2:
		confidence = Verified
	case len(tags) == 1 && len(urls) > 0:
		confidence = Partial
	}

	return Fact{Content: content, SourceURLs: urls, SourceTags: tags, Confidence: confidence}
}

// usableText returns the snippet, falling back to the title when the
// snippet is missing or under the threshold. "" means the item is skipped.
// Lengths are in runes; accented text must not measure longer than it reads.
func usableText(item scrape.Item, minLen int) string {
	snippet := strings.TrimSpace(item.Snippet)
	if utf8.RuneCountInString(snippet) >= minLen {
		return snippet
	}
	title := strings.TrimSpace(item.Title)
	if utf8.RuneCountInString(title) >= minLen {
		return title
	}
	return ""
}

func tokenize(text string) map[string]struct{} {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	tokens := map[string]struct{}{}
	for _, w := range strings.Fields(cleaned) {
		if len([]rune(w)) < minTokenLen {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		tokens[w] = struct{}{}
	}
	return tokens
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
