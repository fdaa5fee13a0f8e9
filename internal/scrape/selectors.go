package scrape

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Engine markup rots constantly, so the concrete CSS selectors live here as
// versioned configuration rather than inline in the adapters. A drifted
// selector is a config change, not a code change.

// EngineSelectors describes the repeating result-block structure of one
// engine's result page.
type EngineSelectors struct {
	Result  string `yaml:"result"`
	Link    string `yaml:"link"`
	Title   string `yaml:"title"`
	Snippet string `yaml:"snippet"`
	Time    string `yaml:"time"`
}

type Selectors struct {
	Version    int             `yaml:"version"`
	Google     EngineSelectors `yaml:"google"`
	GoogleNews EngineSelectors `yaml:"google_news"`
	DuckDuckGo EngineSelectors `yaml:"duckduckgo"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Version: 1,
		Google: EngineSelectors{
			Result:  "div.g",
			Link:    "a[href]",
			Title:   "h3",
			Snippet: "div[data-sncf], div.VwiC3b, span.aCOpRe",
		},
		GoogleNews: EngineSelectors{
			Result:  "div.SoaBEf, div.dbsr, div.g",
			Link:    "a[href]",
			Title:   "div.mCBkyc, div.JheGif, h3",
			Snippet: "div.GI74Re, div.Y3v8qd, div.VwiC3b",
			Time:    "span.WG9SHc, div.OSrXXb span, span.f",
		},
		DuckDuckGo: EngineSelectors{
			Result:  "div.result",
			Link:    "a.result__a",
			Title:   "a.result__a",
			Snippet: "a.result__snippet, .result__snippet, span.result__snippet",
		},
	}
}

// LoadSelectors reads a YAML override file on top of the defaults. An empty
// path means defaults only.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()
	if path == "" {
		return sel, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return sel, fmt.Errorf("read selectors: %w", err)
	}
	if err := yaml.Unmarshal(raw, &sel); err != nil {
		return sel, fmt.Errorf("parse selectors: %w", err)
	}
	return sel, nil
}
