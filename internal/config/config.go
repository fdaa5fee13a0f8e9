package config

import (
	"os"
	"strconv"
	"time"
)

// Settings holds everything the acquisition pipeline needs. One instance is
// built at startup and passed down; nothing in the pipeline reads the
// environment directly.
type Settings struct {
	// Per-request timeout for a single HTTP fetch.
	RequestTimeout time.Duration
	// Global deadline for one whole investigation run.
	GlobalDeadline time.Duration
	// Cap on items produced by any single source.
	MaxPerSource int
	// Snippets (or fallback titles) shorter than this never reach the verifier.
	MinSnippetLen int

	UserAgent    string
	AcceptLang   string   // Accept-Language header value
	SearchLang   string   // "hl" hint sent to search engines
	CountryHosts []string // professional-network hosts to probe directly
	EngineURL    string   // rate-limited engine endpoint

	PerplexityAPIKey  string
	PerplexityBaseURL string
	PerplexityModel   string

	// Optional YAML file overriding the built-in engine selectors.
	SelectorsPath string
}

func Defaults() Settings {
	return Settings{
		RequestTimeout: 15 * time.Second,
		GlobalDeadline: 25 * time.Second,
		MaxPerSource:   10,
		MinSnippetLen:  10,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		AcceptLang:     "es-CL,es;q=0.9,en;q=0.8",
		SearchLang:     "es",
		CountryHosts:   []string{"www.linkedin.com", "cl.linkedin.com"},
		EngineURL:      "https://html.duckduckgo.com/html/",

		PerplexityBaseURL: "https://api.perplexity.ai",
		PerplexityModel:   "sonar-pro",
	}
}

// FromEnv layers PROSPECT_* environment variables over the defaults.
func FromEnv() Settings {
	s := Defaults()

	if v := os.Getenv("PERPLEXITY_API_KEY"); v != "" {
		s.PerplexityAPIKey = v
	}
	if v := os.Getenv("PROSPECT_PERPLEXITY_MODEL"); v != "" {
		s.PerplexityModel = v
	}
	if v := os.Getenv("PROSPECT_USER_AGENT"); v != "" {
		s.UserAgent = v
	}
	if v := os.Getenv("PROSPECT_SELECTORS"); v != "" {
		s.SelectorsPath = v
	}
	if v := os.Getenv("PROSPECT_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.RequestTimeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("PROSPECT_DEADLINE_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.GlobalDeadline = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("PROSPECT_MAX_PER_SOURCE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.MaxPerSource = n
		}
	}

	return s
}

// Validate reports non-fatal gaps. A missing Perplexity key only disables
// the knowledge channel, so callers log warnings instead of aborting.
func (s Settings) Validate() []string {
	var warnings []string
	if s.PerplexityAPIKey == "" {
		warnings = append(warnings, "PERPLEXITY_API_KEY not set: knowledge channel disabled")
	}
	return warnings
}
