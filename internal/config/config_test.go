package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	s := Defaults()
	assert.Equal(t, 15*time.Second, s.RequestTimeout)
	assert.Equal(t, 25*time.Second, s.GlobalDeadline)
	assert.Equal(t, 10, s.MaxPerSource)
	assert.NotEmpty(t, s.UserAgent)
	assert.NotEmpty(t, s.CountryHosts)
	assert.NotEmpty(t, s.EngineURL)
	assert.Equal(t, "sonar-pro", s.PerplexityModel)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PERPLEXITY_API_KEY", "pplx-abc")
	t.Setenv("PROSPECT_PERPLEXITY_MODEL", "sonar")
	t.Setenv("PROSPECT_TIMEOUT_SECONDS", "7")
	t.Setenv("PROSPECT_DEADLINE_SECONDS", "40")
	t.Setenv("PROSPECT_MAX_PER_SOURCE", "5")
	t.Setenv("PROSPECT_SELECTORS", "/etc/prospect/selectors.yaml")

	s := FromEnv()
	assert.Equal(t, "pplx-abc", s.PerplexityAPIKey)
	assert.Equal(t, "sonar", s.PerplexityModel)
	assert.Equal(t, 7*time.Second, s.RequestTimeout)
	assert.Equal(t, 40*time.Second, s.GlobalDeadline)
	assert.Equal(t, 5, s.MaxPerSource)
	assert.Equal(t, "/etc/prospect/selectors.yaml", s.SelectorsPath)
}

func TestFromEnvIgnoresBadNumbers(t *testing.T) {
	t.Setenv("PROSPECT_TIMEOUT_SECONDS", "not-a-number")
	t.Setenv("PROSPECT_MAX_PER_SOURCE", "-2")

	s := FromEnv()
	assert.Equal(t, Defaults().RequestTimeout, s.RequestTimeout)
	assert.Equal(t, Defaults().MaxPerSource, s.MaxPerSource)
}

func TestValidateWarnsOnMissingKey(t *testing.T) {
	s := Defaults()
	assert.NotEmpty(t, s.Validate())

	s.PerplexityAPIKey = "pplx-abc"
	assert.Empty(t, s.Validate())
}
