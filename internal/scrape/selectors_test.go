package scrape

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSelectorsEmptyPath(t *testing.T) {
	sel, err := LoadSelectors("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSelectors(), sel)
}

func TestLoadSelectorsOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
version: 2
google:
  result: "div.updated"
  link: "a[href]"
  title: "h3"
  snippet: "div.snip"
`), 0o600))

	sel, err := LoadSelectors(path)
	require.NoError(t, err)
	assert.Equal(t, 2, sel.Version)
	assert.Equal(t, "div.updated", sel.Google.Result)
	// Untouched engines keep their defaults.
	assert.Equal(t, DefaultSelectors().DuckDuckGo, sel.DuckDuckGo)
}

func TestLoadSelectorsMissingFileFallsBack(t *testing.T) {
	sel, err := LoadSelectors("/no/such/file.yaml")
	assert.Error(t, err)
	assert.Equal(t, DefaultSelectors(), sel)
}

func TestLoadSelectorsBadYAMLFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0o600))

	_, err := LoadSelectors(path)
	assert.Error(t, err)
}
