package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Scraper.PageTimeout)
	assert.Equal(t, 10*time.Second, cfg.Scraper.ImageTimeout)
	assert.Equal(t, int64(10<<20), cfg.Scraper.MaxPageBytes)
	assert.True(t, cfg.Scraper.TLSFingerprint)
	assert.False(t, cfg.Scraper.TLSFallback)
	assert.Equal(t, DefaultUserAgent, cfg.Scraper.UserAgent)
	assert.Equal(t, "static/scraped_images", cfg.Output.Dir)
	assert.Equal(t, "/static/scraped_images", cfg.Output.PublicPrefix)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Auth.APIKeys)
	assert.Equal(t, 5.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 10, cfg.RateLimit.Burst)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BANNERGRAB_PORT", "9090")
	t.Setenv("BANNERGRAB_PAGE_TIMEOUT", "45s")
	t.Setenv("BANNERGRAB_TLS_FINGERPRINT", "false")
	t.Setenv("BANNERGRAB_PUBLIC_PREFIX", "/files/")
	t.Setenv("BANNERGRAB_BATCH_CONCURRENCY", "8")
	t.Setenv("BANNERGRAB_PRESETS_FILE", "/etc/bannergrab/presets.yaml")
	t.Setenv("BANNERGRAB_API_KEYS", "alpha, ,beta")
	t.Setenv("BANNERGRAB_RATE_RPS", "0.5")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 45*time.Second, cfg.Scraper.PageTimeout)
	assert.False(t, cfg.Scraper.TLSFingerprint)
	assert.Equal(t, "/files", cfg.Output.PublicPrefix)
	assert.Equal(t, 8, cfg.Batch.Concurrency)
	assert.Equal(t, "/etc/bannergrab/presets.yaml", cfg.Rules.PresetsFile)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Auth.APIKeys)
	assert.Equal(t, 0.5, cfg.RateLimit.RequestsPerSecond)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("BANNERGRAB_PORT", "eighty")
	t.Setenv("BANNERGRAB_CACHE_TTL", "forever")

	cfg := Load()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
}

func TestLoadRuleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
include_terms: [hero, banner]
exclude_terms: [thumbnail]
min_width: 0
allowed_formats: [png]
`), 0o644))

	rf, err := LoadRuleFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"hero", "banner"}, rf.IncludeTerms)
	assert.Equal(t, []string{"thumbnail"}, rf.ExcludeTerms)
	require.NotNil(t, rf.MinWidth)
	assert.Equal(t, 0, *rf.MinWidth)
	assert.Nil(t, rf.MinHeight)
	assert.Equal(t, []string{"png"}, rf.AllowedFormats)
}

func TestLoadRuleFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("include_terms: {not: [a list"), 0o644))

	_, err := LoadRuleFile(path)
	assert.Error(t, err)
}

func TestLoadPresets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
presets:
  hero-only:
    include_terms: [hero]
  big:
    min_width: 1000
    min_height: 300
`), 0o644))

	presets, err := LoadPresets(path)
	require.NoError(t, err)
	require.Len(t, presets, 2)
	assert.Equal(t, []string{"hero"}, presets["hero-only"].IncludeTerms)
	assert.Equal(t, 1000, *presets["big"].MinWidth)
}

func TestLoadPresets_Empty(t *testing.T) {
	presets, err := LoadPresets("")
	require.NoError(t, err)
	assert.Empty(t, presets)

	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("# nothing yet\n"), 0o644))
	presets, err = LoadPresets(path)
	require.NoError(t, err)
	assert.Empty(t, presets)
}
