package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user directories at a temp dir so no real config leaks in
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("APPDATA", home)
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://hianime.to", cfg.Site.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Cache.Freshness)
	assert.Equal(t, 30*time.Minute, cfg.Cache.Staleness)
	assert.Equal(t, time.Hour, cfg.Scheduler.SweepInterval)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.EpisodeCheckInterval)
	assert.False(t, cfg.Logging.Debug)
	assert.Contains(t, cfg.Storage.DataDir, home)
	assert.Equal(t, filepath.Join(cfg.Storage.DataDir, "library.db"), cfg.LibraryPath())
	assert.Equal(t, filepath.Join(cfg.Storage.DataDir, "settings.db"), cfg.SettingsPath())
}

func TestLoadFile(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "custom.yaml")
	content := `site:
  base_url: https://mirror.test
cache:
  freshness: 2m
  staleness: 10m
storage:
  data_dir: /var/lib/hianime
logging:
  debug: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://mirror.test", cfg.Site.BaseURL)
	assert.Equal(t, 2*time.Minute, cfg.Cache.Freshness)
	assert.Equal(t, 10*time.Minute, cfg.Cache.Staleness)
	assert.Equal(t, "/var/lib/hianime", cfg.Storage.DataDir)
	assert.True(t, cfg.Logging.Debug)
	// untouched keys keep their defaults
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("HIANIME_SITE_BASE_URL", "https://env.test")
	t.Setenv("HIANIME_CACHE_FRESHNESS", "1m")
	t.Setenv("HIANIME_LOGGING_DEBUG", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://env.test", cfg.Site.BaseURL)
	assert.Equal(t, time.Minute, cfg.Cache.Freshness)
	assert.True(t, cfg.Logging.Debug)
}

func TestRejectsInvertedCacheWindows(t *testing.T) {
	isolate(t)
	t.Setenv("HIANIME_CACHE_FRESHNESS", "1h")
	t.Setenv("HIANIME_CACHE_STALENESS", "10m")

	_, err := Load("")
	assert.ErrorContains(t, err, "cache.staleness")
}
