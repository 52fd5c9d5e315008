package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test,
// mirroring t.Chdir from newer Go releases.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "bom-pricer.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 100, cfg.Crawl.MaxBOMLines)
	assert.Equal(t, 5, cfg.Crawl.PollAttempts)
	assert.Equal(t, "https://www.aliexpress.com/wholesale?SearchText=", cfg.Crawl.SearchBaseURL)
	assert.Equal(t, "prod", cfg.Ingest.Source)

	assert.Equal(t, 1.0, cfg.FX.Rates["usd"])
	assert.InDelta(t, 1.0/320.0, cfg.FX.Rates["lkr"], 1e-9)

	sc := cfg.Scoring.ToScoring()
	assert.Equal(t, 0.85, sc.BaseConfidence)
	assert.Equal(t, 0.45, sc.Blend.Confidence)
	assert.Equal(t, 0.30, sc.Feedback.Rating)
	assert.Equal(t, 0.3, sc.TrustCap)
}

func TestLoadEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BOMPRICER_STORE_DRIVER", "postgres")
	t.Setenv("BOMPRICER_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
store:
  driver: postgres
  database_url: postgres://localhost/bom
crawl:
  max_bom_lines: 25
scoring:
  trust_cap: 0.5
`), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 25, cfg.Crawl.MaxBOMLines)
	assert.Equal(t, 0.5, cfg.Scoring.TrustCap)
	// Untouched keys keep their defaults.
	assert.Equal(t, 5, cfg.Crawl.PollAttempts)
}

func TestLoadRatesFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	path := filepath.Join(dir, "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("EUR: 1.08\nLKR: 0.0033\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("fx:\n  rates_file: "+path+"\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 1.08, cfg.FX.Rates["eur"])
	// File entries override built-in defaults.
	assert.Equal(t, 0.0033, cfg.FX.Rates["lkr"])
}

func TestLoadRatesFileMissing(t *testing.T) {
	_, err := LoadRatesFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shout", Format: "json"})
	assert.Error(t, err)
}
