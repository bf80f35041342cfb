package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	ws := t.TempDir()

	cfg, err := Load(ws)
	require.NoError(t, err)

	assert.Equal(t, "intake", cfg.Name)
	assert.Equal(t, 60*time.Second, cfg.Scorer.TimeoutDuration())
	assert.Equal(t, filepath.Join(ws, ".intake", "sessions.db"), cfg.Store.DatabasePath)
}

func TestLoad_FileValues(t *testing.T) {
	ws := t.TempDir()
	dir := filepath.Join(ws, ".intake")
	require.NoError(t, os.MkdirAll(dir, 0755))
	body := `
scorer:
  base_url: https://scorer.example.com
  timeout: 30s
store:
  database_path: custom/sessions.db
logging:
  debug_mode: true
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644))

	cfg, err := Load(ws)
	require.NoError(t, err)

	assert.Equal(t, "https://scorer.example.com", cfg.Scorer.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Scorer.TimeoutDuration())
	assert.Equal(t, filepath.Join(ws, "custom", "sessions.db"), cfg.Store.DatabasePath)
	assert.True(t, cfg.Logging.DebugMode)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Run("INTAKE_SCORER_URL wins over file", func(t *testing.T) {
		ws := t.TempDir()
		dir := filepath.Join(ws, ".intake")
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
			[]byte("scorer:\n  base_url: https://file.example.com\n"), 0644))

		t.Setenv("INTAKE_SCORER_URL", "https://env.example.com")

		cfg, err := Load(ws)
		require.NoError(t, err)
		assert.Equal(t, "https://env.example.com", cfg.Scorer.BaseURL)
	})

	t.Run("INTAKE_SCORER_KEY sets api key", func(t *testing.T) {
		t.Setenv("INTAKE_SCORER_KEY", "sk-test")

		cfg, err := Load(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, "sk-test", cfg.Scorer.APIKey)
	})

	t.Run("INTAKE_DB_PATH absolute path kept verbatim", func(t *testing.T) {
		t.Setenv("INTAKE_DB_PATH", "/var/lib/intake/sessions.db")

		cfg, err := Load(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, "/var/lib/intake/sessions.db", cfg.Store.DatabasePath)
	})
}

func TestTimeoutDuration_Invalid(t *testing.T) {
	s := ScorerConfig{Timeout: "not-a-duration"}
	assert.Equal(t, 60*time.Second, s.TimeoutDuration())

	s = ScorerConfig{Timeout: "-5s"}
	assert.Equal(t, 60*time.Second, s.TimeoutDuration())
}

func TestSaveRoundTrip(t *testing.T) {
	ws := t.TempDir()

	cfg := DefaultConfig()
	cfg.Scorer.BaseURL = "https://scorer.example.com"
	require.NoError(t, cfg.Save(ws))

	loaded, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, "https://scorer.example.com", loaded.Scorer.BaseURL)
}
