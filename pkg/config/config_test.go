package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equipviz/equipviz/pkg/config"
)

func TestDurationUnmarshalJSON(t *testing.T) {
	scenarios := []struct {
		name     string
		input    string
		expected time.Duration
		fails    bool
	}{
		{name: "nanoseconds as number", input: `1500`, expected: 1500 * time.Nanosecond},
		{name: "duration string", input: `"2m"`, expected: 2 * time.Minute},
		{name: "invalid string", input: `"soon"`, fails: true},
		{name: "boolean", input: `true`, fails: true},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			var d config.Duration
			err := json.Unmarshal([]byte(scenario.input), &d)
			if scenario.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, scenario.expected, d.Duration)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.UploadModeLenient, cfg.UploadMode)
	assert.Equal(t, config.DefaultRetentionLimit, cfg.RetentionLimit)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout.Duration)
	assert.Equal(t, "X-Remote-User", cfg.OwnerHeader)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EQUIPVIZ_UPLOAD_MODE", "strict")
	t.Setenv("EQUIPVIZ_RETENTION_LIMIT", "3")
	t.Setenv("EQUIPVIZ_SHUTDOWN_TIMEOUT", "5s")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.UploadModeStrict, cfg.UploadMode)
	assert.Equal(t, 3, cfg.RetentionLimit)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout.Duration)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "equipviz.yaml")
	content := "store_url: postgres://localhost/equipviz\nmask_forbidden: true\nslow_query_threshold: 1s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/equipviz", cfg.StoreURL)
	assert.True(t, cfg.MaskForbidden)
	assert.Equal(t, time.Second, cfg.SlowQueryThreshold.Duration)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("EQUIPVIZ_UPLOAD_MODE", "relaxed")
	t.Setenv("EQUIPVIZ_RETENTION_LIMIT", "0")

	_, err := config.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload_mode")
	assert.Contains(t, err.Error(), "retention_limit")
}

func TestLoadMissingConfigFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

// inDir runs the rest of the test from dir so Load picks up dir/.env.
func inDir(t *testing.T, dir string) {
	t.Helper()

	previous, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(previous) })
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	inDir(t, dir)

	dotenv := "EQUIPVIZ_RETENTION_LIMIT=7\nEQUIPVIZ_LOG_LEVEL=debug\nEQUIPVIZ_UPLOAD_MODE=strict\nOTHER=ignored\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0o600))

	path := filepath.Join(dir, "equipviz.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retention_limit: 3\nupload_mode: lenient\n"), 0o600))

	t.Setenv("EQUIPVIZ_UPLOAD_MODE", "strict")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	// config file beats .env
	assert.Equal(t, 3, cfg.RetentionLimit)
	// .env beats defaults
	assert.Equal(t, "debug", cfg.LogLevel)
	// env beats config file
	assert.Equal(t, config.UploadModeStrict, cfg.UploadMode)

	_, exported := os.LookupEnv("EQUIPVIZ_RETENTION_LIMIT")
	assert.False(t, exported)
}
