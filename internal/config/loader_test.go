package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	moderr "github.com/lizzyg/toolflow/errors"
)

const sampleConfig = `
toolflow:
  dotenv: %s
  default_model: flash
  models:
    flash:
      provider: gemini
      model: gemini-2.0-flash
      api_key: ${TOOLFLOW_TEST_KEY}
      max_output_tokens: 2048
      retry:
        max_attempts: 2
        base_delay: 10ms
    sdk:
      provider: genai
      model: gemini-1.5-pro
      api_key: ${TOOLFLOW_TEST_UNSET}
  loop:
    max_remote_calls: 4
    forced_tool_mode: true
`

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParse_FileDotenvAndDefaults(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("TOOLFLOW_TEST_KEY=from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("TOOLFLOW_TEST_KEY") })

	cfg, err := Parse(writeConfig(t, dir, fmt.Sprintf(sampleConfig, envPath)))
	require.NoError(t, err)

	assert.Equal(t, "flash", cfg.DefaultModel)
	flash := cfg.Models["flash"]
	assert.Equal(t, "gemini", flash.Provider)
	assert.Equal(t, "from-dotenv", flash.APIKey)
	assert.Equal(t, 2048, flash.MaxOutputTokens)
	assert.Equal(t, 2, flash.Retry.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, flash.Retry.BaseDelay)
	assert.Empty(t, cfg.Models["sdk"].APIKey)

	// unset loop keys keep their defaults
	assert.Equal(t, 4, cfg.Loop.MaxRemoteCalls)
	assert.True(t, cfg.Loop.ForcedToolMode)
	assert.True(t, cfg.Loop.AutomaticCalling)
	assert.Equal(t, 1, cfg.Loop.MaxParallelTools)
}

func TestParse_EnvironmentWinsOverDotenv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("TOOLFLOW_TEST_KEY=from-dotenv\n"), 0o600))
	t.Setenv("TOOLFLOW_TEST_KEY", "from-env")

	cfg, err := Parse(writeConfig(t, dir, fmt.Sprintf(sampleConfig, envPath)))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Models["flash"].APIKey)
}

func TestParse_PrefixedOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TOOLFLOW__MODELS__flash__MODEL", "gemini-2.5-flash")
	t.Setenv("TOOLFLOW__LOOP__MAX_PARALLEL_TOOLS", "4")

	cfg, err := Parse(writeConfig(t, dir, fmt.Sprintf(sampleConfig, filepath.Join(dir, "missing.env"))))
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", cfg.Models["flash"].Model)
	assert.Equal(t, 4, cfg.Loop.MaxParallelTools)
}

func TestParse_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := Parse(filepath.Join(dir, "nope.yaml"))
	require.Error(t, err)

	_, err = Parse(writeConfig(t, dir, "toolflow:\n  default_model: ghost\n  models: {}\n"))
	require.ErrorIs(t, err, moderr.ErrNoMatchingModel)

	_, err = Parse(writeConfig(t, dir, "toolflow:\n  loop:\n    max_remote_calls: 0\n"))
	require.ErrorIs(t, err, moderr.ErrInvalidLoopConfig)
}

func TestLoad_CachesUntilReset(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(pathEnv, writeConfig(t, dir, "toolflow:\n  dotenv: "+filepath.Join(dir, "none.env")+"\n  loop:\n    max_remote_calls: 3\n"))
	ResetForTest()
	t.Cleanup(ResetForTest)

	first, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, first.Loop.MaxRemoteCalls)

	writeConfig(t, dir, "toolflow:\n  dotenv: "+filepath.Join(dir, "none.env")+"\n  loop:\n    max_remote_calls: 7\n")
	again, err := Load()
	require.NoError(t, err)
	assert.Same(t, first, again)

	ResetForTest()
	reloaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, reloaded.Loop.MaxRemoteCalls)
}

func TestRequireKey(t *testing.T) {
	t.Setenv("TOOLFLOW_TEST_REQUIRED", "  abc ")
	v, err := RequireKey("TOOLFLOW_TEST_REQUIRED")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	_, err = RequireKey("TOOLFLOW_TEST_DEFINITELY_UNSET")
	require.ErrorIs(t, err, moderr.ErrMissingAPIKey)
}

func TestResolveEnvString(t *testing.T) {
	t.Setenv("TOOLFLOW_TEST_HOST", "localhost")
	t.Setenv("TOOLFLOW_TEST_PORT", "8080")

	assert.Equal(t, "localhost:8080", resolveEnvString("${TOOLFLOW_TEST_HOST}:${TOOLFLOW_TEST_PORT}"))
	assert.Equal(t, "key--x", resolveEnvString("key-${TOOLFLOW_TEST_NOT_SET}-x"))
	assert.Equal(t, "no-vars-here", resolveEnvString("no-vars-here"))
}
