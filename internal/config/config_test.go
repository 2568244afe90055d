package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porter/internal/dialect"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "porter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Project.Root)
	assert.Equal(t, "python3", cfg.Translate.SourceVersion)
	assert.Equal(t, "typescript", cfg.Translate.TargetDialect)
	assert.Equal(t, "warn", cfg.Translate.Unsupported)
	assert.Equal(t, 2, cfg.Translate.IndentWidth)
	assert.Equal(t, 4, cfg.Translate.Jobs)
	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, 3, cfg.AI.MaxAttempts)
	assert.Contains(t, cfg.Project.Ignore, "__pycache__")
}

func TestLoadConfig_FileValues(t *testing.T) {
	path := writeConfig(t, `
project:
  root: ./src
  ignore: [vendor]
translate:
  unsupported_policy: fail
  indent_width: 4
  jobs: 8
ai:
  model: gemini-2.5-pro
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "./src", cfg.Project.Root)
	assert.Equal(t, []string{"vendor"}, cfg.Project.Ignore)
	assert.Equal(t, "fail", cfg.Translate.Unsupported)
	assert.Equal(t, 4, cfg.Translate.IndentWidth)
	assert.Equal(t, 8, cfg.Translate.Jobs)
	assert.Equal(t, "gemini-2.5-pro", cfg.AI.Model)
	// Unset fields still default.
	assert.Equal(t, "python3", cfg.Translate.SourceVersion)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "ai:\n  api_key: from-file\n")
	t.Setenv("PORTER_API_KEY", "from-env")
	t.Setenv("PORTER_AI_PROVIDER", "vertex")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.AI.APIKey)
	assert.Equal(t, "vertex", cfg.AI.Provider)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "project: [not: a: mapping\n")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfig_Profile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	profile, err := cfg.Profile()
	require.NoError(t, err)
	assert.Equal(t, dialect.PolicyWarn, profile.Unsupported)
	assert.Equal(t, 2, profile.IndentWidth)

	cfg.Translate.Unsupported = "explode"
	_, err = cfg.Profile()
	assert.Error(t, err)
}
