package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/webgen/internal/config"
)

func TestConfigCommand(t *testing.T) {
	t.Run("runs without error when no config exists", func(t *testing.T) {
		isolate(t)
		buf := capture(t, configCmd)

		require.NoError(t, runConfig(configCmd, nil))
		assert.Contains(t, buf.String(), "No config files found")
		assert.Contains(t, buf.String(), "gpt-4o")
	})

	t.Run("displays global config when it exists", func(t *testing.T) {
		isolate(t)
		buf := capture(t, configCmd)

		configDir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "webgen")
		require.NoError(t, os.MkdirAll(configDir, 0755))
		content := "preset: deepseek\napi_key: sk-abcdefghijkl\ndata_dir: test-data\n"
		require.NoError(t, os.WriteFile(filepath.Join(configDir, "webgen.yml"), []byte(content), 0644))

		require.NoError(t, runConfig(configCmd, nil))
		out := buf.String()
		assert.Contains(t, out, "deepseek-chat")
		assert.Contains(t, out, "test-data")
		assert.Contains(t, out, "****ijkl")
		assert.NotContains(t, out, "sk-abcdefghijkl")
		assert.NotContains(t, out, "No config files found")
	})

	t.Run("shows environment overrides", func(t *testing.T) {
		isolate(t)
		buf := capture(t, configCmd)
		t.Setenv("WEBGEN_MODEL", "env-model")
		t.Setenv("WEBGEN_API_KEY", "sk-from-environment")

		require.NoError(t, runConfig(configCmd, nil))
		out := buf.String()
		assert.Contains(t, out, "Environment Overrides")
		assert.Contains(t, out, "WEBGEN_MODEL")
		assert.Contains(t, out, "env-model")
		assert.NotContains(t, out, "sk-from-environment")
	})
}

func TestSetupCommand(t *testing.T) {
	reset := func(t *testing.T) {
		t.Cleanup(func() {
			setupFlags.project = false
			setupFlags.force = false
			setupFlags.preset = config.DefaultPreset
			setupFlags.model = ""
			setupFlags.apiURL = ""
			setupFlags.apiKey = ""
		})
	}

	t.Run("writes global config from preset", func(t *testing.T) {
		isolate(t)
		reset(t)
		capture(t, setupCmd)
		setupFlags.preset = "ollama"

		require.NoError(t, runSetup(setupCmd, nil))

		cfg, err := config.Load()
		require.NoError(t, err)
		assert.Equal(t, "ollama", cfg.Preset)
		assert.Equal(t, "codellama", cfg.Model)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("project config with explicit model", func(t *testing.T) {
		dir := isolate(t)
		reset(t)
		capture(t, setupCmd)
		setupFlags.project = true
		setupFlags.model = "gpt-4o-mini"
		setupFlags.apiKey = "sk-project"

		require.NoError(t, runSetup(setupCmd, nil))
		assert.FileExists(t, filepath.Join(dir, "webgen.yml"))

		cfg, err := config.Load()
		require.NoError(t, err)
		assert.Equal(t, "gpt-4o-mini", cfg.Model)
		assert.Equal(t, "sk-project", cfg.APIKey)
	})

	t.Run("refuses to overwrite without force", func(t *testing.T) {
		isolate(t)
		reset(t)
		capture(t, setupCmd)

		require.NoError(t, runSetup(setupCmd, nil))
		err := runSetup(setupCmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")

		setupFlags.force = true
		assert.NoError(t, runSetup(setupCmd, nil))
	})

	t.Run("unknown preset", func(t *testing.T) {
		isolate(t)
		reset(t)
		capture(t, setupCmd)
		setupFlags.preset = "nope"

		assert.Error(t, runSetup(setupCmd, nil))
		assert.NoFileExists(t, config.GlobalPath())
	})
}
