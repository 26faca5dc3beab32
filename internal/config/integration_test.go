package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/webgen/internal/errors"
)

// isolate points the global config at a temp dir, runs from another temp
// dir and clears every WEBGEN_* override.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Chdir(t.TempDir())
	for _, key := range Keys {
		t.Setenv(EnvVar(key), "")
		require.NoError(t, os.Unsetenv(EnvVar(key)))
	}
	return home
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultPreset, cfg.Preset)
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", cfg.APIURL)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.True(t, cfg.Stream)
	assert.True(t, cfg.Thinking)
	assert.Equal(t, 10000, cfg.ThinkingBudget)
	assert.Equal(t, 30, cfg.MaxIterations)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ".webgen", cfg.DataDir)
	assert.False(t, Exists())
}

func TestE2EConfigFlow(t *testing.T) {
	home := isolate(t)

	t.Run("SetupCreatesGlobalConfig", func(t *testing.T) {
		cfg := &Config{
			APIKey:         "sk-global",
			Preset:         "deepseek",
			Stream:         true,
			Thinking:       false,
			ThinkingBudget: 4096,
			MaxIterations:  12,
			LogLevel:       "debug",
			DataDir:        ".webgen",
		}
		require.NoError(t, WriteGlobal(cfg))
		assert.Equal(t, filepath.Join(home, "webgen", "webgen.yml"), GlobalPath())
		assert.FileExists(t, GlobalPath())
		assert.True(t, Exists())

		info, err := os.Stat(GlobalPath())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("LoadReadsGlobalConfig", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "sk-global", cfg.APIKey)
		assert.Equal(t, "deepseek", cfg.Preset)
		assert.Equal(t, "https://api.deepseek.com/v1/chat/completions", cfg.APIURL)
		assert.Equal(t, "deepseek-chat", cfg.Model)
		assert.False(t, cfg.Thinking)
		assert.Equal(t, 12, cfg.MaxIterations)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("ProjectOverridesGlobal", func(t *testing.T) {
		require.NoError(t, os.WriteFile(ProjectPath(), []byte("model: deepseek-coder\nmax_iterations: 5\n"), 0o644))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "deepseek-coder", cfg.Model)
		assert.Equal(t, 5, cfg.MaxIterations)
		assert.Equal(t, "sk-global", cfg.APIKey, "unset project keys keep the global value")
	})

	t.Run("EnvOverridesFiles", func(t *testing.T) {
		t.Setenv("WEBGEN_MODEL", "env-model")
		t.Setenv("WEBGEN_THINKING", "true")
		t.Setenv("WEBGEN_API_URL", "http://localhost:11434/v1/chat/completions")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "env-model", cfg.Model)
		assert.True(t, cfg.Thinking)
		assert.Equal(t, "http://localhost:11434/v1/chat/completions", cfg.APIURL)
	})

	t.Run("WriteProject", func(t *testing.T) {
		require.NoError(t, WriteProject(&Config{Preset: "ollama", MaxIterations: 3, LogLevel: "warn"}))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "ollama", cfg.Preset)
		assert.Equal(t, "http://localhost:11434/v1/chat/completions", cfg.APIURL)
		assert.Equal(t, "codellama", cfg.Model)
	})
}

func TestLoad_MalformedFile(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile(ProjectPath(), []byte("model: [unclosed\n"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			APIURL:         "https://api.openai.com/v1/chat/completions",
			APIKey:         "sk",
			Model:          "gpt-4o",
			Preset:         "openai",
			Thinking:       true,
			ThinkingBudget: 100,
			MaxIterations:  30,
			LogLevel:       "info",
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		fields []string
	}{
		{"valid", func(*Config) {}, nil},
		{"missing key", func(c *Config) { c.APIKey = "" }, []string{"api_key"}},
		{"ollama needs no key", func(c *Config) {
			c.Preset = "ollama"
			c.APIKey = ""
			c.APIURL = Presets["ollama"].APIURL
		}, nil},
		{"localhost url needs no key", func(c *Config) {
			c.Preset = ""
			c.APIKey = ""
			c.APIURL = "http://127.0.0.1:8080/v1/chat/completions"
		}, nil},
		{"unknown preset", func(c *Config) { c.Preset = "nope" }, []string{"preset"}},
		{"everything missing", func(c *Config) {
			c.APIURL, c.APIKey, c.Model = "", "", ""
		}, []string{"api_url", "model", "api_key"}},
		{"zero iterations", func(c *Config) { c.MaxIterations = 0 }, []string{"max_iterations"}},
		{"thinking without budget", func(c *Config) { c.ThinkingBudget = 0 }, []string{"thinking_budget"}},
		{"budget ignored when thinking off", func(c *Config) {
			c.Thinking = false
			c.ThinkingBudget = 0
		}, nil},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, []string{"log_level"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidInput)

			var multi *errors.MultiError
			require.ErrorAs(t, err, &multi)
			var got []string
			for _, e := range multi.Errors {
				var ve *errors.ValidationError
				require.ErrorAs(t, e, &ve)
				got = append(got, ve.Field)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestApplyPreset(t *testing.T) {
	cfg := &Config{Preset: "openai-3.5", Model: "custom"}
	cfg.ApplyPreset()
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", cfg.APIURL)
	assert.Equal(t, "custom", cfg.Model, "explicit model wins over the preset")

	unknown := &Config{Preset: "nope"}
	unknown.ApplyPreset()
	assert.Empty(t, unknown.APIURL)
}

func TestPresetNames(t *testing.T) {
	assert.Equal(t, []string{"deepseek", "ollama", "openai", "openai-3.5"}, PresetNames())
}

func TestEnvVar(t *testing.T) {
	assert.Equal(t, "WEBGEN_API_KEY", EnvVar("api_key"))
}
