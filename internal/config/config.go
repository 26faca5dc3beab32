// Package config loads webgen settings from YAML files and WEBGEN_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/webgen/internal/errors"
	"github.com/mark3labs/webgen/internal/logger"
)

const (
	appName  = "webgen"
	fileName = "webgen.yml"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "WEBGEN"

	DefaultPreset = "openai"
)

// Config holds the resolved settings.
type Config struct {
	APIURL         string            `mapstructure:"api_url" yaml:"api_url"`
	APIKey         string            `mapstructure:"api_key" yaml:"api_key"`
	Model          string            `mapstructure:"model" yaml:"model"`
	Preset         string            `mapstructure:"preset" yaml:"preset"`
	Headers        map[string]string `mapstructure:"headers" yaml:"headers,omitempty"`
	Stream         bool              `mapstructure:"stream" yaml:"stream"`
	Thinking       bool              `mapstructure:"thinking" yaml:"thinking"`
	ThinkingBudget int               `mapstructure:"thinking_budget" yaml:"thinking_budget"`
	MaxIterations  int               `mapstructure:"max_iterations" yaml:"max_iterations"`

	SystemPromptFile string `mapstructure:"system_prompt_file" yaml:"system_prompt_file,omitempty"`
	TemplatesFile    string `mapstructure:"templates_file" yaml:"templates_file,omitempty"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	LogFile  string `mapstructure:"log_file" yaml:"log_file,omitempty"`
	DataDir  string `mapstructure:"data_dir" yaml:"data_dir"`

	TavilyAPIKey string `mapstructure:"tavily_api_key" yaml:"tavily_api_key,omitempty"`
	TavilyAPIURL string `mapstructure:"tavily_api_url" yaml:"tavily_api_url,omitempty"`
}

// Preset is a named endpoint and model pair.
type Preset struct {
	APIURL      string
	Model       string
	KeyRequired bool
}

// Presets lists the built-in endpoint presets.
var Presets = map[string]Preset{
	"openai":     {APIURL: "https://api.openai.com/v1/chat/completions", Model: "gpt-4o", KeyRequired: true},
	"openai-3.5": {APIURL: "https://api.openai.com/v1/chat/completions", Model: "gpt-3.5-turbo", KeyRequired: true},
	"deepseek":   {APIURL: "https://api.deepseek.com/v1/chat/completions", Model: "deepseek-chat", KeyRequired: true},
	"ollama":     {APIURL: "http://localhost:11434/v1/chat/completions", Model: "codellama"},
}

// PresetNames returns the preset names sorted.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for n := range Presets {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

var logLevels = []string{"debug", "info", "warn", "warning", "error"}

// Keys lists every configuration key, in display order.
var Keys = []string{
	"api_url", "api_key", "model", "preset", "headers",
	"stream", "thinking", "thinking_budget", "max_iterations",
	"system_prompt_file", "templates_file",
	"log_level", "log_file", "data_dir",
	"tavily_api_key", "tavily_api_url",
}

// EnvVar returns the environment variable overriding key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", "")
	v.SetDefault("api_key", "")
	v.SetDefault("model", "")
	v.SetDefault("preset", DefaultPreset)
	v.SetDefault("headers", map[string]string{})
	v.SetDefault("stream", true)
	v.SetDefault("thinking", true)
	v.SetDefault("thinking_budget", 10000)
	v.SetDefault("max_iterations", 30)
	v.SetDefault("system_prompt_file", "")
	v.SetDefault("templates_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("data_dir", ".webgen")
	v.SetDefault("tavily_api_key", "")
	v.SetDefault("tavily_api_url", "")
}

// Load resolves the configuration. Precedence, highest first: WEBGEN_*
// environment variables, ./webgen.yml, the global file, defaults. The
// preset then fills an empty api_url or model.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	for i, path := range []string{GlobalPath(), ProjectPath()} {
		if !fileExists(path) {
			continue
		}
		v.SetConfigFile(path)
		read := v.MergeInConfig
		if i == 0 {
			read = v.ReadInConfig
		}
		if err := read(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		logger.Debug("Loaded config from %s", path)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.ApplyPreset()
	return &cfg, nil
}

// ApplyPreset fills an empty APIURL or Model from the named preset.
// Unknown presets are left for Validate to report.
func (c *Config) ApplyPreset() {
	p, ok := Presets[c.Preset]
	if !ok {
		return
	}
	if c.APIURL == "" {
		c.APIURL = p.APIURL
	}
	if c.Model == "" {
		c.Model = p.Model
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs errors.MultiError

	if c.Preset != "" {
		if _, ok := Presets[c.Preset]; !ok {
			errs.Append(errors.NewValidationError("preset", c.Preset,
				fmt.Sprintf("unknown preset (available: %s)", strings.Join(PresetNames(), ", "))))
		}
	}
	if c.APIURL == "" {
		errs.Append(errors.NewValidationError("api_url", "", "api_url is required"))
	}
	if c.Model == "" {
		errs.Append(errors.NewValidationError("model", "", "model is required"))
	}
	if c.APIKey == "" && c.keyRequired() {
		errs.Append(errors.NewValidationError("api_key", "",
			fmt.Sprintf("api_key is required (set %s)", EnvVar("api_key"))))
	}
	if c.MaxIterations < 1 {
		errs.Append(errors.NewValidationError("max_iterations", fmt.Sprint(c.MaxIterations), "max_iterations must be at least 1"))
	}
	if c.Thinking && c.ThinkingBudget < 1 {
		errs.Append(errors.NewValidationError("thinking_budget", fmt.Sprint(c.ThinkingBudget), "thinking_budget must be positive"))
	}
	if !slices.Contains(logLevels, strings.ToLower(c.LogLevel)) {
		errs.Append(errors.NewValidationError("log_level", c.LogLevel, "log_level must be debug, info, warn or error"))
	}
	return errs.ErrorOrNil()
}

// keyRequired reports whether the endpoint needs a bearer token. Local
// endpoints such as ollama do not.
func (c *Config) keyRequired() bool {
	if p, ok := Presets[c.Preset]; ok && !p.KeyRequired {
		return false
	}
	return !strings.Contains(c.APIURL, "localhost") && !strings.Contains(c.APIURL, "127.0.0.1")
}

// GlobalPath returns $XDG_CONFIG_HOME/webgen/webgen.yml, falling back to
// ~/.config.
func GlobalPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, appName, fileName)
}

// ProjectPath returns ./webgen.yml.
func ProjectPath() string {
	return fileName
}

// Exists reports whether a global or project config file exists.
func Exists() bool {
	return fileExists(GlobalPath()) || fileExists(ProjectPath())
}

// WriteGlobal writes cfg to GlobalPath, creating the directory.
func WriteGlobal(cfg *Config) error {
	return write(GlobalPath(), cfg)
}

// WriteProject writes cfg to ProjectPath.
func WriteProject(cfg *Config) error {
	return write(ProjectPath(), cfg)
}

func write(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	// 0600: the file may hold API keys
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
