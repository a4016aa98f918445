package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	kenv "github.com/knadh/koanf/providers/env"
	kfile "github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	moderr "github.com/lizzyg/toolflow/errors"
	"github.com/lizzyg/toolflow/internal/core"
	"github.com/lizzyg/toolflow/internal/providers/retry"
)

const (
	rootKey     = "toolflow"
	envPrefix   = "TOOLFLOW__"
	pathEnv     = "TOOLFLOW_CONFIG_PATH"
	defaultPath = "config.yaml"
	defaultEnv  = ".env"
)

// Config is the root of the toolflow section.
type Config struct {
	Dotenv       string                 `koanf:"dotenv"`
	DefaultModel string                 `koanf:"default_model"`
	Models       map[string]ModelConfig `koanf:"models"`
	Loop         core.LoopConfig        `koanf:"loop"`
}

// ModelConfig defines a single model entry.
type ModelConfig struct {
	Provider        string       `koanf:"provider"`
	Model           string       `koanf:"model"`
	APIKey          string       `koanf:"api_key"`
	BaseURL         string       `koanf:"base_url"`
	MaxOutputTokens int          `koanf:"max_output_tokens"`
	Temperature     float32      `koanf:"temperature"`
	Retry           retry.Config `koanf:"retry"`
}

var (
	loadOnce sync.Once
	loaded   *Config
	loadErr  error
)

// Load reads the file named by TOOLFLOW_CONFIG_PATH, or ./config.yaml, once per
// process. Later calls return the cached result.
func Load() (*Config, error) {
	loadOnce.Do(func() {
		path := os.Getenv(pathEnv)
		if path == "" {
			path = defaultPath
		}
		loaded, loadErr = Parse(path)
	})
	return loaded, loadErr
}

// Parse loads path without caching. Variables from the dotenv file are loaded
// before TOOLFLOW__ overrides and ${VAR} placeholders are applied; variables
// already present in the environment take precedence.
func Parse(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(kfile.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	dotenv := k.String(rootKey + ".dotenv")
	if dotenv == "" {
		dotenv = defaultEnv
	}
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load dotenv %s: %w", dotenv, err)
	}

	// TOOLFLOW__MODELS__flash__API_KEY=... overrides toolflow.models.flash.api_key
	if err := k.Load(kenv.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return rootKey + "." + strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := Config{Loop: core.DefaultLoopConfig()}
	if err := k.Unmarshal(rootKey, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	resolveEnvVars(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that decoding cannot express.
func (c *Config) Validate() error {
	if c.DefaultModel != "" {
		if _, ok := c.Models[c.DefaultModel]; !ok {
			return fmt.Errorf("%w: default_model %q is not configured", moderr.ErrNoMatchingModel, c.DefaultModel)
		}
	}
	for name, m := range c.Models {
		if m.Model == "" {
			return fmt.Errorf("model %q: model name is required", name)
		}
	}
	return c.Loop.Validate()
}

// RequireKey returns the value of the environment variable name, or
// ErrMissingAPIKey when it is unset or empty.
func RequireKey(name string) (string, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return "", fmt.Errorf("%w: %s", moderr.ErrMissingAPIKey, name)
	}
	return v, nil
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func resolveEnvVars(cfg *Config) {
	cfg.Dotenv = resolveEnvString(cfg.Dotenv)
	for key, m := range cfg.Models {
		m.Provider = resolveEnvString(m.Provider)
		m.Model = resolveEnvString(m.Model)
		m.APIKey = resolveEnvString(m.APIKey)
		m.BaseURL = resolveEnvString(m.BaseURL)
		cfg.Models[key] = m
	}
}

// resolveEnvString replaces ${VAR} with the variable's value. Unset variables
// expand to the empty string so a missing key is caught when the provider is built.
func resolveEnvString(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}
