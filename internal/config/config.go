package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"porter/internal/dialect"
)

// Config is the file-level configuration for a porter run.
type Config struct {
	Project struct {
		Root   string   `yaml:"root"`
		Ignore []string `yaml:"ignore"`
	} `yaml:"project"`
	Translate struct {
		SourceVersion string `yaml:"source_version"`
		TargetDialect string `yaml:"target_dialect"`
		Strictness    string `yaml:"strictness"`
		Unsupported   string `yaml:"unsupported_policy"`
		IndentWidth   int    `yaml:"indent_width"`
		Jobs          int    `yaml:"jobs"`
	} `yaml:"translate"`
	AI struct {
		Provider    string `yaml:"provider"`
		Model       string `yaml:"model"`
		APIKey      string `yaml:"api_key"`
		MaxAttempts int    `yaml:"max_attempts"`
		BackoffMS   int    `yaml:"backoff_ms"`
	} `yaml:"ai"`
}

// LoadConfig reads a YAML config with .env and environment overrides.
// A missing config file yields defaults rather than an error.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	var cfg Config
	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, err
	}

	// 2. Override with environment variables if present
	if apiKey := os.Getenv("PORTER_API_KEY"); apiKey != "" {
		cfg.AI.APIKey = apiKey
	}
	if provider := os.Getenv("PORTER_AI_PROVIDER"); provider != "" {
		cfg.AI.Provider = provider
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Project.Root == "" {
		c.Project.Root = "."
	}
	if len(c.Project.Ignore) == 0 {
		c.Project.Ignore = []string{".git", "venv", ".venv", "__pycache__", "node_modules"}
	}
	d := dialect.Default()
	if c.Translate.SourceVersion == "" {
		c.Translate.SourceVersion = d.SourceVersion
	}
	if c.Translate.TargetDialect == "" {
		c.Translate.TargetDialect = d.TargetDialect
	}
	if c.Translate.Strictness == "" {
		c.Translate.Strictness = d.Strictness
	}
	if c.Translate.Unsupported == "" {
		c.Translate.Unsupported = string(d.Unsupported)
	}
	if c.Translate.IndentWidth == 0 {
		c.Translate.IndentWidth = d.IndentWidth
	}
	if c.Translate.Jobs == 0 {
		c.Translate.Jobs = 4
	}
	if c.AI.Provider == "" {
		c.AI.Provider = "gemini"
	}
	if c.AI.Model == "" {
		c.AI.Model = "gemini-2.0-flash"
	}
	if c.AI.MaxAttempts == 0 {
		c.AI.MaxAttempts = 3
	}
	if c.AI.BackoffMS == 0 {
		c.AI.BackoffMS = 500
	}
}

// Profile builds the immutable dialect profile the pipeline shares.
func (c *Config) Profile() (dialect.Profile, error) {
	p := dialect.Profile{
		SourceVersion: c.Translate.SourceVersion,
		TargetDialect: c.Translate.TargetDialect,
		Strictness:    c.Translate.Strictness,
		Unsupported:   dialect.UnsupportedPolicy(c.Translate.Unsupported),
		IndentWidth:   c.Translate.IndentWidth,
	}
	if err := p.Validate(); err != nil {
		return dialect.Profile{}, err
	}
	return p, nil
}
