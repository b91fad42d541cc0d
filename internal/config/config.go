// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and validates omnichat's TOML configuration.
//
// The file lives at ~/.omnichat/config.toml (OMNICHAT_CONFIG overrides
// the path). A missing or malformed file falls back to built-in defaults
// with a warning; the client must always be able to start.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/omnichat/internal/catalog"
	"github.com/jeranaias/omnichat/internal/util"
)

// =============================================================================
// SCHEMA
// =============================================================================

// Model is one [[models]] entry; array-of-tables keeps file order, which
// drives the catalog's numeric indexing.
type Model struct {
	Name        string `toml:"name"`
	Connection  string `toml:"connection"`
	Provider    string `toml:"provider"`
	Description string `toml:"description"`
	UseCase     string `toml:"use_case"`
}

// Config is the full configuration tree.
type Config struct {
	// DefaultModel is activated at startup; empty means start without
	// an active model.
	DefaultModel string `toml:"default_model"`

	// TranscriptDir is where conversations are saved. Empty uses
	// <config dir>/transcripts.
	TranscriptDir string `toml:"transcript_dir"`

	// PromptsFile is the prompt library path. Empty uses
	// <config dir>/prompts.toml.
	PromptsFile string `toml:"prompts_file"`

	// UsageDB is the token-usage ledger path. Empty uses
	// <config dir>/usage.db.
	UsageDB string `toml:"usage_db"`

	// LogLevel is debug, info, warn, or error.
	LogLevel string `toml:"log_level"`

	Models []Model `toml:"models"`
}

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// =============================================================================
// DEFAULTS
// =============================================================================

// ConfigDir returns the omnichat configuration directory, ~/.omnichat.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".omnichat"), nil
}

// EnsureConfigDir creates the configuration directory if needed.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// Default returns the built-in configuration used when no file exists.
// The model list mirrors the providers the client ships support for.
func Default() *Config {
	return &Config{
		DefaultModel: "gpt120b",
		LogLevel:     "warn",
		Models: []Model{
			{
				Name:        "gpt120b",
				Connection:  "groq/openai/gpt-oss-120b",
				Provider:    "Groq",
				Description: "OpenAI GPT-OSS 120B served by Groq",
				UseCase:     "fast general-purpose chat",
			},
			{
				Name:        "gpt20b",
				Connection:  "groq/openai/gpt-oss-20b",
				Provider:    "Groq",
				Description: "OpenAI GPT-OSS 20B served by Groq",
				UseCase:     "quick answers, lower quality",
			},
			{
				Name:        "gemini-pro",
				Connection:  "gemini/gemini-2.5-pro",
				Provider:    "Google",
				Description: "Gemini 2.5 Pro",
				UseCase:     "long context, reasoning",
			},
			{
				Name:        "gemini-flash",
				Connection:  "gemini/gemini-2.5-flash",
				Provider:    "Google",
				Description: "Gemini 2.5 Flash",
				UseCase:     "fast multimodal chat",
			},
			{
				Name:        "mistral-small",
				Connection:  "mistral/mistral-small-latest",
				Provider:    "Mistral",
				Description: "Mistral Small",
				UseCase:     "cheap drafting",
			},
			{
				Name:        "mistral-medium",
				Connection:  "mistral/mistral-medium-latest",
				Provider:    "Mistral",
				Description: "Mistral Medium",
				UseCase:     "balanced quality and cost",
			},
		},
	}
}

// =============================================================================
// LOADING
// =============================================================================

// Path returns the configuration file path, honoring OMNICHAT_CONFIG.
func Path() (string, error) {
	if p := os.Getenv("OMNICHAT_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the configuration. It never fails outright: a missing or
// broken file yields defaults plus a non-nil warning error the caller
// should log and carry on with.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return Default(), fmt.Errorf("using defaults: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration from an explicit path, with the same
// degraded-but-running contract as Load.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("config %s unreadable, using defaults: %w", path, err)
	}

	cfg.fillDefaults()
	cfg.applyEnvOverrides()

	if errs := cfg.Validate(); len(errs) > 0 {
		return Default(), fmt.Errorf("config %s invalid, using defaults: %s", path, joinErrors(errs))
	}
	return cfg, nil
}

func (c *Config) fillDefaults() {
	def := Default()
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if len(c.Models) == 0 {
		c.Models = def.Models
		if c.DefaultModel == "" {
			c.DefaultModel = def.DefaultModel
		}
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("OMNICHAT_MODEL"); v != "" {
		c.DefaultModel = v
	}
	if v := os.Getenv("OMNICHAT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the configuration, returning every problem found.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	seen := make(map[string]bool)
	for i, m := range c.Models {
		field := fmt.Sprintf("models[%d]", i)
		switch {
		case m.Name == "":
			errs = append(errs, ValidationError{field, "missing name"})
		case strings.ContainsAny(m.Name, " \t"):
			errs = append(errs, ValidationError{field, fmt.Sprintf("name %q contains whitespace", m.Name)})
		case seen[m.Name]:
			errs = append(errs, ValidationError{field, fmt.Sprintf("duplicate name %q", m.Name)})
		}
		seen[m.Name] = true
		if m.Connection == "" {
			errs = append(errs, ValidationError{field, "missing connection"})
		} else if !strings.Contains(m.Connection, "/") {
			errs = append(errs, ValidationError{field, fmt.Sprintf("connection %q is not provider/model", m.Connection)})
		}
	}

	if c.DefaultModel != "" && !seen[c.DefaultModel] {
		errs = append(errs, ValidationError{"default_model", fmt.Sprintf("%q is not a configured model", c.DefaultModel)})
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error", "fatal":
	default:
		errs = append(errs, ValidationError{"log_level", fmt.Sprintf("unknown level %q", c.LogLevel)})
	}
	return errs
}

func joinErrors(errs []ValidationError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// =============================================================================
// DERIVED PATHS AND CATALOG
// =============================================================================

// TranscriptPath resolves the transcript directory.
func (c *Config) TranscriptPath() (string, error) {
	if c.TranscriptDir != "" {
		return c.TranscriptDir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "transcripts"), nil
}

// PromptsPath resolves the prompt library file.
func (c *Config) PromptsPath() (string, error) {
	if c.PromptsFile != "" {
		return c.PromptsFile, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "prompts.toml"), nil
}

// UsagePath resolves the usage ledger file.
func (c *Config) UsagePath() (string, error) {
	if c.UsageDB != "" {
		return c.UsageDB, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "usage.db"), nil
}

// Catalog builds the model catalog from the configured entries.
func (c *Config) Catalog() (*catalog.Catalog, error) {
	entries := make([]catalog.Entry, len(c.Models))
	for i, m := range c.Models {
		entries[i] = catalog.Entry{
			Name:        m.Name,
			Connection:  m.Connection,
			Provider:    m.Provider,
			Description: m.Description,
			UseCase:     m.UseCase,
		}
	}
	return catalog.New(entries)
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to path with a header comment, creating
// parent directories. Used to bootstrap a starter config on first run.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("# omnichat configuration\n# Models are selected by name, number, or fuzzy match.\n\n")
	if err := toml.NewEncoder(&sb).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
