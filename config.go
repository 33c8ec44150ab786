package main

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigDir = ".postforge/"

// Embedded configuration files. They are written out to the config
// directory on first run so users can customize them.

//go:embed config/settings.yaml
var defaultSettings string

//go:embed config/composer-system-prompt.md
var composerSystemPrompt string

//go:embed config/composer-user-prompt.md
var composerUserPrompt string

// ConfigOverrides holds file path overrides for embedded configurations.
type ConfigOverrides struct {
	SettingsPath           *string
	ComposerPromptPath     *string
	ComposerUserPromptPath *string
}

// Settings represents the YAML configuration structure.
type Settings struct {
	Server struct {
		Addr       string `yaml:"addr"`
		ContentDir string `yaml:"content_dir"`
		UploadDir  string `yaml:"upload_dir"`
		SessionDir string `yaml:"session_dir"`
	} `yaml:"server"`
	Pipeline struct {
		ItemDelaySeconds    int `yaml:"item_delay_seconds"`
		FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds"`
		BodyExcerptLimit    int `yaml:"body_excerpt_limit"`
	} `yaml:"pipeline"`
	Composer struct {
		Model        string  `yaml:"model"`
		MaxTokens    int     `yaml:"max_tokens"`
		Temperature  float64 `yaml:"temperature"`
		CaptionLimit int     `yaml:"caption_limit"`
	} `yaml:"composer"`
	Image struct {
		Quality string `yaml:"quality"`
		Style   string `yaml:"style"`
	} `yaml:"image"`
	Publisher struct {
		Mode           string `yaml:"mode"` // native | graph
		GraphAccountID string `yaml:"graph_account_id"`
	} `yaml:"publisher"`
}

// ItemDelay returns the pacing delay between successive batch items.
func (s *Settings) ItemDelay() time.Duration {
	return time.Duration(s.Pipeline.ItemDelaySeconds) * time.Second
}

// FetchTimeout returns the per-page rendering timeout.
func (s *Settings) FetchTimeout() time.Duration {
	return time.Duration(s.Pipeline.FetchTimeoutSeconds) * time.Second
}

// Config holds settings and overrides.
type Config struct {
	Settings  *Settings
	Overrides *ConfigOverrides
}

// LoadConfig loads settings, writing embedded defaults out on first run.
func LoadConfig(overrides *ConfigOverrides) (*Config, error) {
	if err := ensureConfigExists(); err != nil {
		return nil, fmt.Errorf("ensuring config files exist: %w", err)
	}

	var settings *Settings
	var err error
	if overrides != nil && overrides.SettingsPath != nil {
		settings, err = loadSettingsRequired(*overrides.SettingsPath)
		if err != nil {
			return nil, fmt.Errorf("settings file missing: %s: %w", *overrides.SettingsPath, err)
		}
	} else {
		settings, err = loadSettings(filepath.Join(defaultConfigDir, "settings.yaml"))
		if err != nil {
			return nil, fmt.Errorf("loading settings: %w", err)
		}
	}

	return &Config{Settings: settings, Overrides: overrides}, nil
}

// GetComposerSystemPrompt returns the composer system prompt (from override
// file or embedded).
func (c *Config) GetComposerSystemPrompt() string {
	if c.Overrides != nil && c.Overrides.ComposerPromptPath != nil {
		if content, err := os.ReadFile(*c.Overrides.ComposerPromptPath); err == nil {
			return string(content)
		}
	}
	return composerSystemPrompt
}

// GetComposerUserPrompt returns the composer user prompt template (from
// override file or embedded).
func (c *Config) GetComposerUserPrompt() string {
	if c.Overrides != nil && c.Overrides.ComposerUserPromptPath != nil {
		if content, err := os.ReadFile(*c.Overrides.ComposerUserPromptPath); err == nil {
			return string(content)
		}
	}
	return composerUserPrompt
}

// loadSettings loads settings from a YAML file, falling back to the
// embedded defaults when the file does not exist.
func loadSettings(settingsPath string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		data = []byte(defaultSettings)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}
	applySettingsFloors(&settings)
	return &settings, nil
}

// loadSettingsRequired loads settings from a YAML file, failing if the file
// doesn't exist.
func loadSettingsRequired(settingsPath string) (*Settings, error) {
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, err
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parsing settings YAML: %w", err)
	}
	applySettingsFloors(&settings)
	return &settings, nil
}

// applySettingsFloors fills in zero values a partial settings file left out.
func applySettingsFloors(s *Settings) {
	if s.Server.Addr == "" {
		s.Server.Addr = ":3000"
	}
	if s.Server.ContentDir == "" {
		s.Server.ContentDir = filepath.Join("public", "generated")
	}
	if s.Server.UploadDir == "" {
		s.Server.UploadDir = "uploads"
	}
	if s.Server.SessionDir == "" {
		s.Server.SessionDir = "sessions"
	}
	if s.Pipeline.ItemDelaySeconds <= 0 {
		s.Pipeline.ItemDelaySeconds = 2
	}
	if s.Pipeline.FetchTimeoutSeconds <= 0 {
		s.Pipeline.FetchTimeoutSeconds = 30
	}
	if s.Pipeline.BodyExcerptLimit <= 0 {
		s.Pipeline.BodyExcerptLimit = 3000
	}
	if s.Composer.Model == "" {
		s.Composer.Model = "claude-3-5-sonnet-20241022"
	}
	if s.Composer.MaxTokens <= 0 {
		s.Composer.MaxTokens = 1500
	}
	if s.Composer.CaptionLimit <= 0 {
		s.Composer.CaptionLimit = 2000
	}
	if s.Publisher.Mode == "" {
		s.Publisher.Mode = "native"
	}
}

// ensureConfigExists creates the config directory and writes the default
// settings file if it doesn't exist.
func ensureConfigExists() error {
	if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	settingsFile := filepath.Join(defaultConfigDir, "settings.yaml")
	if _, err := os.Stat(settingsFile); os.IsNotExist(err) {
		if err := os.WriteFile(settingsFile, []byte(defaultSettings), 0644); err != nil {
			return fmt.Errorf("writing settings.yaml: %w", err)
		}
	}

	return nil
}
