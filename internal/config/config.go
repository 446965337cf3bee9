package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for configuration when --config is not given.
const DefaultPath = ".evai/config.yaml"

// Config holds all evai configuration.
type Config struct {
	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Which generation calls attach search/maps tools
	Grounding GroundingConfig `yaml:"grounding"`

	// Audio output
	Audio AudioConfig `yaml:"audio"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// GroundingConfig toggles grounding tools per call type.
type GroundingConfig struct {
	PlanSearch bool `yaml:"plan_search"`
	ChatSearch bool `yaml:"chat_search"`
	ChatMaps   bool `yaml:"chat_maps"`
}

// AudioConfig configures where spoken output is written.
type AudioConfig struct {
	OutputDir string `yaml:"output_dir"`
	Play      bool   `yaml:"play"` // run afplay/ffplay/aplay on each file
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Backend:            BackendREST,
			BaseURL:            DefaultBaseURL,
			PlanModel:          "gemini-2.5-pro",
			ChatModel:          "gemini-2.5-flash",
			TTSModel:           "gemini-2.5-flash-preview-tts",
			Voice:              "Kore",
			Timeout:            "120s",
			ThinkingBudget:     32768,
			MaxRetries:         0,
			MinRequestInterval: "100ms",
		},

		Grounding: GroundingConfig{
			PlanSearch: true,
			ChatSearch: true,
			ChatMaps:   true,
		},

		Audio: AudioConfig{
			OutputDir: ".evai/audio",
			Play:      true,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// API key from environment, lowest priority first
	for _, name := range []string{"API_KEY", "GOOGLE_API_KEY", "GEMINI_API_KEY"} {
		if key := os.Getenv(name); key != "" {
			c.LLM.APIKey = key
		}
	}

	if backend := os.Getenv("EVAI_BACKEND"); backend != "" {
		c.LLM.Backend = strings.ToLower(backend)
	}
	if level := os.Getenv("EVAI_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}

// GetMinRequestInterval returns the spacing enforced between generation calls.
func (c *Config) GetMinRequestInterval() time.Duration {
	d, err := time.ParseDuration(c.LLM.MinRequestInterval)
	if err != nil || d < 0 {
		return 100 * time.Millisecond
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (set GEMINI_API_KEY, GOOGLE_API_KEY, or API_KEY)")
	}

	validBackend := false
	for _, b := range ValidBackends {
		if c.LLM.Backend == b {
			validBackend = true
			break
		}
	}
	if !validBackend {
		return fmt.Errorf("invalid LLM backend: %s (valid: %v)", c.LLM.Backend, ValidBackends)
	}

	if c.LLM.Timeout != "" {
		if _, err := time.ParseDuration(c.LLM.Timeout); err != nil {
			return fmt.Errorf("invalid llm.timeout %q: %w", c.LLM.Timeout, err)
		}
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must be >= 0, got %d", c.LLM.MaxRetries)
	}
	if c.LLM.ThinkingBudget < 0 {
		return fmt.Errorf("llm.thinking_budget must be >= 0, got %d", c.LLM.ThinkingBudget)
	}

	return nil
}
