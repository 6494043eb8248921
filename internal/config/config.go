// Package config loads the relay's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// APIKeyEnv overrides llm.api_key when set.
const APIKeyEnv = "ALISA_LLM_API_KEY"

// Provider names accepted in llm.provider.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderScript = "script"
)

type Config struct {
	Server    Server    `yaml:"server"`
	LLM       LLM       `yaml:"llm"`
	Memory    Memory    `yaml:"memory"`
	Broadcast Broadcast `yaml:"broadcast"`
	Turn      Turn      `yaml:"turn"`
	Presence  Presence  `yaml:"presence"`
	Prompt    Prompt    `yaml:"prompt"`
	Modes     Modes     `yaml:"modes"`
}

type Server struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LLM struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key,omitempty"` // may name an env var as "$VAR"
	BaseURL     string  `yaml:"base_url,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	Script      Script  `yaml:"script,omitempty"`
}

// Script configures the offline "script" provider.
type Script struct {
	Replies   []string      `yaml:"replies,omitempty"`
	Delay     time.Duration `yaml:"delay,omitempty"`
	FailAfter int           `yaml:"fail_after,omitempty"`
}

type Memory struct {
	// Dir holds the long-term store. Empty keeps memories in process only.
	Dir           string `yaml:"dir"`
	ShortTermSize int    `yaml:"short_term_size"`
	Recall        int    `yaml:"recall"`
	Retain        int    `yaml:"retain"`
}

type Broadcast struct {
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxParallel  int           `yaml:"max_parallel"`
}

type Turn struct {
	Timeout time.Duration `yaml:"timeout"`
}

type Presence struct {
	TTL time.Duration `yaml:"ttl"`
}

type Prompt struct {
	Persona      string `yaml:"persona,omitempty"`
	TemplateFile string `yaml:"template_file,omitempty"`
}

type Modes struct {
	Initial   string            `yaml:"initial"`
	Catalogue map[string]string `yaml:"catalogue,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:            ":8000",
			ShutdownTimeout: 10 * time.Second,
		},
		LLM: LLM{
			Provider: ProviderOpenAI,
			Model:    "gpt-4o-mini",
		},
		Memory: Memory{
			ShortTermSize: 10,
			Recall:        5,
		},
		Broadcast: Broadcast{
			WriteTimeout: 5 * time.Second,
		},
		Turn: Turn{
			Timeout: 2 * time.Minute,
		},
		Presence: Presence{
			TTL: 5 * time.Minute,
		},
		Modes: Modes{
			Initial: "default",
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path
// yields the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if strings.HasPrefix(c.LLM.APIKey, "$") {
		c.LLM.APIKey = os.ExpandEnv(c.LLM.APIKey)
	}
	if key := os.Getenv(APIKeyEnv); key != "" {
		c.LLM.APIKey = key
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderScript:
	case ProviderGemini:
		if c.LLM.APIKey == "" {
			errs = append(errs, fmt.Errorf("llm.api_key (or %s) is required for gemini", APIKeyEnv))
		}
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not one of openai, gemini, script", c.LLM.Provider))
	}
	if c.LLM.Provider != ProviderScript && c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	if c.Memory.ShortTermSize < 1 {
		errs = append(errs, errors.New("memory.short_term_size must be positive"))
	}
	if c.Memory.Recall < 0 || c.Memory.Retain < 0 {
		errs = append(errs, errors.New("memory.recall and memory.retain must not be negative"))
	}
	if c.Broadcast.WriteTimeout < 0 || c.Turn.Timeout < 0 || c.Presence.TTL < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
