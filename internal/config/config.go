// Package config provides configuration loading and structs for the kbot server.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Browser   BrowserConfig   `yaml:"browser"`
	Scrape    ScrapeConfig    `yaml:"scrape"`
	Splitter  SplitterConfig  `yaml:"splitter"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Storage   StorageConfig   `yaml:"storage"`
	Chat      ChatConfig      `yaml:"chat"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
}

// BrowserConfig holds headless Chrome settings.
type BrowserConfig struct {
	Headless            bool `yaml:"headless"`
	NavigationTimeoutMs int  `yaml:"navigation_timeout_ms"`
	SettleDelayMs       int  `yaml:"settle_delay_ms"`
	LinkSettleDelayMs   int  `yaml:"link_settle_delay_ms"`
}

// ScrapeConfig holds link discovery settings.
type ScrapeConfig struct {
	MaxInternalLinks int `yaml:"max_internal_links"`
}

// SplitterConfig holds text chunking settings.
type SplitterConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// EmbeddingConfig holds embedding engine settings.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // "ollama" or "genai"
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
	GenAIAPIKey    string `yaml:"genai_api_key"`
	GenAIModel     string `yaml:"genai_model"`
}

// LLMConfig holds generation backend settings.
type LLMConfig struct {
	Provider       string  `yaml:"provider"` // "ollama" or "genai"
	OllamaEndpoint string  `yaml:"ollama_endpoint"`
	OllamaModel    string  `yaml:"ollama_model"`
	GenAIAPIKey    string  `yaml:"genai_api_key"`
	GenAIModel     string  `yaml:"genai_model"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// StorageConfig holds index storage settings. The default ":memory:" keeps
// all indexed content scoped to the process lifetime.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ChatConfig holds conversation settings.
type ChatConfig struct {
	// MaxHistoryMessages caps how many prior messages are fed into the
	// prompt. Stored history itself is never pruned.
	MaxHistoryMessages int `yaml:"max_history_messages"`
}

// Load reads and parses the config file at path, then applies defaults and
// environment overrides. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides secrets from the environment so API keys never need to
// live in the config file.
func (c *Config) applyEnv() {
	if key := os.Getenv("KBOT_GENAI_API_KEY"); key != "" {
		c.Embedding.GenAIAPIKey = key
		c.LLM.GenAIAPIKey = key
	}
	if ep := os.Getenv("KBOT_OLLAMA_ENDPOINT"); ep != "" {
		c.Embedding.OllamaEndpoint = ep
		c.LLM.OllamaEndpoint = ep
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if c.Splitter.ChunkSize <= 0 {
		return fmt.Errorf("splitter.chunk_size must be positive, got %d", c.Splitter.ChunkSize)
	}
	if c.Splitter.ChunkOverlap < 0 {
		return fmt.Errorf("splitter.chunk_overlap must not be negative, got %d", c.Splitter.ChunkOverlap)
	}
	if c.Splitter.ChunkOverlap >= c.Splitter.ChunkSize {
		return fmt.Errorf("splitter.chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.Splitter.ChunkOverlap, c.Splitter.ChunkSize)
	}
	if c.Scrape.MaxInternalLinks < 0 {
		return fmt.Errorf("scrape.max_internal_links must not be negative, got %d", c.Scrape.MaxInternalLinks)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Embedding.Provider {
	case "ollama", "genai":
	default:
		return fmt.Errorf("embedding.provider must be 'ollama' or 'genai', got %q", c.Embedding.Provider)
	}
	switch c.LLM.Provider {
	case "ollama", "genai":
	default:
		return fmt.Errorf("llm.provider must be 'ollama' or 'genai', got %q", c.LLM.Provider)
	}
	return nil
}
