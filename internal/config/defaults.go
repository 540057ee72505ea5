package config

// Default returns the built-in configuration. Load starts from these values,
// so a config file only needs to state what it changes.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                  "0.0.0.0",
			Port:                  8000,
			RequestTimeoutSeconds: 120,
		},
		Browser: BrowserConfig{
			Headless:            true,
			NavigationTimeoutMs: 30000,
			SettleDelayMs:       2000,
			LinkSettleDelayMs:   1000,
		},
		Scrape: ScrapeConfig{
			MaxInternalLinks: 3,
		},
		Splitter: SplitterConfig{
			ChunkSize:    1000,
			ChunkOverlap: 150,
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "all-minilm",
			GenAIModel:     "gemini-embedding-001",
		},
		LLM: LLMConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "llama2",
			GenAIModel:     "gemini-2.0-flash",
			Temperature:    0.7,
			TimeoutSeconds: 120,
		},
		Storage: StorageConfig{
			DatabasePath: ":memory:",
		},
		Chat: ChatConfig{
			MaxHistoryMessages: 20,
		},
	}
}
