// Command kbot runs the K-Bot knowledge assistant: a RAG pipeline that
// ingests web pages into a semantic index and answers questions against it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"kbot/internal/browser"
	"kbot/internal/config"
	"kbot/internal/document"
	"kbot/internal/embedding"
	"kbot/internal/index"
	"kbot/internal/llm"
	"kbot/internal/memory"
	"kbot/internal/rag"
	"kbot/internal/scrape"
	"kbot/internal/server"
	"kbot/internal/store"
)

var version = "dev"

var (
	configPath string
	verbose    bool
	serverURL  string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "kbot",
	Short: "K-Bot - web-grounded knowledge assistant",
	Long: `K-Bot scrapes web pages into a semantic index and answers questions
grounded in the indexed content, keeping per-conversation history.

Run "kbot serve" to start the API server, then "kbot ingest" and "kbot ask"
against it.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the K-Bot API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runServer(cfg)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the kbot version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("kbot", version)
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8000", "kbot server to talk to")

	rootCmd.AddCommand(serveCmd, ingestCmd, askCmd, historyCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig loads the config from --config, falling back to config.yaml in
// the working directory, falling back to built-in defaults.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path == "" {
		logger.Info("no config file found, using defaults")
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Info("config loaded", zap.String("path", path))
	return cfg, nil
}

func runServer(cfg *config.Config) error {
	session := browser.NewSession(browser.Config{
		Headless:          cfg.Browser.Headless,
		NavigationTimeout: time.Duration(cfg.Browser.NavigationTimeoutMs) * time.Millisecond,
		SettleDelay:       time.Duration(cfg.Browser.SettleDelayMs) * time.Millisecond,
		LinkSettleDelay:   time.Duration(cfg.Browser.LinkSettleDelayMs) * time.Millisecond,
	}, logger.Named("browser"))
	defer session.Shutdown()

	engine, err := embedding.NewEngine(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
	})
	if err != nil {
		return fmt.Errorf("create embedding engine: %w", err)
	}
	logger.Info("embedding engine ready", zap.String("engine", engine.Name()))

	client, err := llm.NewClient(llm.Config{
		Provider:       cfg.LLM.Provider,
		OllamaEndpoint: cfg.LLM.OllamaEndpoint,
		OllamaModel:    cfg.LLM.OllamaModel,
		GenAIAPIKey:    cfg.LLM.GenAIAPIKey,
		GenAIModel:     cfg.LLM.GenAIModel,
		Temperature:    cfg.LLM.Temperature,
		Timeout:        time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create llm client: %w", err)
	}
	logger.Info("llm client ready", zap.String("client", client.Name()))

	st, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	service := rag.NewService(
		scrape.New(session, cfg.Scrape.MaxInternalLinks, logger.Named("scrape")),
		document.NewLoader(document.NewSplitter(cfg.Splitter.ChunkSize, cfg.Splitter.ChunkOverlap), logger.Named("document")),
		engine,
		st,
		index.NewRetriever(st, engine, index.DefaultConfig(), logger.Named("index")),
		memory.NewStore(),
		client,
		cfg.Chat.MaxHistoryMessages,
		logger.Named("rag"),
	)

	srv := server.NewServer(service, &cfg.Server, logger.Named("server"))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(ctx)
	}
}
