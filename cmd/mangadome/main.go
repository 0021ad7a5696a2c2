package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mangadome/internal/assistant"
	"mangadome/internal/cache"
	"mangadome/internal/catalog"
	"mangadome/internal/config"
	"mangadome/internal/gemini"
	"mangadome/internal/library"
	"mangadome/internal/logging"
	"mangadome/internal/ratelimit"
	"mangadome/internal/server"
)

var (
	// Global flags
	verbose    bool
	configPath string
	addr       string

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mangadome",
	Short: "MangaDome - manga discovery and tracking service",
	Long: `MangaDome serves the engine behind a manga discovery and tracking app:
a rate-limited catalog proxy, a personal library with reviews, and a
streaming LLM assistant with persona support.

Run without arguments to start the server.`,
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
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.DefaultConfig()
		fmt.Printf("%s %s\n", cfg.Name, cfg.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServe() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	dataDir := filepath.Dir(cfg.Library.DatabasePath)
	if err := logging.Initialize(dataDir, configPath); err != nil {
		logger.Warn("file logging unavailable", zap.Error(err))
	}
	defer logging.CloseAll()
	logging.Boot("%s %s starting", cfg.Name, cfg.Version)

	limiter, err := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{
		Capacity:      int64(cfg.Catalog.RateCapacity),
		Window:        cfg.GetRateWindow(),
		FallbackLocal: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build rate limiter: %w", err)
	}

	catalogClient, err := catalog.New(catalog.Options{
		BaseURL:     cfg.Catalog.BaseURL,
		Limiter:     limiter,
		HTTPClient:  &http.Client{Timeout: cfg.GetCatalogTimeout()},
		Retries:     cfg.Catalog.Retries,
		Backoff:     catalog.ConstantBackoff{Interval: cfg.GetBackoff()},
		CacheMaxAge: cfg.Catalog.CacheMaxAge,
	})
	if err != nil {
		return fmt.Errorf("failed to build catalog client: %w", err)
	}

	store, err := library.Open(cfg.Library.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open library store: %w", err)
	}
	defer store.Close()

	contextCache := cache.NewMemory()
	defer contextCache.Close()

	if cfg.Gemini.APIKey == "" {
		logger.Warn("GEMINI_API_KEY not set; assistant requests will fail")
	}
	llm := gemini.New(gemini.Options{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
	})

	contexts := assistant.NewContextProvider(contextCache, store, cfg.GetContextTTL())
	relay := assistant.NewRelay(llm, contexts, cfg.Gemini.MaxOutputTokens, cfg.Assistant.HistoryLimit)

	srv := server.New(server.Deps{
		Catalog: catalogClient,
		Relay:   relay,
		Library: store,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(cfg.Server.Addr)
	}()
	logger.Info("server started", zap.String("addr", cfg.Server.Addr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	logging.Boot("shutdown complete")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
