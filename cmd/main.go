package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"concierge/internal/api"
	"concierge/internal/config"
	"concierge/internal/finder"
	"concierge/internal/llm"
	"concierge/internal/menu"
	"concierge/internal/monitoring"
	"concierge/internal/retrieval"
	"concierge/internal/session"
	"concierge/internal/storage"
)

var (
	port        = flag.Int("port", 0, "API server port (overrides config)")
	metricsPort = flag.Int("metrics-port", 0, "Metrics server port (overrides config)")
	configFile  = flag.String("config", "configs/config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *metricsPort != 0 {
		cfg.Server.MetricsPort = *metricsPort
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Catalog construction is the only fatal startup path besides config:
	// the process cannot take orders against an invalid catalog.
	catalog, err := menu.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}
	logger.Info("catalog loaded",
		zap.String("path", cfg.Catalog.Path),
		zap.Int("items", catalog.Len()))

	provider, err := initializeProvider(cfg)
	if err != nil {
		logger.Fatal("failed to initialize model provider", zap.Error(err))
	}
	provider.SetTemperature(cfg.Model.Temperature)

	var restaurantFinder *finder.Finder
	if cfg.Retrieval.CorpusPath != "" {
		store, err := retrieval.LoadDocStore(cfg.Retrieval.CorpusPath, cfg.Retrieval.TopK)
		if err != nil {
			logger.Fatal("failed to load retrieval corpus", zap.Error(err))
		}
		restaurantFinder = finder.New(provider, store)
		logger.Info("retrieval corpus loaded",
			zap.String("path", cfg.Retrieval.CorpusPath),
			zap.Int("chunks", store.Len()))
	}

	var archive session.OrderArchive
	if cfg.Archive.Enabled {
		a, err := storage.Open(cfg.Archive.Dialect, cfg.Archive.DSN)
		if err != nil {
			logger.Fatal("failed to open order archive", zap.Error(err))
		}
		defer a.Close()
		archive = a
	}

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	controller := session.NewController(catalog, provider, restaurantFinder, archive, metrics, logger)
	server := api.NewServer(controller, session.NewManager(), metrics, logger, cfg.Auth.Secret)

	go startMetricsServer(cfg.Server.MetricsPort, logger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.Router(),
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("API server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("starting API server", zap.Int("port", cfg.Server.Port))
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("API server error", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if err := zapCfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return zapCfg.Build()
}

func initializeProvider(cfg *config.Config) (llm.Provider, error) {
	switch cfg.Model.Provider {
	case "openai":
		return llm.NewOpenAIProvider(cfg.Model.APIKey, cfg.Model.Name)
	case "azure":
		return llm.NewAzureOpenAIProvider()
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}

func startMetricsServer(port int, logger *zap.Logger) {
	gin.SetMode(gin.ReleaseMode)
	metricsRouter := gin.New()
	metricsRouter.GET("/metrics", gin.WrapH(promhttp.Handler()))

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: metricsRouter,
	}

	logger.Info("starting metrics server", zap.Int("port", port))
	if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
		logger.Error("metrics server error", zap.Error(err))
	}
}
