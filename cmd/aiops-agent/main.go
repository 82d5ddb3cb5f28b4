package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Huzefaaa2/AIOps/internal/api"
	"github.com/Huzefaaa2/AIOps/internal/cache"
	"github.com/Huzefaaa2/AIOps/internal/config"
	"github.com/Huzefaaa2/AIOps/internal/engine"
	"github.com/Huzefaaa2/AIOps/internal/llm"
	"github.com/Huzefaaa2/AIOps/internal/metrics"
	"github.com/Huzefaaa2/AIOps/internal/notify"
	"github.com/Huzefaaa2/AIOps/internal/repo"
	"github.com/Huzefaaa2/AIOps/internal/services"
	"github.com/Huzefaaa2/AIOps/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting aiops-agent", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled {
		switch cfg.Cache.Backend {
		case "valkey":
			valkey, err := cache.NewValkeyProvider(cache.ValkeyConfig{
				Addr:         cfg.Cache.Addr,
				Username:     cfg.Cache.Username,
				Password:     cfg.Cache.Password,
				DB:           cfg.Cache.DB,
				DialTimeout:  cfg.Cache.DialTimeout,
				ReadTimeout:  cfg.Cache.ReadTimeout,
				WriteTimeout: cfg.Cache.WriteTimeout,
				MaxRetries:   cfg.Cache.MaxRetries,
				TLS:          cfg.Cache.TLS,
			})
			if err != nil {
				logger.Warn("valkey cache unavailable, falling back to in-memory cache", slog.Any("error", err))
				cacheProvider = cache.NewMemoryProvider()
			} else {
				cacheProvider = valkey
			}
		default:
			cacheProvider = cache.NewMemoryProvider()
		}
	}
	defer cacheProvider.Close()

	sampler := repo.NewLogStoreClient(
		cfg.Telemetry.Endpoint,
		cfg.Telemetry.WorkspaceID,
		cfg.Telemetry.Query,
		cfg.Telemetry.MaxRecords,
		cfg.Telemetry.Timeout,
	)

	retriever := repo.NewSearchIndexClient(
		cfg.Search.Endpoint,
		cfg.Search.Index,
		cfg.Search.APIKey,
		cfg.Search.APIVersion,
		cfg.Search.TopK,
		cfg.Search.VectorField,
		cfg.Search.Timeout,
		cacheProvider,
		cfg.Cache.RetrievalTTL,
	)

	reasoner := llm.NewClient(
		cfg.OpenAI.Endpoint,
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Deployment,
		cfg.OpenAI.Timeout,
		logger,
	)

	whitelist, err := engine.LoadWhitelist(cfg.Whitelist.Path)
	if err != nil {
		logger.Error("failed to load action whitelist", slog.Any("error", err))
		os.Exit(1)
	}
	if len(whitelist) == 0 {
		logger.Warn("action whitelist is empty; all proposed actions will be rejected")
	}

	var executor engine.ActionExecutor
	if cfg.Remediation.BaseURL != "" {
		executor = repo.NewExecutorClient(cfg.Remediation.BaseURL, cfg.Remediation.Key, cfg.Remediation.Timeout)
	}
	gate := engine.NewGate(logger, whitelist, executor)

	publisher := notify.NewTeamsPublisher(cfg.Notification.WebhookURL, cfg.Notification.Timeout, logger)

	pipeline := engine.NewPipeline(
		logger,
		sampler,
		retriever,
		reasoner,
		gate,
		publisher,
		engine.PromptBudget{
			MaxBytes:            cfg.Prompt.MaxBytes,
			MaxDocChars:         cfg.Prompt.MaxDocChars,
			MaxTelemetryRecords: cfg.Prompt.MaxTelemetryRecords,
		},
		cfg.Telemetry.Lookback,
	)

	service := services.NewAgentService(logger, pipeline)
	server := api.NewServer(cfg.Server, service, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("http server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("aiops-agent stopped")
}
