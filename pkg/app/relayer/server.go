// Package relayer implements app.Runner for the relayer process.
package relayer

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	apphttp "github.com/chainsafe/stacks-relayer/pkg/app/http"
	"github.com/chainsafe/stacks-relayer/pkg/app/httpserver"
	"github.com/chainsafe/stacks-relayer/pkg/auditlog"
	"github.com/chainsafe/stacks-relayer/pkg/config"
	"github.com/chainsafe/stacks-relayer/pkg/db"
	"github.com/chainsafe/stacks-relayer/pkg/ethereum"
	"github.com/chainsafe/stacks-relayer/pkg/relayer"
	"github.com/chainsafe/stacks-relayer/pkg/stacks"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	defaultHTTPMiddlewareTimeout = 60 * time.Second

	sourceChain      = "stacks"
	destinationChain = "ethereum"
)

// Server holds configuration for the relayer process.
type Server struct {
	cfg *config.Config
}

// NewServer initializes a new relayer Server.
func NewServer(cfg *config.Config) *Server {
	return &Server{cfg: cfg}
}

// Run wires the relayer, optionally starts it, and serves the admin API.
// It blocks until an OS shutdown signal is received or a fatal error occurs.
func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("nil config")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	auditOpts := []auditlog.Option{}
	if !cfg.AuditLog.Mirror {
		auditOpts = append(auditOpts, auditlog.WithMirror(nil))
	}
	audit := auditlog.New(cfg.AuditLog.Capacity, auditOpts...)

	logger, err := config.NewLogger(cfg.Logging, audit)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting Stacks bridge relayer",
		zap.String("source_network", cfg.Source.Network),
		zap.String("destination_network", cfg.Destination.Network))

	orchestrator, cleanup, err := newOrchestrator(ctx, cfg, audit, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Server.AutoStart {
		if err := orchestrator.Start(ctx); err != nil {
			return fmt.Errorf("start relayer: %w", err)
		}
	}
	defer func() {
		if orchestrator.State() == relayer.StateRunning {
			orchestrator.Stop()
		}
	}()

	router := NewRouter(orchestrator, cfg, logger.Named("http"))
	return httpserver.ServeAndWait(ctx, logger, httpserver.New(&cfg.Server, router), cfg.Server.ShutdownTimeout)
}

// newOrchestrator connects both chains and the record store and assembles the relayer
func newOrchestrator(
	ctx context.Context,
	cfg *config.Config,
	audit *auditlog.Log,
	logger *zap.Logger,
) (*relayer.Orchestrator, func(), error) {
	store, err := db.Open(ctx, &cfg.Store, logger.Named("store"))
	if err != nil {
		return nil, nil, fmt.Errorf("open record store: %w", err)
	}

	stacksClient := stacks.NewClient(cfg.Source.APIURL,
		stacks.WithLogger(logger.Named("stacks")),
		stacks.WithRateLimit(cfg.Source.RequestsPerSecond, int(cfg.Source.RequestsPerSecond)),
	)
	watcher, err := stacks.NewWatcher(
		stacksClient,
		stacks.ScanConfig{
			Chain:             sourceChain,
			AssetIdentifier:   cfg.Source.AssetIdentifier,
			GatewayAddress:    cfg.Source.GatewayAddress,
			CustodianContract: cfg.Source.CustodianContract,
			CustodianFunction: cfg.Source.CustodianFunction,
		},
		stacks.WatchConfig{
			Mode:               cfg.Source.Mode,
			WSURL:              cfg.Source.WSURL,
			PollInterval:       cfg.Monitoring.PollInterval,
			RetryDelay:         cfg.Monitoring.RetryDelay,
			StartHeight:        cfg.Source.StartHeight,
			MaxDepositAttempts: cfg.Monitoring.MaxDepositAttempts,
		},
		store,
		logger.Named("watcher"),
	)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("create source watcher: %w", err)
	}

	ethClient, err := ethereum.NewClient(&cfg.Destination, logger.Named("ethereum"))
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("initialize ethereum client: %w", err)
	}

	maxGasPrice, err := cfg.Destination.MaxGasPriceWei()
	if err != nil {
		ethClient.Close()
		_ = store.Close()
		return nil, nil, err
	}
	submitter := ethereum.NewSubmitter(ethClient, ethClient, ethereum.SubmitterConfig{
		Chain:               destinationChain,
		GasLimit:            cfg.Destination.GasLimit,
		MaxGasPrice:         maxGasPrice,
		FeeQuoteTimeout:     cfg.Destination.FeeQuoteTimeout,
		ReceiptPollInterval: cfg.Destination.ReceiptPollInterval,
		ReceiptTimeout:      cfg.Destination.ReceiptTimeout,
	}, logger.Named("submitter"))

	confirmations := ethereum.NewConfirmationWatcher(ethClient, ethereum.ConfirmationConfig{
		Chain:          destinationChain,
		PollInterval:   cfg.Destination.ConfirmationPollInterval,
		RetryDelay:     cfg.Monitoring.RetryDelay,
		StartBlock:     cfg.Destination.ConfirmationStartBlock,
		LookbackBlocks: cfg.Destination.LookbackBlocks,
		MaxBlockRange:  cfg.Destination.LogBlockRange,
	}, logger.Named("confirmations"))

	coordinator := relayer.NewCoordinator(watcher, confirmations, submitter, store, logger.Named("coordinator"))
	orchestrator := relayer.NewOrchestrator(
		coordinator,
		stacksClient,
		ethClient,
		audit,
		cfg.Redacted(),
		logger.Named("orchestrator"),
	)

	logger.Info("Relayer assembled",
		zap.String("relayer_address", ethClient.Address().Hex()),
		zap.String("bridge_contract", cfg.Destination.BridgeContract),
		zap.String("source_mode", cfg.Source.Mode),
		zap.String("store", cfg.Store.Driver))

	cleanup := func() {
		ethClient.Close()
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close record store", zap.Error(err))
		}
	}
	return orchestrator, cleanup, nil
}

// NewRouter builds the admin API
func NewRouter(r Relayer, cfg *config.Config, logger *zap.Logger) http.Handler {
	h := &handler{relayer: r, decimals: cfg.Source.Decimals, logger: logger}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(defaultHTTPMiddlewareTimeout))
	router.Use(requestLogger(logger))

	router.Get("/health", apphttp.HandleError(logger, h.health))
	router.Get("/ready", apphttp.HandleError(logger, h.ready))

	if cfg.Monitoring.MetricsEnabled {
		router.Handle("/metrics", promhttp.Handler())
		logger.Info("Metrics enabled", zap.String("path", "/metrics"))
	}

	router.Route("/api/v1/relayer", func(r chi.Router) {
		r.Post("/start", apphttp.HandleError(logger, h.start))
		r.Post("/stop", apphttp.HandleError(logger, h.stop))
		r.Post("/restart", apphttp.HandleError(logger, h.restart))
		r.Get("/status", apphttp.HandleError(logger, h.status))
		r.Get("/config", apphttp.HandleError(logger, h.config))
		r.Get("/logs", apphttp.HandleError(logger, h.logs))
		r.Delete("/logs", apphttp.HandleError(logger, h.clearLogs))
		r.Get("/logs/stats", apphttp.HandleError(logger, h.logStats))
		r.Get("/messages", apphttp.HandleError(logger, h.messages))
		r.Post("/events", apphttp.HandleError(logger, h.submitEvent))
	})

	return router
}

// requestLogger writes one debug line per request through zap
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
