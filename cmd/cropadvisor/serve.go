package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cropadvisor/config"
	"cropadvisor/crops"
	qhttp "cropadvisor/http"
	"cropadvisor/llm"
	"cropadvisor/ml"
)

const (
	checkTimeout    = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load or train the classifier and serve the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A server without a classifier is useless, so failure here is fatal.
	model, err := ml.LoadOrTrain(cfg.ML.Provider(), logger)
	if err != nil {
		return fmt.Errorf("load classifier: %w", err)
	}
	classifier, err := ml.Cached(model, cfg.ML.CacheSize)
	if err != nil {
		return fmt.Errorf("prediction cache: %w", err)
	}

	kb, err := crops.Load()
	if err != nil {
		return fmt.Errorf("load crop knowledge base: %w", err)
	}

	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.HTTP.Port,
		Timeout:        cfg.HTTP.Timeout,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
	}, qhttp.Dependencies{
		Classifier:         classifier,
		Advisor:            newAdvisor(ctx, cfg, logger),
		Crops:              kb,
		Logger:             logger,
		Verbose:            cfg.IsDevelopment(),
		HealthCheckTimeout: checkTimeout,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	if err := <-errCh; err != nil {
		return err
	}
	logger.Info("exiting")
	return nil
}

// newAdvisor builds the configured advisor, or returns nil when advisory is
// disabled. A failed start-up check is logged but keeps the advisor.
func newAdvisor(ctx context.Context, cfg *config.Config, logger *zap.Logger) llm.Advisor {
	clientCfg := cfg.Advisory.Client()
	logger = logger.With(zap.String("provider", clientCfg.Provider))

	advisor, err := llm.New(ctx, clientCfg)
	if err != nil {
		if advErr, ok := llm.AsAdvisoryError(err); ok && advErr.Kind == llm.KindNotConfigured {
			logger.Warn("advisory service not configured; /ask will return 503")
		} else {
			logger.Error("advisory service unavailable", zap.Error(err))
		}
		return nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if _, err := advisor.Generate(checkCtx, "test"); err != nil {
		logger.Warn("advisory check failed", zap.Error(err))
	} else {
		logger.Info("advisory service connected")
	}
	return advisor
}
