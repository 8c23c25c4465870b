package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"absence-ml/internal/api"
	"absence-ml/internal/cfg"
	"absence-ml/internal/featurestore"
	"absence-ml/internal/metrics"
	"absence-ml/internal/ml"
	"absence-ml/internal/realtime"
	"absence-ml/internal/storage"
)

func main() {
	// Local development keeps store credentials in a .env file.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	store := featurestore.NewWithMetrics(c.StoreURL, c.ServiceKey, c.RESTTimeout, mw)

	ledger := initializeLedger(c)
	if ledger != nil {
		defer ledger.Close()
	}

	svc := ml.NewService(store, ml.NewCache(), ml.Config{
		DriverFetchCap:  c.DriverFetchCap,
		TrainFetchCap:   c.TrainFetchCap,
		MinTrainingRows: c.MinTrainingRows,
	}, mw, ledgerRecorder(ledger))

	startMetricsServer(ctx, c.MetricsPort)
	startRealtimeListener(ctx, c, svc)

	server := api.NewServer(svc, ledger, c.APIPort)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("API server failed")
			cancel()
		}
	}()

	waitForShutdown(ctx, cancel, server)
}

// initializeLedger opens the training-history ledger if DATA_PATH is
// configured; the service runs without history otherwise.
func initializeLedger(c cfg.Settings) *storage.Ledger {
	if c.DataPath == "" {
		return nil
	}
	ledger, err := storage.Open(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("ledger initialization failed, continuing without training history")
		return nil
	}
	return ledger
}

// ledgerRecorder adapts a possibly-nil ledger to the recorder interface.
// A typed nil pointer inside a non-nil interface would defeat the
// service's nil check.
func ledgerRecorder(ledger *storage.Ledger) ml.TrainingRecorder {
	if ledger == nil {
		return nil
	}
	return ledger
}

// startMetricsServer starts the Prometheus metrics HTTP server.
func startMetricsServer(ctx context.Context, port int) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			if err := server.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to shutdown metrics server")
			}
		}()

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// startRealtimeListener subscribes to feature store changes when a
// realtime URL is configured, invalidating the classifier so the next
// request retrains on fresh rows.
func startRealtimeListener(ctx context.Context, c cfg.Settings, svc *ml.Service) {
	if c.RealtimeURL == "" {
		return
	}

	listener := realtime.New(c.RealtimeURL, c.ServiceKey, svc.Cache(), []string{ml.ClassifierModelID})
	go func() {
		if err := listener.Run(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("realtime listener stopped")
		}
	}()
}

// waitForShutdown blocks until a signal arrives, then drains the API
// server gracefully.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, server *api.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("API server shutdown timed out")
	}

	log.Info().Msg("shutdown complete")
}
