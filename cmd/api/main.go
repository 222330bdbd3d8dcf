package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	httpadapter "github.com/kirillkom/document-intelligence/internal/adapters/http"
	"github.com/kirillkom/document-intelligence/internal/bootstrap"
	"github.com/kirillkom/document-intelligence/internal/config"
	"github.com/kirillkom/document-intelligence/internal/core/domain"
	"github.com/kirillkom/document-intelligence/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "api", logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if app.Queue != nil {
		go func() {
			err := app.Queue.SubscribeProcessed(ctx, func(handlerCtx context.Context, event domain.DocumentEvent) error {
				if app.Pipeline.Absorb(handlerCtx, event) {
					return app.Events.Publish(handlerCtx, event)
				}
				return nil
			})
			if err != nil {
				logger.Error("processed_subscribe_failed", "error", err)
			}
		}()
	}

	router, err := httpadapter.NewRouter(httpadapter.RouterDeps{
		Config:    cfg,
		Pipeline:  app.Pipeline,
		QA:        app.QA,
		Search:    app.Index,
		Ingest:    app.Ingest,
		Events:    app.Events,
		Gatherers: []prometheus.Gatherer{app.Metrics.Gatherer()},
		Logger:    logger,
	})
	if err != nil {
		logger.Error("router_init_failed", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.ProcessTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort, "data_dir", cfg.DataDir)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	if cfg.IngestOnStart {
		queued, err := app.Ingest.Start(ctx)
		if err != nil {
			logger.Warn("startup_ingest_failed", "error", err)
		} else {
			logger.Info("startup_ingest_started", "documents", queued)
		}
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown_failed", "error", err)
	}
}
