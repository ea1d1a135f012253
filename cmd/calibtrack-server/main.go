package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/calibworks/calibtrack/internal/audit"
	"github.com/calibworks/calibtrack/internal/config"
	"github.com/calibworks/calibtrack/internal/kvstore"
	"github.com/calibworks/calibtrack/internal/server"
	"github.com/calibworks/calibtrack/internal/transport"
	"github.com/calibworks/calibtrack/internal/ws"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	// Postgres when configured, the JSON file otherwise.
	var store kvstore.KV
	if cfg.DatabaseURL != "" {
		pg, err := kvstore.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Postgres")
		}
		defer pg.Close()
		store = pg
		logger.Info("Using Postgres store")
	} else {
		fs, err := kvstore.OpenFile(cfg.DataFile)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open data file")
		}
		store = fs
		logger.WithField("file", cfg.DataFile).Info("Using file store")
	}

	// The hosted engine shares the local backend's operation semantics;
	// only the mock latency simulation is switched off.
	engine := transport.NewLocalClient(store, logger)
	engine.DisableDelays()

	hub := ws.NewHub(logger)
	go hub.Run()

	var producer server.AuditPublisher
	if cfg.KafkaBrokers != "" {
		p, err := audit.NewProducer(cfg.KafkaBrokers, cfg.AuditTopic, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create audit producer")
		}
		defer p.Close()
		producer = p
		logger.WithField("topic", cfg.AuditTopic).Info("Audit publishing enabled")
	}

	srv := server.New(engine, hub, producer, logger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.HTTPPort).Info("Starting calibtrack server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server gracefully stopped")
}
