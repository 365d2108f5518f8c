package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rail-service/usdc-bridge/internal/api/routes"
	"github.com/rail-service/usdc-bridge/internal/infrastructure/config"
	"github.com/rail-service/usdc-bridge/internal/infrastructure/di"
	"github.com/rail-service/usdc-bridge/pkg/graceful"
	"github.com/rail-service/usdc-bridge/pkg/logger"
	"github.com/rail-service/usdc-bridge/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	tracingShutdown, err := tracing.InitTracer(context.Background(), tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		CollectorURL: cfg.Tracing.CollectorURL,
		Environment:  cfg.Environment,
		SampleRate:   cfg.Tracing.SampleRate,
		Insecure:     cfg.Environment == "development",
	}, log.Zap())
	if err != nil {
		log.Fatal("Failed to initialize tracing", "error", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingShutdown(ctx); err != nil {
			log.Warn("Tracer shutdown error", "error", err)
		}
	}()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	container, err := di.NewContainer(startCtx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("Failed to create DI container", "error", err)
	}

	if cfg.Transfer.PollerEnabled {
		if err := container.Poller.Start(); err != nil {
			log.Fatal("Failed to start transfer poller", "error", err)
		}
	} else {
		log.Warn("Transfer poller disabled; transfers advance only on explicit poll")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      routes.SetupRoutes(container),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	shutdown := graceful.NewShutdownManager(server, log)
	shutdown.SetTimeout(container.ShutdownTimeout())
	if cfg.Transfer.PollerEnabled {
		shutdown.Register(container.Poller)
	}
	shutdown.RegisterCloser("container", container)

	go func() {
		log.Info("Starting server",
			"addr", server.Addr,
			"environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	shutdown.WaitForShutdown()
}
