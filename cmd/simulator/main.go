package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/CSroseX/load-degradation-simulator/internal/analytics"
	"github.com/CSroseX/load-degradation-simulator/internal/config"
	"github.com/CSroseX/load-degradation-simulator/internal/logging"
	"github.com/CSroseX/load-degradation-simulator/internal/middleware"
	"github.com/CSroseX/load-degradation-simulator/internal/observability"
	"github.com/CSroseX/load-degradation-simulator/internal/server"
	"github.com/CSroseX/load-degradation-simulator/internal/simulator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// ---- Tracing ----
	if cfg.Tracing.Enabled {
		shutdown, err := observability.InitTracer(cfg.Tracing.ServiceName, os.Stdout)
		if err != nil {
			logger.Fatal("tracing setup failed", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	// ---- Observers ----
	metrics := middleware.NewMetrics()
	observers := []simulator.Observer{metrics, observability.SpanObserver{}}

	var stats *analytics.Analytics
	if cfg.Analytics.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.Analytics.RedisAddr,
		})
		defer redisClient.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.Warn("redis unreachable, analytics disabled",
				zap.String("addr", cfg.Analytics.RedisAddr), zap.Error(err))
		} else {
			stats = analytics.NewAnalytics(redisClient, logger)
			defer stats.Close()
			observers = append(observers, stats)
			logger.Info("analytics enabled", zap.String("addr", cfg.Analytics.RedisAddr))
		}
	}

	// ---- Simulator ----
	sim := simulator.New(
		simulator.WithLogger(logger),
		simulator.WithObserver(observers...),
	)
	metrics.TrackInFlight(sim)

	srv, err := server.New(server.Options{
		Config:    cfg,
		Logger:    logger,
		Simulator: sim,
		Profiles:  simulator.DefaultProfiles(),
		Metrics:   metrics,
		Analytics: stats,
	})
	if err != nil {
		logger.Fatal("server setup failed", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	case sig := <-sigChan:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}
}
