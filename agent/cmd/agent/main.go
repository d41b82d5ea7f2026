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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chargewatch/chargewatch/agent/internal/config"
	"github.com/chargewatch/chargewatch/agent/internal/metrics"
	"github.com/chargewatch/chargewatch/agent/internal/monitor"
	"github.com/chargewatch/chargewatch/agent/internal/pipeline"
	"github.com/chargewatch/chargewatch/agent/internal/scraper"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	logLevel := flag.String("log-level", "info", "log level: debug | info | warn | error")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("chargewatch-agent starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"unit", cfg.Unit.Name,
		"unit_number", cfg.Unit.Number,
		"source", cfg.Source.Endpoint,
		"interval", cfg.Pipeline.Interval,
		"method", cfg.Monitor.Method,
		"power_threshold", cfg.Monitor.PowerThreshold,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	src, err := scraper.New(cfg.Source)
	if err != nil {
		slog.Error("failed to build source", "source", cfg.Source.ID, "err", err)
		os.Exit(1)
	}

	// Monitor settings are read once here; a config reload does not rebuild the step.
	step := monitor.NewStep(cfg.Monitor, cfg.Unit,
		monitor.WithLogger(logger),
		monitor.WithMetrics(m),
	)
	pipe := pipeline.New(step)
	slog.Info("pipeline ready", "steps", pipe.Steps(), "channel", step.Notifier().Name())

	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			slog.Info("config changed on disk; restart the agent to apply",
				"method", updated.Monitor.Method,
				"power_threshold", updated.Monitor.PowerThreshold,
			)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("metrics listening", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server stopped", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// Tick loop: read one sample per interval and push it through the pipeline.
	ticker := time.NewTicker(cfg.Pipeline.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("chargewatch-agent shutting down")
			return
		case <-ticker.C:
			sample, err := src.Read(ctx)
			if err != nil {
				m.SourceError()
				slog.Warn("source read failed, skipping tick", "source", cfg.Source.ID, "err", err)
				continue
			}
			pipe.Tick(ctx, sample)
			slog.Debug("tick complete", "fields", len(sample), "state", step.State().String())
		}
	}
}
