package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adwalk/listing-agent/internal/agent"
	"github.com/adwalk/listing-agent/internal/app"
	"github.com/adwalk/listing-agent/internal/blockguard"
	"github.com/adwalk/listing-agent/internal/browser"
	"github.com/adwalk/listing-agent/internal/config"
	"github.com/adwalk/listing-agent/internal/job"
	"github.com/adwalk/listing-agent/internal/links"
	"github.com/adwalk/listing-agent/internal/logging"
	"github.com/adwalk/listing-agent/internal/metrics"
	"github.com/adwalk/listing-agent/internal/progress"
	"github.com/adwalk/listing-agent/internal/progress/sinks"
	"github.com/adwalk/listing-agent/internal/server"
	"github.com/adwalk/listing-agent/internal/state"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start or resume the configured walk",
		Long: `Starts the walk described by the job configuration, or resumes the
persisted one if a progress record exists. The command returns when the
walk completes, pauses on a block, or is interrupted.`,
		RunE: runWalk,
	}
}

func runWalk(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer services.Close()

	metrics.Init()

	hub := newProgressHub(logger)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hub.Close(closeCtx); err != nil {
			logger.Warn("progress hub close failed", zap.Error(err))
		}
	}()

	if cfg.Server.Enabled {
		startOpsServer(ctx, cfg.Server, services, logger)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	observer := blockguard.NewTransportObserver(services.Flag, rng, logger)
	session, err := browser.NewChromedpSession(cfg.Browser, func(status int, url string) {
		if observer.Observe(ctx, status, url) {
			metrics.ObserveBlockRaised(blockguard.SourceTransport)
		}
	}, logger)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if err := session.Close(context.Background()); err != nil {
			logger.Warn("browser close failed", zap.Error(err))
		}
	}()

	collect := func(ctx context.Context, j job.Job) ([]string, error) {
		collectorCfg := cfg.Collector
		collectorCfg.AnchorURL = j.AnchorURL
		collectorCfg.MaxItems = j.MaxItems
		return links.NewCollector(collectorCfg, logger).Collect(ctx)
	}

	ag, err := agent.New(cfg.Agent, agent.Deps{
		Store:   services.Store,
		Session: session,
		Flag:    services.Flag,
		Results: services.Results,
		Archive: services.Archive,
		Emitter: hub,
		Collect: collect,
		Logger:  logger,
		Rng:     rng,
	})
	if err != nil {
		return fmt.Errorf("build agent: %w", err)
	}

	if err := startOrResume(ctx, ag, services.Store, cfg, logger); err != nil {
		return err
	}

	outcome, err := ag.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("walk failed: %w", err)
	}
	logger.Info("walk finished", zap.String("outcome", string(outcome)))
	return nil
}

func startOrResume(ctx context.Context, ag *agent.Agent, store state.Store, cfg config.Config, logger *zap.Logger) error {
	if p, err := store.Load(ctx); err == nil {
		logging.WithJob(logger, p.JobID).Info("resuming persisted walk",
			zap.Int("cursor", p.Cursor),
			zap.Int("targets", len(p.TargetQueue)))
		return nil
	} else if !errors.Is(err, state.ErrNotFound) {
		return fmt.Errorf("load progress: %w", err)
	}
	if cfg.Job.AnchorURL == "" {
		return errors.New("no walk in flight and no job.anchor_url configured")
	}
	if err := ag.Start(ctx, cfg.Job); err != nil {
		return fmt.Errorf("start job: %w", err)
	}
	return nil
}

func newProgressHub(logger *zap.Logger) *progress.Hub {
	hubSinks := []progress.Sink{sinks.NewLogSink(logger)}
	if prom, err := sinks.NewPrometheusSink(nil); err != nil {
		logger.Warn("prometheus progress sink unavailable", zap.Error(err))
	} else {
		hubSinks = append(hubSinks, prom)
	}
	return progress.NewHub(progress.Config{Logger: logger}, hubSinks...)
}

func startOpsServer(ctx context.Context, cfg config.ServerConfig, services *app.App, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(services.Store, services.Flag, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("ops server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server failed", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("ops server shutdown failed", zap.Error(err))
		}
	}()
}
