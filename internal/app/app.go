// Package app builds the long-lived services behind the agent from the
// typed configuration: the progress store, the block flag, the result sink
// and the snapshot archive. It is the single place that knows which backend
// implementations exist.
package app

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/adwalk/listing-agent/internal/archive"
	"github.com/adwalk/listing-agent/internal/blockguard"
	"github.com/adwalk/listing-agent/internal/config"
	"github.com/adwalk/listing-agent/internal/result"
	"github.com/adwalk/listing-agent/internal/state"
)

// App holds the configured service implementations.
type App struct {
	Logger  *zap.Logger
	Store   state.Store
	Flag    blockguard.Flag
	Results result.Sink
	Archive archive.Store

	closers []func()
}

// New fails fast: any backend that cannot be constructed aborts startup.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Logger: logger}

	if err := a.initStore(ctx, cfg); err != nil {
		return nil, err
	}
	if err := a.initFlag(cfg); err != nil {
		return nil, err
	}
	if err := a.initResults(ctx, cfg); err != nil {
		return nil, err
	}
	if err := a.initArchive(ctx, cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// Close releases every held connection.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *App) initStore(ctx context.Context, cfg config.Config) error {
	switch cfg.State.Backend {
	case config.BackendFile:
		store, err := state.NewFileStore(cfg.State.Dir)
		if err != nil {
			return fmt.Errorf("init file state store: %w", err)
		}
		a.Store = store
	case config.BackendMemory:
		a.Store = state.NewMemoryStore()
	case config.BackendPostgres:
		store, err := state.NewPostgresStore(ctx, cfg.State.Postgres)
		if err != nil {
			return fmt.Errorf("init postgres state store: %w", err)
		}
		a.Store = store
		a.closers = append(a.closers, store.Close)
	}
	a.Logger.Info("progress store ready", zap.String("backend", cfg.State.Backend))
	return nil
}

func (a *App) initFlag(cfg config.Config) error {
	switch cfg.Block.Backend {
	case config.BackendFile:
		flag, err := blockguard.NewFileFlag(cfg.Block.Dir)
		if err != nil {
			return fmt.Errorf("init file block flag: %w", err)
		}
		a.Flag = flag
	case config.BackendMemory:
		a.Flag = blockguard.NewMemoryFlag()
	case config.BackendRedis:
		flag := blockguard.NewRedisFlag(cfg.Block.Redis.Addr, cfg.Block.Redis.Key)
		a.Flag = flag
		a.closers = append(a.closers, func() {
			if err := flag.Close(); err != nil {
				a.Logger.Warn("closing redis block flag failed", zap.Error(err))
			}
		})
	}
	a.Logger.Info("block flag ready", zap.String("backend", cfg.Block.Backend))
	return nil
}

func (a *App) initResults(ctx context.Context, cfg config.Config) error {
	switch cfg.Result.Backend {
	case config.BackendNone:
		a.Results = nil
	case config.BackendFile:
		sink, err := result.NewFileSink(cfg.Result.Dir)
		if err != nil {
			return fmt.Errorf("init file result sink: %w", err)
		}
		a.Results = sink
	case config.BackendHTTP:
		sink, err := result.NewHTTPSink(cfg.Result.HTTP)
		if err != nil {
			return fmt.Errorf("init http result sink: %w", err)
		}
		a.Results = sink
	case config.BackendPubSub:
		client, err := pubsub.NewClient(ctx, cfg.Result.PubSub.ProjectID)
		if err != nil {
			return fmt.Errorf("connect pubsub: %w", err)
		}
		topic := client.Topic(cfg.Result.PubSub.TopicID)
		sink, err := result.NewPubSubSink(topic)
		if err != nil {
			return fmt.Errorf("init pubsub result sink: %w", err)
		}
		a.Results = sink
		a.closers = append(a.closers, func() {
			topic.Stop()
			if err := client.Close(); err != nil {
				a.Logger.Warn("closing pubsub client failed", zap.Error(err))
			}
		})
	}
	a.Logger.Info("result sink ready", zap.String("backend", cfg.Result.Backend))
	return nil
}

func (a *App) initArchive(ctx context.Context, cfg config.Config) error {
	switch cfg.Archive.Backend {
	case config.BackendNone:
		a.Archive = archive.Nop{}
	case config.BackendMemory:
		a.Archive = archive.NewMemoryStore()
	case config.BackendLocal:
		store, err := archive.NewLocalStore(cfg.Archive.Dir)
		if err != nil {
			return fmt.Errorf("init local archive: %w", err)
		}
		a.Archive = store
	case config.BackendGCS:
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("connect cloud storage: %w", err)
		}
		store, err := archive.NewGCSStore(client, cfg.Archive.Bucket)
		if err != nil {
			return fmt.Errorf("init gcs archive: %w", err)
		}
		a.Archive = store
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				a.Logger.Warn("closing storage client failed", zap.Error(err))
			}
		})
	}
	a.Logger.Info("snapshot archive ready", zap.String("backend", cfg.Archive.Backend))
	return nil
}
