// Package config maps the viper-loaded settings tree onto typed structs and
// validates backend selections before anything connects.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/adwalk/listing-agent/internal/agent"
	"github.com/adwalk/listing-agent/internal/browser"
	"github.com/adwalk/listing-agent/internal/job"
	"github.com/adwalk/listing-agent/internal/links"
	"github.com/adwalk/listing-agent/internal/result"
	"github.com/adwalk/listing-agent/internal/state"
)

// Backend names accepted by the pluggable layers.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
	BackendHTTP     = "http"
	BackendPubSub   = "pubsub"
	BackendLocal    = "local"
	BackendGCS      = "gcs"
	BackendNone     = "none"
)

// StateConfig selects where the progress record lives.
type StateConfig struct {
	Backend  string                    `mapstructure:"backend"`
	Dir      string                    `mapstructure:"dir"`
	Postgres state.PostgresStoreConfig `mapstructure:"postgres"`
}

// RedisConfig locates the shared Redis block flag.
type RedisConfig struct {
	Addr string `mapstructure:"addr"`
	Key  string `mapstructure:"key"`
}

// BlockConfig selects the block flag backend.
type BlockConfig struct {
	Backend string      `mapstructure:"backend"`
	Dir     string      `mapstructure:"dir"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// PubSubConfig locates the completion topic.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// ResultConfig selects how finished payloads leave the agent.
type ResultConfig struct {
	Backend string                `mapstructure:"backend"`
	Dir     string                `mapstructure:"dir"`
	HTTP    result.HTTPSinkConfig `mapstructure:"http"`
	PubSub  PubSubConfig          `mapstructure:"pubsub"`
}

// ArchiveConfig selects the snapshot store.
type ArchiveConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
	Bucket  string `mapstructure:"bucket"`
}

// ServerConfig controls the ops endpoint.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Config is the whole settings tree.
type Config struct {
	Development bool           `mapstructure:"development"`
	Job         job.Job        `mapstructure:"job"`
	Agent       agent.Config   `mapstructure:"agent"`
	Browser     browser.Config `mapstructure:"browser"`
	Collector   links.Config   `mapstructure:"collector"`
	State       StateConfig    `mapstructure:"state"`
	Block       BlockConfig    `mapstructure:"block"`
	Result      ResultConfig   `mapstructure:"result"`
	Archive     ArchiveConfig  `mapstructure:"archive"`
	Server      ServerConfig   `mapstructure:"server"`
}

// Load unmarshals and validates the settings tree.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch c.State.Backend {
	case BackendFile, BackendMemory:
	case BackendPostgres:
		if c.State.Postgres.DSN == "" {
			return fmt.Errorf("state backend is %q but state.postgres.dsn is not set", BackendPostgres)
		}
	default:
		return fmt.Errorf("unknown state backend %q", c.State.Backend)
	}

	switch c.Block.Backend {
	case BackendFile, BackendMemory:
	case BackendRedis:
		if c.Block.Redis.Addr == "" {
			return fmt.Errorf("block backend is %q but block.redis.addr is not set", BackendRedis)
		}
	default:
		return fmt.Errorf("unknown block backend %q", c.Block.Backend)
	}

	switch c.Result.Backend {
	case BackendFile, BackendNone:
	case BackendHTTP:
		if c.Result.HTTP.Endpoint == "" {
			return fmt.Errorf("result backend is %q but result.http.endpoint is not set", BackendHTTP)
		}
	case BackendPubSub:
		if c.Result.PubSub.ProjectID == "" || c.Result.PubSub.TopicID == "" {
			return fmt.Errorf("result backend is %q but pubsub project/topic are not set", BackendPubSub)
		}
	default:
		return fmt.Errorf("unknown result backend %q", c.Result.Backend)
	}

	switch c.Archive.Backend {
	case BackendNone, BackendLocal, BackendMemory:
	case BackendGCS:
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive backend is %q but archive.bucket is not set", BackendGCS)
		}
	default:
		return fmt.Errorf("unknown archive backend %q", c.Archive.Backend)
	}

	return nil
}
