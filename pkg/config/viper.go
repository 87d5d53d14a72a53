// Package config initializes the viper settings tree: file discovery,
// defaults, and environment overrides. The typed view lives in
// internal/config; this package only makes sure viper has something to give
// it.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// InitConfig wires defaults, search paths and the ADWALK_ environment
// prefix. Call once at startup, before internal/config.Load.
func InitConfig(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/listing-agent/")
	viper.AddConfigPath("$HOME/.listing-agent")

	viper.SetDefault("development", false)

	viper.SetDefault("state.backend", "file")
	viper.SetDefault("state.dir", "data/state")
	viper.SetDefault("block.backend", "file")
	viper.SetDefault("block.dir", "data/state")
	viper.SetDefault("result.backend", "file")
	viper.SetDefault("result.dir", "data/results")
	viper.SetDefault("archive.backend", "none")
	viper.SetDefault("archive.dir", "data/snapshots")

	viper.SetDefault("server.enabled", true)
	viper.SetDefault("server.addr", ":8080")

	viper.SetDefault("browser.headless", true)
	viper.SetDefault("browser.nav_timeout", "45s")

	viper.SetDefault("collector.page_qps", 0.5)
	viper.SetDefault("collector.max_pages", 25)
	viper.SetDefault("collector.request_timeout", "15s")

	viper.SetDefault("job.max_items", 50)

	// e.g. ADWALK_STATE_BACKEND=postgres
	viper.SetEnvPrefix("ADWALK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Info("no config file found, using defaults and environment")
		} else {
			logger.Error("reading config file failed", zap.Error(err))
		}
	} else {
		logger.Info("using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}
