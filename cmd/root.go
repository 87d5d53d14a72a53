// Package cmd defines the listing-agent CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/adwalk/listing-agent/internal/config"
	"github.com/adwalk/listing-agent/internal/logging"
	pkgconfig "github.com/adwalk/listing-agent/pkg/config"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listing-agent",
		Short: "A resumable, human-paced listing walker.",
		Long: `listing-agent walks a paginated listing, visits each item's detail
page like a human visitor would, extracts structured records through
configurable selector chains, and survives the teardown that every
navigation brings. Progress is durable: kill it, restart it, it picks up
where it left off.`,
	}

	cobra.OnInitialize(func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		}
		pkgconfig.InitConfig(nil)
	})

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., /etc/listing-agent, $HOME/.listing-agent)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newCancelCmd())
	cmd.AddCommand(newReleaseCmd())
	cmd.AddCommand(newStatusCmd())
	return cmd
}

// setup loads the typed config and builds the logger shared by every
// subcommand.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, logger, nil
}

// Execute is the entry point used by main.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
