package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adwalk/listing-agent/internal/app"
)

func newReleaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "release",
		Short: "Clear the block flag",
		Long: `Lowers the shared block flag so the next run proceeds immediately.
Use after verifying by hand that the site serves normal pages again.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck // best-effort flush

			ctx := cmd.Context()
			services, err := app.New(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("initialize services: %w", err)
			}
			defer services.Close()

			if err := services.Flag.Release(ctx); err != nil {
				return fmt.Errorf("release block flag: %w", err)
			}
			logger.Info("block flag released")
			return nil
		},
	}
}
