package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adwalk/listing-agent/internal/agent"
	"github.com/adwalk/listing-agent/internal/app"
	"github.com/adwalk/listing-agent/internal/browser"
)

// nopSession satisfies the agent's session requirement for commands that
// never navigate.
type nopSession struct{}

func (nopSession) Location(context.Context) (string, error) { return "", nil }
func (nopSession) Navigate(context.Context, string) error   { return nil }
func (nopSession) Back(context.Context) error               { return nil }
func (nopSession) WaitReady(context.Context, string) error  { return nil }
func (nopSession) HTML(context.Context) (string, error)     { return "", nil }
func (nopSession) ScrollBy(context.Context, int) error      { return nil }
func (nopSession) Click(context.Context, string) error      { return nil }
func (nopSession) Close(context.Context) error              { return nil }

var _ browser.Session = nopSession{}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the walk in flight",
		Long: `Delivers whatever has been extracted so far with a cancelled status
and clears the persisted progress record. Safe to run when nothing is in
flight.`,
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

			ag, err := agent.New(cfg.Agent, agent.Deps{
				Store:   services.Store,
				Session: nopSession{},
				Flag:    services.Flag,
				Results: services.Results,
				Logger:  logger,
			})
			if err != nil {
				return fmt.Errorf("build agent: %w", err)
			}
			if err := ag.Cancel(ctx); err != nil {
				return fmt.Errorf("cancel walk: %w", err)
			}
			logger.Info("walk cancelled", zap.String("state_backend", cfg.State.Backend))
			return nil
		},
	}
}
