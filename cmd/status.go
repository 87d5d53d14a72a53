package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adwalk/listing-agent/internal/app"
	"github.com/adwalk/listing-agent/internal/blockguard"
	"github.com/adwalk/listing-agent/internal/state"
)

type statusReport struct {
	Walk  *walkReport       `json:"walk,omitempty"`
	Block blockguard.Status `json:"block"`
}

type walkReport struct {
	JobID      string `json:"job_id"`
	Cursor     int    `json:"cursor"`
	Targets    int    `json:"targets"`
	Extracted  int    `json:"extracted"`
	Recoveries int    `json:"recoveries"`
	Errors     int    `json:"errors"`
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the persisted walk and block state",
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

			report := statusReport{}
			if p, err := services.Store.Load(ctx); err == nil {
				report.Walk = &walkReport{
					JobID:      p.JobID,
					Cursor:     p.Cursor,
					Targets:    len(p.TargetQueue),
					Extracted:  len(p.Results),
					Recoveries: p.Recoveries,
					Errors:     len(p.Errors),
				}
			} else if !errors.Is(err, state.ErrNotFound) {
				return fmt.Errorf("load progress: %w", err)
			}

			status, err := services.Flag.Status(ctx)
			if err != nil {
				return fmt.Errorf("read block flag: %w", err)
			}
			report.Block = status

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
