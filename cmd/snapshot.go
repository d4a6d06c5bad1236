package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/pagepilot/internal/observability"
	"github.com/xkilldash9x/pagepilot/internal/observer"
)

// newSnapshotCmd prints what the planner would see for a page.
func newSnapshotCmd() *cobra.Command {
	var flags pageFlags

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the interactive elements of a page as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}

			t, err := openTarget(ctx, cfg, flags, logger)
			if err != nil {
				return err
			}
			defer t.close()

			snapshot, err := observer.New(t.page, logger, cfg.Observer.MaxElements).Observe(ctx)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(snapshot, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	flags.register(snapshotCmd)
	return snapshotCmd
}
