package cmd

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newRunCmd creates the one-shot `run` command.
func newRunCmd() *cobra.Command {
	var (
		flags  pageFlags
		asJSON bool
	)

	runCmd := &cobra.Command{
		Use:   "run [command...]",
		Short: "Observe the page, plan the command with the AI backend and execute it",
		Example: `  pagepilot run --url https://example.com/login "log in as demo with password demo"
  pagepilot run --html form.html --provider openai "accept the terms"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			orch, err := buildOrchestrator(ctx, cfg, t.page, logger)
			if err != nil {
				return err
			}

			summary, err := orch.Run(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			logger.Debug("Run complete.", zap.String("run_id", summary.RunID))

			if asJSON {
				out, err := json.MarshalIndent(summary, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary.Message)
			return nil
		},
	}

	flags.register(runCmd)
	runCmd.Flags().BoolVar(&asJSON, "json", false, "print the full summary as JSON")
	return runCmd
}
