package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/pagepilot/internal/history"
	"github.com/xkilldash9x/pagepilot/internal/observability"
	"github.com/xkilldash9x/pagepilot/internal/tui"
)

// newChatCmd starts the interactive front-end on one page.
func newChatCmd() *cobra.Command {
	var flags pageFlags

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Open an interactive chat that drives the page",
		Args:  cobra.NoArgs,
		// Console logging would draw over the UI.
		Annotations: map[string]string{annotationQuietLogs: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}

			transcript, err := history.Open(cfg.History.Path, cfg.History.MaxMessages)
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

			return tui.Run(ctx, tui.New(ctx, orch, transcript, logger, t.label))
		},
	}

	flags.register(chatCmd)
	return chatCmd
}
