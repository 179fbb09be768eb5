package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kapesync/internal/model"
)

// NewSyncCommand creates the sync command: one explicit replay pass.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "sync",
		Short:         "Probe connectivity and replay the queue",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			report, err := a.coordinator.Sync(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "sync", err)
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if rootOpts.Format == "json" {
				return out.Success(report)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "mode: %s", report.Mode)
			if report.Mode != model.ModeOnline {
				fmt.Fprintf(&b, "\nnothing replayed")
				return out.Success(b.String())
			}
			fmt.Fprintf(&b, "\nattempted: %d", report.Attempted)
			fmt.Fprintf(&b, "\napplied:   %d", report.Applied)
			fmt.Fprintf(&b, "\nfailed:    %d", report.Failed)
			if err := out.Success(b.String()); err != nil {
				return err
			}
			if report.Failed > 0 {
				return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d mutations still queued", report.Failed)}
			}
			return nil
		},
	}
}
