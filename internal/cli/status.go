package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"kapesync/internal/model"
)

// StatusOptions holds flags for the status command.
type StatusOptions struct {
	*RootOptions
}

// statusReport is the status command payload.
type statusReport struct {
	Mode            model.ConnectionMode `json:"mode"`
	QueueDepth      int                  `json:"queue_depth"`
	PendingReceipts int                  `json:"pending_receipts"`
	UnpaidOrders    int                  `json:"unpaid_orders"`
	User            string               `json:"user,omitempty"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}

	return &cobra.Command{
		Use:           "status",
		Short:         "Show connectivity mode and queue depth",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			depth, err := a.coordinator.QueueDepth(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "read queue", err)
			}
			receipts, err := a.coordinator.Receipts(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "read receipts", err)
			}
			unpaid := 0
			for _, o := range receipts {
				if o.Status == model.OrderUnpaid {
					unpaid++
				}
			}

			report := statusReport{
				Mode:            a.coordinator.Mode(ctx),
				QueueDepth:      depth,
				PendingReceipts: len(receipts),
				UnpaidOrders:    unpaid,
			}
			if u, ok, err := a.store.CurrentUser(ctx); err == nil && ok {
				report.User = u.Username
			}

			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			if opts.Format == "json" {
				return out.Success(report)
			}
			var b strings.Builder
			fmt.Fprintf(&b, "mode:             %s\n", report.Mode)
			fmt.Fprintf(&b, "queued mutations: %d\n", report.QueueDepth)
			fmt.Fprintf(&b, "stored receipts:  %d\n", report.PendingReceipts)
			fmt.Fprintf(&b, "unpaid orders:    %d", report.UnpaidOrders)
			if report.User != "" {
				fmt.Fprintf(&b, "\nsigned in as:     %s", report.User)
			}
			return out.Success(b.String())
		},
	}
}
