package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kapesync/internal/model"
)

// OrderOptions holds flags for the order subcommands.
type OrderOptions struct {
	*RootOptions

	Customer string
	TakeOut  bool
	Lines    []string // name=quantity pairs resolved against the catalog
	Status   string
	Remote   bool
}

// NewOrderCommand creates the order command group.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Place and manage orders",
	}
	cmd.AddCommand(newOrderPlaceCommand(rootOpts))
	cmd.AddCommand(newOrderListCommand(rootOpts))
	cmd.AddCommand(newOrderShowCommand(rootOpts))
	cmd.AddCommand(newOrderPayCommand(rootOpts))
	cmd.AddCommand(newOrderCancelCommand(rootOpts))
	return cmd
}

func newOrderPlaceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "place --line <item>=<qty> [--line ...]",
		Short: "Place an order from item/quantity pairs",
		Long: `Place an order. Each --line names a catalog item and a quantity,
for example --line Americano=2. The order is saved locally first and
mirrored to the backend when connectivity allows.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close(ctx)
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

			orderType := model.OrderDineIn
			if opts.TakeOut {
				orderType = model.OrderTakeOut
			}
			cart, err := a.coordinator.NewCart(orderType, opts.Customer)
			if err != nil {
				return writeFailure(out, err)
			}

			items, err := a.coordinator.Items(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "list items", err)
			}
			idByName := make(map[string]string, len(items))
			for _, it := range items {
				idByName[it.Name] = it.ID
			}

			for _, line := range opts.Lines {
				name, qty, err := parseLine(line)
				if err != nil {
					return writeFailure(out, err)
				}
				id, ok := idByName[name]
				if !ok {
					return writeFailure(out, fmt.Errorf("unknown item %q", name))
				}
				if err := cart.AddLine(ctx, id, qty); err != nil {
					return writeFailure(out, err)
				}
			}

			o, res, err := a.coordinator.PlaceOrder(ctx, cart)
			if err != nil {
				return writeFailure(out, err)
			}
			if opts.Format == "json" {
				return out.Success(struct {
					Order  model.Order `json:"order"`
					Queued bool        `json:"queued"`
					Notice string      `json:"notice,omitempty"`
				}{o, res.Queued, res.Notice})
			}
			text := RenderReceipt(o)
			if res.Queued {
				text += "\n" + res.Notice
			}
			return out.Success(text)
		},
	}

	cmd.Flags().StringVar(&opts.Customer, "customer", "", "customer name on the receipt")
	cmd.Flags().BoolVar(&opts.TakeOut, "take-out", false, "take-out order (consumes cups)")
	cmd.Flags().StringArrayVar(&opts.Lines, "line", nil, "item=quantity, repeatable")
	_ = cmd.MarkFlagRequired("line")

	return cmd
}

// parseLine splits "Americano=2" into name and quantity.
func parseLine(s string) (string, int, error) {
	name, qtyStr, found := strings.Cut(s, "=")
	if !found || name == "" {
		return "", 0, fmt.Errorf("malformed line %q: want item=quantity", s)
	}
	var qty int
	if _, err := fmt.Sscanf(qtyStr, "%d", &qty); err != nil {
		return "", 0, fmt.Errorf("malformed quantity in %q: %w", s, err)
	}
	return name, qty, nil
}

func newOrderListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List stored receipts",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close(ctx)
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

			var statuses []model.OrderStatus
			if opts.Status != "" {
				statuses = append(statuses, model.OrderStatus(opts.Status))
			}

			var orders []model.Order
			if opts.Remote {
				if a.gateway == nil {
					return WrapExitError(ExitCommandError, "list remote orders",
						fmt.Errorf("no backend configured"))
				}
				if len(statuses) == 0 {
					statuses = []model.OrderStatus{model.OrderUnpaid, model.OrderPaid, model.OrderCancelled}
				}
				orders, err = a.gateway.OrdersByStatus(ctx, statuses...)
			} else {
				orders, err = a.coordinator.Receipts(ctx, statuses...)
			}
			if err != nil {
				return WrapExitError(ExitCommandError, "list orders", err)
			}
			if opts.Format == "json" {
				return out.Success(orders)
			}

			var b strings.Builder
			w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ORDER\tCUSTOMER\tTYPE\tTOTAL\tSTATUS\tSYNCED")
			for _, o := range orders {
				synced := "yes"
				if o.RemoteID == "" {
					synced = "no"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					o.OrderID, o.CustomerName, o.OrderType, formatPHP(o.Total), o.Status, synced)
			}
			_ = w.Flush()
			return out.Success(strings.TrimRight(b.String(), "\n"))
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status (unpaid|paid|cancelled)")
	cmd.Flags().BoolVar(&opts.Remote, "remote", false, "list orders from the backend instead of the local store")
	return cmd
}

func newOrderShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrderOptions{RootOptions: rootOpts}

	return &cobra.Command{
		Use:           "show <order-id>",
		Short:         "Print a stored receipt",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close(ctx)
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

			o, err := a.coordinator.Receipt(ctx, args[0])
			if err != nil {
				return writeFailure(out, err)
			}
			if opts.Format == "json" {
				return out.Success(o)
			}
			return out.Success(RenderReceipt(o))
		},
	}
}

func newOrderPayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrderOptions{RootOptions: rootOpts}

	return &cobra.Command{
		Use:           "pay <order-id>",
		Short:         "Finalize an unpaid order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close(ctx)
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

			o, res, err := a.coordinator.FinalizeOrder(ctx, args[0])
			if err != nil {
				return writeFailure(out, err)
			}
			if opts.Format == "json" {
				return out.Success(o)
			}
			text := RenderReceipt(o)
			if res.Queued {
				text += "\n" + res.Notice
			}
			return out.Success(text)
		},
	}
}

func newOrderCancelCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrderOptions{RootOptions: rootOpts}

	return &cobra.Command{
		Use:           "cancel <order-id>",
		Short:         "Cancel an unpaid order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close(ctx)
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}

			o, res, err := a.coordinator.CancelOrder(ctx, args[0])
			if err != nil {
				return writeFailure(out, err)
			}
			if opts.Format == "json" {
				return out.Success(o)
			}
			text := fmt.Sprintf("order cancelled: %s", o.OrderID)
			if res.Queued {
				text += "\n" + res.Notice
			}
			return out.Success(text)
		},
	}
}
