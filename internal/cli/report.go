package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kapesync/internal/model"
)

// salesLine is one row of the sales summary.
type salesLine struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// salesReport aggregates paid orders.
type salesReport struct {
	Orders   int         `json:"orders"`
	CupsUsed int         `json:"cups_used"`
	Revenue  float64     `json:"revenue"`
	Lines    []salesLine `json:"lines"`
}

// NewReportCommand creates the report command: a sales summary over
// paid receipts in the local store.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "report",
		Short:         "Sales summary from paid orders",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close(ctx)
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}

			paid, err := a.coordinator.Receipts(ctx, model.OrderPaid)
			if err != nil {
				return WrapExitError(ExitCommandError, "list orders", err)
			}

			report := buildSalesReport(paid)
			if rootOpts.Format == "json" {
				return out.Success(report)
			}

			var b strings.Builder
			w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ITEM\tQTY\tREVENUE")
			for _, l := range report.Lines {
				fmt.Fprintf(w, "%s\t%d\t%s\n", l.Name, l.Quantity, formatPHP(l.Revenue))
			}
			_ = w.Flush()
			fmt.Fprintf(&b, "\norders: %d   cups used: %d   revenue: %s",
				report.Orders, report.CupsUsed, formatPHP(report.Revenue))
			return out.Success(b.String())
		},
	}
}

func buildSalesReport(paid []model.Order) salesReport {
	report := salesReport{Orders: len(paid)}
	byName := make(map[string]*salesLine)
	for _, o := range paid {
		report.CupsUsed += o.CupsUsed
		report.Revenue += o.Total
		for _, l := range o.ActiveLines() {
			row, ok := byName[l.Name]
			if !ok {
				row = &salesLine{Name: l.Name}
				byName[l.Name] = row
			}
			row.Quantity += l.Quantity
			row.Revenue += model.LineTotal(l)
		}
	}
	for _, row := range byName {
		report.Lines = append(report.Lines, *row)
	}
	sort.Slice(report.Lines, func(i, j int) bool {
		if report.Lines[i].Revenue != report.Lines[j].Revenue {
			return report.Lines[i].Revenue > report.Lines[j].Revenue
		}
		return report.Lines[i].Name < report.Lines[j].Name
	})
	return report
}
