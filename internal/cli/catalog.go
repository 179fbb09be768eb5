package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"kapesync/internal/engine"
	"kapesync/internal/model"
)

// CatalogOptions holds flags shared by the catalog subcommands.
type CatalogOptions struct {
	*RootOptions

	// Add fields for --add.
	Name     string
	Price    float64
	Stocks   int
	Category string
	CupName  string
	Size     string
	Icon     string

	// Delete holds the id for --delete.
	Delete string
}

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List and edit items, categories and cups",
	}
	cmd.AddCommand(newCatalogItemsCommand(rootOpts))
	cmd.AddCommand(newCatalogCategoriesCommand(rootOpts))
	cmd.AddCommand(newCatalogCupsCommand(rootOpts))
	return cmd
}

func newCatalogItemsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "items",
		Short:         "List items, or mutate with --add/--delete",
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

			switch {
			case opts.Name != "":
				it, res, err := a.coordinator.CreateItem(ctx, model.CatalogItem{
					Name:     opts.Name,
					Price:    opts.Price,
					Stocks:   opts.Stocks,
					Category: opts.Category,
					CupName:  opts.CupName,
					Status:   true,
				})
				if err != nil {
					return writeFailure(out, err)
				}
				return out.Success(mutationSummary("item created", it.ID, res))
			case opts.Delete != "":
				res, err := a.coordinator.DeleteItem(ctx, opts.Delete)
				if err != nil {
					return writeFailure(out, err)
				}
				return out.Success(mutationSummary("item deleted", opts.Delete, res))
			}

			items, err := a.coordinator.Items(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "list items", err)
			}
			if opts.Format == "json" {
				return out.Success(items)
			}
			return out.Success(renderItems(items))
		},
	}

	cmd.Flags().StringVar(&opts.Name, "add", "", "add an item with this name")
	cmd.Flags().Float64Var(&opts.Price, "price", 0, "item price")
	cmd.Flags().IntVar(&opts.Stocks, "stocks", 0, "initial stock")
	cmd.Flags().StringVar(&opts.Category, "category", "", "category name")
	cmd.Flags().StringVar(&opts.CupName, "cup", "", "cup consumed by take-out sales")
	cmd.Flags().StringVar(&opts.Delete, "delete", "", "delete the item with this id")
	cmd.MarkFlagsMutuallyExclusive("add", "delete")

	return cmd
}

func newCatalogCategoriesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "categories",
		Short:         "List categories, or mutate with --add/--delete",
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

			switch {
			case opts.Name != "":
				cat, res, err := a.coordinator.CreateCategory(ctx, model.Category{
					Name: opts.Name,
					Icon: opts.Icon,
				})
				if err != nil {
					return writeFailure(out, err)
				}
				return out.Success(mutationSummary("category created", cat.ID, res))
			case opts.Delete != "":
				res, err := a.coordinator.DeleteCategory(ctx, opts.Delete)
				if err != nil {
					return writeFailure(out, err)
				}
				return out.Success(mutationSummary("category deleted", opts.Delete, res))
			}

			cats, err := a.coordinator.Categories(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "list categories", err)
			}
			if opts.Format == "json" {
				return out.Success(cats)
			}
			return out.Success(renderCategories(cats))
		},
	}

	cmd.Flags().StringVar(&opts.Name, "add", "", "add a category with this name")
	cmd.Flags().StringVar(&opts.Icon, "icon", "", "category icon name")
	cmd.Flags().StringVar(&opts.Delete, "delete", "", "delete the category with this id")
	cmd.MarkFlagsMutuallyExclusive("add", "delete")

	return cmd
}

func newCatalogCupsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "cups",
		Short:         "List cup stock, or mutate with --add/--delete",
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

			switch {
			case opts.Name != "":
				cup, res, err := a.coordinator.CreateCup(ctx, model.CupType{
					Name:   opts.Name,
					Size:   opts.Size,
					Stocks: opts.Stocks,
					Status: true,
				})
				if err != nil {
					return writeFailure(out, err)
				}
				return out.Success(mutationSummary("cup created", cup.ID, res))
			case opts.Delete != "":
				res, err := a.coordinator.DeleteCup(ctx, opts.Delete)
				if err != nil {
					return writeFailure(out, err)
				}
				return out.Success(mutationSummary("cup deleted", opts.Delete, res))
			}

			cups, err := a.coordinator.Cups(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "list cups", err)
			}
			if opts.Format == "json" {
				return out.Success(cups)
			}
			return out.Success(renderCups(cups))
		},
	}

	cmd.Flags().StringVar(&opts.Name, "add", "", "add a cup type with this name")
	cmd.Flags().StringVar(&opts.Size, "size", "", "cup size label")
	cmd.Flags().IntVar(&opts.Stocks, "stocks", 0, "initial stock")
	cmd.Flags().StringVar(&opts.Delete, "delete", "", "delete the cup with this id")
	cmd.MarkFlagsMutuallyExclusive("add", "delete")

	return cmd
}

// writeFailure maps an engine error to CLI output and exit code.
func writeFailure(out *OutputFormatter, err error) error {
	_ = out.Error("KS001", err.Error())
	return &ExitError{Code: ExitFailure, Message: err.Error(), Err: err}
}

// mutationSummary is the text payload for a completed dual write.
func mutationSummary(what, id string, res engine.WriteResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", what, id)
	if res.Queued {
		fmt.Fprintf(&b, " (%s)", res.Notice)
	} else if res.RemoteID != "" {
		fmt.Fprintf(&b, " (synced, remote id %s)", res.RemoteID)
	} else {
		fmt.Fprintf(&b, " (synced)")
	}
	return b.String()
}

func renderItems(items []model.CatalogItem) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCKS\tSALES\tCATEGORY\tCUP\tORIGIN")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			it.ID, it.Name, formatPHP(it.Price), it.Stocks, it.Sales, it.Category, it.CupName, it.Origin)
	}
	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func renderCategories(cats []model.Category) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tITEMS\tORIGIN")
	for _, cat := range cats {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", cat.ID, cat.Name, cat.ItemsCount, cat.Origin)
	}
	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

func renderCups(cups []model.CupType) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSIZE\tSTOCKS\tORIGIN")
	for _, cup := range cups {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", cup.ID, cup.Name, cup.Size, cup.Stocks, cup.Origin)
	}
	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}
