package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/pricetrail/internal/store"
)

// ShopsOptions holds flags for the shops command.
type ShopsOptions struct {
	*RootOptions
	Categories bool
}

// NewShopsCommand creates the shops command.
func NewShopsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShopsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "shops",
		Short:         "List shops in the catalog",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShops(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Categories, "categories", false, "list each shop's categories")

	return cmd
}

func runShops(opts *ShopsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() { _ = st.Close() }()

	shops, err := st.ListShops(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list shops", err)
	}

	type categoryEntry struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		URL  string `json:"url,omitempty"`
	}
	type shopEntry struct {
		ID         int64           `json:"id"`
		Name       string          `json:"name"`
		URL        string          `json:"url,omitempty"`
		Categories []categoryEntry `json:"categories,omitempty"`
	}

	entries := make([]shopEntry, 0, len(shops))
	for _, shop := range shops {
		entry := shopEntry{ID: shop.ID, Name: shop.Name, URL: shop.URL}
		if opts.Categories {
			cats, err := st.CategoriesByShop(cmd.Context(), shop.ID)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to list categories", err)
			}
			for _, c := range cats {
				entry.Categories = append(entry.Categories, categoryEntry{ID: c.ID, Name: c.Name, URL: c.URL})
			}
		}
		entries = append(entries, entry)
	}

	if opts.Format == "json" {
		return formatter.Success(entries)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tURL")
	for _, entry := range entries {
		fmt.Fprintf(w, "%d\t%s\t%s\n", entry.ID, entry.Name, entry.URL)
		for _, c := range entry.Categories {
			fmt.Fprintf(w, "\t  %d %s\t%s\n", c.ID, c.Name, c.URL)
		}
	}
	return w.Flush()
}
