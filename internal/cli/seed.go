package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/pricetrail/internal/feedspec"
	"github.com/roach88/pricetrail/internal/store"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <feed-file>",
		Short: "Seed shops and categories from a feed file",
		Long: `Seed the catalog store from a YAML feed of shops and their
categories. Seeding is idempotent: shops are matched by name and
categories by (shop, url), so re-running the same feed changes nothing.

Example:
  pricetrail seed --db ./prices.db ./feeds/shops.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, args[0], cmd)
		},
	}

	return cmd
}

func runSeed(opts *SeedOptions, feedPath string, cmd *cobra.Command) error {
	log := newLogger(opts.RootOptions)
	defer func() { _ = log.Sync() }()
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	feed, errs := feedspec.Load(feedPath)
	if len(errs) > 0 {
		details := make([]string, 0, len(errs))
		for _, e := range errs {
			details = append(details, e.Error())
		}
		_ = formatter.Error("INVALID_FEED", fmt.Sprintf("feed %s failed validation", feedPath), details)
		return NewExitError(ExitFailure, fmt.Sprintf("%d feed validation errors", len(errs)))
	}
	log.Debug("feed loaded", zap.String("path", feedPath), zap.Int("shops", len(feed.Shops)))

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			log.Error("error closing database", zap.Error(closeErr))
		}
	}()

	sum, err := feedspec.Apply(cmd.Context(), st, feed)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to apply feed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(sum)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d shops (%d new), %d categories (%d new)\n",
		sum.Shops, sum.ShopsCreated, sum.Categories, sum.CategoriesCreated)
	return nil
}
