package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/pricetrail/internal/catalog"
	"github.com/roach88/pricetrail/internal/engine"
	"github.com/roach88/pricetrail/internal/store"
)

// UpsertOptions holds flags for the upsert command.
type UpsertOptions struct {
	*RootOptions
	Name       string
	URL        string
	CategoryID int64
	Price      string
	Packaging  string
	Image      string
	InStock    string // "", "true" or "false"; empty leaves the hint unset
}

// NewUpsertCommand creates the upsert command.
func NewUpsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpsertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "upsert",
		Short: "Record one product sighting",
		Long: `Record a single product sighting: create the product on first
contact, refresh its catalog fields otherwise, and append today's price
to the ledger unless a price for this product was already recorded
today.

Example:
  pricetrail upsert --db ./prices.db --category 3 --name "Oat Milk 1L" --price 2.49`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpsert(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "product name (required)")
	cmd.Flags().Int64Var(&opts.CategoryID, "category", 0, "category id (required)")
	cmd.Flags().StringVar(&opts.Price, "price", "", "observed price (required)")
	cmd.Flags().StringVar(&opts.URL, "url", "", "product page url")
	cmd.Flags().StringVar(&opts.Packaging, "packaging", "", "packaging description")
	cmd.Flags().StringVar(&opts.Image, "image", "", "product image url")
	cmd.Flags().StringVar(&opts.InStock, "in-stock", "", "availability hint (true|false)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("price")

	return cmd
}

func runUpsert(opts *UpsertOptions, cmd *cobra.Command) error {
	log := newLogger(opts.RootOptions)
	defer func() { _ = log.Sync() }()
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	rec, err := opts.record()
	if err != nil {
		return WrapExitError(ExitFailure, "invalid flags", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			log.Error("error closing database", zap.Error(closeErr))
		}
	}()

	eng := engine.New(st, engine.WithLogger(log))
	product, err := eng.UpsertProduct(cmd.Context(), rec)
	if err != nil {
		var ingErr *engine.IngestError
		if errors.As(err, &ingErr) {
			_ = formatter.Error(string(ingErr.Code), ingErr.Message, nil)
			return WrapExitError(ExitFailure, "upsert failed", err)
		}
		return WrapExitError(ExitFailure, "upsert failed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(productView(product))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Product %d %q: last_price=%s change=%s in_stock=%t\n",
		product.ID, product.Name,
		nullDecimalString(product.LastPrice), nullDecimalString(product.PriceChange), product.InStock)
	return nil
}

func (o *UpsertOptions) record() (catalog.SnapshotRecord, error) {
	price, err := decimal.NewFromString(o.Price)
	if err != nil {
		return catalog.SnapshotRecord{}, fmt.Errorf("invalid --price %q: %w", o.Price, err)
	}
	rec := catalog.SnapshotRecord{
		Name:       o.Name,
		URL:        o.URL,
		CategoryID: o.CategoryID,
		Price:      price,
		Packaging:  o.Packaging,
		Image:      o.Image,
	}
	if o.InStock != "" {
		hint, err := strconv.ParseBool(o.InStock)
		if err != nil {
			return catalog.SnapshotRecord{}, fmt.Errorf("invalid --in-stock %q: %w", o.InStock, err)
		}
		rec.InStock = &hint
	}
	return rec, nil
}

func nullDecimalString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.String()
}
