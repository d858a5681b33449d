package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/pricetrail/internal/catalog"
	"github.com/roach88/pricetrail/internal/query"
	"github.com/roach88/pricetrail/internal/store"
)

// ProductsOptions holds flags for the products command.
type ProductsOptions struct {
	*RootOptions
	ProductID  int64
	CategoryID int64
	ShopID     int64
	Movement   string
	Order      []string
	Include    []string
	Page       int
	PageSize   int
}

// NewProductsCommand creates the products command.
func NewProductsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProductsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "products",
		Short: "Query products with filters and pagination",
		Long: `List products, optionally filtered by category, shop, or price
movement since the previous observation. Movement buckets are cheaper,
expensive and no_change; out-of-catalog products never match a bucket.

Order fields prefix with "-" for descending, e.g. --order -last_price.

Example:
  pricetrail products --db ./prices.db --shop 1 --movement cheaper --include category.shop`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProducts(opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.ProductID, "id", 0, "filter by product id")
	cmd.Flags().Int64Var(&opts.CategoryID, "category", 0, "filter by category id")
	cmd.Flags().Int64Var(&opts.ShopID, "shop", 0, "filter by shop id")
	cmd.Flags().StringVar(&opts.Movement, "movement", "", "movement bucket (cheaper|expensive|no_change)")
	cmd.Flags().StringSliceVar(&opts.Order, "order", nil, "sort fields, prefix with - for descending")
	cmd.Flags().StringSliceVar(&opts.Include, "include", nil, "relations to resolve (category|prices|category.shop)")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number, 1-based")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", query.DefaultPageSize, "items per page")

	return cmd
}

func runProducts(opts *ProductsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() { _ = st.Close() }()

	page := opts.Page
	if page < 1 {
		page = 1
	}
	filter := query.Filter{
		ProductID:  opts.ProductID,
		CategoryID: opts.CategoryID,
		ShopID:     opts.ShopID,
		Movement:   query.Movement(opts.Movement),
		OrderBy:    parseOrder(opts.Order),
		Include:    opts.Include,
		Limit:      opts.PageSize,
		Offset:     (page - 1) * opts.PageSize,
	}

	result, err := query.New(st).Products(cmd.Context(), filter)
	if err != nil {
		var valErr *query.ValidationError
		if errors.As(err, &valErr) {
			_ = formatter.Error("INVALID_FILTER", valErr.Error(), nil)
			return WrapExitError(ExitFailure, "invalid filter", err)
		}
		return WrapExitError(ExitFailure, "query failed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(resultView(result))
	}
	return printProductsText(cmd, result)
}

func parseOrder(fields []string) []query.Order {
	orders := make([]query.Order, 0, len(fields))
	for _, f := range fields {
		if name, ok := strings.CutPrefix(f, "-"); ok {
			orders = append(orders, query.Order{Field: name, Desc: true})
			continue
		}
		orders = append(orders, query.Order{Field: f})
	}
	return orders
}

func printProductsText(cmd *cobra.Command, result query.Result) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPACKAGING\tLAST PRICE\tCHANGE\tIN STOCK")
	for _, p := range result.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%t\n",
			p.ID, p.Name, p.Packaging,
			nullDecimalString(p.LastPrice), nullDecimalString(p.PriceChange), p.InStock)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Page %d/%d, %d items total\n",
		result.Page+1, result.TotalPages, result.TotalItems)
	return nil
}

// View types give the JSON output a stable shape independent of the
// internal structs.

// ResultView is the JSON payload for a product query.
type ResultView struct {
	Items      []ProductView `json:"items"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalItems int           `json:"total_items"`
	TotalPages int           `json:"total_pages"`
}

// ProductView is the JSON shape of one product.
type ProductView struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	URL         string              `json:"url,omitempty"`
	Image       string              `json:"image,omitempty"`
	Packaging   string              `json:"packaging,omitempty"`
	InStock     bool                `json:"in_stock"`
	CategoryID  int64               `json:"category_id"`
	LastPrice   decimal.NullDecimal `json:"last_price"`
	PriceChange decimal.NullDecimal `json:"price_change"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`

	Category *CategoryView     `json:"category,omitempty"`
	Prices   []ObservationView `json:"prices,omitempty"`
}

// CategoryView is the JSON shape of a resolved category include.
type CategoryView struct {
	ID     int64     `json:"id"`
	Name   string    `json:"name"`
	URL    string    `json:"url,omitempty"`
	ShopID int64     `json:"shop_id"`
	Shop   *ShopView `json:"shop,omitempty"`
}

// ShopView is the JSON shape of a resolved shop include.
type ShopView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// ObservationView is the JSON shape of one ledger row.
type ObservationView struct {
	ID          int64           `json:"id"`
	Price       decimal.Decimal `json:"price"`
	ObservedDay catalog.Day     `json:"observed_day"`
	CreatedAt   time.Time       `json:"created_at"`
}

func resultView(r query.Result) ResultView {
	items := make([]ProductView, 0, len(r.Items))
	for _, p := range r.Items {
		items = append(items, productView(p))
	}
	return ResultView{
		Items:      items,
		Page:       r.Page + 1,
		PageSize:   r.PageSize,
		TotalItems: r.TotalItems,
		TotalPages: r.TotalPages,
	}
}

func productView(p catalog.Product) ProductView {
	view := ProductView{
		ID:          p.ID,
		Name:        p.Name,
		URL:         p.URL,
		Image:       p.Image,
		Packaging:   p.Packaging,
		InStock:     p.InStock,
		CategoryID:  p.CategoryID,
		LastPrice:   p.LastPrice,
		PriceChange: p.PriceChange,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Category != nil {
		cat := &CategoryView{
			ID:     p.Category.ID,
			Name:   p.Category.Name,
			URL:    p.Category.URL,
			ShopID: p.Category.ShopID,
		}
		if p.Category.Shop != nil {
			cat.Shop = &ShopView{
				ID:   p.Category.Shop.ID,
				Name: p.Category.Shop.Name,
				URL:  p.Category.Shop.URL,
			}
		}
		view.Category = cat
	}
	for _, obs := range p.Prices {
		view.Prices = append(view.Prices, ObservationView{
			ID:          obs.ID,
			Price:       obs.Price,
			ObservedDay: obs.ObservedDay,
			CreatedAt:   obs.CreatedAt,
		})
	}
	return view
}
