package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/roach88/pricetrail/internal/catalog"
	"github.com/roach88/pricetrail/internal/engine"
	"github.com/roach88/pricetrail/internal/store"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest <snapshot-file>",
		Short: "Ingest a scraped snapshot of product sightings",
		Long: `Ingest a batch of product sightings from a YAML or JSON snapshot
file. Records are matched to products by url; products seen for the
first time are created, and at most one price per product lands in
today's ledger. Re-running the same snapshot on the same day records
nothing new.

Example:
  pricetrail ingest --db ./prices.db ./snapshots/2026-08-31.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, args[0], cmd)
		},
	}

	return cmd
}

func runIngest(opts *IngestOptions, snapshotPath string, cmd *cobra.Command) error {
	log := newLogger(opts.RootOptions)
	defer func() { _ = log.Sync() }()
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	records, err := loadSnapshot(snapshotPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load snapshot", err)
	}
	log.Debug("snapshot loaded", zap.String("path", snapshotPath), zap.Int("records", len(records)))

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
	result, err := eng.UpsertBatch(cmd.Context(), records)
	if err != nil {
		var ingErr *engine.IngestError
		if errors.As(err, &ingErr) {
			_ = formatter.Error(string(ingErr.Code), ingErr.Message, nil)
		}
		return WrapExitError(ExitFailure, "ingest failed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Batch %s (%s): %d records, %d products created, %d prices recorded, %d skipped\n",
		result.BatchID, result.Day, result.Total, result.Created, result.Observed, result.Skipped)
	return nil
}

// snapshotEntry mirrors catalog.SnapshotRecord for YAML decoding, where
// prices arrive as bare scalars rather than JSON numbers.
type snapshotEntry struct {
	Name       string    `yaml:"name"`
	URL        string    `yaml:"url"`
	CategoryID int64     `yaml:"category_id"`
	Price      yamlPrice `yaml:"price"`
	Packaging  string    `yaml:"packaging"`
	Image      string    `yaml:"image"`
	InStock    *bool     `yaml:"in_stock"`
}

type yamlPrice struct {
	decimal.Decimal
}

func (p *yamlPrice) UnmarshalYAML(value *yaml.Node) error {
	d, err := decimal.NewFromString(value.Value)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", value.Value, err)
	}
	p.Decimal = d
	return nil
}

// loadSnapshot reads a snapshot file of product sightings. JSON files
// decode directly; YAML goes through snapshotEntry so decimal prices
// survive the trip.
func loadSnapshot(path string) ([]catalog.SnapshotRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var records []catalog.SnapshotRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return records, nil
	}

	var entries []snapshotEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	records := make([]catalog.SnapshotRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, catalog.SnapshotRecord{
			Name:       e.Name,
			URL:        e.URL,
			CategoryID: e.CategoryID,
			Price:      e.Price.Decimal,
			Packaging:  e.Packaging,
			Image:      e.Image,
			InStock:    e.InStock,
		})
	}
	return records, nil
}
