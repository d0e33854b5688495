package main

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/estimategenie/quote-engine/internal/catalog"
	"github.com/estimategenie/quote-engine/internal/db"
	"github.com/estimategenie/quote-engine/internal/store"
)

var pricingCmd = &cobra.Command{
	Use:   "pricing",
	Short: "Manage the price catalog",
	Long:  "Commands for reloading, querying, and importing material prices.",
}

// -- pricing reload --

var pricingReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Force a price catalog reload",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cat := newCatalog()
		summary := cat.Reload()
		return printJSON(summary)
	},
}

// -- pricing status --

var pricingStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show price catalog configuration and state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cat := newCatalog()
		return printJSON(cat.Status())
	},
}

// -- pricing lookup --

var pricingLookupCmd = &cobra.Command{
	Use:   "lookup <material>",
	Short: "Look up the price for a material",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := newCatalog()
		entry, ok := cat.Lookup(cmd.Context(), args[0])
		if !ok {
			return eris.Errorf("no price found for %q", args[0])
		}
		return printJSON(entry)
	},
}

// -- pricing search --

var pricingSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search materials by name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		cat := newCatalog()
		return printJSON(cat.Search(args[0], limit))
	},
}

// -- pricing import --

var pricingImportCSV string

var pricingImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk import prices from CSV into the postgres price table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		ps, ok := st.(*store.PostgresStore)
		if !ok {
			return eris.New("pricing import requires the postgres store driver")
		}

		rows, err := readPriceCSV(pricingImportCSV)
		if err != nil {
			return err
		}

		count, err := db.BulkUpsert(ctx, ps.Pool(), db.UpsertConfig{
			Table:        "price_entries",
			Columns:      []string{"key", "price", "unit", "description", "updated_at"},
			ConflictKeys: []string{"key"},
		}, rows)
		if err != nil {
			return eris.Wrap(err, "import prices")
		}

		zap.L().Info("price import complete",
			zap.Int64("rows", count),
			zap.String("csv", pricingImportCSV),
		)
		return nil
	},
}

// readPriceCSV parses a price CSV with a header row into upsert rows.
// Accepts material/key, price, and optional unit and description columns.
func readPriceCSV(path string) ([][]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open price csv")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read csv header")
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	keyCol, ok := cols["key"]
	if !ok {
		keyCol, ok = cols["material"]
	}
	if !ok {
		return nil, eris.New("csv needs a key or material column")
	}
	priceCol, ok := cols["price"]
	if !ok {
		return nil, eris.New("csv needs a price column")
	}

	now := time.Now().UTC()
	var rows [][]any
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, eris.Wrapf(err, "read csv line %d", line)
		}

		key := catalog.NormalizeKey(field(rec, keyCol))
		if key == "" {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(field(rec, priceCol)), 64)
		if err != nil {
			zap.L().Warn("skipping unparseable price row",
				zap.Int("line", line),
				zap.String("key", key),
			)
			continue
		}

		unit := ""
		if i, ok := cols["unit"]; ok {
			unit = field(rec, i)
		}
		desc := ""
		if i, ok := cols["description"]; ok {
			desc = field(rec, i)
		}

		rows = append(rows, []any{key, price, unit, desc, now})
	}
	return rows, nil
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// newCatalog builds a catalog from config for one-shot pricing commands.
func newCatalog() *catalog.Catalog {
	return catalog.New(cfg.Catalog.Files(), secs(cfg.Catalog.ReloadIntervalSecs, 10))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	pricingSearchCmd.Flags().Int("limit", 20, "max results")
	pricingImportCmd.Flags().StringVar(&pricingImportCSV, "csv", "", "path to CSV file (required)")
	_ = pricingImportCmd.MarkFlagRequired("csv")

	pricingCmd.AddCommand(pricingReloadCmd)
	pricingCmd.AddCommand(pricingStatusCmd)
	pricingCmd.AddCommand(pricingLookupCmd)
	pricingCmd.AddCommand(pricingSearchCmd)
	pricingCmd.AddCommand(pricingImportCmd)
	rootCmd.AddCommand(pricingCmd)
}
