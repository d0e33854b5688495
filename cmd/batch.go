package main

import (
	"encoding/csv"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/estimategenie/quote-engine/internal/estimate"
	"github.com/estimategenie/quote-engine/internal/model"
)

var (
	batchCSVPath string
	batchLimit   int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Batch process quote requests from a CSV file",
	Long: `Reads quote requests from a CSV with a header row. Recognized columns:
project_type, description, zip_code, image_path, quality, region, model.
Each row runs through the full pipeline; individual failures do not abort
the batch.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		requests, err := readBatchCSV(batchCSVPath)
		if err != nil {
			return err
		}
		if len(requests) == 0 {
			zap.L().Info("no rows found in batch csv")
			return nil
		}
		if batchLimit > 0 && len(requests) > batchLimit {
			requests = requests[:batchLimit]
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		concurrency := cfg.Batch.MaxConcurrentQuotes
		if concurrency <= 0 {
			concurrency = 5
		}

		zap.L().Info("processing batch",
			zap.Int("quotes", len(requests)),
			zap.Int("concurrency", concurrency),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)

		var completed, errored atomic.Int64

		for _, q := range requests {
			g.Go(func() error {
				log := zap.L().With(
					zap.String("quote_id", q.ID),
					zap.String("project_type", q.ProjectType),
				)

				if err := env.Store.CreateQuote(gctx, q); err != nil {
					errored.Add(1)
					log.Error("create quote failed", zap.Error(err))
					return nil // don't abort batch on individual failure
				}

				env.Orchestrator.Run(gctx, q)

				if q.Status == model.StatusError {
					errored.Add(1)
					log.Error("quote failed", zap.String("error", q.Error))
					return nil
				}

				completed.Add(1)
				total := 0.0
				if q.Estimate != nil {
					total = q.Estimate.TotalCost.Amount
				}
				log.Info("quote complete", zap.Float64("total", total))
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "batch processing")
		}

		zap.L().Info("batch complete",
			zap.Int64("completed", completed.Load()),
			zap.Int64("errored", errored.Load()),
		)
		return nil
	},
}

// readBatchCSV parses quote requests from a CSV with a header row.
func readBatchCSV(path string) ([]*model.Quote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open batch csv")
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

	col := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok {
			return ""
		}
		return field(rec, i)
	}

	var quotes []*model.Quote
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "read batch csv row")
		}

		projectType := strings.ToLower(col(rec, "project_type"))
		description := col(rec, "description")
		if projectType == "" && description == "" {
			continue
		}
		if projectType == "" {
			projectType = "general"
		}

		opts := map[string]any{}
		for _, key := range []string{"quality", "region", "contingency_pct", "profit_pct"} {
			if v := col(rec, key); v != "" {
				opts[key] = v
			}
		}

		now := time.Now().UTC()
		quotes = append(quotes, &model.Quote{
			ID:          uuid.New().String(),
			ProjectType: projectType,
			Description: description,
			ZipCode:     col(rec, "zip_code"),
			ImagePath:   col(rec, "image_path"),
			Model:       col(rec, "model"),
			Status:      model.StatusProcessing,
			Options:     estimate.ResolveOptions(opts),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return quotes, nil
}

func init() {
	batchCmd.Flags().StringVar(&batchCSVPath, "csv", "", "path to CSV file (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max rows to process (0 = all)")
	_ = batchCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(batchCmd)
}
