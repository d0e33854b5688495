package main

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/estimategenie/quote-engine/internal/estimate"
	"github.com/estimategenie/quote-engine/internal/model"
)

var (
	quoteImage       string
	quoteType        string
	quoteDescription string
	quoteZip         string
	quoteQuality     string
	quoteRegion      string
	quoteContingency float64
	quoteProfit      float64
	quoteModel       string
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Generate a quote for a single project",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if quoteImage == "" && quoteDescription == "" {
			return eris.New("either --image or --description is required")
		}
		if quoteImage != "" {
			if _, err := os.Stat(quoteImage); err != nil {
				return eris.Wrap(err, "image file")
			}
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		opts := map[string]any{
			"quality":         quoteQuality,
			"region":          quoteRegion,
			"contingency_pct": quoteContingency,
			"profit_pct":      quoteProfit,
		}

		now := time.Now().UTC()
		q := &model.Quote{
			ID:          uuid.New().String(),
			ProjectType: strings.ToLower(strings.TrimSpace(quoteType)),
			Description: quoteDescription,
			ZipCode:     quoteZip,
			ImagePath:   quoteImage,
			Model:       quoteModel,
			Status:      model.StatusProcessing,
			Options:     estimate.ResolveOptions(opts),
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := env.Store.CreateQuote(ctx, q); err != nil {
			return eris.Wrap(err, "create quote")
		}

		env.Orchestrator.Run(ctx, q)

		zap.L().Info("quote complete",
			zap.String("quote_id", q.ID),
			zap.String("status", string(q.Status)),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(q)
	},
}

func init() {
	quoteCmd.Flags().StringVar(&quoteImage, "image", "", "path to project photo")
	quoteCmd.Flags().StringVar(&quoteType, "type", "general", "project type (bathroom, kitchen, roofing, ...)")
	quoteCmd.Flags().StringVar(&quoteDescription, "description", "", "project description")
	quoteCmd.Flags().StringVar(&quoteZip, "zip", "", "project zip code")
	quoteCmd.Flags().StringVar(&quoteQuality, "quality", "standard", "finish quality: standard, premium, luxury")
	quoteCmd.Flags().StringVar(&quoteRegion, "region", "midwest", "labor region: midwest, south, northeast, west")
	quoteCmd.Flags().Float64Var(&quoteContingency, "contingency", 0, "contingency percentage (0-30)")
	quoteCmd.Flags().Float64Var(&quoteProfit, "profit", 15, "profit margin percentage (0-50)")
	quoteCmd.Flags().StringVar(&quoteModel, "model", "", "force a specific AI model (gemini, gpt4v, claude, gpt-oss-20b)")
	rootCmd.AddCommand(quoteCmd)
}
