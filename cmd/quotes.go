package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/estimategenie/quote-engine/internal/model"
	"github.com/estimategenie/quote-engine/internal/store"
)

var quotesCmd = &cobra.Command{
	Use:   "quotes",
	Short: "Inspect stored quotes",
	Long:  "Commands for listing, viewing, and deleting quotes.",
}

// -- quotes list --

var quotesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List quotes",
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

		status, _ := cmd.Flags().GetString("status")
		projectType, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")

		quotes, err := st.ListQuotes(ctx, store.QuoteFilter{
			Status:      model.QuoteStatus(status),
			ProjectType: projectType,
			Limit:       limit,
		})
		if err != nil {
			return eris.Wrap(err, "quotes list")
		}

		if len(quotes) == 0 {
			fmt.Fprintln(os.Stderr, "No quotes found.")
			return nil
		}

		formatQuotesList(os.Stdout, quotes)
		return nil
	},
}

// -- quotes show --

var quotesShowCmd = &cobra.Command{
	Use:   "show <quote-id>",
	Short: "Show full details of a quote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		q, err := st.GetQuote(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "quotes show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(q)
	},
}

// -- quotes delete --

var quotesDeleteCmd = &cobra.Command{
	Use:   "delete <quote-id>",
	Short: "Delete a quote",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if err := st.DeleteQuote(ctx, args[0]); err != nil {
			return eris.Wrap(err, "quotes delete")
		}

		fmt.Fprintf(os.Stderr, "Deleted quote %s\n", args[0])
		return nil
	},
}

func formatQuotesList(w io.Writer, quotes []model.Quote) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tTOTAL\tCONFIDENCE\tCREATED")
	for _, q := range quotes {
		total := "-"
		confidence := "-"
		if q.Estimate != nil {
			total = fmt.Sprintf("$%.2f", q.Estimate.TotalCost.Amount)
			confidence = fmt.Sprintf("%.2f", q.Estimate.ConfidenceScore)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			q.ID,
			q.ProjectType,
			q.Status,
			total,
			confidence,
			q.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = tw.Flush()
}

func init() {
	quotesListCmd.Flags().String("status", "", "filter by status")
	quotesListCmd.Flags().String("type", "", "filter by project type")
	quotesListCmd.Flags().Int("limit", 50, "max quotes to list")

	quotesCmd.AddCommand(quotesListCmd)
	quotesCmd.AddCommand(quotesShowCmd)
	quotesCmd.AddCommand(quotesDeleteCmd)
	rootCmd.AddCommand(quotesCmd)
}
