package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
)

// Score computes and prints the deal score for one (product, retailer) pair.
func (a *App) Score(ctx context.Context, opts ScoreOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot score")
	}
	if closeStore != nil {
		defer closeStore()
	}

	row, err := a.newOrchestrator(store).CalculateDealScore(ctx, opts.ProductID, opts.Retailer)
	if err != nil {
		return err
	}
	if row == nil {
		fmt.Fprintf(os.Stdout, "no current observation for %s at %s\n", opts.ProductID, opts.Retailer)
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Product\t%s\n", row.ProductID)
	fmt.Fprintf(writer, "Retailer\t%s\n", row.Retailer)
	fmt.Fprintf(writer, "Score\t%d\n", row.Score)
	fmt.Fprintf(writer, "Quality\t%s\n", row.Quality)
	fmt.Fprintf(writer, "Confidence\t%.2f\n", row.Confidence)
	fmt.Fprintf(writer, "Current\t%s\n", formatNullDecimal(row.CurrentPrice))
	fmt.Fprintf(writer, "Average\t%s\n", formatNullDecimal(row.AveragePrice))
	fmt.Fprintf(writer, "Min\t%s\n", formatNullDecimal(row.MinPrice))
	fmt.Fprintf(writer, "Max\t%s\n", formatNullDecimal(row.MaxPrice))
	fmt.Fprintf(writer, "P25/P50/P75\t%s / %s / %s\n",
		formatNullDecimal(row.P25), formatNullDecimal(row.P50), formatNullDecimal(row.P75))
	fmt.Fprintf(writer, "Recommendation\t%s\n", row.Recommendation)
	return writer.Flush()
}

func formatNullDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(2)
}
