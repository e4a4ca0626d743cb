package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"dealwatcher/internal/storage"
)

// Deals prints the ranked best-deals surface.
func (a *App) Deals(ctx context.Context, opts DealsOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot list deals")
	}
	if closeStore != nil {
		defer closeStore()
	}

	deals, err := store.BestDeals(ctx, storage.BestDealsOptions{
		MinScore: opts.MinScore,
		Limit:    opts.Limit,
		Category: opts.Category,
		Brand:    opts.Brand,
	})
	if err != nil {
		return err
	}
	if len(deals) == 0 {
		fmt.Fprintln(os.Stdout, "no deals found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Product\tBrand\tRetailer\tScore\tQuality\tPrice\tAvg\tWatchers")

	for _, deal := range deals {
		watchers := "-"
		if deal.WatcherCount != nil {
			watchers = fmt.Sprintf("%d", *deal.WatcherCount)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			sanitizeInline(deal.Name),
			deal.Brand,
			deal.Retailer,
			deal.Score,
			deal.Quality,
			deal.CurrentPrice.StringFixed(2),
			formatNullDecimal(deal.AveragePrice),
			watchers,
		)
	}

	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
