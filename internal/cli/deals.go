package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"dealwatcher/internal/app"
)

var (
	dealsMinScore int
	dealsLimit    int
	dealsCategory string
	dealsBrand    string
)

var dealsCmd = &cobra.Command{
	Use:   "deals",
	Short: "List the best in-stock deals ranked by score",
	RunE: func(cmd *cobra.Command, args []string) error {
		if dealsLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.DealsOptions{
			MinScore: dealsMinScore,
			Limit:    dealsLimit,
			Category: dealsCategory,
			Brand:    dealsBrand,
		}

		return getApp().Deals(cmd.Context(), opts)
	},
}

func init() {
	dealsCmd.Flags().IntVar(&dealsMinScore, "min-score", 70, "Minimum deal score")
	dealsCmd.Flags().IntVar(&dealsLimit, "limit", 20, "Number of deals to display")
	dealsCmd.Flags().StringVar(&dealsCategory, "category", "", "Filter by product category")
	dealsCmd.Flags().StringVar(&dealsBrand, "brand", "", "Filter by brand substring")
}
