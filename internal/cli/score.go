package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"dealwatcher/internal/app"
)

var (
	scoreProduct  string
	scoreRetailer string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute the deal score for one product at one retailer",
	RunE: func(cmd *cobra.Command, args []string) error {
		if scoreProduct == "" || scoreRetailer == "" {
			return fmt.Errorf("--product and --retailer must be provided")
		}

		opts := app.ScoreOptions{
			ProductID: scoreProduct,
			Retailer:  scoreRetailer,
		}

		return getApp().Score(cmd.Context(), opts)
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreProduct, "product", "", "Product identifier")
	scoreCmd.Flags().StringVar(&scoreRetailer, "retailer", "", "Retailer name")
}
