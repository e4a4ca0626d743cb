package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var trackCmd = &cobra.Command{
	Use:   "track <product-id>",
	Short: "Start tracking a product for price-drop alerts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] == "" {
			return fmt.Errorf("product id must not be empty")
		}
		return getApp().Track(cmd.Context(), args[0])
	},
}

var untrackCmd = &cobra.Command{
	Use:   "untrack <product-id>",
	Short: "Stop tracking a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] == "" {
			return fmt.Errorf("product id must not be empty")
		}
		return getApp().Untrack(cmd.Context(), args[0])
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Poll tracked items once and dispatch price-drop alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().CheckNow(cmd.Context())
	},
}
