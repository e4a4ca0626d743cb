package cli

import (
	"github.com/spf13/cobra"
)

var recalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Recalculate deal scores for the whole catalog once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Recalc(cmd.Context())
	},
}
