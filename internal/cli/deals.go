package cli

import (
	"github.com/spf13/cobra"

	"ammowatch/internal/app"
)

var dealsCalibers []string

var dealsCmd = &cobra.Command{
	Use:   "deals",
	Short: "Scan the market and display current deals",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.DealsOptions{
			ViewerCalibers: dealsCalibers,
		}
		return getApp().Deals(cmd.Context(), opts)
	},
}

func init() {
	dealsCmd.Flags().StringSliceVar(&dealsCalibers, "caliber", nil, "Viewer calibers for personalization (repeatable)")
}
