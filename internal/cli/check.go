package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"ammowatch/internal/app"
)

var (
	checkCaliber string
	checkPrice   float64
	checkBrand   string
	checkGrain   int
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Classify a price-per-round value against the recent market",
	RunE: func(cmd *cobra.Command, args []string) error {
		if checkCaliber == "" {
			return errors.New("--caliber is required")
		}
		if checkPrice <= 0 {
			return errors.New("--price must be greater than 0")
		}

		opts := app.CheckOptions{
			Caliber:       checkCaliber,
			PricePerRound: decimal.NewFromFloat(checkPrice),
			Brand:         checkBrand,
			GrainWeight:   checkGrain,
		}
		return getApp().Check(cmd.Context(), opts)
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkCaliber, "caliber", "", "Caliber to check against (e.g. 9mm)")
	checkCmd.Flags().Float64Var(&checkPrice, "price", 0, "Entered price per round")
	checkCmd.Flags().StringVar(&checkBrand, "brand", "", "Optional brand filter")
	checkCmd.Flags().IntVar(&checkGrain, "grain", 0, "Optional grain weight filter")
}
