package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"ammowatch/internal/caliber"
)

// CheckOptions configure the price check command.
type CheckOptions struct {
	Caliber       string
	PricePerRound decimal.Decimal
	Brand         string
	GrainWeight   int
}

// Check classifies an entered price-per-round value against the recent
// market and prints the verdict with its supporting statistics.
func (a *App) Check(ctx context.Context, opts CheckOptions) error {
	cal, ok := caliber.Normalize(opts.Caliber)
	if !ok {
		return fmt.Errorf("unknown caliber %q", opts.Caliber)
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot check price")
	}
	if closeStore != nil {
		defer closeStore()
	}

	result, err := a.newEngine(store).CheckPrice(ctx, cal, opts.PricePerRound, opts.Brand, opts.GrainWeight)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "caliber: %s\n", cal)
	fmt.Fprintf(os.Stdout, "entered: %s per round\n", opts.PricePerRound.StringFixed(3))
	fmt.Fprintf(os.Stdout, "verdict: %s\n", result.Classification)
	if result.Context != nil {
		ctxStats := result.Context
		fmt.Fprintf(os.Stdout, "market:  min %s / median %s / max %s per round\n",
			ctxStats.MinPrice.StringFixed(3),
			ctxStats.MedianPrice.StringFixed(3),
			ctxStats.MaxPrice.StringFixed(3))
		fmt.Fprintf(os.Stdout, "sample:  %d prices across %d days\n",
			ctxStats.PricePointCount, ctxStats.DaysWithData)
	}
	if result.Message != "" {
		fmt.Fprintln(os.Stdout, result.Message)
	}
	return nil
}
