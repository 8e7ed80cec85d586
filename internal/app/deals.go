package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"ammowatch/internal/caliber"
	"ammowatch/internal/intel"
)

// DealsOptions configure the deals command.
type DealsOptions struct {
	ViewerCalibers []string
}

// Deals runs one deal scan and prints the hero and the ranked lists.
func (a *App) Deals(ctx context.Context, opts DealsOptions) error {
	viewer := make([]caliber.Caliber, 0, len(opts.ViewerCalibers))
	for _, raw := range opts.ViewerCalibers {
		cal, ok := caliber.Normalize(raw)
		if !ok {
			return fmt.Errorf("unknown caliber %q", raw)
		}
		viewer = append(viewer, cal)
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot compute deals")
	}
	if closeStore != nil {
		defer closeStore()
	}

	result, err := a.newEngine(store).GetMarketDeals(ctx, viewer)
	if err != nil {
		return err
	}

	if result.Hero == nil {
		fmt.Fprintln(os.Stdout, "no eligible deals right now")
		return nil
	}

	fmt.Fprintf(os.Stdout, "as of %s\n\n", result.AsOf.Format(time.RFC3339))
	fmt.Fprintf(os.Stdout, "HERO: %s\n\n", dealLine(*result.Hero))

	if len(result.Personalized) > 0 {
		fmt.Fprintln(os.Stdout, "Your calibers:")
		printDeals(result.Personalized)
	}
	if len(result.Other) > 0 {
		fmt.Fprintln(os.Stdout, "Other deals:")
		printDeals(result.Other)
	}
	return nil
}

func dealLine(d intel.MarketDeal) string {
	ppr := "-"
	if d.PricePerRound != nil {
		ppr = d.PricePerRound.StringFixed(3) + "/rd"
	}
	return fmt.Sprintf("%s (%s) $%s %s at %s: %s",
		d.ProductName, d.Caliber, formatDecimal(d.Price, 2), ppr, d.RetailerName, d.ContextLine)
}

func printDeals(deals []intel.MarketDeal) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Product\tCaliber\tPrice\tPer Round\tRetailer\tReason\tContext")
	for _, d := range deals {
		ppr := "-"
		if d.PricePerRound != nil {
			ppr = d.PricePerRound.StringFixed(3)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ProductName,
			d.Caliber,
			formatDecimal(d.Price, 2),
			ppr,
			d.RetailerName,
			d.Reason,
			d.ContextLine,
		)
	}
	writer.Flush()
	fmt.Fprintln(os.Stdout)
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
