package intel

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ammowatch/internal/caliber"
)

// Thresholds parameterise deal eligibility.
type Thresholds struct {
	// DropPct is the minimum percentage below the median-window median
	// for a PRICE_DROP, e.g. 15 for "15%+ below".
	DropPct decimal.Decimal
	// MinMedianDays is the minimum distinct days of daily-best data
	// required before the median is considered meaningful.
	MinMedianDays int
	// MinOutageDays is the minimum out-of-stock streak length for a
	// BACK_IN_STOCK.
	MinOutageDays int
	// RestockWindowDays bounds how recent the restock must be.
	RestockWindowDays int
}

// DefaultThresholds returns the product's standard thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DropPct:           decimal.NewFromInt(15),
		MinMedianDays:     5,
		MinOutageDays:     7,
		RestockWindowDays: 7,
	}
}

// rule pairs a reason with its predicate and display context. Rules are
// held as an ordered list and evaluated first-match-wins, which keeps
// the exclusive-priority invariant in data rather than control flow.
type rule struct {
	reason  Reason
	context string
	applies func(Candidate) bool
}

// Classifier assigns at most one deal reason per candidate.
type Classifier struct {
	thresholds Thresholds
	rules      []rule
}

// NewClassifier builds the ordered rule list from thresholds.
func NewClassifier(th Thresholds) *Classifier {
	c := &Classifier{thresholds: th}
	hundred := decimal.NewFromInt(100)
	dropFactor := decimal.NewFromInt(1).Sub(th.DropPct.Div(hundred))

	c.rules = []rule{
		{
			reason:  ReasonPriceDrop,
			context: fmt.Sprintf("%s%%+ below 30-day median", th.DropPct.String()),
			applies: func(cand Candidate) bool {
				if cand.Stats.DaysWithData < th.MinMedianDays {
					return false
				}
				threshold := cand.Stats.MedianDailyBest.Mul(dropFactor)
				return cand.Stats.Current.Price.LessThanOrEqual(threshold)
			},
		},
		{
			reason:  ReasonLowest90d,
			context: "Lowest price in 90 days",
			applies: func(cand Candidate) bool {
				return cand.Stats.HasLowest &&
					cand.Stats.Current.Price.LessThanOrEqual(cand.Stats.Lowest)
			},
		},
		{
			reason:  ReasonBackInStock,
			context: fmt.Sprintf("Back in stock after %d+ day outage", th.MinOutageDays),
			applies: func(cand Candidate) bool {
				return cand.RecentlyRestocked
			},
		},
	}
	return c
}

// Classify evaluates the rules in priority order and returns the deal for
// the first match. Candidates without a canonical caliber or without a
// current visible in-stock price never qualify.
func (c *Classifier) Classify(cand Candidate, now time.Time) (MarketDeal, bool) {
	if !caliber.IsCanonical(cand.Product.Caliber) {
		return MarketDeal{}, false
	}
	if cand.Stats.Current == nil {
		return MarketDeal{}, false
	}

	for _, r := range c.rules {
		if !r.applies(cand) {
			continue
		}
		deal := MarketDeal{
			ProductID:    cand.Product.ID,
			ProductName:  cand.Product.Name,
			Caliber:      cand.Product.Caliber,
			Price:        cand.Stats.Current.Price,
			RetailerID:   cand.Stats.Current.RetailerID,
			RetailerName: cand.RetailerName,
			ContextLine:  r.context,
			DetectedAt:   now,
			Reason:       r.reason,
		}
		if cand.Product.RoundsPerBox > 0 {
			ppr := cand.Stats.Current.Price.Div(decimal.NewFromInt(int64(cand.Product.RoundsPerBox)))
			deal.PricePerRound = &ppr
		}
		return deal, true
	}
	return MarketDeal{}, false
}
