package intel

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Observation is one visible price/stock snapshot for a product. The
// engine only ever reads these; the ledger itself is append-only and
// owned elsewhere.
type Observation struct {
	ProductID  string
	RetailerID string
	Price      decimal.Decimal
	InStock    bool
	ObservedAt time.Time
}

// DailyBest summarises one observed UTC calendar day for a product:
// the cheapest visible in-stock price, and whether any in-stock offer
// existed at all. Days with no observations produce no entry.
type DailyBest struct {
	Day      time.Time
	Price    decimal.Decimal
	HadStock bool
}

// CurrentPrice is the best visible in-stock offer within the current
// window, with its source retailer.
type CurrentPrice struct {
	Price      decimal.Decimal
	RetailerID string
	ObservedAt time.Time
}

// Windows fixes the three lookback lengths used by the aggregator.
type Windows struct {
	CurrentDays int
	MedianDays  int
	LowestDays  int
}

// DefaultWindows matches the product's 7/30/90-day windows.
func DefaultWindows() Windows {
	return Windows{CurrentDays: 7, MedianDays: 30, LowestDays: 90}
}

// WindowStats is the typed aggregate every downstream consumer works
// from: one struct per product per evaluation instead of ad hoc fields.
type WindowStats struct {
	ProductID       string
	Current         *CurrentPrice
	DailyBests      []DailyBest
	MedianDailyBest decimal.Decimal
	DaysWithData    int
	Lowest          decimal.Decimal
	HasLowest       bool
}

// DayUTC truncates t to its UTC calendar day.
func DayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Aggregate computes the windowed statistics for one product from its
// visible observations over the widest (lowest-price) window. Products
// with no qualifying observations produce empty stats, not an error.
func Aggregate(productID string, obs []Observation, now time.Time, w Windows) WindowStats {
	stats := WindowStats{ProductID: productID}

	nowDay := DayUTC(now)
	currentCutoff := now.Add(-time.Duration(w.CurrentDays) * 24 * time.Hour)
	medianCutoff := nowDay.AddDate(0, 0, -(w.MedianDays - 1))
	lowestCutoff := now.Add(-time.Duration(w.LowestDays) * 24 * time.Hour)

	byDay := map[time.Time]*DailyBest{}
	for _, o := range obs {
		if o.ObservedAt.After(now) || o.ObservedAt.Before(lowestCutoff) {
			continue
		}

		// 90-day minimum over visible in-stock prices.
		if o.InStock {
			if !stats.HasLowest || o.Price.LessThan(stats.Lowest) {
				stats.Lowest = o.Price
				stats.HasLowest = true
			}
		}

		// Current best: cheapest in-stock offer in the last CurrentDays.
		if o.InStock && !o.ObservedAt.Before(currentCutoff) {
			if stats.Current == nil || o.Price.LessThan(stats.Current.Price) {
				stats.Current = &CurrentPrice{
					Price:      o.Price,
					RetailerID: o.RetailerID,
					ObservedAt: o.ObservedAt,
				}
			}
		}

		// Day bucketing for the median window. Only observed days get an
		// entry; silence is never treated as out-of-stock.
		day := DayUTC(o.ObservedAt)
		if day.Before(medianCutoff) {
			continue
		}
		entry, ok := byDay[day]
		if !ok {
			entry = &DailyBest{Day: day}
			byDay[day] = entry
		}
		if o.InStock {
			if !entry.HadStock || o.Price.LessThan(entry.Price) {
				entry.Price = o.Price
			}
			entry.HadStock = true
		}
	}

	stats.DailyBests = make([]DailyBest, 0, len(byDay))
	for _, entry := range byDay {
		stats.DailyBests = append(stats.DailyBests, *entry)
	}
	sort.Slice(stats.DailyBests, func(i, j int) bool {
		return stats.DailyBests[i].Day.Before(stats.DailyBests[j].Day)
	})

	stats.MedianDailyBest, stats.DaysWithData = MedianDailyBest(stats.DailyBests)
	return stats
}

// MedianDailyBest returns the median over the in-stock daily best prices
// and the number of distinct days backing it. The median is the middle
// element of the ascending series, or the mean of the two middle
// elements for an even count.
func MedianDailyBest(bests []DailyBest) (decimal.Decimal, int) {
	prices := make([]decimal.Decimal, 0, len(bests))
	for _, b := range bests {
		if b.HadStock {
			prices = append(prices, b.Price)
		}
	}
	if len(prices) == 0 {
		return decimal.Decimal{}, 0
	}

	sort.Slice(prices, func(i, j int) bool { return prices[i].LessThan(prices[j]) })
	n := len(prices)
	mid := n / 2
	if n%2 == 1 {
		return prices[mid], n
	}
	two := decimal.NewFromInt(2)
	return prices[mid-1].Add(prices[mid]).Div(two), n
}
