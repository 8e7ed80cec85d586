package intel

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one per-observation price-per-round sample.
type PricePoint struct {
	PricePerRound decimal.Decimal
	ObservedAt    time.Time
}

// MinSamplePoints is the floor below which no LOWER/TYPICAL/HIGHER
// verdict is produced.
const MinSamplePoints = 5

// CheckPrice classifies an entered price-per-round value against the
// sampled distribution. With fewer than MinSamplePoints samples the
// result is INSUFFICIENT_DATA, carrying whatever descriptive context the
// sample supports.
func CheckPrice(entered decimal.Decimal, points []PricePoint) PriceCheckResult {
	result := PriceCheckResult{
		Classification:       ClassInsufficientData,
		EnteredPricePerRound: entered,
	}

	if len(points) == 0 {
		result.Message = "No recent pricing data for this selection."
		return result
	}

	prices := make([]decimal.Decimal, len(points))
	days := map[time.Time]struct{}{}
	for i, p := range points {
		prices[i] = p.PricePerRound
		days[DayUTC(p.ObservedAt)] = struct{}{}
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].LessThan(prices[j]) })

	n := len(prices)
	result.Context = &PriceContext{
		MinPrice:        prices[0],
		MaxPrice:        prices[n-1],
		MedianPrice:     medianOfSorted(prices),
		PricePointCount: n,
		DaysWithData:    len(days),
	}

	if n < MinSamplePoints {
		result.Message = fmt.Sprintf(
			"Only %d prices across %d days; showing the range without a verdict.",
			n, len(days))
		return result
	}

	// Simple index-based percentiles into the ascending array. The
	// floor(n*q) convention is load-bearing: changing it to an
	// interpolated percentile silently moves classification boundaries.
	p25 := prices[n/4]
	p75 := prices[n*3/4]

	switch {
	case entered.LessThanOrEqual(p25):
		result.Classification = ClassLower
	case entered.GreaterThanOrEqual(p75):
		result.Classification = ClassHigher
	default:
		result.Classification = ClassTypical
	}
	result.Message = fmt.Sprintf("Based on %d prices across %d days.", n, len(days))
	return result
}

func medianOfSorted(prices []decimal.Decimal) decimal.Decimal {
	n := len(prices)
	mid := n / 2
	if n%2 == 1 {
		return prices[mid]
	}
	return prices[mid-1].Add(prices[mid]).Div(decimal.NewFromInt(2))
}
