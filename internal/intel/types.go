package intel

import (
	"time"

	"github.com/shopspring/decimal"

	"ammowatch/internal/caliber"
)

// Reason explains why a product qualified as a market deal. A product
// carries at most one reason, assigned in fixed priority order.
type Reason string

const (
	ReasonPriceDrop   Reason = "PRICE_DROP"
	ReasonLowest90d   Reason = "LOWEST_90D"
	ReasonBackInStock Reason = "BACK_IN_STOCK"
)

// rankPriority orders reasons for the deterministic ranker. PRICE_DROP
// sorts before every other reason; the remaining reasons share a tier.
func (r Reason) rankPriority() int {
	if r == ReasonPriceDrop {
		return 0
	}
	return 1
}

// MarketDeal is a descriptive, reproducible fact about one product's
// price/availability history. It is recomputed per request, never stored.
type MarketDeal struct {
	ProductID     string
	ProductName   string
	Caliber       caliber.Caliber
	Price         decimal.Decimal
	PricePerRound *decimal.Decimal
	RetailerID    string
	RetailerName  string
	ContextLine   string
	DetectedAt    time.Time
	Reason        Reason
}

// Classification buckets an entered price against the recent market
// distribution for a caliber.
type Classification string

const (
	ClassLower            Classification = "LOWER"
	ClassTypical          Classification = "TYPICAL"
	ClassHigher           Classification = "HIGHER"
	ClassInsufficientData Classification = "INSUFFICIENT_DATA"
)

// PriceContext carries the descriptive statistics behind a price check.
type PriceContext struct {
	MinPrice        decimal.Decimal
	MaxPrice        decimal.Decimal
	MedianPrice     decimal.Decimal
	PricePointCount int
	DaysWithData    int
}

// PriceCheckResult is the outcome of classifying one entered
// price-per-round value. Context is nil only when zero data points exist.
type PriceCheckResult struct {
	Classification       Classification
	EnteredPricePerRound decimal.Decimal
	Context              *PriceContext
	Message              string
}

// Product is the canonical-product metadata the engine needs from the
// resolution collaborator.
type Product struct {
	ID           string
	Name         string
	Caliber      caliber.Caliber
	RoundsPerBox int
}

// Candidate bundles everything the eligibility classifier consumes for
// one product.
type Candidate struct {
	Product           Product
	Stats             WindowStats
	RetailerName      string
	RecentlyRestocked bool
}
