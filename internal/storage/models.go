package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Observation is one row of the append-only price/stock ledger, joined
// with its canonical-product linkage. Rows are never updated or deleted
// by this application's read paths.
type Observation struct {
	ID         int64
	ProductID  string
	ListingID  string
	RetailerID string
	Price      decimal.Decimal
	InStock    bool
	ObservedAt time.Time
	RunID      *string
	CreatedAt  time.Time
}

// NewObservation is an append-side row: the poller knows the listing,
// not the canonical product (linkage lives in the listings table).
type NewObservation struct {
	ListingID  string
	RetailerID string
	Price      decimal.Decimal
	InStock    bool
	ObservedAt time.Time
	RunID      string
}

// Product is a resolved canonical product with its caliber string as
// ingested; normalisation to the canonical enumeration happens in the
// engine.
type Product struct {
	ID           string
	Name         string
	Caliber      string
	Brand        string
	GrainWeight  int
	RoundsPerBox int
}

// Retailer describes one tracked retailer. Only retailers with an
// eligible status are consumer-visible.
type Retailer struct {
	ID     string
	Name   string
	Status string
}

// IngestionRun records one poll of a retailer feed. Runs flagged as
// ignored are excluded from every consumer-facing aggregate.
type IngestionRun struct {
	ID        string
	Source    string
	StartedAt time.Time
	Ignored   bool
}

// RoundPrice is a per-observation price-per-round sample used by the
// price check path.
type RoundPrice struct {
	PricePerRound decimal.Decimal
	ObservedAt    time.Time
}

// RoundPriceQuery filters the price-check sample. Product selection
// (caliber, brand, grain) happens in the engine, which passes the
// resolved id set here.
type RoundPriceQuery struct {
	ProductIDs []string
	From       time.Time
	To         time.Time
}
