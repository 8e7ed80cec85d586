package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"ammowatch/internal/caliber"
	"ammowatch/internal/config"
	"ammowatch/internal/intel"
	"ammowatch/internal/storage"
)

type fakeStore struct {
	products     []storage.Product
	observations []storage.Observation
	retailers    []storage.Retailer
	roundPrices  []storage.RoundPrice

	err          error
	productCalls int
	priceCalls   int
}

func (f *fakeStore) ListActiveProducts(ctx context.Context, activeSince time.Time, limit int) ([]storage.Product, error) {
	f.productCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func (f *fakeStore) ListVisibleObservations(ctx context.Context, productIDs []string, from, to time.Time) ([]storage.Observation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.observations, nil
}

func (f *fakeStore) ListRoundPrices(ctx context.Context, q storage.RoundPriceQuery) ([]storage.RoundPrice, error) {
	f.priceCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.roundPrices, nil
}

func (f *fakeStore) ListRetailers(ctx context.Context) ([]storage.Retailer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.retailers, nil
}

var _ storage.ObservationReader = (*fakeStore)(nil)

func testIntelConfig() config.IntelConfig {
	return config.IntelConfig{
		CurrentWindowDays: 7,
		MedianWindowDays:  30,
		LowestWindowDays:  90,
		DropPct:           15,
		MinMedianDays:     5,
		MinOutageDays:     7,
		RestockWindowDays: 7,
		CandidateCap:      300,
		MatchedDisplayCap: 12,
		OtherDisplayCap:   24,
		Workers:           2,
		CacheTTL:          time.Minute,
	}
}

func fixedNow(t *testing.T) time.Time {
	t.Helper()
	now, err := time.Parse(time.RFC3339, "2026-08-20T12:00:00Z")
	if err != nil {
		t.Fatalf("parse now: %v", err)
	}
	return now
}

func observation(productID string, at time.Time, price float64, inStock bool) storage.Observation {
	return storage.Observation{
		ProductID:  productID,
		ListingID:  productID + "-l1",
		RetailerID: "r1",
		Price:      decimal.NewFromFloat(price),
		InStock:    inStock,
		ObservedAt: at,
	}
}

func dealScenarioStore(now time.Time) *fakeStore {
	store := &fakeStore{
		products: []storage.Product{
			{ID: "p-drop", Name: "Blazer Brass 9mm", Caliber: "9mm Luger", RoundsPerBox: 50},
			{ID: "p-556", Name: "PMC X-TAC 5.56", Caliber: "5.56 NATO", RoundsPerBox: 20},
			{ID: "p-unmapped", Name: "Mystery Wildcat", Caliber: "obscure wildcat", RoundsPerBox: 50},
		},
		retailers: []storage.Retailer{
			{ID: "r1", Name: "Ammo Depot", Status: "eligible"},
		},
	}

	// p-drop: 10.00 on eight days, then 6.00 yesterday (40% below the
	// median of 10).
	for i := 10; i >= 3; i-- {
		store.observations = append(store.observations,
			observation("p-drop", now.AddDate(0, 0, -i), 10.00, true))
	}
	store.observations = append(store.observations,
		observation("p-drop", now.AddDate(0, 0, -1), 6.00, true))

	// p-556: two days of data tying its 90-day low.
	store.observations = append(store.observations,
		observation("p-556", now.AddDate(0, 0, -2), 5.00, true),
		observation("p-556", now.AddDate(0, 0, -1), 5.00, true))

	// p-unmapped: an extreme drop that must still never surface.
	for i := 10; i >= 3; i-- {
		store.observations = append(store.observations,
			observation("p-unmapped", now.AddDate(0, 0, -i), 100.00, true))
	}
	store.observations = append(store.observations,
		observation("p-unmapped", now.AddDate(0, 0, -1), 1.00, true))

	return store
}

func testEngine(cfg config.IntelConfig, store storage.ObservationReader, now time.Time) *Engine {
	engine := NewEngine(cfg, store, zerolog.Nop())
	engine.now = func() time.Time { return now }
	return engine
}

func TestGetMarketDealsEndToEnd(t *testing.T) {
	now := fixedNow(t)
	store := dealScenarioStore(now)
	engine := testEngine(testIntelConfig(), store, now)

	result, err := engine.GetMarketDeals(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetMarketDeals: %v", err)
	}

	if result.Hero == nil {
		t.Fatal("expected a hero deal")
	}
	if result.Hero.ProductID != "p-drop" || result.Hero.Reason != intel.ReasonPriceDrop {
		t.Fatalf("unexpected hero: %+v", result.Hero)
	}
	if result.Hero.RetailerName != "Ammo Depot" {
		t.Fatalf("hero should carry the retailer name, got %q", result.Hero.RetailerName)
	}
	if result.Hero.PricePerRound == nil || result.Hero.PricePerRound.Cmp(decimal.NewFromFloat(0.12)) != 0 {
		t.Fatalf("expected 0.12 per round, got %v", result.Hero.PricePerRound)
	}

	all := append(append([]intel.MarketDeal{}, result.Personalized...), result.Other...)
	for _, d := range all {
		if d.ProductID == "p-unmapped" {
			t.Fatal("unmapped-caliber products must never be emitted")
		}
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 deals, got %d", len(all))
	}
}

func TestGetMarketDealsPersonalizationNeverChangesHero(t *testing.T) {
	now := fixedNow(t)
	store := dealScenarioStore(now)
	engine := testEngine(testIntelConfig(), store, now)

	viewers := [][]caliber.Caliber{
		nil,
		{caliber.Cal9mm},
		{caliber.Cal556},
		{caliber.Cal308},
		{caliber.Cal556, caliber.Cal308},
	}

	var heroID string
	for i, viewer := range viewers {
		result, err := engine.GetMarketDeals(context.Background(), viewer)
		if err != nil {
			t.Fatalf("GetMarketDeals(%d): %v", i, err)
		}
		if result.Hero == nil {
			t.Fatalf("viewer %d: expected a hero", i)
		}
		if i == 0 {
			heroID = result.Hero.ProductID
			continue
		}
		if result.Hero.ProductID != heroID {
			t.Fatalf("viewer %d: hero changed from %s to %s", i, heroID, result.Hero.ProductID)
		}
	}
}

func TestGetMarketDealsViewerPartition(t *testing.T) {
	now := fixedNow(t)
	store := dealScenarioStore(now)
	engine := testEngine(testIntelConfig(), store, now)

	result, err := engine.GetMarketDeals(context.Background(), []caliber.Caliber{caliber.Cal556})
	if err != nil {
		t.Fatalf("GetMarketDeals: %v", err)
	}

	if len(result.Personalized) != 1 || result.Personalized[0].ProductID != "p-556" {
		t.Fatalf("unexpected personalized partition: %+v", result.Personalized)
	}
	if len(result.Other) != 1 || result.Other[0].ProductID != "p-drop" {
		t.Fatalf("unexpected other partition: %+v", result.Other)
	}
	// The hero's caliber has no match in the viewer's set, yet it stays.
	if result.Hero.ProductID != "p-drop" {
		t.Fatalf("hero must be independent of the viewer, got %s", result.Hero.ProductID)
	}
}

func TestGetMarketDealsUsesCache(t *testing.T) {
	now := fixedNow(t)
	store := dealScenarioStore(now)
	engine := testEngine(testIntelConfig(), store, now)

	if _, err := engine.GetMarketDeals(context.Background(), nil); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := engine.GetMarketDeals(context.Background(), []caliber.Caliber{caliber.Cal9mm}); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if store.productCalls != 1 {
		t.Fatalf("second call within TTL should hit the cache, store queried %d times", store.productCalls)
	}
}

func TestGetMarketDealsStoreFailurePropagates(t *testing.T) {
	now := fixedNow(t)
	store := &fakeStore{err: errors.New("connection refused")}
	engine := testEngine(testIntelConfig(), store, now)

	if _, err := engine.GetMarketDeals(context.Background(), nil); err == nil {
		t.Fatal("an unavailable store must surface as a fault, not as no data")
	}
}

func TestCheckPriceRejectsUnknownCaliberBeforeQuerying(t *testing.T) {
	now := fixedNow(t)
	store := &fakeStore{}
	engine := testEngine(testIntelConfig(), store, now)

	_, err := engine.CheckPrice(context.Background(), caliber.Caliber("9 milly"), decimal.NewFromFloat(0.25), "", 0)
	if !errors.Is(err, ErrUnknownCaliber) {
		t.Fatalf("expected ErrUnknownCaliber, got %v", err)
	}
	if store.productCalls != 0 {
		t.Fatal("validation must happen before any aggregation")
	}
}

func TestCheckPriceClassifies(t *testing.T) {
	now := fixedNow(t)
	store := &fakeStore{
		products: []storage.Product{
			{ID: "p1", Name: "Blazer Brass 9mm", Caliber: "9mm", RoundsPerBox: 50},
		},
	}
	base := now.AddDate(0, 0, -5)
	for i, p := range []float64{0.24, 0.20, 0.23, 0.21, 0.22} {
		store.roundPrices = append(store.roundPrices, storage.RoundPrice{
			PricePerRound: decimal.NewFromFloat(p),
			ObservedAt:    base.AddDate(0, 0, i),
		})
	}
	engine := testEngine(testIntelConfig(), store, now)

	result, err := engine.CheckPrice(context.Background(), caliber.Cal9mm, decimal.NewFromFloat(0.20), "", 0)
	if err != nil {
		t.Fatalf("CheckPrice: %v", err)
	}
	if result.Classification != intel.ClassLower {
		t.Fatalf("expected LOWER, got %s", result.Classification)
	}
	if result.Context == nil || result.Context.PricePointCount != 5 {
		t.Fatalf("unexpected context: %+v", result.Context)
	}
}

func TestCheckPriceNoMatchingProducts(t *testing.T) {
	now := fixedNow(t)
	store := &fakeStore{
		products: []storage.Product{
			{ID: "p1", Name: "PMC X-TAC 5.56", Caliber: "5.56", RoundsPerBox: 20},
		},
	}
	engine := testEngine(testIntelConfig(), store, now)

	result, err := engine.CheckPrice(context.Background(), caliber.Cal9mm, decimal.NewFromFloat(0.25), "", 0)
	if err != nil {
		t.Fatalf("CheckPrice: %v", err)
	}
	if result.Classification != intel.ClassInsufficientData {
		t.Fatalf("expected INSUFFICIENT_DATA, got %s", result.Classification)
	}
	if store.priceCalls != 0 {
		t.Fatal("no matching products should skip the sample query")
	}
}
