package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"ammowatch/internal/caliber"
	"ammowatch/internal/config"
	"ammowatch/internal/intel"
	"ammowatch/internal/storage"
)

// ErrUnknownCaliber rejects price-check requests whose caliber is not a
// member of the canonical enumeration. This is the only input error the
// engine itself produces; missing data is a result, not an error.
var ErrUnknownCaliber = errors.New("caliber is not in the canonical enumeration")

const dealCacheKey = "market-deals"

// MarketDeals is the deal-list response: a deterministic hero plus the
// ranked list split around the viewer's calibers.
type MarketDeals struct {
	Hero         *intel.MarketDeal
	Personalized []intel.MarketDeal
	Other        []intel.MarketDeal
	AsOf         time.Time
}

// Engine turns the observation ledger into market deals and price-check
// verdicts. It is a pure reader: no request ever writes to the ledger.
type Engine struct {
	store      storage.ObservationReader
	cfg        config.IntelConfig
	classifier *intel.Classifier
	cache      *dealCache
	logger     zerolog.Logger
	now        func() time.Time
}

// NewEngine constructs the intelligence engine.
func NewEngine(cfg config.IntelConfig, store storage.ObservationReader, logger zerolog.Logger) *Engine {
	classifier := intel.NewClassifier(intel.Thresholds{
		DropPct:           decimal.NewFromFloat(cfg.DropPct),
		MinMedianDays:     cfg.MinMedianDays,
		MinOutageDays:     cfg.MinOutageDays,
		RestockWindowDays: cfg.RestockWindowDays,
	})

	return &Engine{
		store:      store,
		cfg:        cfg,
		classifier: classifier,
		cache:      newDealCache(cfg.CacheTTL),
		logger:     logger.With().Str("component", "engine").Logger(),
		now:        time.Now,
	}
}

// GetMarketDeals computes the ranked market deal set and partitions it
// for the viewer. The hero is fixed before personalization ever runs.
func (e *Engine) GetMarketDeals(ctx context.Context, viewerCalibers []caliber.Caliber) (MarketDeals, error) {
	ctx, cancel := e.requestContext(ctx)
	defer cancel()

	now := e.now().UTC()
	ranked, asOf, ok := e.cache.get(dealCacheKey, now)
	if !ok {
		var err error
		ranked, err = e.computeRankedDeals(ctx, now)
		if err != nil {
			return MarketDeals{}, err
		}
		asOf = now
		e.cache.set(dealCacheKey, ranked, asOf)
	}

	viewer := make(map[caliber.Caliber]bool, len(viewerCalibers))
	for _, cal := range viewerCalibers {
		viewer[cal] = true
	}

	matched, other := intel.Split(ranked, viewer, e.cfg.MatchedDisplayCap, e.cfg.OtherDisplayCap)
	return MarketDeals{
		Hero:         intel.Hero(ranked),
		Personalized: matched,
		Other:        other,
		AsOf:         asOf,
	}, nil
}

// CheckPrice classifies one entered price-per-round value against the
// recent visible market for a caliber, optionally narrowed by brand and
// grain weight.
func (e *Engine) CheckPrice(ctx context.Context, cal caliber.Caliber, pricePerRound decimal.Decimal, brand string, grainWeight int) (intel.PriceCheckResult, error) {
	if !caliber.IsCanonical(cal) {
		return intel.PriceCheckResult{}, fmt.Errorf("%w: %q", ErrUnknownCaliber, cal)
	}

	ctx, cancel := e.requestContext(ctx)
	defer cancel()

	now := e.now().UTC()
	from := now.AddDate(0, 0, -e.cfg.MedianWindowDays)

	products, err := e.store.ListActiveProducts(ctx, from, 0)
	if err != nil {
		return intel.PriceCheckResult{}, fmt.Errorf("list products for price check: %w", err)
	}

	ids := make([]string, 0, len(products))
	for _, p := range products {
		productCal, ok := caliber.Normalize(p.Caliber)
		if !ok || productCal != cal {
			continue
		}
		if brand != "" && !strings.EqualFold(p.Brand, brand) {
			continue
		}
		if grainWeight > 0 && p.GrainWeight != grainWeight {
			continue
		}
		if p.RoundsPerBox <= 0 {
			continue
		}
		ids = append(ids, p.ID)
	}

	var points []intel.PricePoint
	if len(ids) > 0 {
		samples, err := e.store.ListRoundPrices(ctx, storage.RoundPriceQuery{
			ProductIDs: ids,
			From:       from,
			To:         now,
		})
		if err != nil {
			return intel.PriceCheckResult{}, fmt.Errorf("list round prices: %w", err)
		}
		points = make([]intel.PricePoint, len(samples))
		for i, s := range samples {
			points[i] = intel.PricePoint{PricePerRound: s.PricePerRound, ObservedAt: s.ObservedAt}
		}
	}

	result := intel.CheckPrice(pricePerRound, points)
	e.logger.Debug().
		Str("caliber", string(cal)).
		Str("classification", string(result.Classification)).
		Int("points", len(points)).
		Msg("price check classified")
	return result, nil
}

func (e *Engine) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, e.cfg.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

// computeRankedDeals runs the full pipeline: candidates, aggregates,
// stock gaps, eligibility, rank. A timeout or store failure aborts the
// whole computation; partial results are never returned as complete.
func (e *Engine) computeRankedDeals(ctx context.Context, now time.Time) ([]intel.MarketDeal, error) {
	windows := intel.Windows{
		CurrentDays: e.cfg.CurrentWindowDays,
		MedianDays:  e.cfg.MedianWindowDays,
		LowestDays:  e.cfg.LowestWindowDays,
	}

	activeSince := now.AddDate(0, 0, -windows.CurrentDays)
	products, err := e.store.ListActiveProducts(ctx, activeSince, e.cfg.CandidateCap)
	if err != nil {
		return nil, fmt.Errorf("list candidate products: %w", err)
	}

	// Products whose caliber cannot be normalised are dropped here,
	// before any statistics run. The exclusion is unconditional.
	type resolved struct {
		product storage.Product
		caliber caliber.Caliber
	}
	candidates := make([]resolved, 0, len(products))
	ids := make([]string, 0, len(products))
	for _, p := range products {
		cal, ok := caliber.Normalize(p.Caliber)
		if !ok {
			continue
		}
		candidates = append(candidates, resolved{product: p, caliber: cal})
		ids = append(ids, p.ID)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// The retailer directory and the observation window are independent
	// reads over the same snapshot; fetch them concurrently.
	var (
		wg           sync.WaitGroup
		retailers    []storage.Retailer
		retailersErr error
		observations []storage.Observation
		obsErr       error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		retailers, retailersErr = e.store.ListRetailers(ctx)
	}()
	go func() {
		defer wg.Done()
		from := now.AddDate(0, 0, -windows.LowestDays)
		observations, obsErr = e.store.ListVisibleObservations(ctx, ids, from, now)
	}()
	wg.Wait()
	if retailersErr != nil {
		return nil, fmt.Errorf("list retailers: %w", retailersErr)
	}
	if obsErr != nil {
		return nil, fmt.Errorf("list observations: %w", obsErr)
	}

	retailerNames := make(map[string]string, len(retailers))
	for _, r := range retailers {
		retailerNames[r.ID] = r.Name
	}

	byProduct := make(map[string][]intel.Observation, len(candidates))
	for _, o := range observations {
		byProduct[o.ProductID] = append(byProduct[o.ProductID], intel.Observation{
			ProductID:  o.ProductID,
			RetailerID: o.RetailerID,
			Price:      o.Price,
			InStock:    o.InStock,
			ObservedAt: o.ObservedAt,
		})
	}

	// Per-product aggregation is CPU-only; spread it over a small worker
	// pool and abort promptly on cancellation.
	jobs := make(chan resolved)
	var (
		mu    sync.Mutex
		deals []intel.MarketDeal
	)
	var workers sync.WaitGroup
	for i := 0; i < e.cfg.Workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for cand := range jobs {
				stats := intel.Aggregate(cand.product.ID, byProduct[cand.product.ID], now, windows)
				restocked := intel.RecentlyRestocked(stats.DailyBests, now, e.cfg.MinOutageDays, e.cfg.RestockWindowDays)

				var retailerName string
				if stats.Current != nil {
					retailerName = retailerNames[stats.Current.RetailerID]
				}

				deal, ok := e.classifier.Classify(intel.Candidate{
					Product: intel.Product{
						ID:           cand.product.ID,
						Name:         cand.product.Name,
						Caliber:      cand.caliber,
						RoundsPerBox: cand.product.RoundsPerBox,
					},
					Stats:             stats,
					RetailerName:      retailerName,
					RecentlyRestocked: restocked,
				}, now)
				if !ok {
					continue
				}
				mu.Lock()
				deals = append(deals, deal)
				mu.Unlock()
			}
		}()
	}

feed:
	for _, cand := range candidates {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- cand:
		}
	}
	close(jobs)
	workers.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ranked := intel.Rank(deals)
	e.logger.Info().
		Int("candidates", len(candidates)).
		Int("deals", len(ranked)).
		Msg("market deals computed")
	return ranked, nil
}
