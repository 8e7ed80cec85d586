package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

// Every consumer-facing query carries the visibility predicate: eligible
// retailer, active listing, and no membership in an ignored ingestion
// run. Statistics are never computed over invisible observations.
const (
	listActiveProductsSQL = `SELECT
        p.id, p.name, p.caliber, p.brand, p.grain_weight, p.rounds_per_box
    FROM products p
    WHERE EXISTS (
        SELECT 1
        FROM price_observations o
        JOIN listings l ON l.id = o.listing_id AND l.product_id = p.id
        JOIN retailers r ON r.id = o.retailer_id
        LEFT JOIN ingestion_runs ir ON ir.id = o.run_id
        WHERE o.observed_at >= $1
          AND r.status = 'eligible'
          AND l.status = 'active'
          AND COALESCE(ir.ignored, FALSE) = FALSE
    )
    ORDER BY p.id
    LIMIT $2;`

	listVisibleObservationsSQL = `SELECT
        o.id,
        l.product_id,
        o.listing_id,
        o.retailer_id,
        o.price,
        o.in_stock,
        o.observed_at,
        o.run_id,
        o.created_at
    FROM price_observations o
    JOIN listings l ON l.id = o.listing_id
    JOIN retailers r ON r.id = o.retailer_id
    LEFT JOIN ingestion_runs ir ON ir.id = o.run_id
    WHERE l.product_id = ANY($1)
      AND o.observed_at >= $2
      AND o.observed_at < $3
      AND r.status = 'eligible'
      AND l.status = 'active'
      AND COALESCE(ir.ignored, FALSE) = FALSE
    ORDER BY l.product_id, o.observed_at;`

	listRoundPricesSQL = `SELECT
        (o.price / p.rounds_per_box)::text,
        o.observed_at
    FROM price_observations o
    JOIN listings l ON l.id = o.listing_id
    JOIN products p ON p.id = l.product_id
    JOIN retailers r ON r.id = o.retailer_id
    LEFT JOIN ingestion_runs ir ON ir.id = o.run_id
    WHERE l.product_id = ANY($1)
      AND p.rounds_per_box > 0
      AND o.in_stock
      AND o.observed_at >= $2
      AND o.observed_at < $3
      AND r.status = 'eligible'
      AND l.status = 'active'
      AND COALESCE(ir.ignored, FALSE) = FALSE
    ORDER BY o.observed_at;`

	listRetailersSQL = `SELECT id, name, status FROM retailers ORDER BY id;`

	insertRunSQL = `INSERT INTO ingestion_runs (id, source, started_at, ignored)
    VALUES ($1, $2, $3, $4);`

	insertObservationSQL = `INSERT INTO price_observations (
        listing_id, retailer_id, price, in_stock, observed_at, run_id
    ) VALUES ($1, $2, $3, $4, $5, $6);`

	countObservationsSQL = `SELECT COUNT(*) FROM price_observations;`
)

// ObservationReader is the read contract the intelligence engine
// consumes: resolved products, visible observations, and price-per-round
// samples.
type ObservationReader interface {
	ListActiveProducts(ctx context.Context, activeSince time.Time, limit int) ([]Product, error)
	ListVisibleObservations(ctx context.Context, productIDs []string, from, to time.Time) ([]Observation, error)
	ListRoundPrices(ctx context.Context, q RoundPriceQuery) ([]RoundPrice, error)
	ListRetailers(ctx context.Context) ([]Retailer, error)
}

// ObservationAppender is the append-side contract used by the feed
// poller. The engine itself never writes.
type ObservationAppender interface {
	InsertRun(ctx context.Context, run IngestionRun) error
	InsertObservations(ctx context.Context, obs []NewObservation) error
	CountObservations(ctx context.Context) (int64, error)
}

// Store aggregates access to the price observation ledger.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// ListActiveProducts lists products with at least one visible
// observation since activeSince. A non-positive limit applies the
// engine's completeness cap upstream instead.
func (s *Store) ListActiveProducts(ctx context.Context, activeSince time.Time, limit int) ([]Product, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10000
	}

	rows, queryErr := pool.Query(ctx, listActiveProductsSQL, activeSince, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list active products: %w", queryErr)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		var p Product
		var brand sql.NullString
		var grain, rounds sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &p.Caliber, &brand, &grain, &rounds); err != nil {
			return nil, err
		}
		if brand.Valid {
			p.Brand = brand.String
		}
		if grain.Valid {
			p.GrainWeight = int(grain.Int64)
		}
		if rounds.Valid {
			p.RoundsPerBox = int(rounds.Int64)
		}
		products = append(products, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return products, nil
}

// ListVisibleObservations lists consumer-visible observations for a set
// of canonical products within [from, to).
func (s *Store) ListVisibleObservations(ctx context.Context, productIDs []string, from, to time.Time) ([]Observation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	if len(productIDs) == 0 {
		return nil, nil
	}

	rows, queryErr := pool.Query(ctx, listVisibleObservationsSQL, productIDs, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list visible observations: %w", queryErr)
	}
	defer rows.Close()

	obs := make([]Observation, 0)
	for rows.Next() {
		o, scanErr := scanObservation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		obs = append(obs, o)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return obs, nil
}

// ListRoundPrices lists per-observation price-per-round samples for the
// given products within the query window.
func (s *Store) ListRoundPrices(ctx context.Context, q RoundPriceQuery) ([]RoundPrice, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}
	if len(q.ProductIDs) == 0 {
		return nil, nil
	}

	rows, queryErr := pool.Query(ctx, listRoundPricesSQL, q.ProductIDs, q.From, q.To)
	if queryErr != nil {
		return nil, fmt.Errorf("list round prices: %w", queryErr)
	}
	defer rows.Close()

	points := make([]RoundPrice, 0)
	for rows.Next() {
		var priceStr string
		var observedAt time.Time
		if err := rows.Scan(&priceStr, &observedAt); err != nil {
			return nil, err
		}
		price, convErr := decimal.NewFromString(priceStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse price per round: %w", convErr)
		}
		points = append(points, RoundPrice{PricePerRound: price, ObservedAt: observedAt})
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return points, nil
}

// ListRetailers lists all known retailers regardless of status.
func (s *Store) ListRetailers(ctx context.Context) ([]Retailer, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRetailersSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list retailers: %w", queryErr)
	}
	defer rows.Close()

	retailers := make([]Retailer, 0)
	for rows.Next() {
		var r Retailer
		if err := rows.Scan(&r.ID, &r.Name, &r.Status); err != nil {
			return nil, err
		}
		retailers = append(retailers, r)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return retailers, nil
}

// InsertRun records the start of one feed poll.
func (s *Store) InsertRun(ctx context.Context, run IngestionRun) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, insertRunSQL, run.ID, run.Source, run.StartedAt, run.Ignored); execErr != nil {
		return fmt.Errorf("insert ingestion run: %w", execErr)
	}
	return nil
}

// InsertObservations appends a batch of observations to the ledger.
func (s *Store) InsertObservations(ctx context.Context, obs []NewObservation) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if len(obs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, o := range obs {
		batch.Queue(insertObservationSQL,
			o.ListingID,
			o.RetailerID,
			o.Price.String(),
			o.InStock,
			o.ObservedAt,
			o.RunID,
		)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()
	for range obs {
		if _, execErr := results.Exec(); execErr != nil {
			return fmt.Errorf("insert observation: %w", execErr)
		}
	}
	return nil
}

// CountObservations counts ledger rows.
func (s *Store) CountObservations(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countObservationsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count observations: %w", scanErr)
	}
	return count, nil
}

func scanObservation(rows pgx.Rows) (Observation, error) {
	var (
		o        Observation
		priceStr string
		runID    sql.NullString
	)

	if err := rows.Scan(
		&o.ID,
		&o.ProductID,
		&o.ListingID,
		&o.RetailerID,
		&priceStr,
		&o.InStock,
		&o.ObservedAt,
		&runID,
		&o.CreatedAt,
	); err != nil {
		return Observation{}, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return Observation{}, fmt.Errorf("parse observation price: %w", err)
	}
	o.Price = price

	if runID.Valid {
		id := runID.String
		o.RunID = &id
	}

	return o, nil
}

var _ ObservationReader = (*Store)(nil)
var _ ObservationAppender = (*Store)(nil)
