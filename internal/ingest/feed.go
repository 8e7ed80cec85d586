package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Offer is one listing-level price/stock snapshot from a retailer feed.
type Offer struct {
	ListingID string
	Price     decimal.Decimal
	InStock   bool
}

// PriceFeed fetches the current offers from one retailer.
type PriceFeed interface {
	Name() string
	RetailerID() string
	Fetch(ctx context.Context) ([]Offer, error)
}

// FeedOptions parameterise an HTTP price feed.
type FeedOptions struct {
	Name       string
	RetailerID string
	URL        string
	Timeout    time.Duration
	UserAgent  string
}

// HTTPFeed pulls a retailer's JSON offer feed over HTTP.
type HTTPFeed struct {
	opts   FeedOptions
	client *resty.Client
	logger zerolog.Logger
}

type feedResponse struct {
	Offers []struct {
		ListingID string `json:"listing_id"`
		Price     string `json:"price"`
		InStock   bool   `json:"in_stock"`
	} `json:"offers"`
}

// NewHTTPFeed constructs an HTTP feed client.
func NewHTTPFeed(opts FeedOptions, logger zerolog.Logger) *HTTPFeed {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "ammowatch/1.0"
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &HTTPFeed{
		opts:   opts,
		client: client,
		logger: logger.With().Str("component", "feed").Str("feed", opts.Name).Logger(),
	}
}

// Name identifies the feed in logs and job records.
func (f *HTTPFeed) Name() string { return f.opts.Name }

// RetailerID is the retailer the offers belong to.
func (f *HTTPFeed) RetailerID() string { return f.opts.RetailerID }

// Fetch retrieves and decodes the feed's current offers.
func (f *HTTPFeed) Fetch(ctx context.Context) ([]Offer, error) {
	var payload feedResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetResult(&payload).
		Get(f.opts.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", f.opts.Name, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("feed %s returned status %d", f.opts.Name, resp.StatusCode())
	}

	offers := make([]Offer, 0, len(payload.Offers))
	for _, raw := range payload.Offers {
		if raw.ListingID == "" {
			continue
		}
		price, convErr := decimal.NewFromString(raw.Price)
		if convErr != nil {
			f.logger.Warn().Str("listing_id", raw.ListingID).Str("price", raw.Price).Msg("skipping offer with unparseable price")
			continue
		}
		offers = append(offers, Offer{
			ListingID: raw.ListingID,
			Price:     price,
			InStock:   raw.InStock,
		})
	}
	return offers, nil
}

var _ PriceFeed = (*HTTPFeed)(nil)
