package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"ammowatch/internal/jobs"
	"ammowatch/internal/scheduler"
	"ammowatch/internal/storage"
)

// Poller drives periodic feed fetches and appends the results to the
// observation ledger. The intelligence engine never writes; this is the
// only append path in the process.
type Poller struct {
	scheduler *scheduler.Scheduler
	feeds     []PriceFeed
	store     storage.ObservationAppender
	tracker   *jobs.Tracker
	logger    zerolog.Logger
}

// NewPoller constructs the polling service.
func NewPoller(sched *scheduler.Scheduler, feeds []PriceFeed, store storage.ObservationAppender, tracker *jobs.Tracker, logger zerolog.Logger) *Poller {
	return &Poller{
		scheduler: sched,
		feeds:     feeds,
		store:     store,
		tracker:   tracker,
		logger:    logger.With().Str("component", "poller").Logger(),
	}
}

// Run blocks, polling every feed on each scheduler tick until ctx is
// cancelled.
func (p *Poller) Run(ctx context.Context) error {
	if p.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return p.scheduler.Run(ctx, p.PollOnce)
}

// PollOnce fetches all feeds once. Each feed gets its own ingestion run
// and job record; one failing feed does not abort the others.
func (p *Poller) PollOnce(ctx context.Context, tick time.Time) error {
	var failed int
	for _, feed := range p.feeds {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := p.pollFeed(ctx, feed, tick); err != nil {
			failed++
			p.logger.Error().Err(err).Str("feed", feed.Name()).Msg("feed poll failed")
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d feeds failed", failed, len(p.feeds))
	}
	return nil
}

func (p *Poller) pollFeed(ctx context.Context, feed PriceFeed, tick time.Time) error {
	job := p.tracker.Begin("poll:" + feed.Name())

	run := storage.IngestionRun{
		ID:        job.ID,
		Source:    feed.Name(),
		StartedAt: tick,
	}
	if err := p.store.InsertRun(ctx, run); err != nil {
		p.tracker.Fail(job.ID, err)
		return err
	}

	offers, err := feed.Fetch(ctx)
	if err != nil {
		p.tracker.Fail(job.ID, err)
		return err
	}

	observedAt := time.Now().UTC()
	rows := make([]storage.NewObservation, 0, len(offers))
	for _, offer := range offers {
		rows = append(rows, storage.NewObservation{
			ListingID:  offer.ListingID,
			RetailerID: feed.RetailerID(),
			Price:      offer.Price,
			InStock:    offer.InStock,
			ObservedAt: observedAt,
			RunID:      job.ID,
		})
	}

	if err := p.store.InsertObservations(ctx, rows); err != nil {
		p.tracker.Fail(job.ID, err)
		return err
	}

	p.tracker.Complete(job.ID, len(rows))
	p.logger.Info().
		Str("feed", feed.Name()).
		Str("run_id", job.ID).
		Int("observations", len(rows)).
		Msg("feed polled")
	return nil
}
