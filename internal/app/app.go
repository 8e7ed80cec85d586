package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"ammowatch/internal/config"
	"ammowatch/internal/ingest"
	"ammowatch/internal/jobs"
	"ammowatch/internal/scheduler"
	"ammowatch/internal/service"
	"ammowatch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newEngine(store storage.ObservationReader) *service.Engine {
	return service.NewEngine(a.Config.Intel, store, a.Logger)
}

func (a *App) newFeeds() []ingest.PriceFeed {
	feeds := make([]ingest.PriceFeed, 0, len(a.Config.Ingest.Feeds))
	for _, fc := range a.Config.Ingest.Feeds {
		feeds = append(feeds, ingest.NewHTTPFeed(ingest.FeedOptions{
			Name:       fc.Name,
			RetailerID: fc.RetailerID,
			URL:        fc.URL,
			Timeout:    a.Config.Ingest.RequestTimeout,
			UserAgent:  a.Config.Ingest.UserAgent,
		}, a.Logger))
	}
	return feeds
}

// Poll executes the long-running feed polling service.
func (a *App) Poll(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if len(a.Config.Ingest.Feeds) == 0 {
		return errors.New("ingest.feeds is empty; nothing to poll")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn not configured; cannot poll")
	}
	if closeStore != nil {
		defer closeStore()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Ingest.Interval,
		AlignToStart: a.Config.Ingest.AlignToInterval,
		StartupDelay: a.Config.Ingest.StartupDelay,
	}, a.Logger)

	poller := ingest.NewPoller(sched, a.newFeeds(), store, jobs.NewTracker(), a.Logger)

	a.Logger.Info().Int("feeds", len(a.Config.Ingest.Feeds)).Msg("starting feed poller")
	err = poller.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("poller terminated with error")
		return err
	}

	a.Logger.Info().Msg("feed poller stopped")
	return nil
}
