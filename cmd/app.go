package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/gitline/gitline/internal/cache"
	"github.com/gitline/gitline/internal/config"
	"github.com/gitline/gitline/internal/fetcher"
	"github.com/gitline/gitline/internal/github"
	"github.com/gitline/gitline/internal/logging"
	"github.com/gitline/gitline/internal/ratelimit"
)

// application bundles the long-lived components shared by the commands
type application struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   *cache.Store
	tracker *ratelimit.Tracker
	service *fetcher.Service
}

// newApplication wires configuration, logging, cache, rate tracking, the
// GitHub client, and the fetch service.
func newApplication() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store := cache.NewStore(cfg.Cache.SweepInterval)
	tracker := ratelimit.NewTracker(cfg.RateLimit())

	client, err := github.NewClient(cfg.GitHub, tracker)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	return &application{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		tracker: tracker,
		service: fetcher.New(client, store, tracker, cfg, logger),
	}, nil
}

// Close releases the application's background resources
func (a *application) Close() {
	a.store.Close()
	_ = a.logger.Sync()
}
