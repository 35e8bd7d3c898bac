// Package service contains the business logic layer of the ingestion
// pipeline: crawling, batch import, store matching, duplicate resolution
// and progress reporting.
package service

import (
	"log/slog"

	"github.com/appgrove/ingest-api/internal/config"
	"github.com/appgrove/ingest-api/internal/itunes"
	"github.com/appgrove/ingest-api/internal/repository"
	"github.com/appgrove/ingest-api/internal/scrape"
)

// Services holds all service instances.
type Services struct {
	Scrape    *ScrapeService
	Import    *ImportService
	Match     *MatchService
	Duplicate *DuplicateService
	Progress  *ProgressService
	Stats     *StatsService
}

// NewServices creates all service instances.
func NewServices(cfg *config.Config, repos *repository.Repositories, logger *slog.Logger) *Services {
	crawler := scrape.NewCrawler(scrape.CrawlerOptions{
		UserAgent: cfg.UserAgent,
		Delay:     cfg.RequestDelay,
		Timeout:   cfg.FetchTimeout,
	}, logger)

	searcher := itunes.NewClient(itunes.Options{
		BaseURL: cfg.ITunesAPIURL,
		Country: cfg.ITunesCountry,
		Limit:   cfg.ITunesLimit,
		Timeout: cfg.FetchTimeout,
	}, logger)

	return &Services{
		Scrape:    NewScrapeService(cfg, repos, crawler, logger),
		Import:    NewImportService(cfg, repos, logger),
		Match:     NewMatchService(cfg, repos, searcher, logger),
		Duplicate: NewDuplicateService(repos, logger),
		Progress:  NewProgressService(repos, logger),
		Stats:     NewStatsService(repos, logger),
	}
}
