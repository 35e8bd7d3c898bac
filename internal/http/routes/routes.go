// Package routes wires HTTP handlers to huma operations.
package routes

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/appgrove/ingest-api/internal/http/handlers"
	"github.com/appgrove/ingest-api/internal/service"
)

// Register attaches every API operation to the given huma API.
func Register(api huma.API, services *service.Services) {
	scrapeHandler := handlers.NewScrapeHandler(services.Scrape)
	importHandler := handlers.NewImportHandler(services.Import)
	matchHandler := handlers.NewMatchHandler(services.Match)
	duplicateHandler := handlers.NewDuplicateHandler(services.Duplicate)
	progressHandler := handlers.NewProgressHandler(services.Progress)
	statsHandler := handlers.NewStatsHandler(services.Stats)

	huma.Register(api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/v1/health",
		Summary:     "Health check",
		Tags:        []string{"System"},
	}, handlers.HealthCheck)

	huma.Register(api, huma.Operation{
		OperationID: "scrape-category",
		Method:      http.MethodPost,
		Path:        "/api/v1/scrape",
		Summary:     "Crawl listing pages of a category",
		Tags:        []string{"Scrape"},
	}, scrapeHandler.Scrape)

	huma.Register(api, huma.Operation{
		OperationID: "import-batch",
		Method:      http.MethodPost,
		Path:        "/api/v1/import",
		Summary:     "Import a batch of scraped apps",
		Tags:        []string{"Import"},
	}, importHandler.Import)

	huma.Register(api, huma.Operation{
		OperationID: "match-app",
		Method:      http.MethodPost,
		Path:        "/api/v1/apps/{id}/match",
		Summary:     "Match an app against the store",
		Tags:        []string{"Match"},
	}, matchHandler.Match)

	huma.Register(api, huma.Operation{
		OperationID: "list-duplicates",
		Method:      http.MethodGet,
		Path:        "/api/v1/duplicates",
		Summary:     "List duplicate catalog entries",
		Tags:        []string{"Duplicates"},
	}, duplicateHandler.ListDuplicates)

	huma.Register(api, huma.Operation{
		OperationID: "remove-duplicates",
		Method:      http.MethodDelete,
		Path:        "/api/v1/duplicates",
		Summary:     "Remove duplicate catalog entries",
		Tags:        []string{"Duplicates"},
	}, duplicateHandler.RemoveDuplicates)

	huma.Register(api, huma.Operation{
		OperationID: "catalog-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/stats",
		Summary:     "Catalog count diagnostics",
		Tags:        []string{"System"},
	}, statsHandler.Stats)

	huma.Register(api, huma.Operation{
		OperationID: "category-progress",
		Method:      http.MethodGet,
		Path:        "/api/v1/progress",
		Summary:     "Report crawl progress for a category",
		Tags:        []string{"Progress"},
	}, progressHandler.Progress)
}

// RegisterProbes attaches liveness and readiness probes. These live on a
// hidden API so they stay out of the OpenAPI document.
func RegisterProbes(api huma.API, db handlers.DBPinger) {
	huma.Get(api, "/healthz", handlers.Livez)
	readyzHandler := handlers.NewReadyzHandler(db)
	huma.Get(api, "/readyz", readyzHandler.Readyz)
}
