package handlers

import (
	"context"
	"errors"

	"github.com/appgrove/ingest-api/internal/models"
	"github.com/appgrove/ingest-api/internal/service"
)

// ImportHandler handles batch import endpoints.
type ImportHandler struct {
	svc *service.ImportService
}

// NewImportHandler creates a new import handler.
func NewImportHandler(svc *service.ImportService) *ImportHandler {
	return &ImportHandler{svc: svc}
}

// ImportAppInput is one scraped app in an import batch.
type ImportAppInput struct {
	SourceURL      string   `json:"source_url" minLength:"1" doc:"Listing item URL, the app's stable identity"`
	Name           string   `json:"name" doc:"App name"`
	Developer      string   `json:"developer,omitempty" doc:"Developer name"`
	Version        string   `json:"version,omitempty" doc:"Version string"`
	PriceText      string   `json:"price_text,omitempty" doc:"Price as displayed on the listing"`
	SizeBytes      int64    `json:"size_bytes,omitempty" minimum:"0" doc:"Download size in bytes"`
	Category       string   `json:"category,omitempty" doc:"Category name"`
	ScreenshotURLs []string `json:"screenshot_urls,omitempty" doc:"Screenshot URLs"`
	RatingText     string   `json:"rating_text,omitempty" doc:"Rating as displayed on the listing"`
}

// ImportInput represents an import batch request.
type ImportInput struct {
	Body struct {
		Apps        []ImportAppInput `json:"apps" minItems:"1" doc:"Scraped apps to import"`
		CategoryURL string           `json:"category_url,omitempty" doc:"Category whose newest scraped page this batch completes"`
	}
}

// ImportOutput represents the batch report.
type ImportOutput struct {
	Body struct {
		Success bool                 `json:"success"`
		Report  *service.BatchReport `json:"report,omitempty"`
		Error   string               `json:"error,omitempty"`
	}
}

// Import upserts a batch of scraped apps. Per-item failures and an
// exhausted time budget are reported in the batch report, not as an
// HTTP error; the completed part of the batch always stands.
func (h *ImportHandler) Import(ctx context.Context, input *ImportInput) (*ImportOutput, error) {
	apps := make([]models.ScrapedApp, len(input.Body.Apps))
	for i, a := range input.Body.Apps {
		apps[i] = models.ScrapedApp{
			SourceURL:      a.SourceURL,
			Name:           a.Name,
			Developer:      a.Developer,
			Version:        a.Version,
			PriceText:      a.PriceText,
			SizeBytes:      a.SizeBytes,
			Category:       a.Category,
			ScreenshotURLs: a.ScreenshotURLs,
			RatingText:     a.RatingText,
		}
	}

	report, err := h.svc.ImportBatch(ctx, apps, input.Body.CategoryURL)
	if err != nil {
		var te *service.TimeoutError
		if !errors.As(err, &te) {
			return nil, mapServiceError(err)
		}
	}

	out := &ImportOutput{}
	out.Body.Success = !report.TimedOut
	out.Body.Report = report
	if report.TimedOut {
		out.Body.Error = "time budget exhausted before the batch completed"
	}
	return out, nil
}
