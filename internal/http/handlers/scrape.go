package handlers

import (
	"context"

	"github.com/appgrove/ingest-api/internal/service"
)

// ScrapeHandler handles listing crawl endpoints.
type ScrapeHandler struct {
	svc *service.ScrapeService
}

// NewScrapeHandler creates a new scrape handler.
func NewScrapeHandler(svc *service.ScrapeService) *ScrapeHandler {
	return &ScrapeHandler{svc: svc}
}

// ScrapeInput represents a crawl request for one category.
type ScrapeInput struct {
	Body struct {
		CategoryURL string `json:"category_url" minLength:"1" format:"uri" doc:"Listing category URL to crawl"`
		PageLimit   int    `json:"page_limit,omitempty" minimum:"1" maximum:"50" doc:"Maximum pages to crawl in this call (default 1)"`
	}
}

// ScrapeOutput represents the crawl result.
type ScrapeOutput struct {
	Body struct {
		Success bool                  `json:"success"`
		Result  *service.ScrapeResult `json:"result,omitempty"`
		Error   string                `json:"error,omitempty"`
	}
}

// Scrape crawls listing pages of a category, resuming after the last
// recorded page, and records per-page progress.
func (h *ScrapeHandler) Scrape(ctx context.Context, input *ScrapeInput) (*ScrapeOutput, error) {
	result, err := h.svc.ScrapeCategory(ctx, input.Body.CategoryURL, input.Body.PageLimit)
	if err != nil {
		return nil, mapServiceError(err)
	}

	out := &ScrapeOutput{}
	out.Body.Success = true
	out.Body.Result = result
	return out, nil
}
