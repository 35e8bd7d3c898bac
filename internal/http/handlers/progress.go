package handlers

import (
	"context"

	"github.com/appgrove/ingest-api/internal/models"
	"github.com/appgrove/ingest-api/internal/service"
)

// ProgressHandler handles crawl progress endpoints.
type ProgressHandler struct {
	svc *service.ProgressService
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(svc *service.ProgressService) *ProgressHandler {
	return &ProgressHandler{svc: svc}
}

// ProgressInput identifies the category to report on.
type ProgressInput struct {
	CategoryURL string `query:"category_url" required:"true" minLength:"1" doc:"Listing category URL"`
}

// ProgressOutput represents the aggregated page progress of a category.
type ProgressOutput struct {
	Body struct {
		Success  bool                     `json:"success"`
		Progress *models.CategoryProgress `json:"progress,omitempty"`
		Error    string                   `json:"error,omitempty"`
	}
}

// Progress reports how far a category's crawl and import have advanced.
func (h *ProgressHandler) Progress(ctx context.Context, input *ProgressInput) (*ProgressOutput, error) {
	progress, err := h.svc.GetCategoryProgress(ctx, input.CategoryURL)
	if err != nil {
		return nil, mapServiceError(err)
	}

	out := &ProgressOutput{}
	out.Body.Success = true
	out.Body.Progress = progress
	return out, nil
}
