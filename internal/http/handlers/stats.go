package handlers

import (
	"context"

	"github.com/appgrove/ingest-api/internal/service"
)

// StatsHandler handles catalog diagnostics endpoints.
type StatsHandler struct {
	svc *service.StatsService
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(svc *service.StatsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// StatsOutput represents the catalog count snapshot.
type StatsOutput struct {
	Body struct {
		Success bool                  `json:"success"`
		Stats   *service.CatalogStats `json:"stats,omitempty"`
		Error   string                `json:"error,omitempty"`
	}
}

// Stats reports catalog counts: apps, categories, match attempts by status.
func (h *StatsHandler) Stats(ctx context.Context, input *struct{}) (*StatsOutput, error) {
	stats, err := h.svc.GetStats(ctx)
	if err != nil {
		return nil, mapServiceError(err)
	}

	out := &StatsOutput{}
	out.Body.Success = true
	out.Body.Stats = stats
	return out, nil
}
