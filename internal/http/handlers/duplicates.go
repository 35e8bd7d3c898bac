package handlers

import (
	"context"

	"github.com/appgrove/ingest-api/internal/service"
)

// DuplicateHandler handles duplicate inspection and removal endpoints.
type DuplicateHandler struct {
	svc *service.DuplicateService
}

// NewDuplicateHandler creates a new duplicate handler.
func NewDuplicateHandler(svc *service.DuplicateService) *DuplicateHandler {
	return &DuplicateHandler{svc: svc}
}

// ListDuplicatesOutput represents the current duplicate groups.
type ListDuplicatesOutput struct {
	Body struct {
		Success bool                     `json:"success"`
		Groups  []service.DuplicateGroup `json:"groups"`
		Error   string                   `json:"error,omitempty"`
	}
}

// ListDuplicates returns every group of catalog rows sharing an identity
// signature, without changing anything.
func (h *DuplicateHandler) ListDuplicates(ctx context.Context, input *struct{}) (*ListDuplicatesOutput, error) {
	groups, err := h.svc.FindDuplicates(ctx)
	if err != nil {
		return nil, mapServiceError(err)
	}

	out := &ListDuplicatesOutput{}
	out.Body.Success = true
	out.Body.Groups = groups
	return out, nil
}

// RemoveDuplicatesOutput represents the removal report.
type RemoveDuplicatesOutput struct {
	Body struct {
		Success bool                   `json:"success"`
		Report  *service.ResolveReport `json:"report,omitempty"`
		Error   string                 `json:"error,omitempty"`
	}
}

// RemoveDuplicates deletes every duplicate row, keeping the earliest of
// each group. Safe to call again; a clean catalog removes nothing.
func (h *DuplicateHandler) RemoveDuplicates(ctx context.Context, input *struct{}) (*RemoveDuplicatesOutput, error) {
	report, err := h.svc.RemoveDuplicates(ctx)
	if err != nil {
		return nil, mapServiceError(err)
	}

	out := &RemoveDuplicatesOutput{}
	out.Body.Success = true
	out.Body.Report = report
	return out, nil
}
