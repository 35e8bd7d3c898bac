package handlers

import (
	"context"

	"github.com/appgrove/ingest-api/internal/service"
)

// MatchHandler handles store match endpoints.
type MatchHandler struct {
	svc *service.MatchService
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(svc *service.MatchService) *MatchHandler {
	return &MatchHandler{svc: svc}
}

// MatchInput identifies the app to match.
type MatchInput struct {
	ID string `path:"id" minLength:"1" doc:"App ID"`
}

// MatchOutput represents the match attempt outcome.
type MatchOutput struct {
	Body struct {
		Success bool                 `json:"success"`
		Result  *service.MatchResult `json:"result,omitempty"`
		Error   string               `json:"error,omitempty"`
	}
}

// Match runs one store lookup for the app and records the attempt. A
// lookup that finds nothing is still a successful request; the outcome
// lives in the recorded attempt.
func (h *MatchHandler) Match(ctx context.Context, input *MatchInput) (*MatchOutput, error) {
	result, err := h.svc.MatchApp(ctx, input.ID)
	if err != nil {
		return nil, mapServiceError(err)
	}

	out := &MatchOutput{}
	out.Body.Success = true
	out.Body.Result = result
	return out, nil
}
