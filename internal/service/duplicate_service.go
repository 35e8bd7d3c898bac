package service

import (
	"context"
	"log/slog"
	"sort"

	"github.com/appgrove/ingest-api/internal/metrics"
	"github.com/appgrove/ingest-api/internal/models"
	"github.com/appgrove/ingest-api/internal/repository"
)

// DuplicateService finds and removes catalog rows describing the same app.
type DuplicateService struct {
	repos  *repository.Repositories
	logger *slog.Logger
}

// NewDuplicateService creates a new duplicate service.
func NewDuplicateService(repos *repository.Repositories, logger *slog.Logger) *DuplicateService {
	return &DuplicateService{repos: repos, logger: logger}
}

// DuplicateGroup is a set of apps sharing one identity signature. Keep is
// the survivor; Duplicates are the candidates for removal.
type DuplicateGroup struct {
	Signature  string        `json:"signature"`
	Keep       *models.App   `json:"keep"`
	Duplicates []*models.App `json:"duplicates"`
}

// ResolveReport is the outcome of a removal pass.
type ResolveReport struct {
	RemovedIDs []string `json:"removed_ids"`
	KeptIDs    []string `json:"kept_ids"`
}

// FindDuplicates groups apps by normalized (name, developer) signature
// and returns every group of two or more. Within a group the earliest
// created row wins; ties break on ID so the outcome is stable.
func (s *DuplicateService) FindDuplicates(ctx context.Context) ([]DuplicateGroup, error) {
	apps, err := s.repos.App.ListAll(ctx)
	if err != nil {
		return nil, &StoreError{Op: "list apps", Err: err}
	}

	bySignature := make(map[string][]*models.App)
	var order []string
	for _, app := range apps {
		sig := identitySignature(app)
		if len(bySignature[sig]) == 0 {
			order = append(order, sig)
		}
		bySignature[sig] = append(bySignature[sig], app)
	}

	var groups []DuplicateGroup
	for _, sig := range order {
		members := bySignature[sig]
		if len(members) < 2 {
			continue
		}
		sort.Slice(members, func(i, j int) bool {
			if !members[i].CreatedAt.Equal(members[j].CreatedAt) {
				return members[i].CreatedAt.Before(members[j].CreatedAt)
			}
			return members[i].ID < members[j].ID
		})
		groups = append(groups, DuplicateGroup{
			Signature:  sig,
			Keep:       members[0],
			Duplicates: members[1:],
		})
	}
	return groups, nil
}

// RemoveDuplicates deletes every duplicate row, keeping the earliest of
// each group. Running it again on a clean catalog removes nothing.
func (s *DuplicateService) RemoveDuplicates(ctx context.Context) (*ResolveReport, error) {
	groups, err := s.FindDuplicates(ctx)
	if err != nil {
		return nil, err
	}

	report := &ResolveReport{RemovedIDs: []string{}, KeptIDs: []string{}}
	for _, g := range groups {
		report.KeptIDs = append(report.KeptIDs, g.Keep.ID)
		for _, dup := range g.Duplicates {
			if err := s.repos.App.Delete(ctx, dup.ID); err != nil {
				return report, &StoreError{Op: "delete duplicate", Err: err}
			}
			report.RemovedIDs = append(report.RemovedIDs, dup.ID)
			metrics.DuplicatesRemoved.Inc()
		}
		s.logger.Info("duplicate group resolved",
			"signature", g.Signature,
			"kept", g.Keep.ID,
			"removed", len(g.Duplicates),
		)
	}
	return report, nil
}

// identitySignature is the duplicate-detection key: normalized name and
// developer joined with a separator neither can contain after
// normalization.
func identitySignature(app *models.App) string {
	return normalizeName(app.Name) + "|" + normalizeName(app.Developer)
}
