package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/appgrove/ingest-api/internal/config"
	"github.com/appgrove/ingest-api/internal/itunes"
	"github.com/appgrove/ingest-api/internal/metrics"
	"github.com/appgrove/ingest-api/internal/models"
	"github.com/appgrove/ingest-api/internal/repository"
)

// StoreSearcher looks up Mac software by term.
type StoreSearcher interface {
	Search(ctx context.Context, term string) (*itunes.SearchResponse, []byte, error)
}

// MatchService resolves catalog apps against the Mac App Store.
type MatchService struct {
	cfg      *config.Config
	repos    *repository.Repositories
	searcher StoreSearcher
	logger   *slog.Logger
}

// NewMatchService creates a new match service.
func NewMatchService(cfg *config.Config, repos *repository.Repositories, searcher StoreSearcher, logger *slog.Logger) *MatchService {
	return &MatchService{
		cfg:      cfg,
		repos:    repos,
		searcher: searcher,
		logger:   logger,
	}
}

// MatchResult reports the outcome of one match attempt.
type MatchResult struct {
	AppID      string             `json:"app_id"`
	Status     models.MatchStatus `json:"status"`
	Confidence float64            `json:"confidence"`
	MASID      string             `json:"mas_id,omitempty"`
	MASURL     string             `json:"mas_url,omitempty"`
	Applied    bool               `json:"applied"`
	Error      string             `json:"error,omitempty"`
}

// MatchApp looks up one app and records the attempt. When the best
// candidate scores at or above the auto-apply threshold the catalog
// record is updated and the attempt confirmed; otherwise the attempt is
// recorded without touching the app. A failed catalog write leaves the
// attempt at 'found' so a retry can finish the job.
func (s *MatchService) MatchApp(ctx context.Context, appID string) (*MatchResult, error) {
	app, err := s.repos.App.GetByID(ctx, appID)
	if err != nil {
		return nil, &StoreError{Op: "get app", Err: err}
	}
	if app == nil {
		return nil, &NotFoundError{Resource: "app", Key: appID}
	}
	if strings.TrimSpace(app.Name) == "" {
		return nil, &ValidationError{Field: "name", Message: "app has no name to search by"}
	}

	attempt := &models.MatchAttempt{
		ID:            ulid.Make().String(),
		AppID:         app.ID,
		SearchTerm:    app.Name,
		DeveloperName: app.Developer,
	}

	resp, raw, err := s.searcher.Search(ctx, app.Name)
	if err != nil {
		attempt.Status = models.MatchStatusFailed
		attempt.ErrorMessage = err.Error()
		return s.record(ctx, attempt, nil)
	}
	attempt.RawResponse = string(raw)

	best, confidence := s.bestCandidate(app, resp.Results)
	attempt.Confidence = confidence

	if best == nil || confidence < s.cfg.MatchMinConfidence {
		attempt.Status = models.MatchStatusFailed
		switch {
		case len(resp.Results) == 0:
			attempt.ErrorMessage = "no results"
		case best == nil:
			attempt.ErrorMessage = "no usable candidate"
		default:
			attempt.ErrorMessage = "no candidate above confidence floor"
		}
		return s.record(ctx, attempt, nil)
	}

	attempt.MASID = strconv.FormatInt(best.TrackID, 10)
	attempt.MASURL = best.TrackViewURL
	attempt.Status = models.MatchStatusFound

	if confidence < s.cfg.MatchAutoApply {
		// Recorded for review; the catalog record stays untouched.
		return s.record(ctx, attempt, nil)
	}

	// Auto-apply: persist the attempt as found, then write the catalog
	// record, then confirm. Confirmed is only ever written after the
	// catalog update landed.
	if _, err := s.record(ctx, attempt, nil); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	app.MASID = attempt.MASID
	app.MASURL = attempt.MASURL
	app.IsOnMAS = true
	app.MatchedAt = &now
	if err := s.repos.App.UpdateMASFields(ctx, app); err != nil {
		s.logger.Error("match apply failed, attempt left at found",
			"app_id", app.ID, "error", err)
		return nil, &StoreError{Op: "apply match", Err: err}
	}

	attempt.Status = models.MatchStatusConfirmed
	return s.record(ctx, attempt, app)
}

// record upserts the attempt row and builds the result.
func (s *MatchService) record(ctx context.Context, attempt *models.MatchAttempt, applied *models.App) (*MatchResult, error) {
	if err := s.repos.MatchAttempt.Upsert(ctx, attempt); err != nil {
		return nil, &StoreError{Op: "record match attempt", Err: err}
	}
	metrics.MatchAttempts.WithLabelValues(string(attempt.Status)).Inc()

	s.logger.Info("match attempt recorded",
		"app_id", attempt.AppID,
		"status", attempt.Status,
		"confidence", attempt.Confidence,
	)

	result := s.result(attempt)
	result.Applied = applied != nil
	return result, nil
}

func (s *MatchService) result(attempt *models.MatchAttempt) *MatchResult {
	return &MatchResult{
		AppID:      attempt.AppID,
		Status:     attempt.Status,
		Confidence: attempt.Confidence,
		MASID:      attempt.MASID,
		MASURL:     attempt.MASURL,
		Error:      attempt.ErrorMessage,
	}
}

// bestCandidate scores every usable result and returns the highest
// scorer. A result missing its track ID or store URL can never satisfy a
// recorded match and is skipped outright.
func (s *MatchService) bestCandidate(app *models.App, results []itunes.Result) (*itunes.Result, float64) {
	var best *itunes.Result
	var bestScore float64
	for i := range results {
		r := &results[i]
		if r.TrackID == 0 || r.TrackViewURL == "" {
			continue
		}
		score := s.score(app, r)
		if best == nil || score > bestScore {
			best = r
			bestScore = score
		}
	}
	return best, bestScore
}

// score combines name similarity and developer similarity. Apps scraped
// without a developer are scored on name alone.
func (s *MatchService) score(app *models.App, r *itunes.Result) float64 {
	nameScore := similarity(app.Name, r.TrackName)
	if strings.TrimSpace(app.Developer) == "" {
		return nameScore
	}
	devScore := similarity(app.Developer, r.ArtistName)
	if alt := similarity(app.Developer, r.SellerName); alt > devScore {
		devScore = alt
	}
	w := s.cfg.MatchNameWeight
	return w*nameScore + (1-w)*devScore
}

// similarity compares two names after normalization: 1.0 for an exact
// match, 0.85 for containment, and a token-overlap score below that.
func similarity(a, b string) float64 {
	na, nb := normalizeName(a), normalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1.0
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return 0.85
	}
	return 0.7 * tokenOverlap(na, nb)
}

// normalizeName lowercases and strips everything but letters, digits and
// single spaces, so "PixelPress™ Pro" and "pixelpress pro" compare equal.
func normalizeName(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// tokenOverlap is the Jaccard index of the two token sets. Both sides are
// deduplicated first; repeated tokens never count twice, so the result
// stays in [0,1].
func tokenOverlap(a, b string) float64 {
	setA := make(map[string]bool)
	for _, t := range strings.Fields(a) {
		setA[t] = true
	}
	setB := make(map[string]bool)
	for _, t := range strings.Fields(b) {
		setB[t] = true
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	shared := 0
	union := len(setA)
	for t := range setB {
		if setA[t] {
			shared++
		} else {
			union++
		}
	}
	return float64(shared) / float64(union)
}
