// Package itunes implements a minimal iTunes Search API client scoped to
// Mac App Store software lookups.
package itunes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://itunes.apple.com/search"

// Result is one software entry from a search response.
type Result struct {
	TrackID          int64   `json:"trackId"`
	TrackName        string  `json:"trackName"`
	TrackViewURL     string  `json:"trackViewUrl"`
	ArtistName       string  `json:"artistName"`
	SellerName       string  `json:"sellerName"`
	BundleID         string  `json:"bundleId"`
	Price            float64 `json:"price"`
	Currency         string  `json:"currency"`
	PrimaryGenreName string  `json:"primaryGenreName"`
	Version          string  `json:"version"`
}

// SearchResponse is the search endpoint's envelope.
type SearchResponse struct {
	ResultCount int      `json:"resultCount"`
	Results     []Result `json:"results"`
}

// Options configures the client. Zero values get sensible defaults.
type Options struct {
	BaseURL string
	Country string        // ISO country code, default "us"
	Limit   int           // max results per search, default 10
	Timeout time.Duration // per-request bound, default 10s
}

// Client calls the iTunes Search API. Every lookup runs under a finite
// timeout so a slow upstream can never stall a match pass.
type Client struct {
	opts   Options
	client *http.Client
	logger *slog.Logger
}

// NewClient creates a search client.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Country == "" {
		opts.Country = "us"
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: logger,
	}
}

// Search looks up Mac software by term. The raw response body is returned
// alongside the parsed form so callers can persist it for audit.
func (c *Client) Search(ctx context.Context, term string) (*SearchResponse, []byte, error) {
	q := url.Values{}
	q.Set("term", term)
	q.Set("entity", "macSoftware")
	q.Set("country", c.opts.Country)
	q.Set("limit", strconv.Itoa(c.opts.Limit))

	reqURL := c.opts.BaseURL + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, body, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var parsed SearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, body, fmt.Errorf("failed to decode search response: %w", err)
	}

	c.logger.Debug("itunes search completed",
		"term", term,
		"results", parsed.ResultCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &parsed, body, nil
}
