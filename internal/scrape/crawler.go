package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// ListingPage is the parsed result of one category listing page.
type ListingPage struct {
	URL          string
	CategoryName string
	AppURLs      []string // deduplicated, first-seen order
}

// CrawlerOptions configures the listing crawler.
type CrawlerOptions struct {
	// UserAgent is sent on every request. The listing site rejects
	// default library agents, so a browser-like string is required.
	UserAgent string

	// Delay is the mandatory pause between requests to the listing site.
	Delay time.Duration

	// Timeout bounds each individual fetch.
	Timeout time.Duration
}

// Crawler fetches listing pages and item pages from the listing site.
// Listing pages go through colly (rate-limited, revisit-safe); single
// item fetches use a plain HTTP client with the same identification.
type Crawler struct {
	opts   CrawlerOptions
	client *http.Client
	logger *slog.Logger
}

// NewCrawler creates a listing crawler.
func NewCrawler(opts CrawlerOptions, logger *slog.Logger) *Crawler {
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Crawler{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
		logger: logger,
	}
}

// PageURL builds the URL for page n of a category listing.
func PageURL(categoryURL string, page int) string {
	if page <= 1 {
		return categoryURL
	}
	sep := "?"
	if strings.Contains(categoryURL, "?") {
		sep = "&"
	}
	return categoryURL + sep + "page=" + strconv.Itoa(page)
}

// FetchListingPage fetches one listing page and extracts the category
// name plus candidate item URLs in first-seen order.
func (c *Crawler) FetchListingPage(ctx context.Context, categoryURL string, page int) (*ListingPage, error) {
	pageURL := PageURL(categoryURL, page)

	result := &ListingPage{URL: pageURL}
	seen := make(map[string]bool)

	collector := colly.NewCollector(
		colly.UserAgent(c.opts.UserAgent),
		colly.MaxDepth(1),
	)
	collector.SetRequestTimeout(c.opts.Timeout)
	if c.opts.Delay > 0 {
		_ = collector.Limit(&colly.LimitRule{DomainGlob: "*", Delay: c.opts.Delay})
	}

	collector.OnHTML("h1", func(e *colly.HTMLElement) {
		if result.CategoryName == "" {
			result.CategoryName = strings.TrimSpace(e.Text)
		}
	})

	// Item links on the listing grid. The site links items as /app/<slug>.
	collector.OnHTML(`a[href*="/app/"]`, func(e *colly.HTMLElement) {
		select {
		case <-ctx.Done():
			return
		default:
		}
		href := e.Attr("href")
		if href == "" {
			return
		}
		abs := e.Request.AbsoluteURL(href)
		if abs == "" {
			return
		}
		norm := normalizeItemURL(abs)
		if norm == "" || seen[norm] {
			return
		}
		seen[norm] = true
		result.AppURLs = append(result.AppURLs, norm)
	})

	var fetchErr error
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = &FetchError{URL: pageURL, StatusCode: r.StatusCode, Err: err}
	})

	visitErr := collector.Visit(pageURL)
	collector.Wait()

	// OnError has the response status; prefer it over the bare visit error.
	if fetchErr != nil {
		return nil, fetchErr
	}
	if visitErr != nil {
		return nil, &FetchError{URL: pageURL, Err: visitErr}
	}

	c.logger.Debug("listing page fetched",
		"url", pageURL,
		"category", result.CategoryName,
		"app_urls", len(result.AppURLs),
	)
	return result, nil
}

// FetchDocument fetches a single item page and returns its raw markup.
// Timeouts and non-2xx statuses surface as a FetchError for that URL only.
func (c *Crawler) FetchDocument(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &FetchError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("bad status code: %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: err}
	}
	return string(body), nil
}

// normalizeItemURL canonicalizes an item URL for deduplication: fragment
// dropped, scheme/host lowercased, trailing slash trimmed.
func normalizeItemURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	parsed.Fragment = ""
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}
	return parsed.String()
}
