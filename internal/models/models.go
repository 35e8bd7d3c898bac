// Package models defines the domain models for the catalog ingestion pipeline.
package models

import (
	"regexp"
	"strconv"
	"time"
)

// App represents a normalized catalog app record.
// Scraped fields are written by the batch importer; MAS fields are written
// only by the match service (narrow update, never touching other columns).
type App struct {
	ID             string     `json:"id"`
	SourceURL      string     `json:"source_url"`
	Name           string     `json:"name"`
	Developer      string     `json:"developer,omitempty"`
	Version        string     `json:"version,omitempty"`
	PriceText      string     `json:"price_text,omitempty"`
	SizeBytes      int64      `json:"size_bytes,omitempty"`
	Category       string     `json:"category,omitempty"`
	ScreenshotURLs []string   `json:"screenshot_urls,omitempty"`
	RatingText     string     `json:"rating_text,omitempty"`
	MASID          string     `json:"mas_id,omitempty"`
	MASURL         string     `json:"mas_url,omitempty"`
	IsOnMAS        bool       `json:"is_on_mas"`
	MatchedAt      *time.Time `json:"matched_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ScrapedApp is the immutable output of the extraction engine for one
// listing item. Absent optional fields are zero values.
type ScrapedApp struct {
	SourceURL      string   `json:"source_url"`
	Name           string   `json:"name"`
	Developer      string   `json:"developer,omitempty"`
	Version        string   `json:"version,omitempty"`
	PriceText      string   `json:"price_text,omitempty"`
	SizeBytes      int64    `json:"size_bytes,omitempty"`
	Category       string   `json:"category,omitempty"`
	ScreenshotURLs []string `json:"screenshot_urls,omitempty"`
	RatingText     string   `json:"rating_text,omitempty"`
}

// Category represents a listing-site category being crawled.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// MatchStatus represents the state of a MAS match attempt.
type MatchStatus string

const (
	MatchStatusFound     MatchStatus = "found"
	MatchStatusFailed    MatchStatus = "failed"
	MatchStatusConfirmed MatchStatus = "confirmed"
)

// MatchAttempt records one lookup invocation for an app. One row per app
// (upsert keyed by app_id); status moves to confirmed only after the
// catalog record has been updated with the resolved identifiers.
type MatchAttempt struct {
	ID            string      `json:"id"`
	AppID         string      `json:"app_id"`
	SearchTerm    string      `json:"search_term"`
	DeveloperName string      `json:"developer_name,omitempty"`
	RawResponse   string      `json:"raw_response,omitempty"` // JSON body from the lookup API
	Confidence    float64     `json:"confidence"`             // always in [0,1]
	Status        MatchStatus `json:"status"`
	MASID         string      `json:"mas_id,omitempty"`
	MASURL        string      `json:"mas_url,omitempty"`
	ErrorMessage  string      `json:"error_message,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// SessionStatus represents the crawl/import state of one listing page.
type SessionStatus string

const (
	SessionStatusScraped  SessionStatus = "scraped"
	SessionStatusImported SessionStatus = "imported"
)

// ImportSession is one page-progress row: a (category, page) pair moving
// scraped -> imported exactly once. The row name follows the stored
// "Page <N>" convention; the page number is derived from it.
type ImportSession struct {
	ID           string        `json:"id"`
	CategoryID   string        `json:"category_id"`
	Name         string        `json:"name"` // "Page <N>"
	PageNumber   int           `json:"page_number"`
	Status       SessionStatus `json:"status"`
	AppsImported int           `json:"apps_imported"`
	AppsSkipped  int           `json:"apps_skipped"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// CategoryProgress aggregates session rows for a category. Computed on
// demand, never stored.
type CategoryProgress struct {
	CategoryURL      string `json:"category_url"`
	CategoryName     string `json:"category_name"`
	TotalPages       int    `json:"total_pages"`
	PagesScraped     int    `json:"pages_scraped"`
	PagesImported    int    `json:"pages_imported"`
	PagesPending     int    `json:"pages_pending"`
	NextPageToScrape int    `json:"next_page_to_scrape"`
	NextPageToImport int    `json:"next_page_to_import,omitempty"` // 0 when nothing is pending
}

// pagePattern matches the stored session naming convention. Existing rows
// were written as "Page <N>" and interoperating with them requires parsing
// the number back out of the name.
var pagePattern = regexp.MustCompile(`^Page (\d+)$`)

// PageName formats the session row name for a page number.
func PageName(page int) string {
	return "Page " + strconv.Itoa(page)
}

// ParsePageName extracts the page number from a session row name.
// Returns false for names outside the "Page <N>" convention.
func ParsePageName(name string) (int, bool) {
	m := pagePattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
