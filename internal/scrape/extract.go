// Package scrape implements listing-site crawling and field extraction.
//
// Extraction is a pure function of the document text: each field runs an
// ordered chain of strategies (structured data block, labeled caption,
// loose pattern) and the first hit wins. Fields are independent, so a
// broken block for one field never blocks the others, and malformed
// markup yields absent values rather than errors.
package scrape

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/appgrove/ingest-api/internal/models"
)

// Field names the extractable fields of a listing item page.
type Field string

const (
	FieldName        Field = "name"
	FieldDeveloper   Field = "developer"
	FieldVersion     Field = "version"
	FieldPrice       Field = "price"
	FieldSize        Field = "size"
	FieldCategory    Field = "category"
	FieldScreenshots Field = "screenshots"
	FieldRating      Field = "rating"
)

// Document wraps a parsed listing page. Parsing never fails: when the
// markup is unreadable the DOM strategies simply find nothing and the
// regex strategies run against the raw text.
type Document struct {
	dom *goquery.Document
	raw string
}

// ParseDocument parses raw markup into a Document.
func ParseDocument(html string) *Document {
	d := &Document{raw: html}
	if dom, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		d.dom = dom
	}
	return d
}

// strategy produces a candidate value for one field, or ok=false.
type strategy func(d *Document) (string, bool)

// strategies holds the ordered fallback chain per field. Order matters:
// structured data first, labeled captions second, loose patterns last.
var strategies = map[Field][]strategy{
	FieldName: {
		jsonLDString("name"),
		metaContent(`meta[property="og:title"]`),
		domText("h1"),
		titleText,
	},
	FieldDeveloper: {
		jsonLDString("author"),
		labeledValue("Developer"),
		domText(".developer, a[href*='/developer/']"),
	},
	FieldVersion: {
		jsonLDString("softwareVersion"),
		labeledValue("Version"),
		domText(".version"),
		rawPattern(`Version\s+v?[0-9][0-9A-Za-z.]*(?:\s*\([^)]*\))?`),
	},
	FieldPrice: {
		jsonLDString("price"),
		labeledValue("Price"),
		domText(".price"),
		rawPattern(`(?:\$\d+(?:\.\d{1,2})?|Free)`),
	},
	FieldSize: {
		jsonLDString("fileSize"),
		labeledValue("Size"),
		domText(".app-size, .size"),
		rawPattern(`\d+(?:\.\d+)?\s*(?:KB|MB|GB)`),
	},
	FieldCategory: {
		jsonLDString("applicationCategory"),
		labeledValue("Category"),
		domText(".breadcrumbs a:last-of-type, nav.breadcrumb a:last-of-type"),
	},
	FieldRating: {
		labeledValue("Rating"),
		domText(".rating"),
		rawPattern(`\d(?:\.\d)?\s*\(\s*[\d,.]+\s*[KMB]?\s*Ratings?\s*\)`),
	},
}

// Extract returns the best-effort value for a single field, or ok=false
// when every strategy comes up empty. Safe for concurrent use.
func (d *Document) Extract(field Field) (string, bool) {
	for _, s := range strategies[field] {
		if v, ok := s(d); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// Screenshots returns gallery image URLs in document order, deduplicated.
func (d *Document) Screenshots() []string {
	if d.dom == nil {
		return nil
	}
	var urls []string
	seen := make(map[string]bool)
	add := func(u string, ok bool) {
		u = strings.TrimSpace(u)
		if !ok || u == "" || seen[u] {
			return
		}
		seen[u] = true
		urls = append(urls, u)
	}
	d.dom.Find(".screenshots img, .gallery img, img.screenshot").Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("data-src"); ok && v != "" {
			add(v, true)
			return
		}
		add(s.Attr("src"))
	})
	if len(urls) == 0 {
		d.dom.Find(`meta[property="og:image"]`).Each(func(_ int, s *goquery.Selection) {
			add(s.Attr("content"))
		})
	}
	return urls
}

// ExtractApp extracts every field independently and assembles a ScrapedApp.
func ExtractApp(sourceURL, html string) models.ScrapedApp {
	d := ParseDocument(html)
	app := models.ScrapedApp{SourceURL: sourceURL}
	if v, ok := d.Extract(FieldName); ok {
		app.Name = v
	}
	if v, ok := d.Extract(FieldDeveloper); ok {
		app.Developer = v
	}
	if v, ok := d.Extract(FieldVersion); ok {
		app.Version = CleanVersion(v)
	}
	if v, ok := d.Extract(FieldPrice); ok {
		app.PriceText = v
	}
	if v, ok := d.Extract(FieldSize); ok {
		if n, ok := ParseSizeBytes(v); ok {
			app.SizeBytes = n
		}
	}
	if v, ok := d.Extract(FieldCategory); ok {
		app.Category = v
	}
	if v, ok := d.Extract(FieldRating); ok {
		app.RatingText = v
	}
	app.ScreenshotURLs = d.Screenshots()
	return app
}

// ---- strategies ----

func domText(selector string) strategy {
	return func(d *Document) (string, bool) {
		if d.dom == nil {
			return "", false
		}
		sel := d.dom.Find(selector).First()
		if sel.Length() == 0 {
			return "", false
		}
		return strings.TrimSpace(sel.Text()), true
	}
}

func metaContent(selector string) strategy {
	return func(d *Document) (string, bool) {
		if d.dom == nil {
			return "", false
		}
		return d.dom.Find(selector).First().Attr("content")
	}
}

func titleText(d *Document) (string, bool) {
	if d.dom == nil {
		return "", false
	}
	t := strings.TrimSpace(d.dom.Find("title").First().Text())
	if t == "" {
		return "", false
	}
	// Listing titles carry a site suffix ("AppName - Site").
	if i := strings.Index(t, " - "); i > 0 {
		t = t[:i]
	}
	return t, true
}

// labeledValue matches caption/value pairs in either definition lists
// (<dt>Label</dt><dd>value</dd>) or "Label: value" runs in the raw text.
func labeledValue(label string) strategy {
	pattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label) + `\s*:\s*([^<\n]+)`)
	return func(d *Document) (string, bool) {
		if d.dom != nil {
			var found string
			d.dom.Find("dt").EachWithBreak(func(_ int, s *goquery.Selection) bool {
				if strings.EqualFold(strings.TrimSpace(s.Text()), label) {
					found = strings.TrimSpace(s.Next().Text())
					return false
				}
				return true
			})
			if found != "" {
				return found, true
			}
		}
		if m := pattern.FindStringSubmatch(d.raw); m != nil {
			return strings.TrimSpace(m[1]), true
		}
		return "", false
	}
}

func rawPattern(expr string) strategy {
	re := regexp.MustCompile(expr)
	return func(d *Document) (string, bool) {
		if m := re.FindString(d.raw); m != "" {
			return m, true
		}
		return "", false
	}
}

// jsonLDString reads a top-level string or number field from the page's
// JSON-LD application/ld+json block.
func jsonLDString(key string) strategy {
	return func(d *Document) (string, bool) {
		if d.dom == nil {
			return "", false
		}
		var out string
		d.dom.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			var obj map[string]any
			if err := json.Unmarshal([]byte(s.Text()), &obj); err != nil {
				return true
			}
			switch v := obj[key].(type) {
			case string:
				out = v
			case float64:
				out = strconv.FormatFloat(v, 'f', -1, 64)
			case map[string]any:
				// author/other nested entities carry a "name"
				if n, ok := v["name"].(string); ok {
					out = n
				}
			}
			return out == ""
		})
		return out, out != ""
	}
}

// ---- normalization ----

var (
	sizePattern    = regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*(KB|MB|GB|B)\b`)
	countPattern   = regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*([KMB])?\b`)
	versionPattern = regexp.MustCompile(`\d+(?:\.\d+)*`)
)

// ParseSizeBytes converts a human size string to bytes using 1024-based
// multipliers (KB=1024, MB=1024^2, GB=1024^3). The listing mixes decimal
// and binary conventions across pages; binary is the documented choice
// here and is applied uniformly.
func ParseSizeBytes(s string) (int64, bool) {
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	num, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	var mult float64
	switch strings.ToUpper(m[2]) {
	case "B":
		mult = 1
	case "KB":
		mult = 1024
	case "MB":
		mult = 1024 * 1024
	case "GB":
		mult = 1024 * 1024 * 1024
	default:
		return 0, false
	}
	return int64(math.Round(num * mult)), true
}

// ParseCount converts a count string with K/M/B suffixes to a number
// using decimal multipliers (K=1e3, M=1e6, B=1e9), e.g. "10K" -> 10000.
func ParseCount(s string) (int64, bool) {
	m := countPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	num, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToUpper(m[2]) {
	case "K":
		num *= 1e3
	case "M":
		num *= 1e6
	case "B":
		num *= 1e9
	}
	return int64(math.Round(num)), true
}

// CleanVersion strips a leading "Version" label and keeps the first
// dotted numeric run: "Version 2.1.4 (Build 9)" -> "2.1.4". When no
// numeric run exists the cleaned string is returned verbatim.
func CleanVersion(s string) string {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimSpace(strings.TrimPrefix(cleaned, "Version"))
	if m := versionPattern.FindString(cleaned); m != "" {
		return m
	}
	return cleaned
}
