package linkpreview

import "time"

const (
	// CacheTTL is how long successful fetches are cached.
	CacheTTL = 24 * time.Hour
	// ErrorCacheTTL is how long failed fetches are cached.
	ErrorCacheTTL = 1 * time.Hour
)

// Page is the metadata a website publishes about itself. It seeds the title
// and screenshot of a submission and gives the enrichment prompt context.
type Page struct {
	URL         string
	Title       string
	Description string
	ImageURL    string
	SiteName    string
}

func (p *Page) empty() bool {
	return p.Title == "" && p.Description == ""
}

// CacheEntry is one cached fetch. A non-empty FetchError records a failed
// fetch and carries no page data.
type CacheEntry struct {
	Page
	FetchedAt  time.Time
	ExpiresAt  time.Time
	FetchError string
}
