package website

import "time"

// DefaultCategory marks a website no category has been chosen for.
const DefaultCategory = "Uncategorized"

type Website struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	URL           string    `json:"url"`
	Domain        string    `json:"domain"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Tags          []string  `json:"tags"`
	ScreenshotURL *string   `json:"screenshotUrl,omitempty"`
	AddedBy       *string   `json:"addedBy,omitempty"`
	Approved      bool      `json:"approved"`
	Upvotes       int       `json:"upvotes"`
	Upvoted       bool      `json:"upvoted"`
	Views         int       `json:"views"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type CreateInput struct {
	Title         string
	URL           string
	Domain        string
	Description   string
	Category      string
	Tags          []string
	ScreenshotURL *string
	AddedBy       string
}

// ListParams filters and pages the website listing. ViewerID, when set,
// fills in Upvoted for each result.
type ListParams struct {
	Page         int
	Limit        int
	Search       string
	Category     string
	ApprovedOnly bool
	ViewerID     string
}

type ListResult struct {
	Websites   []Website
	Total      int
	Page       int
	TotalPages int
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)
