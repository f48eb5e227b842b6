package ai

import (
	"fmt"
	"strings"
)

const suggestionPrompt = `The user is searching for a developer tool: %q.
Suggest %d REAL, existing tools that solve this problem.

Tasks:
1. Find %d tools.
2. For EACH tool, pick the ONE best matching category from this list:
   [%s].
   (Do not use "Development" if "Design" or "AI" fits better).

Return ONLY a JSON array. Format:
[
  {
    "title": "Tool Name",
    "url": "https://tool-url.com",
    "description": "Short 1-sentence description.",
    "category": "The_Best_Category_From_List",
    "tags": ["tag1", "tag2"]
  }
]`

const enrichmentPrompt = `I am building a developer tool directory.
Analyze this URL: %s
%s
Tasks:
1. Write a short, punchy summary (max 13 words, %d characters) for a developer audience.
2. Choose ONE category from: [%s]. (Do not use "Development" if "Design" or "AI" fits better).
3. Generate %d-%d relevant, lowercase tags.

Return ONLY a JSON object like this:
{
  "summary": "string",
  "category": "string",
  "tags": ["string", "string"]
}`

// PageContext is optional metadata scraped from the page, used as a hint.
type PageContext struct {
	Title       string
	Description string
}

func buildSuggestionPrompt(query string, count int) string {
	return fmt.Sprintf(suggestionPrompt, query, count, count, strings.Join(Categories, ", "))
}

func buildEnrichmentPrompt(url string, page PageContext) string {
	var hints strings.Builder
	if page.Title != "" {
		fmt.Fprintf(&hints, "Page title: %s\n", page.Title)
	}
	if page.Description != "" {
		fmt.Fprintf(&hints, "Page description: %s\n", page.Description)
	}
	return fmt.Sprintf(enrichmentPrompt, url, hints.String(), MaxSummaryLength,
		strings.Join(Categories, ", "), MinTags, MaxTags)
}
