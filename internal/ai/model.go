package ai

import "strings"

// Suggestion is one tool recommended for a free-text query. Records are
// cached and replayed verbatim, so the category is not validated.
type Suggestion struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
}

// Enrichment is generated metadata for a single website.
type Enrichment struct {
	Summary  string   `json:"summary"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

const (
	MaxSummaryLength = 85
	MinTags          = 3
	MaxTags          = 5
)

// Categories is the closed set the model is asked to choose from.
var Categories = []string{"Development", "Design", "Productivity", "AI", "DevOps", "Learning"}

// CanonicalCategory matches c case-insensitively against Categories and
// returns the canonical spelling, or "" if c is not in the set.
func CanonicalCategory(c string) string {
	c = strings.TrimSpace(c)
	for _, known := range Categories {
		if strings.EqualFold(c, known) {
			return known
		}
	}
	return ""
}

// NormalizeTags lowercases, trims and de-duplicates tags, keeping at most MaxTags.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
		if len(out) == MaxTags {
			break
		}
	}
	return out
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
