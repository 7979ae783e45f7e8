// Package query holds the read-side views: library search, dashboard
// statistics and pending-item listings. Nothing here writes to the store.
package query

import (
	"sort"
	"strings"

	"expertcheck/internal/models"
)

// AllTags is the tag filter value that disables tag filtering.
const AllTags = "all"

// Search returns the entries matching term and tag, preserving input order.
// term matches case-insensitively as a substring of the validated content,
// the expert name or any tag; an empty term matches everything. tag must
// equal one of the entry's tags unless it is empty or AllTags.
func Search(entries []models.LibraryEntry, term, tag string) []models.LibraryEntry {
	needle := strings.ToLower(strings.TrimSpace(term))
	out := make([]models.LibraryEntry, 0, len(entries))
	for _, e := range entries {
		if needle != "" && !matchesTerm(e, needle) {
			continue
		}
		if tag != "" && tag != AllTags && !hasTag(e, tag) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func matchesTerm(e models.LibraryEntry, needle string) bool {
	if strings.Contains(strings.ToLower(e.ValidatedContent), needle) ||
		strings.Contains(strings.ToLower(e.ExpertName), needle) {
		return true
	}
	for _, t := range e.Tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

func hasTag(e models.LibraryEntry, tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Tags returns the distinct tags across entries, sorted.
func Tags(entries []models.LibraryEntry) []string {
	seen := make(map[string]struct{})
	for _, e := range entries {
		for _, t := range e.Tags {
			if t != "" {
				seen[t] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// NewestFirst returns a copy of responses ordered by submission time,
// newest first. Ties keep the id order so listings are stable.
func NewestFirst(responses []models.ExpertResponse) []models.ExpertResponse {
	out := append([]models.ExpertResponse(nil), responses...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
