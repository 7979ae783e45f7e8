package query

import (
	"sort"

	"expertcheck/internal/models"
)

// Stats is the dashboard summary. PendingCount counts only items still in
// the pending state; in-review items are reported separately.
type Stats struct {
	PendingCount   int `json:"pendingCount"`
	InReviewCount  int `json:"inReviewCount"`
	ValidatedCount int `json:"validatedCount"`
	RejectedCount  int `json:"rejectedCount"`
	TotalCount     int `json:"totalCount"`
}

// ComputeStats tallies items by status.
func ComputeStats(items []models.ContentItem) Stats {
	var s Stats
	for _, it := range items {
		switch it.Status {
		case models.StatusPending:
			s.PendingCount++
		case models.StatusInReview:
			s.InReviewCount++
		case models.StatusValidated:
			s.ValidatedCount++
		case models.StatusRejected:
			s.RejectedCount++
		}
	}
	s.TotalCount = len(items)
	return s
}

// PendingItem is a non-terminal content item with its response tally.
type PendingItem struct {
	models.ContentItem
	ResponseCount int `json:"responseCount"`
}

// BuildPending selects the non-terminal items, newest first, and attaches the
// number of responses each has received.
func BuildPending(items []models.ContentItem, responses []models.ExpertResponse) []PendingItem {
	counts := make(map[string]int, len(items))
	for _, r := range responses {
		counts[r.ContentID]++
	}

	out := make([]PendingItem, 0, len(items))
	for _, it := range items {
		if it.Status.Terminal() {
			continue
		}
		out = append(out, PendingItem{ContentItem: it, ResponseCount: counts[it.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out
}

func sortContentNewestFirst(items []models.ContentItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].SubmittedAt.After(items[j].SubmittedAt)
	})
}

func sortLibraryNewestFirst(entries []models.LibraryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ValidatedAt.After(entries[j].ValidatedAt)
	})
}
