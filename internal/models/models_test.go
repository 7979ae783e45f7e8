package models

import (
	"testing"
	"time"

	"expertcheck/internal/apperrors"
	"github.com/stretchr/testify/assert"
)

func TestContentStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusInReview.Terminal())
	assert.True(t, StatusValidated.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, ContentStatus("archived").Valid())
}

func TestContentTypeValid(t *testing.T) {
	for _, ct := range ContentTypes {
		assert.True(t, ct.Valid(), string(ct))
	}
	assert.False(t, ContentType("poem").Valid())
	assert.False(t, ContentType("").Valid())
}

func TestResponseIndex(t *testing.T) {
	r := ExpertResponse{ContentID: "c1", Selected: true}
	assert.Equal(t, map[string]string{"contentId": "c1", "selected": "true"}, r.Index())
}

func TestContentCheckUpdate(t *testing.T) {
	submitted := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	validated := submitted.Add(time.Hour)
	prev := ContentItem{ID: "c1", Status: StatusPending, SubmittedAt: submitted}

	next := prev
	next.Status = StatusValidated
	next.ValidatedAt = &validated
	assert.NoError(t, next.CheckUpdate(prev))

	moved := next
	moved.SubmittedAt = submitted.Add(time.Minute)
	assert.True(t, apperrors.IsCode(moved.CheckUpdate(prev), apperrors.CodeValidation))

	later := validated.Add(time.Minute)
	reset := next
	reset.ValidatedAt = &later
	assert.Error(t, reset.CheckUpdate(next))
}

func TestResponseCheckUpdate(t *testing.T) {
	prev := ExpertResponse{ID: "r1", ContentID: "c1"}
	next := prev
	next.Selected = true
	assert.NoError(t, next.CheckUpdate(prev))

	next.ContentID = "c2"
	assert.Error(t, next.CheckUpdate(prev))
}

func TestLibraryEntryIsAppendOnly(t *testing.T) {
	e := LibraryEntry{ID: "l1"}
	assert.Error(t, e.CheckUpdate(e))
}
