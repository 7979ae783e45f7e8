package models

import "expertcheck/internal/apperrors"

// CheckUpdate keeps submittedAt immutable and validatedAt set-once.
func (c ContentItem) CheckUpdate(prev ContentItem) error {
	if !c.SubmittedAt.Equal(prev.SubmittedAt) {
		return apperrors.Validation("submittedAt is immutable")
	}
	if prev.ValidatedAt != nil && (c.ValidatedAt == nil || !c.ValidatedAt.Equal(*prev.ValidatedAt)) {
		return apperrors.Validation("validatedAt is already set")
	}
	if !c.Status.Valid() {
		return apperrors.Validation("unknown status " + string(c.Status))
	}
	return nil
}

// CheckUpdate keeps the content reference immutable.
func (r ExpertResponse) CheckUpdate(prev ExpertResponse) error {
	if r.ContentID != prev.ContentID {
		return apperrors.Validation("contentId is immutable")
	}
	return nil
}

// CheckUpdate rejects every change: library entries are append-only.
func (e LibraryEntry) CheckUpdate(LibraryEntry) error {
	return apperrors.Validation("library entries are append-only")
}
