package workflow

import (
	"context"
	"fmt"

	"expertcheck/internal/apperrors"
	"expertcheck/internal/events"
	"expertcheck/internal/logger"
	"expertcheck/internal/metrics"
	"expertcheck/internal/models"
	"expertcheck/internal/store"
)

// StageReconcile is reported when reconciliation itself cannot complete.
const StageReconcile = "reconcile"

// Reconcile rolls an interrupted commit forward. A validated item without a
// library entry gets its entry created; a non-terminal item with exactly one
// selected response is validated and its entry created. Items already
// consistent are returned unchanged.
func (e *Engine) Reconcile(ctx context.Context, contentID string) (entry models.LibraryEntry, err error) {
	defer func() {
		outcome := metrics.OutcomeCommitted
		if err != nil {
			outcome = metrics.OutcomeFailed
		}
		e.recorder.Reconciled(outcome)
	}()

	release, err := e.locks.Acquire(ctx, contentID)
	if err != nil {
		return models.LibraryEntry{}, err
	}
	defer release()

	item, err := e.store.Content.Get(ctx, contentID)
	if err != nil {
		return models.LibraryEntry{}, err
	}
	if item.Status == models.StatusRejected {
		return models.LibraryEntry{}, checkTransition(item.Status, models.StatusValidated)
	}

	selected, err := e.store.Responses.List(ctx, store.Filter{"contentId": contentID, "selected": "true"})
	if err != nil {
		return models.LibraryEntry{}, err
	}
	switch {
	case len(selected) == 0 && item.Status == models.StatusValidated:
		return models.LibraryEntry{}, apperrors.CommitFailed(StageReconcile, false,
			fmt.Errorf("content %s is validated but has no selected response", contentID))
	case len(selected) == 0:
		return models.LibraryEntry{}, apperrors.Validation("content has no interrupted commit to reconcile")
	case len(selected) > 1:
		return models.LibraryEntry{}, apperrors.CommitFailed(StageReconcile, false,
			fmt.Errorf("content %s has %d selected responses", contentID, len(selected)))
	}
	chosen := selected[0]

	ctx = context.WithoutCancel(ctx)
	log := e.log.With(logger.String("content_id", contentID), logger.String("response_id", chosen.ID))

	if item.Status != models.StatusValidated {
		validatedAt := e.now().UTC()
		var from models.ContentStatus
		item, from, err = e.markValidated(ctx, contentID, validatedAt)
		if err != nil {
			return models.LibraryEntry{}, apperrors.CommitFailed(StageValidate, false, err)
		}
		e.recorder.Transitioned(from, models.StatusValidated)
		log.Info("Reconcile validated content")
	}

	existing, err := e.store.Library.List(ctx, store.Filter{"contentId": contentID})
	if err != nil {
		return models.LibraryEntry{}, apperrors.CommitFailed(StageLibrary, false, err)
	}
	if len(existing) > 0 {
		return existing[0], nil
	}

	at := e.now().UTC()
	if item.ValidatedAt != nil {
		at = *item.ValidatedAt
	}
	entry, err = e.store.Library.Create(ctx, buildLibraryEntry(item, chosen, at))
	if err != nil {
		return models.LibraryEntry{}, apperrors.CommitFailed(StageLibrary, false, err)
	}

	e.publish(events.ContentValidated, contentID, chosen.ID, map[string]string{
		"libraryEntryId": entry.ID,
		"expertName":     entry.ExpertName,
		"reconciled":     "true",
	})
	log.Info("Reconcile created library entry", logger.String("library_entry_id", entry.ID))
	return entry, nil
}
