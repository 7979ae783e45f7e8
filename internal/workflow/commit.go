package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"expertcheck/internal/apperrors"
	"expertcheck/internal/events"
	"expertcheck/internal/logger"
	"expertcheck/internal/metrics"
	"expertcheck/internal/models"
	"expertcheck/internal/store"
)

// Commit stages reported on CommitFailed errors.
const (
	StagePrecondition = "precondition"
	StageSelect       = "select"
	StageValidate     = "validate"
	StageLibrary      = "library"
)

// SelectAndCommit finalizes contentID with responseID as the chosen
// validation. It marks the response selected, moves the item to validated
// and appends the library entry, in that order. A failure before the item is
// validated undoes the selection; a failure after leaves the item validated
// and reports that reconciliation is required.
func (e *Engine) SelectAndCommit(ctx context.Context, contentID, responseID string) (entry models.LibraryEntry, err error) {
	started := e.now()
	defer func() {
		outcome := metrics.OutcomeCommitted
		switch {
		case apperrors.IsCode(err, apperrors.CodeCommitFailed):
			outcome = metrics.OutcomeFailed
		case err != nil:
			outcome = metrics.OutcomeRejected
		}
		e.recorder.CommitFinished(outcome, apperrors.NeedsReconciliation(err), e.now().Sub(started))
	}()

	release, err := e.locks.Acquire(ctx, contentID)
	if err != nil {
		return models.LibraryEntry{}, err
	}
	defer release()

	item, chosen, err := e.commitPreconditions(ctx, contentID, responseID)
	if err != nil {
		return models.LibraryEntry{}, err
	}

	// The remaining writes must not be abandoned half-way by a caller hanging up.
	ctx = context.WithoutCancel(ctx)
	log := e.log.With(logger.String("content_id", contentID), logger.String("response_id", responseID))

	chosen, err = e.store.Responses.Update(ctx, responseID, func(cur models.ExpertResponse) (models.ExpertResponse, error) {
		if cur.Selected {
			return cur, apperrors.New(apperrors.CodeAlreadyFinalized, "response is already selected")
		}
		cur.Selected = true
		return cur, nil
	})
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeAlreadyFinalized) {
			return models.LibraryEntry{}, err
		}
		log.Warn("Commit aborted before any write", logger.Error(err))
		return models.LibraryEntry{}, apperrors.CommitFailed(StageSelect, true, err)
	}

	validatedAt := e.now().UTC()
	item, from, err := e.markValidated(ctx, contentID, validatedAt)
	if err != nil {
		if undoErr := e.unselect(ctx, responseID); undoErr != nil {
			log.Error("Failed to undo response selection",
				logger.Error(err),
				logger.String("undo_error", undoErr.Error()),
			)
			return models.LibraryEntry{}, apperrors.CommitFailed(StageValidate, false, errors.Join(err, undoErr))
		}
		log.Warn("Commit rolled back", logger.Error(err))
		return models.LibraryEntry{}, apperrors.CommitFailed(StageValidate, true, err)
	}
	e.recorder.Transitioned(from, models.StatusValidated)

	entry, err = e.ensureLibraryEntry(ctx, item, chosen, validatedAt)
	if err != nil {
		log.Error("Library entry not created, content requires reconciliation", logger.Error(err))
		return models.LibraryEntry{}, apperrors.CommitFailed(StageLibrary, false, err)
	}

	e.publish(events.ContentValidated, contentID, responseID, map[string]string{
		"libraryEntryId": entry.ID,
		"expertName":     entry.ExpertName,
	})
	log.Info("Content validated", logger.String("library_entry_id", entry.ID))
	return entry, nil
}

// commitPreconditions loads the item and response and checks every
// condition that must hold before the first write.
func (e *Engine) commitPreconditions(ctx context.Context, contentID, responseID string) (models.ContentItem, models.ExpertResponse, error) {
	item, err := e.store.Content.Get(ctx, contentID)
	if err != nil {
		return models.ContentItem{}, models.ExpertResponse{}, err
	}
	if err := checkTransition(item.Status, models.StatusValidated); err != nil {
		return models.ContentItem{}, models.ExpertResponse{}, err
	}

	chosen, err := e.store.Responses.Get(ctx, responseID)
	if err != nil {
		return models.ContentItem{}, models.ExpertResponse{}, err
	}
	if chosen.ContentID != contentID {
		return models.ContentItem{}, models.ExpertResponse{}, apperrors.Validation(
			fmt.Sprintf("response %s does not belong to content %s", responseID, contentID))
	}

	selected, err := e.store.Responses.List(ctx, store.Filter{"contentId": contentID, "selected": "true"})
	if err != nil {
		return models.ContentItem{}, models.ExpertResponse{}, err
	}
	if len(selected) > 0 {
		// A selection without validation is the residue of an interrupted
		// commit; only Reconcile may resolve it.
		return models.ContentItem{}, models.ExpertResponse{}, apperrors.CommitFailed(StagePrecondition, false,
			fmt.Errorf("response %s is already selected for unvalidated content", selected[0].ID))
	}
	return item, chosen, nil
}

func (e *Engine) markValidated(ctx context.Context, contentID string, at time.Time) (models.ContentItem, models.ContentStatus, error) {
	var from models.ContentStatus
	item, err := e.store.Content.Update(ctx, contentID, func(cur models.ContentItem) (models.ContentItem, error) {
		if err := checkTransition(cur.Status, models.StatusValidated); err != nil {
			return cur, err
		}
		from = cur.Status
		cur.Status = models.StatusValidated
		cur.ValidatedAt = &at
		return cur, nil
	})
	return item, from, err
}

func (e *Engine) unselect(ctx context.Context, responseID string) error {
	_, err := e.store.Responses.Update(ctx, responseID, func(cur models.ExpertResponse) (models.ExpertResponse, error) {
		cur.Selected = false
		return cur, nil
	})
	return err
}

// ensureLibraryEntry appends the library entry for item unless one already
// exists, in which case the existing entry is returned.
func (e *Engine) ensureLibraryEntry(ctx context.Context, item models.ContentItem, chosen models.ExpertResponse, at time.Time) (models.LibraryEntry, error) {
	existing, err := e.store.Library.List(ctx, store.Filter{"contentId": item.ID})
	if err != nil {
		return models.LibraryEntry{}, err
	}
	if len(existing) > 0 {
		return existing[0], nil
	}
	return e.store.Library.Create(ctx, buildLibraryEntry(item, chosen, at))
}

// buildLibraryEntry derives the library record for a validated item. The
// expert's corrections replace the body when present.
func buildLibraryEntry(item models.ContentItem, chosen models.ExpertResponse, at time.Time) models.LibraryEntry {
	content := item.Body
	if strings.TrimSpace(chosen.Corrections) != "" {
		content = chosen.Corrections
	}
	return models.LibraryEntry{
		ContentID:        item.ID,
		ValidatedContent: content,
		ExpertName:       chosen.ExpertName,
		ValidatedAt:      at,
		Tags:             buildTags(item),
	}
}

func buildTags(item models.ContentItem) []string {
	tags := make([]string, 0, 2)
	for _, t := range []string{string(item.Type), item.Source} {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		dup := false
		for _, have := range tags {
			if have == t {
				dup = true
				break
			}
		}
		if !dup {
			tags = append(tags, t)
		}
	}
	return tags
}
