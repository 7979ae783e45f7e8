package workflow_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expertcheck/internal/apperrors"
	"expertcheck/internal/events"
	"expertcheck/internal/logger"
	"expertcheck/internal/models"
	"expertcheck/internal/store"
	"expertcheck/internal/store/memory"
	"expertcheck/internal/workflow"
)

var errBackend = errors.New("backend down")

// flakyCollection fails selected calls on top of a working collection.
type flakyCollection[T store.Record[T]] struct {
	store.Collection[T]
	failCreate atomic.Bool
	// failUpdate, when set, is consulted on every Update call with the
	// 1-based call number.
	failUpdate func(call int) bool
	updates    atomic.Int32
}

func (f *flakyCollection[T]) Create(ctx context.Context, rec T) (T, error) {
	if f.failCreate.Load() {
		var zero T
		return zero, apperrors.Unavailable("create", errBackend)
	}
	return f.Collection.Create(ctx, rec)
}

func (f *flakyCollection[T]) Update(ctx context.Context, id string, mutate store.Mutator[T]) (T, error) {
	n := int(f.updates.Add(1))
	if f.failUpdate != nil && f.failUpdate(n) {
		var zero T
		return zero, apperrors.Unavailable("update", errBackend)
	}
	return f.Collection.Update(ctx, id, mutate)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) PublishAsync(ev events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	engine    *workflow.Engine
	store     *store.Store
	content   *flakyCollection[models.ContentItem]
	responses *flakyCollection[models.ExpertResponse]
	library   *flakyCollection[models.LibraryEntry]
	published *recordingPublisher
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		content:   &flakyCollection[models.ContentItem]{Collection: memory.NewCollection[models.ContentItem](store.KindContent)},
		responses: &flakyCollection[models.ExpertResponse]{Collection: memory.NewCollection[models.ExpertResponse](store.KindResponse)},
		library:   &flakyCollection[models.LibraryEntry]{Collection: memory.NewCollection[models.LibraryEntry](store.KindLibrary)},
		published: &recordingPublisher{},
		now:       time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
	}
	f.store = store.New(
		f.content,
		f.responses,
		f.library,
		memory.NewCollection[models.Expert](store.KindExpert),
		memory.NewCollection[models.Domain](store.KindDomain),
		nil,
	)
	f.engine = workflow.NewEngine(f.store, logger.NewNop(),
		workflow.WithClock(func() time.Time { return f.now }),
		workflow.WithPublisher(f.published),
	)
	return f
}

func (f *fixture) submit(t *testing.T) models.ContentItem {
	t.Helper()
	item, err := f.engine.Submit(context.Background(), workflow.SubmitInput{
		Title:  "Why is the sky blue?",
		Body:   "The sky is blue.",
		Source: "science-daily",
		Type:   models.TypeArticle,
	})
	require.NoError(t, err)
	return item
}

func (f *fixture) respond(t *testing.T, contentID, expert, corrections string) models.ExpertResponse {
	t.Helper()
	resp, err := f.engine.SubmitResponse(context.Background(), contentID, workflow.ResponseInput{
		ExpertName:  expert,
		Feedback:    "Accurate but incomplete.",
		Corrections: corrections,
		Fee:         120,
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) libraryCount(t *testing.T, contentID string) int {
	t.Helper()
	entries, err := f.store.Library.List(context.Background(), store.Filter{"contentId": contentID})
	require.NoError(t, err)
	return len(entries)
}

func (f *fixture) selectedCount(t *testing.T, contentID string) int {
	t.Helper()
	selected, err := f.store.Responses.List(context.Background(), store.Filter{"contentId": contentID, "selected": "true"})
	require.NoError(t, err)
	return len(selected)
}

func (f *fixture) status(t *testing.T, contentID string) models.ContentStatus {
	t.Helper()
	item, err := f.store.Content.Get(context.Background(), contentID)
	require.NoError(t, err)
	return item.Status
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)
	item := f.submit(t)

	assert.NotEmpty(t, item.ID)
	assert.Equal(t, models.StatusPending, item.Status)
	assert.Equal(t, f.now, item.SubmittedAt)
	assert.Nil(t, item.ValidatedAt)
	assert.Equal(t, []events.Type{events.ContentSubmitted}, f.published.types())
}

func TestSubmitValidation(t *testing.T) {
	testCases := []struct {
		name string
		in   workflow.SubmitInput
	}{
		{name: "empty title", in: workflow.SubmitInput{Title: "  ", Body: "b", Source: "s", Type: models.TypeArticle}},
		{name: "empty body", in: workflow.SubmitInput{Title: "t", Source: "s", Type: models.TypeArticle}},
		{name: "empty source", in: workflow.SubmitInput{Title: "t", Body: "b", Type: models.TypeArticle}},
		{name: "unknown type", in: workflow.SubmitInput{Title: "t", Body: "b", Source: "s", Type: "poem"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.engine.Submit(context.Background(), tc.in)
			assert.ErrorIs(t, err, apperrors.ErrValidation)

			all, err := f.store.Content.List(context.Background(), nil)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestSubmitResponse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submit(t)

	resp := f.respond(t, item.ID, "Dr. Chen", "")
	assert.Equal(t, item.ID, resp.ContentID)
	assert.False(t, resp.Selected)
	assert.Equal(t, f.now, resp.SubmittedAt)

	_, err := f.engine.SubmitResponse(ctx, "missing", workflow.ResponseInput{ExpertName: "x", Feedback: "y"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.engine.SubmitResponse(ctx, item.ID, workflow.ResponseInput{ExpertName: "x", Feedback: "y", Fee: -1})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.engine.Reject(ctx, item.ID)
	require.NoError(t, err)
	_, err = f.engine.SubmitResponse(ctx, item.ID, workflow.ResponseInput{ExpertName: "x", Feedback: "y"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestListCandidateResponsesNewestFirst(t *testing.T) {
	f := newFixture(t)
	item := f.submit(t)

	first := f.respond(t, item.ID, "Ada", "")
	f.now = f.now.Add(time.Minute)
	second := f.respond(t, item.ID, "Bo", "")

	got, err := f.engine.ListCandidateResponses(context.Background(), item.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)

	_, err = f.engine.ListCandidateResponses(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSelectAndCommitUsesCorrections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submit(t)
	_ = f.respond(t, item.ID, "Bo", "")
	chosen := f.respond(t, item.ID, "Dr. Chen", "The sky appears blue due to Rayleigh scattering.")

	f.now = f.now.Add(time.Hour)
	entry, err := f.engine.SelectAndCommit(ctx, item.ID, chosen.ID)
	require.NoError(t, err)

	assert.Equal(t, item.ID, entry.ContentID)
	assert.Equal(t, "The sky appears blue due to Rayleigh scattering.", entry.ValidatedContent)
	assert.Equal(t, "Dr. Chen", entry.ExpertName)
	assert.Equal(t, []string{"article", "science-daily"}, entry.Tags)
	assert.Equal(t, f.now, entry.ValidatedAt)

	stored, err := f.store.Content.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusValidated, stored.Status)
	require.NotNil(t, stored.ValidatedAt)
	assert.Equal(t, entry.ValidatedAt, *stored.ValidatedAt)

	assert.Equal(t, 1, f.selectedCount(t, item.ID))
	assert.Equal(t, 1, f.libraryCount(t, item.ID))
	assert.Contains(t, f.published.types(), events.ContentValidated)
}

func TestSelectAndCommitWithoutCorrectionsUsesBody(t *testing.T) {
	f := newFixture(t)
	item := f.submit(t)
	chosen := f.respond(t, item.ID, "Ada", "   ")

	entry, err := f.engine.SelectAndCommit(context.Background(), item.ID, chosen.ID)
	require.NoError(t, err)
	assert.Equal(t, "The sky is blue.", entry.ValidatedContent)
}

func TestSelectAndCommitIsNotRepeatable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submit(t)
	a := f.respond(t, item.ID, "Ada", "")
	b := f.respond(t, item.ID, "Bo", "")

	_, err := f.engine.SelectAndCommit(ctx, item.ID, a.ID)
	require.NoError(t, err)

	_, err = f.engine.SelectAndCommit(ctx, item.ID, a.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyFinalized)
	_, err = f.engine.SelectAndCommit(ctx, item.ID, b.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyFinalized)

	assert.Equal(t, 1, f.selectedCount(t, item.ID))
	assert.Equal(t, 1, f.libraryCount(t, item.ID))
}

func TestSelectAndCommitPreconditions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submit(t)
	other := f.submit(t)
	resp := f.respond(t, item.ID, "Ada", "")
	foreign := f.respond(t, other.ID, "Bo", "")

	_, err := f.engine.SelectAndCommit(ctx, "missing", resp.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.engine.SelectAndCommit(ctx, item.ID, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.engine.SelectAndCommit(ctx, item.ID, foreign.ID)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	assert.Equal(t, models.StatusPending, f.status(t, item.ID))
	assert.Equal(t, 0, f.selectedCount(t, item.ID))
}

func TestRejectThenCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submit(t)
	resp := f.respond(t, item.ID, "Ada", "")

	rejected, err := f.engine.Reject(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)

	_, err = f.engine.SelectAndCommit(ctx, item.ID, resp.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Equal(t, 0, f.selectedCount(t, item.ID))
	assert.Equal(t, 0, f.libraryCount(t, item.ID))

	_, err = f.engine.Reject(ctx, item.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Equal(t, models.StatusRejected, f.status(t, item.ID))
}

func TestRejectRefusesInterruptedCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submit(t)
	resp := f.respond(t, item.ID, "Ada", "")
	f.content.failUpdate = func(int) bool { return true }
	f.responses.failUpdate = func(call int) bool { return call > 1 }

	_, err := f.engine.SelectAndCommit(ctx, item.ID, resp.ID)
	require.True(t, apperrors.NeedsReconciliation(err))
	f.content.failUpdate = nil
	f.responses.failUpdate = nil

	_, err = f.engine.Reject(ctx, item.ID)
	require.ErrorIs(t, err, apperrors.ErrCommitFailed)
	assert.Equal(t, workflow.StagePrecondition, apperrors.Stage(err))
	assert.Equal(t, models.StatusPending, f.status(t, item.ID))

	_, err = f.engine.Reconcile(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusValidated, f.status(t, item.ID))
	assert.Equal(t, 1, f.libraryCount(t, item.ID))
}

func TestStatusTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submit(t)

	got, err := f.engine.MarkInReview(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInReview, got.Status)

	_, err = f.engine.MarkInReview(ctx, item.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	resp := f.respond(t, item.ID, "Ada", "")
	_, err = f.engine.SelectAndCommit(ctx, item.ID, resp.ID)
	require.NoError(t, err)

	_, err = f.engine.Reject(ctx, item.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	_, err = f.engine.MarkInReview(ctx, item.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = f.engine.Reject(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSelectFailureChangesNothing(t *testing.T) {
	f := newFixture(t)
	item := f.submit(t)
	resp := f.respond(t, item.ID, "Ada", "")
	f.responses.failUpdate = func(int) bool { return true }

	_, err := f.engine.SelectAndCommit(context.Background(), item.ID, resp.ID)
	require.ErrorIs(t, err, apperrors.ErrCommitFailed)
	assert.False(t, apperrors.NeedsReconciliation(err))
	assert.Equal(t, workflow.StageSelect, apperrors.Stage(err))

	assert.Equal(t, models.StatusPending, f.status(t, item.ID))
	assert.Equal(t, 0, f.selectedCount(t, item.ID))
	assert.Equal(t, 0, f.libraryCount(t, item.ID))
}

func TestValidateFailureUndoesSelection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submit(t)
	resp := f.respond(t, item.ID, "Ada", "")
	f.content.failUpdate = func(int) bool { return true }

	_, err := f.engine.SelectAndCommit(ctx, item.ID, resp.ID)
	require.ErrorIs(t, err, apperrors.ErrCommitFailed)
	assert.False(t, apperrors.NeedsReconciliation(err))
	assert.Equal(t, workflow.StageValidate, apperrors.Stage(err))

	assert.Equal(t, models.StatusPending, f.status(t, item.ID))
	assert.Equal(t, 0, f.selectedCount(t, item.ID))
	assert.Equal(t, 0, f.libraryCount(t, item.ID))

	// the item is still committable once the backend recovers
	f.content.failUpdate = nil
	_, err = f.engine.SelectAndCommit(ctx, item.ID, resp.ID)
	require.NoError(t, err)
}

func TestValidateFailureWithFailedUndoNeedsReconciliation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submit(t)
	resp := f.respond(t, item.ID, "Ada", "Corrected.")
	f.content.failUpdate = func(int) bool { return true }
	f.responses.failUpdate = func(call int) bool { return call > 1 }

	_, err := f.engine.SelectAndCommit(ctx, item.ID, resp.ID)
	require.ErrorIs(t, err, apperrors.ErrCommitFailed)
	assert.True(t, apperrors.NeedsReconciliation(err))
	assert.Equal(t, 1, f.selectedCount(t, item.ID))
	assert.Equal(t, models.StatusPending, f.status(t, item.ID))

	// a fresh commit refuses to stack a second selection
	_, err = f.engine.SelectAndCommit(ctx, item.ID, resp.ID)
	require.ErrorIs(t, err, apperrors.ErrCommitFailed)
	assert.Equal(t, workflow.StagePrecondition, apperrors.Stage(err))

	f.content.failUpdate = nil
	f.responses.failUpdate = nil
	entry, err := f.engine.Reconcile(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Corrected.", entry.ValidatedContent)
	assert.Equal(t, models.StatusValidated, f.status(t, item.ID))
	assert.Equal(t, 1, f.libraryCount(t, item.ID))
}

func TestLibraryFailureNeedsReconciliation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submit(t)
	resp := f.respond(t, item.ID, "Ada", "")
	f.library.failCreate.Store(true)

	_, err := f.engine.SelectAndCommit(ctx, item.ID, resp.ID)
	require.ErrorIs(t, err, apperrors.ErrCommitFailed)
	assert.True(t, apperrors.NeedsReconciliation(err))
	assert.Equal(t, workflow.StageLibrary, apperrors.Stage(err))

	stored, err := f.store.Content.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusValidated, stored.Status)
	assert.Equal(t, 0, f.libraryCount(t, item.ID))

	_, err = f.engine.SelectAndCommit(ctx, item.ID, resp.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyFinalized)

	f.library.failCreate.Store(false)
	f.now = f.now.Add(time.Hour)
	entry, err := f.engine.Reconcile(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, *stored.ValidatedAt, entry.ValidatedAt)
	assert.Equal(t, 1, f.libraryCount(t, item.ID))

	again, err := f.engine.Reconcile(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, again.ID)
	assert.Equal(t, 1, f.libraryCount(t, item.ID))
}

func TestReconcileRefusals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submit(t)

	_, err := f.engine.Reconcile(ctx, item.ID)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.engine.Reject(ctx, item.ID)
	require.NoError(t, err)
	_, err = f.engine.Reconcile(ctx, item.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = f.engine.Reconcile(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestConcurrentCommitsSelectExactlyOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.submit(t)

	const experts = 10
	responses := make([]models.ExpertResponse, experts)
	for i := range responses {
		responses[i] = f.respond(t, item.ID, "expert", "")
	}

	var wg sync.WaitGroup
	var successes, finalized atomic.Int32
	for _, r := range responses {
		wg.Add(1)
		go func(responseID string) {
			defer wg.Done()
			_, err := f.engine.SelectAndCommit(ctx, item.ID, responseID)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, apperrors.ErrAlreadyFinalized):
				finalized.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(r.ID)
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(experts-1), finalized.Load())
	assert.Equal(t, 1, f.selectedCount(t, item.ID))
	assert.Equal(t, 1, f.libraryCount(t, item.ID))
}
