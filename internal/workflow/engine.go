// Package workflow implements the content validation lifecycle: intake,
// expert responses, review transitions and the select-and-commit operation
// that finalizes an item into the library.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"expertcheck/internal/apperrors"
	"expertcheck/internal/events"
	"expertcheck/internal/lock"
	"expertcheck/internal/logger"
	"expertcheck/internal/models"
	"expertcheck/internal/query"
	"expertcheck/internal/store"
)

// Publisher receives lifecycle events. Delivery is best-effort.
type Publisher interface {
	PublishAsync(event events.Event)
}

// Recorder receives workflow metrics.
type Recorder interface {
	Submitted()
	ResponseReceived()
	Transitioned(from, to models.ContentStatus)
	CommitFinished(outcome string, needsReconciliation bool, elapsed time.Duration)
	Reconciled(outcome string)
}

// Engine orchestrates the validation workflow over a record store.
type Engine struct {
	store     *store.Store
	log       logger.Logger
	locks     lock.Locker
	now       func() time.Time
	publisher Publisher
	recorder  Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocker overrides the per-content lock. The default is in-process.
func WithLocker(l lock.Locker) Option {
	return func(e *Engine) { e.locks = l }
}

// WithPublisher attaches an event publisher. p must be non-nil.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithRecorder attaches a metrics recorder. r must be non-nil.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// NewEngine creates an engine over s.
func NewEngine(s *store.Store, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:     s,
		log:       log,
		locks:     lock.NewLocal(),
		now:       time.Now,
		publisher: nopPublisher{},
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SubmitInput is the caller-supplied part of a new content item.
type SubmitInput struct {
	Title        string
	Body         string
	Source       string
	Type         models.ContentType
	Requirements string
}

func (in SubmitInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return apperrors.Validation("title is required")
	}
	if strings.TrimSpace(in.Body) == "" {
		return apperrors.Validation("body is required")
	}
	if strings.TrimSpace(in.Source) == "" {
		return apperrors.Validation("source is required")
	}
	if !in.Type.Valid() {
		return apperrors.Validation("unknown content type " + string(in.Type))
	}
	return nil
}

// Submit records a new content item in the pending state.
func (e *Engine) Submit(ctx context.Context, in SubmitInput) (models.ContentItem, error) {
	if err := in.validate(); err != nil {
		return models.ContentItem{}, err
	}

	item, err := e.store.Content.Create(ctx, models.ContentItem{
		Title:        strings.TrimSpace(in.Title),
		Body:         in.Body,
		Source:       strings.TrimSpace(in.Source),
		Type:         in.Type,
		Requirements: in.Requirements,
		Status:       models.StatusPending,
		SubmittedAt:  e.now().UTC(),
	})
	if err != nil {
		return models.ContentItem{}, err
	}

	e.recorder.Submitted()
	e.publish(events.ContentSubmitted, item.ID, "", map[string]string{"type": string(item.Type)})
	e.log.Info("Content submitted",
		logger.String("content_id", item.ID),
		logger.String("type", string(item.Type)),
	)
	return item, nil
}

// ResponseInput is the caller-supplied part of an expert response.
type ResponseInput struct {
	ExpertName  string
	Feedback    string
	Corrections string
	Fee         float64
}

func (in ResponseInput) validate() error {
	if strings.TrimSpace(in.ExpertName) == "" {
		return apperrors.Validation("expertName is required")
	}
	if strings.TrimSpace(in.Feedback) == "" {
		return apperrors.Validation("feedback is required")
	}
	if in.Fee < 0 {
		return apperrors.Validation("fee must not be negative")
	}
	return nil
}

// SubmitResponse records an expert response against a non-terminal item.
func (e *Engine) SubmitResponse(ctx context.Context, contentID string, in ResponseInput) (models.ExpertResponse, error) {
	if err := in.validate(); err != nil {
		return models.ExpertResponse{}, err
	}

	item, err := e.store.Content.Get(ctx, contentID)
	if err != nil {
		return models.ExpertResponse{}, err
	}
	if item.Status.Terminal() {
		return models.ExpertResponse{}, apperrors.WithMetadata(apperrors.CodeInvalidTransition,
			"content is "+string(item.Status)+" and accepts no responses",
			map[string]string{"status": string(item.Status)},
		)
	}

	resp, err := e.store.Responses.Create(ctx, models.ExpertResponse{
		ContentID:   contentID,
		ExpertName:  strings.TrimSpace(in.ExpertName),
		Feedback:    in.Feedback,
		Corrections: in.Corrections,
		Fee:         in.Fee,
		SubmittedAt: e.now().UTC(),
	})
	if err != nil {
		return models.ExpertResponse{}, err
	}

	e.recorder.ResponseReceived()
	e.publish(events.ResponseSubmitted, contentID, resp.ID, map[string]string{"expertName": resp.ExpertName})
	e.log.Info("Expert response submitted",
		logger.String("content_id", contentID),
		logger.String("response_id", resp.ID),
	)
	return resp, nil
}

// ListCandidateResponses returns the responses for an item, newest first.
func (e *Engine) ListCandidateResponses(ctx context.Context, contentID string) ([]models.ExpertResponse, error) {
	if _, err := e.store.Content.Get(ctx, contentID); err != nil {
		return nil, err
	}
	responses, err := e.store.Responses.List(ctx, store.Filter{"contentId": contentID})
	if err != nil {
		return nil, err
	}
	return query.NewestFirst(responses), nil
}

// MarkInReview moves a pending item to in-review.
func (e *Engine) MarkInReview(ctx context.Context, contentID string) (models.ContentItem, error) {
	return e.transition(ctx, contentID, models.StatusInReview, events.ContentInReview)
}

// Reject finalizes a non-terminal item as rejected.
func (e *Engine) Reject(ctx context.Context, contentID string) (models.ContentItem, error) {
	return e.transition(ctx, contentID, models.StatusRejected, events.ContentRejected)
}

func (e *Engine) transition(ctx context.Context, contentID string, to models.ContentStatus, eventType events.Type) (models.ContentItem, error) {
	release, err := e.locks.Acquire(ctx, contentID)
	if err != nil {
		return models.ContentItem{}, err
	}
	defer release()

	if to == models.StatusRejected {
		if err := e.refuseStaleSelection(ctx, contentID); err != nil {
			return models.ContentItem{}, err
		}
	}

	var from models.ContentStatus
	item, err := e.store.Content.Update(ctx, contentID, func(cur models.ContentItem) (models.ContentItem, error) {
		if err := checkTransition(cur.Status, to); err != nil {
			return cur, err
		}
		from = cur.Status
		cur.Status = to
		return cur, nil
	})
	if err != nil {
		return models.ContentItem{}, err
	}

	e.recorder.Transitioned(from, to)
	e.publish(eventType, contentID, "", map[string]string{"from": string(from), "to": string(to)})
	e.log.Info("Content status changed",
		logger.String("content_id", contentID),
		logger.String("from", string(from)),
		logger.String("to", string(to)),
	)
	return item, nil
}

// refuseStaleSelection fails when contentID still holds a selected response
// from an interrupted commit. Only Reconcile may resolve that state.
func (e *Engine) refuseStaleSelection(ctx context.Context, contentID string) error {
	item, err := e.store.Content.Get(ctx, contentID)
	if err != nil {
		return err
	}
	if err := checkTransition(item.Status, models.StatusRejected); err != nil {
		return err
	}
	selected, err := e.store.Responses.List(ctx, store.Filter{"contentId": contentID, "selected": "true"})
	if err != nil {
		return err
	}
	if len(selected) > 0 {
		return apperrors.CommitFailed(StagePrecondition, false,
			fmt.Errorf("response %s is selected for unvalidated content, reconcile first", selected[0].ID))
	}
	return nil
}

func (e *Engine) publish(t events.Type, contentID, responseID string, payload map[string]string) {
	e.publisher.PublishAsync(events.Event{
		Type:       t,
		ContentID:  contentID,
		ResponseID: responseID,
		Timestamp:  e.now().UTC(),
		Payload:    payload,
	})
}

type nopPublisher struct{}

func (nopPublisher) PublishAsync(events.Event) {}

type nopRecorder struct{}

func (nopRecorder) Submitted()                                              {}
func (nopRecorder) ResponseReceived()                                       {}
func (nopRecorder) Transitioned(models.ContentStatus, models.ContentStatus) {}
func (nopRecorder) CommitFinished(string, bool, time.Duration)              {}
func (nopRecorder) Reconciled(string)                                       {}
