// Package events publishes content lifecycle events to a Redis stream.
// Publishing is best-effort: a failed publish never affects the workflow
// operation that produced the event.
package events

import (
	"time"

	"github.com/google/uuid"
)

// DefaultStream is the stream events are appended to when none is configured.
const DefaultStream = "expertcheck:events"

// Type names a lifecycle event.
type Type string

const (
	ContentSubmitted  Type = "content.submitted"
	ContentInReview   Type = "content.in_review"
	ResponseSubmitted Type = "response.submitted"
	ContentValidated  Type = "content.validated"
	ContentRejected   Type = "content.rejected"
)

// Event is the envelope written to the stream.
type Event struct {
	ID         uuid.UUID         `json:"id"`
	Type       Type              `json:"type"`
	ContentID  string            `json:"contentId"`
	ResponseID string            `json:"responseId,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	Payload    map[string]string `json:"payload,omitempty"`
}
