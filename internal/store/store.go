// Package store defines the record store contract consumed by the workflow
// engine. Backends live in the memory, redisstore and postgres subpackages.
//
// A Collection persists one entity kind. Writes to different collections are
// never linked: callers that need multi-record consistency must build it on
// top of single-record Update.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"expertcheck/internal/apperrors"
	"expertcheck/internal/models"
)

// Record kinds, used as key prefixes and table discriminators.
const (
	KindContent  = "content"
	KindResponse = "response"
	KindLibrary  = "library"
	KindExpert   = "expert"
	KindDomain   = "domain"
)

// Record is implemented by every persisted entity.
type Record[T any] interface {
	// Key returns the store-assigned id.
	Key() string
	// WithKey returns a copy carrying id.
	WithKey(id string) T
	// Index returns the values of the fields a Filter may match on.
	Index() map[string]string
}

// Filter holds equality predicates on indexed fields. A nil or empty filter
// matches every record.
type Filter map[string]string

// Matches reports whether every predicate holds for index.
func (f Filter) Matches(index map[string]string) bool {
	for field, want := range f {
		if index[field] != want {
			return false
		}
	}
	return true
}

// Mutator transforms the current value of a record. Returning an error aborts
// the update without writing.
type Mutator[T any] func(current T) (T, error)

// Collection is the per-kind CRUD capability.
type Collection[T Record[T]] interface {
	List(ctx context.Context, filter Filter) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	// Create persists rec under a freshly assigned id and returns the stored value.
	Create(ctx context.Context, rec T) (T, error)
	// Update applies mutate to the current value atomically with respect to
	// this single record.
	Update(ctx context.Context, id string, mutate Mutator[T]) (T, error)
	// Delete removes the record, reporting whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
}

// Guard is implemented by records that restrict how an update may change them.
type Guard[T any] interface {
	CheckUpdate(prev T) error
}

// Store bundles the collections for every entity kind.
type Store struct {
	Content   Collection[models.ContentItem]
	Responses Collection[models.ExpertResponse]
	Library   Collection[models.LibraryEntry]
	Experts   Collection[models.Expert]
	Domains   Collection[models.Domain]

	closer func() error
}

// New assembles a Store. closer may be nil.
func New(
	content Collection[models.ContentItem],
	responses Collection[models.ExpertResponse],
	library Collection[models.LibraryEntry],
	experts Collection[models.Expert],
	domains Collection[models.Domain],
	closer func() error,
) *Store {
	return &Store{
		Content:   content,
		Responses: responses,
		Library:   library,
		Experts:   experts,
		Domains:   domains,
		closer:    closer,
	}
}

// Close releases the backend connection, if any.
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// ApplyMutation runs mutate against prev and enforces the rules every backend
// shares: the id is preserved and record guards are honored.
func ApplyMutation[T Record[T]](id string, prev T, mutate Mutator[T]) (T, error) {
	next, err := mutate(prev)
	if err != nil {
		var zero T
		return zero, err
	}
	next = next.WithKey(id)
	if g, ok := any(next).(Guard[T]); ok {
		if guardErr := g.CheckUpdate(prev); guardErr != nil {
			var zero T
			return zero, guardErr
		}
	}
	return next, nil
}

// Encode serializes a record with its index for document-style backends.
func Encode[T Record[T]](rec T) (data []byte, index []byte, err error) {
	data, err = json.Marshal(rec)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal record: %w", err)
	}
	index, err = json.Marshal(rec.Index())
	if err != nil {
		return nil, nil, fmt.Errorf("marshal index: %w", err)
	}
	return data, index, nil
}

// Decode deserializes a stored record.
func Decode[T any](data []byte) (T, error) {
	var rec T
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, nil
}

// NotFound builds the error every backend returns for a missing id.
func NotFound(kind, id string) error {
	return apperrors.NotFound(kind, id)
}
