// Package memory is an in-process record store. Records are held as encoded
// documents so callers never share mutable state with the store.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"expertcheck/internal/models"
	"expertcheck/internal/store"
)

type entry struct {
	data  []byte
	index map[string]string
}

// Collection is a mutex-guarded map of encoded records in insertion order.
type Collection[T store.Record[T]] struct {
	kind string

	mu      sync.RWMutex
	records map[string]entry
	order   []string
}

// NewCollection creates an empty collection for kind.
func NewCollection[T store.Record[T]](kind string) *Collection[T] {
	return &Collection[T]{
		kind:    kind,
		records: make(map[string]entry),
	}
}

// NewStore returns a Store with every collection held in memory.
func NewStore() *store.Store {
	return store.New(
		NewCollection[models.ContentItem](store.KindContent),
		NewCollection[models.ExpertResponse](store.KindResponse),
		NewCollection[models.LibraryEntry](store.KindLibrary),
		NewCollection[models.Expert](store.KindExpert),
		NewCollection[models.Domain](store.KindDomain),
		nil,
	)
}

func (c *Collection[T]) List(_ context.Context, filter store.Filter) ([]T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		e := c.records[id]
		if !filter.Matches(e.index) {
			continue
		}
		rec, err := store.Decode[T](e.data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Collection[T]) Get(_ context.Context, id string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.records[id]
	if !ok {
		var zero T
		return zero, store.NotFound(c.kind, id)
	}
	return store.Decode[T](e.data)
}

func (c *Collection[T]) Create(_ context.Context, rec T) (T, error) {
	rec = rec.WithKey(uuid.NewString())
	data, _, err := store.Encode(rec)
	if err != nil {
		var zero T
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[rec.Key()] = entry{data: data, index: rec.Index()}
	c.order = append(c.order, rec.Key())
	return rec, nil
}

func (c *Collection[T]) Update(_ context.Context, id string, mutate store.Mutator[T]) (T, error) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.records[id]
	if !ok {
		return zero, store.NotFound(c.kind, id)
	}
	prev, err := store.Decode[T](e.data)
	if err != nil {
		return zero, err
	}
	next, err := store.ApplyMutation(id, prev, mutate)
	if err != nil {
		return zero, err
	}
	data, _, err := store.Encode(next)
	if err != nil {
		return zero, err
	}
	c.records[id] = entry{data: data, index: next.Index()}
	return next, nil
}

func (c *Collection[T]) Delete(_ context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.records[id]; !ok {
		return false, nil
	}
	delete(c.records, id)
	for i, key := range c.order {
		if key == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true, nil
}
