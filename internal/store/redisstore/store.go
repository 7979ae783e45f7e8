// Package redisstore persists records in Redis as JSON documents with one set
// per kind and one set per indexed field value.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"expertcheck/internal/apperrors"
	"expertcheck/internal/logger"
	"expertcheck/internal/models"
	"expertcheck/internal/store"
)

// maxWatchRetries bounds optimistic retries when a watched key changes mid-update.
const maxWatchRetries = 5

// Collection stores one record kind in Redis.
type Collection[T store.Record[T]] struct {
	client *redis.Client
	prefix string
	kind   string
	log    logger.Logger
}

// NewCollection creates a collection whose keys live under prefix:kind.
func NewCollection[T store.Record[T]](client *redis.Client, prefix, kind string, log logger.Logger) *Collection[T] {
	return &Collection[T]{client: client, prefix: prefix, kind: kind, log: log}
}

// NewStore returns a Store backed by client. Closing the store closes client.
func NewStore(client *redis.Client, prefix string, log logger.Logger) *store.Store {
	return store.New(
		NewCollection[models.ContentItem](client, prefix, store.KindContent, log),
		NewCollection[models.ExpertResponse](client, prefix, store.KindResponse, log),
		NewCollection[models.LibraryEntry](client, prefix, store.KindLibrary, log),
		NewCollection[models.Expert](client, prefix, store.KindExpert, log),
		NewCollection[models.Domain](client, prefix, store.KindDomain, log),
		client.Close,
	)
}

func (c *Collection[T]) recordKey(id string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, c.kind, id)
}

func (c *Collection[T]) allKey() string {
	return fmt.Sprintf("%s:%s:all", c.prefix, c.kind)
}

func (c *Collection[T]) indexKey(field, value string) string {
	return fmt.Sprintf("%s:%s:idx:%s:%s", c.prefix, c.kind, field, value)
}

func (c *Collection[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	rec = rec.WithKey(uuid.NewString())
	data, _, err := store.Encode(rec)
	if err != nil {
		return zero, err
	}

	id := rec.Key()
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.recordKey(id), data, 0)
	pipe.SAdd(ctx, c.allKey(), id)
	for field, value := range rec.Index() {
		pipe.SAdd(ctx, c.indexKey(field, value), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return zero, apperrors.Unavailable("create "+c.kind, err)
	}
	return rec, nil
}

func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	data, err := c.client.Get(ctx, c.recordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, store.NotFound(c.kind, id)
		}
		return zero, apperrors.Unavailable("get "+c.kind, err)
	}
	return store.Decode[T](data)
}

func (c *Collection[T]) List(ctx context.Context, filter store.Filter) ([]T, error) {
	var ids []string
	var err error
	if len(filter) == 0 {
		ids, err = c.client.SMembers(ctx, c.allKey()).Result()
	} else {
		keys := make([]string, 0, len(filter))
		for field, value := range filter {
			keys = append(keys, c.indexKey(field, value))
		}
		ids, err = c.client.SInter(ctx, keys...).Result()
	}
	if err != nil {
		return nil, apperrors.Unavailable("list "+c.kind, err)
	}
	if len(ids) == 0 {
		return []T{}, nil
	}

	pipe := c.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, c.recordKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, apperrors.Unavailable("list "+c.kind, err)
	}

	out := make([]T, 0, len(ids))
	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, apperrors.Unavailable("list "+c.kind, err)
		}
		rec, err := store.Decode[T](data)
		if err != nil {
			c.log.Warn("Skipping undecodable record",
				logger.String("kind", c.kind),
				logger.String("id", ids[i]),
				logger.Error(err),
			)
			continue
		}
		// Index sets are maintained alongside the document; re-check in case a
		// concurrent update moved the record between SINTER and GET.
		if !filter.Matches(rec.Index()) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// mutationError carries errors raised by the mutator or guards through
// client.Watch so they are not mistaken for backend failures.
type mutationError struct{ err error }

func (e mutationError) Error() string { return e.err.Error() }

func (c *Collection[T]) Update(ctx context.Context, id string, mutate store.Mutator[T]) (T, error) {
	var zero T
	key := c.recordKey(id)

	var result T
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return mutationError{store.NotFound(c.kind, id)}
			}
			return err
		}
		prev, err := store.Decode[T](data)
		if err != nil {
			return mutationError{err}
		}
		next, err := store.ApplyMutation(id, prev, mutate)
		if err != nil {
			return mutationError{err}
		}
		encoded, _, err := store.Encode(next)
		if err != nil {
			return mutationError{err}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			oldIndex, newIndex := prev.Index(), next.Index()
			for field, value := range oldIndex {
				if newIndex[field] != value {
					pipe.SRem(ctx, c.indexKey(field, value), id)
				}
			}
			for field, value := range newIndex {
				pipe.SAdd(ctx, c.indexKey(field, value), id)
			}
			return nil
		})
		if err != nil {
			return err
		}
		result = next
		return nil
	}

	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		err := c.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		var mErr mutationError
		if errors.As(err, &mErr) {
			return zero, mErr.err
		}
		return zero, apperrors.Unavailable("update "+c.kind, err)
	}
	return zero, apperrors.Unavailable("update "+c.kind, redis.TxFailedErr)
}

func (c *Collection[T]) Delete(ctx context.Context, id string) (bool, error) {
	rec, err := c.Get(ctx, id)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}

	pipe := c.client.TxPipeline()
	del := pipe.Del(ctx, c.recordKey(id))
	pipe.SRem(ctx, c.allKey(), id)
	for field, value := range rec.Index() {
		pipe.SRem(ctx, c.indexKey(field, value), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return false, apperrors.Unavailable("delete "+c.kind, err)
	}
	return del.Val() > 0, nil
}
