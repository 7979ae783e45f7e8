package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expertcheck/internal/apperrors"
	"expertcheck/internal/logger"
	"expertcheck/internal/models"
	"expertcheck/internal/store"
	"expertcheck/internal/store/redisstore"
)

func newTestStore(t *testing.T) (*store.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := redisstore.NewStore(client, "test", logger.NewNop())
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisCollectionCRUD(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	item, err := s.Content.Create(ctx, models.ContentItem{
		Title:       "Sky",
		Body:        "The sky is blue.",
		Source:      "gpt",
		Type:        models.TypeArticle,
		Status:      models.StatusPending,
		SubmittedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, item.ID)
	assert.True(t, mr.Exists("test:content:"+item.ID))

	got, err := s.Content.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "The sky is blue.", got.Body)

	pending, err := s.Content.List(ctx, store.Filter{"status": string(models.StatusPending)})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = s.Content.Update(ctx, item.ID, func(c models.ContentItem) (models.ContentItem, error) {
		c.Status = models.StatusRejected
		return c, nil
	})
	require.NoError(t, err)

	pending, err = s.Content.List(ctx, store.Filter{"status": string(models.StatusPending)})
	require.NoError(t, err)
	assert.Empty(t, pending)

	rejected, err := s.Content.List(ctx, store.Filter{"status": string(models.StatusRejected)})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, item.ID, rejected[0].ID)

	deleted, err := s.Content.Delete(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = s.Content.Get(ctx, item.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	all, err := s.Content.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRedisListFiltersOnMultipleFields(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for _, r := range []models.ExpertResponse{
		{ContentID: "c1", ExpertName: "a"},
		{ContentID: "c1", ExpertName: "b", Selected: true},
		{ContentID: "c2", ExpertName: "c", Selected: true},
	} {
		_, err := s.Responses.Create(ctx, r)
		require.NoError(t, err)
	}

	got, err := s.Responses.List(ctx, store.Filter{"contentId": "c1", "selected": "true"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ExpertName)
}

func TestRedisUpdateNotFoundAndMutatorError(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Responses.Update(ctx, "missing", func(r models.ExpertResponse) (models.ExpertResponse, error) {
		return r, nil
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	r, err := s.Responses.Create(ctx, models.ExpertResponse{ContentID: "c1"})
	require.NoError(t, err)

	_, err = s.Responses.Update(ctx, r.ID, func(r models.ExpertResponse) (models.ExpertResponse, error) {
		r.ContentID = "c2"
		return r, nil
	})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestRedisUnavailable(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()

	_, err := s.Content.List(context.Background(), nil)
	assert.ErrorIs(t, err, apperrors.ErrStoreUnavailable)
}

func TestRedisDeleteMissing(t *testing.T) {
	s, _ := newTestStore(t)
	ok, err := s.Experts.Delete(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}
