package query

import (
	"context"

	"expertcheck/internal/apperrors"
	"expertcheck/internal/logger"
	"expertcheck/internal/models"
	"expertcheck/internal/store"
)

// Service answers read-side queries against a store.
type Service struct {
	store *store.Store
	log   logger.Logger
}

// NewService creates a query service.
func NewService(s *store.Store, log logger.Logger) *Service {
	return &Service{store: s, log: log}
}

// SearchLibrary returns library entries matching term and tag, newest first.
func (s *Service) SearchLibrary(ctx context.Context, term, tag string) ([]models.LibraryEntry, error) {
	entries, err := s.store.Library.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	sortLibraryNewestFirst(entries)
	found := Search(entries, term, tag)
	s.log.Debug("Library search",
		logger.String("term", term),
		logger.String("tag", tag),
		logger.Int("matches", len(found)),
	)
	return found, nil
}

// LibraryTags lists the distinct tags present in the library.
func (s *Service) LibraryTags(ctx context.Context) ([]string, error) {
	entries, err := s.store.Library.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	return Tags(entries), nil
}

// DashboardStats tallies all content items by status.
func (s *Service) DashboardStats(ctx context.Context) (Stats, error) {
	items, err := s.store.Content.List(ctx, nil)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(items), nil
}

// PendingItems lists the non-terminal items with their response counts.
func (s *Service) PendingItems(ctx context.Context) ([]PendingItem, error) {
	items, err := s.store.Content.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	responses, err := s.store.Responses.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	return BuildPending(items, responses), nil
}

// ListContent lists content items, newest first. An empty status lists all.
func (s *Service) ListContent(ctx context.Context, status models.ContentStatus) ([]models.ContentItem, error) {
	var filter store.Filter
	if status != "" {
		if !status.Valid() {
			return nil, apperrors.Validation("unknown status " + string(status))
		}
		filter = store.Filter{"status": string(status)}
	}
	items, err := s.store.Content.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	sortContentNewestFirst(items)
	return items, nil
}

// GetContent fetches one content item.
func (s *Service) GetContent(ctx context.Context, id string) (models.ContentItem, error) {
	return s.store.Content.Get(ctx, id)
}
