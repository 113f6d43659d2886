package service

import (
	"context"
	"strings"

	"sociable/internal/cache"
	"sociable/internal/models"
	"sociable/internal/repository"
)

// HashTagService is plain CRUD over hashtags with a cached first page.
type HashTagService struct {
	repo  repository.HashTagRepository
	cache *cache.Store
}

func NewHashTagService(repo repository.HashTagRepository, store *cache.Store) *HashTagService {
	return &HashTagService{repo: repo, cache: store}
}

func (s *HashTagService) List(ctx context.Context, name string, page repository.Page) (models.Page[*models.HashTag], error) {
	load := func() (models.Page[*models.HashTag], error) {
		tags, count, err := s.repo.List(ctx, name, page)
		if err != nil {
			return models.Page[*models.HashTag]{}, err
		}
		return models.NewPage(count, tags), nil
	}
	if strings.TrimSpace(name) != "" || page.Offset != 0 || (page.Limit != 0 && page.Limit != repository.DefaultPageSize) {
		return load()
	}

	var result models.Page[*models.HashTag]
	err := s.cache.Aside(ctx, cache.HashtagListKey, &result, cache.HashtagListTTL, func() error {
		var err error
		result, err = load()
		return err
	})
	return result, err
}

func (s *HashTagService) Get(ctx context.Context, id uint) (*models.HashTag, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *HashTagService) Create(ctx context.Context, name string) (*models.HashTag, error) {
	tag := &models.HashTag{Name: strings.TrimSpace(name)}
	if tag.Name == "" {
		return nil, models.NewValidationError("Name is required")
	}
	if err := s.repo.Create(ctx, tag); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.HashtagListKey)
	return tag, nil
}

func (s *HashTagService) Update(ctx context.Context, id uint, name string) (*models.HashTag, error) {
	tag := &models.HashTag{ID: id, Name: strings.TrimSpace(name)}
	if tag.Name == "" {
		return nil, models.NewValidationError("Name is required")
	}
	if err := s.repo.Update(ctx, tag); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.HashtagListKey)
	return tag, nil
}

func (s *HashTagService) Delete(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.HashtagListKey)
	return nil
}
