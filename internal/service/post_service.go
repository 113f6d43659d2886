package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"sociable/internal/models"
	"sociable/internal/repository"
)

// PostService composes the feed and guards post writes.
type PostService struct {
	postRepo    repository.PostRepository
	profileRepo repository.ProfileRepository
	isStaff     StaffLookup
}

type CreatePostInput struct {
	Title      string
	Text       string
	HashTagIDs []uint
}

// UpdatePostInput leaves nil fields unchanged. A non-nil HashTagIDs replaces
// the tag set, so a pointer to an empty slice clears it.
type UpdatePostInput struct {
	Title      *string
	Text       *string
	HashTagIDs *[]uint
}

type ListPostsInput struct {
	Title   string
	HashTag string
	Page    repository.Page
}

func NewPostService(
	postRepo repository.PostRepository,
	profileRepo repository.ProfileRepository,
	isStaff StaffLookup,
) *PostService {
	return &PostService{
		postRepo:    postRepo,
		profileRepo: profileRepo,
		isStaff:     isStaff,
	}
}

func validatePostFields(title, text string) error {
	if strings.TrimSpace(title) == "" {
		return models.NewValidationError("Title is required")
	}
	if utf8.RuneCountInString(title) > models.MaxPostTitleLength {
		return models.NewValidationError("Title too long (max 60 characters)")
	}
	if strings.TrimSpace(text) == "" {
		return models.NewValidationError("Text is required")
	}
	return nil
}

// ListFeed returns the viewer's own posts and the posts of users they follow.
func (s *PostService) ListFeed(ctx context.Context, viewerID uint, in ListPostsInput) ([]*models.Post, int64, error) {
	return s.postRepo.ListVisible(ctx, viewerID, repository.PostFilter{
		Title:   in.Title,
		HashTag: in.HashTag,
		Page:    in.Page,
	})
}

// GetPost returns NotFound for posts outside the viewer's feed.
func (s *PostService) GetPost(ctx context.Context, viewerID, id uint) (*models.Post, error) {
	return s.postRepo.GetVisible(ctx, id, viewerID)
}

func (s *PostService) CreatePost(ctx context.Context, actorID uint, in CreatePostInput) (*models.Post, error) {
	if err := ensureHasProfile(ctx, s.profileRepo, actorID, msgProfileRequired); err != nil {
		return nil, err
	}
	if err := validatePostFields(in.Title, in.Text); err != nil {
		return nil, err
	}

	post := &models.Post{UserID: actorID, Title: in.Title, Text: in.Text}
	if err := s.postRepo.Create(ctx, post, in.HashTagIDs); err != nil {
		return nil, err
	}
	return s.postRepo.GetVisible(ctx, post.ID, actorID)
}

// loadForWrite applies, in order, the profile gate, feed visibility and the
// owner-or-staff rule.
func (s *PostService) loadForWrite(ctx context.Context, actorID, id uint) (*models.Post, error) {
	if err := ensureHasProfile(ctx, s.profileRepo, actorID, msgProfileRequired); err != nil {
		return nil, err
	}
	post, err := s.postRepo.GetVisible(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	if err := ensureOwnerOrStaff(ctx, s.isStaff, post.UserID, actorID); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, actorID, id uint, in UpdatePostInput) (*models.Post, error) {
	post, err := s.loadForWrite(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		post.Title = *in.Title
	}
	if in.Text != nil {
		post.Text = *in.Text
	}
	if err := validatePostFields(post.Title, post.Text); err != nil {
		return nil, err
	}

	var tagIDs []uint
	if in.HashTagIDs != nil {
		tagIDs = *in.HashTagIDs
		if tagIDs == nil {
			tagIDs = []uint{}
		}
	}
	if err := s.postRepo.Update(ctx, post, tagIDs); err != nil {
		return nil, err
	}
	return s.postRepo.GetVisible(ctx, post.ID, actorID)
}

func (s *PostService) DeletePost(ctx context.Context, actorID, id uint) error {
	post, err := s.loadForWrite(ctx, actorID, id)
	if err != nil {
		return err
	}
	return s.postRepo.Delete(ctx, post.ID)
}
