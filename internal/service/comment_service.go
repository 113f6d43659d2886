package service

import (
	"context"
	"strings"

	"sociable/internal/models"
	"sociable/internal/notifications"
	"sociable/internal/repository"
)

const commentPreviewLength = 140

// CommentService lists and writes comments within the viewer's feed.
type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	profileRepo repository.ProfileRepository
	events      EventPublisher
	isStaff     StaffLookup
}

type CreateCommentInput struct {
	PostID uint
	Text   string
}

type ListCommentsInput struct {
	PostID uint
	Page   repository.Page
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	profileRepo repository.ProfileRepository,
	events EventPublisher,
	isStaff StaffLookup,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		profileRepo: profileRepo,
		events:      publisherOrNoop(events),
		isStaff:     isStaff,
	}
}

func (s *CommentService) ListComments(ctx context.Context, viewerID uint, in ListCommentsInput) ([]*models.Comment, int64, error) {
	return s.commentRepo.ListVisible(ctx, viewerID, repository.CommentFilter{PostID: in.PostID, Page: in.Page})
}

func (s *CommentService) GetComment(ctx context.Context, viewerID, id uint) (*models.Comment, error) {
	return s.commentRepo.GetVisible(ctx, id, viewerID)
}

// CreateComment attaches a comment to a post in the actor's feed.
func (s *CommentService) CreateComment(ctx context.Context, actorID uint, in CreateCommentInput) (*models.Comment, error) {
	if err := ensureHasProfile(ctx, s.profileRepo, actorID, msgProfileRequired); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, models.NewValidationError("Text is required")
	}
	post, err := s.postRepo.GetVisible(ctx, in.PostID, actorID)
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil, models.NewValidationError("Post does not exist")
		}
		return nil, err
	}

	comment := &models.Comment{UserID: actorID, PostID: post.ID, Text: in.Text}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	s.events.Notify(ctx, post.UserID, notifications.Event{
		Type:     notifications.EventCommentCreated,
		ActorID:  actorID,
		ObjectID: comment.ID,
		Text:     preview(comment.Text),
	})
	return s.commentRepo.GetVisible(ctx, comment.ID, actorID)
}

func (s *CommentService) loadForWrite(ctx context.Context, actorID, id uint) (*models.Comment, error) {
	if err := ensureHasProfile(ctx, s.profileRepo, actorID, msgProfileRequired); err != nil {
		return nil, err
	}
	comment, err := s.commentRepo.GetVisible(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	if err := ensureOwnerOrStaff(ctx, s.isStaff, comment.UserID, actorID); err != nil {
		return nil, err
	}
	return comment, nil
}

// UpdateComment rewrites the text; the post a comment belongs to never changes.
func (s *CommentService) UpdateComment(ctx context.Context, actorID, id uint, text string) (*models.Comment, error) {
	comment, err := s.loadForWrite(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, models.NewValidationError("Text is required")
	}
	comment.Text = text
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetVisible(ctx, comment.ID, actorID)
}

func (s *CommentService) DeleteComment(ctx context.Context, actorID, id uint) error {
	comment, err := s.loadForWrite(ctx, actorID, id)
	if err != nil {
		return err
	}
	return s.commentRepo.Delete(ctx, comment.ID)
}

func preview(text string) string {
	r := []rune(text)
	if len(r) <= commentPreviewLength {
		return text
	}
	return string(r[:commentPreviewLength]) + "…"
}
