package service

import (
	"context"

	"sociable/internal/models"
	"sociable/internal/notifications"
	"sociable/internal/observability"
	"sociable/internal/repository"
)

// LikeService toggles likes on visible posts and comments.
type LikeService struct {
	likeRepo    repository.LikeRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	events      EventPublisher
}

func NewLikeService(
	likeRepo repository.LikeRepository,
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	events EventPublisher,
) *LikeService {
	return &LikeService{
		likeRepo:    likeRepo,
		postRepo:    postRepo,
		commentRepo: commentRepo,
		events:      publisherOrNoop(events),
	}
}

// TogglePostLike likes or unlikes a post in the actor's feed.
func (s *LikeService) TogglePostLike(ctx context.Context, actorID, postID uint) (models.LikeToggleResult, error) {
	post, err := s.postRepo.GetVisible(ctx, postID, actorID)
	if err != nil {
		return models.LikeToggleResult{}, err
	}
	res, err := s.likeRepo.TogglePost(ctx, actorID, post.ID)
	if err != nil {
		return models.LikeToggleResult{}, err
	}
	observability.ToggleTotal.WithLabelValues("post_like", res.Status).Inc()
	if res.Liked {
		s.events.Notify(ctx, post.UserID, notifications.Event{
			Type:     notifications.EventPostLiked,
			ActorID:  actorID,
			ObjectID: post.ID,
		})
	}
	return res, nil
}

// ToggleCommentLike likes or unlikes a comment in the actor's feed.
func (s *LikeService) ToggleCommentLike(ctx context.Context, actorID, commentID uint) (models.LikeToggleResult, error) {
	comment, err := s.commentRepo.GetVisible(ctx, commentID, actorID)
	if err != nil {
		return models.LikeToggleResult{}, err
	}
	res, err := s.likeRepo.ToggleComment(ctx, actorID, comment.ID)
	if err != nil {
		return models.LikeToggleResult{}, err
	}
	observability.ToggleTotal.WithLabelValues("comment_like", res.Status).Inc()
	if res.Liked {
		s.events.Notify(ctx, comment.UserID, notifications.Event{
			Type:     notifications.EventCommentLiked,
			ActorID:  actorID,
			ObjectID: comment.ID,
		})
	}
	return res, nil
}

// PostLikes lists the posts the caller liked, newest first.
func (s *LikeService) PostLikes(ctx context.Context, userID uint, page repository.Page) ([]models.PostLikeItem, int64, error) {
	likes, count, err := s.likeRepo.ListPostLikes(ctx, userID, page)
	if err != nil {
		return nil, 0, err
	}
	items := make([]models.PostLikeItem, 0, len(likes))
	for _, l := range likes {
		item := models.PostLikeItem{ID: l.ID, CreatedAt: l.CreatedAt}
		if l.PostID != nil {
			item.PostID = *l.PostID
		}
		if l.Post != nil {
			item.Post = l.Post.Title
		}
		items = append(items, item)
	}
	return items, count, nil
}

// CommentLikes lists the comments the caller liked, newest first.
func (s *LikeService) CommentLikes(ctx context.Context, userID uint, page repository.Page) ([]models.CommentLikeItem, int64, error) {
	likes, count, err := s.likeRepo.ListCommentLikes(ctx, userID, page)
	if err != nil {
		return nil, 0, err
	}
	items := make([]models.CommentLikeItem, 0, len(likes))
	for _, l := range likes {
		item := models.CommentLikeItem{ID: l.ID, CreatedAt: l.CreatedAt}
		if l.CommentID != nil {
			item.CommentID = *l.CommentID
		}
		if l.Comment != nil {
			item.Comment = l.Comment.Text
		}
		items = append(items, item)
	}
	return items, count, nil
}
