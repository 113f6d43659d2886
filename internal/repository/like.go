package repository

import (
	"context"
	"errors"

	"sociable/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository manages likes on posts and comments.
type LikeRepository interface {
	TogglePost(ctx context.Context, userID, postID uint) (models.LikeToggleResult, error)
	ToggleComment(ctx context.Context, userID, commentID uint) (models.LikeToggleResult, error)
	ListPostLikes(ctx context.Context, userID uint, page Page) ([]*models.Like, int64, error)
	ListCommentLikes(ctx context.Context, userID uint, page Page) ([]*models.Like, int64, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository returns a new LikeRepository implementation.
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) TogglePost(ctx context.Context, userID, postID uint) (models.LikeToggleResult, error) {
	return r.toggle(ctx, "post_id", postID, &models.Like{UserID: userID, PostID: &postID})
}

func (r *likeRepository) ToggleComment(ctx context.Context, userID, commentID uint) (models.LikeToggleResult, error) {
	return r.toggle(ctx, "comment_id", commentID, &models.Like{UserID: userID, CommentID: &commentID})
}

// toggle deletes the caller's like on the target if present, otherwise
// inserts it, and reports the target's like count after the flip.
func (r *likeRepository) toggle(ctx context.Context, column string, targetID uint, like *models.Like) (models.LikeToggleResult, error) {
	var result models.LikeToggleResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND "+column+" = ?", like.UserID, targetID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if err := tx.Omit(clause.Associations).Create(like).Error; err != nil {
				if isUniqueConstraintError(err) {
					return errAlreadyExists
				}
				return err
			}
			result.Status, result.Liked = models.LikeStatusLiked, true
		} else {
			result.Status, result.Liked = models.LikeStatusUnliked, false
		}
		return tx.Model(&models.Like{}).Where(column+" = ?", targetID).Count(&result.LikesCount).Error
	})
	if errors.Is(err, errAlreadyExists) {
		// A concurrent request liked the target first.
		result = models.LikeToggleResult{Status: models.LikeStatusLiked, Liked: true}
		err = r.db.WithContext(ctx).Model(&models.Like{}).Where(column+" = ?", targetID).Count(&result.LikesCount).Error
	}
	if err != nil {
		return models.LikeToggleResult{}, models.NewInternalError(err)
	}
	return result, nil
}

func (r *likeRepository) ListPostLikes(ctx context.Context, userID uint, page Page) ([]*models.Like, int64, error) {
	return r.list(ctx, userID, "post_id", "Post", page)
}

func (r *likeRepository) ListCommentLikes(ctx context.Context, userID uint, page Page) ([]*models.Like, int64, error) {
	return r.list(ctx, userID, "comment_id", "Comment", page)
}

func (r *likeRepository) list(ctx context.Context, userID uint, column, preload string, page Page) ([]*models.Like, int64, error) {
	page = page.normalized()
	mine := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.Like{}).
			Where("likes.user_id = ? AND likes."+column+" IS NOT NULL", userID)
	}

	var count int64
	if err := mine().Count(&count).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var likes []*models.Like
	err := mine().Preload(preload).
		Order("likes.created_at DESC").Order("likes.id DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&likes).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return likes, count, nil
}
