package repository

import (
	"context"

	"sociable/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentFilter narrows the comment list. PostID 0 means any post.
type CommentFilter struct {
	PostID uint
	Page   Page
}

// CommentRepository defines persistence operations for comments. Reads are
// scoped to comments written by viewerID or by users they follow.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetVisible(ctx context.Context, id, viewerID uint) (*models.Comment, error)
	IsVisible(ctx context.Context, id, viewerID uint) (bool, error)
	ListVisible(ctx context.Context, viewerID uint, filter CommentFilter) ([]*models.Comment, int64, error)
	Update(ctx context.Context, comment *models.Comment) error
	Delete(ctx context.Context, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository returns a new CommentRepository implementation.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func visibleComments(viewerID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("(comments.user_id = ? OR comments.user_id IN (SELECT followee_id FROM follows WHERE follower_id = ?))", viewerID, viewerID)
	}
}

func withCommentCounts(db *gorm.DB) *gorm.DB {
	return db.Select(`comments.*,
		(SELECT COUNT(*) FROM likes WHERE likes.comment_id = comments.id) AS likes_count`)
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetVisible(ctx context.Context, id, viewerID uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).
		Scopes(visibleComments(viewerID), withCommentCounts).
		Preload("Post").
		Preload("Post.User").
		Preload("Post.HashTags", hashTagsByID).
		Preload("Post.Comments", oldestFirst("comments")).
		Preload("Post.Likes", oldestFirst("likes")).
		Preload("Post.Likes.User").
		Preload("Likes", oldestFirst("likes")).
		Preload("Likes.User").
		Where("comments.id = ?", id).
		First(&comment).Error
	if err != nil {
		return nil, notFoundOr(err, "Comment", id)
	}
	return &comment, nil
}

func (r *commentRepository) IsVisible(ctx context.Context, id, viewerID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Scopes(visibleComments(viewerID)).
		Where("comments.id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *commentRepository) ListVisible(ctx context.Context, viewerID uint, filter CommentFilter) ([]*models.Comment, int64, error) {
	page := filter.Page.normalized()
	list := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Comment{}).Scopes(visibleComments(viewerID))
		if filter.PostID != 0 {
			q = q.Where("comments.post_id = ?", filter.PostID)
		}
		return q
	}

	var count int64
	if err := list().Count(&count).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var comments []*models.Comment
	err := list().
		Scopes(withCommentCounts).
		Preload("Post").
		Preload("Likes", oldestFirst("likes")).
		Preload("Likes.User").
		Order("comments.created_at DESC").Order("comments.id DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&comments).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return comments, count, nil
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	res := r.db.WithContext(ctx).Model(&models.Comment{ID: comment.ID}).Select("text").Updates(comment)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", comment.ID)
	}
	return nil
}

// Delete removes the comment and the likes on it.
func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Comment{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Comment", id)
		}
		return nil
	})
	if err != nil {
		if models.ErrorCode(err) != "" {
			return err
		}
		return models.NewInternalError(err)
	}
	return nil
}
