package repository

import (
	"context"
	"strings"

	"sociable/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostFilter narrows the feed. Empty fields are ignored.
type PostFilter struct {
	Title   string
	HashTag string
	Page    Page
}

// PostRepository defines persistence operations for posts. Every read is
// scoped to what viewerID may see: their own posts and those of users they follow.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post, hashTagIDs []uint) error
	GetVisible(ctx context.Context, id, viewerID uint) (*models.Post, error)
	IsVisible(ctx context.Context, id, viewerID uint) (bool, error)
	ListVisible(ctx context.Context, viewerID uint, filter PostFilter) ([]*models.Post, int64, error)
	// Update writes title and text. hashTagIDs replaces the tag set unless nil.
	Update(ctx context.Context, post *models.Post, hashTagIDs []uint) error
	Delete(ctx context.Context, id uint) error
	TitleExists(ctx context.Context, title string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func visiblePosts(viewerID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("(posts.user_id = ? OR posts.user_id IN (SELECT followee_id FROM follows WHERE follower_id = ?))", viewerID, viewerID)
	}
}

func filterPosts(f PostFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if title := strings.TrimSpace(f.Title); title != "" {
			db = db.Where(icontains("posts.title"), containsPattern(title))
		}
		if tag := strings.TrimSpace(f.HashTag); tag != "" {
			db = db.Where("posts.id IN (SELECT post_hashtags.post_id FROM post_hashtags "+
				"JOIN hashtags ON hashtags.id = post_hashtags.hashtag_id WHERE "+icontains("hashtags.name")+")",
				containsPattern(tag))
		}
		return db
	}
}

// withPostCounts annotates each row with comment and like counts and whether
// viewerID liked it.
func withPostCounts(viewerID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Select(`posts.*,
			(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comments_count,
			(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) AS likes_count,
			EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) AS liked`, viewerID)
	}
}

func oldestFirst(table string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(table + ".created_at ASC").Order(table + ".id ASC")
	}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post, hashTagIDs []uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids, err := checkHashTags(tx, hashTagIDs)
		if err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(post).Error; err != nil {
			return err
		}
		return linkHashTags(tx, post.ID, ids)
	})
	return translatePostWriteError(err)
}

func (r *postRepository) GetVisible(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Scopes(visiblePosts(viewerID), withPostCounts(viewerID)).
		Preload("User").
		Preload("HashTags", hashTagsByID).
		Preload("Comments", oldestFirst("comments")).
		Preload("Likes", oldestFirst("likes")).
		Preload("Likes.User").
		Where("posts.id = ?", id).
		First(&post).Error
	if err != nil {
		return nil, notFoundOr(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) IsVisible(ctx context.Context, id, viewerID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Scopes(visiblePosts(viewerID)).
		Where("posts.id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *postRepository) ListVisible(ctx context.Context, viewerID uint, filter PostFilter) ([]*models.Post, int64, error) {
	page := filter.Page.normalized()
	feed := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.Post{}).Scopes(visiblePosts(viewerID), filterPosts(filter))
	}

	var count int64
	if err := feed().Count(&count).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []*models.Post
	err := feed().
		Scopes(withPostCounts(viewerID)).
		Preload("User").
		Preload("HashTags", hashTagsByID).
		Order("posts.created_at DESC").Order("posts.id DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return posts, count, nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post, hashTagIDs []uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Post{ID: post.ID}).Select("title", "text").Updates(post)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", post.ID)
		}
		if hashTagIDs == nil {
			return nil
		}
		ids, err := checkHashTags(tx, hashTagIDs)
		if err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM post_hashtags WHERE post_id = ?", post.ID).Error; err != nil {
			return err
		}
		return linkHashTags(tx, post.ID, ids)
	})
	return translatePostWriteError(err)
}

// Delete removes the post with its comments, every like on the post or on
// those comments, and its hashtag links.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comments := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", id)
		if err := tx.Where("post_id = ? OR comment_id IN (?)", id, comments).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM post_hashtags WHERE post_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Post", id)
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

func (r *postRepository) TitleExists(ctx context.Context, title string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("title = ?", title).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *postRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func hashTagsByID(db *gorm.DB) *gorm.DB {
	return db.Order("hashtags.id ASC")
}

// checkHashTags deduplicates ids and fails with a validation error when any
// of them does not exist.
func checkHashTags(tx *gorm.DB, ids []uint) ([]uint, error) {
	unique := make([]uint, 0, len(ids))
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return unique, nil
	}

	var found int64
	if err := tx.Model(&models.HashTag{}).Where("id IN ?", unique).Count(&found).Error; err != nil {
		return nil, err
	}
	if found != int64(len(unique)) {
		return nil, models.NewValidationError("Unknown hashtag id")
	}
	return unique, nil
}

func linkHashTags(tx *gorm.DB, postID uint, ids []uint) error {
	for _, id := range ids {
		if err := tx.Exec("INSERT INTO post_hashtags (post_id, hashtag_id) VALUES (?, ?)", postID, id).Error; err != nil {
			return err
		}
	}
	return nil
}

func translatePostWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case models.ErrorCode(err) != "":
		return err
	case isUniqueConstraintError(err):
		return models.NewConflictError("A post with this title already exists")
	default:
		return models.NewInternalError(err)
	}
}
