package repository

import (
	"context"
	"strings"

	"sociable/internal/models"

	"gorm.io/gorm"
)

// HashTagRepository defines persistence operations for hashtags.
type HashTagRepository interface {
	Create(ctx context.Context, tag *models.HashTag) error
	GetByID(ctx context.Context, id uint) (*models.HashTag, error)
	List(ctx context.Context, name string, page Page) ([]*models.HashTag, int64, error)
	Update(ctx context.Context, tag *models.HashTag) error
	Delete(ctx context.Context, id uint) error
}

type hashTagRepository struct {
	db *gorm.DB
}

// NewHashTagRepository returns a new HashTagRepository implementation.
func NewHashTagRepository(db *gorm.DB) HashTagRepository {
	return &hashTagRepository{db: db}
}

func (r *hashTagRepository) Create(ctx context.Context, tag *models.HashTag) error {
	if err := r.db.WithContext(ctx).Create(tag).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *hashTagRepository) GetByID(ctx context.Context, id uint) (*models.HashTag, error) {
	var tag models.HashTag
	if err := r.db.WithContext(ctx).First(&tag, id).Error; err != nil {
		return nil, notFoundOr(err, "HashTag", id)
	}
	return &tag, nil
}

func (r *hashTagRepository) List(ctx context.Context, name string, page Page) ([]*models.HashTag, int64, error) {
	page = page.normalized()
	name = strings.TrimSpace(name)
	query := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.HashTag{})
		if name != "" {
			q = q.Where(icontains("name"), containsPattern(name))
		}
		return q
	}

	var count int64
	if err := query().Count(&count).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var tags []*models.HashTag
	if err := query().Order("id ASC").Limit(page.Limit).Offset(page.Offset).Find(&tags).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return tags, count, nil
}

func (r *hashTagRepository) Update(ctx context.Context, tag *models.HashTag) error {
	res := r.db.WithContext(ctx).Model(&models.HashTag{}).Where("id = ?", tag.ID).Update("name", tag.Name)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("HashTag", tag.ID)
	}
	return nil
}

// Delete removes the tag and detaches it from every post.
func (r *hashTagRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM post_hashtags WHERE hashtag_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.HashTag{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("HashTag", id)
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
