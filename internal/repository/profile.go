package repository

import (
	"context"
	"errors"
	"strings"

	"sociable/internal/models"

	"gorm.io/gorm"
)

// ProfileRepository defines persistence operations for profiles.
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id uint) (*models.Profile, error)
	GetByUserID(ctx context.Context, userID uint) (*models.Profile, error)
	ExistsForUser(ctx context.Context, userID uint) (bool, error)
	List(ctx context.Context, username string, page Page) ([]*models.Profile, int64, error)
	Update(ctx context.Context, profile *models.Profile) error
	Delete(ctx context.Context, profile *models.Profile) error
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository returns a new ProfileRepository implementation.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return translateProfileWriteError(err)
	}
	return nil
}

func (r *profileRepository) GetByID(ctx context.Context, id uint) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, id).Error; err != nil {
		return nil, notFoundOr(err, "Profile", id)
	}
	return &profile, nil
}

// GetByUserID returns nil, nil when the user has no profile.
func (r *profileRepository) GetByUserID(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &profile, nil
}

func (r *profileRepository) ExistsForUser(ctx context.Context, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Profile{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *profileRepository) List(ctx context.Context, username string, page Page) ([]*models.Profile, int64, error) {
	page = page.normalized()
	username = strings.TrimSpace(username)
	query := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Profile{})
		if username != "" {
			q = q.Where(icontains("username"), containsPattern(username))
		}
		return q
	}

	var count int64
	if err := query().Count(&count).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var profiles []*models.Profile
	err := query().Order("username ASC").Order("id ASC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&profiles).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return profiles, count, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *models.Profile) error {
	err := r.db.WithContext(ctx).Model(&models.Profile{ID: profile.ID}).
		Select("username", "bio", "picture").
		Updates(profile).Error
	if err != nil {
		return translateProfileWriteError(err)
	}
	return nil
}

// Delete removes the profile and every follow edge touching its user.
func (r *profileRepository) Delete(ctx context.Context, profile *models.Profile) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("follower_id = ? OR followee_id = ?", profile.UserID, profile.UserID).
			Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Profile{}, profile.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("Profile", profile.ID)
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

// The profiles table carries two unique indexes. A clash on username is a
// conflict; a clash on user_id means the caller already has a profile.
func translateProfileWriteError(err error) error {
	if !isUniqueConstraintError(err) {
		return models.NewInternalError(err)
	}
	if strings.Contains(strings.ToLower(err.Error()), "username") {
		return models.NewConflictError("A profile with this username already exists")
	}
	return models.NewValidationError("You already have a profile")
}
