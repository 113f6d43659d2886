package repository

import (
	"context"
	"errors"

	"sociable/internal/models"

	"gorm.io/gorm"
)

// FollowRepository manages directed follow edges between users.
type FollowRepository interface {
	// Toggle flips the edge follower -> followee and returns the resulting
	// status, models.FollowStatusFollow or models.FollowStatusUnfollow.
	Toggle(ctx context.Context, followerID, followeeID uint) (string, error)
	IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error)
	FollowerEmails(ctx context.Context, userID uint) ([]string, error)
	FollowingEmails(ctx context.Context, userID uint) ([]string, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository returns a new FollowRepository implementation.
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Toggle(ctx context.Context, followerID, followeeID uint) (string, error) {
	if followerID == followeeID {
		return "", models.NewValidationError("You cannot follow yourself")
	}

	var status string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("follower_id = ? AND followee_id = ?", followerID, followeeID).Delete(&models.Follow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			status = models.FollowStatusUnfollow
			return nil
		}

		edge := models.Follow{FollowerID: followerID, FolloweeID: followeeID}
		if err := tx.Omit("Follower", "Followee").Create(&edge).Error; err != nil {
			if isUniqueConstraintError(err) {
				return errAlreadyExists
			}
			return err
		}
		status = models.FollowStatusFollow
		return nil
	})
	if errors.Is(err, errAlreadyExists) {
		// A concurrent request inserted the same edge first.
		return models.FollowStatusFollow, nil
	}
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return status, nil
}

func (r *followRepository) IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// FollowerEmails lists the emails of users following userID, oldest edge first.
func (r *followRepository) FollowerEmails(ctx context.Context, userID uint) ([]string, error) {
	return r.emails(ctx, "follows.follower_id", "follows.followee_id = ?", userID)
}

// FollowingEmails lists the emails of users userID follows, oldest edge first.
func (r *followRepository) FollowingEmails(ctx context.Context, userID uint) ([]string, error) {
	return r.emails(ctx, "follows.followee_id", "follows.follower_id = ?", userID)
}

func (r *followRepository) emails(ctx context.Context, joinColumn, where string, userID uint) ([]string, error) {
	emails := []string{}
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Joins("JOIN users ON users.id = "+joinColumn).
		Where(where, userID).
		Order("follows.created_at ASC").Order("follows.id ASC").
		Pluck("users.email", &emails).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return emails, nil
}
