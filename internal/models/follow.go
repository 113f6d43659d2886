package models

import "time"

// Follow is a directed edge: FollowerID follows FolloweeID.
// Both directions of the social graph are read from this one table.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;uniqueIndex:idx_follows_pair;check:chk_follows_not_self,follower_id <> followee_id" json:"follower_id"`
	FolloweeID uint      `gorm:"not null;uniqueIndex:idx_follows_pair;index" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`

	Follower User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE" json:"-"`
	Followee User `gorm:"foreignKey:FolloweeID;constraint:OnDelete:CASCADE" json:"-"`
}

// FollowStatus values returned by the follow toggle.
const (
	FollowStatusFollow   = "follow"
	FollowStatusUnfollow = "unfollow"
)
