package models

import "time"

// Like marks a post or a comment as liked by a user. Exactly one of PostID
// and CommentID is set.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_likes_user_post;uniqueIndex:idx_likes_user_comment" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	PostID    *uint     `gorm:"uniqueIndex:idx_likes_user_post;index;check:chk_likes_one_target,(post_id IS NULL) <> (comment_id IS NULL)" json:"post_id,omitempty"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	CommentID *uint     `gorm:"uniqueIndex:idx_likes_user_comment;index" json:"comment_id,omitempty"`
	Comment   *Comment  `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Like toggle statuses.
const (
	LikeStatusLiked   = "liked"
	LikeStatusUnliked = "unliked"
)

// LikeToggleResult is returned by both the post and the comment like toggle.
type LikeToggleResult struct {
	Status     string `json:"status"`
	Liked      bool   `json:"liked"`
	LikesCount int64  `json:"likes_count"`
}

// PostLikeItem lists a like the caller gave to a post.
type PostLikeItem struct {
	ID        uint      `json:"id"`
	Post      string    `json:"post"`
	PostID    uint      `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentLikeItem lists a like the caller gave to a comment.
type CommentLikeItem struct {
	ID        uint      `json:"id"`
	Comment   string    `json:"comment"`
	CommentID uint      `json:"comment_id"`
	CreatedAt time.Time `json:"created_at"`
}
