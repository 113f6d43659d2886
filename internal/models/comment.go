package models

import "time"

// Comment is a text attached to a post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Likes     []Like    `gorm:"foreignKey:CommentID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->" json:"likes_count"`
}

// CommentListItem is the list representation of a comment.
type CommentListItem struct {
	ID         uint      `json:"id"`
	Post       string    `json:"post"`
	PostID     uint      `json:"post_id"`
	Text       string    `json:"text"`
	Likes      []string  `json:"likes"`
	LikesCount int       `json:"likes_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// CommentDetail embeds the full post the comment belongs to.
type CommentDetail struct {
	ID         uint       `json:"id"`
	Post       PostDetail `json:"post"`
	Text       string     `json:"text"`
	Likes      []string   `json:"likes"`
	LikesCount int        `json:"likes_count"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ListItem expects Post and Likes.User to be loaded.
func (c *Comment) ListItem() CommentListItem {
	item := CommentListItem{
		ID:         c.ID,
		PostID:     c.PostID,
		Text:       c.Text,
		Likes:      likerEmails(c.Likes),
		LikesCount: c.LikesCount,
		CreatedAt:  c.CreatedAt,
	}
	if c.Post != nil {
		item.Post = c.Post.Title
	}
	return item
}

// Detail expects the post to be loaded with its detail associations.
func (c *Comment) Detail() CommentDetail {
	d := CommentDetail{
		ID:         c.ID,
		Text:       c.Text,
		Likes:      likerEmails(c.Likes),
		LikesCount: c.LikesCount,
		CreatedAt:  c.CreatedAt,
	}
	if c.Post != nil {
		d.Post = c.Post.Detail()
	}
	return d
}
