package models

import "time"

// MaxPostTitleLength is the column size of posts.title.
const MaxPostTitleLength = 60

// Post is a titled text owned by a user and tagged with hashtags.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Title     string    `gorm:"size:60;not null;uniqueIndex" json:"title"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	HashTags  []HashTag `gorm:"many2many:post_hashtags;joinForeignKey:PostID;joinReferences:HashtagID;constraint:OnDelete:CASCADE" json:"-"`
	Comments  []Comment `gorm:"foreignKey:PostID" json:"-"`
	Likes     []Like    `gorm:"foreignKey:PostID" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Computed at query time, never persisted.
	CommentsCount int  `gorm:"->" json:"comments_count"`
	LikesCount    int  `gorm:"->" json:"likes_count"`
	Liked         bool `gorm:"->" json:"liked"`
}

// PostListItem is the feed representation of a post.
type PostListItem struct {
	ID            uint      `json:"id"`
	User          string    `json:"user"`
	Title         string    `json:"title"`
	Text          string    `json:"text"`
	CommentsCount int       `json:"comments_count"`
	LikesCount    int       `json:"likes_count"`
	Liked         bool      `json:"liked"`
	HashTags      []string  `json:"hashtags"`
	CreatedAt     time.Time `json:"created_at"`
}

// PostDetail is the single-post representation.
type PostDetail struct {
	ID        uint      `json:"id"`
	User      string    `json:"user"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Comments  []string  `json:"comments"`
	Likes     []string  `json:"likes"`
	HashTags  []string  `json:"hashtags"`
	CreatedAt time.Time `json:"created_at"`
}

// ListItem expects User and HashTags to be loaded.
func (p *Post) ListItem() PostListItem {
	return PostListItem{
		ID:            p.ID,
		User:          p.User.Email,
		Title:         p.Title,
		Text:          p.Text,
		CommentsCount: p.CommentsCount,
		LikesCount:    p.LikesCount,
		Liked:         p.Liked,
		HashTags:      hashTagNames(p.HashTags),
		CreatedAt:     p.CreatedAt,
	}
}

// Detail expects User, HashTags, Comments and Likes.User to be loaded.
func (p *Post) Detail() PostDetail {
	comments := make([]string, 0, len(p.Comments))
	for _, c := range p.Comments {
		comments = append(comments, c.Text)
	}
	return PostDetail{
		ID:        p.ID,
		User:      p.User.Email,
		Title:     p.Title,
		Text:      p.Text,
		Comments:  comments,
		Likes:     likerEmails(p.Likes),
		HashTags:  hashTagNames(p.HashTags),
		CreatedAt: p.CreatedAt,
	}
}

func hashTagNames(tags []HashTag) []string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return names
}

func likerEmails(likes []Like) []string {
	emails := make([]string, 0, len(likes))
	for _, l := range likes {
		emails = append(emails, l.User.Email)
	}
	return emails
}
