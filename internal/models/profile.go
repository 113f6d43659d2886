package models

import "time"

// Profile is the social extension of a User. Followers and followings are
// not stored here; they are read from the follows table.
type Profile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	Username  string    `gorm:"size:255;not null;uniqueIndex" json:"username"`
	Bio       string    `gorm:"type:text" json:"bio"`
	Picture   string    `gorm:"size:512" json:"picture"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileView is a profile together with the emails of its followers and
// of the users it follows.
type ProfileView struct {
	ID        uint     `json:"id"`
	UserID    uint     `json:"user_id"`
	Username  string   `json:"username"`
	Picture   string   `json:"picture"`
	Bio       string   `json:"bio"`
	Followers []string `json:"followers"`
	Following []string `json:"following"`
}

// NewProfileView builds the API shape of a profile.
func NewProfileView(p *Profile, followers, following []string) ProfileView {
	if followers == nil {
		followers = []string{}
	}
	if following == nil {
		following = []string{}
	}
	return ProfileView{
		ID:        p.ID,
		UserID:    p.UserID,
		Username:  p.Username,
		Picture:   p.Picture,
		Bio:       p.Bio,
		Followers: followers,
		Following: following,
	}
}
