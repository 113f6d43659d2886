// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User is a login identity. Email is the only login identifier.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	IsStaff   bool      `gorm:"not null;default:false" json:"is_staff"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Profile *Profile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// UserResponse is the public shape of an account.
type UserResponse struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	IsStaff   bool   `json:"is_staff"`
	ProfileID *uint  `json:"profile_id"`
}

// Response converts the user into its API shape.
func (u *User) Response() UserResponse {
	resp := UserResponse{
		ID:      u.ID,
		Email:   u.Email,
		IsStaff: u.IsStaff,
	}
	if u.Profile != nil {
		id := u.Profile.ID
		resp.ProfileID = &id
	}
	return resp
}
