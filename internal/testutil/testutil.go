// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"sociable/internal/database"
	"sociable/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Password is the plain-text password of every user created by CreateUser.
const Password = "password123"

var passwordHash []byte

func init() {
	var err error
	passwordHash, err = bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
}

// NewSQLiteDB opens a private in-memory database with the full schema
// applied. The single connection keeps every query on the same database.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(database.SQLiteDSN(":memory:")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateUser inserts an active user whose password is Password.
func CreateUser(t testing.TB, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Password: string(passwordHash), IsActive: true}
	require.NoError(t, db.Omit("Profile").Create(user).Error)
	return user
}

// CreateStaff inserts an active staff user.
func CreateStaff(t testing.TB, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := CreateUser(t, db, email)
	require.NoError(t, db.Model(user).Update("is_staff", true).Error)
	user.IsStaff = true
	return user
}

// CreateProfile inserts a profile for userID.
func CreateProfile(t testing.TB, db *gorm.DB, userID uint, username string) *models.Profile {
	t.Helper()
	profile := &models.Profile{UserID: userID, Username: username}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

// CreatePost inserts a post owned by userID and links the given hashtags.
func CreatePost(t testing.TB, db *gorm.DB, userID uint, title string, tags ...*models.HashTag) *models.Post {
	t.Helper()
	post := &models.Post{UserID: userID, Title: title, Text: fmt.Sprintf("text of %s", title)}
	require.NoError(t, db.Omit("User", "HashTags", "Comments", "Likes").Create(post).Error)
	for _, tag := range tags {
		require.NoError(t, db.Exec("INSERT INTO post_hashtags (post_id, hashtag_id) VALUES (?, ?)", post.ID, tag.ID).Error)
	}
	return post
}

// CreateHashTag inserts a hashtag.
func CreateHashTag(t testing.TB, db *gorm.DB, name string) *models.HashTag {
	t.Helper()
	tag := &models.HashTag{Name: name}
	require.NoError(t, db.Create(tag).Error)
	return tag
}

// CreateComment inserts a comment by userID on postID.
func CreateComment(t testing.TB, db *gorm.DB, userID, postID uint, text string) *models.Comment {
	t.Helper()
	comment := &models.Comment{UserID: userID, PostID: postID, Text: text}
	require.NoError(t, db.Omit("User", "Post", "Likes").Create(comment).Error)
	return comment
}

// Follow inserts the edge follower -> followee.
func Follow(t testing.TB, db *gorm.DB, followerID, followeeID uint) {
	t.Helper()
	edge := &models.Follow{FollowerID: followerID, FolloweeID: followeeID}
	require.NoError(t, db.Omit("Follower", "Followee").Create(edge).Error)
}

// CountRows returns the number of rows in table.
func CountRows(t testing.TB, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Table(table).Count(&n).Error)
	return n
}

// PNG returns an encoded solid-colour image of the given size.
func PNG(t testing.TB, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
