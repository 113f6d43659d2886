package repository

import (
	"context"
	"regexp"
	"testing"

	"sociable/internal/models"
	"sociable/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeRepository_TogglePostScenario(t *testing.T) {
	db := setupDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice@example.com")
	bob := testutil.CreateUser(t, db, "bob@example.com")
	post := testutil.CreatePost(t, db, alice.ID, "hello")

	res, err := repo.TogglePost(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeToggleResult{Status: models.LikeStatusLiked, Liked: true, LikesCount: 1}, res)

	res, err = repo.TogglePost(ctx, alice.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.LikesCount)

	res, err = repo.TogglePost(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeToggleResult{Status: models.LikeStatusUnliked, Liked: false, LikesCount: 1}, res)

	_, err = repo.TogglePost(ctx, alice.ID, post.ID)
	require.NoError(t, err)
	assert.Zero(t, testutil.CountRows(t, db, "likes"))
}

func TestLikeRepository_ToggleCommentIsIndependentOfPost(t *testing.T) {
	db := setupDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "u@example.com")
	post := testutil.CreatePost(t, db, u.ID, "p")
	comment := testutil.CreateComment(t, db, u.ID, post.ID, "c")

	_, err := repo.TogglePost(ctx, u.ID, post.ID)
	require.NoError(t, err)
	res, err := repo.ToggleComment(ctx, u.ID, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeToggleResult{Status: models.LikeStatusLiked, Liked: true, LikesCount: 1}, res)
	assert.Equal(t, int64(2), testutil.CountRows(t, db, "likes"))

	res, err = repo.ToggleComment(ctx, u.ID, comment.ID)
	require.NoError(t, err)
	assert.False(t, res.Liked)
	assert.Equal(t, int64(1), testutil.CountRows(t, db, "likes"))
}

func TestLikeRepository_ListsOnlyCallerLikesByTarget(t *testing.T) {
	db := setupDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "u@example.com")
	other := testutil.CreateUser(t, db, "other@example.com")
	post := testutil.CreatePost(t, db, u.ID, "liked post")
	comment := testutil.CreateComment(t, db, u.ID, post.ID, "liked comment")

	_, err := repo.TogglePost(ctx, u.ID, post.ID)
	require.NoError(t, err)
	_, err = repo.ToggleComment(ctx, u.ID, comment.ID)
	require.NoError(t, err)
	_, err = repo.TogglePost(ctx, other.ID, post.ID)
	require.NoError(t, err)

	postLikes, count, err := repo.ListPostLikes(ctx, u.ID, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	require.Len(t, postLikes, 1)
	require.NotNil(t, postLikes[0].Post)
	assert.Equal(t, "liked post", postLikes[0].Post.Title)

	commentLikes, count, err := repo.ListCommentLikes(ctx, u.ID, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	require.Len(t, commentLikes, 1)
	require.NotNil(t, commentLikes[0].Comment)
	assert.Equal(t, "liked comment", commentLikes[0].Comment.Text)
}

func TestLike_RequiresExactlyOneTarget(t *testing.T) {
	db := setupDB(t)
	u := testutil.CreateUser(t, db, "u@example.com")
	post := testutil.CreatePost(t, db, u.ID, "p")
	comment := testutil.CreateComment(t, db, u.ID, post.ID, "c")

	err := db.Omit("User", "Post", "Comment").Create(&models.Like{UserID: u.ID}).Error
	assert.Error(t, err)
	err = db.Omit("User", "Post", "Comment").Create(&models.Like{UserID: u.ID, PostID: &post.ID, CommentID: &comment.ID}).Error
	assert.Error(t, err)
}

func TestLike_DuplicateIsUniqueViolation(t *testing.T) {
	db := setupDB(t)
	u := testutil.CreateUser(t, db, "u@example.com")
	post := testutil.CreatePost(t, db, u.ID, "p")
	comment := testutil.CreateComment(t, db, u.ID, post.ID, "c")

	tests := []struct {
		name string
		like func() *models.Like
	}{
		{"post", func() *models.Like { return &models.Like{UserID: u.ID, PostID: &post.ID} }},
		{"comment", func() *models.Like { return &models.Like{UserID: u.ID, CommentID: &comment.ID} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, db.Omit("User", "Post", "Comment").Create(tt.like()).Error)
			err := db.Omit("User", "Post", "Comment").Create(tt.like()).Error
			require.Error(t, err)
			assert.True(t, isUniqueConstraintError(err))
		})
	}
}

func TestLikeRepository_ConcurrentInsertCountsAsLiked(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewLikeRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "likes" WHERE user_id = $1 AND post_id = $2`)).
		WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "likes"`)).
		WillReturnError(uniqueViolation())
	mock.ExpectRollback()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "likes" WHERE post_id = $1`)).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	res, err := repo.TogglePost(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, models.LikeToggleResult{Status: models.LikeStatusLiked, Liked: true, LikesCount: 3}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}
