package repository

import (
	"context"
	"testing"

	"sociable/internal/models"
	"sociable/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_ListVisible(t *testing.T) {
	db := setupDB(t)
	repo := NewCommentRepository(db)
	likes := NewLikeRepository(db)
	ctx := context.Background()

	me := testutil.CreateUser(t, db, "me@example.com")
	friend := testutil.CreateUser(t, db, "friend@example.com")
	stranger := testutil.CreateUser(t, db, "stranger@example.com")
	testutil.Follow(t, db, me.ID, friend.ID)

	p1 := testutil.CreatePost(t, db, friend.ID, "p1")
	p2 := testutil.CreatePost(t, db, friend.ID, "p2")
	mine := testutil.CreateComment(t, db, me.ID, p1.ID, "mine")
	testutil.CreateComment(t, db, friend.ID, p2.ID, "friend's")
	testutil.CreateComment(t, db, stranger.ID, p1.ID, "stranger's")
	_, err := likes.ToggleComment(ctx, friend.ID, mine.ID)
	require.NoError(t, err)

	comments, count, err := repo.ListVisible(ctx, me.ID, CommentFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	require.Len(t, comments, 2)
	assert.Equal(t, "friend's", comments[0].Text)

	comments, count, err = repo.ListVisible(ctx, me.ID, CommentFilter{PostID: p1.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	require.Len(t, comments, 1)
	item := comments[0].ListItem()
	assert.Equal(t, "p1", item.Post)
	assert.Equal(t, p1.ID, item.PostID)
	assert.Equal(t, 1, item.LikesCount)
	assert.Equal(t, []string{"friend@example.com"}, item.Likes)
}

func TestCommentRepository_GetVisibleEmbedsPost(t *testing.T) {
	db := setupDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	me := testutil.CreateUser(t, db, "me@example.com")
	other := testutil.CreateUser(t, db, "other@example.com")
	tag := testutil.CreateHashTag(t, db, "tag")
	post := testutil.CreatePost(t, db, other.ID, "their post", tag)
	mine := testutil.CreateComment(t, db, me.ID, post.ID, "nice")
	theirs := testutil.CreateComment(t, db, other.ID, post.ID, "thanks")

	got, err := repo.GetVisible(ctx, mine.ID, me.ID)
	require.NoError(t, err)
	detail := got.Detail()
	assert.Equal(t, "their post", detail.Post.Title)
	assert.Equal(t, "other@example.com", detail.Post.User)
	assert.Equal(t, []string{"tag"}, detail.Post.HashTags)
	assert.Equal(t, []string{"nice", "thanks"}, detail.Post.Comments)

	_, err = repo.GetVisible(ctx, theirs.ID, me.ID)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	visible, err := repo.IsVisible(ctx, theirs.ID, me.ID)
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestCommentRepository_UpdateAndDelete(t *testing.T) {
	db := setupDB(t)
	repo := NewCommentRepository(db)
	likes := NewLikeRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "u@example.com")
	post := testutil.CreatePost(t, db, u.ID, "p")
	comment := &models.Comment{UserID: u.ID, PostID: post.ID, Text: "draft"}
	require.NoError(t, repo.Create(ctx, comment))

	comment.Text = "final"
	require.NoError(t, repo.Update(ctx, comment))
	got, err := repo.GetVisible(ctx, comment.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Text)

	_, err = likes.ToggleComment(ctx, u.ID, comment.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, comment.ID))
	assert.Zero(t, testutil.CountRows(t, db, "comments"))
	assert.Zero(t, testutil.CountRows(t, db, "likes"))
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(repo.Delete(ctx, comment.ID)))
}
