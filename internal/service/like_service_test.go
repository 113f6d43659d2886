package service

import (
	"context"
	"testing"

	"sociable/internal/models"
	"sociable/internal/notifications"
	"sociable/internal/repository"
	"sociable/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeService_TogglePostLike(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := testutil.CreateUser(t, f.db, "alice@example.com")
	bob := testutil.CreateUser(t, f.db, "bob@example.com")
	carol := testutil.CreateUser(t, f.db, "carol@example.com")
	post := testutil.CreatePost(t, f.db, alice.ID, "hello")
	testutil.Follow(t, f.db, bob.ID, alice.ID)

	res, err := f.likes.TogglePostLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeToggleResult{Status: models.LikeStatusLiked, Liked: true, LikesCount: 1}, res)

	res, err = f.likes.TogglePostLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LikeToggleResult{Status: models.LikeStatusUnliked, Liked: false, LikesCount: 0}, res)

	_, err = f.likes.TogglePostLike(ctx, carol.ID, post.ID)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

	events := f.events.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, alice.ID, events[0].recipient)
	assert.Equal(t, notifications.EventPostLiked, events[0].event.Type)
	assert.Equal(t, post.ID, events[0].event.ObjectID)
}

func TestLikeService_ToggleCommentLikeAndListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice := testutil.CreateUser(t, f.db, "alice@example.com")
	bob := testutil.CreateUser(t, f.db, "bob@example.com")
	post := testutil.CreatePost(t, f.db, alice.ID, "hello")
	comment := testutil.CreateComment(t, f.db, alice.ID, post.ID, "nice")
	testutil.Follow(t, f.db, bob.ID, alice.ID)

	res, err := f.likes.ToggleCommentLike(ctx, bob.ID, comment.ID)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	_, err = f.likes.TogglePostLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)

	commentLikes, count, err := f.likes.CommentLikes(ctx, bob.ID, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	require.Len(t, commentLikes, 1)
	assert.Equal(t, comment.ID, commentLikes[0].CommentID)
	assert.Equal(t, "nice", commentLikes[0].Comment)

	postLikes, count, err := f.likes.PostLikes(ctx, bob.ID, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	require.Len(t, postLikes, 1)
	assert.Equal(t, "hello", postLikes[0].Post)

	events := f.events.recorded()
	require.Len(t, events, 2)
	assert.Equal(t, notifications.EventCommentLiked, events[0].event.Type)
	assert.Equal(t, alice.ID, events[0].recipient)

	_, err = f.likes.ToggleCommentLike(ctx, bob.ID, 4242)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}
