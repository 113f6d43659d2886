package repository

import (
	"context"
	"testing"

	"sociable/internal/models"
	"sociable/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func titles(posts []*models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Title)
	}
	return out
}

func TestPostRepository_FeedVisibility(t *testing.T) {
	db := setupDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	u1 := testutil.CreateUser(t, db, "u1@example.com")
	u2 := testutil.CreateUser(t, db, "u2@example.com")
	u3 := testutil.CreateUser(t, db, "u3@example.com")
	testutil.CreatePost(t, db, u1.ID, "mine")
	testutil.CreatePost(t, db, u2.ID, "followed")
	hidden := testutil.CreatePost(t, db, u3.ID, "stranger")
	testutil.Follow(t, db, u1.ID, u2.ID)

	posts, count, err := repo.ListVisible(ctx, u1.ID, PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.ElementsMatch(t, []string{"mine", "followed"}, titles(posts))

	// Edges are directed.
	posts, count, err = repo.ListVisible(ctx, u2.ID, PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, []string{"followed"}, titles(posts))

	_, err = repo.GetVisible(ctx, hidden.ID, u1.ID)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

	visible, err := repo.IsVisible(ctx, hidden.ID, u3.ID)
	require.NoError(t, err)
	assert.True(t, visible)
}

func TestPostRepository_FeedOrderingAndPaging(t *testing.T) {
	db := setupDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "u@example.com")
	for _, title := range []string{"first", "second", "third"} {
		testutil.CreatePost(t, db, u.ID, title)
	}

	posts, count, err := repo.ListVisible(ctx, u.ID, PostFilter{Page: Page{Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, []string{"third", "second"}, titles(posts))

	posts, _, err = repo.ListVisible(ctx, u.ID, PostFilter{Page: Page{Limit: 2, Offset: 2}})
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, titles(posts))
}

func TestPostRepository_FeedAnnotations(t *testing.T) {
	db := setupDB(t)
	repo := NewPostRepository(db)
	likes := NewLikeRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice@example.com")
	bob := testutil.CreateUser(t, db, "bob@example.com")
	post := testutil.CreatePost(t, db, alice.ID, "hello")
	testutil.CreateComment(t, db, bob.ID, post.ID, "hi")
	testutil.CreateComment(t, db, alice.ID, post.ID, "hey")

	posts, _, err := repo.ListVisible(ctx, alice.ID, PostFilter{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, 2, posts[0].CommentsCount)
	assert.Equal(t, 0, posts[0].LikesCount)
	assert.False(t, posts[0].Liked)
	assert.Equal(t, "alice@example.com", posts[0].User.Email)

	_, err = likes.TogglePost(ctx, alice.ID, post.ID)
	require.NoError(t, err)

	posts, _, err = repo.ListVisible(ctx, alice.ID, PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, posts[0].LikesCount)
	assert.True(t, posts[0].Liked)
}

func TestPostRepository_FeedFilters(t *testing.T) {
	db := setupDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "u@example.com")
	golang := testutil.CreateHashTag(t, db, "Golang")
	gopher := testutil.CreateHashTag(t, db, "gophers")
	rust := testutil.CreateHashTag(t, db, "rust")
	testutil.CreatePost(t, db, u.ID, "Learning Go", golang, gopher)
	testutil.CreatePost(t, db, u.ID, "Borrow checker", rust)
	testutil.CreatePost(t, db, u.ID, "100% done")

	posts, count, err := repo.ListVisible(ctx, u.ID, PostFilter{Title: "learning"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, []string{"Learning Go"}, titles(posts))

	// Both tags match "go" but the post is listed once.
	posts, count, err = repo.ListVisible(ctx, u.ID, PostFilter{HashTag: "GO"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	require.Len(t, posts, 1)
	assert.Len(t, posts[0].HashTags, 2)

	posts, _, err = repo.ListVisible(ctx, u.ID, PostFilter{Title: "%"})
	require.NoError(t, err)
	assert.Equal(t, []string{"100% done"}, titles(posts))

	posts, _, err = repo.ListVisible(ctx, u.ID, PostFilter{Title: "go", HashTag: "rust"})
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestPostRepository_CreateWithHashTags(t *testing.T) {
	db := setupDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "u@example.com")
	tag := testutil.CreateHashTag(t, db, "news")

	post := &models.Post{UserID: u.ID, Title: "breaking", Text: "body"}
	require.NoError(t, repo.Create(ctx, post, []uint{tag.ID, tag.ID}))
	assert.NotZero(t, post.ID)
	assert.Equal(t, int64(1), testutil.CountRows(t, db, "post_hashtags"))

	detail, err := repo.GetVisible(ctx, post.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"news"}, detail.Detail().HashTags)

	err = repo.Create(ctx, &models.Post{UserID: u.ID, Title: "other", Text: "x"}, []uint{999})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	exists, err := repo.TitleExists(ctx, "other")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPostRepository_DuplicateTitleConflict(t *testing.T) {
	db := setupDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice@example.com")
	bob := testutil.CreateUser(t, db, "bob@example.com")
	require.NoError(t, repo.Create(ctx, &models.Post{UserID: alice.ID, Title: "same", Text: "a"}, nil))

	err := repo.Create(ctx, &models.Post{UserID: bob.ID, Title: "same", Text: "b"}, nil)
	require.Error(t, err)
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))
	assert.Contains(t, err.Error(), "A post with this title already exists")

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPostRepository_UpdateReplacesHashTags(t *testing.T) {
	db := setupDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "u@example.com")
	a := testutil.CreateHashTag(t, db, "a")
	b := testutil.CreateHashTag(t, db, "b")
	post := testutil.CreatePost(t, db, u.ID, "title", a)

	post.Title, post.Text = "renamed", "new text"
	require.NoError(t, repo.Update(ctx, post, nil))
	got, err := repo.GetVisible(ctx, post.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, []string{"a"}, got.Detail().HashTags)

	require.NoError(t, repo.Update(ctx, post, []uint{b.ID}))
	got, err = repo.GetVisible(ctx, post.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, got.Detail().HashTags)

	require.NoError(t, repo.Update(ctx, post, []uint{}))
	got, err = repo.GetVisible(ctx, post.ID, u.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Detail().HashTags)

	err = repo.Update(ctx, &models.Post{ID: 4242, Title: "x", Text: "y"}, nil)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestPostRepository_DeleteCascades(t *testing.T) {
	db := setupDB(t)
	repo := NewPostRepository(db)
	likes := NewLikeRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "u@example.com")
	tag := testutil.CreateHashTag(t, db, "t")
	post := testutil.CreatePost(t, db, u.ID, "doomed", tag)
	comment := testutil.CreateComment(t, db, u.ID, post.ID, "c")
	_, err := likes.TogglePost(ctx, u.ID, post.ID)
	require.NoError(t, err)
	_, err = likes.ToggleComment(ctx, u.ID, comment.ID)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, post.ID))
	for _, table := range []string{"posts", "comments", "likes", "post_hashtags"} {
		assert.Zero(t, testutil.CountRows(t, db, table), table)
	}
	assert.Equal(t, int64(1), testutil.CountRows(t, db, "hashtags"))

	assert.Equal(t, models.CodeNotFound, models.ErrorCode(repo.Delete(ctx, post.ID)))
}

func TestPostRepository_DetailShape(t *testing.T) {
	db := setupDB(t)
	repo := NewPostRepository(db)
	likes := NewLikeRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice@example.com")
	bob := testutil.CreateUser(t, db, "bob@example.com")
	testutil.Follow(t, db, bob.ID, alice.ID)
	post := testutil.CreatePost(t, db, alice.ID, "hello")
	testutil.CreateComment(t, db, bob.ID, post.ID, "first!")
	_, err := likes.TogglePost(ctx, bob.ID, post.ID)
	require.NoError(t, err)

	got, err := repo.GetVisible(ctx, post.ID, bob.ID)
	require.NoError(t, err)
	detail := got.Detail()
	assert.Equal(t, "alice@example.com", detail.User)
	assert.Equal(t, []string{"first!"}, detail.Comments)
	assert.Equal(t, []string{"bob@example.com"}, detail.Likes)
	assert.True(t, got.Liked)
}
