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

func TestFollowRepository_ToggleTwiceRestoresState(t *testing.T) {
	db := setupDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	u1 := testutil.CreateUser(t, db, "u1@example.com")
	u2 := testutil.CreateUser(t, db, "u2@example.com")

	status, err := repo.Toggle(ctx, u1.ID, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FollowStatusFollow, status)
	following, err := repo.IsFollowing(ctx, u1.ID, u2.ID)
	require.NoError(t, err)
	assert.True(t, following)

	status, err = repo.Toggle(ctx, u1.ID, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FollowStatusUnfollow, status)
	assert.Zero(t, testutil.CountRows(t, db, "follows"))
}

func TestFollowRepository_SelfFollowRejected(t *testing.T) {
	db := setupDB(t)
	repo := NewFollowRepository(db)

	u := testutil.CreateUser(t, db, "u@example.com")
	_, err := repo.Toggle(context.Background(), u.ID, u.ID)
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	assert.Equal(t, "You cannot follow yourself", err.Error())
	assert.Zero(t, testutil.CountRows(t, db, "follows"))
}

func TestFollowRepository_Emails(t *testing.T) {
	db := setupDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	a := testutil.CreateUser(t, db, "a@example.com")
	b := testutil.CreateUser(t, db, "b@example.com")
	c := testutil.CreateUser(t, db, "c@example.com")
	testutil.Follow(t, db, b.ID, a.ID)
	testutil.Follow(t, db, c.ID, a.ID)
	testutil.Follow(t, db, a.ID, c.ID)

	followers, err := repo.FollowerEmails(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"b@example.com", "c@example.com"}, followers)

	following, err := repo.FollowingEmails(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c@example.com"}, following)

	none, err := repo.FollowingEmails(ctx, b.ID+100)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestFollowRepository_ConcurrentInsertCountsAsFollowing(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFollowRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "follows" WHERE follower_id = $1 AND followee_id = $2`)).
		WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "follows"`)).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := repo.Toggle(context.Background(), 1, 2)
	require.Error(t, err)
	assert.Equal(t, models.CodeInternal, models.ErrorCode(err))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "follows"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "follows"`)).
		WillReturnError(uniqueViolation())
	mock.ExpectRollback()

	status, err := repo.Toggle(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, models.FollowStatusFollow, status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
