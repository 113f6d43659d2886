package repository

import (
	"context"
	"testing"

	"sociable/internal/models"
	"sociable/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileRepository_CreateUniqueness(t *testing.T) {
	db := setupDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	u1 := testutil.CreateUser(t, db, "u1@example.com")
	u2 := testutil.CreateUser(t, db, "u2@example.com")
	require.NoError(t, repo.Create(ctx, &models.Profile{UserID: u1.ID, Username: "taken"}))

	err := repo.Create(ctx, &models.Profile{UserID: u1.ID, Username: "another"})
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	err = repo.Create(ctx, &models.Profile{UserID: u2.ID, Username: "taken"})
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))

	exists, err := repo.ExistsForUser(ctx, u2.ID)
	require.NoError(t, err)
	assert.False(t, exists)
	missing, err := repo.GetByUserID(ctx, u2.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProfileRepository_ListFiltersAndOrders(t *testing.T) {
	db := setupDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	for _, name := range []string{"zed", "Alice", "malice", "bob"} {
		u := testutil.CreateUser(t, db, name+"@example.com")
		testutil.CreateProfile(t, db, u.ID, name)
	}

	profiles, count, err := repo.List(ctx, "ALIC", Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	require.Len(t, profiles, 2)
	assert.Equal(t, "Alice", profiles[0].Username)
	assert.Equal(t, "malice", profiles[1].Username)

	profiles, count, err = repo.List(ctx, "", Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
	require.Len(t, profiles, 1)
}

func TestProfileRepository_DeleteRemovesFollowEdges(t *testing.T) {
	db := setupDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	a := testutil.CreateUser(t, db, "a@example.com")
	b := testutil.CreateUser(t, db, "b@example.com")
	c := testutil.CreateUser(t, db, "c@example.com")
	pa := testutil.CreateProfile(t, db, a.ID, "a")
	testutil.Follow(t, db, a.ID, b.ID)
	testutil.Follow(t, db, b.ID, a.ID)
	testutil.Follow(t, db, b.ID, c.ID)

	require.NoError(t, repo.Delete(ctx, pa))
	assert.Equal(t, int64(1), testutil.CountRows(t, db, "follows"))
	assert.Equal(t, int64(3), testutil.CountRows(t, db, "users"))

	_, err := repo.GetByID(ctx, pa.ID)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestProfileRepository_Update(t *testing.T) {
	db := setupDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "u@example.com")
	other := testutil.CreateUser(t, db, "o@example.com")
	p := testutil.CreateProfile(t, db, u.ID, "before")
	testutil.CreateProfile(t, db, other.ID, "occupied")

	p.Username, p.Bio = "after", "hello"
	require.NoError(t, repo.Update(ctx, p))
	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Username)
	assert.Equal(t, "hello", got.Bio)

	p.Username = "occupied"
	assert.Equal(t, models.CodeConflict, models.ErrorCode(repo.Update(ctx, p)))
}
