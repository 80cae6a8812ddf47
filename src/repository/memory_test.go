package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Users(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id, err := store.GetOrCreateUser(ctx, "alice")
	require.NoError(t, err)
	again, err := store.GetOrCreateUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	_, err = store.GetOrCreateUser(ctx, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMemoryStore_Authenticate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	user, err := store.Authenticate(ctx, "alice", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, user.PasswordHash)

	_, err = store.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrAuth)

	_, err = store.Authenticate(ctx, "alice", "")
	assert.NoError(t, err, "known user without password is a returning session")

	_, err = store.Authenticate(ctx, "stranger", "")
	assert.ErrorIs(t, err, ErrNotFound)

	// first password set for a user created without one
	_, err = store.GetOrCreateUser(ctx, "carol")
	require.NoError(t, err)
	_, err = store.Authenticate(ctx, "carol", "first")
	require.NoError(t, err)
	_, err = store.Authenticate(ctx, "carol", "second")
	assert.ErrorIs(t, err, ErrAuth)
}

func TestMemoryStore_Images(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, ref := range []string{"alice/pets/dog.jpg", "alice/pets/cat.jpg", "alice/travel/sea.jpg"} {
		_, err := store.AddImage(ctx, "alice", ref)
		require.NoError(t, err)
	}

	refs, err := store.ListImages(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice/travel/sea.jpg", "alice/pets/cat.jpg", "alice/pets/dog.jpg"}, refs)

	refs, err = store.ListImages(ctx, "alice", "pets")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice/pets/cat.jpg", "alice/pets/dog.jpg"}, refs)

	refs, err = store.ListImages(ctx, "nobody", "")
	require.NoError(t, err)
	assert.Empty(t, refs)

	require.NoError(t, store.DeleteImage(ctx, "alice", "alice/pets/dog.jpg"))
	assert.ErrorIs(t, store.DeleteImage(ctx, "alice", "alice/pets/dog.jpg"), ErrNotFound)
	assert.ErrorIs(t, store.DeleteImage(ctx, "nobody", "x"), ErrNotFound)
}

func TestMemoryStore_Categories(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	result, err := store.CreateCategory(ctx, "dave", "photos")
	require.NoError(t, err)
	assert.True(t, result.Success)

	result, err = store.CreateCategory(ctx, "dave", "photos")
	require.NoError(t, err)
	assert.False(t, result.Success)

	categories, err := store.ListCategories(ctx, "dave")
	require.NoError(t, err)
	require.Len(t, categories, 1)

	// per-user scope
	result, err = store.CreateCategory(ctx, "erin", "photos")
	require.NoError(t, err)
	assert.True(t, result.Success)

	for _, name := range []string{"zoo", "art"} {
		_, err := store.CreateCategory(ctx, "dave", name)
		require.NoError(t, err)
	}
	categories, err = store.ListCategories(ctx, "dave")
	require.NoError(t, err)
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"art", "photos", "zoo"}, names)
}

func TestMemoryStore_DeleteUserCascades(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.AddImage(ctx, "frank", "frank/pets/dog.jpg")
	require.NoError(t, err)
	_, err = store.CreateCategory(ctx, "frank", "pets")
	require.NoError(t, err)

	require.NoError(t, store.DeleteUser(ctx, "frank"))

	refs, err := store.ListImages(ctx, "frank", "")
	require.NoError(t, err)
	assert.Empty(t, refs)

	_, ok, err := store.CategoryExists(ctx, "frank", "pets")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, store.DeleteUser(ctx, "frank"), ErrNotFound)
}
