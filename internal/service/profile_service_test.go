package service

import (
	"context"
	"testing"

	"proposta/internal/cache"
	"proposta/internal/models"
	"proposta/internal/repository"
	"proposta/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileService_CacheAside(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db := testutil.NewTestDB(t)
	svc := NewProfileService(repository.NewStore(db), rdb)
	ctx := context.Background()

	empty, err := svc.Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, uint(4), empty.ID)
	assert.Empty(t, empty.Name)

	updated, err := svc.Update(ctx, 4, UpdateProfileInput{Name: " Ana ", CompanyName: "Ana Design"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", updated.Name)
	assert.False(t, mr.Exists(cache.ProfileKey(4)), "update invalidates the cached profile")

	got, err := svc.Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "Ana Design", got.DisplayName())
	assert.True(t, mr.Exists(cache.ProfileKey(4)))

	// Served from Redis even after the row changes underneath.
	require.NoError(t, db.Model(&models.Profile{}).Where("id = ?", 4).Update("name", "Outra").Error)
	cached, err := svc.Get(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "Ana", cached.Name)
}

func TestProfileService_UpdateValidation(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewProfileService(repository.NewStore(db), nil)

	_, err := svc.Update(context.Background(), 1, UpdateProfileInput{CompanyLogo: "javascript:alert(1)"})
	assertCode(t, err, models.CodeValidation)
}
