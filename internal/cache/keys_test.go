package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedProfile struct {
	Name string `json:"name"`
}

func TestCacheAside(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedProfile) func() error {
		return func() error {
			calls++
			dest.Name = "Acme"
			return nil
		}
	}

	var first cachedProfile
	require.NoError(t, CacheAside(ctx, rdb, ProfileKey(7), &first, ProfileTTL, fetch(&first)))
	assert.Equal(t, "Acme", first.Name)
	assert.True(t, mr.Exists("profile:7"))

	var second cachedProfile
	require.NoError(t, CacheAside(ctx, rdb, ProfileKey(7), &second, ProfileTTL, fetch(&second)))
	assert.Equal(t, "Acme", second.Name)
	assert.Equal(t, 1, calls, "second read served from redis")

	Invalidate(ctx, rdb, ProfileKey(7))
	assert.False(t, mr.Exists("profile:7"))
}

func TestCacheAside_NilClientFetches(t *testing.T) {
	var dest cachedProfile
	err := CacheAside(context.Background(), nil, ProfileKey(1), &dest, ProfileTTL, func() error {
		return errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
}

func TestNewClient_ParsesURL(t *testing.T) {
	c, err := NewClient("redis://:secret@localhost:6390/2")
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, "localhost:6390", c.Options().Addr)
	assert.Equal(t, 2, c.Options().DB)

	_, err = NewClient("redis://%zz")
	assert.Error(t, err)
}
