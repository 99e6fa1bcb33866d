package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedThing struct {
	Name string `json:"name"`
}

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestAside_MissThenHit(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedThing) func() error {
		return func() error {
			calls++
			dest.Name = "from-db"
			return nil
		}
	}

	var first cachedThing
	require.NoError(t, Aside(ctx, UserKey("u1"), &first, time.Minute, fetch(&first)))
	assert.Equal(t, "from-db", first.Name)
	assert.True(t, mr.Exists("user:u1"))

	var second cachedThing
	require.NoError(t, Aside(ctx, UserKey("u1"), &second, time.Minute, fetch(&second)))
	assert.Equal(t, "from-db", second.Name)
	assert.Equal(t, 1, calls)

	InvalidateUser(ctx, "u1")
	assert.False(t, mr.Exists("user:u1"))
}

func TestAside_FetchErrorNotCached(t *testing.T) {
	mr := withMiniredis(t)

	var dest cachedThing
	err := Aside(context.Background(), "k", &dest, time.Minute, func() error {
		return errors.New("db down")
	})
	assert.EqualError(t, err, "db down")
	assert.False(t, mr.Exists("k"))
}

func TestAside_NilClientFallsThrough(t *testing.T) {
	SetClient(nil)

	var dest cachedThing
	err := Aside(context.Background(), "k", &dest, time.Minute, func() error {
		dest.Name = "direct"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "direct", dest.Name)
	Invalidate(context.Background(), "k")
}

func TestAside_CorruptEntryRefetches(t *testing.T) {
	mr := withMiniredis(t)
	require.NoError(t, mr.Set("k", "{not json"))

	var dest cachedThing
	err := Aside(context.Background(), "k", &dest, time.Minute, func() error {
		dest.Name = "fresh"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", dest.Name)
}

func TestInitRedis_InvalidURL(t *testing.T) {
	InitRedis("redis://%zz")
	assert.Nil(t, GetClient())
}

func TestInitRedis_Miniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	InitRedis(mr.Addr())
	t.Cleanup(func() { SetClient(nil) })
	assert.NotNil(t, GetClient())
}
