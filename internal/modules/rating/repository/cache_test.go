package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) LeaderboardCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLeaderboardCache(client)
}

func TestLeaderboardCacheOrderingAndRank(t *testing.T) {
	cache := newCache(t)
	ctx := context.Background()

	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, cache.Store(ctx, []RatedUser{
		{UserID: alice, NickName: "alice", Rating: 120.5},
		{UserID: bob, NickName: "bob", Rating: 80},
		{UserID: carol, NickName: "carol", Rating: 120.5},
	}))

	top, err := cache.Top(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, 120.5, top[0].Rating)
	assert.Equal(t, "bob", top[2].NickName)

	rank, score, err := cache.Rank(ctx, bob.String())
	require.NoError(t, err)
	assert.Equal(t, 3, rank)
	assert.Equal(t, 80.0, score)

	// equal ratings share a rank
	ra, _, _ := cache.Rank(ctx, alice.String())
	rc, _, _ := cache.Rank(ctx, carol.String())
	assert.Equal(t, 1, ra)
	assert.Equal(t, 1, rc)

	total, err := cache.Total(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
}

func TestLeaderboardCacheVersionBumpsPerStore(t *testing.T) {
	cache := newCache(t)
	ctx := context.Background()

	v, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Zero(t, v)

	require.NoError(t, cache.Store(ctx, []RatedUser{{UserID: uuid.New(), Rating: 1}, {UserID: uuid.New(), Rating: 2}}))
	require.NoError(t, cache.Store(ctx, []RatedUser{{UserID: uuid.New(), Rating: 3}}))
	require.NoError(t, cache.Store(ctx, nil))

	v, err = cache.Version(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, v)
}

func TestLeaderboardCacheRankUnknownUser(t *testing.T) {
	cache := newCache(t)
	_, _, err := cache.Rank(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, redis.Nil)
}
