package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	LeaderboardKey = "leaderboard:ratings"
	// NickKey maps user id to nick name for display.
	NickKey    = "leaderboard:nicks"
	VersionKey = "leaderboard:version"
)

type LeaderboardCache interface {
	Store(ctx context.Context, users []RatedUser) error
	Top(ctx context.Context, offset, limit int) ([]RatedUser, error)
	Rank(ctx context.Context, userID string) (int, float64, error)
	Total(ctx context.Context) (int64, error)
	Version(ctx context.Context) (int64, error)
}

type redisLeaderboard struct {
	client *redis.Client
}

func NewLeaderboardCache(client *redis.Client) LeaderboardCache {
	return &redisLeaderboard{client: client}
}

// Store writes scores in one pipeline and bumps the version once.
func (r *redisLeaderboard) Store(ctx context.Context, users []RatedUser) error {
	if len(users) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for _, u := range users {
		id := u.UserID.String()
		pipe.ZAdd(ctx, LeaderboardKey, redis.Z{Score: u.Rating, Member: id})
		pipe.HSet(ctx, NickKey, id, u.NickName)
	}
	pipe.Incr(ctx, VersionKey)

	_, err := pipe.Exec(ctx)
	return err
}

func (r *redisLeaderboard) Top(ctx context.Context, offset, limit int) ([]RatedUser, error) {
	zs, err := r.client.ZRevRangeWithScores(ctx, LeaderboardKey, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(zs) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(zs))
	for _, z := range zs {
		ids = append(ids, fmt.Sprint(z.Member))
	}
	nicks, err := r.client.HMGet(ctx, NickKey, ids...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]RatedUser, 0, len(zs))
	for i, z := range zs {
		u := RatedUser{Rating: z.Score}
		if err := u.UserID.UnmarshalText([]byte(ids[i])); err != nil {
			continue
		}
		if nick, ok := nicks[i].(string); ok {
			u.NickName = nick
		}
		out = append(out, u)
	}
	return out, nil
}

// Rank is 1 + the number of users with a strictly higher rating, so ties share a rank.
func (r *redisLeaderboard) Rank(ctx context.Context, userID string) (int, float64, error) {
	score, err := r.client.ZScore(ctx, LeaderboardKey, userID).Result()
	if err != nil {
		return 0, 0, err
	}

	count, err := r.client.ZCount(ctx, LeaderboardKey, fmt.Sprintf("(%f", score), "+inf").Result()
	if err != nil {
		return 0, 0, err
	}
	return int(count) + 1, score, nil
}

func (r *redisLeaderboard) Total(ctx context.Context) (int64, error) {
	return r.client.ZCard(ctx, LeaderboardKey).Result()
}

func (r *redisLeaderboard) Version(ctx context.Context) (int64, error) {
	v, err := r.client.Get(ctx, VersionKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return v, err
}
