package service

import (
	"context"
	"sort"
	"testing"

	"codedepartament.ru/sbp/internal/modules/rating/dto"
	"codedepartament.ru/sbp/internal/modules/rating/repository"
	"codedepartament.ru/sbp/pkg/apperror"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type participant struct {
	competition uint
	user        uuid.UUID
	place       int
}

type fakeRepo struct {
	rows    []participant
	nicks   map[uuid.UUID]string
	ratings map[uuid.UUID]float64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nicks: map[uuid.UUID]string{}, ratings: map[uuid.UUID]float64{}}
}

func (f *fakeRepo) addUser(nick string) uuid.UUID {
	id := uuid.New()
	f.nicks[id] = nick
	f.ratings[id] = 0
	return id
}

func (f *fakeRepo) History(_ context.Context, userID uuid.UUID) ([]dto.Participation, error) {
	var out []dto.Participation
	for _, r := range f.rows {
		if r.user != userID {
			continue
		}
		n := 0
		for _, o := range f.rows {
			if o.competition == r.competition {
				n++
			}
		}
		out = append(out, dto.Participation{Place: r.place, FieldSize: n})
	}
	return out, nil
}

func (f *fakeRepo) ParticipantUserIDs(_ context.Context, competitionID uint) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, r := range f.rows {
		if r.competition == competitionID {
			ids = append(ids, r.user)
		}
	}
	return ids, nil
}

func (f *fakeRepo) SaveRating(_ context.Context, userID uuid.UUID, rating float64) error {
	f.ratings[userID] = rating
	return nil
}

func (f *fakeRepo) RatedUsers(_ context.Context, ids []uuid.UUID) ([]repository.RatedUser, error) {
	var out []repository.RatedUser
	for _, id := range ids {
		if nick, ok := f.nicks[id]; ok {
			out = append(out, repository.RatedUser{UserID: id, NickName: nick, Rating: f.ratings[id]})
		}
	}
	return out, nil
}

func (f *fakeRepo) AllRatedUsers(ctx context.Context) ([]repository.RatedUser, error) {
	ids := make([]uuid.UUID, 0, len(f.nicks))
	for id := range f.nicks {
		ids = append(ids, id)
	}
	return f.RatedUsers(ctx, ids)
}

func (f *fakeRepo) TopByRating(ctx context.Context, offset, limit int) ([]repository.RatedUser, error) {
	all, _ := f.AllRatedUsers(ctx)
	sort.Slice(all, func(i, j int) bool {
		if all[i].Rating != all[j].Rating {
			return all[i].Rating > all[j].Rating
		}
		return all[i].NickName < all[j].NickName
	})
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (f *fakeRepo) CountHigher(_ context.Context, rating float64) (int64, error) {
	var n int64
	for _, r := range f.ratings {
		if r > rating {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) CountAll(context.Context) (int64, error) {
	return int64(len(f.ratings)), nil
}

func TestRecomputeCompetitionUpdatesEveryParticipant(t *testing.T) {
	repo := newFakeRepo()
	a, b := repo.addUser("a"), repo.addUser("b")
	repo.rows = []participant{{1, a, 1}, {1, b, 2}}

	svc := NewRatingService(repo, nil)
	require.NoError(t, svc.RecomputeCompetition(context.Background(), 1))
	before := repo.ratings[a]
	assert.Greater(t, before, repo.ratings[b])

	// a third participant changes the field size for everyone
	c := repo.addUser("c")
	repo.rows = append(repo.rows, participant{1, c, 3})
	require.NoError(t, svc.RecomputeCompetition(context.Background(), 1))
	assert.NotEqual(t, before, repo.ratings[a])
	assert.Equal(t, CalculateRating([]dto.Participation{{Place: 1, FieldSize: 3}}), repo.ratings[a])
}

func TestLeaderboardFromDatabaseWithoutCache(t *testing.T) {
	repo := newFakeRepo()
	a, b := repo.addUser("a"), repo.addUser("b")
	repo.ratings[a], repo.ratings[b] = 10, 20

	svc := NewRatingService(repo, nil)
	entries, err := svc.GetLeaderboard(context.Background(), dto.LeaderboardQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].NickName)
	assert.Equal(t, 1, entries[0].Position)

	rank, err := svc.GetRank(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 2, rank.Rank)
	assert.EqualValues(t, 2, rank.Total)

	_, err = svc.GetRank(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestRecomputeWritesThroughToCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newFakeRepo()
	a, b := repo.addUser("a"), repo.addUser("b")
	repo.rows = []participant{{7, a, 2}, {7, b, 1}}

	svc := NewRatingService(repo, repository.NewLeaderboardCache(client))
	require.NoError(t, svc.RecomputeCompetition(context.Background(), 7))

	entries, err := svc.GetLeaderboard(context.Background(), dto.LeaderboardQuery{Limit: 5})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].NickName)
	assert.Equal(t, repo.ratings[b], entries[0].Rating)

	rank, err := svc.GetRank(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, 2, rank.Rank)
}

func TestSyncLeaderboard(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newFakeRepo()
	repo.addUser("a")
	repo.addUser("b")

	svc := NewRatingService(repo, repository.NewLeaderboardCache(client))
	n, err := svc.SyncLeaderboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	card, err := client.ZCard(context.Background(), repository.LeaderboardKey).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 2, card)
}
