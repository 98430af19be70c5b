package service

import (
	"context"
	"errors"
	"log"

	"codedepartament.ru/sbp/internal/modules/rating/dto"
	"codedepartament.ru/sbp/internal/modules/rating/repository"
	"codedepartament.ru/sbp/pkg/apperror"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RatingService interface {
	// RecomputeCompetition refreshes every participant of the competition,
	// since a new row changes the field size for all of them.
	RecomputeCompetition(ctx context.Context, competitionID uint) error
	RecomputeUsers(ctx context.Context, userIDs []uuid.UUID) error
	GetLeaderboard(ctx context.Context, q dto.LeaderboardQuery) ([]dto.LeaderboardEntry, error)
	GetRank(ctx context.Context, userID uuid.UUID) (*dto.RankResponse, error)
	SyncLeaderboard(ctx context.Context) (int, error)
}

type ratingService struct {
	repo  repository.RatingRepository
	cache repository.LeaderboardCache
}

// NewRatingService accepts a nil cache; the leaderboard is then served from the database.
func NewRatingService(repo repository.RatingRepository, cache repository.LeaderboardCache) RatingService {
	return &ratingService{repo: repo, cache: cache}
}

func (s *ratingService) RecomputeCompetition(ctx context.Context, competitionID uint) error {
	ids, err := s.repo.ParticipantUserIDs(ctx, competitionID)
	if err != nil {
		return err
	}
	return s.RecomputeUsers(ctx, ids)
}

func (s *ratingService) RecomputeUsers(ctx context.Context, userIDs []uuid.UUID) error {
	for _, id := range userIDs {
		history, err := s.repo.History(ctx, id)
		if err != nil {
			return err
		}
		if err := s.repo.SaveRating(ctx, id, CalculateRating(history)); err != nil {
			return err
		}
	}

	if s.cache == nil || len(userIDs) == 0 {
		return nil
	}
	users, err := s.repo.RatedUsers(ctx, userIDs)
	if err != nil {
		return err
	}
	// the database is authoritative, a stale cache is fixed by the nightly sync
	if err := s.cache.Store(ctx, users); err != nil {
		log.Printf("⚠️ Failed to update leaderboard cache: %v", err)
	}
	return nil
}

func (s *ratingService) GetLeaderboard(ctx context.Context, q dto.LeaderboardQuery) ([]dto.LeaderboardEntry, error) {
	if q.Limit == 0 {
		q.Limit = 10
	}

	var (
		users []repository.RatedUser
		err   error
	)
	if s.cache != nil {
		users, err = s.cache.Top(ctx, q.Offset, q.Limit)
		if err != nil {
			log.Printf("⚠️ Leaderboard cache unavailable, falling back to database: %v", err)
		}
	}
	if s.cache == nil || err != nil {
		users, err = s.repo.TopByRating(ctx, q.Offset, q.Limit)
		if err != nil {
			return nil, err
		}
	}

	entries := make([]dto.LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, dto.LeaderboardEntry{
			Position: q.Offset + i + 1,
			UserID:   u.UserID.String(),
			NickName: u.NickName,
			Rating:   u.Rating,
		})
	}
	return entries, nil
}

func (s *ratingService) GetRank(ctx context.Context, userID uuid.UUID) (*dto.RankResponse, error) {
	if s.cache != nil {
		rank, score, err := s.cache.Rank(ctx, userID.String())
		if err == nil {
			total, _ := s.cache.Total(ctx)
			return &dto.RankResponse{UserID: userID.String(), Rating: score, Rank: rank, Total: total}, nil
		}
		if !errors.Is(err, redis.Nil) {
			log.Printf("⚠️ Leaderboard cache unavailable, falling back to database: %v", err)
		}
	}

	users, err := s.repo.RatedUsers(ctx, []uuid.UUID{userID})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, apperror.ErrNotFound
	}

	higher, err := s.repo.CountHigher(ctx, users[0].Rating)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.CountAll(ctx)
	if err != nil {
		return nil, err
	}

	return &dto.RankResponse{
		UserID: userID.String(),
		Rating: users[0].Rating,
		Rank:   int(higher) + 1,
		Total:  total,
	}, nil
}

// SyncLeaderboard rebuilds the cache from profiles.
func (s *ratingService) SyncLeaderboard(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	users, err := s.repo.AllRatedUsers(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.cache.Store(ctx, users); err != nil {
		return 0, err
	}
	return len(users), nil
}
