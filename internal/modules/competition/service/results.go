package service

import (
	"context"
	"fmt"
	"log"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/internal/modules/competition/dto"
	ratingDto "codedepartament.ru/sbp/internal/modules/rating/dto"
	ratingSvc "codedepartament.ru/sbp/internal/modules/rating/service"
	"codedepartament.ru/sbp/pkg/apperror"
	"github.com/google/uuid"
)

type placement struct {
	userID uuid.UUID
	place  int
}

func parseResults(results []dto.ResultEntry) ([]placement, error) {
	if len(results) == 0 {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "results are empty")
	}
	seen := make(map[uuid.UUID]bool, len(results))
	out := make([]placement, 0, len(results))
	for _, r := range results {
		id, err := uuid.Parse(r.UserID)
		if err != nil {
			return nil, apperror.Wrap(apperror.ErrInvalidInput, "invalid user id %q", r.UserID)
		}
		if r.Place < 1 {
			return nil, apperror.Wrap(apperror.ErrInvalidInput, "place must be at least 1")
		}
		if seen[id] {
			return nil, apperror.Wrap(apperror.ErrInvalidInput, "user %s is listed twice", id)
		}
		seen[id] = true
		out = append(out, placement{userID: id, place: r.Place})
	}
	return out, nil
}

// DistributeResults stores final places of a completed competition in one
// transaction and then recomputes the ratings of its participants.
func (s *competitionService) DistributeResults(ctx context.Context, organizerID uuid.UUID, id uint, results []dto.ResultEntry) error {
	placements, err := parseResults(results)
	if err != nil {
		return err
	}

	var competition *entity.Competition
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.LockByID(ctx, id)
		if err != nil {
			return notFound(err, "competition")
		}
		if c.Status != entity.StatusCompleted {
			return apperror.Wrap(apperror.ErrInvalidState, "results can only be distributed for a completed competition")
		}
		if err := s.requireOrganizer(ctx, id, organizerID); err != nil {
			return err
		}

		rated, err := s.repo.IsRated(ctx, id)
		if err != nil {
			return err
		}
		if rated {
			return apperror.Wrap(apperror.ErrInvalidState, "results were already distributed")
		}

		fieldSize, err := s.repo.CountParticipants(ctx, id)
		if err != nil {
			return err
		}

		for _, p := range placements {
			if p.place > int(fieldSize) {
				return apperror.Wrap(apperror.ErrInvalidInput, "place %d exceeds the %d participants", p.place, fieldSize)
			}
			ok, err := s.repo.SetResult(ctx, id, p.userID, p.place)
			if err != nil {
				return err
			}
			if !ok {
				return apperror.Wrap(apperror.ErrInvalidInput, "user %s is not a participant", p.userID)
			}

			points := ratingSvc.PlacePoints(ratingDto.Participation{Place: p.place, FieldSize: int(fieldSize)})
			if err := s.repo.AddDisciplineStats(ctx, p.userID, c.DisciplineID, points); err != nil {
				return err
			}
		}

		competition = c
		return s.repo.MarkRated(ctx, id, organizerID)
	})
	if err != nil {
		return err
	}

	log.Printf("✅ Results of competition %d distributed (%d places)", id, len(placements))
	s.recompute(ctx, id)

	for _, p := range placements {
		s.notify(ctx, p.userID, entity.NotificationCompetitionResult,
			fmt.Sprintf("You took place %d in %q", p.place, competition.Name), id)
	}
	return nil
}

// recompute runs after commit. Ratings stay derivable from participant rows,
// so a failure here is logged and repaired by the next recompute.
func (s *competitionService) recompute(ctx context.Context, competitionID uint) {
	if s.ratings == nil {
		return
	}
	if err := s.ratings.RecomputeCompetition(ctx, competitionID); err != nil {
		log.Printf("❌ Failed to recompute ratings for competition %d: %v", competitionID, err)
	}
}
