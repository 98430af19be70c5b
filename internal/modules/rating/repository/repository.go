package repository

import (
	"context"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/internal/modules/rating/dto"
	"codedepartament.ru/sbp/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RatedUser struct {
	UserID   uuid.UUID
	NickName string
	Rating   float64
}

type RatingRepository interface {
	History(ctx context.Context, userID uuid.UUID) ([]dto.Participation, error)
	ParticipantUserIDs(ctx context.Context, competitionID uint) ([]uuid.UUID, error)
	SaveRating(ctx context.Context, userID uuid.UUID, rating float64) error
	RatedUsers(ctx context.Context, ids []uuid.UUID) ([]RatedUser, error)
	AllRatedUsers(ctx context.Context) ([]RatedUser, error)
	TopByRating(ctx context.Context, offset, limit int) ([]RatedUser, error)
	CountHigher(ctx context.Context, rating float64) (int64, error)
	CountAll(ctx context.Context) (int64, error)
}

type ratingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) RatingRepository {
	return &ratingRepository{db: db}
}

func (r *ratingRepository) History(ctx context.Context, userID uuid.UUID) ([]dto.Participation, error) {
	var rows []struct {
		Result    int
		FieldSize int
	}
	err := database.Conn(ctx, r.db).
		Table("competition_participants AS cp").
		Select("cp.result, (SELECT COUNT(*) FROM competition_participants x WHERE x.competition_id = cp.competition_id) AS field_size").
		Where("cp.user_id = ?", userID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	history := make([]dto.Participation, 0, len(rows))
	for _, row := range rows {
		history = append(history, dto.Participation{Place: row.Result, FieldSize: row.FieldSize})
	}
	return history, nil
}

func (r *ratingRepository) ParticipantUserIDs(ctx context.Context, competitionID uint) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := database.Conn(ctx, r.db).
		Model(&entity.CompetitionParticipant{}).
		Where("competition_id = ?", competitionID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *ratingRepository) SaveRating(ctx context.Context, userID uuid.UUID, rating float64) error {
	return database.Conn(ctx, r.db).
		Model(&entity.Profile{}).
		Where("user_id = ?", userID).
		Update("rating", rating).Error
}

func (r *ratingRepository) ratedUsers(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db).
		Table("profiles").
		Select("profiles.user_id, users.nick_name, profiles.rating").
		Joins("JOIN users ON users.id = profiles.user_id")
}

func (r *ratingRepository) RatedUsers(ctx context.Context, ids []uuid.UUID) ([]RatedUser, error) {
	var out []RatedUser
	if len(ids) == 0 {
		return out, nil
	}
	err := r.ratedUsers(ctx).Where("profiles.user_id IN ?", ids).Scan(&out).Error
	return out, err
}

func (r *ratingRepository) AllRatedUsers(ctx context.Context) ([]RatedUser, error) {
	var out []RatedUser
	err := r.ratedUsers(ctx).Scan(&out).Error
	return out, err
}

func (r *ratingRepository) TopByRating(ctx context.Context, offset, limit int) ([]RatedUser, error) {
	var out []RatedUser
	err := r.ratedUsers(ctx).
		Order("profiles.rating DESC, users.nick_name ASC").
		Offset(offset).Limit(limit).
		Scan(&out).Error
	return out, err
}

func (r *ratingRepository) CountHigher(ctx context.Context, rating float64) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&entity.Profile{}).Where("rating > ?", rating).Count(&count).Error
	return count, err
}

func (r *ratingRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&entity.Profile{}).Count(&count).Error
	return count, err
}
