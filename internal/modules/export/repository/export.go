package repository

import (
	"context"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExportRepository interface {
	// Competitions returns one competition when id is set, every competition otherwise.
	Competitions(ctx context.Context, id *uint) ([]entity.Competition, error)
	Participants(ctx context.Context, competitionID uint) ([]entity.CompetitionParticipant, error)
	Teams(ctx context.Context, competitionID uint) ([]entity.Team, error)
	NickNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

type exportRepository struct {
	db *gorm.DB
}

func NewExportRepository(db *gorm.DB) ExportRepository {
	return &exportRepository{db: db}
}

func (r *exportRepository) Competitions(ctx context.Context, id *uint) ([]entity.Competition, error) {
	q := database.Conn(ctx, r.db).Preload("Discipline").Preload("Dates")
	if id != nil {
		q = q.Where("id = ?", *id)
	}

	var out []entity.Competition
	err := q.Order("id").Find(&out).Error
	return out, err
}

func (r *exportRepository) Participants(ctx context.Context, competitionID uint) ([]entity.CompetitionParticipant, error) {
	var out []entity.CompetitionParticipant
	err := database.Conn(ctx, r.db).
		Preload("Profile.Region").
		Where("competition_id = ?", competitionID).
		Order("id").
		Find(&out).Error
	return out, err
}

func (r *exportRepository) Teams(ctx context.Context, competitionID uint) ([]entity.Team, error) {
	var out []entity.Team
	err := database.Conn(ctx, r.db).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("joined_at") }).
		Preload("Members.Profile.Region").
		Where("competition_id = ?", competitionID).
		Order("id").
		Find(&out).Error
	return out, err
}

func (r *exportRepository) NickNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []entity.User
	if err := database.Conn(ctx, r.db).Select("id", "nick_name").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u.NickName
	}
	return out, nil
}
