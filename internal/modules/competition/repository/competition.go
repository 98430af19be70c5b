package repository

import (
	"context"
	"fmt"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ListFilter struct {
	Status       *entity.CompetitionStatus
	DisciplineID *uint
	Kind         *entity.CompetitionKind
	Format       *entity.CompetitionFormat
}

type CompetitionRepository interface {
	Create(ctx context.Context, competition *entity.Competition, organizerID uuid.UUID) error
	FindByID(ctx context.Context, id uint) (*entity.Competition, error)
	// LockByID reads the row with FOR UPDATE; call it inside a transaction.
	LockByID(ctx context.Context, id uint) (*entity.Competition, error)
	List(ctx context.Context, filter ListFilter, offset, limit int) ([]entity.Competition, int64, error)
	ListPending(ctx context.Context) ([]entity.Competition, error)
	ListForRegion(ctx context.Context, regionID uint) ([]entity.Competition, error)
	ListForRefresh(ctx context.Context) ([]entity.Competition, error)
	Delete(ctx context.Context, id uint) error
	// UpdateStatusIf writes to only while the stored status is still from.
	UpdateStatusIf(ctx context.Context, id uint, from, to entity.CompetitionStatus) (bool, error)

	FindOrganizer(ctx context.Context, competitionID uint, userID uuid.UUID) (*entity.CompetitionOrganizer, error)
	ListOrganized(ctx context.Context, userID uuid.UUID) ([]entity.CompetitionOrganizer, error)
	OrganizerIDs(ctx context.Context, competitionID uint) ([]uuid.UUID, error)
	IsRated(ctx context.Context, competitionID uint) (bool, error)
	MarkRated(ctx context.Context, competitionID uint, userID uuid.UUID) error

	ListParticipants(ctx context.Context, competitionID uint) ([]entity.CompetitionParticipant, error)
	CountParticipants(ctx context.Context, competitionID uint) (int64, error)
	IsParticipant(ctx context.Context, competitionID uint, userID uuid.UUID) (bool, error)
	// AddParticipants skips users that already take part and reports how many rows were added.
	AddParticipants(ctx context.Context, competitionID uint, userIDs []uuid.UUID) (int64, error)
	SetResult(ctx context.Context, competitionID uint, userID uuid.UUID, place int) (bool, error)
	AddDisciplineStats(ctx context.Context, userID uuid.UUID, disciplineID uint, points float64) error
}

type competitionRepository struct {
	db *gorm.DB
}

func NewCompetitionRepository(db *gorm.DB) CompetitionRepository {
	return &competitionRepository{db: db}
}

func (r *competitionRepository) detailed(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db).Preload("Discipline").Preload("Dates")
}

func (r *competitionRepository) Create(ctx context.Context, competition *entity.Competition, organizerID uuid.UUID) error {
	return database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Dates", "Discipline").Create(competition).Error; err != nil {
			return err
		}

		if competition.Dates != nil {
			competition.Dates.CompetitionID = competition.ID
			if err := tx.Create(competition.Dates).Error; err != nil {
				return err
			}
		}

		organizer := &entity.CompetitionOrganizer{UserID: organizerID, CompetitionID: competition.ID}
		return tx.Create(organizer).Error
	})
}

func (r *competitionRepository) FindByID(ctx context.Context, id uint) (*entity.Competition, error) {
	var c entity.Competition
	if err := r.detailed(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *competitionRepository) LockByID(ctx context.Context, id uint) (*entity.Competition, error) {
	var c entity.Competition
	err := database.Conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *competitionRepository) List(ctx context.Context, filter ListFilter, offset, limit int) ([]entity.Competition, int64, error) {
	q := database.Conn(ctx, r.db).Model(&entity.Competition{})
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	} else {
		q = q.Where("status <> ?", entity.StatusPending)
	}
	if filter.DisciplineID != nil {
		q = q.Where("discipline_id = ?", *filter.DisciplineID)
	}
	if filter.Kind != nil {
		q = q.Where("kind = ?", *filter.Kind)
	}
	if filter.Format != nil {
		q = q.Where("format = ?", *filter.Format)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []entity.Competition
	err := q.Preload("Discipline").Preload("Dates").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&out).Error
	return out, total, err
}

func (r *competitionRepository) ListPending(ctx context.Context) ([]entity.Competition, error) {
	var out []entity.Competition
	err := r.detailed(ctx).Where("status = ?", entity.StatusPending).Order("created_at").Find(&out).Error
	return out, err
}

func (r *competitionRepository) ListForRegion(ctx context.Context, regionID uint) ([]entity.Competition, error) {
	var out []entity.Competition
	err := r.detailed(ctx).
		Where("permissions @> ?::jsonb", fmt.Sprintf("[%d]", regionID)).
		Where("status NOT IN ?", []entity.CompetitionStatus{entity.StatusPending, entity.StatusFinished}).
		Order("id").
		Find(&out).Error
	return out, err
}

func (r *competitionRepository) ListForRefresh(ctx context.Context) ([]entity.Competition, error) {
	var out []entity.Competition
	err := database.Conn(ctx, r.db).
		Preload("Dates").
		Joins("JOIN competition_dates ON competition_dates.competition_id = competitions.id").
		Order("competitions.id").
		Find(&out).Error
	return out, err
}

func (r *competitionRepository) Delete(ctx context.Context, id uint) error {
	return database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&entity.CompetitionOrganizer{}, "competition_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&entity.CompetitionDate{}, "competition_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.Competition{}, id).Error
	})
}

func (r *competitionRepository) UpdateStatusIf(ctx context.Context, id uint, from, to entity.CompetitionStatus) (bool, error) {
	res := database.Conn(ctx, r.db).
		Model(&entity.Competition{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

func (r *competitionRepository) FindOrganizer(ctx context.Context, competitionID uint, userID uuid.UUID) (*entity.CompetitionOrganizer, error) {
	var o entity.CompetitionOrganizer
	err := database.Conn(ctx, r.db).
		Where("competition_id = ? AND user_id = ?", competitionID, userID).
		First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *competitionRepository) ListOrganized(ctx context.Context, userID uuid.UUID) ([]entity.CompetitionOrganizer, error) {
	var out []entity.CompetitionOrganizer
	err := database.Conn(ctx, r.db).
		Preload("Competition").
		Preload("Competition.Discipline").
		Preload("Competition.Dates").
		Where("user_id = ?", userID).
		Order("competition_id DESC").
		Find(&out).Error
	return out, err
}

func (r *competitionRepository) OrganizerIDs(ctx context.Context, competitionID uint) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := database.Conn(ctx, r.db).
		Model(&entity.CompetitionOrganizer{}).
		Where("competition_id = ?", competitionID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *competitionRepository) IsRated(ctx context.Context, competitionID uint) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&entity.CompetitionOrganizer{}).
		Where("competition_id = ? AND rated = ?", competitionID, true).
		Count(&count).Error
	return count > 0, err
}

func (r *competitionRepository) MarkRated(ctx context.Context, competitionID uint, userID uuid.UUID) error {
	return database.Conn(ctx, r.db).
		Model(&entity.CompetitionOrganizer{}).
		Where("competition_id = ? AND user_id = ?", competitionID, userID).
		Update("rated", true).Error
}

func (r *competitionRepository) ListParticipants(ctx context.Context, competitionID uint) ([]entity.CompetitionParticipant, error) {
	var out []entity.CompetitionParticipant
	err := database.Conn(ctx, r.db).
		Preload("Profile").
		Preload("Profile.Region").
		Where("competition_id = ?", competitionID).
		Order("CASE WHEN result = 0 THEN 1 ELSE 0 END, result, id").
		Find(&out).Error
	return out, err
}

func (r *competitionRepository) CountParticipants(ctx context.Context, competitionID uint) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&entity.CompetitionParticipant{}).
		Where("competition_id = ?", competitionID).
		Count(&count).Error
	return count, err
}

func (r *competitionRepository) IsParticipant(ctx context.Context, competitionID uint, userID uuid.UUID) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&entity.CompetitionParticipant{}).
		Where("competition_id = ? AND user_id = ?", competitionID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *competitionRepository) AddParticipants(ctx context.Context, competitionID uint, userIDs []uuid.UUID) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	rows := make([]entity.CompetitionParticipant, 0, len(userIDs))
	for _, id := range userIDs {
		rows = append(rows, entity.CompetitionParticipant{CompetitionID: competitionID, UserID: id})
	}
	res := database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows)
	return res.RowsAffected, res.Error
}

func (r *competitionRepository) SetResult(ctx context.Context, competitionID uint, userID uuid.UUID, place int) (bool, error) {
	res := database.Conn(ctx, r.db).
		Model(&entity.CompetitionParticipant{}).
		Where("competition_id = ? AND user_id = ?", competitionID, userID).
		Update("result", place)
	return res.RowsAffected > 0, res.Error
}

func (r *competitionRepository) AddDisciplineStats(ctx context.Context, userID uuid.UUID, disciplineID uint, points float64) error {
	stats := entity.UserDisciplineStats{
		UserID:            userID,
		DisciplineID:      disciplineID,
		CompetitionsCount: 1,
		PointsCount:       points,
	}
	return database.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "discipline_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"competitions_count": gorm.Expr("user_discipline_stats.competitions_count + 1"),
			"points_count":       gorm.Expr("user_discipline_stats.points_count + ?", points),
		}),
	}).Create(&stats).Error
}
