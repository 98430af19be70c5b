package repository

import (
	"context"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ApplicationRepository interface {
	Create(ctx context.Context, app *entity.UserApplication) error
	FindByID(ctx context.Context, id uint) (*entity.UserApplication, error)
	LockByID(ctx context.Context, id uint) (*entity.UserApplication, error)
	// HasLive reports a pending or accepted application of the user.
	HasLive(ctx context.Context, userID uuid.UUID, competitionID uint) (bool, error)
	// Resolve moves a pending application to status; false when it already left pending.
	Resolve(ctx context.Context, id uint, status entity.DecisionStatus, reason *string) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.UserApplication, error)
	ListPendingForOrganizer(ctx context.Context, organizerID uuid.UUID) ([]entity.UserApplication, error)
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, app *entity.UserApplication) error {
	return database.Conn(ctx, r.db).Omit(clause.Associations).Create(app).Error
}

func (r *applicationRepository) FindByID(ctx context.Context, id uint) (*entity.UserApplication, error) {
	var app entity.UserApplication
	if err := database.Conn(ctx, r.db).First(&app, id).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) LockByID(ctx context.Context, id uint) (*entity.UserApplication, error) {
	var app entity.UserApplication
	err := database.Conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&app, id).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) HasLive(ctx context.Context, userID uuid.UUID, competitionID uint) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&entity.UserApplication{}).
		Where("user_id = ? AND competition_id = ? AND status <> ?", userID, competitionID, entity.DecisionRejected).
		Count(&count).Error
	return count > 0, err
}

func (r *applicationRepository) Resolve(ctx context.Context, id uint, status entity.DecisionStatus, reason *string) (bool, error) {
	res := database.Conn(ctx, r.db).
		Model(&entity.UserApplication{}).
		Where("id = ? AND status = ?", id, entity.DecisionPending).
		Updates(map[string]any{"status": status, "reason": reason})
	return res.RowsAffected > 0, res.Error
}

func (r *applicationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.UserApplication, error) {
	var out []entity.UserApplication
	err := database.Conn(ctx, r.db).
		Preload("Competition").
		Preload("Competition.Discipline").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *applicationRepository) ListPendingForOrganizer(ctx context.Context, organizerID uuid.UUID) ([]entity.UserApplication, error) {
	var out []entity.UserApplication
	err := database.Conn(ctx, r.db).
		Preload("Profile").
		Preload("Profile.Region").
		Preload("Competition").
		Where("status = ?", entity.DecisionPending).
		Where("competition_id IN (?)",
			database.Conn(ctx, r.db).Model(&entity.CompetitionOrganizer{}).Select("competition_id").Where("user_id = ?", organizerID)).
		Order("created_at").
		Find(&out).Error
	return out, err
}
