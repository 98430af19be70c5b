package repository

import (
	"context"
	"time"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryRow is one participation joined with its competition.
type HistoryRow struct {
	CompetitionID  uint
	Name           string
	DisciplineName string
	Kind           entity.CompetitionKind
	EndDate        *time.Time
	Result         int
	FieldSize      int
}

type UserRepository interface {
	Create(ctx context.Context, user *entity.User, profile *entity.Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByLogin(ctx context.Context, login string) (*entity.User, error)
	FindByTgUsername(ctx context.Context, username string) (*entity.User, error)
	ExistsNickName(ctx context.Context, nick string) (bool, error)
	ExistsEmail(ctx context.Context, email string) (bool, error)
	UpdateUser(ctx context.Context, user *entity.User) error
	UpdateProfile(ctx context.Context, profile *entity.Profile) error
	ListPendingApproval(ctx context.Context) ([]entity.User, error)
	Approve(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByRating(ctx context.Context, offset, limit int) ([]entity.User, int64, error)
	ListRegionalRepresentatives(ctx context.Context, regionID *uint) ([]entity.User, error)
	ListModeratorIDs(ctx context.Context) ([]uuid.UUID, error)
	History(ctx context.Context, userID uuid.UUID) ([]HistoryRow, error)
	DisciplineStats(ctx context.Context, userID uuid.UUID) ([]entity.UserDisciplineStats, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User, profile *entity.Profile) error {
	return database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		profile.UserID = user.ID
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		user.Profile = profile

		return nil
	})
}

func (r *userRepository) withProfile(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db).Preload("Profile").Preload("Profile.Region")
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	if err := r.withProfile(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByLogin(ctx context.Context, login string) (*entity.User, error) {
	var user entity.User
	if err := r.withProfile(ctx).
		Where("nick_name = ? OR LOWER(email) = LOWER(?)", login, login).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByTgUsername(ctx context.Context, username string) (*entity.User, error) {
	var user entity.User
	if err := r.withProfile(ctx).
		Joins("JOIN profiles ON profiles.user_id = users.id").
		Where("LOWER(profiles.tg_username) = LOWER(?)", username).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ExistsNickName(ctx context.Context, nick string) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&entity.User{}).Where("nick_name = ?", nick).Count(&count).Error
	return count > 0, err
}

func (r *userRepository) ExistsEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&entity.User{}).Where("LOWER(email) = LOWER(?)", email).Count(&count).Error
	return count > 0, err
}

func (r *userRepository) UpdateUser(ctx context.Context, user *entity.User) error {
	return database.Conn(ctx, r.db).Model(user).Select("email").Updates(user).Error
}

// UpdateProfile never touches region, role, approval or rating.
func (r *userRepository) UpdateProfile(ctx context.Context, profile *entity.Profile) error {
	return database.Conn(ctx, r.db).
		Model(&entity.Profile{}).
		Where("user_id = ?", profile.UserID).
		Select("surname", "name", "patronymic", "birthday", "tg_username").
		Updates(profile).Error
}

func (r *userRepository) ListPendingApproval(ctx context.Context) ([]entity.User, error) {
	var users []entity.User
	err := r.withProfile(ctx).
		Joins("JOIN profiles ON profiles.user_id = users.id").
		Where("profiles.is_approved = ? AND profiles.role > ?", false, entity.RoleOrdinary).
		Order("users.date_joined").
		Find(&users).Error
	return users, err
}

func (r *userRepository) Approve(ctx context.Context, id uuid.UUID) error {
	return database.Conn(ctx, r.db).
		Model(&entity.Profile{}).
		Where("user_id = ?", id).
		Update("is_approved", true).Error
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&entity.Profile{}, "user_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.User{}, "id = ?", id).Error
	})
}

func (r *userRepository) ListByRating(ctx context.Context, offset, limit int) ([]entity.User, int64, error) {
	base := database.Conn(ctx, r.db).
		Model(&entity.User{}).
		Joins("JOIN profiles ON profiles.user_id = users.id").
		Where("profiles.role = ?", entity.RoleOrdinary)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []entity.User
	err := base.
		Preload("Profile").
		Preload("Profile.Region").
		Order("profiles.rating DESC, users.nick_name").
		Offset(offset).Limit(limit).
		Find(&users).Error
	return users, total, err
}

func (r *userRepository) ListRegionalRepresentatives(ctx context.Context, regionID *uint) ([]entity.User, error) {
	q := r.withProfile(ctx).
		Joins("JOIN profiles ON profiles.user_id = users.id").
		Where("profiles.role = ? AND profiles.is_approved = ?", entity.RoleRegionalRep, true)
	if regionID != nil {
		q = q.Where("profiles.region_id = ?", *regionID)
	}

	var users []entity.User
	err := q.Order("profiles.region_id, profiles.surname").Find(&users).Error
	return users, err
}

func (r *userRepository) ListModeratorIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := database.Conn(ctx, r.db).
		Model(&entity.Profile{}).
		Where("role = ? AND is_approved = ?", entity.RoleModerator, true).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *userRepository) History(ctx context.Context, userID uuid.UUID) ([]HistoryRow, error) {
	var rows []HistoryRow
	err := database.Conn(ctx, r.db).
		Table("competition_participants AS cp").
		Select(`cp.competition_id, c.name, d.name AS discipline_name, c.kind, cd.end_date, cp.result,
			(SELECT COUNT(*) FROM competition_participants x WHERE x.competition_id = cp.competition_id) AS field_size`).
		Joins("JOIN competitions c ON c.id = cp.competition_id").
		Joins("JOIN disciplines d ON d.id = c.discipline_id").
		Joins("LEFT JOIN competition_dates cd ON cd.competition_id = c.id").
		Where("cp.user_id = ?", userID).
		Order("cd.end_date DESC NULLS LAST").
		Scan(&rows).Error
	return rows, err
}

func (r *userRepository) DisciplineStats(ctx context.Context, userID uuid.UUID) ([]entity.UserDisciplineStats, error) {
	var stats []entity.UserDisciplineStats
	err := database.Conn(ctx, r.db).
		Preload("Discipline").
		Where("user_id = ?", userID).
		Order("points_count DESC").
		Find(&stats).Error
	return stats, err
}
