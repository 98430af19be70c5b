package repository

import (
	"context"
	"time"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TeamRepository interface {
	// Create stores the team and its captain as the first member.
	Create(ctx context.Context, team *entity.Team) error
	FindByID(ctx context.Context, id uint) (*entity.Team, error)
	LockByID(ctx context.Context, id uint) (*entity.Team, error)
	CountByCompetition(ctx context.Context, competitionID uint) (int64, error)
	IsMember(ctx context.Context, teamID uint, userID uuid.UUID) (bool, error)
	// IsMemberInCompetition reports membership in any team of the competition.
	IsMemberInCompetition(ctx context.Context, competitionID uint, userID uuid.UUID) (bool, error)
	// AddMember inserts the member row and refreshes current_members.
	AddMember(ctx context.Context, teamID uint, userID uuid.UUID) error
	MemberIDs(ctx context.Context, teamID uint) ([]uuid.UUID, error)
	ListPublic(ctx context.Context, competitionID *uint) ([]entity.Team, error)
	ListByMember(ctx context.Context, userID uuid.UUID) ([]entity.Team, error)
	ListByCompetition(ctx context.Context, competitionID uint) ([]entity.Team, error)
}

type teamRepository struct {
	db *gorm.DB
}

func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) detailed(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db).
		Preload("Competition").
		Preload("Competition.Discipline").
		Preload("Captain").
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("joined_at") }).
		Preload("Members.Profile").
		Preload("Members.Profile.Region")
}

func (r *teamRepository) Create(ctx context.Context, team *entity.Team) error {
	return database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(team).Error; err != nil {
			return err
		}
		if team.CaptainID == nil {
			return nil
		}
		member := entity.TeamMember{TeamID: team.ID, UserID: *team.CaptainID, JoinedAt: time.Now()}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		team.Members = []entity.TeamMember{member}
		return nil
	})
}

func (r *teamRepository) FindByID(ctx context.Context, id uint) (*entity.Team, error) {
	var t entity.Team
	if err := r.detailed(ctx).First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *teamRepository) LockByID(ctx context.Context, id uint) (*entity.Team, error) {
	var t entity.Team
	err := database.Conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&t, id).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *teamRepository) CountByCompetition(ctx context.Context, competitionID uint) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&entity.Team{}).Where("competition_id = ?", competitionID).Count(&count).Error
	return count, err
}

func (r *teamRepository) IsMember(ctx context.Context, teamID uint, userID uuid.UUID) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&entity.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *teamRepository) IsMemberInCompetition(ctx context.Context, competitionID uint, userID uuid.UUID) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&entity.TeamMember{}).
		Joins("JOIN teams ON teams.id = team_members.team_id").
		Where("teams.competition_id = ? AND team_members.user_id = ?", competitionID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *teamRepository) AddMember(ctx context.Context, teamID uint, userID uuid.UUID) error {
	conn := database.Conn(ctx, r.db)
	member := entity.TeamMember{TeamID: teamID, UserID: userID, JoinedAt: time.Now()}
	if err := conn.Create(&member).Error; err != nil {
		return err
	}
	return conn.Model(&entity.Team{}).
		Where("id = ?", teamID).
		Update("current_members", gorm.Expr("(SELECT COUNT(*) FROM team_members WHERE team_id = ?)", teamID)).Error
}

func (r *teamRepository) MemberIDs(ctx context.Context, teamID uint) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := database.Conn(ctx, r.db).
		Model(&entity.TeamMember{}).
		Where("team_id = ?", teamID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *teamRepository) ListPublic(ctx context.Context, competitionID *uint) ([]entity.Team, error) {
	q := r.detailed(ctx).Where("is_private = ? AND current_members < max_members", false)
	if competitionID != nil {
		q = q.Where("competition_id = ?", *competitionID)
	}
	var out []entity.Team
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *teamRepository) ListByMember(ctx context.Context, userID uuid.UUID) ([]entity.Team, error) {
	var out []entity.Team
	err := r.detailed(ctx).
		Where("id IN (?)", database.Conn(ctx, r.db).Model(&entity.TeamMember{}).Select("team_id").Where("user_id = ?", userID)).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *teamRepository) ListByCompetition(ctx context.Context, competitionID uint) ([]entity.Team, error) {
	var out []entity.Team
	err := r.detailed(ctx).Where("competition_id = ?", competitionID).Order("id").Find(&out).Error
	return out, err
}
