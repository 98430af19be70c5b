package repository

import (
	"context"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvitationRepository interface {
	Create(ctx context.Context, inv *entity.Invitation) error
	FindByID(ctx context.Context, id uint) (*entity.Invitation, error)
	LockByID(ctx context.Context, id uint) (*entity.Invitation, error)
	HasPending(ctx context.Context, teamID uint, userID uuid.UUID) (bool, error)
	Resolve(ctx context.Context, id uint, status entity.DecisionStatus) (bool, error)
	// DeletePending removes the team's open invitations and reports how many went.
	DeletePending(ctx context.Context, teamID uint) (int64, error)
	ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]entity.Invitation, error)
}

type TeamApplicationRepository interface {
	Create(ctx context.Context, app *entity.TeamApplication) error
	LockByID(ctx context.Context, id uint) (*entity.TeamApplication, error)
	// HasLive reports a pending or accepted application of the team.
	HasLive(ctx context.Context, teamID uint) (bool, error)
	CountAccepted(ctx context.Context, competitionID uint) (int64, error)
	Resolve(ctx context.Context, id uint, status entity.DecisionStatus, reason *string) (bool, error)
	// AcceptedTeamIDs filters teamIDs down to teams with an accepted application.
	AcceptedTeamIDs(ctx context.Context, teamIDs []uint) (map[uint]bool, error)
	ListPendingForOrganizer(ctx context.Context, organizerID uuid.UUID) ([]entity.TeamApplication, error)
}

type VacancyRepository interface {
	Create(ctx context.Context, resp *entity.VacancyResponse) error
	FindByID(ctx context.Context, id uint) (*entity.VacancyResponse, error)
	LockByID(ctx context.Context, id uint) (*entity.VacancyResponse, error)
	HasPending(ctx context.Context, teamID uint, userID uuid.UUID) (bool, error)
	Resolve(ctx context.Context, id uint, status entity.DecisionStatus) (bool, error)
	ListPendingForCaptain(ctx context.Context, captainID uuid.UUID) ([]entity.VacancyResponse, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.VacancyResponse, error)
}

type invitationRepository struct{ db *gorm.DB }

func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) Create(ctx context.Context, inv *entity.Invitation) error {
	return database.Conn(ctx, r.db).Omit(clause.Associations).Create(inv).Error
}

func (r *invitationRepository) FindByID(ctx context.Context, id uint) (*entity.Invitation, error) {
	var inv entity.Invitation
	if err := database.Conn(ctx, r.db).First(&inv, id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invitationRepository) LockByID(ctx context.Context, id uint) (*entity.Invitation, error) {
	var inv entity.Invitation
	if err := database.Conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&inv, id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invitationRepository) HasPending(ctx context.Context, teamID uint, userID uuid.UUID) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&entity.Invitation{}).
		Where("team_id = ? AND user_id = ? AND status = ?", teamID, userID, entity.DecisionPending).
		Count(&count).Error
	return count > 0, err
}

func (r *invitationRepository) Resolve(ctx context.Context, id uint, status entity.DecisionStatus) (bool, error) {
	res := database.Conn(ctx, r.db).
		Model(&entity.Invitation{}).
		Where("id = ? AND status = ?", id, entity.DecisionPending).
		Update("status", status)
	return res.RowsAffected > 0, res.Error
}

func (r *invitationRepository) DeletePending(ctx context.Context, teamID uint) (int64, error) {
	res := database.Conn(ctx, r.db).
		Where("team_id = ? AND status = ?", teamID, entity.DecisionPending).
		Delete(&entity.Invitation{})
	return res.RowsAffected, res.Error
}

func (r *invitationRepository) ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]entity.Invitation, error) {
	var out []entity.Invitation
	err := database.Conn(ctx, r.db).
		Preload("Team").
		Preload("Team.Competition").
		Preload("Team.Captain").
		Where("user_id = ? AND status = ?", userID, entity.DecisionPending).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

type teamApplicationRepository struct{ db *gorm.DB }

func NewTeamApplicationRepository(db *gorm.DB) TeamApplicationRepository {
	return &teamApplicationRepository{db: db}
}

func (r *teamApplicationRepository) Create(ctx context.Context, app *entity.TeamApplication) error {
	return database.Conn(ctx, r.db).Omit(clause.Associations).Create(app).Error
}

func (r *teamApplicationRepository) LockByID(ctx context.Context, id uint) (*entity.TeamApplication, error) {
	var app entity.TeamApplication
	if err := database.Conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&app, id).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *teamApplicationRepository) HasLive(ctx context.Context, teamID uint) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&entity.TeamApplication{}).
		Where("team_id = ? AND status <> ?", teamID, entity.DecisionRejected).
		Count(&count).Error
	return count > 0, err
}

func (r *teamApplicationRepository) CountAccepted(ctx context.Context, competitionID uint) (int64, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&entity.TeamApplication{}).
		Where("competition_id = ? AND status = ?", competitionID, entity.DecisionAccepted).
		Count(&count).Error
	return count, err
}

func (r *teamApplicationRepository) Resolve(ctx context.Context, id uint, status entity.DecisionStatus, reason *string) (bool, error) {
	res := database.Conn(ctx, r.db).
		Model(&entity.TeamApplication{}).
		Where("id = ? AND status = ?", id, entity.DecisionPending).
		Updates(map[string]any{"status": status, "reason": reason})
	return res.RowsAffected > 0, res.Error
}

func (r *teamApplicationRepository) AcceptedTeamIDs(ctx context.Context, teamIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(teamIDs))
	if len(teamIDs) == 0 {
		return out, nil
	}
	var ids []uint
	err := database.Conn(ctx, r.db).
		Model(&entity.TeamApplication{}).
		Where("team_id IN ? AND status = ?", teamIDs, entity.DecisionAccepted).
		Distinct().
		Pluck("team_id", &ids).Error
	for _, id := range ids {
		out[id] = true
	}
	return out, err
}

func (r *teamApplicationRepository) ListPendingForOrganizer(ctx context.Context, organizerID uuid.UUID) ([]entity.TeamApplication, error) {
	var out []entity.TeamApplication
	err := database.Conn(ctx, r.db).
		Preload("Team").
		Preload("Team.Competition").
		Preload("Team.Members.Profile").
		Where("status = ?", entity.DecisionPending).
		Where("competition_id IN (?)",
			database.Conn(ctx, r.db).Model(&entity.CompetitionOrganizer{}).Select("competition_id").Where("user_id = ?", organizerID)).
		Order("created_at").
		Find(&out).Error
	return out, err
}

type vacancyRepository struct{ db *gorm.DB }

func NewVacancyRepository(db *gorm.DB) VacancyRepository {
	return &vacancyRepository{db: db}
}

func (r *vacancyRepository) Create(ctx context.Context, resp *entity.VacancyResponse) error {
	return database.Conn(ctx, r.db).Omit(clause.Associations).Create(resp).Error
}

func (r *vacancyRepository) FindByID(ctx context.Context, id uint) (*entity.VacancyResponse, error) {
	var resp entity.VacancyResponse
	if err := database.Conn(ctx, r.db).First(&resp, id).Error; err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *vacancyRepository) LockByID(ctx context.Context, id uint) (*entity.VacancyResponse, error) {
	var resp entity.VacancyResponse
	if err := database.Conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&resp, id).Error; err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *vacancyRepository) HasPending(ctx context.Context, teamID uint, userID uuid.UUID) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).
		Model(&entity.VacancyResponse{}).
		Where("team_id = ? AND user_id = ? AND status = ?", teamID, userID, entity.DecisionPending).
		Count(&count).Error
	return count > 0, err
}

func (r *vacancyRepository) Resolve(ctx context.Context, id uint, status entity.DecisionStatus) (bool, error) {
	res := database.Conn(ctx, r.db).
		Model(&entity.VacancyResponse{}).
		Where("id = ? AND status = ?", id, entity.DecisionPending).
		Update("status", status)
	return res.RowsAffected > 0, res.Error
}

func (r *vacancyRepository) ListPendingForCaptain(ctx context.Context, captainID uuid.UUID) ([]entity.VacancyResponse, error) {
	var out []entity.VacancyResponse
	err := database.Conn(ctx, r.db).
		Preload("Team").
		Preload("Profile").
		Preload("Profile.Region").
		Joins("JOIN teams ON teams.id = vacancy_responses.team_id").
		Where("teams.captain_id = ? AND vacancy_responses.status = ?", captainID, entity.DecisionPending).
		Order("vacancy_responses.created_at").
		Find(&out).Error
	return out, err
}

func (r *vacancyRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]entity.VacancyResponse, error) {
	var out []entity.VacancyResponse
	err := database.Conn(ctx, r.db).
		Preload("Team").
		Preload("Team.Competition").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}
