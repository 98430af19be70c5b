package service

import (
	"context"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/internal/modules/team/dto"
	"github.com/google/uuid"
)

func (s *teamService) ListPublicTeams(ctx context.Context, competitionID *uint) ([]dto.TeamResponse, error) {
	teams, err := s.teams.ListPublic(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.TeamResponse, 0, len(teams))
	for i := range teams {
		out = append(out, dto.NewTeamResponse(&teams[i]))
	}
	return out, nil
}

// ListUserTeams marks a team registered once its application was accepted.
func (s *teamService) ListUserTeams(ctx context.Context, userID uuid.UUID) ([]dto.TeamResponse, error) {
	teams, err := s.teams.ListByMember(ctx, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(teams))
	for _, t := range teams {
		ids = append(ids, t.ID)
	}
	registered, err := s.applications.AcceptedTeamIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]dto.TeamResponse, 0, len(teams))
	for i := range teams {
		resp := dto.NewTeamResponse(&teams[i])
		reg := registered[teams[i].ID]
		resp.IsRegistered = &reg
		out = append(out, resp)
	}
	return out, nil
}

func (s *teamService) ListInvitations(ctx context.Context, userID uuid.UUID) ([]entity.Invitation, error) {
	return s.invitations.ListPendingForUser(ctx, userID)
}

func (s *teamService) ListCaptainVacancyResponses(ctx context.Context, captainID uuid.UUID) ([]entity.VacancyResponse, error) {
	return s.vacancies.ListPendingForCaptain(ctx, captainID)
}

func (s *teamService) ListUserVacancyResponses(ctx context.Context, userID uuid.UUID) ([]entity.VacancyResponse, error) {
	return s.vacancies.ListByUser(ctx, userID)
}

func (s *teamService) ListOrganizerTeamApplications(ctx context.Context, organizerID uuid.UUID) ([]entity.TeamApplication, error) {
	return s.applications.ListPendingForOrganizer(ctx, organizerID)
}
