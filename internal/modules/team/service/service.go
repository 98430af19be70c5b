package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"codedepartament.ru/sbp/internal/entity"
	compRepo "codedepartament.ru/sbp/internal/modules/competition/repository"
	"codedepartament.ru/sbp/internal/modules/eligibility"
	notifService "codedepartament.ru/sbp/internal/modules/notification/service"
	"codedepartament.ru/sbp/internal/modules/team/dto"
	"codedepartament.ru/sbp/internal/modules/team/repository"
	"codedepartament.ru/sbp/pkg/apperror"
	"codedepartament.ru/sbp/pkg/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProfileReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

type RatingUpdater interface {
	RecomputeCompetition(ctx context.Context, competitionID uint) error
}

type TeamService interface {
	CreateTeam(ctx context.Context, creatorID uuid.UUID, req dto.CreateTeamRequest, now time.Time) (*dto.TeamResponse, error)
	Invite(ctx context.Context, captainID uuid.UUID, teamID uint, candidateID uuid.UUID, now time.Time) (*entity.Invitation, error)
	RespondToInvitation(ctx context.Context, userID uuid.UUID, invitationID uint, accept bool, now time.Time) (*entity.Invitation, error)
	SubmitTeamApplication(ctx context.Context, memberID uuid.UUID, teamID uint) (*entity.TeamApplication, error)
	DecideTeamApplication(ctx context.Context, organizerID uuid.UUID, applicationID uint, accept bool, reason *string) (*entity.TeamApplication, error)
	RespondToPublicVacancy(ctx context.Context, userID uuid.UUID, teamID uint, text string, now time.Time) (*entity.VacancyResponse, error)
	DecideVacancyResponse(ctx context.Context, captainID uuid.UUID, responseID uint, accept bool, now time.Time) (*entity.VacancyResponse, error)

	ListPublicTeams(ctx context.Context, competitionID *uint) ([]dto.TeamResponse, error)
	ListUserTeams(ctx context.Context, userID uuid.UUID) ([]dto.TeamResponse, error)
	ListInvitations(ctx context.Context, userID uuid.UUID) ([]entity.Invitation, error)
	ListCaptainVacancyResponses(ctx context.Context, captainID uuid.UUID) ([]entity.VacancyResponse, error)
	ListUserVacancyResponses(ctx context.Context, userID uuid.UUID) ([]entity.VacancyResponse, error)
	ListOrganizerTeamApplications(ctx context.Context, organizerID uuid.UUID) ([]entity.TeamApplication, error)
}

type Deps struct {
	Teams           repository.TeamRepository
	Invitations     repository.InvitationRepository
	Applications    repository.TeamApplicationRepository
	Vacancies       repository.VacancyRepository
	Competitions    compRepo.CompetitionRepository
	Users           ProfileReader
	Ratings         RatingUpdater
	Tx              database.Transactor
	Notifier        notifService.Notifier
	FullRegionCount int
}

type teamService struct {
	teams           repository.TeamRepository
	invitations     repository.InvitationRepository
	applications    repository.TeamApplicationRepository
	vacancies       repository.VacancyRepository
	competitions    compRepo.CompetitionRepository
	users           ProfileReader
	ratings         RatingUpdater
	tx              database.Transactor
	notifier        notifService.Notifier
	fullRegionCount int
}

func NewTeamService(d Deps) TeamService {
	return &teamService{
		teams:           d.Teams,
		invitations:     d.Invitations,
		applications:    d.Applications,
		vacancies:       d.Vacancies,
		competitions:    d.Competitions,
		users:           d.Users,
		ratings:         d.Ratings,
		tx:              d.Tx,
		notifier:        d.Notifier,
		fullRegionCount: d.FullRegionCount,
	}
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.Wrap(apperror.ErrNotFound, "%s not found", what)
	}
	return err
}

func (s *teamService) profile(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	if user.Profile == nil {
		return nil, apperror.Wrap(apperror.ErrNotFound, "profile not found")
	}
	return user.Profile, nil
}

func (s *teamService) notify(ctx context.Context, userID uuid.UUID, kind, msg string, entityID uint) {
	if s.notifier == nil {
		return
	}
	id := entityID
	s.notifier.Notify(ctx, userID, kind, msg, &id)
}

func applicant(p *entity.Profile) eligibility.Applicant {
	return eligibility.Applicant{RegionID: p.RegionID, Role: p.Role, Birthday: p.Birthday}
}

// joinDecision checks whether userID may join team right now.
func (s *teamService) joinDecision(ctx context.Context, team *entity.Team, userID uuid.UUID, now time.Time) (eligibility.Decision, error) {
	c, err := s.competitions.FindByID(ctx, team.CompetitionID)
	if err != nil {
		return eligibility.Decision{}, notFound(err, "competition")
	}
	p, err := s.profile(ctx, userID)
	if err != nil {
		return eligibility.Decision{}, err
	}
	dup, err := s.teams.IsMemberInCompetition(ctx, team.CompetitionID, userID)
	if err != nil {
		return eligibility.Decision{}, err
	}

	return eligibility.Check(eligibility.Request{
		Path:            eligibility.PathTeamJoin,
		Now:             now,
		Applicant:       applicant(p),
		Competition:     c,
		Counts:          eligibility.Counts{TeamMembers: team.CurrentMembers, TeamCap: team.MaxMembers},
		HasDuplicate:    dup,
		FullRegionCount: s.fullRegionCount,
	}), nil
}

// commitErr turns a failure found while applying a decision into an error.
// Capacity and duplicates that appeared since the request was made are conflicts.
func commitErr(d eligibility.Decision) error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case eligibility.ReasonFull:
		return apperror.Wrap(apperror.ErrConflict, "team is already full")
	case eligibility.ReasonDuplicate:
		return apperror.Wrap(apperror.ErrConflict, "user already joined a team in this competition")
	}
	return d.Err()
}

// ensureOpen rejects changes to a team that has already applied.
func (s *teamService) ensureOpen(ctx context.Context, teamID uint) error {
	live, err := s.applications.HasLive(ctx, teamID)
	if err != nil {
		return err
	}
	if live {
		return apperror.Wrap(apperror.ErrInvalidState, "team has already applied, its roster is frozen")
	}
	return nil
}

// lockTeamForJoin locks the team's competition, then the team. Paths that add
// members take locks in the order competition, team, request row.
func (s *teamService) lockTeamForJoin(ctx context.Context, teamID uint) (*entity.Team, error) {
	t, err := s.teams.FindByID(ctx, teamID)
	if err != nil {
		return nil, notFound(err, "team")
	}
	if _, err := s.competitions.LockByID(ctx, t.CompetitionID); err != nil {
		return nil, notFound(err, "competition")
	}
	locked, err := s.teams.LockByID(ctx, teamID)
	if err != nil {
		return nil, notFound(err, "team")
	}
	return locked, nil
}

func (s *teamService) addMember(ctx context.Context, teamID uint, userID uuid.UUID) error {
	if err := s.teams.AddMember(ctx, teamID, userID); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperror.Wrap(apperror.ErrConflict, "user already joined a team in this competition")
		}
		return err
	}
	return nil
}

func (s *teamService) CreateTeam(ctx context.Context, creatorID uuid.UUID, req dto.CreateTeamRequest, now time.Time) (*dto.TeamResponse, error) {
	creator, err := s.profile(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	captainID := creatorID
	if creator.Role == entity.RoleModerator {
		if req.CaptainID == nil {
			return nil, apperror.Wrap(apperror.ErrInvalidInput, "captain_id is required when a moderator creates a team")
		}
		id, err := uuid.Parse(*req.CaptainID)
		if err != nil {
			return nil, apperror.Wrap(apperror.ErrInvalidInput, "invalid captain_id")
		}
		if _, err := s.profile(ctx, id); err != nil {
			return nil, err
		}
		captainID = id
	} else if req.CaptainID != nil && *req.CaptainID != creatorID.String() {
		return nil, apperror.Wrap(apperror.ErrForbidden, "only moderators can appoint another captain")
	}

	var team *entity.Team
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		c, err := s.competitions.LockByID(ctx, req.CompetitionID)
		if err != nil {
			return notFound(err, "competition")
		}
		teams, err := s.teams.CountByCompetition(ctx, c.ID)
		if err != nil {
			return err
		}
		dup, err := s.teams.IsMemberInCompetition(ctx, c.ID, captainID)
		if err != nil {
			return err
		}

		decision := eligibility.Check(eligibility.Request{
			Path:            eligibility.PathTeamCreate,
			Now:             now,
			Applicant:       applicant(creator),
			Competition:     c,
			Counts:          eligibility.Counts{Teams: int(teams)},
			HasDuplicate:    dup,
			FullRegionCount: s.fullRegionCount,
		})
		if err := decision.Err(); err != nil {
			return err
		}

		team = &entity.Team{
			CompetitionID:  c.ID,
			Name:           strings.TrimSpace(req.Name),
			Description:    req.Description,
			CaptainID:      &captainID,
			IsPrivate:      req.IsPrivate,
			MaxMembers:     c.MaxParticipantsInTeam,
			CurrentMembers: 1,
		}
		return s.teams.Create(ctx, team)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("✅ Team %d %q created in competition %d", team.ID, team.Name, team.CompetitionID)

	created, err := s.teams.FindByID(ctx, team.ID)
	if err != nil {
		return nil, err
	}
	resp := dto.NewTeamResponse(created)
	return &resp, nil
}

func (s *teamService) Invite(ctx context.Context, captainID uuid.UUID, teamID uint, candidateID uuid.UUID, now time.Time) (*entity.Invitation, error) {
	if captainID == candidateID {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "the captain is already in the team")
	}

	var (
		inv  *entity.Invitation
		team *entity.Team
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		t, err := s.teams.LockByID(ctx, teamID)
		if err != nil {
			return notFound(err, "team")
		}
		if !t.IsCaptain(captainID) {
			return apperror.Wrap(apperror.ErrForbidden, "only the team captain can send invitations")
		}
		if err := s.ensureOpen(ctx, teamID); err != nil {
			return err
		}

		pending, err := s.invitations.HasPending(ctx, teamID, candidateID)
		if err != nil {
			return err
		}
		if pending {
			return apperror.Wrap(apperror.ErrConflict, "user already has a pending invitation to this team")
		}

		decision, err := s.joinDecision(ctx, t, candidateID, now)
		if err != nil {
			return err
		}
		if err := decision.Err(); err != nil {
			return err
		}

		inv = &entity.Invitation{TeamID: teamID, UserID: candidateID, Status: entity.DecisionPending}
		if err := s.invitations.Create(ctx, inv); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.Wrap(apperror.ErrConflict, "user already has a pending invitation to this team")
			}
			return err
		}
		team = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, candidateID, entity.NotificationInvitation, fmt.Sprintf("You are invited to team %q", team.Name), inv.ID)
	return inv, nil
}

func (s *teamService) RespondToInvitation(ctx context.Context, userID uuid.UUID, invitationID uint, accept bool, now time.Time) (*entity.Invitation, error) {
	var (
		inv  *entity.Invitation
		team *entity.Team
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		pre, err := s.invitations.FindByID(ctx, invitationID)
		if err != nil {
			return notFound(err, "invitation")
		}
		if pre.UserID != userID {
			return apperror.Wrap(apperror.ErrForbidden, "you can only answer your own invitations")
		}

		t, err := s.lockTeamForJoin(ctx, pre.TeamID)
		if err != nil {
			return err
		}
		i, err := s.invitations.LockByID(ctx, invitationID)
		if err != nil {
			return notFound(err, "invitation")
		}
		if i.Status.Terminal() {
			return apperror.Wrap(apperror.ErrInvalidState, "invitation was already %s", i.Status)
		}

		status := entity.DecisionRejected
		if accept {
			if err := s.ensureOpen(ctx, t.ID); err != nil {
				return err
			}
			decision, err := s.joinDecision(ctx, t, userID, now)
			if err != nil {
				return err
			}
			if err := commitErr(decision); err != nil {
				return err
			}
			if err := s.addMember(ctx, t.ID, userID); err != nil {
				return err
			}
			status = entity.DecisionAccepted
		}

		ok, err := s.invitations.Resolve(ctx, i.ID, status)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.Wrap(apperror.ErrInvalidState, "invitation was already answered")
		}
		i.Status = status
		inv, team = i, t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if team.CaptainID != nil {
		s.notify(ctx, *team.CaptainID, entity.NotificationInvitationReply,
			fmt.Sprintf("Invitation to team %q was %s", team.Name, inv.Status), team.ID)
	}
	return inv, nil
}

// SubmitTeamApplication registers the team for its competition. Open
// invitations of the team are dropped in the same transaction.
func (s *teamService) SubmitTeamApplication(ctx context.Context, memberID uuid.UUID, teamID uint) (*entity.TeamApplication, error) {
	var app *entity.TeamApplication
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		t, err := s.teams.LockByID(ctx, teamID)
		if err != nil {
			return notFound(err, "team")
		}
		member, err := s.teams.IsMember(ctx, teamID, memberID)
		if err != nil {
			return err
		}
		if !member {
			return apperror.Wrap(apperror.ErrForbidden, "you are not a member of this team")
		}
		if err := s.ensureOpen(ctx, teamID); err != nil {
			return err
		}

		c, err := s.competitions.FindByID(ctx, t.CompetitionID)
		if err != nil {
			return notFound(err, "competition")
		}
		if c.Status == entity.StatusPending {
			return eligibility.Decision{Reason: eligibility.ReasonNotOpen}.Err()
		}

		removed, err := s.invitations.DeletePending(ctx, teamID)
		if err != nil {
			return err
		}
		if removed > 0 {
			log.Printf("🧹 Dropped %d open invitations of team %d", removed, teamID)
		}

		app = &entity.TeamApplication{TeamID: teamID, CompetitionID: t.CompetitionID, Status: entity.DecisionPending}
		return s.applications.Create(ctx, app)
	})
	if err != nil {
		return nil, err
	}

	if organizers, err := s.competitions.OrganizerIDs(ctx, app.CompetitionID); err == nil {
		for _, id := range organizers {
			s.notify(ctx, id, entity.NotificationTeamApplication, "A team applied to your competition", app.ID)
		}
	}
	return app, nil
}

// DecideTeamApplication accepts a team, enrolling every member as a participant,
// or rejects it with a reason.
func (s *teamService) DecideTeamApplication(ctx context.Context, organizerID uuid.UUID, applicationID uint, accept bool, reason *string) (*entity.TeamApplication, error) {
	if !accept && (reason == nil || strings.TrimSpace(*reason) == "") {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "a reason is required to reject an application")
	}

	var (
		app     *entity.TeamApplication
		members []uuid.UUID
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		a, err := s.applications.LockByID(ctx, applicationID)
		if err != nil {
			return notFound(err, "team application")
		}
		if _, err := s.competitions.FindOrganizer(ctx, a.CompetitionID, organizerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.Wrap(apperror.ErrForbidden, "you are not an organizer of this competition")
			}
			return err
		}
		if a.Status.Terminal() {
			return apperror.Wrap(apperror.ErrInvalidState, "application was already %s", a.Status)
		}

		members, err = s.teams.MemberIDs(ctx, a.TeamID)
		if err != nil {
			return err
		}

		status := entity.DecisionRejected
		if accept {
			c, err := s.competitions.LockByID(ctx, a.CompetitionID)
			if err != nil {
				return notFound(err, "competition")
			}
			registered, err := s.applications.CountAccepted(ctx, c.ID)
			if err != nil {
				return err
			}
			if int(registered) >= c.MaxParticipants {
				return apperror.Wrap(apperror.ErrConflict, "competition is full")
			}
			if _, err := s.competitions.AddParticipants(ctx, c.ID, members); err != nil {
				return err
			}
			status = entity.DecisionAccepted
			reason = nil
		}

		ok, err := s.applications.Resolve(ctx, a.ID, status, reason)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.Wrap(apperror.ErrInvalidState, "application was already decided")
		}
		a.Status, a.Reason = status, reason
		app = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	msg := "Your team application was accepted"
	if accept {
		log.Printf("✅ Team application %d accepted, %d participants enrolled", app.ID, len(members))
		if s.ratings != nil {
			if err := s.ratings.RecomputeCompetition(ctx, app.CompetitionID); err != nil {
				log.Printf("❌ Failed to recompute ratings for competition %d: %v", app.CompetitionID, err)
			}
		}
	} else {
		msg = "Your team application was rejected: " + *reason
	}
	for _, id := range members {
		s.notify(ctx, id, entity.NotificationTeamApplication, msg, app.CompetitionID)
	}
	return app, nil
}

func (s *teamService) RespondToPublicVacancy(ctx context.Context, userID uuid.UUID, teamID uint, text string, now time.Time) (*entity.VacancyResponse, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "response text is required")
	}

	var (
		resp *entity.VacancyResponse
		team *entity.Team
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		t, err := s.teams.LockByID(ctx, teamID)
		if err != nil {
			return notFound(err, "team")
		}
		if t.IsPrivate {
			return apperror.Wrap(apperror.ErrForbidden, "team does not accept responses")
		}
		if err := s.ensureOpen(ctx, teamID); err != nil {
			return err
		}

		pending, err := s.vacancies.HasPending(ctx, teamID, userID)
		if err != nil {
			return err
		}
		if pending {
			return apperror.Wrap(apperror.ErrConflict, "you already responded to this team")
		}

		decision, err := s.joinDecision(ctx, t, userID, now)
		if err != nil {
			return err
		}
		if err := decision.Err(); err != nil {
			return err
		}

		resp = &entity.VacancyResponse{TeamID: teamID, UserID: userID, Text: text, Status: entity.DecisionPending}
		team = t
		return s.vacancies.Create(ctx, resp)
	})
	if err != nil {
		return nil, err
	}

	if team.CaptainID != nil {
		s.notify(ctx, *team.CaptainID, entity.NotificationVacancyResponse,
			fmt.Sprintf("New response to the vacancy in team %q", team.Name), resp.ID)
	}
	return resp, nil
}

func (s *teamService) DecideVacancyResponse(ctx context.Context, captainID uuid.UUID, responseID uint, accept bool, now time.Time) (*entity.VacancyResponse, error) {
	var (
		resp *entity.VacancyResponse
		team *entity.Team
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		pre, err := s.vacancies.FindByID(ctx, responseID)
		if err != nil {
			return notFound(err, "vacancy response")
		}
		t, err := s.lockTeamForJoin(ctx, pre.TeamID)
		if err != nil {
			return err
		}
		if !t.IsCaptain(captainID) {
			return apperror.Wrap(apperror.ErrForbidden, "only the team captain can answer responses")
		}
		r, err := s.vacancies.LockByID(ctx, responseID)
		if err != nil {
			return notFound(err, "vacancy response")
		}
		if r.Status.Terminal() {
			return apperror.Wrap(apperror.ErrInvalidState, "response was already %s", r.Status)
		}

		status := entity.DecisionRejected
		if accept {
			if err := s.ensureOpen(ctx, t.ID); err != nil {
				return err
			}
			decision, err := s.joinDecision(ctx, t, r.UserID, now)
			if err != nil {
				return err
			}
			if err := commitErr(decision); err != nil {
				return err
			}
			if err := s.addMember(ctx, t.ID, r.UserID); err != nil {
				return err
			}
			status = entity.DecisionAccepted
		}

		ok, err := s.vacancies.Resolve(ctx, r.ID, status)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.Wrap(apperror.ErrInvalidState, "response was already answered")
		}
		r.Status = status
		resp, team = r, t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, resp.UserID, entity.NotificationVacancyResponse,
		fmt.Sprintf("Your response to team %q was %s", team.Name, resp.Status), team.ID)
	return resp, nil
}
