package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"codedepartament.ru/sbp/internal/entity"
	catalog "codedepartament.ru/sbp/internal/modules/catalog/service"
	"codedepartament.ru/sbp/internal/modules/competition/dto"
	"codedepartament.ru/sbp/internal/modules/competition/repository"
	notifService "codedepartament.ru/sbp/internal/modules/notification/service"
	"codedepartament.ru/sbp/pkg/apperror"
	"codedepartament.ru/sbp/pkg/database"
	commonDto "codedepartament.ru/sbp/pkg/dto"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

// ProfileReader is the slice of the user repository this module needs.
type ProfileReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	ListModeratorIDs(ctx context.Context) ([]uuid.UUID, error)
}

type RatingUpdater interface {
	RecomputeCompetition(ctx context.Context, competitionID uint) error
}

// Indexer keeps the search index in step with visible competitions.
type Indexer interface {
	IndexCompetition(ctx context.Context, c *entity.Competition) error
	RemoveCompetition(ctx context.Context, id uint) error
}

type CompetitionService interface {
	Create(ctx context.Context, creatorID uuid.UUID, req dto.CreateCompetitionRequest) (*dto.CompetitionResponse, error)
	List(ctx context.Context, q dto.ListQuery) (*commonDto.Paginated[dto.CompetitionResponse], error)
	Get(ctx context.Context, id uint) (*dto.CompetitionResponse, error)
	ListPending(ctx context.Context) ([]dto.CompetitionResponse, error)
	ListForRegion(ctx context.Context, regionID uint) ([]dto.CompetitionResponse, error)
	ListOrganized(ctx context.Context, userID uuid.UUID) ([]dto.OrganizedCompetition, error)
	ListParticipants(ctx context.Context, id uint) ([]dto.ParticipantResponse, error)
	Decide(ctx context.Context, moderatorID uuid.UUID, id uint, accept bool) error
	RefreshStatuses(ctx context.Context, t time.Time) (*dto.StatusReport, error)
	Complete(ctx context.Context, organizerID uuid.UUID, id uint) error
	DistributeResults(ctx context.Context, organizerID uuid.UUID, id uint, results []dto.ResultEntry) error

	SubmitApplication(ctx context.Context, userID uuid.UUID, competitionID uint, now time.Time) (*entity.UserApplication, error)
	DecideApplication(ctx context.Context, organizerID uuid.UUID, applicationID uint, accept bool, reason *string) (*entity.UserApplication, error)
	ListMyApplications(ctx context.Context, userID uuid.UUID) ([]entity.UserApplication, error)
	ListOrganizerApplications(ctx context.Context, organizerID uuid.UUID) ([]entity.UserApplication, error)
}

type Deps struct {
	Competitions    repository.CompetitionRepository
	Applications    repository.ApplicationRepository
	Users           ProfileReader
	Catalog         catalog.CatalogService
	Ratings         RatingUpdater
	Tx              database.Transactor
	Notifier        notifService.Notifier
	Indexer         Indexer
	FullRegionCount int
}

type competitionService struct {
	repo            repository.CompetitionRepository
	apps            repository.ApplicationRepository
	users           ProfileReader
	catalog         catalog.CatalogService
	ratings         RatingUpdater
	tx              database.Transactor
	notifier        notifService.Notifier
	indexer         Indexer
	sanitizer       *bluemonday.Policy
	fullRegionCount int
}

func NewCompetitionService(d Deps) CompetitionService {
	return &competitionService{
		repo:            d.Competitions,
		apps:            d.Applications,
		users:           d.Users,
		catalog:         d.Catalog,
		ratings:         d.Ratings,
		tx:              d.Tx,
		notifier:        d.Notifier,
		indexer:         d.Indexer,
		sanitizer:       bluemonday.UGCPolicy(),
		fullRegionCount: d.FullRegionCount,
	}
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.Wrap(apperror.ErrNotFound, "%s not found", what)
	}
	return err
}

func (s *competitionService) profile(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	if user.Profile == nil {
		return nil, apperror.Wrap(apperror.ErrNotFound, "profile not found")
	}
	return user.Profile, nil
}

func (s *competitionService) notify(ctx context.Context, userID uuid.UUID, kind, msg string, entityID uint) {
	if s.notifier == nil {
		return
	}
	id := entityID
	s.notifier.Notify(ctx, userID, kind, msg, &id)
}

func (s *competitionService) response(c *entity.Competition) dto.CompetitionResponse {
	return dto.CompetitionResponse{
		Competition:       *c,
		PermissionsStatus: entity.PermissionsStatus(c.Permissions, s.fullRegionCount),
	}
}

func (s *competitionService) responses(list []entity.Competition) []dto.CompetitionResponse {
	out := make([]dto.CompetitionResponse, 0, len(list))
	for i := range list {
		out = append(out, s.response(&list[i]))
	}
	return out
}

func (s *competitionService) Create(ctx context.Context, creatorID uuid.UUID, req dto.CreateCompetitionRequest) (*dto.CompetitionResponse, error) {
	creator, err := s.profile(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if creator.Role != entity.RoleRegionalRep && creator.Role != entity.RoleModerator {
		return nil, apperror.Wrap(apperror.ErrForbidden, "only regional representatives and moderators can create competitions")
	}
	if !creator.IsApproved {
		return nil, apperror.Wrap(apperror.ErrForbidden, "account is waiting for moderator approval")
	}

	dates := entity.CompetitionDate{
		RegistrationStart: req.Dates.RegistrationStart,
		RegistrationEnd:   req.Dates.RegistrationEnd,
		StartDate:         req.Dates.StartDate,
		EndDate:           req.Dates.EndDate,
	}
	if err := dates.Validate(); err != nil {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "%s", err.Error())
	}

	maxAge := req.MaxAge
	if maxAge == 0 {
		maxAge = 100
	}
	if req.MinAge > maxAge {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "min_age must not exceed max_age")
	}

	kind := entity.CompetitionKind(req.Kind)
	teamCap := 1
	if kind == entity.KindTeam {
		if req.MaxParticipantsInTeam < 2 {
			return nil, apperror.Wrap(apperror.ErrInvalidInput, "team competitions need max_participants_in_team of at least 2")
		}
		teamCap = req.MaxParticipantsInTeam
	}

	if _, err := s.catalog.RequireDiscipline(ctx, req.DisciplineID); err != nil {
		return nil, err
	}
	permissions := []uint(req.Permissions)
	if permissions == nil {
		permissions = []uint{}
	}
	if err := s.catalog.RequireRegions(ctx, permissions); err != nil {
		return nil, err
	}

	c := &entity.Competition{
		Name:                  strings.TrimSpace(req.Name),
		Description:           s.sanitizer.Sanitize(req.Description),
		DisciplineID:          req.DisciplineID,
		Kind:                  kind,
		Format:                entity.CompetitionFormat(req.Format),
		MaxParticipants:       req.MaxParticipants,
		MaxParticipantsInTeam: teamCap,
		MinAge:                req.MinAge,
		MaxAge:                maxAge,
		Permissions:           permissions,
		Status:                entity.StatusPending,
		Dates:                 &dates,
	}

	if err := s.repo.Create(ctx, c, creatorID); err != nil {
		return nil, err
	}
	log.Printf("✅ Competition %d %q created, waiting for moderation", c.ID, c.Name)

	if ids, err := s.users.ListModeratorIDs(ctx); err != nil {
		log.Printf("⚠️ Failed to load moderators: %v", err)
	} else {
		for _, id := range ids {
			s.notify(ctx, id, entity.NotificationModeration, fmt.Sprintf("Competition %q is waiting for approval", c.Name), c.ID)
		}
	}

	resp := s.response(c)
	return &resp, nil
}

func (s *competitionService) List(ctx context.Context, q dto.ListQuery) (*commonDto.Paginated[dto.CompetitionResponse], error) {
	q.Normalize()

	var filter repository.ListFilter
	if q.Status != nil {
		st := entity.CompetitionStatus(*q.Status)
		filter.Status = &st
	}
	if q.Kind != nil {
		k := entity.CompetitionKind(*q.Kind)
		filter.Kind = &k
	}
	if q.Format != nil {
		f := entity.CompetitionFormat(*q.Format)
		filter.Format = &f
	}
	filter.DisciplineID = q.DisciplineID

	list, total, err := s.repo.List(ctx, filter, q.Offset(), q.Limit)
	if err != nil {
		return nil, err
	}
	return &commonDto.Paginated[dto.CompetitionResponse]{
		Data: s.responses(list),
		Meta: commonDto.NewPaginationMeta(q.PageQuery, total),
	}, nil
}

func (s *competitionService) Get(ctx context.Context, id uint) (*dto.CompetitionResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "competition")
	}
	resp := s.response(c)
	return &resp, nil
}

func (s *competitionService) ListPending(ctx context.Context) ([]dto.CompetitionResponse, error) {
	list, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	return s.responses(list), nil
}

func (s *competitionService) ListForRegion(ctx context.Context, regionID uint) ([]dto.CompetitionResponse, error) {
	if _, err := s.catalog.RequireRegion(ctx, regionID); err != nil {
		return nil, err
	}
	list, err := s.repo.ListForRegion(ctx, regionID)
	if err != nil {
		return nil, err
	}
	return s.responses(list), nil
}

func (s *competitionService) ListOrganized(ctx context.Context, userID uuid.UUID) ([]dto.OrganizedCompetition, error) {
	rows, err := s.repo.ListOrganized(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.OrganizedCompetition, 0, len(rows))
	for _, o := range rows {
		if o.Competition == nil {
			continue
		}
		item := dto.OrganizedCompetition{
			ID:     o.Competition.ID,
			Name:   o.Competition.Name,
			Kind:   o.Competition.Kind,
			Status: o.Competition.Status,
			Rated:  o.Rated,
		}
		if o.Competition.Discipline != nil {
			item.Discipline = o.Competition.Discipline.Name
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *competitionService) ListParticipants(ctx context.Context, id uint) ([]dto.ParticipantResponse, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFound(err, "competition")
	}
	rows, err := s.repo.ListParticipants(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ParticipantResponse, 0, len(rows))
	for _, p := range rows {
		item := dto.ParticipantResponse{UserID: p.UserID.String(), Result: p.Result}
		if p.Profile != nil {
			item.FullName = p.Profile.FullName()
			item.Region = p.Profile.Region
		}
		out = append(out, item)
	}
	return out, nil
}

// Decide accepts a pending competition or deletes it with its dates and organizer links.
func (s *competitionService) Decide(ctx context.Context, moderatorID uuid.UUID, id uint, accept bool) error {
	moderator, err := s.profile(ctx, moderatorID)
	if err != nil {
		return err
	}
	if moderator.Role != entity.RoleModerator {
		return apperror.Wrap(apperror.ErrForbidden, "only moderators can review competitions")
	}

	var (
		competition *entity.Competition
		organizers  []uuid.UUID
	)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.LockByID(ctx, id)
		if err != nil {
			return notFound(err, "competition")
		}
		if c.Status != entity.StatusPending {
			return apperror.Wrap(apperror.ErrInvalidState, "competition was already reviewed")
		}
		competition = c

		organizers, err = s.repo.OrganizerIDs(ctx, id)
		if err != nil {
			return err
		}

		if !accept {
			return s.repo.Delete(ctx, id)
		}
		ok, err := s.repo.UpdateStatusIf(ctx, id, entity.StatusPending, entity.StatusUpcoming)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.Wrap(apperror.ErrInvalidState, "competition was already reviewed")
		}
		competition.Status = entity.StatusUpcoming
		return nil
	})
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("Competition %q was approved", competition.Name)
	if !accept {
		msg = fmt.Sprintf("Competition %q was rejected", competition.Name)
		log.Printf("🧹 Competition %d rejected and removed", id)
	} else {
		log.Printf("✅ Competition %d approved", id)
		s.reindex(ctx, id)
	}
	for _, uid := range organizers {
		s.notify(ctx, uid, entity.NotificationModeration, msg, id)
	}
	return nil
}

func (s *competitionService) reindex(ctx context.Context, id uint) {
	if s.indexer == nil {
		return
	}
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		log.Printf("⚠️ Failed to load competition %d for indexing: %v", id, err)
		return
	}
	if err := s.indexer.IndexCompetition(ctx, c); err != nil {
		log.Printf("⚠️ Failed to index competition %d: %v", id, err)
	}
}

// Complete closes a finished competition so results can be distributed.
func (s *competitionService) Complete(ctx context.Context, organizerID uuid.UUID, id uint) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return notFound(err, "competition")
	}
	if err := s.requireOrganizer(ctx, id, organizerID); err != nil {
		return err
	}

	ok, err := s.repo.UpdateStatusIf(ctx, id, entity.StatusFinished, entity.StatusCompleted)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Wrap(apperror.ErrInvalidState, "only finished competitions can be completed")
	}
	log.Printf("✅ Competition %d completed", id)
	s.reindex(ctx, id)
	return nil
}

func (s *competitionService) requireOrganizer(ctx context.Context, competitionID uint, userID uuid.UUID) error {
	if _, err := s.repo.FindOrganizer(ctx, competitionID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.Wrap(apperror.ErrForbidden, "you are not an organizer of this competition")
		}
		return err
	}
	return nil
}
