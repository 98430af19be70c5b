package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"codedepartament.ru/sbp/internal/entity"
	notifService "codedepartament.ru/sbp/internal/modules/notification/service"
	"codedepartament.ru/sbp/internal/modules/user/dto"
	"codedepartament.ru/sbp/internal/modules/user/repository"
	"codedepartament.ru/sbp/pkg/apperror"
	commonDto "codedepartament.ru/sbp/pkg/dto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
	GetHistory(ctx context.Context, userID uuid.UUID) (*dto.HistoryResponse, error)
	ListPendingApprovals(ctx context.Context) ([]dto.UserSummary, error)
	DecideApproval(ctx context.Context, userID uuid.UUID, approve bool) error
	ListByRating(ctx context.Context, q commonDto.PageQuery) (*commonDto.Paginated[dto.UserSummary], error)
	ListRegionalRepresentatives(ctx context.Context, regionID *uint) ([]dto.UserSummary, error)
}

type userService struct {
	repo     repository.UserRepository
	notifier notifService.Notifier
}

func NewUserService(repo repository.UserRepository, notifier notifService.Notifier) UserService {
	return &userService{repo: repo, notifier: notifier}
}

func (s *userService) load(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Wrap(apperror.ErrNotFound, "user not found")
		}
		return nil, err
	}
	if user.Profile == nil {
		return nil, apperror.Wrap(apperror.ErrNotFound, "profile not found")
	}
	return user, nil
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*dto.ProfileResponse, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats, err := s.repo.DisciplineStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	return toProfileResponse(user, stats), nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, req dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := user.Profile

	if req.RegionID != nil && *req.RegionID != p.RegionID {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "region cannot be changed after registration")
	}
	if req.Rating != nil {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "rating is calculated and cannot be set")
	}

	if req.Surname != nil {
		p.Surname = strings.TrimSpace(*req.Surname)
	}
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Patronymic != nil {
		p.Patronymic = req.Patronymic
	}
	if req.TgUsername != nil {
		p.TgUsername = normalizeTg(req.TgUsername)
	}
	if req.Birthday != nil {
		b, err := time.Parse(dto.DateLayout, *req.Birthday)
		if err != nil {
			return nil, apperror.Wrap(apperror.ErrInvalidInput, "birthday must be YYYY-MM-DD")
		}
		p.Birthday = &b
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		current := ""
		if user.Email != nil {
			current = *user.Email
		}
		if email != current {
			exists, err := s.repo.ExistsEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, apperror.Wrap(apperror.ErrConflict, "email is already registered")
			}
			user.Email = &email
			if err := s.repo.UpdateUser(ctx, user); err != nil {
				return nil, err
			}
		}
	}

	if err := s.repo.UpdateProfile(ctx, p); err != nil {
		return nil, err
	}

	return s.GetProfile(ctx, userID)
}

func (s *userService) GetHistory(ctx context.Context, userID uuid.UUID) (*dto.HistoryResponse, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.History(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := &dto.HistoryResponse{
		Items: make([]dto.HistoryItem, 0, len(rows)),
		Stats: dto.HistoryStats{Total: len(rows), Rating: user.Profile.Rating},
	}
	for _, r := range rows {
		item := dto.HistoryItem{
			CompetitionID: r.CompetitionID,
			Name:          r.Name,
			Discipline:    r.DisciplineName,
			Kind:          string(r.Kind),
			Result:        r.Result,
			Participants:  r.FieldSize,
		}
		if r.EndDate != nil {
			d := r.EndDate.Format(dto.DateLayout)
			item.EndDate = &d
		}
		resp.Items = append(resp.Items, item)

		switch {
		case r.Result == 1:
			resp.Stats.Wins++
			resp.Stats.Podiums++
		case r.Result > 1 && r.Result <= 3:
			resp.Stats.Podiums++
		}
	}

	return resp, nil
}

func (s *userService) ListPendingApprovals(ctx context.Context) ([]dto.UserSummary, error) {
	users, err := s.repo.ListPendingApproval(ctx)
	if err != nil {
		return nil, err
	}
	return toSummaries(users, true), nil
}

// DecideApproval activates a privileged account or deletes it.
func (s *userService) DecideApproval(ctx context.Context, userID uuid.UUID, approve bool) error {
	user, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	if !user.Profile.Role.NeedsApproval() || user.Profile.IsApproved {
		return apperror.Wrap(apperror.ErrInvalidState, "account is not waiting for approval")
	}

	if !approve {
		if err := s.repo.Delete(ctx, userID); err != nil {
			return err
		}
		log.Printf("🧹 Rejected registration of %s", user.NickName)
		return nil
	}

	if err := s.repo.Approve(ctx, userID); err != nil {
		return err
	}
	log.Printf("✅ Approved %s as %s", user.NickName, user.Profile.Role)

	if s.notifier != nil {
		s.notifier.Notify(ctx, userID, entity.NotificationModeration, "Your account has been approved", nil)
	}
	return nil
}

func (s *userService) ListByRating(ctx context.Context, q commonDto.PageQuery) (*commonDto.Paginated[dto.UserSummary], error) {
	q.Normalize()
	users, total, err := s.repo.ListByRating(ctx, q.Offset(), q.Limit)
	if err != nil {
		return nil, err
	}
	return &commonDto.Paginated[dto.UserSummary]{
		Data: toSummaries(users, false),
		Meta: commonDto.NewPaginationMeta(q, total),
	}, nil
}

func (s *userService) ListRegionalRepresentatives(ctx context.Context, regionID *uint) ([]dto.UserSummary, error) {
	users, err := s.repo.ListRegionalRepresentatives(ctx, regionID)
	if err != nil {
		return nil, err
	}
	return toSummaries(users, true), nil
}

func toSummaries(users []entity.User, withContacts bool) []dto.UserSummary {
	out := make([]dto.UserSummary, 0, len(users))
	for i := range users {
		u := &users[i]
		if u.Profile == nil {
			continue
		}
		sum := dto.UserSummary{
			ID:       u.ID.String(),
			NickName: u.NickName,
			FullName: u.Profile.FullName(),
			Region:   u.Profile.Region,
			Role:     int(u.Profile.Role),
			Rating:   u.Profile.Rating,
		}
		if withContacts {
			sum.TgUsername = u.Profile.TgUsername
			sum.Email = u.Email
		}
		out = append(out, sum)
	}
	return out
}

func toProfileResponse(user *entity.User, stats []entity.UserDisciplineStats) *dto.ProfileResponse {
	p := user.Profile
	resp := &dto.ProfileResponse{
		ID:         user.ID.String(),
		NickName:   user.NickName,
		Email:      user.Email,
		DateJoined: user.DateJoined,
		Surname:    p.Surname,
		Name:       p.Name,
		Patronymic: p.Patronymic,
		Region:     p.Region,
		Role:       int(p.Role),
		RoleName:   p.Role.String(),
		TgUsername: p.TgUsername,
		IsApproved: p.IsApproved,
		Rating:     p.Rating,
		Stats:      make([]dto.DisciplineStat, 0, len(stats)),
	}
	if p.Birthday != nil {
		b := p.Birthday.Format(dto.DateLayout)
		resp.Birthday = &b
	}
	for _, st := range stats {
		ds := dto.DisciplineStat{
			DisciplineID:      st.DisciplineID,
			CompetitionsCount: st.CompetitionsCount,
			PointsCount:       st.PointsCount,
		}
		if st.Discipline != nil {
			ds.Discipline = st.Discipline.Name
		}
		resp.Stats = append(resp.Stats, ds)
	}
	return resp
}
