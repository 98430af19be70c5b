package catalog

import (
	"context"
	"errors"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/internal/modules/catalog/dto"
	"codedepartament.ru/sbp/internal/modules/catalog/repository"
	"codedepartament.ru/sbp/pkg/apperror"
	"gorm.io/gorm"
)

type CatalogService interface {
	ListRegions(ctx context.Context) ([]entity.Region, error)
	ListDisciplines(ctx context.Context) ([]entity.Discipline, error)
	ListRoles() []dto.RoleResponse
	RequireRegion(ctx context.Context, id uint) (*entity.Region, error)
	RequireDiscipline(ctx context.Context, id uint) (*entity.Discipline, error)
	// RequireRegions fails unless every id names an existing region.
	RequireRegions(ctx context.Context, ids []uint) error
}

type catalogService struct {
	repo repository.CatalogRepository
}

func NewCatalogService(repo repository.CatalogRepository) CatalogService {
	return &catalogService{repo: repo}
}

func (s *catalogService) ListRegions(ctx context.Context) ([]entity.Region, error) {
	return s.repo.ListRegions(ctx)
}

func (s *catalogService) ListDisciplines(ctx context.Context) ([]entity.Discipline, error) {
	return s.repo.ListDisciplines(ctx)
}

func (s *catalogService) ListRoles() []dto.RoleResponse {
	roles := []entity.Role{entity.RoleOrdinary, entity.RoleRegionalRep, entity.RoleModerator}
	out := make([]dto.RoleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, dto.RoleResponse{ID: int(r), Name: r.String()})
	}
	return out
}

func (s *catalogService) RequireRegion(ctx context.Context, id uint) (*entity.Region, error) {
	region, err := s.repo.FindRegion(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Wrap(apperror.ErrInvalidInput, "region %d does not exist", id)
		}
		return nil, err
	}
	return region, nil
}

func (s *catalogService) RequireDiscipline(ctx context.Context, id uint) (*entity.Discipline, error) {
	discipline, err := s.repo.FindDiscipline(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Wrap(apperror.ErrInvalidInput, "discipline %d does not exist", id)
		}
		return nil, err
	}
	return discipline, nil
}

func (s *catalogService) RequireRegions(ctx context.Context, ids []uint) error {
	unique := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	if len(unique) != len(ids) {
		return apperror.Wrap(apperror.ErrInvalidInput, "permissions contain duplicate regions")
	}

	count, err := s.repo.CountRegions(ctx, ids)
	if err != nil {
		return err
	}
	if int(count) != len(ids) {
		return apperror.Wrap(apperror.ErrInvalidInput, "permissions reference unknown regions")
	}
	return nil
}
