package repository

import (
	"context"

	"codedepartament.ru/sbp/internal/entity"
	"gorm.io/gorm"
)

type CatalogRepository interface {
	ListRegions(ctx context.Context) ([]entity.Region, error)
	ListDisciplines(ctx context.Context) ([]entity.Discipline, error)
	FindRegion(ctx context.Context, id uint) (*entity.Region, error)
	FindDiscipline(ctx context.Context, id uint) (*entity.Discipline, error)
	// CountRegions counts how many of ids exist.
	CountRegions(ctx context.Context, ids []uint) (int64, error)
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListRegions(ctx context.Context) ([]entity.Region, error) {
	var regions []entity.Region
	err := r.db.WithContext(ctx).Order("id").Find(&regions).Error
	return regions, err
}

func (r *catalogRepository) ListDisciplines(ctx context.Context) ([]entity.Discipline, error) {
	var disciplines []entity.Discipline
	err := r.db.WithContext(ctx).Order("name").Find(&disciplines).Error
	return disciplines, err
}

func (r *catalogRepository) FindRegion(ctx context.Context, id uint) (*entity.Region, error) {
	var region entity.Region
	if err := r.db.WithContext(ctx).First(&region, id).Error; err != nil {
		return nil, err
	}
	return &region, nil
}

func (r *catalogRepository) FindDiscipline(ctx context.Context, id uint) (*entity.Discipline, error) {
	var discipline entity.Discipline
	if err := r.db.WithContext(ctx).First(&discipline, id).Error; err != nil {
		return nil, err
	}
	return &discipline, nil
}

func (r *catalogRepository) CountRegions(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Region{}).Where("id IN ?", ids).Count(&count).Error
	return count, err
}
