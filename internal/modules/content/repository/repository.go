package repository

import (
	"context"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ContentRepository interface {
	ListFAQ(ctx context.Context) ([]entity.FAQ, error)
	CreateFAQ(ctx context.Context, faq *entity.FAQ) error
	DeleteFAQ(ctx context.Context, id uint) (bool, error)

	ListNews(ctx context.Context, offset, limit int) ([]entity.News, int64, error)
	FindNews(ctx context.Context, id uint) (*entity.News, error)
	CreateNews(ctx context.Context, news *entity.News) error
	// CreateNewsIfAbsent skips items whose source URL is already stored.
	CreateNewsIfAbsent(ctx context.Context, news *entity.News) (bool, error)
	DeleteNews(ctx context.Context, id uint) error
}

type contentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) ListFAQ(ctx context.Context) ([]entity.FAQ, error) {
	var faqs []entity.FAQ
	err := database.Conn(ctx, r.db).Order("id").Find(&faqs).Error
	return faqs, err
}

func (r *contentRepository) CreateFAQ(ctx context.Context, faq *entity.FAQ) error {
	return database.Conn(ctx, r.db).Create(faq).Error
}

func (r *contentRepository) DeleteFAQ(ctx context.Context, id uint) (bool, error) {
	res := database.Conn(ctx, r.db).Delete(&entity.FAQ{}, id)
	return res.RowsAffected > 0, res.Error
}

func (r *contentRepository) ListNews(ctx context.Context, offset, limit int) ([]entity.News, int64, error) {
	var total int64
	if err := database.Conn(ctx, r.db).Model(&entity.News{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var news []entity.News
	err := database.Conn(ctx, r.db).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&news).Error
	return news, total, err
}

func (r *contentRepository) FindNews(ctx context.Context, id uint) (*entity.News, error) {
	var news entity.News
	if err := database.Conn(ctx, r.db).First(&news, id).Error; err != nil {
		return nil, err
	}
	return &news, nil
}

func (r *contentRepository) CreateNews(ctx context.Context, news *entity.News) error {
	return database.Conn(ctx, r.db).Create(news).Error
}

func (r *contentRepository) CreateNewsIfAbsent(ctx context.Context, news *entity.News) (bool, error) {
	res := database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "source_url"}}, DoNothing: true}).
		Create(news)
	return res.RowsAffected > 0, res.Error
}

func (r *contentRepository) DeleteNews(ctx context.Context, id uint) error {
	return database.Conn(ctx, r.db).Delete(&entity.News{}, id).Error
}
