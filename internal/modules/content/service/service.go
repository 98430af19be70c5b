package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/internal/modules/content/dto"
	"codedepartament.ru/sbp/internal/modules/content/repository"
	"codedepartament.ru/sbp/pkg/apperror"
	commonDto "codedepartament.ru/sbp/pkg/dto"
	"codedepartament.ru/sbp/pkg/storage"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

// NewsIndexer mirrors news into full-text search.
type NewsIndexer interface {
	IndexNews(ctx context.Context, n *entity.News) error
	RemoveNews(ctx context.Context, id uint) error
}

type ContentService interface {
	ListFAQ(ctx context.Context) ([]entity.FAQ, error)
	CreateFAQ(ctx context.Context, req dto.CreateFAQRequest) (*entity.FAQ, error)
	DeleteFAQ(ctx context.Context, id uint) error

	ListNews(ctx context.Context, q commonDto.PageQuery) (*commonDto.Paginated[entity.News], error)
	GetNews(ctx context.Context, id uint) (*entity.News, error)
	CreateNews(ctx context.Context, req dto.CreateNewsRequest, image *commonDto.ImageFile) (*entity.News, error)
	DeleteNews(ctx context.Context, id uint) error
	// ImportNews stores feed items that are not stored yet and returns how many were new.
	ImportNews(ctx context.Context, items []dto.FeedItem) (int, error)
}

type contentService struct {
	repo         repository.ContentRepository
	images       storage.ImageStorage
	indexer      NewsIndexer
	uploadFolder string
	sanitizer    *bluemonday.Policy
}

// NewContentService accepts nil images and indexer; uploads are then refused
// and search is not updated.
func NewContentService(repo repository.ContentRepository, images storage.ImageStorage, indexer NewsIndexer, uploadFolder string) ContentService {
	return &contentService{
		repo:         repo,
		images:       images,
		indexer:      indexer,
		uploadFolder: uploadFolder,
		sanitizer:    bluemonday.UGCPolicy(),
	}
}

func (s *contentService) ListFAQ(ctx context.Context) ([]entity.FAQ, error) {
	return s.repo.ListFAQ(ctx)
}

func (s *contentService) CreateFAQ(ctx context.Context, req dto.CreateFAQRequest) (*entity.FAQ, error) {
	faq := &entity.FAQ{
		Question: strings.TrimSpace(req.Question),
		Answer:   s.sanitizer.Sanitize(req.Answer),
	}
	if err := s.repo.CreateFAQ(ctx, faq); err != nil {
		return nil, err
	}
	return faq, nil
}

func (s *contentService) DeleteFAQ(ctx context.Context, id uint) error {
	ok, err := s.repo.DeleteFAQ(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Wrap(apperror.ErrNotFound, "faq entry not found")
	}
	return nil
}

func (s *contentService) ListNews(ctx context.Context, q commonDto.PageQuery) (*commonDto.Paginated[entity.News], error) {
	q.Normalize()
	news, total, err := s.repo.ListNews(ctx, q.Offset(), q.Limit)
	if err != nil {
		return nil, err
	}
	if news == nil {
		news = []entity.News{}
	}
	return &commonDto.Paginated[entity.News]{
		Data: news,
		Meta: commonDto.NewPaginationMeta(q, total),
	}, nil
}

func (s *contentService) GetNews(ctx context.Context, id uint) (*entity.News, error) {
	news, err := s.repo.FindNews(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Wrap(apperror.ErrNotFound, "news not found")
		}
		return nil, err
	}
	return news, nil
}

func (s *contentService) CreateNews(ctx context.Context, req dto.CreateNewsRequest, image *commonDto.ImageFile) (*entity.News, error) {
	content := s.sanitizer.Sanitize(req.Content)
	if strings.TrimSpace(content) == "" {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "content is empty after sanitizing")
	}

	news := &entity.News{
		Title:   strings.TrimSpace(req.Title),
		Content: content,
	}

	if image != nil {
		if s.images == nil {
			return nil, apperror.Wrap(apperror.ErrBadRequest, "image upload is not configured")
		}
		url, err := s.images.UploadImage(ctx, image.Reader, s.uploadFolder, image.FileName)
		if err != nil {
			return nil, apperror.Wrap(apperror.ErrInvalidInput, "%s", err.Error())
		}
		news.ImageURL = &url
	}

	if err := s.repo.CreateNews(ctx, news); err != nil {
		if news.ImageURL != nil {
			s.dropImage(ctx, *news.ImageURL)
		}
		return nil, err
	}
	log.Printf("✅ News %d %q published", news.ID, news.Title)

	s.index(ctx, news)
	return news, nil
}

func (s *contentService) DeleteNews(ctx context.Context, id uint) error {
	news, err := s.GetNews(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteNews(ctx, id); err != nil {
		return err
	}

	if news.ImageURL != nil && news.SourceURL == nil {
		s.dropImage(ctx, *news.ImageURL)
	}
	if s.indexer != nil {
		if err := s.indexer.RemoveNews(ctx, id); err != nil {
			log.Printf("⚠️ Failed to remove news %d from search: %v", id, err)
		}
	}
	log.Printf("🧹 News %d deleted", id)
	return nil
}

func (s *contentService) ImportNews(ctx context.Context, items []dto.FeedItem) (int, error) {
	created := 0
	for _, item := range items {
		link := strings.TrimSpace(item.Link)
		title := strings.TrimSpace(item.Title)
		if link == "" || title == "" {
			continue
		}

		body := s.sanitizer.Sanitize(item.Description + fmt.Sprintf(`<p><a href="%s">Source</a></p>`, html.EscapeString(link)))

		news := &entity.News{
			Title:     title,
			Content:   body,
			SourceURL: &link,
		}
		if item.ImageURL != "" {
			img := item.ImageURL
			news.ImageURL = &img
		}
		if item.Published != nil {
			news.CreatedAt = *item.Published
		}

		ok, err := s.repo.CreateNewsIfAbsent(ctx, news)
		if err != nil {
			return created, err
		}
		if !ok {
			continue
		}
		created++
		s.index(ctx, news)
	}
	return created, nil
}

func (s *contentService) index(ctx context.Context, news *entity.News) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexNews(ctx, news); err != nil {
		log.Printf("⚠️ Failed to index news %d: %v", news.ID, err)
	}
}

func (s *contentService) dropImage(ctx context.Context, url string) {
	if s.images == nil {
		return
	}
	if err := s.images.DeleteImage(ctx, url); err != nil {
		log.Printf("⚠️ Failed to delete image %s: %v", url, err)
	}
}
