package service

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/internal/modules/search/dto"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const (
	competitionsIndex = "competitions"
	newsIndex         = "news"
	defaultLimit      = 20
)

type SearchService interface {
	// Init configures filterable and sortable attributes of both indexes.
	Init()
	IndexCompetition(ctx context.Context, c *entity.Competition) error
	RemoveCompetition(ctx context.Context, id uint) error
	IndexNews(ctx context.Context, n *entity.News) error
	RemoveNews(ctx context.Context, id uint) error
	SearchCompetitions(ctx context.Context, q dto.CompetitionSearchQuery) ([]dto.CompetitionHit, error)
	SearchNews(ctx context.Context, q dto.NewsSearchQuery) ([]dto.NewsHit, error)
}

type searchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewSearchService(client meilisearch.ServiceManager) SearchService {
	return &searchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *searchService) Init() {
	settings := map[string]struct {
		filterable []string
		sortable   []string
	}{
		competitionsIndex: {
			filterable: []string{"status", "kind", "format", "discipline_id", "permissions"},
			sortable:   []string{"start_date"},
		},
		newsIndex: {
			sortable: []string{"created_at"},
		},
	}

	for name, cfg := range settings {
		if len(cfg.filterable) > 0 {
			attrs := make([]any, len(cfg.filterable))
			for i, v := range cfg.filterable {
				attrs[i] = v
			}
			if _, err := s.client.Index(name).UpdateFilterableAttributes(&attrs); err != nil {
				log.Printf("⚠️ Failed to update %s filterable attributes: %v", name, err)
			}
		}
		sortable := cfg.sortable
		if _, err := s.client.Index(name).UpdateSortableAttributes(&sortable); err != nil {
			log.Printf("⚠️ Failed to update %s sortable attributes: %v", name, err)
		}
	}
	log.Println("✅ Meilisearch indexes initialized")
}

// plainText strips markup so snippets do not carry HTML.
func (s *searchService) plainText(content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")

	text := html.UnescapeString(s.sanitizer.Sanitize(content))
	return strings.Join(strings.Fields(text), " ")
}

func (s *searchService) IndexCompetition(ctx context.Context, c *entity.Competition) error {
	if c.Status == entity.StatusPending {
		return s.RemoveCompetition(ctx, c.ID)
	}

	doc := dto.CompetitionHit{
		ID:           c.ID,
		Name:         c.Name,
		Description:  s.plainText(c.Description),
		DisciplineID: c.DisciplineID,
		Kind:         string(c.Kind),
		Format:       string(c.Format),
		Status:       string(c.Status),
		Permissions:  []uint(c.Permissions),
		MinAge:       c.MinAge,
		MaxAge:       c.MaxAge,
	}
	if doc.Permissions == nil {
		doc.Permissions = []uint{}
	}
	if c.Discipline != nil {
		doc.Discipline = c.Discipline.Name
	}
	if c.Dates != nil {
		doc.StartDate = c.Dates.StartDate.Unix()
	}

	task, err := s.client.Index(competitionsIndex).AddDocuments([]dto.CompetitionHit{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Printf("🔎 Indexed competition %d, task id: %d", c.ID, task.TaskUID)
	return nil
}

func (s *searchService) RemoveCompetition(_ context.Context, id uint) error {
	_, err := s.client.Index(competitionsIndex).DeleteDocument(strconv.FormatUint(uint64(id), 10))
	return err
}

func (s *searchService) IndexNews(_ context.Context, n *entity.News) error {
	doc := dto.NewsHit{
		ID:        n.ID,
		Title:     n.Title,
		Content:   s.plainText(n.Content),
		ImageURL:  n.ImageURL,
		CreatedAt: n.CreatedAt.Unix(),
	}
	task, err := s.client.Index(newsIndex).AddDocuments([]dto.NewsHit{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Printf("🔎 Indexed news %d, task id: %d", n.ID, task.TaskUID)
	return nil
}

func (s *searchService) RemoveNews(_ context.Context, id uint) error {
	_, err := s.client.Index(newsIndex).DeleteDocument(strconv.FormatUint(uint64(id), 10))
	return err
}

// CompetitionFilter renders the meilisearch filter expression for q.
func CompetitionFilter(q dto.CompetitionSearchQuery) string {
	var parts []string
	if q.Status != nil {
		parts = append(parts, fmt.Sprintf("status = %q", *q.Status))
	}
	if q.Kind != nil {
		parts = append(parts, fmt.Sprintf("kind = %q", *q.Kind))
	}
	if q.Format != nil {
		parts = append(parts, fmt.Sprintf("format = %q", *q.Format))
	}
	if q.DisciplineID != nil {
		parts = append(parts, fmt.Sprintf("discipline_id = %d", *q.DisciplineID))
	}
	if q.RegionID != nil {
		parts = append(parts, fmt.Sprintf("permissions = %d", *q.RegionID))
	}
	return strings.Join(parts, " AND ")
}

func (s *searchService) SearchCompetitions(_ context.Context, q dto.CompetitionSearchQuery) ([]dto.CompetitionHit, error) {
	req := &meilisearch.SearchRequest{Limit: limitOr(q.Limit)}
	if f := CompetitionFilter(q); f != "" {
		req.Filter = f
	}

	resp, err := s.client.Index(competitionsIndex).Search(q.Q, req)
	if err != nil {
		return nil, fmt.Errorf("search competitions: %w", err)
	}

	var hits []dto.CompetitionHit
	if err := decodeHits(resp.Hits, &hits); err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []dto.CompetitionHit{}
	}
	return hits, nil
}

func (s *searchService) SearchNews(_ context.Context, q dto.NewsSearchQuery) ([]dto.NewsHit, error) {
	resp, err := s.client.Index(newsIndex).Search(q.Q, &meilisearch.SearchRequest{
		Limit: limitOr(q.Limit),
		Sort:  []string{"created_at:desc"},
	})
	if err != nil {
		return nil, fmt.Errorf("search news: %w", err)
	}

	var hits []dto.NewsHit
	if err := decodeHits(resp.Hits, &hits); err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []dto.NewsHit{}
	}
	return hits, nil
}

func decodeHits(hits any, out any) error {
	raw, err := json.Marshal(hits)
	if err != nil {
		return fmt.Errorf("decode hits: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode hits: %w", err)
	}
	return nil
}

func limitOr(limit int64) int64 {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}

func strPtr(s string) *string {
	return &s
}
