package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"codedepartament.ru/sbp/internal/entity"
	"codedepartament.ru/sbp/internal/modules/content/dto"
	"codedepartament.ru/sbp/pkg/apperror"
	commonDto "codedepartament.ru/sbp/pkg/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeRepo struct {
	faqs      []entity.FAQ
	news      map[uint]entity.News
	nextID    uint
	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{news: map[uint]entity.News{}}
}

func (f *fakeRepo) ListFAQ(context.Context) ([]entity.FAQ, error) { return f.faqs, nil }

func (f *fakeRepo) CreateFAQ(_ context.Context, faq *entity.FAQ) error {
	f.nextID++
	faq.ID = f.nextID
	f.faqs = append(f.faqs, *faq)
	return nil
}

func (f *fakeRepo) DeleteFAQ(_ context.Context, id uint) (bool, error) {
	for i, q := range f.faqs {
		if q.ID == id {
			f.faqs = append(f.faqs[:i], f.faqs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) ListNews(_ context.Context, offset, limit int) ([]entity.News, int64, error) {
	var out []entity.News
	for _, n := range f.news {
		out = append(out, n)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRepo) FindNews(_ context.Context, id uint) (*entity.News, error) {
	n, ok := f.news[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &n, nil
}

func (f *fakeRepo) CreateNews(_ context.Context, n *entity.News) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	n.ID = f.nextID
	f.news[n.ID] = *n
	return nil
}

func (f *fakeRepo) CreateNewsIfAbsent(ctx context.Context, n *entity.News) (bool, error) {
	for _, existing := range f.news {
		if existing.SourceURL != nil && n.SourceURL != nil && *existing.SourceURL == *n.SourceURL {
			return false, nil
		}
	}
	return true, f.CreateNews(ctx, n)
}

func (f *fakeRepo) DeleteNews(_ context.Context, id uint) error {
	delete(f.news, id)
	return nil
}

type fakeImages struct {
	uploaded []string
	deleted  []string
}

func (f *fakeImages) UploadImage(_ context.Context, r io.Reader, folder, fileName string) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	url := "https://res.cloudinary.com/demo/image/upload/v1/" + folder + "/" + fileName
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeImages) DeleteImage(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

type fakeIndexer struct {
	indexed []uint
	removed []uint
}

func (f *fakeIndexer) IndexNews(_ context.Context, n *entity.News) error {
	f.indexed = append(f.indexed, n.ID)
	return nil
}

func (f *fakeIndexer) RemoveNews(_ context.Context, id uint) error {
	f.removed = append(f.removed, id)
	return nil
}

func TestCreateNewsSanitizesAndIndexes(t *testing.T) {
	repo, images, idx := newFakeRepo(), &fakeImages{}, &fakeIndexer{}
	svc := NewContentService(repo, images, idx, "news")

	news, err := svc.CreateNews(context.Background(), dto.CreateNewsRequest{
		Title:   " Finals ",
		Content: `<p onclick="steal()">Results are out</p><script>alert(1)</script>`,
	}, &commonDto.ImageFile{Reader: strings.NewReader("png"), FileName: "final.png"})
	require.NoError(t, err)

	assert.Equal(t, "Finals", news.Title)
	assert.Equal(t, "<p>Results are out</p>", news.Content)
	require.NotNil(t, news.ImageURL)
	assert.Equal(t, images.uploaded[0], *news.ImageURL)
	assert.Equal(t, []uint{news.ID}, idx.indexed)
}

func TestCreateNewsDropsImageWhenInsertFails(t *testing.T) {
	repo, images := newFakeRepo(), &fakeImages{}
	repo.createErr = errors.New("db down")
	svc := NewContentService(repo, images, nil, "news")

	_, err := svc.CreateNews(context.Background(), dto.CreateNewsRequest{Title: "T", Content: "body"},
		&commonDto.ImageFile{Reader: strings.NewReader("png"), FileName: "a.png"})
	require.Error(t, err)
	assert.Equal(t, images.uploaded, images.deleted)
}

func TestCreateNewsWithoutStorage(t *testing.T) {
	svc := NewContentService(newFakeRepo(), nil, nil, "news")

	_, err := svc.CreateNews(context.Background(), dto.CreateNewsRequest{Title: "T", Content: "body"},
		&commonDto.ImageFile{Reader: strings.NewReader("png"), FileName: "a.png"})
	assert.ErrorIs(t, err, apperror.ErrBadRequest)
}

func TestCreateNewsRejectsScriptOnlyContent(t *testing.T) {
	svc := NewContentService(newFakeRepo(), nil, nil, "news")

	_, err := svc.CreateNews(context.Background(), dto.CreateNewsRequest{Title: "T", Content: "<script>x()</script>"}, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestDeleteNews(t *testing.T) {
	repo, images, idx := newFakeRepo(), &fakeImages{}, &fakeIndexer{}
	svc := NewContentService(repo, images, idx, "news")
	ctx := context.Background()

	news, err := svc.CreateNews(ctx, dto.CreateNewsRequest{Title: "T", Content: "body"},
		&commonDto.ImageFile{Reader: strings.NewReader("png"), FileName: "a.png"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteNews(ctx, news.ID))
	assert.Empty(t, repo.news)
	assert.Equal(t, []string{*news.ImageURL}, images.deleted)
	assert.Equal(t, []uint{news.ID}, idx.removed)

	assert.ErrorIs(t, svc.DeleteNews(ctx, news.ID), apperror.ErrNotFound)
}

func TestImportNewsSkipsKnownLinks(t *testing.T) {
	repo, idx := newFakeRepo(), &fakeIndexer{}
	svc := NewContentService(repo, nil, idx, "news")
	published := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	items := []dto.FeedItem{
		{Title: "Olympiad announced", Link: "https://example.org/a", Description: "<b>Soon</b>", Published: &published},
		{Title: "No link"},
		{Title: "Second", Link: "https://example.org/b"},
	}

	n, err := svc.ImportNews(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, idx.indexed, 2)

	n, err = svc.ImportNews(context.Background(), items)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, repo.news, 2)

	for _, stored := range repo.news {
		if stored.Title == "Olympiad announced" {
			assert.Equal(t, published, stored.CreatedAt)
			assert.Contains(t, stored.Content, `href="https://example.org/a"`)
		}
	}
}

func TestFAQ(t *testing.T) {
	svc := NewContentService(newFakeRepo(), nil, nil, "news")
	ctx := context.Background()

	faq, err := svc.CreateFAQ(ctx, dto.CreateFAQRequest{Question: "How to apply?", Answer: "Use the form"})
	require.NoError(t, err)

	list, err := svc.ListFAQ(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteFAQ(ctx, faq.ID))
	assert.ErrorIs(t, svc.DeleteFAQ(ctx, faq.ID), apperror.ErrNotFound)
}
