package scheduler

import (
	"context"

	"codedepartament.ru/sbp/internal/modules/content/dto"
	"github.com/mmcdole/gofeed"
)

// FeedFetcher reads RSS/Atom feeds.
type FeedFetcher struct {
	parser *gofeed.Parser
}

func NewFeedFetcher() *FeedFetcher {
	return &FeedFetcher{parser: gofeed.NewParser()}
}

// Fetch returns at most limit items (0 means all) in feed order.
func (f *FeedFetcher) Fetch(ctx context.Context, url string, limit int) ([]dto.FeedItem, error) {
	feed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, err
	}

	n := len(feed.Items)
	if limit > 0 && limit < n {
		n = limit
	}

	items := make([]dto.FeedItem, 0, n)
	for _, item := range feed.Items[:n] {
		fi := dto.FeedItem{
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
			Published:   item.PublishedParsed,
		}
		if fi.Description == "" {
			fi.Description = item.Content
		}
		if item.Image != nil {
			fi.ImageURL = item.Image.URL
		}
		items = append(items, fi)
	}
	return items, nil
}
