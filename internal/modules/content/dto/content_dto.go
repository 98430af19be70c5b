package dto

import "time"

type CreateFAQRequest struct {
	Question string `json:"question" binding:"required,max=255"`
	Answer   string `json:"answer" binding:"required,max=5000"`
}

// CreateNewsRequest is sent as multipart form; the image part is optional.
type CreateNewsRequest struct {
	Title   string `form:"title" binding:"required,max=200"`
	Content string `form:"content" binding:"required,max=20000"`
}

// FeedItem is one entry pulled from the external news feed.
type FeedItem struct {
	Title       string
	Link        string
	Description string
	ImageURL    string
	Published   *time.Time
}
