package entity

import "time"

type FAQ struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Question string `gorm:"size:255;not null" json:"question"`
	Answer   string `gorm:"type:text;not null" json:"answer"`
}

func (FAQ) TableName() string {
	return "faqs"
}

type News struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	Title    string  `gorm:"size:200;not null" json:"title"`
	Content  string  `gorm:"type:text;not null" json:"content"`
	ImageURL *string `gorm:"type:text" json:"image_url,omitempty"`
	// SourceURL is set for items imported from the news feed.
	SourceURL *string   `gorm:"size:500;uniqueIndex" json:"source_url,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
