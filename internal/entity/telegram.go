package entity

import (
	"strings"
	"time"
)

// TelegramAccount maps a Telegram username to the chat the bot can write to.
type TelegramAccount struct {
	Username  string    `gorm:"size:64;primaryKey" json:"username"`
	ChatID    int64     `gorm:"not null" json:"chat_id"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// NormalizeTelegramUsername strips the leading @ and lowercases the name.
func NormalizeTelegramUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}
