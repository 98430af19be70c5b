package sender

import (
	"context"
	"errors"
	"fmt"

	"codedepartament.ru/sbp/internal/modules/notification/repository"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"
)

// ErrUnknownRecipient means the user never started a chat with the bot.
var ErrUnknownRecipient = errors.New("recipient has not started the bot")

type Sender interface {
	Send(ctx context.Context, username, text string) error
}

// MessageAPI is the part of *tgbotapi.BotAPI the sender needs.
type MessageAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type telegramSender struct {
	api      MessageAPI
	accounts repository.AccountRepository
}

func NewTelegramSender(token string, accounts repository.AccountRepository) (Sender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false
	return NewTelegramSenderWithAPI(bot, accounts), nil
}

func NewTelegramSenderWithAPI(api MessageAPI, accounts repository.AccountRepository) Sender {
	return &telegramSender{api: api, accounts: accounts}
}

func (s *telegramSender) Send(ctx context.Context, username, text string) error {
	chatID, err := s.accounts.ChatID(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnknownRecipient
		}
		return err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %s: %w", username, err)
	}
	return nil
}
