package sender

import (
	"context"
	"errors"
	"testing"

	"codedepartament.ru/sbp/internal/entity"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeAccounts map[string]int64

func (f fakeAccounts) ChatID(_ context.Context, username string) (int64, error) {
	id, ok := f[entity.NormalizeTelegramUsername(username)]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	return id, nil
}

type fakeAPI struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestSendResolvesChatByUsername(t *testing.T) {
	api := &fakeAPI{}
	s := NewTelegramSenderWithAPI(api, fakeAccounts{"ivan": 42})

	require.NoError(t, s.Send(context.Background(), "@Ivan", "hello"))
	require.Len(t, api.sent, 1)
	assert.EqualValues(t, 42, api.sent[0].ChatID)
	assert.Equal(t, "hello", api.sent[0].Text)
}

func TestSendUnknownRecipient(t *testing.T) {
	s := NewTelegramSenderWithAPI(&fakeAPI{}, fakeAccounts{})
	assert.ErrorIs(t, s.Send(context.Background(), "ghost", "hi"), ErrUnknownRecipient)
}

func TestSendPropagatesAPIError(t *testing.T) {
	s := NewTelegramSenderWithAPI(&fakeAPI{err: errors.New("blocked")}, fakeAccounts{"ivan": 1})
	err := s.Send(context.Background(), "ivan", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked")
}
