package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"codedepartament.ru/sbp/internal/entity"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessenger struct {
	sent []tgbotapi.MessageConfig
}

func (f *fakeMessenger) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, m)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeMessenger) last() tgbotapi.MessageConfig {
	return f.sent[len(f.sent)-1]
}

type fakeStore struct {
	accounts map[string]int64
	regions  map[string]uint
	listings []Listing
	mine     []Listing
	query    *Query
	err      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: map[string]int64{},
		regions:  map[string]uint{"республика татарстан": 16},
	}
}

func (s *fakeStore) SaveAccount(_ context.Context, username string, chatID int64) error {
	s.accounts[entity.NormalizeTelegramUsername(username)] = chatID
	return nil
}

func (s *fakeStore) FindRegion(_ context.Context, name string) (uint, bool, error) {
	for k, id := range s.regions {
		if k == strings.ToLower(name) {
			return id, true, nil
		}
	}
	return 0, false, nil
}

func (s *fakeStore) SearchCompetitions(_ context.Context, q Query) ([]Listing, error) {
	s.query = &q
	return s.listings, s.err
}

func (s *fakeStore) MyCompetitions(_ context.Context, _ int64) ([]Listing, error) {
	return s.mine, s.err
}

const chatID int64 = 42

func text(t string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{UserName: "Alice", FirstName: "Алиса"},
		Text: t,
	}
}

func command(name string) *tgbotapi.Message {
	m := text("/" + name)
	m.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name) + 1}}
	return m
}

func send(t *testing.T, app *App, msgs ...*tgbotapi.Message) {
	t.Helper()
	for _, m := range msgs {
		require.NoError(t, app.HandleMessage(context.Background(), m))
	}
}

func TestStartLinksAccount(t *testing.T) {
	api := &fakeMessenger{}
	store := newFakeStore()
	app := New(api, store, "https://example.org")

	send(t, app, command("start"))

	assert.Equal(t, chatID, store.accounts["@alice"])
	require.Len(t, api.sent, 1)
	assert.Contains(t, api.last().Text, "Привет, Алиса!")
	assert.IsType(t, tgbotapi.ReplyKeyboardMarkup{}, api.last().ReplyMarkup)
}

func TestNationalSearchFlow(t *testing.T) {
	api := &fakeMessenger{}
	store := newFakeStore()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	store.listings = []Listing{{
		Name:                  "Кубок <России>",
		Description:           "финал",
		Kind:                  entity.KindTeam,
		MaxParticipantsInTeam: 4,
		StartDate:             &start,
		EndDate:               &end,
	}}
	app := New(api, store, "https://example.org")

	send(t, app,
		text(btnFindCompetitions),
		text(disciplineButtons[3].Label),
		text(btnAll),
		text(btnNational),
		text("17"),
		text(btnTeam),
	)

	require.NotNil(t, store.query)
	assert.Equal(t, "Алгоритмическое программирование", store.query.Discipline)
	assert.Equal(t, []entity.CompetitionFormat{entity.FormatOnline, entity.FormatOffline}, store.query.Formats)
	assert.Equal(t, 17, store.query.Age)
	assert.Equal(t, entity.KindTeam, store.query.Kind)
	assert.Nil(t, store.query.RegionID)

	listing := api.last()
	assert.Equal(t, tgbotapi.ModeHTML, listing.ParseMode)
	assert.Contains(t, listing.Text, "Кубок &lt;России&gt;")
	assert.Contains(t, listing.Text, "01.03.2026 10:00 - 03.03.2026 10:00")
	assert.Contains(t, listing.Text, "Регистрация:</b> не указаны")
	assert.Contains(t, listing.Text, "4 человек")
	assert.Contains(t, listing.Text, "Соревнования закрытые")
	assert.NotContains(t, app.sessions, chatID)
}

func TestRegionalSearchFlow(t *testing.T) {
	api := &fakeMessenger{}
	store := newFakeStore()
	app := New(api, store, "https://example.org")

	send(t, app,
		text(btnFindCompetitions),
		text(disciplineButtons[0].Label),
		text(btnOnline),
		text(btnRegional),
		text("15"),
		text(btnSolo),
		text("Москва"),
	)
	assert.Nil(t, store.query)
	assert.Contains(t, api.last().Text, "неверное название региона")

	send(t, app, text("Республика Татарстан"))
	require.NotNil(t, store.query)
	require.NotNil(t, store.query.RegionID)
	assert.Equal(t, uint(16), *store.query.RegionID)
	assert.Equal(t, entity.KindIndividual, store.query.Kind)
	assert.Equal(t, "По вашему запросу соревнования не найдены.", api.last().Text)
}

func TestInvalidAgeRepeatsQuestion(t *testing.T) {
	api := &fakeMessenger{}
	app := New(api, newFakeStore(), "")

	send(t, app,
		text(btnFindCompetitions),
		text(disciplineButtons[0].Label),
		text(btnOffline),
		text(btnNational),
		text("abc"),
	)
	assert.Contains(t, api.last().Text, "введи число")

	send(t, app, text("7"))
	assert.Contains(t, api.last().Text, "от 10 до 100")
	assert.Equal(t, stepAge, app.sessions[chatID].step)

	send(t, app, text("30"))
	assert.Equal(t, stepKind, app.sessions[chatID].step)
}

func TestCancelDropsSession(t *testing.T) {
	api := &fakeMessenger{}
	app := New(api, newFakeStore(), "")

	send(t, app, text(btnFindCompetitions), command("cancel"))

	assert.NotContains(t, app.sessions, chatID)
	assert.Equal(t, "🚀 Выберите нужное действие:", api.last().Text)
}

func TestMyCompetitions(t *testing.T) {
	api := &fakeMessenger{}
	store := newFakeStore()
	app := New(api, store, "https://example.org")

	send(t, app, text(btnMyCompetitions))
	assert.Contains(t, api.last().Text, "не участвуешь")

	store.mine = []Listing{{Name: "Хакатон", Description: "весна", TeamName: "Ежи"}}
	send(t, app, text(btnMyCompetitions))
	assert.Contains(t, api.last().Text, "🔥 Хакатон (весна)")
	assert.Contains(t, api.last().Text, "Команда: Ежи")
}

func TestStoreErrorSurfaces(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("db down")
	app := New(&fakeMessenger{}, store, "")

	err := app.HandleMessage(context.Background(), text(btnMyCompetitions))
	assert.Error(t, err)
}

func TestRegionalListingIsNeverMarkedClosed(t *testing.T) {
	out := formatListing(Listing{Name: "x", Kind: entity.KindIndividual}, false, "https://example.org")
	assert.NotContains(t, out, "закрытые")
	assert.NotContains(t, out, "Состав команды")
	assert.Contains(t, out, `<a href="https://example.org">сайт</a>`)
}
