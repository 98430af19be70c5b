package bot

import (
	"context"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	btnMyCompetitions   = "📅 Мои соревнования"
	btnFindCompetitions = "🏆 Найти соревнования"
	btnHelp             = "ℹ️ Помощь"
	btnAbout            = "📌 О боте"
)

var mainMenu = [][]string{
	{btnMyCompetitions, btnFindCompetitions},
	{btnHelp, btnAbout},
}

const helpText = `Вот список доступных команд:
/cancel - отмена
/start - начало работы бота
/help - эта справка`

const aboutText = "Этот бот помогает отслеживать соревнования ФСП, в которых вы участвуете, а также искать подходящие."

// Messenger is satisfied by *tgbotapi.BotAPI.
type Messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type App struct {
	api     Messenger
	store   Store
	siteURL string

	// questionnaires in progress, keyed by chat
	sessions map[int64]*Questionnaire
}

func New(api Messenger, store Store, siteURL string) *App {
	return &App{
		api:      api,
		store:    store,
		siteURL:  siteURL,
		sessions: map[int64]*Questionnaire{},
	}
}

// Run handles updates one at a time until ctx is cancelled.
func (a *App) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if upd.Message == nil {
				continue
			}
			if err := a.HandleMessage(ctx, upd.Message); err != nil {
				log.Printf("❌ handle message from chat %d: %v", upd.Message.Chat.ID, err)
				_ = a.send(upd.Message.Chat.ID, Reply{Text: "😞 Произошла ошибка при загрузке данных", Keyboard: mainMenu})
			}
		}
	}
}

func (a *App) HandleMessage(ctx context.Context, m *tgbotapi.Message) error {
	chatID := m.Chat.ID
	text := strings.TrimSpace(m.Text)

	switch {
	case m.IsCommand() && m.Command() == "start":
		delete(a.sessions, chatID)
		return a.start(ctx, m)
	case m.IsCommand() && m.Command() == "cancel", text == "Отмена", text == "Вернуться":
		delete(a.sessions, chatID)
		return a.send(chatID, Reply{Text: "🚀 Выберите нужное действие:", Keyboard: mainMenu})
	case m.IsCommand() && m.Command() == "help":
		return a.send(chatID, Reply{Text: helpText, Keyboard: mainMenu})
	}

	if q, ok := a.sessions[chatID]; ok {
		return a.answer(ctx, chatID, q, text)
	}

	switch text {
	case btnMyCompetitions:
		list, err := a.store.MyCompetitions(ctx, chatID)
		if err != nil {
			return err
		}
		return a.sendHTML(chatID, formatMyCompetitions(list, a.siteURL), mainMenu)
	case btnFindCompetitions:
		q, reply := NewQuestionnaire()
		a.sessions[chatID] = q
		return a.send(chatID, reply)
	case btnHelp:
		return a.send(chatID, Reply{Text: helpText, Keyboard: mainMenu})
	case btnAbout:
		return a.send(chatID, Reply{Text: aboutText, Keyboard: mainMenu})
	}
	return a.send(chatID, Reply{Text: "🚀 Выберите нужное действие:", Keyboard: mainMenu})
}

func (a *App) start(ctx context.Context, m *tgbotapi.Message) error {
	if m.From != nil && m.From.UserName != "" {
		if err := a.store.SaveAccount(ctx, m.From.UserName, m.Chat.ID); err != nil {
			return err
		}
		log.Printf("👋 Telegram account @%s linked to chat %d", m.From.UserName, m.Chat.ID)
	}

	name := ""
	if m.From != nil {
		name = m.From.FirstName
	}
	return a.send(m.Chat.ID, Reply{
		Text: "Привет, " + name + "! 👋\n" +
			"Вы успешно подписались на рассылку от ФСП. " +
			"Этот бот помогает отслеживать соревнования ФСП, в которых вы участвуете, а также искать подходящие!\n\n" +
			"Выберите нужное действие:",
		Keyboard: mainMenu,
	})
}

func (a *App) answer(ctx context.Context, chatID int64, q *Questionnaire, text string) error {
	reply, done, err := q.Answer(ctx, text, a.store.FindRegion)
	if err != nil {
		return err
	}
	if !done {
		return a.send(chatID, reply)
	}
	delete(a.sessions, chatID)

	if err := a.send(chatID, Reply{Text: q.Summary() + "\nИщем подходящие варианты...", Keyboard: mainMenu}); err != nil {
		return err
	}

	query := q.Query()
	list, err := a.store.SearchCompetitions(ctx, query)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return a.send(chatID, Reply{Text: "По вашему запросу соревнования не найдены.", Keyboard: mainMenu})
	}
	for _, l := range list {
		if err := a.sendHTML(chatID, formatListing(l, query.RegionID == nil, a.siteURL), mainMenu); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) send(chatID int64, r Reply) error {
	msg := tgbotapi.NewMessage(chatID, r.Text)
	msg.ReplyMarkup = keyboard(r.Keyboard)
	_, err := a.api.Send(msg)
	return err
}

func (a *App) sendHTML(chatID int64, text string, kb [][]string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyMarkup = keyboard(kb)
	_, err := a.api.Send(msg)
	return err
}

func keyboard(rows [][]string) interface{} {
	if rows == nil {
		return tgbotapi.NewRemoveKeyboard(true)
	}
	kb := make([][]tgbotapi.KeyboardButton, len(rows))
	for i, row := range rows {
		buttons := make([]tgbotapi.KeyboardButton, len(row))
		for j, label := range row {
			buttons[j] = tgbotapi.NewKeyboardButton(label)
		}
		kb[i] = buttons
	}
	markup := tgbotapi.NewReplyKeyboard(kb...)
	markup.ResizeKeyboard = true
	return markup
}
