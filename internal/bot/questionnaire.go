package bot

import (
	"context"
	"strconv"
	"strings"

	"codedepartament.ru/sbp/internal/entity"
)

type step int

const (
	stepDiscipline step = iota + 1
	stepFormat
	stepScale
	stepAge
	stepKind
	stepRegion
)

const (
	minAge = 10
	maxAge = 100
)

// disciplineButtons maps keyboard labels to catalog discipline names.
var disciplineButtons = []struct{ Label, Name string }{
	{"🧑‍💻 Продуктовое программирование", "Продуктовое программирование"},
	{"🛡️ Программирование систем информационной безопасности", "Программирование систем информационной безопасности"},
	{"🤖 Программирование робототехники", "Программирование робототехники"},
	{"🧠 Программирование алгоритмическое", "Алгоритмическое программирование"},
	{"✈️ Программирование БАС", "Программирование беспилотных авиационных систем"},
}

const (
	btnOnline   = "💻 Онлайн"
	btnOffline  = "🏟️ Офлайн"
	btnAll      = "✨ Все"
	btnRegional = "📍 Региональные"
	btnNational = "🇷🇺 Всероссийские"
	btnSolo     = "👤 Индивидуальные"
	btnTeam     = "👥 Командные"
)

// Reply is what the bot answers with; a nil Keyboard removes the keyboard.
type Reply struct {
	Text     string
	Keyboard [][]string
}

// Questionnaire collects search parameters one answer at a time.
type Questionnaire struct {
	step       step
	discipline string
	formats    []entity.CompetitionFormat
	regional   bool
	age        int
	kind       entity.CompetitionKind
	regionID   *uint
	regionName string
}

// RegionLookup resolves a region name typed by the user.
type RegionLookup func(ctx context.Context, name string) (uint, bool, error)

func NewQuestionnaire() (*Questionnaire, Reply) {
	q := &Questionnaire{step: stepDiscipline}
	kb := [][]string{
		{disciplineButtons[0].Label, disciplineButtons[1].Label},
		{disciplineButtons[2].Label, disciplineButtons[3].Label},
		{disciplineButtons[4].Label},
	}
	return q, Reply{Text: "🏆 Давай найдем подходящие соревнования!\nКакая дисциплина тебя интересует?", Keyboard: kb}
}

// Answer consumes one message. done is true once the query is complete.
func (q *Questionnaire) Answer(ctx context.Context, text string, regions RegionLookup) (reply Reply, done bool, err error) {
	text = strings.TrimSpace(text)

	switch q.step {
	case stepDiscipline:
		name, ok := disciplineName(text)
		if !ok {
			return Reply{Text: "Выберите дисциплину с клавиатуры."}, false, nil
		}
		q.discipline = name
		q.step = stepFormat
		return Reply{Text: "Вас интересуют онлайн или офлайн участие?", Keyboard: [][]string{{btnOnline, btnOffline, btnAll}}}, false, nil

	case stepFormat:
		switch text {
		case btnOnline:
			q.formats = []entity.CompetitionFormat{entity.FormatOnline}
		case btnOffline:
			q.formats = []entity.CompetitionFormat{entity.FormatOffline}
		case btnAll:
			q.formats = []entity.CompetitionFormat{entity.FormatOnline, entity.FormatOffline}
		default:
			return Reply{Text: "Выберите формат с клавиатуры.", Keyboard: [][]string{{btnOnline, btnOffline, btnAll}}}, false, nil
		}
		q.step = stepScale
		return Reply{Text: "Выберите масштаб соревнований:", Keyboard: [][]string{{btnRegional, btnNational}}}, false, nil

	case stepScale:
		switch text {
		case btnRegional:
			q.regional = true
		case btnNational:
			q.regional = false
		default:
			return Reply{Text: "Выберите масштаб с клавиатуры.", Keyboard: [][]string{{btnRegional, btnNational}}}, false, nil
		}
		q.step = stepAge
		return Reply{Text: "Укажите свой возраст:"}, false, nil

	case stepAge:
		age, convErr := strconv.Atoi(text)
		if convErr != nil {
			return Reply{Text: "Пожалуйста, введи число (твой возраст):"}, false, nil
		}
		if age < minAge || age > maxAge {
			return Reply{Text: "Пожалуйста, укажи реальный возраст (от 10 до 100 лет):"}, false, nil
		}
		q.age = age
		q.step = stepKind
		return Reply{Text: "Выберите тип соревнований", Keyboard: [][]string{{btnSolo, btnTeam}}}, false, nil

	case stepKind:
		switch text {
		case btnSolo:
			q.kind = entity.KindIndividual
		case btnTeam:
			q.kind = entity.KindTeam
		default:
			return Reply{Text: "Выберите тип с клавиатуры.", Keyboard: [][]string{{btnSolo, btnTeam}}}, false, nil
		}
		if q.regional {
			q.step = stepRegion
			return Reply{Text: "Укажите, из какого вы региона:"}, false, nil
		}
		return Reply{}, true, nil

	case stepRegion:
		id, ok, lookupErr := regions(ctx, text)
		if lookupErr != nil {
			return Reply{}, false, lookupErr
		}
		if !ok {
			return Reply{Text: "Вы ввели неверное название региона.\nВведите заново (например: Республика Татарстан):"}, false, nil
		}
		q.regionID = &id
		q.regionName = text
		return Reply{}, true, nil
	}
	return Reply{}, true, nil
}

func (q *Questionnaire) Query() Query {
	return Query{
		Discipline: q.discipline,
		Formats:    q.formats,
		Age:        q.age,
		Kind:       q.kind,
		RegionID:   q.regionID,
	}
}

// Summary echoes the collected answers.
func (q *Questionnaire) Summary() string {
	var b strings.Builder
	b.WriteString("📋\n")
	b.WriteString("• Дисциплина: " + q.discipline + "\n")
	b.WriteString("• Формат: " + formatLabel(q.formats) + "\n")
	if q.regional {
		b.WriteString("• Масштаб: Региональные\n")
	} else {
		b.WriteString("• Масштаб: Всероссийские\n")
	}
	b.WriteString("• Возраст: " + strconv.Itoa(q.age) + "\n")
	if q.kind == entity.KindTeam {
		b.WriteString("• Тип соревнований: Командные\n")
	} else {
		b.WriteString("• Тип соревнований: Индивидуальные\n")
	}
	if q.regionName != "" {
		b.WriteString("• Регион: " + q.regionName + "\n")
	}
	return b.String()
}

func disciplineName(label string) (string, bool) {
	for _, d := range disciplineButtons {
		if label == d.Label || label == d.Name {
			return d.Name, true
		}
	}
	return "", false
}

func formatLabel(fs []entity.CompetitionFormat) string {
	if len(fs) != 1 {
		return "Все"
	}
	if fs[0] == entity.FormatOnline {
		return "Онлайн"
	}
	return "Офлайн"
}
