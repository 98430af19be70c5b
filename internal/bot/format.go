package bot

import (
	"fmt"
	"html"
	"strings"
	"time"

	"codedepartament.ru/sbp/internal/entity"
)

const dateLayout = "02.01.2006 15:04"

func period(from, to *time.Time) string {
	if from == nil || to == nil {
		return "не указаны"
	}
	return from.Format(dateLayout) + " - " + to.Format(dateLayout)
}

func siteLink(siteURL, label string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, html.EscapeString(siteURL), label)
}

// formatListing renders one search hit. national marks results of a
// country-wide search, where an empty permission list means a closed event.
func formatListing(l Listing, national bool, siteURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔥 <b>%s</b> (<i>%s</i>)\n\n", html.EscapeString(l.Name), html.EscapeString(l.Description))
	fmt.Fprintf(&b, "📅 <b>Дата проведения:</b> %s\n", period(l.StartDate, l.EndDate))
	fmt.Fprintf(&b, "⏳ <b>Регистрация:</b> %s\n", period(l.RegistrationStart, l.RegistrationEnd))
	if l.Kind == entity.KindTeam {
		fmt.Fprintf(&b, "\n👥 <b>Состав команды:</b> %d человек\n", l.MaxParticipantsInTeam)
	}
	if national && l.RegionCount == 0 {
		b.WriteString("\n‼️<b>Соревнования закрытые. Обратитесь к региональному представителю.</b>\n")
	}
	b.WriteString("\n🔗 Переходи на " + siteLink(siteURL, "сайт") + " и принимай участие!")
	return b.String()
}

func formatMyCompetitions(list []Listing, siteURL string) string {
	if len(list) == 0 {
		return "🤷 Ты пока не участвуешь ни в каких соревнованиях.\nСкорее заходи на " + siteLink(siteURL, "сайт") + " и участвуй!"
	}

	var b strings.Builder
	b.WriteString("🏆 Твои соревнования:\n\n")
	for _, l := range list {
		fmt.Fprintf(&b, "🔥 %s (%s)\n", html.EscapeString(l.Name), html.EscapeString(l.Description))
		if l.TeamName != "" {
			fmt.Fprintf(&b, "👥 Команда: %s\n", html.EscapeString(l.TeamName))
		}
		fmt.Fprintf(&b, "\n📅 Дата проведения: %s\n", period(l.StartDate, l.EndDate))
		fmt.Fprintf(&b, "⏳ Регистрация: %s\n\n\n", period(l.RegistrationStart, l.RegistrationEnd))
	}
	return strings.TrimRight(b.String(), "\n")
}
