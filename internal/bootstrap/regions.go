package bootstrap

// federalSubjects is the region catalog. Its length matches the default FULL_REGION_COUNT.
var federalSubjects = []string{
	"Республика Адыгея",
	"Республика Алтай",
	"Республика Башкортостан",
	"Республика Бурятия",
	"Республика Дагестан",
	"Донецкая Народная Республика",
	"Республика Ингушетия",
	"Кабардино-Балкарская Республика",
	"Республика Калмыкия",
	"Карачаево-Черкесская Республика",
	"Республика Карелия",
	"Республика Коми",
	"Республика Крым",
	"Луганская Народная Республика",
	"Республика Марий Эл",
	"Республика Мордовия",
	"Республика Саха (Якутия)",
	"Республика Северная Осетия - Алания",
	"Республика Татарстан",
	"Республика Тыва",
	"Удмуртская Республика",
	"Республика Хакасия",
	"Чеченская Республика",
	"Чувашская Республика",
	"Алтайский край",
	"Забайкальский край",
	"Камчатский край",
	"Краснодарский край",
	"Красноярский край",
	"Пермский край",
	"Приморский край",
	"Ставропольский край",
	"Хабаровский край",
	"Амурская область",
	"Архангельская область",
	"Астраханская область",
	"Белгородская область",
	"Брянская область",
	"Владимирская область",
	"Волгоградская область",
	"Вологодская область",
	"Воронежская область",
	"Запорожская область",
	"Ивановская область",
	"Иркутская область",
	"Калининградская область",
	"Калужская область",
	"Кемеровская область",
	"Кировская область",
	"Костромская область",
	"Курганская область",
	"Курская область",
	"Ленинградская область",
	"Липецкая область",
	"Магаданская область",
	"Московская область",
	"Мурманская область",
	"Нижегородская область",
	"Новгородская область",
	"Новосибирская область",
	"Омская область",
	"Оренбургская область",
	"Орловская область",
	"Пензенская область",
	"Псковская область",
	"Ростовская область",
	"Рязанская область",
	"Самарская область",
	"Саратовская область",
	"Сахалинская область",
	"Свердловская область",
	"Смоленская область",
	"Тамбовская область",
	"Тверская область",
	"Томская область",
	"Тульская область",
	"Тюменская область",
	"Ульяновская область",
	"Херсонская область",
	"Челябинская область",
	"Ярославская область",
	"Москва",
	"Санкт-Петербург",
	"Севастополь",
	"Еврейская автономная область",
	"Ненецкий автономный округ",
	"Ханты-Мансийский автономный округ - Югра",
	"Чукотский автономный округ",
	"Ямало-Ненецкий автономный округ",
}

var disciplines = []string{
	"Продуктовое программирование",
	"Алгоритмическое программирование",
	"Программирование систем информационной безопасности",
	"Программирование робототехники",
	"Программирование беспилотных авиационных систем",
}
