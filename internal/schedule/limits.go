package schedule

import (
	"time"

	"github.com/openmentor/scheduler/internal/model"
)

// LimitKind окно лимита, которое было превышено
type LimitKind string

const (
	LimitDaily   LimitKind = "daily"
	LimitWeekly  LimitKind = "weekly"
	LimitMonthly LimitKind = "monthly"
)

// LimitField поле тройки лимитов, которое редактировалось
type LimitField string

const (
	FieldDaily   LimitField = "max_daily"
	FieldWeekly  LimitField = "max_weekly"
	FieldMonthly LimitField = "max_monthly"
)

// ClampLimits приводит тройку лимитов к инварианту daily <= weekly <= monthly
// после правки одного поля. Это распространение ограничения, а не отказ:
// соседние значения подтягиваются к отредактированному, недопустимая
// комбинация никогда не возвращается.
func ClampLimits(daily, weekly, monthly int, edited LimitField) (int, int, int) {
	switch edited {
	case FieldDaily:
		if daily > weekly {
			weekly = daily
		}
		if daily > monthly {
			monthly = daily
		}
	case FieldWeekly:
		if weekly < daily {
			daily = weekly
		}
		if weekly > monthly {
			monthly = weekly
		}
	case FieldMonthly:
		if monthly < daily {
			daily = monthly
		}
		if monthly < weekly {
			weekly = monthly
		}
	}
	return daily, weekly, monthly
}

// NormalizeLimits приводит тройку лимитов к хранимому виду: незаданные
// (неположительные) поля получают значение по умолчанию, после чего тройка
// клампится от отредактированного поля. Нулевой лимит никогда не сохраняется,
// он запретил бы любые резервирования.
func NormalizeLimits(daily, weekly, monthly int, edited LimitField) (int, int, int) {
	if daily <= 0 {
		daily = model.DefaultMeetingLimit
	}
	if weekly <= 0 {
		weekly = model.DefaultMeetingLimit
	}
	if monthly <= 0 {
		monthly = model.DefaultMeetingLimit
	}

	daily, weekly, monthly = ClampLimits(daily, weekly, monthly, edited)

	// Дефолт незаданного младшего окна может оказаться выше явно заданного
	// старшего; клампинг от отредактированного поля туда не дотягивается.
	// Незаданное окно не добавляет ограничений, поэтому прижимается вниз.
	if weekly > monthly {
		weekly = monthly
	}
	if daily > weekly {
		daily = weekly
	}

	return daily, weekly, monthly
}

// DayWindow возвращает границы календарного дня даты: [from, to)
func DayWindow(date time.Time) (time.Time, time.Time) {
	from := truncateToDay(date)
	return from, from.AddDate(0, 0, 1)
}

// WeekWindow возвращает границы ISO-недели даты (понедельник — начало): [from, to)
func WeekWindow(date time.Time) (time.Time, time.Time) {
	day := truncateToDay(date)

	offset := int(day.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7 // воскресенье относится к предыдущей ISO-неделе
	}

	from := day.AddDate(0, 0, -offset)
	return from, from.AddDate(0, 0, 7)
}

// MonthWindow возвращает границы календарного месяца даты: [from, to)
func MonthWindow(date time.Time) (time.Time, time.Time) {
	from := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	return from, from.AddDate(0, 1, 0)
}
