package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay локальное время суток в минутах с полуночи.
// В JSON сериализуется как строка "HH:MM" (24-часовой формат, без таймзоны).
type TimeOfDay int

// ParseTimeOfDay разбирает строку вида "HH:MM".
// Строка должна состоять из двух чисел и двоеточия целиком, хвост не допускается.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("parse time of day %q: expected HH:MM", s)
	}

	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}

	minute, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("parse time of day %q: out of range", s)
	}

	return TimeOfDay(hour*60 + minute), nil
}

// Hour возвращает час (0-23)
func (t TimeOfDay) Hour() int {
	return int(t) / 60
}

// Minute возвращает минуту внутри часа (0-59)
func (t TimeOfDay) Minute() int {
	return int(t) % 60
}

// String форматирует время как "HH:MM"
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// At возвращает момент времени: date с этим временем суток в локации date
func (t TimeOfDay) At(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location())
}

// MarshalJSON сериализует время как строку "HH:MM"
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON разбирает строку "HH:MM"
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}

	*t = parsed
	return nil
}
