package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/openmentor/scheduler/internal/model"
)

var (
	ErrEmptyTemplate    = errors.New("weekly template has no entries")
	ErrEmptySelector    = errors.New("date selector is empty")
	ErrInvalidWindow    = errors.New("start time must be before end time")
	ErrInvalidRange     = errors.New("range start must not be after range end")
	ErrDurationTooLong  = errors.New("duration exceeds the shortest template window")
	ErrNegativeDuration = errors.New("duration must not be negative")
)

// DateSelector выбор дат для генерации: либо включительный диапазон,
// либо явный набор дат. Ровно один из вариантов должен быть задан.
type DateSelector struct {
	RangeStart *time.Time
	RangeEnd   *time.Time
	Dates      []time.Time
}

// RangeSelector создаёт селектор по диапазону [start, end]
func RangeSelector(start, end time.Time) DateSelector {
	return DateSelector{RangeStart: &start, RangeEnd: &end}
}

// DatesSelector создаёт селектор по явному списку дат
func DatesSelector(dates ...time.Time) DateSelector {
	return DateSelector{Dates: dates}
}

// dates разворачивает селектор в список календарных дат
func (s DateSelector) dates() ([]time.Time, error) {
	if len(s.Dates) > 0 {
		out := make([]time.Time, 0, len(s.Dates))
		for _, d := range s.Dates {
			out = append(out, truncateToDay(d))
		}
		return out, nil
	}

	if s.RangeStart == nil || s.RangeEnd == nil {
		return nil, ErrEmptySelector
	}

	start := truncateToDay(*s.RangeStart)
	end := truncateToDay(*s.RangeEnd)
	if start.After(end) {
		return nil, ErrInvalidRange
	}

	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out, nil
}

// SlotDefinition описание слота, полученное из шаблона.
// Инертные данные, сохранение — забота хранилища слотов.
type SlotDefinition struct {
	ProgramID        int64
	MentorID         int64
	Date             time.Time
	StartTime        model.TimeOfDay
	EndTime          model.TimeOfDay
	PhysicalLocation string
	VirtualLink      string
}

// Expand разворачивает недельный шаблон программы в конкретные определения слотов.
//
// Для каждой даты селектора берётся запись шаблона её дня недели; даты без записи
// пропускаются. При durationMinutes == 0 на день выдаётся один слот на всё окно
// (drop-in). При durationMinutes > 0 окно режется на подряд идущие слоты этой
// длины, неполный хвост отбрасывается. Длительность проверяется против самого
// короткого окна шаблона по всем дням, не только по затронутым датам.
func Expand(program *model.Program, entries []*model.WeeklyTemplateEntry, selector DateSelector, durationMinutes int) ([]SlotDefinition, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyTemplate
	}

	if durationMinutes < 0 {
		return nil, ErrNegativeDuration
	}

	byWeekday := make(map[int]*model.WeeklyTemplateEntry, len(entries))
	shortest := 0
	for _, entry := range entries {
		if entry.StartTime >= entry.EndTime {
			return nil, fmt.Errorf("%w: %s %s-%s", ErrInvalidWindow, entry.WeekdayName(), entry.StartTime, entry.EndTime)
		}
		byWeekday[entry.Weekday] = entry
		if shortest == 0 || entry.Window() < shortest {
			shortest = entry.Window()
		}
	}

	if durationMinutes > 0 && durationMinutes > shortest {
		return nil, fmt.Errorf("%w: duration %d, shortest window %d", ErrDurationTooLong, durationMinutes, shortest)
	}

	dates, err := selector.dates()
	if err != nil {
		return nil, err
	}

	var defs []SlotDefinition
	for _, date := range dates {
		entry, ok := byWeekday[int(date.Weekday())]
		if !ok {
			continue
		}

		if durationMinutes == 0 {
			defs = append(defs, newDefinition(program, date, entry.StartTime, entry.EndTime))
			continue
		}

		step := model.TimeOfDay(durationMinutes)
		for start := entry.StartTime; start+step <= entry.EndTime; start += step {
			defs = append(defs, newDefinition(program, date, start, start+step))
		}
	}

	return defs, nil
}

func newDefinition(program *model.Program, date time.Time, start, end model.TimeOfDay) SlotDefinition {
	return SlotDefinition{
		ProgramID:        program.ID,
		MentorID:         program.MentorID,
		Date:             date,
		StartTime:        start,
		EndTime:          end,
		PhysicalLocation: program.PhysicalLocation,
		VirtualLink:      program.VirtualLink,
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
