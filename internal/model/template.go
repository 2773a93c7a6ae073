package model

import (
	"time"

	"github.com/google/uuid"
)

// WeeklyTemplateEntry окно доступности ментора для одного дня недели.
// На пару (program_id, weekday) существует не больше одной записи,
// при редактировании запись дня заменяется целиком.
type WeeklyTemplateEntry struct {
	ID        int64     `json:"id"`
	ProgramID int64     `json:"program_id"`
	GroupID   uuid.UUID `json:"group_id"` // идентификатор ревизии шаблона
	Weekday   int       `json:"weekday"`  // 0 = Sunday, 6 = Saturday
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Window возвращает длину окна в минутах
func (e *WeeklyTemplateEntry) Window() int {
	return int(e.EndTime - e.StartTime)
}

// WeekdayName возвращает английское название дня недели
func (e *WeeklyTemplateEntry) WeekdayName() string {
	return time.Weekday(e.Weekday).String()
}
