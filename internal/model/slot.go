package model

import "time"

type SlotStatus string

const (
	SlotStatusPosted   SlotStatus = "posted"   // Открыт для записи
	SlotStatusClaimed  SlotStatus = "claimed"  // Занят студентом
	SlotStatusInactive SlotStatus = "inactive" // Снят ментором без удаления
)

// AvailabilitySlot конкретное бронируемое окно, сгенерированное из шаблона программы.
// Место и ссылка снимаются с программы в момент генерации, чтобы последующие
// правки программы не меняли уже опубликованные слоты.
type AvailabilitySlot struct {
	ID               int64      `json:"id"`
	ProgramID        int64      `json:"program_id"`
	MentorID         int64      `json:"mentor_id"`
	Date             time.Time  `json:"date"` // календарная дата, время обнулено
	StartTime        TimeOfDay  `json:"start_time"`
	EndTime          TimeOfDay  `json:"end_time"`
	Status           SlotStatus `json:"status"`
	PhysicalLocation string     `json:"physical_location"`
	VirtualLink      string     `json:"virtual_link"`
	CreatedAt        time.Time  `json:"created_at"`
}

// EndAt возвращает момент окончания слота
func (s *AvailabilitySlot) EndAt() time.Time {
	return s.EndTime.At(s.Date)
}

// StartAt возвращает момент начала слота
func (s *AvailabilitySlot) StartAt() time.Time {
	return s.StartTime.At(s.Date)
}
