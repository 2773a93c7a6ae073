package model

import "time"

// DefaultMeetingLimit значение лимита по умолчанию, когда ментор его не задал
const DefaultMeetingLimit = 999

// Program представляет тип встречи, который ментор предлагает студентам
type Program struct {
	ID               int64      `json:"id"`
	CourseID         int64      `json:"course_id"`
	MentorID         int64      `json:"mentor_id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Duration         int        `json:"duration"` // в минутах; 0 = drop-in (один общий блок)
	PhysicalLocation string     `json:"physical_location"`
	VirtualLink      string     `json:"virtual_link"`
	AutoApprove      bool       `json:"auto_approve"`
	IsDropins        bool       `json:"is_dropins"`
	IsRangeBased     bool       `json:"is_range_based"`
	RangeStart       *time.Time `json:"range_start"` // для range-based программ
	RangeEnd         *time.Time `json:"range_end"`
	MaxDaily         int        `json:"max_daily"`
	MaxWeekly        int        `json:"max_weekly"`
	MaxMonthly       int        `json:"max_monthly"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// HasLocation проверяет что у программы задано место или ссылка на встречу.
// Без этого генерация слотов запрещена.
func (p *Program) HasLocation() bool {
	return p.PhysicalLocation != "" || p.VirtualLink != ""
}

// IsAppointmentBased проверяет что программа разбивается на отдельные слоты
func (p *Program) IsAppointmentBased() bool {
	return p.Duration > 0
}
