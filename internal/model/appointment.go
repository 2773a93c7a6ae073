package model

import "time"

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"   // Ожидает одобрения ментора
	AppointmentStatusReserved  AppointmentStatus = "reserved"  // Подтверждено
	AppointmentStatusCancelled AppointmentStatus = "cancelled" // Отменено
	AppointmentStatusCompleted AppointmentStatus = "completed" // Встреча состоялась
	AppointmentStatusMissed    AppointmentStatus = "missed"    // Студент не пришёл
)

// AppointmentEvent событие жизненного цикла записи
type AppointmentEvent string

const (
	EventApprove  AppointmentEvent = "approve"
	EventCancel   AppointmentEvent = "cancel"
	EventAttended AppointmentEvent = "attended"
	EventMissed   AppointmentEvent = "missed"
)

// ActorRole роль инициатора операции. Передаётся явно, движок не знает о сессиях.
type ActorRole string

const (
	RoleMentor  ActorRole = "mentor"
	RoleStudent ActorRole = "student"
)

// Appointment запись студента на слот. Создаётся атомарно вместе с захватом
// слота, дальше меняется только статус.
type Appointment struct {
	ID         int64             `json:"id"`
	SlotID     int64             `json:"slot_id"`
	ProgramID  int64             `json:"program_id"`
	StudentID  int64             `json:"student_id"`
	MentorID   int64             `json:"mentor_id"` // денормализовано из программы
	Status     AppointmentStatus `json:"status"`
	Notes      string            `json:"notes"`
	MeetingURL string            `json:"meeting_url"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`

	// Заполняется для ответов API, не хранится в таблице appointments
	Slot *AvailabilitySlot `json:"slot,omitempty"`
}

// transition ребро таблицы переходов жизненного цикла
type transition struct {
	from  AppointmentStatus
	event AppointmentEvent
}

// transitions полная таблица разрешённых переходов.
// Всё, чего здесь нет, отклоняется как invalid state.
var transitions = map[transition]AppointmentStatus{
	{AppointmentStatusPending, EventApprove}:   AppointmentStatusReserved,
	{AppointmentStatusPending, EventCancel}:    AppointmentStatusCancelled,
	{AppointmentStatusReserved, EventCancel}:   AppointmentStatusCancelled,
	{AppointmentStatusReserved, EventAttended}: AppointmentStatusCompleted,
	{AppointmentStatusReserved, EventMissed}:   AppointmentStatusMissed,
}

// NextStatus возвращает статус после события, ok=false если переход запрещён
func NextStatus(from AppointmentStatus, event AppointmentEvent) (AppointmentStatus, bool) {
	to, ok := transitions[transition{from, event}]
	return to, ok
}

// EventAllowedFor проверяет что роль может инициировать событие.
// Отмена доступна обеим сторонам, остальные события только ментору.
func EventAllowedFor(event AppointmentEvent, role ActorRole) bool {
	if event == EventCancel {
		return role == RoleMentor || role == RoleStudent
	}
	return role == RoleMentor
}

// IsTerminal проверяет что статус конечный
func IsTerminal(status AppointmentStatus) bool {
	switch status {
	case AppointmentStatusCancelled, AppointmentStatusCompleted, AppointmentStatusMissed:
		return true
	}
	return false
}

// RequiresSlotPassed события, которые допустимы только после окончания слота
func RequiresSlotPassed(event AppointmentEvent) bool {
	return event == EventAttended || event == EventMissed
}

// FeedbackAllowed отзыв можно оставить только по завершённой или пропущенной встрече
func FeedbackAllowed(status AppointmentStatus) bool {
	return status == AppointmentStatusCompleted || status == AppointmentStatusMissed
}
