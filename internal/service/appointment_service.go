package service

import (
	"context"
	"fmt"
	"time"

	"github.com/openmentor/scheduler/internal/model"
	"github.com/openmentor/scheduler/internal/repository"
	"go.uber.org/zap"
)

// AppointmentBucket вкладка списка записей
type AppointmentBucket string

const (
	BucketUpcoming AppointmentBucket = "upcoming"
	BucketPending  AppointmentBucket = "pending"
	BucketPast     AppointmentBucket = "past"
)

type AppointmentService struct {
	apptRepo *repository.AppointmentRepository
	slotRepo *repository.SlotRepository
	logger   *zap.Logger
}

func NewAppointmentService(
	apptRepo *repository.AppointmentRepository,
	slotRepo *repository.SlotRepository,
	logger *zap.Logger,
) *AppointmentService {
	return &AppointmentService{
		apptRepo: apptRepo,
		slotRepo: slotRepo,
		logger:   logger,
	}
}

// GetByID получает запись по ID
func (s *AppointmentService) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	appt, err := s.apptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}

	if appt == nil {
		return nil, fmt.Errorf("appointment %d: %w", id, ErrNotFound)
	}

	return appt, nil
}

// ApplyEvent применяет событие жизненного цикла к записи от имени явного актора.
//
// Переход проверяется по таблице: из терминального статуса выходов нет,
// отметки attended/missed доступны только ментору и только после окончания
// слота. Сам перевод статуса выполняется compare-and-set'ом от прочитанного
// статуса, конкурентная гонка за один переход отдаёт ErrInvalidState
// проигравшему. Слот записи при отмене не возвращается в posted: однажды
// занятый слот считается израсходованным.
func (s *AppointmentService) ApplyEvent(ctx context.Context, apptID int64, event model.AppointmentEvent, actorID int64, actorRole model.ActorRole) (*model.Appointment, error) {
	appt, err := s.GetByID(ctx, apptID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(appt, actorID, actorRole); err != nil {
		return nil, err
	}

	if !model.EventAllowedFor(event, actorRole) {
		return nil, fmt.Errorf("event %s is not allowed for role %s: %w", event, actorRole, ErrForbidden)
	}

	next, ok := model.NextStatus(appt.Status, event)
	if !ok {
		return nil, fmt.Errorf("no transition %s -> %s: %w", appt.Status, event, ErrInvalidState)
	}

	if model.RequiresSlotPassed(event) {
		slot, err := s.slotRepo.GetByID(ctx, appt.SlotID)
		if err != nil {
			return nil, fmt.Errorf("get slot: %w", err)
		}
		if slot == nil {
			return nil, fmt.Errorf("slot %d: %w", appt.SlotID, ErrNotFound)
		}
		if time.Now().Before(slot.EndAt()) {
			return nil, validationError("cannot mark outcome before the slot ends at %s %s",
				slot.Date.Format("2006-01-02"), slot.EndTime)
		}
	}

	updated, err := s.apptRepo.UpdateStatus(ctx, apptID, appt.Status, next)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	if !updated {
		return nil, fmt.Errorf("appointment %d changed concurrently: %w", apptID, ErrInvalidState)
	}

	s.logger.Info("Appointment status changed",
		zap.Int64("appointment_id", apptID),
		zap.String("event", string(event)),
		zap.String("from", string(appt.Status)),
		zap.String("to", string(next)),
		zap.Int64("actor_id", actorID),
		zap.String("actor_role", string(actorRole)),
	)

	appt.Status = next
	return appt, nil
}

// Cancel отменяет запись. Разрешено обеим сторонам из pending и reserved.
func (s *AppointmentService) Cancel(ctx context.Context, apptID, actorID int64, actorRole model.ActorRole) (*model.Appointment, error) {
	return s.ApplyEvent(ctx, apptID, model.EventCancel, actorID, actorRole)
}

// SetMeetingURL задаёт ссылку на встречу для конкретной записи
func (s *AppointmentService) SetMeetingURL(ctx context.Context, apptID, mentorID int64, meetingURL string) (*model.Appointment, error) {
	appt, err := s.GetByID(ctx, apptID)
	if err != nil {
		return nil, err
	}

	if appt.MentorID != mentorID {
		return nil, fmt.Errorf("appointment %d does not belong to mentor %d: %w", apptID, mentorID, ErrForbidden)
	}

	if err := s.apptRepo.UpdateMeetingURL(ctx, apptID, meetingURL); err != nil {
		return nil, fmt.Errorf("set meeting url: %w", err)
	}

	s.logger.Info("Meeting URL updated",
		zap.Int64("appointment_id", apptID),
		zap.Int64("mentor_id", mentorID),
	)

	appt.MeetingURL = meetingURL
	return appt, nil
}

// ListForActor получает записи актора, опционально отфильтрованные по вкладке
func (s *AppointmentService) ListForActor(ctx context.Context, actorID int64, role model.ActorRole, bucket AppointmentBucket) ([]*model.Appointment, error) {
	var appts []*model.Appointment
	var err error

	switch role {
	case model.RoleMentor:
		appts, err = s.apptRepo.GetByMentorID(ctx, actorID)
	case model.RoleStudent:
		appts, err = s.apptRepo.GetByStudentID(ctx, actorID)
	default:
		return nil, validationError("unknown role %q", role)
	}

	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	if bucket == "" {
		return appts, nil
	}

	now := time.Now()
	filtered := make([]*model.Appointment, 0, len(appts))
	for _, appt := range appts {
		if inBucket(appt, bucket, now) {
			filtered = append(filtered, appt)
		}
	}

	return filtered, nil
}

// FeedbackAllowed проверяет что по записи уже можно оставлять отзыв.
// Само хранение отзывов живёт вне движка.
func (s *AppointmentService) FeedbackAllowed(ctx context.Context, apptID int64) (bool, error) {
	appt, err := s.GetByID(ctx, apptID)
	if err != nil {
		return false, err
	}

	return model.FeedbackAllowed(appt.Status), nil
}

func (s *AppointmentService) authorize(appt *model.Appointment, actorID int64, role model.ActorRole) error {
	switch role {
	case model.RoleMentor:
		if appt.MentorID == actorID {
			return nil
		}
	case model.RoleStudent:
		if appt.StudentID == actorID {
			return nil
		}
	}
	return fmt.Errorf("actor %d (%s) is not a participant of appointment %d: %w", actorID, role, appt.ID, ErrForbidden)
}

// inBucket раскладывает запись по вкладкам так же, как это делали экраны:
// pending — ожидающие одобрения, upcoming — подтверждённые будущие,
// past — терминальные и прошедшие
func inBucket(appt *model.Appointment, bucket AppointmentBucket, now time.Time) bool {
	ended := appt.Slot != nil && appt.Slot.EndAt().Before(now)

	switch bucket {
	case BucketPending:
		return appt.Status == model.AppointmentStatusPending && !ended
	case BucketUpcoming:
		return appt.Status == model.AppointmentStatusReserved && !ended
	case BucketPast:
		return model.IsTerminal(appt.Status) || ended
	}

	return false
}
