package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openmentor/scheduler/internal/model"
	"github.com/openmentor/scheduler/internal/repository"
	"github.com/openmentor/scheduler/internal/repository/base"
	"github.com/openmentor/scheduler/internal/schedule"
	"go.uber.org/zap"
)

// lockTimeout сколько транзакция резервирования ждёт блокировку строки
// программы прежде чем вернуть retryable-ошибку
const lockTimeout = "3s"

type ReservationService struct {
	pool        *pgxpool.Pool
	programRepo *repository.ProgramRepository
	slotRepo    *repository.SlotRepository
	apptRepo    *repository.AppointmentRepository
	logger      *zap.Logger
}

func NewReservationService(
	pool *pgxpool.Pool,
	programRepo *repository.ProgramRepository,
	slotRepo *repository.SlotRepository,
	apptRepo *repository.AppointmentRepository,
	logger *zap.Logger,
) *ReservationService {
	return &ReservationService{
		pool:        pool,
		programRepo: programRepo,
		slotRepo:    slotRepo,
		apptRepo:    apptRepo,
		logger:      logger,
	}
}

// Reserve атомарно превращает опубликованный слот в запись студента.
//
// Проверка статуса слота, проверка квот ментора и обе записи (статус слота,
// вставка appointment) выполняются в одной транзакции. Строка программы
// блокируется FOR UPDATE и сериализует конкурирующие резервирования одной
// программы, захват слота дополнительно защищён compare-and-set по статусу:
// из N одновременных попыток на один слот ровно одна проходит, остальные
// получают ErrConflict. Невзятая за lockTimeout блокировка — ErrRetryable,
// слот при этом мог остаться свободным.
func (s *ReservationService) Reserve(ctx context.Context, slotID, studentID int64, notes string) (*model.Appointment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SET LOCAL lock_timeout = '"+lockTimeout+"'"); err != nil {
		return nil, fmt.Errorf("set lock timeout: %w", err)
	}

	slot, err := s.slotRepo.GetByIDTx(ctx, tx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}

	if slot == nil {
		return nil, fmt.Errorf("slot %d: %w", slotID, ErrNotFound)
	}

	if slot.Status != model.SlotStatusPosted {
		return nil, fmt.Errorf("slot %d has status %s: %w", slotID, slot.Status, ErrConflict)
	}

	if slot.EndAt().Before(time.Now()) {
		return nil, validationError("slot %d is in the past", slotID)
	}

	program, err := s.programRepo.GetForUpdate(ctx, tx, slot.ProgramID)
	if err != nil {
		if base.IsLockTimeout(err) {
			return nil, fmt.Errorf("reservation lock not acquired: %w", ErrRetryable)
		}
		return nil, fmt.Errorf("lock program: %w", err)
	}

	if program == nil {
		return nil, fmt.Errorf("program %d: %w", slot.ProgramID, ErrNotFound)
	}

	if !program.IsActive {
		return nil, validationError("program is not active")
	}

	if err := s.checkQuota(ctx, tx, program, slot.Date); err != nil {
		return nil, err
	}

	claimed, err := s.slotRepo.Claim(ctx, tx, slotID)
	if err != nil {
		if base.IsLockTimeout(err) {
			return nil, fmt.Errorf("reservation lock not acquired: %w", ErrRetryable)
		}
		return nil, fmt.Errorf("claim slot: %w", err)
	}

	if !claimed {
		return nil, fmt.Errorf("slot %d already taken: %w", slotID, ErrConflict)
	}

	status := model.AppointmentStatusPending
	if program.AutoApprove {
		status = model.AppointmentStatusReserved
	}

	appt := &model.Appointment{
		SlotID:     slotID,
		ProgramID:  program.ID,
		StudentID:  studentID,
		MentorID:   program.MentorID,
		Status:     status,
		Notes:      notes,
		MeetingURL: program.VirtualLink,
	}

	if err := s.apptRepo.Create(ctx, tx, appt); err != nil {
		// Частичный уникальный индекс по slot_id страхует от второй
		// живой записи на слот даже в обход CAS
		if base.IsUniqueViolation(err) {
			return nil, fmt.Errorf("slot %d already has an active appointment: %w", slotID, ErrConflict)
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Info("Slot reserved",
		zap.Int64("appointment_id", appt.ID),
		zap.Int64("slot_id", slotID),
		zap.Int64("student_id", studentID),
		zap.Int64("mentor_id", program.MentorID),
		zap.String("status", string(status)),
	)

	appt.Slot = slot
	return appt, nil
}

// checkQuota сверяет нетерминальные записи программы с её лимитами.
// Окна считаются от даты слота, а не от момента записи: вместимость программы
// в конкретный день не должна зависеть от того, когда её выбрали.
// Счётчик внутри программы, чью строку транзакция уже держит FOR UPDATE,
// поэтому параллельная проверка той же квоты невозможна.
func (s *ReservationService) checkQuota(ctx context.Context, q base.Querier, program *model.Program, slotDate time.Time) error {
	type window struct {
		kind  schedule.LimitKind
		limit int
		from  time.Time
		to    time.Time
	}

	dayFrom, dayTo := schedule.DayWindow(slotDate)
	weekFrom, weekTo := schedule.WeekWindow(slotDate)
	monthFrom, monthTo := schedule.MonthWindow(slotDate)

	windows := []window{
		{schedule.LimitDaily, program.MaxDaily, dayFrom, dayTo},
		{schedule.LimitWeekly, program.MaxWeekly, weekFrom, weekTo},
		{schedule.LimitMonthly, program.MaxMonthly, monthFrom, monthTo},
	}

	for _, w := range windows {
		count, err := s.apptRepo.CountActiveForProgram(ctx, q, program.ID, w.from, w.to)
		if err != nil {
			return fmt.Errorf("count %s appointments: %w", w.kind, err)
		}

		if count >= w.limit {
			return &LimitExceededError{Kind: w.kind, Limit: w.limit}
		}
	}

	return nil
}
