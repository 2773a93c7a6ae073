package service

import (
	"context"
	"fmt"
	"time"

	"github.com/openmentor/scheduler/internal/model"
	"github.com/openmentor/scheduler/internal/repository"
	"github.com/openmentor/scheduler/internal/schedule"
	"go.uber.org/zap"
)

type AvailabilityService struct {
	programRepo  *repository.ProgramRepository
	templateRepo *repository.TemplateRepository
	slotRepo     *repository.SlotRepository
	logger       *zap.Logger
}

func NewAvailabilityService(
	programRepo *repository.ProgramRepository,
	templateRepo *repository.TemplateRepository,
	slotRepo *repository.SlotRepository,
	logger *zap.Logger,
) *AvailabilityService {
	return &AvailabilityService{
		programRepo:  programRepo,
		templateRepo: templateRepo,
		slotRepo:     slotRepo,
		logger:       logger,
	}
}

// GenerateSlots разворачивает шаблон программы в слоты и сохраняет их.
// Уже существующие слоты тех же дат и времён молча пропускаются, повторный
// вызов с теми же аргументами безопасен. Возвращает число новых слотов.
func (s *AvailabilityService) GenerateSlots(ctx context.Context, mentorID, programID int64, selector schedule.DateSelector) (int, error) {
	program, err := s.programRepo.GetByID(ctx, programID)
	if err != nil {
		return 0, fmt.Errorf("get program: %w", err)
	}

	if program == nil {
		return 0, fmt.Errorf("program %d: %w", programID, ErrNotFound)
	}

	if program.MentorID != mentorID {
		return 0, fmt.Errorf("program %d does not belong to mentor %d: %w", programID, mentorID, ErrForbidden)
	}

	if !program.IsActive {
		return 0, validationError("program is not active")
	}

	// Без места или ссылки на встречу публиковать слоты нельзя
	if !program.HasLocation() {
		return 0, validationError("program needs a physical location or a virtual link before slots can be generated")
	}

	// Range-based программа по умолчанию использует собственный диапазон
	if program.IsRangeBased && selector.RangeStart == nil && len(selector.Dates) == 0 {
		if program.RangeStart == nil || program.RangeEnd == nil {
			return 0, validationError("range-based program has no date range")
		}
		selector = schedule.RangeSelector(*program.RangeStart, *program.RangeEnd)
	}

	entries, err := s.templateRepo.GetByProgramID(ctx, programID)
	if err != nil {
		return 0, fmt.Errorf("get template: %w", err)
	}

	defs, err := schedule.Expand(program, entries, selector, program.Duration)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	created := 0
	for _, def := range defs {
		slot := slotFromDefinition(def)
		inserted, err := s.slotRepo.Insert(ctx, slot)
		if err != nil {
			return created, fmt.Errorf("insert slot: %w", err)
		}
		if inserted {
			created++
		}
	}

	s.logger.Info("Slots generated",
		zap.Int64("program_id", programID),
		zap.Int64("mentor_id", mentorID),
		zap.Int("expanded", len(defs)),
		zap.Int("created", created),
	)

	return created, nil
}

// GenerateForRangePrograms догенерирует слоты всех активных range-based
// программ. Вызывается фоновой задачей горизонта.
func (s *AvailabilityService) GenerateForRangePrograms(ctx context.Context) error {
	programs, err := s.programRepo.GetActiveRangeBased(ctx)
	if err != nil {
		return fmt.Errorf("get range-based programs: %w", err)
	}

	total := 0
	for _, program := range programs {
		if !program.HasLocation() {
			continue
		}

		created, err := s.GenerateSlots(ctx, program.MentorID, program.ID, schedule.DateSelector{})
		if err != nil {
			s.logger.Error("Failed to generate slots for program",
				zap.Int64("program_id", program.ID),
				zap.Error(err),
			)
			continue
		}
		total += created
	}

	s.logger.Info("Horizon slot generation finished",
		zap.Int("programs", len(programs)),
		zap.Int("slots_created", total),
	)

	return nil
}

// ListOpenSlots получает опубликованные слоты программы для экранов записи
func (s *AvailabilityService) ListOpenSlots(ctx context.Context, programID int64) ([]*model.AvailabilitySlot, error) {
	return s.slotRepo.GetByProgram(ctx, programID, model.SlotStatusPosted)
}

// ListProgramSlots получает слоты программы с произвольным фильтром статуса
func (s *AvailabilityService) ListProgramSlots(ctx context.Context, programID int64, status model.SlotStatus) ([]*model.AvailabilitySlot, error) {
	return s.slotRepo.GetByProgram(ctx, programID, status)
}

// ListMentorSlots получает все слоты ментора начиная с даты from
func (s *AvailabilityService) ListMentorSlots(ctx context.Context, mentorID int64, from time.Time) ([]*model.AvailabilitySlot, error) {
	return s.slotRepo.GetByMentor(ctx, mentorID, from)
}

// DeactivateSlot снимает опубликованный слот с записи без удаления
func (s *AvailabilityService) DeactivateSlot(ctx context.Context, mentorID, slotID int64) error {
	slot, err := s.ownedSlot(ctx, mentorID, slotID)
	if err != nil {
		return err
	}

	done, err := s.slotRepo.Deactivate(ctx, slotID)
	if err != nil {
		return fmt.Errorf("deactivate slot: %w", err)
	}

	if !done {
		return fmt.Errorf("slot %d is not posted: %w", slotID, ErrConflict)
	}

	s.logger.Info("Slot deactivated",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("mentor_id", mentorID),
	)

	return nil
}

// DeleteSlot удаляет незанятый слот
func (s *AvailabilityService) DeleteSlot(ctx context.Context, mentorID, slotID int64) error {
	if _, err := s.ownedSlot(ctx, mentorID, slotID); err != nil {
		return err
	}

	done, err := s.slotRepo.Delete(ctx, slotID)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	if !done {
		return fmt.Errorf("slot %d is claimed and cannot be deleted: %w", slotID, ErrConflict)
	}

	s.logger.Info("Slot deleted",
		zap.Int64("slot_id", slotID),
		zap.Int64("mentor_id", mentorID),
	)

	return nil
}

func (s *AvailabilityService) ownedSlot(ctx context.Context, mentorID, slotID int64) (*model.AvailabilitySlot, error) {
	slot, err := s.slotRepo.GetByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}

	if slot == nil {
		return nil, fmt.Errorf("slot %d: %w", slotID, ErrNotFound)
	}

	if slot.MentorID != mentorID {
		return nil, fmt.Errorf("slot %d does not belong to mentor %d: %w", slotID, mentorID, ErrForbidden)
	}

	return slot, nil
}
