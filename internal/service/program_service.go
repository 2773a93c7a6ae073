package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openmentor/scheduler/internal/model"
	"github.com/openmentor/scheduler/internal/repository"
	"github.com/openmentor/scheduler/internal/schedule"
	"go.uber.org/zap"
)

type ProgramService struct {
	programRepo  *repository.ProgramRepository
	templateRepo *repository.TemplateRepository
	slotRepo     *repository.SlotRepository
	logger       *zap.Logger
}

func NewProgramService(
	programRepo *repository.ProgramRepository,
	templateRepo *repository.TemplateRepository,
	slotRepo *repository.SlotRepository,
	logger *zap.Logger,
) *ProgramService {
	return &ProgramService{
		programRepo:  programRepo,
		templateRepo: templateRepo,
		slotRepo:     slotRepo,
		logger:       logger,
	}
}

// CreateProgram создаёт программу ментора. Пустые лимиты получают значение
// по умолчанию, тройка приводится к инварианту daily <= weekly <= monthly.
func (s *ProgramService) CreateProgram(ctx context.Context, program *model.Program) (*model.Program, error) {
	if program.Name == "" {
		return nil, validationError("program name is required")
	}

	if program.Duration < 0 {
		return nil, validationError("duration must not be negative")
	}

	if program.IsDropins && program.Duration > 0 {
		return nil, validationError("drop-in program cannot have a duration")
	}

	if program.IsRangeBased {
		if program.RangeStart == nil || program.RangeEnd == nil {
			return nil, validationError("range-based program requires range_start and range_end")
		}
		if program.RangeStart.After(*program.RangeEnd) {
			return nil, validationError("range_start must not be after range_end")
		}
	}

	// Незаданные лимиты получают дефолт, порядок восстанавливается
	// подтягиванием старших окон вверх
	program.MaxDaily, program.MaxWeekly, program.MaxMonthly =
		schedule.NormalizeLimits(program.MaxDaily, program.MaxWeekly, program.MaxMonthly, schedule.FieldDaily)

	program.IsActive = true

	if err := s.programRepo.Create(ctx, program); err != nil {
		return nil, fmt.Errorf("create program: %w", err)
	}

	s.logger.Info("Program created",
		zap.Int64("program_id", program.ID),
		zap.Int64("mentor_id", program.MentorID),
		zap.String("name", program.Name),
		zap.Int("duration", program.Duration),
		zap.Bool("is_dropins", program.IsDropins),
	)

	return program, nil
}

// GetProgram получает программу по ID
func (s *ProgramService) GetProgram(ctx context.Context, id int64) (*model.Program, error) {
	program, err := s.programRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get program: %w", err)
	}

	if program == nil {
		return nil, fmt.Errorf("program %d: %w", id, ErrNotFound)
	}

	return program, nil
}

// ListByMentor получает все программы ментора
func (s *ProgramService) ListByMentor(ctx context.Context, mentorID int64) ([]*model.Program, error) {
	return s.programRepo.GetByMentorID(ctx, mentorID)
}

// UpdateProgram обновляет программу. editedLimit указывает какое из трёх полей
// лимитов правил ментор, от него распространяется клампинг на соседние.
func (s *ProgramService) UpdateProgram(ctx context.Context, mentorID int64, program *model.Program, editedLimit schedule.LimitField) (*model.Program, error) {
	existing, err := s.GetProgram(ctx, program.ID)
	if err != nil {
		return nil, err
	}

	if existing.MentorID != mentorID {
		return nil, fmt.Errorf("program %d does not belong to mentor %d: %w", program.ID, mentorID, ErrForbidden)
	}

	if program.Duration < 0 {
		return nil, validationError("duration must not be negative")
	}

	// Новая длительность должна помещаться в каждое окно шаблона
	if program.Duration > 0 {
		entries, err := s.templateRepo.GetByProgramID(ctx, program.ID)
		if err != nil {
			return nil, fmt.Errorf("get template: %w", err)
		}
		for _, entry := range entries {
			if program.Duration > entry.Window() {
				return nil, validationError("duration %d exceeds %s window of %d minutes",
					program.Duration, entry.WeekdayName(), entry.Window())
			}
		}
	}

	if editedLimit != "" {
		// Та же нормализация, что и при создании: нулевой лимит
		// в базу не попадает
		program.MaxDaily, program.MaxWeekly, program.MaxMonthly =
			schedule.NormalizeLimits(program.MaxDaily, program.MaxWeekly, program.MaxMonthly, editedLimit)
	} else {
		program.MaxDaily = existing.MaxDaily
		program.MaxWeekly = existing.MaxWeekly
		program.MaxMonthly = existing.MaxMonthly
	}

	program.CourseID = existing.CourseID
	program.MentorID = existing.MentorID

	if err := s.programRepo.Update(ctx, program); err != nil {
		return nil, fmt.Errorf("update program: %w", err)
	}

	s.logger.Info("Program updated",
		zap.Int64("program_id", program.ID),
		zap.Int64("mentor_id", mentorID),
		zap.Int("max_daily", program.MaxDaily),
		zap.Int("max_weekly", program.MaxWeekly),
		zap.Int("max_monthly", program.MaxMonthly),
	)

	return program, nil
}

// GetTemplate получает недельный шаблон программы
func (s *ProgramService) GetTemplate(ctx context.Context, programID int64) ([]*model.WeeklyTemplateEntry, error) {
	return s.templateRepo.GetByProgramID(ctx, programID)
}

// SetTemplateEntry заменяет окно доступности одного дня недели.
// Будущие незанятые слоты этого дня удаляются и, для range-based программ,
// генерируются заново по новому окну (last-write-wins по дню).
func (s *ProgramService) SetTemplateEntry(ctx context.Context, mentorID, programID int64, weekday int, start, end model.TimeOfDay) (*model.WeeklyTemplateEntry, error) {
	program, err := s.GetProgram(ctx, programID)
	if err != nil {
		return nil, err
	}

	if program.MentorID != mentorID {
		return nil, fmt.Errorf("program %d does not belong to mentor %d: %w", programID, mentorID, ErrForbidden)
	}

	if weekday < 0 || weekday > 6 {
		return nil, validationError("weekday must be between 0 and 6")
	}

	if start >= end {
		return nil, validationError("start time %s must be before end time %s", start, end)
	}

	// Длительность программы проверяется против нового окна тоже
	if program.Duration > 0 && int(end-start) < program.Duration {
		return nil, validationError("duration %d exceeds %s window of %d minutes",
			program.Duration, time.Weekday(weekday).String(), int(end-start))
	}

	entry := &model.WeeklyTemplateEntry{
		ProgramID: programID,
		GroupID:   uuid.New(),
		Weekday:   weekday,
		StartTime: start,
		EndTime:   end,
	}

	if err := s.templateRepo.Upsert(ctx, entry); err != nil {
		return nil, fmt.Errorf("set template entry: %w", err)
	}

	removed, err := s.regenerateWeekday(ctx, program, entry)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Template entry replaced",
		zap.Int64("program_id", programID),
		zap.Int("weekday", weekday),
		zap.String("window", fmt.Sprintf("%s-%s", start, end)),
		zap.Int64("slots_removed", removed),
	)

	return entry, nil
}

// ClearTemplateEntry убирает день недели из шаблона вместе с будущими
// незанятыми слотами этого дня
func (s *ProgramService) ClearTemplateEntry(ctx context.Context, mentorID, programID int64, weekday int) error {
	program, err := s.GetProgram(ctx, programID)
	if err != nil {
		return err
	}

	if program.MentorID != mentorID {
		return fmt.Errorf("program %d does not belong to mentor %d: %w", programID, mentorID, ErrForbidden)
	}

	deleted, err := s.templateRepo.Delete(ctx, programID, weekday)
	if err != nil {
		return fmt.Errorf("clear template entry: %w", err)
	}

	if !deleted {
		return fmt.Errorf("no template entry for %s: %w", time.Weekday(weekday).String(), ErrNotFound)
	}

	removed, err := s.slotRepo.DeletePostedForWeekday(ctx, programID, weekday, today())
	if err != nil {
		return fmt.Errorf("remove weekday slots: %w", err)
	}

	s.logger.Info("Template entry cleared",
		zap.Int64("program_id", programID),
		zap.Int("weekday", weekday),
		zap.Int64("slots_removed", removed),
	)

	return nil
}

// regenerateWeekday перегенерирует будущие слоты дня после замены окна
func (s *ProgramService) regenerateWeekday(ctx context.Context, program *model.Program, entry *model.WeeklyTemplateEntry) (int64, error) {
	removed, err := s.slotRepo.DeletePostedForWeekday(ctx, program.ID, entry.Weekday, today())
	if err != nil {
		return 0, fmt.Errorf("remove weekday slots: %w", err)
	}

	// Слоты по новому окну сразу восстанавливаются только для range-based
	// программ с заданным диапазоном; для explicit-dates программ генерацию
	// запускает отдельный вызов с набором дат
	if !program.IsRangeBased || program.RangeStart == nil || program.RangeEnd == nil || !program.HasLocation() {
		return removed, nil
	}

	from := today()
	if program.RangeStart.After(from) {
		from = *program.RangeStart
	}
	if from.After(*program.RangeEnd) {
		return removed, nil
	}

	defs, err := schedule.Expand(program, []*model.WeeklyTemplateEntry{entry},
		schedule.RangeSelector(from, *program.RangeEnd), program.Duration)
	if err != nil {
		return removed, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	for _, def := range defs {
		slot := slotFromDefinition(def)
		if _, err := s.slotRepo.Insert(ctx, slot); err != nil {
			return removed, fmt.Errorf("insert regenerated slot: %w", err)
		}
	}

	return removed, nil
}

func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func slotFromDefinition(def schedule.SlotDefinition) *model.AvailabilitySlot {
	return &model.AvailabilitySlot{
		ProgramID:        def.ProgramID,
		MentorID:         def.MentorID,
		Date:             def.Date,
		StartTime:        def.StartTime,
		EndTime:          def.EndTime,
		Status:           model.SlotStatusPosted,
		PhysicalLocation: def.PhysicalLocation,
		VirtualLink:      def.VirtualLink,
	}
}
