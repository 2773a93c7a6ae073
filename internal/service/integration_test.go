package service_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openmentor/scheduler/internal/app"
	"github.com/openmentor/scheduler/internal/model"
	"github.com/openmentor/scheduler/internal/repository"
	"github.com/openmentor/scheduler/internal/schedule"
	"github.com/openmentor/scheduler/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Интеграционные тесты против настоящего Postgres. Пропускаются, если
// TEST_DB_DSN не задан; миграции накатываются на каждую базу один раз,
// таблицы чистятся перед каждым тестом.

type testEnv struct {
	pool         *pgxpool.Pool
	programs     *service.ProgramService
	availability *service.AvailabilityService
	reservations *service.ReservationService
	appointments *service.AppointmentService
	apptRepo     *repository.AppointmentRepository
	slotRepo     *repository.SlotRepository
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN is not set")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrator, err := app.NewMigrator(pool, "../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrator.Run(ctx))

	_, err = pool.Exec(ctx, `
		TRUNCATE appointments, availability_slots, weekly_template_entries, programs
		RESTART IDENTITY CASCADE
	`)
	require.NoError(t, err)

	logger := zap.NewNop()
	programRepo := repository.NewProgramRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)
	slotRepo := repository.NewSlotRepository(pool)
	apptRepo := repository.NewAppointmentRepository(pool)

	return &testEnv{
		pool:         pool,
		programs:     service.NewProgramService(programRepo, templateRepo, slotRepo, logger),
		availability: service.NewAvailabilityService(programRepo, templateRepo, slotRepo, logger),
		reservations: service.NewReservationService(pool, programRepo, slotRepo, apptRepo, logger),
		appointments: service.NewAppointmentService(apptRepo, slotRepo, logger),
		apptRepo:     apptRepo,
		slotRepo:     slotRepo,
	}
}

const (
	mentorID  = int64(100)
	studentID = int64(200)
)

// nextMonday ближайший будущий понедельник, слоты на него никогда не в прошлом
func nextMonday() time.Time {
	d := time.Now().AddDate(0, 0, 1)
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.Local)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func (env *testEnv) createProgram(t *testing.T, mutate func(*model.Program)) *model.Program {
	t.Helper()

	program := &model.Program{
		CourseID:         1,
		MentorID:         mentorID,
		Name:             "Office hours",
		Duration:         30,
		PhysicalLocation: "Office 214",
		AutoApprove:      true,
	}
	if mutate != nil {
		mutate(program)
	}

	created, err := env.programs.CreateProgram(context.Background(), program)
	require.NoError(t, err)
	return created
}

func (env *testEnv) postSlot(t *testing.T, program *model.Program, date time.Time, start, end string) *model.AvailabilitySlot {
	t.Helper()

	startTod, err := model.ParseTimeOfDay(start)
	require.NoError(t, err)
	endTod, err := model.ParseTimeOfDay(end)
	require.NoError(t, err)

	slot := &model.AvailabilitySlot{
		ProgramID:        program.ID,
		MentorID:         program.MentorID,
		Date:             date,
		StartTime:        startTod,
		EndTime:          endTod,
		Status:           model.SlotStatusPosted,
		PhysicalLocation: program.PhysicalLocation,
		VirtualLink:      program.VirtualLink,
	}

	created, err := env.slotRepo.Insert(context.Background(), slot)
	require.NoError(t, err)
	require.True(t, created)
	return slot
}

// Генерация слотов из шаблона идемпотентна: повторный запуск с теми же
// аргументами не создаёт дублей
func TestGenerateSlotsFromTemplate(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	program := env.createProgram(t, nil)

	start, _ := model.ParseTimeOfDay("09:00")
	end, _ := model.ParseTimeOfDay("10:00")
	_, err := env.programs.SetTemplateEntry(ctx, mentorID, program.ID, int(time.Monday), start, end)
	require.NoError(t, err)

	monday := nextMonday()
	selector := schedule.RangeSelector(monday, monday.AddDate(0, 0, 7))

	created, err := env.availability.GenerateSlots(ctx, mentorID, program.ID, selector)
	require.NoError(t, err)
	assert.Equal(t, 4, created) // два понедельника по два 30-минутных слота

	created, err = env.availability.GenerateSlots(ctx, mentorID, program.ID, selector)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	slots, err := env.availability.ListOpenSlots(ctx, program.ID)
	require.NoError(t, err)
	assert.Len(t, slots, 4)

	// DATE-колонка возвращается в локальной зоне: проверки
	// "слот прошёл / в прошлом" считаются в ней же
	assert.Equal(t, time.Local, slots[0].Date.Location())
	assert.True(t, slots[0].Date.Equal(monday), "slot date %v, want %v", slots[0].Date, monday)
}

// N конкурирующих резервирований одного слота: ровно одно выигрывает,
// остальные получают конфликт, в базе ровно одна запись
func TestConcurrentReserveSingleWinner(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	program := env.createProgram(t, nil)
	slot := env.postSlot(t, program, nextMonday(), "09:00", "09:30")

	const attempts = 8

	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		student := studentID + int64(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.reservations.Reserve(ctx, slot.ID, student, "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	won, lost := 0, 0
	for err := range results {
		if err == nil {
			won++
			continue
		}
		lost++
		assert.True(t,
			errors.Is(err, service.ErrConflict) || errors.Is(err, service.ErrRetryable),
			"unexpected loser error: %v", err)
	}

	assert.Equal(t, 1, won)
	assert.Equal(t, attempts-1, lost)

	var count int
	err := env.pool.QueryRow(ctx, `SELECT count(*) FROM appointments WHERE slot_id = $1`, slot.ID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	reloaded, err := env.slotRepo.GetByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusClaimed, reloaded.Status)
}

// Дневная квота ментора: вторая запись в тот же день отклоняется,
// слот остаётся опубликованным
func TestReserveRespectsDailyLimit(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	program := env.createProgram(t, func(p *model.Program) {
		p.MaxDaily = 1
		p.MaxWeekly = 5
		p.MaxMonthly = 5
	})

	monday := nextMonday()
	first := env.postSlot(t, program, monday, "09:00", "09:30")
	second := env.postSlot(t, program, monday, "09:30", "10:00")

	_, err := env.reservations.Reserve(ctx, first.ID, studentID, "")
	require.NoError(t, err)

	_, err = env.reservations.Reserve(ctx, second.ID, studentID+1, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrLimitExceeded)

	var limitErr *service.LimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, schedule.LimitDaily, limitErr.Kind)
	assert.Equal(t, 1, limitErr.Limit)

	// Отклонённая попытка не трогает слот
	reloaded, err := env.slotRepo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusPosted, reloaded.Status)
}

// Квоты считаются на программу: записи одной программы ментора не тратят
// лимит другой, а внутри программы блокировка её строки сериализует проверку
func TestDailyLimitIsPerProgram(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	first := env.createProgram(t, func(p *model.Program) {
		p.Name = "Office hours"
		p.MaxDaily = 1
		p.MaxWeekly = 5
		p.MaxMonthly = 5
	})
	second := env.createProgram(t, func(p *model.Program) {
		p.Name = "Code review"
		p.MaxDaily = 1
		p.MaxWeekly = 5
		p.MaxMonthly = 5
	})

	monday := nextMonday()
	firstA := env.postSlot(t, first, monday, "09:00", "09:30")
	firstB := env.postSlot(t, first, monday, "09:30", "10:00")
	secondA := env.postSlot(t, second, monday, "11:00", "11:30")

	_, err := env.reservations.Reserve(ctx, firstA.ID, studentID, "")
	require.NoError(t, err)

	// Лимит первой программы исчерпан
	_, err = env.reservations.Reserve(ctx, firstB.ID, studentID+1, "")
	assert.ErrorIs(t, err, service.ErrLimitExceeded)

	// Вторая программа того же ментора со своим счётчиком
	_, err = env.reservations.Reserve(ctx, secondA.ID, studentID+2, "")
	require.NoError(t, err)
}

// Правка лимитов с незаполненными полями не сохраняет нули:
// незаданные окна получают дефолт и резервирования не блокируются
func TestUpdateProgramNormalizesLimits(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	program := env.createProgram(t, nil)

	patch := *program
	patch.MaxDaily = 2
	patch.MaxWeekly = 0
	patch.MaxMonthly = 0

	updated, err := env.programs.UpdateProgram(ctx, mentorID, &patch, schedule.FieldDaily)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.MaxDaily)
	assert.Equal(t, model.DefaultMeetingLimit, updated.MaxWeekly)
	assert.Equal(t, model.DefaultMeetingLimit, updated.MaxMonthly)

	// После правки слот по-прежнему бронируется
	slot := env.postSlot(t, program, nextMonday(), "09:00", "09:30")
	_, err = env.reservations.Reserve(ctx, slot.ID, studentID, "")
	require.NoError(t, err)
}

// Программа без автоподтверждения создаёт pending-запись,
// ментор подтверждает её событием approve
func TestReservePendingThenApprove(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	program := env.createProgram(t, func(p *model.Program) {
		p.AutoApprove = false
	})
	slot := env.postSlot(t, program, nextMonday(), "09:00", "09:30")

	appt, err := env.reservations.Reserve(ctx, slot.ID, studentID, "want to discuss the midterm")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, appt.Status)

	// Студент подтверждать не может
	_, err = env.appointments.ApplyEvent(ctx, appt.ID, model.EventApprove, studentID, model.RoleStudent)
	assert.ErrorIs(t, err, service.ErrForbidden)

	approved, err := env.appointments.ApplyEvent(ctx, appt.ID, model.EventApprove, mentorID, model.RoleMentor)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusReserved, approved.Status)
}

// Из терминального статуса выходов нет: отмена завершённой записи отклоняется
func TestCancelCompletedAppointmentRejected(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	program := env.createProgram(t, nil)
	slot := env.postSlot(t, program, nextMonday(), "09:00", "09:30")

	appt, err := env.reservations.Reserve(ctx, slot.ID, studentID, "")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusReserved, appt.Status)

	// Переводим запись в completed напрямую: слот ещё не прошёл,
	// а сервис пускает attended только после его окончания
	updated, err := env.apptRepo.UpdateStatus(ctx, appt.ID, model.AppointmentStatusReserved, model.AppointmentStatusCompleted)
	require.NoError(t, err)
	require.True(t, updated)

	_, err = env.appointments.Cancel(ctx, appt.ID, studentID, model.RoleStudent)
	assert.ErrorIs(t, err, service.ErrInvalidState)

	_, err = env.appointments.Cancel(ctx, appt.ID, mentorID, model.RoleMentor)
	assert.ErrorIs(t, err, service.ErrInvalidState)
}

// Отмена не возвращает слот в posted: он потрачен навсегда
func TestCancelLeavesSlotConsumed(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	program := env.createProgram(t, nil)
	slot := env.postSlot(t, program, nextMonday(), "09:00", "09:30")

	appt, err := env.reservations.Reserve(ctx, slot.ID, studentID, "")
	require.NoError(t, err)

	cancelled, err := env.appointments.Cancel(ctx, appt.ID, studentID, model.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)

	reloaded, err := env.slotRepo.GetByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SlotStatusClaimed, reloaded.Status)

	// Повторная попытка другого студента упирается в занятый слот
	_, err = env.reservations.Reserve(ctx, slot.ID, studentID+1, "")
	assert.ErrorIs(t, err, service.ErrConflict)
}

// Чужая запись недоступна ни на чтение событий, ни на отмену
func TestApplyEventAuthorization(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	program := env.createProgram(t, nil)
	slot := env.postSlot(t, program, nextMonday(), "09:00", "09:30")

	appt, err := env.reservations.Reserve(ctx, slot.ID, studentID, "")
	require.NoError(t, err)

	_, err = env.appointments.Cancel(ctx, appt.ID, studentID+1, model.RoleStudent)
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = env.appointments.Cancel(ctx, appt.ID, mentorID+1, model.RoleMentor)
	assert.ErrorIs(t, err, service.ErrForbidden)
}
