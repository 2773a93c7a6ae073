package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openmentor/scheduler/internal/model"
	"github.com/openmentor/scheduler/internal/repository/base"
)

type AppointmentRepository struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

const appointmentColumns = `id, slot_id, program_id, student_id, mentor_id,
		status, notes, meeting_url, created_at, updated_at`

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var appt model.Appointment
	err := row.Scan(
		&appt.ID,
		&appt.SlotID,
		&appt.ProgramID,
		&appt.StudentID,
		&appt.MentorID,
		&appt.Status,
		&appt.Notes,
		&appt.MeetingURL,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// Create создаёт запись на встречу. Вызывается только внутри транзакции
// резервирования, вместе с захватом слота.
func (r *AppointmentRepository) Create(ctx context.Context, q base.Querier, appt *model.Appointment) error {
	query := `
		INSERT INTO appointments (slot_id, program_id, student_id, mentor_id, status, notes, meeting_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(
		ctx, query,
		appt.SlotID,
		appt.ProgramID,
		appt.StudentID,
		appt.MentorID,
		appt.Status,
		appt.Notes,
		appt.MeetingURL,
	).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}

	return nil
}

// GetByID получает запись по ID
func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	appt, err := scanAppointment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by id: %w", err)
	}

	return appt, nil
}

// UpdateStatus переводит запись из ожидаемого статуса в новый (compare-and-set).
// Возвращает false если статус уже изменился конкурентно.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id int64, from, to model.AppointmentStatus) (bool, error) {
	query := `
		UPDATE appointments
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`

	result, err := r.pool.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("update appointment status: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// UpdateMeetingURL обновляет ссылку на встречу для конкретной записи
func (r *AppointmentRepository) UpdateMeetingURL(ctx context.Context, id int64, meetingURL string) error {
	query := `
		UPDATE appointments
		SET meeting_url = $1, updated_at = now()
		WHERE id = $2
	`

	result, err := r.pool.Exec(ctx, query, meetingURL, id)
	if err != nil {
		return fmt.Errorf("update meeting url: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("appointment not found")
	}

	return nil
}

// CountActiveForProgram считает нетерминальные записи программы, чьи слоты
// попадают в окно дат [from, to). Лимиты не хранятся счётчиком, а выводятся из
// таблицы записей, чтобы им было не с чем расходиться. Подсчёт только внутри
// программы: блокировка её строки полностью сериализует проверку квоты,
// у конкурирующих резервирований других программ свои счётчики.
func (r *AppointmentRepository) CountActiveForProgram(ctx context.Context, q base.Querier, programID int64, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM appointments a
		JOIN availability_slots s ON s.id = a.slot_id
		WHERE a.program_id = $1
		  AND a.status IN ('pending', 'reserved')
		  AND s.date >= $2
		  AND s.date < $3
	`

	var count int
	err := q.QueryRow(ctx, query, programID, from, to).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active appointments: %w", err)
	}

	return count, nil
}

// GetByStudentID получает записи студента
func (r *AppointmentRepository) GetByStudentID(ctx context.Context, studentID int64) ([]*model.Appointment, error) {
	return r.getForActor(ctx, "student_id", studentID)
}

// GetByMentorID получает записи ментора
func (r *AppointmentRepository) GetByMentorID(ctx context.Context, mentorID int64) ([]*model.Appointment, error) {
	return r.getForActor(ctx, "mentor_id", mentorID)
}

// getForActor выбирает записи вместе со слотом, чтобы вызывающий мог
// раскладывать их по вкладкам upcoming/pending/past без дозапросов
func (r *AppointmentRepository) getForActor(ctx context.Context, column string, actorID int64) ([]*model.Appointment, error) {
	query := fmt.Sprintf(`
		SELECT a.id, a.slot_id, a.program_id, a.student_id, a.mentor_id,
			a.status, a.notes, a.meeting_url, a.created_at, a.updated_at,
			s.id, s.program_id, s.mentor_id, s.date, s.start_minute, s.end_minute,
			s.status, s.physical_location, s.virtual_link, s.created_at
		FROM appointments a
		JOIN availability_slots s ON s.id = a.slot_id
		WHERE a.%s = $1
		ORDER BY s.date, s.start_minute
	`, column)

	rows, err := r.pool.Query(ctx, query, actorID)
	if err != nil {
		return nil, fmt.Errorf("get appointments by %s: %w", column, err)
	}
	defer rows.Close()

	var appts []*model.Appointment
	for rows.Next() {
		var appt model.Appointment
		var slot model.AvailabilitySlot
		var slotStart, slotEnd int
		err := rows.Scan(
			&appt.ID,
			&appt.SlotID,
			&appt.ProgramID,
			&appt.StudentID,
			&appt.MentorID,
			&appt.Status,
			&appt.Notes,
			&appt.MeetingURL,
			&appt.CreatedAt,
			&appt.UpdatedAt,
			&slot.ID,
			&slot.ProgramID,
			&slot.MentorID,
			&slot.Date,
			&slotStart,
			&slotEnd,
			&slot.Status,
			&slot.PhysicalLocation,
			&slot.VirtualLink,
			&slot.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		slot.StartTime = model.TimeOfDay(slotStart)
		slot.EndTime = model.TimeOfDay(slotEnd)
		appt.Slot = &slot
		appts = append(appts, &appt)
	}

	return appts, nil
}
