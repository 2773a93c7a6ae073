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

type SlotRepository struct {
	pool *pgxpool.Pool
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{pool: pool}
}

const slotColumns = `id, program_id, mentor_id, date, start_minute, end_minute,
		status, physical_location, virtual_link, created_at`

func scanSlot(row pgx.Row) (*model.AvailabilitySlot, error) {
	var slot model.AvailabilitySlot
	var startMinute, endMinute int
	err := row.Scan(
		&slot.ID,
		&slot.ProgramID,
		&slot.MentorID,
		&slot.Date,
		&startMinute,
		&endMinute,
		&slot.Status,
		&slot.PhysicalLocation,
		&slot.VirtualLink,
		&slot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	slot.Date = localDate(slot.Date)
	slot.StartTime = model.TimeOfDay(startMinute)
	slot.EndTime = model.TimeOfDay(endMinute)
	return &slot, nil
}

// localDate переводит дату из DATE-колонки в локальную зону сервиса.
// pgx отдаёт DATE как полночь UTC; сравнения "слот прошёл / слот в прошлом"
// считаются в одной локальной зоне, иначе граница съезжает на смещение зоны.
func localDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// Insert сохраняет слот. Дубликат по (program_id, date, start_minute) молча
// пропускается, поэтому повторная генерация идемпотентна. Возвращает true
// если строка действительно вставлена.
func (r *SlotRepository) Insert(ctx context.Context, slot *model.AvailabilitySlot) (bool, error) {
	query := `
		INSERT INTO availability_slots (program_id, mentor_id, date, start_minute, end_minute,
			status, physical_location, virtual_link)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (program_id, date, start_minute) DO NOTHING
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		slot.ProgramID,
		slot.MentorID,
		slot.Date,
		int(slot.StartTime),
		int(slot.EndTime),
		slot.Status,
		slot.PhysicalLocation,
		slot.VirtualLink,
	).Scan(&slot.ID, &slot.CreatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert slot: %w", err)
	}

	return true, nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*model.AvailabilitySlot, error) {
	return r.getByID(ctx, r.pool, id)
}

// GetByIDTx получает слот по ID внутри транзакции
func (r *SlotRepository) GetByIDTx(ctx context.Context, q base.Querier, id int64) (*model.AvailabilitySlot, error) {
	return r.getByID(ctx, q, id)
}

func (r *SlotRepository) getByID(ctx context.Context, q base.Querier, id int64) (*model.AvailabilitySlot, error) {
	query := `SELECT ` + slotColumns + ` FROM availability_slots WHERE id = $1`

	slot, err := scanSlot(q.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// GetByProgram получает слоты программы, опционально фильтруя по статусу
func (r *SlotRepository) GetByProgram(ctx context.Context, programID int64, status model.SlotStatus) ([]*model.AvailabilitySlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM availability_slots
		WHERE program_id = $1
		  AND ($2 = '' OR status = $2)
		ORDER BY date, start_minute
	`

	rows, err := r.pool.Query(ctx, query, programID, string(status))
	if err != nil {
		return nil, fmt.Errorf("get slots by program: %w", err)
	}
	defer rows.Close()

	return collectSlots(rows)
}

// GetByMentor получает все слоты ментора начиная с даты from
func (r *SlotRepository) GetByMentor(ctx context.Context, mentorID int64, from time.Time) ([]*model.AvailabilitySlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM availability_slots
		WHERE mentor_id = $1
		  AND date >= $2
		ORDER BY date, start_minute
	`

	rows, err := r.pool.Query(ctx, query, mentorID, from)
	if err != nil {
		return nil, fmt.Errorf("get slots by mentor: %w", err)
	}
	defer rows.Close()

	return collectSlots(rows)
}

// Claim атомарно захватывает опубликованный слот (compare-and-set по статусу).
// Возвращает true если именно этот вызов перевёл слот в claimed; false значит
// слот уже занят, снят или не существует.
func (r *SlotRepository) Claim(ctx context.Context, q base.Querier, slotID int64) (bool, error) {
	query := `
		UPDATE availability_slots
		SET status = 'claimed'
		WHERE id = $1 AND status = 'posted'
	`

	result, err := q.Exec(ctx, query, slotID)
	if err != nil {
		return false, fmt.Errorf("claim slot: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// Deactivate снимает опубликованный слот с записи без удаления
func (r *SlotRepository) Deactivate(ctx context.Context, slotID int64) (bool, error) {
	query := `
		UPDATE availability_slots
		SET status = 'inactive'
		WHERE id = $1 AND status = 'posted'
	`

	result, err := r.pool.Exec(ctx, query, slotID)
	if err != nil {
		return false, fmt.Errorf("deactivate slot: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// Delete удаляет незанятый слот. Занятые слоты не удаляются никогда.
func (r *SlotRepository) Delete(ctx context.Context, slotID int64) (bool, error) {
	query := `DELETE FROM availability_slots WHERE id = $1 AND status <> 'claimed'`

	result, err := r.pool.Exec(ctx, query, slotID)
	if err != nil {
		return false, fmt.Errorf("delete slot: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// DeletePostedForWeekday удаляет будущие незанятые слоты программы для дня недели.
// Вызывается перед перегенерацией при замене записи шаблона (replace-by-day).
func (r *SlotRepository) DeletePostedForWeekday(ctx context.Context, programID int64, weekday int, from time.Time) (int64, error) {
	query := `
		DELETE FROM availability_slots
		WHERE program_id = $1
		  AND status = 'posted'
		  AND date >= $2
		  AND EXTRACT(DOW FROM date) = $3
	`

	result, err := r.pool.Exec(ctx, query, programID, from, weekday)
	if err != nil {
		return 0, fmt.Errorf("delete posted slots for weekday: %w", err)
	}

	return result.RowsAffected(), nil
}

func collectSlots(rows pgx.Rows) ([]*model.AvailabilitySlot, error) {
	var slots []*model.AvailabilitySlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, nil
}
