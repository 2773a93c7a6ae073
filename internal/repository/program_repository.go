package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openmentor/scheduler/internal/model"
	"github.com/openmentor/scheduler/internal/repository/base"
)

type ProgramRepository struct {
	pool *pgxpool.Pool
}

func NewProgramRepository(pool *pgxpool.Pool) *ProgramRepository {
	return &ProgramRepository{pool: pool}
}

const programColumns = `id, course_id, mentor_id, name, description, duration,
		physical_location, virtual_link, auto_approve, is_dropins, is_range_based,
		range_start, range_end, max_daily, max_weekly, max_monthly, is_active,
		created_at, updated_at`

func scanProgram(row pgx.Row) (*model.Program, error) {
	var p model.Program
	err := row.Scan(
		&p.ID,
		&p.CourseID,
		&p.MentorID,
		&p.Name,
		&p.Description,
		&p.Duration,
		&p.PhysicalLocation,
		&p.VirtualLink,
		&p.AutoApprove,
		&p.IsDropins,
		&p.IsRangeBased,
		&p.RangeStart,
		&p.RangeEnd,
		&p.MaxDaily,
		&p.MaxWeekly,
		&p.MaxMonthly,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	// Границы диапазона участвуют в тех же локальных сравнениях дат, что и слоты
	if p.RangeStart != nil {
		d := localDate(*p.RangeStart)
		p.RangeStart = &d
	}
	if p.RangeEnd != nil {
		d := localDate(*p.RangeEnd)
		p.RangeEnd = &d
	}
	return &p, nil
}

// Create создаёт новую программу
func (r *ProgramRepository) Create(ctx context.Context, program *model.Program) error {
	query := `
		INSERT INTO programs (course_id, mentor_id, name, description, duration,
			physical_location, virtual_link, auto_approve, is_dropins, is_range_based,
			range_start, range_end, max_daily, max_weekly, max_monthly, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		program.CourseID,
		program.MentorID,
		program.Name,
		program.Description,
		program.Duration,
		program.PhysicalLocation,
		program.VirtualLink,
		program.AutoApprove,
		program.IsDropins,
		program.IsRangeBased,
		program.RangeStart,
		program.RangeEnd,
		program.MaxDaily,
		program.MaxWeekly,
		program.MaxMonthly,
		program.IsActive,
	).Scan(&program.ID, &program.CreatedAt, &program.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create program: %w", err)
	}

	return nil
}

// GetByID получает программу по ID
func (r *ProgramRepository) GetByID(ctx context.Context, id int64) (*model.Program, error) {
	query := `SELECT ` + programColumns + ` FROM programs WHERE id = $1`

	program, err := scanProgram(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get program by id: %w", err)
	}

	return program, nil
}

// GetForUpdate получает программу внутри транзакции с блокировкой строки.
// Строка программы служит точкой сериализации проверки квот ментора.
func (r *ProgramRepository) GetForUpdate(ctx context.Context, q base.Querier, id int64) (*model.Program, error) {
	query := `SELECT ` + programColumns + ` FROM programs WHERE id = $1 FOR UPDATE`

	program, err := scanProgram(q.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get program for update: %w", err)
	}

	return program, nil
}

// GetByMentorID получает все программы ментора
func (r *ProgramRepository) GetByMentorID(ctx context.Context, mentorID int64) ([]*model.Program, error) {
	query := `SELECT ` + programColumns + ` FROM programs WHERE mentor_id = $1 ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, mentorID)
	if err != nil {
		return nil, fmt.Errorf("get programs by mentor: %w", err)
	}
	defer rows.Close()

	var programs []*model.Program
	for rows.Next() {
		program, err := scanProgram(rows)
		if err != nil {
			return nil, fmt.Errorf("scan program: %w", err)
		}
		programs = append(programs, program)
	}

	return programs, nil
}

// GetActiveRangeBased получает активные range-based программы с непустым диапазоном.
// Используется фоновой задачей догенерации слотов.
func (r *ProgramRepository) GetActiveRangeBased(ctx context.Context) ([]*model.Program, error) {
	query := `
		SELECT ` + programColumns + `
		FROM programs
		WHERE is_active = true
		  AND is_range_based = true
		  AND range_start IS NOT NULL
		  AND range_end IS NOT NULL
		  AND range_end >= now()::date
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get active range-based programs: %w", err)
	}
	defer rows.Close()

	var programs []*model.Program
	for rows.Next() {
		program, err := scanProgram(rows)
		if err != nil {
			return nil, fmt.Errorf("scan program: %w", err)
		}
		programs = append(programs, program)
	}

	return programs, nil
}

// Update обновляет программу
func (r *ProgramRepository) Update(ctx context.Context, program *model.Program) error {
	query := `
		UPDATE programs
		SET name = $1, description = $2, duration = $3, physical_location = $4,
			virtual_link = $5, auto_approve = $6, is_dropins = $7, is_range_based = $8,
			range_start = $9, range_end = $10, max_daily = $11, max_weekly = $12,
			max_monthly = $13, is_active = $14, updated_at = now()
		WHERE id = $15
	`

	result, err := r.pool.Exec(
		ctx, query,
		program.Name,
		program.Description,
		program.Duration,
		program.PhysicalLocation,
		program.VirtualLink,
		program.AutoApprove,
		program.IsDropins,
		program.IsRangeBased,
		program.RangeStart,
		program.RangeEnd,
		program.MaxDaily,
		program.MaxWeekly,
		program.MaxMonthly,
		program.IsActive,
		program.ID,
	)
	if err != nil {
		return fmt.Errorf("update program: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("program not found")
	}

	return nil
}
