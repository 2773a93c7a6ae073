package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/openmentor/scheduler/internal/model"
)

type TemplateRepository struct {
	pool *pgxpool.Pool
}

func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

// Upsert заменяет запись шаблона для дня недели программы целиком
func (r *TemplateRepository) Upsert(ctx context.Context, entry *model.WeeklyTemplateEntry) error {
	query := `
		INSERT INTO weekly_template_entries (program_id, group_id, weekday, start_minute, end_minute)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (program_id, weekday) DO UPDATE
		SET group_id = EXCLUDED.group_id,
			start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute,
			updated_at = now()
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		entry.ProgramID,
		entry.GroupID,
		entry.Weekday,
		int(entry.StartTime),
		int(entry.EndTime),
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upsert template entry: %w", err)
	}

	return nil
}

// Delete удаляет запись шаблона для дня недели.
// Возвращает false если записи не было.
func (r *TemplateRepository) Delete(ctx context.Context, programID int64, weekday int) (bool, error) {
	query := `DELETE FROM weekly_template_entries WHERE program_id = $1 AND weekday = $2`

	result, err := r.pool.Exec(ctx, query, programID, weekday)
	if err != nil {
		return false, fmt.Errorf("delete template entry: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// GetByProgramID получает все записи шаблона программы
func (r *TemplateRepository) GetByProgramID(ctx context.Context, programID int64) ([]*model.WeeklyTemplateEntry, error) {
	query := `
		SELECT id, program_id, group_id, weekday, start_minute, end_minute, created_at, updated_at
		FROM weekly_template_entries
		WHERE program_id = $1
		ORDER BY weekday
	`

	rows, err := r.pool.Query(ctx, query, programID)
	if err != nil {
		return nil, fmt.Errorf("get template entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.WeeklyTemplateEntry
	for rows.Next() {
		var entry model.WeeklyTemplateEntry
		var startMinute, endMinute int
		err := rows.Scan(
			&entry.ID,
			&entry.ProgramID,
			&entry.GroupID,
			&entry.Weekday,
			&startMinute,
			&endMinute,
			&entry.CreatedAt,
			&entry.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan template entry: %w", err)
		}
		entry.StartTime = model.TimeOfDay(startMinute)
		entry.EndTime = model.TimeOfDay(endMinute)
		entries = append(entries, &entry)
	}

	return entries, nil
}
