package schedule

import (
	"testing"
	"time"

	"github.com/openmentor/scheduler/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestClampLimits(t *testing.T) {
	cases := []struct {
		name                   string
		daily, weekly, monthly int
		edited                 LimitField
		wantD, wantW, wantM    int
	}{
		{"daily raised above weekly pulls weekly and monthly up", 10, 5, 8, FieldDaily, 10, 10, 10},
		{"daily raised between weekly and monthly pulls weekly only", 6, 5, 8, FieldDaily, 6, 6, 8},
		{"daily lowered leaves others alone", 1, 5, 8, FieldDaily, 1, 5, 8},
		{"weekly lowered below daily pulls daily down", 5, 3, 8, FieldWeekly, 3, 3, 8},
		{"weekly raised above monthly pulls monthly up", 2, 10, 8, FieldWeekly, 2, 10, 10},
		{"weekly within bounds unchanged", 2, 5, 8, FieldWeekly, 2, 5, 8},
		{"monthly lowered below weekly pulls weekly down", 2, 5, 4, FieldMonthly, 2, 4, 4},
		{"monthly lowered below daily pulls both down", 3, 5, 1, FieldMonthly, 1, 1, 1},
		{"monthly raised unchanged", 2, 5, 100, FieldMonthly, 2, 5, 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, w, m := ClampLimits(tc.daily, tc.weekly, tc.monthly, tc.edited)
			assert.Equal(t, tc.wantD, d)
			assert.Equal(t, tc.wantW, w)
			assert.Equal(t, tc.wantM, m)
		})
	}
}

// Правка одного поля корректной тройки всегда даёт корректную тройку:
// daily <= weekly <= monthly сохраняется при любом новом значении
func TestClampLimitsInvariantHolds(t *testing.T) {
	values := []int{0, 1, 5, 999}
	edits := []struct {
		field LimitField
		apply func(d, w, m, v int) (int, int, int)
	}{
		{FieldDaily, func(d, w, m, v int) (int, int, int) { return v, w, m }},
		{FieldWeekly, func(d, w, m, v int) (int, int, int) { return d, v, m }},
		{FieldMonthly, func(d, w, m, v int) (int, int, int) { return d, w, v }},
	}

	for _, d0 := range values {
		for _, w0 := range values {
			for _, m0 := range values {
				if d0 > w0 || w0 > m0 {
					continue
				}
				for _, edit := range edits {
					for _, v := range values {
						d1, w1, m1 := edit.apply(d0, w0, m0, v)
						d, w, m := ClampLimits(d1, w1, m1, edit.field)
						assert.LessOrEqual(t, d, w, "daily <= weekly after %s=%d on %d/%d/%d", edit.field, v, d0, w0, m0)
						assert.LessOrEqual(t, w, m, "weekly <= monthly after %s=%d on %d/%d/%d", edit.field, v, d0, w0, m0)
					}
				}
			}
		}
	}
}

// Отредактированное поле никогда не перетирается: подтягиваются соседи
func TestClampLimitsPreservesEditedField(t *testing.T) {
	d, _, _ := ClampLimits(10, 2, 3, FieldDaily)
	assert.Equal(t, 10, d)

	_, w, _ := ClampLimits(10, 2, 30, FieldWeekly)
	assert.Equal(t, 2, w)

	_, _, m := ClampLimits(10, 20, 3, FieldMonthly)
	assert.Equal(t, 3, m)
}

// Неположительные лимиты получают дефолт до клампинга: ноль в тройке
// никогда не сохраняется и не блокирует резервирования
func TestNormalizeLimitsDefaultsNonPositive(t *testing.T) {
	cases := []struct {
		name                   string
		daily, weekly, monthly int
		edited                 LimitField
		wantD, wantW, wantM    int
	}{
		{"all unset", 0, 0, 0, FieldDaily, model.DefaultMeetingLimit, model.DefaultMeetingLimit, model.DefaultMeetingLimit},
		{"edited daily, others unset", 2, 0, 0, FieldDaily, 2, model.DefaultMeetingLimit, model.DefaultMeetingLimit},
		{"edited weekly zero falls back to default", 2, 0, 10, FieldWeekly, 2, model.DefaultMeetingLimit, model.DefaultMeetingLimit},
		{"negative treated as unset", -1, 5, 10, FieldMonthly, 5, 5, 10},
		{"valid triple untouched", 1, 5, 10, FieldDaily, 1, 5, 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, w, m := NormalizeLimits(tc.daily, tc.weekly, tc.monthly, tc.edited)
			assert.Equal(t, tc.wantD, d)
			assert.Equal(t, tc.wantW, w)
			assert.Equal(t, tc.wantM, m)
			assert.Positive(t, d)
			assert.LessOrEqual(t, d, w)
			assert.LessOrEqual(t, w, m)
		})
	}
}

func TestDayWindow(t *testing.T) {
	from, to := DayWindow(time.Date(2024, 3, 15, 14, 30, 0, 0, time.Local))

	assert.Equal(t, date(2024, 3, 15), from)
	assert.Equal(t, date(2024, 3, 16), to)
}

func TestWeekWindow(t *testing.T) {
	cases := []struct {
		name string
		in   time.Time
		from time.Time
	}{
		{"monday starts its own week", date(2024, 1, 1), date(2024, 1, 1)},
		{"midweek snaps back to monday", date(2024, 1, 4), date(2024, 1, 1)},
		{"sunday belongs to the previous monday", date(2024, 1, 7), date(2024, 1, 1)},
		{"next monday opens a new week", date(2024, 1, 8), date(2024, 1, 8)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			from, to := WeekWindow(tc.in)
			assert.Equal(t, tc.from, from)
			assert.Equal(t, tc.from.AddDate(0, 0, 7), to)
		})
	}
}

func TestMonthWindow(t *testing.T) {
	// Февраль високосного года
	from, to := MonthWindow(date(2024, 2, 29))
	assert.Equal(t, date(2024, 2, 1), from)
	assert.Equal(t, date(2024, 3, 1), to)

	// Декабрь переходит в следующий год
	from, to = MonthWindow(date(2024, 12, 15))
	assert.Equal(t, date(2024, 12, 1), from)
	assert.Equal(t, date(2025, 1, 1), to)
}
