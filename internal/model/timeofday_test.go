package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:00", TimeOfDay(9 * 60), false},
		{"00:00", TimeOfDay(0), false},
		{"23:59", TimeOfDay(23*60 + 59), false},
		{"9:30", TimeOfDay(9*60 + 30), false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"-1:00", 0, true},
		{"garbage", 0, true},
		{"", 0, true},
		// Строка разбирается целиком, хвост после минут не допускается
		{"12:34xyz", 0, true},
		{"12:34 ", 0, true},
		{" 12:34", 0, true},
		{"12:", 0, true},
		{":30", 0, true},
		{"12:34:56", 0, true},
	}

	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.input)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.input)
			continue
		}
		require.NoError(t, err, "input %q", tc.input)
		assert.Equal(t, tc.want, got, "input %q", tc.input)
	}
}

func TestTimeOfDayString(t *testing.T) {
	assert.Equal(t, "09:05", TimeOfDay(9*60+5).String())
	assert.Equal(t, "00:00", TimeOfDay(0).String())
	assert.Equal(t, "23:59", TimeOfDay(23*60+59).String())
}

func TestTimeOfDayJSONRoundTrip(t *testing.T) {
	original := TimeOfDay(14*60 + 30)

	data, err := json.Marshal(original)
	require.NoError(t, err)
	assert.Equal(t, `"14:30"`, string(data))

	var decoded TimeOfDay
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func TestTimeOfDayAt(t *testing.T) {
	date := time.Date(2026, 3, 3, 0, 0, 0, 0, time.Local)
	at := TimeOfDay(10*60 + 15).At(date)

	assert.Equal(t, 10, at.Hour())
	assert.Equal(t, 15, at.Minute())
	assert.Equal(t, date.Day(), at.Day())
}
