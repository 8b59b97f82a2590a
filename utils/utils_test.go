package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestISOWeekKey(t *testing.T) {
	assert.Equal(t, "2025-W11", ISOWeekKey(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)))
	// 2024-12-30 属于 2025 年第 1 周
	assert.Equal(t, "2025-W01", ISOWeekKey(time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)))
}

func TestWeekDates(t *testing.T) {
	sunday := time.Date(2025, 3, 16, 18, 0, 0, 0, time.UTC)
	dates := WeekDates(sunday)
	require.Len(t, dates, 7)
	assert.Equal(t, "2025-03-10", dates[0])
	assert.Equal(t, "2025-03-16", dates[6])

	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, dates, WeekDates(monday))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-10", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("10/03/2025", nil)
	assert.Error(t, err)
}

type locationPayload struct {
	Lat     *float64 `validate:"required,latitude"`
	Lng     *float64 `validate:"required,longitude"`
	Address string   `validate:"max=10"`
}

func TestValidateStruct(t *testing.T) {
	lat, lng := 48.85, 2.35
	assert.NoError(t, ValidateStruct(locationPayload{Lat: &lat, Lng: &lng, Address: "Paris"}))

	bad := 123.0
	assert.Error(t, ValidateStruct(locationPayload{Lat: &bad, Lng: &lng}))
	assert.Error(t, ValidateStruct(locationPayload{Lng: &lng}))
	assert.Error(t, ValidateStruct(locationPayload{Lat: &lat, Lng: &lng, Address: "a very long address"}))
}
