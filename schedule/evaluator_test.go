package schedule_test

import (
	"testing"
	"time"

	"github.com/alwitt/onair/common"
	"github.com/alwitt/onair/schedule"
	"github.com/stretchr/testify/assert"
)

func TestCanStreamAtNoWindows(t *testing.T) {
	assert := assert.New(t)

	// A streamer with no configured windows is always allowed
	timestamps := []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 12, 30, 0, 0, time.UTC),
		time.Date(2024, 1, 6, 23, 59, 0, 0, time.UTC),
	}
	for _, timestamp := range timestamps {
		assert.True(schedule.CanStreamAt(nil, timestamp))
		assert.True(schedule.CanStreamAt([]common.ScheduleWindow{}, timestamp))
	}
}

func TestCanStreamAtSingleDayWindow(t *testing.T) {
	assert := assert.New(t)

	// Monday 09:00 - 17:00
	windows := []common.ScheduleWindow{
		{DayOfWeek: int(time.Monday), StartMinute: 9 * 60, EndMinute: 17 * 60},
	}

	// 2024-01-01 is a Monday
	monday := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)

	// Monday 12:00 is inside the window
	assert.True(schedule.CanStreamAt(windows, monday.Add(time.Hour*12)))
	// Monday 20:00 is past the window
	assert.False(schedule.CanStreamAt(windows, monday.Add(time.Hour*20)))
	// Sunday 12:00 is the wrong day
	assert.False(schedule.CanStreamAt(windows, sunday.Add(time.Hour*12)))
	// Window boundaries are inclusive
	assert.True(schedule.CanStreamAt(windows, monday.Add(time.Hour*9)))
	assert.True(schedule.CanStreamAt(windows, monday.Add(time.Hour*17)))
	assert.False(schedule.CanStreamAt(windows, monday.Add(time.Hour*17+time.Minute)))
}

func TestCanStreamAtWindowCrossingMidnight(t *testing.T) {
	assert := assert.New(t)

	// Friday 22:00 - 02:00, crossing into Saturday morning
	windows := []common.ScheduleWindow{
		{DayOfWeek: int(time.Friday), StartMinute: 22 * 60, EndMinute: 2 * 60},
	}

	// 2024-01-05 is a Friday
	friday := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	saturday := friday.Add(time.Hour * 24)

	// Friday 23:30 is inside the window
	assert.True(schedule.CanStreamAt(windows, friday.Add(time.Hour*23+time.Minute*30)))
	// Saturday 01:30 is still inside the window
	assert.True(schedule.CanStreamAt(windows, saturday.Add(time.Hour+time.Minute*30)))
	// Friday 10:00 is outside the window
	assert.False(schedule.CanStreamAt(windows, friday.Add(time.Hour*10)))
	// Saturday 03:00 is past the window
	assert.False(schedule.CanStreamAt(windows, saturday.Add(time.Hour*3)))
	// Saturday 23:30 does not match; only the tail of the start day does
	assert.False(schedule.CanStreamAt(windows, saturday.Add(time.Hour*23+time.Minute*30)))
}

func TestCanStreamAtMultipleWindows(t *testing.T) {
	assert := assert.New(t)

	windows := []common.ScheduleWindow{
		{DayOfWeek: int(time.Tuesday), StartMinute: 8 * 60, EndMinute: 10 * 60},
		{DayOfWeek: int(time.Thursday), StartMinute: 18 * 60, EndMinute: 21 * 60},
	}

	// 2024-01-02 is a Tuesday, 2024-01-04 a Thursday
	tuesday := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	thursday := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)

	assert.True(schedule.CanStreamAt(windows, tuesday.Add(time.Hour*9)))
	assert.True(schedule.CanStreamAt(windows, thursday.Add(time.Hour*19)))
	assert.False(schedule.CanStreamAt(windows, tuesday.Add(time.Hour*19)))
	assert.False(schedule.CanStreamAt(windows, thursday.Add(time.Hour*9)))
}
