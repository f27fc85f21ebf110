// Package schedule decides whether a streamer's weekly schedule permits
// broadcasting at a given moment.
package schedule

import (
	"time"

	"github.com/alwitt/onair/common"
)

/*
CanStreamAt check whether a set of weekly schedule windows permits streaming
at the given time.

A streamer with no configured windows may stream at any time. A window whose
end minute is less than its start minute crosses midnight into the following
day; such a window matches both the late portion of its start day and the
early portion of the next day.

	@param windows []common.ScheduleWindow - the streamer's configured windows
	@param timestamp time.Time - the moment to evaluate
	@returns whether streaming is permitted
*/
func CanStreamAt(windows []common.ScheduleWindow, timestamp time.Time) bool {
	if len(windows) == 0 {
		return true
	}

	day := int(timestamp.Weekday())
	minute := timestamp.Hour()*60 + timestamp.Minute()

	for _, window := range windows {
		if window.StartMinute <= window.EndMinute {
			// Window contained within one day
			if day == window.DayOfWeek &&
				minute >= window.StartMinute && minute <= window.EndMinute {
				return true
			}
			continue
		}

		// Window crosses midnight: matches the tail of the start day and the
		// head of the following day
		if day == window.DayOfWeek && minute >= window.StartMinute {
			return true
		}
		if day == (window.DayOfWeek+1)%7 && minute <= window.EndMinute {
			return true
		}
	}

	return false
}
