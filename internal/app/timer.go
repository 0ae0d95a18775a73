package app

import (
	"fmt"
	"time"
)

// EndTimeLayout is the stored form of the contest deadline.
const EndTimeLayout = "2006-01-02 15:04:05"

// DefaultLocation is the civil timezone contests are scheduled in when none is configured.
const DefaultLocation = "Asia/Tokyo"

// EvaluateDeadline reports the time left until end and whether it has passed.
// Remaining never goes negative; time is up from the end instant on.
func EvaluateDeadline(end, now time.Time) (time.Duration, bool) {
	if !now.Before(end) {
		return 0, true
	}
	return end.Sub(now), false
}

// ParseEndTime reads a stored deadline as wall-clock time in loc.
func ParseEndTime(raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("end time is empty")
	}
	return time.ParseInLocation(EndTimeLayout, raw, loc)
}

// FormatEndTime renders t for storage as wall-clock time in loc.
func FormatEndTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(EndTimeLayout)
}
