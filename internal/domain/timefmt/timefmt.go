// Package timefmt formats and parses reading timestamps in a fixed zone
// offset. The offset is always passed in; nothing here consults the process
// time zone.
package timefmt

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Layouts used for display and for local input.
const (
	DisplayLayout = "2006-01-02 15:04:05"
	ClockLayout   = "15:04"
)

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ErrInvalidTime is returned when a timestamp matches no accepted layout.
var ErrInvalidTime = errors.New("invalid timestamp")

// Zone returns a fixed zone for an offset in minutes east of UTC.
func Zone(offsetMinutes int) *time.Location {
	sign := "+"
	abs := offsetMinutes
	if abs < 0 {
		sign = "-"
		abs = -abs
	}
	return time.FixedZone(fmt.Sprintf("UTC%s%02d:%02d", sign, abs/60, abs%60), offsetMinutes*60)
}

// Format renders t in the given fixed offset.
func Format(t time.Time, offsetMinutes int) string {
	return t.In(Zone(offsetMinutes)).Format(DisplayLayout)
}

// FormatClock renders only the wall-clock time of t in the given offset.
func FormatClock(t time.Time, offsetMinutes int) string {
	return t.In(Zone(offsetMinutes)).Format(ClockLayout)
}

// Parse accepts RFC3339 (which carries its own offset) or a local date-time
// without offset, which is interpreted in the given fixed offset.
func Parse(s string, offsetMinutes int) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidTime)
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	zone := Zone(offsetMinutes)
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, zone); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
}
