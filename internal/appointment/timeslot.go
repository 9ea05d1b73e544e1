package appointment

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDayLayout is the wire format for wall-clock times.
const TimeOfDayLayout = "15:04"

// rangeSeparator joins the two halves of a formatted slot, e.g. "09:00 - 09:30".
const rangeSeparator = " - "

// ParseTimeOfDay parses a wall-clock time in "HH:MM" form.
func ParseTimeOfDay(s string) (time.Time, error) {
	t, err := time.Parse(TimeOfDayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return t, nil
}

// FormatRange renders a time range as "HH:MM - HH:MM".
func FormatRange(start, end time.Time) string {
	return start.Format(TimeOfDayLayout) + rangeSeparator + end.Format(TimeOfDayLayout)
}

// ParseRange is the exact inverse of FormatRange.
func ParseRange(s string) (start, end time.Time, err error) {
	left, right, found := strings.Cut(s, rangeSeparator)
	if !found {
		return time.Time{}, time.Time{}, fmt.Errorf("parse range %q: missing separator", s)
	}
	if start, err = ParseTimeOfDay(left); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end, err = ParseTimeOfDay(right); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// Overlaps reports whether two half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. An interval ending exactly when the other
// starts does not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// GenerateDaySlots partitions the business day into fixed-size slots,
// formatted per FormatRange, in chronological order.
func GenerateDaySlots() []string {
	var slots []string
	for cur := OpeningTime; cur.Before(ClosingTime); {
		next := cur.Add(SlotDuration)
		slots = append(slots, FormatRange(cur, next))
		cur = next
	}
	return slots
}
