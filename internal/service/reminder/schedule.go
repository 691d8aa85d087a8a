package reminder

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/sehatline/sehat_backend/internal/service/adherence"
)

// syntheticReportSlot marks weekly-report rows in the delivery log. Real
// slots are always 00:00..23:59, so the value can never collide with one.
const syntheticReportSlot = "24:00"

var hhmmRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidateTimes checks an ordered reminder-times list: valid HH:MM values,
// at least one entry, no duplicates.
func ValidateTimes(times []string) error {
	if len(times) == 0 {
		return fmt.Errorf("at least one reminder time is required")
	}
	seen := make(map[string]bool, len(times))
	for _, t := range times {
		if !hhmmRe.MatchString(t) {
			return fmt.Errorf("invalid reminder time %q, want HH:MM", t)
		}
		if seen[t] {
			return fmt.Errorf("duplicate reminder time %q", t)
		}
		seen[t] = true
	}
	return nil
}

// SortTimes returns a sorted copy. HH:MM strings sort lexically into
// chronological order.
func SortTimes(times []string) []string {
	out := make([]string, len(times))
	copy(out, times)
	sort.Strings(out)
	return out
}

// dueSlot is one (date, time) pair a reminder owes a send for.
type dueSlot struct {
	Date time.Time // midnight, location of the tick
	Time string    // "HH:MM"
}

// DueSlots returns the slots whose scheduled wall-clock moment falls inside
// (tickStart, now]. A window spanning midnight yields slots on both days,
// each dated by the day the time belongs to.
func DueSlots(times []string, tickStart, now time.Time) []dueSlot {
	var due []dueSlot
	// Candidate days: the tick window touches at most two calendar days.
	days := []time.Time{adherence.DateOnly(tickStart)}
	if d := adherence.DateOnly(now); !d.Equal(days[0]) {
		days = append(days, d)
	}
	for _, day := range days {
		for _, hhmm := range times {
			at := slotMoment(day, hhmm)
			if at.After(tickStart) && !at.After(now) {
				due = append(due, dueSlot{Date: day, Time: hhmm})
			}
		}
	}
	return due
}

func slotMoment(day time.Time, hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location())
}

// InDateRange reports whether today falls inside the reminder's validity
// window, inclusive on both ends. Dates are compared at day granularity.
func InDateRange(today, start, end time.Time) bool {
	d := adherence.DateOnly(today)
	return !d.Before(adherence.DateOnly(start)) && !d.After(adherence.DateOnly(end))
}
